// Package account defines the isolation boundary of the system. Every record
// in the store carries an owning account; no read or write crosses accounts.
package account

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/shared"
)

// Account is one marketplace storefront operated from the console
type Account struct {
	shared.BaseAggregateRoot
	Name        string `gorm:"type:varchar(200);not null"`
	Marketplace string `gorm:"type:varchar(50)"`
	Active      bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewAccount creates a new active account
func NewAccount(name, marketplace string) (*Account, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Account name cannot exceed 200 characters")
	}
	return &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Marketplace:       marketplace,
		Active:            true,
	}, nil
}

// Deactivate marks the account inactive; existing records remain readable
func (a *Account) Deactivate() {
	a.Active = false
	a.UpdatedAt = time.Now()
}

// Activate re-enables the account
func (a *Account) Activate() {
	a.Active = true
	a.UpdatedAt = time.Now()
}

// Repository provides access to accounts
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Account, error)
	Save(ctx context.Context, acc *Account) error
}
