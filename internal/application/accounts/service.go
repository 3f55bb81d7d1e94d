// Package accounts manages the marketplace accounts that own all records
package accounts

import (
	"context"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// Service exposes account provisioning and lookup
type Service struct {
	accounts account.Repository
}

// NewService creates a new accounts Service
func NewService(accounts account.Repository) *Service {
	return &Service{accounts: accounts}
}

// Create provisions a new active account
func (s *Service) Create(ctx context.Context, name, marketplace string) (*account.Account, error) {
	acc, err := account.NewAccount(name, marketplace)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Get returns one account
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// List returns accounts matching the filter
func (s *Service) List(ctx context.Context, filter shared.Filter) ([]account.Account, error) {
	return s.accounts.FindAll(ctx, filter)
}

// SetActive activates or deactivates an account. Deactivation blocks new
// imports; existing records stay readable.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*account.Account, error) {
	acc, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		acc.Activate()
	} else {
		acc.Deactivate()
	}
	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}
