// Package integration exercises the reconciliation engine against a real
// database. Tests run on an in-memory SQLite database migrated from the GORM
// models, so they need no external services.
package integration

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/importjob"
	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
)

// TestDB is a migrated in-memory database for one test
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB opens a fresh in-memory database and migrates the schema.
// Each call gets its own database; cache=shared only spans the connection
// pool of this handle.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps concurrent batch commits serialized the way
	// SQLite requires
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&account.Account{},
		&order.Record{},
		&listing.Record{},
		&history.Entry{},
		&importjob.Job{},
	)
	require.NoError(t, err, "Failed to migrate test schema")

	t.Cleanup(func() { _ = sqlDB.Close() })
	return &TestDB{DB: db}
}

// CreateTestAccount inserts and returns an active account
func (tdb *TestDB) CreateTestAccount(t *testing.T, name string) *account.Account {
	t.Helper()

	acc, err := account.NewAccount(name, "ebay")
	require.NoError(t, err)
	require.NoError(t, tdb.DB.Create(acc).Error)
	return acc
}
