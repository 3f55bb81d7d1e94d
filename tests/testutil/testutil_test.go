package testutil

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer func() { _ = mockDB.Close() }()

	mockDB.Mock.ExpectQuery(`SELECT count\(\*\) FROM "accounts"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var count int64
	err := mockDB.DB.Table("accounts").Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	mockDB.ExpectationsWereMet(t)
}

func TestNewTestContext(t *testing.T) {
	tc := NewTestContext(t)

	require.NotNil(t, tc.Context)
	require.NotNil(t, tc.Recorder)
	require.NotNil(t, tc.Context.Request)
	assert.Equal(t, http.MethodGet, tc.Context.Request.Method)
}

func TestTestContext_Setters(t *testing.T) {
	tc := NewTestContext(t)

	tc.SetRequestID("req-123")
	tc.SetAccountParam("11111111-1111-1111-1111-111111111111")
	tc.SetActor("ops@example.com")

	id, ok := tc.Context.Get("request_id")
	require.True(t, ok)
	assert.Equal(t, "req-123", id)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", tc.Context.Param("account_id"))
	assert.Equal(t, "ops@example.com", tc.Context.Request.Header.Get("X-User-ID"))
}
