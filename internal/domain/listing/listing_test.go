package listing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/shared"
)

func newTestListing(t *testing.T, quantity int) *Record {
	t.Helper()
	rec, err := New(uuid.New(), "ITEM-1", "Blue Widget", decimal.NewFromFloat(9.99), quantity, "importer")
	require.NoError(t, err)
	return rec
}

func TestNew(t *testing.T) {
	accountID := uuid.New()

	rec, err := New(accountID, "ITEM-1", "Blue Widget", decimal.NewFromFloat(9.99), 5, "importer")

	require.NoError(t, err)
	assert.Equal(t, accountID, rec.AccountID)
	assert.Equal(t, "ITEM-1", rec.ExternalID)
	assert.Equal(t, StatusDraft, rec.Status)
	assert.Equal(t, 5, rec.QuantityAvailable)
	assert.Equal(t, 0, rec.QuantitySold)

	entries := rec.PendingHistory()
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].FromStatus)
	assert.Equal(t, "draft", entries[0].ToStatus)
}

func TestNew_Validation(t *testing.T) {
	price := decimal.NewFromInt(10)

	tests := []struct {
		name      string
		accountID uuid.UUID
		external  string
		title     string
		price     decimal.Decimal
		quantity  int
		code      string
	}{
		{"nil account", uuid.Nil, "ITEM-1", "Widget", price, 1, "INVALID_ACCOUNT"},
		{"empty external id", uuid.New(), "", "Widget", price, 1, "INVALID_EXTERNAL_ID"},
		{"empty title", uuid.New(), "ITEM-1", "", price, 1, "INVALID_TITLE"},
		{"negative price", uuid.New(), "ITEM-1", "Widget", decimal.NewFromInt(-1), 1, "INVALID_PRICE"},
		{"negative quantity", uuid.New(), "ITEM-1", "Widget", price, -1, "INVALID_QUANTITY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.accountID, tt.external, tt.title, tt.price, tt.quantity, "importer")
			require.Error(t, err)
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:      {StatusActive, StatusInactive},
		StatusActive:     {StatusInactive, StatusSold, StatusEnded, StatusOutOfStock},
		StatusInactive:   {StatusActive, StatusEnded},
		StatusOutOfStock: {StatusActive, StatusInactive},
		StatusSuspended:  {StatusActive, StatusInactive},
		StatusSold:       {},
		StatusEnded:      {},
	}
	all := []Status{StatusDraft, StatusActive, StatusInactive, StatusOutOfStock,
		StatusSold, StatusEnded, StatusSuspended}

	for from, targets := range allowed {
		ok := make(map[Status]bool, len(targets))
		for _, target := range targets {
			ok[target] = true
		}
		for _, to := range all {
			assert.Equal(t, ok[to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
		assert.Equal(t, len(targets) == 0, from.IsTerminal(), "terminal %s", from)
	}
}

func TestTransitionTo_ZeroStockActivation(t *testing.T) {
	t.Run("cannot activate with no stock", func(t *testing.T) {
		for _, from := range []Status{StatusDraft, StatusInactive, StatusOutOfStock} {
			rec := newTestListing(t, 0)
			rec.Status = from
			rec.TakeHistory()

			err := rec.TransitionTo(StatusActive, "", "alice")

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr, "from %s", from)
			assert.Equal(t, shared.ErrInvalidTransition.Code, domainErr.Code)
			assert.Equal(t, from, rec.Status)
			assert.Empty(t, rec.PendingHistory())
		}
	})

	t.Run("activation with stock succeeds", func(t *testing.T) {
		rec := newTestListing(t, 1)
		require.NoError(t, rec.TransitionTo(StatusActive, "", "alice"))
		assert.Equal(t, StatusActive, rec.Status)
	})
}

func TestSetQuantity_AutoTransitions(t *testing.T) {
	t.Run("active dropping to zero goes out of stock", func(t *testing.T) {
		rec := newTestListing(t, 5)
		require.NoError(t, rec.TransitionTo(StatusActive, "", "alice"))
		rec.TakeHistory()

		require.NoError(t, rec.SetQuantity(0))

		assert.Equal(t, StatusOutOfStock, rec.Status)
		entries := rec.PendingHistory()
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].FromStatus)
		assert.Equal(t, "active", *entries[0].FromStatus)
		assert.Equal(t, "out_of_stock", entries[0].ToStatus)
		assert.True(t, entries[0].System)
		assert.Equal(t, history.SystemActor, entries[0].Actor)
	})

	t.Run("out of stock regaining stock goes active", func(t *testing.T) {
		rec := newTestListing(t, 5)
		require.NoError(t, rec.TransitionTo(StatusActive, "", "alice"))
		require.NoError(t, rec.SetQuantity(0))
		rec.TakeHistory()

		require.NoError(t, rec.SetQuantity(3))

		assert.Equal(t, StatusActive, rec.Status)
		entries := rec.PendingHistory()
		require.Len(t, entries, 1)
		assert.Equal(t, "active", entries[0].ToStatus)
	})

	t.Run("draft never auto-transitions", func(t *testing.T) {
		rec := newTestListing(t, 5)
		rec.TakeHistory()

		require.NoError(t, rec.SetQuantity(0))

		assert.Equal(t, StatusDraft, rec.Status)
		assert.Empty(t, rec.PendingHistory())
	})

	t.Run("same quantity is a no-op", func(t *testing.T) {
		rec := newTestListing(t, 5)
		require.NoError(t, rec.TransitionTo(StatusActive, "", "alice"))
		rec.TakeHistory()

		require.NoError(t, rec.SetQuantity(5))

		assert.Equal(t, StatusActive, rec.Status)
		assert.Empty(t, rec.PendingHistory())
	})

	t.Run("negative quantity rejected", func(t *testing.T) {
		rec := newTestListing(t, 5)
		err := rec.SetQuantity(-1)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_QUANTITY", domainErr.Code)
		assert.Equal(t, 5, rec.QuantityAvailable)
	})
}

func TestRecordSale(t *testing.T) {
	t.Run("decrements stock and increments sold", func(t *testing.T) {
		rec := newTestListing(t, 5)
		require.NoError(t, rec.TransitionTo(StatusActive, "", "alice"))
		rec.TakeHistory()

		require.NoError(t, rec.RecordSale(2))

		assert.Equal(t, 3, rec.QuantityAvailable)
		assert.Equal(t, 2, rec.QuantitySold)
		assert.Equal(t, StatusActive, rec.Status)
		assert.Empty(t, rec.PendingHistory())
	})

	t.Run("selling out triggers auto-transition", func(t *testing.T) {
		rec := newTestListing(t, 2)
		require.NoError(t, rec.TransitionTo(StatusActive, "", "alice"))
		rec.TakeHistory()

		require.NoError(t, rec.RecordSale(2))

		assert.Equal(t, 0, rec.QuantityAvailable)
		assert.Equal(t, StatusOutOfStock, rec.Status)
		require.Len(t, rec.PendingHistory(), 1)
	})

	t.Run("oversell rejected", func(t *testing.T) {
		rec := newTestListing(t, 1)
		err := rec.RecordSale(2)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)
		assert.Equal(t, 1, rec.QuantityAvailable)
		assert.Equal(t, 0, rec.QuantitySold)
	})

	t.Run("non-positive quantity rejected", func(t *testing.T) {
		rec := newTestListing(t, 5)
		require.Error(t, rec.RecordSale(0))
		require.Error(t, rec.RecordSale(-1))
	})
}

func TestApplyFields_QuantityRoutesThroughAutoTransition(t *testing.T) {
	rec := newTestListing(t, 5)
	require.NoError(t, rec.TransitionTo(StatusActive, "", "alice"))
	rec.TakeHistory()

	in := *rec
	in.QuantityAvailable = 0
	in.Title = "Blue Widget v2"

	rec.ApplyFields(&in, []string{FieldTitle, FieldQuantity})

	assert.Equal(t, "Blue Widget v2", rec.Title)
	assert.Equal(t, 0, rec.QuantityAvailable)
	assert.Equal(t, StatusOutOfStock, rec.Status)
	require.Len(t, rec.PendingHistory(), 1)
}

func TestFieldDiff(t *testing.T) {
	rec := newTestListing(t, 5)
	in := *rec
	assert.Empty(t, rec.FieldDiff(&in))

	in.Price = decimal.NewFromFloat(12.50)
	in.WatchCount = 7
	in.Status = StatusActive

	diff := rec.FieldDiff(&in)
	assert.ElementsMatch(t, []string{FieldPrice, FieldWatchCount}, diff)
}
