package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/infrastructure/csvimport"
)

const testActor = "importer"

func orderInput(t *testing.T, accountID uuid.UUID, line int, externalID, buyer, total string) OrderInput {
	t.Helper()
	rec, err := order.New(accountID, externalID, buyer, decimal.RequireFromString(total),
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), testActor)
	require.NoError(t, err)
	return OrderInput{LineNumber: line, Record: rec}
}

func listingInput(t *testing.T, accountID uuid.UUID, line int, externalID, title, price string, quantity int) ListingInput {
	t.Helper()
	rec, err := listing.New(accountID, externalID, title, decimal.RequireFromString(price), quantity, testActor)
	require.NoError(t, err)
	return ListingInput{LineNumber: line, Record: rec}
}

func orderStatusPtr(s order.Status) *order.Status {
	return &s
}

func listingStatusPtr(s listing.Status) *listing.Status {
	return &s
}

func TestOrderResolve_Insert(t *testing.T) {
	repo := newFakeOrderRepository()
	resolver := NewOrderResolver(repo, testActor)
	accountID := uuid.New()

	res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{
		orderInput(t, accountID, 2, "O-1", "Alice", "10.00"),
	})

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.True(t, item.IsInsert)
	assert.True(t, item.Dirty())
	assert.Equal(t, order.StatusPending, item.Record.Status)
	assert.Equal(t, []int{2}, item.Lines)
	assert.Empty(t, res.Failures)
	assert.Zero(t, res.Unchanged)
}

func TestOrderResolve_UpdateWithDiff(t *testing.T) {
	repo := newFakeOrderRepository()
	accountID := uuid.New()
	existing, err := order.New(accountID, "O-1", "Alice", decimal.RequireFromString("10.00"),
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), testActor)
	require.NoError(t, err)
	repo.seed(existing)

	resolver := NewOrderResolver(repo, testActor)
	in := orderInput(t, accountID, 2, "O-1", "Alice", "12.50")
	in.Record.TrackingNumber = "1Z999"

	res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{in})

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.False(t, item.IsInsert)
	assert.Same(t, existing, item.Record, "updates mutate the loaded record")
	assert.ElementsMatch(t, []string{order.FieldTotalAmount, order.FieldTracking}, item.ChangedFields)
	assert.False(t, item.StatusChanged)
	assert.True(t, existing.TotalAmount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "1Z999", existing.TrackingNumber)
}

func TestOrderResolve_IdenticalRowIsUnchanged(t *testing.T) {
	repo := newFakeOrderRepository()
	accountID := uuid.New()
	existing, err := order.New(accountID, "O-1", "Alice", decimal.RequireFromString("10.00"),
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), testActor)
	require.NoError(t, err)
	repo.seed(existing)

	resolver := NewOrderResolver(repo, testActor)
	res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{
		orderInput(t, accountID, 2, "O-1", "Alice", "10.00"),
	})

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.False(t, res.Items[0].Dirty())
	assert.Equal(t, 1, res.Unchanged)
	assert.Empty(t, res.Dirty())
}

func TestOrderResolve_InFileDuplicatesCollapse(t *testing.T) {
	// Two rows for the same new external id: one insert whose second row
	// applies a status transition on top of the first.
	repo := newFakeOrderRepository()
	resolver := NewOrderResolver(repo, testActor)
	accountID := uuid.New()

	first := orderInput(t, accountID, 2, "O-1", "Alice", "10.00")
	second := orderInput(t, accountID, 3, "O-1", "Alice", "10.00")
	second.TargetStatus = orderStatusPtr(order.StatusConfirmed)

	res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{first, second})

	require.NoError(t, err)
	require.Len(t, res.Items, 1, "duplicate rows collapse onto one record")
	item := res.Items[0]
	assert.True(t, item.IsInsert)
	assert.True(t, item.StatusChanged)
	assert.Equal(t, order.StatusConfirmed, item.Record.Status)
	assert.Equal(t, []int{2, 3}, item.Lines)

	// Creation entry plus the pending -> confirmed transition
	entries := item.Record.PendingHistory()
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].FromStatus)
	assert.Equal(t, "confirmed", entries[1].ToStatus)
}

func TestOrderResolve_InFileDuplicateLastValueWins(t *testing.T) {
	repo := newFakeOrderRepository()
	resolver := NewOrderResolver(repo, testActor)
	accountID := uuid.New()

	res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{
		orderInput(t, accountID, 2, "O-1", "Alice", "10.00"),
		orderInput(t, accountID, 3, "O-1", "Alice", "99.00"),
	})

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].Record.TotalAmount.Equal(decimal.RequireFromString("99.00")))
}

func TestOrderResolve_InvalidTransition(t *testing.T) {
	repo := newFakeOrderRepository()
	accountID := uuid.New()
	existing, err := order.New(accountID, "O-1", "Alice", decimal.RequireFromString("10.00"),
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), testActor)
	require.NoError(t, err)
	repo.seed(existing)

	resolver := NewOrderResolver(repo, testActor)
	in := orderInput(t, accountID, 2, "O-1", "Bob", "10.00")
	in.TargetStatus = orderStatusPtr(order.StatusDelivered)

	res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{in})

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, csvimport.ErrCodeInvalidTransition, res.Failures[0].Code)
	assert.Equal(t, 2, res.Failures[0].Row)

	// The record keeps its status but still takes the field update
	item := res.Items[0]
	assert.Equal(t, order.StatusPending, item.Record.Status)
	assert.False(t, item.StatusChanged)
	assert.Equal(t, "Bob", item.Record.BuyerName)
	assert.True(t, item.Dirty())
}

func TestOrderResolve_SameStatusIsNoTransition(t *testing.T) {
	repo := newFakeOrderRepository()
	accountID := uuid.New()
	existing, err := order.New(accountID, "O-1", "Alice", decimal.RequireFromString("10.00"),
		time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), testActor)
	require.NoError(t, err)
	repo.seed(existing)

	resolver := NewOrderResolver(repo, testActor)
	in := orderInput(t, accountID, 2, "O-1", "Alice", "10.00")
	in.TargetStatus = orderStatusPtr(order.StatusPending)

	res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{in})

	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.False(t, res.Items[0].Dirty())
	assert.Equal(t, 1, res.Unchanged)
}

func TestOrderResolve_ShipmentTimestampsOnInsertOnly(t *testing.T) {
	repo := newFakeOrderRepository()
	accountID := uuid.New()
	shipped := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("insert takes snapshot timestamps", func(t *testing.T) {
		resolver := NewOrderResolver(repo, testActor)
		in := orderInput(t, accountID, 2, "O-NEW", "Alice", "10.00")
		in.ShippedAt = &shipped

		res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{in})
		require.NoError(t, err)
		require.NotNil(t, res.Items[0].Record.ShippedAt)
		assert.True(t, res.Items[0].Record.ShippedAt.Equal(shipped))
	})

	t.Run("update ignores snapshot timestamps", func(t *testing.T) {
		existing, err := order.New(accountID, "O-OLD", "Alice", decimal.RequireFromString("10.00"),
			time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), testActor)
		require.NoError(t, err)
		repo.seed(existing)

		resolver := NewOrderResolver(repo, testActor)
		in := orderInput(t, accountID, 2, "O-OLD", "Alice", "10.00")
		in.ShippedAt = &shipped

		res, err := resolver.Resolve(context.Background(), accountID, []OrderInput{in})
		require.NoError(t, err)
		assert.Nil(t, res.Items[0].Record.ShippedAt)
	})
}

func TestListingResolve_QuantityZeroAutoTransition(t *testing.T) {
	// An active listing whose snapshot row carries quantity 0 and no status
	// column: the inventory rule moves it to out_of_stock during the merge.
	repo := newFakeListingRepository()
	accountID := uuid.New()
	existing, err := listing.New(accountID, "ITEM-1", "Widget", decimal.RequireFromString("9.99"), 5, testActor)
	require.NoError(t, err)
	require.NoError(t, existing.TransitionTo(listing.StatusActive, "", testActor))
	repo.seed(existing)

	resolver := NewListingResolver(repo, testActor)
	res, err := resolver.Resolve(context.Background(), accountID, []ListingInput{
		listingInput(t, accountID, 2, "ITEM-1", "Widget", "9.99", 0),
	})

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.False(t, item.IsInsert)
	assert.True(t, item.StatusChanged)
	assert.Equal(t, listing.StatusOutOfStock, item.Record.Status)
	assert.Contains(t, item.ChangedFields, listing.FieldQuantity)

	entries := item.Record.PendingHistory()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].System)
	assert.Equal(t, "out_of_stock", entries[0].ToStatus)
}

func TestListingResolve_ZeroStockExplicitActive(t *testing.T) {
	// quantity 0 plus an explicit active status in the same row: the inventory
	// rule wins, the status column fails, and the listing stays out_of_stock.
	repo := newFakeListingRepository()
	accountID := uuid.New()
	existing, err := listing.New(accountID, "ITEM-1", "Widget", decimal.RequireFromString("9.99"), 5, testActor)
	require.NoError(t, err)
	require.NoError(t, existing.TransitionTo(listing.StatusActive, "", testActor))
	repo.seed(existing)

	resolver := NewListingResolver(repo, testActor)
	in := listingInput(t, accountID, 2, "ITEM-1", "Widget", "9.99", 0)
	in.TargetStatus = listingStatusPtr(listing.StatusActive)

	res, err := resolver.Resolve(context.Background(), accountID, []ListingInput{in})

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, csvimport.ErrCodeInvalidTransition, res.Failures[0].Code)
	item := res.Items[0]
	assert.Equal(t, listing.StatusOutOfStock, item.Record.Status)
	assert.Equal(t, 0, item.Record.QuantityAvailable)
}

func TestListingResolve_ExplicitStatusOnInsert(t *testing.T) {
	repo := newFakeListingRepository()
	resolver := NewListingResolver(repo, testActor)
	accountID := uuid.New()

	in := listingInput(t, accountID, 2, "ITEM-1", "Widget", "9.99", 3)
	in.TargetStatus = listingStatusPtr(listing.StatusActive)

	res, err := resolver.Resolve(context.Background(), accountID, []ListingInput{in})

	require.NoError(t, err)
	item := res.Items[0]
	assert.True(t, item.IsInsert)
	assert.True(t, item.StatusChanged)
	assert.Equal(t, listing.StatusActive, item.Record.Status)
}

func TestListingResolve_UnreachableStatusOnInsert(t *testing.T) {
	// draft cannot reach out_of_stock directly: the row fails partially but
	// the record still inserts in its initial status.
	repo := newFakeListingRepository()
	resolver := NewListingResolver(repo, testActor)
	accountID := uuid.New()

	in := listingInput(t, accountID, 2, "ITEM-1", "Widget", "9.99", 0)
	in.TargetStatus = listingStatusPtr(listing.StatusOutOfStock)

	res, err := resolver.Resolve(context.Background(), accountID, []ListingInput{in})

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, csvimport.ErrCodeInvalidTransition, res.Failures[0].Code)
	item := res.Items[0]
	assert.True(t, item.IsInsert)
	assert.Equal(t, listing.StatusDraft, item.Record.Status)
}

func TestListingResolve_TerminalStatusNeverLeaves(t *testing.T) {
	repo := newFakeListingRepository()
	accountID := uuid.New()
	existing, err := listing.New(accountID, "ITEM-1", "Widget", decimal.RequireFromString("9.99"), 1, testActor)
	require.NoError(t, err)
	require.NoError(t, existing.TransitionTo(listing.StatusActive, "", testActor))
	require.NoError(t, existing.TransitionTo(listing.StatusSold, "", testActor))
	repo.seed(existing)

	resolver := NewListingResolver(repo, testActor)
	in := listingInput(t, accountID, 2, "ITEM-1", "Widget", "9.99", 1)
	in.TargetStatus = listingStatusPtr(listing.StatusActive)

	res, err := resolver.Resolve(context.Background(), accountID, []ListingInput{in})

	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, listing.StatusSold, res.Items[0].Record.Status)
}
