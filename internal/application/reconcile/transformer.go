package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/infrastructure/csvimport"
)

// DefaultCurrency is filled in when a row carries no currency column
const DefaultCurrency = "USD"

// OrderInput is one transformed order row. Record is unsaved and in the
// initial status; TargetStatus carries the row's explicit status column, if
// any, for the resolver to apply through the state machine.
type OrderInput struct {
	LineNumber   int
	Record       *order.Record
	TargetStatus *order.Status
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
}

// ListingInput is one transformed listing row
type ListingInput struct {
	LineNumber   int
	Record       *listing.Record
	TargetStatus *listing.Status
}

// Transformer maps validated rows into unsaved domain records. It fails
// closed: a row that cannot be coerced after passing validation is excluded
// as a transform error rather than persisted half-built.
type Transformer struct {
	actor string
}

// NewTransformer creates a transformer attributing created records to actor.
// An empty actor records transitions as system-generated.
func NewTransformer(actor string) *Transformer {
	return &Transformer{actor: actor}
}

// TransformOrders maps validated order rows into order inputs
func (t *Transformer) TransformOrders(rows []*csvimport.Row, accountID uuid.UUID) ([]OrderInput, []csvimport.RowError) {
	inputs := make([]OrderInput, 0, len(rows))
	var errs []csvimport.RowError

	for _, row := range rows {
		input, err := t.transformOrderRow(row, accountID)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		inputs = append(inputs, input)
	}
	return inputs, errs
}

func (t *Transformer) transformOrderRow(row *csvimport.Row, accountID uuid.UUID) (OrderInput, *csvimport.RowError) {
	total, err := decimal.NewFromString(row.Get(ColTotalAmount))
	if err != nil {
		return OrderInput{}, transformError(row, ColTotalAmount, err)
	}
	orderedAt, err := parseDate(row.Get(ColOrderedAt))
	if err != nil {
		return OrderInput{}, transformError(row, ColOrderedAt, err)
	}

	rec, err := order.New(accountID, row.Get(ColExternalID), row.Get(ColBuyerName), total, orderedAt, t.actor)
	if err != nil {
		return OrderInput{}, transformError(row, ColExternalID, err)
	}
	rec.BuyerEmail = row.Get(ColBuyerEmail)
	rec.Currency = strings.ToUpper(row.GetOrDefault(ColCurrency, DefaultCurrency))
	rec.Carrier = row.Get(ColCarrier)
	rec.TrackingNumber = row.Get(ColTracking)
	rec.Notes = row.Get(ColNotes)

	input := OrderInput{LineNumber: row.LineNumber, Record: rec}

	if raw := row.Get(ColStatus); raw != "" {
		status := order.Status(strings.ToLower(raw))
		if !status.IsValid() {
			return OrderInput{}, transformError(row, ColStatus,
				fmt.Errorf("unknown order status %q", raw))
		}
		input.TargetStatus = &status
	}
	if raw := row.Get(ColShippedAt); raw != "" {
		if ts, err := parseDate(raw); err == nil {
			input.ShippedAt = &ts
		}
	}
	if raw := row.Get(ColDeliveredAt); raw != "" {
		if ts, err := parseDate(raw); err == nil {
			input.DeliveredAt = &ts
		}
	}
	return input, nil
}

// TransformListings maps validated listing rows into listing inputs
func (t *Transformer) TransformListings(rows []*csvimport.Row, accountID uuid.UUID) ([]ListingInput, []csvimport.RowError) {
	inputs := make([]ListingInput, 0, len(rows))
	var errs []csvimport.RowError

	for _, row := range rows {
		input, err := t.transformListingRow(row, accountID)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		inputs = append(inputs, input)
	}
	return inputs, errs
}

func (t *Transformer) transformListingRow(row *csvimport.Row, accountID uuid.UUID) (ListingInput, *csvimport.RowError) {
	price, err := decimal.NewFromString(row.Get(ColPrice))
	if err != nil {
		return ListingInput{}, transformError(row, ColPrice, err)
	}
	quantity, err := strconv.Atoi(row.Get(ColQuantity))
	if err != nil {
		return ListingInput{}, transformError(row, ColQuantity, err)
	}

	rec, err := listing.New(accountID, row.Get(ColExternalID), row.Get(ColTitle), price, quantity, t.actor)
	if err != nil {
		return ListingInput{}, transformError(row, ColExternalID, err)
	}
	rec.Currency = strings.ToUpper(row.GetOrDefault(ColCurrency, DefaultCurrency))

	if raw := row.Get(ColSold); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			rec.QuantitySold = n
		}
	}
	if raw := row.Get(ColWatchCount); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			rec.WatchCount = n
		}
	}
	if raw := row.Get(ColViewCount); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			rec.ViewCount = n
		}
	}

	input := ListingInput{LineNumber: row.LineNumber, Record: rec}

	if raw := row.Get(ColStatus); raw != "" {
		status := listing.Status(strings.ToLower(raw))
		if !status.IsValid() {
			return ListingInput{}, transformError(row, ColStatus,
				fmt.Errorf("unknown listing status %q", raw))
		}
		input.TargetStatus = &status
	}
	return input, nil
}

func transformError(row *csvimport.Row, column string, err error) *csvimport.RowError {
	rowErr := csvimport.NewRowError(row.LineNumber, column, csvimport.ErrCodeTransform, err.Error())
	return &rowErr
}
