package reconcile

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sellerhub/backend/internal/infrastructure/csvimport"
)

// CSV column names. Orders and listings share the external_id column; the
// rest are entity-specific.
const (
	ColExternalID = "external_id"

	ColBuyerName   = "buyer_name"
	ColBuyerEmail  = "buyer_email"
	ColTotalAmount = "total_amount"
	ColCurrency    = "currency"
	ColStatus      = "status"
	ColCarrier     = "carrier"
	ColTracking    = "tracking_number"
	ColOrderedAt   = "ordered_at"
	ColShippedAt   = "shipped_at"
	ColDeliveredAt = "delivered_at"
	ColNotes       = "notes"

	ColTitle      = "title"
	ColPrice      = "price"
	ColQuantity   = "quantity_available"
	ColSold       = "quantity_sold"
	ColWatchCount = "watch_count"
	ColViewCount  = "view_count"
)

// dateFormats are the accepted layouts for date columns, tried in order.
// Validation and transformation share parseDate so a value that validates
// always transforms.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// parseDate parses a date value against the accepted layouts
func parseDate(value string) (time.Time, error) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", value)
}

func dateRule(value string) error {
	_, err := parseDate(value)
	return err
}

// OrderRequiredColumns are the headers an order import file must carry
func OrderRequiredColumns() []string {
	return []string{ColExternalID, ColBuyerName, ColTotalAmount, ColOrderedAt}
}

// ListingRequiredColumns are the headers a listing import file must carry
func ListingRequiredColumns() []string {
	return []string{ColExternalID, ColTitle, ColPrice, ColQuantity}
}

// orderRules returns the field rules for order rows
func orderRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field(ColExternalID).Required().MaxLength(64).Build(),
		csvimport.Field(ColBuyerName).Required().MaxLength(200).Build(),
		csvimport.Field(ColBuyerEmail).MaxLength(254).Build(),
		csvimport.Field(ColTotalAmount).Required().Decimal().MinValue(decimal.Zero).Build(),
		csvimport.Field(ColCurrency).MaxLength(3).Build(),
		csvimport.Field(ColStatus).MaxLength(32).Build(),
		csvimport.Field(ColCarrier).MaxLength(100).Build(),
		csvimport.Field(ColTracking).MaxLength(100).Build(),
		csvimport.Field(ColOrderedAt).Required().Custom(dateRule).Build(),
		csvimport.Field(ColShippedAt).Custom(dateRule).Build(),
		csvimport.Field(ColDeliveredAt).Custom(dateRule).Build(),
		csvimport.Field(ColNotes).MaxLength(1000).Build(),
	}
}

// listingRules returns the field rules for listing rows
func listingRules() []csvimport.FieldRule {
	return []csvimport.FieldRule{
		csvimport.Field(ColExternalID).Required().MaxLength(64).Build(),
		csvimport.Field(ColTitle).Required().MaxLength(300).Build(),
		csvimport.Field(ColPrice).Required().Decimal().MinValue(decimal.Zero).Build(),
		csvimport.Field(ColQuantity).Required().Int().MinValue(decimal.Zero).Build(),
		csvimport.Field(ColSold).Int().MinValue(decimal.Zero).Build(),
		csvimport.Field(ColWatchCount).Int().MinValue(decimal.Zero).Build(),
		csvimport.Field(ColViewCount).Int().MinValue(decimal.Zero).Build(),
		csvimport.Field(ColCurrency).MaxLength(3).Build(),
		csvimport.Field(ColStatus).MaxLength(32).Build(),
	}
}
