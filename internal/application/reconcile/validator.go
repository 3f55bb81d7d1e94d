package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/domain/shared"
	"github.com/sellerhub/backend/internal/infrastructure/csvimport"
)

// Validator checks parsed rows against the per-entity field rules and flags
// rows whose external id already exists in the store. Existence is a warning
// only: the row proceeds and becomes an update.
type Validator struct {
	orders    order.Repository
	listings  listing.Repository
	maxErrors int
}

// NewValidator creates a new Validator
func NewValidator(orders order.Repository, listings listing.Repository, maxErrors int) *Validator {
	return &Validator{
		orders:    orders,
		listings:  listings,
		maxErrors: maxErrors,
	}
}

// Validate runs field validation over all rows and returns the rows that
// passed. Mutates nothing; the only store access is a read-only existence
// lookup.
func (v *Validator) Validate(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind, rows []*csvimport.Row) (*csvimport.ValidationResult, error) {
	var rules []csvimport.FieldRule
	switch kind {
	case shared.KindOrder:
		rules = orderRules()
	case shared.KindListing:
		rules = listingRules()
	default:
		return nil, shared.NewDomainError("INVALID_ENTITY_KIND", fmt.Sprintf("Unknown entity kind %q", kind))
	}

	fv := csvimport.NewFieldValidator(rules, v.maxErrors)
	result := &csvimport.ValidationResult{TotalRows: len(rows)}

	for _, row := range rows {
		if row.IsEmpty() {
			result.TotalRows--
			continue
		}
		if fv.ValidateRow(row) {
			result.ValidRows = append(result.ValidRows, row)
		}
	}

	warnings, err := v.existenceWarnings(ctx, accountID, kind, result.ValidRows)
	if err != nil {
		return nil, err
	}

	result.Errors = fv.Errors().Errors()
	result.Warnings = warnings
	result.TotalErrors = fv.Errors().TotalCount()
	result.IsTruncated = fv.Errors().IsTruncated()
	return result, nil
}

// existenceWarnings flags valid rows whose external id already has a record
func (v *Validator) existenceWarnings(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind, rows []*csvimport.Row) ([]csvimport.RowWarning, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := row.Get(ColExternalID); id != "" {
			ids = append(ids, id)
		}
	}

	existing := make(map[string]bool, len(ids))
	switch kind {
	case shared.KindOrder:
		recs, err := v.orders.FindByExternalIDs(ctx, accountID, ids)
		if err != nil {
			return nil, err
		}
		for id := range recs {
			existing[id] = true
		}
	case shared.KindListing:
		recs, err := v.listings.FindByExternalIDs(ctx, accountID, ids)
		if err != nil {
			return nil, err
		}
		for id := range recs {
			existing[id] = true
		}
	}

	var warnings []csvimport.RowWarning
	for _, row := range rows {
		id := row.Get(ColExternalID)
		if existing[id] {
			warnings = append(warnings, csvimport.NewRowWarning(row.LineNumber, ColExternalID,
				csvimport.ErrCodeExistsInStore,
				fmt.Sprintf("record with external id '%s' already exists and will be updated", id)))
		}
	}
	return warnings, nil
}
