package csvimport

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRow(line int, data map[string]string) *Row {
	return &Row{LineNumber: line, Data: data}
}

func TestValidateRow_Required(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("external_id").Required().Build(),
		Field("notes").Build(),
	}, 10)

	ok := v.ValidateRow(testRow(2, map[string]string{"external_id": "", "notes": ""}))

	assert.False(t, ok)
	errs := v.Errors().Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeRequiredField, errs[0].Code)
	assert.Equal(t, "external_id", errs[0].Column)
	assert.Equal(t, 2, errs[0].Row)
}

func TestValidateRow_Types(t *testing.T) {
	tests := []struct {
		name  string
		rule  FieldRule
		value string
		ok    bool
	}{
		{"valid int", Field("n").Int().Build(), "42", true},
		{"invalid int", Field("n").Int().Build(), "forty-two", false},
		{"float is not int", Field("n").Int().Build(), "4.2", false},
		{"valid decimal", Field("d").Decimal().Build(), "19.99", true},
		{"invalid decimal", Field("d").Decimal().Build(), "19,99", false},
		{"valid date", Field("dt").Date().Build(), "2026-01-15", true},
		{"invalid date", Field("dt").Date().Build(), "15/01/2026", false},
		{"custom date format", Field("dt").Date().DateFormat("02.01.2006").Build(), "15.01.2026", true},
		{"valid bool", Field("b").Bool().Build(), "yes", true},
		{"invalid bool", Field("b").Bool().Build(), "maybe", false},
		{"empty optional skips type check", Field("n").Int().Build(), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFieldValidator([]FieldRule{tt.rule}, 10)
			ok := v.ValidateRow(testRow(2, map[string]string{tt.rule.Column: tt.value}))
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				require.Len(t, v.Errors().Errors(), 1)
				assert.Equal(t, ErrCodeInvalidType, v.Errors().Errors()[0].Code)
			}
		})
	}
}

func TestValidateRow_MaxLengthAndMinValue(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("title").MaxLength(5).Build(),
		Field("price").Decimal().MinValue(decimal.Zero).Build(),
	}, 10)

	ok := v.ValidateRow(testRow(3, map[string]string{
		"title": "too long for the cap",
		"price": "-0.01",
	}))

	assert.False(t, ok)
	codes := make([]string, 0, 2)
	for _, e := range v.Errors().Errors() {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{ErrCodeInvalidLength, ErrCodeInvalidRange}, codes)
}

func TestValidateRow_Custom(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("status").Custom(func(value string) error {
			if value != "pending" {
				return errors.New("unknown status")
			}
			return nil
		}).Build(),
	}, 10)

	assert.True(t, v.ValidateRow(testRow(2, map[string]string{"status": "pending"})))
	assert.False(t, v.ValidateRow(testRow(3, map[string]string{"status": "limbo"})))
	require.Len(t, v.Errors().Errors(), 1)
	assert.Equal(t, ErrCodeValidation, v.Errors().Errors()[0].Code)
}

func TestValidateRow_MultipleErrorsOneRow(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("external_id").Required().Build(),
		Field("price").Decimal().Build(),
	}, 10)

	ok := v.ValidateRow(testRow(2, map[string]string{"external_id": "", "price": "abc"}))

	assert.False(t, ok)
	assert.Equal(t, 2, v.Errors().Count())
}

func TestErrorCollection_Truncation(t *testing.T) {
	ec := NewErrorCollection(3)
	for i := 0; i < 5; i++ {
		ec.Add(NewRowError(i+2, "col", ErrCodeValidation, "bad"))
	}

	assert.Equal(t, 3, ec.Count())
	assert.Equal(t, 5, ec.TotalCount())
	assert.True(t, ec.IsTruncated())
	assert.True(t, ec.HasErrors())
}

func TestFieldValidator_Reset(t *testing.T) {
	v := NewFieldValidator([]FieldRule{Field("n").Int().Build()}, 10)
	v.ValidateRow(testRow(2, map[string]string{"n": "x"}))
	require.True(t, v.Errors().HasErrors())

	v.Reset()
	assert.False(t, v.Errors().HasErrors())
}

func TestValidationResult(t *testing.T) {
	rows := []*Row{testRow(2, nil), testRow(3, nil)}
	vr := &ValidationResult{TotalRows: 3, ValidRows: rows}
	assert.Equal(t, 1, vr.ErrorRows())
	assert.False(t, vr.IsValid())

	vr = &ValidationResult{TotalRows: 2, ValidRows: rows}
	assert.True(t, vr.IsValid())
}
