package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Import error codes
const (
	ErrCodeCSVParsing        = "ERR_IMPORT_CSV_PARSING"
	ErrCodeRequiredField     = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeInvalidType       = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeInvalidLength     = "ERR_IMPORT_INVALID_LENGTH"
	ErrCodeInvalidRange      = "ERR_IMPORT_INVALID_RANGE"
	ErrCodeValidation        = "ERR_IMPORT_VALIDATION"
	ErrCodeTransform         = "ERR_IMPORT_TRANSFORM"
	ErrCodeInvalidTransition = "ERR_IMPORT_INVALID_TRANSITION"
	ErrCodeBatchCommit       = "ERR_IMPORT_BATCH_COMMIT"
	ErrCodeExistsInStore     = "WARN_IMPORT_EXISTS_IN_STORE"
)

// Common import errors
var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")
)

// RowError represents an error in a specific row. Row numbers are 1-based
// relative to the input, counting the header as row 1.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, code, message string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	}
}

// NewRowErrorWithValue creates a new RowError carrying the offending value
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	return RowError{
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
		Value:   value,
	}
}

// RowWarning is a non-blocking finding on a row; the row still proceeds
type RowWarning struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewRowWarning creates a new RowWarning
func NewRowWarning(row int, column, code, message string) RowWarning {
	return RowWarning{Row: row, Column: column, Code: code, Message: message}
}

// ErrorCollection accumulates row errors up to a cap, counting overflow
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, maxErrors),
		maxErrors: maxErrors,
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddRequiredError adds a required field error
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.Add(NewRowError(row, column, ErrCodeRequiredField, fmt.Sprintf("field '%s' is required", column)))
}

// AddTypeError adds a type validation error
func (ec *ErrorCollection) AddTypeError(row int, column, expectedType, value string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeInvalidType,
		fmt.Sprintf("expected %s", expectedType), value))
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// Count returns the number of collected errors (up to the cap)
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were dropped due to the cap
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) found", ec.totalCount))
	if ec.IsTruncated() {
		sb.WriteString(fmt.Sprintf(" (showing first %d)", ec.maxErrors))
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// ValidationResult is the outcome of validating a set of rows. Valid rows
// proceed to transformation; rows with at least one error are excluded.
// Warnings never exclude a row.
type ValidationResult struct {
	TotalRows   int          `json:"total_rows"`
	ValidRows   []*Row       `json:"-"`
	Errors      []RowError   `json:"errors,omitempty"`
	Warnings    []RowWarning `json:"warnings,omitempty"`
	IsTruncated bool         `json:"is_truncated,omitempty"`
	TotalErrors int          `json:"total_errors,omitempty"`
}

// ErrorRows returns the number of rows excluded by validation
func (vr *ValidationResult) ErrorRows() int {
	return vr.TotalRows - len(vr.ValidRows)
}

// IsValid returns true if no row was excluded
func (vr *ValidationResult) IsValid() bool {
	return len(vr.ValidRows) == vr.TotalRows
}
