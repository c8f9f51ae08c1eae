package eavx

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error.
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeDecode        ErrorType = "decode"
	ErrorTypeNotFound      ErrorType = "not_found"
)

// Error codes.
const (
	ErrCodeColumnCollision   = "COLUMN_NAME_COLLISION"
	ErrCodeUnknownType       = "UNKNOWN_TYPE"
	ErrCodeDuplicateColumn   = "DUPLICATE_COLUMN"
	ErrCodeColumnNotFound    = "COLUMN_NOT_FOUND"
	ErrCodeNotSearchable     = "COLUMN_NOT_SEARCHABLE"
	ErrCodeBadOperator       = "UNSUPPORTED_OPERATOR"
	ErrCodeNonAtomicDelete   = "NON_ATOMIC_DELETE"
	ErrCodeNonAtomicSave     = "NON_ATOMIC_SAVE"
	ErrCodeEntityKeyMissing  = "ENTITY_KEY_MISSING"
	ErrCodeTableNotManaged   = "TABLE_NOT_MANAGED"
	ErrCodeMarshalFailed     = "MARSHAL_FAILED"
	ErrCodeStorageFailure    = "STORAGE_FAILURE"
	ErrCodeCacheDecodeFailed = "CACHE_DECODE_FAILED"
	ErrCodeValidationFailed  = "VALIDATION_FAILED"
)

// Error is the unified error of the virtual-column engine.
type Error struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Table   string         `json:"table,omitempty"`
	Column  string         `json:"column,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	switch {
	case e.Table != "" && e.Column != "":
		return fmt.Sprintf("[%s:%s] %s.%s: %s", e.Type, e.Code, e.Table, e.Column, e.Message)
	case e.Table != "":
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Table, e.Message)
	default:
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithTable attaches table context.
func (e *Error) WithTable(table string) *Error {
	e.Table = table
	return e
}

// WithColumn attaches column context.
func (e *Error) WithColumn(column string) *Error {
	e.Column = column
	return e
}

// WithDetail adds a single detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewError creates a new engine error.
func NewError(errorType ErrorType, code, message string) *Error {
	return &Error{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewConfigurationError creates a fatal configuration error.
func NewConfigurationError(code, message string) *Error {
	return NewError(ErrorTypeConfiguration, code, message)
}

// NewStorageError wraps a failure of the underlying storage layer. The cause
// propagates unmodified through Unwrap.
func NewStorageError(message string, cause error) *Error {
	return NewError(ErrorTypeStorage, ErrCodeStorageFailure, message).WithCause(cause)
}

// NewColumnCollisionError reports a virtual column name that collides with a
// native physical column.
func NewColumnCollisionError(table, column string) *Error {
	return NewConfigurationError(ErrCodeColumnCollision,
		"virtual column name collides with a native column").
		WithTable(table).WithColumn(column)
}

// NewUnknownTypeError reports an unmappable column type.
func NewUnknownTypeError(rawType string) *Error {
	return NewConfigurationError(ErrCodeUnknownType,
		fmt.Sprintf("unknown column type %q", rawType))
}

// NewDuplicateColumnError reports an existing (name, table, bundle)
// definition without overwrite permission.
func NewDuplicateColumnError(table, column string) *Error {
	return NewConfigurationError(ErrCodeDuplicateColumn,
		"virtual column already defined and overwrite not requested").
		WithTable(table).WithColumn(column)
}

// NewNotSearchableError reports a filter or sort on a column not marked
// searchable.
func NewNotSearchableError(table, column string) *Error {
	return NewConfigurationError(ErrCodeNotSearchable,
		"virtual column is not searchable").
		WithTable(table).WithColumn(column)
}

// NewNonAtomicDeleteError reports a delete of a record with virtual values
// outside a transaction.
func NewNonAtomicDeleteError(table string) *Error {
	return NewConfigurationError(ErrCodeNonAtomicDelete,
		"deleting a record with virtual columns requires a transaction").
		WithTable(table)
}

// NewNonAtomicSaveError reports a virtual-value save outside a transaction.
func NewNonAtomicSaveError(table string) *Error {
	return NewConfigurationError(ErrCodeNonAtomicSave,
		"persisting virtual columns requires the save transaction").
		WithTable(table)
}

// NewEntityKeyMissingError reports a record without its primary key fields.
func NewEntityKeyMissingError(table, field string) *Error {
	return NewConfigurationError(ErrCodeEntityKeyMissing,
		fmt.Sprintf("record is missing primary key field %q", field)).
		WithTable(table)
}

// NewTableNotManagedError reports an operation against a table the engine
// was not configured for.
func NewTableNotManagedError(table string) *Error {
	return NewConfigurationError(ErrCodeTableNotManaged,
		"table is not managed by the virtual-column engine").
		WithTable(table)
}

// ============================================================================
// Error checking utilities
// ============================================================================

// IsConfigurationError checks if an error is a fatal configuration error.
func IsConfigurationError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrorTypeConfiguration
}

// IsStorageError checks if an error originated in the storage layer.
func IsStorageError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrorTypeStorage
}

// IsNotSearchableError checks for a non-searchable column rejection.
func IsNotSearchableError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeNotSearchable
}

// IsNonAtomicError checks for a rejected non-transactional write or delete.
func IsNonAtomicError(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == ErrCodeNonAtomicDelete || e.Code == ErrCodeNonAtomicSave
}

// ============================================================================
// ValidationErrors
// ============================================================================

// FieldError is one non-fatal validation failure, returned as data.
type FieldError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ValidationErrors collects entity-level validation failures. They are
// returned to the caller rather than raised.
type ValidationErrors struct {
	Errors []*FieldError `json:"errors"`
}

// NewValidationErrors creates an empty collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]*FieldError, 0)}
}

// Add appends a failure to the collection.
func (ve *ValidationErrors) Add(field, code, message string) {
	ve.Errors = append(ve.Errors, &FieldError{Code: code, Message: message, Field: field})
}

// HasErrors returns true if there are any errors.
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Error implements the error interface for ValidationErrors.
func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	if len(ve.Errors) == 1 {
		return ve.Errors[0].Error()
	}
	return fmt.Sprintf("multiple validation errors: %d errors found", len(ve.Errors))
}

// ToError returns the collection as an error when non-empty, nil otherwise.
func (ve *ValidationErrors) ToError() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}
