package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers dispatch on these with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

var (
	ErrInvalidAmount          = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidCurrency        = fmt.Errorf("%w: invalid currency", ErrValidation)
	ErrInvalidTransactionType = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrEmptyID                = fmt.Errorf("%w: empty transaction id", ErrValidation)
	ErrInvalidPage            = fmt.Errorf("%w: invalid page", ErrValidation)
	ErrInvalidPageSize        = fmt.Errorf("%w: invalid page size", ErrValidation)
	ErrNilTransaction         = fmt.Errorf("%w: transaction is nil", ErrValidation)
	ErrMalformedRequest       = fmt.Errorf("%w: malformed request", ErrValidation)
	ErrDuplicateReference     = fmt.Errorf("%w: duplicated transaction reference", ErrConflict)
	ErrTransactionNotFound    = fmt.Errorf("%w: transaction not found", ErrNotFound)
	ErrInvariantViolation     = fmt.Errorf("%w: store invariant violated", ErrInternal)
)

// TransactionError is a domain error with a caller-facing message.
type TransactionError struct {
	kind    error
	message string
}

func (e *TransactionError) Error() string {
	return e.message
}

func (e *TransactionError) Unwrap() error {
	return e.kind
}

func newError(kind error, format string, args ...any) *TransactionError {
	return &TransactionError{kind: kind, message: fmt.Sprintf(format, args...)}
}

func InvalidAmount() error {
	return newError(ErrInvalidAmount, "Invalid transaction amount, must be over 0")
}

func InvalidCurrency(currency string) error {
	return newError(ErrInvalidCurrency, "Invalid currency: %s", currency)
}

func InvalidTransactionType(transactionType string) error {
	return newError(ErrInvalidTransactionType, "Invalid transaction type: %s", transactionType)
}

func EmptyID() error {
	return newError(ErrEmptyID, "Transaction ID cannot be empty.")
}

func InvalidPage(page int) error {
	return newError(ErrInvalidPage, "Page number should not be less than 0, got %d.", page)
}

func InvalidPageSize(size int) error {
	return newError(ErrInvalidPageSize, "Page size should be between 1 and 100, got %d.", size)
}

func NilTransaction() error {
	return newError(ErrNilTransaction, "Transaction request cannot be empty.")
}

func MalformedRequest(reason string) error {
	return newError(ErrMalformedRequest, "Malformed request: %s", reason)
}

func DuplicateReference(reference string) error {
	return newError(ErrDuplicateReference, "Duplicated transaction reference: %s", reference)
}

func NotFound(id string) error {
	return newError(ErrTransactionNotFound, "Not found transaction ID: %s", id)
}

func InvariantViolation(format string, args ...any) error {
	return newError(ErrInvariantViolation, format, args...)
}

// IsDomain reports whether err is a caller-facing error (validation, conflict or not found).
func IsDomain(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound)
}
