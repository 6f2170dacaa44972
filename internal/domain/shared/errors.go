package shared

import "errors"

// ErrorKind classifies a domain error independently of its specific code.
// The HTTP layer and retry policies switch on the kind, never on the message.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindInvalidState        ErrorKind = "invalid_state"
	KindOverpayment         ErrorKind = "overpayment"
	KindNotFound            ErrorKind = "not_found"
	KindConflict            ErrorKind = "conflict"
	KindConcurrencyConflict ErrorKind = "concurrency_conflict"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"-"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches another DomainError with the same code, so sentinels work with errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error. The kind is derived from the code
// for the generic codes and defaults to validation otherwise.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Kind:    kindForCode(code),
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates an error for malformed or out-of-range input
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewInvalidStateError creates an error for an operation illegal in the entity's current state
func NewInvalidStateError(code, message string) *DomainError {
	return &DomainError{Kind: KindInvalidState, Code: code, Message: message}
}

// NewOverpaymentError creates a ledger guard error. It should be unreachable
// when the allocation engine caps amounts correctly.
func NewOverpaymentError(message string) *DomainError {
	return &DomainError{Kind: KindOverpayment, Code: CodeOverpayment, Message: message}
}

// NewNotFoundError creates an error for a missing referenced entity
func NewNotFoundError(resource string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: CodeNotFound, Message: resource + " not found"}
}

// NewConflictError creates an error for a uniqueness violation (duplicate business key)
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

// NewConcurrencyConflictError creates a retryable serialization error
func NewConcurrencyConflictError(message string) *DomainError {
	return &DomainError{Kind: KindConcurrencyConflict, Code: CodeConcurrencyConflict, Message: message}
}

// Generic error codes
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidState        = "INVALID_STATE"
	CodeOverpayment         = "OVERPAYMENT"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists       = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput        = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
)

func kindForCode(code string) ErrorKind {
	switch code {
	case CodeInvalidState:
		return KindInvalidState
	case CodeOverpayment:
		return KindOverpayment
	case CodeNotFound:
		return KindNotFound
	case CodeAlreadyExists:
		return KindConflict
	case CodeConcurrencyConflict:
		return KindConcurrencyConflict
	default:
		return KindValidation
	}
}

// AsDomainError unwraps err into a DomainError when the chain contains one
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsKind reports whether err carries a DomainError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	de, ok := AsDomainError(err)
	return ok && de.Kind == kind
}

// IsConcurrencyConflict reports whether the operation that produced err may be retried
func IsConcurrencyConflict(err error) bool {
	return IsKind(err, KindConcurrencyConflict)
}
