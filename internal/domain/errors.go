package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches DomainErrors by code so wrapped instances compare equal.
func (e *DomainError) Is(target error) bool {
	other, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeConfig               = "CONFIG_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeEmptyInput           = "EMPTY_INPUT"
	ErrCodeRetrievalUnavailable = "RETRIEVAL_UNAVAILABLE"
	ErrCodeParseFailure         = "PARSE_FAILURE"
	ErrCodeNotReady             = "NOT_READY"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Startup errors. These abort initialization and are never retried.
var (
	ErrMissingAPIKey  = NewDomainError(ErrCodeConfig, "embedding provider credential is not configured")
	ErrDocsDirMissing = NewDomainError(ErrCodeNotFound, "document source directory does not exist")
	ErrNoDocuments    = NewDomainError(ErrCodeEmptyInput, "no documents found to index")
	ErrNoChunks       = NewDomainError(ErrCodeEmptyInput, "no chunks produced from documents")
)

// Query-time errors.
var (
	ErrRetrievalUnavailable = NewDomainError(ErrCodeRetrievalUnavailable, "embedding provider unavailable")
	ErrNotReady             = NewDomainError(ErrCodeNotReady, "knowledge service is not initialized")
)

// Snapshot errors. A corrupt snapshot is treated as absent by the index,
// never surfaced to callers.
var (
	ErrSnapshotCorrupt = NewDomainError(ErrCodeParseFailure, "persisted snapshot could not be decoded")
)

// Validation errors.
var (
	ErrEmptyQuery          = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrInvalidDocumentType = NewDomainError(ErrCodeValidation, "invalid document type")
)
