package common

import "errors"

// Code is the error taxonomy from spec.md §7. Every job-fatal or
// module-fatal error surfaced out of the orchestrator carries one of
// these so callers can branch on cause rather than string-match.
type Code string

const (
	CodeNotFound             Code = "NotFound"
	CodeIllegalState         Code = "IllegalState"
	CodeCrawlFatal           Code = "CrawlFatal"
	CodeCrawlPartial         Code = "CrawlPartial"
	CodeLLMTransient         Code = "LLMTransient"
	CodeLLMPermanent         Code = "LLMPermanent"
	CodeParseFailed          Code = "ParseFailed"
	CodeInsufficientCoverage Code = "InsufficientCoverage"
	CodeDeadline             Code = "Deadline"
	CodeCancelled            Code = "Cancelled"
	CodePersistenceTransient Code = "PersistenceTransient"
	CodeConfigMissing        Code = "ConfigMissing"
)

// CodedError pairs a taxonomy code with the underlying cause so it
// survives %w wrapping and errors.As/Is checks.
type CodedError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *CodedError) Unwrap() error { return e.Cause }

// NewError builds a CodedError with no underlying cause.
func NewError(code Code, message string) *CodedError {
	return &CodedError{Code: code, Message: message}
}

// WrapError builds a CodedError around an existing error.
func WrapError(code Code, message string, cause error) *CodedError {
	return &CodedError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the taxonomy code from an error, returning "" if the
// error (or any error it wraps) isn't a *CodedError.
func CodeOf(err error) Code {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
