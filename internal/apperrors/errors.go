// =============================================================================
// RFFA Reconciler - Application Errors
// =============================================================================
//
// Structured errors shared by the reconciliation engine, the batch exporter
// and the CLI. Every failure the operator has to act on carries a Code so
// the presentation layer can pick the right message without string matching.
//
// ERROR CLASSES:
//   - VALIDATION         : pre-flight refusal, nothing was touched
//   - FILE_LOCKED        : another program holds the file open
//   - PERMISSION_DENIED  : the OS refused access
//   - SOURCE_MISSING     : an input workbook does not exist
//   - SOURCE_EMPTY       : an input workbook has no usable rows
//   - SHEET_NOT_FOUND    : a named worksheet is absent
//   - IO                 : any other read/write failure
//   - INTERNAL           : everything else
//
// =============================================================================

package apperrors

import (
	"errors"
	"fmt"
)

// Code identifies the class of an AppError.
type Code string

const (
	CodeValidation       Code = "VALIDATION"
	CodeFileLocked       Code = "FILE_LOCKED"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeSourceMissing    Code = "SOURCE_MISSING"
	CodeSourceEmpty      Code = "SOURCE_EMPTY"
	CodeSheetNotFound    Code = "SHEET_NOT_FOUND"
	CodeIO               Code = "IO"
	CodeInternal         Code = "INTERNAL"
)

// AppError is a coded application error.
type AppError struct {
	Code    Code
	Message string
	Details map[string]string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value pair of context and returns the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError without a cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an AppError around an existing error.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Validation is shorthand for a pre-flight refusal.
func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// UserMessage renders an operator-facing message with the remediation that
// fits the error class.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	appErr, ok := As(err)
	if !ok {
		return fmt.Sprintf("An error occurred: %v", err)
	}

	switch appErr.Code {
	case CodeValidation:
		return appErr.Message
	case CodeFileLocked:
		return fmt.Sprintf("%s\nThe file is open in another program. Close it (for example Excel) and try again.", appErr.Message)
	case CodePermissionDenied:
		return fmt.Sprintf("%s\nAccess was denied. Run with sufficient permissions or choose a different location.", appErr.Message)
	case CodeSourceMissing, CodeSourceEmpty, CodeSheetNotFound:
		return appErr.Message
	case CodeIO:
		return fmt.Sprintf("%s\nTry saving to a different location. Details: %v", appErr.Message, appErr.Err)
	default:
		return fmt.Sprintf("An error occurred: %v", appErr)
	}
}
