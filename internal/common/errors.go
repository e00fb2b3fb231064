package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// NewAppError builds an AppError.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorKind is the stable classification carried by every pipeline failure.
type ErrorKind string

const (
	KindNoTextExtracted     ErrorKind = "NoTextExtracted"
	KindRecognition         ErrorKind = "RecognitionError"
	KindStructuring         ErrorKind = "StructuringError"
	KindResponseFormat      ErrorKind = "ResponseFormatError"
	KindInvalidJSON         ErrorKind = "InvalidJSON"
	KindUnsupportedProvider ErrorKind = "UnsupportedProvider"
	KindProvider            ErrorKind = "ProviderError"
	KindFileValidation      ErrorKind = "FileValidation"
)

// ExtractionError is returned by the recognition, structuring and orchestration layers.
// Fragment is set for InvalidJSON and holds the text that failed to parse.
type ExtractionError struct {
	Kind     ErrorKind
	Detail   string
	Fragment string
	Cause    error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so callers can compare against the sentinel values below.
func (e *ExtractionError) Is(target error) bool {
	var t *ExtractionError
	if !errors.As(target, &t) {
		return false
	}
	return t.Detail == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNoTextExtracted     = &ExtractionError{Kind: KindNoTextExtracted}
	ErrRecognition         = &ExtractionError{Kind: KindRecognition}
	ErrStructuring         = &ExtractionError{Kind: KindStructuring}
	ErrResponseFormat      = &ExtractionError{Kind: KindResponseFormat}
	ErrInvalidJSON         = &ExtractionError{Kind: KindInvalidJSON}
	ErrUnsupportedProvider = &ExtractionError{Kind: KindUnsupportedProvider}
	ErrProvider            = &ExtractionError{Kind: KindProvider}
	ErrFileValidation      = &ExtractionError{Kind: KindFileValidation}
)

// NewExtractionError builds an ExtractionError of the given kind.
func NewExtractionError(kind ErrorKind, detail string, cause error) *ExtractionError {
	return &ExtractionError{Kind: kind, Detail: detail, Cause: cause}
}

// KindOf returns the outermost ExtractionError kind in the chain, or "".
func KindOf(err error) ErrorKind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// DetailOf returns a human-readable detail for err, preferring the ExtractionError detail.
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var ee *ExtractionError
	if errors.As(err, &ee) && ee.Detail != "" {
		if ee.Cause != nil {
			return ee.Detail + ": " + ee.Cause.Error()
		}
		return ee.Detail
	}
	return err.Error()
}
