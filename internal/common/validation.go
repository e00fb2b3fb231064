package common

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator collects rule failures for one input.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required rejects nil, blank strings and empty byte slices.
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
		}
	case []byte:
		if len(v) == 0 {
			return &ValidationError{Field: fieldName, Value: "<empty>", Message: "is required"}
		}
	}
	return nil
}

// MaxSize rejects integer sizes above max bytes.
func MaxSize(max int64) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		size, ok := value.(int64)
		if !ok {
			return nil
		}
		if size > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   size,
				Message: fmt.Sprintf("exceeds maximum of %d bytes", max),
			}
		}
		return nil
	}
}

// OneOf rejects strings outside the allowed set.
func OneOf(allowed map[string]struct{}) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		s, _ := value.(string)
		if _, ok := allowed[s]; ok {
			return nil
		}
		opts := make([]string, 0, len(allowed))
		for k := range allowed {
			opts = append(opts, k)
		}
		sort.Strings(opts)
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be one of " + strings.Join(opts, ", "),
		}
	}
}

// FileValidator checks uploaded marksheet files before recognition.
type FileValidator struct {
	maxSize int64
	allowed map[string]struct{}
}

// NewFileValidator builds a validator from upload config; zero values fall back to defaults.
func NewFileValidator(cfg UploadConfig) *FileValidator {
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = constants.DefaultMaxFileSize
	}
	allowed := constants.AllowedExtensions
	if len(cfg.AllowedExtensions) > 0 {
		allowed = make(map[string]struct{}, len(cfg.AllowedExtensions))
		for _, ext := range cfg.AllowedExtensions {
			allowed[constants.NormalizeExt(ext)] = struct{}{}
		}
	}
	return &FileValidator{maxSize: maxSize, allowed: allowed}
}

// Validate returns a FileValidation ExtractionError describing every failed check.
func (f *FileValidator) Validate(filename string, data []byte) error {
	ext := constants.NormalizeExt(filepath.Ext(filename))

	v := NewValidator().
		Field("filename", filename, Required).
		Field("content", data, Required).
		Field("size", int64(len(data)), MaxSize(f.maxSize)).
		Field("extension", ext, OneOf(f.allowed))
	if v.HasErrors() {
		return NewExtractionError(KindFileValidation, v.ErrorMessage(), ErrInvalidInput)
	}

	want := constants.MediaTypeForExt(ext)
	got := SniffMediaType(data)
	if want != "" && got != want {
		return NewExtractionError(KindFileValidation,
			fmt.Sprintf("content type %q does not match extension %q", got, ext), ErrInvalidInput)
	}

	if want == constants.MediaTypePDF {
		pages, err := api.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return NewExtractionError(KindFileValidation, "unreadable pdf", err)
		}
		if pages == 0 {
			return NewExtractionError(KindFileValidation, "pdf has no pages", ErrInvalidInput)
		}
	}
	return nil
}

// SniffMediaType reports the media type of data without parameters.
func SniffMediaType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
