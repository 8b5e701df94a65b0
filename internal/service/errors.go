package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrNotFound      = errors.New("record not found")
	ErrForbidden     = errors.New("operation not permitted for caller")
	ErrInvalidStatus = errors.New("status must be 0 or 1")
	ErrReaderNil     = errors.New("reader is nil")
)

// ValidationError lists field-level problems keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
