package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks errors caused by invalid client input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the write collides with existing state.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized is the single error surfaced for bad credentials or tokens.
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldIssue names one invalid field and why it was rejected.
type FieldIssue struct {
	Field   string
	Message string
}

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Fields maps each invalid field to its message. Later issues for the same
// field are joined.
func (e *ValidationError) Fields() map[string]string {
	out := make(map[string]string, len(e.Issues))
	for _, issue := range e.Issues {
		if existing, ok := out[issue.Field]; ok {
			out[issue.Field] = existing + "; " + issue.Message
			continue
		}
		out[issue.Field] = issue.Message
	}
	return out
}

type issueList []FieldIssue

func (l *issueList) add(field, format string, args ...any) {
	*l = append(*l, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (l issueList) err() error {
	if len(l) == 0 {
		return nil
	}
	return &ValidationError{Issues: append([]FieldIssue(nil), l...)}
}

// MissingFieldError reports required fields that were left empty.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldError) Unwrap() error { return ErrValidation }

func newMissingFieldError(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &MissingFieldError{Fields: append([]string(nil), fields...)}
}

// UpstreamError wraps a failure in an external dependency that is logged but
// never surfaced to the client.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
