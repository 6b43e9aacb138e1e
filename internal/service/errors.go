package service

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("forbidden")
	ErrDelivery    = errors.New("delivery failed")
	ErrUnavailable = errors.New("unavailable")
)

// FieldError is a user-correctable problem with one input field. Cause, when
// set, is for logs only.
type FieldError struct {
	Field   string
	Message string
	Cause   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

func (e *FieldError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrValidation, e.Cause}
	}
	return []error{ErrValidation}
}

// ValidationError collects messages for several fields.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Empty() bool { return len(e.Fields) == 0 }

// OrNil lets callers write `return v.OrNil()` after collecting.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msgs := range e.Fields {
		parts = append(parts, f+": "+strings.Join(msgs, "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ThrottleError is a field error carrying how long the caller must wait.
type ThrottleError struct {
	Field      string
	Message    string
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string { return e.Field + ": " + e.Message }

func (e *ThrottleError) Unwrap() error { return ErrValidation }

// ConflictError refuses a delete while other records still reference the
// resource.
type ConflictError struct {
	Resource string
	Count    int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Cannot delete %s: it is assigned to %d role(s).", e.Resource, e.Count)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

const (
	msgRequired    = "The %s field is required."
	msgTooLong     = "The %s field must not be greater than %d characters."
	msgEmail       = "The %s field must be a valid email address."
	msgTaken       = "The %s has already been taken."
	msgInvalid     = "The selected %s is invalid."
	msgFormat      = "The %s field format is invalid."
	maxStringField = 255
)

func requireString(v *ValidationError, field, value string) {
	switch {
	case strings.TrimSpace(value) == "":
		v.Add(field, fmt.Sprintf(msgRequired, field))
	case len(value) > maxStringField:
		v.Add(field, fmt.Sprintf(msgTooLong, field, maxStringField))
	}
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, "@")
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
