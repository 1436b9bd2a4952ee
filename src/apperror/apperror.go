package apperror

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ValidationError reports malformed or out-of-range input. No state changed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
	}
	return "validation failed: " + e.Reason
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing room/contract/invoice/reading.
type NotFoundError struct {
	Kind string
	Id   string
}

func (e *NotFoundError) Error() string {
	if e.Id != "" {
		return fmt.Sprintf("%s %s not found", e.Kind, e.Id)
	}
	return e.Kind + " not found"
}

func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, Id: id}
}

// ConflictError reports a duplicate record or a lost uniqueness race.
// ConflictId references the record already holding the slot, when known.
type ConflictError struct {
	Reason     string
	ConflictId string
}

func (e *ConflictError) Error() string {
	if e.ConflictId != "" {
		return fmt.Sprintf("%s (conflicting record %s)", e.Reason, e.ConflictId)
	}
	return e.Reason
}

func NewConflict(reason, conflictId string) *ConflictError {
	return &ConflictError{Reason: reason, ConflictId: conflictId}
}

// StateError reports a mutation that violates a lifecycle lock.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return e.Reason }

func NewState(reason string) *StateError {
	return &StateError{Reason: reason}
}

// SignatureError reports a failed webhook authenticity check.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string { return "signature verification failed: " + e.Reason }

func NewSignature(reason string) *SignatureError {
	return &SignatureError{Reason: reason}
}

// IsBusinessError reports whether err belongs to the taxonomy above, i.e. it
// is a deterministic rule violation that retrying cannot fix.
func IsBusinessError(err error) bool {
	var ve *ValidationError
	var nf *NotFoundError
	var ce *ConflictError
	var se *StateError
	var ge *SignatureError
	return errors.As(err, &ve) || errors.As(err, &nf) ||
		errors.As(err, &ce) || errors.As(err, &se) || errors.As(err, &ge)
}

// IsDuplicateKey reports whether err is a datastore uniqueness violation.
// gorm translates driver errors when TranslateError is on; the string checks
// cover drivers that predate the translation.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
