package engine

import "fmt"

// NotFoundError signals that the target list or item is absent or
// soft-deleted. Recoverable; the transport maps it to a 404.
type NotFoundError struct {
	Kind string // "List" or "Item"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %s not found.", e.Kind, e.ID)
}

// ValidationError signals a payload rejected before any store mutation
// was attempted. The transport maps it to a 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func tooLong(field string, limit int) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", limit)}
}
