package database

import "fmt"

// ValidationError reports bad user input. It is surfaced as a user-facing
// message and never treated as fatal.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing record, most commonly a response/token
// mismatch. Callers fall back to the default flow on it.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}
