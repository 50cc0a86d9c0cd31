package expense

import (
	"errors"
	"fmt"
)

// Not-found conditions are surfaced as such, deliberately not disguised as
// access denials; see DESIGN.md.
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrSplitNotFound   = errors.New("split not found")
	ErrGroupNotFound   = errors.New("group not found")
)

// ValidationError reports a domain-invalid mutation request (bad date,
// duplicate participant, missing participants). Split arithmetic problems
// are reported via split.ValidationError instead.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AccessError reports that the acting user lacks the relationship required
// for the attempted operation. The message names the required relationship,
// never internal state.
type AccessError struct {
	Message string
}

func (e *AccessError) Error() string { return e.Message }

func deniedf(format string, args ...interface{}) error {
	return &AccessError{Message: fmt.Sprintf(format, args...)}
}
