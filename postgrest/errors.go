package postgrest

import (
	"errors"
	"fmt"
)

// ErrNoRows is returned by Single queries that matched no rows.
var ErrNoRows = errors.New("postgrest: no rows")

// Error is an upstream API error, passed through verbatim with its HTTP
// status. Nothing at this layer retries it.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend API error %d: %s", e.Status, e.Message)
}

// NotFoundError reports that a mutation targeted a row that does not exist.
// Fetch-by-id paths return (nil, nil) instead; only update/delete surface this.
type NotFoundError struct {
	Resource string
	ID       string
}

// NewNotFoundError creates a NotFoundError for the given resource and id.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
