// Package service implements the public reminder operations: create, delete,
// and list. Validation and not-found conditions surface as typed errors here;
// the HTTP layer translates them into user-facing messages.
package service

import "errors"

var (
	// ErrEmptyDescription is returned when a create request carries no
	// description.
	ErrEmptyDescription = errors.New("description is required")

	// ErrMissingSelector is returned when a delete request supplies neither
	// a reminder id nor a description.
	ErrMissingSelector = errors.New("either a reminder id or a description is required")
)
