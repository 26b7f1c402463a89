package tenant

import "errors"

var (
	// ErrOwnerNotFound is returned when no owner exists for the given ID.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrNoOwner is returned when an owner is required but none was given.
	ErrNoOwner = errors.New("no owner")
)
