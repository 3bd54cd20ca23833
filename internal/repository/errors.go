package repository

import "errors"

var (
	// ErrNotFound indicates that no reminder matches the given id or
	// description for the agent.
	ErrNotFound = errors.New("reminder not found")

	// ErrDuplicateDescription is returned when an agent already owns a
	// reminder with the same description. First write wins.
	ErrDuplicateDescription = errors.New("reminder with this description already exists")
)
