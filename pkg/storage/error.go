package storage

import "errors"

var (
	// ErrNotFound is returned when a user or conversation doesn't exist in
	// the store, or when a conversation is owned by a different user.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned when creating a user whose username is taken.
	ErrExists = errors.New("already exists")
)
