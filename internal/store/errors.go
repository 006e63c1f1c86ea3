package store

import "errors"

var (
	// ErrNotFound is returned when a requested user does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned by CreateUser when the username is
	// already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrEmptyUsername is returned by CreateUser for a blank username.
	ErrEmptyUsername = errors.New("username is required")
)
