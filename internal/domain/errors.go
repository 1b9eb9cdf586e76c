package domain

import "errors"

var (
	// ErrNotFound indicates a quiz, submission, or user lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrEmailExists is returned when registering with an email already in use.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidCredentials is returned on login with an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrDuplicateKey indicates a store-level primary key or unique index collision.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStorageUnavailable indicates the local store could not be opened.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
