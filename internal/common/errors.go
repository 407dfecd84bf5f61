package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrorAlreadyExist = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Input validation errors, raised before anything is sent over the wire.
	ErrReservedSeparator = errors.New("input contains reserved character '~'")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrEmptyField        = errors.New("empty field")
)
