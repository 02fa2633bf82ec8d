package database

import "errors"

var (
	// ErrShortCodeExists is returned when an attempt is made to create
	// a shortlink with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrLinkNotFound is returned when an attempt is made to retrieve
	// a shortlink using a short code that doesn't exist.
	ErrLinkNotFound = errors.New("shortlink not found")
)
