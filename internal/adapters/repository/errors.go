package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("record not found")
	ErrUnknownWine  = errors.New("unknown wine")
	ErrInvalidLimit = errors.New("invalid list limit")
)
