package repository

import "errors"

// Sentinel kinds for snapshot cache errors.
var (
	ErrNotFound   = errors.New("snapshot not found")
	ErrExpired    = errors.New("snapshot expired")
	ErrInvalidTTL = errors.New("snapshot ttl must be positive")
	ErrClosed     = errors.New("snapshot store closed")
)
