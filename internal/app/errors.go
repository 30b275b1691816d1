package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoSource       = errors.New("no stat sheet source configured")
	ErrFetch          = errors.New("fetch stat sheet")
	ErrParse          = errors.New("parse stat sheet")
	ErrEmptySnapshot  = errors.New("stat sheet has no records")
	ErrPlayerNotFound = errors.New("player not found")
)
