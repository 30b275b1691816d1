package scoring

import "errors"

// Sentinel kinds for scoring configuration errors.
var (
	ErrUnknownPolicy = errors.New("unknown scoring policy")
)
