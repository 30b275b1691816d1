package repository

import "time"

const (
	defaultRedisKey   = "squadmetrics:snapshot"
	defaultStaleGrace = time.Hour
)

// Option applies a configuration option to a Store.
type Option func(*options)

type options struct {
	now        func() time.Time
	key        string
	staleGrace time.Duration
}

func defaultOptions() options {
	return options{now: time.Now, key: defaultRedisKey, staleGrace: defaultStaleGrace}
}

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKey sets the redis key holding the snapshot.
func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

// WithStaleGrace sets how long redis keeps a snapshot after it expires.
// Zero keeps it until the next Save overwrites it.
func WithStaleGrace(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.staleGrace = d
		}
	}
}
