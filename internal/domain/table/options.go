package table

import "time"

type options struct {
	hubCapacity      int
	sweepInterval    time.Duration
	missingCacheSize int
	missingCacheTTL  time.Duration
}

func defaultOptions() options {
	return options{
		hubCapacity:      100,
		sweepInterval:    time.Second,
		missingCacheSize: 1024,
		missingCacheTTL:  30 * time.Second,
	}
}

// Option is a functional configuration type for the Registry.
type Option func(*options)

// WithHubCapacity sets the bounded buffer size of every session's broadcast
// hub. Subscribers that fall further behind than this are dropped.
func WithHubCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.hubCapacity = n
		}
	}
}

// WithSweepInterval overrides the lock sweeper cadence. Production keeps
// the one-second default; tests shrink it.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sweepInterval = d
		}
	}
}

// WithMissingCacheTTL bounds how long a NotFound verdict for a table id is
// remembered before storage is asked again.
func WithMissingCacheTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.missingCacheTTL = d
		}
	}
}
