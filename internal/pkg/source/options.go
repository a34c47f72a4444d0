package source

import (
	"context"
	"time"
)

// Option configures a data source.
type Option func(*options)

type options struct {
	latency time.Duration
}

// WithLatency adds an artificial latency to every fetch.
//
// This is useful to demonstrate or test the behavior of the dashboard while data is loading.
func WithLatency(latency time.Duration) Option {
	return func(o *options) {
		o.latency = latency
	}
}

func optionsWithDefaults(opts []Option) options {
	var o options
	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// wait for the configured latency, or until the context is done.
func (o options) wait(ctx context.Context) error {
	if o.latency <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(o.latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
