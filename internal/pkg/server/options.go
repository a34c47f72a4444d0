package server

import "time"

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultSendBuffer      = 8
)

// Option configures a [Server].
type Option func(*options)

type options struct {
	address         string
	shutdownTimeout time.Duration
	sendBuffer      int
}

// WithAddress overrides the listening address of the configuration.
func WithAddress(addr string) Option {
	return func(o *options) {
		if addr != "" {
			o.address = addr
		}
	}
}

// WithShutdownTimeout sets how long in-flight requests are waited for on shutdown.
//
// Defaults to 10s.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.shutdownTimeout = timeout
		}
	}
}

// WithSendBuffer sets the number of views queued for a websocket subscriber before redraws are dropped.
//
// Defaults to 8.
func WithSendBuffer(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.sendBuffer = size
		}
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		shutdownTimeout: defaultShutdownTimeout,
		sendBuffer:      defaultSendBuffer,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
