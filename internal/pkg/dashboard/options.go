package dashboard

// Option configures a [Controller].
type Option func(*options)

type options struct {
	sinks []Sink
}

// WithSinks registers sinks notified of every redraw.
func WithSinks(sinks ...Sink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sinks...)
	}
}

func optionsWithDefaults(opts []Option) options {
	var o options
	for _, apply := range opts {
		apply(&o)
	}

	return o
}
