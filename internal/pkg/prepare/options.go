package prepare

import "time"

// Option configures a [Preparer].
type Option func(*options)

type options struct {
	location  *time.Location
	delimiter rune
}

// WithLocation sets the time zone of the scheduled departure dates and times found in the input.
//
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithDelimiter sets the field delimiter of the CSV input. The default is a comma.
func WithDelimiter(delimiter rune) Option {
	return func(o *options) {
		o.delimiter = delimiter
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		location:  time.UTC,
		delimiter: ',',
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
