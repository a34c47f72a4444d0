package image //nolint:revive // it's okay for an internal package to use this name

import (
	"time"

	"github.com/fredbi/flightviz/internal/pkg/config"
)

// Option to tune image rendering.
type Option func(*options)

type options struct {
	Height        int64
	Width         int64
	SleepDuration time.Duration
	WaitSelector  string
}

const (
	defaultHeight int64 = 1080
	defaultWidth  int64 = 1920
	defaultWait         = time.Second

	// every go-echarts chart is painted in a div of this class
	defaultWaitSelector = "div.item"
)

func optionsWithDefaults(opts []Option) options {
	o := options{
		Height:        defaultHeight,
		Width:         defaultWidth,
		SleepDuration: defaultWait,
		WaitSelector:  defaultWaitSelector,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}

// WithScreenshot applies the screenshot settings of the configuration.
//
// Unset values keep their defaults.
func WithScreenshot(s config.Screenshot) Option {
	return func(o *options) {
		for _, apply := range []Option{
			WithHeight(s.Height),
			WithWidth(s.Width),
			WithSleep(s.SleepDuration()),
		} {
			apply(o)
		}
	}
}

// WithHeight sets the height of the screenshot.
//
// Defaults to 1080.
func WithHeight(height int64) Option {
	return func(o *options) {
		if height <= 0 {
			return
		}

		o.Height = height
	}
}

// WithWidth sets the width of the screenshot.
//
// Defaults to 1920.
func WithWidth(width int64) Option {
	return func(o *options) {
		if width <= 0 {
			return
		}

		o.Width = width
	}
}

// WithSleep sets the time to wait for the charts to be animated once visible.
//
// Defaults to 1s.
func WithSleep(sleep time.Duration) Option {
	return func(o *options) {
		if sleep == 0 {
			return
		}

		o.SleepDuration = sleep
	}
}

// WithWaitSelector sets the CSS selector of the element to wait for before taking the screenshot.
//
// An empty selector only waits for the sleep duration.
func WithWaitSelector(selector string) Option {
	return func(o *options) {
		o.WaitSelector = selector
	}
}
