package chart

// Theme constants from go-echarts.
const (
	ThemeRoma = "roma"
)

const (
	defaultWidth  = "900px"
	defaultHeight = "500px"
)

// Option configures a [Chart].
type Option func(*options)

type options struct {
	Title       string
	Subtitle    string
	XAxisLabel  string
	XAxisLabels []string
	YAxisLabel  string
	Unit        string
	Ratio       bool
	Theme       string
	Width       string
	Height      string
	Horizontal  bool
	Zoom        bool
}

// WithTitle sets the chart title.
func WithTitle(title string) Option {
	return func(c *options) {
		c.Title = title
	}
}

// WithSubtitle sets the chart subtitle (typically the active filter).
func WithSubtitle(subtitle string) Option {
	return func(c *options) {
		c.Subtitle = subtitle
	}
}

// WithTheme sets the color theme.
func WithTheme(theme string) Option {
	return func(c *options) {
		if theme != "" {
			c.Theme = theme
		}
	}
}

// WithSize sets the dimensions of the chart, as CSS lengths. Empty values keep the defaults.
func WithSize(width, height string) Option {
	return func(c *options) {
		if width != "" {
			c.Width = width
		}

		if height != "" {
			c.Height = height
		}
	}
}

// WithXAxisLabel sets the name of the category axis.
func WithXAxisLabel(xlabel string) Option {
	return func(c *options) {
		c.XAxisLabel = xlabel
	}
}

// WithXAxisLabels sets the X-axis data point labels.
func WithXAxisLabels(xlabels []string) Option {
	return func(c *options) {
		c.XAxisLabels = xlabels
	}
}

// WithYAxisLabel sets the Y-axis label text.
func WithYAxisLabel(ylabel string) Option {
	return func(c *options) {
		c.YAxisLabel = ylabel
	}
}

// WithRatio formats values as percentages of a fraction.
func WithRatio(enabled bool) Option {
	return func(c *options) {
		c.Ratio = enabled
	}
}

// WithUnit sets the unit appended to the values of the axis.
func WithUnit(unit string) Option {
	return func(c *options) {
		c.Unit = unit
	}
}

// WithHorizontal enables or disables horizontal bar orientation.
func WithHorizontal(enabled bool) Option {
	return func(c *options) {
		c.Horizontal = enabled
	}
}

// WithZoom adds a slider to pick a range of the category axis.
func WithZoom(enabled bool) Option {
	return func(c *options) {
		c.Zoom = enabled
	}
}

func optionsWithDefaults(opts []Option) options {
	o := options{
		Theme:  ThemeRoma,
		Width:  defaultWidth,
		Height: defaultHeight,
	}

	for _, apply := range opts {
		apply(&o)
	}

	return o
}
