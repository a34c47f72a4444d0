package config

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/metric"
	"github.com/fredbi/flightviz/internal/pkg/model"
	"github.com/go-viper/mapstructure/v2"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed default_config.yaml
var efs embed.FS

// Config holds the configuration for flightviz.
type Config struct {
	Name        string
	Location    string // time zone used to derive calendar keys (day, weekday, hour)
	Mode        metric.Mode
	Period      Period
	Data        Data
	BestFlights int
	Charts      []Chart
	Render      Rendering
	Server      Server
	Route       model.Route `mapstructure:"-"`
	Outputs     Output      `mapstructure:"-"`

	location   *time.Location
	from       time.Time
	to         time.Time
	chartIndex map[string]Chart
}

// GetChart retrieves a chart definition by its ID.
func (c Config) GetChart(id string) (Chart, bool) {
	v, ok := c.chartIndex[id]

	return v, ok
}

// FindChart returns the chart displaying a dimension.
func (c Config) FindChart(dimension DimensionName) (Chart, bool) {
	for _, chart := range c.Charts {
		if chart.Dimension == dimension {
			return chart, true
		}
	}

	return Chart{}, false
}

// TimeLocation returns the time zone in which calendar keys are derived.
//
// It defaults to UTC.
func (c Config) TimeLocation() *time.Location {
	if c.location == nil {
		return time.UTC
	}

	return c.location
}

// TimeRange returns the visible time range [from, to).
func (c Config) TimeRange() (from, to time.Time) {
	return c.from, c.to
}

// EncodeYAML serializes a [Config] to YAML into the provided writer.
//
// Runtime-only fields (Route, Outputs) are excluded from the output.
func (c *Config) EncodeYAML(w io.Writer) error {
	var raw map[string]any

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Squash: true,
		Deep:   true,
		Result: &raw,
	})
	if err != nil {
		return fmt.Errorf("creating mapstructure decoder: %w", err)
	}

	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("decoding config to map: %w", err)
	}

	return yaml.NewEncoder(w).Encode(raw)
}

// Period is the visible time range of the dashboard, as dates.
//
// From is inclusive, To is exclusive.
type Period struct {
	From string
	To   string
}

// Data locates the prepared flight data.
type Data struct {
	Dir string
}

// Server configures the HTTP server.
type Server struct {
	Address string
}

// Chart defines a chart of the dashboard, displaying the groups of one dimension.
type Chart struct {
	ID        string
	Title     string
	Axis      string
	Dimension DimensionName
}

// Rendering holds chart rendering settings.
type Rendering struct {
	Title      string
	Theme      string
	Width      string
	Height     string
	Colors     Colors
	Screenshot Screenshot
}

// Colors of the delay bars, by sign of the accumulated delay.
type Colors struct {
	Positive string
	Negative string
}

// Screenshot configures the headless Chrome screenshot used for PNG rendering.
type Screenshot struct {
	Height int64
	Width  int64
	Sleep  string
}

// SleepDuration parses the Sleep field as a [time.Duration].
func (s Screenshot) SleepDuration() time.Duration {
	d, err := time.ParseDuration(s.Sleep)
	if d == 0 || err != nil {
		return 0
	}

	return d
}

// Output holds the resolved output file paths for HTML and PNG rendering.
type Output struct {
	HTMLFile string
	PngFile  string
	IsTemp   bool
}

// Load a configuration file from the local file system, on top of the default configuration.
func Load(file string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, fmt.Errorf("loading default config: %w", err)
	}

	fsys := os.DirFS(filepath.Dir(file))
	pth := filepath.Join(".", filepath.Base(file))

	return load(fsys, pth, cfg)
}

// LoadDefaults loads the default configuration from the embedded default_config.yaml.
func LoadDefaults() (*Config, error) {
	return loadDefaults()
}

// loadDefaults loads the default configuration from embedded FS.
func loadDefaults() (*Config, error) {
	return load(efs, "default_config.yaml", &Config{})
}

func load(fsys fs.FS, file string, cfg *Config) (*Config, error) {
	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}

	var raw any
	err = yaml.Unmarshal(content, &raw)
	if err != nil {
		return nil, err
	}

	if m, ok := raw.(map[string]any); ok {
		for key := range m {
			if strings.EqualFold(key, "charts") {
				// charts replace the defaults rather than merge with them
				cfg.Charts = nil
			}
		}
	}

	err = mapstructure.Decode(raw, cfg)
	if err != nil {
		return nil, err
	}

	cfg.chartIndex = make(map[string]Chart, len(cfg.Charts))

	if err = cfg.validateLocation(); err != nil {
		return nil, err
	}

	if err = cfg.validatePeriod(); err != nil {
		return nil, err
	}

	if err = cfg.validateMode(); err != nil {
		return nil, err
	}

	if err = cfg.validateCharts(); err != nil {
		return nil, err
	}

	if cfg.BestFlights < 0 {
		return nil, fmt.Errorf("invalid bestFlights: must be positive or zero, got %d", cfg.BestFlights)
	}

	return cfg, nil
}

func (c *Config) validateLocation() error {
	if c.Location == "" {
		c.location = time.UTC

		return nil
	}

	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return fmt.Errorf("invalid location %q: %w", c.Location, err)
	}
	c.location = loc

	return nil
}

func (c *Config) validatePeriod() error {
	if c.Period.From == "" && c.Period.To == "" {
		return fmt.Errorf("invalid period: from and to dates are required")
	}

	from, err := time.ParseInLocation(model.DateLayout, c.Period.From, c.location)
	if err != nil {
		return fmt.Errorf("invalid period.from: %w", err)
	}

	to, err := time.ParseInLocation(model.DateLayout, c.Period.To, c.location)
	if err != nil {
		return fmt.Errorf("invalid period.to: %w", err)
	}

	if !to.After(from) {
		return fmt.Errorf("invalid period: to (%s) must be after from (%s)", c.Period.To, c.Period.From)
	}

	c.from = from
	c.to = to

	return nil
}

func (c *Config) validateMode() error {
	if c.Mode == "" {
		c.Mode = metric.ModeAbsolute

		return nil
	}

	mode, err := metric.ParseMode(string(c.Mode))
	if err != nil {
		return fmt.Errorf("invalid mode: %w", err)
	}
	c.Mode = mode

	return nil
}

func (c *Config) validateCharts() error {
	seenDimensions := make(map[DimensionName]string, len(c.Charts))

	for i, v := range c.Charts {
		if v.ID == "" {
			return fmt.Errorf("invalid charts: empty ID found: charts[%d]", i)
		}
		if _, ok := c.chartIndex[v.ID]; ok {
			return fmt.Errorf("invalid charts: duplicate ID key found: %s", v.ID)
		}
		if !v.Dimension.IsValid() || v.Dimension == DimensionDelay {
			return fmt.Errorf("invalid charts: invalid dimension: charts[%d]=%v (should be one of %v)", i, v.Dimension, ChartableDimensionNames())
		}
		if other, ok := seenDimensions[v.Dimension]; ok {
			return fmt.Errorf("invalid charts: dimension %s already charted by %s", v.Dimension, other)
		}
		if v.Title == "" {
			v.Title = titleize(v.ID)
		}
		if v.Axis == "" {
			v.Axis = titleize(v.Dimension)
		}

		seenDimensions[v.Dimension] = v.ID
		c.chartIndex[v.ID] = v
		c.Charts[i] = v
	}

	return nil
}

type str interface {
	~string
}

func titleize[T str](in T) string {
	caser := cases.Title(language.English, cases.NoLower) // the case is stateful: cannot declare it globally

	return caser.String(strings.Map(func(r rune) rune {
		switch r {
		case '_', '-':
			return ' '
		default:
			return r
		}
	}, string(in),
	))
}
