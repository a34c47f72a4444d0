package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/metric"
	"github.com/go-viper/mapstructure/v2"
	"go.yaml.in/yaml/v3"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestLoadDefault(t *testing.T) {
	cfg, err := loadDefaults()
	require.NoError(t, err)

	require.NoError(t, dumpConfig(os.Stdout, cfg))
}

func TestLoadDefaultContent(t *testing.T) {
	cfg, err := LoadDefaults()
	require.NoError(t, err)

	assert.Equal(t, "Flight Delays", cfg.Name)
	assert.Equal(t, metric.ModeAbsolute, cfg.Mode)
	assert.Equal(t, 3, cfg.BestFlights)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, ":8080", cfg.Server.Address)

	// verify charts are loaded and indexed
	require.Len(t, cfg.Charts, 4)
	for _, id := range []string{"time-range", "day-of-month", "day-of-week", "hour-of-day"} {
		_, ok := cfg.GetChart(id)
		assert.True(t, ok, "expected chart %q in index", id)
	}

	chart, ok := cfg.FindChart(DimensionDayOfWeek)
	require.True(t, ok)
	assert.Equal(t, "day-of-week", chart.ID)
	assert.Equal(t, "Day of Week", chart.Axis)

	_, ok = cfg.FindChart(DimensionDelay)
	assert.False(t, ok)

	// verify period
	from, to := cfg.TimeRange()
	assert.Equal(t, time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2017, time.February, 1, 0, 0, 0, 0, time.UTC), to)
	assert.Equal(t, time.UTC, cfg.TimeLocation())

	// verify rendering defaults
	assert.Equal(t, "roma", cfg.Render.Theme)
	assert.Equal(t, "palevioletred", cfg.Render.Colors.Positive)
	assert.Equal(t, "cadetblue", cfg.Render.Colors.Negative)
	assert.Equal(t, time.Second, cfg.Render.Screenshot.SleepDuration())
	assert.EqualValues(t, 1920, cfg.Render.Screenshot.Width)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(minimalValidYAML()), 0o600))

	cfg, err := load(os.DirFS(dir), "config.yaml", &Config{})
	require.NoError(t, err)

	require.Len(t, cfg.Charts, 1)
	chart, ok := cfg.GetChart("weekdays")
	require.True(t, ok, "expected chart weekdays in index")
	assert.Equal(t, "Weekdays", chart.Title, "title defaults to the titleized ID")
	assert.Equal(t, "DayOfWeek", chart.Axis, "axis defaults to the titleized dimension")
	assert.Equal(t, metric.ModeAbsolute, cfg.Mode)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
name: Winter Delays
location: America/New_York
mode: ratio
period:
  from: "2017-12-01"
  to: "2018-03-01"
charts:
  - id: hours
    dimension: hourOfDay
`), 0o600))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "Winter Delays", cfg.Name)
	assert.Equal(t, metric.ModeRatio, cfg.Mode)
	assert.Equal(t, "America/New_York", cfg.TimeLocation().String())
	require.Len(t, cfg.Charts, 1, "charts replace the defaults")
	assert.Equal(t, "hours", cfg.Charts[0].ID)

	// untouched sections retain their defaults
	assert.Equal(t, 3, cfg.BestFlights)
	assert.Equal(t, "roma", cfg.Render.Theme)

	from, to := cfg.TimeRange()
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, time.December, from.Month())
	assert.Equal(t, time.March, to.Month())
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := load(os.DirFS(dir), "nonexistent.yaml", &Config{})
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte(":\n  :\n    - [invalid"), 0o600))

	_, err := load(os.DirFS(dir), "bad.yaml", &Config{})
	require.Error(t, err)
}

func TestDimensionName(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "dayOfMonth", DimensionDayOfMonth.String())
	})

	t.Run("IsValid", func(t *testing.T) {
		for _, d := range AllDimensionNames() {
			assert.True(t, d.IsValid(), "expected %q to be valid", d)
		}

		for _, d := range []DimensionName{"unknown", "", "dayofmonth", "minuteOfHour"} {
			assert.False(t, d.IsValid(), "expected %q to be invalid", d)
		}
	})

	t.Run("IsCalendar", func(t *testing.T) {
		assert.True(t, DimensionHourOfDay.IsCalendar())
		assert.False(t, DimensionTime.IsCalendar())
		assert.False(t, DimensionDelay.IsCalendar())
	})

	t.Run("ChartableDimensionNames", func(t *testing.T) {
		names := ChartableDimensionNames()
		require.Len(t, names, 4)
		assert.NotContains(t, names, DimensionDelay)
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "chart with empty ID",
			yaml: `
period: {from: "2017-01-01", to: "2017-02-01"}
charts:
  - id: ""
    dimension: hourOfDay
`,
		},
		{
			name: "duplicate chart ID",
			yaml: `
period: {from: "2017-01-01", to: "2017-02-01"}
charts:
  - id: hours
    dimension: hourOfDay
  - id: hours
    dimension: dayOfWeek
`,
		},
		{
			name: "dimension charted twice",
			yaml: `
period: {from: "2017-01-01", to: "2017-02-01"}
charts:
  - id: hours
    dimension: hourOfDay
  - id: more-hours
    dimension: hourOfDay
`,
		},
		{
			name: "unknown dimension",
			yaml: `
period: {from: "2017-01-01", to: "2017-02-01"}
charts:
  - id: minutes
    dimension: minuteOfHour
`,
		},
		{
			name: "delay dimension has no chart",
			yaml: `
period: {from: "2017-01-01", to: "2017-02-01"}
charts:
  - id: delays
    dimension: delay
`,
		},
		{
			name: "missing period",
			yaml: `
name: no period
`,
		},
		{
			name: "invalid period date",
			yaml: `
period: {from: "2017-01-01", to: "February"}
`,
		},
		{
			name: "empty period",
			yaml: `
period: {from: "2017-01-01", to: "2017-01-01"}
`,
		},
		{
			name: "invalid location",
			yaml: `
location: Mars/Olympus_Mons
period: {from: "2017-01-01", to: "2017-02-01"}
`,
		},
		{
			name: "invalid mode",
			yaml: `
mode: relative
period: {from: "2017-01-01", to: "2017-02-01"}
`,
		},
		{
			name: "negative best flights",
			yaml: `
bestFlights: -1
period: {from: "2017-01-01", to: "2017-02-01"}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFromString(t, tt.yaml)
			require.Error(t, err)
		})
	}
}

func TestTitleize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello", "Hello"},
		{"day-of-week", "Day Of Week"},
		{"hour_of_day", "Hour Of Day"},
		{"dayOfMonth", "DayOfMonth"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, titleize(tt.input))
		})
	}
}

func TestTitleizeDimensionName(t *testing.T) {
	assert.Equal(t, "HourOfDay", titleize(DimensionHourOfDay))
}

func TestEncodeYAML(t *testing.T) {
	cfg, err := LoadDefaults()
	require.NoError(t, err)
	cfg.Name = "Encoded"
	cfg.Outputs.HTMLFile = "must-not-leak.html"

	dir := t.TempDir()
	file := filepath.Join(dir, "encoded.yaml")
	f, err := os.Create(file)
	require.NoError(t, err)

	require.NoError(t, cfg.EncodeYAML(f))
	require.NoError(t, f.Close())

	content, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "must-not-leak")

	// verify the YAML can be loaded back as a valid config
	loaded, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "Encoded", loaded.Name)
	assert.Len(t, loaded.Charts, 4)
	assert.Equal(t, cfg.Charts, loaded.Charts)
	assert.Equal(t, cfg.Period, loaded.Period)
}

func TestEncodeYAMLWithDump(t *testing.T) {
	cfg := mustLoadTestConfig(t, minimalValidYAML())

	var buf bytes.Buffer
	require.NoError(t, dumpConfig(&buf, cfg))
	assert.Contains(t, buf.String(), "weekdays")
}

// helpers

func dumpConfig(w io.Writer, cfg *Config) error {
	var raw map[string]any
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Squash: true,
		Deep:   true,
		Result: &raw,
	})
	if err != nil {
		return err
	}

	err = dec.Decode(cfg)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)

	return enc.Encode(raw)
}

func loadFromString(t *testing.T, yamlContent string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(yamlContent), 0o600))
	return load(os.DirFS(dir), "config.yaml", &Config{})
}

func mustLoadTestConfig(t *testing.T, yamlContent string) *Config {
	t.Helper()
	cfg, err := loadFromString(t, yamlContent)
	require.NoError(t, err)
	return cfg
}

func minimalValidYAML() string {
	return `
name: Minimal
period:
  from: "2017-01-01"
  to: "2017-02-01"
charts:
  - id: weekdays
    dimension: dayOfWeek
`
}
