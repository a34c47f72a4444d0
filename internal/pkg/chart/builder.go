package chart

import (
	"log/slog"

	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/dashboard"
	"github.com/fredbi/flightviz/internal/pkg/metric"
)

const (
	bestFlightsTitle = "Best Flights"
	bestFlightsAxis  = "Departure"
	loadingSubtitle  = "loading..."
)

// Builder paints snapshots of the dashboard as chart pages.
type Builder struct {
	cfg *config.Config
	l   *slog.Logger
}

// New creates a new chart [Builder], given a [config.Config].
//
// The builder embeds a [slog.Logger] to croak about warnings and issues.
func New(cfg *config.Config) *Builder {
	return &Builder{
		cfg: cfg,
		l:   slog.Default().With(slog.String("module", "chart")),
	}
}

// BuildPage creates a page with the summary of the selection, the best flights and all charts of a [dashboard.View].
func (b *Builder) BuildPage(v dashboard.View) *Page {
	page := NewPage(pageTitle(v))

	page.AddChart(b.buildBestFlights(v))

	for _, chartView := range v.Charts {
		if len(chartView.Bars) == 0 {
			b.l.Warn("empty chart skipped", slog.String("chart_id", chartView.ID))

			continue
		}

		page.AddChart(b.buildChart(v, chartView))
	}

	b.l.Info("added charts", slog.Int("charts", len(page.Charts)), slog.String("route", v.Route.String()))

	return page
}

func (b *Builder) buildChart(v dashboard.View, chartView dashboard.ChartView) *Chart {
	labels := make([]string, 0, len(chartView.Bars))
	for _, bar := range chartView.Bars {
		labels = append(labels, bar.Label)
	}

	unit := v.Unit
	isRatio := v.Mode == metric.ModeRatio
	if chartView.Kind == dashboard.ChartCount {
		unit = ""
		isRatio = false
	}

	subtitle := chartView.Filter
	if !v.Ready {
		subtitle = loadingSubtitle
	}

	chart := NewChart(
		WithTitle(chartView.Title),
		WithSubtitle(subtitle),
		WithXAxisLabel(chartView.Axis),
		WithXAxisLabels(labels),
		WithYAxisLabel(yAxisLabel(chartView, v.Unit)),
		WithUnit(unit),
		WithRatio(isRatio),
		WithTheme(b.cfg.Render.Theme),
		WithSize(b.cfg.Render.Width, b.cfg.Render.Height),
		WithZoom(chartView.Dimension == config.DimensionTime),
	)
	chart.AddBars(chartView.Title, chartView.Bars)

	return chart
}

// buildBestFlights paints the best flights as horizontal bars, and the summary of the selection as subtitle.
func (b *Builder) buildBestFlights(v dashboard.View) *Chart {
	labels := make([]string, 0, len(v.BestFlights))
	bars := make([]dashboard.Bar, 0, len(v.BestFlights))

	for _, row := range v.BestFlights {
		labels = append(labels, row.Departure)
		bars = append(bars, dashboard.Bar{
			Label:    row.Departure,
			Count:    1,
			Value:    row.Flight.DelayInMinutes,
			Text:     row.Delay,
			Color:    b.delayColor(row.Flight.DelayInMinutes),
			Selected: true,
			Tooltip: []string{
				row.Departure,
				"Delay: " + row.Delay + " minutes",
				"Delay ratio: " + metric.FormatRatio(row.Flight.DelayRatio),
			},
		})
	}

	chart := NewChart(
		WithTitle(bestFlightsTitle),
		WithSubtitle(summary(v)),
		WithXAxisLabel(bestFlightsAxis),
		WithXAxisLabels(labels),
		WithYAxisLabel("Delay (minutes)"),
		WithUnit("minutes"),
		WithTheme(b.cfg.Render.Theme),
		WithSize(b.cfg.Render.Width, b.cfg.Render.Height),
		WithHorizontal(true),
	)
	chart.AddBars(bestFlightsTitle, bars)

	return chart
}

func (b *Builder) delayColor(delay float64) string {
	if delay > 0 {
		return b.cfg.Render.Colors.Positive
	}

	return b.cfg.Render.Colors.Negative
}

func pageTitle(v dashboard.View) string {
	if v.Route.IsZero() {
		return v.Title
	}

	return v.Title + " " + v.Route.String()
}

// summary prints the mean delay and the size of the selection, e.g. "Mean delay: 2.0 minutes (all of 6 records)".
func summary(v dashboard.View) string {
	if !v.Ready {
		return loadingSubtitle
	}

	meanDelay := "Mean delay: " + v.MeanDelay
	if v.MeanDelay != metric.NoData && v.Mode == metric.ModeAbsolute {
		meanDelay += " " + v.Unit
	}

	return meanDelay + " (" + v.Count + ")"
}

func yAxisLabel(chartView dashboard.ChartView, unit string) string {
	if chartView.Kind == dashboard.ChartCount {
		return "Flights"
	}

	return "Mean Delay (" + unit + ")"
}
