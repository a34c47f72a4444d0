package dashboard

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/crossfilter"
	"github.com/fredbi/flightviz/internal/pkg/metric"
	"github.com/fredbi/flightviz/internal/pkg/model"
)

// ChartKind tells how the bars of a chart are measured.
type ChartKind string

// Kinds of charts.
const (
	// ChartCount bars measure a number of flights.
	ChartCount ChartKind = "count"
	// ChartDelay bars measure a mean delay, projected by the current mode.
	ChartDelay ChartKind = "delay"
)

// View is a snapshot of the dashboard, ready to be painted.
//
// A View is never mutated once built: it may be shared by several readers.
type View struct {
	Title        string            `json:"title"`
	Ready        bool              `json:"ready"`
	Origins      []string          `json:"origins"`
	Destinations []string          `json:"destinations"`
	Route        model.Route       `json:"route"`
	Mode         metric.Mode       `json:"mode"`
	Unit         string            `json:"unit"`
	Charts       []ChartView       `json:"charts"`
	BestFlights  []FlightRow       `json:"bestFlights"`
	MeanDelay    string            `json:"meanDelay"`
	Count        string            `json:"count"`
	Selected     int               `json:"selected"`
	Total        int               `json:"total"`
	Filters      map[string]string `json:"filters,omitempty"`
}

// IsFiltered reports whether any filter is active.
func (v View) IsFiltered() bool {
	return len(v.Filters) > 0
}

// GetChart retrieves a chart by its ID.
func (v View) GetChart(id string) (ChartView, bool) {
	for _, chart := range v.Charts {
		if chart.ID == id {
			return chart, true
		}
	}

	return ChartView{}, false
}

// ChartView is the group table of a dimension, completed with every expected bucket and sorted by key.
type ChartView struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Axis      string               `json:"axis"`
	Dimension config.DimensionName `json:"dimension"`
	Kind      ChartKind            `json:"kind"`
	Filter    string               `json:"filter,omitempty"`
	Bars      []Bar                `json:"bars"`
}

// Bar is one bucket of a chart.
type Bar struct {
	Key      int64    `json:"key"`
	Label    string   `json:"label"`
	Count    int      `json:"count"`
	Value    float64  `json:"value"`
	Text     string   `json:"text"`
	NoData   bool     `json:"noData,omitempty"`
	Color    string   `json:"color,omitempty"`
	Selected bool     `json:"selected"`
	Tooltip  []string `json:"tooltip"`
}

// FlightRow is a row of the best flights table.
type FlightRow struct {
	Departure string       `json:"departure"`
	Delay     string       `json:"delay"`
	Flight    model.Flight `json:"flight"`
}

// buildView takes a snapshot of the cube, projected with the selector.
func (c *Controller) buildView() View {
	cb := c.cube
	all := cb.all.Value()

	v := View{
		Title:        c.cfg.Render.Title,
		Ready:        c.ready,
		Origins:      slices.Clone(c.origins),
		Destinations: slices.Clone(c.destinations),
		Route:        c.route,
		Mode:         c.selector.Mode(),
		Unit:         c.selector.Unit(),
		Charts:       make([]ChartView, 0, len(c.cfg.Charts)),
		MeanDelay:    c.selector.FormatSummary(all),
		Count:        metric.CountSummary(cb.filter.SelectedSize(), cb.filter.Size()),
		Selected:     cb.filter.SelectedSize(),
		Total:        cb.filter.Size(),
	}

	for _, name := range config.AllDimensionNames() {
		if text := cb.describeFilter(name, c.domains); text != "" {
			if v.Filters == nil {
				v.Filters = make(map[string]string)
			}
			v.Filters[name.String()] = text
		}
	}

	for _, chart := range c.cfg.Charts {
		chartView := ChartView{
			ID:        chart.ID,
			Title:     chart.Title,
			Axis:      chart.Axis,
			Dimension: chart.Dimension,
			Filter:    v.Filters[chart.Dimension.String()],
		}

		if chart.Dimension == config.DimensionTime {
			chartView.Kind = ChartCount
			chartView.Bars = c.timeBars()
		} else {
			chartView.Kind = ChartDelay
			chartView.Bars = c.delayBars(chart.Dimension)
		}

		v.Charts = append(v.Charts, chartView)
	}

	for _, flight := range cb.delay.Bottom(c.cfg.BestFlights) {
		v.BestFlights = append(v.BestFlights, FlightRow{
			Departure: flight.DepartedOn.In(cb.loc).Format(model.DepartureLayout),
			Delay:     metric.FormatDelay(flight.DelayInMinutes),
			Flight:    flight,
		})
	}

	return v
}

// timeBars yields the number of flights per day of the period.
func (c *Controller) timeBars() []Bar {
	cb := c.cube
	table := crossfilter.EnsureBins(cb.flightsPerDay.All(), zeroCount, c.domains.days)
	slices.SortFunc(table, byKey)

	from, to := c.cfg.TimeRange()
	p := cb.time.Predicate()

	bars := make([]Bar, 0, len(c.domains.days))
	for _, entry := range table {
		if entry.Key < from.Unix() || entry.Key >= to.Unix() {
			continue
		}

		label := time.Unix(entry.Key, 0).In(cb.loc).Format(model.DateLayout)
		bars = append(bars, Bar{
			Key:      entry.Key,
			Label:    label,
			Count:    entry.Value,
			Value:    float64(entry.Value),
			Text:     metric.FormatCount(entry.Value),
			Selected: p.Accepts(entry.Key),
			Tooltip:  []string{label, "Number of flights: " + metric.FormatCount(entry.Value)},
		})
	}

	return bars
}

// delayBars yields the delay aggregates of a calendar dimension, over its whole domain.
func (c *Controller) delayBars(dimension config.DimensionName) []Bar {
	group, dim, ok := c.cube.delayGroup(dimension)
	if !ok {
		return nil
	}

	table := crossfilter.EnsureBins(group.All(), model.NewDelayAggregate, c.domains.of(dimension))
	slices.SortFunc(table, byKey)

	p := dim.Predicate()
	bars := make([]Bar, 0, len(table))
	for _, entry := range table {
		agg := entry.Value
		label := bucketLabel(dimension, entry.Key)
		value, _ := c.selector.Value(agg)

		bars = append(bars, Bar{
			Key:      int64(entry.Key),
			Label:    label,
			Count:    agg.Count,
			Value:    value,
			Text:     c.selector.FormatBucket(agg),
			NoData:   agg.IsEmpty(),
			Color:    c.barColor(agg),
			Selected: p.Accepts(entry.Key),
			Tooltip:  metric.Tooltip(label, agg),
		})
	}

	return bars
}

func (c *Controller) barColor(agg model.DelayAggregate) string {
	if agg.SumDelay > 0 {
		return c.cfg.Render.Colors.Positive
	}

	return c.cfg.Render.Colors.Negative
}

// bucketLabel identifies a bucket of a calendar dimension, e.g. "Day 3", "Sundays" or "Hours 4 to 5".
func bucketLabel(dimension config.DimensionName, key int) string {
	switch dimension {
	case config.DimensionDayOfMonth:
		return fmt.Sprintf("Day %d", key)
	case config.DimensionDayOfWeek:
		return filterLabel(dimension, key)
	case config.DimensionHourOfDay:
		return fmt.Sprintf("Hours %d to %d", key, key+1)
	default:
		return fmt.Sprint(key)
	}
}

func zeroCount() int {
	return 0
}

func byKey[K cmp.Ordered, V any](a, b crossfilter.Entry[K, V]) int {
	return cmp.Compare(a.Key, b.Key)
}
