package dashboard

import (
	"time"

	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/crossfilter"
	"github.com/fredbi/flightviz/internal/pkg/model"
)

// cube holds the flights of the current route, indexed along every dimension of the dashboard.
type cube struct {
	loc *time.Location

	filter     *crossfilter.Filter[model.Flight]
	time       *crossfilter.Dimension[model.Flight, int64]
	delay      *crossfilter.Dimension[model.Flight, float64]
	dayOfMonth *crossfilter.Dimension[model.Flight, int]
	dayOfWeek  *crossfilter.Dimension[model.Flight, int]
	hourOfDay  *crossfilter.Dimension[model.Flight, int]

	flightsPerDay *crossfilter.Group[model.Flight, int64, int]
	byDayOfMonth  *crossfilter.Group[model.Flight, int, model.DelayAggregate]
	byDayOfWeek   *crossfilter.Group[model.Flight, int, model.DelayAggregate]
	byHourOfDay   *crossfilter.Group[model.Flight, int, model.DelayAggregate]
	all           *crossfilter.GroupAll[model.Flight, model.DelayAggregate]
}

func newCube(loc *time.Location) (*cube, error) {
	c := &cube{
		loc:    loc,
		filter: crossfilter.New[model.Flight](),
	}

	var err error

	if c.time, err = crossfilter.NewDimension(c.filter, config.DimensionTime.String(), func(f model.Flight) int64 {
		return f.DepartedOn.Unix()
	}); err != nil {
		return nil, err
	}

	if c.delay, err = crossfilter.NewDimension(c.filter, config.DimensionDelay.String(), func(f model.Flight) float64 {
		return f.DelayInMinutes
	}); err != nil {
		return nil, err
	}

	if c.dayOfMonth, err = crossfilter.NewDimension(c.filter, config.DimensionDayOfMonth.String(), func(f model.Flight) int {
		return f.DepartedOn.In(loc).Day()
	}); err != nil {
		return nil, err
	}

	if c.dayOfWeek, err = crossfilter.NewDimension(c.filter, config.DimensionDayOfWeek.String(), func(f model.Flight) int {
		return int(f.DepartedOn.In(loc).Weekday())
	}); err != nil {
		return nil, err
	}

	if c.hourOfDay, err = crossfilter.NewDimension(c.filter, config.DimensionHourOfDay.String(), func(f model.Flight) int {
		return f.DepartedOn.In(loc).Hour()
	}); err != nil {
		return nil, err
	}

	c.flightsPerDay = crossfilter.NewGroup(c.time, c.startOfDay, crossfilter.Count[model.Flight]())
	c.byDayOfMonth = crossfilter.NewGroup(c.dayOfMonth, nil, delayReducer())
	c.byDayOfWeek = crossfilter.NewGroup(c.dayOfWeek, nil, delayReducer())
	c.byHourOfDay = crossfilter.NewGroup(c.hourOfDay, nil, delayReducer())
	c.all = crossfilter.NewGroupAll(c.filter, delayReducer())

	return c, nil
}

func delayReducer() crossfilter.Reducer[model.Flight, model.DelayAggregate] {
	return crossfilter.Reducer[model.Flight, model.DelayAggregate]{
		Init:   model.NewDelayAggregate,
		Add:    model.DelayAggregate.Add,
		Remove: model.DelayAggregate.Remove,
	}
}

// delayGroup returns the group of a calendar dimension.
func (c *cube) delayGroup(dimension config.DimensionName) (*crossfilter.Group[model.Flight, int, model.DelayAggregate], *crossfilter.Dimension[model.Flight, int], bool) {
	switch dimension {
	case config.DimensionDayOfMonth:
		return c.byDayOfMonth, c.dayOfMonth, true
	case config.DimensionDayOfWeek:
		return c.byDayOfWeek, c.dayOfWeek, true
	case config.DimensionHourOfDay:
		return c.byHourOfDay, c.hourOfDay, true
	default:
		return nil, nil, false
	}
}

// startOfDay truncates a unix timestamp to midnight, in the time zone of the dashboard.
func (c *cube) startOfDay(sec int64) int64 {
	return startOfDay(time.Unix(sec, 0).In(c.loc)).Unix()
}

// roundToDay rounds a unix timestamp to the nearest midnight.
func (c *cube) roundToDay(sec int64) int64 {
	t := time.Unix(sec, 0).In(c.loc)
	midnight := startOfDay(t)
	next := midnight.AddDate(0, 0, 1)

	if t.Sub(midnight) < next.Sub(t) {
		return midnight.Unix()
	}

	return next.Unix()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// domains of the dimensions with a chart, used to complete group tables.
type domains struct {
	days       []int64
	daysOfWeek []int
	dayOfMonth []int
	hourOfDay  []int
}

// newDomains computes the expected keys of every chart over the period [from, to).
//
// The days of month are those met in the period: a period of one 30-day month has no bin for day 31.
func newDomains(from, to time.Time) domains {
	d := domains{
		daysOfWeek: intRange(0, model.DaysPerWeek),
		hourOfDay:  intRange(0, model.HoursPerDay),
	}

	seen := make(map[int]bool, model.MaxDaysPerMonth)
	for day := startOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		d.days = append(d.days, day.Unix())
		seen[day.Day()] = true
	}

	for day := 1; day <= model.MaxDaysPerMonth; day++ {
		if seen[day] {
			d.dayOfMonth = append(d.dayOfMonth, day)
		}
	}

	return d
}

func (d domains) of(dimension config.DimensionName) []int {
	switch dimension {
	case config.DimensionDayOfMonth:
		return d.dayOfMonth
	case config.DimensionDayOfWeek:
		return d.daysOfWeek
	case config.DimensionHourOfDay:
		return d.hourOfDay
	default:
		return nil
	}
}

func intRange(from, to int) []int {
	r := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		r = append(r, i)
	}

	return r
}
