package model

import (
	"time"
)

// Flight is a single flight record of a route.
//
// A [Flight] carries no identity: two flights with the same departure time and delays are interchangeable.
// Flights are immutable once loaded.
type Flight struct {
	DepartedOn     time.Time `json:"departedOn"`
	DelayInMinutes float64   `json:"delayInMinutes"`
	DelayRatio     float64   `json:"delayRatio"`
}

// Route identifies a connection between two airports.
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// IsZero reports whether no route is set.
func (r Route) IsZero() bool {
	return r.Origin == "" && r.Destination == ""
}

// String renders the route as "{origin}-{destination}".
func (r Route) String() string {
	return r.Origin + "-" + r.Destination
}

// DelayAggregate accumulates the delays of a group of flights.
//
// Sums are only meaningful when Count is positive.
type DelayAggregate struct {
	Count         int     `json:"count"`
	SumDelay      float64 `json:"sumDelay"`
	SumDelayRatio float64 `json:"sumDelayRatio"`
}

// NewDelayAggregate yields an empty aggregate.
func NewDelayAggregate() DelayAggregate {
	return DelayAggregate{}
}

// Add a flight to the aggregate.
func (a DelayAggregate) Add(f Flight) DelayAggregate {
	a.Count++
	a.SumDelay += f.DelayInMinutes
	a.SumDelayRatio += f.DelayRatio

	return a
}

// Remove a flight previously added to the aggregate.
func (a DelayAggregate) Remove(f Flight) DelayAggregate {
	a.Count--
	a.SumDelay -= f.DelayInMinutes
	a.SumDelayRatio -= f.DelayRatio

	return a
}

// IsEmpty reports whether the aggregate holds no flight.
func (a DelayAggregate) IsEmpty() bool {
	return a.Count <= 0
}

// MeanDelay yields the mean delay in minutes, or false when the aggregate is empty.
func (a DelayAggregate) MeanDelay() (float64, bool) {
	if a.IsEmpty() {
		return 0, false
	}

	return a.SumDelay / float64(a.Count), true
}

// MeanDelayRatio yields the mean delay ratio, or false when the aggregate is empty.
func (a DelayAggregate) MeanDelayRatio() (float64, bool) {
	if a.IsEmpty() {
		return 0, false
	}

	return a.SumDelayRatio / float64(a.Count), true
}

// WeekdayNames are the plural weekday names used as day-of-week labels, indexed by [time.Weekday].
var WeekdayNames = [7]string{"Sundays", "Mondays", "Tuesdays", "Wednesdays", "Thursdays", "Fridays", "Saturdays"}

// Date and time layouts used to display flights.
const (
	DateLayout      = "2006-01-02"
	DepartureLayout = "01/02/2006 15:04:05"
)

// Calendar domains.
const (
	HoursPerDay     = 24
	DaysPerWeek     = 7
	MaxDaysPerMonth = 31
)

// RatioPercentFactor converts a delay ratio to a percentage.
const RatioPercentFactor = 100
