package source

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/model"
)

var _ Source = &MemorySource{}

// MemorySource serves flights held in memory.
//
// Origins and destinations are served in the order they were declared.
type MemorySource struct {
	options

	origins      []string
	destinations Connections
	flights      map[model.Route][]model.Flight
}

// NewMemorySource builds an empty [MemorySource].
func NewMemorySource(opts ...Option) *MemorySource {
	return &MemorySource{
		options:      optionsWithDefaults(opts),
		destinations: make(Connections),
		flights:      make(map[model.Route][]model.Flight),
	}
}

// AddRoute declares a route and its flights. Declaring a route twice replaces its flights.
func (s *MemorySource) AddRoute(route model.Route, flights ...model.Flight) *MemorySource {
	if _, ok := s.destinations[route.Origin]; !ok {
		s.origins = append(s.origins, route.Origin)
	}

	if !slices.Contains(s.destinations[route.Origin], route.Destination) {
		s.destinations[route.Origin] = append(s.destinations[route.Origin], route.Destination)
	}

	if len(flights) > 0 {
		s.flights[route] = slices.Clone(flights)
	}

	return s
}

// Origins returns the declared origins.
func (s *MemorySource) Origins(ctx context.Context) ([]string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	return slices.Clone(s.origins), nil
}

// Destinations returns the declared destinations of an origin.
func (s *MemorySource) Destinations(ctx context.Context, origin string) ([]string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	return slices.Clone(s.destinations[origin]), nil
}

// Flights of a route. An unknown route has no flight.
func (s *MemorySource) Flights(ctx context.Context, route model.Route) ([]model.Flight, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	flights, ok := s.flights[route]
	if !ok {
		return []model.Flight{}, nil
	}

	return slices.Clone(flights), nil
}

// Connections returns a copy of the declared connections.
func (s *MemorySource) Connections() Connections {
	c := maps.Clone(s.destinations)
	for origin, destinations := range c {
		c[origin] = slices.Clone(destinations)
	}

	return c
}

// Demo builds a [MemorySource] with two origins of three destinations each.
//
// Only route abc-abc-1 has flights: six flights in January 2017, departing in the given time zone.
// Route def-def-1 has an empty flight list and the other routes have no data.
func Demo(loc *time.Location, opts ...Option) *MemorySource {
	if loc == nil {
		loc = time.UTC
	}

	at := func(day, hour int) time.Time {
		return time.Date(2017, time.January, day, hour, 0, 0, 0, loc)
	}

	s := NewMemorySource(opts...)
	s.AddRoute(model.Route{Origin: "abc", Destination: "abc-1"},
		model.Flight{DepartedOn: at(1, 1), DelayInMinutes: 5, DelayRatio: 0.01},
		model.Flight{DepartedOn: at(1, 2), DelayInMinutes: 1, DelayRatio: 0.01},
		model.Flight{DepartedOn: at(2, 2), DelayInMinutes: 10, DelayRatio: 0.2},
		model.Flight{DepartedOn: at(3, 11), DelayInMinutes: -7, DelayRatio: -0.03},
		model.Flight{DepartedOn: at(12, 11), DelayInMinutes: 0, DelayRatio: 0.0},
		model.Flight{DepartedOn: at(31, 16), DelayInMinutes: 3, DelayRatio: 0.02},
	)
	s.AddRoute(model.Route{Origin: "abc", Destination: "abc-2"})
	s.AddRoute(model.Route{Origin: "abc", Destination: "abc-3"})
	s.AddRoute(model.Route{Origin: "def", Destination: "def-1"})
	s.AddRoute(model.Route{Origin: "def", Destination: "def-2"})
	s.AddRoute(model.Route{Origin: "def", Destination: "def-3"})

	return s
}
