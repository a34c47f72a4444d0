package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/model"
)

var _ Source = &DirSource{}

// DirSource reads prepared flight data from a directory.
//
// The layout is the one produced by the prepare package: a connections.json file mapping origins to
// destinations, and one JSON array per column and route.
//
// Connections are read once, then cached.
type DirSource struct {
	options

	fsys fs.FS
	l    *slog.Logger

	mx          sync.Mutex
	connections Connections
}

// NewDirSource builds a [DirSource] over a directory of the local file system.
func NewDirSource(dir string, opts ...Option) *DirSource {
	return NewFSSource(os.DirFS(dir), opts...)
}

// NewFSSource builds a [DirSource] over any file system.
func NewFSSource(fsys fs.FS, opts ...Option) *DirSource {
	return &DirSource{
		options: optionsWithDefaults(opts),
		fsys:    fsys,
		l:       slog.Default().With(slog.String("module", "source")),
	}
}

// Origins returns all origins, sorted.
func (s *DirSource) Origins(ctx context.Context) ([]string, error) {
	connections, err := s.fetchConnections(ctx)
	if err != nil {
		return nil, err
	}

	origins := make([]string, 0, len(connections))
	for origin := range connections {
		origins = append(origins, origin)
	}
	slices.Sort(origins)

	return origins, nil
}

// Destinations returns the destinations served from an origin, sorted.
//
// An unknown origin has no destination.
func (s *DirSource) Destinations(ctx context.Context, origin string) ([]string, error) {
	connections, err := s.fetchConnections(ctx)
	if err != nil {
		return nil, err
	}

	destinations := slices.Clone(connections[origin])
	slices.Sort(destinations)

	return destinations, nil
}

// Flights of a route, zipped from the columns of the route.
//
// A route with no data file yields no flight.
func (s *DirSource) Flights(ctx context.Context, route model.Route) ([]model.Flight, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	var departures []int64
	found, err := s.readColumn(route, ColumnDepartedOn, &departures)
	if err != nil {
		return nil, err
	}
	if !found {
		s.l.Warn("no flight data for route", slog.String("route", route.String()))

		return []model.Flight{}, nil
	}

	var delays, ratios []float64
	if _, err = s.readColumn(route, ColumnDelayInMinutes, &delays); err != nil {
		return nil, err
	}
	if _, err = s.readColumn(route, ColumnDelayRatio, &ratios); err != nil {
		return nil, err
	}

	if len(delays) != len(departures) || len(ratios) != len(departures) {
		return nil, fmt.Errorf("inconsistent columns for route %s: %d departures, %d delays, %d ratios",
			route, len(departures), len(delays), len(ratios),
		)
	}

	flights := make([]model.Flight, len(departures))
	for i, departure := range departures {
		flights[i] = model.Flight{
			DepartedOn:     time.Unix(departure, 0).UTC(),
			DelayInMinutes: delays[i],
			DelayRatio:     ratios[i],
		}
	}

	s.l.Info("flights loaded", slog.String("route", route.String()), slog.Int("flights", len(flights)))

	return flights, nil
}

func (s *DirSource) fetchConnections(ctx context.Context) (Connections, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mx.Lock()
	defer s.mx.Unlock()

	if s.connections != nil {
		return s.connections, nil
	}

	content, err := fs.ReadFile(s.fsys, ConnectionsFile)
	if err != nil {
		return nil, fmt.Errorf("reading connections: %w", err)
	}

	var connections Connections
	if err := json.Unmarshal(content, &connections); err != nil {
		return nil, fmt.Errorf("decoding connections: %w", err)
	}

	if connections == nil {
		connections = make(Connections)
	}
	s.connections = connections

	return connections, nil
}

// readColumn decodes the JSON array of a column. It reports false when the file does not exist.
func (s *DirSource) readColumn(route model.Route, column string, target any) (bool, error) {
	file := ColumnFile(route, column)

	content, err := fs.ReadFile(s.fsys, file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("reading column %q: %w", file, err)
	}

	if err := json.Unmarshal(content, target); err != nil {
		return false, fmt.Errorf("decoding column %q: %w", file, err)
	}

	return true, nil
}
