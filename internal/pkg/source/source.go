// Package source provides flight data to the dashboard.
//
// A missing destination list or missing flight data for a route yield an empty result, not an error.
package source

import (
	"context"

	"github.com/fredbi/flightviz/internal/pkg/model"
)

// Source lists routes and fetches the flights of a route.
type Source interface {
	Origins(ctx context.Context) ([]string, error)
	Destinations(ctx context.Context, origin string) ([]string, error)
	Flights(ctx context.Context, route model.Route) ([]model.Flight, error)
}

// Connections map each origin to the destinations it serves.
type Connections map[string][]string

// File names of the prepared data layout.
const (
	ConnectionsFile = "connections.json"

	ColumnDepartedOn     = "departedOn"
	ColumnDelayInMinutes = "delayInMinutes"
	ColumnDelayRatio     = "delayRatio"
)

// ColumnFile is the name of the file holding one column of the flights of a route,
// e.g. "p-JFK-LAX-delayRatio.json".
func ColumnFile(route model.Route, column string) string {
	return "p-" + route.Origin + "-" + route.Destination + "-" + column + ".json"
}
