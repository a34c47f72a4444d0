// Package dashboard orchestrates the flight delay dashboard: route selection, data fetching, filtering and
// metric switching, each followed by a redraw.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/metric"
	"github.com/fredbi/flightviz/internal/pkg/model"
	"github.com/fredbi/flightviz/internal/pkg/source"
)

// ErrNotReady is returned when filtering while the data of the selected route is loading.
var ErrNotReady = errors.New("dashboard is not ready: route data is loading")

// Sink is notified with a fresh [View] after every mutation of the dashboard.
//
// Redraw is called while the dashboard is locked: it must not block nor call the [Controller] back.
type Sink interface {
	Redraw(View)
}

// SinkFunc adapts a function to a [Sink].
type SinkFunc func(View)

// Redraw calls f.
func (f SinkFunc) Redraw(v View) {
	f(v)
}

// Controller holds the state of the dashboard.
//
// Mutations are serialized. Data is fetched without holding the lock: a response arriving after
// another route has been selected is discarded.
type Controller struct {
	options

	cfg *config.Config
	src source.Source
	l   *slog.Logger

	mx           sync.Mutex
	generation   uint64
	ready        bool
	origins      []string
	destinations []string
	route        model.Route
	cube         *cube
	domains      domains
	selector     *metric.Selector
	view         View
}

// New builds a [Controller] over a data source. No data is fetched until [Controller.Start] is called.
func New(cfg *config.Config, src source.Source, opts ...Option) (*Controller, error) {
	cb, err := newCube(cfg.TimeLocation())
	if err != nil {
		return nil, fmt.Errorf("indexing dimensions: %w", err)
	}

	c := &Controller{
		options:  optionsWithDefaults(opts),
		cfg:      cfg,
		src:      src,
		l:        slog.Default().With(slog.String("module", "dashboard")),
		cube:     cb,
		domains:  newDomains(cfg.TimeRange()),
		selector: metric.NewSelector(cfg.Mode),
	}
	c.view = c.buildView()

	return c, nil
}

// Start fetches the origins, then selects the configured route.
//
// When no route is configured, the first origin is selected, then its first destination.
func (c *Controller) Start(ctx context.Context) error {
	origins, err := c.src.Origins(ctx)
	if err != nil {
		return fmt.Errorf("fetching origins: %w", err)
	}

	c.mx.Lock()
	c.origins = origins
	c.mx.Unlock()

	c.l.Info("origins fetched", slog.Int("origins", len(origins)))

	switch {
	case c.cfg.Route.Origin != "" && c.cfg.Route.Destination != "":
		return c.SelectRoute(ctx, c.cfg.Route)
	case c.cfg.Route.Origin != "":
		return c.SelectOrigin(ctx, c.cfg.Route.Origin)
	case len(origins) > 0:
		return c.SelectOrigin(ctx, origins[0])
	default:
		c.l.Warn("no origin available")
		c.mutate(func() bool {
			c.ready = true

			return true
		})

		return nil
	}
}

// AddSink registers a sink, notified of every subsequent redraw.
//
// The sink is redrawn at once with the current view.
func (c *Controller) AddSink(s Sink) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.sinks = append(c.sinks, s)
	s.Redraw(c.view)
}

// View returns the latest snapshot of the dashboard.
func (c *Controller) View() View {
	c.mx.Lock()
	defer c.mx.Unlock()

	return c.view
}

// IsReady reports whether the data of the selected route is loaded.
func (c *Controller) IsReady() bool {
	c.mx.Lock()
	defer c.mx.Unlock()

	return c.ready
}

// Route currently selected.
func (c *Controller) Route() model.Route {
	c.mx.Lock()
	defer c.mx.Unlock()

	return c.route
}

// Origins fetched by [Controller.Start].
func (c *Controller) Origins() []string {
	return c.View().Origins
}

// Destinations served from an origin.
func (c *Controller) Destinations(ctx context.Context, origin string) ([]string, error) {
	return c.src.Destinations(ctx, origin)
}

// SelectOrigin selects an origin, fetches its destinations then the flights to the first destination.
//
// An origin without destination leaves the dashboard empty.
func (c *Controller) SelectOrigin(ctx context.Context, origin string) error {
	generation := c.begin(model.Route{Origin: origin})

	destinations, err := c.src.Destinations(ctx, origin)
	if err != nil {
		c.settle(generation, nil)

		return fmt.Errorf("fetching destinations of %q: %w", origin, err)
	}

	if !c.setDestinations(generation, destinations) {
		return nil
	}

	if len(destinations) == 0 {
		c.l.Warn("no destination for origin", slog.String("origin", origin))
		c.settle(generation, nil)

		return nil
	}

	return c.load(ctx, generation, model.Route{Origin: origin, Destination: destinations[0]})
}

// SelectRoute selects a route and fetches its flights.
//
// Active filters are retained and apply to the flights of the new route.
func (c *Controller) SelectRoute(ctx context.Context, route model.Route) error {
	c.mx.Lock()
	sameOrigin := route.Origin == c.route.Origin && c.destinations != nil
	c.mx.Unlock()

	generation := c.begin(route)

	if !sameOrigin {
		destinations, err := c.src.Destinations(ctx, route.Origin)
		if err != nil {
			c.settle(generation, nil)

			return fmt.Errorf("fetching destinations of %q: %w", route.Origin, err)
		}

		if !c.setDestinations(generation, destinations) {
			return nil
		}
	}

	return c.load(ctx, generation, route)
}

// SetFilter applies a filter to a dimension. It reports whether the selection changed.
//
// Setting the same filter twice is a no-op.
func (c *Controller) SetFilter(dimension config.DimensionName, r FilterRequest) (bool, error) {
	return c.filter(func() (bool, error) {
		return c.cube.applyFilter(dimension, r)
	})
}

// ClearFilter removes the filter of a dimension. It reports whether the selection changed.
func (c *Controller) ClearFilter(dimension config.DimensionName) (bool, error) {
	return c.filter(func() (bool, error) {
		return c.cube.filter.ClearFilter(dimension.String())
	})
}

// ClearAll removes the filters of all dimensions. It reports whether the selection changed.
func (c *Controller) ClearAll() (bool, error) {
	return c.filter(func() (bool, error) {
		return c.cube.filter.FilterAll(), nil
	})
}

// SetMode switches the delay metric. It reports whether the mode changed.
//
// Only the projection of the aggregates changes: the mode may be switched while loading.
func (c *Controller) SetMode(mode metric.Mode) (bool, error) {
	var err error

	changed := c.mutate(func() bool {
		var changed bool
		changed, err = c.selector.Set(mode)

		return changed
	})

	if changed {
		c.l.Info("mode switched", slog.String("mode", mode.String()))
	}

	return changed, err
}

func (c *Controller) filter(apply func() (bool, error)) (bool, error) {
	var err error

	changed := c.mutate(func() bool {
		if !c.ready {
			err = ErrNotReady

			return false
		}

		var changed bool
		changed, err = apply()

		return changed
	})

	return changed, err
}

// mutate runs a mutation under the lock, then redraws if it reports a change.
func (c *Controller) mutate(mutation func() bool) bool {
	c.mx.Lock()
	defer c.mx.Unlock()

	if !mutation() {
		return false
	}

	c.redraw()

	return true
}

// begin starts a new selection, abandoning any selection in progress.
func (c *Controller) begin(route model.Route) uint64 {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.generation++
	c.ready = false
	if route.Origin != c.route.Origin {
		c.destinations = nil
	}
	c.route = route
	c.redraw()

	return c.generation
}

// setDestinations records the destinations of the selected origin. It reports false if the selection is stale.
func (c *Controller) setDestinations(generation uint64, destinations []string) bool {
	c.mx.Lock()
	defer c.mx.Unlock()

	if generation != c.generation {
		c.l.Warn("discarded stale destinations", slog.Uint64("generation", generation))

		return false
	}

	c.destinations = destinations
	if destinations == nil {
		c.destinations = []string{}
	}

	return true
}

// load fetches the flights of a route and replaces the records of the dashboard.
func (c *Controller) load(ctx context.Context, generation uint64, route model.Route) error {
	c.mx.Lock()
	if generation != c.generation {
		c.mx.Unlock()

		return nil
	}
	c.route = route
	c.mx.Unlock()

	flights, err := c.src.Flights(ctx, route)
	if err != nil {
		c.settle(generation, nil)

		return fmt.Errorf("fetching flights of route %s: %w", route, err)
	}

	if c.settle(generation, flights) {
		c.l.Info("route loaded", slog.String("route", route.String()), slog.Int("flights", len(flights)))
	}

	return nil
}

// settle replaces the flights of the dashboard when the selection is still current, and marks it ready.
//
// It reports false when the selection was abandoned in the meantime: the flights are then discarded.
func (c *Controller) settle(generation uint64, flights []model.Flight) bool {
	c.mx.Lock()
	defer c.mx.Unlock()

	if generation != c.generation {
		c.l.Warn("discarded stale flights", slog.Uint64("generation", generation), slog.Int("flights", len(flights)))

		return false
	}

	c.cube.filter.ReplaceAll(flights)
	c.ready = true
	c.redraw()

	return true
}

// redraw rebuilds the view and notifies the sinks. The lock must be held.
func (c *Controller) redraw() {
	c.view = c.buildView()

	for _, s := range c.sinks {
		s.Redraw(c.view)
	}
}
