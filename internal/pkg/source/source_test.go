package source

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/model"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"connections.json":              {Data: []byte(`{"SFO":["LAX","JFK"],"BOS":["SFO"]}`)},
		"p-SFO-JFK-departedOn.json":     {Data: []byte(`[1483232400,1483236000,1483322400]`)},
		"p-SFO-JFK-delayInMinutes.json": {Data: []byte(`[5,-7,12.5]`)},
		"p-SFO-JFK-delayRatio.json":     {Data: []byte(`[0.01,-0.03,0.2]`)},
		"p-BOS-SFO-departedOn.json":     {Data: []byte(`[1483232400,1483236000]`)},
		"p-BOS-SFO-delayInMinutes.json": {Data: []byte(`[1]`)},
		"p-BOS-SFO-delayRatio.json":     {Data: []byte(`[0.01,0.02]`)},
		"p-SFO-LAX-departedOn.json":     {Data: []byte(`[]`)},
		"p-SFO-LAX-delayInMinutes.json": {Data: []byte(`[]`)},
		"p-SFO-LAX-delayRatio.json":     {Data: []byte(`[]`)},
	}
}

func TestColumnFile(t *testing.T) {
	assert.Equal(t, "p-SFO-JFK-delayRatio.json", ColumnFile(model.Route{Origin: "SFO", Destination: "JFK"}, ColumnDelayRatio))
}

func TestDirSource(t *testing.T) {
	ctx := context.Background()
	s := NewFSSource(testFS())

	t.Run("origins are sorted", func(t *testing.T) {
		origins, err := s.Origins(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"BOS", "SFO"}, origins)
	})

	t.Run("destinations are sorted", func(t *testing.T) {
		destinations, err := s.Destinations(ctx, "SFO")
		require.NoError(t, err)
		assert.Equal(t, []string{"JFK", "LAX"}, destinations)
	})

	t.Run("unknown origin has no destination", func(t *testing.T) {
		destinations, err := s.Destinations(ctx, "XXX")
		require.NoError(t, err)
		assert.Empty(t, destinations)
	})

	t.Run("flights are zipped from columns", func(t *testing.T) {
		flights, err := s.Flights(ctx, model.Route{Origin: "SFO", Destination: "JFK"})
		require.NoError(t, err)
		require.Len(t, flights, 3)

		assert.Equal(t, time.Date(2017, time.January, 1, 1, 0, 0, 0, time.UTC), flights[0].DepartedOn)
		assert.InDelta(t, 5.0, flights[0].DelayInMinutes, 1e-9)
		assert.InDelta(t, -0.03, flights[1].DelayRatio, 1e-9)
		assert.InDelta(t, 12.5, flights[2].DelayInMinutes, 1e-9)
	})

	t.Run("route without data yields no flight", func(t *testing.T) {
		flights, err := s.Flights(ctx, model.Route{Origin: "SFO", Destination: "ORD"})
		require.NoError(t, err)
		assert.NotNil(t, flights)
		assert.Empty(t, flights)
	})

	t.Run("empty route yields no flight", func(t *testing.T) {
		flights, err := s.Flights(ctx, model.Route{Origin: "SFO", Destination: "LAX"})
		require.NoError(t, err)
		assert.Empty(t, flights)
	})

	t.Run("inconsistent columns are rejected", func(t *testing.T) {
		_, err := s.Flights(ctx, model.Route{Origin: "BOS", Destination: "SFO"})
		require.Error(t, err)
	})
}

func TestDirSourceCachesConnections(t *testing.T) {
	ctx := context.Background()
	fsys := testFS()
	s := NewFSSource(fsys)

	_, err := s.Origins(ctx)
	require.NoError(t, err)

	delete(fsys, "connections.json")

	origins, err := s.Origins(ctx)
	require.NoError(t, err)
	assert.Len(t, origins, 2)
}

func TestDirSourceErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing connections", func(t *testing.T) {
		s := NewFSSource(fstest.MapFS{})
		_, err := s.Origins(ctx)
		require.Error(t, err)
	})

	t.Run("invalid connections", func(t *testing.T) {
		s := NewFSSource(fstest.MapFS{"connections.json": {Data: []byte(`["SFO"]`)}})
		_, err := s.Origins(ctx)
		require.Error(t, err)
	})

	t.Run("invalid column", func(t *testing.T) {
		s := NewFSSource(fstest.MapFS{"p-A-B-departedOn.json": {Data: []byte(`{}`)}})
		_, err := s.Flights(ctx, model.Route{Origin: "A", Destination: "B"})
		require.Error(t, err)
	})

	t.Run("canceled context", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		s := NewFSSource(testFS(), WithLatency(time.Minute))
		_, err := s.Flights(canceled, model.Route{Origin: "SFO", Destination: "JFK"})
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestDemo(t *testing.T) {
	ctx := context.Background()
	s := Demo(nil)

	origins, err := s.Origins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "def"}, origins)

	destinations, err := s.Destinations(ctx, "def")
	require.NoError(t, err)
	assert.Equal(t, []string{"def-1", "def-2", "def-3"}, destinations)

	flights, err := s.Flights(ctx, model.Route{Origin: "abc", Destination: "abc-1"})
	require.NoError(t, err)
	require.Len(t, flights, 6)
	assert.Equal(t, 31, flights[5].DepartedOn.Day())

	flights, err = s.Flights(ctx, model.Route{Origin: "def", Destination: "def-1"})
	require.NoError(t, err)
	assert.Empty(t, flights)

	t.Run("returned flights are copies", func(t *testing.T) {
		flights, err := s.Flights(ctx, model.Route{Origin: "abc", Destination: "abc-1"})
		require.NoError(t, err)
		flights[0].DelayInMinutes = 1000

		again, err := s.Flights(ctx, model.Route{Origin: "abc", Destination: "abc-1"})
		require.NoError(t, err)
		assert.InDelta(t, 5.0, again[0].DelayInMinutes, 1e-9)
	})

	t.Run("connections", func(t *testing.T) {
		c := s.Connections()
		assert.Len(t, c, 2)
		assert.Equal(t, []string{"abc-1", "abc-2", "abc-3"}, c["abc"])
	})
}

func TestLatency(t *testing.T) {
	s := Demo(time.UTC, WithLatency(10*time.Millisecond))

	start := time.Now()
	_, err := s.Origins(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
