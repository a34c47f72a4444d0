package metric

import (
	"testing"

	"github.com/fredbi/flightviz/internal/pkg/model"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

// demoAggregate sums the six demo flights: delays 5, 1, 10, -7, 0, 3 and ratios 1%, 1%, 20%, -3%, 0%, 2%.
func demoAggregate() model.DelayAggregate {
	a := model.NewDelayAggregate()
	for _, f := range []model.Flight{
		{DelayInMinutes: 5, DelayRatio: 0.01},
		{DelayInMinutes: 1, DelayRatio: 0.01},
		{DelayInMinutes: 10, DelayRatio: 0.2},
		{DelayInMinutes: -7, DelayRatio: -0.03},
		{DelayInMinutes: 0, DelayRatio: 0.0},
		{DelayInMinutes: 3, DelayRatio: 0.02},
	} {
		a = a.Add(f)
	}

	return a
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"absolute", "ratio", " Ratio "} {
		m, err := ParseMode(name)
		require.NoError(t, err)
		assert.True(t, m.IsValid())
	}

	_, err := ParseMode("relative")
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestNewSelector(t *testing.T) {
	assert.Equal(t, ModeAbsolute, NewSelector("").Mode())
	assert.Equal(t, ModeRatio, NewSelector(ModeRatio).Mode())
}

func TestSelectorSummary(t *testing.T) {
	a := demoAggregate()
	s := NewSelector(ModeAbsolute)

	t.Run("absolute mean delay", func(t *testing.T) {
		v, ok := s.Value(a)
		require.True(t, ok)
		assert.InDelta(t, 2.0, v, 1e-9)
		assert.Equal(t, "2.0", s.FormatSummary(a))
		assert.Equal(t, "2", s.FormatBucket(a))
		assert.Equal(t, "minutes", s.Unit())
	})

	t.Run("ratio mean delay", func(t *testing.T) {
		changed, err := s.Set(ModeRatio)
		require.NoError(t, err)
		require.True(t, changed)

		v, ok := s.Value(a)
		require.True(t, ok)
		assert.InDelta(t, 0.035, v, 1e-9)
		assert.Equal(t, "3.5%", s.FormatSummary(a))
		assert.Equal(t, "4%", s.FormatBucket(a))
	})

	t.Run("switching back reproduces the absolute display", func(t *testing.T) {
		changed, err := s.Set(ModeAbsolute)
		require.NoError(t, err)
		require.True(t, changed)
		assert.Equal(t, "2.0", s.FormatSummary(a))
	})

	t.Run("setting the same mode is a no-op", func(t *testing.T) {
		changed, err := s.Set(ModeAbsolute)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("invalid mode is rejected", func(t *testing.T) {
		changed, err := s.Set("relative")
		require.ErrorIs(t, err, ErrInvalidMode)
		assert.False(t, changed)
		assert.Equal(t, ModeAbsolute, s.Mode())
	})
}

func TestEmptyAggregate(t *testing.T) {
	empty := model.NewDelayAggregate()

	for _, mode := range AllModes() {
		t.Run(mode.String(), func(t *testing.T) {
			s := NewSelector(mode)

			_, ok := s.Value(empty)
			assert.False(t, ok)
			assert.Equal(t, NoData, s.FormatBucket(empty))
			assert.Equal(t, NoData, s.FormatSummary(empty))
		})
	}
}

func TestTooltip(t *testing.T) {
	t.Run("with flights", func(t *testing.T) {
		lines := Tooltip("Day 1", demoAggregate())
		assert.Equal(t, []string{
			"Day 1",
			"Number of flights: 6",
			"Mean delay: 2.0 minutes",
			"Mean delay ratio: 3.5%",
		}, lines)
	})

	t.Run("without flights", func(t *testing.T) {
		lines := Tooltip("Mondays", model.NewDelayAggregate())
		assert.Equal(t, []string{"Mondays", "Number of flights: 0"}, lines)
	})
}

func TestCountSummary(t *testing.T) {
	assert.Equal(t, "all of 6 records", CountSummary(6, 6))
	assert.Equal(t, "1 of 6 records", CountSummary(1, 6))
	assert.Equal(t, "all of 0 records", CountSummary(0, 0))
	assert.Equal(t, "1,234 of 56,789 records", CountSummary(1234, 56789))
	assert.Equal(t, "12,345", FormatCount(12345))
}

func TestFormats(t *testing.T) {
	assert.Equal(t, "-7", FormatDelay(-7))
	assert.Equal(t, "-7.0", FormatMeanDelay(-7))
	assert.Equal(t, "20%", FormatRatio(0.2))
	assert.Equal(t, "-3.0%", FormatMeanRatio(-0.03))
}
