// Package metric projects delay aggregates to displayable values.
//
// The projection depends on a [Mode] only: switching mode never touches the aggregates.
package metric

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fredbi/flightviz/internal/pkg/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NoData is the symbol displayed in place of the mean of an empty aggregate.
const NoData = "∅"

// ErrInvalidMode is returned when parsing an unknown [Mode].
var ErrInvalidMode = errors.New("invalid delay mode")

// Mode selects the delay metric to display.
type Mode string

// Supported delay modes.
const (
	ModeAbsolute Mode = "absolute"
	ModeRatio    Mode = "ratio"
)

// String returns the mode as a plain string.
func (m Mode) String() string {
	return string(m)
}

// IsValid reports whether the mode is known.
func (m Mode) IsValid() bool {
	switch m {
	case ModeAbsolute, ModeRatio:
		return true
	default:
		return false
	}
}

// AllModes returns all supported modes.
func AllModes() []Mode {
	return []Mode{ModeAbsolute, ModeRatio}
}

// ParseMode parses a [Mode] from its name.
func ParseMode(name string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(name)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q (should be one of %v)", ErrInvalidMode, name, AllModes())
	}

	return m, nil
}

// Selector holds the current [Mode] and projects aggregates accordingly.
type Selector struct {
	mode Mode
}

// NewSelector builds a [Selector]. An invalid mode falls back to [ModeAbsolute].
func NewSelector(mode Mode) *Selector {
	if !mode.IsValid() {
		mode = ModeAbsolute
	}

	return &Selector{mode: mode}
}

// Mode currently selected.
func (s *Selector) Mode() Mode {
	return s.mode
}

// Set the mode. It reports whether the mode changed: setting the current mode again is a no-op.
func (s *Selector) Set(mode Mode) (bool, error) {
	if !mode.IsValid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	if mode == s.mode {
		return false, nil
	}

	s.mode = mode

	return true, nil
}

// Value projects an aggregate to the mean delay or the mean delay ratio.
//
// It returns false for an empty aggregate.
func (s *Selector) Value(a model.DelayAggregate) (float64, bool) {
	if s.mode == ModeRatio {
		return a.MeanDelayRatio()
	}

	return a.MeanDelay()
}

// FormatBucket formats the projected value of a chart bucket.
func (s *Selector) FormatBucket(a model.DelayAggregate) string {
	v, ok := s.Value(a)
	if !ok {
		return NoData
	}

	if s.mode == ModeRatio {
		return FormatRatio(v)
	}

	return FormatDelay(v)
}

// FormatSummary formats the projected value of the aggregate over the whole selection.
func (s *Selector) FormatSummary(a model.DelayAggregate) string {
	v, ok := s.Value(a)
	if !ok {
		return NoData
	}

	if s.mode == ModeRatio {
		return FormatMeanRatio(v)
	}

	return FormatMeanDelay(v)
}

// Unit displayed along the values of the current mode.
func (s *Selector) Unit() string {
	if s.mode == ModeRatio {
		return "%"
	}

	return "minutes"
}

// FormatDelay formats a delay in minutes with no decimal.
func FormatDelay(v float64) string {
	return fmt.Sprintf("%.0f", v)
}

// FormatMeanDelay formats a mean delay in minutes with one decimal.
func FormatMeanDelay(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// FormatRatio formats a delay ratio as a percentage with no decimal.
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.0f%%", v*model.RatioPercentFactor)
}

// FormatMeanRatio formats a mean delay ratio as a percentage with one decimal.
func FormatMeanRatio(v float64) string {
	return fmt.Sprintf("%.1f%%", v*model.RatioPercentFactor)
}

// Tooltip builds the hover text of a bucket.
//
// Both means are always shown when the bucket holds flights, whatever the current mode.
func Tooltip(title string, a model.DelayAggregate) []string {
	lines := []string{
		title,
		"Number of flights: " + FormatCount(a.Count),
	}

	if delay, ok := a.MeanDelay(); ok {
		lines = append(lines, "Mean delay: "+FormatMeanDelay(delay)+" minutes")
	}

	if ratio, ok := a.MeanDelayRatio(); ok {
		lines = append(lines, "Mean delay ratio: "+FormatMeanRatio(ratio))
	}

	return lines
}

// FormatCount formats an integer with thousands separators.
func FormatCount(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// CountSummary describes the size of the selection relative to the whole record set,
// e.g. "3 of 6 records" or "all of 6 records".
func CountSummary(selected, total int) string {
	p := message.NewPrinter(language.English)
	if selected == total {
		return p.Sprintf("all of %d records", total)
	}

	return p.Sprintf("%d of %d records", selected, total)
}
