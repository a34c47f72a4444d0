package dashboard

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fredbi/flightviz/internal/pkg/config"
	"github.com/fredbi/flightviz/internal/pkg/crossfilter"
	"github.com/fredbi/flightviz/internal/pkg/model"
)

// ErrInvalidFilter is returned when a filter request cannot be applied to a dimension.
var ErrInvalidFilter = errors.New("invalid filter")

// FilterRequest describes the filter of a dimension: either a half-open range [lo, hi), or a set of keys.
//
// Keys are given as text and parsed according to the dimension:
//
//   - time: a date like "2017-01-02", an RFC 3339 timestamp, or unix seconds. Range bounds are rounded to days.
//   - delay: minutes, as a decimal number
//   - dayOfMonth, hourOfDay: integers
//   - dayOfWeek: 0 (Sunday) to 6, or a weekday name like "Mondays" or "tue"
//
// An empty range bound leaves that side of the range open.
type FilterRequest struct {
	Range Values `json:"range,omitempty"`
	Keys  Values `json:"keys,omitempty"`
}

// Values is a list of keys as text. In JSON, numbers are accepted as well as strings.
type Values []string

// UnmarshalJSON accepts an array of strings or numbers.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	values := make(Values, 0, len(raw))
	for _, item := range raw {
		switch x := item.(type) {
		case string:
			values = append(values, x)
		case float64:
			values = append(values, strconv.FormatFloat(x, 'f', -1, 64))
		case nil:
			values = append(values, "")
		default:
			return fmt.Errorf("%w: unsupported key %v", ErrInvalidFilter, item)
		}
	}
	*v = values

	return nil
}

// ParseFilter parses a filter expression like "hourOfDay=4:6", "dayOfWeek=1,2" or "time=2017-01-02:2017-01-05".
//
// A colon separates the bounds of a range. A comma separates keys.
func ParseFilter(expr string) (config.DimensionName, FilterRequest, error) {
	name, value, ok := strings.Cut(expr, "=")
	if !ok {
		return "", FilterRequest{}, fmt.Errorf("%w: expected dimension=value, got %q", ErrInvalidFilter, expr)
	}

	dimension := config.DimensionName(strings.TrimSpace(name))
	value = strings.TrimSpace(value)

	if lo, hi, isRange := strings.Cut(value, ":"); isRange {
		return dimension, FilterRequest{Range: Values{strings.TrimSpace(lo), strings.TrimSpace(hi)}}, nil
	}

	var keys Values
	for key := range strings.SplitSeq(value, ",") {
		keys = append(keys, strings.TrimSpace(key))
	}

	return dimension, FilterRequest{Keys: keys}, nil
}

func (r FilterRequest) validate() error {
	switch {
	case len(r.Range) > 0 && len(r.Keys) > 0:
		return fmt.Errorf("%w: range and keys are mutually exclusive", ErrInvalidFilter)
	case len(r.Range) > 0 && len(r.Range) != 2:
		return fmt.Errorf("%w: a range requires 2 bounds, got %d", ErrInvalidFilter, len(r.Range))
	case len(r.Range) == 0 && len(r.Keys) == 0:
		return fmt.Errorf("%w: a range or keys are required", ErrInvalidFilter)
	default:
		return nil
	}
}

// predicate builds the predicate of a request, parsing keys with parse.
//
// Open range bounds are replaced by lowest and highest.
func predicate[K cmp.Ordered](r FilterRequest, parse func(string) (K, error), lowest, highest K) (crossfilter.Predicate[K], error) {
	if err := r.validate(); err != nil {
		return crossfilter.Predicate[K]{}, err
	}

	if len(r.Range) > 0 {
		lo, hi := lowest, highest

		if r.Range[0] != "" {
			v, err := parse(r.Range[0])
			if err != nil {
				return crossfilter.Predicate[K]{}, err
			}
			lo = v
		}

		if r.Range[1] != "" {
			v, err := parse(r.Range[1])
			if err != nil {
				return crossfilter.Predicate[K]{}, err
			}
			hi = v
		}

		return crossfilter.Range(lo, hi), nil
	}

	keys := make([]K, 0, len(r.Keys))
	for _, raw := range r.Keys {
		v, err := parse(raw)
		if err != nil {
			return crossfilter.Predicate[K]{}, err
		}
		keys = append(keys, v)
	}

	return crossfilter.Exact(keys...), nil
}

// applyFilter parses a request for a dimension and applies it. It reports whether the selection changed.
func (c *cube) applyFilter(dimension config.DimensionName, r FilterRequest) (bool, error) {
	name := dimension.String()

	switch dimension {
	case config.DimensionTime:
		p, err := predicate(r, c.parseTime, math.MinInt64, math.MaxInt64)
		if err != nil {
			return false, err
		}

		if lo, hi, ok := p.Bounds(); ok {
			p = c.dayRange(lo, hi)
		}

		return crossfilter.SetFilter(c.filter, name, p)

	case config.DimensionDelay:
		p, err := predicate(r, parseDelay, math.Inf(-1), math.Inf(1))
		if err != nil {
			return false, err
		}

		return crossfilter.SetFilter(c.filter, name, p)

	case config.DimensionDayOfWeek:
		p, err := predicate(r, parseWeekday, math.MinInt, math.MaxInt)
		if err != nil {
			return false, err
		}

		return crossfilter.SetFilter(c.filter, name, p)

	case config.DimensionDayOfMonth, config.DimensionHourOfDay:
		p, err := predicate(r, parseInt, math.MinInt, math.MaxInt)
		if err != nil {
			return false, err
		}

		return crossfilter.SetFilter(c.filter, name, p)

	default:
		_, err := c.filter.Dimension(name)

		return false, err
	}
}

// dayRange rounds the bounds of a time range to days. A range shorter than half a day spans the nearest day.
func (c *cube) dayRange(lo, hi int64) crossfilter.Predicate[int64] {
	if lo != math.MinInt64 {
		lo = c.roundToDay(lo)
	}

	if hi != math.MaxInt64 {
		hi = c.roundToDay(hi)
	}

	if lo == hi {
		hi = time.Unix(lo, 0).In(c.loc).AddDate(0, 0, 1).Unix()
	}

	return crossfilter.Range(lo, hi)
}

func (c *cube) parseTime(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)

	if t, err := time.ParseInLocation(model.DateLayout, raw, c.loc); err == nil {
		return t.Unix(), nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Unix(), nil
	}

	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid time %q: expected a date, an RFC 3339 timestamp or unix seconds", ErrInvalidFilter, raw)
	}

	return sec, nil
}

func parseDelay(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: invalid delay %q", ErrInvalidFilter, raw)
	}

	return v, nil
}

func parseInt(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid key %q", ErrInvalidFilter, raw)
	}

	return v, nil
}

func parseWeekday(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}

	const abbreviated = 3
	if len(raw) >= abbreviated {
		for i, name := range model.WeekdayNames {
			if strings.HasPrefix(strings.ToLower(name), strings.ToLower(raw)) {
				return i, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: invalid day of week %q", ErrInvalidFilter, raw)
}

// describeFilter prints the active filter of a dimension, or an empty string when it is not filtered.
//
// Calendar filters print the sorted keys of their domain which are accepted.
func (c *cube) describeFilter(dimension config.DimensionName, expected domains) string {
	switch dimension {
	case config.DimensionTime:
		return describe(c.time.Predicate(), c.formatDay, c.formatDay)

	case config.DimensionDelay:
		return describe(c.delay.Predicate(), formatMinutes, formatMinutes)

	default:
		_, dim, ok := c.delayGroup(dimension)
		if !ok || !dim.IsFiltered() {
			return ""
		}

		p := dim.Predicate()
		labels := make([]string, 0, len(expected.of(dimension)))
		for _, key := range expected.of(dimension) {
			if p.Accepts(key) {
				labels = append(labels, filterLabel(dimension, key))
			}
		}

		if keys, isKeys := p.Keys(); isKeys {
			// keys outside the expected domain are still reported
			for _, key := range keys {
				if !slices.Contains(expected.of(dimension), key) {
					labels = append(labels, filterLabel(dimension, key))
				}
			}
		}

		return strings.Join(labels, ", ")
	}
}

func describe[K cmp.Ordered](p crossfilter.Predicate[K], formatLo, formatHi func(K) string) string {
	if p.IsAll() {
		return ""
	}

	if lo, hi, ok := p.Bounds(); ok {
		return formatLo(lo) + " to " + formatHi(hi)
	}

	keys, _ := p.Keys()
	labels := make([]string, 0, len(keys))
	for _, key := range keys {
		labels = append(labels, formatLo(key))
	}

	return strings.Join(labels, ", ")
}

func (c *cube) formatDay(sec int64) string {
	switch sec {
	case math.MinInt64, math.MaxInt64:
		return "…"
	default:
		return time.Unix(sec, 0).In(c.loc).Format(model.DateLayout)
	}
}

func formatMinutes(v float64) string {
	if math.IsInf(v, 0) {
		return "…"
	}

	return strconv.FormatFloat(v, 'f', -1, 64)
}

func filterLabel(dimension config.DimensionName, key int) string {
	if dimension == config.DimensionDayOfWeek && key >= 0 && key < model.DaysPerWeek {
		return model.WeekdayNames[key]
	}

	return strconv.Itoa(key)
}
