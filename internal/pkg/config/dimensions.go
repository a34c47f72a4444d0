package config

// DimensionName identifies an analytical dimension of flight records.
type DimensionName string

// Dimensions of flight records.
const (
	DimensionTime       DimensionName = "time"
	DimensionDelay      DimensionName = "delay"
	DimensionDayOfMonth DimensionName = "dayOfMonth"
	DimensionDayOfWeek  DimensionName = "dayOfWeek"
	DimensionHourOfDay  DimensionName = "hourOfDay"
)

// String returns the dimension name as a plain string.
func (d DimensionName) String() string {
	return string(d)
}

// IsValid reports whether the dimension name is one of the known dimensions.
func (d DimensionName) IsValid() bool {
	switch d {
	case DimensionTime, DimensionDelay, DimensionDayOfMonth, DimensionDayOfWeek, DimensionHourOfDay:
		return true
	default:
		return false
	}
}

// IsCalendar reports whether the dimension has a small discrete calendar domain.
func (d DimensionName) IsCalendar() bool {
	switch d {
	case DimensionDayOfMonth, DimensionDayOfWeek, DimensionHourOfDay:
		return true
	default:
		return false
	}
}

// AllDimensionNames returns all known dimension names.
func AllDimensionNames() []DimensionName {
	return []DimensionName{
		DimensionTime,
		DimensionDelay,
		DimensionDayOfMonth,
		DimensionDayOfWeek,
		DimensionHourOfDay,
	}
}

// ChartableDimensionNames returns the dimensions which may be displayed as a chart.
//
// The delay dimension ranks the best flights and has no chart of its own.
func ChartableDimensionNames() []DimensionName {
	return []DimensionName{
		DimensionTime,
		DimensionDayOfMonth,
		DimensionDayOfWeek,
		DimensionHourOfDay,
	}
}
