// Package units provides shared constants and conversions for exposure and
// gain units.
package units

import (
	"math"
	"slices"
	"strings"
	"time"
)

// Exposure display units
const (
	Lines        = "lines"
	Microseconds = "us"
	Milliseconds = "ms"
)

// ValidUnits lists the units ConvertExposure understands.
var ValidUnits = []string{Lines, Microseconds, Milliseconds}

// IsValid reports whether unit is one of ValidUnits. Matching is case
// sensitive.
func IsValid(unit string) bool {
	return slices.Contains(ValidUnits, unit)
}

// GetValidUnitsString lists ValidUnits for flag help and error messages.
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// DurationToLines converts an exposure time to whole sensor lines,
// truncating toward zero as the sensor does.
func DurationToLines(d, lineLength time.Duration) uint32 {
	if d <= 0 || lineLength <= 0 {
		return 0
	}
	n := d / lineLength
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// LinesToDuration converts a line count back to an exposure time.
func LinesToDuration(lines uint32, lineLength time.Duration) time.Duration {
	return time.Duration(lines) * lineLength
}

// ConvertExposure expresses an exposure of the given number of lines in the
// target units. Unknown units default to lines.
func ConvertExposure(lines uint32, lineLength time.Duration, targetUnits string) float64 {
	d := LinesToDuration(lines, lineLength)
	switch targetUnits {
	case Microseconds:
		return float64(d) / float64(time.Microsecond)
	case Milliseconds:
		return float64(d) / float64(time.Millisecond)
	default:
		return float64(lines)
	}
}
