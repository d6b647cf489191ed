package cache

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultDurationMillis is used when no default duration is configured (one hour).
const DefaultDurationMillis int64 = 3600000

const (
	millisPerSecond = 1000
	millisPerMinute = 60 * millisPerSecond
	millisPerHour   = 60 * millisPerMinute
	millisPerDay    = 24 * millisPerHour
)

var unitMillis = map[string]float64{
	"ms":     1,
	"second": millisPerSecond,
	"minute": millisPerMinute,
	"hour":   millisPerHour,
	"day":    millisPerDay,
	"week":   7 * millisPerDay,
	"month":  30 * millisPerDay,
}

var (
	durationPattern    = regexp.MustCompile(`^([\d.,]+)\s*(\w+)$`)
	coefficientPattern = regexp.MustCompile(`^(\d+(\.\d*)?|\.\d+)`)
)

// ParseDuration converts a duration given as a number of milliseconds or as a
// "<number> <unit>" string into milliseconds. Anything it cannot interpret yields
// defaultMillis.
//
// Note that the unit "m" means milliseconds, not minutes.
func ParseDuration(input any, defaultMillis int64) int64 {
	var ms int64
	switch v := input.(type) {
	case string:
		return parseDurationString(v, defaultMillis)
	case time.Duration:
		ms = v.Milliseconds()
	case int:
		ms = int64(v)
	case int8:
		ms = int64(v)
	case int16:
		ms = int64(v)
	case int32:
		ms = int64(v)
	case int64:
		ms = v
	case uint:
		ms = int64(v)
	case uint8:
		ms = int64(v)
	case uint16:
		ms = int64(v)
	case uint32:
		ms = int64(v)
	case uint64:
		if v > math.MaxInt64 {
			return defaultMillis
		}
		ms = int64(v)
	case float32:
		return millisFromFloat(float64(v), defaultMillis)
	case float64:
		return millisFromFloat(v, defaultMillis)
	default:
		return defaultMillis
	}
	if ms < 0 {
		return defaultMillis
	}
	return ms
}

func parseDurationString(s string, defaultMillis int64) int64 {
	m := durationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return defaultMillis
	}

	unit := strings.ToLower(trimPlural(m[2]))
	if unit == "m" {
		unit = "ms"
	}
	per, ok := unitMillis[unit]
	if !ok {
		return defaultMillis
	}

	return millisFromFloat(math.Round(coefficient(m[1])*per), defaultMillis)
}

// millisFromFloat truncates f to whole milliseconds. Anything that does not fit a
// non-negative int64 yields defaultMillis.
func millisFromFloat(f float64, defaultMillis int64) int64 {
	if math.IsNaN(f) || f < 0 || f >= math.MaxInt64 {
		return defaultMillis
	}
	return int64(f)
}

// trimPlural strips a single trailing "s" or "S".
func trimPlural(unit string) string {
	if n := len(unit); n > 0 && (unit[n-1] == 's' || unit[n-1] == 'S') {
		return unit[:n-1]
	}
	return unit
}

// coefficient reads the leading decimal number of raw, defaulting to 1.
func coefficient(raw string) float64 {
	lead := coefficientPattern.FindString(raw)
	if lead == "" {
		return 1
	}
	f, err := strconv.ParseFloat(lead, 64)
	if err != nil {
		return 1
	}
	return f
}
