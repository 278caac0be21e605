package normalize

import (
	"strconv"
	"strings"
	"time"
)

// exchangeTZ is the fixed exchange-local offset (UTC+5:30). Vendors emit
// zoneless local timestamps in this zone.
var exchangeTZ = time.FixedZone("IST", 5*3600+30*60)

// timestampFields is the priority-ordered candidate list. Exchange-confirmed
// fill times come first, generic time fields last. The first candidate that
// parses wins; later candidates are never consulted.
var timestampFields = []string{
	"FillTime",
	"fill_timestamp",
	"exchange_timestamp",
	"order_execution_time",
	"order_timestamp",
	"trade_timestamp",
	"created_at",
	"time",
	"timestamp",
}

// TimestampFormat is the canonical UTC ISO-8601 output format.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

const localPattern = "2006-01-02 15:04:05"

// epochMilliThreshold: epoch values above this magnitude are milliseconds.
const epochMilliThreshold = 9_999_999_999

// Timestamp extracts the execution timestamp from a raw vendor record and
// renders it as UTC ISO-8601. When no candidate field parses it returns the
// fallback instant if one is supplied, else the Unix epoch as an explicit
// unknown-timestamp sentinel. It never substitutes the current wall clock,
// which would fabricate a false execution time.
func Timestamp(record map[string]any, fallback *time.Time) string {
	for _, field := range timestampFields {
		val, ok := record[field]
		if !ok || val == nil {
			continue
		}
		if t, ok := parseInstant(val); ok {
			return t.UTC().Format(TimestampFormat)
		}
	}

	if fallback != nil && !fallback.IsZero() {
		return fallback.UTC().Format(TimestampFormat)
	}
	return time.Unix(0, 0).UTC().Format(TimestampFormat)
}

// parseInstant attempts the supported encodings in priority order:
// zoneless exchange-local pattern, timezone-qualified ISO-8601, Unix epoch
// (seconds or milliseconds by magnitude), bare time-of-day.
func parseInstant(val any) (time.Time, bool) {
	switch v := val.(type) {
	case string:
		return parseInstantString(strings.TrimSpace(v))
	case float64:
		return fromEpoch(int64(v)), true
	case int64:
		return fromEpoch(v), true
	case int:
		return fromEpoch(int64(v)), true
	default:
		return time.Time{}, false
	}
}

func parseInstantString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.ParseInLocation(localPattern, s, exchangeTZ); err == nil {
		return t, true
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromEpoch(n), true
	}

	if t, ok := parseTimeOfDay(s); ok {
		return t, true
	}

	return time.Time{}, false
}

func fromEpoch(n int64) time.Time {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	if abs > epochMilliThreshold {
		return time.UnixMilli(n)
	}
	return time.Unix(n, 0)
}

// parseTimeOfDay handles bare HH:MM[:SS] values, placed on today's date
// in the exchange zone.
func parseTimeOfDay(s string) (time.Time, bool) {
	var clock time.Time
	var err error
	switch strings.Count(s, ":") {
	case 1:
		clock, err = time.Parse("15:04", s)
	case 2:
		clock, err = time.Parse("15:04:05", s)
	default:
		return time.Time{}, false
	}
	if err != nil {
		return time.Time{}, false
	}

	now := time.Now().In(exchangeTZ)
	return time.Date(now.Year(), now.Month(), now.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, exchangeTZ), true
}
