package normalize

import (
	"testing"
	"time"
)

// go test -v --run TestTimestampLocalFillTime
func TestTimestampLocalFillTime(t *testing.T) {
	got := Timestamp(map[string]any{"FillTime": "2024-02-10 14:30:45"}, nil)

	// Exchange-local 14:30:45 at UTC+5:30 is 09:00:45 UTC.
	want := "2024-02-10T09:00:45.000Z"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

// go test -v --run TestTimestampZoned
func TestTimestampZoned(t *testing.T) {
	got := Timestamp(map[string]any{"order_timestamp": "2024-02-10T14:30:45+05:30"}, nil)

	want := "2024-02-10T09:00:45.000Z"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

// go test -v --run TestTimestampEpoch
func TestTimestampEpoch(t *testing.T) {
	cases := []struct {
		name string
		val  any
		want string
	}{
		{"seconds", float64(1707565845), "2024-02-10T11:50:45.000Z"},
		{"seconds string", "1707565845", "2024-02-10T11:50:45.000Z"},
		{"milliseconds", float64(1707565845123), "2024-02-10T11:50:45.123Z"},
	}

	for _, tc := range cases {
		got := Timestamp(map[string]any{"timestamp": tc.val}, nil)
		if got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

// go test -v --run TestTimestampTimeOfDay
func TestTimestampTimeOfDay(t *testing.T) {
	got := Timestamp(map[string]any{"time": "14:30:45"}, nil)

	parsed, err := time.Parse(TimestampFormat, got)
	if err != nil {
		t.Fatalf("output %q is not canonical: %v", got, err)
	}

	// Today's date in the exchange zone, converted to UTC.
	today := time.Now().In(exchangeTZ)
	want := time.Date(today.Year(), today.Month(), today.Day(), 14, 30, 45, 0, exchangeTZ).UTC()
	if !parsed.Equal(want) {
		t.Errorf("expected %s, got %s", want, parsed)
	}
}

// go test -v --run TestTimestampPriorityOrder
func TestTimestampPriorityOrder(t *testing.T) {
	record := map[string]any{
		"timestamp": float64(1707565845),
		"FillTime":  "2024-02-10 14:30:45",
	}

	// The fill time outranks the generic timestamp.
	got := Timestamp(record, nil)
	if got != "2024-02-10T09:00:45.000Z" {
		t.Errorf("expected FillTime to win, got %s", got)
	}
}

// go test -v --run TestTimestampSkipsUnparseableCandidate
func TestTimestampSkipsUnparseableCandidate(t *testing.T) {
	record := map[string]any{
		"FillTime":  "not a time",
		"timestamp": float64(1707565845),
	}

	got := Timestamp(record, nil)
	if got != "2024-02-10T11:50:45.000Z" {
		t.Errorf("expected fallthrough to timestamp field, got %s", got)
	}
}

// go test -v --run TestTimestampFallback
func TestTimestampFallback(t *testing.T) {
	fallback := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	got := Timestamp(map[string]any{"note": "no time here"}, &fallback)
	if got != "2024-03-01T10:00:00.000Z" {
		t.Errorf("expected fallback instant, got %s", got)
	}
}

// go test -v --run TestTimestampEpochSentinel
func TestTimestampEpochSentinel(t *testing.T) {
	// No recognized field and no fallback must yield the explicit
	// unknown-timestamp sentinel, never the current wall clock.
	got := Timestamp(map[string]any{"note": "no time here"}, nil)

	want := "1970-01-01T00:00:00.000Z"
	if got != want {
		t.Errorf("expected epoch sentinel %s, got %s", want, got)
	}
}
