package copier

import "testing"

// go test -v --run TestScaledQuantity
func TestScaledQuantity(t *testing.T) {
	cases := []struct {
		name       string
		masterQty  int64
		multiplier float64
		maxQty     int64
		want       int64
	}{
		{"half", 10, 0.5, 0, 5},
		{"double capped", 10, 2.0, 15, 15},
		{"below one lot", 1, 0.1, 0, 0},
		{"floor", 7, 0.5, 0, 3},
		{"exact fraction", 10, 0.1, 0, 1},
		{"identity", 10, 1.0, 0, 10},
		{"cap not binding", 10, 0.5, 100, 5},
		{"negative multiplier", 10, -1.0, 0, 0},
	}

	for _, tc := range cases {
		got := ScaledQuantity(tc.masterQty, tc.multiplier, tc.maxQty)
		if got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
