package normalize

import (
	"encoding/json"
	"testing"

	"copytrader/pkg/broker"
)

// go test -v --run TestBatchWrapperShapes
func TestBatchWrapperShapes(t *testing.T) {
	payloads := []string{
		`[{"order_id":"o1","tradingsymbol":"INFY","transaction_type":"BUY","quantity":5}]`,
		`{"data":[{"order_id":"o1","tradingsymbol":"INFY","transaction_type":"BUY","quantity":5}]}`,
		`{"result":{"orders":[{"order_id":"o1","tradingsymbol":"INFY","transaction_type":"BUY","quantity":5}]}}`,
	}

	for _, raw := range payloads {
		var payload any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			t.Fatalf("bad fixture: %v", err)
		}

		trades := Batch(payload, "MASTER1")
		if len(trades) != 1 {
			t.Fatalf("payload %s: expected 1 trade, got %d", raw, len(trades))
		}
		if trades[0].ID != "o1" || trades[0].Symbol != "INFY" || trades[0].Quantity != 5 {
			t.Errorf("payload %s: unexpected trade %+v", raw, trades[0])
		}
		if trades[0].AccountID != "MASTER1" {
			t.Errorf("expected account MASTER1, got %s", trades[0].AccountID)
		}
	}
}

// go test -v --run TestBatchDedup
func TestBatchDedup(t *testing.T) {
	records := []map[string]any{
		{"order_id": "o1", "tradingsymbol": "INFY", "average_price": 100.0},
		{"order_id": "o1", "tradingsymbol": "INFY", "average_price": 999.0},
		{"order_id": "o2", "tradingsymbol": "TCS", "average_price": 50.0},
	}

	trades := Batch(records, "M")
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	for _, trade := range trades {
		if trade.ID == "o1" && trade.Price != 100.0 {
			t.Errorf("expected first-seen record retained, got price %v", trade.Price)
		}
	}
}

// go test -v --run TestBatchNewestFirst
func TestBatchNewestFirst(t *testing.T) {
	records := []map[string]any{
		{"order_id": "old", "order_timestamp": "2024-02-10 09:15:00"},
		{"order_id": "new", "order_timestamp": "2024-02-10 15:29:00"},
	}

	trades := Batch(records, "M")
	if len(trades) != 2 || trades[0].ID != "new" {
		t.Fatalf("expected newest trade first, got %+v", trades)
	}
}

// go test -v --run TestOneSideTokens
func TestOneSideTokens(t *testing.T) {
	cases := []struct {
		token string
		want  broker.Side
	}{
		{"BUY", broker.SideBuy},
		{"B", broker.SideBuy},
		{"sell", broker.SideSell},
		{"S", broker.SideSell},
		{"HOLD", broker.SideBuy}, // unknown tokens default to buy
	}

	for _, tc := range cases {
		trade := One(map[string]any{"order_id": "o1", "transaction_type": tc.token}, "M")
		if trade.Side != tc.want {
			t.Errorf("token %q: expected %s, got %s", tc.token, tc.want, trade.Side)
		}
	}
}

// go test -v --run TestOneCoercion
func TestOneCoercion(t *testing.T) {
	trade := One(map[string]any{
		"order_id":        "o1",
		"quantity":        "10",
		"filled_quantity": float64(7),
		"average_price":   "101.25",
	}, "M")

	if trade.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", trade.Quantity)
	}
	if trade.FilledQty != 7 {
		t.Errorf("expected filled 7, got %d", trade.FilledQty)
	}
	if trade.Price != 101.25 {
		t.Errorf("expected price 101.25, got %v", trade.Price)
	}

	garbage := One(map[string]any{"order_id": "o2", "quantity": "n/a", "average_price": true}, "M")
	if garbage.Quantity != 0 || garbage.Price != 0 {
		t.Errorf("expected non-numeric fields coerced to zero, got %+v", garbage)
	}
}

// go test -v --run TestOneCompositeID
func TestOneCompositeID(t *testing.T) {
	rec := map[string]any{
		"tradingsymbol":    "INFY",
		"transaction_type": "BUY",
		"average_price":    101.5,
		"order_timestamp":  "2024-02-10 14:30:45",
	}

	a := One(rec, "M")
	b := One(rec, "M")
	if a.ID == "" {
		t.Fatal("expected composite id for record without vendor id")
	}
	if a.ID != b.ID {
		t.Errorf("composite id not deterministic: %q vs %q", a.ID, b.ID)
	}

	other := One(map[string]any{
		"tradingsymbol":    "INFY",
		"transaction_type": "SELL",
		"average_price":    101.5,
		"order_timestamp":  "2024-02-10 14:30:45",
	}, "M")
	if other.ID == a.ID {
		t.Error("expected differing side to change the composite id")
	}
}
