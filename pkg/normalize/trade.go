package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"copytrader/pkg/broker"

	"github.com/shopspring/decimal"
)

// Trade is the canonical representation of an executed broker order.
type Trade struct {
	ID        string
	AccountID string
	Symbol    string
	Side      broker.Side
	Quantity  int64
	FilledQty int64
	Price     float64
	Product   string
	OrderType string
	Status    string
	// ExecutedAt is a UTC ISO-8601 string, see TimestampFormat.
	ExecutedAt string
	// Vendor keeps the raw record fields for audit.
	Vendor map[string]any
}

// wrapperKeys are the object keys an order collection may hide behind,
// tried in order when the payload is not a top-level array.
var wrapperKeys = []string{"data", "orders", "trades", "net", "result"}

// idFields are vendor broker-order-id-like fields, in priority order.
var idFields = []string{"order_id", "broker_order_id", "exchange_order_id", "id"}

var (
	symbolFields = []string{"tradingsymbol", "symbol"}
	sideFields   = []string{"transaction_type", "side"}
	qtyFields    = []string{"quantity", "qty"}
	filledFields = []string{"filled_quantity", "traded_quantity"}
	priceFields  = []string{"average_price", "price"}
)

// Batch maps a raw vendor payload into deduplicated canonical Trades,
// newest first. Duplicate identifiers collapse to the first-seen record.
func Batch(payload any, accountID string) []Trade {
	records := unwrapRecords(payload)

	trades := make([]Trade, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		trade := One(rec, accountID)
		if seen[trade.ID] {
			continue
		}
		seen[trade.ID] = true
		trades = append(trades, trade)
	}

	// Newest first. ISO-8601 in one format sorts lexicographically; the
	// stable sort preserves first-seen order within a timestamp.
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].ExecutedAt > trades[j].ExecutedAt
	})

	return trades
}

// One normalizes a single raw vendor record.
func One(rec map[string]any, accountID string) Trade {
	symbol := strings.ToUpper(firstString(rec, symbolFields...))

	side := broker.SideBuy
	if s, ok := broker.ParseSide(firstString(rec, sideFields...)); ok {
		side = s
	}

	price := coerceFloat(first(rec, priceFields...))
	executedAt := Timestamp(rec, nil)

	id := firstString(rec, idFields...)
	if id == "" {
		// Deterministic composite so retried fetches derive the same id.
		id = fmt.Sprintf("%s|%s|%s|%s",
			symbol, executedAt, decimal.NewFromFloat(price).String(), side)
	}

	return Trade{
		ID:         id,
		AccountID:  accountID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   coerceInt(first(rec, qtyFields...)),
		FilledQty:  coerceInt(first(rec, filledFields...)),
		Price:      price,
		Product:    firstString(rec, "product"),
		OrderType:  firstString(rec, "order_type"),
		Status:     firstString(rec, "status"),
		ExecutedAt: executedAt,
		Vendor:     rec,
	}
}

// ExecutedTime parses the trade's canonical timestamp.
func (t Trade) ExecutedTime() time.Time {
	ts, _ := time.Parse(TimestampFormat, t.ExecutedAt)
	return ts
}

// unwrapRecords extracts the record array from the known wrapper shapes.
func unwrapRecords(payload any) []map[string]any {
	switch v := payload.(type) {
	case []any:
		return toRecords(v)
	case []map[string]any:
		return v
	case map[string]any:
		for _, key := range wrapperKeys {
			if inner, ok := v[key]; ok {
				if recs := unwrapRecords(inner); recs != nil {
					return recs
				}
			}
		}
	}
	return nil
}

func toRecords(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}

func first(rec map[string]any, fields ...string) any {
	for _, f := range fields {
		if v, ok := rec[f]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(rec map[string]any, fields ...string) string {
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// coerceFloat converts common scalar types into float64, mapping
// non-numeric or missing input to zero.
func coerceFloat(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return d.InexactFloat64()
	default:
		return 0
	}
}

// coerceInt converts common scalar types into int64, mapping
// non-numeric or missing input to zero.
func coerceInt(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return d.IntPart()
	default:
		return 0
	}
}
