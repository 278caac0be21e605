package broker

import "encoding/json"

// Envelope represents the standard response wrapper used across broker
// REST endpoints.
type Envelope struct {
	Status  string          `json:"status"`            // "success" or "error"
	Message string          `json:"message,omitempty"` // human-readable error description
	Data    json.RawMessage `json:"data,omitempty"`    // delay decoding; payload shape varies per endpoint
}

// OrderRequest is the order placement payload sent per follower.
type OrderRequest struct {
	Symbol          string  `json:"symbol"`
	TransactionType string  `json:"transaction_type"` // BUY or SELL
	Quantity        int64   `json:"quantity"`
	Product         string  `json:"product"`
	OrderType       string  `json:"order_type"`
	Price           float64 `json:"price"`
	ClientOrderID   string  `json:"client_order_id"` // broker-side idempotency key
}

// OrderResponse is the broker's answer to an order placement.
// Acceptance is signalled by Success or a non-empty OrderID.
type OrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Accepted reports whether the broker took the order.
func (r *OrderResponse) Accepted() bool {
	return r.Success || r.OrderID != ""
}
