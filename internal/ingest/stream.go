package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"copytrader/pkg/normalize"

	"go.uber.org/zap"
)

// OrderMessage represents a WebSocket message from the broker's
// order-update stream.
type OrderMessage struct {
	Topic string           `json:"topic"` // e.g., "orders.MASTER01"
	Data  []map[string]any `json:"data"`  // raw order/trade records
	Ts    int64            `json:"ts"`    // message timestamp (milliseconds)
	Type  string           `json:"type"`  // e.g., "snapshot" or "update"
}

// MakeStreamHandler returns a handler for incoming order-update messages
// that normalizes each record and fans it out.
func (s *Service) MakeStreamHandler() func(msg []byte) {
	return func(msg []byte) {
		// Extract the topic first for early filtering
		var meta struct {
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(msg, &meta); err != nil {
			s.logger.Warn("failed to extract topic", zap.Error(err))
			return
		}
		if !isOrderTopic(meta.Topic) {
			return // Ignore non-order messages (e.g., subscription acks)
		}

		var parsed OrderMessage
		if err := json.Unmarshal(msg, &parsed); err != nil {
			s.logger.Warn("failed to parse order payload", zap.Error(err))
			return
		}

		for _, rec := range parsed.Data {
			trade := normalize.One(rec, s.cfg.MasterAccountID)
			if !replicable(trade) {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			s.dispatch(ctx, trade)
			cancel()
		}
	}
}

// isOrderTopic returns true if the topic string indicates an order stream.
func isOrderTopic(topic string) bool {
	return strings.HasPrefix(topic, "orders.")
}
