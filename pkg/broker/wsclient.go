package broker

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClient handles the WebSocket connection to the broker's order-update
// stream and message routing.
type WSClient struct {
	url       string
	accountID string
	conn      *websocket.Conn
	handler   func([]byte)
	logger    *zap.Logger
}

// NewWSClient creates a stream client for one account's order updates.
func NewWSClient(url, accountID string, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:       url,
		accountID: accountID,
		logger:    logger,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// Connect establishes the WebSocket connection and subscribes to the
// account's order-update channel. It does not start the listener.
func (c *WSClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.conn = conn
	c.logger.Info("WebSocket connected", zap.String("url", c.url))

	if err := c.subscribe(); err != nil {
		c.logger.Error("Failed to send subscription", zap.Error(err))
		return err
	}

	return nil
}

func (c *WSClient) Listen() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Error("WebSocket read error", zap.Error(err))

			// Retry reconnecting indefinitely
			for {
				time.Sleep(3 * time.Second)
				if err := c.reconnectAndResubscribe(); err != nil {
					c.logger.Warn("Retrying reconnect...")
					continue
				}
				c.logger.Info("Reconnected successfully")
				break
			}
			continue // Start listening again with the new connection
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

func (c *WSClient) subscribe() error {
	subMsg := map[string]interface{}{
		"op":   "subscribe",
		"args": []string{fmt.Sprintf("orders.%s", c.accountID)},
	}
	return c.conn.WriteJSON(subMsg)
}

func (c *WSClient) reconnectAndResubscribe() error {
	newConn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	// Close the old connection if it exists
	if c.conn != nil {
		_ = c.conn.Close()
	}

	c.conn = newConn

	if err := c.subscribe(); err != nil {
		return fmt.Errorf("websocket subscribe failed: %w", err)
	}

	return nil
}
