package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"copytrader/config"
	"copytrader/internal/copier"
	"copytrader/pkg/broker"
	"copytrader/pkg/normalize"

	"go.uber.org/zap"
)

// Service ingests master account trades and hands them to the fan-out
// engine. Polling is the reconciliation path; the order-update stream
// (stream.go) feeds the same dispatch, and the ledger makes the overlap
// harmless.
type Service struct {
	cfg    config.CopyConfig
	client *broker.RESTClient
	engine *copier.Engine
	logger *zap.Logger
}

func NewService(cfg config.CopyConfig, client *broker.RESTClient, engine *copier.Engine, logger *zap.Logger) *Service {
	return &Service{
		cfg:    cfg,
		client: client,
		engine: engine,
		logger: logger,
	}
}

// Run polls the master account until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.pollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("failed to poll master trades", zap.Error(err))
			}
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) error {
	payload, err := s.client.FetchOrders(ctx, s.cfg.MasterAccountID)
	if err != nil {
		return fmt.Errorf("fetch master orders: %w", err)
	}

	trades := normalize.Batch(payload, s.cfg.MasterAccountID)
	for _, trade := range trades {
		if !replicable(trade) {
			continue
		}
		s.dispatch(ctx, trade)
	}
	return nil
}

// dispatch fans one master trade out to all eligible followers.
func (s *Service) dispatch(ctx context.Context, trade normalize.Trade) {
	summary, err := s.engine.FanOut(ctx, requestFromTrade(trade))
	if err != nil {
		s.logger.Warn("fan-out rejected",
			zap.String("trade_id", trade.ID),
			zap.String("symbol", trade.Symbol),
			zap.Error(err))
		return
	}

	if summary.Succeeded > 0 {
		s.logger.Info("trade copied",
			zap.String("trade_id", trade.ID),
			zap.String("symbol", trade.Symbol),
			zap.Int("succeeded", summary.Succeeded),
			zap.Int("failed", summary.Failed),
			zap.Int("skipped", summary.Skipped))
	}
}

// replicable filters for executed trades; open or cancelled orders are
// not copied.
func replicable(t normalize.Trade) bool {
	return t.FilledQty > 0 || strings.EqualFold(t.Status, "COMPLETE")
}

func requestFromTrade(t normalize.Trade) copier.FanOutRequest {
	qty := t.FilledQty
	if qty == 0 {
		qty = t.Quantity
	}
	return copier.FanOutRequest{
		TradeID:   t.ID,
		MasterID:  t.AccountID,
		Symbol:    t.Symbol,
		Side:      t.Side,
		MasterQty: qty,
		Price:     t.Price,
		Product:   t.Product,
		OrderType: t.OrderType,
	}
}
