package copier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"copytrader/pkg/broker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrValidation marks fan-out requests rejected before any per-follower
// work. These are caller errors and must not be retried blindly.
var ErrValidation = errors.New("invalid fan-out request")

// ErrDirectory marks fan-out calls aborted because follower eligibility
// could not be determined.
var ErrDirectory = errors.New("follower directory unavailable")

// FanOutRequest replicates one master trade onto followers.
type FanOutRequest struct {
	TradeID   string // idempotency key, required
	MasterID  string
	Symbol    string
	Side      broker.Side
	MasterQty int64
	Price     float64
	Product   string
	OrderType string

	// FollowerIDs selects explicit targets; empty means all eligible
	// followers of the master.
	FollowerIDs []string
}

// Summary aggregates one fan-out call. A call that placed some orders and
// failed others is still a successful call; consumers must inspect the
// per-follower attempts, not a boolean.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Attempts  []CopyAttempt
}

// Metrics are running engine counters.
type Metrics struct {
	TradesCopied  int64
	TradesFailed  int64
	TradesSkipped int64
	LastCopyTime  time.Time
}

// Engine replicates master trades across followers, at most once per
// (trade, follower) pair.
type Engine struct {
	ledger    Ledger
	directory Directory
	placer    OrderPlacer
	logger    *zap.Logger

	metricsMu sync.Mutex
	metrics   Metrics
}

func NewEngine(ledger Ledger, directory Directory, placer OrderPlacer, logger *zap.Logger) *Engine {
	return &Engine{
		ledger:    ledger,
		directory: directory,
		placer:    placer,
		logger:    logger,
	}
}

// FanOut runs the per-follower copy algorithm in follower-list order.
// Per-follower failures never abort the remaining followers; only
// validation and directory errors fail the whole call. Cancelling ctx
// stops issuing further follower calls but lets a dispatched broker call
// run to completion — sent orders cannot be un-sent.
func (e *Engine) FanOut(ctx context.Context, req FanOutRequest) (*Summary, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	followers, err := e.selectFollowers(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectory, err)
	}

	summary := &Summary{Total: len(followers)}
	for _, follower := range followers {
		if ctx.Err() != nil {
			e.logger.Warn("fan-out cancelled, remaining followers not attempted",
				zap.String("trade_id", req.TradeID),
				zap.Int("attempted", len(summary.Attempts)),
				zap.Int("total", summary.Total))
			break
		}

		attempt := e.copyToFollower(ctx, req, follower)
		summary.Attempts = append(summary.Attempts, attempt)

		switch attempt.Outcome {
		case OutcomeSuccess:
			summary.Succeeded++
		case OutcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	e.record(summary)

	e.logger.Info("fan-out complete",
		zap.String("trade_id", req.TradeID),
		zap.String("symbol", req.Symbol),
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped))

	return summary, nil
}

// copyToFollower executes the three-step per-follower algorithm:
// ledger check, quantity computation, place-and-record.
func (e *Engine) copyToFollower(ctx context.Context, req FanOutRequest, follower Follower) CopyAttempt {
	attempt := CopyAttempt{
		TradeID:     req.TradeID,
		FollowerID:  follower.ID,
		AttemptedAt: time.Now().UTC(),
	}

	// Re-check eligibility regardless of where the directory filter lives.
	if !follower.Eligible() {
		attempt.Outcome = OutcomeSkipped
		attempt.Reason = ReasonNotEligible
		return attempt
	}

	existing, err := e.ledger.Lookup(ctx, req.TradeID, follower.ID)
	if err != nil {
		// Without the ledger we cannot guarantee at-most-once, so no
		// broker call is made. The pair stays unrecorded and a later
		// retry picks it up.
		attempt.Outcome = OutcomeFailed
		attempt.Reason = fmt.Sprintf("ledger lookup failed: %v", err)
		return attempt
	}
	if existing != nil {
		attempt.Outcome = OutcomeSkipped
		attempt.Reason = ReasonAlreadyProcessed
		return attempt
	}

	qty := ScaledQuantity(req.MasterQty, follower.LotMultiplier, follower.MaxOrderQty)
	attempt.Quantity = qty
	if qty == 0 {
		// Not an idempotency decision: the computation is pure and
		// yields the same skip on every retry, so no ledger entry.
		attempt.Outcome = OutcomeSkipped
		attempt.Reason = ReasonQuantityTooSmall
		return attempt
	}

	// Reserve the key immediately before the broker call. Losing a
	// concurrent race here is equivalent to finding an existing record.
	attempt.Outcome = OutcomePending
	inserted, err := e.ledger.InsertIfAbsent(ctx, attempt)
	if err != nil {
		attempt.Outcome = OutcomeFailed
		attempt.Reason = fmt.Sprintf("ledger insert failed: %v", err)
		return attempt
	}
	if !inserted {
		attempt.Outcome = OutcomeSkipped
		attempt.Reason = ReasonAlreadyProcessed
		return attempt
	}

	// A dispatched order runs to completion even if the caller cancels.
	callCtx := context.WithoutCancel(ctx)

	order := broker.OrderRequest{
		Symbol:          req.Symbol,
		TransactionType: string(req.Side),
		Quantity:        qty,
		Product:         req.Product,
		OrderType:       req.OrderType,
		Price:           req.Price,
		ClientOrderID:   uuid.NewString(),
	}

	resp, err := e.placer.PlaceOrder(callCtx, follower.CredentialRef, order)
	switch {
	case err != nil:
		attempt.Outcome = OutcomeFailed
		attempt.Reason = err.Error()
	case resp.Accepted():
		attempt.Outcome = OutcomeSuccess
		attempt.BrokerOrderID = resp.OrderID
	default:
		attempt.Outcome = OutcomeFailed
		attempt.Reason = rejectionReason(resp)
	}

	if err := e.ledger.Finalize(callCtx, req.TradeID, follower.ID, attempt.Outcome, attempt.Reason, attempt.BrokerOrderID); err != nil {
		e.logger.Warn("failed to finalize ledger record",
			zap.String("trade_id", req.TradeID),
			zap.String("follower_id", follower.ID),
			zap.Error(err))
	}

	if attempt.Outcome == OutcomeFailed {
		e.logger.Warn("order placement failed",
			zap.String("trade_id", req.TradeID),
			zap.String("follower_id", follower.ID),
			zap.String("reason", attempt.Reason))
	}

	return attempt
}

func (e *Engine) selectFollowers(ctx context.Context, req FanOutRequest) ([]Follower, error) {
	if len(req.FollowerIDs) == 0 {
		return e.directory.ListEligible(ctx, req.MasterID)
	}

	followers := make([]Follower, 0, len(req.FollowerIDs))
	for _, id := range req.FollowerIDs {
		f, err := e.directory.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if f == nil {
			// Unknown id: report it as an ineligible follower rather
			// than aborting the call.
			followers = append(followers, Follower{ID: id})
			continue
		}
		followers = append(followers, *f)
	}
	return followers, nil
}

func validate(req FanOutRequest) error {
	if req.TradeID == "" {
		return fmt.Errorf("%w: trade id (idempotency key) is required", ErrValidation)
	}
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if _, ok := broker.ParseSide(string(req.Side)); !ok {
		return fmt.Errorf("%w: side %q is not valid", ErrValidation, req.Side)
	}
	if req.MasterQty <= 0 {
		return fmt.Errorf("%w: master quantity must be positive", ErrValidation)
	}
	if req.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrValidation)
	}
	return nil
}

func rejectionReason(resp *broker.OrderResponse) string {
	if resp.Message != "" {
		return resp.Message
	}
	if resp.Status != "" {
		return fmt.Sprintf("order rejected with status %s", resp.Status)
	}
	return "order rejected"
}

func (e *Engine) record(summary *Summary) {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()

	e.metrics.TradesCopied += int64(summary.Succeeded)
	e.metrics.TradesFailed += int64(summary.Failed)
	e.metrics.TradesSkipped += int64(summary.Skipped)
	if summary.Succeeded > 0 {
		e.metrics.LastCopyTime = time.Now()
	}
}

// Metrics returns a snapshot of the engine counters.
func (e *Engine) Metrics() Metrics {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	return e.metrics
}
