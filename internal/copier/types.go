package copier

import (
	"context"
	"time"

	"copytrader/pkg/broker"
)

// Outcome is the state of one (trade, follower) copy attempt.
type Outcome string

const (
	// OutcomePending marks a key reserved immediately before the broker
	// call. A pending record already blocks duplicate submissions; it is
	// finalized to a terminal outcome once the call returns.
	OutcomePending Outcome = "PENDING"
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeSkipped Outcome = "SKIPPED"
)

// Skip reasons reported on CopyAttempt records.
const (
	ReasonAlreadyProcessed = "already processed"
	ReasonQuantityTooSmall = "quantity too small after multiplier"
	ReasonNotEligible      = "follower not eligible"
)

// CopyAttempt is the per-follower result of replicating one master trade.
// Terminal attempts (SUCCESS/FAILED) are ledger-backed; skips for reasons
// other than duplicates are recomputed identically on retry and are not.
type CopyAttempt struct {
	TradeID       string
	FollowerID    string
	Quantity      int64
	Outcome       Outcome
	Reason        string
	BrokerOrderID string
	AttemptedAt   time.Time
}

// Follower is a downstream account receiving scaled copies of master trades.
type Follower struct {
	ID            string
	Name          string
	Status        string // active | paused | disabled
	CredentialRef string // account id the broker token is resolved under
	LotMultiplier float64
	MaxOrderQty   int64
	CopyEnabled   bool
}

const StatusActive = "active"

// Eligible reports whether the follower may receive copies.
func (f Follower) Eligible() bool {
	return f.Status == StatusActive && f.CopyEnabled
}

// Ledger records which (trade, follower) pairs have been processed.
// InsertIfAbsent is the idempotency gate: it must be a conditional insert
// so concurrent fan-outs for the same key cannot both claim it.
type Ledger interface {
	Lookup(ctx context.Context, tradeID, followerID string) (*CopyAttempt, error)
	InsertIfAbsent(ctx context.Context, rec CopyAttempt) (bool, error)
	Finalize(ctx context.Context, tradeID, followerID string, outcome Outcome, reason, brokerOrderID string) error
}

// Directory is the read-only follower configuration view.
type Directory interface {
	ListEligible(ctx context.Context, masterID string) ([]Follower, error)
	Get(ctx context.Context, id string) (*Follower, error)
}

// OrderPlacer submits one order on behalf of an account.
// Satisfied by *broker.RESTClient.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, accountID string, order broker.OrderRequest) (*broker.OrderResponse, error)
}
