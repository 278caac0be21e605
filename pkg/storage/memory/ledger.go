package memory

import (
	"context"
	"sync"

	"copytrader/internal/copier"
)

// Ledger is an in-memory replication ledger. It honors the same
// conditional-insert contract as the Postgres ledger and backs the
// engine's unit tests.
type Ledger struct {
	mu      sync.Mutex
	records map[string]copier.CopyAttempt
}

func NewLedger() *Ledger {
	return &Ledger{
		records: make(map[string]copier.CopyAttempt),
	}
}

func key(tradeID, followerID string) string {
	return tradeID + "|" + followerID
}

func (l *Ledger) Lookup(_ context.Context, tradeID, followerID string) (*copier.CopyAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key(tradeID, followerID)]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (l *Ledger) InsertIfAbsent(_ context.Context, rec copier.CopyAttempt) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(rec.TradeID, rec.FollowerID)
	if _, exists := l.records[k]; exists {
		return false, nil
	}
	l.records[k] = rec
	return true, nil
}

func (l *Ledger) Finalize(_ context.Context, tradeID, followerID string, outcome copier.Outcome, reason, brokerOrderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(tradeID, followerID)
	rec, ok := l.records[k]
	if !ok || rec.Outcome != copier.OutcomePending {
		return nil // terminal records stay immutable
	}
	rec.Outcome = outcome
	rec.Reason = reason
	rec.BrokerOrderID = brokerOrderID
	l.records[k] = rec
	return nil
}

// Records returns a copy of all ledger entries, for test assertions.
func (l *Ledger) Records() []copier.CopyAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]copier.CopyAttempt, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	return out
}
