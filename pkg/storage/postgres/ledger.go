package postgres

import (
	"context"
	"errors"
	"time"

	"copytrader/internal/copier"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CopyAttemptRecord is the durable ledger row for one (trade, follower) pair.
type CopyAttemptRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index — the idempotency key
	TradeID    string `gorm:"type:text;not null;index:idx_trade_follower,unique"`
	FollowerID string `gorm:"type:text;not null;index:idx_trade_follower,unique"`

	Quantity      int64  `gorm:"not null"`
	Outcome       string `gorm:"type:varchar(10);not null;index:idx_attempt_outcome"`
	Reason        string `gorm:"type:text"`
	BrokerOrderID string `gorm:"type:text"`

	AttemptedAt time.Time `gorm:"not null"`
	RecordedAt  time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (CopyAttemptRecord) TableName() string {
	return "copy_attempt_record"
}

// Ledger is the Postgres-backed replication ledger.
type Ledger struct {
	client *PostgresClient
}

func NewLedger(client *PostgresClient) *Ledger {
	return &Ledger{client: client}
}

// Lookup returns the existing record for the key, or nil when absent.
func (l *Ledger) Lookup(ctx context.Context, tradeID, followerID string) (*copier.CopyAttempt, error) {
	var rec CopyAttemptRecord
	err := l.client.DB.WithContext(ctx).
		Where("trade_id = ? AND follower_id = ?", tradeID, followerID).
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	attempt := toAttempt(rec)
	return &attempt, nil
}

// InsertIfAbsent conditionally inserts the record. The unique index on
// (trade_id, follower_id) makes this the atomic gate: a losing concurrent
// writer observes inserted=false, never an error.
func (l *Ledger) InsertIfAbsent(ctx context.Context, rec copier.CopyAttempt) (bool, error) {
	row := CopyAttemptRecord{
		TradeID:       rec.TradeID,
		FollowerID:    rec.FollowerID,
		Quantity:      rec.Quantity,
		Outcome:       string(rec.Outcome),
		Reason:        rec.Reason,
		BrokerOrderID: rec.BrokerOrderID,
		AttemptedAt:   rec.AttemptedAt,
	}

	tx := l.client.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "trade_id"},
			{Name: "follower_id"},
		},
		DoNothing: true,
	}).Create(&row)

	if tx.Error != nil {
		return false, tx.Error
	}

	return tx.RowsAffected > 0, nil
}

// Finalize transitions a pending record to its terminal outcome.
// Terminal records are immutable: the pending guard makes a second
// finalize a no-op.
func (l *Ledger) Finalize(ctx context.Context, tradeID, followerID string, outcome copier.Outcome, reason, brokerOrderID string) error {
	return l.client.DB.WithContext(ctx).
		Model(&CopyAttemptRecord{}).
		Where("trade_id = ? AND follower_id = ? AND outcome = ?",
			tradeID, followerID, string(copier.OutcomePending)).
		Updates(map[string]any{
			"outcome":         string(outcome),
			"reason":          reason,
			"broker_order_id": brokerOrderID,
		}).Error
}

// CountByOutcome returns how many ledger rows carry the given outcome.
func (l *Ledger) CountByOutcome(ctx context.Context, outcome copier.Outcome) (int64, error) {
	var n int64
	err := l.client.DB.WithContext(ctx).
		Model(&CopyAttemptRecord{}).
		Where("outcome = ?", string(outcome)).
		Count(&n).Error
	return n, err
}

func toAttempt(rec CopyAttemptRecord) copier.CopyAttempt {
	return copier.CopyAttempt{
		TradeID:       rec.TradeID,
		FollowerID:    rec.FollowerID,
		Quantity:      rec.Quantity,
		Outcome:       copier.Outcome(rec.Outcome),
		Reason:        rec.Reason,
		BrokerOrderID: rec.BrokerOrderID,
		AttemptedAt:   rec.AttemptedAt,
	}
}
