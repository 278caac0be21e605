package postgres

import (
	"context"
	"errors"
	"time"

	"copytrader/internal/copier"

	"gorm.io/gorm"
)

// FollowerRecord stores a follower account and its copy configuration.
// Writes go through an external admin surface; this service only reads.
type FollowerRecord struct {
	ID uint `gorm:"primaryKey"`

	FollowerID string `gorm:"type:text;not null;uniqueIndex:idx_follower_id"`
	Name       string `gorm:"type:text"`
	MasterID   string `gorm:"type:text;not null;index:idx_follower_master"`

	Status        string  `gorm:"type:varchar(10);not null;default:active"`
	CredentialRef string  `gorm:"type:text;not null"`
	LotMultiplier float64 `gorm:"type:numeric;not null;default:1.0"`
	MaxOrderQty   int64   `gorm:"not null"`
	CopyEnabled   bool    `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (FollowerRecord) TableName() string {
	return "follower_record"
}

// Directory is the Postgres-backed follower directory.
type Directory struct {
	client *PostgresClient
}

func NewDirectory(client *PostgresClient) *Directory {
	return &Directory{client: client}
}

// ListEligible returns active, copy-enabled followers of the master.
// The fan-out engine re-checks eligibility defensively on top of this.
func (d *Directory) ListEligible(ctx context.Context, masterID string) ([]copier.Follower, error) {
	var rows []FollowerRecord
	err := d.client.DB.WithContext(ctx).
		Where("master_id = ? AND status = ? AND copy_enabled = ?", masterID, copier.StatusActive, true).
		Order("follower_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	followers := make([]copier.Follower, 0, len(rows))
	for _, row := range rows {
		followers = append(followers, toFollower(row))
	}
	return followers, nil
}

// Get returns one follower by id, or nil when not found.
func (d *Directory) Get(ctx context.Context, id string) (*copier.Follower, error) {
	var row FollowerRecord
	err := d.client.DB.WithContext(ctx).
		Where("follower_id = ?", id).
		First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	f := toFollower(row)
	return &f, nil
}

func toFollower(row FollowerRecord) copier.Follower {
	return copier.Follower{
		ID:            row.FollowerID,
		Name:          row.Name,
		Status:        row.Status,
		CredentialRef: row.CredentialRef,
		LotMultiplier: row.LotMultiplier,
		MaxOrderQty:   row.MaxOrderQty,
		CopyEnabled:   row.CopyEnabled,
	}
}
