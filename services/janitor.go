package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/respiralivre/api/models"
	"github.com/respiralivre/api/utils"
)

// Janitor periodically deletes squads whose last member left.
type Janitor struct {
	db       *gorm.DB
	interval time.Duration
	grace    time.Duration
}

// NewJanitor sweeps every interval; empty squads survive for one grace period first.
func NewJanitor(db *gorm.DB, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{db: db, interval: interval, grace: 24 * time.Hour}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := j.Sweep(ctx)
			if err != nil {
				utils.Logger.Warn("squad sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				utils.Logger.Info("removed empty squads", zap.Int64("count", n))
			}
		}
	}
}

// Sweep deletes leaderless squads without members untouched for the grace period.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-j.grace)
	res := j.db.WithContext(ctx).
		Where("leader_id IS NULL AND updated_at < ?", cutoff).
		Where("NOT EXISTS (SELECT 1 FROM squad_members m WHERE m.squad_id = squads.id)").
		Delete(&models.Squad{})
	return res.RowsAffected, res.Error
}
