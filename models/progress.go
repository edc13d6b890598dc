package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProgress holds the per-user counters mutated by every ledger.
type UserProgress struct {
	UserID          uuid.UUID  `gorm:"type:char(36);primaryKey" json:"user_id"`
	CurrentStreak   int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak   int        `gorm:"not null;default:0" json:"longest_streak"`
	LastCheckinDate *time.Time `gorm:"type:date" json:"last_checkin_date"`
	RespiCoins      int        `gorm:"not null;default:0" json:"respi_coins"`
	XP              int        `gorm:"column:xp;not null;default:0" json:"xp"`
	Gems            int        `gorm:"not null;default:0" json:"gems"`
	HealthCrystals  int        `gorm:"not null;default:0" json:"health_crystals"`
	Level           int        `gorm:"not null;default:1" json:"level"`
	League          string     `gorm:"size:16;not null;default:'bronze'" json:"league"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TableName keeps the table name stable regardless of naming strategy.
func (UserProgress) TableName() string { return "user_progress" }
