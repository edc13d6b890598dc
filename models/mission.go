package models

import (
	"time"

	"github.com/google/uuid"
)

// Mission periods.
const (
	MissionDaily  = "daily"
	MissionWeekly = "weekly"
)

// Mission kinds name the ledger event a mission counts.
const (
	MissionKindCheckin     = "checkin"
	MissionKindChestOpen   = "chest_open"
	MissionKindBossVictory = "boss_victory"
	MissionKindPurchase    = "purchase"
)

// Mission is a template; progress lives in UserMission rows.
type Mission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Title       string    `gorm:"size:128;not null" json:"title"`
	Description string    `gorm:"size:255" json:"description"`
	Kind        string    `gorm:"size:32;index;not null" json:"kind"`
	Type        string    `gorm:"size:16;not null" json:"type"`
	TargetValue int       `gorm:"not null" json:"target_value"`
	XPReward    int       `gorm:"column:xp_reward;not null;default:0" json:"xp_reward"`
	CoinsReward int       `gorm:"not null;default:0" json:"coins_reward"`
	GemsReward  int       `gorm:"not null;default:0" json:"gems_reward"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reward returns the mission payout.
func (m Mission) Reward() Reward {
	return Reward{XP: m.XPReward, Coins: m.CoinsReward, Gems: m.GemsReward}
}

// UserMission tracks one user's progress on a mission for one period.
type UserMission struct {
	ID              uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex:idx_user_mission_period,priority:1" json:"user_id"`
	MissionID       uint       `gorm:"not null;uniqueIndex:idx_user_mission_period,priority:2" json:"mission_id"`
	PeriodKey       string     `gorm:"size:16;not null;uniqueIndex:idx_user_mission_period,priority:3" json:"period_key"`
	CurrentProgress int        `gorm:"not null;default:0" json:"current_progress"`
	Completed       bool       `gorm:"not null;default:false" json:"completed"`
	Claimed         bool       `gorm:"not null;default:false" json:"claimed"`
	ClaimedAt       *time.Time `json:"claimed_at"`
	Mission         Mission    `gorm:"foreignKey:MissionID" json:"mission"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
