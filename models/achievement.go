package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Achievement is an append-only unlock, at most one per user and type.
type Achievement struct {
	ID              uuid.UUID                  `gorm:"type:char(36);primaryKey" json:"id"`
	UserID          uuid.UUID                  `gorm:"type:char(36);not null;uniqueIndex:idx_achievement_user_type,priority:1" json:"user_id"`
	AchievementType string                     `gorm:"size:64;not null;uniqueIndex:idx_achievement_user_type,priority:2" json:"achievement_type"`
	Title           string                     `gorm:"size:128;not null" json:"title"`
	Rarity          string                     `gorm:"size:16;not null" json:"rarity"`
	Rewards         datatypes.JSONType[Reward] `json:"rewards"`
	UnlockedAt      time.Time                  `gorm:"not null" json:"unlocked_at"`
}
