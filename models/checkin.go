package models

import (
	"time"

	"github.com/google/uuid"
)

// Mood values accepted by a daily check-in.
const (
	MoodGood    = "good"
	MoodNeutral = "neutral"
	MoodBad     = "bad"
)

// Checkin is the immutable record of one settled day.
type Checkin struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_checkin_user_date,priority:1" json:"user_id"`
	CheckinDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_checkin_user_date,priority:2" json:"checkin_date"`
	Mood        string    `gorm:"size:16;not null" json:"mood"`
	Notes       string    `gorm:"size:2000" json:"notes,omitempty"`
	CoinsEarned int       `gorm:"not null" json:"coins_earned"`
	XPEarned    int       `gorm:"column:xp_earned;not null" json:"xp_earned"`
	StreakAfter int       `gorm:"not null" json:"streak_after"`
	CreatedAt   time.Time `json:"created_at"`
}
