package models

import (
	"time"

	"github.com/google/uuid"
)

// CoachMessage is one persisted turn of the AI coach conversation.
type CoachMessage struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:char(36);index:idx_coach_user_created,priority:1;not null" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index:idx_coach_user_created,priority:2" json:"created_at"`
}
