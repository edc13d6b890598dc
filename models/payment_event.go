package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent marks a provider event as applied so webhook retries credit once.
type PaymentEvent struct {
	EventID     string    `gorm:"size:255;primaryKey" json:"event_id"`
	UserID      uuid.UUID `gorm:"type:char(36);index;not null" json:"user_id"`
	Product     string    `gorm:"size:32;not null" json:"product"`
	ProcessedAt time.Time `gorm:"not null" json:"processed_at"`
}
