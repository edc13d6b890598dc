package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AnalyticsEvent is one flushed analytics row.
type AnalyticsEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:char(36);index" json:"user_id"`
	Name       string         `gorm:"size:64;index;not null" json:"name"`
	Properties datatypes.JSON `json:"properties"`
	OccurredAt time.Time      `gorm:"index;not null" json:"occurred_at"`
}
