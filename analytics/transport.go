package analytics

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/respiralivre/api/models"
)

// GormTransport writes events to the analytics_events table.
type GormTransport struct {
	db *gorm.DB
}

// NewGormTransport returns a Transport backed by db.
func NewGormTransport(db *gorm.DB) *GormTransport {
	return &GormTransport{db: db}
}

// Send inserts the batch in a single statement.
func (t *GormTransport) Send(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]models.AnalyticsEvent, 0, len(events))
	for _, e := range events {
		props, err := json.Marshal(e.Properties)
		if err != nil {
			props = []byte("{}")
		}
		rows = append(rows, models.AnalyticsEvent{
			UserID:     e.UserID,
			Name:       e.Name,
			Properties: datatypes.JSON(props),
			OccurredAt: e.OccurredAt,
		})
	}
	return t.db.WithContext(ctx).CreateInBatches(rows, len(rows)).Error
}
