package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/respiralivre/api/analytics"
	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

var validate = validator.New()

type clientEvent struct {
	Name       string         `json:"name" validate:"required,max=64"`
	Properties map[string]any `json:"properties"`
	OccurredAt *time.Time     `json:"occurred_at"`
}

type eventBatch struct {
	Events []clientEvent `json:"events" validate:"required,min=1,max=50,dive"`
}

// AnalyticsController ingests client event batches into the batcher.
type AnalyticsController struct {
	sink services.EventSink
	now  func() time.Time
}

// NewAnalyticsController creates an AnalyticsController.
func NewAnalyticsController(sink services.EventSink) *AnalyticsController {
	return &AnalyticsController{sink: sink, now: time.Now}
}

// Ingest queues up to 50 events for the caller. Timestamps far in the future are clamped to now.
func (a *AnalyticsController) Ingest(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req eventBatch
	if !bindJSON(ctx, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.Fail(ctx, utils.Invalid("events must hold 1 to 50 items with a name of at most 64 characters"))
		return
	}

	now := a.now().UTC()
	for _, e := range req.Events {
		at := now
		if e.OccurredAt != nil && !e.OccurredAt.After(now.Add(time.Minute)) {
			at = e.OccurredAt.UTC()
		}
		id := userID
		a.sink.Track(analytics.Event{UserID: &id, Name: e.Name, Properties: e.Properties, OccurredAt: at})
	}
	utils.Success(ctx, gin.H{"accepted": len(req.Events)})
}
