package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/respiralivre/api/analytics"
	"github.com/respiralivre/api/notify"
)

// EventSink receives product analytics events. *analytics.Batcher satisfies it.
type EventSink interface {
	Track(e analytics.Event)
}

// Pusher delivers a push to every device of a user. *notify.Dispatcher satisfies it.
type Pusher interface {
	SendToUser(ctx context.Context, userID uuid.UUID, msg notify.Message) (notify.Result, error)
}

type discardEvents struct{}

func (discardEvents) Track(analytics.Event) {}

func track(sink EventSink, userID uuid.UUID, name string, props map[string]any) {
	if sink == nil {
		return
	}
	id := userID
	sink.Track(analytics.Event{UserID: &id, Name: name, Properties: props})
}
