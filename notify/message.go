// Package notify delivers push notifications to every device a user registered.
package notify

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Click targets opened by the web client when a notification is tapped.
const (
	LinkDashboard = "/dashboard"
	LinkProfile   = "/profile"
)

// ErrInvalidToken marks a device token the provider will never accept again.
var ErrInvalidToken = errors.New("push token is invalid or unregistered")

// Message is a provider independent push payload.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Link  string            `json:"link,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// SquadLink is the click target of squad messages.
func SquadLink(squadID uuid.UUID) string {
	return fmt.Sprintf("/squads/%s", squadID)
}

// Result summarises a fan-out.
type Result struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}

func (r Result) add(o Result) Result {
	return Result{Sent: r.Sent + o.Sent, Failed: r.Failed + o.Failed, Removed: r.Removed + o.Removed}
}

// payloadData merges the link into the data map sent to the device.
func (m Message) payloadData() map[string]string {
	data := make(map[string]string, len(m.Data)+1)
	for k, v := range m.Data {
		data[k] = v
	}
	if m.Link != "" {
		data["link"] = m.Link
	}
	return data
}
