package notify

import (
	"time"

	"call-gateway/internal/calls"

	"github.com/google/uuid"
)

const (
	producer        = "call-gateway"
	statusEventType = "calls.status.v1"
)

type Meta struct {
	// CorrelationID is the provider call sid when one was sent.
	CorrelationID *string `json:"correlation_id,omitempty"`
	// Unique event ID
	ID       string    `json:"id"`
	Producer *string   `json:"producer,omitempty"`
	Time     time.Time `json:"time"`
	// Event name and version, e.g. calls.status.v1
	Type string `json:"type"`
}

type Envelope struct {
	Meta Meta              `json:"meta"`
	Data calls.StatusEvent `json:"data"`
}

func newStatusEnvelope(e calls.StatusEvent, now time.Time) Envelope {
	p := producer
	env := Envelope{
		Meta: Meta{
			ID:       uuid.NewString(),
			Producer: &p,
			Time:     now.UTC(),
			Type:     statusEventType,
		},
		Data: e,
	}
	if e.CallSid != "" {
		sid := e.CallSid
		env.Meta.CorrelationID = &sid
	}
	return env
}

// routingKey is calls.status.<status>, so consumers can bind to terminal states only.
func routingKey(e calls.StatusEvent) string {
	return "calls.status." + string(e.NormalizedStatus())
}
