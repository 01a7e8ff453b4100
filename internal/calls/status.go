package calls

import (
	"context"

	"call-gateway/pkg/logger"
)

// EventSink receives status events after they have been acknowledged.
// It is the extension point for persistence or notification; see internal/notify.
type EventSink interface {
	Publish(ctx context.Context, e StatusEvent) error
}

// StatusService accepts provider status callbacks.
// Sink failures are logged and never surfaced to the provider.
type StatusService struct {
	sink EventSink
}

func NewStatusService(sink EventSink) *StatusService {
	return &StatusService{sink: sink}
}

func (s *StatusService) Receive(ctx context.Context, e StatusEvent) {
	log := logger.From(ctx)
	log.Info("call status received",
		"call_sid", e.CallSid,
		"status", string(e.NormalizedStatus()),
		"terminal", e.NormalizedStatus().Terminal(),
		"start_time", e.StartTime,
		"end_time", e.EndTime,
		"duration_s", int(e.Duration),
		"recording_url", e.RecordingURL,
		"custom_field", e.CustomField,
	)

	if s.sink == nil {
		return
	}
	if err := s.sink.Publish(ctx, e); err != nil {
		log.Warn("status event publish failed", "call_sid", e.CallSid, "err", err)
	}
}
