package telephony

import (
	"context"

	"call-gateway/internal/calls"
)

// TelephonyProvider is the provider-facing contract used by the gateway.
//
// Rules:
// - No provider HTTP calls outside telephony adapters.
// - Request/response types stay provider-agnostic (calls.CallRequest in, raw provider body out).
type TelephonyProvider interface {
	calls.Originator

	HealthCheck(ctx context.Context) error
}
