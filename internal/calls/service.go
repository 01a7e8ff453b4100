package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"call-gateway/pkg/logger"
)

var ErrInvalidArgument = errors.New("calls: invalid argument")

// Originator places a call through a telephony provider.
// Implementations return the provider's response body unchanged.
type Originator interface {
	Name() string
	Connect(ctx context.Context, req CallRequest) (json.RawMessage, error)
}

// ProviderError is returned when the provider could not be reached or refused the call.
type ProviderError struct {
	Provider   string
	StatusCode int
	// Payload is the provider's error body when it sent one.
	Payload json.RawMessage
	Err     error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return e.Err.Error()
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: request failed with status code %d", e.Provider, e.StatusCode)
	default:
		return e.Provider + ": request failed"
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Details returns the provider payload, or nil when there was none.
func (e *ProviderError) Details() json.RawMessage {
	if len(e.Payload) == 0 {
		return nil
	}
	return e.Payload
}

// Service originates calls from the configured origin number and caller id.
type Service struct {
	provider Originator
	from     string
	callerID string
}

func NewService(provider Originator, from, callerID string) *Service {
	return &Service{provider: provider, from: from, callerID: callerID}
}

// InitiateCall connects the configured origin number to destination.
func (s *Service) InitiateCall(ctx context.Context, destination string, params CustomParams) (json.RawMessage, error) {
	return s.InitiateCallFrom(ctx, s.from, destination, params)
}

// InitiateCallFrom is InitiateCall with an explicit first leg.
func (s *Service) InitiateCallFrom(ctx context.Context, from, destination string, params CustomParams) (json.RawMessage, error) {
	if strings.TrimSpace(destination) == "" {
		return nil, fmt.Errorf("%w: destination required", ErrInvalidArgument)
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("%w: origin number required", ErrInvalidArgument)
	}
	if s.provider == nil {
		return nil, errors.New("calls: provider not configured")
	}

	req := CallRequest{
		From:           from,
		To:             destination,
		CallerID:       s.callerID,
		CustomField:    params.CustomField,
		StatusCallback: params.StatusCallback,
	}

	log := logger.From(ctx)
	res, err := s.provider.Connect(ctx, req)
	if err != nil {
		log.Error("call origination failed", "provider", s.provider.Name(), "to", req.To, "err", err)
		return nil, err
	}
	log.Info("call initiated", "provider", s.provider.Name(), "to", req.To)
	return res, nil
}
