// Package selftest calls the gateway's own connect webhook once after startup to prove the
// public URL reaches this process and routing returns a usable destination.
package selftest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"call-gateway/internal/calls"
	"call-gateway/internal/telephony"
	"call-gateway/pkg/logger"
)

const connectPath = "/exotel/call"

// Dialer originates the optional follow-up call. *calls.Service satisfies it.
type Dialer interface {
	InitiateCall(ctx context.Context, destination string, params calls.CustomParams) (json.RawMessage, error)
}

// Trigger is a one-shot deferred check. It never panics and never blocks startup.
type Trigger struct {
	BaseURL  string
	From     string
	To       string
	CallSid  string
	CallerID string

	Delay time.Duration

	// Dial chains a real call to the returned destination when Dialer is set.
	Dial   bool
	Dialer Dialer

	Client *http.Client
}

var ErrNoDestination = errors.New("selftest: connect response has no destination")

// Run waits Delay, then checks the connect endpoint. Cancelling ctx aborts the wait and
// any request in flight.
func (t *Trigger) Run(ctx context.Context) {
	log := logger.From(ctx)

	timer := time.NewTimer(t.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	dest, err := t.Check(ctx)
	if err != nil {
		log.Error("self-test failed", "err", err)
		return
	}
	log.Info("self-test passed", "destination", dest)

	if !t.Dial || t.Dialer == nil {
		return
	}
	if _, err := t.Dialer.InitiateCall(ctx, dest, calls.CustomParams{}); err != nil {
		log.Error("self-test dial failed", "destination", dest, "err", err)
		return
	}
	log.Info("self-test dial placed", "destination", dest)
}

// Check performs the webhook round trip and returns the first destination number.
func (t *Trigger) Check(ctx context.Context) (string, error) {
	target, err := t.connectURL()
	if err != nil {
		return "", err
	}

	log := logger.From(ctx)
	log.Info("self-test request", "url", telephony.RedactURL(target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("selftest: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("selftest: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("selftest: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("selftest: connect endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decision telephony.ExotelConnectResponse
	if err := json.Unmarshal(body, &decision); err != nil {
		return "", fmt.Errorf("selftest: decode response: %w", err)
	}
	if len(decision.Destination.Numbers) == 0 || decision.Destination.Numbers[0] == "" {
		return "", ErrNoDestination
	}
	return decision.Destination.Numbers[0], nil
}

func (t *Trigger) connectURL() (string, error) {
	if strings.TrimSpace(t.BaseURL) == "" {
		return "", errors.New("selftest: base url is empty")
	}
	u, err := url.Parse(strings.TrimSuffix(t.BaseURL, "/") + connectPath)
	if err != nil {
		return "", fmt.Errorf("selftest: parse base url: %w", err)
	}
	q := url.Values{}
	q.Set("CallFrom", t.From)
	q.Set("CallTo", t.To)
	q.Set("CallSid", t.CallSid)
	q.Set("CallerId", t.CallerID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
