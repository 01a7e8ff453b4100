package telephony

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"call-gateway/internal/calls"
	"call-gateway/internal/config"
	"call-gateway/internal/testutil"
	"call-gateway/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExotelConfig(subdomain string) config.ExotelConfig {
	return config.ExotelConfig{
		AccountSID: "acct123",
		APIKey:     "key-abc",
		APIToken:   "token-secret",
		Subdomain:  subdomain,
		Timeout:    5 * time.Second,
	}
}

func newTLSProvider(t *testing.T, h http.HandlerFunc) *ExotelProvider {
	t.Helper()
	srv := httptest.NewTLSServer(h)
	t.Cleanup(srv.Close)
	return NewExotelProvider(testExotelConfig(strings.TrimPrefix(srv.URL, "https://")), srv.Client())
}

func TestExotelProvider_ConnectSendsFormAndBasicAuth(t *testing.T) {
	p := newTLSProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/Accounts/acct123/Calls/connect.json", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key-abc", user)
		assert.Equal(t, "token-secret", pass)

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "+919000000001", r.PostForm.Get("From"))
		assert.Equal(t, "+918000000002", r.PostForm.Get("To"))
		assert.Equal(t, "08047112345", r.PostForm.Get("CallerId"))
		assert.Equal(t, "ride-42", r.PostForm.Get("CustomField"))
		assert.Equal(t, "https://gw.example.com/call-status", r.PostForm.Get("StatusCallback"))
		assert.Equal(t, "application/json", r.PostForm.Get("StatusCallbackContentType"))
		assert.Equal(t, "terminal", r.PostForm.Get("StatusCallbackEvents[0]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Call":{"Sid":"s1","Status":"in-progress"}}`))
	})

	res, err := p.Connect(context.Background(), calls.CallRequest{
		From:           "+919000000001",
		To:             "+918000000002",
		CallerID:       "08047112345",
		CustomField:    "ride-42",
		StatusCallback: "https://gw.example.com/call-status",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Call":{"Sid":"s1","Status":"in-progress"}}`, string(res))
}

func TestExotelProvider_ConnectOmitsOptionalFields(t *testing.T) {
	p := newTLSProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		_, hasCustom := r.PostForm["CustomField"]
		_, hasCallback := r.PostForm["StatusCallback"]
		assert.False(t, hasCustom)
		assert.False(t, hasCallback)
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := p.Connect(context.Background(), calls.CallRequest{From: "a", To: "b", CallerID: "c"})
	require.NoError(t, err)
}

func TestExotelProvider_NonJSONErrorBodyIsWrapped(t *testing.T) {
	p := newTLSProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Authentication failed"))
	})

	_, err := p.Connect(context.Background(), calls.CallRequest{From: "a", To: "b"})
	var perr *calls.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.JSONEq(t, `"Authentication failed"`, string(perr.Details()))
	assert.Equal(t, "exotel: request failed with status code 401", perr.Error())
}

func TestExotelProvider_LogsNeverCarryCredentials(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.With(context.Background(), logger.NewWithWriter("local", &buf))

	// Unroutable subdomain forces a transport error whose message includes the URL.
	p := NewExotelProvider(testExotelConfig("127.0.0.1:1"), &http.Client{Timeout: time.Second})
	_, err := p.Connect(ctx, calls.CallRequest{From: "a", To: "b"})
	require.Error(t, err)

	var perr *calls.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Zero(t, perr.StatusCode)

	out := buf.String() + err.Error()
	assert.NotContains(t, out, "key-abc")
	assert.NotContains(t, out, "token-secret")
	assert.Contains(t, buf.String(), "exotel connect request")
}

func TestExotelProvider_HealthCheck(t *testing.T) {
	ok := newTLSProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/Accounts/acct123.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"Account":{}}`))
	})
	require.NoError(t, ok.HealthCheck(context.Background()))

	denied := newTLSProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	require.Error(t, denied.HealthCheck(context.Background()))
}

func TestExotelProvider_ConnectReplay(t *testing.T) {
	rec, cleanup := testutil.NewVCRRecorder(t, "exotel_connect_ok")
	defer cleanup()

	p := NewExotelProvider(testExotelConfig("api.exotel.test"), testutil.VCRHTTPClient(rec))
	res, err := p.Connect(context.Background(), calls.CallRequest{
		From:     "+919000000001",
		To:       "+918000000002",
		CallerID: "08047112345",
	})
	require.NoError(t, err)
	assert.Contains(t, string(res), `"Status":"in-progress"`)
}

func TestExotelProvider_ConnectReplayError(t *testing.T) {
	rec, cleanup := testutil.NewVCRRecorder(t, "exotel_connect_error")
	defer cleanup()

	p := NewExotelProvider(testExotelConfig("api.exotel.test"), testutil.VCRHTTPClient(rec))
	_, err := p.Connect(context.Background(), calls.CallRequest{
		From:     "+919000000001",
		To:       "12",
		CallerID: "08047112345",
	})

	var perr *calls.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.JSONEq(t, `{"RestException":{"Status":400,"Message":"To is not a valid phone number","Code":34001}}`, string(perr.Details()))
}
