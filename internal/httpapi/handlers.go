package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"call-gateway/internal/calls"
	"call-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Calls *calls.Service

	// DefaultDestination is the configured default destination echoed by /exotel/dial.
	DefaultDestination string

	// Provider is probed by /readyz; nil means always ready.
	Provider HealthChecker
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

const readyTimeout = 5 * time.Second

func (h Handlers) Root(c *gin.Context) {
	c.String(http.StatusOK, "Exotel call gateway is running")
}

func (h Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports whether the provider accepts our credentials.
func (h Handlers) Readyz(c *gin.Context) {
	if h.Provider == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	if err := h.Provider.HealthCheck(ctx); err != nil {
		logger.FromGin(c).Warn("readiness check failed", "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// --- Calls ---

type startCallRequest struct {
	ToNumber       phoneNumber `json:"toNumber" form:"toNumber"`
	CustomField    string      `json:"customField" form:"customField"`
	StatusCallback string      `json:"statusCallback" form:"statusCallback"`
}

// phoneNumber accepts a JSON string or a bare JSON number; clients often send digits unquoted.
// The number literal is kept exactly as sent.
type phoneNumber string

func (n *phoneNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = phoneNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("toNumber must be a string or number: %w", err)
	}
	*n = phoneNumber(num.String())
	return nil
}

// StartCall originates a call from the configured number to toNumber.
func (h Handlers) StartCall(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "calls not configured"})
		return
	}

	var req startCallRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Warn("start call: invalid body", "content_type", c.ContentType(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ToNumber == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "toNumber is required"})
		return
	}

	res, err := h.Calls.InitiateCall(c.Request.Context(), string(req.ToNumber), calls.CustomParams{
		CustomField:    req.CustomField,
		StatusCallback: req.StatusCallback,
	})
	if err != nil {
		abortCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": res})
}

// StartCallFromQuery originates a call between the from and to query parameters.
func (h Handlers) StartCallFromQuery(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "calls not configured"})
		return
	}

	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": "from and to are required"})
		return
	}

	res, err := h.Calls.InitiateCallFrom(c.Request.Context(), from, to, calls.CustomParams{
		CustomField: c.Query("customField"),
	})
	if err != nil {
		abortCallError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

func abortCallError(c *gin.Context, err error) {
	if errors.Is(err, calls.ErrInvalidArgument) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	body := gin.H{"success": false, "error": err.Error()}
	var perr *calls.ProviderError
	if errors.As(err, &perr) {
		body["details"] = perr.Details()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, body)
}

// DialNumber echoes the configured destination; it is a debugging aid.
func (h Handlers) DialNumber(c *gin.Context) {
	c.String(http.StatusOK, h.DefaultDestination)
}

// --- Fallbacks ---

func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
}

// Recovery is passed to gin.CustomRecovery; the panic value is logged, never returned.
func Recovery(c *gin.Context, recovered any) {
	logger.FromGin(c).Error("handler panic",
		"panic", recovered,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"query", c.Request.URL.RawQuery,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
}
