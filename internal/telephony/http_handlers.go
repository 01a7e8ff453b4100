package telephony

import (
	"errors"
	"io"
	"net/http"

	"call-gateway/internal/calls"
	"call-gateway/internal/routing"
	"call-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// ExotelWebhookHandler converts Exotel webhooks to internal types, delegates the
// decision to the routing engine and writes Exotel's JSON back.
//
// No business logic here. Exotel blocks call setup on HandleConnect, so it must not
// make outbound calls.
type ExotelWebhookHandler struct {
	Router routing.Engine
	Status *calls.StatusService
}

// HandleConnect answers GET /exotel/call.
func (h ExotelWebhookHandler) HandleConnect(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Router == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": "routing engine not configured"})
		return
	}

	q := ParseExotelConnect(c.Request)
	log.Info("exotel connect webhook",
		"call_sid", q.CallSid,
		"call_from", q.CallFrom,
		"call_to", q.CallTo,
		"direction", q.Direction,
		"call_type", q.CallType,
		"dial_call_status", q.DialCallStatus,
		"digits", q.Digits,
		"exotel_version", q.Version,
		"user_agent", c.Request.UserAgent(),
	)

	d, err := h.Router.Decide(c.Request.Context(), q.ToRoutingRequest())
	if err != nil {
		log.Error("connect decision failed", "call_sid", q.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	resp, err := RenderConnect(d)
	if err != nil {
		log.Error("connect render failed", "call_sid", q.CallSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	log.Info("exotel connect response", "call_sid", q.CallSid, "destination", d.Destination(), "reason", d.Reason)
	c.JSON(http.StatusOK, resp)
}

// HandleStatusCallback answers POST /call-status. Exotel posts JSON when asked to
// (StatusCallbackContentType) and form data otherwise; both are accepted.
func (h ExotelWebhookHandler) HandleStatusCallback(c *gin.Context) {
	log := logger.FromGin(c)

	ev, err := bindStatusEvent(c)
	if err != nil {
		log.Error("status callback parse failed", "content_type", c.ContentType(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	if h.Status != nil {
		h.Status.Receive(c.Request.Context(), ev)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Status received"})
}

// bindStatusEvent decodes JSON loosely, so unexpected field types never fail the callback.
// Form bodies carry strings only and go through gin's binding.
func bindStatusEvent(c *gin.Context) (calls.StatusEvent, error) {
	if c.ContentType() == binding.MIMEJSON {
		body, err := c.GetRawData()
		if err != nil {
			return calls.StatusEvent{}, err
		}
		return calls.DecodeStatusJSON(body)
	}

	var ev calls.StatusEvent
	if err := c.ShouldBind(&ev); err != nil && !errors.Is(err, io.EOF) {
		return calls.StatusEvent{}, err
	}
	return ev, nil
}
