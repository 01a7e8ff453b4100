package telephony

import (
	"net/http"
	"strings"

	"call-gateway/internal/routing"
)

const (
	headerExotelVersion  = "Exotel-Version"
	defaultExotelVersion = "1.0"
)

// ExotelConnectQuery captures the query parameters Exotel sends to a Connect applet URL.
// Exotel issues a GET and blocks call setup until it gets the JSON answer.
//
// Keep it provider-adapter-only; routing decisions are not made here.
type ExotelConnectQuery struct {
	CallSid        string
	CallFrom       string
	CallTo         string
	Direction      string
	CallType       string
	DialCallStatus string
	Digits         string
	CustomField    string

	// Version comes from the Exotel-Version header.
	Version string
}

func ParseExotelConnect(r *http.Request) ExotelConnectQuery {
	q := r.URL.Query()
	v := strings.TrimSpace(r.Header.Get(headerExotelVersion))
	if v == "" {
		v = defaultExotelVersion
	}
	return ExotelConnectQuery{
		CallSid:        q.Get("CallSid"),
		CallFrom:       normalizePhone(q.Get("CallFrom")),
		CallTo:         normalizePhone(q.Get("CallTo")),
		Direction:      strings.TrimSpace(q.Get("Direction")),
		CallType:       q.Get("CallType"),
		DialCallStatus: q.Get("DialCallStatus"),
		Digits:         normalizeDigits(q.Get("digits")),
		CustomField:    q.Get("CustomField"),
		Version:        v,
	}
}

func normalizePhone(s string) string {
	// Numbers are matched verbatim against configuration; only surrounding blanks go.
	return strings.TrimSpace(s)
}

func normalizeDigits(s string) string {
	// Exotel wraps gathered digits in double quotes.
	return strings.Trim(strings.TrimSpace(s), `"`)
}

func (q ExotelConnectQuery) ToRoutingRequest() routing.Request {
	return routing.Request{
		CallSid:     q.CallSid,
		From:        q.CallFrom,
		To:          q.CallTo,
		Direction:   routing.Direction(q.Direction),
		Digits:      q.Digits,
		CustomField: q.CustomField,
	}
}
