package calls

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// CallRequest is a single call origination handed to a provider.
// It is built per request and dropped once the provider has answered.
type CallRequest struct {
	// From is the first leg the provider rings; To is connected once From answers.
	From     string `json:"from"`
	To       string `json:"to"`
	CallerID string `json:"caller_id"`

	CustomField    string `json:"custom_field,omitempty"`
	StatusCallback string `json:"status_callback,omitempty"`
}

// CustomParams are the optional, caller-supplied parts of an origination.
type CustomParams struct {
	CustomField    string `json:"customField,omitempty" form:"customField"`
	StatusCallback string `json:"statusCallback,omitempty" form:"statusCallback"`
}

// StatusEvent is a terminal call-lifecycle callback from the provider.
// Every field is optional; providers omit what they do not know.
type StatusEvent struct {
	CallSid   string `json:"CallSid" form:"CallSid"`
	EventType string `json:"EventType,omitempty" form:"EventType"`
	Status    string `json:"Status" form:"Status"`

	From string `json:"From,omitempty" form:"From"`
	To   string `json:"To,omitempty" form:"To"`

	StartTime string `json:"StartTime,omitempty" form:"StartTime"`
	EndTime   string `json:"EndTime,omitempty" form:"EndTime"`

	// Duration is the conversation length in seconds.
	Duration Seconds `json:"ConversationDuration,omitempty" form:"ConversationDuration"`

	RecordingURL string `json:"RecordingUrl,omitempty" form:"RecordingUrl"`
	CustomField  string `json:"CustomField,omitempty" form:"CustomField"`
}

// CallStatus is the provider-reported outcome of a call.
type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusBusy       CallStatus = "busy"
	CallStatusCanceled   CallStatus = "canceled"
)

// Terminal reports whether the status ends the call lifecycle.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusNoAnswer, CallStatusBusy, CallStatusCanceled:
		return true
	default:
		return false
	}
}

// NormalizedStatus lower-cases the reported status; "" becomes "unknown".
func (e StatusEvent) NormalizedStatus() CallStatus {
	s := strings.ToLower(strings.TrimSpace(e.Status))
	if s == "" {
		return "unknown"
	}
	return CallStatus(s)
}

// Seconds accepts a JSON number, a quoted number, an empty string or null.
// Unparseable values decode to zero rather than failing the whole callback.
type Seconds int

func (s *Seconds) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	if b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		return s.UnmarshalParam(str)
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*s = 0
		return nil
	}
	*s = Seconds(f)
	return nil
}

// UnmarshalParam lets gin's form binding decode the same field.
func (s *Seconds) UnmarshalParam(param string) error {
	param = strings.TrimSpace(param)
	if param == "" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(param, 64)
	if err != nil {
		*s = 0
		return nil
	}
	*s = Seconds(f)
	return nil
}

// DecodeStatusJSON reads a status callback body without trusting field types. Any well-formed
// JSON decodes; known fields are taken from a top-level object and stringified when the
// provider sends numbers, booleans or nested values. Only malformed JSON is an error.
func DecodeStatusJSON(b []byte) (StatusEvent, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return StatusEvent{}, nil
	}
	if !json.Valid(b) {
		return StatusEvent{}, errors.New("calls: status body is not valid JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return StatusEvent{}, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return StatusEvent{}, nil
	}

	var e StatusEvent
	e.CallSid = looseString(obj["CallSid"])
	e.EventType = looseString(obj["EventType"])
	e.Status = looseString(obj["Status"])
	e.From = looseString(obj["From"])
	e.To = looseString(obj["To"])
	e.StartTime = looseString(obj["StartTime"])
	e.EndTime = looseString(obj["EndTime"])
	e.RecordingURL = looseString(obj["RecordingUrl"])
	e.CustomField = looseString(obj["CustomField"])
	_ = e.Duration.UnmarshalParam(looseString(obj["ConversationDuration"]))
	return e, nil
}

func looseString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
