package routing

// Decision is the provider-agnostic output of the routing engine: who to dial and under
// which call parameters. It is built once per webhook and never mutated afterwards.
//
// Provider adapters render it into their own wire shape (see telephony.RenderConnect).
type Decision struct {
	// Numbers are dialled by the provider; the first entry is the chosen destination.
	Numbers []string `json:"numbers"`

	// CallerID is presented to the dialled party.
	CallerID string `json:"caller_id"`

	Record            bool   `json:"record"`
	RecordingChannels string `json:"recording_channels"`

	MaxRingingSeconds      int `json:"max_ringing_seconds"`
	MaxConversationSeconds int `json:"max_conversation_seconds"`

	MusicOnHold   MusicOnHold `json:"music_on_hold"`
	StartPlayback Playback    `json:"start_playback"`

	// Reason is optional and intended for internal logs only.
	Reason string `json:"reason,omitempty"`
}

// Destination returns the first number to dial, or "" when there is none.
func (d Decision) Destination() string {
	if len(d.Numbers) == 0 {
		return ""
	}
	return d.Numbers[0]
}

type MusicOnHold struct {
	Type string `json:"type"`
}

// Playback is an announcement played when the call is bridged.
type Playback struct {
	To    string `json:"to"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Policy holds the fixed call parameters stamped onto every decision.
type Policy struct {
	Record                 bool
	RecordingChannels      string
	MaxRingingSeconds      int
	MaxConversationSeconds int
	MusicOnHold            string

	PlaybackTo      string
	IncomingMessage string
	OutboundMessage string
}

// DefaultPolicy records both legs in dual channel, rings for 45s and caps talk time at an hour.
func DefaultPolicy() Policy {
	return Policy{
		Record:                 true,
		RecordingChannels:      "dual",
		MaxRingingSeconds:      45,
		MaxConversationSeconds: 3600,
		MusicOnHold:            "default_tone",
		PlaybackTo:             "both",
		IncomingMessage:        "Connecting you with your ride. Please wait.",
		OutboundMessage:        "Connecting you with your customer. Please wait.",
	}
}

func (p Policy) decision(dest, callerID string, dir Direction, reason string) Decision {
	msg := p.OutboundMessage
	if dir == DirectionIncoming {
		msg = p.IncomingMessage
	}
	return Decision{
		Numbers:                []string{dest},
		CallerID:               callerID,
		Record:                 p.Record,
		RecordingChannels:      p.RecordingChannels,
		MaxRingingSeconds:      p.MaxRingingSeconds,
		MaxConversationSeconds: p.MaxConversationSeconds,
		MusicOnHold:            MusicOnHold{Type: p.MusicOnHold},
		StartPlayback:          Playback{To: p.PlaybackTo, Type: "text", Value: msg},
		Reason:                 reason,
	}
}
