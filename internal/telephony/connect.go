package telephony

import (
	"errors"

	"call-gateway/internal/routing"
)

// ExotelConnectResponse is the JSON body Exotel's Connect applet expects back.
type ExotelConnectResponse struct {
	FetchAfterAttempt       bool              `json:"fetch_after_attempt"`
	Destination             ExotelDestination `json:"destination"`
	OutgoingPhoneNumber     string            `json:"outgoing_phone_number"`
	Record                  bool              `json:"record"`
	RecordingChannels       string            `json:"recording_channels"`
	MaxRingingDuration      int               `json:"max_ringing_duration"`
	MaxConversationDuration int               `json:"max_conversation_duration"`
	MusicOnHold             ExotelMusicOnHold `json:"music_on_hold"`
	StartCallPlayback       ExotelPlayback    `json:"start_call_playback"`
}

type ExotelDestination struct {
	Numbers []string `json:"numbers"`
}

type ExotelMusicOnHold struct {
	Type string `json:"type"`
}

type ExotelPlayback struct {
	PlaybackTo string `json:"playback_to"`
	Type       string `json:"type"`
	Value      string `json:"value"`
}

// RenderConnect maps a routing decision to Exotel's connect response.
func RenderConnect(d routing.Decision) (ExotelConnectResponse, error) {
	if d.Destination() == "" {
		return ExotelConnectResponse{}, errors.New("telephony: decision has no destination")
	}
	return ExotelConnectResponse{
		FetchAfterAttempt:       false,
		Destination:             ExotelDestination{Numbers: append([]string(nil), d.Numbers...)},
		OutgoingPhoneNumber:     d.CallerID,
		Record:                  d.Record,
		RecordingChannels:       d.RecordingChannels,
		MaxRingingDuration:      d.MaxRingingSeconds,
		MaxConversationDuration: d.MaxConversationSeconds,
		MusicOnHold:             ExotelMusicOnHold{Type: d.MusicOnHold.Type},
		StartCallPlayback: ExotelPlayback{
			PlaybackTo: d.StartPlayback.To,
			Type:       d.StartPlayback.Type,
			Value:      d.StartPlayback.Value,
		},
	}, nil
}
