package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/voicerelay/internal/domain"
)

type MessageType string

const (
	TypeOffer        MessageType = "offer"
	TypeAnswer       MessageType = "answer"
	TypeICECandidate MessageType = "ice_candidate"
	TypeMuteState    MessageType = "mute_state"
	TypeChat         MessageType = "chat"
	TypePing         MessageType = "ping"

	TypeICEServers MessageType = "ice_servers"
	TypeRoomState  MessageType = "room_state"
	TypePong       MessageType = "pong"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Message is an inbound client message, decoded once at the boundary.
type Message interface {
	Type() MessageType
}

// Offer is fanned out to every other room member.
type Offer struct {
	SDP json.RawMessage
}

// Answer is delivered to the participant named To.
type Answer struct {
	SDP json.RawMessage
	To  string
}

// ICECandidate is delivered to the participant named To.
type ICECandidate struct {
	Candidate json.RawMessage
	To        string
}

// MuteUpdate carries only the flags the client sent.
type MuteUpdate struct {
	AudioMuted *bool
	VideoMuted *bool
}

type Chat struct {
	Text string
}

// Ping is answered by the transport itself.
type Ping struct{}

func (Offer) Type() MessageType        { return TypeOffer }
func (Answer) Type() MessageType       { return TypeAnswer }
func (ICECandidate) Type() MessageType { return TypeICECandidate }
func (MuteUpdate) Type() MessageType   { return TypeMuteState }
func (Chat) Type() MessageType         { return TypeChat }
func (Ping) Type() MessageType         { return TypePing }

type inbound struct {
	Type       MessageType     `json:"type"`
	SDP        json.RawMessage `json:"sdp"`
	Candidate  json.RawMessage `json:"candidate"`
	To         string          `json:"to"`
	AudioMuted *bool           `json:"audio_muted"`
	VideoMuted *bool           `json:"video_muted"`
	Text       string          `json:"text"`
}

// DecodeMessage parses a client frame into one of the Message variants.
func DecodeMessage(data []byte) (Message, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch in.Type {
	case TypeOffer:
		return Offer{SDP: in.SDP}, nil
	case TypeAnswer:
		if in.To == "" {
			return nil, fmt.Errorf("%w: answer without to", ErrMalformed)
		}
		return Answer{SDP: in.SDP, To: in.To}, nil
	case TypeICECandidate:
		if in.To == "" {
			return nil, fmt.Errorf("%w: ice_candidate without to", ErrMalformed)
		}
		return ICECandidate{Candidate: in.Candidate, To: in.To}, nil
	case TypeMuteState:
		return MuteUpdate{AudioMuted: in.AudioMuted, VideoMuted: in.VideoMuted}, nil
	case TypeChat:
		return Chat{Text: in.Text}, nil
	case TypePing:
		return Ping{}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
}

// Outbound payloads.

type SignalOut struct {
	Type      MessageType     `json:"type"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	From      string          `json:"from"`
}

type ChatOut struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`
	Text string      `json:"text"`
}

type RoomStateOut struct {
	Type  MessageType        `json:"type"`
	Users []domain.UserState `json:"users"`
}

type ICEServersOut struct {
	Type       MessageType        `json:"type"`
	ICEServers []domain.ICEServer `json:"ice_servers"`
}

type PongOut struct {
	Type MessageType `json:"type"`
}

func Encode(v any) (Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Frame(b), nil
}
