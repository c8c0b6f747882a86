package app

import (
	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
)

// Participant binds a Channel and a negotiation session to a name in a room.
// Everything except mute is immutable after Join.
type Participant struct {
	ID      domain.ParticipantID
	Room    domain.RoomID
	Name    string
	Channel core.Channel
	Session core.NegotiationSession

	mute domain.MuteState // guarded by Registry.mu
}

func (p *Participant) sessionKey() core.SessionKey {
	return core.SessionKey{Room: p.Room, Name: p.Name, Participant: p.ID}
}

func (p *Participant) state() domain.UserState {
	return domain.UserState{
		Name:       p.Name,
		AudioMuted: p.mute.AudioMuted,
		VideoMuted: p.mute.VideoMuted,
	}
}

// room keeps participants in join order.
type room struct {
	participants []*Participant
}

func (rm *room) indexOf(match func(*Participant) bool) int {
	for i, p := range rm.participants {
		if match(p) {
			return i
		}
	}
	return -1
}

func byName(name string) func(*Participant) bool {
	return func(p *Participant) bool { return p.Name == name }
}

func byIdentity(target *Participant) func(*Participant) bool {
	return func(p *Participant) bool { return p == target }
}

func byID(id domain.ParticipantID) func(*Participant) bool {
	return func(p *Participant) bool { return p.ID == id }
}
