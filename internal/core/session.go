package core

import "github.com/dkeye/voicerelay/internal/domain"

type SessionState string

const (
	SessionFailed SessionState = "failed"
	SessionClosed SessionState = "closed"
)

// SessionKey binds a negotiation session to the participant that owns it.
type SessionKey struct {
	Room        domain.RoomID
	Name        string
	Participant domain.ParticipantID
}

// SessionEvent reports that a session reached a terminal state.
type SessionEvent struct {
	Key   SessionKey
	State SessionState
}

// NegotiationSession is the per-participant media negotiation handle.
// The relay only opens and closes it.
//
//go:generate mockgen -source=session.go -destination=mocks/mock_session.go -package=mocks
type NegotiationSession interface {
	Close() error
}

// SessionOpener creates sessions. Terminal state changes are reported on
// events rather than through callbacks into the caller.
type SessionOpener interface {
	Open(key SessionKey, events chan<- SessionEvent) (NegotiationSession, error)
}
