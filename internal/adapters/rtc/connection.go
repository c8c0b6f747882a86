package rtc

import (
	"sync"
	"sync/atomic"

	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ToPion converts configured descriptors for the server-side peer connection.
func ToPion(servers []domain.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

// Opener creates one PeerConnection per participant.
type Opener struct {
	config webrtc.Configuration
}

func NewOpener(servers []domain.ICEServer) *Opener {
	return &Opener{config: webrtc.Configuration{ICEServers: ToPion(servers)}}
}

func (o *Opener) Open(key core.SessionKey, events chan<- core.SessionEvent) (core.NegotiationSession, error) {
	pc, err := webrtc.NewPeerConnection(o.config)
	if err != nil {
		return nil, err
	}
	s := &Session{
		pc:     pc,
		key:    key,
		events: events,
		done:   make(chan struct{}),
		logger: log.With().
			Str("module", "rtc").
			Str("room", key.Room.String()).
			Str("name", key.Name).
			Logger(),
	}

	pc.OnICEConnectionStateChange(func(st webrtc.ICEConnectionState) {
		s.logger.Info().Str("ice_state", st.String()).Msg("ICE state")
	})
	pc.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		s.logger.Info().Str("peer_connection_state", st.String()).Msg("Peer state")
		switch st {
		case webrtc.PeerConnectionStateFailed:
			s.emit(core.SessionFailed)
		case webrtc.PeerConnectionStateClosed:
			s.emit(core.SessionClosed)
		}
	})

	s.logger.Debug().Msg("peer connection opened")
	return s, nil
}

// Session wraps a PeerConnection. Terminal states are reported at most once.
type Session struct {
	pc     *webrtc.PeerConnection
	key    core.SessionKey
	events chan<- core.SessionEvent
	logger zerolog.Logger

	done    chan struct{}
	once    sync.Once
	emitted atomic.Bool
}

func (s *Session) emit(state core.SessionState) {
	if !s.emitted.CompareAndSwap(false, true) {
		return
	}
	// Closed by the registry itself: nobody needs to hear about it.
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.events <- core.SessionEvent{Key: s.key, State: state}:
	case <-s.done:
	}
}

func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pc.Close()
		if err != nil {
			s.logger.Debug().Err(err).Msg("close error")
		} else {
			s.logger.Debug().Msg("closed")
		}
	})
	return err
}

// PeerConnection exposes the underlying connection for media negotiation.
func (s *Session) PeerConnection() *webrtc.PeerConnection { return s.pc }
