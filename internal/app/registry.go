package app

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const sessionEventBuffer = 64

// Registry is the single source of truth for room membership.
// All mutations go through mu; network sends and teardown happen after it is
// released, except for a participant displaced by a same-name Join, which is
// torn down before its replacement becomes visible.
type Registry struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*room

	sessions   core.SessionOpener
	iceServers []domain.ICEServer
	events     chan core.SessionEvent
	logger     zerolog.Logger
}

type Option func(*Registry)

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

func NewRegistry(sessions core.SessionOpener, iceServers []domain.ICEServer, opts ...Option) *Registry {
	r := &Registry{
		rooms:      make(map[domain.RoomID]*room),
		sessions:   sessions,
		iceServers: iceServers,
		events:     make(chan core.SessionEvent, sessionEventBuffer),
		logger:     log.With().Str("module", "app.registry").Logger(),
	}
	if r.iceServers == nil {
		r.iceServers = []domain.ICEServer{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// snapshot is a consistent view of a room taken under mu.
type snapshot struct {
	room    domain.RoomID
	users   []domain.UserState
	members []*Participant
}

func (r *Registry) snapshotLocked(id domain.RoomID, rm *room) snapshot {
	return snapshot{
		room:    id,
		users:   lo.Map(rm.participants, func(p *Participant, _ int) domain.UserState { return p.state() }),
		members: slices.Clone(rm.participants),
	}
}

// Join admits name into roomID. A participant already holding that name is
// torn down before the newcomer becomes visible.
func (r *Registry) Join(roomID domain.RoomID, name string, ch core.Channel) (*Participant, error) {
	p := &Participant{
		ID:      domain.NewParticipantID(),
		Room:    roomID,
		Name:    name,
		Channel: ch,
	}
	logger := r.logger.With().Str("room", roomID.String()).Str("name", name).Str("participant", p.ID.String()).Logger()

	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if ok {
		if i := rm.indexOf(byName(name)); i >= 0 {
			old := rm.participants[i]
			rm.participants = slices.Delete(rm.participants, i, i+1)
			logger.Info().Str("replaced", old.ID.String()).Msg("name already in room, removing old session")
			r.teardown(old, core.CloseNormal, "replaced by a new session")
		}
	}

	sess, err := r.sessions.Open(p.sessionKey(), r.events)
	if err != nil {
		var snap *snapshot
		if ok {
			if len(rm.participants) == 0 {
				delete(r.rooms, roomID)
			} else {
				s := r.snapshotLocked(roomID, rm)
				snap = &s
			}
		}
		r.mu.Unlock()
		if snap != nil {
			r.deliverState(*snap)
		}
		logger.Error().Err(err).Msg("open negotiation session")
		return nil, fmt.Errorf("open negotiation session: %w", err)
	}
	p.Session = sess

	if !ok {
		rm = &room{}
		r.rooms[roomID] = rm
		logger.Info().Msg("room created")
	}
	rm.participants = append(rm.participants, p)
	snap := r.snapshotLocked(roomID, rm)
	r.mu.Unlock()

	logger.Info().Int("members", len(snap.members)).Msg("participant joined")
	r.deliverState(snap)

	frame, err := core.Encode(core.ICEServersOut{Type: core.TypeICEServers, ICEServers: r.iceServers})
	if err != nil {
		logger.Error().Err(err).Msg("encode ice servers")
		r.Release(p)
		return nil, err
	}
	if err := ch.TrySend(frame); err != nil {
		logger.Info().Err(err).Msg("channel gone before ice servers were sent")
		r.Release(p)
		return nil, fmt.Errorf("send ice servers: %w", err)
	}
	return p, nil
}

// Leave removes the participant called name from roomID. Unknown room or
// name is a no-op.
func (r *Registry) Leave(roomID domain.RoomID, name string) {
	r.remove(roomID, byName(name), "left")
}

// Release removes p only if p itself is still registered, so a late
// trigger from a displaced session cannot evict its replacement.
func (r *Registry) Release(p *Participant) {
	if p == nil {
		return
	}
	r.remove(p.Room, byIdentity(p), "disconnected")
}

func (r *Registry) remove(roomID domain.RoomID, match func(*Participant) bool, reason string) bool {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	i := rm.indexOf(match)
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	p := rm.participants[i]
	rm.participants = slices.Delete(rm.participants, i, i+1)

	logger := r.logger.With().Str("room", roomID.String()).Str("name", p.Name).Str("participant", p.ID.String()).Logger()
	if len(rm.participants) == 0 {
		delete(r.rooms, roomID)
		r.mu.Unlock()
		r.teardown(p, core.CloseNormal, reason)
		logger.Info().Str("reason", reason).Msg("participant left, room removed")
		return true
	}
	snap := r.snapshotLocked(roomID, rm)
	r.mu.Unlock()

	r.teardown(p, core.CloseNormal, reason)
	logger.Info().Str("reason", reason).Int("members", len(snap.members)).Msg("participant left")
	r.deliverState(snap)
	return true
}

// teardown closes everything p owns. Failures are logged and swallowed.
func (r *Registry) teardown(p *Participant, code int, reason string) {
	if p.Session != nil {
		if err := p.Session.Close(); err != nil {
			r.logger.Debug().Err(err).Str("name", p.Name).Msg("close negotiation session")
		}
	}
	if p.Channel.IsOpen() {
		if err := p.Channel.Close(code, reason); err != nil {
			r.logger.Debug().Err(err).Str("name", p.Name).Msg("close channel")
		}
	}
}

// UpdateMuteState changes only the flags that are non-nil and broadcasts the
// new room state.
func (r *Registry) UpdateMuteState(roomID domain.RoomID, name string, audio, video *bool) bool {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	i := rm.indexOf(byName(name))
	if i < 0 {
		r.mu.Unlock()
		return false
	}
	p := rm.participants[i]
	p.mute = p.mute.Apply(audio, video)
	st := p.state()
	snap := r.snapshotLocked(roomID, rm)
	r.mu.Unlock()

	r.logger.Info().
		Str("room", roomID.String()).
		Str("name", name).
		Bool("audio_muted", st.AudioMuted).
		Bool("video_muted", st.VideoMuted).
		Msg("updated mute state")
	r.deliverState(snap)
	return true
}

// BroadcastState sends the current room_state to every member.
func (r *Registry) BroadcastState(roomID domain.RoomID) {
	r.mu.Lock()
	rm, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	snap := r.snapshotLocked(roomID, rm)
	r.mu.Unlock()
	r.deliverState(snap)
}

func (r *Registry) deliverState(snap snapshot) {
	frame, err := core.Encode(core.RoomStateOut{Type: core.TypeRoomState, Users: snap.users})
	if err != nil {
		r.logger.Error().Err(err).Str("room", snap.room.String()).Msg("encode room state")
		return
	}
	r.deliver(snap.members, frame)
}

// deliver sends f to each open recipient. A failed send is treated as that
// recipient disconnecting. Failed recipients are released only after every
// send was attempted, so the room_state announcing their departure is the
// last one the survivors see.
func (r *Registry) deliver(recipients []*Participant, f core.Frame) int {
	sent := 0
	var failed []*Participant
	for _, p := range recipients {
		if !p.Channel.IsOpen() {
			continue
		}
		if err := p.Channel.TrySend(f); err != nil {
			r.logger.Info().Err(err).Str("room", p.Room.String()).Str("name", p.Name).Msg("delivery failed, removing recipient")
			failed = append(failed, p)
			continue
		}
		sent++
	}
	for _, p := range failed {
		r.Release(p)
	}
	return sent
}

// Members returns a copy of the room's participants in join order.
func (r *Registry) Members(roomID domain.RoomID) ([]*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return slices.Clone(rm.participants), true
}

// RoomState returns the users of a room as they would be broadcast.
func (r *Registry) RoomState(roomID domain.RoomID) ([]domain.UserState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return r.snapshotLocked(roomID, rm).users, true
}

type RoomInfo struct {
	ID           domain.RoomID `json:"id"`
	Participants int           `json:"participants"`
}

func (r *Registry) Rooms() []RoomInfo {
	r.mu.Lock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, rm := range r.rooms {
		out = append(out, RoomInfo{ID: id, Participants: len(rm.participants)})
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run applies terminal negotiation events until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("session event loop stopped")
			return
		case ev := <-r.events:
			r.handleSessionEvent(ev)
		}
	}
}

func (r *Registry) handleSessionEvent(ev core.SessionEvent) {
	removed := r.remove(ev.Key.Room, byID(ev.Key.Participant), "negotiation "+string(ev.State))
	r.logger.Info().
		Str("room", ev.Key.Room.String()).
		Str("name", ev.Key.Name).
		Str("state", string(ev.State)).
		Bool("removed", removed).
		Msg("negotiation session terminal")
}

// Close tears down every participant. Used on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	var all []*Participant
	for id, rm := range r.rooms {
		all = append(all, rm.participants...)
		delete(r.rooms, id)
	}
	r.mu.Unlock()

	for _, p := range all {
		r.teardown(p, core.CloseGoingAway, "server shutting down")
	}
	r.logger.Info().Int("participants", len(all)).Msg("registry closed")
}
