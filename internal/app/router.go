package app

import (
	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Router decides who receives each inbound message.
type Router struct {
	reg    *Registry
	logger zerolog.Logger
}

func NewRouter(reg *Registry) *Router {
	return &Router{
		reg:    reg,
		logger: log.With().Str("module", "app.router").Logger(),
	}
}

func (rt *Router) WithLogger(l zerolog.Logger) *Router {
	rt.logger = l
	return rt
}

// Dispatch routes msg from sender. Nothing is reported back to the sender:
// unknown rooms and targets are dropped, failed recipients are evicted.
func (rt *Router) Dispatch(roomID domain.RoomID, sender string, msg core.Message) {
	logger := rt.logger.With().Str("room", roomID.String()).Str("from", sender).Logger()

	members, ok := rt.reg.Members(roomID)
	if !ok {
		logger.Warn().Msg("room not found for message")
		return
	}

	switch m := msg.(type) {
	case core.MuteUpdate:
		rt.reg.UpdateMuteState(roomID, sender, m.AudioMuted, m.VideoMuted)

	case core.Chat:
		rt.send(members, core.ChatOut{Type: core.TypeChat, From: sender, Text: m.Text}, logger)

	case core.Offer:
		// Every other member gets the offer; clients filter by `from`.
		others := lo.Filter(members, func(p *Participant, _ int) bool { return p.Name != sender })
		rt.send(others, core.SignalOut{Type: core.TypeOffer, SDP: m.SDP, From: sender}, logger)

	case core.Answer:
		rt.sendTo(members, m.To, core.SignalOut{Type: core.TypeAnswer, SDP: m.SDP, From: sender}, logger)

	case core.ICECandidate:
		rt.sendTo(members, m.To, core.SignalOut{Type: core.TypeICECandidate, Candidate: m.Candidate, From: sender}, logger)

	default:
		logger.Debug().Str("type", string(msg.Type())).Msg("nothing to route")
	}
}

func (rt *Router) sendTo(members []*Participant, to string, v any, logger zerolog.Logger) {
	target, ok := lo.Find(members, func(p *Participant) bool { return p.Name == to })
	if !ok {
		logger.Debug().Str("to", to).Msg("target not in room")
		return
	}
	rt.send([]*Participant{target}, v, logger)
}

func (rt *Router) send(recipients []*Participant, v any, logger zerolog.Logger) {
	if len(recipients) == 0 {
		return
	}
	frame, err := core.Encode(v)
	if err != nil {
		logger.Error().Err(err).Msg("encode outbound")
		return
	}
	sent := rt.reg.deliver(recipients, frame)
	logger.Debug().Int("recipients", len(recipients)).Int("sent", sent).Msg("routed")
}
