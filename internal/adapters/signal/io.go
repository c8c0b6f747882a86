package signal

import (
	"errors"
	"time"

	"github.com/dkeye/voicerelay/internal/app"
	"github.com/dkeye/voicerelay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(c *wsChannel) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				if msg := c.closeMessage(); msg != nil {
					_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(ctl.opts.WriteWait))
				}
				_ = c.conn.Close()
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.abort()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Info().Err(err).Str("module", "signal").Msg("writePump write error")
				c.abort()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Info().Err(err).Str("module", "signal").Msg("writePump ping error")
				c.abort()
				return
			}
		}
	}
}

// readPump owns the participant: whatever ends the loop, the participant is
// released exactly once.
func (ctl *SignalWSController) readPump(p *app.Participant, c *wsChannel, sid string) {
	logger := log.With().
		Str("module", "signal").
		Str("sid", sid).
		Str("room", p.Room.String()).
		Str("name", p.Name).
		Logger()

	defer func() {
		logger.Info().Msg("readPump closing")
		ctl.Registry.Release(p)
		_ = c.Close(core.CloseNormal, "")
		ctl.Limiter.Forget(p.ID.String())
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				logger.Warn().Err(err).Msg("readPump unexpected close")
			} else {
				logger.Debug().Err(err).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(p, c, data)
	}
}

func (ctl *SignalWSController) handleSignal(p *app.Participant, c *wsChannel, data []byte) {
	if !ctl.Limiter.Allow(p.ID.String()) {
		log.Warn().Str("module", "signal").Str("room", p.Room.String()).Str("name", p.Name).Msg("rate limited, dropping message")
		return
	}

	msg, err := core.DecodeMessage(data)
	if err != nil {
		ev := log.Warn().Err(err).Str("module", "signal").Str("room", p.Room.String()).Str("name", p.Name)
		if errors.Is(err, core.ErrUnknownType) {
			ev.Msg("invalid message type")
		} else {
			ev.Msg("bad message")
		}
		return
	}

	if _, ok := msg.(core.Ping); ok {
		ctl.handlePing(c)
		return
	}
	ctl.Router.Dispatch(p.Room, p.Name, msg)
}

func (ctl *SignalWSController) sendJSON(c core.Channel, v any) {
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(f)
}
