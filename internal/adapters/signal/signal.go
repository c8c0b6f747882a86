package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/voicerelay/internal/app"
	"github.com/dkeye/voicerelay/internal/core"
	"github.com/dkeye/voicerelay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

type SignalWSController struct {
	Registry *app.Registry
	Router   *app.Router
	Limiter  *MessageLimiter
	opts     Options
}

func NewSignalWSController(reg *app.Registry, router *app.Router, limiter *MessageLimiter, opts Options) *SignalWSController {
	return &SignalWSController{
		Registry: reg,
		Router:   router,
		Limiter:  limiter,
		opts:     opts,
	}
}

// wsChannel implements core.Channel over a websocket connection.
// Frames are queued on send and written by writePump, which also writes the
// close frame once send is closed. Close never touches the network.
type wsChannel struct {
	conn *websocket.Conn
	send chan core.Frame

	mu       sync.RWMutex
	closed   bool
	closeMsg []byte
}

func newWSChannel(conn *websocket.Conn, buffer int) *wsChannel {
	return &wsChannel{
		conn: conn,
		send: make(chan core.Frame, buffer),
	}
}

func (c *wsChannel) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrChannelClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

// Close stops accepting frames. Frames already queued are flushed before the
// close frame with code is written.
func (c *wsChannel) Close(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.closeMsg = websocket.FormatCloseMessage(code, reason)
	close(c.send)
	return nil
}

func (c *wsChannel) closeMessage() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closeMsg
}

// abort drops the connection after a write failure.
func (c *wsChannel) abort() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	_ = c.conn.Close()
}

func (c *wsChannel) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleSignal serves GET /ws/:room/:name for the lifetime of the socket.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := c.GetString("client_token")
	join := domain.JoinRequest{Room: c.Param("room"), Name: c.Param("name")}
	logger := log.With().Str("module", "signal").Str("sid", sid).Str("room", join.Room).Str("name", join.Name).Logger()

	if err := join.Validate(); err != nil {
		logger.Warn().Err(err).Msg("rejected join")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	logger.Info().Msg("new WS connection")

	ch := newWSChannel(ws, ctl.opts.SendBuffer)
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ctl.writePump(ch)

	p, err := ctl.Registry.Join(domain.RoomID(join.Room), join.Name, ch)
	if err != nil {
		logger.Error().Err(err).Msg("join failed")
		_ = ch.Close(core.CloseInternalError, "join failed")
		return
	}

	go func() {
		<-connCtx.Done()
		_ = ch.Close(core.CloseGoingAway, "server shutting down")
	}()

	ctl.readPump(p, ch, sid)
}
