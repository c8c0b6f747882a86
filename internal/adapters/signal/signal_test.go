package signal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/voicerelay/internal/core"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// newChannelPair returns a server side wsChannel and the client connection
// talking to it. With pump set, frames are written by a running writePump.
func newChannelPair(t *testing.T, buffer int, pump bool) (*wsChannel, *websocket.Conn) {
	t.Helper()
	ctl := &SignalWSController{opts: Options{PingPeriod: time.Minute, WriteWait: time.Second}}
	chans := make(chan *wsChannel, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ch := newWSChannel(conn, buffer)
		if pump {
			go ctl.writePump(ch)
		}
		chans <- ch
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case ch := <-chans:
		return ch, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side never upgraded")
		return nil, nil
	}
}

func TestWSChannel_FullBufferIsBackpressure(t *testing.T) {
	req := require.New(t)
	ch, _ := newChannelPair(t, 1, false)

	req.NoError(ch.TrySend(core.Frame(`{"type":"pong"}`)))
	req.ErrorIs(ch.TrySend(core.Frame(`{"type":"pong"}`)), core.ErrBackpressure)
	req.True(ch.IsOpen())
}

func TestWSChannel_CloseFlushesQueueThenSendsCode(t *testing.T) {
	req := require.New(t)
	ch, client := newChannelPair(t, 4, true)

	// Given a frame is still queued
	req.NoError(ch.TrySend(core.Frame(`{"type":"pong"}`)))

	// When the channel is closed
	req.NoError(ch.Close(core.CloseNormal, "replaced"))

	// Then it refuses new frames at once
	req.False(ch.IsOpen())
	req.ErrorIs(ch.TrySend(core.Frame(`{}`)), core.ErrChannelClosed)
	req.NoError(ch.Close(core.CloseNormal, "again"))

	// And the peer still gets the queued frame, then the close code
	req.NoError(client.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, data, err := client.ReadMessage()
	req.NoError(err)
	req.JSONEq(`{"type":"pong"}`, string(data))

	_, _, err = client.ReadMessage()
	var closeErr *websocket.CloseError
	req.ErrorAs(err, &closeErr)
	req.Equal(websocket.CloseNormalClosure, closeErr.Code)
	req.Equal("replaced", closeErr.Text)
}

func TestWSChannel_CloseDoesNotWaitForSlowPeer(t *testing.T) {
	req := require.New(t)
	// Given no writer is draining the queue
	ch, _ := newChannelPair(t, 1, false)
	req.NoError(ch.TrySend(core.Frame(`{}`)))

	// When closed, it returns without writing to the socket
	done := make(chan struct{})
	go func() {
		_ = ch.Close(core.CloseGoingAway, "")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		req.Fail("Close blocked")
	}
	req.False(ch.IsOpen())
}
