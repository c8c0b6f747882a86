package app

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/voicerelay/internal/core"
)

type fakeChannel struct {
	mu        sync.Mutex
	frames    []core.Frame
	open      bool
	failSend  bool
	closes    int
	closeCode int
}

func newFakeChannel() *fakeChannel { return &fakeChannel{open: true} }

func (c *fakeChannel) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return core.ErrChannelClosed
	}
	if c.failSend {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeChannel) Close(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closes++
	c.closeCode = code
	return nil
}

func (c *fakeChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeChannel) setFailSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSend = true
}

type received map[string]any

func (c *fakeChannel) received() []received {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]received, 0, len(c.frames))
	for _, f := range c.frames {
		var m received
		if err := json.Unmarshal(f, &m); err != nil {
			panic(err)
		}
		out = append(out, m)
	}
	return out
}

func (c *fakeChannel) ofType(t core.MessageType) []received {
	var out []received
	for _, m := range c.received() {
		if m["type"] == string(t) {
			out = append(out, m)
		}
	}
	return out
}

func (c *fakeChannel) lastState() []string {
	states := c.ofType(core.TypeRoomState)
	if len(states) == 0 {
		return nil
	}
	return userNames(states[len(states)-1])
}

func (c *fakeChannel) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func userNames(m received) []string {
	users, _ := m["users"].([]any)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.(map[string]any)["name"].(string))
	}
	return names
}

type fakeSession struct {
	key core.SessionKey

	mu     sync.Mutex
	closes int
	err    error
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.err
}

func (s *fakeSession) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeOpener struct {
	mu       sync.Mutex
	sessions []*fakeSession
	events   chan<- core.SessionEvent
	err      error
	closeErr error
}

func (o *fakeOpener) Open(key core.SessionKey, events chan<- core.SessionEvent) (core.NegotiationSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	s := &fakeSession{key: key, err: o.closeErr}
	o.sessions = append(o.sessions, s)
	o.events = events
	return s, nil
}

func (o *fakeOpener) emit(ev core.SessionEvent) {
	o.mu.Lock()
	events := o.events
	o.mu.Unlock()
	events <- ev
}

var errOpen = errors.New("no peer connection")
