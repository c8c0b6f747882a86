package app

import (
	"encoding/json"
	"testing"

	"github.com/dkeye/voicerelay/internal/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type roomFixture struct {
	reg      *Registry
	router   *Router
	channels map[string]*fakeChannel
}

func newRoomFixture(t *testing.T, names ...string) *roomFixture {
	t.Helper()
	reg := newTestRegistry(&fakeOpener{})
	f := &roomFixture{
		reg:      reg,
		router:   NewRouter(reg).WithLogger(zerolog.Nop()),
		channels: map[string]*fakeChannel{},
	}
	for _, n := range names {
		ch := newFakeChannel()
		_, err := reg.Join("r1", n, ch)
		require.NoError(t, err)
		f.channels[n] = ch
	}
	for _, ch := range f.channels {
		ch.reset()
	}
	return f
}

func TestRouter_Offer_FansOutToOthers(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A", "B", "C")

	// When A sends an offer
	f.router.Dispatch("r1", "A", core.Offer{SDP: json.RawMessage(`{"type":"offer","sdp":"v=0"}`)})

	// Then B and C receive it tagged with from, A does not
	req.Empty(f.channels["A"].received())
	for _, n := range []string{"B", "C"} {
		msgs := f.channels[n].received()
		req.Len(msgs, 1, n)
		req.Equal("offer", msgs[0]["type"])
		req.Equal("A", msgs[0]["from"])
		req.Equal(map[string]any{"type": "offer", "sdp": "v=0"}, msgs[0]["sdp"])
		req.NotContains(msgs[0], "candidate")
	}
}

func TestRouter_Answer_TargetedOnly(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A", "B", "C")

	f.router.Dispatch("r1", "A", core.Answer{SDP: json.RawMessage(`"v=0"`), To: "B"})

	msgs := f.channels["B"].received()
	req.Len(msgs, 1)
	req.Equal(map[string]any{"type": "answer", "sdp": "v=0", "from": "A"}, map[string]any(msgs[0]))
	req.Empty(f.channels["A"].received())
	req.Empty(f.channels["C"].received())
}

func TestRouter_Answer_UnknownTargetIsNoop(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A", "C")

	req.NotPanics(func() {
		f.router.Dispatch("r1", "A", core.Answer{SDP: json.RawMessage(`"v=0"`), To: "B"})
	})
	req.Empty(f.channels["A"].received())
	req.Empty(f.channels["C"].received())
	members, _ := f.reg.Members("r1")
	req.Len(members, 2)
}

func TestRouter_ICECandidate_Targeted(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A", "B")

	f.router.Dispatch("r1", "B", core.ICECandidate{
		Candidate: json.RawMessage(`{"candidate":"candidate:1 1 udp 1 127.0.0.1 9 typ host","sdpMid":"0"}`),
		To:        "A",
	})

	msgs := f.channels["A"].received()
	req.Len(msgs, 1)
	req.Equal("ice_candidate", msgs[0]["type"])
	req.Equal("B", msgs[0]["from"])
	req.Equal("0", msgs[0]["candidate"].(map[string]any)["sdpMid"])
	req.NotContains(msgs[0], "sdp")
	req.Empty(f.channels["B"].received())
}

func TestRouter_Chat_IncludesSender(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A", "B")

	f.router.Dispatch("r1", "A", core.Chat{Text: "hi"})

	for _, n := range []string{"A", "B"} {
		msgs := f.channels[n].received()
		req.Len(msgs, 1)
		req.Equal(map[string]any{"type": "chat", "from": "A", "text": "hi"}, map[string]any(msgs[0]))
	}
}

func TestRouter_MuteState_UpdatesAndBroadcasts(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A", "B")
	yes := true

	f.router.Dispatch("r1", "A", core.MuteUpdate{AudioMuted: &yes})

	states := f.channels["B"].ofType(core.TypeRoomState)
	req.Len(states, 1)
	alice := states[0]["users"].([]any)[0].(map[string]any)
	req.Equal(true, alice["audio_muted"])
	req.Equal(false, alice["video_muted"])
}

func TestRouter_UnknownRoomIsDropped(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A")

	req.NotPanics(func() {
		f.router.Dispatch("elsewhere", "A", core.Chat{Text: "hi"})
	})
	req.Empty(f.channels["A"].received())
}

func TestRouter_PingIsNotRouted(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A", "B")

	f.router.Dispatch("r1", "A", core.Ping{})

	req.Empty(f.channels["A"].received())
	req.Empty(f.channels["B"].received())
}

func TestRouter_DeliveryFailure_EvictsOnlyThatRecipient(t *testing.T) {
	req := require.New(t)
	f := newRoomFixture(t, "A", "B", "C")

	// Given B's channel is stuck
	f.channels["B"].setFailSend()

	// When A sends an offer to everyone
	f.router.Dispatch("r1", "A", core.Offer{SDP: json.RawMessage(`"v=0"`)})

	// Then C still got the offer and B was removed
	req.Len(f.channels["C"].ofType(core.TypeOffer), 1)
	members, _ := f.reg.Members("r1")
	req.Len(members, 2)
	req.Equal([]string{"A", "C"}, f.channels["A"].lastState())
	req.Equal([]string{"A", "C"}, f.channels["C"].lastState())
	checkInvariants(t, f.reg)
}

func TestRouter_FanOutFailures_SurvivorsEndWithCurrentState(t *testing.T) {
	tests := []struct {
		name string
		msg  core.Message
	}{
		{name: "chat", msg: core.Chat{Text: "hi"}},
		{name: "offer", msg: core.Offer{SDP: json.RawMessage(`"v=0"`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newRoomFixture(t, "A", "B", "C", "D")

			// Given two members in the middle of the room are stuck
			f.channels["B"].setFailSend()
			f.channels["C"].setFailSend()

			// When A's message fans out
			f.router.Dispatch("r1", "A", tt.msg)

			// Then both are removed and every survivor's newest frame is the
			// room_state without them
			members, _ := f.reg.Members("r1")
			req.Len(members, 2)
			for _, n := range []string{"A", "D"} {
				got := f.channels[n].received()
				req.NotEmpty(got, n)
				last := got[len(got)-1]
				req.Equal(string(core.TypeRoomState), last["type"], n)
				req.Equal([]string{"A", "D"}, userNames(last), n)
			}
			req.Len(f.channels["D"].ofType(tt.msg.Type()), 1)
			checkInvariants(t, f.reg)
		})
	}
}

func TestRouter_Scenario_JoinChatDisconnectLeave(t *testing.T) {
	req := require.New(t)
	reg := newTestRegistry(&fakeOpener{})
	router := NewRouter(reg).WithLogger(zerolog.Nop())
	a, b := newFakeChannel(), newFakeChannel()

	// room r1 is empty
	_, ok := reg.Members("r1")
	req.False(ok)

	// join(A)
	pa, err := reg.Join("r1", "A", a)
	req.NoError(err)
	members, _ := reg.Members("r1")
	req.Len(members, 1)

	// join(B): both see A and B
	pb, err := reg.Join("r1", "B", b)
	req.NoError(err)
	req.Equal([]string{"A", "B"}, a.lastState())
	req.Equal([]string{"A", "B"}, b.lastState())

	// A chats
	router.Dispatch("r1", "A", core.Chat{Text: "hi"})
	want := map[string]any{"type": "chat", "from": "A", "text": "hi"}
	req.Equal(want, map[string]any(a.ofType(core.TypeChat)[0]))
	req.Equal(want, map[string]any(b.ofType(core.TypeChat)[0]))

	// B disconnects
	reg.Release(pb)
	req.Equal([]string{"A"}, a.lastState())

	// A leaves
	reg.Release(pa)
	_, ok = reg.Members("r1")
	req.False(ok)
}
