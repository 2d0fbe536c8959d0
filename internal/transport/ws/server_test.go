package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"voxelportals.ai/internal/observerproto"
	"voxelportals.ai/internal/protocol"
	"voxelportals.ai/internal/sim/tuning"
	"voxelportals.ai/internal/sim/world"
)

func startPlay(t *testing.T) string {
	t.Helper()
	tun := tuning.Defaults()
	tun.Normalize()
	rt, err := world.New(tun, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = rt.Run(ctx) }()

	ts := httptest.NewServer(NewServer(rt, nil).Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func hello(id string) protocol.HelloMsg {
	return protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerID: id}
}

func TestPlay_WelcomeThenFrames(t *testing.T) {
	url := startPlay(t)
	conn := dial(t, url)

	if err := conn.WriteJSON(hello("alice")); err != nil {
		t.Fatalf("hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.PlayerID != "alice" || welcome.Dimension != "OVERWORLD" || welcome.TickRateHz != 20 {
		t.Fatalf("welcome=%+v", welcome)
	}
	if welcome.Pos != [3]float64{0.5, 64, 0.5} {
		t.Fatalf("pos=%v want spawn", welcome.Pos)
	}

	move := protocol.MoveMsg{Type: protocol.TypeMove, ProtocolVersion: protocol.Version, Dimension: "OVERWORLD", Pos: [3]float64{3.5, 64, 0.5}, Yaw: 90}
	if err := conn.WriteJSON(move); err != nil {
		t.Fatalf("move: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var frame observerproto.PortalsMsg
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Type != "PORTALS" {
			t.Fatalf("frame type=%q", frame.Type)
		}
		for _, p := range frame.Players {
			if p.ID == "alice" && p.Pos[0] == 3.5 && p.Yaw == 90 {
				return
			}
		}
	}
	t.Fatalf("move never showed up in a frame")
}

func TestPlay_DuplicatePlayerConflicts(t *testing.T) {
	url := startPlay(t)
	first := dial(t, url)
	if err := first.WriteJSON(hello("bob")); err != nil {
		t.Fatalf("hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := first.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}

	second := dial(t, url)
	if err := second.WriteJSON(hello("bob")); err != nil {
		t.Fatalf("hello: %v", err)
	}
	_, b, err := second.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var e protocol.ErrorMsg
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Type != protocol.TypeError || e.Code != protocol.ErrConflict {
		t.Fatalf("error=%+v want %s", e, protocol.ErrConflict)
	}
}

func TestPlay_UnknownDimension(t *testing.T) {
	url := startPlay(t)
	conn := dial(t, url)
	h := hello("carol")
	h.Dimension = "MOON"
	if err := conn.WriteJSON(h); err != nil {
		t.Fatalf("hello: %v", err)
	}
	var e protocol.ErrorMsg
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read: %v", err)
	}
	if e.Code != protocol.ErrUnknownDimension {
		t.Fatalf("code=%s want %s", e.Code, protocol.ErrUnknownDimension)
	}
}

func TestPlay_RejectsBadHandshake(t *testing.T) {
	url := startPlay(t)
	conn := dial(t, url)
	if err := conn.WriteJSON(map[string]string{"type": "SUBSCRIBE"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("read err=%v want policy violation close", err)
	}
}

func TestJoinErrorCode(t *testing.T) {
	if got := joinErrorCode(world.ErrPlayerExists); got != protocol.ErrConflict {
		t.Fatalf("code=%s want %s", got, protocol.ErrConflict)
	}
	if got := joinErrorCode(world.ErrDimensionNotLoaded); got != protocol.ErrUnknownDimension {
		t.Fatalf("code=%s want %s", got, protocol.ErrUnknownDimension)
	}
	if got := joinErrorCode(context.DeadlineExceeded); got != protocol.ErrInternal {
		t.Fatalf("code=%s want %s", got, protocol.ErrInternal)
	}
}

func TestParseMove(t *testing.T) {
	req, ok := parseMove("p", []byte(`{"type":"MOVE","protocol_version":"1.0","dimension":"NETHER","pos":[1,2,3],"yaw":10,"pitch":-5}`))
	if !ok || req.PlayerID != "p" || req.Dimension != "NETHER" || req.Pos[2] != 3 || req.Pitch != -5 {
		t.Fatalf("req=%+v ok=%v", req, ok)
	}
	if _, ok := parseMove("p", []byte(`{"type":"HELLO","protocol_version":"1.0"}`)); ok {
		t.Fatalf("HELLO parsed as MOVE")
	}
}

type stallRuntime struct {
	join     chan world.JoinRequest
	leave    chan string
	move     chan world.MoveRequest
	obsJoin  chan world.ObserverJoinRequest
	obsLeave chan string
}

func newStallRuntime() *stallRuntime {
	return &stallRuntime{
		join:     make(chan world.JoinRequest),
		leave:    make(chan string),
		move:     make(chan world.MoveRequest),
		obsJoin:  make(chan world.ObserverJoinRequest),
		obsLeave: make(chan string),
	}
}

func (r *stallRuntime) Join() chan<- world.JoinRequest                 { return r.join }
func (r *stallRuntime) Leave() chan<- string                           { return r.leave }
func (r *stallRuntime) Move() chan<- world.MoveRequest                 { return r.move }
func (r *stallRuntime) ObserverJoin() chan<- world.ObserverJoinRequest { return r.obsJoin }
func (r *stallRuntime) ObserverLeave() chan<- string                   { return r.obsLeave }
func (r *stallRuntime) Bootstrap() observerproto.BootstrapResponse     { return observerproto.BootstrapResponse{TickRateHz: 20} }
func (r *stallRuntime) SpawnPoint(string) (string, mgl64.Vec3, error)  { return "OVERWORLD", mgl64.Vec3{0.5, 64, 0.5}, nil }

func TestPlay_LateJoinReplyLeavesOnlyOnSuccess(t *testing.T) {
	cases := []struct {
		name      string
		reply     error
		wantLeave bool
	}{
		{name: "conflict", reply: world.ErrPlayerExists, wantLeave: false},
		{name: "joined", reply: nil, wantLeave: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := newStallRuntime()
			srv := NewServer(rt, nil)
			srv.JoinTimeout = 50 * time.Millisecond
			srv.LateJoinWait = 5 * time.Second
			ts := httptest.NewServer(srv.Handler())
			t.Cleanup(ts.Close)
			conn := dial(t, "ws"+strings.TrimPrefix(ts.URL, "http"))

			if err := conn.WriteJSON(hello("carol")); err != nil {
				t.Fatalf("hello: %v", err)
			}
			var req world.JoinRequest
			select {
			case req = <-rt.join:
			case <-time.After(2 * time.Second):
				t.Fatalf("join request never arrived")
			}
			var e protocol.ErrorMsg
			if err := conn.ReadJSON(&e); err != nil {
				t.Fatalf("read: %v", err)
			}
			if e.Type != protocol.TypeError {
				t.Fatalf("type=%q want %s", e.Type, protocol.TypeError)
			}

			req.Resp <- tc.reply
			wait := 200 * time.Millisecond
			if tc.wantLeave {
				wait = 2 * time.Second
			}
			select {
			case id := <-rt.leave:
				if !tc.wantLeave {
					t.Fatalf("leave(%q) after a failed join", id)
				}
				if id != "carol" {
					t.Fatalf("leave=%q want carol", id)
				}
			case <-time.After(wait):
				if tc.wantLeave {
					t.Fatalf("no leave after a late successful join")
				}
			}
		})
	}
}
