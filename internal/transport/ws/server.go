// Package ws serves the play websocket: a client joins as a player, streams
// MOVE messages and receives PORTALS frames with its own state.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"voxelportals.ai/internal/observerproto"
	"voxelportals.ai/internal/protocol"
	"voxelportals.ai/internal/sim/world"
)

// Runtime is the part of the world runtime a play session uses.
type Runtime interface {
	Join() chan<- world.JoinRequest
	Leave() chan<- string
	Move() chan<- world.MoveRequest
	ObserverJoin() chan<- world.ObserverJoinRequest
	ObserverLeave() chan<- string
	SpawnPoint(dimension string) (string, mgl64.Vec3, error)
	Bootstrap() observerproto.BootstrapResponse
}

type Server struct {
	rt  Runtime
	log *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	// JoinTimeout bounds how long a HELLO waits for the world loop.
	JoinTimeout time.Duration
	// LateJoinWait bounds how long a timed-out join is watched for a reply.
	LateJoinWait time.Duration
}

func NewServer(rt Runtime, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		rt:  rt,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		JoinTimeout:  5 * time.Second,
		LateJoinWait: time.Minute,
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, sid, out := s.handshake(conn)
		if playerID == "" {
			return
		}
		s.log.Printf("player %s connected (session %s) from %s", playerID, sid, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "world stopped"), time.Now().Add(time.Second))
						cancel()
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			req, ok := parseMove(playerID, msg)
			if !ok {
				continue
			}
			select {
			case s.rt.Move() <- req:
			case <-ctx.Done():
			default:
				// Loop is behind; the next MOVE supersedes this one.
			}
		}

		// Cleanup.
		s.send(s.rt.ObserverLeave(), sid)
		s.send(s.rt.Leave(), playerID)
		s.log.Printf("player %s disconnected", playerID)
	}
}

func (s *Server) send(ch chan<- string, v string) {
	select {
	case ch <- v:
	case <-time.After(time.Second):
		s.log.Printf("dropped cleanup for %s: world loop not responding", v)
	}
}

func parseMove(playerID string, msg []byte) (world.MoveRequest, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeMove || base.ProtocolVersion != protocol.Version {
		return world.MoveRequest{}, false
	}
	var mv protocol.MoveMsg
	if err := json.Unmarshal(msg, &mv); err != nil {
		return world.MoveRequest{}, false
	}
	return world.MoveRequest{
		PlayerID:  playerID,
		Dimension: mv.Dimension,
		Pos:       mgl64.Vec3{mv.Pos[0], mv.Pos[1], mv.Pos[2]},
		Yaw:       mv.Yaw,
		Pitch:     mv.Pitch,
	}, true
}

func (s *Server) handshake(conn *websocket.Conn) (playerID, sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		s.reject(conn, protocol.ErrProtoBadRequest, "bad HELLO")
		return "", "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", "", nil
	}
	hello.PlayerID = strings.TrimSpace(hello.PlayerID)
	if hello.PlayerID == "" {
		s.reject(conn, protocol.ErrProtoBadRequest, "missing player_id")
		return "", "", nil
	}

	dim, pos, err := s.rt.SpawnPoint(strings.TrimSpace(hello.Dimension))
	if err != nil {
		s.reject(conn, protocol.ErrUnknownDimension, err.Error())
		return "", "", nil
	}
	if hello.Pos != nil {
		pos = mgl64.Vec3{hello.Pos[0], hello.Pos[1], hello.Pos[2]}
	}

	resp := make(chan error, 1)
	join := world.JoinRequest{PlayerID: hello.PlayerID, Dimension: dim, Pos: pos, Yaw: hello.Yaw, Resp: resp}
	timeout := time.NewTimer(s.JoinTimeout)
	defer timeout.Stop()
	select {
	case s.rt.Join() <- join:
	case <-timeout.C:
		s.reject(conn, protocol.ErrWorldBusy, "world busy")
		return "", "", nil
	}
	select {
	case err = <-resp:
	case <-timeout.C:
		err = errors.New("join timed out")
		go s.leaveIfJoined(hello.PlayerID, resp)
	}
	if err != nil {
		s.reject(conn, joinErrorCode(err), err.Error())
		return "", "", nil
	}

	sessionID = fmt.Sprintf("play-%d", s.nextID.Add(1))
	every := hello.EveryTicks
	if every <= 0 {
		every = 1
	}
	out = make(chan []byte, 8)
	sub := observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, EveryTicks: every}
	select {
	case s.rt.ObserverJoin() <- world.ObserverJoinRequest{SessionID: sessionID, Out: out, Sub: sub}:
	case <-time.After(s.JoinTimeout):
		s.send(s.rt.Leave(), hello.PlayerID)
		s.reject(conn, protocol.ErrWorldBusy, "world busy")
		return "", "", nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		PlayerID:        hello.PlayerID,
		Dimension:       dim,
		Pos:             [3]float64{pos[0], pos[1], pos[2]},
		TickRateHz:      s.rt.Bootstrap().TickRateHz,
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.send(s.rt.ObserverLeave(), sessionID)
		s.send(s.rt.Leave(), hello.PlayerID)
		return "", "", nil
	}
	return hello.PlayerID, sessionID, out
}

// leaveIfJoined waits for a join reply that arrived after the handshake gave
// up and removes the player only if that join succeeded. A failed join may
// belong to an id another session holds, which must stay.
func (s *Server) leaveIfJoined(playerID string, resp <-chan error) {
	select {
	case err := <-resp:
		if err == nil {
			s.send(s.rt.Leave(), playerID)
		}
	case <-time.After(s.LateJoinWait):
	}
}

func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, world.ErrPlayerExists):
		return protocol.ErrConflict
	case errors.Is(err, world.ErrDimensionNotLoaded):
		return protocol.ErrUnknownDimension
	default:
		return protocol.ErrInternal
	}
}

func (s *Server) reject(conn *websocket.Conn, code, message string) {
	_ = writeJSON(conn, protocol.NewError(code, message))
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
