// Command bot joins a portald world as a player and walks through portals
// until it has changed dimension a given number of times.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"voxelportals.ai/internal/observerproto"
	"voxelportals.ai/internal/protocol"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8080/v1/play", "play ws url")
		id    = flag.String("id", "bot", "player id")
		dim   = flag.String("dimension", "", "dimension to join (default: world default)")
		trips = flag.Int("trips", 4, "exit after this many dimension changes (0 = never)")
		speed = flag.Float64("speed", 0.25, "blocks walked per tick")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerID:        *id,
		Dimension:       *dim,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	var (
		w       walker
		lastDim string
		changes int
		idle    bool
	)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Printf("read: %v", err)
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var wm protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &wm); err != nil {
				continue
			}
			lastDim = wm.Dimension
			logger.Printf("WELCOME player=%s session=%s dimension=%s tick_rate=%d", wm.PlayerID, wm.SessionID, wm.Dimension, wm.TickRateHz)

		case protocol.TypeError:
			var em protocol.ErrorMsg
			_ = json.Unmarshal(msg, &em)
			logger.Fatalf("server error %s: %s", em.Code, em.Message)

		case protocol.TypePortals:
			var frame observerproto.PortalsMsg
			if err := json.Unmarshal(msg, &frame); err != nil {
				continue
			}
			self, ok := findPlayer(frame.Players, *id)
			if !ok {
				continue
			}
			if lastDim != "" && self.Dimension != lastDim {
				changes++
				logger.Printf("tick %d: %s -> %s (%d)", frame.Tick, lastDim, self.Dimension, changes)
				if *trips > 0 && changes >= *trips {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
					return
				}
			}
			lastDim = self.Dimension

			pos, yaw, ok := w.next(self, frame.Portals, *speed)
			if !ok {
				if !idle {
					logger.Printf("no enterable portal in %s; waiting", self.Dimension)
				}
				idle = true
				continue
			}
			idle = false
			move := protocol.MoveMsg{
				Type:            protocol.TypeMove,
				ProtocolVersion: protocol.Version,
				Dimension:       self.Dimension,
				Pos:             [3]float64{pos[0], pos[1], pos[2]},
				Yaw:             yaw,
			}
			if err := conn.WriteJSON(move); err != nil {
				logger.Printf("send MOVE: %v", err)
				return
			}
		}
	}
}

func findPlayer(players []observerproto.PlayerState, id string) (observerproto.PlayerState, bool) {
	for _, p := range players {
		if p.ID == id {
			return p, true
		}
	}
	return observerproto.PlayerState{}, false
}
