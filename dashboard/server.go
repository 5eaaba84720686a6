package dashboard

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

// Command is a dashboard button press: run, relocate or end.
type Command struct {
	Cmd string `json:"cmd"`
}

// Server pushes scoreboard snapshots to connected browsers and accepts
// commands from them.
type Server struct {
	state *State
	log   *zap.Logger
}

// NewServer ...
func NewServer(state *State, log *zap.Logger) *Server {
	return &Server{state: state, log: log}
}

// Handler returns the websocket handler for the dashboard endpoint.
func (s *Server) Handler() websocket.Handler {
	return websocket.Handler(s.handle)
}

func (s *Server) handle(ws *websocket.Conn) {
	addr := ws.Request().RemoteAddr
	s.log.Info("dashboard connected", zap.String("addr", addr))
	defer s.log.Info("dashboard disconnected", zap.String("addr", addr))

	done := make(chan struct{})
	go s.readCommands(ws, done)

	// Initial frame, then push on change.
	snap, seq := s.state.Snapshot()
	if err := websocket.JSON.Send(ws, snap); err != nil {
		return
	}
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			next, nextSeq := s.state.Snapshot()
			if nextSeq == seq {
				continue
			}
			seq = nextSeq
			if err := websocket.JSON.Send(ws, next); err != nil {
				return
			}
		}
	}
}

func (s *Server) readCommands(ws *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		var cmd Command
		if err := websocket.JSON.Receive(ws, &cmd); err != nil {
			return
		}
		switch cmd.Cmd {
		case "run":
			s.state.RequestRun()
		case "relocate":
			s.state.RequestRelocate()
		case "end":
			s.state.RequestEnd()
		default:
			s.log.Warn("unknown dashboard command", zap.String("cmd", cmd.Cmd))
		}
	}
}
