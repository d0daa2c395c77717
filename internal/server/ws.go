package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lightbench/litctl/internal/device"
	"github.com/lightbench/litctl/internal/telemetry"
)

// stateInterval is how often the websocket pushes a playback state frame
// between telemetry samples.
const stateInterval = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The monitor is same-origin or token-gated; the token check below is
	// the real gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFrame is one message on the telemetry websocket.
type wsFrame struct {
	Type   string         `json:"type"` // "sample" or "state"
	Sample *sampleFrame   `json:"sample,omitempty"`
	State  *stateResponse `json:"state,omitempty"`
}

// handleTelemetryWS streams telemetry samples and periodic playback state to
// a websocket client. Auth uses the token query parameter because browsers
// cannot set headers on websocket dials.
func (s *Server) handleTelemetryWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || !s.validToken(token) {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log := s.log.With("conn", connID)
	log.Debug("telemetry client connected", "remote", r.RemoteAddr)

	ctx := r.Context()

	sampleCh, err := s.subscribeSamples(ctx)
	if err != nil {
		log.Warn("telemetry subscription failed", "error", err)
		return
	}

	// Discard client messages; detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	stateTicker := time.NewTicker(stateInterval)
	defer stateTicker.Stop()

	// Initial state frame so the client renders immediately.
	if err := s.writeState(conn); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case sample, ok := <-sampleCh:
			if !ok {
				return
			}
			frame := wsFrame{
				Type:   "sample",
				Sample: &sampleFrame{At: sample.At.UnixMilli(), Value: sample.Value},
			}
			if err := conn.WriteJSON(frame); err != nil {
				log.Debug("telemetry client disconnected", "error", err)
				return
			}

		case <-stateTicker.C:
			if err := s.writeState(conn); err != nil {
				log.Debug("telemetry client disconnected", "error", err)
				return
			}
		}
	}
}

// subscribeSamples starts a per-connection telemetry subscription. Without a
// source the returned nil channel blocks forever and only state frames flow.
func (s *Server) subscribeSamples(ctx context.Context) (<-chan telemetry.Sample, error) {
	if s.source == nil {
		return nil, nil
	}
	return s.source.Subscribe(ctx, device.ChannelLEDState)
}

func (s *Server) writeState(conn *websocket.Conn) error {
	state := s.stateResponse()
	return conn.WriteJSON(wsFrame{Type: "state", State: &state})
}
