package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lightbench/litctl/internal/playback"
)

// stateResponse is the GET /api/state payload.
type stateResponse struct {
	playback.Status
	CanPlay    bool `json:"can_play"`
	CanReset   bool `json:"can_reset"`
	IntervalMs int  `json:"interval_ms,omitempty"`
}

// telemetryResponse is the GET /api/telemetry payload.
type telemetryResponse struct {
	Samples []sampleFrame `json:"samples"`
	YMin    float64       `json:"y_min"`
	YMax    float64       `json:"y_max"`
}

type sampleFrame struct {
	At    int64   `json:"at_ms"`
	Value float64 `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// requireAuth rejects requests without a valid bearer token. Websocket
// clients pass the token as a query parameter instead.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || !s.validToken(token) {
			writeError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.issueToken(req.Password)
	if err != nil {
		s.log.Warn("login rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stateResponse())
}

func (s *Server) stateResponse() stateResponse {
	resp := stateResponse{
		Status:   s.controller.Status(),
		CanPlay:  s.controller.Sequencer().CanPlay(),
		CanReset: s.controller.Sequencer().CanReset(),
	}
	if s.interval != nil {
		resp.IntervalMs = s.interval.Value()
	}
	return resp
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	samples := s.window.Samples()
	frames := make([]sampleFrame, len(samples))
	for i, sample := range samples {
		frames[i] = sampleFrame{At: sample.At.UnixMilli(), Value: sample.Value}
	}

	writeJSON(w, http.StatusOK, telemetryResponse{
		Samples: frames,
		YMin:    s.window.YMin,
		YMax:    s.window.YMax,
	})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.respondControl(w, s.controller.Play())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.respondControl(w, s.controller.Pause())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.respondControl(w, s.controller.Reset())
}

func (s *Server) handleJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.respondControl(w, s.controller.Jump(req.Index))
}

func (s *Server) handleRepeats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.respondControl(w, s.controller.SetRepeats(req.Count))
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	if s.interval == nil {
		writeError(w, http.StatusNotFound, "interval control not available")
		return
	}

	var req struct {
		Ms int `json:"ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	applied, err := s.interval.Set(req.Ms)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"interval_ms": applied})
}

// respondControl maps sequencer transition errors onto HTTP statuses:
// disallowed transitions are conflicts, bad input is a bad request.
func (s *Server) respondControl(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.stateResponse())
	case errors.Is(err, playback.ErrIndexOutOfRange),
		errors.Is(err, playback.ErrNegativeRepeats):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, playback.ErrNoSequence):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusConflict, err.Error())
	}
}
