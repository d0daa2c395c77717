// Package server exposes a web monitor for a running playback session:
// token-authenticated REST endpoints mirroring the local control surface
// (play, pause, reset, jump, repeats, interval slider) and a websocket
// stream of live telemetry and playback state.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/lightbench/litctl/internal/auth"
	"github.com/lightbench/litctl/internal/device"
	"github.com/lightbench/litctl/internal/logging"
	"github.com/lightbench/litctl/internal/playback"
	"github.com/lightbench/litctl/internal/telemetry"
	"github.com/lightbench/litctl/web"
)

// tokenTTL is how long an issued session token stays valid.
const tokenTTL = 24 * time.Hour

// Server is the web monitor HTTP server.
type Server struct {
	port         int
	passwordHash string

	controller *playback.Controller
	interval   *device.IntervalControl
	source     telemetry.Source
	window     *telemetry.Window
	log        *logging.Logger

	mu       sync.Mutex
	tokens   map[string]time.Time
	started  bool
	server   *http.Server
	listener net.Listener
}

// Options configures a Server.
type Options struct {
	Port         int
	PasswordHash string

	Controller *playback.Controller
	Interval   *device.IntervalControl
	Source     telemetry.Source
	Window     *telemetry.Window
	Logger     *logging.Logger
}

// New creates a Server. PasswordHash and Controller are required.
func New(opts Options) (*Server, error) {
	if opts.PasswordHash == "" {
		return nil, errors.New("password hash is required")
	}
	if opts.Controller == nil {
		return nil, errors.New("controller is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Window == nil {
		opts.Window = telemetry.NewWindow(0)
	}

	return &Server{
		port:         opts.Port,
		passwordHash: opts.PasswordHash,
		controller:   opts.Controller,
		interval:     opts.Interval,
		source:       opts.Source,
		window:       opts.Window,
		log:          opts.Logger,
		tokens:       make(map[string]time.Time),
	}, nil
}

// Start listens and serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket streams stay open
		IdleTimeout:  120 * time.Second,
	}
	s.started = true
	s.mu.Unlock()

	go s.expireTokens(ctx)
	if s.source != nil {
		go s.pumpTelemetry(ctx)
	}

	s.log.Info("web monitor listening", "addr", listener.Addr().String())

	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.started = false
	return nil
}

// Addr returns the bound listen address, useful when port 0 was requested.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// pumpTelemetry feeds the rolling chart window from the telemetry source.
func (s *Server) pumpTelemetry(ctx context.Context) {
	samples, err := s.source.Subscribe(ctx, device.ChannelLEDState)
	if err != nil {
		s.log.Error("telemetry subscription failed", "error", err)
		return
	}

	for sample := range samples {
		s.window.Append(sample)
	}
}

// issueToken verifies the password and returns a fresh bearer token.
func (s *Server) issueToken(password string) (string, error) {
	ok, err := auth.VerifyPassword(password, s.passwordHash)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("invalid password")
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = time.Now().Add(tokenTTL)
	s.mu.Unlock()
	return token, nil
}

// validToken reports whether token is known and unexpired.
func (s *Server) validToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.tokens, token)
		return false
	}
	return true
}

// expireTokens periodically drops expired tokens.
func (s *Server) expireTokens(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for token, expiry := range s.tokens {
				if now.After(expiry) {
					delete(s.tokens, token)
				}
			}
			s.mu.Unlock()
		}
	}
}

// routes builds the HTTP router.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/telemetry", s.handleTelemetry).Methods(http.MethodGet)
	api.HandleFunc("/control/play", s.handlePlay).Methods(http.MethodPost)
	api.HandleFunc("/control/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/control/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/control/jump", s.handleJump).Methods(http.MethodPost)
	api.HandleFunc("/control/repeats", s.handleRepeats).Methods(http.MethodPost)
	api.HandleFunc("/control/interval", s.handleInterval).Methods(http.MethodPost)

	r.HandleFunc("/ws/telemetry", s.handleTelemetryWS).Methods(http.MethodGet)

	// The monitor page itself; login happens in the page.
	r.PathPrefix("/").Handler(http.FileServer(http.FS(web.Assets(""))))

	return r
}
