package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbench/litctl/internal/auth"
	"github.com/lightbench/litctl/internal/device"
	"github.com/lightbench/litctl/internal/playback"
	"github.com/lightbench/litctl/internal/telemetry"
)

const testPassword = "bench-secret"

// newTestServer builds a Server around a sim device and a loaded three-row
// schedule, and serves its routes from an httptest server.
func newTestServer(t *testing.T) (*Server, *httptest.Server, *playback.Controller) {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	sim := device.NewSim()
	ctl := playback.NewController(playback.ControllerOptions{Transport: sim})

	path := filepath.Join(t.TempDir(), "bench.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,1.0\n500,2.0\n1000,1.5\n"), 0o644))
	require.NoError(t, ctl.Load(path))

	srv, err := New(Options{
		PasswordHash: hash,
		Controller:   ctl,
		Interval:     device.NewIntervalControl(sim),
		Window:       telemetry.NewWindow(10 * time.Second),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return srv, ts, ctl
}

// login fetches a bearer token.
func login(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"password": testPassword})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out["token"])
	return out["token"]
}

// doJSON issues an authenticated request and decodes the response.
func doJSON(t *testing.T, ts *httptest.Server, token, method, path string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_RequiresPasswordHash(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Controller: &playback.Controller{}})
	assert.Error(t, err)
}

func TestServer_LoginRejectsBadPassword(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"password": "wrong"})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_StateRequiresAuth(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_StateSnapshot(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)
	token := login(t, ts)

	var state stateResponse
	status := doJSON(t, ts, token, http.MethodGet, "/api/state", nil, &state)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, state.Length)
	assert.False(t, state.Running)
	assert.True(t, state.CanPlay)
	assert.False(t, state.CanReset)
	assert.Equal(t, device.DefaultSimInterval, state.IntervalMs)
}

func TestServer_ControlTransitions(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)
	token := login(t, ts)

	// Pause with nothing running is a conflict.
	status := doJSON(t, ts, token, http.MethodPost, "/api/control/pause", nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Reset at row 0 is a conflict.
	status = doJSON(t, ts, token, http.MethodPost, "/api/control/reset", nil, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Jump to a valid row while paused.
	var state stateResponse
	status = doJSON(t, ts, token, http.MethodPost, "/api/control/jump", map[string]int{"index": 2}, &state)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, state.ActiveIndex)

	// Jump out of range is a bad request.
	status = doJSON(t, ts, token, http.MethodPost, "/api/control/jump", map[string]int{"index": 7}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// Negative repeats is a bad request.
	status = doJSON(t, ts, token, http.MethodPost, "/api/control/repeats", map[string]int{"count": -1}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = doJSON(t, ts, token, http.MethodPost, "/api/control/reset", nil, &state)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, state.ActiveIndex)
}

func TestServer_PlayPauseRoundTrip(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)
	token := login(t, ts)

	var state stateResponse
	status := doJSON(t, ts, token, http.MethodPost, "/api/control/repeats", map[string]int{"count": 5}, &state)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, ts, token, http.MethodPost, "/api/control/play", nil, &state)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, state.Running)

	status = doJSON(t, ts, token, http.MethodPost, "/api/control/pause", nil, &state)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, state.Running)
}

func TestServer_IntervalQuantizes(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)
	token := login(t, ts)

	var out map[string]int
	status := doJSON(t, ts, token, http.MethodPost, "/api/control/interval", map[string]int{"ms": 503}, &out)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 505, out["interval_ms"])
}

func TestServer_TelemetryWindow(t *testing.T) {
	t.Parallel()

	srv, ts, _ := newTestServer(t)
	token := login(t, ts)

	now := time.Now()
	srv.window.Append(telemetry.Sample{At: now, Value: 0.5})
	srv.window.Append(telemetry.Sample{At: now.Add(100 * time.Millisecond), Value: 1.0})

	var out telemetryResponse
	status := doJSON(t, ts, token, http.MethodGet, "/api/telemetry", nil, &out)

	require.Equal(t, http.StatusOK, status)
	require.Len(t, out.Samples, 2)
	assert.Equal(t, 1.0, out.Samples[1].Value)
	assert.Equal(t, -1.0, out.YMin)
	assert.Equal(t, 2.0, out.YMax)
}

func TestServer_WebsocketStreamsState(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)
	token := login(t, ts)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/telemetry?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var frame wsFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "state", frame.Type)
	require.NotNil(t, frame.State)
	assert.Equal(t, 3, frame.State.Length)
}

func TestServer_WebsocketRejectsBadToken(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/telemetry?token=bogus"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestServer_ServesMonitorPage(t *testing.T) {
	t.Parallel()

	_, ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestServer_StartAndStop(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	sim := device.NewSim()
	ctl := playback.NewController(playback.ControllerOptions{Transport: sim})
	srv, err := New(Options{PasswordHash: hash, Controller: ctl, Port: 0})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Start(t.Context()) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, time.Second, time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/state", srv.Addr()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, srv.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}
