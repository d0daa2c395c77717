package playback

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbench/litctl/internal/device"
)

func newTestController(t *testing.T) (*Controller, *manualScheduler, *device.Mock) {
	t.Helper()

	sched := &manualScheduler{}
	mock := device.NewMock()
	ctl := NewController(ControllerOptions{
		Transport: mock,
		Scheduler: sched,
	})
	return ctl, sched, mock
}

// writeSchedule writes a CSV schedule to a temp file.
func writeSchedule(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestController_LoadPopulatesSequence(t *testing.T) {
	t.Parallel()

	ctl, _, _ := newTestController(t)
	path := writeSchedule(t, "0,1.0\n500,2.0\n1000,1.5\n")

	require.NoError(t, ctl.Load(path))

	st := ctl.Status()
	assert.Equal(t, 3, st.Length)
	assert.Equal(t, 0, st.ActiveIndex)
	assert.False(t, st.Running)
	assert.Equal(t, path, st.Path)
	assert.Empty(t, st.Banner)
}

func TestController_MissingFileSetsBannerAndClearsSequence(t *testing.T) {
	t.Parallel()

	ctl, _, _ := newTestController(t)

	good := writeSchedule(t, "0,1.0\n")
	require.NoError(t, ctl.Load(good))
	require.Equal(t, 1, ctl.Status().Length)

	missing := filepath.Join(t.TempDir(), "nope.csv")
	require.Error(t, ctl.Load(missing))

	st := ctl.Status()
	assert.Equal(t, 0, st.Length, "failed load clears the stale sequence")
	assert.Contains(t, st.Banner, "not found")
	assert.ErrorIs(t, ctl.Play(), ErrNoSequence)
}

func TestController_ParseErrorBanner(t *testing.T) {
	t.Parallel()

	ctl, _, _ := newTestController(t)
	path := writeSchedule(t, "0,1.0\n100,abc\n")

	require.Error(t, ctl.Load(path))
	assert.Equal(t, "Invalid schedule row 1: 100,abc", ctl.Banner())
}

func TestController_SuccessfulLoadClearsBanner(t *testing.T) {
	t.Parallel()

	ctl, _, _ := newTestController(t)

	require.Error(t, ctl.Load(filepath.Join(t.TempDir(), "nope.csv")))
	require.NotEmpty(t, ctl.Banner())

	path := writeSchedule(t, "0,1.0\n500,2.0\n")
	require.NoError(t, ctl.Load(path))

	assert.Empty(t, ctl.Banner())
	assert.Equal(t, 2, ctl.Status().Length)
}

func TestController_LoadWhileRunningPauses(t *testing.T) {
	t.Parallel()

	ctl, sched, _ := newTestController(t)
	path := writeSchedule(t, "0,1.0\n500,2.0\n1000,1.5\n")
	require.NoError(t, ctl.Load(path))

	require.NoError(t, ctl.SetRepeats(2))
	require.NoError(t, ctl.Play())
	require.True(t, ctl.Status().Running)

	require.NoError(t, ctl.Load(path))

	st := ctl.Status()
	assert.False(t, st.Running)
	assert.Equal(t, 0, st.ActiveIndex)
	assert.Equal(t, 0, sched.PendingCount())
}

func TestController_Reload(t *testing.T) {
	t.Parallel()

	ctl, _, _ := newTestController(t)

	// Nothing loaded yet.
	assert.ErrorIs(t, ctl.Reload(), ErrNoSequence)

	path := writeSchedule(t, "0,1.0\n")
	require.NoError(t, ctl.Load(path))

	// Rewrite the file and reload in place.
	require.NoError(t, os.WriteFile(path, []byte("0,1.0\n500,2.0\n"), 0o644))
	require.NoError(t, ctl.Reload())
	assert.Equal(t, 2, ctl.Status().Length)
}

func TestController_SendFailureSetsBannerWithoutStopping(t *testing.T) {
	t.Parallel()

	sched := &manualScheduler{}
	mock := device.NewMock()
	mock.SetSendFunc(func(ctx context.Context, channel string, value float64) (*device.Ack, error) {
		return nil, assert.AnError
	})

	ctl := NewController(ControllerOptions{Transport: mock, Scheduler: sched})
	path := writeSchedule(t, "0,1.0\n500,2.0\n1000,1.5\n")
	require.NoError(t, ctl.Load(path))

	require.NoError(t, ctl.Play())

	require.Eventually(t, func() bool {
		return ctl.Banner() != ""
	}, time.Second, time.Millisecond)

	assert.Contains(t, ctl.Banner(), "Failed to send setpoint")
	assert.True(t, ctl.Status().Running, "send failures do not stop playback")
}
