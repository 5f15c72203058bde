package console

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Atan-D-RP4/dpms/internal/display"
)

// fakeSupervisor is a test double for the daemon lifecycle.
type fakeSupervisor struct {
	running   bool
	pid       int
	starts    int
	stops     int
	startErr  error
	stopErr   error
	startedAt time.Time
}

func (f *fakeSupervisor) Start() error {
	f.starts++
	if f.startErr == nil {
		f.running = true
	}
	return f.startErr
}

func (f *fakeSupervisor) Stop() error {
	f.stops++
	if f.stopErr == nil {
		f.running = false
	}
	return f.stopErr
}

func (f *fakeSupervisor) Running() (int, bool) {
	if !f.running {
		return 0, false
	}
	return f.pid, true
}

func (f *fakeSupervisor) StartedAt(pid int) (time.Time, error) {
	if f.startedAt.IsZero() {
		return time.Time{}, errors.New("no such process")
	}
	return f.startedAt, nil
}

func newTestBackend(sup *fakeSupervisor) *Backend {
	return &Backend{
		sup:      sup,
		validate: func() error { return nil },
		logger:   zap.NewNop(),
	}
}

// TestSetPower_OffStartsDaemon verifies off validates device access and
// starts the daemon
func TestSetPower_OffStartsDaemon(t *testing.T) {
	sup := &fakeSupervisor{}
	b := newTestBackend(sup)
	validated := false
	b.validate = func() error { validated = true; return nil }

	require.NoError(t, b.SetPower(display.DefaultTarget(), display.PowerOff))

	assert.True(t, validated)
	assert.Equal(t, 1, sup.starts)
}

// TestSetPower_OffTwiceIsIdempotent verifies a second off while the
// daemon runs succeeds without starting another daemon
func TestSetPower_OffTwiceIsIdempotent(t *testing.T) {
	sup := &fakeSupervisor{pid: 4242}
	b := newTestBackend(sup)

	require.NoError(t, b.SetPower(display.DefaultTarget(), display.PowerOff))
	require.NoError(t, b.SetPower(display.DefaultTarget(), display.PowerOff))

	assert.Equal(t, 1, sup.starts)
}

// TestSetPower_OnWithoutDaemon verifies on with no daemon running is a
// no-op success
func TestSetPower_OnWithoutDaemon(t *testing.T) {
	sup := &fakeSupervisor{}
	b := newTestBackend(sup)

	require.NoError(t, b.SetPower(display.DefaultTarget(), display.PowerOn))

	assert.Zero(t, sup.stops)
}

// TestSetPower_OnStopsDaemon verifies on stops a running daemon
func TestSetPower_OnStopsDaemon(t *testing.T) {
	sup := &fakeSupervisor{running: true, pid: 4242}
	b := newTestBackend(sup)

	require.NoError(t, b.SetPower(display.DefaultTarget(), display.PowerOn))

	assert.Equal(t, 1, sup.stops)
}

// TestSetPower_ValidationFailureBlocksStart verifies a device-access
// failure in the client prevents spawning a daemon that would only fail
func TestSetPower_ValidationFailureBlocksStart(t *testing.T) {
	sup := &fakeSupervisor{}
	b := newTestBackend(sup)
	accessErr := errors.New("permission denied")
	b.validate = func() error { return accessErr }

	err := b.SetPower(display.DefaultTarget(), display.PowerOff)

	assert.ErrorIs(t, err, accessErr)
	assert.Zero(t, sup.starts)
}

// TestSetPower_NamedTargetStillOperates verifies a named target warns but
// operates on the whole console
func TestSetPower_NamedTargetStillOperates(t *testing.T) {
	sup := &fakeSupervisor{}
	b := newTestBackend(sup)

	require.NoError(t, b.SetPower(display.NamedTarget("DP-1"), display.PowerOff))

	assert.Equal(t, 1, sup.starts)
}

// TestGetPower_MirrorsDaemonState verifies the synthetic tty display's
// power follows daemon liveness
func TestGetPower_MirrorsDaemonState(t *testing.T) {
	sup := &fakeSupervisor{}
	b := newTestBackend(sup)

	infos, err := b.GetPower(display.DefaultTarget())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "tty", infos[0].Name)
	assert.Equal(t, display.PowerOn, infos[0].Power)

	sup.running = true
	sup.pid = 4242
	sup.startedAt = time.Now().Add(-time.Minute)

	infos, err = b.GetPower(display.DefaultTarget())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, display.PowerOff, infos[0].Power)
	assert.Contains(t, infos[0].Description, "off for")
}

// TestListDisplays verifies the console reports exactly one display
func TestListDisplays(t *testing.T) {
	b := newTestBackend(&fakeSupervisor{})

	infos, err := b.ListDisplays()

	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "tty", infos[0].Name)
}
