// Package console implements the power-control backend for bare TTY
// sessions by coordinating the display-off daemon: turning off starts it,
// turning on stops it, and the observed state is whether it is running.
package console

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Atan-D-RP4/dpms/internal/backend"
	"github.com/Atan-D-RP4/dpms/internal/daemon"
	"github.com/Atan-D-RP4/dpms/internal/display"
	"github.com/Atan-D-RP4/dpms/internal/seat"
)

// consoleDisplayName labels the single addressable unit this backend
// exposes; the console cannot target individual outputs.
const consoleDisplayName = "tty"

// Supervisor is the daemon-lifecycle surface the backend needs; satisfied
// by *daemon.Supervisor.
type Supervisor interface {
	Start() error
	Stop() error
	Running() (int, bool)
	StartedAt(pid int) (time.Time, error)
}

// Backend delegates power control to the daemon supervisor.
type Backend struct {
	sup      Supervisor
	validate func() error
	logger   *zap.Logger
}

// New builds the console backend over the default record store.
func New(config daemon.SupervisorConfig, store *daemon.RecordStore, logger *zap.Logger) *Backend {
	return &Backend{
		sup:      daemon.NewSupervisor(config, store, logger),
		validate: validateDeviceAccess,
		logger:   logger,
	}
}

// validateDeviceAccess opens and immediately releases the device so
// permission problems fail fast in the client, before a daemon is
// spawned. The release keeps the client from contending with the daemon.
func validateDeviceAccess() error {
	dev, holder, err := seat.Acquire()
	if err != nil {
		return err
	}
	_ = dev.Close()
	_ = holder.Close()
	return nil
}

// SetPower turns the console display off by starting the daemon, or on by
// stopping it. Both directions are idempotent. Named targets are ignored
// with a warning since the console is a single unit.
func (b *Backend) SetPower(target display.Target, state display.PowerState) error {
	if name, ok := target.Name(); ok {
		b.logger.Warn("console backend cannot address individual displays, operating on all",
			zap.String("display", name))
	}

	switch state {
	case display.PowerOff:
		if pid, ok := b.sup.Running(); ok {
			b.logger.Debug("display already off", zap.Int("pid", pid))
			return nil
		}
		if err := b.validate(); err != nil {
			return fmt.Errorf("validate device access: %w", err)
		}
		return b.sup.Start()
	case display.PowerOn:
		if _, ok := b.sup.Running(); !ok {
			b.logger.Debug("display already on")
			return nil
		}
		return b.sup.Stop()
	default:
		return fmt.Errorf("unknown power state %v", state)
	}
}

// GetPower reports the console as a single display whose power state
// mirrors the daemon's liveness.
func (b *Backend) GetPower(target display.Target) ([]display.Info, error) {
	if name, ok := target.Name(); ok {
		b.logger.Warn("console backend cannot query individual displays, showing all",
			zap.String("display", name))
	}

	info := display.Info{
		Name:        consoleDisplayName,
		Power:       display.PowerOn,
		Description: "TTY/Console display",
	}
	if pid, ok := b.sup.Running(); ok {
		info.Power = display.PowerOff
		if started, err := b.sup.StartedAt(pid); err == nil {
			info.Description = fmt.Sprintf("TTY/Console display, off for %s",
				time.Since(started).Round(time.Second))
		}
	}
	return []display.Info{info}, nil
}

// ListDisplays reports the single console display.
func (b *Backend) ListDisplays() ([]display.Info, error) {
	return b.GetPower(display.AllTarget())
}

var _ backend.Backend = (*Backend)(nil)
