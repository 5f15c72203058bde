package daemon

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// ErrStartFailed means the spawned daemon did not confirm startup by
// writing its own PID to the record within the start window. The child is
// not killed; it may still be initializing slow hardware.
var ErrStartFailed = errors.New("daemon failed to start")

// ErrStopTimeout means the daemon did not exit within the stop window
// after SIGTERM. The process is left alone rather than killed forcibly,
// so it can still restore the display.
var ErrStopTimeout = errors.New("daemon did not stop within timeout")

// SupervisorConfig holds the client-side polling budgets. The daemon is
// confirmed or stopped by fixed-interval polling on the record file and
// process liveness; there is no wake-up channel between the processes.
type SupervisorConfig struct {
	StartTimeout time.Duration // how long to wait for the record to appear
	StopTimeout  time.Duration // how long to wait for the process to exit
	PollInterval time.Duration
}

// DefaultSupervisorConfig returns the standard polling budgets.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		StartTimeout: 2 * time.Second,
		StopTimeout:  5 * time.Second,
		PollInterval: 100 * time.Millisecond,
	}
}

// SpawnFunc starts a detached daemon process and returns its PID.
type SpawnFunc func() (int, error)

// Supervisor coordinates the daemon lifecycle from short-lived client
// invocations. All coordination goes through the record file and signals;
// two near-simultaneous starts can race (check-then-act), in which case
// the losing daemon fails device acquisition and exits on its own.
type Supervisor struct {
	config SupervisorConfig
	store  *RecordStore
	spawn  SpawnFunc
	alive  func(pid int) bool
	signal func(pid int, sig syscall.Signal) error
	logger *zap.Logger
}

// NewSupervisor builds a supervisor over the given record store.
func NewSupervisor(config SupervisorConfig, store *RecordStore, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		config: config,
		store:  store,
		spawn:  Spawn,
		alive:  processAlive,
		signal: signalProcess,
		logger: logger,
	}
}

// Running reports whether a live daemon is recorded. A record pointing at
// a dead process is removed as a side effect, so stale state self-heals
// on any liveness query.
func (s *Supervisor) Running() (int, bool) {
	pid, ok, err := s.store.Read()
	if err != nil || !ok {
		return 0, false
	}
	if !s.alive(pid) {
		if err := s.store.Remove(); err != nil {
			s.logger.Warn("failed to remove stale daemon record", zap.Error(err))
		}
		return 0, false
	}
	return pid, true
}

// StartedAt reports when the daemon process began, for status output.
func (s *Supervisor) StartedAt(pid int) (time.Time, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return time.Time{}, err
	}
	ms, err := p.CreateTime()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// Start spawns the daemon if none is running and waits for it to confirm
// startup. Confirmation requires the record to hold the exact PID that
// was spawned, which protects against a stale record written by some
// unrelated process. Idempotent when a daemon is already running.
func (s *Supervisor) Start() error {
	if pid, ok := s.Running(); ok {
		s.logger.Debug("daemon already running", zap.Int("pid", pid))
		return nil
	}

	pid, err := s.spawn()
	if err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	s.logger.Debug("daemon spawned", zap.Int("pid", pid))

	attempts := s.attempts(s.config.StartTimeout)
	for i := 0; i < attempts; i++ {
		time.Sleep(s.config.PollInterval)
		got, ok, err := s.store.Read()
		if err == nil && ok && got == pid {
			return nil
		}
	}
	return ErrStartFailed
}

// Stop signals the recorded daemon and waits for it to exit. An absent
// record, or a record pointing at a dead process, counts as already
// stopped.
func (s *Supervisor) Stop() error {
	pid, ok, err := s.store.Read()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if !s.alive(pid) {
		return s.store.Remove()
	}

	if err := s.signal(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon %d: %w", pid, err)
	}

	attempts := s.attempts(s.config.StopTimeout)
	for i := 0; i < attempts; i++ {
		time.Sleep(s.config.PollInterval)
		if !s.alive(pid) {
			// The daemon removes its own record; clean up in case it
			// died before getting to that.
			if err := s.store.Remove(); err != nil {
				s.logger.Warn("failed to remove daemon record", zap.Error(err))
			}
			return nil
		}
	}
	return ErrStopTimeout
}

func (s *Supervisor) attempts(budget time.Duration) int {
	n := int(budget / s.config.PollInterval)
	if n < 1 {
		n = 1
	}
	return n
}

// processAlive checks liveness by delivering the no-op signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

func signalProcess(pid int, sig syscall.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(sig)
}
