package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Atan-D-RP4/dpms/internal/drm"
	"github.com/Atan-D-RP4/dpms/internal/seat"
)

// loopInterval bounds both the event-servicing cadence and the shutdown
// latency of the daemon's main loop.
const loopInterval = 100 * time.Millisecond

// AcquireFunc produces the device handle the daemon holds for its whole
// lifetime, plus the holder that keeps its privileges valid.
type AcquireFunc func() (*drm.Device, seat.Holder, error)

// Runner is the daemon-process side of the lifecycle: it turns the
// display off once at startup, keeps the device grant alive, and restores
// the display when told to shut down.
type Runner struct {
	store   *RecordStore
	acquire AcquireFunc
	logger  *zap.Logger
}

// NewRunner builds a runner over the given record store.
func NewRunner(store *RecordStore, logger *zap.Logger) *Runner {
	return &Runner{store: store, acquire: seat.Acquire, logger: logger}
}

// Run executes the daemon until a termination signal arrives.
//
// Sequence: install signal handling, acquire the device, find the active
// pipeline, commit inactive, write the PID record, then loop servicing
// session events until shutdown is requested. On the way out the display
// is restored and the record removed; failures there are logged but never
// escalated, because the process is exiting regardless and a dead record
// must not survive it.
func (r *Runner) Run() error {
	// The handler only flips a flag; all real work happens in the main
	// loop. SIGTERM and SIGINT share the same flag.
	var shutdown atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		r.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		shutdown.Store(true)
	}()

	dev, holder, err := r.acquire()
	if err != nil {
		return fmt.Errorf("acquire display device: %w", err)
	}
	defer holder.Close()
	defer dev.Close()

	pipeline, err := dev.FindActivePipeline()
	if err != nil {
		return err
	}
	r.logger.Info("display device acquired",
		zap.String("device", dev.Path()),
		zap.Uint32("pipeline", pipeline))

	if err := dev.SetPipelineActive(pipeline, false); err != nil {
		return fmt.Errorf("turn display off: %w", err)
	}

	if err := r.store.Write(os.Getpid()); err != nil {
		// The display is already off; restore before reporting failure.
		if rerr := dev.SetPipelineActive(pipeline, true); rerr != nil {
			r.logger.Error("failed to restore display", zap.Error(rerr))
		}
		return err
	}

	r.logger.Info("display off, daemon holding device",
		zap.Int("pid", os.Getpid()),
		zap.String("record", r.store.Path()))

	for !shutdown.Load() {
		// A session-brokered grant stays valid only while pause
		// requests are acknowledged.
		if err := holder.Dispatch(); err != nil {
			r.logger.Warn("session event dispatch failed", zap.Error(err))
			break
		}
		time.Sleep(loopInterval)
	}

	if err := dev.SetPipelineActive(pipeline, true); err != nil {
		r.logger.Error("failed to restore display", zap.Error(err))
	}
	if err := r.store.Remove(); err != nil {
		r.logger.Error("failed to remove daemon record", zap.Error(err))
	}

	r.logger.Info("daemon stopped")
	return nil
}
