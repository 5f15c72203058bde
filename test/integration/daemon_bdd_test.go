//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Atan-D-RP4/dpms/internal/daemon"
)

var _ = Describe("Daemon Lifecycle", func() {
	var (
		tmpDir     string
		store      *daemon.RecordStore
		supervisor *daemon.Supervisor
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dpms-integration-*")
		Expect(err).NotTo(HaveOccurred())

		store = daemon.NewRecordStoreAt(filepath.Join(tmpDir, "dpms.pid"))

		config := daemon.SupervisorConfig{
			StartTimeout: 500 * time.Millisecond,
			StopTimeout:  2 * time.Second,
			PollInterval: 20 * time.Millisecond,
		}
		supervisor = daemon.NewSupervisor(config, store, zap.NewNop())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("RecordStore", func() {
		Context("when writing and reading a record", func() {
			It("should round-trip the PID through the filesystem", func() {
				Expect(store.Write(4321)).To(Succeed())

				pid, ok, err := store.Read()
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(pid).To(Equal(4321))
			})
		})

		Context("when no record exists", func() {
			It("should report absence without error", func() {
				_, ok, err := store.Read()
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("Running", func() {
		Context("when the record points at a live process", func() {
			It("should report running", func() {
				Expect(store.Write(os.Getpid())).To(Succeed())

				pid, ok := supervisor.Running()
				Expect(ok).To(BeTrue())
				Expect(pid).To(Equal(os.Getpid()))
			})
		})

		Context("when the record points at a dead process", func() {
			It("should report stopped and remove the stale record", func() {
				// Spawn and fully reap a short-lived child so its PID is
				// guaranteed dead.
				cmd := exec.Command("true")
				Expect(cmd.Start()).To(Succeed())
				deadPID := cmd.Process.Pid
				Expect(cmd.Wait()).To(Succeed())

				Expect(store.Write(deadPID)).To(Succeed())

				_, ok := supervisor.Running()
				Expect(ok).To(BeFalse())

				_, exists, err := store.Read()
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())
			})
		})
	})

	Describe("Stop", func() {
		Context("when a real process holds the record", func() {
			It("should terminate it and clean up the record", func() {
				cmd := exec.Command("sleep", "60")
				Expect(cmd.Start()).To(Succeed())
				// Reap on exit so liveness polling sees the process die
				// instead of lingering as a zombie.
				waitDone := make(chan struct{})
				go func() {
					cmd.Wait()
					close(waitDone)
				}()

				Expect(store.Write(cmd.Process.Pid)).To(Succeed())

				Expect(supervisor.Stop()).To(Succeed())
				Eventually(waitDone, "2s").Should(BeClosed())

				_, exists, err := store.Read()
				Expect(err).NotTo(HaveOccurred())
				Expect(exists).To(BeFalse())
			})
		})

		Context("when no record exists", func() {
			It("should succeed as a no-op", func() {
				Expect(supervisor.Stop()).To(Succeed())
			})
		})
	})

	Describe("StartedAt", func() {
		It("should report a plausible start time for a live process", func() {
			started, err := supervisor.StartedAt(os.Getpid())
			Expect(err).NotTo(HaveOccurred())
			Expect(started).To(BeTemporally("<=", time.Now()))
			Expect(started).To(BeTemporally(">", time.Now().Add(-24*time.Hour)))
		})
	})
})
