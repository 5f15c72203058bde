package daemon

import (
	"os"
	"os/exec"
	"syscall"
)

// Spawn re-executes the current binary with the hidden daemon command,
// detached into its own session so it outlives the client. The child's
// PID is returned for startup confirmation against the record file.
func Spawn() (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(executable, "daemon")

	// New session: the daemon must survive the client's exit and its
	// controlling terminal going away.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	// Fully detached; the daemon logs to a file, not the client's tty.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}
