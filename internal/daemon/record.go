// Package daemon implements the console power daemon and its lifecycle:
// spawning a detached child that holds the display off, tracking it
// through a PID record in the runtime directory, and stopping it again.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const recordName = "dpms.pid"

// RecordPath returns the daemon record location: one file per user
// session under XDG_RUNTIME_DIR, with a UID-based fallback when the
// variable is unset.
func RecordPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = fmt.Sprintf("/run/user/%d", os.Getuid())
	}
	return filepath.Join(dir, recordName)
}

// RecordStore persists the running daemon's PID. The record is created by
// the daemon after its off-commit succeeds, read by later invocations to
// answer "is the console currently off", and removed on clean shutdown or
// lazily by any reader that finds the process dead.
type RecordStore struct {
	path string
}

// NewRecordStore returns a store at the default runtime-directory path.
func NewRecordStore() *RecordStore {
	return NewRecordStoreAt(RecordPath())
}

// NewRecordStoreAt returns a store at a specific path, used by tests and
// by configuration overrides.
func NewRecordStoreAt(path string) *RecordStore {
	return &RecordStore{path: path}
}

// Path returns the record file location.
func (s *RecordStore) Path() string {
	return s.path
}

// Write records the PID, overwriting any previous record. The write goes
// through a temp file and rename so readers never observe a partial PID.
func (s *RecordStore) Write(pid int) error {
	tmp := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("write daemon record: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write daemon record: %w", err)
	}
	return nil
}

// Read returns the recorded PID. The second result is false when no
// record exists.
func (s *RecordStore) Read() (int, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read daemon record: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false, fmt.Errorf("invalid daemon record %s: %w", s.path, err)
	}
	return pid, true, nil
}

// Remove deletes the record. Removing an absent record is not an error.
func (s *RecordStore) Remove() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove daemon record: %w", err)
	}
	return nil
}
