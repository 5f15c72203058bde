package drm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	devDir = "/dev/dri"

	// DRM character device major, primary (card) nodes occupy the first
	// 64 minors. Render nodes start at 128 and cannot modeset.
	drmMajor        = 226
	primaryMinorMax = 64
)

// ErrNoDevice means every candidate card node was exhausted on both the
// session-brokered and the direct acquisition path.
var ErrNoDevice = errors.New("no usable DRM device found")

// ErrNoDisplay means no connected connector yielded a pipeline.
var ErrNoDisplay = errors.New("no connected display found")

// DiscoverCards scans /dev/dri for primary card nodes, validating each as
// a DRM character device, and returns the paths in ascending order so
// acquisition is reproducible across runs.
func DiscoverCards() []string {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil
	}

	var cards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "card") {
			continue
		}
		path := filepath.Join(devDir, e.Name())
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err != nil {
			continue
		}
		if st.Mode&unix.S_IFMT != unix.S_IFCHR {
			continue
		}
		rdev := uint64(st.Rdev)
		if unix.Major(rdev) != drmMajor || unix.Minor(rdev) >= primaryMinorMax {
			continue
		}
		cards = append(cards, path)
	}

	sort.Strings(cards)
	return cards
}

// Device is an open, atomic-commit-capable DRM device handle.
type Device struct {
	fd     int
	path   string
	master bool
}

// NewDeviceFromFD wraps a file descriptor granted by the session broker.
// The broker already holds master for us, so only the atomic capability
// is negotiated. The caller keeps ownership of the grant's lifetime.
func NewDeviceFromFD(fd int, path string) (*Device, error) {
	d := &Device{fd: fd, path: path}
	if err := d.enableAtomic(); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenDirect opens the first candidate card node that grants master and
// accepts the atomic capability. This is the fallback when no session
// broker is available (SSH session, no logind); it typically requires
// membership in the video group.
func OpenDirect(cards []string) (*Device, error) {
	var lastErr error

	for _, path := range cards {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", path, err)
			continue
		}

		d := &Device{fd: fd, path: path}

		// The broker would grant master implicitly; here it must be
		// taken explicitly. A running compositor may already hold it.
		if err := ioctl(fd, drmIoctlSetMaster, nil); err != nil {
			lastErr = fmt.Errorf("%s: acquire DRM master: %w", path, err)
			unix.Close(fd)
			continue
		}
		d.master = true

		if err := d.enableAtomic(); err != nil {
			lastErr = fmt.Errorf("%s: %w", path, err)
			d.Close()
			continue
		}

		return d, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, lastErr)
	}
	return nil, ErrNoDevice
}

// Path returns the device node this handle was opened from.
func (d *Device) Path() string {
	return d.path
}

// Close drops master if it was explicitly acquired and closes the fd.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	if d.master {
		_ = ioctl(d.fd, drmIoctlDropMaster, nil)
		d.master = false
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}

// enableAtomic negotiates the atomic-modesetting client capability. A
// device that rejects it cannot serve the commit protocol and is treated
// as unusable.
func (d *Device) enableAtomic() error {
	req := modeSetClientCap{Capability: drmClientCapAtomic, Value: 1}
	if err := ioctl(d.fd, drmIoctlSetClientCap, unsafe.Pointer(&req)); err != nil {
		return fmt.Errorf("atomic modesetting not supported: %w", err)
	}
	return nil
}
