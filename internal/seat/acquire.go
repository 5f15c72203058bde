package seat

import (
	"golang.org/x/sys/unix"

	"github.com/Atan-D-RP4/dpms/internal/drm"
)

// Holder keeps an acquired device's privileges alive. For a session grant
// it is the logind session itself, which must be dispatched periodically;
// for direct access it does nothing. Dropping the holder before the
// device invalidates the grant.
type Holder interface {
	// Dispatch services pending session events, if any.
	Dispatch() error
	Close() error
}

// directHolder backs the no-broker fallback; the device fd itself carries
// the explicitly acquired master.
type directHolder struct{}

func (directHolder) Dispatch() error { return nil }
func (directHolder) Close() error    { return nil }

// Acquire opens an atomic-capable DRM device with minimal privileges:
// the logind session path first, then direct open with explicit master
// acquisition on each candidate card. The returned Holder must outlive
// the Device.
func Acquire() (*drm.Device, Holder, error) {
	cards := drm.DiscoverCards()
	if len(cards) == 0 {
		return nil, nil, drm.ErrNoDevice
	}

	if sess, err := Open(); err == nil {
		// Flush anything queued during session setup before handing
		// out grants.
		_ = sess.Dispatch()

		for _, path := range cards {
			fd, err := sess.TakeDevice(path)
			if err != nil {
				continue
			}
			dev, err := drm.NewDeviceFromFD(fd, path)
			if err != nil {
				unix.Close(fd)
				continue
			}
			return dev, sess, nil
		}
		// No candidate accepted a grant; fall through to direct access.
		_ = sess.Close()
	}

	dev, err := drm.OpenDirect(cards)
	if err != nil {
		return nil, nil, err
	}
	return dev, directHolder{}, nil
}
