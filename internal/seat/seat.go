// Package seat brokers DRM device access through systemd-logind so the
// daemon can take display control without root. The logind session grants
// a device fd via TakeDevice; the grant stays valid only while the D-Bus
// connection lives and PauseDevice signals are acknowledged.
package seat

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

const (
	login1Dest      = "org.freedesktop.login1"
	login1Path      = "/org/freedesktop/login1"
	managerIface    = "org.freedesktop.login1.Manager"
	sessionIface    = "org.freedesktop.login1.Session"
	autoSessionPath = "/org/freedesktop/login1/session/auto"
)

type deviceRef struct {
	major uint32
	minor uint32
}

// Session holds session controller status on the caller's logind session.
// It must be kept alive for the lifetime of any fd it granted; Close
// releases the devices and the controller role.
type Session struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	signals chan *dbus.Signal
	devices []deviceRef
}

// Open connects to the system bus, resolves the calling process's logind
// session and takes control of it. Control is requested non-forcibly, so
// an active compositor keeps its grip and Open fails instead.
func Open() (*Session, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	obj, err := sessionObject(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	if call := obj.Call(sessionIface+".TakeControl", 0, false); call.Err != nil {
		conn.Close()
		return nil, fmt.Errorf("take session control: %w", call.Err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(obj.Path()),
		dbus.WithMatchInterface(sessionIface),
	); err != nil {
		_ = obj.Call(sessionIface+".ReleaseControl", 0).Err
		conn.Close()
		return nil, fmt.Errorf("subscribe to session signals: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	return &Session{conn: conn, obj: obj, signals: signals}, nil
}

// sessionObject finds the caller's session, falling back to logind's
// "auto" alias when the PID lookup fails (e.g. inside a user service).
func sessionObject(conn *dbus.Conn) (dbus.BusObject, error) {
	manager := conn.Object(login1Dest, login1Path)

	var path dbus.ObjectPath
	err := manager.Call(managerIface+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
	if err == nil {
		return conn.Object(login1Dest, path), nil
	}

	auto := conn.Object(login1Dest, dbus.ObjectPath(autoSessionPath))
	// Probe the alias so a missing session surfaces here, not at TakeControl.
	if _, perr := auto.GetProperty(sessionIface + ".Id"); perr != nil {
		return nil, fmt.Errorf("resolve logind session: %w", err)
	}
	return auto, nil
}

// TakeDevice asks logind for an fd on the given device node. The fd
// carries implicit DRM master while this session holds control.
func (s *Session) TakeDevice(path string) (int, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return -1, fmt.Errorf("stat %s: %w", path, err)
	}
	major := unix.Major(uint64(st.Rdev))
	minor := unix.Minor(uint64(st.Rdev))

	var fd dbus.UnixFD
	var inactive bool
	err := s.obj.Call(sessionIface+".TakeDevice", 0, major, minor).Store(&fd, &inactive)
	if err != nil {
		return -1, fmt.Errorf("take device %s: %w", path, err)
	}

	s.devices = append(s.devices, deviceRef{major: major, minor: minor})
	return int(fd), nil
}

// Dispatch drains pending session signals. PauseDevice with type "pause"
// must be acknowledged or logind revokes the session after a timeout;
// "force" and "gone" pauses need no ack. Call this periodically while a
// granted fd is in use.
func (s *Session) Dispatch() error {
	for {
		select {
		case sig, ok := <-s.signals:
			if !ok {
				return fmt.Errorf("session signal stream closed")
			}
			s.handleSignal(sig)
		default:
			return nil
		}
	}
}

func (s *Session) handleSignal(sig *dbus.Signal) {
	if sig.Name != sessionIface+".PauseDevice" || len(sig.Body) < 3 {
		return
	}
	major, ok1 := sig.Body[0].(uint32)
	minor, ok2 := sig.Body[1].(uint32)
	kind, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	if kind == "pause" {
		_ = s.obj.Call(sessionIface+".PauseDeviceComplete", 0, major, minor).Err
	}
}

// Close releases every granted device and the controller role, then
// drops the bus connection. Granted fds become revoked after this.
func (s *Session) Close() error {
	for _, d := range s.devices {
		_ = s.obj.Call(sessionIface+".ReleaseDevice", 0, d.major, d.minor).Err
	}
	s.devices = nil
	_ = s.obj.Call(sessionIface+".ReleaseControl", 0).Err
	return s.conn.Close()
}
