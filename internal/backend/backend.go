// Package backend defines the power-control contract implemented by the
// graphical and console backends, and the environment probing that picks
// between them.
package backend

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/Atan-D-RP4/dpms/internal/display"
)

// ErrUnsupportedEnvironment means neither a graphical session nor a
// console session was detected.
var ErrUnsupportedEnvironment = errors.New("neither Wayland nor TTY environment available")

// ErrProtocolNotSupported means the environment was detected but lacks
// the capability needed to control display power (e.g. the compositor
// does not expose output power management, or the session is X11).
var ErrProtocolNotSupported = errors.New("display power management protocol not supported")

// Backend is the capability set both environments implement.
type Backend interface {
	// SetPower drives the targeted display(s) to the given state.
	SetPower(target display.Target, state display.PowerState) error
	// GetPower reports the observed state of the targeted display(s).
	GetPower(target display.Target) ([]display.Info, error)
	// ListDisplays enumerates every bound display.
	ListDisplays() ([]display.Info, error)
}

// Kind identifies which backend the environment calls for.
type Kind int

const (
	KindWayland Kind = iota
	KindX11
	KindConsole
)

func (k Kind) String() string {
	switch k {
	case KindWayland:
		return "wayland"
	case KindX11:
		return "x11"
	default:
		return "console"
	}
}

// Detect probes the environment once at startup. Order: WAYLAND_DISPLAY,
// then DISPLAY (X11, recognized but unsupported), then a console session
// indicated by stdin being a terminal or XDG_SESSION_TYPE=tty (the latter
// covers SSH logins into a logind session).
func Detect() (Kind, error) {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		return KindWayland, nil
	}
	if os.Getenv("DISPLAY") != "" {
		return KindX11, nil
	}
	if stdinIsTerminal() || os.Getenv("XDG_SESSION_TYPE") == "tty" {
		return KindConsole, nil
	}
	return 0, ErrUnsupportedEnvironment
}

func stdinIsTerminal() bool {
	_, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), unix.TCGETS)
	return err == nil
}
