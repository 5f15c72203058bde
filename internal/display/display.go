// Package display defines the power state and display selection types
// shared by all backends.
package display

import "fmt"

// PowerState is the logical on/off state of one or more displays.
// No intermediate states exist; transitions are instantaneous from the
// caller's perspective.
type PowerState int

const (
	PowerOn PowerState = iota
	PowerOff
)

func (s PowerState) String() string {
	switch s {
	case PowerOn:
		return "On"
	case PowerOff:
		return "Off"
	default:
		return fmt.Sprintf("PowerState(%d)", int(s))
	}
}

// Invert returns the opposite power state, used by the toggle command.
func (s PowerState) Invert() PowerState {
	if s == PowerOn {
		return PowerOff
	}
	return PowerOn
}

// MarshalJSON renders the state as "on"/"off" for machine-readable output.
func (s PowerState) MarshalJSON() ([]byte, error) {
	if s == PowerOn {
		return []byte(`"on"`), nil
	}
	return []byte(`"off"`), nil
}

// UnmarshalJSON accepts the "on"/"off" form emitted by MarshalJSON.
func (s *PowerState) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"on"`:
		*s = PowerOn
	case `"off"`:
		*s = PowerOff
	default:
		return fmt.Errorf("invalid power state %s", data)
	}
	return nil
}

type targetKind int

const (
	targetDefault targetKind = iota
	targetAll
	targetNamed
)

// Target selects which display(s) an operation applies to. It is produced
// once per invocation from CLI input.
type Target struct {
	kind targetKind
	name string
}

// NamedTarget selects a single display by (possibly abbreviated) name.
func NamedTarget(name string) Target {
	return Target{kind: targetNamed, name: name}
}

// AllTarget selects every bound display.
func AllTarget() Target {
	return Target{kind: targetAll}
}

// DefaultTarget is the behavior when no display is specified; backends
// treat it like AllTarget.
func DefaultTarget() Target {
	return Target{}
}

// TargetFromArgs maps CLI input to a Target. The --all flag wins over a
// positional display name.
func TargetFromArgs(name string, all bool) Target {
	if all {
		return AllTarget()
	}
	if name != "" {
		return NamedTarget(name)
	}
	return DefaultTarget()
}

// Name returns the requested display name and whether the target is named.
func (t Target) Name() (string, bool) {
	return t.name, t.kind == targetNamed
}

func (t Target) String() string {
	switch t.kind {
	case targetNamed:
		return t.name
	case targetAll:
		return "all"
	default:
		return "default"
	}
}

// Info describes one display as observed at query time. It is never
// persisted.
type Info struct {
	Name        string     `json:"name"`
	Power       PowerState `json:"power"`
	Description string     `json:"description,omitempty"`
	Make        string     `json:"make,omitempty"`
	Model       string     `json:"model,omitempty"`
}
