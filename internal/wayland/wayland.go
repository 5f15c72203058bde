// Package wayland implements the graphical backend as a thin pass-through
// to wlr-randr, which speaks the compositor's output power management
// protocol. Output enumeration uses its JSON mode; power changes use its
// --on/--off switches.
package wayland

import (
	"encoding/json"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/Atan-D-RP4/dpms/internal/backend"
	"github.com/Atan-D-RP4/dpms/internal/display"
)

// DefaultTool is the binary consulted when the config does not override it.
const DefaultTool = "wlr-randr"

// runFunc executes the tool and returns its stdout; swapped in tests.
type runFunc func(args ...string) ([]byte, error)

// Backend controls display power through the compositor.
type Backend struct {
	run    runFunc
	logger *zap.Logger
}

// output mirrors the tool's JSON schema; only the fields consumed here
// are declared.
type output struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Enabled     bool   `json:"enabled"`
}

// New builds the Wayland backend. A missing tool is reported as the
// protocol being unsupported so the dispatcher can fall back to the
// console backend.
func New(tool string, logger *zap.Logger) (*Backend, error) {
	if tool == "" {
		tool = DefaultTool
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", backend.ErrProtocolNotSupported, tool)
	}
	run := func(args ...string) ([]byte, error) {
		return exec.Command(path, args...).Output()
	}
	return &Backend{run: run, logger: logger}, nil
}

// SetPower drives the targeted outputs. Named targets resolve against the
// enumerated output names with exact-then-prefix semantics; All and
// Default fan out to every output.
func (b *Backend) SetPower(target display.Target, state display.PowerState) error {
	outs, err := b.outputs()
	if err != nil {
		return err
	}

	names, err := selectNames(outs, target)
	if err != nil {
		return err
	}

	arg := "--off"
	if state == display.PowerOn {
		arg = "--on"
	}
	for _, name := range names {
		if _, err := b.run("--output", name, arg); err != nil {
			return fmt.Errorf("set %s %s: %w", name, state, err)
		}
		b.logger.Debug("output power set",
			zap.String("output", name), zap.Stringer("state", state))
	}
	return nil
}

// GetPower reports the observed state of the targeted outputs.
func (b *Backend) GetPower(target display.Target) ([]display.Info, error) {
	outs, err := b.outputs()
	if err != nil {
		return nil, err
	}

	names, err := selectNames(outs, target)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var infos []display.Info
	for _, o := range outs {
		if !wanted[o.Name] {
			continue
		}
		power := display.PowerOff
		if o.Enabled {
			power = display.PowerOn
		}
		infos = append(infos, display.Info{
			Name:        o.Name,
			Power:       power,
			Description: o.Description,
			Make:        o.Make,
			Model:       o.Model,
		})
	}
	return infos, nil
}

// ListDisplays enumerates every bound output.
func (b *Backend) ListDisplays() ([]display.Info, error) {
	return b.GetPower(display.AllTarget())
}

func (b *Backend) outputs() ([]output, error) {
	data, err := b.run("--json")
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate outputs: %v", backend.ErrProtocolNotSupported, err)
	}
	var outs []output
	if err := json.Unmarshal(data, &outs); err != nil {
		return nil, fmt.Errorf("decode output list: %w", err)
	}
	return outs, nil
}

func selectNames(outs []output, target display.Target) ([]string, error) {
	names := make([]string, 0, len(outs))
	for _, o := range outs {
		names = append(names, o.Name)
	}

	want, named := target.Name()
	if !named {
		return names, nil
	}
	resolved, err := display.Resolve(names, want)
	if err != nil {
		return nil, err
	}
	return []string{resolved}, nil
}

var _ backend.Backend = (*Backend)(nil)
