// Package main is the CLI entry point for dpms.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Atan-D-RP4/dpms/internal/backend"
	"github.com/Atan-D-RP4/dpms/internal/config"
	"github.com/Atan-D-RP4/dpms/internal/console"
	"github.com/Atan-D-RP4/dpms/internal/daemon"
	"github.com/Atan-D-RP4/dpms/internal/display"
	"github.com/Atan-D-RP4/dpms/internal/output"
	"github.com/Atan-D-RP4/dpms/internal/wayland"
)

var (
	// Version info (set via ldflags)
	Version   = "0.3.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dpms",
	Short: "Control display power on Wayland and TTY sessions",
	Long: `dpms turns physical displays on and off. In a Wayland session it asks
the compositor through the output power management protocol. On a bare
TTY it holds the display off with a background daemon that commits the
change directly to the display hardware, restoring it when stopped or
interrupted.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	allDisplays bool
	jsonOutput  bool
	verboseList bool
)

var onCmd = &cobra.Command{
	Use:   "on [DISPLAY]",
	Short: "Turn display power on",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetPower(args, display.PowerOn)
	},
}

var offCmd = &cobra.Command{
	Use:   "off [DISPLAY]",
	Short: "Turn display power off",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetPower(args, display.PowerOff)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle [DISPLAY]",
	Short: "Toggle display power",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runToggle,
}

var statusCmd = &cobra.Command{
	Use:   "status [DISPLAY]",
	Short: "Show display power state",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected displays",
	RunE:  runList,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

// Hidden daemon command - the off path self-execs this in a detached
// session; it is not part of the user-facing surface.
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

func init() {
	for _, c := range []*cobra.Command{onCmd, offCmd, toggleCmd, statusCmd} {
		c.Flags().BoolVar(&allDisplays, "all", false, "Target all connected displays")
	}
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&verboseList, "verbose", false, "Include description, make and model")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

func targetFromArgs(args []string) display.Target {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	return display.TargetFromArgs(name, allDisplays)
}

// buildBackend probes the environment and constructs the matching
// backend. Wayland connection or protocol failures fall back to the
// console backend; resolution-level errors do not.
func buildBackend(cfg config.Config, logger *zap.Logger) (backend.Backend, error) {
	kind, err := backend.Detect()
	if err != nil {
		return nil, err
	}

	newConsole := func() *console.Backend {
		store := daemon.NewRecordStoreAt(cfg.RecordPath)
		return console.New(cfg.SupervisorConfig(), store, logger)
	}

	switch kind {
	case backend.KindWayland:
		b, err := wayland.New(cfg.WaylandTool, logger)
		if err != nil {
			if errors.Is(err, backend.ErrProtocolNotSupported) {
				logger.Warn("wayland backend unavailable, falling back to console", zap.Error(err))
				return newConsole(), nil
			}
			return nil, err
		}
		return b, nil
	case backend.KindX11:
		return nil, fmt.Errorf("%w: X11 sessions", backend.ErrProtocolNotSupported)
	default:
		return newConsole(), nil
	}
}

func setup() (backend.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return buildBackend(cfg, clientLogger())
}

func runSetPower(args []string, state display.PowerState) error {
	b, err := setup()
	if err != nil {
		return err
	}
	return b.SetPower(targetFromArgs(args), state)
}

func runToggle(cmd *cobra.Command, args []string) error {
	b, err := setup()
	if err != nil {
		return err
	}
	infos, err := b.GetPower(targetFromArgs(args))
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := b.SetPower(display.NamedTarget(info.Name), info.Power.Invert()); err != nil {
			return err
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	b, err := setup()
	if err != nil {
		return err
	}
	infos, err := b.GetPower(targetFromArgs(args))
	if err != nil {
		return err
	}
	text, err := output.FormatStatus(infos, jsonOutput)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	b, err := setup()
	if err != nil {
		return err
	}
	infos, err := b.ListDisplays()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return errors.New("no connected display found")
	}
	text, err := output.FormatList(infos, jsonOutput, verboseList)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := daemonLogger()
	defer func() { _ = logger.Sync() }()

	runner := daemon.NewRunner(daemon.NewRecordStoreAt(cfg.RecordPath), logger)
	if err := runner.Run(); err != nil {
		logger.Error("daemon failed", zap.Error(err))
		return err
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("dpms %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
	}
}

// clientLogger logs to stderr; client invocations are short-lived and
// interactive, so warnings go straight to the terminal.
func clientLogger() *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	config.OutputPaths = []string{"stderr"}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// daemonLogger writes to a file in the runtime directory; the daemon is
// fully detached and has no terminal.
func daemonLogger() *zap.Logger {
	path := filepath.Join(filepath.Dir(daemon.RecordPath()), "dpms.log")

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fall back to stderr if the file is not writable.
		logger, _ = zap.NewProduction()
	}
	return logger
}
