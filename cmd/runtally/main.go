// Package main provides the CLI entrypoint for runtally.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/runtally/internal/combo"
	"github.com/verte-zerg/runtally/internal/config"
	"github.com/verte-zerg/runtally/internal/dispatch"
	"github.com/verte-zerg/runtally/internal/hotkey"
	"github.com/verte-zerg/runtally/internal/model"
	"github.com/verte-zerg/runtally/internal/pad"
	"github.com/verte-zerg/runtally/internal/runlog"
	"github.com/verte-zerg/runtally/internal/tracker"
	"github.com/verte-zerg/runtally/internal/tui"
)

const (
	defaultLogRows = 15
	queueCapacity  = 64
)

var (
	rootConfigPath   string
	rootCSVPath      string
	rootLogFile      string
	rootLogLevel     string
	rootNoController bool
	rootNoHotkeys    bool

	configEdit bool

	logCSVBase string
	logRows    int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "runtally",
		Short:         "Run timer with global hotkeys and controller input",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTimerCmd,
	}

	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "settings file path (default: user config dir)")
	rootCmd.Flags().StringVar(&rootCSVPath, "csv", "", "base run log path (default: data dir runs.csv)")
	rootCmd.Flags().StringVar(&rootLogFile, "log-file", "", "debug log file path (default: data dir runtally.log)")
	rootCmd.Flags().StringVar(&rootLogLevel, "log-level", "info", "debug log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&rootNoController, "no-controller", false, "skip controller input for this start")
	rootCmd.Flags().BoolVar(&rootNoHotkeys, "no-hotkeys", false, "skip global hotkeys for this start")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newLogCmd())

	return rootCmd
}

func runTimerCmd(cmd *cobra.Command, _ []string) error {
	logPath := rootLogFile
	if logPath == "" {
		logPath = config.DefaultLogFilePath()
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logOut, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		if cerr := logOut.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}()

	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelInfo}))
	settingsPath := resolveSettingsPath()
	settings, err := config.Load(settingsPath, logger)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	levelRaw := rootLogLevel
	fromFile := false
	if !cmd.Flags().Changed("log-level") && settings.LogLevel != "" {
		levelRaw = settings.LogLevel
		fromFile = true
	}
	level, err := parseLogLevel(levelRaw)
	if err != nil {
		if !fromFile {
			return err
		}
		logger.Warn("invalid log level in settings, using info", "value", levelRaw)
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	base := rootCSVPath
	if base == "" {
		base = config.DefaultRunLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return fmt.Errorf("failed to create run log directory: %w", err)
	}
	logFile, err := runlog.Open(runlog.SessionPath(base, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}

	tr := tracker.New(logFile)
	queue := dispatch.New(queueCapacity, logger)

	hotkeys := hotkey.New(settings.Keyboard.Bindings(), !rootNoHotkeys,
		queue.Emitter(model.SourceGlobalHotkey), logger)
	hotkeys.Start()
	defer hotkeys.Stop()

	if rootNoController {
		settings.Controller.Enabled = false
	}
	controller := pad.New(settings.Controller, settings.Dpad,
		queue.Emitter(model.SourceController), logger)
	controller.Start()
	defer controller.Stop()

	logger.Info("runtally started",
		"settings", settingsPath,
		"run_log", logFile.Path(),
		"hotkeys", hotkeys.Available(),
		"controller", controller.Available())

	m := tui.NewModel(tr, queue, logFile, base, hotkeys, controller, logger)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print or edit the settings file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
	cmd.Flags().BoolVar(&configEdit, "edit", false, "open the settings file in $EDITOR")
	return cmd
}

func runConfigCmd(cmd *cobra.Command, _ []string) error {
	path := resolveSettingsPath()
	if _, err := config.Load(path, discardLogger()); err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !configEdit {
		return nil
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	edit := exec.Command(parts[0], append(parts[1:], path)...)
	edit.Stdin = os.Stdin
	edit.Stdout = os.Stdout
	edit.Stderr = os.Stderr
	if err := edit.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List controllers and keyboard capture status",
		Args:  cobra.NoArgs,
		RunE:  runDevicesCmd,
	}
}

func runDevicesCmd(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(resolveSettingsPath(), discardLogger())
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	var lines []string
	infos, err := pad.Enumerate()
	switch {
	case err != nil:
		lines = append(lines, fmt.Sprintf("Controllers: unavailable (%v)", err))
	case len(infos) == 0:
		lines = append(lines, "Controllers: none found")
	default:
		lines = append(lines, "Controllers:")
		for _, info := range infos {
			desc := "no usable dpad source"
			sources := pad.DpadSources(info.Hats, info.Buttons, info.Axes, settings.Controller.HatIndex)
			if len(sources) > 0 {
				desc = "dpad via " + strings.Join(sources, ", ")
			}
			lines = append(lines, fmt.Sprintf("  [%d] %s (hats %d, buttons %d, axes %d; %s)",
				info.Index, info.Name, info.Hats, info.Buttons, info.Axes, desc))
		}
	}
	if pads := pad.XInputConnected(); len(pads) > 0 {
		lines = append(lines, "XInput pads: "+joinInts(pads))
	}
	lines = append(lines, "Keyboard capture: "+keyboardCaptureStatus())
	bound := make([]string, 0, len(model.Actions))
	for _, b := range settings.Keyboard.Bindings() {
		if b.Combo == "" {
			continue
		}
		bound = append(bound, fmt.Sprintf("%s %s", b.Action, combo.Label(b.Combo)))
	}
	if len(bound) > 0 {
		lines = append(lines, "Hotkeys: "+strings.Join(bound, ", "))
	}

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// keyboardCaptureStatus briefly starts a bindingless listener to learn
// whether global key capture works in this environment.
func keyboardCaptureStatus() string {
	probe := hotkey.New(nil, true, func(model.Action) {}, discardLogger())
	probe.Start()
	defer probe.Stop()
	if probe.Available() {
		return "ok"
	}
	if reason := probe.Reason(); reason != "" {
		return reason
	}
	return "unavailable"
}

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [file]",
		Short: "Show recent rows from a run log",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLogCmd,
	}
	cmd.Flags().IntVar(&logRows, "rows", defaultLogRows, "number of recent rows to show")
	cmd.Flags().StringVar(&logCSVBase, "csv", "", "base run log path (default: data dir runs.csv)")
	return cmd
}

func runLogCmd(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		base := logCSVBase
		if base == "" {
			base = config.DefaultRunLogPath()
		}
		found, err := latestRunLog(base)
		if err != nil {
			return err
		}
		path = found
		logErrf("Showing %s\n", path)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to read run log: %w", err)
	}
	file, err := runlog.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	records, err := file.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read run log: %w", err)
	}
	if len(records) == 0 {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "no runs recorded in %s\n", path); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	lines := runlog.Table(records, logRows, stdoutWidth())
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// latestRunLog picks the newest session file derived from base. Session
// names embed a sortable timestamp, so the lexicographic maximum wins.
func latestRunLog(base string) (string, error) {
	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(filepath.Base(base), ext)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read run log directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, stem+"_") && strings.HasSuffix(name, ext) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no run logs found in %s", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

func resolveSettingsPath() string {
	if rootConfigPath != "" {
		return rootConfigPath
	}
	return config.DefaultSettingsPath()
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", value)
	}
}

func stdoutWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
