// Package app wires configuration, audio, the recognition pipeline, and the
// control socket into the voxnote command surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/voxnote/voxnote/internal/audio"
	"github.com/voxnote/voxnote/internal/cli"
	"github.com/voxnote/voxnote/internal/config"
	"github.com/voxnote/voxnote/internal/doctor"
	"github.com/voxnote/voxnote/internal/engine"
	"github.com/voxnote/voxnote/internal/ipc"
	"github.com/voxnote/voxnote/internal/journal"
	"github.com/voxnote/voxnote/internal/logging"
	"github.com/voxnote/voxnote/internal/output"
	"github.com/voxnote/voxnote/internal/pipeline"
	"github.com/voxnote/voxnote/internal/session"
	"github.com/voxnote/voxnote/internal/settings"
	"github.com/voxnote/voxnote/internal/todo"
	"github.com/voxnote/voxnote/internal/transcript"
	"github.com/voxnote/voxnote/internal/version"
	"github.com/voxnote/voxnote/internal/wave"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voxnote"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voxnote"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandLevel:
		return r.commandLevel(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandHistory:
		return r.commandHistory(cfgLoaded.Config, parsed.Args)
	case cli.CommandShow:
		return r.commandShow(cfgLoaded.Config, parsed.Args[0])
	case cli.CommandSessions:
		return r.commandSessions(ctx, cfgLoaded.Config, parsed.Args, logger)
	case cli.CommandTodo:
		return r.commandTodo(cfgLoaded.Config, parsed.Args)
	case cli.CommandLanguage:
		return r.commandLanguage(cfgLoaded.Config, parsed.Args)
	case cli.CommandRecord, cli.CommandToggle:
		return r.commandRecord(ctx, cfgLoaded.Config, parsed.Language, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "ready")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandStatus)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "ready"
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "ready")
	return 0
}

func (r Runner) commandLevel(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "0.00")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandLevel)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		level := 0.0
		if resp.Level != nil {
			level = *resp.Level
		}
		fmt.Fprintf(r.Stdout, "%.2f\n", level)
		return 0
	}

	fmt.Fprintln(r.Stdout, "0.00")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active voxnote session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandHistory(cfg config.Config, args []string) int {
	limit := cfg.History.Limit
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintf(r.Stderr, "error: history count must be a positive number, got %q\n", args[0])
			return 2
		}
		limit = n
	}

	store := transcript.NewStore(cfg.TranscriptsDir())
	ids, err := store.List(limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(ids) == 0 {
		fmt.Fprintln(r.Stdout, "no transcripts yet")
		return 0
	}
	for _, id := range ids {
		fmt.Fprintln(r.Stdout, id)
	}
	return 0
}

func (r Runner) commandShow(cfg config.Config, id string) int {
	store := transcript.NewStore(cfg.TranscriptsDir())
	text, err := store.Read(id)
	if err != nil {
		if errors.Is(err, transcript.ErrNotFound) {
			fmt.Fprintf(r.Stderr, "error: no transcript %q\n", id)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, text)
	return 0
}

func (r Runner) commandSessions(ctx context.Context, cfg config.Config, args []string, logger *slog.Logger) int {
	limit := 20
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintf(r.Stderr, "error: sessions count must be a positive number, got %q\n", args[0])
			return 2
		}
		limit = n
	}

	store, err := journal.Open(ctx, cfg.Journal, cfg.JournalPath(), logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "no sessions recorded")
		return 0
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-9s  %s", e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Status, e.RunID)
		if e.TranscriptID != "" {
			line += "  transcript=" + e.TranscriptID
		}
		if e.Error != "" {
			line += "  error=" + e.Error
		}
		fmt.Fprintln(r.Stdout, line)
	}
	return 0
}

func (r Runner) commandTodo(cfg config.Config, args []string) int {
	store := todo.NewStore(cfg.TodosPath())

	if len(args) == 0 {
		args = []string{"list"}
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(r.Stderr, "error: todo add requires text")
			return 2
		}
		if err := store.Add("", strings.Join(args[1:], " ")); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	case "list":
		date := ""
		if len(args) > 1 {
			date = args[1]
		}
		items, err := store.List(date)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if len(items) == 0 {
			fmt.Fprintln(r.Stdout, "no todos")
			return 0
		}
		for i, item := range items {
			mark := " "
			if item.Done {
				mark = "x"
			}
			fmt.Fprintf(r.Stdout, "%2d [%s] %s\n", i, mark, item.Text)
		}
		return 0
	case "toggle", "done":
		if len(args) != 3 {
			fmt.Fprintln(r.Stderr, "error: todo toggle requires DATE and INDEX")
			return 2
		}
		idx, err := strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: todo index must be a number, got %q\n", args[2])
			return 2
		}
		if err := store.Toggle(args[1], idx); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(r.Stderr, "error: unknown todo subcommand %q\n", args[0])
		return 2
	}
}

func (r Runner) commandLanguage(cfg config.Config, args []string) int {
	store := settings.NewStore(cfg.SettingsPath())

	if len(args) == 0 {
		fmt.Fprintln(r.Stdout, store.Load().Language)
		return 0
	}

	if err := store.SetLanguage(args[0]); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, args[0])
	return 0
}

// commandRecord owns the control socket for one full capture session. When a
// session is already running the command degrades to a toggle forward.
func (r Runner) commandRecord(ctx context.Context, cfg config.Config, languageOverride string, logger *slog.Logger) int {
	if languageOverride != "" {
		if err := settings.ValidateLanguage(languageOverride); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 2
		}
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.CommandToggle)
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
		return 0
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			resp, _, forwardErr := tryForward(ctx, socketPath, ipc.CommandToggle)
			if forwardErr != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", forwardErr)
				return 1
			}
			if resp.Message != "" {
				fmt.Fprintln(r.Stdout, resp.Message)
			}
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	eng, err := engine.New(cfg.Engine)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	journalStore, err := journal.Open(ctx, cfg.Journal, cfg.JournalPath(), logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = journalStore.Close() }()

	committer, err := output.NewCommitter(cfg.Clipboard, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	var commit session.Committer
	if committer != nil {
		commit = committer
	}

	settingsStore := settings.NewStore(cfg.SettingsPath())
	language := func() string {
		if languageOverride != "" {
			return languageOverride
		}
		return settingsStore.Load().Language
	}

	recorder := audio.NewMicrophone(cfg.Audio.Input, cfg.Audio.Fallback, audio.Options{
		SampleRate: cfg.Audio.SampleRate,
		LevelGain:  cfg.Audio.LevelGain,
	}, logger)
	finalizer := wave.NewFinalizer(cfg.RecordingsDir(), cfg.Audio.SampleRate)
	store := transcript.NewStore(cfg.TranscriptsDir())
	runner := pipeline.NewRunner(logger, eng, store)
	controller := session.NewController(logger, recorder, finalizer, runner, commit, language)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, controller, logger)
	}()

	result := controller.Run(ctx)
	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)
	recordSessionJournal(ctx, journalStore, logger, result)

	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	if result.Empty {
		fmt.Fprintln(r.Stdout, "nothing captured")
		return 0
	}
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	if strings.TrimSpace(result.Record.Text) != "" {
		fmt.Fprintln(r.Stdout, strings.TrimSpace(result.Record.Text))
	}

	return 0
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"run_id", result.RunID,
		"state", result.State,
		"cancelled", result.Cancelled,
		"empty", result.Empty,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"audio_device", result.Device,
		"bytes_captured", result.BytesCaptured,
		"artifact", result.ArtifactPath,
		"transcript", result.Record.ID,
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}

// recordSessionJournal appends the run outcome; journal failures never fail
// the session.
func recordSessionJournal(ctx context.Context, store *journal.Store, logger *slog.Logger, result session.Result) {
	entry := journal.Entry{
		RunID:         result.RunID,
		Status:        journal.StatusCompleted,
		Device:        result.Device,
		BytesCaptured: result.BytesCaptured,
		TranscriptID:  result.Record.ID,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
	}
	switch {
	case result.Cancelled:
		entry.Status = journal.StatusCancelled
	case result.Empty:
		entry.Status = journal.StatusEmpty
	case result.Err != nil:
		entry.Status = journal.StatusFailed
		entry.Error = result.Err.Error()
	}

	if err := store.Append(ctx, entry); err != nil && logger != nil {
		logger.Warn("journal append failed", "error", err.Error(), "run_id", result.RunID)
	}
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
