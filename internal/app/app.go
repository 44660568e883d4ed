// Package app dispatches parsed commands to the owner process or runs them locally.
package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rbright/livetune/internal/audio"
	"github.com/rbright/livetune/internal/capture"
	"github.com/rbright/livetune/internal/cli"
	"github.com/rbright/livetune/internal/config"
	"github.com/rbright/livetune/internal/doctor"
	"github.com/rbright/livetune/internal/editor"
	"github.com/rbright/livetune/internal/ipc"
	"github.com/rbright/livetune/internal/logging"
	"github.com/rbright/livetune/internal/session"
	"github.com/rbright/livetune/internal/store"
	"github.com/rbright/livetune/internal/version"
)

const forwardTimeout = 2 * time.Second

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(version.Name))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(version.Name))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(logging.OptionsFrom(cfgLoaded.Config.Log))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
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
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandSnapshot, cli.CommandControls, cli.CommandStart, cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: string(parsed.Command)})
	case cli.CommandSet:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandSet, Field: parsed.Args[0], Value: parsed.Args[1]})
	case cli.CommandDoc, cli.CommandEdit, cli.CommandMode, cli.CommandReply:
		return r.commandDocument(ctx, parsed, cfgLoaded.Config, logger)
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
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			yesNo(device.Available),
			yesNo(device.Muted),
		)
	}

	return 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// commandServe runs the owner process until ctx is cancelled.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	handle, err := store.Open(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: open store: %v\n", err)
		logger.Error("open store failed", "error", err.Error())
		return 1
	}
	defer func() { _ = handle.Close() }()

	platform := capture.DetectPlatform(cfg.Capture)
	synchronizer := capture.NewSynchronizer(logger, platform, nil)

	ed := editor.New(handle.Store, logger, cfg.Editor.DefaultDocument)
	view, err := ed.LoadInitial(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load document failed", "error", err.Error())
		return 1
	}

	recorders := session.PulseRecorders(audio.RecorderOptions{Input: cfg.Audio.Input, Fallback: cfg.Audio.Fallback})
	controller := session.NewController(logger, synchronizer, ed, recorders)

	logger.Info("owner ready",
		"socket", socketPath,
		"store", handle.Location,
		"document_state", string(view.State),
		"denoiser_supported", platform.DenoiserSupported,
		"mobile", platform.Mobile,
		"echo_quirk", platform.EchoQuirk,
	)
	fmt.Fprintf(r.Stdout, "serving on %s\n", socketPath)

	serveErr := ipc.Serve(ctx, listener, controller)
	if err := controller.Shutdown(); err != nil {
		logger.Warn("stop capture on shutdown failed", "error", err.Error())
	}
	if serveErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serveErr)
		return 1
	}

	logger.Info("owner stopped")
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	r.printData(resp.Data)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running livetune owner; start one with `livetune serve`\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	r.printData(resp.Data)
	return 0
}

// commandDocument forwards document commands to a running owner, or edits
// the configured store directly when none answers.
func (r Runner) commandDocument(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	req := ipc.Request{Command: string(parsed.Command)}
	switch parsed.Command {
	case cli.CommandEdit:
		text, err := io.ReadAll(r.Stdin)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: read document from stdin: %v\n", err)
			return 1
		}
		req.Text = string(text)
	case cli.CommandMode, cli.CommandReply:
		req.Value = parsed.Args[0]
	}

	var view editor.View
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, req)
		if handled {
			if err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			if err := resp.DecodeData(&view); err != nil {
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
			return r.printView(view)
		}
	}

	view, err := runDocumentLocally(ctx, req, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return r.printView(view)
}

func runDocumentLocally(ctx context.Context, req ipc.Request, cfg config.Config, logger *slog.Logger) (editor.View, error) {
	handle, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return editor.View{}, fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = handle.Close() }()

	ed := editor.New(handle.Store, logger, cfg.Editor.DefaultDocument)
	view, err := ed.LoadInitial(ctx)
	if err != nil {
		return view, err
	}

	switch req.Command {
	case ipc.CommandEdit:
		err = ed.OnRawTextEdit(ctx, req.Text)
	case ipc.CommandMode:
		err = ed.OnConversationModeChange(ctx, editor.ConversationMode(req.Value))
	case ipc.CommandReply:
		err = ed.OnReplyModeChange(ctx, editor.ReplyMode(req.Value))
	}
	if err != nil {
		return editor.View{}, err
	}
	return ed.View(), nil
}

// printView prints the document view; a buffer that does not parse fails the command.
func (r Runner) printView(view editor.View) int {
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: encode document view: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, string(data))
	if view.State == editor.StateInvalid {
		fmt.Fprintf(r.Stderr, "error: %s\n", view.Problem)
		return 1
	}
	return 0
}

func (r Runner) printData(data json.RawMessage) {
	if len(data) == 0 {
		return
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		fmt.Fprintln(r.Stdout, string(data))
		return
	}
	fmt.Fprintln(r.Stdout, out.String())
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsUnavailable(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
