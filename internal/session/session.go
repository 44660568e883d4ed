// Package session serves the owner process commands over one synchronizer,
// one document editor and at most one recorder.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/livetune/internal/audio"
	"github.com/rbright/livetune/internal/capture"
	"github.com/rbright/livetune/internal/editor"
	"github.com/rbright/livetune/internal/fsm"
	"github.com/rbright/livetune/internal/ipc"
)

var (
	ErrAlreadyRecording = errors.New("capture already running")
	ErrNotRecording     = errors.New("capture is not running")
)

// Status is the payload of the status command.
type Status struct {
	RunState  fsm.State        `json:"run_state"`
	Recorder  *audio.Stats     `json:"recorder,omitempty"`
	Document  editor.State     `json:"document"`
	Platform  capture.Platform `json:"platform"`
	PushError string           `json:"push_error,omitempty"`
}

// Controller serializes every command against the state it owns.
type Controller struct {
	logger       *slog.Logger
	synchronizer *capture.Synchronizer
	editor       *editor.Editor
	newRecorder  RecorderFactory

	mu       sync.Mutex
	recorder Recorder
}

// NewController wires a controller. A nil factory disables start.
func NewController(
	logger *slog.Logger,
	synchronizer *capture.Synchronizer,
	ed *editor.Editor,
	newRecorder RecorderFactory,
) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		logger:       logger,
		synchronizer: synchronizer,
		editor:       ed,
		newRecorder:  newRecorder,
	}
}

// RunState returns the recorder run state, idle when none exists.
func (c *Controller) RunState() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runState()
}

func (c *Controller) runState() fsm.State {
	if c.recorder == nil {
		return fsm.StateIdle
	}
	return c.recorder.RunState()
}

// Handle serves one IPC command.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	resp := c.handle(ctx, req)
	if !resp.OK && resp.State == "" {
		resp.State = string(c.runState())
	}
	if !resp.OK {
		c.logger.Debug("command failed", "command", req.Command, "error", resp.Error)
	}
	return resp
}

func (c *Controller) handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return ipc.DataResponse(string(c.runState()), c.status())
	case ipc.CommandSnapshot:
		return ipc.DataResponse(string(c.runState()), c.synchronizer.ExportSnapshot())
	case ipc.CommandControls:
		return ipc.DataResponse(string(c.runState()), c.synchronizer.Controls())
	case ipc.CommandSet:
		return c.set(req.Field, req.Value)
	case ipc.CommandStart:
		return c.start(ctx)
	case ipc.CommandStop:
		return c.stop()
	case ipc.CommandDoc:
		return ipc.DataResponse(string(c.runState()), c.editor.View())
	case ipc.CommandEdit:
		if err := c.editor.OnRawTextEdit(ctx, req.Text); err != nil {
			return ipc.ErrorResponse(err)
		}
		return ipc.DataResponse(string(c.runState()), c.editor.View())
	case ipc.CommandMode:
		if err := c.editor.OnConversationModeChange(ctx, editor.ConversationMode(req.Value)); err != nil {
			return ipc.ErrorResponse(err)
		}
		return ipc.DataResponse(string(c.runState()), c.editor.View())
	case ipc.CommandReply:
		if err := c.editor.OnReplyModeChange(ctx, editor.ReplyMode(req.Value)); err != nil {
			return ipc.ErrorResponse(err)
		}
		return ipc.DataResponse(string(c.runState()), c.editor.View())
	default:
		return ipc.ErrorResponse(fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (c *Controller) status() Status {
	status := Status{
		RunState: c.runState(),
		Document: c.editor.State(),
		Platform: c.synchronizer.Platform(),
	}
	if c.recorder != nil {
		stats := c.recorder.Stats()
		status.Recorder = &stats
	}
	if err := c.synchronizer.LastPushError(); err != nil {
		status.PushError = err.Error()
	}
	return status
}

func (c *Controller) set(rawField string, value string) ipc.Response {
	field, err := capture.ParseField(rawField)
	if err != nil {
		return ipc.ErrorResponse(err)
	}
	if err := c.synchronizer.SetField(field, value); err != nil {
		return ipc.ErrorResponse(err)
	}
	return ipc.DataResponse(string(c.runState()), c.synchronizer.Controls())
}

// start snapshots the current settings into a fresh recorder and makes it
// the synchronizer's client before capture begins.
func (c *Controller) start(ctx context.Context) ipc.Response {
	if c.newRecorder == nil {
		return ipc.ErrorResponse(errors.New("capture is not available in this process"))
	}
	if state := c.runState(); state != fsm.StateIdle && state != fsm.StateError {
		return ipc.ErrorResponse(fmt.Errorf("%w (state %s)", ErrAlreadyRecording, state))
	}

	snapshot := c.synchronizer.ExportSnapshot()
	rec := c.newRecorder(c.logger, snapshot)
	c.recorder = rec
	c.synchronizer.ReplaceClient(rec)

	if err := rec.Start(ctx); err != nil {
		c.logger.Error("capture start failed", "snapshot_id", snapshot.ID, "error", err.Error())
		return ipc.ErrorResponse(err)
	}
	return ipc.DataResponse(string(c.runState()), snapshot)
}

func (c *Controller) stop() ipc.Response {
	if c.recorder == nil || !c.recorder.RunState().Recording() {
		return ipc.ErrorResponse(ErrNotRecording)
	}
	if err := c.recorder.Stop(); err != nil {
		return ipc.ErrorResponse(fmt.Errorf("stop capture: %w", err))
	}
	return ipc.DataResponse(string(c.runState()), c.recorder.Stats())
}

// Shutdown stops an active recorder.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recorder == nil || !c.recorder.RunState().Recording() {
		return nil
	}
	return c.recorder.Stop()
}
