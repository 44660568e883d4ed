package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/rbright/livetune/internal/audio"
	"github.com/rbright/livetune/internal/capture"
	"github.com/rbright/livetune/internal/editor"
	"github.com/rbright/livetune/internal/fsm"
	"github.com/rbright/livetune/internal/ipc"
	"github.com/rbright/livetune/internal/store"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	snapshot capture.Snapshot
	state    fsm.State
	startErr error
	stopErr  error
	modes    []capture.DenoiseMode
	levels   []capture.DenoiseLevel
	stops    int
}

func (f *fakeRecorder) RunState() fsm.State { return f.state }

func (f *fakeRecorder) SetDenoiserMode(mode capture.DenoiseMode) error {
	f.modes = append(f.modes, mode)
	return nil
}

func (f *fakeRecorder) SetDenoiserLevel(level capture.DenoiseLevel) error {
	f.levels = append(f.levels, level)
	return nil
}

func (f *fakeRecorder) InitialAudioConfig() (capture.AudioConfig, error) {
	return capture.ReportedConfig(f.snapshot.Settings), nil
}

func (f *fakeRecorder) Start(context.Context) error {
	if f.startErr != nil {
		f.state = fsm.StateError
		return f.startErr
	}
	f.state = fsm.StateRecording
	return nil
}

func (f *fakeRecorder) Stop() error {
	f.stops++
	f.state = fsm.StateIdle
	return f.stopErr
}

func (f *fakeRecorder) Stats() audio.Stats {
	return audio.Stats{State: f.state, SnapshotID: f.snapshot.ID}
}

type recorderLog struct {
	built    []*fakeRecorder
	startErr error
}

func (l *recorderLog) factory() RecorderFactory {
	return func(_ *slog.Logger, snapshot capture.Snapshot) Recorder {
		rec := &fakeRecorder{snapshot: snapshot, state: fsm.StateIdle, startErr: l.startErr}
		l.built = append(l.built, rec)
		return rec
	}
}

func newTestController(t *testing.T, factory RecorderFactory) (*Controller, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ed := editor.New(mem, nil, "")
	_, err := ed.LoadInitial(context.Background())
	require.NoError(t, err)

	synchronizer := capture.NewSynchronizer(nil, capture.Platform{DenoiserSupported: true}, nil)
	return NewController(nil, synchronizer, ed, factory), mem
}

func send(t *testing.T, ctrl *Controller, req ipc.Request) ipc.Response {
	t.Helper()
	return ctrl.Handle(context.Background(), req)
}

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	ctrl, _ := newTestController(t, nil)

	resp := send(t, ctrl, ipc.Request{Command: ipc.CommandStatus})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateIdle), resp.State)

	var status Status
	require.NoError(t, resp.DecodeData(&status))
	require.Equal(t, fsm.StateIdle, status.RunState)
	require.Equal(t, editor.StateValid, status.Document)
	require.True(t, status.Platform.DenoiserSupported)
	require.Nil(t, status.Recorder)

	unknown := send(t, ctrl, ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Equal(t, string(fsm.StateIdle), unknown.State)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestStartCarriesSnapshotAndStopEndsCapture(t *testing.T) {
	recorders := &recorderLog{}
	ctrl, _ := newTestController(t, recorders.factory())

	set := send(t, ctrl, ipc.Request{Command: ipc.CommandSet, Field: "denoise_mode", Value: "stationary"})
	require.True(t, set.OK, set.Error)

	start := send(t, ctrl, ipc.Request{Command: ipc.CommandStart})
	require.True(t, start.OK, start.Error)
	require.Equal(t, string(fsm.StateRecording), start.State)
	require.Len(t, recorders.built, 1)
	rec := recorders.built[0]
	require.Equal(t, capture.DenoiseModeStationary, rec.snapshot.Settings.DenoiseMode)
	require.Empty(t, rec.modes, "settings before start travel in the snapshot, not as pushes")

	var snapshot capture.Snapshot
	require.NoError(t, start.DecodeData(&snapshot))
	require.Equal(t, rec.snapshot.ID, snapshot.ID)

	again := send(t, ctrl, ipc.Request{Command: ipc.CommandStart})
	require.False(t, again.OK)
	require.Contains(t, again.Error, ErrAlreadyRecording.Error())
	require.Len(t, recorders.built, 1)

	live := send(t, ctrl, ipc.Request{Command: ipc.CommandSet, Field: "denoise_level", Value: "aggressive"})
	require.True(t, live.OK, live.Error)
	require.Equal(t, []capture.DenoiseLevel{capture.DenoiseLevelAggressive}, rec.levels)

	var controls []capture.Control
	require.NoError(t, live.DecodeData(&controls))
	for _, control := range controls {
		if control.Field == capture.FieldDenoiseLevel {
			require.True(t, control.Live)
			require.Equal(t, "aggressive", control.Value)
		}
		if control.Field == capture.FieldEchoCancellation {
			require.False(t, control.Editable)
		}
	}

	stop := send(t, ctrl, ipc.Request{Command: ipc.CommandStop})
	require.True(t, stop.OK, stop.Error)
	require.Equal(t, string(fsm.StateIdle), stop.State)
	require.Equal(t, 1, rec.stops)

	stopAgain := send(t, ctrl, ipc.Request{Command: ipc.CommandStop})
	require.False(t, stopAgain.OK)
	require.Contains(t, stopAgain.Error, ErrNotRecording.Error())
}

func TestSessionChoicesSurviveRestart(t *testing.T) {
	recorders := &recorderLog{}
	ctrl, _ := newTestController(t, recorders.factory())

	for _, field := range []string{"debug", "audio_muted_default", "platform_quirk"} {
		resp := send(t, ctrl, ipc.Request{Command: ipc.CommandSet, Field: field, Value: "true"})
		require.True(t, resp.OK, resp.Error)
	}

	requireChoices := func(t *testing.T, s capture.Settings) {
		t.Helper()
		require.True(t, s.Debug)
		require.True(t, s.AudioMutedDefault)
		require.True(t, s.PlatformQuirk)
	}

	require.True(t, send(t, ctrl, ipc.Request{Command: ipc.CommandStart}).OK)
	requireChoices(t, recorders.built[0].snapshot.Settings)

	controls := send(t, ctrl, ipc.Request{Command: ipc.CommandControls})
	require.True(t, controls.OK, controls.Error)
	var view []capture.Control
	require.NoError(t, controls.DecodeData(&view))
	for _, control := range view {
		switch control.Field {
		case capture.FieldDebug, capture.FieldAudioMutedDefault, capture.FieldPlatformQuirk:
			require.Equal(t, "true", control.Value, control.Field)
		}
	}

	require.True(t, send(t, ctrl, ipc.Request{Command: ipc.CommandStop}).OK)
	require.True(t, send(t, ctrl, ipc.Request{Command: ipc.CommandStart}).OK)
	require.Len(t, recorders.built, 2)
	requireChoices(t, recorders.built[1].snapshot.Settings)
}

func TestStartFailureLeavesErrorStateAndAllowsRetry(t *testing.T) {
	recorders := &recorderLog{startErr: errors.New("no device")}
	ctrl, _ := newTestController(t, recorders.factory())

	resp := send(t, ctrl, ipc.Request{Command: ipc.CommandStart})
	require.False(t, resp.OK)
	require.Equal(t, string(fsm.StateError), resp.State)
	require.Contains(t, resp.Error, "no device")

	recorders.startErr = nil
	resp = send(t, ctrl, ipc.Request{Command: ipc.CommandStart})
	require.True(t, resp.OK, resp.Error)
	require.Len(t, recorders.built, 2)
	require.Equal(t, fsm.StateRecording, ctrl.RunState())
}

func TestStartWithoutFactory(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	resp := send(t, ctrl, ipc.Request{Command: ipc.CommandStart})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "not available")
}

func TestSetRejectsBadInput(t *testing.T) {
	ctrl, _ := newTestController(t, nil)

	tests := []struct {
		name  string
		field string
		value string
		want  string
	}{
		{name: "unknown field", field: "volume", value: "1", want: "unknown capture field"},
		{name: "bad mode", field: "denoise_mode", value: "loud", want: "denoise_mode must be one of"},
		{name: "bad toggle", field: "debug", value: "maybe", want: "must be a boolean"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := send(t, ctrl, ipc.Request{Command: ipc.CommandSet, Field: tc.field, Value: tc.value})
			require.False(t, resp.OK)
			require.Contains(t, resp.Error, tc.want)
		})
	}
}

func TestDocumentCommands(t *testing.T) {
	ctrl, mem := newTestController(t, nil)
	ctx := context.Background()

	var view editor.View
	doc := send(t, ctrl, ipc.Request{Command: ipc.CommandDoc})
	require.True(t, doc.OK)
	require.NoError(t, doc.DecodeData(&view))
	require.Equal(t, editor.ConversationModeServerVAD, view.ConversationMode)

	malformed := send(t, ctrl, ipc.Request{Command: ipc.CommandEdit, Text: "{"})
	require.True(t, malformed.OK, malformed.Error)
	require.NoError(t, malformed.DecodeData(&view))
	require.Equal(t, editor.StateInvalid, view.State)
	require.NotEmpty(t, view.Problem)

	rejected := send(t, ctrl, ipc.Request{Command: ipc.CommandMode, Value: "client_interrupt"})
	require.False(t, rejected.OK)
	require.Contains(t, rejected.Error, editor.ErrStructuredWriteOnInvalidDocument.Error())

	fixed := send(t, ctrl, ipc.Request{Command: ipc.CommandEdit, Text: `{"data":{}}`})
	require.True(t, fixed.OK, fixed.Error)

	mode := send(t, ctrl, ipc.Request{Command: ipc.CommandMode, Value: "client_interrupt"})
	require.True(t, mode.OK, mode.Error)
	require.NoError(t, mode.DecodeData(&view))
	require.Equal(t, editor.ConversationModeClientInterrupt, view.ConversationMode)

	stored, ok, err := mem.Get(ctx, store.KeyDocument)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, view.Text, stored)

	reply := send(t, ctrl, ipc.Request{Command: ipc.CommandReply, Value: "sentence"})
	require.True(t, reply.OK, reply.Error)
	value, ok, err := mem.Get(ctx, store.KeyReplyMode)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sentence", value)

	badReply := send(t, ctrl, ipc.Request{Command: ipc.CommandReply, Value: "shout"})
	require.False(t, badReply.OK)
}

func TestShutdownStopsActiveRecorder(t *testing.T) {
	recorders := &recorderLog{}
	ctrl, _ := newTestController(t, recorders.factory())

	require.NoError(t, ctrl.Shutdown())

	resp := send(t, ctrl, ipc.Request{Command: ipc.CommandStart})
	require.True(t, resp.OK, resp.Error)
	require.NoError(t, ctrl.Shutdown())
	require.Equal(t, 1, recorders.built[0].stops)
	require.Equal(t, fsm.StateIdle, ctrl.RunState())
}

func TestPulseRecordersBuildsIdleRecorder(t *testing.T) {
	rec := PulseRecorders(audio.RecorderOptions{Input: "default"})(nil, capture.Snapshot{ID: "snap-1"})
	require.IsType(t, &audio.Recorder{}, rec)
	require.Equal(t, fsm.StateIdle, rec.RunState())
	require.Equal(t, "snap-1", rec.Stats().SnapshotID)
}
