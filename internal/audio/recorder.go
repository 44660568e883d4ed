package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rbright/livetune/internal/capture"
	"github.com/rbright/livetune/internal/fsm"
)

// chunkSource is the running stream a Recorder drains.
type chunkSource interface {
	Device() Device
	Chunks() <-chan []byte
	BytesCaptured() int64
	Level() float64
	Stop() error
}

// RecorderOptions selects the input device for a Recorder.
type RecorderOptions struct {
	Input    string
	Fallback string
}

// Stats summarizes a recorder for status output.
type Stats struct {
	State        fsm.State `json:"state"`
	SnapshotID   string    `json:"snapshot_id"`
	Device       string    `json:"device,omitempty"`
	Bytes        int64     `json:"bytes"`
	Level        float64   `json:"level"`
	Chunks       int64     `json:"chunks"`
	DenoiseMode  string    `json:"denoise_mode"`
	DenoiseLevel string    `json:"denoise_level"`
	Bypassed     bool      `json:"denoise_bypassed"`
}

// Recorder is the Pulse-backed capture client. Its denoiser parameters can
// change while recording; everything else is fixed by the snapshot it was
// built from.
type Recorder struct {
	logger   *slog.Logger
	snapshot capture.Snapshot
	opts     RecorderOptions
	denoiser *Denoiser

	selectDevice func(ctx context.Context, input, fallback string) (Selection, error)
	open         func(ctx context.Context, device Device, stage *Denoiser) (chunkSource, error)

	mu      sync.Mutex
	state   fsm.State
	source  chunkSource
	chunks  int64
	drained chan struct{}
	cancel  context.CancelFunc
}

// NewRecorder builds an idle recorder from a settings snapshot.
func NewRecorder(logger *slog.Logger, snapshot capture.Snapshot, opts RecorderOptions) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		logger:       logger.With("snapshot_id", snapshot.ID),
		snapshot:     snapshot,
		opts:         opts,
		denoiser:     NewDenoiser(snapshot.Settings),
		selectDevice: SelectDevice,
		open: func(ctx context.Context, device Device, stage *Denoiser) (chunkSource, error) {
			return StartCapture(ctx, device, stage)
		},
		state: fsm.StateIdle,
	}
}

// Start selects a device and begins capture.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == fsm.StateError {
		if err := r.transition(fsm.EventReset); err != nil {
			return err
		}
	}
	if err := r.transition(fsm.EventStart); err != nil {
		return err
	}

	selection, err := r.selectDevice(ctx, r.opts.Input, r.opts.Fallback)
	if err != nil {
		_ = r.transition(fsm.EventFail)
		return fmt.Errorf("select audio device: %w", err)
	}
	if selection.Warning != "" {
		r.logger.Warn(selection.Warning)
	}

	captureCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	source, err := r.open(captureCtx, selection.Device, r.denoiser)
	if err != nil {
		cancel()
		_ = r.transition(fsm.EventFail)
		return fmt.Errorf("start capture: %w", err)
	}

	r.source = source
	r.cancel = cancel
	r.chunks = 0
	r.drained = make(chan struct{})
	go r.drain(source.Chunks(), r.drained)

	if err := r.transition(fsm.EventStarted); err != nil {
		return err
	}
	r.logger.Info("capture started",
		"device", selection.Device.ID,
		"denoise_mode", string(r.denoiser.Mode()),
		"denoise_level", string(r.denoiser.Level()),
		"denoise_bypassed", r.denoiser.Bypassed(),
	)
	return nil
}

// Stop ends capture and waits for buffered chunks to drain.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if err := r.transition(fsm.EventStop); err != nil {
		r.mu.Unlock()
		return err
	}
	source, drained, cancel := r.source, r.drained, r.cancel
	r.source, r.cancel = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if source == nil {
		return nil
	}
	err := source.Stop()
	<-drained

	r.logger.Info("capture stopped", "bytes", source.BytesCaptured())
	return err
}

func (r *Recorder) drain(chunks <-chan []byte, done chan<- struct{}) {
	defer close(done)
	for range chunks {
		r.mu.Lock()
		r.chunks++
		r.mu.Unlock()
	}
}

// transition must be called with r.mu held.
func (r *Recorder) transition(event fsm.Event) error {
	next, err := fsm.Transition(r.state, event)
	if err != nil {
		return err
	}
	r.state = next
	return nil
}

func (r *Recorder) RunState() fsm.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) SetDenoiserMode(mode capture.DenoiseMode) error {
	r.denoiser.SetMode(mode)
	r.logger.Debug("denoiser mode changed", "mode", string(mode))
	return nil
}

func (r *Recorder) SetDenoiserLevel(level capture.DenoiseLevel) error {
	r.denoiser.SetLevel(level)
	r.logger.Debug("denoiser level changed", "level", string(level))
	return nil
}

// InitialAudioConfig reports the processing configuration the recorder was built with.
func (r *Recorder) InitialAudioConfig() (capture.AudioConfig, error) {
	return capture.ReportedConfig(r.snapshot.Settings), nil
}

// Stats returns a point-in-time summary.
func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		State:        r.state,
		SnapshotID:   r.snapshot.ID,
		Chunks:       r.chunks,
		DenoiseMode:  string(r.denoiser.Mode()),
		DenoiseLevel: string(r.denoiser.Level()),
		Bypassed:     r.denoiser.Bypassed(),
	}
	if r.source != nil {
		stats.Device = r.source.Device().ID
		stats.Bytes = r.source.BytesCaptured()
		stats.Level = r.source.Level()
	}
	return stats
}
