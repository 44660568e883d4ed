package session

import (
	"context"
	"log/slog"

	"github.com/rbright/livetune/internal/audio"
	"github.com/rbright/livetune/internal/capture"
)

// Recorder is the capture client a Controller starts and stops.
type Recorder interface {
	capture.Client
	Start(context.Context) error
	Stop() error
	Stats() audio.Stats
}

// RecorderFactory builds an idle recorder from a settings snapshot.
type RecorderFactory func(*slog.Logger, capture.Snapshot) Recorder

// PulseRecorders returns a factory for Pulse-backed recorders on opts' devices.
func PulseRecorders(opts audio.RecorderOptions) RecorderFactory {
	return func(logger *slog.Logger, snapshot capture.Snapshot) Recorder {
		return audio.NewRecorder(logger, snapshot, opts)
	}
}
