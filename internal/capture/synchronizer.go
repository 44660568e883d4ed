package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// ErrLivePushFailed marks a denoiser change the running client rejected twice.
var ErrLivePushFailed = errors.New("live denoiser update rejected by capture client")

// Synchronizer owns the settings view for one control surface.
//
// It is not safe for concurrent use; the owner serializes calls.
type Synchronizer struct {
	logger   *slog.Logger
	platform Platform

	client   Client
	caps     Capabilities
	settings Settings
	pushErr  error

	newID func() string
	now   func() time.Time
}

// NewSynchronizer probes defaults and reads client, which may be nil.
func NewSynchronizer(logger *slog.Logger, platform Platform, client Client) *Synchronizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Synchronizer{
		logger:   logger,
		platform: platform,
		settings: DefaultSettings(platform),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	s.Initialize(client)
	return s
}

// Initialize resets the negotiated fields to platform defaults and overlays
// every value the client explicitly reports. Debug, AudioMutedDefault and
// PlatformQuirk keep the current choice unless the client reports them.
func (s *Synchronizer) Initialize(client Client) Settings {
	s.client = client
	s.caps = CapabilitiesOf(client)
	s.pushErr = nil
	prev := s.settings
	s.settings = DefaultSettings(s.platform)
	s.settings.keepSessionChoices(prev)

	if client == nil {
		return s.settings
	}
	if !s.caps.InitialConfig {
		s.logger.Debug("capture client does not report initial config")
		return s.settings
	}

	reported, err := client.InitialAudioConfig()
	if err != nil {
		if errors.Is(err, ErrUnsupported) {
			s.caps.InitialConfig = false
		}
		s.logger.Warn("read capture client config failed; using defaults", "error", err.Error())
		return s.settings
	}
	reported.applyTo(&s.settings)
	return s.settings
}

// ReplaceClient handles a new client taking over. The same handle is a no-op.
func (s *Synchronizer) ReplaceClient(client Client) Settings {
	if sameClient(s.client, client) {
		return s.settings
	}
	s.logger.Info("capture client replaced",
		"had_client", s.client != nil,
		"has_client", client != nil,
	)
	return s.Initialize(client)
}

// Client returns the borrowed client handle, or nil.
func (s *Synchronizer) Client() Client {
	return s.client
}

// Platform returns the probe results the defaults were derived from.
func (s *Synchronizer) Platform() Platform {
	return s.platform
}

// Settings returns a copy of the current settings.
func (s *Synchronizer) Settings() Settings {
	return s.settings
}

// LastPushError returns the most recent unrecovered live push failure.
func (s *Synchronizer) LastPushError() error {
	return s.pushErr
}

// ExportSnapshot returns the full settings for a capture session about to start.
func (s *Synchronizer) ExportSnapshot() Snapshot {
	return Snapshot{ID: s.newID(), TakenAt: s.now(), Settings: s.settings}
}

// Recording reports whether the client currently reports an active capture.
func (s *Synchronizer) Recording() bool {
	if s.client == nil || !s.caps.RunState {
		return false
	}
	return s.client.RunState().Recording()
}

// IsLiveMutable reports whether a change to f reaches the running client now.
func (s *Synchronizer) IsLiveMutable(f Field) bool {
	return f.denoiser() && s.platform.DenoiserSupported && s.caps.supports(f) && s.Recording()
}

// Editable reports whether the control for f should accept input.
func (s *Synchronizer) Editable(f Field) bool {
	switch {
	case f.denoiser():
		return s.platform.DenoiserSupported
	case f == FieldNoiseSuppression:
		return s.platform.DenoiserSupported && !s.Recording()
	default:
		return !s.Recording()
	}
}

// Controls describes every field for a control surface.
func (s *Synchronizer) Controls() []Control {
	recording := s.Recording()
	controls := make([]Control, 0, len(Fields))
	for _, f := range Fields {
		controls = append(controls, Control{
			Field:    f,
			Value:    s.settings.Value(f),
			Editable: s.Editable(f),
			Live:     recording && s.IsLiveMutable(f),
			Inert:    f.denoiser() && (s.settings.NoiseSuppression || !s.platform.DenoiserSupported),
		})
	}
	return controls
}

// SetField parses raw for f and applies it.
func (s *Synchronizer) SetField(f Field, raw string) error {
	switch f {
	case FieldDenoiseMode:
		mode, err := ParseDenoiseMode(raw)
		if err != nil {
			return err
		}
		return s.SetDenoiseMode(mode)
	case FieldDenoiseLevel:
		level, err := ParseDenoiseLevel(raw)
		if err != nil {
			return err
		}
		return s.SetDenoiseLevel(level)
	default:
		value, err := parseToggle(f, raw)
		if err != nil {
			return err
		}
		return s.SetToggle(f, value)
	}
}

// SetDenoiseMode stores mode and forwards it to a recording client.
func (s *Synchronizer) SetDenoiseMode(mode DenoiseMode) error {
	s.settings.DenoiseMode = mode
	return s.pushLive(FieldDenoiseMode, func() error {
		return s.client.SetDenoiserMode(mode)
	})
}

// SetDenoiseLevel stores level and forwards it to a recording client.
func (s *Synchronizer) SetDenoiseLevel(level DenoiseLevel) error {
	s.settings.DenoiseLevel = level
	return s.pushLive(FieldDenoiseLevel, func() error {
		return s.client.SetDenoiserLevel(level)
	})
}

// SetToggle stores a boolean field. It never reaches a running client.
func (s *Synchronizer) SetToggle(f Field, value bool) error {
	p := s.settings.toggle(f)
	if p == nil {
		return fmt.Errorf("capture field %q is not a toggle", f)
	}
	*p = value
	if s.Recording() {
		s.logger.Debug("capture setting stored for next session", "field", string(f), "value", value)
	}
	return nil
}

// pushLive forwards a denoiser change, retrying a rejected push once.
func (s *Synchronizer) pushLive(f Field, push func() error) error {
	if !s.IsLiveMutable(f) {
		return nil
	}

	err := push()
	if err == nil {
		s.pushErr = nil
		return nil
	}
	if errors.Is(err, ErrUnsupported) {
		s.disable(f)
		s.logger.Warn("capture client cannot change denoiser live", "field", string(f))
		return nil
	}

	s.logger.Warn("live denoiser push failed; retrying", "field", string(f), "error", err.Error())
	if err = push(); err == nil {
		s.pushErr = nil
		return nil
	}

	s.pushErr = fmt.Errorf("push %s: %w: %w", f, ErrLivePushFailed, err)
	s.logger.Error("live denoiser push failed", "field", string(f), "error", err.Error())
	return s.pushErr
}

func (s *Synchronizer) disable(f Field) {
	switch f {
	case FieldDenoiseMode:
		s.caps.DenoiserMode = false
	case FieldDenoiseLevel:
		s.caps.DenoiserLevel = false
	}
}

func parseToggle(f Field, raw string) (bool, error) {
	switch raw {
	case "true", "on", "1", "yes":
		return true, nil
	case "false", "off", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be a boolean (got %q)", f, raw)
	}
}

// sameClient compares handles by identity without panicking on
// non-comparable dynamic types.
func sameClient(a, b Client) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
