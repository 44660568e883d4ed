// Package capture keeps audio-processing settings consistent with a live capture client.
package capture

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DenoiseMode selects the denoiser algorithm family.
type DenoiseMode string

const (
	DenoiseModeAI         DenoiseMode = "ai"
	DenoiseModeStationary DenoiseMode = "stationary"
)

// ParseDenoiseMode accepts the canonical mode names case-insensitively.
func ParseDenoiseMode(raw string) (DenoiseMode, error) {
	switch mode := DenoiseMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case DenoiseModeAI, DenoiseModeStationary:
		return mode, nil
	default:
		return "", fmt.Errorf("denoise_mode must be one of: ai, stationary (got %q)", raw)
	}
}

// DenoiseLevel selects denoiser aggressiveness.
type DenoiseLevel string

const (
	DenoiseLevelSoft       DenoiseLevel = "soft"
	DenoiseLevelAggressive DenoiseLevel = "aggressive"
)

// ParseDenoiseLevel accepts the canonical level names case-insensitively.
func ParseDenoiseLevel(raw string) (DenoiseLevel, error) {
	switch level := DenoiseLevel(strings.ToLower(strings.TrimSpace(raw))); level {
	case DenoiseLevelSoft, DenoiseLevelAggressive:
		return level, nil
	default:
		return "", fmt.Errorf("denoise_level must be one of: soft, aggressive (got %q)", raw)
	}
}

// Field names one user-adjustable capture setting.
type Field string

const (
	FieldDenoiseMode       Field = "denoise_mode"
	FieldDenoiseLevel      Field = "denoise_level"
	FieldNoiseSuppression  Field = "noise_suppression"
	FieldEchoCancellation  Field = "echo_cancellation"
	FieldAutoGainControl   Field = "auto_gain_control"
	FieldDebug             Field = "debug"
	FieldAudioMutedDefault Field = "audio_muted_default"
	FieldPlatformQuirk     Field = "platform_quirk"
)

// Fields lists every setting in control-surface order.
var Fields = []Field{
	FieldDebug,
	FieldAudioMutedDefault,
	FieldPlatformQuirk,
	FieldNoiseSuppression,
	FieldEchoCancellation,
	FieldAutoGainControl,
	FieldDenoiseMode,
	FieldDenoiseLevel,
}

// ParseField resolves a field name.
func ParseField(raw string) (Field, error) {
	candidate := Field(strings.ToLower(strings.TrimSpace(raw)))
	for _, f := range Fields {
		if f == candidate {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown capture field %q", raw)
}

func (f Field) denoiser() bool {
	return f == FieldDenoiseMode || f == FieldDenoiseLevel
}

// Settings is the full capture-processing parameter set.
//
// NoiseSuppression disables the denoiser; DenoiseMode and DenoiseLevel keep
// their values while it is on.
type Settings struct {
	DenoiseMode       DenoiseMode  `json:"denoise_mode"`
	DenoiseLevel      DenoiseLevel `json:"denoise_level"`
	NoiseSuppression  bool         `json:"noise_suppression"`
	EchoCancellation  bool         `json:"echo_cancellation"`
	AutoGainControl   bool         `json:"auto_gain_control"`
	Debug             bool         `json:"debug"`
	AudioMutedDefault bool         `json:"audio_muted_default"`
	PlatformQuirk     bool         `json:"platform_quirk"`
}

// DefaultSettings derives the pre-client defaults from platform probes.
func DefaultSettings(p Platform) Settings {
	return Settings{
		DenoiseMode:      DenoiseModeAI,
		DenoiseLevel:     DenoiseLevelSoft,
		NoiseSuppression: !p.DenoiserSupported || p.Mobile,
		EchoCancellation: true,
		AutoGainControl:  true,
		PlatformQuirk:    p.EchoQuirk,
	}
}

// DenoiserActive reports whether the denoiser stage should process audio.
func (s Settings) DenoiserActive() bool {
	return !s.NoiseSuppression
}

// Value renders one field for display.
func (s Settings) Value(f Field) string {
	switch f {
	case FieldDenoiseMode:
		return string(s.DenoiseMode)
	case FieldDenoiseLevel:
		return string(s.DenoiseLevel)
	}
	if p := s.toggle(f); p != nil {
		return strconv.FormatBool(*p)
	}
	return ""
}

// toggle returns the boolean backing a field, or nil for non-boolean fields.
func (s *Settings) toggle(f Field) *bool {
	switch f {
	case FieldNoiseSuppression:
		return &s.NoiseSuppression
	case FieldEchoCancellation:
		return &s.EchoCancellation
	case FieldAutoGainControl:
		return &s.AutoGainControl
	case FieldDebug:
		return &s.Debug
	case FieldAudioMutedDefault:
		return &s.AudioMutedDefault
	case FieldPlatformQuirk:
		return &s.PlatformQuirk
	default:
		return nil
	}
}

// AudioConfig is the partial configuration a capture client reports at startup.
// Nil fields were not configured on the client.
type AudioConfig struct {
	DenoiseMode      *DenoiseMode  `json:"denoise_mode,omitempty"`
	DenoiseLevel     *DenoiseLevel `json:"denoise_level,omitempty"`
	NoiseSuppression *bool         `json:"noise_suppression,omitempty"`
	EchoCancellation *bool         `json:"echo_cancellation,omitempty"`
	AutoGainControl  *bool         `json:"auto_gain_control,omitempty"`

	Debug             *bool `json:"debug,omitempty"`
	AudioMutedDefault *bool `json:"audio_muted_default,omitempty"`
	PlatformQuirk     *bool `json:"platform_quirk,omitempty"`
}

func (c AudioConfig) applyTo(s *Settings) {
	if c.DenoiseMode != nil && *c.DenoiseMode != "" {
		s.DenoiseMode = *c.DenoiseMode
	}
	if c.DenoiseLevel != nil && *c.DenoiseLevel != "" {
		s.DenoiseLevel = *c.DenoiseLevel
	}
	if c.NoiseSuppression != nil {
		s.NoiseSuppression = *c.NoiseSuppression
	}
	if c.EchoCancellation != nil {
		s.EchoCancellation = *c.EchoCancellation
	}
	if c.AutoGainControl != nil {
		s.AutoGainControl = *c.AutoGainControl
	}
	if c.Debug != nil {
		s.Debug = *c.Debug
	}
	if c.AudioMutedDefault != nil {
		s.AudioMutedDefault = *c.AudioMutedDefault
	}
	if c.PlatformQuirk != nil {
		s.PlatformQuirk = *c.PlatformQuirk
	}
}

// keepSessionChoices copies the fields a client does not negotiate from prev.
func (s *Settings) keepSessionChoices(prev Settings) {
	s.Debug = prev.Debug
	s.AudioMutedDefault = prev.AudioMutedDefault
	s.PlatformQuirk = prev.PlatformQuirk
}

// ReportedConfig builds the AudioConfig a client created from s would report.
func ReportedConfig(s Settings) AudioConfig {
	mode := s.DenoiseMode
	level := s.DenoiseLevel
	ns := s.NoiseSuppression
	ec := s.EchoCancellation
	agc := s.AutoGainControl
	debug := s.Debug
	muted := s.AudioMutedDefault
	quirk := s.PlatformQuirk
	return AudioConfig{
		DenoiseMode:       &mode,
		DenoiseLevel:      &level,
		NoiseSuppression:  &ns,
		EchoCancellation:  &ec,
		AutoGainControl:   &agc,
		Debug:             &debug,
		AudioMutedDefault: &muted,
		PlatformQuirk:     &quirk,
	}
}

// Snapshot is the settings hand-off consumed when a new capture session starts.
type Snapshot struct {
	ID       string    `json:"id"`
	TakenAt  time.Time `json:"taken_at"`
	Settings Settings  `json:"settings"`
}

// Control describes how one field should be presented on a control surface.
type Control struct {
	Field    Field  `json:"field"`
	Value    string `json:"value"`
	Editable bool   `json:"editable"`
	Live     bool   `json:"live"`
	Inert    bool   `json:"inert"`
}
