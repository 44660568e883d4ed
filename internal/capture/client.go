package capture

import (
	"errors"

	"github.com/rbright/livetune/internal/fsm"
)

// ErrUnsupported is returned by clients for capabilities they do not implement.
var ErrUnsupported = errors.ErrUnsupported

// Client is the capability surface of a capture client variant.
//
// The synchronizer borrows a Client; it never starts, stops, or closes one.
type Client interface {
	RunState() fsm.State
	SetDenoiserMode(DenoiseMode) error
	SetDenoiserLevel(DenoiseLevel) error
	InitialAudioConfig() (AudioConfig, error)
}

// Capabilities lists which Client operations are actually implemented.
type Capabilities struct {
	RunState      bool `json:"run_state"`
	DenoiserMode  bool `json:"denoiser_mode"`
	DenoiserLevel bool `json:"denoiser_level"`
	InitialConfig bool `json:"initial_config"`
}

// CapabilityReporter is implemented by clients that lack some operations.
type CapabilityReporter interface {
	Capabilities() Capabilities
}

// CapabilitiesOf reports the capabilities of c. Clients that do not implement
// CapabilityReporter are assumed to implement everything.
func CapabilitiesOf(c Client) Capabilities {
	if c == nil {
		return Capabilities{}
	}
	if r, ok := c.(CapabilityReporter); ok {
		return r.Capabilities()
	}
	return Capabilities{RunState: true, DenoiserMode: true, DenoiserLevel: true, InitialConfig: true}
}

func (c Capabilities) supports(f Field) bool {
	switch f {
	case FieldDenoiseMode:
		return c.DenoiserMode
	case FieldDenoiseLevel:
		return c.DenoiserLevel
	default:
		return false
	}
}

// Funcs adapts optional functions to the Client interface. A nil function is
// an absent capability. Use it through a pointer.
type Funcs struct {
	RunStateFunc           func() fsm.State
	SetDenoiserModeFunc    func(DenoiseMode) error
	SetDenoiserLevelFunc   func(DenoiseLevel) error
	InitialAudioConfigFunc func() (AudioConfig, error)
}

func (f *Funcs) RunState() fsm.State {
	if f.RunStateFunc == nil {
		return fsm.StateIdle
	}
	return f.RunStateFunc()
}

func (f *Funcs) SetDenoiserMode(mode DenoiseMode) error {
	if f.SetDenoiserModeFunc == nil {
		return ErrUnsupported
	}
	return f.SetDenoiserModeFunc(mode)
}

func (f *Funcs) SetDenoiserLevel(level DenoiseLevel) error {
	if f.SetDenoiserLevelFunc == nil {
		return ErrUnsupported
	}
	return f.SetDenoiserLevelFunc(level)
}

func (f *Funcs) InitialAudioConfig() (AudioConfig, error) {
	if f.InitialAudioConfigFunc == nil {
		return AudioConfig{}, ErrUnsupported
	}
	return f.InitialAudioConfigFunc()
}

func (f *Funcs) Capabilities() Capabilities {
	return Capabilities{
		RunState:      f.RunStateFunc != nil,
		DenoiserMode:  f.SetDenoiserModeFunc != nil,
		DenoiserLevel: f.SetDenoiserLevelFunc != nil,
		InitialConfig: f.InitialAudioConfigFunc != nil,
	}
}
