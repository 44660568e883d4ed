package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/rbright/livetune/internal/capture"
)

// Gate thresholds are RMS values on the s16 scale.
const (
	softGateRMS       = 400
	aggressiveGateRMS = 1200
	softAttenuation   = 0.5
	hardAttenuation   = 0.15
)

// Denoiser is a chunk-level noise gate whose mode and level can change while
// audio flows through it.
type Denoiser struct {
	stationary atomic.Bool
	aggressive atomic.Bool
	bypass     atomic.Bool
}

// NewDenoiser configures the stage from capture settings.
func NewDenoiser(settings capture.Settings) *Denoiser {
	d := &Denoiser{}
	d.SetMode(settings.DenoiseMode)
	d.SetLevel(settings.DenoiseLevel)
	d.bypass.Store(!settings.DenoiserActive())
	return d
}

func (d *Denoiser) SetMode(mode capture.DenoiseMode) {
	d.stationary.Store(mode == capture.DenoiseModeStationary)
}

func (d *Denoiser) SetLevel(level capture.DenoiseLevel) {
	d.aggressive.Store(level == capture.DenoiseLevelAggressive)
}

func (d *Denoiser) Mode() capture.DenoiseMode {
	if d.stationary.Load() {
		return capture.DenoiseModeStationary
	}
	return capture.DenoiseModeAI
}

func (d *Denoiser) Level() capture.DenoiseLevel {
	if d.aggressive.Load() {
		return capture.DenoiseLevelAggressive
	}
	return capture.DenoiseLevelSoft
}

// Bypassed reports whether chunks pass through untouched.
func (d *Denoiser) Bypassed() bool {
	return d.bypass.Load()
}

// Process gates one s16le chunk in place and returns its input RMS.
func (d *Denoiser) Process(chunk []byte) float64 {
	rms := chunkRMS(chunk)
	if d == nil || d.bypass.Load() {
		return rms
	}

	threshold := float64(softGateRMS)
	gain := softAttenuation
	if d.aggressive.Load() {
		threshold = aggressiveGateRMS
		gain = hardAttenuation
	}
	if rms >= threshold {
		return rms
	}
	if d.stationary.Load() {
		gain = 0
	}

	for i := 0; i+1 < len(chunk); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(chunk[i:]))
		binary.LittleEndian.PutUint16(chunk[i:], uint16(int16(float64(sample)*gain)))
	}
	return rms
}

func chunkRMS(chunk []byte) float64 {
	samples := len(chunk) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(chunk); i += 2 {
		s := float64(int16(binary.LittleEndian.Uint16(chunk[i:])))
		sum += s * s
	}
	return math.Sqrt(sum / float64(samples))
}
