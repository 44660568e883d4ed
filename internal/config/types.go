// Package config resolves, parses, validates, and defaults livetune configuration.
package config

// Store backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Probe override modes for platform detection.
const (
	ProbeAuto = "auto"
	ProbeOn   = "on"
	ProbeOff  = "off"
)

// Config is the fully materialized runtime configuration used by livetune.
type Config struct {
	Store   StoreConfig
	Capture CaptureConfig
	Audio   AudioConfig
	Editor  EditorConfig
	Log     LogConfig
}

// StoreConfig selects and configures the persistent configuration store.
type StoreConfig struct {
	Backend string
	// Path is the file backend location; empty resolves under XDG_STATE_HOME.
	Path  string
	Redis RedisConfig
}

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	KeyPrefix     string
	DialTimeoutMS int
}

// CaptureConfig overrides platform capability probes. Each field is auto, on, or off.
type CaptureConfig struct {
	Denoiser      string
	Mobile        string
	PlatformQuirk string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// EditorConfig controls the structured document editor.
type EditorConfig struct {
	// DefaultDocument replaces the built-in document when the store is empty.
	DefaultDocument string
}

// LogConfig controls the runtime log file.
type LogConfig struct {
	Level      string
	MaxSizeMB  int
	MaxBackups int
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
