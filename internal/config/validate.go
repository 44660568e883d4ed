package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Store.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(cfg.Store.Redis.Addr) == "" {
			return nil, fmt.Errorf("store.redis.addr must not be empty when store.backend=redis")
		}
		if cfg.Store.Redis.DB < 0 {
			return nil, fmt.Errorf("store.redis.db must be >= 0")
		}
		if cfg.Store.Redis.DialTimeoutMS <= 0 {
			return nil, fmt.Errorf("store.redis.dial_timeout_ms must be > 0")
		}
	default:
		return nil, fmt.Errorf("store.backend must be one of: file, memory, redis")
	}
	if cfg.Store.Backend == BackendMemory {
		warnings = append(warnings, Warning{Message: "store.backend=memory does not survive restarts"})
	}

	probes := []struct {
		name  string
		value string
	}{
		{name: "capture.denoiser", value: cfg.Capture.Denoiser},
		{name: "capture.mobile", value: cfg.Capture.Mobile},
		{name: "capture.platform_quirk", value: cfg.Capture.PlatformQuirk},
	}
	for _, p := range probes {
		switch p.value {
		case ProbeAuto, ProbeOn, ProbeOff:
		default:
			return nil, fmt.Errorf("%s must be one of: auto, on, off", p.name)
		}
	}

	if doc := strings.TrimSpace(cfg.Editor.DefaultDocument); doc != "" {
		if !json.Valid([]byte(doc)) || !strings.HasPrefix(doc, "{") {
			return nil, fmt.Errorf("editor.default_document must be a JSON object")
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if cfg.Log.MaxSizeMB <= 0 {
		return nil, fmt.Errorf("log.max_size_mb must be > 0")
	}
	if cfg.Log.MaxBackups < 0 {
		return nil, fmt.Errorf("log.max_backups must be >= 0")
	}

	return warnings, nil
}
