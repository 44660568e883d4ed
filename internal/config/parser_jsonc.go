package config

import (
	"fmt"
	"strings"

	"github.com/rbright/livetune/internal/jsonc"
)

type jsoncConfig struct {
	Store   *jsoncStore   `json:"store"`
	Capture *jsoncCapture `json:"capture"`
	Audio   *jsoncAudio   `json:"audio"`
	Editor  *jsoncEditor  `json:"editor"`
	Log     *jsoncLog     `json:"log"`
}

type jsoncStore struct {
	Backend *string     `json:"backend"`
	Path    *string     `json:"path"`
	Redis   *jsoncRedis `json:"redis"`
}

type jsoncRedis struct {
	Addr          *string `json:"addr"`
	Password      *string `json:"password"`
	DB            *int    `json:"db"`
	KeyPrefix     *string `json:"key_prefix"`
	DialTimeoutMS *int    `json:"dial_timeout_ms"`
}

type jsoncCapture struct {
	Denoiser      *string `json:"denoiser"`
	Mobile        *string `json:"mobile"`
	PlatformQuirk *string `json:"platform_quirk"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncEditor struct {
	// DefaultDocument accepts either a JSON object or its text.
	DefaultDocument jsoncDocument `json:"default_document"`
}

type jsoncLog struct {
	Level      *string `json:"level"`
	MaxSizeMB  *int    `json:"max_size_mb"`
	MaxBackups *int    `json:"max_backups"`
}

// jsoncDocument keeps an embedded document as raw text.
type jsoncDocument struct {
	raw string
	set bool
}

func (d *jsoncDocument) UnmarshalJSON(data []byte) error {
	var text string
	if err := jsonc.Decode(string(data), &text, false); err == nil {
		d.raw, d.set = text, true
		return nil
	}
	if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		d.raw, d.set = string(data), true
		return nil
	}
	return fmt.Errorf("expected object or document string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := jsonc.Normalize(content)
	if err != nil {
		return Config{}, nil, err
	}

	var payload jsoncConfig
	if err := jsonc.Decode(normalized, &payload, true); err != nil {
		return Config{}, nil, err
	}

	cfg := base
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.Store != nil {
		if payload.Store.Backend != nil {
			cfg.Store.Backend = strings.ToLower(strings.TrimSpace(*payload.Store.Backend))
		}
		if payload.Store.Path != nil {
			cfg.Store.Path = strings.TrimSpace(*payload.Store.Path)
		}
		if r := payload.Store.Redis; r != nil {
			if r.Addr != nil {
				cfg.Store.Redis.Addr = strings.TrimSpace(*r.Addr)
			}
			if r.Password != nil {
				cfg.Store.Redis.Password = *r.Password
			}
			if r.DB != nil {
				cfg.Store.Redis.DB = *r.DB
			}
			if r.KeyPrefix != nil {
				cfg.Store.Redis.KeyPrefix = strings.TrimSpace(*r.KeyPrefix)
			}
			if r.DialTimeoutMS != nil {
				cfg.Store.Redis.DialTimeoutMS = *r.DialTimeoutMS
			}
		}
	}

	if payload.Capture != nil {
		if payload.Capture.Denoiser != nil {
			cfg.Capture.Denoiser = normalizeProbe(*payload.Capture.Denoiser)
		}
		if payload.Capture.Mobile != nil {
			cfg.Capture.Mobile = normalizeProbe(*payload.Capture.Mobile)
		}
		if payload.Capture.PlatformQuirk != nil {
			cfg.Capture.PlatformQuirk = normalizeProbe(*payload.Capture.PlatformQuirk)
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Editor != nil && payload.Editor.DefaultDocument.set {
		cfg.Editor.DefaultDocument = payload.Editor.DefaultDocument.raw
	}

	if payload.Log != nil {
		if payload.Log.Level != nil {
			cfg.Log.Level = strings.ToLower(strings.TrimSpace(*payload.Log.Level))
		}
		if payload.Log.MaxSizeMB != nil {
			cfg.Log.MaxSizeMB = *payload.Log.MaxSizeMB
		}
		if payload.Log.MaxBackups != nil {
			cfg.Log.MaxBackups = *payload.Log.MaxBackups
		}
	}
}

func normalizeProbe(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
