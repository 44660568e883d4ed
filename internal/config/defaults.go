package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendFile,
			Redis: RedisConfig{
				Addr:          "127.0.0.1:6379",
				KeyPrefix:     "livetune",
				DialTimeoutMS: 2000,
			},
		},
		Capture: CaptureConfig{
			Denoiser:      ProbeAuto,
			Mobile:        ProbeAuto,
			PlatformQuirk: ProbeAuto,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
