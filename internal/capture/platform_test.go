package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/livetune/internal/config"
	"github.com/stretchr/testify/require"
)

func writeRelease(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "os-release")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDetectPlatformAuto(t *testing.T) {
	linux := writeRelease(t, "NAME=\"NixOS\"\nID=nixos\n")
	harmony := writeRelease(t, "NAME=HarmonyOS\nID_LIKE=\"openharmony linux\"\n")

	tests := []struct {
		name    string
		goos    string
		release string
		want    Platform
	}{
		{name: "linux desktop", goos: "linux", release: linux, want: Platform{DenoiserSupported: true}},
		{name: "android", goos: "android", release: linux, want: Platform{Mobile: true}},
		{name: "ios", goos: "ios", release: "/missing", want: Platform{Mobile: true}},
		{name: "harmony", goos: "linux", release: harmony, want: Platform{DenoiserSupported: true, EchoQuirk: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := detectPlatform(config.CaptureConfig{}, tc.goos, tc.release)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestDetectPlatformOverrides(t *testing.T) {
	cfg := config.CaptureConfig{
		Denoiser:      config.ProbeOff,
		Mobile:        "ON",
		PlatformQuirk: config.ProbeOn,
	}
	got := detectPlatform(cfg, "linux", "/missing")
	require.Equal(t, Platform{Mobile: true, EchoQuirk: true}, got)
	require.True(t, DefaultSettings(got).NoiseSuppression)
}
