package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rbright/livetune/internal/audio"
	"github.com/rbright/livetune/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "/run/user/1000")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.HasPrefix(v, "/run") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckConfigReportsMissingFile(t *testing.T) {
	check := checkConfig(config.Loaded{Path: "/tmp/none.jsonc"})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "using defaults")

	check = checkConfig(config.Loaded{Path: "/tmp/cfg.jsonc", Exists: true})
	require.Contains(t, check.Message, "loaded")
}

func TestCheckOwnerWithoutRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	check := checkOwner(context.Background())
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "not running")
}

func TestCheckStoreBackends(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		checks := checkStore(ctx, config.StoreConfig{Backend: config.BackendMemory})
		require.Len(t, checks, 2)
		require.True(t, checks[0].Pass)
		require.True(t, checks[1].Pass)
		require.Contains(t, checks[1].Message, "default document")
	})

	t.Run("redis with malformed document", func(t *testing.T) {
		srv := miniredis.RunT(t)
		require.NoError(t, srv.Set("livetune:chatUpdate", "{\n  \"event_type\": \n}"))

		cfg := config.Default().Store
		cfg.Backend = config.BackendRedis
		cfg.Redis.Addr = srv.Addr()

		checks := checkStore(ctx, cfg)
		require.True(t, checks[0].Pass)
		require.Contains(t, checks[0].Message, "redis backend")
		require.False(t, checks[1].Pass)
		require.Contains(t, checks[1].Message, "line 3")
	})

	t.Run("redis unreachable", func(t *testing.T) {
		srv := miniredis.RunT(t)
		addr := srv.Addr()
		srv.Close()

		cfg := config.Default().Store
		cfg.Backend = config.BackendRedis
		cfg.Redis.Addr = addr
		cfg.Redis.DialTimeoutMS = 100

		checks := checkStore(ctx, cfg)
		require.False(t, checks[0].Pass)
		require.False(t, checks[1].Pass)
		require.Equal(t, "store unavailable", checks[1].Message)
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

		checks := checkStore(ctx, config.StoreConfig{Backend: config.BackendFile, Path: path})
		require.False(t, checks[0].Pass)
		require.Contains(t, checks[0].Message, "decode store")
	})
}

func TestCheckDocument(t *testing.T) {
	require.True(t, checkDocument("", false).Pass)
	require.True(t, checkDocument(`{"data":{}}`, true).Pass)
	require.False(t, checkDocument(`{"data":`, true).Pass)
}

func TestCheckPlatformSummarizesProbes(t *testing.T) {
	check := checkPlatform(config.CaptureConfig{Denoiser: config.ProbeOff, Mobile: config.ProbeOff, PlatformQuirk: config.ProbeOn})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "denoiser_supported=false")
	require.Contains(t, check.Message, "echo_quirk=true")
	require.Contains(t, check.Message, "noise_suppression_default=true")
}

func TestCheckAudioSelection(t *testing.T) {
	original := selectDevice
	t.Cleanup(func() { selectDevice = original })

	selectDevice = func(_ context.Context, input, _ string) (audio.Selection, error) {
		return audio.Selection{Device: audio.Device{ID: input}, Warning: "fell back"}, nil
	}
	check := checkAudioSelection(context.Background(), config.AudioConfig{Input: "mic"})
	require.True(t, check.Pass)
	require.Equal(t, `selected "mic" (fell back)`, check.Message)

	selectDevice = func(context.Context, string, string) (audio.Selection, error) {
		return audio.Selection{}, errors.New("no sources")
	}
	check = checkAudioSelection(context.Background(), config.AudioConfig{})
	require.False(t, check.Pass)
	require.Equal(t, "no sources", check.Message)
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default().Audio)
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestRunCoversEveryArea(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})

	names := make([]string, 0, len(report.Checks))
	for _, check := range report.Checks {
		names = append(names, check.Name)
	}
	require.Equal(t, []string{"config", "XDG_RUNTIME_DIR", "owner", "store", "document", "platform", "audio.device"}, names)
	require.False(t, report.OK())
}
