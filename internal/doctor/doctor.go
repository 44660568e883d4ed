// Package doctor runs readiness diagnostics for config, runtime paths, the
// document store, platform probes and audio input.
package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rbright/livetune/internal/audio"
	"github.com/rbright/livetune/internal/capture"
	"github.com/rbright/livetune/internal/config"
	"github.com/rbright/livetune/internal/editor"
	"github.com/rbright/livetune/internal/ipc"
	"github.com/rbright/livetune/internal/store"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// selectDevice is swapped in tests.
var selectDevice = audio.SelectDevice

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir is set", "XDG_RUNTIME_DIR is empty; the owner socket cannot be created"))
	checks = append(checks, checkOwner(ctx))

	checks = append(checks, checkStore(ctx, cfg.Config.Store)...)
	checks = append(checks, checkPlatform(cfg.Config.Capture))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config.Audio))

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkOwner reports whether an owner process is answering. Either answer passes.
func checkOwner(ctx context.Context) Check {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return Check{Name: "owner", Pass: true, Message: "not running (no runtime dir)"}
	}
	alive, err := ipc.Probe(ctx, path, 200*time.Millisecond)
	switch {
	case err != nil:
		return Check{Name: "owner", Pass: false, Message: fmt.Sprintf("socket %s is unresponsive: %v", path, err)}
	case alive:
		return Check{Name: "owner", Pass: true, Message: fmt.Sprintf("running at %s", path)}
	default:
		return Check{Name: "owner", Pass: true, Message: "not running"}
	}
}

// checkStore opens the configured backend and validates the stored document.
func checkStore(ctx context.Context, cfg config.StoreConfig) []Check {
	handle, err := store.Open(ctx, cfg)
	if err != nil {
		return []Check{
			{Name: "store", Pass: false, Message: err.Error()},
			{Name: "document", Pass: false, Message: "store unavailable"},
		}
	}
	defer handle.Close()

	text, ok, err := handle.Get(ctx, store.KeyDocument)
	if err != nil {
		return []Check{
			{Name: "store", Pass: false, Message: fmt.Sprintf("read %s: %v", handle.Location, err)},
			{Name: "document", Pass: false, Message: "store unavailable"},
		}
	}
	return []Check{
		{Name: "store", Pass: true, Message: fmt.Sprintf("%s backend at %s", backendName(cfg.Backend), handle.Location)},
		checkDocument(text, ok),
	}
}

func checkDocument(text string, stored bool) Check {
	if !stored {
		return Check{Name: "document", Pass: true, Message: "not stored yet; default document in use"}
	}
	if err := editor.Validate(text); err != nil {
		return Check{Name: "document", Pass: false, Message: err.Error()}
	}
	return Check{Name: "document", Pass: true, Message: fmt.Sprintf("valid (%d bytes)", len(text))}
}

func backendName(backend string) string {
	if backend == "" {
		return config.BackendFile
	}
	return backend
}

func checkPlatform(cfg config.CaptureConfig) Check {
	p := capture.DetectPlatform(cfg)
	defaults := capture.DefaultSettings(p)
	return Check{
		Name: "platform",
		Pass: true,
		Message: fmt.Sprintf(
			"denoiser_supported=%t mobile=%t echo_quirk=%t noise_suppression_default=%t",
			p.DenoiserSupported, p.Mobile, p.EchoQuirk, defaults.NoiseSuppression,
		),
	}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.AudioConfig) Check {
	selection, err := selectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}
