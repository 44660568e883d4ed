package capture

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"github.com/rbright/livetune/internal/config"
)

const osReleasePath = "/etc/os-release"

// Platform is the result of the host capability probes.
type Platform struct {
	DenoiserSupported bool `json:"denoiser_supported"`
	Mobile            bool `json:"mobile"`
	EchoQuirk         bool `json:"echo_quirk"`
}

// DetectPlatform probes the host, honoring on/off overrides from config.
func DetectPlatform(cfg config.CaptureConfig) Platform {
	return detectPlatform(cfg, runtime.GOOS, osReleasePath)
}

func detectPlatform(cfg config.CaptureConfig, goos string, releasePath string) Platform {
	mobile := resolveProbe(cfg.Mobile, goos == "android" || goos == "ios")
	return Platform{
		// Mobile builds ship without the denoise stage.
		DenoiserSupported: resolveProbe(cfg.Denoiser, !mobile),
		Mobile:            mobile,
		EchoQuirk:         resolveProbe(cfg.PlatformQuirk, harmonyOSRelease(releasePath)),
	}
}

func resolveProbe(mode string, detected bool) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case config.ProbeOn:
		return true
	case config.ProbeOff:
		return false
	default:
		return detected
	}
}

// harmonyOSRelease reports whether os-release identifies a HarmonyOS-family system.
func harmonyOSRelease(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || (key != "ID" && key != "ID_LIKE") {
			continue
		}
		value = strings.ToLower(strings.Trim(value, `"'`))
		for _, id := range strings.Fields(value) {
			if id == "harmonyos" || id == "openharmony" {
				return true
			}
		}
	}
	return false
}
