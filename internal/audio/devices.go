// Package audio handles device discovery, selection, and PCM capture streams.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse input source.
type Device struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	State       string `json:"state"`
	Available   bool   `json:"available"`
	Muted       bool   `json:"muted"`
	Default     bool   `json:"default"`
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns the Pulse input sources, marking the server default.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}

	var reply pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &reply); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(reply))
	for _, source := range reply {
		if source != nil {
			devices = append(devices, deviceFromSource(source, defaultSource.ID()))
		}
	}
	return devices, nil
}

func deviceFromSource(source *pulseproto.GetSourceInfoReply, defaultID string) Device {
	return Device{
		ID:          source.SourceName,
		Description: source.Device,
		State:       sourceStateString(source.State),
		Available:   sourceAvailable(source),
		Muted:       source.Mute,
		Default:     source.SourceName == defaultID,
	}
}

// SelectDevice resolves the configured input and fallback against live devices.
func SelectDevice(ctx context.Context, input string, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectDeviceFromList(devices, input, fallback)
}

// selectDeviceFromList picks the input device, or the fallback when the input
// is muted or unavailable. "default" and "" name the server default source.
func selectDeviceFromList(devices []Device, input string, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}
	list := deviceList(devices)
	input, fallback = normalizeTerm(input), normalizeTerm(fallback)

	primary, err := list.resolve(input)
	if err != nil {
		return Selection{}, err
	}
	reason := unusableReason(primary)
	if reason == "" {
		return Selection{Device: primary}, nil
	}

	var alternate Device
	if isDefaultTerm(fallback) {
		alternate, err = list.defaultSource()
		if err != nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, reason, err)
		}
	} else {
		var ok bool
		if alternate, ok = list.find(fallback); !ok {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
	}
	if r := unusableReason(alternate); r != "" {
		return Selection{}, fmt.Errorf("audio fallback device %q is %s", alternate.ID, r)
	}

	return Selection{
		Device:   alternate,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alternate.ID),
		Fallback: primary.ID != alternate.ID,
	}, nil
}

type deviceList []Device

func (l deviceList) defaultSource() (Device, error) {
	for _, d := range l {
		if d.Default {
			return d, nil
		}
	}
	return Device{}, errors.New("default audio source is unavailable")
}

func (l deviceList) find(term string) (Device, bool) {
	for _, d := range l {
		if deviceMatches(d, term) {
			return d, true
		}
	}
	return Device{}, false
}

func (l deviceList) resolve(term string) (Device, error) {
	if isDefaultTerm(term) {
		return l.defaultSource()
	}
	if d, ok := l.find(term); ok {
		return d, nil
	}
	return Device{}, fmt.Errorf("audio.input %q did not match any device", term)
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

func isDefaultTerm(term string) bool {
	return term == "" || term == "default"
}

// unusableReason returns why d cannot capture, or "".
func unusableReason(d Device) string {
	switch {
	case d.Muted:
		return "muted"
	case !d.Available:
		return "unavailable"
	default:
		return ""
	}
}

// deviceMatches reports whether term is a substring of the device id or description.
func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

func newPulseClient() (*pulse.Client, error) {
	return pulse.NewClient(
		pulse.ClientApplicationName("livetune"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
