package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestSelectDeviceFromList(t *testing.T) {
	elgato := Device{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true}
	sony := Device{ID: "sony", Description: "Sony WH-1000XM6", Available: true}
	mutedElgato := elgato
	mutedElgato.Muted = true
	offlineSony := sony
	offlineSony.Available = false

	tests := []struct {
		name         string
		devices      []Device
		input        string
		fallback     string
		wantID       string
		wantWarning  string
		wantFallback bool
		wantErr      string
	}{
		{name: "default", devices: []Device{elgato, sony}, input: "default", fallback: "default", wantID: "elgato"},
		{name: "by description", devices: []Device{elgato, sony}, input: "WH-1000", wantID: "sony"},
		{name: "muted primary uses fallback", devices: []Device{mutedElgato, sony}, input: "elgato", fallback: "sony", wantID: "sony", wantWarning: "muted", wantFallback: true},
		{name: "unavailable primary falls back to default", devices: []Device{elgato, offlineSony}, input: "sony", fallback: "default", wantID: "elgato", wantWarning: "unavailable", wantFallback: true},
		{name: "muted default has no fallback", devices: []Device{mutedElgato}, input: "default", fallback: "default", wantErr: "muted"},
		{name: "unknown input", devices: []Device{elgato}, input: "missing", fallback: "default", wantErr: "did not match"},
		{name: "unknown fallback", devices: []Device{mutedElgato}, input: "default", fallback: "usb", wantErr: "not found"},
		{name: "no devices", wantErr: "no audio input devices"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			selection, err := selectDeviceFromList(tc.devices, tc.input, tc.fallback)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantID, selection.Device.ID)
			require.Equal(t, tc.wantFallback, selection.Fallback)
			if tc.wantWarning == "" {
				require.Empty(t, selection.Warning)
			} else {
				require.Contains(t, selection.Warning, tc.wantWarning)
			}
		})
	}
}

func TestDeviceMatchesByIDAndDescription(t *testing.T) {
	dev := Device{ID: "alsa_input.usb-elgato", Description: "Elgato Wave 3 Mono"}
	require.True(t, deviceMatches(dev, "elgato"))
	require.True(t, deviceMatches(dev, "wave 3"))
	require.False(t, deviceMatches(dev, "missing"))
	require.False(t, deviceMatches(dev, ""))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)

	_, err = SelectDevice(context.Background(), "default", "default")
	require.Error(t, err)
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{})) // no ports => available

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))
}

type sourcePort struct {
	name      string
	available uint32
}

func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	replyValue := reflect.ValueOf(reply).Elem().FieldByName("Ports")
	replyValue.Set(sliceValue)
}

func TestUnusableReason(t *testing.T) {
	require.Empty(t, unusableReason(Device{Available: true}))
	require.Equal(t, "muted", unusableReason(Device{Available: false, Muted: true}))
	require.Equal(t, "unavailable", unusableReason(Device{}))
}

func TestDeviceFromSourceMarksDefault(t *testing.T) {
	source := &pulseproto.GetSourceInfoReply{SourceName: "mic", Device: "USB Mic", State: 1, Mute: true}
	dev := deviceFromSource(source, "mic")
	require.Equal(t, Device{ID: "mic", Description: "USB Mic", State: "idle", Available: true, Muted: true, Default: true}, dev)
	require.False(t, deviceFromSource(source, "other").Default)
}
