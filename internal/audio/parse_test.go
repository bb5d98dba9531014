package audio

import (
	"slices"
	"testing"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

const avfoundationOutput = `[AVFoundation indev @ 0x7fa1c8e04a80] AVFoundation video devices:
[AVFoundation indev @ 0x7fa1c8e04a80] [0] FaceTime HD Camera
[AVFoundation indev @ 0x7fa1c8e04a80] [1] Capture screen 0
[AVFoundation indev @ 0x7fa1c8e04a80] AVFoundation audio devices:
[AVFoundation indev @ 0x7fa1c8e04a80] [0] MacBook Pro Microphone
[AVFoundation indev @ 0x7fa1c8e04a80] [1] BlackHole 2ch
[AVFoundation indev @ 0x7fa1c8e04a80] [2] Scarlett 2i2 USB
[in#0 @ 0x7fa1c8e04780] Error opening input: Input/output error
: Input/output error
`

// Older ffmpeg builds print "input device" in the tag.
const avfoundationLegacyOutput = "[AVFoundation input device @ 0x7f9] AVFoundation audio devices:\r\n" +
	"[AVFoundation input device @ 0x7f9] [0] Built-in Microphone\r\n"

func TestParseAVFoundation(t *testing.T) {
	got := ParseAVFoundation(avfoundationOutput)
	want := []types.AudioDevice{
		{ID: ":0", Label: "MacBook Pro Microphone"},
		{ID: ":1", Label: "BlackHole 2ch"},
		{ID: ":2", Label: "Scarlett 2i2 USB"},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("ParseAVFoundation() = %v, want %v", got, want)
	}
}

func TestParseAVFoundationLegacy(t *testing.T) {
	got := ParseAVFoundation(avfoundationLegacyOutput)
	want := []types.AudioDevice{{ID: ":0", Label: "Built-in Microphone"}}
	if !slices.Equal(got, want) {
		t.Fatalf("ParseAVFoundation() = %v, want %v", got, want)
	}
}

func TestParseAVFoundationNoAudioSection(t *testing.T) {
	if got := ParseAVFoundation("ffmpeg: unknown input format 'avfoundation'\n"); len(got) != 0 {
		t.Fatalf("expected no devices, got %v", got)
	}
}

const dshowSectionOutput = `[dshow @ 000001f2a4b3c4d0] DirectShow video devices (some may be both video and audio devices)
[dshow @ 000001f2a4b3c4d0]  "Integrated Camera"
[dshow @ 000001f2a4b3c4d0]     Alternative name "@device_pnp_\\?\usb#vid_04f2"
[dshow @ 000001f2a4b3c4d0] DirectShow audio devices
[dshow @ 000001f2a4b3c4d0]  "Microphone (Realtek(R) Audio)"
[dshow @ 000001f2a4b3c4d0]     Alternative name "@device_cm_{33D9A762-90C8-11D0-BD43-00A0C911CE86}\wave_{A1B2}"
[dshow @ 000001f2a4b3c4d0]  "Stereo Mix (Realtek(R) Audio)"
[dshow @ 000001f2a4b3c4d0]     Alternative name "@device_cm_{33D9A762-90C8-11D0-BD43-00A0C911CE86}\wave_{C3D4}"
dummy: Immediate exit requested
`

const dshowTaggedOutput = `[in#0 @ 0000020b5c1e4f40] "Integrated Camera" (video)
[in#0 @ 0000020b5c1e4f40]   Alternative name "@device_pnp_\\?\usb#vid_04f2"
[in#0 @ 0000020b5c1e4f40] "Microphone Array (Intel Smart Sound)" (audio)
[in#0 @ 0000020b5c1e4f40]   Alternative name "@device_cm_{33D9A762}\wave_{E5F6}"
[in#0 @ 0000020b5c1e4f40] "OBS Virtual Camera" (none)
Error opening input file dummy.
`

func TestParseDirectShow(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []types.AudioDevice
	}{
		{
			name:   "section headers",
			output: dshowSectionOutput,
			want: []types.AudioDevice{
				{ID: "audio=Microphone (Realtek(R) Audio)", Label: "Microphone (Realtek(R) Audio)"},
				{ID: "audio=Stereo Mix (Realtek(R) Audio)", Label: "Stereo Mix (Realtek(R) Audio)"},
			},
		},
		{
			name:   "tagged lines",
			output: dshowTaggedOutput,
			want: []types.AudioDevice{
				{ID: "audio=Microphone Array (Intel Smart Sound)", Label: "Microphone Array (Intel Smart Sound)"},
			},
		},
		{
			name:   "empty",
			output: "",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDirectShow(tt.output)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseDirectShow() = %v, want %v", got, tt.want)
			}
		})
	}
}

const pactlSourcesOutput = `Source #0
	State: SUSPENDED
	Name: alsa_output.pci-0000_00_1f.3.analog-stereo.monitor
	Description: Monitor of Built-in Audio Analog Stereo
	Driver: module-alsa-card.c
	Sample Specification: s16le 2ch 44100Hz
	Properties:
		device.description = "Monitor of Built-in Audio Analog Stereo"

Source #1
	State: RUNNING
	Name: alsa_input.usb-Focusrite_Scarlett_2i2_USB-00.analog-stereo
	Description: Scarlett 2i2 USB Analog Stereo
	Driver: module-alsa-card.c

Source #2
	State: IDLE
	Name: MixRoute.monitor
	Description: Monitor of MixRoute
	Driver: module-null-sink.c

Source #3
	State: IDLE
`

func TestParsePulseSources(t *testing.T) {
	got := ParsePulseSources(pactlSourcesOutput, "MixRoute")
	want := []types.AudioDevice{
		{ID: "alsa_output.pci-0000_00_1f.3.analog-stereo.monitor", Label: "Monitor of Built-in Audio Analog Stereo"},
		{ID: "alsa_input.usb-Focusrite_Scarlett_2i2_USB-00.analog-stereo", Label: "Scarlett 2i2 USB Analog Stereo"},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("ParsePulseSources() = %v, want %v", got, want)
	}
}

func TestParsePulseSourcesWithoutStateLine(t *testing.T) {
	output := "Source #7\n\tName: bluez_input.00_1B_66:a2dp\n\tDescription: Headset: Mic\n"
	got := ParsePulseSources(output, "MixRoute")
	// Only the first colon separates key and value.
	want := []types.AudioDevice{{ID: "bluez_input.00_1B_66:a2dp", Label: "Headset: Mic"}}
	if !slices.Equal(got, want) {
		t.Fatalf("ParsePulseSources() = %v, want %v", got, want)
	}
}

func TestParsePulseSourcesLargeIndex(t *testing.T) {
	output := "Source #536870912\n\tState: IDLE\n\tName: virtual_mic\n\tDescription: Virtual Mic\n"
	got := ParsePulseSources(output, "MixRoute")
	if len(got) != 1 || got[0].ID != "virtual_mic" {
		t.Fatalf("ParsePulseSources() = %v, want virtual_mic", got)
	}
}
