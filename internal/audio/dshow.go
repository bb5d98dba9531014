package audio

import (
	"regexp"
	"strings"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

const (
	dshowAudioMarker  = "DirectShow audio devices"
	dshowVideoMarker  = "DirectShow video devices"
	dshowDevicePrefix = "audio="
)

// dshowDevicePattern matches both listing styles:
//
//	[dshow @ 0000023c]  "Microphone (Realtek Audio)"
//	[in#0 @ 0000023c] "Microphone (Realtek Audio)" (audio)
var dshowDevicePattern = regexp.MustCompile(`^\[[^\]]*\]\s*"([^"]+)"\s*(?:\((\w+)\))?\s*$`)

type dshowLister struct {
	ffmpegPath string
	run        util.Runner
}

func (l *dshowLister) EnumerateDevices() ([]types.AudioDevice, error) {
	_, stderr, err := l.run(l.ffmpegPath, "-hide_banner", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
	if err != nil && util.IsInvocationError(err) {
		return nil, err
	}
	return ParseDirectShow(string(stderr)), nil
}

// ParseDirectShow extracts audio input devices from the output of
// ffmpeg -list_devices true -f dshow. Older ffmpeg groups devices under
// section headers; newer ffmpeg tags each line with "(audio)" instead.
func ParseDirectShow(output string) []types.AudioDevice {
	var devices []types.AudioDevice
	inAudio := false

	for _, line := range splitLines(output) {
		switch {
		case strings.Contains(line, dshowAudioMarker):
			inAudio = true
			continue
		case strings.Contains(line, dshowVideoMarker):
			inAudio = false
			continue
		case strings.Contains(line, "Alternative"), strings.Contains(line, "dummy"):
			continue
		}

		matches := dshowDevicePattern.FindStringSubmatch(line)
		if matches == nil {
			if inAudio {
				skipLine(line, "no quoted device name")
			}
			continue
		}

		kind := matches[2]
		if kind != "audio" && (kind != "" || !inAudio) {
			continue
		}

		name := strings.TrimSpace(matches[1])
		devices = append(devices, types.AudioDevice{
			ID:    dshowDevicePrefix + name,
			Label: name,
		})
	}

	return devices
}
