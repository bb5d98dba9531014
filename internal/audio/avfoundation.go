package audio

import (
	"regexp"
	"strings"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

const (
	avfAudioMarker = "AVFoundation audio devices:"
	avfVideoMarker = "AVFoundation video devices:"
)

// avfDevicePattern matches lines like:
//
//	[AVFoundation indev @ 0x7f8e] [1] MacBook Pro Microphone
var avfDevicePattern = regexp.MustCompile(`^\[AVFoundation[^\]]*\]\s*\[(\d+)\]\s*(.*\S)\s*$`)

type avfoundationLister struct {
	ffmpegPath string
	run        util.Runner
}

func (l *avfoundationLister) EnumerateDevices() ([]types.AudioDevice, error) {
	// ffmpeg exits non-zero after listing; the list is on stderr.
	_, stderr, err := l.run(l.ffmpegPath, "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", "")
	if err != nil && util.IsInvocationError(err) {
		return nil, err
	}
	return ParseAVFoundation(string(stderr)), nil
}

// ParseAVFoundation extracts audio input devices from the output of
// ffmpeg -f avfoundation -list_devices true. Device indices become ":<n>".
func ParseAVFoundation(output string) []types.AudioDevice {
	var devices []types.AudioDevice
	inAudio := false

	for _, line := range splitLines(output) {
		if strings.Contains(line, avfAudioMarker) {
			inAudio = true
			continue
		}
		if strings.Contains(line, avfVideoMarker) {
			inAudio = false
			continue
		}
		if !inAudio {
			continue
		}

		matches := avfDevicePattern.FindStringSubmatch(line)
		if matches == nil {
			skipLine(line, "no [index] label")
			continue
		}
		devices = append(devices, types.AudioDevice{
			ID:    ":" + matches[1],
			Label: matches[2],
		})
	}

	return devices
}
