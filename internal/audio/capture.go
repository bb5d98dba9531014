package audio

import (
	"strconv"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// jackInputFormat is the ffmpeg input format of the loopback pseudo-device.
const jackInputFormat = "jack"

// CaptureConfig defines how a device is read for level metering.
type CaptureConfig struct {
	// Platform selects the ffmpeg input format.
	Platform types.Platform

	// LoopbackID is the id of the loopback pseudo-device, which is read through JACK.
	LoopbackID string
}

// InputFormat returns the ffmpeg input format for device.
func (cfg *CaptureConfig) InputFormat(device string) string {
	if cfg.LoopbackID != "" && device == cfg.LoopbackID {
		return jackInputFormat
	}
	return cfg.Platform.InputFormat()
}

// BuildArgs returns the ffmpeg arguments that stream device as raw signed
// 8-bit mono PCM to stdout. Stdin stays open for the "q" quit command.
func (cfg *CaptureConfig) BuildArgs(device string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-use_wallclock_as_timestamps", "1",
		"-f", cfg.InputFormat(device),
		"-i", device,
		"-vn",
		"-ar", strconv.Itoa(types.MeterSampleRate),
		"-ac", strconv.Itoa(types.MeterChannels),
		"-f", types.MeterSampleFormat,
		"pipe:1",
	}
}
