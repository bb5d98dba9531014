// Package types provides shared type definitions used across the mix router.
package types

import "time"

// Platform identifies the capture backend family of the host.
type Platform string

const (
	// PlatformAVFoundation is the macOS-style backend (ffmpeg avfoundation).
	PlatformAVFoundation Platform = "avfoundation"
	// PlatformDirectShow is the Windows-style backend (ffmpeg dshow).
	PlatformDirectShow Platform = "dshow"
	// PlatformPulse is the server-based backend (PulseAudio or PipeWire via pactl).
	PlatformPulse Platform = "pulse"
)

// IsValid reports whether p is a known platform.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformAVFoundation, PlatformDirectShow, PlatformPulse:
		return true
	}
	return false
}

// SupportsMixing reports whether the platform can provision server-side mix routes.
func (p Platform) SupportsMixing() bool {
	return p == PlatformPulse
}

// InputFormat returns the ffmpeg input format used to capture from this platform.
func (p Platform) InputFormat() string {
	return string(p)
}

// MonitorState represents the state of a level monitor.
type MonitorState string

const (
	// MonitorIdle indicates no capture task is attached.
	MonitorIdle MonitorState = "idle"
	// MonitorStarting indicates the decoder subprocess is being spawned.
	MonitorStarting MonitorState = "starting"
	// MonitorRunning indicates frames are being read and levels published.
	MonitorRunning MonitorState = "running"
	// MonitorStopping indicates a stop was requested and the task is winding down.
	MonitorStopping MonitorState = "stopping"
)

// DefaultDeviceID addresses the host's default capture device.
const DefaultDeviceID = "default"

// DefaultDeviceLabel is the display name of the default device.
const DefaultDeviceLabel = "Default"

// LoopbackLabel is the display name of the loopback pseudo-device.
const LoopbackLabel = "Jack Input"

// DefaultRouteTag is the reserved name for modules created by the router.
const DefaultRouteTag = "MixRoute"

// LoopbackDeviceID returns the id of the loopback pseudo-device for a route tag.
func LoopbackDeviceID(tag string) string {
	return tag + "-jackd"
}

// MonitorSourceID returns the capture endpoint of the null sink named tag.
func MonitorSourceID(tag string) string {
	return tag + ".monitor"
}

// AudioDevice is an audio input endpoint.
type AudioDevice struct {
	// ID is the tool-specific addressing token, passed verbatim to ffmpeg or pactl.
	ID string `json:"id"`
	// Label is the human-readable description.
	Label string `json:"label"`
}

// DeviceStatus is a device with its live monitoring state.
type DeviceStatus struct {
	Device AudioDevice  `json:"device"`
	Level  int          `json:"level"`
	State  MonitorState `json:"state"`
}

// Raw capture format for level monitoring. Changing any of these changes
// FrameSize, and both must stay in step with the decoder arguments.
const (
	// MeterSampleRate is the capture rate in Hz.
	MeterSampleRate = 22100
	// MeterChannels is the capture channel count (mono).
	MeterChannels = 1
	// MeterSampleFormat is the ffmpeg raw sample format (signed 8-bit).
	MeterSampleFormat = "s8"
	// MeterBytesPerSample is the size of one sample.
	MeterBytesPerSample = 1
	// FrameSize is one metering frame: half a second of audio.
	FrameSize = MeterSampleRate * MeterChannels * MeterBytesPerSample / 2
)

const (
	// DefaultSettleDelay is the pause after each module load or unload.
	DefaultSettleDelay = 100 * time.Millisecond
	// ShutdownTimeout is the duration to wait for graceful shutdown.
	ShutdownTimeout = 3000 * time.Millisecond
)
