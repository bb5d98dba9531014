// Package audio discovers capture devices and measures input levels.
package audio

import (
	"log/slog"
	"strings"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

// Enumerator lists the capture devices of one platform family.
type Enumerator interface {
	// EnumerateDevices returns the devices reported by the platform tool.
	// The default and loopback entries are added by Catalog, not here.
	EnumerateDevices() ([]types.AudioDevice, error)
}

// CatalogConfig configures a Catalog.
type CatalogConfig struct {
	// Platform selects the enumeration strategy.
	Platform types.Platform

	// FFmpegPath is the decoder binary used on avfoundation and dshow.
	FFmpegPath string

	// PactlPath is the audio-server control tool used on pulse.
	PactlPath string

	// Tag is the reserved route name; matching sources are hidden.
	Tag string

	// Run executes tools. Defaults to util.RunTool.
	Run util.Runner
}

// Catalog enumerates audio input devices for the platform chosen at construction.
type Catalog struct {
	platform   types.Platform
	enumerator Enumerator
	tag        string
}

// NewCatalog returns a Catalog with the enumeration strategy for cfg.Platform.
func NewCatalog(cfg CatalogConfig) *Catalog {
	run := cfg.Run
	if run == nil {
		run = util.RunTool
	}
	tag := cfg.Tag
	if tag == "" {
		tag = types.DefaultRouteTag
	}

	var e Enumerator
	switch cfg.Platform {
	case types.PlatformAVFoundation:
		e = &avfoundationLister{ffmpegPath: cfg.FFmpegPath, run: run}
	case types.PlatformDirectShow:
		e = &dshowLister{ffmpegPath: cfg.FFmpegPath, run: run}
	default:
		e = &pulseLister{pactlPath: cfg.PactlPath, tag: tag, run: run}
	}

	return &Catalog{platform: cfg.Platform, enumerator: e, tag: tag}
}

// Platform returns the platform the catalog enumerates.
func (c *Catalog) Platform() types.Platform {
	return c.platform
}

// LoopbackDevice returns the loopback pseudo-device.
func (c *Catalog) LoopbackDevice() types.AudioDevice {
	return types.AudioDevice{ID: types.LoopbackDeviceID(c.tag), Label: types.LoopbackLabel}
}

// Enumerate returns the available audio input devices. The result always
// starts with the default device and ends with the loopback pseudo-device.
// If the platform tool could not be spawned, that degraded list is returned
// together with a *types.ToolInvocationError.
func (c *Catalog) Enumerate() ([]types.AudioDevice, error) {
	devices := []types.AudioDevice{{ID: types.DefaultDeviceID, Label: types.DefaultDeviceLabel}}

	found, err := c.enumerator.EnumerateDevices()
	if err != nil {
		slog.Error("failed to list audio devices", "platform", c.platform, "error", err)
	}
	devices = append(devices, found...)
	devices = append(devices, c.LoopbackDevice())

	return uniqueDevices(devices), err
}

// uniqueDevices drops devices whose ID was already seen, keeping the first.
func uniqueDevices(devices []types.AudioDevice) []types.AudioDevice {
	seen := make(map[string]struct{}, len(devices))
	result := devices[:0]
	for _, d := range devices {
		if _, dup := seen[d.ID]; dup {
			slog.Debug("skipping duplicate audio device", "id", d.ID, "label", d.Label)
			continue
		}
		seen[d.ID] = struct{}{}
		result = append(result, d)
	}
	return result
}

// splitLines splits tool output into lines without trailing carriage returns.
func splitLines(output string) []string {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

// skipLine logs a line that did not match its grammar.
func skipLine(line, reason string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	slog.Debug("skipping device list line", "error", &types.ParseError{Line: line, Reason: reason})
}
