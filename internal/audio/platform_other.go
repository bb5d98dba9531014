//go:build !darwin && !windows

package audio

import "github.com/oszuidwest/zwfm-mixroute/internal/types"

// HostPlatform returns the capture backend of the build target.
// Everything that is not macOS or Windows is assumed to run a Pulse-compatible server.
func HostPlatform() types.Platform {
	return types.PlatformPulse
}
