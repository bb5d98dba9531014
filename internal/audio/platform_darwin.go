//go:build darwin

package audio

import "github.com/oszuidwest/zwfm-mixroute/internal/types"

// HostPlatform returns the capture backend of the build target.
func HostPlatform() types.Platform {
	return types.PlatformAVFoundation
}
