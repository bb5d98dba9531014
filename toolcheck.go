package main

import (
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

// toolSpec describes how to probe the version of an external tool.
type toolSpec struct {
	name    string
	args    []string
	pattern *regexp.Regexp // first group captures the version
	minimum string
}

// Oldest releases the daemon is tested against.
var (
	ffmpegTool = toolSpec{
		name:    "ffmpeg",
		args:    []string{"-version"},
		pattern: regexp.MustCompile(`ffmpeg version n?(\d+(?:\.\d+){0,2})`),
		minimum: "4.0",
	}
	pactlTool = toolSpec{
		name:    "pactl",
		args:    []string{"--version"},
		pattern: regexp.MustCompile(`pactl\s+(\d+(?:\.\d+){0,2})`),
		minimum: "10.0",
	}
)

// probeTool runs the tool's version command and compares the result with the
// supported minimum. An unresolved path yields an entry without version.
// Snapshot builds such as "ffmpeg version N-11234-g..." have no comparable
// version and are never reported as outdated.
func probeTool(run util.Runner, spec toolSpec, path string) types.ToolInfo {
	info := types.ToolInfo{Name: spec.name, Path: path}
	if path == "" {
		slog.Warn("tool not found", "tool", spec.name)
		return info
	}

	stdout, stderr, err := run(path, spec.args...)
	if err != nil {
		slog.Warn("failed to probe tool version", "tool", spec.name, "path", path, "error", err)
		return info
	}

	info.Version = parseToolVersion(spec.pattern, string(stdout)+string(stderr))
	if info.Version != "" && isNewerVersion(spec.minimum, info.Version) {
		info.Outdated = true
		slog.Warn("tool older than supported version", "tool", spec.name, "version", info.Version, "minimum", spec.minimum)
		return info
	}

	slog.Info("tool found", "tool", spec.name, "path", path, "version", info.Version)
	return info
}

// parseToolVersion extracts a semver-comparable version, or "" if none.
func parseToolVersion(pattern *regexp.Regexp, output string) string {
	m := pattern.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	v := normalizeVersion(m[1])
	if !semver.IsValid(canonicalVersion(v)) {
		return ""
	}
	return v
}

// normalizeVersion returns a normalized version string.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// canonicalVersion returns the version in canonical semver format.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// isNewerVersion reports whether latest is newer than current.
func isNewerVersion(latest, current string) bool {
	return semver.Compare(canonicalVersion(latest), canonicalVersion(current)) > 0
}
