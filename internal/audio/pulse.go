package audio

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

// pulseHeaderPattern matches record headers such as "Source #42".
var pulseHeaderPattern = regexp.MustCompile(`^\S.*\s#\d+$`)

type pulseLister struct {
	pactlPath string
	tag       string
	run       util.Runner
}

func (l *pulseLister) EnumerateDevices() ([]types.AudioDevice, error) {
	stdout, _, err := l.run(l.pactlPath, "list", "sources")
	if err != nil {
		if util.IsInvocationError(err) {
			return nil, err
		}
		slog.Warn("pactl list sources failed", "error", err)
	}
	return ParsePulseSources(string(stdout), l.tag), nil
}

// ParsePulseSources extracts capture sources from the output of pactl list sources.
// Each record is a "#<n>" header, an optional State line, then Name and
// Description lines. Sources whose name contains tag are router-owned and skipped.
func ParsePulseSources(output, tag string) []types.AudioDevice {
	var devices []types.AudioDevice
	lines := splitLines(output)

	for i := 0; i < len(lines); i++ {
		if !pulseHeaderPattern.MatchString(strings.TrimSpace(lines[i])) {
			continue
		}

		j := i + 1
		if key, _, ok := splitField(lineAt(lines, j)); ok && key == "State" {
			j++
		}
		_, name, nameOK := splitField(lineAt(lines, j))
		_, desc, descOK := splitField(lineAt(lines, j+1))
		if !nameOK || !descOK || name == "" {
			skipLine(lines[i], "source header without name and description")
			continue
		}
		i = j + 1

		if tag != "" && strings.Contains(name, tag) {
			slog.Debug("skipping router-owned source", "name", name)
			continue
		}
		devices = append(devices, types.AudioDevice{ID: name, Label: desc})
	}

	return devices
}

// splitField splits "Key: value" on the first colon.
func splitField(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(strings.TrimSpace(line), ":")
	return strings.TrimSpace(key), strings.TrimSpace(value), ok
}

func lineAt(lines []string, i int) string {
	if i < 0 || i >= len(lines) {
		return ""
	}
	return lines[i]
}
