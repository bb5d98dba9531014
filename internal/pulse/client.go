// Package pulse controls a PulseAudio-compatible audio server through pactl.
package pulse

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

// Client is the narrow interface to the server's global module registry.
// The server does not serialize callers; implementations do not either.
type Client interface {
	// ListModules returns every loaded module.
	ListModules() ([]Module, error)
	// LoadModule loads a module and returns its index.
	LoadModule(name string, args ...string) (int, error)
	// UnloadModule unloads the module with the given index.
	UnloadModule(id int) error
}

// Pactl is a Client that runs the pactl command-line tool.
type Pactl struct {
	path string
	run  util.Runner
}

// NewPactl returns a Client running the pactl binary at path.
// A nil run uses util.RunTool.
func NewPactl(path string, run util.Runner) *Pactl {
	if path == "" {
		path = "pactl"
	}
	if run == nil {
		run = util.RunTool
	}
	return &Pactl{path: path, run: run}
}

// ListModules runs pactl list modules.
func (p *Pactl) ListModules() ([]Module, error) {
	stdout, _, err := p.run(p.path, "list", "modules")
	if err != nil {
		return nil, util.WrapError("list modules", err)
	}
	return ParseModules(string(stdout)), nil
}

// LoadModule runs pactl load-module. pactl prints the new index on success;
// -1 is returned when that output is missing.
func (p *Pactl) LoadModule(name string, args ...string) (int, error) {
	cmdArgs := append([]string{"load-module", name}, args...)
	slog.Debug("loading module", "module", name, "args", strings.Join(args, " "))

	stdout, _, err := p.run(p.path, cmdArgs...)
	if err != nil {
		return 0, util.WrapError("load "+name, err)
	}

	id, err := strconv.Atoi(strings.TrimSpace(string(stdout)))
	if err != nil {
		slog.Debug("pactl printed no module index", "module", name, "output", string(stdout))
		return -1, nil
	}
	return id, nil
}

// UnloadModule runs pactl unload-module.
func (p *Pactl) UnloadModule(id int) error {
	slog.Debug("unloading module", "id", id)
	if _, _, err := p.run(p.path, "unload-module", strconv.Itoa(id)); err != nil {
		return util.WrapError(fmt.Sprintf("unload module %d", id), err)
	}
	return nil
}
