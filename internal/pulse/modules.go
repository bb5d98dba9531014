package pulse

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// headerPattern matches unindented record headers such as "Module #12".
var headerPattern = regexp.MustCompile(`^\S.*\s#(\S+)$`)

// Module is a module loaded on the audio server.
type Module struct {
	// ID is the index pactl reports in the record header.
	ID int
	// Name is the module type, e.g. module-null-sink.
	Name string
	// Argument is the argument string the module was loaded with.
	Argument string
}

// ParseModules parses the output of pactl list modules. Records without a
// numeric header index are skipped; missing Name or Argument lines leave the
// field empty.
func ParseModules(output string) []Module {
	var modules []Module
	var current *Module

	for _, raw := range strings.Split(output, "\n") {
		raw = strings.TrimRight(raw, "\r ")
		line := strings.TrimSpace(raw)

		if m := headerPattern.FindStringSubmatch(raw); m != nil {
			id, err := strconv.Atoi(m[1])
			if err != nil {
				current = nil
				continue
			}
			modules = append(modules, Module{ID: id})
			current = &modules[len(modules)-1]
			continue
		}
		if current == nil {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Name":
			current.Name = strings.TrimSpace(value)
		case "Argument":
			current.Argument = strings.TrimSpace(value)
		}
	}

	return modules
}

// Tagged returns the modules whose argument carries tag, in ascending id
// order, which is the order the server loaded them in.
func Tagged(modules []Module, tag string) []Module {
	var tagged []Module
	for _, m := range modules {
		if tag != "" && strings.Contains(m.Argument, tag) {
			tagged = append(tagged, m)
		}
	}
	slices.SortStableFunc(tagged, func(a, b Module) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return tagged
}
