package main

import (
	"log/slog"

	"github.com/oszuidwest/zwfm-mixroute/internal/eventlog"
	"github.com/oszuidwest/zwfm-mixroute/internal/monitor"
	"github.com/oszuidwest/zwfm-mixroute/internal/route"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// journaledRouter records every provisioning outcome in the event log.
type journaledRouter struct {
	*route.Router
	events *eventlog.Logger
}

// Provision provisions the route and records the outcome.
func (r journaledRouter) Provision(a, b *types.AudioDevice) (string, error) {
	device, err := r.Router.Provision(a, b)
	if logErr := r.events.LogRoute(device, a, b, err); logErr != nil {
		slog.Warn("failed to write event log", "error", logErr)
	}
	return device, err
}

// Teardown removes the route and records it.
func (r journaledRouter) Teardown() error {
	err := r.Router.Teardown()
	if logErr := r.events.LogRouteRemoved(err); logErr != nil {
		slog.Warn("failed to write event log", "error", logErr)
	}
	return err
}

// monitorHooks records monitor starts and stops in the event log.
func monitorHooks(events *eventlog.Logger) monitor.Hooks {
	record := func(device types.AudioDevice, started bool, err error) {
		if logErr := events.LogMonitor(device, started, err); logErr != nil {
			slog.Warn("failed to write event log", "error", logErr)
		}
	}
	return monitor.Hooks{
		Started: func(d types.AudioDevice) { record(d, true, nil) },
		Stopped: func(d types.AudioDevice, err error) { record(d, false, err) },
	}
}
