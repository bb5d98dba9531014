// Package route provisions the mixed capture endpoint on the audio server.
//
// On platforms that support mixing, two input devices are combined by
// loading a null sink named after the route tag plus one loopback module per
// source feeding it. The sink's monitor source is then captured like any
// other input. Modules carrying the tag are owned by this package: each
// provisioning call unloads all of them first, whoever loaded them.
package route

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oszuidwest/zwfm-mixroute/internal/pulse"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

const (
	nullSinkModule = "module-null-sink"
	loopbackModule = "module-loopback"
)

// Config configures a Router.
type Config struct {
	Platform types.Platform
	// Tag names the null sink and marks every module the router loads.
	Tag string
	// SettleDelay is the pause after each module change.
	SettleDelay time.Duration
}

// Router computes and provisions the capture endpoint for a pair of sources.
//
// Concurrency: mu serializes provisioning so the module registry is never
// modified by two calls of the same process at once.
type Router struct {
	client   pulse.Client
	platform types.Platform
	tag      string

	settle atomic.Int64
	sleep  func(time.Duration)

	mu sync.Mutex
}

// New returns a Router that changes modules through client.
func New(client pulse.Client, cfg Config) *Router {
	r := &Router{
		client:   client,
		platform: cfg.Platform,
		tag:      cfg.Tag,
		sleep:    time.Sleep,
	}
	if r.tag == "" {
		r.tag = types.DefaultRouteTag
	}
	r.settle.Store(int64(cfg.SettleDelay))
	return r
}

// Tag returns the tag marking the router's modules.
func (r *Router) Tag() string {
	return r.tag
}

// SetSettleDelay changes the pause after each module change.
func (r *Router) SetSettleDelay(d time.Duration) {
	r.settle.Store(int64(max(d, 0)))
}

// Provision returns the device id to capture for sources a and b, either of
// which may be nil.
//
// When either source is the loopback pseudo-device, or the platform cannot
// mix, no modules are touched and the first present source is returned
// (a, then b, then the default device). Otherwise every tagged module is
// unloaded, newest first, and if both sources are present a null sink plus
// two loopbacks are loaded and the sink's monitor source is returned.
//
// Failed module operations do not stop the sequence. They are returned as a
// *types.RouteProvisionError together with the computed device id; changes
// already applied stay in place.
func (r *Router) Provision(a, b *types.AudioDevice) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, b = present(a), present(b)

	if !r.platform.SupportsMixing() || r.isLoopback(a) || r.isLoopback(b) {
		device := firstOf(a, b)
		slog.Info("using source without mix route", "platform", r.platform, "device", device)
		return device, nil
	}

	failures := r.unloadTagged()

	var device string
	switch {
	case a != nil && b != nil:
		failures = append(failures, r.loadMix(a, b)...)
		device = types.MonitorSourceID(r.tag)
	default:
		device = firstOf(a, b)
	}

	if len(failures) > 0 {
		err := &types.RouteProvisionError{Device: device, Failures: failures}
		slog.Error("mix route incomplete", "device", device, "failures", len(failures), "error", err)
		return device, err
	}

	slog.Info("mix route provisioned", "device", device)
	return device, nil
}

// Teardown unloads every tagged module. It does nothing on platforms that
// cannot mix.
func (r *Router) Teardown() error {
	if !r.platform.SupportsMixing() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if failures := r.unloadTagged(); len(failures) > 0 {
		return &types.RouteProvisionError{Failures: failures}
	}
	return nil
}

// unloadTagged unloads tagged modules in reverse load order.
func (r *Router) unloadTagged() []error {
	modules, err := r.client.ListModules()
	if err != nil {
		return []error{err}
	}

	tagged := pulse.Tagged(modules, r.tag)
	var failures []error
	for i := len(tagged) - 1; i >= 0; i-- {
		m := tagged[i]
		if err := r.client.UnloadModule(m.ID); err != nil {
			slog.Warn("failed to unload module", "id", m.ID, "module", m.Name, "error", err)
			failures = append(failures, err)
		} else {
			slog.Debug("unloaded module", "id", m.ID, "module", m.Name)
		}
		r.pause()
	}
	return failures
}

// loadMix loads the null sink and one loopback per source.
func (r *Router) loadMix(a, b *types.AudioDevice) []error {
	var failures []error

	load := func(name string, args ...string) {
		id, err := r.client.LoadModule(name, args...)
		if err != nil {
			slog.Warn("failed to load module", "module", name, "error", err)
			failures = append(failures, err)
		} else {
			slog.Debug("loaded module", "id", id, "module", name)
		}
		r.pause()
	}

	load(nullSinkModule,
		"sink_name="+r.tag,
		fmt.Sprintf("sink_properties=device.description=%s", r.tag))
	for _, src := range []*types.AudioDevice{a, b} {
		load(loopbackModule, "sink="+r.tag, "source="+src.ID)
	}

	return failures
}

func (r *Router) pause() {
	if d := time.Duration(r.settle.Load()); d > 0 {
		r.sleep(d)
	}
}

func (r *Router) isLoopback(d *types.AudioDevice) bool {
	return d != nil && d.ID == types.LoopbackDeviceID(r.tag)
}

// present treats a device without an id as absent.
func present(d *types.AudioDevice) *types.AudioDevice {
	if d == nil || d.ID == "" {
		return nil
	}
	return d
}

func firstOf(a, b *types.AudioDevice) string {
	switch {
	case a != nil:
		return a.ID
	case b != nil:
		return b.ID
	default:
		return types.DefaultDeviceID
	}
}
