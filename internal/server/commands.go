package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DeviceSource enumerates capture devices.
type DeviceSource interface {
	Enumerate() ([]types.AudioDevice, error)
}

// LevelMonitors starts and stops per-device level monitoring.
type LevelMonitors interface {
	Start(device types.AudioDevice) error
	Stop(id string) bool
	Statuses() []types.DeviceStatus
}

// RouteProvisioner computes the capture endpoint for a pair of sources.
type RouteProvisioner interface {
	Provision(a, b *types.AudioDevice) (string, error)
}

// ErrUnknownDevice is returned for device ids missing from the enumeration.
var ErrUnknownDevice = errors.New("unknown device")

// CommandHandler processes WebSocket commands.
//
// Concurrency: mu protects the cached enumeration and the current route.
type CommandHandler struct {
	devices  DeviceSource
	monitors LevelMonitors
	router   RouteProvisioner

	mu       sync.RWMutex
	known    []types.AudioDevice
	route    string
	routeErr string
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(devices DeviceSource, monitors LevelMonitors, router RouteProvisioner) *CommandHandler {
	return &CommandHandler{
		devices:  devices,
		monitors: monitors,
		router:   router,
	}
}

// Handle processes a WebSocket command and performs the requested action.
// Commands use slash-style format: namespace/action (e.g., "monitor/start").
func (h *CommandHandler) Handle(cmd WSCommand, send chan<- any, triggerStatusUpdate func()) {
	namespace, action, _ := strings.Cut(cmd.Type, "/")

	switch namespace {
	case "devices":
		h.handleDevices(action, cmd, send)
	case "monitor":
		h.handleMonitor(action, cmd, send)
	case "route":
		h.handleRoute(action, cmd, send)
	case "status":
		// Answered by the status push below.
	default:
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

// Devices returns the devices of the last enumeration.
func (h *CommandHandler) Devices() []types.AudioDevice {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.known
}

// Route returns the capture endpoint of the last successful provisioning
// call. It is empty after a failed call.
func (h *CommandHandler) Route() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.route
}

// RouteError returns the failure of the last provisioning call, if any.
func (h *CommandHandler) RouteError() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.routeErr
}

// Refresh enumerates devices and caches the result. A degraded list is
// cached and returned together with the enumeration error.
func (h *CommandHandler) Refresh() ([]types.AudioDevice, error) {
	devices, err := h.devices.Enumerate()
	if len(devices) > 0 {
		h.mu.Lock()
		h.known = devices
		h.mu.Unlock()
	}
	return devices, err
}

// lookup resolves a device id against the cache, refreshing it once on a miss.
func (h *CommandHandler) lookup(id string) (types.AudioDevice, error) {
	if d, ok := findDevice(h.Devices(), id); ok {
		return d, nil
	}
	devices, err := h.Refresh()
	if d, ok := findDevice(devices, id); ok {
		return d, nil
	}
	if err != nil {
		return types.AudioDevice{}, fmt.Errorf("%w %q: %w", ErrUnknownDevice, id, err)
	}
	return types.AudioDevice{}, fmt.Errorf("%w %q", ErrUnknownDevice, id)
}

func findDevice(devices []types.AudioDevice, id string) (types.AudioDevice, bool) {
	for _, d := range devices {
		if d.ID == id {
			return d, true
		}
	}
	return types.AudioDevice{}, false
}

// --- Namespace handlers ---

// handleDevices routes devices/* commands
func (h *CommandHandler) handleDevices(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "list":
		HandleActionAsync(cmd, send, func() (any, error) {
			devices, err := h.Refresh()
			if err != nil {
				slog.Warn("device enumeration degraded", "error", err)
			}
			return devices, nil
		})
	default:
		slog.Warn("unknown devices action", "action", action)
	}
}

// handleMonitor routes monitor/* commands
func (h *CommandHandler) handleMonitor(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "start":
		HandleCommand(cmd, send, func(req *MonitorRequest) error {
			device, err := h.lookup(req.DeviceID)
			if err != nil {
				return err
			}
			return h.monitors.Start(device)
		})
	case "stop":
		HandleCommand(cmd, send, func(req *MonitorRequest) error {
			if !h.monitors.Stop(req.DeviceID) {
				return fmt.Errorf("device %q is not monitored", req.DeviceID)
			}
			return nil
		})
	default:
		slog.Warn("unknown monitor action", "action", action)
	}
}

// handleRoute routes route/* commands
func (h *CommandHandler) handleRoute(action string, cmd WSCommand, send chan<- any) {
	switch action {
	case "provision":
		h.handleRouteProvision(cmd, send)
	default:
		slog.Warn("unknown route action", "action", action)
	}
}

// handleRouteProvision runs asynchronously because module changes pause
// between steps.
func (h *CommandHandler) handleRouteProvision(cmd WSCommand, send chan<- any) {
	var req RouteRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	HandleActionAsync(cmd, send, func() (any, error) {
		a, err := h.optionalDevice(req.SourceA)
		if err != nil {
			return nil, err
		}
		b, err := h.optionalDevice(req.SourceB)
		if err != nil {
			return nil, err
		}

		device, err := h.router.Provision(a, b)
		if err != nil {
			h.setRoute("", err.Error())
			return nil, err
		}
		h.setRoute(device, "")
		return types.WSRouteResult{Device: device}, nil
	})
}

func (h *CommandHandler) setRoute(device, failure string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.route = device
	h.routeErr = failure
}

func (h *CommandHandler) optionalDevice(id string) (*types.AudioDevice, error) {
	if id == "" {
		return nil, nil
	}
	d, err := h.lookup(id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
