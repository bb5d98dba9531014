package monitor

import (
	"cmp"
	"slices"
	"sync"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// Manager keeps one Monitor per device id.
//
// Concurrency: mu protects the monitors map only; each Monitor
// synchronizes its own task.
type Manager struct {
	launch   Launcher
	hooks    Hooks
	monitors map[string]*Monitor
	mu       sync.Mutex
}

// NewManager creates a manager whose monitors start captures with launch.
func NewManager(launch Launcher) *Manager {
	return &Manager{
		launch:   launch,
		monitors: make(map[string]*Monitor),
	}
}

// SetHooks sets the hooks of monitors created afterwards.
func (mgr *Manager) SetHooks(h Hooks) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	mgr.hooks = h
}

// monitor returns the monitor for device, creating it if needed.
func (mgr *Manager) monitor(device types.AudioDevice) *Monitor {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	m, ok := mgr.monitors[device.ID]
	if !ok {
		m = newMonitor(device, mgr.launch, mgr.hooks)
		mgr.monitors[device.ID] = m
	}
	return m
}

func (mgr *Manager) lookup(id string) *Monitor {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.monitors[id]
}

// Start starts (or restarts) monitoring of device.
func (mgr *Manager) Start(device types.AudioDevice) error {
	return mgr.monitor(device).Start()
}

// Stop requests the monitor of id to stop and reports whether one exists.
func (mgr *Manager) Stop(id string) bool {
	m := mgr.lookup(id)
	if m == nil {
		return false
	}
	m.Stop()
	return true
}

// Remove stops the monitor of id, waits for it, and forgets it.
func (mgr *Manager) Remove(id string) {
	mgr.mu.Lock()
	m := mgr.monitors[id]
	delete(mgr.monitors, id)
	mgr.mu.Unlock()

	if m != nil {
		m.Stop()
		m.Wait()
	}
}

// Level returns the current level of id, or 0 if it was never monitored.
func (mgr *Manager) Level(id string) int {
	if m := mgr.lookup(id); m != nil {
		return m.Level()
	}
	return 0
}

// State returns the monitor state of id.
func (mgr *Manager) State(id string) types.MonitorState {
	if m := mgr.lookup(id); m != nil {
		return m.State()
	}
	return types.MonitorIdle
}

// Statuses returns the status of every known monitor, ordered by device id.
func (mgr *Manager) Statuses() []types.DeviceStatus {
	mgr.mu.Lock()
	monitors := make([]*Monitor, 0, len(mgr.monitors))
	for _, m := range mgr.monitors {
		monitors = append(monitors, m)
	}
	mgr.mu.Unlock()

	statuses := make([]types.DeviceStatus, 0, len(monitors))
	for _, m := range monitors {
		statuses = append(statuses, m.Status())
	}
	slices.SortFunc(statuses, func(a, b types.DeviceStatus) int {
		return cmp.Compare(a.Device.ID, b.Device.ID)
	})
	return statuses
}

// StopAll stops every monitor and waits until all tasks are idle.
func (mgr *Manager) StopAll() {
	mgr.mu.Lock()
	monitors := make([]*Monitor, 0, len(mgr.monitors))
	for _, m := range mgr.monitors {
		monitors = append(monitors, m)
	}
	mgr.mu.Unlock()

	for _, m := range monitors {
		m.Stop()
	}
	for _, m := range monitors {
		m.Wait()
	}
}
