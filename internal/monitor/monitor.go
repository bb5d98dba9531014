// Package monitor publishes live input levels of audio devices.
//
// Each Monitor owns at most one background task that reads fixed-size frames
// from a decoder subprocess and publishes the peak of every frame. Levels are
// read without locking; a reader may see a stale value, never another
// device's value.
package monitor

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/oszuidwest/zwfm-mixroute/internal/audio"
	"github.com/oszuidwest/zwfm-mixroute/internal/ffmpeg"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// Source is a running capture stream of raw signed 8-bit mono samples.
type Source interface {
	io.Reader
	// Quit asks the producer to exit gracefully.
	Quit() error
	// Close releases the read side of the stream.
	Close() error
	// Wait blocks until the producer has exited.
	Wait() error
}

// Launcher starts a capture stream for a device id.
type Launcher func(device string) (Source, error)

// FFmpegLauncher returns a Launcher that runs ffmpegPath with the metering format.
func FFmpegLauncher(ffmpegPath string, cfg audio.CaptureConfig) Launcher {
	return func(device string) (Source, error) {
		c, err := ffmpeg.StartCapture(ffmpegPath, cfg.BuildArgs(device))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Hooks receive monitor lifecycle notifications. Either field may be nil.
// They run on the monitor's own goroutines and must not block.
type Hooks struct {
	Started func(device types.AudioDevice)
	// Stopped receives the stream or launch failure, or nil after a requested stop.
	Stopped func(device types.AudioDevice, err error)
}

func (h Hooks) started(d types.AudioDevice) {
	if h.Started != nil {
		h.Started(d)
	}
}

func (h Hooks) stopped(d types.AudioDevice, err error) {
	if h.Stopped != nil {
		h.Stopped(d, err)
	}
}

// Monitor tracks the input level of one device.
type Monitor struct {
	device types.AudioDevice
	launch Launcher
	hooks  Hooks

	startMu sync.Mutex // Serializes Start so only one task is ever attached

	mu            sync.Mutex // Protects the fields below
	state         types.MonitorState
	stop          chan struct{}
	done          chan struct{}
	stopRequested bool

	level atomic.Int32
}

// New returns an idle Monitor for device.
func New(device types.AudioDevice, launch Launcher) *Monitor {
	return newMonitor(device, launch, Hooks{})
}

func newMonitor(device types.AudioDevice, launch Launcher, hooks Hooks) *Monitor {
	return &Monitor{
		device: device,
		launch: launch,
		hooks:  hooks,
		state:  types.MonitorIdle,
	}
}

// Device returns the monitored device.
func (m *Monitor) Device() types.AudioDevice {
	return m.device
}

// Start attaches a new monitoring task. A task that is still attached is
// asked to stop and joined first. Spawn failures are returned as
// *types.ToolInvocationError and leave the monitor idle.
func (m *Monitor) Start() error {
	m.startMu.Lock()
	defer m.startMu.Unlock()

	m.Stop()
	m.Wait()

	m.mu.Lock()
	m.state = types.MonitorStarting
	m.stopRequested = false
	m.mu.Unlock()

	src, err := m.launch(m.device.ID)
	if err != nil {
		m.level.Store(0)
		m.mu.Lock()
		m.state = types.MonitorIdle
		m.mu.Unlock()
		slog.Error("failed to start level monitor", "device", m.device.ID, "error", err)
		m.hooks.stopped(m.device, err)
		return err
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	m.mu.Lock()
	m.stop = stop
	m.done = done
	m.state = types.MonitorRunning
	if m.stopRequested {
		m.state = types.MonitorStopping
		close(stop)
	}
	m.mu.Unlock()

	slog.Info("level monitor started", "device", m.device.ID, "label", m.device.Label)
	m.hooks.started(m.device)
	go m.run(src, stop, done)

	return nil
}

// Stop asks the running task to exit at the next frame boundary.
// It neither kills the decoder nor interrupts a frame read in progress.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case types.MonitorStarting:
		m.stopRequested = true
	case types.MonitorRunning:
		m.state = types.MonitorStopping
		close(m.stop)
	}
}

// Wait blocks until the current task, if any, has finished.
func (m *Monitor) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Level returns the peak of the last frame read, or 0 when not running.
func (m *Monitor) Level() int {
	return int(m.level.Load())
}

// State returns the current monitor state.
func (m *Monitor) State() types.MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the device with its level and state.
func (m *Monitor) Status() types.DeviceStatus {
	return types.DeviceStatus{
		Device: m.device,
		Level:  m.Level(),
		State:  m.State(),
	}
}

// run reads frames until stopped or the stream fails.
func (m *Monitor) run(src Source, stop <-chan struct{}, done chan<- struct{}) {
	var failure error
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in level monitor", "device", m.device.ID, "panic", r)
			failure = fmt.Errorf("panic: %v", r)
		}
		m.release(src)
		m.level.Store(0)

		m.mu.Lock()
		m.state = types.MonitorIdle
		m.mu.Unlock()

		slog.Info("level monitor stopped", "device", m.device.ID)
		m.hooks.stopped(m.device, failure)
		close(done)
	}()

	frame := make([]byte, types.FrameSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if _, err := io.ReadFull(src, frame); err != nil {
			failure = &types.StreamError{Device: m.device.ID, Err: err}
			slog.Warn("level monitor stream ended", "error", failure)
			return
		}
		m.level.Store(int32(audio.Peak(frame)))
	}
}

// release shuts the capture process down: quit command, close, wait.
func (m *Monitor) release(src Source) {
	if err := src.Quit(); err != nil {
		slog.Debug("failed to send quit to capture", "device", m.device.ID, "error", err)
	}
	if err := src.Close(); err != nil {
		slog.Debug("failed to close capture stream", "device", m.device.ID, "error", err)
	}
	if err := src.Wait(); err != nil {
		slog.Debug("capture process exited", "device", m.device.ID, "error", err)
	}
}
