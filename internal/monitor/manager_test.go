package monitor

import (
	"errors"
	"sync"
	"testing"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

func TestManagerLifecycle(t *testing.T) {
	launcher := &fakeLauncher{autoFeed: true}
	mgr := NewManager(launcher.launch)

	usb := types.AudioDevice{ID: "alsa_input.usb", Label: "USB"}

	if got := mgr.Level("unknown"); got != 0 {
		t.Errorf("Level(unknown) = %d, want 0", got)
	}
	if got := mgr.State("unknown"); got != types.MonitorIdle {
		t.Errorf("State(unknown) = %q, want idle", got)
	}
	if mgr.Stop("unknown") {
		t.Error("Stop(unknown) reported a monitor")
	}

	for _, d := range []types.AudioDevice{usb, mic} {
		if err := mgr.Start(d); err != nil {
			t.Fatalf("Start(%s) error = %v", d.ID, err)
		}
	}

	statuses := mgr.Statuses()
	if len(statuses) != 2 {
		t.Fatalf("Statuses() = %v, want 2 entries", statuses)
	}
	if statuses[0].Device.ID != mic.ID || statuses[1].Device.ID != usb.ID {
		t.Errorf("Statuses() not ordered by id: %v", statuses)
	}
	for _, s := range statuses {
		if s.State != types.MonitorRunning {
			t.Errorf("%s state = %q, want running", s.Device.ID, s.State)
		}
	}

	mgr.StopAll()
	for _, s := range mgr.Statuses() {
		if s.State != types.MonitorIdle || s.Level != 0 {
			t.Errorf("%s after StopAll = %+v, want idle at 0", s.Device.ID, s)
		}
	}

	launcher.mu.Lock()
	live := launcher.live
	launcher.mu.Unlock()
	if live != 0 {
		t.Errorf("%d captures still alive after StopAll", live)
	}
}

func TestManagerRemove(t *testing.T) {
	launcher := &fakeLauncher{autoFeed: true}
	mgr := NewManager(launcher.launch)

	if err := mgr.Start(mic); err != nil {
		t.Fatal(err)
	}
	mgr.Remove(mic.ID)

	if got := len(mgr.Statuses()); got != 0 {
		t.Errorf("Statuses() has %d entries after Remove, want 0", got)
	}
	launcher.mu.Lock()
	live := launcher.live
	launcher.mu.Unlock()
	if live != 0 {
		t.Errorf("%d captures still alive after Remove", live)
	}
}

func TestManagerHooks(t *testing.T) {
	launcher := &fakeLauncher{}
	mgr := NewManager(launcher.launch)

	var (
		mu      sync.Mutex
		started []string
		stopped []error
	)
	mgr.SetHooks(Hooks{
		Started: func(d types.AudioDevice) {
			mu.Lock()
			defer mu.Unlock()
			started = append(started, d.ID)
		},
		Stopped: func(d types.AudioDevice, err error) {
			mu.Lock()
			defer mu.Unlock()
			stopped = append(stopped, err)
		},
	})

	if err := mgr.Start(mic); err != nil {
		t.Fatal(err)
	}
	// The decoder dies mid-stream.
	if err := launcher.source(0).w.Close(); err != nil {
		t.Fatal(err)
	}
	eventually(t, "monitor idle", func() bool { return mgr.State(mic.ID) == types.MonitorIdle })

	if err := mgr.Start(mic); err != nil {
		t.Fatal(err)
	}
	mgr.Stop(mic.ID)
	go launcher.source(1).feed(make([]byte, types.FrameSize))
	mgr.StopAll()

	mu.Lock()
	defer mu.Unlock()
	if len(started) != 2 {
		t.Errorf("started hooks = %v, want 2", started)
	}
	if len(stopped) != 2 {
		t.Fatalf("stopped hooks = %v, want 2", stopped)
	}
	var streamErr *types.StreamError
	if !errors.As(stopped[0], &streamErr) {
		t.Errorf("first stop error = %v, want StreamError", stopped[0])
	}
	if stopped[1] != nil {
		t.Errorf("requested stop reported %v", stopped[1])
	}
}
