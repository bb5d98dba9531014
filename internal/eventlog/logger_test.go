package eventlog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

var mic = types.AudioDevice{ID: "alsa_input.usb-mic", Label: "USB Mic"}

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := NewLogger(filepath.Join(t.TempDir(), "logs", "events.jsonl"))
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLogAndReadLast(t *testing.T) {
	l := newTestLogger(t)

	provErr := &types.RouteProvisionError{
		Device:   "MixRoute.monitor",
		Failures: []error{errors.New("unload 7 refused"), errors.New("no such source")},
	}
	steps := []func() error{
		func() error { return l.LogMonitor(mic, true, nil) },
		func() error { return l.LogRoute("MixRoute.monitor", &mic, &types.AudioDevice{ID: "line-in"}, nil) },
		func() error { return l.LogMonitor(mic, false, errors.New("unexpected EOF")) },
		func() error { return l.LogRoute("MixRoute.monitor", &mic, nil, provErr) },
		func() error { return l.LogRouteRemoved(nil) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			t.Fatal(err)
		}
	}

	events, more, err := ReadLast(l.Path(), 10, 0, FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if more {
		t.Error("hasMore = true for a complete read")
	}
	want := []EventType{RouteRemoved, RouteIncomplete, MonitorFailed, RouteProvisioned, MonitorStarted}
	if len(events) != len(want) {
		t.Fatalf("read %d events, want %d", len(events), len(want))
	}
	for i, e := range events {
		if e.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.Type, want[i])
		}
		if e.Timestamp.IsZero() {
			t.Errorf("event %d has no timestamp", i)
		}
	}

	details, ok := events[1].Details.(map[string]any)
	if !ok {
		t.Fatalf("details = %T", events[1].Details)
	}
	if failures, _ := details["failures"].([]any); len(failures) != 2 {
		t.Errorf("failures = %v, want 2 entries", details["failures"])
	}
}

func TestReadLastFilterAndPaging(t *testing.T) {
	l := newTestLogger(t)
	for range 3 {
		if err := l.LogMonitor(mic, true, nil); err != nil {
			t.Fatal(err)
		}
		if err := l.LogRoute(types.DefaultDeviceID, nil, nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	events, more, err := ReadLast(l.Path(), 2, 0, FilterRoute)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || !more {
		t.Errorf("page 1 = %d events, more=%v; want 2, true", len(events), more)
	}
	for _, e := range events {
		if !IsRouteEvent(e.Type) {
			t.Errorf("filter let %s through", e.Type)
		}
	}

	events, more, err = ReadLast(l.Path(), 2, 2, FilterRoute)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || more {
		t.Errorf("page 2 = %d events, more=%v; want 1, false", len(events), more)
	}
}

func TestReadLastEdgeCases(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.jsonl")
	events, more, err := ReadLast(missing, 10, 0, FilterAll)
	if err != nil || len(events) != 0 || more {
		t.Errorf("missing file = %v, %v, %v", events, more, err)
	}

	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"ts":"2026-01-02T03:04:05Z","type":"monitor_started","device":"a"}
not json
{"ts":"2026-01-02T03:04:06Z","type":"route_removed"}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	events, _, err = ReadLast(path, 10, 0, FilterAll)
	if err != nil || len(events) != 2 {
		t.Errorf("malformed line not skipped: %v, %v", events, err)
	}

	if events, _, _ := ReadLast(path, 0, 0, FilterAll); len(events) != 0 {
		t.Errorf("n=0 returned %d events", len(events))
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	if err := l.LogMonitor(mic, true, nil); err != nil {
		t.Errorf("nil LogMonitor() = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
	if l.Path() != "" {
		t.Errorf("nil Path() = %q", l.Path())
	}
}
