package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oszuidwest/zwfm-mixroute/internal/config"
	"github.com/oszuidwest/zwfm-mixroute/internal/eventlog"
	"github.com/oszuidwest/zwfm-mixroute/internal/server"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

type stubDevices struct {
	devices []types.AudioDevice
	err     error
}

func (s stubDevices) Enumerate() ([]types.AudioDevice, error) { return s.devices, s.err }

type stubMonitors struct{ statuses []types.DeviceStatus }

func (stubMonitors) Start(types.AudioDevice) error { return nil }
func (stubMonitors) Stop(string) bool              { return false }
func (s stubMonitors) Statuses() []types.DeviceStatus {
	return s.statuses
}

type stubRouter struct{ err error }

func (r stubRouter) Provision(a, b *types.AudioDevice) (string, error) {
	return types.DefaultDeviceID, r.err
}

var testDevices = []types.AudioDevice{
	{ID: types.DefaultDeviceID, Label: types.DefaultDeviceLabel},
	{ID: "MixRoute-jackd", Label: types.LoopbackLabel},
}

func newTestServer(t *testing.T, devices stubDevices, eventLog string) *Server {
	t.Helper()
	return newTestServerWithRouter(t, devices, stubRouter{}, eventLog)
}

func newTestServerWithRouter(t *testing.T, devices stubDevices, router stubRouter, eventLog string) *Server {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	monitors := stubMonitors{statuses: []types.DeviceStatus{{Device: testDevices[0], Level: 42, State: types.MonitorRunning}}}
	tools := []types.ToolInfo{
		{Name: "ffmpeg", Path: "/usr/bin/ffmpeg", Version: "6.1.1"},
		{Name: "pactl"},
	}
	return NewServer(cfg, types.PlatformPulse, devices, monitors, router, tools, eventLog)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.SetupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestBuildWSStatus(t *testing.T) {
	s := newTestServer(t, stubDevices{devices: testDevices}, "")
	if _, err := s.commands.Refresh(); err != nil {
		t.Fatal(err)
	}

	status := s.buildWSStatus()
	if status.Type != "status" || status.Platform != types.PlatformPulse {
		t.Errorf("status header = %q/%q", status.Type, status.Platform)
	}
	if !status.FFmpegAvailable || status.PactlAvailable {
		t.Errorf("ffmpeg=%v pactl=%v, want true/false", status.FFmpegAvailable, status.PactlAvailable)
	}
	if len(status.Devices) != 2 || len(status.Monitors) != 1 || status.Monitors[0].Level != 42 {
		t.Errorf("status = %+v", status)
	}
}

func TestStatusReportsRouteFailure(t *testing.T) {
	router := stubRouter{err: &types.RouteProvisionError{
		Device:   types.DefaultDeviceID,
		Failures: []error{errors.New("load-module refused")},
	}}
	s := newTestServerWithRouter(t, stubDevices{devices: testDevices}, router, "")

	send := make(chan any, 4)
	s.commands.Handle(server.WSCommand{Type: "route/provision"}, send, func() {})
	select {
	case <-send:
	case <-time.After(2 * time.Second):
		t.Fatal("no route/provision result")
	}

	rec := get(t, s, "/api/status")
	var status map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if _, ok := status["route"]; ok {
		t.Errorf("status advertises route %v after a failed provisioning", status["route"])
	}
	if msg, _ := status["route_error"].(string); !strings.Contains(msg, "load-module refused") {
		t.Errorf("route_error = %v", status["route_error"])
	}
}

func TestAPIDevices(t *testing.T) {
	s := newTestServer(t, stubDevices{
		devices: testDevices,
		err:     &types.ToolInvocationError{Tool: "pactl", Err: errors.New("not found")},
	}, "")

	rec := get(t, s, "/api/devices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	var body struct {
		Devices []types.AudioDevice `json:"devices"`
		Error   string              `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Devices) != 2 || body.Error == "" {
		t.Errorf("body = %+v, want degraded list with error", body)
	}
}

func TestAPILevelsMethod(t *testing.T) {
	s := newTestServer(t, stubDevices{devices: testDevices}, "")

	rec := httptest.NewRecorder()
	s.SetupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/levels", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/levels = %d, want 405", rec.Code)
	}

	rec = get(t, s, "/api/levels")
	var levels types.WSLevelsResponse
	if err := json.NewDecoder(rec.Body).Decode(&levels); err != nil {
		t.Fatal(err)
	}
	if len(levels.Devices) != 1 || levels.Devices[0].Level != 42 {
		t.Errorf("levels = %+v", levels)
	}
}

func TestAPIEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	events, err := eventlog.NewLogger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer events.Close()

	for range 3 {
		if err := events.LogMonitor(testDevices[0], true, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := events.LogRouteRemoved(nil); err != nil {
		t.Fatal(err)
	}

	s := newTestServer(t, stubDevices{devices: testDevices}, path)

	rec := get(t, s, "/api/events?type=monitor&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Events  []eventlog.Event `json:"events"`
		HasMore bool             `json:"has_more"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Events) != 2 || !body.HasMore {
		t.Errorf("body = %d events, has_more=%v", len(body.Events), body.HasMore)
	}

	for _, bad := range []string{"?limit=0", "?limit=abc", "?offset=-1", "?type=silence"} {
		if rec := get(t, s, "/api/events"+bad); rec.Code != http.StatusBadRequest {
			t.Errorf("GET /api/events%s = %d, want 400", bad, rec.Code)
		}
	}
}

func TestAPIEventsWithoutJournal(t *testing.T) {
	s := newTestServer(t, stubDevices{devices: testDevices}, "")

	rec := get(t, s, "/api/events")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
