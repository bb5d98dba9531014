// Package eventlog records level-monitor and mix-route lifecycle events in a
// JSON lines file.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// EventType represents the type of event.
type EventType string

// Monitor event types.
const (
	MonitorStarted EventType = "monitor_started"
	MonitorStopped EventType = "monitor_stopped"
	MonitorFailed  EventType = "monitor_failed"
)

// Route event types.
const (
	RouteProvisioned EventType = "route_provisioned"
	RouteIncomplete  EventType = "route_incomplete"
	RouteRemoved     EventType = "route_removed"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Device    string    `json:"device,omitempty"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// MonitorDetails contains monitor-specific event details.
type MonitorDetails struct {
	Label string `json:"label,omitempty"`
	Error string `json:"error,omitempty"`
}

// RouteDetails contains route-specific event details.
type RouteDetails struct {
	SourceA  string   `json:"source_a,omitempty"`
	SourceB  string   `json:"source_b,omitempty"`
	Failures []string `json:"failures,omitempty"`
}

// Logger writes events to a JSON lines file. A nil *Logger discards events.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
	encoder  *json.Encoder
}

// DefaultLogPath returns the platform-specific log file path.
func DefaultLogPath(port int) string {
	switch runtime.GOOS {
	case "windows":
		programData := os.Getenv("PROGRAMDATA")
		if programData == "" {
			programData = `C:\ProgramData`
		}
		return filepath.Join(programData, "mixroute", "logs", fmt.Sprintf("%d", port), "events.jsonl")
	default: // linux, darwin
		return filepath.Join("/var/log/mixroute", fmt.Sprintf("%d", port), "events.jsonl")
	}
}

// NewLogger creates a new event logger at the specified path.
func NewLogger(filePath string) (*Logger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
		encoder:  json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return l.encoder.Encode(event)
}

// LogMonitor records a monitor lifecycle change. A non-nil err marks a failure.
func (l *Logger) LogMonitor(device types.AudioDevice, started bool, err error) error {
	event := &Event{
		Type:    MonitorStopped,
		Device:  device.ID,
		Details: MonitorDetails{Label: device.Label},
	}
	switch {
	case err != nil:
		event.Type = MonitorFailed
		event.Details = MonitorDetails{Label: device.Label, Error: err.Error()}
	case started:
		event.Type = MonitorStarted
	}
	return l.Log(event)
}

// LogRoute records the outcome of a provisioning call. Failures carried by a
// *types.RouteProvisionError are listed one by one.
func (l *Logger) LogRoute(device string, a, b *types.AudioDevice, err error) error {
	details := RouteDetails{}
	if a != nil {
		details.SourceA = a.ID
	}
	if b != nil {
		details.SourceB = b.ID
	}

	event := &Event{Type: RouteProvisioned, Device: device, Details: details}
	if err != nil {
		event.Type = RouteIncomplete
		details.Failures = failureMessages(err)
		event.Details = details
	}
	return l.Log(event)
}

// LogRouteRemoved records a teardown of all route modules.
func (l *Logger) LogRouteRemoved(err error) error {
	event := &Event{Type: RouteRemoved}
	if err != nil {
		event.Details = RouteDetails{Failures: failureMessages(err)}
	}
	return l.Log(event)
}

func failureMessages(err error) []string {
	var provErr *types.RouteProvisionError
	if !errors.As(err, &provErr) {
		return []string{err.Error()}
	}
	msgs := make([]string, len(provErr.Failures))
	for i, f := range provErr.Failures {
		msgs[i] = f.Error()
	}
	return msgs
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the path to the log file.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

// TypeFilter specifies which event types to include when reading.
type TypeFilter string

// Filter constants for ReadLast.
const (
	FilterAll     TypeFilter = ""
	FilterMonitor TypeFilter = "monitor"
	FilterRoute   TypeFilter = "route"
)

// MaxReadLimit is the maximum number of events that can be read at once.
const MaxReadLimit = 500

// Matches reports whether t passes the filter.
func (f TypeFilter) Matches(t EventType) bool {
	switch f {
	case FilterMonitor:
		return IsMonitorEvent(t)
	case FilterRoute:
		return IsRouteEvent(t)
	default:
		return true
	}
}

// ReadLast reads events from the log file with pagination support.
// Returns up to n matching events after skipping offset matching events,
// newest first, and whether older matching events remain.
func ReadLast(filePath string, n, offset int, filter TypeFilter) ([]Event, bool, error) {
	n = min(n, MaxReadLimit)
	if n <= 0 {
		return []Event{}, false, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Event{}, false, nil
		}
		return nil, false, err
	}
	defer file.Close() //nolint:errcheck // Read-only operation, close error not critical

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, false, err
	}

	events := make([]Event, 0, n)
	skipped := 0
	for i := len(lines) - 1; i >= 0; i-- {
		var event Event
		if err := json.Unmarshal([]byte(lines[i]), &event); err != nil {
			continue // Skip malformed lines
		}
		if !filter.Matches(event.Type) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(events) == n {
			return events, true, nil
		}
		events = append(events, event)
	}

	return events, false, nil
}

// IsMonitorEvent reports whether t is a monitor event.
func IsMonitorEvent(t EventType) bool {
	return t == MonitorStarted || t == MonitorStopped || t == MonitorFailed
}

// IsRouteEvent reports whether t is a route event.
func IsRouteEvent(t EventType) bool {
	return t == RouteProvisioned || t == RouteIncomplete || t == RouteRemoved
}
