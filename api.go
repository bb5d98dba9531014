package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/oszuidwest/zwfm-mixroute/internal/eventlog"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// API response helpers

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// handleAPIDevices enumerates capture devices. A degraded enumeration still
// answers 200 with the devices found and the failure in "error".
// GET /api/devices
func (s *Server) handleAPIDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	devices, err := s.commands.Refresh()
	resp := map[string]any{"devices": devices}
	if err != nil {
		slog.Warn("device enumeration degraded", "error", err)
		resp["error"] = err.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleAPILevels returns the level of every monitored device.
// GET /api/levels
func (s *Server) handleAPILevels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, types.WSLevelsResponse{Type: "levels", Devices: s.monitors.Statuses()})
}

// handleAPIStatus returns the same document as the WebSocket status push.
// GET /api/status
func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, http.StatusOK, s.buildWSStatus())
}

// handleAPIEvents returns journal entries, newest first.
// GET /api/events?limit=50&offset=0&type=monitor|route
func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), defaultEventLimit)
	if err != nil || limit < 1 || limit > eventlog.MaxReadLimit {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", eventlog.MaxReadLimit))
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		s.writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	filter := eventlog.TypeFilter(q.Get("type"))
	if filter != eventlog.FilterAll && filter != eventlog.FilterMonitor && filter != eventlog.FilterRoute {
		s.writeError(w, http.StatusBadRequest, "type must be monitor or route")
		return
	}

	if s.eventLogPath == "" {
		s.writeJSON(w, http.StatusOK, map[string]any{"events": []eventlog.Event{}, "has_more": false})
		return
	}

	events, hasMore, err := eventlog.ReadLast(s.eventLogPath, limit, offset, filter)
	if err != nil {
		slog.Error("failed to read event log", "path", s.eventLogPath, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read event log")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events, "has_more": hasMore})
}

// defaultEventLimit is the page size when limit is omitted.
const defaultEventLimit = 50

func queryInt(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
