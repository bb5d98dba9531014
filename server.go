package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oszuidwest/zwfm-mixroute/internal/config"
	"github.com/oszuidwest/zwfm-mixroute/internal/server"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
)

// Push intervals of the WebSocket feed.
const (
	levelsInterval = 100 * time.Millisecond
	statusInterval = 3000 * time.Millisecond
)

// Server exposes device discovery, level monitoring and routing over HTTP
// and WebSocket.
type Server struct {
	config       *config.Config
	commands     *server.CommandHandler
	monitors     server.LevelMonitors
	platform     types.Platform
	tools        []types.ToolInfo
	eventLogPath string
}

// NewServer returns a Server dispatching commands to the given components.
// An empty eventLogPath serves an empty journal.
func NewServer(cfg *config.Config, platform types.Platform, devices server.DeviceSource, monitors server.LevelMonitors, router server.RouteProvisioner, tools []types.ToolInfo, eventLogPath string) *Server {
	return &Server{
		config:       cfg,
		commands:     server.NewCommandHandler(devices, monitors, router),
		monitors:     monitors,
		platform:     platform,
		tools:        tools,
		eventLogPath: eventLogPath,
	}
}

// handleWebSocket handles bidirectional WebSocket communication for real-time updates.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.UpgradeConnection(w, r)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	// Only the writer goroutine writes to the connection.
	send := make(chan any, 16)
	done := make(chan struct{})
	statusUpdate := make(chan struct{}, 1)

	go s.runWebSocketWriter(conn, send, done)
	go s.runWebSocketReader(conn, send, done, statusUpdate)

	s.runWebSocketEventLoop(send, done, statusUpdate)
}

// runWebSocketWriter writes messages from the send channel to the connection
// until the reader is done. send is never closed: async command results may
// still arrive after the connection is gone and are dropped by trySend.
func (s *Server) runWebSocketWriter(conn server.WebSocketConn, send <-chan any, done <-chan struct{}) {
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("WebSocket close error", "error", err)
		}
	}()
	for {
		select {
		case msg := <-send:
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// runWebSocketReader reads commands from the connection and dispatches them.
func (s *Server) runWebSocketReader(conn server.WebSocketConn, send chan<- any, done, statusUpdate chan<- struct{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in WebSocket reader", "panic", r)
		}
		close(done)
	}()

	for {
		var cmd server.WSCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		s.commands.Handle(cmd, send, func() {
			select {
			case statusUpdate <- struct{}{}:
			default:
			}
		})
	}
}

// runWebSocketEventLoop pushes levels and status until the reader is done.
func (s *Server) runWebSocketEventLoop(send chan<- any, done, statusUpdate <-chan struct{}) {
	levelsTicker := time.NewTicker(levelsInterval)
	statusTicker := time.NewTicker(statusInterval)
	defer levelsTicker.Stop()
	defer statusTicker.Stop()

	trySend := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-done:
			return false
		}
	}

	if !trySend(s.buildWSStatus()) {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-statusUpdate:
			if !trySend(s.buildWSStatus()) {
				return
			}
		case <-levelsTicker.C:
			if !trySend(types.WSLevelsResponse{Type: "levels", Devices: s.monitors.Statuses()}) {
				return
			}
		case <-statusTicker.C:
			if !trySend(s.buildWSStatus()) {
				return
			}
		}
	}
}

// buildWSStatus returns the current WebSocket status response.
func (s *Server) buildWSStatus() types.WSStatusResponse {
	status := types.WSStatusResponse{
		Type:       "status",
		Platform:   s.platform,
		Devices:    s.commands.Devices(),
		Monitors:   s.monitors.Statuses(),
		Route:      s.commands.Route(),
		RouteError: s.commands.RouteError(),
		Tools:      s.tools,
	}
	for _, t := range s.tools {
		switch t.Name {
		case ffmpegTool.name:
			status.FFmpegAvailable = t.Path != ""
		case pactlTool.name:
			status.PactlAvailable = t.Path != ""
		}
	}
	return status
}

// SetupRoutes returns an [http.Handler] configured with all application routes.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/devices", s.handleAPIDevices)
	mux.HandleFunc("/api/levels", s.handleAPILevels)
	mux.HandleFunc("/api/status", s.handleAPIStatus)
	mux.HandleFunc("/api/events", s.handleAPIEvents)

	return securityHeaders(mux)
}

// securityHeaders returns middleware that wraps handlers with security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start begins the HTTP server.
// Returns an *http.Server that can be used for graceful shutdown.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.config.Snapshot().WebPort)
	slog.Info("starting web server", "addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	return srv
}
