// Package main runs the mix-route daemon: it discovers audio capture devices,
// publishes live input levels and provisions mixed capture routes on the
// audio server for a downstream recorder.
//
// Usage:
//
//	mixroute [-config path/to/config.json]
//
// If -config is not specified, the daemon looks for config.json in the same
// directory as the binary.
package main

import (
	"cmp"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/oszuidwest/zwfm-mixroute/internal/audio"
	"github.com/oszuidwest/zwfm-mixroute/internal/config"
	"github.com/oszuidwest/zwfm-mixroute/internal/eventlog"
	"github.com/oszuidwest/zwfm-mixroute/internal/monitor"
	"github.com/oszuidwest/zwfm-mixroute/internal/pulse"
	"github.com/oszuidwest/zwfm-mixroute/internal/route"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	logLevel := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	snap := cfg.Snapshot()
	logLevel.Set(snap.LogLevel)

	// Missing tools are not fatal: enumeration degrades and captures fail to start.
	ffmpegPath := util.ResolveToolPath(snap.FFmpegPath, "ffmpeg")
	pactlPath := util.ResolveToolPath(snap.PactlPath, "pactl")

	tools := []types.ToolInfo{probeTool(util.RunTool, ffmpegTool, ffmpegPath)}
	if snap.Platform.SupportsMixing() {
		tools = append(tools, probeTool(util.RunTool, pactlTool, pactlPath))
	}
	ffmpegPath = cmp.Or(ffmpegPath, "ffmpeg")
	pactlPath = cmp.Or(pactlPath, "pactl")

	slog.Info("audio platform", "platform", snap.Platform, "route_tag", snap.RouteTag)

	catalog := audio.NewCatalog(audio.CatalogConfig{
		Platform:   snap.Platform,
		FFmpegPath: ffmpegPath,
		PactlPath:  pactlPath,
		Tag:        snap.RouteTag,
	})
	events, err := eventlog.NewLogger(snap.EventLogPath)
	if err != nil {
		slog.Warn("event log disabled", "path", snap.EventLogPath, "error", err)
	}
	defer func() {
		if err := events.Close(); err != nil {
			slog.Error("failed to close event log", "error", err)
		}
	}()

	monitors := monitor.NewManager(monitor.FFmpegLauncher(ffmpegPath, audio.CaptureConfig{
		Platform:   snap.Platform,
		LoopbackID: catalog.LoopbackDevice().ID,
	}))
	monitors.SetHooks(monitorHooks(events))

	router := journaledRouter{
		Router: route.New(pulse.NewPactl(pactlPath, util.RunTool), route.Config{
			Platform:    snap.Platform,
			Tag:         snap.RouteTag,
			SettleDelay: snap.SettleDelay,
		}),
		events: events,
	}

	srv := NewServer(cfg, snap.Platform, catalog, monitors, router, tools, events.Path())
	if _, err := srv.commands.Refresh(); err != nil {
		slog.Warn("initial device enumeration degraded", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := cfg.Watch(ctx, func(s config.Snapshot) {
			logLevel.Set(s.LogLevel)
			router.SetSettleDelay(s.SettleDelay)
			if keys := config.RestartRequired(snap, s); len(keys) > 0 {
				slog.Warn("config changes require restart", "keys", keys)
			}
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "error", err)
		}
	}()

	// Start web server.
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), types.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Monitors stop at the next frame boundary; a stalled decoder is abandoned.
	stopped := make(chan struct{})
	go func() {
		monitors.StopAll()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(types.ShutdownTimeout):
		slog.Warn("level monitors did not stop in time")
	}

	// Routing state does not survive the process.
	if err := router.Teardown(); err != nil {
		slog.Error("failed to remove mix route", "error", err)
	}

	slog.Info("shutdown complete")
}
