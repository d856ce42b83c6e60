package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/juanrdzmb/fitsmartv3/internal/config"
	"github.com/juanrdzmb/fitsmartv3/internal/flow"
	"github.com/juanrdzmb/fitsmartv3/internal/gateway"
	"github.com/juanrdzmb/fitsmartv3/internal/ingest/history"
	"github.com/juanrdzmb/fitsmartv3/internal/intake"
	"github.com/juanrdzmb/fitsmartv3/internal/mcp"
	"github.com/juanrdzmb/fitsmartv3/internal/report"
	"github.com/juanrdzmb/fitsmartv3/internal/server"
	"github.com/juanrdzmb/fitsmartv3/internal/session"
	"github.com/juanrdzmb/fitsmartv3/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("FitSmart starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireServer(); err != nil {
		log.Error("invalid server config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Stage-run log (optional)
	var db *storage.DB
	if cfg.Database.Enabled() {
		dsn := cfg.Database.DSN()
		if err := storage.RunMigrations(dsn, "migrations"); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrations applied")

		if *migrateOnly {
			log.Info("migrate-only: exiting")
			return
		}

		db, err = storage.New(ctx, dsn)
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		log.Info("database connected")
	} else {
		if *migrateOnly {
			log.Error("migrate-only needs a database section")
			os.Exit(1)
		}
		log.Info("no database configured, stage runs are not persisted")
	}

	// Analysis engine
	engine, err := gateway.NewGenAIEngine(ctx, cfg.Gemini.APIKey, cfg.Gemini.RequestsPerSecond, log)
	if err != nil {
		log.Error("failed to create engine", "error", err)
		os.Exit(1)
	}
	gw := gateway.New(engine, cfg.Gemini.Stages, log)

	renderer, err := report.NewRenderer(cfg.Report)
	if err != nil {
		log.Error("failed to load report fonts", "error", err)
		os.Exit(1)
	}

	inputs := intake.New(cfg.Limits)
	importer := history.NewImporter(log)

	deps := flow.Deps{Analyzer: gw, Inputs: inputs}
	var runs server.RunLog
	var runSource mcp.RunSource
	if db != nil {
		deps.Recorder = db
		runs = db
		runSource = db
	}
	sessions := session.New(cfg.Sessions, deps, log)

	mcpSrv := mcp.New(runSource, importer, Version, log)

	srv := server.New(server.Deps{
		Sessions: sessions,
		History:  importer,
		Inputs:   inputs,
		Renderer: renderer,
		Runs:     runs,
		MCP:      mcpserver.NewStreamableHTTPServer(mcpSrv),
	}, cfg.Auth.APIKey, log)

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := cfg.Server.Addr()
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "plain HTTP")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	// In-flight stage calls still record their outcome.
	if err := sessions.Drain(shutdownCtx); err != nil {
		log.Warn("sessions did not drain", "error", err)
	}
	log.Info("server stopped")
}
