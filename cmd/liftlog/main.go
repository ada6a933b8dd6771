package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/localstore"
	"github.com/claude/liftlog/internal/logging"
	liftmcp "github.com/claude/liftlog/internal/mcp"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/server"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	mcpStdio := flag.Bool("mcp-stdio", false, "serve MCP over stdin/stdout instead of HTTP")
	remote := flag.String("remote", "", "with -mcp-stdio: read from a running server at this base URL instead of the database")
	apiKey := flag.String("api-key", "", "with -remote: API key sent as X-API-Key")
	flag.Parse()

	if *mcpStdio && *remote != "" {
		// Logs go to stderr; stdout carries the protocol.
		log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
		if err := serveStdio(liftmcp.NewHTTPClient(*remote, *apiKey), log); err != nil {
			log.Error("mcp stdio failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logOut := os.Stdout
	if *mcpStdio {
		logOut = os.Stderr
	}
	log, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	log.Info("Liftlog starting", "version", Version)

	loc, err := cfg.Session.Location()
	if err != nil {
		log.Error("invalid session timezone", "timezone", cfg.Session.Timezone, "error", err)
		os.Exit(1)
	}

	// Run migrations
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

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	if *mcpStdio {
		if err := serveStdio(db, log); err != nil {
			log.Error("mcp stdio failed", "error", err)
			os.Exit(1)
		}
		return
	}

	kv, err := localstore.Open(localstore.Options{
		Driver:    cfg.LocalStore.Driver,
		Path:      cfg.LocalStore.Path,
		RedisAddr: cfg.LocalStore.RedisAddr,
		RedisDB:   cfg.LocalStore.RedisDB,
	})
	if err != nil {
		log.Error("failed to open local store", "driver", cfg.LocalStore.Driver, "error", err)
		os.Exit(1)
	}
	defer kv.Close()
	log.Info("local store opened", "driver", cfg.LocalStore.Driver)

	var (
		reg    *prometheus.Registry
		gather prometheus.Gatherer
	)
	if cfg.Metrics.Enabled {
		reg = metrics.SetupPrometheus()
		gather = reg
	} else {
		reg = prometheus.NewRegistry()
	}
	m := metrics.NewManager("liftlog", "", reg)

	intents := server.NewIntents(log)
	mgr := session.NewManager(session.Config{
		Routines:          db,
		History:           db,
		Writer:            db,
		Store:             kv,
		Navigators:        intents.Navigator,
		Metrics:           m,
		Log:               log,
		Location:          loc,
		AutosaveDebounce:  cfg.Session.AutosaveDebounce,
		RecoveryStaleness: cfg.Session.RecoveryStaleness,
		CaloriesPerMinute: cfg.Session.CaloriesPerMinute,
		HistoryScope:      models.HistoryScope(cfg.Session.HistoryScope),
	})

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	go mgr.Run(bgCtx, time.Minute, cfg.Session.IdleTimeout)
	go intents.Run(bgCtx, time.Minute, 10*time.Minute)

	// Create server
	srv := server.New(server.Deps{
		Sessions: mgr,
		Intents:  intents,
		Store:    db,
		Importer: alpha.NewProvider(db, loc, cfg.Session.CaloriesPerMinute, log),
		Metrics:  m,
		Gatherer: gather,
		MCP:      liftmcp.New(db, Version, log),
		APIKey:   cfg.Auth.APIKey,
		Log:      log,
	})

	// Start server on the tailnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		lc, err := tsServer.LocalClient()
		if err != nil {
			log.Error("tsnet local client failed", "error", err)
			os.Exit(1)
		}
		srv.SetTailscale(lc)

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	stopBackground()
	mgr.Shutdown()
	log.Info("server stopped")
}

// serveStdio serves the MCP tools for one local user over stdin/stdout.
func serveStdio(ds liftmcp.DataSource, log *slog.Logger) error {
	s := liftmcp.New(ds, Version, log)
	return mcpserver.ServeStdio(s)
}
