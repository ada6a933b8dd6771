package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/logging"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/upload"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	csvPath := flag.String("path", "", "path to an Alpha Progression CSV export (required)")
	login := flag.String("user", "", "tailnet login to import for (default: the local user)")
	dryRun := flag.Bool("dry-run", false, "parse and report counts without touching the database")
	serverURL := flag.String("server", "", "upload to a running Liftlog server instead of the database (e.g. https://liftlog.tailnet.ts.net)")
	apiKey := flag.String("api-key", "", "API key for -server uploads")
	stateDir := flag.String("state-dir", defaultStateDir(), "directory of the upload state database (-server mode)")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import -config config.yaml -path export.csv [-user login] [-dry-run]\n")
		fmt.Fprintf(os.Stderr, "       liftlog-import -server URL -path exports/ [-api-key KEY] [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL != "" {
		log, _ := logging.New(os.Stdout, "info", "text")
		if err := runUpload(*serverURL, *apiKey, *stateDir, *csvPath, *dryRun, log); err != nil {
			log.Error("upload failed", "error", err)
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
	log, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	loc, err := cfg.Session.Location()
	if err != nil {
		log.Error("invalid session timezone", "timezone", cfg.Session.Timezone, "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Error("opening export", "path", *csvPath, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
		sessions, err := alpha.Parse(f, loc)
		if err != nil {
			log.Error("parse failed", "error", err)
			os.Exit(1)
		}
		result := &ingest.Result{SessionsReceived: len(sessions)}
		for _, s := range sessions {
			c := alpha.Convert(s, 0, loc, cfg.Session.CaloriesPerMinute)
			result.SetsReceived += len(c.Details) + c.SetsDropped
			result.SetsInserted += len(c.Details)
			result.WarmupsSkipped += c.WarmupsSkipped
			result.SetsDropped += c.SetsDropped
		}
		printResult(log, result)
		return
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	userID := 1
	if *login != "" {
		userID, err = db.GetOrCreateUser(ctx, *login, *login)
		if err != nil {
			log.Error("resolving user", "login", *login, "error", err)
			os.Exit(1)
		}
	}

	// Run import
	p := alpha.NewProvider(db, loc, cfg.Session.CaloriesPerMinute, log)
	result, err := p.Ingest(ctx, f, userID)
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	printResult(log, result)
	log.Info("import complete")
}

// runUpload sends every export under path to a remote server, skipping
// exports that were already accepted.
func runUpload(serverURL, apiKey, stateDir, path string, dryRun bool, log *slog.Logger) error {
	state, err := upload.OpenStateDB(stateDir)
	if err != nil {
		return err
	}
	defer state.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := upload.New(upload.NewClient(serverURL, apiKey), state, path, dryRun, log)
	stats, err := u.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("upload complete",
		"files", stats.FilesTotal,
		"uploaded", stats.FilesUploaded,
		"skipped", stats.FilesSkipped,
		"errored", stats.FilesErrored,
		"logs_inserted", stats.LogsInserted,
		"sets_inserted", stats.SetsInserted,
		"warmups_skipped", stats.WarmupsSkipped,
		"sets_dropped", stats.SetsDropped,
	)
	if stats.FilesErrored > 0 {
		return fmt.Errorf("%d of %d exports failed", stats.FilesErrored, stats.FilesTotal)
	}
	return nil
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".liftlog-import"
	}
	return filepath.Join(dir, "liftlog-import")
}

func printResult(log *slog.Logger, r *ingest.Result) {
	log.Info("import stats",
		"sessions", r.SessionsReceived,
		"logs_inserted", r.LogsInserted,
		"sets_received", r.SetsReceived,
		"sets_inserted", r.SetsInserted,
		"warmups_skipped", r.WarmupsSkipped,
		"sets_dropped", r.SetsDropped,
	)
}
