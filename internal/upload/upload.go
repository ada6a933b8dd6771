package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/liftlog/internal/ingest"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	LogsInserted   int
	SetsInserted   int
	WarmupsSkipped int
	SetsDropped    int
}

func (s *Stats) add(r *ingest.Result) {
	s.LogsInserted += r.LogsInserted
	s.SetsInserted += r.SetsInserted
	s.WarmupsSkipped += r.WarmupsSkipped
	s.SetsDropped += r.SetsDropped
}

// Sender posts one export. *Client satisfies it.
type Sender interface {
	SendExport(ctx context.Context, csv []byte) (*ingest.Result, error)
}

// Uploader sends every CSV export under a directory to the server, skipping
// files whose content was already accepted.
type Uploader struct {
	sender Sender
	state  *StateDB
	root   string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader. root may be a directory or a single file.
func New(sender Sender, state *StateDB, root string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		sender: sender,
		state:  state,
		root:   root,
		dryRun: dryRun,
		log:    log,
	}
}

// Run executes the upload. A failing file is logged and counted; the run
// continues with the next one.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := u.findExports()
	if err != nil {
		return &u.stats, err
	}
	u.stats.FilesTotal = len(files)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return &u.stats, err
		}
		if err := u.uploadFile(ctx, path); err != nil {
			u.log.Error("uploading export", "path", path, "error", err)
			u.stats.FilesErrored++
		}
	}
	return &u.stats, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	rel := u.relPath(path)
	hash := HashBytes(data)

	done, err := u.state.IsUploaded(rel, hash)
	if err != nil {
		return fmt.Errorf("checking state: %w", err)
	}
	if done {
		u.log.Debug("skipping unchanged export", "path", rel)
		u.stats.FilesSkipped++
		return nil
	}

	if u.dryRun {
		u.log.Info("would upload", "path", rel, "bytes", len(data))
		return nil
	}

	result, err := u.sender.SendExport(ctx, data)
	if err != nil {
		return err
	}
	if err := u.state.MarkUploaded(rel, hash, int64(len(data)), result.LogsInserted); err != nil {
		return fmt.Errorf("recording upload: %w", err)
	}
	u.stats.FilesUploaded++
	u.stats.add(result)
	u.log.Info("uploaded export", "path", rel, "logs", result.LogsInserted, "sets", result.SetsInserted)
	return nil
}

func (u *Uploader) findExports() ([]string, error) {
	info, err := os.Stat(u.root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u.root, err)
	}
	if !info.IsDir() {
		return []string{u.root}, nil
	}

	var files []string
	err = filepath.WalkDir(u.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", u.root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (u *Uploader) relPath(path string) string {
	rel, err := filepath.Rel(u.root, path)
	if err != nil || rel == "." {
		return filepath.Base(path)
	}
	return rel
}
