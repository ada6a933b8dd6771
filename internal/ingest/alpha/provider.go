package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// Store is the storage the provider writes through. *storage.DB satisfies it.
type Store interface {
	InImportTx(ctx context.Context, fn func(storage.ImportWriter) error) error
	InsertImportLog(ctx context.Context, l storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, l storage.ImportLog) error
}

var _ Store = (*storage.DB)(nil)

// Provider imports Alpha Progression CSV exports as committed workout logs,
// so their sets show up as previous-attempt hints.
type Provider struct {
	store             Store
	loc               *time.Location
	caloriesPerMinute float64
	log               *slog.Logger
	now               func() time.Time
}

// NewProvider creates a new Alpha Progression ingest provider. Export times
// are interpreted in loc.
func NewProvider(store Store, loc *time.Location, caloriesPerMinute float64, log *slog.Logger) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{store: store, loc: loc, caloriesPerMinute: caloriesPerMinute, log: log, now: time.Now}
}

// Ingest parses a CSV export and writes every session in one transaction.
// A session imported before (same start time) is replaced. The run is
// recorded in import_logs whatever the outcome.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	started := p.now()
	entry := storage.ImportLog{UserID: userID, Source: models.SourceAlpha, Status: storage.ImportRunning}
	logID, err := p.store.InsertImportLog(ctx, entry)
	if err != nil {
		p.log.Warn("failed to record import start", "error", err)
	}

	result, importErr := p.ingest(ctx, r, userID)

	if logID != 0 {
		p.finish(logID, entry, result, importErr, started)
	}
	if importErr != nil {
		return nil, importErr
	}
	return result, nil
}

func (p *Provider) ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	sessions, err := Parse(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	converted := make([]Converted, 0, len(sessions))
	for _, s := range sessions {
		c := Convert(s, userID, p.loc, p.caloriesPerMinute)
		converted = append(converted, c)
		result.SetsReceived += len(c.Details) + c.SetsDropped
		result.WarmupsSkipped += c.WarmupsSkipped
		result.SetsDropped += c.SetsDropped
	}

	err = p.store.InImportTx(ctx, func(w storage.ImportWriter) error {
		for _, c := range converted {
			if err := w.DeleteImportedLog(ctx, userID, models.SourceAlpha, c.Log.StartedAt); err != nil {
				return err
			}
			id, err := w.CreateWorkoutLog(ctx, c.Log)
			if err != nil {
				return err
			}
			if err := w.CreateWorkoutLogDetails(ctx, id, c.Details); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing imported sessions: %w", err)
	}

	for _, c := range converted {
		result.LogsInserted++
		result.SetsInserted += len(c.Details)
	}
	p.log.Info("alpha import complete",
		"user_id", userID,
		"sessions", result.SessionsReceived,
		"sets", result.SetsInserted,
		"warmups_skipped", result.WarmupsSkipped,
	)
	return result, nil
}

// finish records the outcome with a fresh context so a canceled request
// still leaves a final status behind.
func (p *Provider) finish(id int64, entry storage.ImportLog, result *ingest.Result, importErr error, started time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ms := int(p.now().Sub(started).Milliseconds())
	entry.DurationMs = &ms
	entry.Status = storage.ImportSuccess
	if importErr != nil {
		entry.Status = storage.ImportError
		msg := importErr.Error()
		entry.ErrorMessage = &msg
	}
	if result != nil {
		entry.SessionsReceived = result.SessionsReceived
		entry.LogsInserted = result.LogsInserted
		entry.SetsInserted = result.SetsInserted
		entry.WarmupsSkipped = result.WarmupsSkipped
	}
	if err := p.store.UpdateImportLog(ctx, id, entry); err != nil {
		p.log.Error("failed to record import result", "id", id, "error", err)
	}
}
