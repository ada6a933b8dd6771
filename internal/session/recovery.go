package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/liftlog/internal/localstore"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
)

// DefaultStaleness is the age after which a recovery snapshot is ignored.
const DefaultStaleness = 24 * time.Hour

// RecoveryKey is the local store key of a user's single recovery slot.
func RecoveryKey(userID int) string {
	return fmt.Sprintf("recovery:%d", userID)
}

// RecoveryCache reads and writes the recovery snapshot of one user. Staleness
// is checked on read; there is no background expiry.
type RecoveryCache struct {
	kv        localstore.Store
	key       string
	staleness time.Duration
	now       func() time.Time
	metrics   *metrics.Manager
	log       *slog.Logger
}

func NewRecoveryCache(kv localstore.Store, userID int, staleness time.Duration, now func() time.Time, m *metrics.Manager, log *slog.Logger) *RecoveryCache {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	if now == nil {
		now = time.Now
	}
	return &RecoveryCache{
		kv:        kv,
		key:       RecoveryKey(userID),
		staleness: staleness,
		now:       now,
		metrics:   m,
		log:       log,
	}
}

// Save overwrites the slot, stamping LastSaved and the schema version.
func (c *RecoveryCache) Save(ctx context.Context, snap models.SessionSnapshot) error {
	snap.LastSaved = c.now()
	snap.Version = models.SnapshotVersion
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding recovery snapshot: %w", err)
	}
	if err := c.kv.Set(ctx, c.key, data); err != nil {
		return fmt.Errorf("writing recovery snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot in the slot, or nil when there is none. Stale
// and corrupt snapshots are deleted and reported as absent.
func (c *RecoveryCache) Load(ctx context.Context) (*models.SessionSnapshot, error) {
	data, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, localstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading recovery snapshot: %w", err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		c.log.Warn("deleting recovery snapshot", "key", c.key, "error", err)
		c.metrics.CounterRecovery.WithLabelValues(metrics.RecoveryCorrupt).Inc()
		return nil, c.Clear(ctx)
	}

	if age := c.now().Sub(snap.LastSaved); age > c.staleness {
		c.log.Info("deleting stale recovery snapshot", "key", c.key, "age", age.Round(time.Second))
		c.metrics.CounterRecovery.WithLabelValues(metrics.RecoveryStale).Inc()
		return nil, c.Clear(ctx)
	}
	return snap, nil
}

// Clear empties the slot.
func (c *RecoveryCache) Clear(ctx context.Context) error {
	if err := c.kv.Remove(ctx, c.key); err != nil {
		return fmt.Errorf("removing recovery snapshot: %w", err)
	}
	return nil
}

func decodeSnapshot(data []byte) (*models.SessionSnapshot, error) {
	var snap models.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if snap.Version != models.SnapshotVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCacheCorrupt, snap.Version)
	}
	if snap.StartTime.IsZero() || snap.LastSaved.IsZero() {
		return nil, fmt.Errorf("%w: missing timestamps", ErrCacheCorrupt)
	}
	return &snap, nil
}
