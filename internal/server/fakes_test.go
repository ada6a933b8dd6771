package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/localstore"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"tailscale.com/client/tailscale/apitype"
	"tailscale.com/tailcfg"
)

func intPtr(v int) *int { return &v }

var discard = slog.New(slog.DiscardHandler)

// fakeStore serves reads and records writes in memory.
type fakeStore struct {
	mu       sync.Mutex
	routines map[int64]models.Routine
	history  models.PerformanceHistory
	logs     []models.WorkoutLog
	imports  []storage.ImportLog
	users    map[string]int
	writeErr error

	lastBucket string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		routines: map[int64]models.Routine{1: pushDay()},
		history:  models.PerformanceHistory{},
		users:    map[string]int{},
	}
}

func pushDay() models.Routine {
	return models.Routine{
		ID:     1,
		UserID: 1,
		Name:   "Push Day",
		Exercises: []models.RoutineExercise{
			{ExerciseID: "bench_press", Name: "Bench Press", Position: 1, PlannedSets: 2, TargetRepsMin: intPtr(6), TargetRepsMax: intPtr(8)},
			{ExerciseID: "dips", Name: "Dips", Position: 2, PlannedSets: 1},
		},
	}
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, login, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.users[login]; ok {
		return id, nil
	}
	id := len(f.users) + 10
	f.users[login] = id
	return id, nil
}

func (f *fakeStore) GetRoutine(_ context.Context, userID int, routineID int64) (*models.Routine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.routines[routineID]
	if !ok || r.UserID != userID {
		return nil, fmt.Errorf("routine %d: %w", routineID, storage.ErrRoutineNotFound)
	}
	return &r, nil
}

func (f *fakeStore) ListRoutines(_ context.Context, userID int) ([]models.Routine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Routine
	for _, r := range f.routines {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) LastPerformance(_ context.Context, _ models.HistoryQuery) (models.PerformanceHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeStore) QueryWorkoutLogs(_ context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WorkoutLog
	for _, l := range f.logs {
		if l.UserID == userID && !l.StartedAt.Before(start) && l.StartedAt.Before(end) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) GetWorkoutLog(_ context.Context, logID int64, userID int) (*models.WorkoutLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.logs {
		if l.ID == logID && l.UserID == userID {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("log %d: %w", logID, storage.ErrWorkoutLogNotFound)
}

func (f *fakeStore) QueryImportLogs(_ context.Context, userID, limit int) ([]storage.ImportLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.ImportLog
	for _, l := range f.imports {
		if l.UserID == userID && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) GetLogStats(_ context.Context, userID int) (*storage.LogStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &storage.LogStats{LogsBySource: []storage.SourceStat{}}
	for _, l := range f.logs {
		if l.UserID == userID {
			stats.TotalLogs++
			stats.TotalSets += int64(len(l.Details))
		}
	}
	return stats, nil
}

func (f *fakeStore) GetTrainingSummary(_ context.Context, _, _ time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBucket = bucket
	return []storage.TrainingSummaryPeriod{{Period: "2026-03-01"}}, nil
}

func (f *fakeStore) CreateWorkoutLog(_ context.Context, row models.WorkoutLogRow) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	row.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, models.WorkoutLog{WorkoutLogRow: row})
	return row.ID, nil
}

func (f *fakeStore) CreateWorkoutLogDetails(_ context.Context, logID int64, rows []models.WorkoutLogDetailRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.logs {
		if f.logs[i].ID == logID {
			f.logs[i].Details = append(f.logs[i].Details, rows...)
			return nil
		}
	}
	return errors.New("unknown log")
}

type fakeImporter struct {
	body   string
	userID int
	err    error
}

func (f *fakeImporter) Ingest(_ context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	b, _ := io.ReadAll(r)
	f.body, f.userID = string(b), userID
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Result{SessionsReceived: 1, LogsInserted: 1, SetsInserted: 3}, nil
}

type fakeWhoIs struct {
	login, name string
	err         error
}

func (f fakeWhoIs) WhoIs(context.Context, string) (*apitype.WhoIsResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &apitype.WhoIsResponse{
		UserProfile: &tailcfg.UserProfile{LoginName: f.login, DisplayName: f.name},
	}, nil
}

type testEnv struct {
	srv     *Server
	store   *fakeStore
	kv      *localstore.MemoryStore
	mgr     *session.Manager
	intents *Intents
}

func newTestEnv(t *testing.T, d Deps) *testEnv {
	t.Helper()
	env := &testEnv{store: newFakeStore(), kv: localstore.NewMemory(), intents: NewIntents(discard)}
	env.mgr = session.NewManager(session.Config{
		Routines:         env.store,
		History:          env.store,
		Writer:           env.store,
		Store:            env.kv,
		Navigators:       env.intents.Navigator,
		Log:              discard,
		AutosaveDebounce: 10 * time.Millisecond,
	})
	t.Cleanup(env.mgr.Shutdown)

	d.Sessions = env.mgr
	d.Intents = env.intents
	d.Store = env.store
	d.Log = discard
	env.srv = New(d)
	return env
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}
