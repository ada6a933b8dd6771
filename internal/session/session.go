package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle position of a session.
type State string

const (
	StateLoading         State = "loading"
	StateRecoveryPending State = "recovery_pending"
	StateActive          State = "active"
	StateNotFound        State = "not_found"
	StateCommitting      State = "committing"
	StateCommitted       State = "committed"
	StateExitConfirming  State = "exit_confirming"
	StateDiscarded       State = "discarded"
)

// RecoveryDecision answers a recovery offer.
type RecoveryDecision string

const (
	DecisionContinue RecoveryDecision = "continue"
	DecisionDiscard  RecoveryDecision = "discard"
)

// RecoveryOffer describes an interrupted session found at open.
type RecoveryOffer struct {
	SessionID      uuid.UUID `json:"session_id"`
	RoutineID      int64     `json:"routine_id"`
	RoutineName    string    `json:"routine_name"`
	StartTime      time.Time `json:"start_time"`
	LastSaved      time.Time `json:"last_saved"`
	ExerciseCount  int       `json:"exercise_count"`
	SetsWithValues int       `json:"sets_with_values"`
}

// ExerciseView is one exercise of a View with the ref that addresses it.
type ExerciseView struct {
	Ref ExerciseRef `json:"ref"`
	models.WorkoutExercise
}

// View is a read-only copy of a session's state.
type View struct {
	ID          uuid.UUID      `json:"id"`
	State       State          `json:"state"`
	RoutineID   int64          `json:"routine_id"`
	RoutineName string         `json:"routine_name,omitempty"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	BaseCount   int            `json:"base_count"`
	Exercises   []ExerciseView `json:"exercises"`
	Recovery    *RecoveryOffer `json:"recovery,omitempty"`
	Result      *CommitResult  `json:"result,omitempty"`
}

// deps are the collaborators shared by all sessions of a Manager.
type deps struct {
	routines  RoutineReader
	history   HistoryReader
	committer *Committer
	cfg       Config
	metrics   *metrics.Manager
	log       *slog.Logger
	now       func() time.Time
}

// Session is one live workout. All mutations are serialized by mu; loader and
// commit I/O run outside it and their results are applied only if the
// context is still live and the session still accepts them.
type Session struct {
	id       uuid.UUID
	userID   int
	d        *deps
	nav      Navigator
	cache    *RecoveryCache
	autosave *Autosaver
	log      *slog.Logger
	cleanup  sync.Once

	mu            sync.Mutex
	state         State
	routineID     int64
	routine       *models.Routine
	orphaned      bool
	routineLoaded bool
	historyLoaded bool
	history       models.PerformanceHistory
	startTime     time.Time
	base          *BaseStore
	temp          *TemporaryStore
	pending       *models.SessionSnapshot
	result        *CommitResult
	lastActive    time.Time
	closed        bool
}

func newSession(d *deps, userID int, routineID int64) *Session {
	id := uuid.New()
	log := d.log.With("session_id", id, "user_id", userID)
	s := &Session{
		id:         id,
		userID:     userID,
		d:          d,
		nav:        d.cfg.Navigators(id),
		log:        log,
		cache:      NewRecoveryCache(d.cfg.Store, userID, d.cfg.RecoveryStaleness, d.now, d.metrics, log),
		state:      StateLoading,
		routineID:  routineID,
		base:       NewBaseStore(),
		temp:       NewTemporaryStore(d.cfg.Store, userID, routineID, log),
		lastActive: d.now(),
	}
	s.autosave = NewAutosaver(d.cfg.AutosaveDebounce, s.saveSnapshot)
	return s
}

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) UserID() int   { return s.userID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// open checks the recovery slot and either offers recovery or starts loading.
func (s *Session) open(ctx context.Context) error {
	snap, err := s.cache.Load(ctx)
	if err != nil {
		s.log.Warn("recovery cache unavailable", "error", err)
	}
	if snap != nil {
		s.mu.Lock()
		s.pending = snap
		s.state = StateRecoveryPending
		s.mu.Unlock()
		s.d.metrics.CounterRecovery.WithLabelValues(metrics.RecoveryOffered).Inc()
		s.log.Info("recovery offered", "routine_id", snap.RoutineID, "last_saved", snap.LastSaved)
		return nil
	}
	return s.start(ctx)
}

// start resumes same-routine temporary exercises and runs both loaders.
func (s *Session) start(ctx context.Context) error {
	s.mu.Lock()
	if err := s.temp.Load(ctx); err != nil {
		s.log.Warn("temporary exercises unavailable", "error", err)
	}
	routineID := s.routineID
	s.mu.Unlock()

	err := s.load(ctx, routineID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// load runs the routine and history loaders concurrently. Seeding happens in
// whichever apply call observes both readiness flags set. Global history
// needs the routine's exercise ids, so it runs after the routine.
func (s *Session) load(ctx context.Context, routineID int64) error {
	g, gctx := errgroup.WithContext(ctx)
	scope := s.d.cfg.HistoryScope

	g.Go(func() error {
		r, err := s.d.routines.GetRoutine(gctx, s.userID, routineID)
		if err := s.applyRoutine(gctx, routineID, r, err); err != nil {
			return err
		}
		if scope == models.ScopeGlobal {
			ids := exerciseIDs(r)
			h, err := s.d.history.LastPerformance(gctx, models.HistoryQuery{
				Scope: models.ScopeGlobal, UserID: s.userID, ExerciseIDs: ids,
			})
			return s.applyHistory(gctx, h, err)
		}
		return nil
	})
	if scope != models.ScopeGlobal {
		g.Go(func() error {
			h, err := s.d.history.LastPerformance(gctx, models.HistoryQuery{
				Scope: models.ScopeRoutine, UserID: s.userID, RoutineID: routineID,
			})
			return s.applyHistory(gctx, h, err)
		})
	}
	return g.Wait()
}

// usableLocked rejects results that arrive after cancellation or close.
func (s *Session) usableLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("session closed: %w", ErrInvalidState)
	}
	return nil
}

func (s *Session) applyRoutine(ctx context.Context, routineID int64, r *models.Routine, loadErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(ctx); err != nil {
		return err
	}

	switch {
	case errors.Is(loadErr, storage.ErrRoutineNotFound):
		s.state = StateNotFound
		s.log.Info("routine not found", "routine_id", routineID)
		return fmt.Errorf("routine %d: %w", routineID, ErrNotFound)
	case loadErr != nil:
		s.d.metrics.CounterLoadErrors.WithLabelValues("routine").Inc()
		s.log.Warn("routine load failed, continuing without template",
			"routine_id", routineID, "error", fmt.Errorf("%w: %v", ErrLoadFailed, loadErr))
		r = &models.Routine{ID: routineID}
	}

	s.routine = r
	s.routineLoaded = true
	s.trySeedLocked()
	return nil
}

func (s *Session) applyHistory(ctx context.Context, h models.PerformanceHistory, loadErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(ctx); err != nil {
		return err
	}

	if loadErr != nil {
		s.d.metrics.CounterLoadErrors.WithLabelValues("history").Inc()
		s.log.Warn("history load failed, continuing without hints",
			"error", fmt.Errorf("%w: %v", ErrLoadFailed, loadErr))
		h = nil
	}
	if h == nil {
		h = models.PerformanceHistory{}
	}
	s.history = h
	s.historyLoaded = true
	s.trySeedLocked()
	return nil
}

func (s *Session) trySeedLocked() {
	if !s.routineLoaded || !s.historyLoaded || s.base.Initialized() || s.state != StateLoading {
		return
	}
	n := s.base.Seed(s.routine, s.history)
	if s.startTime.IsZero() {
		s.startTime = s.d.now()
	}
	s.state = StateActive
	s.log.Info("session active", "routine_id", s.routineID, "exercises", n, "temporary", s.temp.Len())
}

// ResolveRecovery answers the recovery offer. Continue re-enters the
// snapshot's routine with its original start time and adds exercises the
// template gained since, with history hints; Discard wipes the snapshot and
// starts the requested routine fresh.
func (s *Session) ResolveRecovery(ctx context.Context, decision RecoveryDecision) error {
	s.mu.Lock()
	if s.state != StateRecoveryPending {
		st := s.state
		s.mu.Unlock()
		return invalidState("resolve recovery", st)
	}
	snap := s.pending

	switch decision {
	case DecisionContinue:
		s.pending = nil
		s.routineID = snap.RoutineID
		s.routine = &models.Routine{ID: snap.RoutineID, Name: snap.RoutineName}
		s.temp = NewTemporaryStore(s.d.cfg.Store, s.userID, snap.RoutineID, s.log)
		s.base.Restore(snap.BaseExercises, snap.BaseOrder)
		if err := s.temp.Restore(ctx, snap.TemporaryExercises); err != nil {
			s.log.Warn("persisting restored temporary exercises", "error", err)
		}
		s.startTime = snap.StartTime
		s.routineLoaded, s.historyLoaded = true, true
		s.state = StateActive
		s.lastActive = s.d.now()
		s.mu.Unlock()

		s.d.metrics.CounterRecovery.WithLabelValues(metrics.RecoveryContinue).Inc()
		s.log.Info("session resumed", "routine_id", snap.RoutineID, "previous_session_id", snap.SessionID)
		if err := s.RefreshTemplate(ctx); err != nil {
			s.log.Warn("refreshing resumed routine", "error", err)
		}
		return nil

	case DecisionDiscard:
		s.pending = nil
		err := multierr.Combine(
			s.cache.Clear(ctx),
			NewTemporaryStore(s.d.cfg.Store, s.userID, snap.RoutineID, s.log).Clear(ctx),
		)
		s.state = StateLoading
		s.mu.Unlock()

		if err != nil {
			s.log.Warn("discarding recovery snapshot", "error", err)
		}
		s.d.metrics.CounterRecovery.WithLabelValues(metrics.RecoveryDiscard).Inc()
		return s.start(ctx)

	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown recovery decision %q: %w", decision, ErrInvalidState)
	}
}

// RefreshTemplate reloads the routine and adds any exercise not yet in the
// session. Entered values are never touched. If the routine was deleted the
// session continues and commits without a routine reference.
func (s *Session) RefreshTemplate(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateActive {
		st := s.state
		s.mu.Unlock()
		return invalidState("refresh template", st)
	}
	routineID := s.routineID
	needHistory := s.history == nil
	s.mu.Unlock()

	r, err := s.d.routines.GetRoutine(ctx, s.userID, routineID)
	var history models.PerformanceHistory
	if err == nil && needHistory {
		history = s.fetchHistory(ctx, routineID, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(ctx); err != nil {
		return err
	}
	if errors.Is(err, storage.ErrRoutineNotFound) {
		s.orphaned = true
		return fmt.Errorf("routine %d: %w", routineID, ErrNotFound)
	}
	if err != nil {
		s.d.metrics.CounterLoadErrors.WithLabelValues("routine").Inc()
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	if s.state != StateActive {
		return invalidState("refresh template", s.state)
	}

	if s.history == nil && history != nil {
		s.history = history
	}
	s.routine = r
	if added := s.base.Seed(r, s.history); added > 0 {
		s.log.Info("template refreshed", "added", added)
		s.autosave.Schedule()
	}
	return nil
}

// fetchHistory reads the hints for a routine in the configured scope. A
// failed read degrades to empty history.
func (s *Session) fetchHistory(ctx context.Context, routineID int64, r *models.Routine) models.PerformanceHistory {
	q := models.HistoryQuery{Scope: models.ScopeRoutine, UserID: s.userID, RoutineID: routineID}
	if s.d.cfg.HistoryScope == models.ScopeGlobal {
		q = models.HistoryQuery{Scope: models.ScopeGlobal, UserID: s.userID, ExerciseIDs: exerciseIDs(r)}
	}
	h, err := s.d.history.LastPerformance(ctx, q)
	if err != nil {
		s.d.metrics.CounterLoadErrors.WithLabelValues("history").Inc()
		s.log.Warn("history load failed, continuing without hints",
			"routine_id", routineID, "error", fmt.Errorf("%w: %v", ErrLoadFailed, err))
		return models.PerformanceHistory{}
	}
	if h == nil {
		h = models.PerformanceHistory{}
	}
	return h
}

// mutate runs fn on an active session and schedules an autosave.
func (s *Session) mutate(op string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%s: session closed: %w", op, ErrInvalidState)
	}
	if s.state != StateActive {
		return invalidState(op, s.state)
	}
	s.lastActive = s.d.now()
	fn()
	s.autosave.Schedule()
	return nil
}

// ApplyEdit routes an edit to the store its ref addresses. Edits addressing
// an unknown exercise or set are no-ops.
func (s *Session) ApplyEdit(ctx context.Context, e Edit) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEdit, err)
	}
	return s.mutate("edit", func() {
		switch e.Ref.Kind() {
		case RefBase:
			s.base.Update(e.Ref.ID(), e.apply)
		case RefTemporary:
			if _, err := s.temp.Update(ctx, e.Ref.Index(), e.apply); err != nil {
				s.log.Warn("persisting temporary exercises", "error", err)
			}
		}
	})
}

// AppendSet adds an empty set to the referenced exercise.
func (s *Session) AppendSet(ctx context.Context, ref ExerciseRef) error {
	return s.mutate("append set", func() {
		switch ref.Kind() {
		case RefBase:
			s.base.AppendSet(ref.ID())
		case RefTemporary:
			if _, err := s.temp.AppendSet(ctx, ref.Index()); err != nil {
				s.log.Warn("persisting temporary exercises", "error", err)
			}
		}
	})
}

// RefAt maps a flattened exercise position to its ref. Positions only exist
// on an active session; an out-of-range index is an invalid edit.
func (s *Session) RefAt(index int) (ExerciseRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return ExerciseRef{}, invalidState("resolve exercise index", s.state)
	}
	ref, ok := Compose(s.base, s.temp).RefAt(index)
	if !ok {
		return ExerciseRef{}, fmt.Errorf("exercise index %d out of range: %w", index, ErrInvalidEdit)
	}
	return ref, nil
}

// Composed returns the current composed exercise lists.
func (s *Session) Composed() Composed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Compose(s.base, s.temp)
}

// OpenExercisePicker raises the picker intent with the current exercises.
func (s *Session) OpenExercisePicker(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateActive {
		st := s.state
		s.mu.Unlock()
		return invalidState("open exercise picker", st)
	}
	current := Compose(s.base, s.temp).Exercises()
	s.mu.Unlock()

	s.nav.OpenExercisePicker(ctx, current)
	return nil
}

// AddTemporaryExercises adds the picked exercises not already present, with
// global history hints for their sets. Returns the number added.
func (s *Session) AddTemporaryExercises(ctx context.Context, picked []models.WorkoutExercise) (int, error) {
	s.mu.Lock()
	if s.state != StateActive {
		st := s.state
		s.mu.Unlock()
		return 0, invalidState("add exercises", st)
	}
	var ids []string
	for _, p := range picked {
		if p.ID != "" && !s.temp.Has(p.ID) {
			ids = append(ids, p.ID)
		}
	}
	s.mu.Unlock()

	var history models.PerformanceHistory
	if len(ids) > 0 {
		h, err := s.d.history.LastPerformance(ctx, models.HistoryQuery{
			Scope: models.ScopeGlobal, UserID: s.userID, ExerciseIDs: ids,
		})
		if err != nil {
			s.d.metrics.CounterLoadErrors.WithLabelValues("history").Inc()
			s.log.Warn("history load failed for added exercises",
				"error", fmt.Errorf("%w: %v", ErrLoadFailed, err))
		} else {
			history = h
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(ctx); err != nil {
		return 0, err
	}
	if s.state != StateActive {
		return 0, invalidState("add exercises", s.state)
	}

	candidates := make([]models.WorkoutExercise, 0, len(picked))
	for _, p := range picked {
		c := p.Clone()
		if len(c.Sets) == 0 {
			c.Sets = []models.ExerciseSet{{}}
		}
		for i := range c.Sets {
			c.Sets[i].SetNumber = i + 1
			applyHint(&c.Sets[i], c.ID, history)
		}
		candidates = append(candidates, c)
	}

	added, err := s.temp.Add(ctx, candidates)
	if err != nil {
		s.log.Warn("persisting temporary exercises", "error", err)
	}
	if added > 0 {
		s.lastActive = s.d.now()
		s.autosave.Schedule()
	}
	return added, nil
}

// Finish commits the session. On failure the session returns to active with
// its data intact. On success the navigator receives the confirmation and a
// continuation that clears the temporary exercises and the recovery slot.
func (s *Session) Finish(ctx context.Context, notes string) (*Confirmation, error) {
	s.mu.Lock()
	if s.state != StateActive {
		st := s.state
		s.mu.Unlock()
		return nil, invalidState("finish", st)
	}
	if s.routine == nil {
		s.mu.Unlock()
		return nil, ErrRoutineMissing
	}
	in := CommitInput{
		UserID:      s.userID,
		RoutineName: s.routine.Name,
		StartTime:   s.startTime,
		Notes:       notes,
		Exercises:   Compose(s.base, s.temp).Exercises(),
	}
	if !s.orphaned {
		id := s.routineID
		in.RoutineID = &id
	}
	s.state = StateCommitting
	s.mu.Unlock()

	res, err := s.d.committer.Commit(ctx, in)

	s.mu.Lock()
	if err != nil {
		if s.state == StateCommitting {
			s.state = StateActive
		}
		s.mu.Unlock()
		return nil, err
	}
	s.state = StateCommitted
	s.result = res
	s.autosave.Stop()
	conf := Confirmation{
		SessionID:         s.id,
		LogID:             res.LogID,
		RoutineName:       in.RoutineName,
		WorkoutDate:       res.WorkoutDate,
		DurationMinutes:   res.DurationMinutes,
		EstimatedCalories: res.EstimatedCalories,
		SetsLogged:        res.SetsLogged,
		SetsDropped:       res.SetsDropped,
	}
	s.mu.Unlock()

	s.log.Info("workout committed", "log_id", res.LogID, "sets", res.SetsLogged, "duration_min", res.DurationMinutes)
	s.nav.ToConfirmation(ctx, conf, s.completeCommit)
	return &conf, nil
}

// completeCommit tears down local state after the confirmation transition.
// It runs at most once.
func (s *Session) completeCommit() {
	s.cleanup.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.mu.Lock()
		err := multierr.Combine(s.temp.Clear(ctx), s.cache.Clear(ctx))
		s.mu.Unlock()
		if err != nil {
			s.log.Error("clearing committed session state", "error", err)
		}
	})
}

// RequestExit enters the discard confirmation gate. A not-found session has
// nothing to discard and navigates back directly.
func (s *Session) RequestExit(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateActive:
		s.state = StateExitConfirming
		s.mu.Unlock()
		return nil
	case StateNotFound:
		s.mu.Unlock()
		s.nav.Back(ctx)
		return nil
	default:
		st := s.state
		s.mu.Unlock()
		return invalidState("request exit", st)
	}
}

// CancelExit leaves the gate and returns to the active session.
func (s *Session) CancelExit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateExitConfirming {
		return invalidState("cancel exit", s.state)
	}
	s.state = StateActive
	return nil
}

// ConfirmExit discards the session: autosave stops, temporary exercises and
// the recovery slot are cleared, and the navigator goes back.
func (s *Session) ConfirmExit(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateExitConfirming {
		st := s.state
		s.mu.Unlock()
		return invalidState("confirm exit", st)
	}
	s.autosave.Stop()
	err := multierr.Combine(s.temp.Clear(ctx), s.cache.Clear(ctx))
	s.state = StateDiscarded
	s.mu.Unlock()

	if err != nil {
		s.log.Error("clearing discarded session state", "error", err)
	}
	s.log.Info("session discarded")
	s.nav.Back(ctx)
	return nil
}

// saveSnapshot is the autosave callback. It writes only while the session is
// live and at least one set carries a value.
func (s *Session) saveSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	switch s.state {
	case StateActive, StateCommitting, StateExitConfirming:
	default:
		return
	}

	composed := Compose(s.base, s.temp)
	if !models.HasAnyValue(composed.Exercises()) {
		s.d.metrics.CounterAutosaves.WithLabelValues(metrics.AutosaveSkipped).Inc()
		return
	}

	baseMap, order := s.base.Snapshot()
	snap := models.SessionSnapshot{
		SessionID:          s.id,
		RoutineID:          s.routineID,
		StartTime:          s.startTime,
		BaseExercises:      baseMap,
		BaseOrder:          order,
		TemporaryExercises: composed.Temporary,
	}
	if s.routine != nil {
		snap.RoutineName = s.routine.Name
	}
	if err := s.cache.Save(ctx, snap); err != nil {
		s.d.metrics.CounterAutosaves.WithLabelValues(metrics.AutosaveError).Inc()
		s.log.Warn("autosave failed", "error", err)
		return
	}
	s.d.metrics.CounterAutosaves.WithLabelValues(metrics.AutosaveSaved).Inc()
}

// View returns a copy of the session for display.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:        s.id,
		State:     s.state,
		RoutineID: s.routineID,
		Result:    s.result,
		Exercises: []ExerciseView{},
	}
	if s.routine != nil {
		v.RoutineName = s.routine.Name
	}
	if !s.startTime.IsZero() {
		t := s.startTime
		v.StartTime = &t
	}
	if s.pending != nil {
		v.Recovery = offerFrom(s.pending)
	}

	composed := Compose(s.base, s.temp)
	v.BaseCount = len(composed.Base)
	refs := composed.Refs()
	for i, ex := range composed.Exercises() {
		v.Exercises = append(v.Exercises, ExerciseView{Ref: refs[i], WorkoutExercise: ex})
	}
	return v
}

func offerFrom(snap *models.SessionSnapshot) *RecoveryOffer {
	o := &RecoveryOffer{
		SessionID:     snap.SessionID,
		RoutineID:     snap.RoutineID,
		RoutineName:   snap.RoutineName,
		StartTime:     snap.StartTime,
		LastSaved:     snap.LastSaved,
		ExerciseCount: len(snap.BaseExercises) + len(snap.TemporaryExercises),
	}
	count := func(ex models.WorkoutExercise) {
		for _, set := range ex.Sets {
			if set.HasValue() {
				o.SetsWithValues++
			}
		}
	}
	for _, ex := range snap.BaseExercises {
		count(ex)
	}
	for _, ex := range snap.TemporaryExercises {
		count(ex)
	}
	return o
}

// RoutineID returns the routine the session runs, which after a resumed
// recovery is the snapshot's routine.
func (s *Session) RoutineID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.routineID
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.d.now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// live reports whether the session still holds unsaved work.
func (s *Session) live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateLoading, StateRecoveryPending, StateActive, StateCommitting, StateExitConfirming:
		return true
	default:
		return false
	}
}

// retire saves pending work to the recovery slot and closes the session.
func (s *Session) retire() {
	s.autosave.Stop()
	s.saveSnapshot()
	s.close()
}

// close stops autosave, waits for a running save, and finishes the cleanup
// of a committed session whose transition was never acknowledged.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	committed := s.state == StateCommitted
	s.mu.Unlock()

	s.autosave.Stop()
	s.autosave.Wait()
	if committed {
		s.completeCommit()
	}
}
