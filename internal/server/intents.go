package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/google/uuid"
)

// IntentKind names the screen a session asks the client to show.
type IntentKind string

const (
	IntentConfirmation   IntentKind = "confirmation"
	IntentBack           IntentKind = "back"
	IntentExercisePicker IntentKind = "exercise_picker"
)

// Intent is a navigation request waiting for the client. A confirmation
// intent holds the continuation that finishes the commit; it runs when the
// client acknowledges the transition.
type Intent struct {
	Kind         IntentKind               `json:"kind"`
	Confirmation *session.Confirmation    `json:"confirmation,omitempty"`
	Exercises    []models.WorkoutExercise `json:"exercises,omitempty"`
	RaisedAt     time.Time                `json:"raised_at"`

	done func()
}

// Intents holds at most one pending intent per session.
type Intents struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*Intent
	now     func() time.Time
	log     *slog.Logger
}

func NewIntents(log *slog.Logger) *Intents {
	return &Intents{pending: map[uuid.UUID]*Intent{}, now: time.Now, log: log}
}

// Navigator returns the session.Navigator of one session. Pass it to
// session.Config.Navigators.
func (in *Intents) Navigator(id uuid.UUID) session.Navigator {
	return &intentNavigator{intents: in, id: id}
}

// Peek returns a copy of the pending intent without consuming it.
func (in *Intents) Peek(id uuid.UUID) (Intent, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	it, ok := in.pending[id]
	if !ok {
		return Intent{}, false
	}
	return *it, true
}

// Complete consumes the pending intent and runs its continuation.
func (in *Intents) Complete(id uuid.UUID) (Intent, bool) {
	in.mu.Lock()
	it, ok := in.pending[id]
	delete(in.pending, id)
	in.mu.Unlock()
	if !ok {
		return Intent{}, false
	}
	if it.done != nil {
		it.done()
	}
	return *it, true
}

// Prune completes intents older than maxAge, so a client that never
// acknowledges a confirmation still gets its local state cleared.
func (in *Intents) Prune(maxAge time.Duration) int {
	cutoff := in.now().Add(-maxAge)
	in.mu.Lock()
	var stale []uuid.UUID
	for id, it := range in.pending {
		if it.RaisedAt.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	in.mu.Unlock()

	for _, id := range stale {
		in.Complete(id)
	}
	if len(stale) > 0 {
		in.log.Info("stale intents completed", "count", len(stale))
	}
	return len(stale)
}

// Run prunes every interval until ctx is done.
func (in *Intents) Run(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			in.Prune(maxAge)
		}
	}
}

// raise stores it, replacing and completing any earlier intent.
func (in *Intents) raise(id uuid.UUID, it *Intent) {
	it.RaisedAt = in.now()
	in.mu.Lock()
	prev := in.pending[id]
	in.pending[id] = it
	in.mu.Unlock()
	if prev != nil && prev.done != nil {
		prev.done()
	}
}

type intentNavigator struct {
	intents *Intents
	id      uuid.UUID
}

func (n *intentNavigator) ToConfirmation(_ context.Context, c session.Confirmation, done func()) {
	n.intents.raise(n.id, &Intent{Kind: IntentConfirmation, Confirmation: &c, done: done})
}

func (n *intentNavigator) Back(context.Context) {
	n.intents.raise(n.id, &Intent{Kind: IntentBack})
}

func (n *intentNavigator) OpenExercisePicker(_ context.Context, current []models.WorkoutExercise) {
	n.intents.raise(n.id, &Intent{Kind: IntentExercisePicker, Exercises: current})
}
