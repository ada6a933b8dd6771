package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/liftlog/internal/localstore"
	"github.com/claude/liftlog/internal/models"
)

// TemporaryKey is the local store key of a user's ad-hoc exercises for one
// routine. Scoping by routine keeps them from leaking into other routines.
func TemporaryKey(userID int, routineID int64) string {
	return fmt.Sprintf("temporary:%d:%d", userID, routineID)
}

// TemporaryStore owns exercises added during a session that are not part of
// the routine. The list is written to the local store after every mutation.
type TemporaryStore struct {
	kv    localstore.Store
	key   string
	items []models.WorkoutExercise
	log   *slog.Logger
}

func NewTemporaryStore(kv localstore.Store, userID int, routineID int64, log *slog.Logger) *TemporaryStore {
	return &TemporaryStore{kv: kv, key: TemporaryKey(userID, routineID), log: log}
}

// Load resumes the persisted list. A missing record is an empty list; a
// corrupt record is removed and treated as empty.
func (s *TemporaryStore) Load(ctx context.Context) error {
	data, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, localstore.ErrNotFound) {
		s.items = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading temporary exercises: %w", err)
	}
	var items []models.WorkoutExercise
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Warn("discarding unreadable temporary exercises", "key", s.key, "error", err)
		s.items = nil
		if err := s.kv.Remove(ctx, s.key); err != nil {
			return fmt.Errorf("removing corrupt temporary exercises: %w", err)
		}
		return nil
	}
	s.items = items
	return nil
}

// Add appends every candidate whose id is not already present, dropping
// duplicates within the batch too. A candidate with sets keeps them,
// renumbered from 1; otherwise it gets one empty set. Returns the number added.
func (s *TemporaryStore) Add(ctx context.Context, candidates []models.WorkoutExercise) (int, error) {
	present := make(map[string]bool, len(s.items)+len(candidates))
	for _, ex := range s.items {
		present[ex.ID] = true
	}
	added := 0
	for _, c := range candidates {
		if c.ID == "" || present[c.ID] {
			continue
		}
		present[c.ID] = true
		ex := c.Clone()
		if len(ex.Sets) == 0 {
			ex.Sets = []models.ExerciseSet{{SetNumber: 1}}
		}
		for i := range ex.Sets {
			ex.Sets[i].SetNumber = i + 1
		}
		s.items = append(s.items, ex)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, s.persist(ctx)
}

// Update replaces the exercise at index with fn applied to a copy of it.
// Out of range indexes are a no-op and report false.
func (s *TemporaryStore) Update(ctx context.Context, index int, fn func(models.WorkoutExercise) models.WorkoutExercise) (bool, error) {
	if index < 0 || index >= len(s.items) {
		return false, nil
	}
	s.items[index] = fn(s.items[index].Clone())
	return true, s.persist(ctx)
}

// AppendSet adds one empty set to the exercise at index.
func (s *TemporaryStore) AppendSet(ctx context.Context, index int) (bool, error) {
	return s.Update(ctx, index, models.WorkoutExercise.AppendEmptySet)
}

// Restore replaces the list, typically from a recovery snapshot.
func (s *TemporaryStore) Restore(ctx context.Context, items []models.WorkoutExercise) error {
	s.items = make([]models.WorkoutExercise, 0, len(items))
	for _, ex := range items {
		s.items = append(s.items, ex.Clone())
	}
	return s.persist(ctx)
}

// Clear wipes the list and its persisted record.
func (s *TemporaryStore) Clear(ctx context.Context) error {
	s.items = nil
	if err := s.kv.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("clearing temporary exercises: %w", err)
	}
	return nil
}

func (s *TemporaryStore) Len() int { return len(s.items) }

// List returns copies of the exercises in insertion order.
func (s *TemporaryStore) List() []models.WorkoutExercise {
	out := make([]models.WorkoutExercise, 0, len(s.items))
	for _, ex := range s.items {
		out = append(out, ex.Clone())
	}
	return out
}

// Has reports whether an exercise with id is present.
func (s *TemporaryStore) Has(id string) bool {
	for _, ex := range s.items {
		if ex.ID == id {
			return true
		}
	}
	return false
}

func (s *TemporaryStore) persist(ctx context.Context) error {
	if len(s.items) == 0 {
		if err := s.kv.Remove(ctx, s.key); err != nil {
			return fmt.Errorf("removing temporary exercises: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encoding temporary exercises: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("writing temporary exercises: %w", err)
	}
	return nil
}
