package session

import (
	"slices"

	"github.com/claude/liftlog/internal/models"
)

// BaseStore owns the template-derived exercises of a session. Exercises are
// keyed by catalog id and kept in template order; none is ever removed.
type BaseStore struct {
	exercises   map[string]models.WorkoutExercise
	order       []string
	initialized bool
}

func NewBaseStore() *BaseStore {
	return &BaseStore{exercises: map[string]models.WorkoutExercise{}}
}

// Initialized reports whether Seed or Restore has run.
func (s *BaseStore) Initialized() bool { return s.initialized }

// Seed adds every routine exercise not yet present, with planned sets and
// history hints. Exercises already present keep whatever the user entered,
// so repeated calls are idempotent and later calls only add. Returns the
// number of exercises added.
func (s *BaseStore) Seed(routine *models.Routine, history models.PerformanceHistory) int {
	s.initialized = true
	if routine == nil {
		return 0
	}
	added := 0
	for _, re := range routine.Exercises {
		if _, ok := s.exercises[re.ExerciseID]; ok {
			continue
		}
		s.exercises[re.ExerciseID] = exerciseFromTemplate(re, history)
		s.order = append(s.order, re.ExerciseID)
		added++
	}
	return added
}

func exerciseFromTemplate(re models.RoutineExercise, history models.PerformanceHistory) models.WorkoutExercise {
	n := re.PlannedSets
	if n < 1 {
		n = 1
	}
	ex := models.WorkoutExercise{
		ID:                re.ExerciseID,
		Name:              re.Name,
		MuscleGroupMain:   re.MuscleGroupMain,
		EquipmentRequired: re.EquipmentRequired,
		RestSeconds:       re.RestSeconds,
		Notes:             re.Notes,
		Sets:              make([]models.ExerciseSet, n),
	}
	for i := range ex.Sets {
		set := models.ExerciseSet{SetNumber: i + 1}
		if re.TargetRepsMin != nil {
			v := *re.TargetRepsMin
			set.TargetRepsMin = &v
		}
		if re.TargetRepsMax != nil {
			v := *re.TargetRepsMax
			set.TargetRepsMax = &v
		}
		applyHint(&set, ex.ID, history)
		ex.Sets[i] = set
	}
	return ex
}

func applyHint(set *models.ExerciseSet, exerciseID string, history models.PerformanceHistory) {
	p, ok := history.Lookup(exerciseID, set.SetNumber)
	if !ok {
		return
	}
	if p.Weight != nil {
		w := *p.Weight
		set.PreviousWeight = &w
	}
	if p.Reps != nil {
		r := *p.Reps
		set.PreviousReps = &r
	}
}

// Update replaces exercise id with fn applied to a copy of it. Unknown ids
// are a no-op and report false.
func (s *BaseStore) Update(id string, fn func(models.WorkoutExercise) models.WorkoutExercise) bool {
	ex, ok := s.exercises[id]
	if !ok {
		return false
	}
	s.exercises[id] = fn(ex.Clone())
	return true
}

// AppendSet adds one empty set to exercise id.
func (s *BaseStore) AppendSet(id string) bool {
	return s.Update(id, models.WorkoutExercise.AppendEmptySet)
}

// Get returns a copy of exercise id.
func (s *BaseStore) Get(id string) (models.WorkoutExercise, bool) {
	ex, ok := s.exercises[id]
	if !ok {
		return models.WorkoutExercise{}, false
	}
	return ex.Clone(), true
}

func (s *BaseStore) Len() int { return len(s.order) }

// List returns copies of all exercises in template order.
func (s *BaseStore) List() []models.WorkoutExercise {
	out := make([]models.WorkoutExercise, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.exercises[id].Clone())
	}
	return out
}

// Snapshot returns copies of the keyed exercises and their order.
func (s *BaseStore) Snapshot() (map[string]models.WorkoutExercise, []string) {
	m := make(map[string]models.WorkoutExercise, len(s.exercises))
	for id, ex := range s.exercises {
		m[id] = ex.Clone()
	}
	return m, append([]string(nil), s.order...)
}

// Restore replaces the store contents with a recovery snapshot and marks the
// store initialized. Ids in order without an exercise are dropped; exercises
// missing from order are appended sorted by id.
func (s *BaseStore) Restore(exercises map[string]models.WorkoutExercise, order []string) {
	s.exercises = make(map[string]models.WorkoutExercise, len(exercises))
	s.order = nil
	for _, id := range order {
		ex, ok := exercises[id]
		if !ok {
			continue
		}
		if _, dup := s.exercises[id]; dup {
			continue
		}
		s.exercises[id] = ex.Clone()
		s.order = append(s.order, id)
	}
	var missing []string
	for id := range exercises {
		if _, ok := s.exercises[id]; !ok {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	for _, id := range missing {
		s.exercises[id] = exercises[id].Clone()
		s.order = append(s.order, id)
	}
	s.initialized = true
}
