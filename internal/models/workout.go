package models

import (
	"math"
	"strconv"
	"strings"
)

// Weight is a set weight exactly as the user typed it. It stays text while the
// session is live so an in-progress value such as "12." is not coerced; the
// empty string means absent.
type Weight string

// WeightFromFloat formats f without trailing zeros.
func WeightFromFloat(f float64) Weight {
	return Weight(strconv.FormatFloat(f, 'f', -1, 64))
}

// IsSet reports whether any weight text is present.
func (w Weight) IsSet() bool {
	return strings.TrimSpace(string(w)) != ""
}

// Float normalizes the weight to a number. "12." -> 12, "102,5" -> 102.5.
// Returns false for absent or unparsable values.
func (w Weight) Float() (float64, bool) {
	s := strings.TrimSpace(string(w))
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ExerciseSet is one planned or performed set within an exercise.
type ExerciseSet struct {
	SetNumber      int      `json:"set_number"`
	Weight         Weight   `json:"weight,omitempty"`
	Reps           *int     `json:"reps,omitempty"`
	Notes          string   `json:"notes"`
	PreviousWeight *float64 `json:"previous_weight,omitempty"`
	PreviousReps   *int     `json:"previous_reps,omitempty"`
	TargetRepsMin  *int     `json:"target_reps_min,omitempty"`
	TargetRepsMax  *int     `json:"target_reps_max,omitempty"`
}

// HasValue reports whether the user entered a weight or reps.
func (s ExerciseSet) HasValue() bool {
	return s.Weight.IsSet() || s.Reps != nil
}

// WorkoutExercise is one exercise within an active session.
type WorkoutExercise struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	MuscleGroupMain   string        `json:"muscle_group_main"`
	EquipmentRequired string        `json:"equipment_required"`
	RestSeconds       int           `json:"rest_seconds,omitempty"`
	Notes             string        `json:"notes"`
	Sets              []ExerciseSet `json:"sets"`
}

// Clone returns a deep copy so callers can't reach into store-owned slices.
func (e WorkoutExercise) Clone() WorkoutExercise {
	out := e
	out.Sets = make([]ExerciseSet, len(e.Sets))
	for i, s := range e.Sets {
		out.Sets[i] = s.clone()
	}
	return out
}

func (s ExerciseSet) clone() ExerciseSet {
	out := s
	out.Reps = cloneInt(s.Reps)
	out.PreviousReps = cloneInt(s.PreviousReps)
	out.TargetRepsMin = cloneInt(s.TargetRepsMin)
	out.TargetRepsMax = cloneInt(s.TargetRepsMax)
	if s.PreviousWeight != nil {
		w := *s.PreviousWeight
		out.PreviousWeight = &w
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// AppendEmptySet returns the exercise with one more set numbered len+1.
// The target rep range is copied from the previous set when present.
func (e WorkoutExercise) AppendEmptySet() WorkoutExercise {
	out := e.Clone()
	next := ExerciseSet{SetNumber: len(out.Sets) + 1}
	if n := len(out.Sets); n > 0 {
		prev := out.Sets[n-1]
		next.TargetRepsMin = cloneInt(prev.TargetRepsMin)
		next.TargetRepsMax = cloneInt(prev.TargetRepsMax)
	}
	out.Sets = append(out.Sets, next)
	return out
}

// HasAnyValue reports whether any set across exercises carries a value.
func HasAnyValue(exercises []WorkoutExercise) bool {
	for _, ex := range exercises {
		for _, s := range ex.Sets {
			if s.HasValue() {
				return true
			}
		}
	}
	return false
}
