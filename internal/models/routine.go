package models

import "time"

// Routine is a workout template with its planned exercises in order.
type Routine struct {
	ID                   int64             `json:"id"`
	UserID               int               `json:"user_id"`
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	EstimatedDurationMin int               `json:"estimated_duration_min"`
	CreatedAt            time.Time         `json:"created_at"`
	Exercises            []RoutineExercise `json:"exercises"`
}

// RoutineExercise is one planned exercise of a routine.
type RoutineExercise struct {
	ExerciseID        string `json:"exercise_id"`
	Name              string `json:"name"`
	MuscleGroupMain   string `json:"muscle_group_main"`
	EquipmentRequired string `json:"equipment_required"`
	Position          int    `json:"position"`
	PlannedSets       int    `json:"planned_sets"`
	RestSeconds       int    `json:"rest_seconds"`
	TargetRepsMin     *int   `json:"target_reps_min,omitempty"`
	TargetRepsMax     *int   `json:"target_reps_max,omitempty"`
	Notes             string `json:"notes"`
}

// HistoryScope selects how "most recent performance" is resolved.
type HistoryScope string

const (
	// ScopeRoutine reads the last committed log of the same routine only.
	ScopeRoutine HistoryScope = "routine"
	// ScopeGlobal reads, per exercise, the last committed log containing it.
	ScopeGlobal HistoryScope = "global"
)

// HistoryQuery parameterizes a historical performance read.
type HistoryQuery struct {
	Scope       HistoryScope
	UserID      int
	RoutineID   int64
	ExerciseIDs []string
}

// SetPerformance is the recorded weight/reps of one historical set.
type SetPerformance struct {
	Weight *float64 `json:"weight,omitempty"`
	Reps   *int     `json:"reps,omitempty"`
}

// PerformanceHistory maps exercise id -> set number -> recorded values.
type PerformanceHistory map[string]map[int]SetPerformance

// Lookup returns the recorded values for one set, if any.
func (h PerformanceHistory) Lookup(exerciseID string, setNumber int) (SetPerformance, bool) {
	sets, ok := h[exerciseID]
	if !ok {
		return SetPerformance{}, false
	}
	p, ok := sets[setNumber]
	return p, ok
}

// Add records one set's values, creating the inner map as needed.
func (h PerformanceHistory) Add(exerciseID string, setNumber int, p SetPerformance) {
	sets, ok := h[exerciseID]
	if !ok {
		sets = map[int]SetPerformance{}
		h[exerciseID] = sets
	}
	sets[setNumber] = p
}
