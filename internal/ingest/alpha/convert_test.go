package alpha

import (
	"strings"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

// TestExerciseID verifies names map to stable snake_case catalog ids.
func TestExerciseID(t *testing.T) {
	cases := map[string]string{
		"Hack Squats":                    "hack_squats",
		"Hyperextensions on Roman Chair": "hyperextensions_on_roman_chair",
		"Pull-Ups (Wide Grip)":           "pull_ups_wide_grip",
		"  Bench Press  ":                "bench_press",
		"Übung 2":                        "bung_2",
	}
	for in, want := range cases {
		if got := ExerciseID(in); got != want {
			t.Errorf("ExerciseID(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestConvertSkipsWarmups verifies warmups are dropped, working sets are
// renumbered from 1, and the log row carries the import source.
func TestConvertSkipsWarmups(t *testing.T) {
	sessions, err := Parse(strings.NewReader(sampleCSV), nil)
	if err != nil {
		t.Fatal(err)
	}
	c := Convert(sessions[1], 3, time.UTC, 8)

	if c.Log.Source != models.SourceAlpha {
		t.Errorf("source = %q, want %q", c.Log.Source, models.SourceAlpha)
	}
	if c.Log.RoutineID != nil {
		t.Errorf("routine id = %v, want nil", *c.Log.RoutineID)
	}
	if c.Log.UserID != 3 {
		t.Errorf("user id = %d, want 3", c.Log.UserID)
	}
	if c.Log.DurationMinutes != 72 || c.Log.EstimatedCalories != 576 {
		t.Errorf("duration/calories = %d/%d, want 72/576", c.Log.DurationMinutes, c.Log.EstimatedCalories)
	}
	if want := time.Date(2026, 2, 17, 0, 0, 0, 0, time.UTC); !c.Log.WorkoutDate.Equal(want) {
		t.Errorf("workout date = %v, want %v", c.Log.WorkoutDate, want)
	}
	if !c.Log.FinishedAt.Equal(c.Log.StartedAt.Add(72 * time.Minute)) {
		t.Errorf("finished = %v, want start + 72m", c.Log.FinishedAt)
	}

	if c.WarmupsSkipped != 3 {
		t.Errorf("warmups skipped = %d, want 3", c.WarmupsSkipped)
	}
	if len(c.Details) != 3 {
		t.Fatalf("details = %d, want 3", len(c.Details))
	}
	for i, d := range c.Details {
		if d.SetNumber != i+1 {
			t.Errorf("details[%d].SetNumber = %d, want %d", i, d.SetNumber, i+1)
		}
		if d.ExerciseID != "bench_press" {
			t.Errorf("details[%d].ExerciseID = %q", i, d.ExerciseID)
		}
	}
	if c.Details[0].WeightUsed != 102.5 || c.Details[0].RepsCompleted != 6 {
		t.Errorf("first set = %v x %d, want 102.5 x 6", c.Details[0].WeightUsed, c.Details[0].RepsCompleted)
	}
}

// TestConvertBodyweight verifies bodyweight-only sets survive the valid-set
// filter on reps alone and note the added load.
func TestConvertBodyweight(t *testing.T) {
	s := Session{
		Name:      "Core",
		StartedAt: time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC),
		Duration:  20 * time.Minute,
		Exercises: []Exercise{{
			Name: "Dips",
			Sets: []Set{
				{Number: 1, WeightKg: 0, IsBodyweightPlus: true, Reps: 12, RIR: 1},
				{Number: 2, WeightKg: 20, IsBodyweightPlus: true, Reps: 8, RIR: 0.5},
				{Number: 3, WeightKg: 0, Reps: 0},
			},
		}},
	}
	c := Convert(s, 1, time.UTC, 8)

	if len(c.Details) != 2 {
		t.Fatalf("details = %d, want 2", len(c.Details))
	}
	if c.SetsDropped != 1 {
		t.Errorf("dropped = %d, want 1", c.SetsDropped)
	}
	if got := c.Details[1].Notes; got != "bodyweight +20 kg; RIR 0.5" {
		t.Errorf("notes = %q", got)
	}
	if got := c.Details[0].Notes; got != "bodyweight +0 kg; RIR 1" {
		t.Errorf("notes = %q", got)
	}
}
