package models

import "testing"

func intPtr(v int) *int { return &v }

// TestWeightFloat verifies weight normalization, including in-progress
// trailing decimals and European commas.
func TestWeightFloat(t *testing.T) {
	cases := []struct {
		in     Weight
		want   float64
		wantOK bool
	}{
		{"", 0, false},
		{"   ", 0, false},
		{"12", 12, true},
		{"12.", 12, true},
		{"12.5", 12.5, true},
		{"102,5", 102.5, true},
		{".", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"0", 0, true},
	}
	for _, tc := range cases {
		got, ok := tc.in.Float()
		if ok != tc.wantOK {
			t.Errorf("Weight(%q).Float() ok = %v, want %v", tc.in, ok, tc.wantOK)
			continue
		}
		if got != tc.want {
			t.Errorf("Weight(%q).Float() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestWeightFromFloat verifies that round numbers format without decimals.
func TestWeightFromFloat(t *testing.T) {
	if got := WeightFromFloat(20); got != "20" {
		t.Errorf("WeightFromFloat(20) = %q, want %q", got, "20")
	}
	if got := WeightFromFloat(102.5); got != "102.5" {
		t.Errorf("WeightFromFloat(102.5) = %q, want %q", got, "102.5")
	}
}

// TestAppendEmptySetDensity verifies set numbers stay dense across appends
// and that the target range is carried from the previous set.
func TestAppendEmptySetDensity(t *testing.T) {
	ex := WorkoutExercise{
		ID: "bench_press",
		Sets: []ExerciseSet{
			{SetNumber: 1, TargetRepsMin: intPtr(8), TargetRepsMax: intPtr(12), Weight: "60", Reps: intPtr(10)},
		},
	}
	for i := 0; i < 4; i++ {
		ex = ex.AppendEmptySet()
	}
	if len(ex.Sets) != 5 {
		t.Fatalf("sets = %d, want 5", len(ex.Sets))
	}
	for i, s := range ex.Sets {
		if s.SetNumber != i+1 {
			t.Errorf("sets[%d].SetNumber = %d, want %d", i, s.SetNumber, i+1)
		}
	}
	last := ex.Sets[4]
	if last.TargetRepsMin == nil || *last.TargetRepsMin != 8 {
		t.Errorf("last.TargetRepsMin = %v, want 8", last.TargetRepsMin)
	}
	if last.TargetRepsMax == nil || *last.TargetRepsMax != 12 {
		t.Errorf("last.TargetRepsMax = %v, want 12", last.TargetRepsMax)
	}
	if last.HasValue() || last.PreviousWeight != nil || last.Notes != "" {
		t.Errorf("appended set should be empty, got %+v", last)
	}
}

// TestCloneIsDeep verifies that mutating a clone leaves the original intact.
func TestCloneIsDeep(t *testing.T) {
	orig := WorkoutExercise{ID: "squat", Sets: []ExerciseSet{{SetNumber: 1, Reps: intPtr(5)}}}
	cp := orig.Clone()
	*cp.Sets[0].Reps = 99
	cp.Sets[0].Weight = "100"
	if *orig.Sets[0].Reps != 5 {
		t.Errorf("orig reps = %d, want 5", *orig.Sets[0].Reps)
	}
	if orig.Sets[0].Weight != "" {
		t.Errorf("orig weight = %q, want empty", orig.Sets[0].Weight)
	}
}

// TestPerformanceHistoryLookup verifies set-indexed history access.
func TestPerformanceHistoryLookup(t *testing.T) {
	w := 80.0
	h := PerformanceHistory{}
	h.Add("deadlift", 2, SetPerformance{Weight: &w, Reps: intPtr(5)})

	if _, ok := h.Lookup("deadlift", 1); ok {
		t.Error("expected no entry for set 1")
	}
	p, ok := h.Lookup("deadlift", 2)
	if !ok {
		t.Fatal("expected entry for set 2")
	}
	if *p.Weight != 80 || *p.Reps != 5 {
		t.Errorf("lookup = %v/%v, want 80/5", *p.Weight, *p.Reps)
	}
	if _, ok := h.Lookup("squat", 1); ok {
		t.Error("expected no entry for unknown exercise")
	}
}
