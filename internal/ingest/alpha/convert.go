package alpha

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
)

// ExerciseID derives a catalog id from an exercise name:
// "Hack Squats" -> "hack_squats", "Hyperextensions (45°)" -> "hyperextensions_45".
func ExerciseID(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Converted is a session mapped onto the workout log tables.
type Converted struct {
	Log            models.WorkoutLogRow
	Details        []models.WorkoutLogDetailRow
	WarmupsSkipped int
	SetsDropped    int
}

// Convert maps a parsed session to a log row and detail rows. Warmups are
// skipped; working sets are renumbered from 1 per exercise and filtered with
// the same rule a live session applies at commit.
func Convert(s Session, userID int, loc *time.Location, caloriesPerMinute float64) Converted {
	minutes := session.DurationMinutes(s.StartedAt, s.StartedAt.Add(s.Duration))
	c := Converted{
		Log: models.WorkoutLogRow{
			UserID:            userID,
			RoutineName:       s.Name,
			DurationMinutes:   minutes,
			EstimatedCalories: session.EstimateCalories(minutes, caloriesPerMinute),
			WorkoutDate:       session.WorkoutDay(s.StartedAt, loc),
			StartedAt:         s.StartedAt,
			FinishedAt:        s.StartedAt.Add(s.Duration),
			Source:            models.SourceAlpha,
		},
	}

	for _, ex := range s.Exercises {
		id := ExerciseID(ex.Name)
		n := 0
		for _, set := range ex.Sets {
			if set.IsWarmup {
				c.WarmupsSkipped++
				continue
			}
			n++
			reps := set.Reps
			es := models.ExerciseSet{SetNumber: n, Weight: models.WeightFromFloat(set.WeightKg), Reps: &reps}
			if !session.ValidSet(es) {
				c.SetsDropped++
				continue
			}
			c.Details = append(c.Details, models.WorkoutLogDetailRow{
				ExerciseID:    id,
				ExerciseName:  ex.Name,
				SetNumber:     n,
				WeightUsed:    set.WeightKg,
				RepsCompleted: set.Reps,
				Notes:         setNotes(set),
			})
		}
	}
	return c
}

func setNotes(s Set) string {
	var parts []string
	if s.IsBodyweightPlus {
		parts = append(parts, fmt.Sprintf("bodyweight +%g kg", s.WeightKg))
	}
	parts = append(parts, fmt.Sprintf("RIR %g", s.RIR))
	return strings.Join(parts, "; ")
}
