package session

import "github.com/claude/liftlog/internal/models"

// Composed is the single ordered view of a session: base exercises first in
// template order, then temporary exercises in insertion order.
type Composed struct {
	Base      []models.WorkoutExercise
	Temporary []models.WorkoutExercise
}

// Compose reads both stores. The returned slices are copies.
func Compose(base *BaseStore, temp *TemporaryStore) Composed {
	return Composed{Base: base.List(), Temporary: temp.List()}
}

func (c Composed) Len() int { return len(c.Base) + len(c.Temporary) }

// Exercises returns the flattened list.
func (c Composed) Exercises() []models.WorkoutExercise {
	out := make([]models.WorkoutExercise, 0, c.Len())
	out = append(out, c.Base...)
	return append(out, c.Temporary...)
}

// RefAt maps a position in the flattened list to the ref that addresses it.
func (c Composed) RefAt(index int) (ExerciseRef, bool) {
	switch {
	case index < 0 || index >= c.Len():
		return ExerciseRef{}, false
	case index < len(c.Base):
		return BaseRef(c.Base[index].ID), true
	default:
		return TemporaryRef(index - len(c.Base)), true
	}
}

// Refs returns the ref of every exercise in flattened order.
func (c Composed) Refs() []ExerciseRef {
	out := make([]ExerciseRef, 0, c.Len())
	for _, ex := range c.Base {
		out = append(out, BaseRef(ex.ID))
	}
	for i := range c.Temporary {
		out = append(out, TemporaryRef(i))
	}
	return out
}
