package session

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/claude/liftlog/internal/models"
)

// RefKind tags which store an ExerciseRef addresses.
type RefKind int

const (
	RefBase RefKind = iota + 1
	RefTemporary
)

func (k RefKind) String() string {
	switch k {
	case RefBase:
		return "base"
	case RefTemporary:
		return "temporary"
	default:
		return "invalid"
	}
}

// ExerciseRef addresses one exercise of a session: a base exercise by catalog
// id, or a temporary exercise by its position in the temporary list.
type ExerciseRef struct {
	kind  RefKind
	id    string
	index int
}

// BaseRef addresses the base exercise with the given catalog id.
func BaseRef(id string) ExerciseRef { return ExerciseRef{kind: RefBase, id: id} }

// TemporaryRef addresses the temporary exercise at index.
func TemporaryRef(index int) ExerciseRef { return ExerciseRef{kind: RefTemporary, index: index} }

func (r ExerciseRef) Kind() RefKind { return r.kind }
func (r ExerciseRef) ID() string    { return r.id }
func (r ExerciseRef) Index() int    { return r.index }

func (r ExerciseRef) String() string {
	switch r.kind {
	case RefBase:
		return "base:" + r.id
	case RefTemporary:
		return "temporary:" + strconv.Itoa(r.index)
	default:
		return "invalid"
	}
}

type refJSON struct {
	Kind  string `json:"kind"`
	ID    string `json:"id,omitempty"`
	Index *int   `json:"index,omitempty"`
}

func (r ExerciseRef) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case RefBase:
		return json.Marshal(refJSON{Kind: "base", ID: r.id})
	case RefTemporary:
		i := r.index
		return json.Marshal(refJSON{Kind: "temporary", Index: &i})
	default:
		return nil, fmt.Errorf("marshaling invalid exercise ref")
	}
}

func (r *ExerciseRef) UnmarshalJSON(data []byte) error {
	var v refJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Kind {
	case "base":
		if v.ID == "" {
			return fmt.Errorf("base ref requires id")
		}
		*r = BaseRef(v.ID)
	case "temporary":
		if v.Index == nil || *v.Index < 0 {
			return fmt.Errorf("temporary ref requires a non-negative index")
		}
		*r = TemporaryRef(*v.Index)
	default:
		return fmt.Errorf("unknown ref kind %q", v.Kind)
	}
	return nil
}

// Field names an editable set field.
type Field string

const (
	FieldWeight Field = "weight"
	FieldReps   Field = "reps"
	FieldNotes  Field = "notes"
)

// Edit is one user input event targeting a single set.
type Edit struct {
	Ref      ExerciseRef `json:"ref"`
	SetIndex int         `json:"set_index"`
	Field    Field       `json:"field"`
	Raw      string      `json:"value"`
}

// Validate rejects edits that can never apply.
func (e Edit) Validate() error {
	switch e.Field {
	case FieldWeight, FieldReps, FieldNotes:
	default:
		return fmt.Errorf("unknown field %q", e.Field)
	}
	if e.Ref.Kind() != RefBase && e.Ref.Kind() != RefTemporary {
		return fmt.Errorf("edit has no exercise ref")
	}
	if e.SetIndex < 0 {
		return fmt.Errorf("negative set index %d", e.SetIndex)
	}
	return nil
}

// apply returns ex with the edit applied. An out of range set index leaves
// ex unchanged.
func (e Edit) apply(ex models.WorkoutExercise) models.WorkoutExercise {
	if e.SetIndex < 0 || e.SetIndex >= len(ex.Sets) {
		return ex
	}
	set := &ex.Sets[e.SetIndex]
	switch e.Field {
	case FieldWeight:
		set.Weight, _ = ParseWeight(e.Raw)
	case FieldReps:
		set.Reps = ParseReps(e.Raw)
	case FieldNotes:
		set.Notes = e.Raw
	}
	return ex
}

var weightPattern = regexp.MustCompile(`^(\d+([.,]\d*)?|[.,]\d+)$`)

// ParseWeight keeps the text as typed, so "12." survives until the user
// finishes typing. Non-numeric input yields an absent weight and false.
func ParseWeight(raw string) (models.Weight, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || !weightPattern.MatchString(s) {
		return "", false
	}
	return models.Weight(s), true
}

// MaxReps is the largest rep count a detail row can hold.
const MaxReps = math.MaxInt32

// ParseReps accepts integers in [0, MaxReps] only. Anything else is absent.
func ParseReps(raw string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > MaxReps {
		return nil
	}
	return &n
}
