package session

import (
	"encoding/json"
	"testing"

	"github.com/claude/liftlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeight(t *testing.T) {
	cases := []struct {
		raw    string
		want   models.Weight
		wantOK bool
	}{
		{"12", "12", true},
		{"12.", "12.", true},
		{" 12.5 ", "12.5", true},
		{"102,5", "102,5", true},
		{".5", ".5", true},
		{"", "", false},
		{".", "", false},
		{"-5", "", false},
		{"12kg", "", false},
		{"1.2.3", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseWeight(tc.raw)
		assert.Equal(t, tc.wantOK, ok, "ParseWeight(%q) ok", tc.raw)
		assert.Equal(t, tc.want, got, "ParseWeight(%q)", tc.raw)
	}
}

func TestParseReps(t *testing.T) {
	assert.Equal(t, 10, *ParseReps("10"))
	assert.Equal(t, 0, *ParseReps(" 0 "))
	assert.Nil(t, ParseReps("-1"))
	assert.Nil(t, ParseReps("8.5"))
	assert.Nil(t, ParseReps("ten"))
	assert.Nil(t, ParseReps(""))
	assert.Equal(t, MaxReps, *ParseReps("2147483647"))
	assert.Nil(t, ParseReps("3000000000"))
}

func TestExerciseRef_JSON(t *testing.T) {
	data, err := json.Marshal([]ExerciseRef{BaseRef("squat"), TemporaryRef(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"base","id":"squat"},{"kind":"temporary","index":0}]`, string(data))

	var refs []ExerciseRef
	require.NoError(t, json.Unmarshal(data, &refs))
	assert.Equal(t, BaseRef("squat"), refs[0])
	assert.Equal(t, TemporaryRef(0), refs[1])

	var bad ExerciseRef
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"temporary"}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"base"}`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"other","id":"x"}`), &bad))
}

func TestComposed_RefAt(t *testing.T) {
	c := Composed{
		Base:      []models.WorkoutExercise{{ID: "bench_press"}, {ID: "overhead_press"}},
		Temporary: []models.WorkoutExercise{{ID: "curl"}},
	}
	cases := map[int]ExerciseRef{
		0: BaseRef("bench_press"),
		1: BaseRef("overhead_press"),
		2: TemporaryRef(0),
	}
	for i, want := range cases {
		got, ok := c.RefAt(i)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := c.RefAt(3)
	assert.False(t, ok)
	_, ok = c.RefAt(-1)
	assert.False(t, ok)
	assert.Equal(t, []ExerciseRef{BaseRef("bench_press"), BaseRef("overhead_press"), TemporaryRef(0)}, c.Refs())
}

func TestEdit_Apply(t *testing.T) {
	ex := models.WorkoutExercise{ID: "row", Sets: []models.ExerciseSet{{SetNumber: 1}}}

	ex = Edit{Ref: BaseRef("row"), Field: FieldWeight, Raw: "40."}.apply(ex)
	assert.Equal(t, models.Weight("40."), ex.Sets[0].Weight)

	ex = Edit{Ref: BaseRef("row"), Field: FieldWeight, Raw: "abc"}.apply(ex)
	assert.False(t, ex.Sets[0].Weight.IsSet())

	ex = Edit{Ref: BaseRef("row"), Field: FieldReps, Raw: "12"}.apply(ex)
	assert.Equal(t, 12, *ex.Sets[0].Reps)

	ex = Edit{Ref: BaseRef("row"), Field: FieldNotes, Raw: "slow eccentric"}.apply(ex)
	assert.Equal(t, "slow eccentric", ex.Sets[0].Notes)

	same := Edit{Ref: BaseRef("row"), SetIndex: 3, Field: FieldReps, Raw: "1"}.apply(ex)
	assert.Equal(t, ex, same)

	assert.Error(t, Edit{Ref: BaseRef("row"), Field: "tempo"}.Validate())
	assert.Error(t, Edit{Field: FieldReps}.Validate())
}
