package transform_test

import (
	"testing"

	"github.com/shodgson/eddytor/model"
	. "github.com/shodgson/eddytor/transform"
	"github.com/stretchr/testify/assert"
)

func TestReplaceAround(t *testing.T) {
	testDoc := doc(p("Ma super note")).Node

	frag := model.NewFragment([]*model.Node{h1().Node})
	slice := model.NewSlice(frag, 0, 0)
	step := NewReplaceAroundStep(0, 15, 1, 14, slice, 1, true)

	result := step.Apply(testDoc)
	assert.Empty(t, result.Failed)
	assert.True(t, result.Doc.Eq(doc(h1("Ma super note")).Node))

	back := step.Invert(testDoc).Apply(result.Doc)
	assert.Empty(t, back.Failed)
	assert.True(t, back.Doc.Eq(testDoc))
}

func TestReplaceTwice(t *testing.T) {
	textSlice := func(txt string) *model.Slice {
		if txt == "" {
			return model.EmptySlice
		}
		return model.NewSlice(model.NewFragment([]*model.Node{schema.Text(txt)}), 0, 0)
	}

	yes := func(from1, to1 int, txt1, expected1 string, from2, to2 int, txt2, expected2 string) {
		testDoc := doc(p("Numéro")).Node

		step1 := NewReplaceStep(from1, to1, textSlice(txt1), false)
		result := step1.Apply(testDoc)
		assert.Empty(t, result.Failed)
		assert.Equal(t, expected1, result.Doc.FirstChild().TextContent())

		step2 := NewReplaceStep(from2, to2, textSlice(txt2), false)
		result = step2.Apply(result.Doc)
		assert.Empty(t, result.Failed)
		assert.Equal(t, expected2, result.Doc.FirstChild().TextContent())
	}

	// Double backspace
	yes(6, 7, "", "Numér", 5, 6, "", "Numé")

	// An emoji counts as 2 UTF-16 code units
	yes(2, 2, "👥", "N👥uméro", 4, 4, "🔎", "N👥🔎uméro")
}

func TestStructureReplaceRefusesContent(t *testing.T) {
	testDoc := doc(p("foo"), p("bar")).Node
	step := NewReplaceStep(4, 6, model.EmptySlice, true)
	assert.Empty(t, step.Apply(testDoc).Failed)

	step = NewReplaceStep(2, 7, model.EmptySlice, true)
	assert.NotEmpty(t, step.Apply(testDoc).Failed)
}

func TestStepMapMapping(t *testing.T) {
	sm := NewStepMap([]int{2, 0, 4})
	assert.Equal(t, 1, sm.Map(1))
	assert.Equal(t, 6, sm.Map(2))
	assert.Equal(t, 2, sm.Map(2, -1))
	assert.Equal(t, 7, sm.Map(3))

	del := NewStepMap([]int{2, 4, 0})
	result := del.MapResult(4)
	assert.True(t, result.Deleted)
	assert.Equal(t, 2, result.Pos)
	assert.Equal(t, 7, del.Invert().Map(3))

	mapping := NewMapping(sm, del)
	assert.Equal(t, 1, mapping.Map(1))
	assert.Equal(t, "[2,0,4]", sm.String())
}
