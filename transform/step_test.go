package transform_test

import (
	"testing"

	"github.com/shodgson/eddytor/model"
	. "github.com/shodgson/eddytor/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step builds a step from a short description: "+em" and "-em" add and
// remove emphasis, anything else replaces the range with that text.
func step(from, to int, desc string) Step {
	switch desc {
	case "+em":
		return NewAddMarkStep(from, to, schema.Mark("em"))
	case "-em":
		return NewRemoveMarkStep(from, to, schema.Mark("em"))
	case "":
		return NewReplaceStep(from, to, model.EmptySlice)
	}
	return NewReplaceStep(from, to, model.NewSlice(model.NewFragment([]*model.Node{schema.Text(desc)}), 0, 0))
}

func TestStepMerge(t *testing.T) {
	type half struct {
		from, to int
		desc     string
	}
	cases := map[string]struct {
		first, second half
		merges        bool
	}{
		"typing":                  {half{2, 2, "a"}, half{3, 3, "b"}, true},
		"typing before":           {half{2, 2, "a"}, half{2, 2, "b"}, true},
		"separated typing":        {half{2, 2, "a"}, half{4, 4, "b"}, false},
		"separated typing before": {half{3, 3, "a"}, half{2, 2, "b"}, false},
		"backspaces":              {half{3, 4, ""}, half{2, 3, ""}, true},
		"deletes":                 {half{2, 3, ""}, half{2, 3, ""}, true},
		"separate backspaces":     {half{1, 2, ""}, half{2, 3, ""}, false},
		"backspace then type":     {half{2, 3, ""}, half{2, 2, "x"}, true},
		"longer inserts":          {half{2, 2, "quux"}, half{6, 6, "baz"}, true},
		"longer deletes":          {half{4, 6, ""}, half{2, 4, ""}, true},
		"overwrites":              {half{3, 4, "x"}, half{4, 5, "y"}, true},
		"adjacent styles":         {half{1, 2, "+em"}, half{2, 4, "+em"}, true},
		"overlapping styles":      {half{1, 3, "+em"}, half{2, 4, "+em"}, true},
		"separate styles":         {half{1, 2, "+em"}, half{3, 4, "+em"}, false},
		"removing styles":         {half{1, 3, "-em"}, half{2, 4, "-em"}, true},
		"separate removals":       {half{1, 2, "-em"}, half{3, 4, "-em"}, false},
		"style and text":          {half{1, 2, "+em"}, half{2, 2, "x"}, false},
	}
	testDoc := doc(p("foobar")).Node
	for name, c := range cases {
		first := step(c.first.from, c.first.to, c.first.desc)
		second := step(c.second.from, c.second.to, c.second.desc)
		merged, ok := first.Merge(second)
		if !c.merges {
			assert.False(t, ok, name)
			continue
		}
		if assert.True(t, ok, name) {
			sequential := second.Apply(first.Apply(testDoc).Doc).Doc
			assert.True(t, merged.Apply(testDoc).Doc.Eq(sequential), name)
		}
	}
}

func TestStepJSON(t *testing.T) {
	testDoc := doc(check(ci(p("foobar")))).Node
	steps := map[string]Step{
		"insert":      step(4, 4, "a"),
		"delete":      step(3, 5, ""),
		"add mark":    step(3, 6, "+em"),
		"remove mark": step(3, 6, "-em"),
		"attribute":   NewAttrStep(1, "checked", true),
	}
	for name, s := range steps {
		restored, err := StepFromJSON(schema, s.ToJSON())
		require.NoError(t, err, name)
		want := s.Apply(testDoc)
		got := restored.Apply(testDoc)
		require.Empty(t, got.Failed, name)
		assert.True(t, want.Doc.Eq(got.Doc), name)
	}

	_, err := StepFromJSON(schema, map[string]interface{}{"stepType": "bogus"})
	assert.Error(t, err)
	_, err = StepFromJSON(schema, map[string]interface{}{"stepType": "attr", "pos": 1})
	assert.Error(t, err)
}

func TestAttrStep(t *testing.T) {
	testDoc := doc(check(ci(p("task")))).Node
	s := NewAttrStep(1, "checked", true)
	result := s.Apply(testDoc)
	require.Empty(t, result.Failed)
	assert.True(t, result.Doc.Eq(doc(check(done(p("task")))).Node), result.Doc.String())
	assert.Same(t, EmptyStepMap, s.GetMap())

	back := s.Invert(testDoc).Apply(result.Doc)
	require.Empty(t, back.Failed)
	assert.True(t, back.Doc.Eq(testDoc))

	heading := NewAttrStep(0, "level", 2).Apply(doc(h1("title")).Node)
	require.Empty(t, heading.Failed)
	assert.True(t, heading.Doc.Eq(doc(h2("title")).Node))

	assert.NotEmpty(t, NewAttrStep(40, "checked", true).Apply(testDoc).Failed)
	assert.NotEmpty(t, NewAttrStep(0, "level", 2).Apply(testDoc).Failed, "checklists have no level")
}

func TestAttrStepMap(t *testing.T) {
	s := NewAttrStep(5, "checked", true)

	// Two characters typed before the node.
	mapped := s.Map(NewStepMap([]int{1, 0, 2}))
	require.NotNil(t, mapped)
	assert.Equal(t, 7, mapped.(*AttrStep).Pos)

	// The node is deleted.
	assert.Nil(t, s.Map(NewStepMap([]int{4, 4, 0})))
}
