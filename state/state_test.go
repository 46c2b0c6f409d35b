package state_test

import (
	"testing"

	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	doc    = builder.Doc
	p      = builder.P
	hr     = builder.Hr
	em     = builder.Em
	schema = builder.Schema
)

func TestCreateDefaults(t *testing.T) {
	s, err := state.Create(state.Config{Schema: schema})
	require.NoError(t, err)
	assert.Equal(t, "doc", s.Doc.Type.Name)
	assert.Equal(t, 1, s.Doc.ChildCount())
	assert.Equal(t, 1, s.Selection.From())

	_, err = state.Create(state.Config{})
	assert.Error(t, err)
}

func TestAtStartAndAtEnd(t *testing.T) {
	d := doc(p("foo"), p("bar"))
	start := state.AtStart(d.Node)
	end := state.AtEnd(d.Node)
	assert.IsType(t, &state.TextSelection{}, start)
	assert.Equal(t, 1, start.Head())
	assert.Equal(t, 9, end.Head())
}

func TestNearPicksSelectableLeaf(t *testing.T) {
	d := doc(hr(), p("x"))
	rpos, err := d.Resolve(0)
	require.NoError(t, err)
	sel := state.Near(rpos)
	require.IsType(t, &state.NodeSelection{}, sel)
	assert.Equal(t, 0, sel.From())
	assert.Equal(t, 1, sel.To())

	// Text only search skips the rule.
	found := state.FindSelectionFrom(rpos, 1, true)
	require.NotNil(t, found)
	assert.Equal(t, 2, found.Head())
}

func TestTextSelectionBetweenFixesInvalidEnds(t *testing.T) {
	d := doc(p("foo"), hr(), p("bar"))
	anchor, err := d.Resolve(0)
	require.NoError(t, err)
	head, err := d.Resolve(d.Content.Size)
	require.NoError(t, err)
	sel := state.TextSelectionBetween(anchor, head, 0)
	assert.Equal(t, 1, sel.Anchor())
	assert.Equal(t, 10, sel.Head())
}

func TestInsertTextMovesCursor(t *testing.T) {
	s := builder.State(doc(p("foo<a>")))
	tr := s.Tr()
	require.NoError(t, tr.InsertText("bar"))
	next, err := s.Apply(tr)
	require.NoError(t, err)
	assert.True(t, next.Doc.Eq(doc(p("foobar")).Node), next.Doc.String())
	assert.Equal(t, 7, next.Selection.Head())
	assert.True(t, next.Selection.Empty())
}

func TestDeleteSelection(t *testing.T) {
	s := builder.State(doc(p("f<a>oo<b>"), p("bar")))
	tr := s.Tr()
	require.NoError(t, tr.DeleteSelection())
	next, err := s.Apply(tr)
	require.NoError(t, err)
	assert.True(t, next.Doc.Eq(doc(p("f"), p("bar")).Node), next.Doc.String())
	assert.Equal(t, 2, next.Selection.Head())
}

func TestStoredMarksApplyToNextInput(t *testing.T) {
	s := builder.State(doc(p("<a>")))
	emMark := schema.Mark("em")
	next, err := s.Apply(s.Tr().AddStoredMark(emMark))
	require.NoError(t, err)
	require.Len(t, next.StoredMarks, 1)
	assert.Equal(t, "em", next.StoredMarks[0].Type.Name)

	tr := next.Tr()
	require.NoError(t, tr.InsertText("x"))
	after, err := next.Apply(tr)
	require.NoError(t, err)
	assert.True(t, after.Doc.Eq(doc(p(em("x"))).Node), after.Doc.String())
	assert.Nil(t, after.StoredMarks)
}

func TestNodeSelectionMapsAwayWhenDeleted(t *testing.T) {
	s := builder.State(doc(p("a"), "<node>", hr(), p("b")))
	require.IsType(t, &state.NodeSelection{}, s.Selection)
	tr := s.Tr()
	require.NoError(t, tr.Delete(3, 4))
	next, err := s.Apply(tr)
	require.NoError(t, err)
	assert.IsType(t, &state.TextSelection{}, next.Selection)
}

func TestApplyMismatchedTransaction(t *testing.T) {
	s1 := builder.State(doc(p("one")))
	s2 := builder.State(doc(p("two")))
	_, err := s1.Apply(s2.Tr())
	assert.ErrorIs(t, err, state.ErrMismatchedTransaction)
}

func TestPluginStateField(t *testing.T) {
	key := state.NewPluginKey("counter")
	counter := state.NewPlugin(&state.PluginSpec{
		Key: key,
		State: &state.StateField{
			Init: func(state.Config, *state.EditorState) interface{} { return 0 },
			Apply: func(tr *state.Transaction, value interface{}, _, _ *state.EditorState) interface{} {
				if tr.DocChanged() {
					return value.(int) + 1
				}
				return value
			},
		},
	})
	s := builder.State(doc(p("<a>")), counter)
	assert.Equal(t, 0, key.GetState(s))
	assert.Same(t, counter, key.Get(s))

	tr := s.Tr()
	require.NoError(t, tr.InsertText("a"))
	s, err := s.Apply(tr)
	require.NoError(t, err)
	s, err = s.Apply(s.Tr().SetMeta("noop", true))
	require.NoError(t, err)
	assert.Equal(t, 1, key.GetState(s))
	assert.Equal(t, 1, counter.GetState(s))
}

func TestDuplicateKeyedPlugin(t *testing.T) {
	key := state.NewPluginKey("dup")
	_, err := state.Create(state.Config{Schema: schema, Plugins: []*state.Plugin{
		state.NewPlugin(&state.PluginSpec{Key: key}),
		state.NewPlugin(&state.PluginSpec{Key: key}),
	}})
	assert.Error(t, err)
}

func TestFilterTransaction(t *testing.T) {
	blocker := state.NewPlugin(&state.PluginSpec{
		FilterTransaction: func(tr *state.Transaction, _ *state.EditorState) bool {
			return tr.GetMeta("blocked") == nil
		},
	})
	s := builder.State(doc(p("<a>")), blocker)
	tr := s.Tr()
	require.NoError(t, tr.InsertText("x"))
	tr.SetMeta("blocked", true)
	next, trs, err := s.ApplyTransaction(tr)
	require.NoError(t, err)
	assert.Same(t, s, next)
	assert.Empty(t, trs)
}

func TestAppendTransaction(t *testing.T) {
	exclaim := state.NewPlugin(&state.PluginSpec{
		AppendTransaction: func(trs []*state.Transaction, _, newState *state.EditorState) *state.Transaction {
			text := newState.Doc.TextContent()
			if text == "" || text[len(text)-1] == '!' {
				return nil
			}
			tr := newState.Tr()
			if err := tr.InsertText("!", newState.Doc.Content.Size-1); err != nil {
				return nil
			}
			return tr
		},
	})
	s := builder.State(doc(p("<a>")), exclaim)
	tr := s.Tr()
	require.NoError(t, tr.InsertText("hi"))
	next, trs, err := s.ApplyTransaction(tr)
	require.NoError(t, err)
	require.Len(t, trs, 2)
	assert.Same(t, tr, trs[1].GetMeta("appendedTransaction"))
	assert.Equal(t, "hi!", next.Doc.TextContent())
}

func TestSelectionJSON(t *testing.T) {
	d := doc(p("foo"), hr(), p("bar"))
	text, err := state.CreateTextSelection(d.Node, 1, 3)
	require.NoError(t, err)
	node, err := state.CreateNodeSelection(d.Node, 5)
	require.NoError(t, err)
	for _, sel := range []state.Selection{text, node, state.NewAllSelection(d.Node)} {
		back, err := state.SelectionFromJSON(d.Node, sel.ToJSON())
		require.NoError(t, err)
		assert.True(t, sel.Eq(back), "%v", sel.ToJSON())
	}
	_, err = state.SelectionFromJSON(d.Node, map[string]interface{}{"type": "nope"})
	assert.Error(t, err)
}

func TestStateJSON(t *testing.T) {
	s := builder.State(doc(p("f<a>oo")))
	back, err := state.FromJSON(state.Config{Schema: schema}, s.ToJSON())
	require.NoError(t, err)
	assert.True(t, back.Doc.Eq(s.Doc))
	assert.Equal(t, 2, back.Selection.Head())
}

func TestSimpleViewDispatch(t *testing.T) {
	view := state.NewSimpleView(builder.State(doc(p("<a>"))))
	var updates int
	view.OnUpdate = func(*state.EditorState) { updates++ }
	tr := view.State().Tr()
	require.NoError(t, tr.InsertText("ok"))
	view.Dispatch(tr)
	assert.Equal(t, "ok", view.State().Doc.TextContent())
	assert.Equal(t, 1, updates)
	assert.NoError(t, view.Err())

	// A transaction built for an older state fails.
	view.Dispatch(tr)
	assert.ErrorIs(t, view.Err(), state.ErrMismatchedTransaction)
}
