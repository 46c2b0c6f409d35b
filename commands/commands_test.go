package commands_test

import (
	"testing"

	"github.com/shodgson/eddytor/commands"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	doc        = builder.Doc
	p          = builder.P
	blockquote = builder.Blockquote
	pre        = builder.Pre
	h1         = builder.H1
	hr         = builder.Hr
	ul         = builder.Ul
	li         = builder.Li
	strong     = builder.Strong
	schema     = builder.Schema
)

func run(t *testing.T, cmd state.Command, start builder.NodeWithTag) (*state.EditorState, bool) {
	t.Helper()
	s := builder.State(start)
	result := s
	ok := cmd(s, func(tr *state.Transaction) {
		next, err := s.Apply(tr)
		require.NoError(t, err)
		result = next
	}, nil)
	return result, ok
}

func apply(t *testing.T, cmd state.Command, start, expect builder.NodeWithTag) *state.EditorState {
	t.Helper()
	s, ok := run(t, cmd, start)
	require.True(t, ok, "command should apply")
	assert.True(t, s.Doc.Eq(expect.Node), "got %s, want %s", s.Doc, expect.Node)
	return s
}

func refuse(t *testing.T, cmd state.Command, start builder.NodeWithTag) {
	t.Helper()
	s := builder.State(start)
	assert.False(t, cmd(s, nil, nil))
}

func TestDeleteSelection(t *testing.T) {
	apply(t, commands.DeleteSelection, doc(p("f<a>o<b>o")), doc(p("fo")))
	refuse(t, commands.DeleteSelection, doc(p("f<a>oo")))
}

func TestJoinBackward(t *testing.T) {
	s := apply(t, commands.JoinBackward, doc(p("foo"), p("<a>bar")), doc(p("foobar")))
	assert.Equal(t, 4, s.Selection.Head())

	// Without a block before it, the block is lifted out of its list.
	apply(t, commands.JoinBackward, doc(ul(li(p("<a>foo")))), doc(p("foo")))

	// An empty block after a rule is deleted and the rule selected.
	s = apply(t, commands.JoinBackward, doc(hr(), p("<a>")), doc(hr()))
	assert.IsType(t, &state.NodeSelection{}, s.Selection)

	refuse(t, commands.JoinBackward, doc(p("f<a>oo")))
	refuse(t, commands.JoinBackward, doc(p("<a>foo")))
}

func TestJoinForward(t *testing.T) {
	apply(t, commands.JoinForward, doc(p("foo<a>"), p("bar")), doc(p("foobar")))
	refuse(t, commands.JoinForward, doc(p("foo<a>")))
}

func TestSplitBlock(t *testing.T) {
	s := apply(t, commands.SplitBlock, doc(p("foo<a>bar")), doc(p("foo"), p("bar")))
	assert.Equal(t, 6, s.Selection.Head())

	// Splitting at the end of a heading continues with a paragraph.
	apply(t, commands.SplitBlock, doc(h1("foo<a>")), doc(h1("foo"), p()))

	// The selected text is removed.
	apply(t, commands.SplitBlock, doc(p("fo<a>ob<b>ar")), doc(p("fo"), p("ar")))
}

func TestLiftEmptyBlock(t *testing.T) {
	apply(t, commands.LiftEmptyBlock, doc(blockquote(p("foo"), p("<a>"))), doc(blockquote(p("foo")), p()))
	refuse(t, commands.LiftEmptyBlock, doc(blockquote(p("fo<a>o"))))
}

func TestCreateParagraphNear(t *testing.T) {
	s := apply(t, commands.CreateParagraphNear, doc("<node>", hr()), doc(hr(), p()))
	assert.Equal(t, 2, s.Selection.Head())
	refuse(t, commands.CreateParagraphNear, doc(p("<a>foo")))
}

func TestCodeCommands(t *testing.T) {
	apply(t, commands.NewlineInCode, doc(pre("fo<a>o")), doc(pre("fo\no")))
	refuse(t, commands.NewlineInCode, doc(p("fo<a>o")))

	s := apply(t, commands.ExitCode, doc(pre("fo<a>o")), doc(pre("foo"), p()))
	assert.Equal(t, 6, s.Selection.Head())
	refuse(t, commands.ExitCode, doc(p("fo<a>o")))
}

func TestSetBlockType(t *testing.T) {
	heading := commands.SetBlockType(schema.Nodes["heading"], map[string]interface{}{"level": 1})
	apply(t, heading, doc(p("fo<a>o")), doc(h1("foo")))
	refuse(t, heading, doc(h1("fo<a>o")))
}

func TestWrapInAndLift(t *testing.T) {
	apply(t, commands.WrapIn(schema.Nodes["blockquote"], nil), doc(p("fo<a>o")), doc(blockquote(p("foo"))))
	apply(t, commands.Lift, doc(blockquote(p("fo<a>o"))), doc(p("foo")))
	refuse(t, commands.Lift, doc(p("fo<a>o")))
}

func TestToggleMark(t *testing.T) {
	toggle := commands.ToggleMark(schema.Marks["strong"], nil)
	apply(t, toggle, doc(p("f<a>oo<b>")), doc(p("f", strong("oo"))))
	apply(t, toggle, doc(p("f<a>", strong("oo<b>"))), doc(p("foo")))

	// Surrounding spaces are left out of the mark.
	apply(t, toggle, doc(p("<a> foo <b>")), doc(p(" ", strong("foo"), " ")))

	// With a cursor, the stored marks are toggled.
	s, ok := run(t, toggle, doc(p("f<a>oo")))
	require.True(t, ok)
	require.Len(t, s.StoredMarks, 1)
	assert.Equal(t, "strong", s.StoredMarks[0].Type.Name)

	refuse(t, toggle, doc(pre("f<a>o<b>o")))
}

func TestSelectAll(t *testing.T) {
	s, ok := run(t, commands.SelectAll, doc(p("f<a>oo"), p("bar")))
	require.True(t, ok)
	assert.IsType(t, &state.AllSelection{}, s.Selection)
}

func TestChain(t *testing.T) {
	calls := 0
	never := func(*state.EditorState, func(*state.Transaction), state.View) bool {
		calls++
		return false
	}
	cmd := commands.Chain(never, commands.DeleteSelection, never)
	apply(t, cmd, doc(p("<a>f<b>oo")), doc(p("oo")))
	assert.Equal(t, 1, calls)
}

func TestBaseKeymapBackspace(t *testing.T) {
	backspace := commands.BaseKeymap()["Backspace"]
	apply(t, backspace, doc(p("ab<a>")), doc(p("a")))
	apply(t, backspace, doc(p("a😀<a>")), doc(p("a")))
	apply(t, backspace, doc(p("foo"), p("<a>bar")), doc(p("foobar")))
}

func TestBaseKeymapEnter(t *testing.T) {
	enter := commands.BaseKeymap()["Enter"]
	apply(t, enter, doc(p("foo<a>bar")), doc(p("foo"), p("bar")))
	apply(t, enter, doc(pre("foo<a>")), doc(pre("foo\n")))
	apply(t, enter, doc(blockquote(p("<a>"))), doc(p()))
}
