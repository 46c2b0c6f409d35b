package editor_test

import (
	"errors"
	"testing"

	"github.com/shodgson/eddytor/editor"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var builtins = editor.NewRegistryWithBuiltins(eddytor.Schema, nil)

// execute runs a built-in command on the document and returns the result
// with the state after it.
func execute(t *testing.T, id string, start builder.NodeWithTag, args map[string]interface{}) (editor.Result, *state.EditorState) {
	t.Helper()
	ctx, view := contextFor(t, builder.State(start))
	ctx.Args = args
	result := builtins.Execute(id, ctx)
	require.NoError(t, view.Err())
	return result, view.State()
}

func assertDoc(t *testing.T, expect builder.NodeWithTag, got *state.EditorState) {
	t.Helper()
	assert.True(t, got.Doc.Eq(expect.Node), "got %s, want %s", got.Doc, expect.Node)
}

func TestHeadingCommands(t *testing.T) {
	result, s := execute(t, "heading1", doc(p("fo<a>o")), nil)
	assert.True(t, result.Success)
	assertDoc(t, doc(h1("foo")), s)

	h2 := out.Node("h2")
	_, s = execute(t, "heading2", doc(p("foo"), p("<a>bar")), nil)
	assertDoc(t, doc(p("foo"), h2("bar")), s)
}

func TestToggleMarkCommands(t *testing.T) {
	result, s := execute(t, "bold", doc(p("<a>foo<b>")), nil)
	assert.True(t, result.Success)
	assertDoc(t, doc(p(strong("foo"))), s)

	em := out.Mark("em")
	_, s = execute(t, "italic", doc(p("f<a>oo<b>")), nil)
	assertDoc(t, doc(p("f", em("oo"))), s)
}

func TestTextColor(t *testing.T) {
	color := out.Mark("text_color")
	args := map[string]interface{}{"color": "#ff0000"}

	ctx, view := contextFor(t, builder.State(doc(p("<a>foo<b>"))))
	ctx.Args = args
	require.True(t, builtins.Execute("textColor", ctx).Success)
	assert.True(t, view.State().Doc.Eq(doc(p(color(map[string]interface{}{"color": "#ff0000"}, "foo"))).Node))

	// Applying the same color again removes it.
	ctx.State = view.State()
	require.True(t, builtins.Execute("textColor", ctx).Success)
	assert.True(t, view.State().Doc.Eq(doc(p("foo")).Node))

	// Without argument, the default color is used.
	_, s := execute(t, "textColor", doc(p("<a>foo<b>")), nil)
	assertDoc(t, doc(p(color(map[string]interface{}{"color": editor.DefaultTextColor}, "foo"))), s)

	result, _ := execute(t, "textColor", doc(p("f<a>oo")), args)
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, editor.ErrPreconditionFailed))
}

func TestFontSize(t *testing.T) {
	size := out.Mark("font_size")
	_, s := execute(t, "fontSize", doc(p("<a>foo<b>")), map[string]interface{}{"size": "20"})
	assertDoc(t, doc(p(size(map[string]interface{}{"size": "20px"}, "foo"))), s)

	_, s = execute(t, "fontSize", doc(p("<a>foo<b>")), map[string]interface{}{"size": "1.5em"})
	assertDoc(t, doc(p(size(map[string]interface{}{"size": "1.5em"}, "foo"))), s)
}

func TestClearFormatting(t *testing.T) {
	em := out.Mark("em")
	result, s := execute(t, "clear-formatting", doc(p(strong("<a>foo"), em("bar<b>"))), nil)
	assert.True(t, result.Success)
	assertDoc(t, doc(p("foobar")), s)

	result, _ = execute(t, "clear-formatting", doc(p("f<a>oo")), nil)
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, editor.ErrPreconditionFailed))
}

func TestInsertBlocks(t *testing.T) {
	result, s := execute(t, "info-callout", doc(p("foo<a>")), nil)
	require.True(t, result.Success)
	assertDoc(t, doc(p("foo"), callout(p())), s)
	assert.Equal(t, 7, s.Selection.Head())

	warning := map[string]interface{}{"variant": eddytor.VariantWarning}
	_, s = execute(t, "warning-callout", doc(p("foo<a>")), nil)
	assertDoc(t, doc(p("foo"), callout(warning, p())), s)

	_, s = execute(t, "table-2x2", doc(p("foo<a>")), nil)
	assertDoc(t, doc(p("foo"), table(tr(th(p()), th(p())), tr(td(p()), td(p())))), s)
	assert.Equal(t, 9, s.Selection.Head())

	_, s = execute(t, "line-separator", doc(p("foo<a>")), nil)
	assertDoc(t, doc(p("foo"), hr()), s)

	_, s = execute(t, "code-block", doc(p("foo<a>")), nil)
	assertDoc(t, doc(p("foo"), pre(map[string]interface{}{"language": nil})), s)
	assert.Equal(t, 6, s.Selection.Head())

	// No block can be inserted inside a code block.
	result, _ = execute(t, "info-callout", doc(pre("fo<a>o")), nil)
	assert.False(t, result.Success)
}

func TestTableMenuCommands(t *testing.T) {
	result, _ := execute(t, "deleteRow", doc(p("fo<a>o")), nil)
	assert.False(t, result.Success)

	result, s := execute(t, "deleteTable", doc(p("foo"), table(tr(td(p("<a>x"))))), nil)
	require.True(t, result.Success)
	assertDoc(t, doc(p("foo")), s)
}

type linkOpener struct {
	text, href string
	calls      int
}

func (o *linkOpener) OpenLinkDialog(text, href string) {
	o.text, o.href = text, href
	o.calls++
}

func TestHyperlinkCommand(t *testing.T) {
	result, _ := execute(t, "hyperlink", doc(p("<a>foo<b>")), nil)
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, editor.ErrPreconditionFailed))

	opener := &linkOpener{}
	ctx, view := contextFor(t, builder.State(doc(p("<a>foo<b>"))))
	ctx.Links = opener
	result = builtins.Execute("hyperlink", ctx)
	assert.True(t, result.Success)
	assert.True(t, result.Pending)
	assert.Equal(t, 1, opener.calls)
	assert.Equal(t, "foo", opener.text)
	assert.Equal(t, "", opener.href)
	assert.True(t, view.State().Doc.Eq(doc(p("foo")).Node), "the document changes only on submit")

	a := out.Mark("a")
	ctx, _ = contextFor(t, builder.State(doc(p(a("f<a>oo")))))
	ctx.Links = opener
	builtins.Execute("hyperlink", ctx)
	assert.Equal(t, "", opener.text)
	assert.Equal(t, "foo", opener.href)
}

func TestCodeBlockLanguage(t *testing.T) {
	r := editor.NewRegistryWithBuiltins(eddytor.Schema, nil, editor.WithCodeLanguage("python"))
	ctx, view := contextFor(t, builder.State(doc(p("foo<a>"))))
	require.True(t, r.Execute("code-block", ctx).Success)
	assertDoc(t, doc(p("foo"), pre(map[string]interface{}{"language": "python"})), view.State())
}
