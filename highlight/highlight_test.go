package highlight_test

import (
	"testing"

	"github.com/shodgson/eddytor/decoration"
	"github.com/shodgson/eddytor/highlight"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	out = builder.Eddytor
	doc = out.Node("doc")
	p   = out.Node("p")
	pre = out.Node("pre")
)

func TestDetect(t *testing.T) {
	cases := map[string]string{
		"":                            "",
		"   \n":                       "",
		"const add = (a, b) => a + b": "javascript",
		"def f():\n    return 1":      "python",
		"echo $HOME":                  "bash",
		`<div class="a">hi</div>`:     "markup",
		"hello world":                 "javascript",
	}
	for code, want := range cases {
		assert.Equal(t, want, highlight.Detect(code), "code %q", code)
	}
}

func TestResolveLanguage(t *testing.T) {
	assert.Equal(t, "python", highlight.ResolveLanguage("Python", "x"))
	assert.Equal(t, "bash", highlight.ResolveLanguage(nil, "echo $HOME"))
	assert.Equal(t, "bash", highlight.ResolveLanguage("null", "echo $HOME"))
	assert.Equal(t, "", highlight.ResolveLanguage("", " "))
}

func TestTokens(t *testing.T) {
	h := highlight.New(0, nil)

	spans := h.Tokens("javascript", "const x = 1")
	assert.Contains(t, spans, highlight.Span{From: 0, To: 5, Class: "token keyword"})
	assert.Contains(t, spans, highlight.Span{From: 10, To: 11, Class: "token number"})
	assert.Equal(t, 1, h.Len())

	again := h.Tokens("javascript", "const x = 1")
	assert.Equal(t, spans, again)
	assert.Equal(t, 1, h.Len())

	// Offsets count UTF-16 code units.
	spans = h.Tokens("json", `{"a": "😀"}`)
	assert.Contains(t, spans, highlight.Span{From: 6, To: 10, Class: "token string"})

	assert.Empty(t, h.Tokens("", "const x = 1"))
	assert.Empty(t, h.Tokens("cobol", "const x = 1"))
	assert.Empty(t, h.Tokens("javascript", "  "))
}

func find(set *decoration.DecorationSet, from, to int, class string) bool {
	for _, d := range set.Find(from, to) {
		if d.From == from && d.To == to && d.Attrs["class"] == class {
			return true
		}
	}
	return false
}

func selector(t *testing.T, set *decoration.DecorationSet, pos int) *decoration.Decoration {
	t.Helper()
	for _, d := range set.Find(pos, pos) {
		if d.Type == decoration.Widget && d.Name == highlight.SelectorWidget {
			return d
		}
	}
	require.Fail(t, "no language selector", "at %d", pos)
	return nil
}

func apply(t *testing.T, s *state.EditorState, tr *state.Transaction) *state.EditorState {
	t.Helper()
	next, err := s.Apply(tr)
	require.NoError(t, err)
	return next
}

func TestPluginRecomputesTouchedBlocksOnly(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	plugin := highlight.Plugin(highlight.New(0, nil), zap.New(core))
	// The code block starts at 7, its text at 8.
	s := builder.State(doc(p("hello"), pre(map[string]interface{}{"language": "javascript"}, "const a = 1")), plugin)

	set := highlight.Decorations(s)
	assert.True(t, find(set, 8, 13, "token keyword"))
	assert.Equal(t, "javascript", selector(t, set, 8).Spec["language"])
	assert.Equal(t, 1, logs.FilterMessage("highlighting code block").Len())

	tr := s.Tr()
	require.NoError(t, tr.InsertText("!", 6))
	s = apply(t, s, tr)
	set = highlight.Decorations(s)
	assert.True(t, find(set, 9, 14, "token keyword"), "decorations are mapped")
	assert.Equal(t, 1, logs.FilterMessage("highlighting code block").Len(), "edits outside code blocks don't tokenize")

	tr = s.Tr()
	require.NoError(t, tr.InsertText("let ", 9))
	s = apply(t, s, tr)
	set = highlight.Decorations(s)
	assert.True(t, find(set, 9, 12, "token keyword"))
	assert.True(t, find(set, 13, 18, "token keyword"))
	assert.Equal(t, 2, logs.FilterMessage("highlighting code block").Len())
}

func TestSetLanguage(t *testing.T) {
	plugin := highlight.Plugin(highlight.New(0, nil), nil)
	s := builder.State(doc(pre(map[string]interface{}{"language": "javascript"}, "const a = 1")), plugin)
	view := state.NewSimpleView(s)

	require.True(t, highlight.SetLanguage(0, "python")(view.State(), view.Dispatch, view))
	require.NoError(t, view.Err())
	s = view.State()
	assert.Equal(t, "python", s.Doc.FirstChild().Attrs["language"])
	set := highlight.Decorations(s)
	assert.False(t, find(set, 1, 6, "token keyword"))
	assert.Equal(t, "python", selector(t, set, 1).Spec["language"])

	assert.False(t, highlight.SetLanguage(3, "python")(s, nil, nil))
}

func TestSetLanguageRecomputesThatBlockOnly(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	plugin := highlight.Plugin(highlight.New(0, nil), zap.New(core))
	js := map[string]interface{}{"language": "javascript"}
	// The second code block starts at 13.
	s := builder.State(doc(pre(js, "const a = 1"), pre(js, "let b = 2")), plugin)
	require.Equal(t, 2, logs.FilterMessage("highlighting code block").Len())
	view := state.NewSimpleView(s)

	require.True(t, highlight.SetLanguage(0, "python")(view.State(), view.Dispatch, view))
	require.NoError(t, view.Err())
	highlighted := logs.FilterMessage("highlighting code block").All()
	require.Len(t, highlighted, 3)
	assert.Equal(t, int64(0), highlighted[2].ContextMap()["pos"])

	set := highlight.Decorations(view.State())
	assert.Equal(t, "python", selector(t, set, 1).Spec["language"])
	assert.Equal(t, "javascript", selector(t, set, 14).Spec["language"])
}

func TestPluginDetectsMissingLanguage(t *testing.T) {
	s := builder.State(doc(pre("echo $HOME")), highlight.Plugin(highlight.New(0, nil), nil))
	assert.Equal(t, "bash", selector(t, highlight.Decorations(s), 1).Spec["language"])
}
