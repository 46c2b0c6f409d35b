package model_test

import (
	"testing"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	serializer := model.DOMSerializerFromSchema(schema)
	cases := map[string]struct {
		doc      builder.NodeWithTag
		expected string
	}{
		"paragraph": {doc(p("hello")), "<p>hello</p>"},
		"leaves":    {doc(p("a", br(), img())), `<p>a<br/><img src="img.png"/></p>`},
		"nested marks": {
			doc(p(em("a", strong("b")), "c")),
			"<p><em>a<strong>b</strong></em>c</p>",
		},
		"link":          {doc(p(a("x"))), `<p><a href="foo">x</a></p>`},
		"heading":       {doc(h2("t"), hr()), "<h2>t</h2><hr/>"},
		"escaped code":  {doc(pre("x<y")), "<pre><code>x&lt;y</code></pre>"},
		"list and text": {doc(ul(li(p("one")))), "<ul><li><p>one</p></li></ul>"},
	}
	for name, c := range cases {
		out, err := serializer.RenderHTML(c.doc.Content)
		require.NoError(t, err, name)
		assert.Equal(t, c.expected, out, name)
	}
}

func TestParseHTML(t *testing.T) {
	parser, err := model.DOMParserFromSchema(schema)
	require.NoError(t, err)

	cases := map[string]struct {
		html     string
		expected builder.NodeWithTag
	}{
		"empty":           {"", doc(p())},
		"marks":           {"<p>hello <b>big</b></p><h2>t</h2>", doc(p("hello ", strong("big")), h2("t"))},
		"collapses space": {"<p>a   b</p>", doc(p("a b"))},
		"bare text":       {"hello", doc(p("hello"))},
		"unknown wrapper": {"<div><p>x</p></div>", doc(p("x"))},
		"code":            {"<pre><code>a  b</code></pre>", doc(pre("a  b"))},
		"ignores script":  {"<p>a<script>alert(1)</script></p>", doc(p("a"))},
	}
	for name, c := range cases {
		got, err := parser.ParseHTML(c.html)
		require.NoError(t, err, name)
		assert.True(t, got.Eq(c.expected.Node), "%s: %s != %s", name, got, c.expected.Node)
	}
}
