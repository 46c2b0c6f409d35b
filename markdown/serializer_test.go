package markdown_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shodgson/eddytor/markdown"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	out        = builder.Eddytor
	doc        = out.Node("doc")
	p          = out.Node("p")
	blockquote = out.Node("blockquote")
	h1         = out.Node("h1")
	h2         = out.Node("h2")
	hr         = out.Node("hr")
	ul         = out.Node("ul")
	ol         = out.Node("ol")
	li         = out.Node("li")
	pre        = out.Node("pre")
	br         = out.Node("br")
	img        = out.Node("img")
	check      = out.Node("check")
	ci         = out.Node("ci")
	done       = out.Node("done")
	callout    = out.Node("callout")
	table      = out.Node("table")
	tr         = out.Node("tr")
	th         = out.Node("th")
	td         = out.Node("td")
	a          = out.Mark("a")
	link       = out.Mark("link")
	em         = out.Mark("em")
	strong     = out.Mark("strong")
	code       = out.Mark("code")
	color      = out.Mark("text_color")
)

func serialize(t *testing.T, d builder.NodeWithTag, expect string, opts ...markdown.Option) {
	t.Helper()
	assert.Equal(t, expect, markdown.DefaultSerializer.Serialize(d.Node, opts...))
}

// render converts the Markdown of a document to HTML with a GFM parser.
func render(t *testing.T, d builder.NodeWithTag) string {
	t.Helper()
	var buf bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	require.NoError(t, md.Convert([]byte(markdown.DefaultSerializer.Serialize(d.Node)), &buf))
	return buf.String()
}

func TestBlocks(t *testing.T) {
	serialize(t, doc(p("hello!")), "hello!")
	serialize(t, doc(h1("one"), h2("two"), p("three")), "# one\n\n## two\n\nthree")
	serialize(t, doc(blockquote(p("once")), blockquote(blockquote(p("twice")))), "> once\n\n> > twice")
	serialize(t, doc(p("a"), hr(), p("b")), "a\n\n---\n\nb")
	serialize(t, doc(p(img(map[string]interface{}{"alt": "x"}))), "![x](img.png)")
	serialize(t, doc(p(img(map[string]interface{}{"src": "(foo"}))), `![](\(foo)`)
}

func TestLists(t *testing.T) {
	serialize(t, doc(ul(li(p("foo"), ul(li(p("bar")), li(p("baz")))), li(p("quux")))),
		"- foo\n\n  - bar\n\n  - baz\n\n- quux")
	serialize(t, doc(ol(li(p("Hello")), li(p("Goodbye")), li(p("Nest"), ol(li(p("Hey")), li(p("Aye")))))),
		"1. Hello\n\n2. Goodbye\n\n3. Nest\n\n   1. Hey\n\n   2. Aye")
	serialize(t, doc(ol(map[string]interface{}{"order": 3}, li(p("Foo")), li(p("Bar")))), "3. Foo\n\n4. Bar")
	serialize(t, doc(ul(li(p("a")), li(p("b")))), "- a\n- b", markdown.WithTightLists(true))

	// List markers in the text are escaped.
	serialize(t, doc(ul(li(p("1. hi")), li(p("x")))), "- 1\\. hi\n\n- x")
}

func TestChecklist(t *testing.T) {
	d := doc(check(ci(p("todo")), done(p("done"))))
	serialize(t, d, "- [ ] todo\n\n- [x] done")
	serialize(t, d, "- [ ] todo\n- [x] done", markdown.WithTightLists(true))

	html := render(t, d)
	assert.Equal(t, 2, strings.Count(html, `type="checkbox"`))
	assert.Equal(t, 1, strings.Count(html, `checked=""`))
}

func TestCallout(t *testing.T) {
	d := doc(callout(map[string]interface{}{"variant": "warning"}, p("Careful")), p("after"))
	serialize(t, d, "> [!WARNING]\n> Careful\n\nafter")
	serialize(t, doc(callout(p("a"), p("b"))), "> [!INFO]\n> a\n>\n> b")

	html := render(t, d)
	assert.Contains(t, html, "<blockquote>")
	assert.Contains(t, html, "[!WARNING]")
}

func TestCodeBlock(t *testing.T) {
	serialize(t, doc(p("Some code:"), pre("Here it is"), p("Para")),
		"Some code:\n\n```\nHere it is\n```\n\nPara")
	serialize(t, doc(pre(map[string]interface{}{"language": "go"}, "x := 1")), "```go\nx := 1\n```")
	// The fence is longer than the backtick runs of the code.
	serialize(t, doc(pre("```\ncode\n```")), "````\n```\ncode\n```\n````")
	// A code block is not put in the list item before it.
	serialize(t, doc(ul(li(p("list item"))), pre("code")), "- list item\n\n```\ncode\n```")

	html := render(t, doc(pre(map[string]interface{}{"language": "go"}, "x := 1")))
	assert.Contains(t, html, `<code class="language-go">`)
}

func TestTable(t *testing.T) {
	d := doc(table(tr(th(p("a")), th(p("b"))), tr(td(p("1")), td(p("2|3")))), p("after"))
	serialize(t, d, "| a | b |\n| --- | --- |\n| 1 | 2\\|3 |\n\nafter")

	html := render(t, d)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<th>a</th>")
	assert.Contains(t, html, "<td>1</td>")
	assert.Contains(t, html, "<p>after</p>")
}

func TestTableSpansAndBlocks(t *testing.T) {
	wide := map[string]interface{}{"colspan": 2}
	serialize(t, doc(table(tr(th(wide, p("title"))), tr(td(p("x"), p("y")), td(p())))),
		"| title |  |\n| --- | --- |\n| x<br>y |  |")
}

func TestMarks(t *testing.T) {
	serialize(t, doc(p("Hello. Some ", em("em"), " text, some ", strong("strong"), " text, and some ", code("code"))),
		"Hello. Some *em* text, some **strong** text, and some `code`")
	serialize(t, doc(p("This is ", strong("strong ", em("emphasized text with ", code("code"), " in"), " it"))),
		"This is **strong *emphasized text with `code` in* it**")
	serialize(t, doc(p(strong(code("code"), " is bold"))), "**`code` is bold**")
	serialize(t, doc(p(code("one backtick: ` two backticks: ``"))), "``` one backtick: ` two backticks: `` ```")
	serialize(t, doc(p("Three spaces: ", code("   "))), "Three spaces: `   `")
	serialize(t, doc(p("foo", code("*"))), "foo`*`")

	// Style marks have no Markdown syntax.
	serialize(t, doc(p(color(map[string]interface{}{"color": "#ff0000"}, "red"), " text")), "red text")
}

func TestWhitespaceAroundEmphasis(t *testing.T) {
	serialize(t, doc(p("Some emphasized text with", strong(em("  whitespace   ")), "surrounding the emphasis.")),
		"Some emphasized text with  ***whitespace***   surrounding the emphasis.")
	serialize(t, doc(p("Text with", em(" "), "an emphasized space")), "Text with an emphasized space")
}

func TestHardBreaks(t *testing.T) {
	serialize(t, doc(p("foo", br(), "bar")), "foo\\\nbar")
	serialize(t, doc(p(em("foo", br(), "bar"))), "*foo\\\nbar*")
	serialize(t, doc(p("a", br(), br())), "a")
	serialize(t, doc(p(strong("foo"), br(), "bar")), "**foo**\\\nbar")
}

func TestLinks(t *testing.T) {
	href := func(url string) map[string]interface{} { return map[string]interface{}{"href": url} }

	serialize(t, doc(p("My ", a("link"), " goes to foo")), "My [link](foo) goes to foo")
	serialize(t, doc(p("Link to ", link(href("https://example.org"), "https://example.org"))),
		"Link to <https://example.org>")
	serialize(t, doc(p(link(href("foo.html"), "foo.html"))), "[foo.html](foo.html)")
	serialize(t, doc(p(link(map[string]interface{}{"href": "x.html", "title": `title "quoted"`}, "a"))),
		`[a](x.html "title \"quoted\"")`)
	serialize(t, doc(p(link(href("http://foo.com/a_b_c"), "link"))), "[link](http://foo.com/a_b_c)")
	serialize(t, doc(p(link(href("https://example.com/_file/#~anchor"), "https://example.com/_file/#~anchor"))),
		"<https://example.com/_file/#~anchor>")
	serialize(t, doc(p("!", a("text"))), "\\![text](foo)")
	serialize(t, doc(p(link(href("foo):"), "link"))), "[link](foo\\):)")
}

func TestEscapes(t *testing.T) {
	serialize(t, doc(p("Foo *bar")), "Foo \\*bar")
	serialize(t, doc(p("1. foo")), "1\\. foo")
	serialize(t, doc(p("Foo < img> bar")), "Foo < img> bar")
	serialize(t, doc(p("abc_def")), "abc_def")
	serialize(t, doc(p("abc___def")), "abc___def")
	serialize(t, doc(p("_abc_")), "\\_abc\\_")
	serialize(t, doc(p("/_abc_)")), "/\\_abc\\_)")
}
