package model_test

import (
	"testing"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeString(t *testing.T) {
	assert.Equal(t,
		`doc(bullet_list(list_item(paragraph("hey"), paragraph), list_item(paragraph("foo"))))`,
		doc(ul(li(p("hey"), p()), li(p("foo")))).String())
	assert.Equal(t,
		`doc(paragraph("foo", image, hard_break, "bar"))`,
		doc(p("foo", img(), br(), "bar")).String())
	assert.Equal(t,
		`doc(paragraph("foo", em("bar"), em(strong("quux")), code("baz")))`,
		doc(p("foo", em("bar", strong("quux")), code("baz"))).String())
	assert.Equal(t,
		`doc(checklist(checklist_item(paragraph("todo"))), table(table_row(table_cell(paragraph))))`,
		doc(check(ci(p("todo"))), table(tr(td(p())))).String())
}

func TestNodeCut(t *testing.T) {
	cases := map[string][2]builder.NodeWithTag{
		"full block": {doc(p("foo"), "<a>", p("bar"), "<b>", p("baz")), doc(p("bar"))},
		"text":       {doc(p("0"), p("foo<a>bar<b>baz"), p("2")), doc(p("bar"))},
		"deep": {
			doc(blockquote(ul(li(p("a"), p("b<a>c")), li(p("d")), "<b>", li(p("e"))), p("3"))),
			doc(blockquote(ul(li(p("c")), li(p("d"))))),
		},
		"from the left": {doc(blockquote(p("foo<b>bar"))), doc(blockquote(p("foo")))},
		"to the right":  {doc(blockquote(p("foo<a>bar"))), doc(blockquote(p("bar")))},
		"marks": {
			doc(p("foo", em("ba<a>r", img(), strong("baz"), br()), "qu<b>ux", code("xyz"))),
			doc(p(em("r", img(), strong("baz"), br()), "qu")),
		},
		"checklist item": {
			doc(check(ci(p("one")), ci(p("t<a>wo"))), p("aft<b>er")),
			doc(check(ci(p("wo"))), p("aft")),
		},
	}
	for name, c := range cases {
		d, expected := c[0], c[1]
		var got *model.Node
		if b, ok := d.Tag["b"]; ok {
			got = d.Cut(d.Tag["a"], b)
		} else {
			got = d.Cut(d.Tag["a"])
		}
		assert.True(t, got.Eq(expected.Node), "%s: %s != %s", name, got, expected.Node)
	}
}

func TestNodesBetween(t *testing.T) {
	between := func(d builder.NodeWithTag, expected ...string) {
		t.Helper()
		var names []string
		d.NodesBetween(d.Tag["a"], d.Tag["b"], func(node *model.Node, pos int, _ *model.Node, _ int) bool {
			if node.IsText() {
				names = append(names, *node.Text)
			} else {
				names = append(names, node.Type.Name)
				assert.Same(t, node, d.NodeAt(pos))
			}
			return true
		})
		assert.Equal(t, expected, names)
	}

	between(doc(p("foo<a>bar<b>baz")), "paragraph", "foobarbaz")
	between(doc(blockquote(ul(li(p("f<a>oo")), p("b"), "<b>"), p("c"))),
		"blockquote", "bullet_list", "list_item", "paragraph", "foo", "paragraph", "b")
	between(doc(p(em("x"), "f<a>oo", em("bar", img(), strong("baz"), br()), "quux", code("xy<b>z"))),
		"paragraph", "foo", "bar", "image", "baz", "hard_break", "quux", "xyz")
	between(doc(table(tr(td(p("a<a>")), td(p("b<b>"))))),
		"table", "table_row", "table_cell", "paragraph", "a", "table_cell", "paragraph", "b")
}

func TestNodesBetweenSkipsChildren(t *testing.T) {
	d := doc(callout(p("inside")), p("<a>out<b>side"))
	var names []string
	d.Descendants(func(node *model.Node, _ int, _ *model.Node, _ int) bool {
		names = append(names, node.Type.Name)
		return node.Type.Name != "callout"
	})
	assert.Equal(t, []string{"callout", "paragraph", "text"}, names)
}

func TestNodeTextContent(t *testing.T) {
	assert.Equal(t, "foo", doc(p("foo")).TextContent())
	assert.Equal(t, "foo", schema.Text("foo").TextContent())
	assert.Equal(t, "hiab", doc(ul(li(p("hi")), li(p(em("a"), "b")))).TextContent())
	assert.Equal(t, "a\nb", doc(p("a"), p("b")).TextBetween(0, 6, "\n"))
}

func TestNodeRangeHasMark(t *testing.T) {
	d := doc(p("a", em("b<a>c"), "d<b>"))
	assert.True(t, d.RangeHasMark(d.Tag["a"], d.Tag["b"], schema.Marks["em"]))
	assert.False(t, d.RangeHasMark(d.Tag["a"], d.Tag["b"], schema.Marks["strong"]))
	assert.False(t, d.RangeHasMark(1, 2, schema.Marks["em"]))
}

func TestNodeCheck(t *testing.T) {
	require.NoError(t, doc(check(ci(p("x"))), callout(p("y"))).Check())

	bad, err := schema.Nodes["checklist"].Create(nil, []*model.Node{p("x").Node}, nil)
	require.NoError(t, err)
	var violation *model.SchemaViolation
	assert.ErrorAs(t, doc(bad).Check(), &violation)

	// Code blocks don't allow marks.
	badText, err := schema.Nodes["code_block"].Create(nil, []*model.Node{schema.Text("x", schema.Mark("em"))}, nil)
	require.NoError(t, err)
	assert.Error(t, doc(badText).Check())
}

func TestNodeCanReplace(t *testing.T) {
	d := doc(check(ci(p("a")), ci(p("b"))))
	list := d.FirstChild()
	assert.True(t, list.CanReplace(0, 1))
	// A checklist needs at least one item.
	assert.False(t, list.CanReplace(0, 2))
	assert.True(t, list.CanReplaceWith(1, 1, schema.Nodes["checklist_item"]))
	assert.False(t, list.CanReplaceWith(1, 1, schema.Nodes["paragraph"]))
}
