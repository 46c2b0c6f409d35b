package eddytor_test

import (
	"testing"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	out     = builder.Eddytor
	doc     = out.Node("doc")
	p       = out.Node("p")
	h2      = out.Node("h2")
	pre     = out.Node("pre")
	ul      = out.Node("ul")
	ol      = out.Node("ol")
	li      = out.Node("li")
	check   = out.Node("check")
	ci      = out.Node("ci")
	done    = out.Node("done")
	callout = out.Node("callout")
	table   = out.Node("table")
	tr      = out.Node("tr")
	td      = out.Node("td")
	th      = out.Node("th")
	hr      = out.Node("hr")
	img     = out.Node("img")
	br      = out.Node("br")
	a       = out.Mark("a")
	strong  = out.Mark("strong")
	em      = out.Mark("em")
	color   = out.Mark("text_color")
	size    = out.Mark("font_size")
	schema  = out.Schema()
)

func roundTrip(t *testing.T, d *model.Node) {
	t.Helper()
	markup, err := eddytor.Serialize(d)
	require.NoError(t, err)
	back, err := eddytor.Parse(markup)
	require.NoError(t, err)
	assert.True(t, back.Eq(d), "markup %s\nparsed %s\nwant %s", markup, back, d)
}

func TestRoundTrip(t *testing.T) {
	docs := map[string]builder.NodeWithTag{
		"paragraphs": doc(p("hello ", strong("big"), " ", em("world")), h2("title")),
		"lists":      doc(ul(li(p("one")), li(p("two"), ol(li(p("nested")))))),
		"ordered":    doc(ol(map[string]interface{}{"order": 3}, li(p("three")))),
		"checklist": doc(check(
			ci(map[string]interface{}{"id": "a1"}, p("todo")),
			done(map[string]interface{}{"id": "b2"}, p("done")),
		)),
		"callout": doc(callout(map[string]interface{}{"variant": "warning"}, p("careful"))),
		"code":    doc(pre(map[string]interface{}{"language": "go"}, "func main() {}\n")),
		"table": doc(table(
			tr(th(p("name")), th(p("value"))),
			tr(td(map[string]interface{}{"background": "#ff0000", "alignment": "center"}, p("x")),
				td(map[string]interface{}{"colwidth": []int{120}}, p("1"))),
		)),
		"leaves": doc(p("a", br(), img(), a("link")), hr()),
		"styles": doc(p(color(map[string]interface{}{"color": "#00ff00"}, "green"), size(map[string]interface{}{"size": "20px"}, "big"))),
	}
	for name, d := range docs {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, d.Check())
			roundTrip(t, d.Node)
		})
	}
}

func TestCreateCheckedRejectsInvalidContent(t *testing.T) {
	_, err := schema.Nodes["checklist"].CreateChecked(nil, []*model.Node{li(p("x")).Node}, nil)
	var violation *model.SchemaViolation
	assert.ErrorAs(t, err, &violation)

	_, err = schema.Nodes["code_block"].CreateChecked(nil, []*model.Node{schema.Text("x", schema.Mark("strong"))}, nil)
	assert.Error(t, err)

	_, err = schema.Nodes["callout"].CreateChecked(map[string]interface{}{"variant": "loud"}, []*model.Node{p("x").Node}, nil)
	assert.Error(t, err)
}

func TestCreateTable(t *testing.T) {
	tbl, err := eddytor.CreateTable(schema, 3, 2, true)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.ChildCount())
	assert.Equal(t, "table_header", tbl.FirstChild().FirstChild().Type.Name)
	assert.Equal(t, "table_cell", tbl.LastChild().FirstChild().Type.Name)
	assert.Equal(t, 2, tbl.LastChild().ChildCount())
	assert.NoError(t, tbl.Check())

	_, err = eddytor.CreateTable(schema, 0, 2, false)
	assert.Error(t, err)
}

func TestCreateChecklistItem(t *testing.T) {
	saved := eddytor.NewItemID
	eddytor.NewItemID = func() string { return "fixed" }
	defer func() { eddytor.NewItemID = saved }()

	item, err := eddytor.CreateChecklistItem(schema)
	require.NoError(t, err)
	assert.Equal(t, "fixed", item.Attrs["id"])
	assert.Equal(t, false, item.Attrs["checked"])
	assert.Equal(t, "paragraph", item.FirstChild().Type.Name)
}

func TestKindOf(t *testing.T) {
	d := doc(check(ci(p("x"))), table(tr(td(p("y")))))
	assert.Equal(t, eddytor.KindDoc, eddytor.KindOf(d.Node))
	assert.Equal(t, eddytor.KindChecklist, eddytor.KindOf(d.FirstChild()))
	assert.Equal(t, eddytor.KindChecklistItem, eddytor.KindOf(d.FirstChild().FirstChild()))
	assert.Equal(t, eddytor.KindTable, eddytor.KindOf(d.LastChild()))
	assert.Equal(t, eddytor.KindUnknown, eddytor.KindOf(nil))

	assert.True(t, eddytor.KindChecklist.IsList())
	assert.Equal(t, eddytor.KindChecklistItem, eddytor.KindChecklist.ItemKind())
	assert.Equal(t, eddytor.KindListItem, eddytor.KindOrderedList.ItemKind())
	assert.True(t, eddytor.KindTableHeader.IsCell())
	assert.Same(t, schema.Nodes["callout"], eddytor.KindCallout.NodeType(schema))

	// Every node type of the schema has a kind.
	for name, typ := range schema.Nodes {
		assert.NotEqual(t, eddytor.KindUnknown, eddytor.KindOfType(typ), name)
	}
}
