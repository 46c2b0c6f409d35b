package tables_test

import (
	"testing"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/tables"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	out   = builder.Eddytor
	doc   = out.Node("doc")
	p     = out.Node("p")
	table = out.Node("table")
	tr    = out.Node("tr")
	td    = out.Node("td")
	th    = out.Node("th")
)

// headed is a 2x2 table with a header row. Cells start at 2, 7, 14 and 19.
func headed(c string) builder.NodeWithTag {
	return doc(table(tr(th(p("a")), th(p("b"))), tr(td(p(c)), td(p("d")))))
}

func run(t *testing.T, s *state.EditorState, cmd state.Command) *state.EditorState {
	t.Helper()
	view := state.NewSimpleView(s)
	require.True(t, cmd(view.State(), view.Dispatch, view), "command should apply")
	require.NoError(t, view.Err())
	return view.State()
}

func assertDoc(t *testing.T, s *state.EditorState, want builder.NodeWithTag) {
	t.Helper()
	assert.True(t, s.Doc.Eq(want.Node), "got %s\nwant %s", s.Doc, want.Node)
}

func withCells(t *testing.T, d builder.NodeWithTag, anchor, head int) *state.EditorState {
	t.Helper()
	sel, err := tables.CreateCellSelection(d.Node, anchor, head)
	require.NoError(t, err)
	s, err := state.Create(state.Config{Doc: d.Node, Selection: sel})
	require.NoError(t, err)
	return s
}

func TestTableMap(t *testing.T) {
	m := tables.Get(headed("c").FirstChild())
	assert.Equal(t, 2, m.Width)
	assert.Equal(t, 2, m.Height)
	assert.Equal(t, []int{1, 6, 13, 18}, m.Map)
	assert.True(t, m.Rectangular())

	rect, err := m.FindCell(13)
	require.NoError(t, err)
	assert.Equal(t, tables.Rect{Left: 0, Top: 1, Right: 1, Bottom: 2}, rect)
	_, err = m.FindCell(3)
	assert.Error(t, err)

	next, ok := m.NextCell(1, true, 1)
	assert.True(t, ok)
	assert.Equal(t, 6, next)
	_, ok = m.NextCell(18, false, 1)
	assert.False(t, ok)

	merged := doc(table(tr(td(map[string]interface{}{"colspan": 2}, p("x"))), tr(td(p("a")), td(p("b")))))
	m = tables.Get(merged.FirstChild())
	assert.Equal(t, []int{1, 1, 8, 13}, m.Map)
	rect, err = m.FindCell(1)
	require.NoError(t, err)
	assert.Equal(t, tables.Rect{Left: 0, Top: 0, Right: 2, Bottom: 1}, rect)
	assert.Equal(t, []int{1, 8, 13}, m.CellsInRect(tables.Rect{Right: 2, Bottom: 2}))
	assert.Equal(t, 13, m.PositionAt(1, 1, merged.FirstChild()))
}

func TestAddRowBeforeRefusesAboveHeader(t *testing.T) {
	s := builder.State(doc(table(tr(th(p("<a>a")), th(p("b"))), tr(td(p("c")), td(p("d"))))))
	assert.False(t, tables.AddRowBefore(s, nil, nil))
	dispatched := false
	assert.False(t, tables.AddRowBefore(s, func(*state.Transaction) { dispatched = true }, nil))
	assert.False(t, dispatched)

	s = run(t, builder.State(headed("<a>c")), tables.AddRowBefore)
	assertDoc(t, s, doc(table(tr(th(p("a")), th(p("b"))), tr(td(p()), td(p())), tr(td(p("c")), td(p("d"))))))
}

func TestAddRowAfter(t *testing.T) {
	s := run(t, builder.State(headed("<a>c")), tables.AddRowAfter)
	assertDoc(t, s, doc(table(tr(th(p("a")), th(p("b"))), tr(td(p("c")), td(p("d"))), tr(td(p()), td(p())))))
	assert.False(t, tables.AddRowAfter(builder.State(doc(p("<a>x"))), nil, nil))
}

func TestAddColumn(t *testing.T) {
	s := run(t, builder.State(headed("<a>c")), tables.AddColumnAfter)
	assertDoc(t, s, doc(table(tr(th(p("a")), th(p()), th(p("b"))), tr(td(p("c")), td(p()), td(p("d"))))))

	s = run(t, builder.State(headed("<a>c")), tables.AddColumnBefore)
	assertDoc(t, s, doc(table(tr(th(p()), th(p("a")), th(p("b"))), tr(td(p()), td(p("c")), td(p("d"))))))
}

func TestDeleteRowAndColumn(t *testing.T) {
	s := run(t, builder.State(headed("<a>c")), tables.DeleteRow)
	assertDoc(t, s, doc(table(tr(th(p("a")), th(p("b"))))))
	assert.False(t, tables.DeleteRow(s, nil, nil), "the last row stays")

	s = run(t, builder.State(headed("<a>c")), tables.DeleteColumn)
	assertDoc(t, s, doc(table(tr(th(p("b"))), tr(td(p("d"))))))
	assert.False(t, tables.DeleteColumn(s, nil, nil), "the last column stays")
}

func TestMergeAndSplitCells(t *testing.T) {
	s := withCells(t, headed("c"), 14, 19)
	assert.True(t, s.Selection.(*tables.CellSelection).IsRowSelection())

	s = run(t, s, tables.MergeCells)
	assertDoc(t, s, doc(table(tr(th(p("a")), th(p("b"))), tr(td(map[string]interface{}{"colspan": 2}, p("c"), p("d"))))))
	assert.False(t, tables.MergeCells(s, nil, nil), "a single cell can't be merged")

	s = run(t, s, tables.SplitCell)
	assertDoc(t, s, doc(table(tr(th(p("a")), th(p("b"))), tr(td(p("c"), p("d")), td(p())))))
	assert.False(t, tables.SplitCell(s, nil, nil))
}

func TestToggleHeaderRow(t *testing.T) {
	s := run(t, builder.State(headed("<a>c")), tables.ToggleHeaderRow)
	assertDoc(t, s, doc(table(tr(td(p("a")), td(p("b"))), tr(td(p("c")), td(p("d"))))))
	s = run(t, s, tables.ToggleHeaderRow)
	assertDoc(t, s, headed("c"))

	s = run(t, builder.State(headed("<a>c")), tables.ToggleHeaderCell)
	assertDoc(t, s, doc(table(tr(th(p("a")), th(p("b"))), tr(th(p("c")), td(p("d"))))))
}

func TestGoToNextCell(t *testing.T) {
	s := run(t, builder.State(doc(table(tr(th(p("<a>a")), th(p("b"))), tr(td(p("c")), td(p("d")))))), tables.GoToNextCell(1))
	assert.Equal(t, 9, s.Selection.From())
	assert.Equal(t, 10, s.Selection.To())

	s = run(t, builder.State(headed("<a>c")), tables.GoToNextCell(-1))
	assert.Equal(t, 9, s.Selection.From())

	last := builder.State(doc(table(tr(th(p("a")), th(p("b"))), tr(td(p("c")), td(p("<a>d"))))))
	assert.False(t, tables.GoToNextCell(1)(last, nil, nil))
	assert.False(t, tables.GoToNextCell(1)(builder.State(doc(p("<a>x"))), nil, nil))
}

func TestSetCellAttr(t *testing.T) {
	set := tables.SetCellAttr("background", "#ff0000")
	s := run(t, builder.State(headed("<a>c")), set)
	assertDoc(t, s, doc(table(tr(th(p("a")), th(p("b"))), tr(td(map[string]interface{}{"background": "#ff0000"}, p("c")), td(p("d"))))))
	assert.False(t, set(s, nil, nil), "already set")

	s = run(t, withCells(t, headed("c"), 2, 7), tables.SetCellAttr("alignment", "center"))
	center := map[string]interface{}{"alignment": "center"}
	assertDoc(t, s, doc(table(tr(th(center, p("a")), th(center, p("b"))), tr(td(p("c")), td(p("d"))))))
}

func TestDeleteTable(t *testing.T) {
	s := run(t, builder.State(doc(p("x"), table(tr(td(p("<a>y")))))), tables.DeleteTable)
	assertDoc(t, s, doc(p("x")))
	assert.False(t, tables.DeleteTable(builder.State(doc(p("<a>x"))), nil, nil))
}

func TestSetColumnWidth(t *testing.T) {
	s := run(t, builder.State(headed("c")), tables.SetColumnWidth(14, 10))
	w := map[string]interface{}{"colwidth": []int{tables.CellMinWidth}}
	assertDoc(t, s, doc(table(tr(th(w, p("a")), th(p("b"))), tr(td(w, p("c")), td(p("d"))))))
	assert.False(t, tables.SetColumnWidth(14, 40)(s, nil, nil), "width unchanged")
	assert.False(t, tables.SetColumnWidth(4, 100)(s, nil, nil), "not a cell")
}

func TestMoveRowAndColumn(t *testing.T) {
	s := run(t, builder.State(headed("<a>c")), tables.MoveTableRow(1, 0))
	assertDoc(t, s, doc(table(tr(td(p("c")), td(p("d"))), tr(th(p("a")), th(p("b"))))))

	s = run(t, builder.State(headed("<a>c")), tables.MoveTableColumn(0, 1))
	assertDoc(t, s, doc(table(tr(th(p("b")), th(p("a"))), tr(td(p("d")), td(p("c"))))))

	merged := builder.State(doc(table(tr(td(map[string]interface{}{"colspan": 2}, p("<a>x"))), tr(td(p("a")), td(p("b"))))))
	assert.False(t, tables.MoveTableRow(0, 1)(merged, nil, nil))
}

func TestDragLifecycle(t *testing.T) {
	s := builder.State(headed("c"), tables.DragPlugin(nil))
	view := state.NewSimpleView(s)

	require.True(t, tables.StartDrag(16, tables.AxisRow)(view.State(), view.Dispatch, view))
	ds := tables.GetDragState(view.State())
	assert.True(t, ds.Dragging)
	assert.Equal(t, 1, ds.From)
	assert.Equal(t, 2, ds.Decorations.Len())

	require.True(t, tables.DragOver(4)(view.State(), view.Dispatch, view))
	ds = tables.GetDragState(view.State())
	assert.Equal(t, 0, ds.Target)
	assert.Len(t, ds.Decorations.Find(2, 13), 2)

	require.True(t, tables.Drop(view.State(), view.Dispatch, view))
	require.NoError(t, view.Err())
	assertDoc(t, view.State(), doc(table(tr(td(p("c")), td(p("d"))), tr(th(p("a")), th(p("b"))))))
	assert.False(t, tables.GetDragState(view.State()).Dragging)
	assert.False(t, tables.Drop(view.State(), nil, nil))
}

func TestDragCancelledByDocChange(t *testing.T) {
	s := builder.State(headed("<a>c"), tables.DragPlugin(nil))
	view := state.NewSimpleView(s)
	require.True(t, tables.StartDrag(16, tables.AxisColumn)(view.State(), view.Dispatch, view))
	require.True(t, tables.GetDragState(view.State()).Dragging)

	tx := view.State().Tr()
	require.NoError(t, tx.InsertText("x"))
	view.Dispatch(tx)
	require.NoError(t, view.Err())
	ds := tables.GetDragState(view.State())
	assert.False(t, ds.Dragging)
	assert.Zero(t, ds.Decorations.Len())
}

func TestCellSelection(t *testing.T) {
	d := headed("c")
	sel, err := tables.CreateCellSelection(d.Node, 2, 19)
	require.NoError(t, err)
	assert.Len(t, sel.Ranges(), 4)
	assert.Equal(t, 20, sel.From(), "the head cell comes first")
	assert.True(t, sel.IsRowSelection())
	assert.True(t, sel.IsColSelection())

	var visited []int
	sel.ForEachCell(func(_ *model.Node, pos int) { visited = append(visited, pos) })
	assert.Equal(t, []int{2, 7, 14, 19}, visited)

	content := sel.Content()
	assert.Equal(t, 2, content.Content.ChildCount())

	back, err := state.SelectionFromJSON(d.Node, sel.ToJSON())
	require.NoError(t, err)
	assert.True(t, back.Eq(sel))

	_, err = tables.CreateCellSelection(d.Node, 4, 19)
	assert.Error(t, err)
}
