package tables

import (
	"errors"
	"fmt"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
)

// CellMinWidth is the smallest width, in pixels, a column can be resized to.
const CellMinWidth = 40

// ErrNotInTable is returned when the selection is not inside a table.
var ErrNotInTable = errors.New("selection is not in a table")

// TableRect is a rectangle of cells of a table, with the table it belongs
// to. TableStart is the position of the start of the table content.
type TableRect struct {
	Rect
	Map        *TableMap
	Table      *model.Node
	TableStart int
}

// SelectedRect returns the rectangle covered by the selection: the selected
// cells of a CellSelection, or the cell around the cursor.
func SelectedRect(s *state.EditorState) (*TableRect, error) {
	cell := SelectionCell(s)
	if cell == nil {
		return nil, ErrNotInTable
	}
	table, tableStart := cell.Node(-1), cell.Start(-1)
	m := Get(table)
	var rect Rect
	var err error
	if sel, ok := s.Selection.(*CellSelection); ok {
		rect, err = m.RectBetween(sel.AnchorCell.Pos-tableStart, sel.HeadCell.Pos-tableStart)
	} else {
		rect, err = m.FindCell(cell.Pos - tableStart)
	}
	if err != nil {
		return nil, err
	}
	return &TableRect{Rect: rect, Map: m, Table: table, TableStart: tableStart}, nil
}

func (r *TableRect) refresh(tr *state.Transaction) {
	r.Table = tr.Doc.NodeAt(r.TableStart - 1)
	r.Map = Get(r.Table)
}

func fill(typ *model.NodeType, attrs map[string]interface{}) (*model.Node, error) {
	node, err := typ.CreateAndFill(attrs, nil, nil)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("cannot fill a %s node", typ.Name)
	}
	return node, nil
}

// AddColumn adds a column at the given index. The new cells copy the type
// of the cells of the neighbouring column, so that header columns only
// grow inside.
func AddColumn(tr *state.Transaction, r *TableRect, col int) error {
	m, table := r.Map, r.Table
	refColumn, useRef := -1, true
	if col == 0 {
		refColumn = 0
	}
	if columnIsHeader(m, table, col+refColumn) {
		if col == 0 || col == m.Width {
			useRef = false
		} else {
			refColumn = 0
		}
	}
	for row := 0; row < m.Height; row++ {
		index := row*m.Width + col
		if col > 0 && col < m.Width && m.Map[index-1] == m.Map[index] {
			pos := m.Map[index]
			cell := table.NodeAt(pos)
			left, err := m.ColCount(pos)
			if err != nil {
				return err
			}
			if err := tr.SetNodeMarkup(tr.Mapping.Map(r.TableStart+pos), nil, addColSpan(cell.Attrs, col-left, 1), nil); err != nil {
				return err
			}
			row += span(cell.Attrs, "rowspan") - 1
			continue
		}
		typ := TableNodeTypes(table.Type.Schema).Cell
		if useRef {
			typ = table.NodeAt(m.Map[index+refColumn]).Type
		}
		cell, err := fill(typ, nil)
		if err != nil {
			return err
		}
		pos := m.PositionAt(row, col, table)
		if err := tr.Insert(tr.Mapping.Map(r.TableStart+pos), cell); err != nil {
			return err
		}
	}
	return nil
}

func addColumnCommand(after bool) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		if !IsInTable(s) {
			return false
		}
		if dispatch != nil {
			r, err := SelectedRect(s)
			if err != nil {
				return false
			}
			col := r.Left
			if after {
				col = r.Right
			}
			tr := s.Tr()
			if err := AddColumn(tr, r, col); err != nil {
				return false
			}
			dispatch(tr)
		}
		return true
	}
}

// AddColumnBefore adds a column before the selected cells.
var AddColumnBefore = addColumnCommand(false)

// AddColumnAfter adds a column after the selected cells.
var AddColumnAfter = addColumnCommand(true)

// RemoveColumn removes the column at the given index. Cells spanning over
// it get a smaller colspan.
func RemoveColumn(tr *state.Transaction, r *TableRect, col int) error {
	m, table := r.Map, r.Table
	mapStart := len(tr.Mapping.Maps)
	for row := 0; row < m.Height; {
		index := row*m.Width + col
		pos := m.Map[index]
		cell := table.NodeAt(pos)
		mapping := tr.Mapping.Slice(mapStart, len(tr.Mapping.Maps))
		if (col > 0 && m.Map[index-1] == pos) || (col < m.Width-1 && m.Map[index+1] == pos) {
			left, err := m.ColCount(pos)
			if err != nil {
				return err
			}
			if err := tr.SetNodeMarkup(mapping.Map(r.TableStart+pos), nil, removeColSpan(cell.Attrs, col-left, 1), nil); err != nil {
				return err
			}
		} else {
			start := mapping.Map(r.TableStart + pos)
			if err := tr.Delete(start, start+cell.NodeSize()); err != nil {
				return err
			}
		}
		row += span(cell.Attrs, "rowspan")
	}
	return nil
}

// DeleteColumn removes the selected columns. It refuses to remove every
// column of the table.
func DeleteColumn(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if !IsInTable(s) {
		return false
	}
	r, err := SelectedRect(s)
	if err != nil || (r.Left == 0 && r.Right == r.Map.Width) {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		for i := r.Right - 1; ; i-- {
			if err := RemoveColumn(tr, r, i); err != nil {
				return false
			}
			if i == r.Left {
				break
			}
			r.refresh(tr)
		}
		dispatch(tr)
	}
	return true
}

// AddRow adds a row at the given index. Like AddColumn, the new cells copy
// the type of the neighbouring row.
func AddRow(tr *state.Transaction, r *TableRect, row int) error {
	m, table := r.Map, r.Table
	types := TableNodeTypes(table.Type.Schema)
	rowPos := r.TableStart
	for i := 0; i < row; i++ {
		rowPos += table.Content.Content[i].NodeSize()
	}
	refRow, useRef := -1, true
	if row == 0 {
		refRow = 0
	}
	if rowIsHeader(m, table, row+refRow) {
		if row == 0 || row == m.Height {
			useRef = false
		} else {
			refRow = 0
		}
	}
	var cells []*model.Node
	for col, index := 0, m.Width*row; col < m.Width; col, index = col+1, index+1 {
		if row > 0 && row < m.Height && m.Map[index] == m.Map[index-m.Width] {
			pos := m.Map[index]
			attrs := table.NodeAt(pos).Attrs
			if err := tr.SetNodeMarkup(r.TableStart+pos, nil, setAttr(attrs, "rowspan", span(attrs, "rowspan")+1), nil); err != nil {
				return err
			}
			colspan := span(attrs, "colspan")
			col += colspan - 1
			index += colspan - 1
			continue
		}
		typ := types.Cell
		if useRef {
			typ = table.NodeAt(m.Map[index+refRow*m.Width]).Type
		}
		cell, err := fill(typ, nil)
		if err != nil {
			return err
		}
		cells = append(cells, cell)
	}
	rowNode, err := types.Row.Create(nil, cells, nil)
	if err != nil {
		return err
	}
	return tr.Insert(rowPos, rowNode)
}

// AddRowBefore adds a row before the selected cells. It refuses to add a
// row above the header row of the table.
func AddRowBefore(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if !IsInTable(s) {
		return false
	}
	r, err := SelectedRect(s)
	if err != nil {
		return false
	}
	if r.Top == 0 && rowIsHeader(r.Map, r.Table, 0) {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		if err := AddRow(tr, r, r.Top); err != nil {
			return false
		}
		dispatch(tr)
	}
	return true
}

// AddRowAfter adds a row after the selected cells.
func AddRowAfter(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if !IsInTable(s) {
		return false
	}
	if dispatch != nil {
		r, err := SelectedRect(s)
		if err != nil {
			return false
		}
		tr := s.Tr()
		if err := AddRow(tr, r, r.Bottom); err != nil {
			return false
		}
		dispatch(tr)
	}
	return true
}

// RemoveRow removes the row at the given index. Cells coming from the row
// above lose a rowspan, and cells going on in the row below are moved down.
func RemoveRow(tr *state.Transaction, r *TableRect, row int) error {
	m, table := r.Map, r.Table
	rowPos := 0
	for i := 0; i < row; i++ {
		rowPos += table.Content.Content[i].NodeSize()
	}
	nextRow := rowPos + table.Content.Content[row].NodeSize()
	mapFrom := len(tr.Mapping.Maps)
	if err := tr.Delete(rowPos+r.TableStart, nextRow+r.TableStart); err != nil {
		return err
	}
	for col, index := 0, row*m.Width; col < m.Width; col, index = col+1, index+1 {
		pos := m.Map[index]
		mapping := tr.Mapping.Slice(mapFrom, len(tr.Mapping.Maps))
		switch {
		case row > 0 && pos == m.Map[index-m.Width]:
			attrs := table.NodeAt(pos).Attrs
			if err := tr.SetNodeMarkup(mapping.Map(pos+r.TableStart), nil, setAttr(attrs, "rowspan", span(attrs, "rowspan")-1), nil); err != nil {
				return err
			}
			colspan := span(attrs, "colspan")
			col += colspan - 1
			index += colspan - 1
		case row < m.Height-1 && pos == m.Map[index+m.Width]:
			cell := table.NodeAt(pos)
			moved, err := cell.Type.Create(setAttr(cell.Attrs, "rowspan", span(cell.Attrs, "rowspan")-1), cell.Content, nil)
			if err != nil {
				return err
			}
			newPos := m.PositionAt(row+1, col, table)
			if err := tr.Insert(mapping.Map(r.TableStart+newPos), moved); err != nil {
				return err
			}
			colspan := span(cell.Attrs, "colspan")
			col += colspan - 1
			index += colspan - 1
		}
	}
	return nil
}

// DeleteRow removes the selected rows. It refuses to remove every row of
// the table.
func DeleteRow(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if !IsInTable(s) {
		return false
	}
	r, err := SelectedRect(s)
	if err != nil || (r.Top == 0 && r.Bottom == r.Map.Height) {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		for i := r.Bottom - 1; ; i-- {
			if err := RemoveRow(tr, r, i); err != nil {
				return false
			}
			if i == r.Top {
				break
			}
			r.refresh(tr)
		}
		dispatch(tr)
	}
	return true
}

func isEmptyCell(cell *model.Node) bool {
	c := cell.Content
	return c.ChildCount() == 1 && c.FirstChild().IsTextblock() && c.FirstChild().ChildCount() == 0
}

func cellsOverlapRectangle(m *TableMap, rect Rect) bool {
	indexTop := rect.Top*m.Width + rect.Left
	indexLeft := indexTop
	indexBottom := (rect.Bottom-1)*m.Width + rect.Left
	indexRight := indexTop + (rect.Right - rect.Left - 1)
	for i := rect.Top; i < rect.Bottom; i++ {
		if (rect.Left > 0 && m.Map[indexLeft] == m.Map[indexLeft-1]) ||
			(rect.Right < m.Width && m.Map[indexRight] == m.Map[indexRight+1]) {
			return true
		}
		indexLeft += m.Width
		indexRight += m.Width
	}
	for i := rect.Left; i < rect.Right; i++ {
		if (rect.Top > 0 && m.Map[indexTop] == m.Map[indexTop-m.Width]) ||
			(rect.Bottom < m.Height && m.Map[indexBottom] == m.Map[indexBottom+m.Width]) {
			return true
		}
		indexTop++
		indexBottom++
	}
	return false
}

// MergeCells merges the cells of a CellSelection into one cell, when they
// form a rectangle.
func MergeCells(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	sel, ok := s.Selection.(*CellSelection)
	if !ok || sel.AnchorCell.Pos == sel.HeadCell.Pos {
		return false
	}
	r, err := SelectedRect(s)
	if err != nil || cellsOverlapRectangle(r.Map, r.Rect) {
		return false
	}
	if dispatch == nil {
		return true
	}
	m := r.Map
	tr := s.Tr()
	seen := map[int]bool{}
	content := model.EmptyFragment
	mergedPos := -1
	var merged *model.Node
	for row := r.Top; row < r.Bottom; row++ {
		for col := r.Left; col < r.Right; col++ {
			cellPos := m.Map[row*m.Width+col]
			if seen[cellPos] {
				continue
			}
			seen[cellPos] = true
			cell := r.Table.NodeAt(cellPos)
			if mergedPos < 0 {
				mergedPos, merged = cellPos, cell
				continue
			}
			if !isEmptyCell(cell) {
				content = content.Append(cell.Content)
			}
			mapped := tr.Mapping.Map(cellPos + r.TableStart)
			if err := tr.Delete(mapped, mapped+cell.NodeSize()); err != nil {
				return false
			}
		}
	}
	colspan := span(merged.Attrs, "colspan")
	attrs := setAttr(addColSpan(merged.Attrs, colspan, r.Right-r.Left-colspan), "rowspan", r.Bottom-r.Top)
	if err := tr.SetNodeMarkup(mergedPos+r.TableStart, nil, attrs, nil); err != nil {
		return false
	}
	if content.Size > 0 {
		end := mergedPos + 1 + merged.Content.Size
		start := end
		if isEmptyCell(merged) {
			start = mergedPos + 1
		}
		if err := tr.ReplaceWith(start+r.TableStart, end+r.TableStart, content); err != nil {
			return false
		}
	}
	if next, err := CreateCellSelection(tr.Doc, mergedPos+r.TableStart); err == nil {
		tr.SetSelection(next)
	}
	dispatch(tr)
	return true
}

// SplitCell splits a merged cell back into single cells of the same type.
func SplitCell(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	var cellNode *model.Node
	var cellPos int
	sel, isCellSel := s.Selection.(*CellSelection)
	if isCellSel {
		if sel.AnchorCell.Pos != sel.HeadCell.Pos {
			return false
		}
		cellNode, cellPos = sel.AnchorCell.NodeAfter(), sel.AnchorCell.Pos
	} else {
		cellNode = CellWrapping(s.Selection.RFrom())
		if cellNode == nil {
			return false
		}
		cellPos = CellAround(s.Selection.RFrom()).Pos
	}
	if span(cellNode.Attrs, "colspan") == 1 && span(cellNode.Attrs, "rowspan") == 1 {
		return false
	}
	if dispatch == nil {
		return true
	}
	r, err := SelectedRect(s)
	if err != nil {
		return false
	}
	typ := TableNodeTypes(s.Schema).ForRole(role(cellNode.Type))
	baseAttrs := setAttr(setAttr(cellNode.Attrs, "rowspan", 1), "colspan", 1)
	widths := colWidths(cellNode.Attrs)
	attrs := make([]map[string]interface{}, r.Right-r.Left)
	for i := range attrs {
		attrs[i] = baseAttrs
		if widths != nil {
			var w interface{}
			if i < len(widths) && widths[i] > 0 {
				w = []int{widths[i]}
			}
			attrs[i] = setAttr(baseAttrs, "colwidth", w)
		}
	}
	tr := s.Tr()
	lastCell := -1
	for row := r.Top; row < r.Bottom; row++ {
		pos := r.Map.PositionAt(row, r.Left, r.Table)
		if row == r.Top {
			pos += cellNode.NodeSize()
		}
		for col, i := r.Left, 0; col < r.Right; col, i = col+1, i+1 {
			if col == r.Left && row == r.Top {
				continue
			}
			cell, err := fill(typ, attrs[i])
			if err != nil {
				return false
			}
			lastCell = tr.Mapping.Map(pos+r.TableStart, 1)
			if err := tr.Insert(lastCell, cell); err != nil {
				return false
			}
		}
	}
	if err := tr.SetNodeMarkup(cellPos, typ, attrs[0], nil); err != nil {
		return false
	}
	if isCellSel {
		head := sel.AnchorCell.Pos
		if lastCell >= 0 {
			head = lastCell
		}
		if next, err := CreateCellSelection(tr.Doc, sel.AnchorCell.Pos, head); err == nil {
			tr.SetSelection(next)
		}
	}
	dispatch(tr)
	return true
}

// SetCellAttr sets an attribute on the selected cells.
func SetCellAttr(name string, value interface{}) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		if !IsInTable(s) {
			return false
		}
		cell := SelectionCell(s)
		if cell == nil || cell.NodeAfter() == nil || cell.NodeAfter().Attrs[name] == value {
			return false
		}
		if dispatch != nil {
			tr := s.Tr()
			var failed error
			if sel, ok := s.Selection.(*CellSelection); ok {
				sel.ForEachCell(func(node *model.Node, pos int) {
					if failed == nil && node.Attrs[name] != value {
						failed = tr.SetNodeMarkup(pos, nil, setAttr(node.Attrs, name, value), nil)
					}
				})
			} else {
				failed = tr.SetNodeMarkup(cell.Pos, nil, setAttr(cell.NodeAfter().Attrs, name, value), nil)
			}
			if failed != nil {
				return false
			}
			dispatch(tr)
		}
		return true
	}
}

// Header toggles.
const (
	HeaderRow    = "row"
	HeaderColumn = "column"
	HeaderCell   = "cell"
)

func isHeaderEnabled(kind string, r *TableRect, types NodeTypes) bool {
	rect := Rect{Right: 1, Bottom: 1}
	if kind == HeaderRow {
		rect.Right = r.Map.Width
	}
	if kind == HeaderColumn {
		rect.Bottom = r.Map.Height
	}
	for _, pos := range r.Map.CellsInRect(rect) {
		if cell := r.Table.NodeAt(pos); cell != nil && cell.Type != types.HeaderCell {
			return false
		}
	}
	return true
}

// ToggleHeader turns the first row or column of the table, or the
// selected cells, into header cells, or back into normal cells.
func ToggleHeader(kind string) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		if !IsInTable(s) {
			return false
		}
		if dispatch == nil {
			return true
		}
		types := TableNodeTypes(s.Schema)
		r, err := SelectedRect(s)
		if err != nil {
			return false
		}
		rowEnabled := isHeaderEnabled(HeaderRow, r, types)
		colEnabled := isHeaderEnabled(HeaderColumn, r, types)
		var cells Rect
		newType := types.HeaderCell
		switch kind {
		case HeaderColumn:
			top := 0
			if rowEnabled {
				top = 1
			}
			cells = Rect{Left: 0, Top: top, Right: 1, Bottom: r.Map.Height}
			if colEnabled {
				newType = types.Cell
			}
		case HeaderRow:
			left := 0
			if colEnabled {
				left = 1
			}
			cells = Rect{Left: left, Top: 0, Right: r.Map.Width, Bottom: 1}
			if rowEnabled {
				newType = types.Cell
			}
		default:
			cells = r.Rect
			allHeaders := true
			for _, pos := range r.Map.CellsInRect(cells) {
				if r.Table.NodeAt(pos).Type != types.HeaderCell {
					allHeaders = false
				}
			}
			if allHeaders {
				newType = types.Cell
			}
		}
		tr := s.Tr()
		for _, rel := range r.Map.CellsInRect(cells) {
			pos := rel + r.TableStart
			if cell := tr.Doc.NodeAt(pos); cell != nil {
				if err := tr.SetNodeMarkup(pos, newType, cell.Attrs, nil); err != nil {
					return false
				}
			}
		}
		dispatch(tr)
		return true
	}
}

// The header toggles bound by the table keymap.
var (
	ToggleHeaderRow    = ToggleHeader(HeaderRow)
	ToggleHeaderColumn = ToggleHeader(HeaderColumn)
	ToggleHeaderCell   = ToggleHeader(HeaderCell)
)

func findNextCell(cell *model.ResolvedPos, dir int) (int, bool) {
	table := cell.Node(-1)
	if dir < 0 {
		if prev := cell.NodeBefore(); prev != nil {
			return cell.Pos - prev.NodeSize(), true
		}
		rowEnd := before(cell)
		for row := cell.Index(-1) - 1; row >= 0; row-- {
			rowNode := table.Content.Content[row]
			if rowNode.ChildCount() > 0 {
				return rowEnd - 1 - rowNode.LastChild().NodeSize(), true
			}
			rowEnd -= rowNode.NodeSize()
		}
		return 0, false
	}
	if cell.Index() < cell.Parent().ChildCount()-1 {
		return cell.Pos + cell.NodeAfter().NodeSize(), true
	}
	rowStart := after(cell)
	for row := cell.IndexAfter(-1); row < table.ChildCount(); row++ {
		rowNode := table.Content.Content[row]
		if rowNode.ChildCount() > 0 {
			return rowStart + 1, true
		}
		rowStart += rowNode.NodeSize()
	}
	return 0, false
}

// GoToNextCell selects the content of the next (dir > 0) or previous
// (dir < 0) cell. It fails at the edges of the table.
func GoToNextCell(dir int) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		if !IsInTable(s) {
			return false
		}
		current := SelectionCell(s)
		if current == nil {
			return false
		}
		pos, ok := findNextCell(current, dir)
		if !ok {
			return false
		}
		if dispatch != nil {
			cell := resolve(s.Doc, pos)
			if cell == nil {
				return false
			}
			tr := s.Tr()
			tr.SetSelection(state.TextSelectionBetween(cell, moveCellForward(cell), 0))
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// DeleteTable deletes the table around the selection.
func DeleteTable(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	pos, table, ok := FindTable(s.Selection.ResolvedAnchor())
	if !ok {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		if err := tr.Delete(pos, pos+table.NodeSize()); err != nil {
			return false
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// SetColumnWidth sets the width of the column whose right edge is the right
// edge of the cell at cellPos. Widths under CellMinWidth are raised to it.
func SetColumnWidth(cellPos, width int) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		cell := resolve(s.Doc, cellPos)
		if cell == nil || !pointsAtCell(cell) {
			return false
		}
		width = max(width, CellMinWidth)
		table, start := cell.Node(-1), cell.Start(-1)
		m := Get(table)
		left, err := m.ColCount(cell.Pos - start)
		if err != nil {
			return false
		}
		col := left + span(cell.NodeAfter().Attrs, "colspan") - 1
		tr := s.Tr()
		for row := 0; row < m.Height; row++ {
			mapIndex := row*m.Width + col
			if row > 0 && m.Map[mapIndex] == m.Map[mapIndex-m.Width] {
				continue
			}
			pos := m.Map[mapIndex]
			attrs := table.NodeAt(pos).Attrs
			index := 0
			if colspan := span(attrs, "colspan"); colspan > 1 {
				cellLeft, err := m.ColCount(pos)
				if err != nil {
					return false
				}
				index = col - cellLeft
			}
			widths := colWidths(attrs)
			if index < len(widths) && widths[index] == width {
				continue
			}
			grown := make([]int, span(attrs, "colspan"))
			copy(grown, widths)
			grown[index] = width
			if err := tr.SetNodeMarkup(start+pos, nil, setAttr(attrs, "colwidth", grown), nil); err != nil {
				return false
			}
		}
		if !tr.DocChanged() {
			return false
		}
		if dispatch != nil {
			dispatch(tr)
		}
		return true
	}
}
