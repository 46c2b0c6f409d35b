package tables

import (
	"fmt"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/transform"
)

// CellSelection is a selection of a rectangle of table cells. Its ranges
// cover the content of each selected cell, the head cell first. AnchorCell
// and HeadCell point right before the anchor and head cells.
type CellSelection struct {
	state.SelectionBase
	AnchorCell *model.ResolvedPos
	HeadCell   *model.ResolvedPos
}

// NewCellSelection creates a selection between two cells. Both positions
// must point right before a cell of the same table.
func NewCellSelection(anchorCell, headCell *model.ResolvedPos) (*CellSelection, error) {
	if headCell == nil {
		headCell = anchorCell
	}
	if !pointsAtCell(anchorCell) || !pointsAtCell(headCell) {
		return nil, fmt.Errorf("cell selection endpoints must point at cells")
	}
	table, start := anchorCell.Node(-1), anchorCell.Start(-1)
	m := Get(table)
	rect, err := m.RectBetween(anchorCell.Pos-start, headCell.Pos-start)
	if err != nil {
		return nil, err
	}
	doc := anchorCell.Doc()
	cells := []int{headCell.Pos - start}
	for _, pos := range m.CellsInRect(rect) {
		if pos != headCell.Pos-start {
			cells = append(cells, pos)
		}
	}
	ranges := make([]state.SelectionRange, 0, len(cells))
	for _, pos := range cells {
		cell := table.NodeAt(pos)
		from := pos + start + 1
		rfrom, err := doc.Resolve(from)
		if err != nil {
			return nil, err
		}
		rto, err := doc.Resolve(from + cell.Content.Size)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, state.SelectionRange{From: rfrom, To: rto})
	}
	return &CellSelection{
		SelectionBase: state.NewSelectionBase(ranges[0].From, ranges[0].To, ranges...),
		AnchorCell:    anchorCell,
		HeadCell:      headCell,
	}, nil
}

// CreateCellSelection creates a cell selection from unresolved positions.
func CreateCellSelection(doc *model.Node, anchorCell int, headCell ...int) (*CellSelection, error) {
	ranchor, err := doc.Resolve(anchorCell)
	if err != nil {
		return nil, err
	}
	rhead := ranchor
	if len(headCell) > 0 {
		if rhead, err = doc.Resolve(headCell[0]); err != nil {
			return nil, err
		}
	}
	return NewCellSelection(ranchor, rhead)
}

// Map is part of the state.Selection interface.
func (s *CellSelection) Map(doc *model.Node, mapping transform.Mappable) state.Selection {
	anchorCell := resolve(doc, mapping.Map(s.AnchorCell.Pos))
	headCell := resolve(doc, mapping.Map(s.HeadCell.Pos))
	if anchorCell == nil || headCell == nil {
		return state.AtStart(doc)
	}
	if pointsAtCell(anchorCell) && pointsAtCell(headCell) && inSameTable(anchorCell, headCell) {
		tableChanged := s.AnchorCell.Node(-1) != anchorCell.Node(-1)
		var sel *CellSelection
		var err error
		switch {
		case tableChanged && s.IsRowSelection():
			sel, err = RowSelection(anchorCell, headCell)
		case tableChanged && s.IsColSelection():
			sel, err = ColSelection(anchorCell, headCell)
		default:
			sel, err = NewCellSelection(anchorCell, headCell)
		}
		if err == nil {
			return sel
		}
	}
	return state.TextSelectionBetween(anchorCell, headCell, 0)
}

// Content returns the selected cells, grouped in rows, as a slice open at
// the row level.
func (s *CellSelection) Content() *model.Slice {
	table, start := s.AnchorCell.Node(-1), s.AnchorCell.Start(-1)
	m := Get(table)
	rect, err := m.RectBetween(s.AnchorCell.Pos-start, s.HeadCell.Pos-start)
	if err != nil {
		return model.EmptySlice
	}
	seen := map[int]bool{}
	var rows []*model.Node
	for row := rect.Top; row < rect.Bottom; row++ {
		var cells []*model.Node
		for col := rect.Left; col < rect.Right; col++ {
			pos := m.Map[row*m.Width+col]
			if seen[pos] {
				continue
			}
			seen[pos] = true
			cells = append(cells, table.NodeAt(pos))
		}
		rowNode := table.Content.Content[row]
		rows = append(rows, rowNode.Copy(model.NewFragment(cells)))
	}
	return model.NewSlice(model.NewFragment(rows), 1, 1)
}

// Replace empties every selected cell and puts the content in the head
// cell.
func (s *CellSelection) Replace(tr *state.Transaction, content *model.Slice) error {
	if content == nil {
		content = model.EmptySlice
	}
	mapFrom := len(tr.Steps)
	for i, r := range s.Ranges() {
		mapping := tr.Mapping.Slice(mapFrom, len(tr.Mapping.Maps))
		slice := content
		if i > 0 {
			slice = model.EmptySlice
		}
		if err := tr.Replace(mapping.Map(r.From.Pos), mapping.Map(r.To.Pos), slice); err != nil {
			return err
		}
	}
	rpos := resolve(tr.Doc, tr.Mapping.Slice(mapFrom, len(tr.Mapping.Maps)).Map(s.To()))
	if rpos != nil {
		if sel := state.FindSelectionFrom(rpos, -1, false); sel != nil {
			tr.SetSelection(sel)
		}
	}
	return nil
}

// ReplaceWith is part of the state.Selection interface.
func (s *CellSelection) ReplaceWith(tr *state.Transaction, node *model.Node) error {
	return s.Replace(tr, model.NewSlice(model.NewFragment([]*model.Node{node}), 0, 0))
}

// ForEachCell calls fn with every selected cell and its position.
func (s *CellSelection) ForEachCell(fn func(cell *model.Node, pos int)) {
	table, start := s.AnchorCell.Node(-1), s.AnchorCell.Start(-1)
	m := Get(table)
	rect, err := m.RectBetween(s.AnchorCell.Pos-start, s.HeadCell.Pos-start)
	if err != nil {
		return
	}
	for _, pos := range m.CellsInRect(rect) {
		fn(table.NodeAt(pos), start+pos)
	}
}

// IsColSelection reports whether the selection spans whole columns.
func (s *CellSelection) IsColSelection() bool {
	anchorTop, headTop := s.AnchorCell.Index(-1), s.HeadCell.Index(-1)
	if min(anchorTop, headTop) > 0 {
		return false
	}
	anchorBot := anchorTop + span(s.AnchorCell.NodeAfter().Attrs, "rowspan")
	headBot := headTop + span(s.HeadCell.NodeAfter().Attrs, "rowspan")
	return max(anchorBot, headBot) == s.HeadCell.Node(-1).ChildCount()
}

// IsRowSelection reports whether the selection spans whole rows.
func (s *CellSelection) IsRowSelection() bool {
	m, start := Get(s.AnchorCell.Node(-1)), s.AnchorCell.Start(-1)
	anchorLeft, err := m.ColCount(s.AnchorCell.Pos - start)
	if err != nil {
		return false
	}
	headLeft, err := m.ColCount(s.HeadCell.Pos - start)
	if err != nil || min(anchorLeft, headLeft) > 0 {
		return false
	}
	anchorRight := anchorLeft + span(s.AnchorCell.NodeAfter().Attrs, "colspan")
	headRight := headLeft + span(s.HeadCell.NodeAfter().Attrs, "colspan")
	return max(anchorRight, headRight) == m.Width
}

// RowSelection extends the cells to whole rows.
func RowSelection(anchorCell, headCell *model.ResolvedPos) (*CellSelection, error) {
	m, start, doc := Get(anchorCell.Node(-1)), anchorCell.Start(-1), anchorCell.Doc()
	anchorRect, err := m.FindCell(anchorCell.Pos - start)
	if err != nil {
		return nil, err
	}
	headRect, err := m.FindCell(headCell.Pos - start)
	if err != nil {
		return nil, err
	}
	rowStart := func(r Rect) *model.ResolvedPos { return resolve(doc, start+m.Map[r.Top*m.Width]) }
	rowEnd := func(r Rect) *model.ResolvedPos { return resolve(doc, start+m.Map[m.Width*(r.Top+1)-1]) }
	if anchorRect.Left <= headRect.Left {
		if anchorRect.Left > 0 {
			anchorCell = rowStart(anchorRect)
		}
		if headRect.Right < m.Width {
			headCell = rowEnd(headRect)
		}
	} else {
		if headRect.Left > 0 {
			headCell = rowStart(headRect)
		}
		if anchorRect.Right < m.Width {
			anchorCell = rowEnd(anchorRect)
		}
	}
	return NewCellSelection(anchorCell, headCell)
}

// ColSelection extends the cells to whole columns.
func ColSelection(anchorCell, headCell *model.ResolvedPos) (*CellSelection, error) {
	m, start, doc := Get(anchorCell.Node(-1)), anchorCell.Start(-1), anchorCell.Doc()
	anchorRect, err := m.FindCell(anchorCell.Pos - start)
	if err != nil {
		return nil, err
	}
	headRect, err := m.FindCell(headCell.Pos - start)
	if err != nil {
		return nil, err
	}
	colTop := func(r Rect) *model.ResolvedPos { return resolve(doc, start+m.Map[r.Left]) }
	colBottom := func(r Rect) *model.ResolvedPos {
		return resolve(doc, start+m.Map[m.Width*(m.Height-1)+r.Right-1])
	}
	if anchorRect.Top <= headRect.Top {
		if anchorRect.Top > 0 {
			anchorCell = colTop(anchorRect)
		}
		if headRect.Bottom < m.Height {
			headCell = colBottom(headRect)
		}
	} else {
		if headRect.Top > 0 {
			headCell = colTop(headRect)
		}
		if anchorRect.Bottom < m.Height {
			anchorCell = colBottom(anchorRect)
		}
	}
	return NewCellSelection(anchorCell, headCell)
}

// Eq is part of the state.Selection interface.
func (s *CellSelection) Eq(other state.Selection) bool {
	o, ok := other.(*CellSelection)
	return ok && o.AnchorCell.Pos == s.AnchorCell.Pos && o.HeadCell.Pos == s.HeadCell.Pos
}

// ToJSON is part of the state.Selection interface.
func (s *CellSelection) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "cell", "anchor": s.AnchorCell.Pos, "head": s.HeadCell.Pos}
}

func init() {
	state.RegisterSelectionJSON("cell", func(doc *model.Node, obj map[string]interface{}) (state.Selection, error) {
		anchor, _ := model.AttrInt(obj["anchor"])
		head, _ := model.AttrInt(obj["head"])
		return CreateCellSelection(doc, anchor, head)
	})
}

var _ state.Selection = &CellSelection{}
