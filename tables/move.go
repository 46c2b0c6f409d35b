package tables

import (
	"errors"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
)

// ErrMergedCells is returned when moving rows or columns of a table that
// has merged cells.
var ErrMergedCells = errors.New("cannot move rows or columns of a table with merged cells")

func hasMergedCells(table *model.Node) bool {
	for _, row := range table.Content.Content {
		for _, cell := range row.Content.Content {
			if span(cell.Attrs, "colspan") > 1 || span(cell.Attrs, "rowspan") > 1 {
				return true
			}
		}
	}
	return false
}

func moveIndex(nodes []*model.Node, from, to int) []*model.Node {
	result := make([]*model.Node, 0, len(nodes))
	moved := nodes[from]
	for i, n := range nodes {
		if i != from {
			result = append(result, n)
		}
	}
	result = append(result[:to], append([]*model.Node{moved}, result[to:]...)...)
	return result
}

func replaceTable(tr *state.Transaction, tablePos int, table, updated *model.Node, row, col int) error {
	if err := tr.ReplaceWith(tablePos, tablePos+table.NodeSize(), updated); err != nil {
		return err
	}
	cellPos := tablePos + 1 + Get(updated).PositionAt(row, col, updated)
	if rpos := resolve(tr.Doc, cellPos+1); rpos != nil {
		tr.SetSelection(state.Near(rpos))
	}
	return nil
}

// MoveRow moves the row at index from to index to, in the table that
// starts at tablePos. The cursor is put in the moved row.
func MoveRow(tr *state.Transaction, tablePos, from, to int) error {
	table := tr.Doc.NodeAt(tablePos)
	if table == nil || role(table.Type) != RoleTable {
		return ErrNotInTable
	}
	if from < 0 || to < 0 || from >= table.ChildCount() || to >= table.ChildCount() {
		return errors.New("row index out of range")
	}
	if hasMergedCells(table) {
		return ErrMergedCells
	}
	if from == to {
		return nil
	}
	rows := moveIndex(table.Content.Content, from, to)
	return replaceTable(tr, tablePos, table, table.Copy(model.NewFragment(rows)), to, 0)
}

// MoveColumn moves the column at index from to index to, in the table that
// starts at tablePos.
func MoveColumn(tr *state.Transaction, tablePos, from, to int) error {
	table := tr.Doc.NodeAt(tablePos)
	if table == nil || role(table.Type) != RoleTable {
		return ErrNotInTable
	}
	m := Get(table)
	if from < 0 || to < 0 || from >= m.Width || to >= m.Width {
		return errors.New("column index out of range")
	}
	if hasMergedCells(table) || !m.Rectangular() {
		return ErrMergedCells
	}
	if from == to {
		return nil
	}
	rows := make([]*model.Node, table.ChildCount())
	for i, row := range table.Content.Content {
		rows[i] = row.Copy(model.NewFragment(moveIndex(row.Content.Content, from, to)))
	}
	return replaceTable(tr, tablePos, table, table.Copy(model.NewFragment(rows)), 0, to)
}

func moveCommand(from, to int, move func(tr *state.Transaction, tablePos, from, to int) error) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		tablePos, _, ok := FindTable(s.Selection.ResolvedHead())
		if !ok {
			return false
		}
		tr := s.Tr()
		if err := move(tr, tablePos, from, to); err != nil || !tr.DocChanged() {
			return false
		}
		if dispatch != nil {
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// MoveTableRow moves a row of the table around the selection.
func MoveTableRow(from, to int) state.Command {
	return moveCommand(from, to, MoveRow)
}

// MoveTableColumn moves a column of the table around the selection.
func MoveTableColumn(from, to int) state.Command {
	return moveCommand(from, to, MoveColumn)
}
