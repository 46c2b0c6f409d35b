package tables

import (
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/state"
)

// Table roles of the node specs.
const (
	RoleTable      = "table"
	RoleRow        = "row"
	RoleCell       = "cell"
	RoleHeaderCell = "header_cell"
)

// NodeTypes are the table node types of a schema, found by role.
type NodeTypes struct {
	Table, Row, Cell, HeaderCell *model.NodeType
}

// TableNodeTypes finds the node types playing the table roles in a schema.
func TableNodeTypes(schema *model.Schema) NodeTypes {
	var types NodeTypes
	for _, typ := range schema.NodeTypes() {
		switch role(typ) {
		case RoleTable:
			types.Table = typ
		case RoleRow:
			types.Row = typ
		case RoleCell:
			types.Cell = typ
		case RoleHeaderCell:
			types.HeaderCell = typ
		}
	}
	return types
}

// ForRole returns the node type for a cell role.
func (t NodeTypes) ForRole(r string) *model.NodeType {
	if r == RoleHeaderCell {
		return t.HeaderCell
	}
	return t.Cell
}

func role(typ *model.NodeType) string {
	if typ == nil || typ.Spec == nil {
		return ""
	}
	return typ.Spec.TableRole
}

func isCellRole(typ *model.NodeType) bool {
	r := role(typ)
	return r == RoleCell || r == RoleHeaderCell
}

func before(rpos *model.ResolvedPos, depth ...int) int {
	pos, _ := rpos.Before(depth...)
	return pos
}

func after(rpos *model.ResolvedPos, depth ...int) int {
	pos, _ := rpos.After(depth...)
	return pos
}

func resolve(doc *model.Node, pos int) *model.ResolvedPos {
	rpos, err := doc.Resolve(pos)
	if err != nil {
		return nil
	}
	return rpos
}

// CellAround returns the position pointing at the cell that contains rpos,
// or nil when rpos is not inside a table.
func CellAround(rpos *model.ResolvedPos) *model.ResolvedPos {
	for d := rpos.Depth - 1; d > 0; d-- {
		if role(rpos.Node(d).Type) == RoleRow {
			return resolve(rpos.Doc(), before(rpos, d+1))
		}
	}
	return nil
}

// CellWrapping returns the cell node around rpos, if any.
func CellWrapping(rpos *model.ResolvedPos) *model.Node {
	for d := rpos.Depth; d > 0; d-- {
		if node := rpos.Node(d); isCellRole(node.Type) {
			return node
		}
	}
	return nil
}

// IsInTable reports whether the head of the selection is inside a table.
func IsInTable(s *state.EditorState) bool {
	head := s.Selection.ResolvedHead()
	for d := head.Depth; d > 0; d-- {
		if role(head.Node(d).Type) == RoleRow {
			return true
		}
	}
	return false
}

// SelectionCell returns the position pointing at the cell where the
// selection is, or nil.
func SelectionCell(s *state.EditorState) *model.ResolvedPos {
	switch sel := s.Selection.(type) {
	case *CellSelection:
		if sel.AnchorCell.Pos > sel.HeadCell.Pos {
			return sel.AnchorCell
		}
		return sel.HeadCell
	case *state.NodeSelection:
		if isCellRole(sel.Node.Type) {
			return sel.ResolvedAnchor()
		}
	}
	if cell := CellAround(s.Selection.ResolvedHead()); cell != nil {
		return cell
	}
	return cellNear(s.Selection.ResolvedHead())
}

func cellNear(rpos *model.ResolvedPos) *model.ResolvedPos {
	for next, pos := rpos.NodeAfter(), rpos.Pos; next != nil; next, pos = next.FirstChild(), pos+1 {
		if isCellRole(next.Type) {
			return resolve(rpos.Doc(), pos)
		}
		if next.IsLeaf() {
			break
		}
	}
	for prev, pos := rpos.NodeBefore(), rpos.Pos; prev != nil; prev, pos = prev.LastChild(), pos-1 {
		if isCellRole(prev.Type) {
			return resolve(rpos.Doc(), pos-prev.NodeSize())
		}
		if prev.IsLeaf() {
			break
		}
	}
	return nil
}

func pointsAtCell(rpos *model.ResolvedPos) bool {
	return role(rpos.Parent().Type) == RoleRow && rpos.NodeAfter() != nil
}

func moveCellForward(rpos *model.ResolvedPos) *model.ResolvedPos {
	return resolve(rpos.Doc(), rpos.Pos+rpos.NodeAfter().NodeSize())
}

func inSameTable(a, b *model.ResolvedPos) bool {
	return a.Depth == b.Depth && a.Pos >= b.Start(-1) && a.Pos <= b.End(-1)
}

func setAttr(attrs map[string]interface{}, name string, value interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(attrs)+1)
	for k, v := range attrs {
		result[k] = v
	}
	result[name] = value
	return result
}

func colWidths(attrs map[string]interface{}) []int {
	return eddytor.ColWidths(attrs["colwidth"])
}

func removeColSpan(attrs map[string]interface{}, pos, n int) map[string]interface{} {
	result := setAttr(attrs, "colspan", span(attrs, "colspan")-n)
	if widths := colWidths(attrs); widths != nil {
		pos = min(pos, len(widths))
		cut := append(append([]int{}, widths[:pos]...), widths[min(pos+n, len(widths)):]...)
		result["colwidth"] = nil
		for _, w := range cut {
			if w > 0 {
				result["colwidth"] = cut
				break
			}
		}
	}
	return result
}

func addColSpan(attrs map[string]interface{}, pos, n int) map[string]interface{} {
	result := setAttr(attrs, "colspan", span(attrs, "colspan")+n)
	if widths := colWidths(attrs); widths != nil {
		pos = min(pos, len(widths))
		grown := append(append(append([]int{}, widths[:pos]...), make([]int, n)...), widths[pos:]...)
		result["colwidth"] = grown
	}
	return result
}

func columnIsHeader(m *TableMap, table *model.Node, col int) bool {
	header := TableNodeTypes(table.Type.Schema).HeaderCell
	for row := 0; row < m.Height; row++ {
		if cell := table.NodeAt(m.Map[col+row*m.Width]); cell == nil || cell.Type != header {
			return false
		}
	}
	return true
}

func rowIsHeader(m *TableMap, table *model.Node, row int) bool {
	header := TableNodeTypes(table.Type.Schema).HeaderCell
	for col := 0; col < m.Width; col++ {
		if cell := table.NodeAt(m.Map[col+row*m.Width]); cell == nil || cell.Type != header {
			return false
		}
	}
	return true
}

// FindTable returns the position right before the innermost table around
// rpos and the table node, or false when rpos isn't in a table.
func FindTable(rpos *model.ResolvedPos) (int, *model.Node, bool) {
	for d := rpos.Depth; d > 0; d-- {
		if node := rpos.Node(d); role(node.Type) == RoleTable {
			return before(rpos, d), node, true
		}
	}
	return 0, nil, false
}
