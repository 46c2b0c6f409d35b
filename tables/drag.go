package tables

import (
	"github.com/shodgson/eddytor/decoration"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
	"go.uber.org/zap"
)

// DragKey is the key of the drag plugin.
var DragKey = state.NewPluginKey("tableDrag")

// Axis tells whether rows or columns are dragged.
type Axis int

// The drag axes.
const (
	AxisRow Axis = iota
	AxisColumn
)

// DragState is the state of the drag plugin. When Dragging is false, the
// other fields are zero.
type DragState struct {
	Dragging bool
	Axis     Axis
	// Position right before the table.
	TablePos    int
	From        int
	Target      int
	Decorations *decoration.DecorationSet
}

type dragPhase int

const (
	dragStart dragPhase = iota + 1
	dragMove
	dragEnd
)

type dragMeta struct {
	phase    dragPhase
	axis     Axis
	tablePos int
	index    int
}

var idle = &DragState{Decorations: decoration.Empty}

// DragPlugin tracks the drag of a row or column. A drag starts with
// StartDrag, follows the pointer with DragOver and ends with Drop (which
// moves the row or column) or CancelDrag. Any transaction that changes the
// document cancels the drag, since the dragged indices would be stale.
func DragPlugin(logger *zap.Logger) *state.Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return state.NewPlugin(&state.PluginSpec{
		Key: DragKey,
		State: &state.StateField{
			Init: func(state.Config, *state.EditorState) interface{} { return idle },
			Apply: func(tr *state.Transaction, value interface{}, _, newState *state.EditorState) interface{} {
				current := value.(*DragState)
				if tr.DocChanged() {
					if current.Dragging {
						logger.Debug("table drag cancelled by a document change")
					}
					return idle
				}
				meta, ok := tr.GetMeta(DragKey).(dragMeta)
				if !ok {
					return current
				}
				switch meta.phase {
				case dragStart:
					next := &DragState{Dragging: true, Axis: meta.axis, TablePos: meta.tablePos, From: meta.index, Target: meta.index}
					next.Decorations = dragDecorations(newState.Doc, next)
					return next
				case dragMove:
					if !current.Dragging {
						return current
					}
					next := *current
					next.Target = meta.index
					next.Decorations = dragDecorations(newState.Doc, &next)
					return &next
				case dragEnd:
					return idle
				}
				return current
			},
		},
		Props: state.Props{
			Decorations: func(s *state.EditorState) *decoration.DecorationSet {
				return GetDragState(s).Decorations
			},
		},
	})
}

// GetDragState returns the drag state of an editor state.
func GetDragState(s *state.EditorState) *DragState {
	if ds, ok := DragKey.GetState(s).(*DragState); ok {
		return ds
	}
	return idle
}

// dragDecorations adds a node decoration on every cell of the dragged row
// or column, and on the cells of the drop target.
func dragDecorations(doc *model.Node, ds *DragState) *decoration.DecorationSet {
	table := doc.NodeAt(ds.TablePos)
	if table == nil || role(table.Type) != RoleTable {
		return decoration.Empty
	}
	m := Get(table)
	start := ds.TablePos + 1
	var decos []*decoration.Decoration
	mark := func(index int, class string) {
		rect := Rect{Left: index, Top: 0, Right: index + 1, Bottom: m.Height}
		if ds.Axis == AxisRow {
			rect = Rect{Left: 0, Top: index, Right: m.Width, Bottom: index + 1}
		}
		for _, pos := range m.CellsInRect(rect) {
			cell := table.NodeAt(pos)
			decos = append(decos, decoration.NewNode(start+pos, start+pos+cell.NodeSize(), map[string]string{"class": class}))
		}
	}
	mark(ds.From, "dragging")
	if ds.Target != ds.From {
		mark(ds.Target, "drop-target")
	}
	return decoration.Create(doc, decos)
}

// indexAt finds the table around pos and the row or column of the cell
// there.
func indexAt(doc *model.Node, pos int, axis Axis) (int, int, bool) {
	rpos := resolve(doc, pos)
	if rpos == nil {
		return 0, 0, false
	}
	cell := CellAround(rpos)
	if cell == nil {
		if !pointsAtCell(rpos) {
			return 0, 0, false
		}
		cell = rpos
	}
	table, start := cell.Node(-1), cell.Start(-1)
	rect, err := Get(table).FindCell(cell.Pos - start)
	if err != nil {
		return 0, 0, false
	}
	tablePos := start - 1
	if axis == AxisRow {
		return tablePos, rect.Top, true
	}
	return tablePos, rect.Left, true
}

// StartDrag starts dragging the row or column of the cell at pos.
func StartDrag(pos int, axis Axis) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		tablePos, index, ok := indexAt(s.Doc, pos, axis)
		if !ok {
			return false
		}
		if dispatch != nil {
			dispatch(s.Tr().SetMeta(DragKey, dragMeta{phase: dragStart, axis: axis, tablePos: tablePos, index: index}))
		}
		return true
	}
}

// DragOver moves the drop target to the row or column of the cell at pos.
// It fails when no drag is in progress or pos is in another table.
func DragOver(pos int) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		ds := GetDragState(s)
		if !ds.Dragging {
			return false
		}
		tablePos, index, ok := indexAt(s.Doc, pos, ds.Axis)
		if !ok || tablePos != ds.TablePos {
			return false
		}
		if dispatch != nil && index != ds.Target {
			dispatch(s.Tr().SetMeta(DragKey, dragMeta{phase: dragMove, index: index}))
		}
		return true
	}
}

// Drop ends the drag, moving the dragged row or column to the target.
func Drop(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	ds := GetDragState(s)
	if !ds.Dragging {
		return false
	}
	tr := s.Tr().SetMeta(DragKey, dragMeta{phase: dragEnd})
	if ds.From != ds.Target {
		move := MoveRow
		if ds.Axis == AxisColumn {
			move = MoveColumn
		}
		if err := move(tr, ds.TablePos, ds.From, ds.Target); err != nil {
			tr = s.Tr().SetMeta(DragKey, dragMeta{phase: dragEnd})
		}
	}
	if dispatch != nil {
		dispatch(tr)
	}
	return true
}

// CancelDrag ends the drag without moving anything.
func CancelDrag(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if !GetDragState(s).Dragging {
		return false
	}
	if dispatch != nil {
		dispatch(s.Tr().SetMeta(DragKey, dragMeta{phase: dragEnd}))
	}
	return true
}
