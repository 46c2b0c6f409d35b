package editor

import (
	"strings"

	"github.com/shodgson/eddytor/commands"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/schema/list"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/tables"
)

// itemAround returns the innermost list or checklist item around the
// position, with its depth, or nil.
func itemAround(rpos *model.ResolvedPos) (*model.Node, int) {
	for d := rpos.Depth; d > 0; d-- {
		node := rpos.Node(d)
		if eddytor.KindOf(node).IsListItem() {
			return node, d
		}
	}
	return nil, 0
}

// EnterInList splits the list item at the cursor. On an item without text,
// it lifts the item one level instead, so that pressing Enter again and
// again walks an empty item out of its lists. Inside a code block the key is
// left to the code block.
func EnterInList(s *state.EditorState, dispatch func(*state.Transaction), view state.View) bool {
	rfrom := s.Selection.RFrom()
	if rfrom.Parent().Type.Spec.Code {
		return false
	}
	item, _ := itemAround(rfrom)
	if item == nil {
		return false
	}
	if strings.TrimSpace(item.TextContent()) == "" {
		return list.LiftListItem(item.Type)(s, dispatch, view)
	}
	var attrs map[string]interface{}
	if eddytor.KindOf(item) == eddytor.KindChecklistItem {
		attrs = map[string]interface{}{"checked": false, "id": eddytor.NewItemID()}
	}
	return list.SplitListItem(item.Type, attrs)(s, dispatch, view)
}

// SinkItem indents the list item at the cursor under its previous sibling.
func SinkItem(s *state.EditorState, dispatch func(*state.Transaction), view state.View) bool {
	item, _ := itemAround(s.Selection.RFrom())
	if item == nil {
		return false
	}
	return list.SinkListItem(item.Type)(s, dispatch, view)
}

// LiftItem outdents the list item at the cursor. At the outermost level,
// the item leaves the list and its content becomes plain blocks.
func LiftItem(s *state.EditorState, dispatch func(*state.Transaction), view state.View) bool {
	item, _ := itemAround(s.Selection.RFrom())
	if item == nil {
		return false
	}
	return list.LiftListItem(item.Type)(s, dispatch, view)
}

// consume handles a key without doing anything.
func consume(*state.EditorState, func(*state.Transaction), state.View) bool {
	return true
}

// Tab moves to the next table cell, or indents the list item. Outside of
// tables and lists the key is consumed anyway.
var Tab = commands.Chain(tables.GoToNextCell(1), SinkItem, consume)

// ShiftTab moves to the previous table cell, or outdents the list item.
var ShiftTab = commands.Chain(tables.GoToNextCell(-1), LiftItem, consume)

// ToggleChecklistItem toggles the checked attribute of the checklist item
// at pos.
func ToggleChecklistItem(pos int) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		item := s.Doc.NodeAt(pos)
		if eddytor.KindOf(item) != eddytor.KindChecklistItem {
			return false
		}
		if dispatch != nil {
			tr := s.Tr()
			checked, _ := item.Attrs["checked"].(bool)
			if err := tr.SetNodeAttribute(pos, "checked", !checked); err != nil {
				return false
			}
			dispatch(tr)
		}
		return true
	}
}

// SpaceInChecklist toggles the checklist item when the cursor is exactly
// at the start of its first block. Anywhere else, the space is left for
// text input.
func SpaceInChecklist(s *state.EditorState, dispatch func(*state.Transaction), view state.View) bool {
	sel := s.Selection
	if !sel.Empty() {
		return false
	}
	rpos := sel.RFrom()
	if rpos.Depth < 2 || rpos.ParentOffset != 0 || !rpos.Parent().IsTextblock() {
		return false
	}
	if eddytor.KindOf(rpos.Node(-1)) != eddytor.KindChecklistItem || rpos.Index(-1) != 0 {
		return false
	}
	pos, err := rpos.Before(-1)
	if err != nil {
		return false
	}
	return ToggleChecklistItem(pos)(s, dispatch, view)
}
