// Package commands provides the basic editing commands: deleting and
// joining blocks, splitting, lifting and wrapping, changing block types and
// toggling marks.
package commands

import (
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/transform"
)

// Chain combines a number of command functions into a single function
// (which calls them one by one until one returns true).
func Chain(cmds ...state.Command) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), view state.View) bool {
		for _, cmd := range cmds {
			if cmd(s, dispatch, view) {
				return true
			}
		}
		return false
	}
}

// Cursor returns the resolved position of the cursor when the selection is
// an empty text selection.
func Cursor(sel state.Selection) *model.ResolvedPos {
	if ts, ok := sel.(*state.TextSelection); ok {
		return ts.Cursor()
	}
	return nil
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

// DeleteSelection deletes the selection, if there is one.
func DeleteSelection(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if s.Selection.Empty() {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		if err := tr.DeleteSelection(); err != nil {
			return false
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

func atBlockStart(s *state.EditorState) *model.ResolvedPos {
	cursor := Cursor(s.Selection)
	if cursor == nil || cursor.ParentOffset > 0 {
		return nil
	}
	return cursor
}

func atBlockEnd(s *state.EditorState) *model.ResolvedPos {
	cursor := Cursor(s.Selection)
	if cursor == nil || cursor.ParentOffset < cursor.Parent().Content.Size {
		return nil
	}
	return cursor
}

// JoinBackward is used when the selection is empty and at the start of a
// textblock. It tries to reduce the distance between that block and the one
// before it: if there's a block directly before it that can be joined, join
// them. If not, try to move the selected block closer to the next one in
// the document structure by lifting it out of its parent or moving it into
// a parent of the previous block.
func JoinBackward(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	cursor := atBlockStart(s)
	if cursor == nil {
		return false
	}
	cut := findCutBefore(cursor)

	// If there is no node before this, try to lift.
	if cut == nil {
		rng := cursor.BlockRange(nil)
		if rng == nil {
			return false
		}
		target, ok := transform.LiftTarget(rng)
		if !ok {
			return false
		}
		return dispatchLift(s, dispatch, rng, target)
	}

	beforeNode := cut.NodeBefore()
	if deleteBarrier(s, cut, dispatch, -1) {
		return true
	}

	// If the node below has no content and the node above is selectable,
	// delete the node below, selecting the one above.
	if cursor.Parent().Content.Size == 0 && (textblockAt(beforeNode, false, false) || state.IsSelectable(beforeNode)) {
		for depth := cursor.Depth; ; depth-- {
			step, err := transform.ReplaceStepFor(s.Doc, before(cursor, depth), after(cursor, depth), model.EmptySlice)
			if rs, ok := step.(*transform.ReplaceStep); err == nil && ok && rs.Slice.Size() < rs.To-rs.From {
				if dispatch != nil {
					tr := s.Tr()
					if err := tr.Step(step); err != nil {
						return false
					}
					if textblockAt(beforeNode, false, false) {
						if rpos := resolve(tr.Doc, tr.Mapping.Map(cut.Pos, -1)); rpos != nil {
							if sel := state.FindSelectionFrom(rpos, -1, false); sel != nil {
								tr.SetSelection(sel)
							}
						}
					} else if sel, err := state.CreateNodeSelection(tr.Doc, cut.Pos-beforeNode.NodeSize()); err == nil {
						tr.SetSelection(sel)
					}
					dispatch(tr.ScrollIntoView())
				}
				return true
			}
			if depth == 1 || cursor.Node(depth-1).ChildCount() > 1 {
				break
			}
		}
	}

	// If the node before is an atom, delete it.
	if beforeNode.IsAtom() && cut.Depth == cursor.Depth-1 {
		if dispatch != nil {
			tr := s.Tr()
			if err := tr.Delete(cut.Pos-beforeNode.NodeSize(), cut.Pos); err != nil {
				return false
			}
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
	return false
}

// JoinForward is the forward-looking counterpart of JoinBackward: when the
// cursor is at the end of a textblock, try to join the next block into it.
func JoinForward(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	cursor := atBlockEnd(s)
	if cursor == nil {
		return false
	}
	cut := findCutAfter(cursor)
	if cut == nil {
		return false
	}
	afterNode := cut.NodeAfter()
	if deleteBarrier(s, cut, dispatch, 1) {
		return true
	}

	if cursor.Parent().Content.Size == 0 && (textblockAt(afterNode, true, false) || state.IsSelectable(afterNode)) {
		step, err := transform.ReplaceStepFor(s.Doc, before(cursor), after(cursor), model.EmptySlice)
		if rs, ok := step.(*transform.ReplaceStep); err == nil && ok && rs.Slice.Size() < rs.To-rs.From {
			if dispatch != nil {
				tr := s.Tr()
				if err := tr.Step(step); err != nil {
					return false
				}
				if textblockAt(afterNode, true, false) {
					if rpos := resolve(tr.Doc, tr.Mapping.Map(cut.Pos)); rpos != nil {
						if sel := state.FindSelectionFrom(rpos, 1, false); sel != nil {
							tr.SetSelection(sel)
						}
					}
				} else if sel, err := state.CreateNodeSelection(tr.Doc, tr.Mapping.Map(cut.Pos)); err == nil {
					tr.SetSelection(sel)
				}
				dispatch(tr.ScrollIntoView())
			}
			return true
		}
	}

	if afterNode.IsAtom() && cut.Depth == cursor.Depth-1 {
		if dispatch != nil {
			tr := s.Tr()
			if err := tr.Delete(cut.Pos, cut.Pos+afterNode.NodeSize()); err != nil {
				return false
			}
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
	return false
}

// SelectNodeBackward selects the node before the cursor when the cursor is
// at the start of a textblock and that node is selectable.
func SelectNodeBackward(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if !s.Selection.Empty() {
		return false
	}
	cut := s.Selection.ResolvedHead()
	if cut.Parent().IsTextblock() {
		if cut.ParentOffset > 0 {
			return false
		}
		cut = findCutBefore(cut)
	}
	if cut == nil {
		return false
	}
	node := cut.NodeBefore()
	if node == nil || !state.IsSelectable(node) {
		return false
	}
	if dispatch != nil {
		sel, err := state.CreateNodeSelection(s.Doc, cut.Pos-node.NodeSize())
		if err != nil {
			return false
		}
		dispatch(s.Tr().SetSelection(sel).ScrollIntoView())
	}
	return true
}

// SelectNodeForward selects the node after the cursor when the cursor is at
// the end of a textblock and that node is selectable.
func SelectNodeForward(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if !s.Selection.Empty() {
		return false
	}
	cut := s.Selection.ResolvedHead()
	if cut.Parent().IsTextblock() {
		if cut.ParentOffset < cut.Parent().Content.Size {
			return false
		}
		cut = findCutAfter(cut)
	}
	if cut == nil {
		return false
	}
	node := cut.NodeAfter()
	if node == nil || !state.IsSelectable(node) {
		return false
	}
	if dispatch != nil {
		sel, err := state.CreateNodeSelection(s.Doc, cut.Pos)
		if err != nil {
			return false
		}
		dispatch(s.Tr().SetSelection(sel).ScrollIntoView())
	}
	return true
}

// DeleteCharBackward removes the character before a cursor placed inside a
// textblock.
func DeleteCharBackward(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	cursor := Cursor(s.Selection)
	if cursor == nil || cursor.ParentOffset == 0 {
		return false
	}
	from := cursor.Pos - charSizeBefore(cursor)
	if dispatch != nil {
		tr := s.Tr()
		if err := tr.Delete(from, cursor.Pos); err != nil {
			return false
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// DeleteCharForward removes the character after a cursor placed inside a
// textblock.
func DeleteCharForward(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	cursor := Cursor(s.Selection)
	if cursor == nil || cursor.ParentOffset >= cursor.Parent().Content.Size {
		return false
	}
	to := cursor.Pos + charSizeAfter(cursor)
	if dispatch != nil {
		tr := s.Tr()
		if err := tr.Delete(cursor.Pos, to); err != nil {
			return false
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// charSizeBefore returns the size of the character before the position:
// two for a surrogate pair, the node size for a non-text inline node.
func charSizeBefore(rpos *model.ResolvedPos) int {
	node := rpos.NodeBefore()
	if node == nil || !node.IsText() {
		if node != nil {
			return node.NodeSize()
		}
		return 1
	}
	units := utf16.Encode([]rune(*node.Text))
	if n := len(units); n >= 2 && utf16.IsSurrogate(rune(units[n-1])) {
		return 2
	}
	return 1
}

func charSizeAfter(rpos *model.ResolvedPos) int {
	node := rpos.NodeAfter()
	if node == nil || !node.IsText() {
		if node != nil {
			return node.NodeSize()
		}
		return 1
	}
	units := utf16.Encode([]rune(*node.Text))
	if len(units) >= 2 && utf16.IsSurrogate(rune(units[0])) {
		return 2
	}
	return 1
}

func textblockAt(node *model.Node, start, only bool) bool {
	for scan := node; scan != nil; {
		if scan.IsTextblock() {
			return true
		}
		if only && scan.ChildCount() != 1 {
			return false
		}
		if start {
			scan = scan.FirstChild()
		} else {
			scan = scan.LastChild()
		}
	}
	return false
}

func findCutBefore(rpos *model.ResolvedPos) *model.ResolvedPos {
	if rpos.Parent().Type.Spec.Isolating {
		return nil
	}
	for i := rpos.Depth - 1; i >= 0; i-- {
		if rpos.Index(i) > 0 {
			return resolve(rpos.Doc(), before(rpos, i+1))
		}
		if rpos.Node(i).Type.Spec.Isolating {
			break
		}
	}
	return nil
}

func findCutAfter(rpos *model.ResolvedPos) *model.ResolvedPos {
	if rpos.Parent().Type.Spec.Isolating {
		return nil
	}
	for i := rpos.Depth - 1; i >= 0; i-- {
		parent := rpos.Node(i)
		if rpos.Index(i)+1 < parent.ChildCount() {
			return resolve(rpos.Doc(), after(rpos, i+1))
		}
		if parent.Type.Spec.Isolating {
			break
		}
	}
	return nil
}

func joinMaybeClear(s *state.EditorState, rpos *model.ResolvedPos, dispatch func(*state.Transaction)) bool {
	beforeNode, afterNode, index := rpos.NodeBefore(), rpos.NodeAfter(), rpos.Index()
	if beforeNode == nil || afterNode == nil || !beforeNode.Type.CompatibleContent(afterNode.Type) {
		return false
	}
	if beforeNode.Content.Size == 0 && rpos.Parent().CanReplace(index-1, index) {
		if dispatch != nil {
			tr := s.Tr()
			if err := tr.Delete(rpos.Pos-beforeNode.NodeSize(), rpos.Pos); err != nil {
				return false
			}
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
	if !rpos.Parent().CanReplace(index, index+1) || !(afterNode.IsTextblock() || transform.CanJoin(s.Doc, rpos.Pos)) {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		match, err := beforeNode.ContentMatchAt(beforeNode.ChildCount())
		if err != nil {
			return false
		}
		if err := tr.ClearIncompatible(rpos.Pos, beforeNode.Type, match); err != nil {
			return false
		}
		if err := tr.Join(rpos.Pos, 1); err != nil {
			return false
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

func deleteBarrier(s *state.EditorState, cut *model.ResolvedPos, dispatch func(*state.Transaction), dir int) bool {
	beforeNode, afterNode := cut.NodeBefore(), cut.NodeAfter()
	isolated := beforeNode.Type.Spec.Isolating || afterNode.Type.Spec.Isolating
	if !isolated && joinMaybeClear(s, cut, dispatch) {
		return true
	}

	canDelAfter := !isolated && cut.Parent().CanReplace(cut.Index(), cut.Index()+1)
	if canDelAfter {
		match, err := beforeNode.ContentMatchAt(beforeNode.ChildCount())
		if err == nil {
			if conn, ok := match.FindWrapping(afterNode.Type); ok {
				first := afterNode.Type
				if len(conn) > 0 {
					first = conn[0]
				}
				if next := match.MatchType(first); next != nil && next.ValidEnd {
					if dispatch != nil {
						end := cut.Pos + afterNode.NodeSize()
						wrap := model.EmptyFragment
						for i := len(conn) - 1; i >= 0; i-- {
							node, err := conn[i].Create(nil, wrap, nil)
							if err != nil {
								return false
							}
							wrap = model.NewFragment([]*model.Node{node})
						}
						wrap = model.NewFragment([]*model.Node{beforeNode.Copy(wrap)})
						tr := s.Tr()
						if err := tr.Step(transform.NewReplaceAroundStep(cut.Pos-1, end, cut.Pos, end,
							model.NewSlice(wrap, 1, 0), len(conn), true)); err != nil {
							return false
						}
						if joinAt := resolve(tr.Doc, end+2*len(conn)); joinAt != nil {
							if n := joinAt.NodeAfter(); n != nil && n.Type == beforeNode.Type && transform.CanJoin(tr.Doc, joinAt.Pos) {
								if err := tr.Join(joinAt.Pos, 1); err != nil {
									return false
								}
							}
						}
						dispatch(tr.ScrollIntoView())
					}
					return true
				}
			}
		}
	}

	var selAfter state.Selection
	if !afterNode.Type.Spec.Isolating && !(dir > 0 && isolated) {
		selAfter = state.FindSelectionFrom(cut, 1, false)
	}
	if selAfter != nil {
		if rng := selAfter.RFrom().BlockRange(selAfter.RTo()); rng != nil {
			if target, ok := transform.LiftTarget(rng); ok && target >= cut.Depth {
				return dispatchLift(s, dispatch, rng, target)
			}
		}
	}

	if canDelAfter && textblockAt(afterNode, true, true) && textblockAt(beforeNode, false, false) {
		at := beforeNode
		var wrap []*model.Node
		for {
			wrap = append(wrap, at)
			if at.IsTextblock() {
				break
			}
			at = at.LastChild()
		}
		afterText, afterDepth := afterNode, 1
		for ; !afterText.IsTextblock(); afterText = afterText.FirstChild() {
			afterDepth++
		}
		if at.CanReplace(at.ChildCount(), at.ChildCount(), afterText.Content) {
			if dispatch != nil {
				end := model.EmptyFragment
				for i := len(wrap) - 1; i >= 0; i-- {
					end = model.NewFragment([]*model.Node{wrap[i].Copy(end)})
				}
				tr := s.Tr()
				if err := tr.Step(transform.NewReplaceAroundStep(cut.Pos-len(wrap), cut.Pos+afterNode.NodeSize(),
					cut.Pos+afterDepth, cut.Pos+afterNode.NodeSize()-afterDepth,
					model.NewSlice(end, len(wrap), 0), 0, true)); err != nil {
					return false
				}
				dispatch(tr.ScrollIntoView())
			}
			return true
		}
	}
	return false
}

func dispatchLift(s *state.EditorState, dispatch func(*state.Transaction), rng *model.NodeRange, target int) bool {
	if dispatch != nil {
		tr := s.Tr()
		if err := tr.Lift(rng, target); err != nil {
			return false
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// Lift the selected block, or the closest ancestor block of the selection
// that can be lifted, out of its parent node.
func Lift(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	rng := s.Selection.RFrom().BlockRange(s.Selection.RTo())
	if rng == nil {
		return false
	}
	target, ok := transform.LiftTarget(rng)
	if !ok {
		return false
	}
	return dispatchLift(s, dispatch, rng, target)
}

// NewlineInCode inserts a newline character when the selection is in a
// node whose type has its Code spec property set.
func NewlineInCode(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	head, anchor := s.Selection.ResolvedHead(), s.Selection.ResolvedAnchor()
	if !head.Parent().Type.Spec.Code || !head.SameParent(anchor) {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		if err := tr.InsertText("\n"); err != nil {
			return false
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// DefaultBlockAt returns the first textblock type without required
// attributes that the content match accepts.
func DefaultBlockAt(match *model.ContentMatch) *model.NodeType {
	for i := 0; i < match.EdgeCount(); i++ {
		edge, err := match.Edge(i)
		if err != nil {
			break
		}
		if edge.Type.IsTextblock() && !edge.Type.HasRequiredAttrs() {
			return edge.Type
		}
	}
	return nil
}

// ExitCode creates a default block after the code block that the selection
// is in, and moves the selection there, when the selection is in a node
// whose type has its Code spec property set.
func ExitCode(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	head, anchor := s.Selection.ResolvedHead(), s.Selection.ResolvedAnchor()
	if !head.Parent().Type.Spec.Code || !head.SameParent(anchor) {
		return false
	}
	above, index := head.Node(-1), head.IndexAfter(-1)
	match, err := above.ContentMatchAt(index)
	if err != nil {
		return false
	}
	typ := DefaultBlockAt(match)
	if typ == nil || !above.CanReplaceWith(index, index, typ) {
		return false
	}
	if dispatch != nil {
		pos := after(head)
		node, err := typ.CreateAndFill(nil, nil, nil)
		if err != nil {
			return false
		}
		tr := s.Tr()
		if err := tr.ReplaceWith(pos, pos, node); err != nil {
			return false
		}
		if rpos := resolve(tr.Doc, pos); rpos != nil {
			tr.SetSelection(state.Near(rpos, 1))
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// CreateParagraphNear creates an empty paragraph before or after a
// selected block node, when a block node is selected.
func CreateParagraphNear(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	sel := s.Selection
	rfrom, rto := sel.RFrom(), sel.RTo()
	if _, all := sel.(*state.AllSelection); all || rfrom.Parent().InlineContent() || rto.Parent().InlineContent() {
		return false
	}
	match, err := rto.Parent().ContentMatchAt(rto.IndexAfter())
	if err != nil {
		return false
	}
	typ := DefaultBlockAt(match)
	if typ == nil || !typ.IsTextblock() {
		return false
	}
	if dispatch != nil {
		side := rto.Pos
		if rfrom.ParentOffset == 0 && rto.Index() < rto.Parent().ChildCount() {
			side = rfrom.Pos
		}
		node, err := typ.CreateAndFill(nil, nil, nil)
		if err != nil {
			return false
		}
		tr := s.Tr()
		if err := tr.Insert(side, node); err != nil {
			return false
		}
		if ts, err := state.CreateTextSelection(tr.Doc, side+1); err == nil {
			tr.SetSelection(ts)
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// LiftEmptyBlock lifts an empty textblock with the cursor in it out of its
// parent, splitting the parent when the block is not its last child.
func LiftEmptyBlock(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	cursor := Cursor(s.Selection)
	if cursor == nil || cursor.Parent().Content.Size > 0 {
		return false
	}
	if cursor.Depth > 1 && after(cursor) != cursor.End(cursor.Depth-1) {
		pos := before(cursor)
		if transform.CanSplit(s.Doc, pos, 1) {
			if dispatch != nil {
				tr := s.Tr()
				if err := tr.Split(pos, 1); err != nil {
					return false
				}
				dispatch(tr.ScrollIntoView())
			}
			return true
		}
	}
	rng := cursor.BlockRange(nil)
	if rng == nil {
		return false
	}
	target, ok := transform.LiftTarget(rng)
	if !ok {
		return false
	}
	return dispatchLift(s, dispatch, rng, target)
}

// SplitBlock splits the parent block of the selection. If the selection
// is a text selection, also deletes its content.
func SplitBlock(s *state.EditorState, dispatch func(*state.Transaction), view state.View) bool {
	return SplitBlockAs(nil)(s, dispatch, view)
}

// SplitBlockAs creates a variant of SplitBlock that uses a custom function
// to determine the type of the newly split off block.
func SplitBlockAs(splitNode func(node *model.Node, atEnd bool, rfrom *model.ResolvedPos) *transform.Wrapper) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		rfrom, rto := s.Selection.RFrom(), s.Selection.RTo()
		if ns, ok := s.Selection.(*state.NodeSelection); ok && ns.Node.IsBlock() {
			if rfrom.ParentOffset == 0 || !transform.CanSplit(s.Doc, rfrom.Pos, 1) {
				return false
			}
			if dispatch != nil {
				tr := s.Tr()
				if err := tr.Split(rfrom.Pos, 1); err != nil {
					return false
				}
				dispatch(tr.ScrollIntoView())
			}
			return true
		}
		if rfrom.Depth == 0 {
			return false
		}

		var types []*transform.Wrapper
		var deflt *model.NodeType
		splitDepth := 0
		atEnd, atStart := false, false
		for d := rfrom.Depth; ; d-- {
			node := rfrom.Node(d)
			if node.IsBlock() {
				atEnd = rfrom.End(d) == rfrom.Pos+(rfrom.Depth-d)
				atStart = rfrom.Start(d) == rfrom.Pos-(rfrom.Depth-d)
				if match, err := rfrom.Node(d-1).ContentMatchAt(rfrom.IndexAfter(d - 1)); err == nil {
					deflt = DefaultBlockAt(match)
				}
				var splitType *transform.Wrapper
				if splitNode != nil {
					splitType = splitNode(rto.Parent(), atEnd, rfrom)
				}
				if splitType == nil && atEnd && deflt != nil {
					splitType = &transform.Wrapper{Type: deflt}
				}
				types = append([]*transform.Wrapper{splitType}, types...)
				splitDepth = d
				break
			}
			if d == 1 {
				return false
			}
			types = append([]*transform.Wrapper{nil}, types...)
		}

		tr := s.Tr()
		switch s.Selection.(type) {
		case *state.TextSelection, *state.AllSelection:
			if err := tr.DeleteSelection(); err != nil {
				return false
			}
		}
		splitPos := tr.Mapping.Map(rfrom.Pos)
		can := transform.CanSplit(tr.Doc, splitPos, len(types), types...)
		if !can {
			types[0] = nil
			if deflt != nil {
				types[0] = &transform.Wrapper{Type: deflt}
			}
			can = transform.CanSplit(tr.Doc, splitPos, len(types), types...)
		}
		if !can {
			return false
		}
		if err := tr.Split(splitPos, len(types), types...); err != nil {
			return false
		}
		if !atEnd && atStart && rfrom.Node(splitDepth).Type != deflt {
			first := tr.Mapping.Map(before(rfrom, splitDepth))
			if rfirst := resolve(tr.Doc, first); rfirst != nil && deflt != nil &&
				rfrom.Node(splitDepth-1).CanReplaceWith(rfirst.Index(), rfirst.Index()+1, deflt) {
				if err := tr.SetNodeMarkup(first, deflt, nil, nil); err != nil {
					return false
				}
			}
		}
		if dispatch != nil {
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// SelectAll selects the whole document.
func SelectAll(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	if dispatch != nil {
		dispatch(s.Tr().SetSelection(state.NewAllSelection(s.Doc)))
	}
	return true
}

// WrapIn wraps the selection in a node of the given type with the given
// attributes.
func WrapIn(typ *model.NodeType, attrs map[string]interface{}) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		rng := s.Selection.RFrom().BlockRange(s.Selection.RTo())
		if rng == nil {
			return false
		}
		wrapping, ok := transform.FindWrapping(rng, typ, attrs)
		if !ok {
			return false
		}
		if dispatch != nil {
			tr := s.Tr()
			if err := tr.Wrap(rng, wrapping); err != nil {
				return false
			}
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// SetBlockType tries to turn all textblocks in the selection into the
// given type with the given attributes.
func SetBlockType(typ *model.NodeType, attrs map[string]interface{}) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		applicable := false
		for _, r := range s.Selection.Ranges() {
			if applicable {
				break
			}
			s.Doc.NodesBetween(r.From.Pos, r.To.Pos, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
				if applicable {
					return false
				}
				if !node.IsTextblock() || node.HasMarkup(typ, attrs) {
					return true
				}
				if node.Type == typ {
					applicable = true
				} else if rpos := resolve(s.Doc, pos); rpos != nil {
					index := rpos.Index()
					applicable = rpos.Parent().CanReplaceWith(index, index+1, typ)
				}
				return true
			})
		}
		if !applicable {
			return false
		}
		if dispatch != nil {
			tr := s.Tr()
			for _, r := range s.Selection.Ranges() {
				if err := tr.SetBlockType(r.From.Pos, r.To.Pos, typ, attrs); err != nil {
					return false
				}
			}
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

func markApplies(doc *model.Node, ranges []state.SelectionRange, typ *model.MarkType) bool {
	for _, r := range ranges {
		can := r.From.Depth == 0 && doc.InlineContent() && doc.Type.AllowsMarkType(typ)
		doc.NodesBetween(r.From.Pos, r.To.Pos, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
			if can {
				return false
			}
			can = node.InlineContent() && node.Type.AllowsMarkType(typ)
			return true
		})
		if can {
			return true
		}
	}
	return false
}

// ToggleMark creates a command function that toggles the given mark with
// the given attributes. Will return false when the current selection
// doesn't support that mark. This will remove the mark if any marks of
// that type exist in the selection, or add it otherwise. If the selection
// is empty, this applies to the stored marks instead of a range of the
// document.
func ToggleMark(typ *model.MarkType, attrs map[string]interface{}) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		cursor := Cursor(s.Selection)
		ranges := s.Selection.Ranges()
		if (s.Selection.Empty() && cursor == nil) || !markApplies(s.Doc, ranges, typ) {
			return false
		}
		if dispatch == nil {
			return true
		}
		tr := s.Tr()
		if cursor != nil {
			marks := s.StoredMarks
			if marks == nil {
				marks = cursor.Marks()
			}
			if typ.IsInSet(marks) != nil {
				dispatch(tr.RemoveStoredMark(typ))
			} else {
				dispatch(tr.AddStoredMark(typ.Create(attrs)))
			}
			return true
		}
		add := true
		for _, r := range ranges {
			if s.Doc.RangeHasMark(r.From.Pos, r.To.Pos, typ) {
				add = false
				break
			}
		}
		for _, r := range ranges {
			from, to := r.From.Pos, r.To.Pos
			if !add {
				if err := tr.RemoveMark(from, to, typ); err != nil {
					return false
				}
				continue
			}
			spaceStart, spaceEnd := 0, 0
			if start := r.From.NodeAfter(); start != nil && start.IsText() {
				text := *start.Text
				spaceStart = model.TextLength(text) - model.TextLength(strings.TrimLeftFunc(text, unicode.IsSpace))
			}
			if end := r.To.NodeBefore(); end != nil && end.IsText() {
				text := *end.Text
				spaceEnd = model.TextLength(text) - model.TextLength(strings.TrimRightFunc(text, unicode.IsSpace))
			}
			if from+spaceStart < to {
				from += spaceStart
				to -= spaceEnd
			}
			if err := tr.AddMark(from, to, typ.Create(attrs)); err != nil {
				return false
			}
		}
		dispatch(tr.ScrollIntoView())
		return true
	}
}

// BaseKeymap binds Enter, Backspace, Delete and Mod-a to the basic
// commands.
func BaseKeymap() map[string]state.Command {
	del := Chain(DeleteSelection, JoinBackward, SelectNodeBackward, DeleteCharBackward)
	fwd := Chain(DeleteSelection, JoinForward, SelectNodeForward, DeleteCharForward)
	return map[string]state.Command{
		"Enter":           Chain(NewlineInCode, CreateParagraphNear, LiftEmptyBlock, SplitBlock),
		"Mod-Enter":       ExitCode,
		"Backspace":       del,
		"Mod-Backspace":   del,
		"Shift-Backspace": del,
		"Delete":          fwd,
		"Mod-Delete":      fwd,
		"Mod-a":           SelectAll,
	}
}
