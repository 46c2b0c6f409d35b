package list

import (
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/transform"
)

func fragmentOf(nodes ...*model.Node) *model.Fragment {
	var content []*model.Node
	for _, n := range nodes {
		if n != nil {
			content = append(content, n)
		}
	}
	if len(content) == 0 {
		return model.EmptyFragment
	}
	return model.NewFragment(content)
}

func resolve(doc *model.Node, pos int) *model.ResolvedPos {
	rpos, err := doc.Resolve(pos)
	if err != nil {
		return nil
	}
	return rpos
}

// WrapInList returns a command function that wraps the selection in a list
// with the given type and attributes. If dispatch is nil, only return a value
// to indicate whether this is possible, but don't actually perform the
// change.
func WrapInList(listType *model.NodeType, attrs map[string]interface{}) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		rng := s.Selection.RFrom().BlockRange(s.Selection.RTo())
		if rng == nil {
			return false
		}
		var tr *state.Transaction
		if dispatch != nil {
			tr = s.Tr()
		}
		if !WrapRangeInList(tr, rng, listType, attrs) {
			return false
		}
		if dispatch != nil {
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// WrapRangeInList tries to wrap the given node range in a list of the given
// type. Returns true when this is possible, false otherwise. When tr is
// non-nil, the wrapping is added to the transaction.
func WrapRangeInList(tr *state.Transaction, rng *model.NodeRange, listType *model.NodeType, attrs map[string]interface{}) bool {
	doJoin := false
	outerRange := rng
	doc := rng.From.Doc()
	// At the top of an existing list item
	if rng.Depth >= 2 && rng.From.Node(rng.Depth-1).Type.CompatibleContent(listType) && rng.StartIndex() == 0 {
		// Nothing to do at the top of the list
		if rng.From.Index(rng.Depth-1) == 0 {
			return false
		}
		insert := resolve(doc, rng.Start()-2)
		if insert == nil {
			return false
		}
		outerRange = model.NewNodeRange(insert, insert, rng.Depth)
		if rng.EndIndex() < rng.Parent().ChildCount() {
			end := resolve(doc, rng.To.End(rng.Depth))
			if end == nil {
				return false
			}
			rng = model.NewNodeRange(rng.From, end, rng.Depth)
		}
		doJoin = true
	}
	wrap, ok := transform.FindWrapping(outerRange, listType, attrs, rng)
	if !ok {
		return false
	}
	if tr != nil {
		if err := doWrapInList(tr, rng, wrap, doJoin, listType); err != nil {
			return false
		}
	}
	return true
}

func doWrapInList(tr *state.Transaction, rng *model.NodeRange, wrappers []transform.Wrapper, joinBefore bool, listType *model.NodeType) error {
	content := model.EmptyFragment
	for i := len(wrappers) - 1; i >= 0; i-- {
		node, err := wrappers[i].Type.Create(wrappers[i].Attrs, content, nil)
		if err != nil {
			return err
		}
		content = fragmentOf(node)
	}
	shift := 0
	if joinBefore {
		shift = 2
	}
	step := transform.NewReplaceAroundStep(rng.Start()-shift, rng.End(), rng.Start(), rng.End(),
		model.NewSlice(content, 0, 0), len(wrappers), true)
	if err := tr.Step(step); err != nil {
		return err
	}

	found := 0
	for i, w := range wrappers {
		if w.Type == listType {
			found = i + 1
		}
	}
	splitDepth := len(wrappers) - found
	splitPos := rng.Start() + len(wrappers) - shift
	parent := rng.Parent()
	for i, first := rng.StartIndex(), true; i < rng.EndIndex(); i, first = i+1, false {
		if !first && transform.CanSplit(tr.Doc, splitPos, splitDepth) {
			if err := tr.Split(splitPos, splitDepth); err != nil {
				return err
			}
			splitPos += 2 * splitDepth
		}
		splitPos += parent.MaybeChild(i).NodeSize()
	}
	return nil
}

// SplitListItem builds a command that splits a non-empty textblock at the
// top level of a list item by also splitting that list item. When itemAttrs
// is given, the new item is created with those attributes instead of a copy
// of the original ones.
func SplitListItem(itemType *model.NodeType, itemAttrs map[string]interface{}) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		rfrom, rto := s.Selection.RFrom(), s.Selection.RTo()
		if ns, ok := s.Selection.(*state.NodeSelection); ok && ns.Node.IsBlock() {
			return false
		}
		if rfrom.Depth < 2 || !rfrom.SameParent(rto) {
			return false
		}
		grandParent := rfrom.Node(-1)
		if grandParent.Type != itemType {
			return false
		}
		if rfrom.Parent().Content.Size == 0 && rfrom.Node(-1).ChildCount() == rfrom.IndexAfter(-1) {
			return splitEmptyItem(s, dispatch, itemType, rfrom)
		}

		var nextType *model.NodeType
		if rto.Pos == rfrom.End() {
			if match, err := grandParent.ContentMatchAt(0); err == nil {
				nextType = match.DefaultType()
			}
		}
		tr := s.Tr()
		if err := tr.Delete(rfrom.Pos, rto.Pos); err != nil {
			return false
		}
		var types []*transform.Wrapper
		if nextType != nil || itemAttrs != nil {
			types = make([]*transform.Wrapper, 2)
			if itemAttrs != nil {
				types[0] = &transform.Wrapper{Type: itemType, Attrs: itemAttrs}
			}
			if nextType != nil {
				types[1] = &transform.Wrapper{Type: nextType}
			}
		}
		if !transform.CanSplit(tr.Doc, rfrom.Pos, 2, types...) {
			return false
		}
		if dispatch != nil {
			if err := tr.Split(rfrom.Pos, 2, types...); err != nil {
				return false
			}
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// splitEmptyItem handles an empty block at the end of an item. In a nested
// list, the wrapping list item is split. Otherwise it bails out and lets the
// next command handle lifting.
func splitEmptyItem(s *state.EditorState, dispatch func(*state.Transaction), itemType *model.NodeType, rfrom *model.ResolvedPos) bool {
	if rfrom.Depth == 3 || rfrom.Node(-3).Type != itemType ||
		rfrom.Index(-2) != rfrom.Node(-2).ChildCount()-1 {
		return false
	}
	if dispatch == nil {
		return true
	}
	wrap := model.EmptyFragment
	depthBefore := 3
	if rfrom.Index(-1) > 0 {
		depthBefore = 1
	} else if rfrom.Index(-2) > 0 {
		depthBefore = 2
	}
	// Empty versions of the structure from the outer list item to the
	// parent node of the cursor
	for d := rfrom.Depth - depthBefore; d >= rfrom.Depth-3; d-- {
		wrap = fragmentOf(rfrom.Node(d).Copy(wrap))
	}
	depthAfter := 3
	if rfrom.IndexAfter(-1) < rfrom.Node(-2).ChildCount() {
		depthAfter = 1
	} else if rfrom.IndexAfter(-2) < rfrom.Node(-3).ChildCount() {
		depthAfter = 2
	}
	item, err := itemType.CreateAndFill(nil, nil, nil)
	if err != nil || item == nil {
		return false
	}
	wrap = wrap.Append(fragmentOf(item))
	start, err := rfrom.Before(rfrom.Depth - (depthBefore - 1))
	if err != nil {
		return false
	}
	end, err := rfrom.After(-depthAfter)
	if err != nil {
		return false
	}
	tr := s.Tr()
	if err := tr.Replace(start, end, model.NewSlice(wrap, 4-depthBefore, 0)); err != nil {
		return false
	}
	sel := -1
	tr.Doc.NodesBetween(start, tr.Doc.Content.Size, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if sel > -1 {
			return false
		}
		if node.IsTextblock() && node.Content.Size == 0 {
			sel = pos + 1
		}
		return true
	})
	if sel > -1 {
		if rpos := resolve(tr.Doc, sel); rpos != nil {
			tr.SetSelection(state.Near(rpos))
		}
	}
	dispatch(tr.ScrollIntoView())
	return true
}

func itemRange(s *state.EditorState, itemType *model.NodeType) *model.NodeRange {
	return s.Selection.RFrom().BlockRange(s.Selection.RTo(), func(node *model.Node) bool {
		return node.ChildCount() > 0 && node.FirstChild().Type == itemType
	})
}

// LiftListItem creates a command to lift the list item around the selection
// up into a wrapping list.
func LiftListItem(itemType *model.NodeType) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		rng := itemRange(s, itemType)
		if rng == nil {
			return false
		}
		if dispatch == nil {
			return true
		}
		if s.Selection.RFrom().Node(rng.Depth-1).Type == itemType {
			return liftToOuterList(s, dispatch, itemType, rng)
		}
		return liftOutOfList(s, dispatch, rng)
	}
}

func liftToOuterList(s *state.EditorState, dispatch func(*state.Transaction), itemType *model.NodeType, rng *model.NodeRange) bool {
	tr := s.Tr()
	end := rng.End()
	endOfList := rng.To.End(rng.Depth)
	if end < endOfList {
		// Siblings after the lifted items become children of the last item.
		item, err := itemType.Create(nil, fragmentOf(rng.Parent().Copy()), nil)
		if err != nil {
			return false
		}
		step := transform.NewReplaceAroundStep(end-1, endOfList, end, endOfList,
			model.NewSlice(fragmentOf(item), 1, 0), 1, true)
		if err := tr.Step(step); err != nil {
			return false
		}
		from, to := resolve(tr.Doc, rng.From.Pos), resolve(tr.Doc, endOfList)
		if from == nil || to == nil {
			return false
		}
		rng = model.NewNodeRange(from, to, rng.Depth)
	}
	target, ok := transform.LiftTarget(rng)
	if !ok {
		return false
	}
	if err := tr.Lift(rng, target); err != nil {
		return false
	}
	if rafter := resolve(tr.Doc, tr.Mapping.Map(end, -1)-1); rafter != nil {
		if transform.CanJoin(tr.Doc, rafter.Pos) && rafter.NodeBefore().Type == rafter.NodeAfter().Type {
			if err := tr.Join(rafter.Pos, 1); err != nil {
				return false
			}
		}
	}
	dispatch(tr.ScrollIntoView())
	return true
}

func liftOutOfList(s *state.EditorState, dispatch func(*state.Transaction), rng *model.NodeRange) bool {
	tr := s.Tr()
	list := rng.Parent()
	// Merge the list items into a single big item
	pos := rng.End()
	for i := rng.EndIndex() - 1; i > rng.StartIndex(); i-- {
		pos -= list.MaybeChild(i).NodeSize()
		if err := tr.Delete(pos-1, pos+1); err != nil {
			return false
		}
	}
	rstart := resolve(tr.Doc, rng.Start())
	if rstart == nil {
		return false
	}
	item := rstart.NodeAfter()
	if tr.Mapping.Map(rng.End()) != rng.Start()+item.NodeSize() {
		return false
	}
	atStart := rng.StartIndex() == 0
	atEnd := rng.EndIndex() == list.ChildCount()
	parent := rstart.Node(-1)
	indexBefore := rstart.Index(-1)
	replaceFrom := indexBefore + 1
	if atStart {
		replaceFrom = indexBefore
	}
	rest := model.EmptyFragment
	if !atEnd {
		rest = fragmentOf(list)
	}
	if !parent.CanReplace(replaceFrom, indexBefore+1, item.Content.Append(rest)) {
		return false
	}
	start := rstart.Pos
	end := start + item.NodeSize()
	// Strip off the surrounding list. Where the range is not at the edge of
	// the list, the existing list is closed. At an edge it is overwritten.
	before, afterFrag := model.EmptyFragment, model.EmptyFragment
	openStart, openEnd, from, to := 0, 0, start-1, end+1
	if !atStart {
		before = fragmentOf(list.Copy(model.EmptyFragment))
		openStart, from = 1, start
	}
	if !atEnd {
		afterFrag = fragmentOf(list.Copy(model.EmptyFragment))
		openEnd, to = 1, end
	}
	step := transform.NewReplaceAroundStep(from, to, start+1, end-1,
		model.NewSlice(before.Append(afterFrag), openStart, openEnd), openStart, false)
	if err := tr.Step(step); err != nil {
		return false
	}
	dispatch(tr.ScrollIntoView())
	return true
}

// SinkListItem creates a command to sink the list item around the selection
// down into an inner list.
func SinkListItem(itemType *model.NodeType) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		rng := itemRange(s, itemType)
		if rng == nil {
			return false
		}
		startIndex := rng.StartIndex()
		if startIndex == 0 {
			return false
		}
		parent := rng.Parent()
		nodeBefore := parent.MaybeChild(startIndex - 1)
		if nodeBefore.Type != itemType {
			return false
		}
		if dispatch == nil {
			return true
		}
		nestedBefore := nodeBefore.LastChild() != nil && nodeBefore.LastChild().Type == parent.Type
		inner := model.EmptyFragment
		openStart := 1
		if nestedBefore {
			empty, err := itemType.Create(nil, nil, nil)
			if err != nil {
				return false
			}
			inner = fragmentOf(empty)
			openStart = 3
		}
		list, err := parent.Type.Create(nil, inner, nil)
		if err != nil {
			return false
		}
		item, err := itemType.Create(nil, fragmentOf(list), nil)
		if err != nil {
			return false
		}
		before, after := rng.Start(), rng.End()
		step := transform.NewReplaceAroundStep(before-openStart, after, before, after,
			model.NewSlice(fragmentOf(item), openStart, 0), 1, true)
		tr := s.Tr()
		if err := tr.Step(step); err != nil {
			return false
		}
		dispatch(tr.ScrollIntoView())
		return true
	}
}
