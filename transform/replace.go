package transform

import (
	"github.com/shodgson/eddytor/model"
)

// ReplaceStepFor creates a step that replaces the content between from and
// to with the given slice, fitting the slice into the document structure
// (by opening, closing or wrapping nodes) when it does not fit as is.
// Returns nil when there is nothing to do or no fitting could be found.
func ReplaceStepFor(doc *model.Node, from, to int, slice *model.Slice) (Step, error) {
	if from == to && slice.Size() == 0 {
		return nil, nil
	}
	rfrom, err := doc.Resolve(from)
	if err != nil {
		return nil, err
	}
	rto, err := doc.Resolve(to)
	if err != nil {
		return nil, err
	}
	if fitsTrivially(rfrom, rto, slice) {
		return NewReplaceStep(from, to, slice), nil
	}
	return newFitter(rfrom, rto, slice).fit(), nil
}

func fitsTrivially(rfrom, rto *model.ResolvedPos, slice *model.Slice) bool {
	return slice.OpenStart == 0 && slice.OpenEnd == 0 && rfrom.Start() == rto.Start() &&
		rfrom.Parent().CanReplace(rfrom.Index(), rto.Index(), slice.Content)
}

type frontierEntry struct {
	typ   *model.NodeType
	match *model.ContentMatch
}

type fittable struct {
	sliceDepth    int
	frontierDepth int
	parent        *model.Node
	inject        *model.Fragment
	wrap          []*model.NodeType
}

// fitter places the content of a slice between two resolved positions. The
// frontier describes the open nodes on the left side of the placed content,
// into which nodes from the unplaced slice are moved one by one.
type fitter struct {
	from     *model.ResolvedPos
	to       *model.ResolvedPos
	unplaced *model.Slice
	frontier []*frontierEntry
	placed   *model.Fragment
}

func newFitter(from, to *model.ResolvedPos, unplaced *model.Slice) *fitter {
	f := &fitter{from: from, to: to, unplaced: unplaced, placed: model.EmptyFragment}
	for i := 0; i <= from.Depth; i++ {
		node := from.Node(i)
		match, _ := node.ContentMatchAt(from.IndexAfter(i))
		f.frontier = append(f.frontier, &frontierEntry{typ: node.Type, match: match})
	}
	for i := from.Depth; i > 0; i-- {
		f.placed = model.NewFragment([]*model.Node{from.Node(i).Copy(f.placed)})
	}
	return f
}

func (f *fitter) depth() int {
	return len(f.frontier) - 1
}

func (f *fitter) fit() Step {
	for f.unplaced.Size() > 0 {
		if fit := f.findFittable(); fit != nil {
			f.placeNodes(fit)
		} else if !f.openMore() {
			f.dropNode()
		}
	}
	moveInline := f.mustMoveInline()
	placedSize := f.placed.Size - f.depth() - f.from.Depth
	from := f.from
	target := f.to
	if moveInline >= 0 {
		var err error
		if target, err = from.Doc().Resolve(moveInline); err != nil {
			return nil
		}
	}
	to := f.close(target)
	if to == nil {
		return nil
	}

	content, openStart, openEnd := f.placed, from.Depth, to.Depth
	for openStart > 0 && openEnd > 0 && content.ChildCount() == 1 {
		content = content.FirstChild().Content
		openStart--
		openEnd--
	}
	slice := model.NewSlice(content, openStart, openEnd)
	if moveInline >= 0 {
		return NewReplaceAroundStep(from.Pos, moveInline, f.to.Pos, f.to.End(), slice, placedSize, false)
	}
	if slice.Size() > 0 || from.Pos != f.to.Pos {
		return NewReplaceStep(from.Pos, to.Pos, slice)
	}
	return nil
}

func (f *fitter) findFittable() *fittable {
	startDepth := f.unplaced.OpenStart
	cur, openEnd := f.unplaced.Content, f.unplaced.OpenEnd
	for d := 0; d < startDepth; d++ {
		node := cur.FirstChild()
		if cur.ChildCount() > 1 {
			openEnd = 0
		}
		if node.Type.Spec.Isolating && openEnd <= d {
			startDepth = d
			break
		}
		cur = node.Content
	}

	// Wrapping nodes are only tried after finding a place without wrapping
	// failed.
	for pass := 1; pass <= 2; pass++ {
		sliceDepth := f.unplaced.OpenStart
		if pass == 1 {
			sliceDepth = startDepth
		}
		for ; sliceDepth >= 0; sliceDepth-- {
			var fragment *model.Fragment
			var parent *model.Node
			if sliceDepth > 0 {
				parent = contentAt(f.unplaced.Content, sliceDepth-1).FirstChild()
				fragment = parent.Content
			} else {
				fragment = f.unplaced.Content
			}
			first := fragment.FirstChild()
			for frontierDepth := f.depth(); frontierDepth >= 0; frontierDepth-- {
				entry := f.frontier[frontierDepth]
				if pass == 1 {
					if first != nil {
						if entry.match.MatchType(first.Type) != nil {
							return &fittable{sliceDepth: sliceDepth, frontierDepth: frontierDepth, parent: parent}
						}
						single := model.NewFragment([]*model.Node{first})
						if inject := entry.match.FillBefore(single, false, 0); inject != nil {
							return &fittable{sliceDepth: sliceDepth, frontierDepth: frontierDepth, parent: parent, inject: inject}
						}
					} else if parent != nil && entry.typ.CompatibleContent(parent.Type) {
						return &fittable{sliceDepth: sliceDepth, frontierDepth: frontierDepth, parent: parent}
					}
				} else if first != nil {
					if wrap, ok := entry.match.FindWrapping(first.Type); ok {
						return &fittable{sliceDepth: sliceDepth, frontierDepth: frontierDepth, parent: parent, wrap: wrap}
					}
				}
				// Don't look further up if the parent node would fit here.
				if parent != nil && entry.match.MatchType(parent.Type) != nil {
					break
				}
			}
		}
	}
	return nil
}

func (f *fitter) openMore() bool {
	content, openStart, openEnd := f.unplaced.Content, f.unplaced.OpenStart, f.unplaced.OpenEnd
	inner := contentAt(content, openStart)
	if inner.ChildCount() == 0 || inner.FirstChild().IsLeaf() {
		return false
	}
	newEnd := 0
	if inner.Size+openStart >= content.Size-openEnd {
		newEnd = openStart + 1
	}
	f.unplaced = model.NewSlice(content, openStart+1, max(openEnd, newEnd))
	return true
}

func (f *fitter) dropNode() {
	content, openStart, openEnd := f.unplaced.Content, f.unplaced.OpenStart, f.unplaced.OpenEnd
	inner := contentAt(content, openStart)
	if inner.ChildCount() <= 1 && openStart > 0 {
		openAtEnd := content.Size-openStart <= openStart+inner.Size
		end := openEnd
		if openAtEnd {
			end = openStart - 1
		}
		f.unplaced = model.NewSlice(dropFromFragment(content, openStart-1, 1), openStart-1, end)
	} else {
		f.unplaced = model.NewSlice(dropFromFragment(content, openStart, 1), openStart, openEnd)
	}
}

// placeNodes moves content from the unplaced slice at sliceDepth to the
// frontier node at frontierDepth, closing that frontier node when
// applicable.
func (f *fitter) placeNodes(fit *fittable) {
	for f.depth() > fit.frontierDepth {
		f.closeFrontierNode()
	}
	for _, typ := range fit.wrap {
		f.openFrontierNode(typ, nil, nil)
	}

	slice := f.unplaced
	fragment := slice.Content
	if fit.parent != nil {
		fragment = fit.parent.Content
	}
	openStart := slice.OpenStart - fit.sliceDepth
	taken := 0
	var add []*model.Node
	entry := f.frontier[fit.frontierDepth]
	match, typ := entry.match, entry.typ
	if fit.inject != nil {
		add = append(add, fit.inject.Content...)
		match = match.MatchFragment(fit.inject)
	}
	// The number of open nodes at the end of the fragment. When 0, the
	// parent is open, but no more. When negative, nothing is open.
	openEndCount := (fragment.Size + fit.sliceDepth) - (slice.Content.Size - slice.OpenEnd)
	for taken < fragment.ChildCount() {
		next := fragment.Content[taken]
		matches := match.MatchType(next.Type)
		if matches == nil {
			break
		}
		taken++
		// Empty open nodes are dropped.
		if taken > 1 || openStart == 0 || next.Content.Size > 0 {
			match = matches
			closeStart := 0
			if taken == 1 {
				closeStart = openStart
			}
			closeEnd := -1
			if taken == fragment.ChildCount() {
				closeEnd = openEndCount
			}
			add = append(add, closeNodeStart(next.Mark(typ.AllowedMarks(next.Marks)), closeStart, closeEnd))
		}
	}
	toEnd := taken == fragment.ChildCount()
	if !toEnd {
		openEndCount = -1
	}

	f.placed = addToFragment(f.placed, fit.frontierDepth, model.FragmentFromArray(add))
	f.frontier[fit.frontierDepth].match = match

	// If the parent types match, and the entire node was moved, and it's
	// not open, close this frontier node right away.
	if toEnd && openEndCount < 0 && fit.parent != nil && fit.parent.Type == f.frontier[f.depth()].typ && len(f.frontier) > 1 {
		f.closeFrontierNode()
	}

	// New frontier nodes for any open nodes at the end.
	cur := fragment
	for i := 0; i < openEndCount; i++ {
		node := cur.LastChild()
		m, _ := node.ContentMatchAt(node.ChildCount())
		f.frontier = append(f.frontier, &frontierEntry{typ: node.Type, match: m})
		cur = node.Content
	}

	switch {
	case !toEnd:
		f.unplaced = model.NewSlice(dropFromFragment(slice.Content, fit.sliceDepth, taken), slice.OpenStart, slice.OpenEnd)
	case fit.sliceDepth == 0:
		f.unplaced = model.EmptySlice
	default:
		end := fit.sliceDepth - 1
		if openEndCount < 0 {
			end = slice.OpenEnd
		}
		f.unplaced = model.NewSlice(dropFromFragment(slice.Content, fit.sliceDepth-1, 1), fit.sliceDepth-1, end)
	}
}

func (f *fitter) mustMoveInline() int {
	if !f.to.Parent().IsTextblock() {
		return -1
	}
	top := f.frontier[f.depth()]
	if !top.typ.IsTextblock() || contentAfterFits(f.to, f.to.Depth, top.typ, top.match, false) == nil {
		return -1
	}
	if f.to.Depth == f.depth() {
		if level := f.findCloseLevel(f.to); level != nil && level.depth == f.depth() {
			return -1
		}
	}
	depth := f.to.Depth
	pos := after(f.to, depth)
	for depth > 1 {
		depth--
		if pos != f.to.End(depth) {
			break
		}
		pos++
	}
	return pos
}

type closeLevel struct {
	depth int
	fit   *model.Fragment
	move  *model.ResolvedPos
}

func (f *fitter) findCloseLevel(to *model.ResolvedPos) *closeLevel {
scan:
	for i := min(f.depth(), to.Depth); i >= 0; i-- {
		entry := f.frontier[i]
		dropInner := i < to.Depth && to.End(i+1) == to.Pos+(to.Depth-(i+1))
		fit := contentAfterFits(to, i, entry.typ, entry.match, dropInner)
		if fit == nil {
			continue
		}
		for d := i - 1; d >= 0; d-- {
			outer := f.frontier[d]
			matches := contentAfterFits(to, d, outer.typ, outer.match, true)
			if matches == nil || matches.ChildCount() > 0 {
				continue scan
			}
		}
		move := to
		if dropInner {
			var err error
			if move, err = to.Doc().Resolve(after(to, i+1)); err != nil {
				continue
			}
		}
		return &closeLevel{depth: i, fit: fit, move: move}
	}
	return nil
}

func (f *fitter) close(to *model.ResolvedPos) *model.ResolvedPos {
	level := f.findCloseLevel(to)
	if level == nil {
		return nil
	}
	for f.depth() > level.depth {
		f.closeFrontierNode()
	}
	if level.fit.ChildCount() > 0 {
		f.placed = addToFragment(f.placed, level.depth, level.fit)
	}
	to = level.move
	for d := level.depth + 1; d <= to.Depth; d++ {
		node := to.Node(d)
		add := node.Type.ContentMatch.FillBefore(node.Content, true, to.Index(d))
		f.openFrontierNode(node.Type, node.Attrs, add)
	}
	return to
}

func (f *fitter) openFrontierNode(typ *model.NodeType, attrs map[string]interface{}, content *model.Fragment) {
	top := f.frontier[f.depth()]
	top.match = top.match.MatchType(typ)
	node, err := typ.Create(attrs, content, nil)
	if err != nil {
		return
	}
	f.placed = addToFragment(f.placed, f.depth(), model.NewFragment([]*model.Node{node}))
	f.frontier = append(f.frontier, &frontierEntry{typ: typ, match: typ.ContentMatch})
}

func (f *fitter) closeFrontierNode() {
	open := f.frontier[len(f.frontier)-1]
	f.frontier = f.frontier[:len(f.frontier)-1]
	add := open.match.FillBefore(model.EmptyFragment, true, 0)
	if add != nil && add.ChildCount() > 0 {
		f.placed = addToFragment(f.placed, len(f.frontier), add)
	}
}

func dropFromFragment(fragment *model.Fragment, depth, count int) *model.Fragment {
	if depth == 0 {
		return fragment.CutByIndex(count, fragment.ChildCount())
	}
	first := fragment.FirstChild()
	return fragment.ReplaceChild(0, first.Copy(dropFromFragment(first.Content, depth-1, count)))
}

func addToFragment(fragment *model.Fragment, depth int, content *model.Fragment) *model.Fragment {
	if depth == 0 {
		return fragment.Append(content)
	}
	last := fragment.LastChild()
	return fragment.ReplaceChild(fragment.ChildCount()-1, last.Copy(addToFragment(last.Content, depth-1, content)))
}

func contentAt(fragment *model.Fragment, depth int) *model.Fragment {
	for i := 0; i < depth; i++ {
		fragment = fragment.FirstChild().Content
	}
	return fragment
}

func closeNodeStart(node *model.Node, openStart, openEnd int) *model.Node {
	if openStart <= 0 {
		return node
	}
	frag := node.Content
	if openStart > 1 {
		innerEnd := 0
		if frag.ChildCount() == 1 {
			innerEnd = openEnd - 1
		}
		frag = frag.ReplaceChild(0, closeNodeStart(frag.FirstChild(), openStart-1, innerEnd))
	}
	if fill := node.Type.ContentMatch.FillBefore(frag, false, 0); fill != nil {
		frag = fill.Append(frag)
	}
	if openEnd <= 0 {
		if match := node.Type.ContentMatch.MatchFragment(frag); match != nil {
			if fill := match.FillBefore(model.EmptyFragment, true, 0); fill != nil {
				frag = frag.Append(fill)
			}
		}
	}
	return node.Copy(frag)
}

func contentAfterFits(to *model.ResolvedPos, depth int, typ *model.NodeType, match *model.ContentMatch, open bool) *model.Fragment {
	node := to.Node(depth)
	index := to.Index(depth)
	if open {
		index = to.IndexAfter(depth)
	}
	if index == node.ChildCount() && !typ.CompatibleContent(node.Type) {
		return nil
	}
	if match == nil {
		return nil
	}
	fit := match.FillBefore(node.Content, true, index)
	if fit == nil || invalidMarks(typ, node.Content, index) {
		return nil
	}
	return fit
}

func invalidMarks(typ *model.NodeType, fragment *model.Fragment, start int) bool {
	for i := start; i < fragment.ChildCount(); i++ {
		if !typ.AllowsMarks(fragment.Content[i].Marks) {
			return true
		}
	}
	return false
}
