package transform

import (
	"fmt"

	"github.com/shodgson/eddytor/model"
)

// TransformError is returned when a step can not be applied to the current
// document of a Transform.
type TransformError struct {
	Message string
}

// Error implements the error interface.
func (e *TransformError) Error() string {
	return "transform error: " + e.Message
}

// Transform is an abstraction for building up and tracking an array of
// steps representing a document transformation.
//
// Most transforming methods return an error when the change can not be
// applied. Steps added before the failing one stay in the transform, so
// callers should drop the whole transform on error.
type Transform struct {
	// The current document (the result of applying the steps in the
	// transform).
	Doc *model.Node
	// The steps in this transform.
	Steps []Step
	// The documents before each of the steps.
	Docs []*model.Node
	// A mapping with the maps for each of the steps in this transform.
	Mapping *Mapping
}

// NewTransform creates a transform that starts with the given document.
func NewTransform(doc *model.Node) *Transform {
	return &Transform{Doc: doc, Mapping: NewMapping()}
}

// Before returns the starting document.
func (tr *Transform) Before() *model.Node {
	if len(tr.Docs) > 0 {
		return tr.Docs[0]
	}
	return tr.Doc
}

// Step applies a new step in this transform, saving the result. Returns an
// error when the step fails.
func (tr *Transform) Step(step Step) error {
	result := tr.MaybeStep(step)
	if result.Failed != "" {
		return &TransformError{Message: result.Failed}
	}
	return nil
}

// MaybeStep tries to apply a step in this transformation, ignoring it if it
// fails. Returns the step result.
func (tr *Transform) MaybeStep(step Step) StepResult {
	result := step.Apply(tr.Doc)
	if result.Failed == "" {
		tr.addStep(step, result.Doc)
	}
	return result
}

// DocChanged is true when the document has been changed (when there are any
// steps).
func (tr *Transform) DocChanged() bool {
	return len(tr.Steps) > 0
}

func (tr *Transform) addStep(step Step, doc *model.Node) {
	tr.Docs = append(tr.Docs, tr.Doc)
	tr.Steps = append(tr.Steps, step)
	tr.Mapping.AppendMap(step.GetMap())
	tr.Doc = doc
}

// Replace the part of the document between from and to with the given
// slice.
func (tr *Transform) Replace(from, to int, slice *model.Slice) error {
	if slice == nil {
		slice = model.EmptySlice
	}
	step, err := ReplaceStepFor(tr.Doc, from, to, slice)
	if err != nil {
		return err
	}
	if step == nil {
		return nil
	}
	return tr.Step(step)
}

// ReplaceWith replaces the given range with the given content, which may be
// a fragment, node, or array of nodes.
func (tr *Transform) ReplaceWith(from, to int, content interface{}) error {
	frag, err := model.FragmentFrom(content)
	if err != nil {
		return err
	}
	return tr.Replace(from, to, model.NewSlice(frag, 0, 0))
}

// Delete the content between the given positions.
func (tr *Transform) Delete(from, to int) error {
	return tr.Replace(from, to, model.EmptySlice)
}

// Insert the given content at the given position.
func (tr *Transform) Insert(pos int, content interface{}) error {
	return tr.ReplaceWith(pos, pos, content)
}

// ReplaceRangeWith replaces the given range with a node, but uses from and
// to as hints, rather than precise positions. When from and to are the same
// and are at the start or end of a parent node in which the given node
// doesn't fit, this method may move them out towards a parent that does
// allow the given node to be placed.
func (tr *Transform) ReplaceRangeWith(from, to int, node *model.Node) error {
	if !node.IsInline() && from == to {
		rpos, err := tr.Doc.Resolve(from)
		if err != nil {
			return err
		}
		if rpos.Parent().Content.Size > 0 {
			if point, ok := InsertPoint(tr.Doc, from, node.Type); ok {
				from, to = point, point
			}
		}
	}
	return tr.Replace(from, to, model.NewSlice(model.NewFragment([]*model.Node{node}), 0, 0))
}

// ReplaceRange replaces a range of the document with a slice of content.
// Unlike Replace, which only fits the slice where it is, this tries to
// expand the replaced range to cover whole parent nodes, and to place the
// open nodes of the slice at a sensible depth.
func (tr *Transform) ReplaceRange(from, to int, slice *model.Slice) error {
	if slice.Size() == 0 {
		return tr.DeleteRange(from, to)
	}
	rfrom, err := tr.Doc.Resolve(from)
	if err != nil {
		return err
	}
	rto, err := tr.Doc.Resolve(to)
	if err != nil {
		return err
	}
	if fitsTrivially(rfrom, rto, slice) {
		return tr.Step(NewReplaceStep(from, to, slice))
	}

	targetDepths := coveredDepths(rfrom, rto)
	// The whole document can't be replaced.
	if n := len(targetDepths); n > 0 && targetDepths[n-1] == 0 {
		targetDepths = targetDepths[:n-1]
	}
	// Negative depths mean replacing from rfrom.Before(-d) to rto.Pos
	// instead of expanding over the whole node.
	preferredTarget := -(rfrom.Depth + 1)
	targetDepths = append([]int{preferredTarget}, targetDepths...)
	for d, pos := rfrom.Depth, rfrom.Pos-1; d > 0; d, pos = d-1, pos-1 {
		spec := rfrom.Node(d).Type.Spec
		if spec.Defining || spec.Isolating {
			break
		}
		if containsDepth(targetDepths, d) {
			preferredTarget = d
		} else if before(rfrom, d) == pos {
			targetDepths = append(targetDepths[:1], append([]int{-d}, targetDepths[1:]...)...)
		}
	}
	preferredTargetIndex := 0
	for i, d := range targetDepths {
		if d == preferredTarget {
			preferredTargetIndex = i
			break
		}
	}

	var leftNodes []*model.Node
	preferredDepth := slice.OpenStart
	for content, i := slice.Content, 0; ; i++ {
		node := content.FirstChild()
		leftNodes = append(leftNodes, node)
		if i == slice.OpenStart {
			break
		}
		content = node.Content
	}

	// Back up preferredDepth to cover defining textblocks directly above
	// it, possibly skipping a non-defining textblock.
	for d := preferredDepth - 1; d >= 0; d-- {
		leftNode := leftNodes[d]
		def := leftNode.Type.Spec.Defining
		abs := preferredTarget
		if abs < 0 {
			abs = -abs
		}
		if def && !leftNode.SameMarkup(rfrom.Node(abs-1)) {
			preferredDepth = d
		} else if def || !leftNode.Type.IsTextblock() {
			break
		}
	}

	for j := slice.OpenStart; j >= 0; j-- {
		openDepth := (j + preferredDepth + 1) % (slice.OpenStart + 1)
		if openDepth >= len(leftNodes) || leftNodes[openDepth] == nil {
			continue
		}
		insert := leftNodes[openDepth]
		for i := range targetDepths {
			targetDepth := targetDepths[(i+preferredTargetIndex)%len(targetDepths)]
			expand := true
			if targetDepth < 0 {
				expand = false
				targetDepth = -targetDepth
			}
			parent, index := rfrom.Node(targetDepth-1), rfrom.Index(targetDepth-1)
			if parent.CanReplaceWith(index, index, insert.Type, insert.Marks) {
				end := to
				if expand {
					end = after(rto, targetDepth)
				}
				return tr.Replace(before(rfrom, targetDepth), end,
					model.NewSlice(closeFragment(slice.Content, 0, slice.OpenStart, openDepth, nil), openDepth, slice.OpenEnd))
			}
		}
	}

	startSteps := len(tr.Steps)
	for i := len(targetDepths) - 1; i >= 0; i-- {
		if err := tr.Replace(from, to, slice); err != nil {
			return err
		}
		if len(tr.Steps) > startSteps {
			break
		}
		depth := targetDepths[i]
		if depth < 0 {
			continue
		}
		from, to = before(rfrom, depth), after(rto, depth)
	}
	return nil
}

func containsDepth(depths []int, d int) bool {
	for _, x := range depths {
		if x == d {
			return true
		}
	}
	return false
}

func closeFragment(fragment *model.Fragment, depth, oldOpen, newOpen int, parent *model.Node) *model.Fragment {
	if depth < oldOpen {
		first := fragment.FirstChild()
		fragment = fragment.ReplaceChild(0, first.Copy(closeFragment(first.Content, depth+1, oldOpen, newOpen, first)))
	}
	if depth > newOpen && parent != nil {
		match, err := parent.ContentMatchAt(0)
		if err != nil {
			return fragment
		}
		start := fragment
		if fill := match.FillBefore(fragment, false, 0); fill != nil {
			start = fill.Append(fragment)
		}
		fragment = start
		if end := match.MatchFragment(start); end != nil {
			if fill := end.FillBefore(model.EmptyFragment, true, 0); fill != nil {
				fragment = start.Append(fill)
			}
		}
	}
	return fragment
}

// DeleteRange deletes the given range, expanding it to cover fully covered
// parent nodes until a valid replace is found.
func (tr *Transform) DeleteRange(from, to int) error {
	rfrom, err := tr.Doc.Resolve(from)
	if err != nil {
		return err
	}
	rto, err := tr.Doc.Resolve(to)
	if err != nil {
		return err
	}
	covered := coveredDepths(rfrom, rto)
	for i, depth := range covered {
		last := i == len(covered)-1
		if (last && depth == 0) || rfrom.Node(depth).Type.ContentMatch.ValidEnd {
			return tr.Delete(rfrom.Start(depth), rto.End(depth))
		}
		if depth > 0 && (last || rfrom.Node(depth-1).CanReplace(rfrom.Index(depth-1), rto.IndexAfter(depth-1))) {
			return tr.Delete(before(rfrom, depth), after(rto, depth))
		}
	}
	for d := 1; d <= rfrom.Depth && d <= rto.Depth; d++ {
		if from-rfrom.Start(d) == rfrom.Depth-d && to > rfrom.End(d) && rto.End(d)-to != rto.Depth-d &&
			rfrom.Start(d-1) == rto.Start(d-1) && rfrom.Node(d-1).CanReplace(rfrom.Index(d-1), rto.Index(d-1)) {
			return tr.Delete(before(rfrom, d), to)
		}
	}
	return tr.Delete(from, to)
}

func coveredDepths(rfrom, rto *model.ResolvedPos) []int {
	var result []int
	minDepth := min(rfrom.Depth, rto.Depth)
	for d := minDepth; d >= 0; d-- {
		start := rfrom.Start(d)
		if start < rfrom.Pos-(rfrom.Depth-d) ||
			rto.End(d) > rto.Pos+(rto.Depth-d) ||
			rfrom.Node(d).Type.Spec.Isolating ||
			rto.Node(d).Type.Spec.Isolating {
			break
		}
		if start == rto.Start(d) ||
			(d == rfrom.Depth && d == rto.Depth && rfrom.Parent().InlineContent() && rto.Parent().InlineContent() &&
				d > 0 && rto.Start(d-1) == start-1) {
			result = append(result, d)
		}
	}
	return result
}

// AddMark adds the given mark to the inline content between from and to.
func (tr *Transform) AddMark(from, to int, mark *model.Mark) error {
	var removed, added []Step
	var removing *RemoveMarkStep
	var adding *AddMarkStep
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, parent *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		marks := node.Marks
		if !mark.IsInSet(marks) && parent.Type.AllowsMarkType(mark.Type) {
			start, end := max(pos, from), min(pos+node.NodeSize(), to)
			newSet := mark.AddToSet(marks)
			for _, m := range marks {
				if m.IsInSet(newSet) {
					continue
				}
				if removing != nil && removing.To == start && removing.Mark.Eq(m) {
					removing.To = end
				} else {
					removing = NewRemoveMarkStep(start, end, m)
					removed = append(removed, removing)
				}
			}
			if adding != nil && adding.To == start {
				adding.To = end
			} else {
				adding = NewAddMarkStep(start, end, mark)
				added = append(added, adding)
			}
		}
		return true
	})
	for _, s := range append(removed, added...) {
		if err := tr.Step(s); err != nil {
			return err
		}
	}
	return nil
}

// RemoveMark removes marks from inline nodes between from and to. mark may
// be a *model.Mark (remove that mark), a *model.MarkType (remove all marks
// of that type) or nil (remove all marks).
func (tr *Transform) RemoveMark(from, to int, mark interface{}) error {
	type matchedMark struct {
		style    *model.Mark
		from, to int
		step     int
	}
	var matched []*matchedMark
	step := 0
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !node.IsInline() {
			return true
		}
		step++
		var toRemove []*model.Mark
		switch m := mark.(type) {
		case *model.MarkType:
			set := node.Marks
			for found := m.IsInSet(set); found != nil; found = m.IsInSet(set) {
				toRemove = append(toRemove, found)
				set = found.RemoveFromSet(set)
			}
		case *model.Mark:
			if m.IsInSet(node.Marks) {
				toRemove = []*model.Mark{m}
			}
		default:
			toRemove = node.Marks
		}
		end := min(pos+node.NodeSize(), to)
		for _, style := range toRemove {
			var found *matchedMark
			for _, m := range matched {
				if m.step == step-1 && style.Eq(m.style) {
					found = m
				}
			}
			if found != nil {
				found.to = end
				found.step = step
			} else {
				matched = append(matched, &matchedMark{style: style, from: max(pos, from), to: end, step: step})
			}
		}
		return true
	})
	for _, m := range matched {
		if err := tr.Step(NewRemoveMarkStep(m.from, m.to, m.style)); err != nil {
			return err
		}
	}
	return nil
}

// ClearIncompatible removes all marks and nodes from the content of the node
// at pos that don't match the given new parent node type. Newlines in text
// are turned into spaces when the new parent does not preserve whitespace.
func (tr *Transform) ClearIncompatible(pos int, parentType *model.NodeType, match ...*model.ContentMatch) error {
	m := parentType.ContentMatch
	if len(match) > 0 && match[0] != nil {
		m = match[0]
	}
	node := tr.Doc.NodeAt(pos)
	if node == nil {
		return &TransformError{Message: fmt.Sprintf("no node at position %d", pos)}
	}
	var replSteps []Step
	cur := pos + 1
	for _, child := range node.Content.Content {
		end := cur + child.NodeSize()
		allowed := m.MatchType(child.Type)
		if allowed == nil {
			replSteps = append(replSteps, NewReplaceStep(cur, end, model.EmptySlice))
		} else {
			m = allowed
			for _, mark := range child.Marks {
				if !parentType.AllowsMarkType(mark.Type) {
					if err := tr.Step(NewRemoveMarkStep(cur, end, mark)); err != nil {
						return err
					}
				}
			}
			if child.IsText() && parentType.Whitespace() != "pre" {
				var space *model.Slice
				text := *child.Text
				offset := 0
				for _, r := range text {
					if r == '\n' {
						if space == nil {
							space = model.NewSlice(model.NewFragment([]*model.Node{
								parentType.Schema.Text(" ", parentType.AllowedMarks(child.Marks)...),
							}), 0, 0)
						}
						replSteps = append(replSteps, NewReplaceStep(cur+offset, cur+offset+1, space))
					}
					offset += model.TextLength(string(r))
				}
			}
		}
		cur = end
	}
	if !m.ValidEnd {
		fill := m.FillBefore(model.EmptyFragment, true, 0)
		if fill == nil {
			return &TransformError{Message: "can not fill content for " + parentType.Name}
		}
		if err := tr.Replace(cur, cur, model.NewSlice(fill, 0, 0)); err != nil {
			return err
		}
	}
	for i := len(replSteps) - 1; i >= 0; i-- {
		if err := tr.Step(replSteps[i]); err != nil {
			return err
		}
	}
	return nil
}

// Lift splits the content in the given range off from its parent, if there
// is sibling content before or after it, and moves it up the tree to the
// depth specified by target. You'll probably want to use LiftTarget to
// compute target, to make sure the lift is valid.
func (tr *Transform) Lift(rng *model.NodeRange, target int) error {
	rfrom, rto, depth := rng.From, rng.To, rng.Depth

	gapStart, gapEnd := before(rfrom, depth+1), after(rto, depth+1)
	start, end := gapStart, gapEnd

	beforeFrag, openStart := model.EmptyFragment, 0
	splitting := false
	for d := depth; d > target; d-- {
		if splitting || rfrom.Index(d) > 0 {
			splitting = true
			beforeFrag = model.NewFragment([]*model.Node{rfrom.Node(d).Copy(beforeFrag)})
			openStart++
		} else {
			start--
		}
	}
	afterFrag, openEnd := model.EmptyFragment, 0
	splitting = false
	for d := depth; d > target; d-- {
		if splitting || after(rto, d+1) < rto.End(d) {
			splitting = true
			afterFrag = model.NewFragment([]*model.Node{rto.Node(d).Copy(afterFrag)})
			openEnd++
		} else {
			end++
		}
	}

	return tr.Step(NewReplaceAroundStep(start, end, gapStart, gapEnd,
		model.NewSlice(beforeFrag.Append(afterFrag), openStart, openEnd),
		beforeFrag.Size-openStart, true))
}

// Wrapper is a node type with attributes, used to wrap content.
type Wrapper struct {
	Type  *model.NodeType
	Attrs map[string]interface{}
}

// Wrap the given range in the given set of wrappers. The wrappers are
// assumed to be valid in this position, and should probably be computed
// with FindWrapping.
func (tr *Transform) Wrap(rng *model.NodeRange, wrappers []Wrapper) error {
	content := model.EmptyFragment
	for i := len(wrappers) - 1; i >= 0; i-- {
		if content.Size > 0 {
			match := wrappers[i].Type.ContentMatch.MatchFragment(content)
			if match == nil || !match.ValidEnd {
				return &TransformError{Message: "wrapper type given to Wrap does not form valid content of its parent wrapper"}
			}
		}
		node, err := wrappers[i].Type.Create(wrappers[i].Attrs, content, nil)
		if err != nil {
			return err
		}
		content = model.NewFragment([]*model.Node{node})
	}
	start, end := rng.Start(), rng.End()
	return tr.Step(NewReplaceAroundStep(start, end, start, end, model.NewSlice(content, 0, 0), len(wrappers), true))
}

// SetBlockType sets the type of all textblocks (partly) between from and to
// to the given node type with the given attributes.
func (tr *Transform) SetBlockType(from, to int, typ *model.NodeType, attrs map[string]interface{}) error {
	if !typ.IsTextblock() {
		return &TransformError{Message: "type given to SetBlockType should be a textblock"}
	}
	mapFrom := len(tr.Steps)
	var err error
	tr.Doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if err != nil {
			return false
		}
		if !node.IsTextblock() || node.HasMarkup(typ, attrs) ||
			!canChangeType(tr.Doc, tr.Mapping.Slice(mapFrom, len(tr.Mapping.Maps)).Map(pos), typ) {
			return true
		}
		if err = tr.ClearIncompatible(tr.Mapping.Slice(mapFrom, len(tr.Mapping.Maps)).Map(pos, 1), typ); err != nil {
			return false
		}
		mapping := tr.Mapping.Slice(mapFrom, len(tr.Mapping.Maps))
		startM, endM := mapping.Map(pos, 1), mapping.Map(pos+node.NodeSize(), 1)
		var wrapper *model.Node
		if wrapper, err = typ.Create(attrs, nil, node.Marks); err != nil {
			return false
		}
		err = tr.Step(NewReplaceAroundStep(startM, endM, startM+1, endM-1,
			model.NewSlice(model.NewFragment([]*model.Node{wrapper}), 0, 0), 1, true))
		return false
	})
	return err
}

func canChangeType(doc *model.Node, pos int, typ *model.NodeType) bool {
	rpos, err := doc.Resolve(pos)
	if err != nil {
		return false
	}
	index := rpos.Index()
	return rpos.Parent().CanReplaceWith(index, index+1, typ)
}

// SetNodeMarkup changes the type, attributes, and/or marks of the node at
// pos. When typ is nil, the existing node type is preserved. When marks is
// nil, the existing marks are kept.
func (tr *Transform) SetNodeMarkup(pos int, typ *model.NodeType, attrs map[string]interface{}, marks []*model.Mark) error {
	node := tr.Doc.NodeAt(pos)
	if node == nil {
		return &TransformError{Message: "no node at given position"}
	}
	if typ == nil {
		typ = node.Type
	}
	if marks == nil {
		marks = node.Marks
	}
	newNode, err := typ.Create(attrs, nil, marks)
	if err != nil {
		return err
	}
	if node.IsLeaf() {
		return tr.ReplaceWith(pos, pos+node.NodeSize(), newNode)
	}
	if !typ.ValidContent(node.Content) {
		return model.NewSchemaViolation(typ.Name, "invalid content for node type %s", typ.Name)
	}
	return tr.Step(NewReplaceAroundStep(pos, pos+node.NodeSize(), pos+1, pos+node.NodeSize()-1,
		model.NewSlice(model.NewFragment([]*model.Node{newNode}), 0, 0), 1, true))
}

// SetNodeAttribute sets a single attribute on the node at pos.
func (tr *Transform) SetNodeAttribute(pos int, attr string, value interface{}) error {
	return tr.Step(NewAttrStep(pos, attr, value))
}

// Split the node at the given position, and optionally, if depth is greater
// than one, any number of nodes above that. By default, the parts split off
// will inherit the node type of the original node. This can be changed by
// passing typesAfter, an array of types and attributes to use after the
// split (a nil entry keeps the original type).
func (tr *Transform) Split(pos int, depth int, typesAfter ...*Wrapper) error {
	if depth < 1 {
		depth = 1
	}
	rpos, err := tr.Doc.Resolve(pos)
	if err != nil {
		return err
	}
	beforeFrag, afterFrag := model.EmptyFragment, model.EmptyFragment
	for d, e, i := rpos.Depth, rpos.Depth-depth, depth-1; d > e; d, i = d-1, i-1 {
		beforeFrag = model.NewFragment([]*model.Node{rpos.Node(d).Copy(beforeFrag)})
		var next *model.Node
		if i >= 0 && i < len(typesAfter) && typesAfter[i] != nil {
			next, err = typesAfter[i].Type.Create(typesAfter[i].Attrs, afterFrag, nil)
			if err != nil {
				return err
			}
		} else {
			next = rpos.Node(d).Copy(afterFrag)
		}
		afterFrag = model.NewFragment([]*model.Node{next})
	}
	return tr.Step(NewReplaceStep(pos, pos, model.NewSlice(beforeFrag.Append(afterFrag), depth, depth), true))
}

// Join the blocks around the given position. If depth is 2, their last and
// first siblings are also joined, and so on.
func (tr *Transform) Join(pos int, depth int) error {
	if depth < 1 {
		depth = 1
	}
	return tr.Step(NewReplaceStep(pos-depth, pos+depth, model.EmptySlice, true))
}

func before(rpos *model.ResolvedPos, depth int) int {
	pos, _ := rpos.Before(depth)
	return pos
}

func after(rpos *model.ResolvedPos, depth int) int {
	pos, _ := rpos.After(depth)
	return pos
}
