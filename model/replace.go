package model

import (
	"errors"
	"fmt"
)

// ReplaceError is the error type returned by Node.Replace when given an
// invalid replacement.
type ReplaceError struct {
	Message string
}

// NewReplaceError is the constructor for ReplaceError.
func NewReplaceError(message string, args ...interface{}) *ReplaceError {
	return &ReplaceError{Message: fmt.Sprintf(message, args...)}
}

// Error returns the error message.
func (e *ReplaceError) Error() string {
	return e.Message
}

// Slice represents a piece cut out of a larger document. It stores not only
// a fragment, but also the depth up to which nodes on both side are open
// (cut through).
type Slice struct {
	// The slice's content.
	Content *Fragment
	// The open depth at the start.
	OpenStart int
	// The open depth at the end.
	OpenEnd int
}

// NewSlice creates a slice. When specifying a non-zero open depth, you must
// make sure that there are nodes of at least that depth at the appropriate
// side of the fragment, i.e. if the fragment is an empty paragraph node,
// openStart and openEnd can't be greater than 1.
//
// It is not necessary for the content of open nodes to conform to the
// schema's content constraints, though it should be a valid start/end/middle
// for such a node, depending on which sides are open.
func NewSlice(content *Fragment, openStart, openEnd int) *Slice {
	return &Slice{
		Content:   content,
		OpenStart: openStart,
		OpenEnd:   openEnd,
	}
}

// EmptySlice is the empty slice.
var EmptySlice = NewSlice(EmptyFragment, 0, 0)

// Size returns the size this slice would add when inserted into a document.
func (s *Slice) Size() int {
	return s.Content.Size - s.OpenStart - s.OpenEnd
}

// InsertAt inserts a fragment at the given position. It returns nil when the
// fragment doesn't fit there.
func (s *Slice) InsertAt(pos int, fragment *Fragment) *Slice {
	content, err := insertInto(s.Content, pos+s.OpenStart, fragment, nil)
	if err != nil || content == nil {
		return nil
	}
	return NewSlice(content, s.OpenStart, s.OpenEnd)
}

// RemoveBetween removes content between the two given positions.
func (s *Slice) RemoveBetween(from, to int) (*Slice, error) {
	removed, err := removeRange(s.Content, from+s.OpenStart, to+s.OpenStart)
	if err != nil {
		return nil, err
	}
	return NewSlice(removed, s.OpenStart, s.OpenEnd), nil
}

// Eq tests whether this slice is equal to another slice.
func (s *Slice) Eq(other *Slice) bool {
	return s.Content.Eq(other.Content) && s.OpenStart == other.OpenStart && s.OpenEnd == other.OpenEnd
}

// String returns a string representation of this slice.
func (s *Slice) String() string {
	return fmt.Sprintf("%s(%d,%d)", s.Content.String(), s.OpenStart, s.OpenEnd)
}

// ToJSON converts a slice to a JSON-serializable representation.
func (s *Slice) ToJSON() map[string]interface{} {
	if s.Content.Size == 0 {
		return nil
	}
	obj := map[string]interface{}{
		"content": s.Content.ToJSON(),
	}
	if s.OpenStart > 0 {
		obj["openStart"] = s.OpenStart
	}
	if s.OpenEnd > 0 {
		obj["openEnd"] = s.OpenEnd
	}
	return obj
}

// SliceFromJSON deserializes a slice from its JSON representation.
func SliceFromJSON(schema *Schema, obj map[string]interface{}) (*Slice, error) {
	if obj == nil {
		return EmptySlice, nil
	}
	openStart := jsonInt(obj["openStart"])
	openEnd := jsonInt(obj["openEnd"])
	if openStart < 0 || openEnd < 0 {
		return nil, errors.New("invalid input for Slice.fromJSON")
	}
	fragment, err := FragmentFromJSON(schema, obj["content"])
	if err != nil {
		return nil, err
	}
	return NewSlice(fragment, openStart, openEnd), nil
}

func jsonInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// MaxOpen creates a slice from a fragment by taking the maximum possible
// open value on both side of the fragment.
func MaxOpen(fragment *Fragment, openIsolating bool) *Slice {
	openStart, openEnd := 0, 0
	for n := fragment.FirstChild(); n != nil && !n.IsLeaf() && (openIsolating || !n.Type.Spec.Isolating); n = n.FirstChild() {
		openStart++
	}
	for n := fragment.LastChild(); n != nil && !n.IsLeaf() && (openIsolating || !n.Type.Spec.Isolating); n = n.LastChild() {
		openEnd++
	}
	return NewSlice(fragment, openStart, openEnd)
}

// removeRange cuts from..to out of a fragment. The range must be flat: both
// ends in the same node.
func removeRange(content *Fragment, from, to int) (*Fragment, error) {
	index, offset, err := content.findIndex(from)
	if err != nil {
		return nil, err
	}
	indexTo, offsetTo, err := content.findIndex(to)
	if err != nil {
		return nil, err
	}
	child := content.MaybeChild(index)
	if offset != from && !child.IsText() {
		if index != indexTo {
			return nil, errors.New("removing non-flat range")
		}
		inner, err := removeRange(child.Content, from-offset-1, to-offset-1)
		if err != nil {
			return nil, err
		}
		return content.ReplaceChild(index, child.Copy(inner)), nil
	}
	if offsetTo != to && !content.Content[indexTo].IsText() {
		return nil, errors.New("removing non-flat range")
	}
	return content.Cut(0, from).Append(content.Cut(to)), nil
}

// insertInto inserts a fragment at dist, descending into the child holding
// that position. It returns nil when the parent can't hold the fragment.
func insertInto(content *Fragment, dist int, insert *Fragment, parent *Node) (*Fragment, error) {
	index, offset, err := content.findIndex(dist)
	if err != nil {
		return nil, err
	}
	child := content.MaybeChild(index)
	if offset != dist && !child.IsText() {
		inner, err := insertInto(child.Content, dist-offset-1, insert, child)
		if err != nil || inner == nil {
			return nil, err
		}
		return content.ReplaceChild(index, child.Copy(inner)), nil
	}
	if parent != nil && !parent.CanReplace(index, index, insert) {
		return nil, nil
	}
	return content.Cut(0, dist).Append(insert).Append(content.Cut(dist)), nil
}

func replace(from, to *ResolvedPos, slice *Slice) (*Node, error) {
	switch {
	case slice.OpenStart > from.Depth:
		return nil, NewReplaceError("Inserted content deeper than insertion position")
	case from.Depth-slice.OpenStart != to.Depth-slice.OpenEnd:
		return nil, NewReplaceError("Inconsistent open depths")
	}
	return replaceOuter(from, to, slice, 0)
}

// replaceOuter rebuilds the node at depth. It descends while both positions
// stay in the same child above the depth where the slice opens.
func replaceOuter(from, to *ResolvedPos, slice *Slice, depth int) (*Node, error) {
	index, node := from.Index(depth), from.Node(depth)
	if index == to.Index(depth) && depth < from.Depth-slice.OpenStart {
		inner, err := replaceOuter(from, to, slice, depth+1)
		if err != nil {
			return nil, err
		}
		return node.Copy(node.Content.ReplaceChild(index, inner)), nil
	}
	if slice.Content.Size == 0 {
		return closeTwoWay(node, from, to, depth)
	}
	if slice.OpenStart == 0 && slice.OpenEnd == 0 && from.Depth == depth && to.Depth == depth {
		parent := from.Parent()
		return replaceClose(parent, parent.Content.Cut(0, from.ParentOffset).
			Append(slice.Content).
			Append(parent.Content.Cut(to.ParentOffset)))
	}
	start, end, err := prepareSliceForReplace(slice, from)
	if err != nil {
		return nil, err
	}
	return closeThreeWay(node, from, start, end, to, depth)
}

func checkJoin(main, sub *Node) error {
	if !sub.Type.CompatibleContent(main.Type) {
		return NewReplaceError("Cannot join %s onto %s", sub.Type.Name, main.Type.Name)
	}
	return nil
}

// joinable returns the node before the cut at depth, once checked that the
// node after it can be joined onto it.
func joinable(before, after *ResolvedPos, depth int) (*Node, error) {
	node := before.Node(depth)
	if err := checkJoin(node, after.Node(depth)); err != nil {
		return nil, err
	}
	return node, nil
}

// nodeList collects the children of a node being rebuilt. Adjacent text
// with the same marks is merged.
type nodeList []*Node

func (l *nodeList) add(child *Node) {
	if last := len(*l) - 1; last >= 0 && child.IsText() && (*l)[last].IsText() && child.SameMarkup((*l)[last]) {
		(*l)[last] = child.WithText(*(*l)[last].Text + *child.Text)
		return
	}
	*l = append(*l, child)
}

// addRange adds the children of the node at depth that lie between start
// and end. A nil start stands for the start of the node, a nil end for its
// end. Text cut by a position is added in part.
func (l *nodeList) addRange(start, end *ResolvedPos, depth int) {
	ref := end
	if ref == nil {
		ref = start
	}
	node := ref.Node(depth)
	startIndex, endIndex := 0, node.ChildCount()
	if end != nil {
		endIndex = end.Index(depth)
	}
	if start != nil {
		startIndex = start.Index(depth)
		if start.Depth > depth {
			startIndex++
		} else if start.TextOffset() != 0 {
			l.add(start.NodeAfter())
			startIndex++
		}
	}
	for i := startIndex; i < endIndex; i++ {
		l.add(node.Content.Content[i])
	}
	if end != nil && end.Depth == depth && end.TextOffset() != 0 {
		l.add(end.NodeBefore())
	}
}

func (l nodeList) fragment() *Fragment {
	return NewFragment([]*Node(l))
}

func replaceClose(node *Node, content *Fragment) (*Node, error) {
	if !node.Type.ValidContent(content) {
		return nil, NewReplaceError("Invalid content for node %s", node.Type.Name)
	}
	return node.Copy(content), nil
}

// replaceThreeWay builds the content at depth from three parts: what is
// before from, the slice content between start and end, and what is after
// to.
func replaceThreeWay(from, start, end, to *ResolvedPos, depth int) (*Fragment, error) {
	var openStart, openEnd *Node
	var err error
	if from.Depth > depth {
		if openStart, err = joinable(from, start, depth+1); err != nil {
			return nil, err
		}
	}
	if to.Depth > depth {
		if openEnd, err = joinable(end, to, depth+1); err != nil {
			return nil, err
		}
	}

	var content nodeList
	content.addRange(nil, from, depth)
	if openStart != nil && openEnd != nil && start.Index(depth) == end.Index(depth) {
		if err := checkJoin(openStart, openEnd); err != nil {
			return nil, err
		}
		child, err := closeThreeWay(openStart, from, start, end, to, depth+1)
		if err != nil {
			return nil, err
		}
		content.add(child)
	} else {
		if openStart != nil {
			child, err := closeTwoWay(openStart, from, start, depth+1)
			if err != nil {
				return nil, err
			}
			content.add(child)
		}
		content.addRange(start, end, depth)
		if openEnd != nil {
			child, err := closeTwoWay(openEnd, end, to, depth+1)
			if err != nil {
				return nil, err
			}
			content.add(child)
		}
	}
	content.addRange(to, nil, depth)
	return content.fragment(), nil
}

func closeThreeWay(node *Node, from, start, end, to *ResolvedPos, depth int) (*Node, error) {
	content, err := replaceThreeWay(from, start, end, to, depth)
	if err != nil {
		return nil, err
	}
	return replaceClose(node, content)
}

// replaceTwoWay builds the content at depth from what is before from and
// what is after to, joining the nodes cut open on both sides.
func replaceTwoWay(from, to *ResolvedPos, depth int) (*Fragment, error) {
	var content nodeList
	content.addRange(nil, from, depth)
	if from.Depth > depth {
		node, err := joinable(from, to, depth+1)
		if err != nil {
			return nil, err
		}
		child, err := closeTwoWay(node, from, to, depth+1)
		if err != nil {
			return nil, err
		}
		content.add(child)
	}
	content.addRange(to, nil, depth)
	return content.fragment(), nil
}

func closeTwoWay(node *Node, from, to *ResolvedPos, depth int) (*Node, error) {
	content, err := replaceTwoWay(from, to, depth)
	if err != nil {
		return nil, err
	}
	return replaceClose(node, content)
}

// prepareSliceForReplace wraps the slice in copies of the ancestors of along
// down to where it opens, and resolves its start and end in that tree.
func prepareSliceForReplace(slice *Slice, along *ResolvedPos) (*ResolvedPos, *ResolvedPos, error) {
	extra := along.Depth - slice.OpenStart
	node := along.Node(extra).Copy(slice.Content)
	for i := extra - 1; i >= 0; i-- {
		node = along.Node(i).Copy(NewFragment([]*Node{node}))
	}
	start, err := node.resolveNoCache(slice.OpenStart + extra)
	if err != nil {
		return nil, nil, err
	}
	end, err := node.resolveNoCache(node.Content.Size - slice.OpenEnd - extra)
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}
