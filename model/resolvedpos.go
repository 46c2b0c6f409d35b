package model

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

type pathEntry struct {
	node   *Node
	index  int
	offset int
}

// ResolvedPos is a position resolved in a document. It knows the ancestors
// of the position and its offsets in each of them, and has helper methods
// built on that context.
//
// Throughout this interface, methods that take an optional depth parameter
// will interpret a missing depth as r.Depth and negative numbers as r.Depth +
// value.
type ResolvedPos struct {
	// The position that was resolved.
	Pos  int
	path []pathEntry
	// The number of levels the parent node is from the root. If this
	// position points directly into the root node, it is 0. If it
	// points into a top-level paragraph, 1, and so on.
	Depth int
	// The offset this position has into its parent node.
	ParentOffset int
}

func newResolvedPos(pos int, path []pathEntry, parentOffset int) *ResolvedPos {
	return &ResolvedPos{
		Pos:          pos,
		path:         path,
		Depth:        len(path) - 1,
		ParentOffset: parentOffset,
	}
}

func (r *ResolvedPos) resolveDepth(depth []int) int {
	if len(depth) == 0 {
		return r.Depth
	}
	if depth[0] < 0 {
		return r.Depth + depth[0]
	}
	return depth[0]
}

// Parent returns the parent node that the position points into. Note that
// even if a position points into a text node, that node is not considered
// the parent: text nodes are flat in this model, and have no content.
func (r *ResolvedPos) Parent() *Node {
	return r.path[r.Depth].node
}

// Doc is the root node in which the position was resolved.
func (r *ResolvedPos) Doc() *Node {
	return r.path[0].node
}

// Node returns the ancestor node at the given level. p.Node(p.Depth) is the
// same as p.Parent().
func (r *ResolvedPos) Node(depth ...int) *Node {
	return r.path[r.resolveDepth(depth)].node
}

// Index returns the index into the ancestor at the given level. If this
// points at the 3rd node in the 2nd paragraph on the top level, for example,
// p.Index(0) is 1 and p.Index(1) is 2.
func (r *ResolvedPos) Index(depth ...int) int {
	return r.path[r.resolveDepth(depth)].index
}

// IndexAfter returns the index pointing after this position into the
// ancestor at the given level.
func (r *ResolvedPos) IndexAfter(depth ...int) int {
	d := r.resolveDepth(depth)
	if d == r.Depth && r.TextOffset() == 0 {
		return r.Index(d)
	}
	return r.Index(d) + 1
}

// Start is the (absolute) position at the start of the node at the given
// level.
func (r *ResolvedPos) Start(depth ...int) int {
	d := r.resolveDepth(depth)
	if d == 0 {
		return 0
	}
	return r.path[d-1].offset + 1
}

// End is the (absolute) position at the end of the node at the given level.
func (r *ResolvedPos) End(depth ...int) int {
	d := r.resolveDepth(depth)
	return r.Start(d) + r.Node(d).Content.Size
}

// Before is the (absolute) position directly before the wrapping node at
// the given level, or, when depth is r.Depth + 1, the original position.
func (r *ResolvedPos) Before(depth ...int) (int, error) {
	d := r.resolveDepth(depth)
	if d == 0 {
		return 0, errors.New("there is no position before the top-level node")
	}
	if d == r.Depth+1 {
		return r.Pos, nil
	}
	return r.path[d-1].offset, nil
}

// After is the (absolute) position directly after the wrapping node at the
// given level, or the original position when depth is r.Depth + 1.
func (r *ResolvedPos) After(depth ...int) (int, error) {
	d := r.resolveDepth(depth)
	if d == 0 {
		return 0, errors.New("there is no position after the top-level node")
	}
	if d == r.Depth+1 {
		return r.Pos, nil
	}
	return r.path[d-1].offset + r.path[d].node.NodeSize(), nil
}

// TextOffset returns, when this position points into a text node, the
// distance between the position and the start of the text node. Will be
// zero for positions that point between nodes.
func (r *ResolvedPos) TextOffset() int {
	return r.Pos - r.path[len(r.path)-1].offset
}

// NodeAfter gets the node directly after the position, if any. If the
// position points into a text node, only the part of that node after the
// position is returned.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.Index(r.Depth)
	if index == parent.ChildCount() {
		return nil
	}
	dOff := r.TextOffset()
	child := parent.Content.Content[index]
	if dOff > 0 {
		return child.Cut(dOff)
	}
	return child
}

// NodeBefore gets the node directly before the position, if any. If the
// position points into a text node, only the part of that node before the
// position is returned.
func (r *ResolvedPos) NodeBefore() *Node {
	index := r.Index(r.Depth)
	dOff := r.TextOffset()
	if dOff > 0 {
		return r.Parent().Content.Content[index].Cut(0, dOff)
	}
	if index == 0 {
		return nil
	}
	return r.Parent().Content.Content[index-1]
}

// PosAtIndex gets the position at the given index in the parent node at the
// given depth (which defaults to r.Depth).
func (r *ResolvedPos) PosAtIndex(index int, depth ...int) int {
	d := r.resolveDepth(depth)
	node := r.path[d].node
	pos := 0
	if d > 0 {
		pos = r.path[d-1].offset + 1
	}
	for i := 0; i < index && i < node.ChildCount(); i++ {
		pos += node.Content.Content[i].NodeSize()
	}
	return pos
}

// Marks gets the marks at this position, factoring in the surrounding marks'
// inclusive property. If the position is at the start of a non-empty node,
// the marks of the node after it (if any) are returned.
func (r *ResolvedPos) Marks() []*Mark {
	parent := r.Parent()
	index := r.Index()

	// In an empty parent, return the empty array
	if parent.Content.Size == 0 {
		return NoMarks
	}

	// When inside a text node, just return the text node's marks
	if r.TextOffset() > 0 {
		return parent.Content.Content[index].Marks
	}

	main := parent.MaybeChild(index - 1)
	other := parent.MaybeChild(index)
	if main == nil {
		main, other = other, main
	}

	// Use all marks in the main node, except those that have inclusive set
	// to false and are not present in the other node.
	marks := main.Marks
	for _, m := range main.Marks {
		if !m.Type.Inclusive() && (other == nil || !m.IsInSet(other.Marks)) {
			marks = m.RemoveFromSet(marks)
		}
	}
	return marks
}

// MarksAcross gets the marks after the current position, if any, except
// those that are non-inclusive and not present at position end. This is
// mostly useful for getting the set of marks to preserve after a deletion.
// Will return nil if this position is at the end of its parent node or its
// parent node isn't a textblock (in which case no marks should be
// preserved).
func (r *ResolvedPos) MarksAcross(end *ResolvedPos) []*Mark {
	after := r.Parent().MaybeChild(r.Index())
	if after == nil || !after.IsInline() {
		return nil
	}
	marks := after.Marks
	next := end.Parent().MaybeChild(end.Index())
	for _, m := range after.Marks {
		if !m.Type.Inclusive() && (next == nil || !m.IsInSet(next.Marks)) {
			marks = m.RemoveFromSet(marks)
		}
	}
	return marks
}

// SharedDepth is the depth up to which this position and the given
// (non-resolved) position share the same parent nodes.
func (r *ResolvedPos) SharedDepth(pos int) int {
	for depth := r.Depth; depth > 0; depth-- {
		if r.Start(depth) <= pos && r.End(depth) >= pos {
			return depth
		}
	}
	return 0
}

// BlockRange returns a range based on the place where this position and the
// given position diverge around block content. If both point into the same
// textblock, for example, a range around that textblock will be returned.
// If they point into different blocks, the range around those blocks in
// their shared ancestor is returned. You can pass in an optional predicate
// that will be called with a parent node to see if a range into that parent
// is acceptable.
func (r *ResolvedPos) BlockRange(other *ResolvedPos, pred ...func(*Node) bool) *NodeRange {
	if other == nil {
		other = r
	}
	if other.Pos < r.Pos {
		return other.BlockRange(r, pred...)
	}
	d := r.Depth
	if r.Parent().InlineContent() || r.Pos == other.Pos {
		d--
	}
	for ; d >= 0; d-- {
		if other.Pos <= r.End(d) && (len(pred) == 0 || pred[0](r.Node(d))) {
			return NewNodeRange(r, other, d)
		}
	}
	return nil
}

// SameParent queries whether the given position shares the same parent
// node.
func (r *ResolvedPos) SameParent(other *ResolvedPos) bool {
	return r.Pos-r.ParentOffset == other.Pos-other.ParentOffset
}

// Max returns the greater of this and the given position.
func (r *ResolvedPos) Max(other *ResolvedPos) *ResolvedPos {
	if other.Pos > r.Pos {
		return other
	}
	return r
}

// Min returns the smaller of this and the given position.
func (r *ResolvedPos) Min(other *ResolvedPos) *ResolvedPos {
	if other.Pos < r.Pos {
		return other
	}
	return r
}

// String returns a debugging representation of the position.
func (r *ResolvedPos) String() string {
	str := ""
	for i := 1; i <= r.Depth; i++ {
		if str != "" {
			str += "/"
		}
		str += r.Node(i).Type.Name + "_" + strconv.Itoa(r.Index(i-1))
	}
	return str + ":" + strconv.Itoa(r.ParentOffset)
}

// NodeRange represents a flat range of content, i.e. one that starts and
// ends in the same node.
type NodeRange struct {
	// A resolved position along the start of the content. May have a Depth
	// greater than this object's Depth property, since these are the
	// positions that were used to compute the range, not re-resolved
	// positions directly at its boundaries.
	From *ResolvedPos
	// A position along the end of the content.
	To *ResolvedPos
	// The depth of the node that this range points into.
	Depth int
}

// NewNodeRange is the constructor for NodeRange.
func NewNodeRange(from, to *ResolvedPos, depth int) *NodeRange {
	return &NodeRange{From: from, To: to, Depth: depth}
}

// Start is the position at the start of the range.
func (nr *NodeRange) Start() int {
	pos, _ := nr.From.Before(nr.Depth + 1)
	return pos
}

// End is the position at the end of the range.
func (nr *NodeRange) End() int {
	pos, _ := nr.To.After(nr.Depth + 1)
	return pos
}

// Parent is the parent node that the range points into.
func (nr *NodeRange) Parent() *Node {
	return nr.From.Node(nr.Depth)
}

// StartIndex is the start index of the range in the parent node.
func (nr *NodeRange) StartIndex() int {
	return nr.From.Index(nr.Depth)
}

// EndIndex is the end index of the range in the parent node.
func (nr *NodeRange) EndIndex() int {
	return nr.To.IndexAfter(nr.Depth)
}

func resolvePos(doc *Node, pos int) (*ResolvedPos, error) {
	if !(pos >= 0 && pos <= doc.Content.Size) {
		return nil, fmt.Errorf("position %d out of range", pos)
	}
	var path []pathEntry
	start := 0
	parentOffset := pos
	node := doc
	for {
		index, offset, err := node.Content.findIndex(parentOffset)
		if err != nil {
			return nil, err
		}
		rem := parentOffset - offset
		path = append(path, pathEntry{node: node, index: index, offset: start + offset})
		if rem == 0 {
			break
		}
		node = node.Content.Content[index]
		if node.IsText() {
			break
		}
		parentOffset = rem - 1
		start += offset + 1
	}
	return newResolvedPos(pos, path, parentOffset), nil
}

func resolvePosCached(doc *Node, pos int) (*ResolvedPos, error) {
	resolveCacheMutex.Lock()
	defer resolveCacheMutex.Unlock()
	for _, entry := range resolveCache {
		if entry.doc == doc && entry.pos.Pos == pos {
			return entry.pos, nil
		}
	}
	result, err := resolvePos(doc, pos)
	if err != nil {
		return nil, err
	}
	resolveCache[resolveCachePos] = resolveEntry{doc, result}
	resolveCachePos = (resolveCachePos + 1) % len(resolveCache)
	return result, nil
}

type resolveEntry struct {
	doc *Node
	pos *ResolvedPos
}

var (
	resolveCacheMutex sync.Mutex
	resolveCache      = make([]resolveEntry, 12)
	resolveCachePos   = 0
)
