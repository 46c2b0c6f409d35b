package model

import (
	"fmt"
	"reflect"
)

// Node is a node in a document tree. The document itself is a Node, and so
// are its children.
//
// Nodes are persistent data structures. Instead of changing them, you create
// new ones with the content you want. Old ones keep pointing at the old
// document shape. This is made cheaper by sharing structure between the old
// and new data as much as possible, which a tree shape like this (without back
// pointers) makes easy.
//
// Do not directly mutate the properties of a Node object.
type Node struct {
	// The type of node that this is.
	Type *NodeType
	// An object mapping attribute names to values. The kind of attributes
	// allowed and required are determined by the node type.
	Attrs map[string]interface{}
	// A container holding the node's children.
	Content *Fragment
	// For text nodes, this contains the node's text content.
	Text *string
	// The marks (things like whether it is emphasized or part of a link)
	// applied to this node.
	Marks []*Mark
}

// NewNode builds a node without checking its content. Use NodeType.Create or
// NodeType.CreateChecked in application code.
func NewNode(typ *NodeType, attrs map[string]interface{}, content *Fragment, marks []*Mark) *Node {
	if content == nil {
		content = EmptyFragment
	}
	if marks == nil {
		marks = NoMarks
	}
	return &Node{Type: typ, Attrs: attrs, Content: content, Marks: marks}
}

// NewTextNode builds a text node.
func NewTextNode(typ *NodeType, attrs map[string]interface{}, text string, marks []*Mark) *Node {
	if marks == nil {
		marks = NoMarks
	}
	return &Node{Type: typ, Attrs: attrs, Text: &text, Content: EmptyFragment, Marks: marks}
}

// The size of this node, as defined by the integer-based indexing scheme. For
// text nodes, this is the amount of characters. For other leaf nodes, it is
// one. For non-leaf nodes, it is the size of the content plus two (the start
// and end token).
func (n *Node) NodeSize() int {
	if n.IsText() {
		return textLength(*n.Text)
	}
	if n.IsLeaf() {
		return 1
	}
	return 2 + n.Content.Size
}

// The number of children that the node has.
func (n *Node) ChildCount() int {
	return n.Content.ChildCount()
}

// Get the child node at the given index. Raises an error when the index is out
// of range.
func (n *Node) Child(index int) (*Node, error) {
	return n.Content.Child(index)
}

// Get the child node at the given index, if it exists.
func (n *Node) MaybeChild(index int) *Node {
	return n.Content.MaybeChild(index)
}

// FirstChild returns this node's first child, or nil if there are no
// children.
func (n *Node) FirstChild() *Node {
	return n.Content.FirstChild()
}

// LastChild returns this node's last child, or nil if there are no children.
func (n *Node) LastChild() *Node {
	return n.Content.LastChild()
}

// ForEach calls fn for every child node, passing the node, its offset into
// this parent node, and its index.
func (n *Node) ForEach(fn func(node *Node, offset, index int)) {
	n.Content.ForEach(fn)
}

// Invoke a callback for all descendant nodes recursively between the given two
// positions that are relative to start of this node's content. The callback is
// invoked with the node, its parent-relative position, its parent node, and
// its child index. When the callback returns false for a given node, that
// node's children will not be recursed over. The last parameter can be used to
// specify a starting position to count from.
func (n *Node) NodesBetween(from, to int, fn NBCallback, startPos ...int) {
	s := 0
	if len(startPos) > 0 {
		s = startPos[0]
	}
	n.Content.NodesBetween(from, to, fn, s, n)
}

// Descendants calls the given callback for every descendant node.
func (n *Node) Descendants(fn NBCallback) {
	n.NodesBetween(0, n.Content.Size, fn)
}

// Concatenates all the text nodes found in this fragment and its children.
func (n *Node) TextContent() string {
	if n.IsText() {
		return *n.Text
	}
	if n.IsLeaf() && n.Type.Spec.LeafText != nil {
		return n.Type.Spec.LeafText(n)
	}
	return n.TextBetween(0, n.Content.Size, "")
}

// Get all text between positions from and to. When blockSeparator is given, it
// will be inserted whenever a new block node is started. When leafText is
// given, it'll be inserted for every non-text leaf node encountered.
func (n *Node) TextBetween(from, to int, args ...string) string {
	if n.IsText() {
		return sliceText(*n.Text, from, to)
	}
	return n.Content.TextBetween(from, to, args...)
}

// Test whether two nodes represent the same piece of document.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if n.IsText() != other.IsText() {
		return false
	}
	if n.IsText() && *n.Text != *other.Text {
		return false
	}
	return n.SameMarkup(other) && n.Content.Eq(other.Content)
}

// Compare the markup (type, attributes, and marks) of this node to those of
// another. Returns true if both have the same markup.
func (n *Node) SameMarkup(other *Node) bool {
	return n.HasMarkup(other.Type, other.Attrs, other.Marks)
}

// Check whether this node's markup correspond to the given type, attributes,
// and marks.
func (n *Node) HasMarkup(typ *NodeType, attrs map[string]interface{}, marks ...[]*Mark) bool {
	if n.Type != typ {
		return false
	}
	if attrs == nil {
		attrs = typ.DefaultAttrs
	}
	if !attrsEqual(n.Attrs, attrs) {
		return false
	}
	m := NoMarks
	if len(marks) > 0 && marks[0] != nil {
		m = marks[0]
	}
	return SameMarkSet(n.Marks, m)
}

func attrsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok {
			return false
		}
		if !attrValueEqual(va, vb) {
			return false
		}
	}
	return true
}

// attrValueEqual compares attribute values, treating numbers of different Go
// types (as produced by JSON decoding) as equal when their values are.
func attrValueEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Slice && rb.Kind() == reflect.Slice {
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !attrValueEqual(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Create a new node with the same markup as this node, containing
// the given content (or empty, if no content is given).
func (n *Node) Copy(content ...*Fragment) *Node {
	c := EmptyFragment
	if len(content) > 0 && content[0] != nil {
		c = content[0]
	}
	if len(content) > 0 && c == n.Content {
		return n
	}
	return &Node{Type: n.Type, Attrs: n.Attrs, Content: c, Marks: n.Marks}
}

// Create a copy of this node, with the given set of marks instead of the
// node's own marks.
func (n *Node) Mark(marks []*Mark) *Node {
	if SameMarkSet(n.Marks, marks) {
		return n
	}
	if n.IsText() {
		return NewTextNode(n.Type, n.Attrs, *n.Text, marks)
	}
	return NewNode(n.Type, n.Attrs, n.Content, marks)
}

// Create a copy of this node with only the content between the given
// positions. If `to` is not given, it defaults to the end of the node.
func (n *Node) Cut(from int, to ...int) *Node {
	if n.IsText() {
		size := textLength(*n.Text)
		t := size
		if len(to) > 0 {
			t = to[0]
		}
		if from == 0 && t == size {
			return n
		}
		return n.WithText(sliceText(*n.Text, from, t))
	}
	t := n.Content.Size
	if len(to) > 0 {
		t = to[0]
	}
	if from == 0 && t == n.Content.Size {
		return n
	}
	return n.Copy(n.Content.Cut(from, t))
}

// Slice cuts out the part of the document between the given positions, and
// returns it as a Slice object.
func (n *Node) Slice(from int, args ...interface{}) (*Slice, error) {
	to := n.Content.Size
	includeParents := false
	for _, arg := range args {
		switch a := arg.(type) {
		case int:
			to = a
		case bool:
			includeParents = a
		}
	}
	if from == to {
		return EmptySlice, nil
	}
	rfrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rto, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	depth := 0
	if !includeParents {
		depth = rfrom.SharedDepth(to)
	}
	start := rfrom.Start(depth)
	node := rfrom.Node(depth)
	content := node.Content.Cut(rfrom.Pos-start, rto.Pos-start)
	return NewSlice(content, rfrom.Depth-depth, rto.Depth-depth), nil
}

// Replace the part of the document between the given positions with the
// given slice. The slice must 'fit', meaning its open sides must be able to
// connect to the surrounding content, and its content nodes must be valid
// children for the node they are placed into. If any of this is violated, an
// error of type ReplaceError is returned.
func (n *Node) Replace(from, to int, slice *Slice) (*Node, error) {
	rfrom, err := n.Resolve(from)
	if err != nil {
		return nil, err
	}
	rto, err := n.Resolve(to)
	if err != nil {
		return nil, err
	}
	return replace(rfrom, rto, slice)
}

// Find the node directly after the given position.
func (n *Node) NodeAt(pos int) *Node {
	node := n
	for {
		index, offset, err := node.Content.findIndex(pos)
		if err != nil {
			return nil
		}
		node = node.MaybeChild(index)
		if node == nil {
			return nil
		}
		if offset == pos || node.IsText() {
			return node
		}
		pos -= offset + 1
	}
}

// ChildAfter finds the (direct) child node after the given offset, if any,
// and returns it along with its index and offset relative to this node.
func (n *Node) ChildAfter(pos int) (*Node, int, int) {
	index, offset, err := n.Content.findIndex(pos)
	if err != nil {
		return nil, 0, 0
	}
	return n.MaybeChild(index), index, offset
}

// ChildBefore finds the (direct) child node before the given offset, if any,
// and returns it along with its index and offset relative to this node.
func (n *Node) ChildBefore(pos int) (*Node, int, int) {
	if pos == 0 {
		return nil, 0, 0
	}
	index, offset, err := n.Content.findIndex(pos)
	if err != nil {
		return nil, 0, 0
	}
	if offset < pos {
		return n.MaybeChild(index), index, offset
	}
	node := n.MaybeChild(index - 1)
	if node == nil {
		return nil, index - 1, offset
	}
	return node, index - 1, offset - node.NodeSize()
}

// Resolve the given position in the document, returning an object with
// information about its context.
func (n *Node) Resolve(pos int) (*ResolvedPos, error) {
	return resolvePosCached(n, pos)
}

func (n *Node) resolveNoCache(pos int) (*ResolvedPos, error) {
	return resolvePos(n, pos)
}

// RangeHasMark tests whether a given mark or mark type occurs in this
// document between the two given positions.
func (n *Node) RangeHasMark(from, to int, typ interface{}) bool {
	found := false
	if to > from {
		n.NodesBetween(from, to, func(node *Node, _ int, _ *Node, _ int) bool {
			switch t := typ.(type) {
			case *Mark:
				if t.IsInSet(node.Marks) {
					found = true
				}
			case *MarkType:
				if t.IsInSet(node.Marks) != nil {
					found = true
				}
			}
			return !found
		})
	}
	return found
}

// True when this is a block (non-inline node)
func (n *Node) IsBlock() bool {
	return n.Type.IsBlock()
}

// True when this is a textblock node, a block node with inline content.
func (n *Node) IsTextblock() bool {
	return n.Type.IsTextblock()
}

// True when this node allows inline content.
func (n *Node) InlineContent() bool {
	return n.Type.InlineContent
}

// True when this is an inline node (a text node or a node that can appear
// among text).
func (n *Node) IsInline() bool {
	return n.Type.IsInline()
}

// True when this is a text node.
func (n *Node) IsText() bool {
	return n.Text != nil
}

// True when this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Type.IsLeaf()
}

// True when this is an atom, i.e. when it does not have directly editable
// content. This is usually the same as IsLeaf, but can be configured with the
// atom property on a node's spec.
func (n *Node) IsAtom() bool {
	return n.Type.IsAtom()
}

// Return a string representation of this node for debugging purposes.
func (n *Node) String() string {
	if n.Type.Spec.ToDebugString != nil {
		return n.Type.Spec.ToDebugString(n)
	}
	name := n.Type.Name
	if n.IsText() {
		name = fmt.Sprintf("%q", *n.Text)
	} else if n.Content.Size > 0 {
		name += fmt.Sprintf("(%s)", n.Content.toStringInner())
	}
	return wrapMarks(n.Marks, name)
}

// ContentMatchAt gets the content match in this node at the given index.
func (n *Node) ContentMatchAt(index int) (*ContentMatch, error) {
	match := n.Type.ContentMatch.MatchFragment(n.Content, 0, index)
	if match == nil {
		return nil, fmt.Errorf("called contentMatchAt on a node with invalid content")
	}
	return match, nil
}

// CanReplace tests whether replacing the range between from and to (by child
// index) with the given replacement fragment (which defaults to the empty
// fragment) would leave the node's content valid. You can optionally pass
// start and end indices into the replacement fragment.
func (n *Node) CanReplace(from, to int, args ...interface{}) bool {
	replacement := EmptyFragment
	var indexes []int
	for _, arg := range args {
		switch a := arg.(type) {
		case *Fragment:
			replacement = a
		case int:
			indexes = append(indexes, a)
		}
	}
	start, end := 0, replacement.ChildCount()
	if len(indexes) > 0 {
		start = indexes[0]
	}
	if len(indexes) > 1 {
		end = indexes[1]
	}
	matchAt, err := n.ContentMatchAt(from)
	if err != nil {
		return false
	}
	one := matchAt.MatchFragment(replacement, start, end)
	if one == nil {
		return false
	}
	two := one.MatchFragment(n.Content, to)
	if two == nil || !two.ValidEnd {
		return false
	}
	for i := start; i < end; i++ {
		if !n.Type.AllowsMarks(replacement.Content[i].Marks) {
			return false
		}
	}
	return true
}

// CanReplaceWith tests whether replacing the range from to to (by index) with
// a node of the given type would leave the node's content valid.
func (n *Node) CanReplaceWith(from, to int, typ *NodeType, marks ...[]*Mark) bool {
	if len(marks) > 0 && marks[0] != nil && !n.Type.AllowsMarks(marks[0]) {
		return false
	}
	matchAt, err := n.ContentMatchAt(from)
	if err != nil {
		return false
	}
	start := matchAt.MatchType(typ)
	if start == nil {
		return false
	}
	end := start.MatchFragment(n.Content, to)
	return end != nil && end.ValidEnd
}

// CanAppend tests whether the given node's content could be appended to this
// node. If that node is empty, this will only return true if there is at
// least one node type that can appear in both nodes (to avoid merging
// completely incompatible nodes).
func (n *Node) CanAppend(other *Node) bool {
	if other.Content.Size > 0 {
		return n.CanReplace(n.ChildCount(), n.ChildCount(), other.Content)
	}
	return n.Type.CompatibleContent(other.Type)
}

// Check that this node and all its descendants conform to the schema. Returns
// a SchemaViolation if they do not.
func (n *Node) Check() error {
	if !n.Type.ValidContent(n.Content) {
		return NewSchemaViolation(n.Type.Name, "invalid content for node %s: %s", n.Type.Name, truncate(n.Content.String(), 50))
	}
	var copy []*Mark
	for _, mark := range n.Marks {
		if err := mark.Type.checkAttrs(mark.Attrs); err != nil {
			return err
		}
		copy = mark.AddToSet(copy)
	}
	if !SameMarkSet(copy, n.Marks) {
		return NewSchemaViolation(n.Type.Name, "invalid collection of marks for node %s", n.Type.Name)
	}
	for _, child := range n.Content.Content {
		if err := child.Check(); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// WithText creates a copy of a text node with a different text.
func (n *Node) WithText(text string) *Node {
	if text == *n.Text {
		return n
	}
	return NewTextNode(n.Type, n.Attrs, text, n.Marks)
}

// ToJSON returns a JSON-serializeable representation of this node.
func (n *Node) ToJSON() map[string]interface{} {
	obj := map[string]interface{}{"type": n.Type.Name}
	if len(n.Attrs) > 0 {
		attrs := make(map[string]interface{}, len(n.Attrs))
		for k, v := range n.Attrs {
			attrs[k] = v
		}
		obj["attrs"] = attrs
	}
	if n.Content.Size > 0 {
		obj["content"] = n.Content.ToJSON()
	}
	if len(n.Marks) > 0 {
		marks := make([]interface{}, len(n.Marks))
		for i, m := range n.Marks {
			marks[i] = m.ToJSON()
		}
		obj["marks"] = marks
	}
	if n.IsText() {
		obj["text"] = *n.Text
	}
	return obj
}

func wrapMarks(marks []*Mark, str string) string {
	for i := len(marks) - 1; i >= 0; i-- {
		str = fmt.Sprintf("%s(%s)", marks[i].Type.Name, str)
	}
	return str
}
