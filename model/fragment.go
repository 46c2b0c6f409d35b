package model

import (
	"fmt"
	"strings"
)

// A fragment represents a node's collection of child nodes.
//
// Like nodes, fragments are persistent data structures, and you should not
// mutate them or their content. Rather, you create new instances whenever
// needed. The API tries to make this easy.
type Fragment struct {
	Content []*Node
	// The size of the fragment, which is the total of the size of its
	// content nodes.
	Size int
}

// NewFragment creates a fragment from the given nodes, computing its size.
func NewFragment(content []*Node, size ...int) *Fragment {
	if len(size) > 0 {
		return &Fragment{Content: content, Size: size[0]}
	}
	s := 0
	for _, child := range content {
		s += child.NodeSize()
	}
	return &Fragment{Content: content, Size: s}
}

// EmptyFragment is an empty fragment.
var EmptyFragment = &Fragment{Content: nil, Size: 0}

// NBCallback is the callback type for NodesBetween and Descendants. Returning
// false prevents the recursion into the node's children.
type NBCallback func(node *Node, pos int, parent *Node, index int) bool

// NodesBetween invokes a callback for all descendant nodes between the given
// two positions (relative to start of this fragment).
func (f *Fragment) NodesBetween(from, to int, fn NBCallback, nodeStart int, parent *Node) {
	pos := 0
	for i := 0; pos < to && i < len(f.Content); i++ {
		child := f.Content[i]
		end := pos + child.NodeSize()
		if end > from && fn(child, nodeStart+pos, parent, i) && child.Content.Size > 0 {
			start := pos + 1
			child.NodesBetween(maxInt(0, from-start), minInt(child.Content.Size, to-start), fn, nodeStart+start)
		}
		pos = end
	}
}

// Descendants calls the given callback for every descendant node.
func (f *Fragment) Descendants(fn NBCallback) {
	f.NodesBetween(0, f.Size, fn, 0, nil)
}

// TextBetween extracts the text between from and to. When blockSeparator is
// given, it will be inserted to separate text from different block nodes.
// When leafText is given, it'll be inserted for every non-text leaf node
// encountered.
func (f *Fragment) TextBetween(from, to int, args ...string) string {
	blockSeparator, leafText := "", ""
	if len(args) > 0 {
		blockSeparator = args[0]
	}
	if len(args) > 1 {
		leafText = args[1]
	}
	var text strings.Builder
	first := true
	f.NodesBetween(from, to, func(node *Node, pos int, _ *Node, _ int) bool {
		nodeText := ""
		switch {
		case node.IsText():
			nodeText = sliceText(*node.Text, maxInt(from, pos)-pos, to-pos)
		case !node.IsLeaf():
		case leafText != "":
			nodeText = leafText
		case node.Type.Spec.LeafText != nil:
			nodeText = node.Type.Spec.LeafText(node)
		}
		if (node.IsBlock() && node.IsLeaf() && nodeText != "" || node.IsTextblock()) && blockSeparator != "" {
			if first {
				first = false
			} else {
				text.WriteString(blockSeparator)
			}
		}
		text.WriteString(nodeText)
		return true
	}, 0, nil)
	return text.String()
}

// Append creates a new fragment containing the combined content of this
// fragment and the other.
func (f *Fragment) Append(other *Fragment) *Fragment {
	if other.Size == 0 {
		return f
	}
	if f.Size == 0 {
		return other
	}
	last, first := f.LastChild(), other.FirstChild()
	content := make([]*Node, len(f.Content), len(f.Content)+len(other.Content))
	copy(content, f.Content)
	i := 0
	if last.IsText() && last.SameMarkup(first) {
		content[len(content)-1] = last.WithText(*last.Text + *first.Text)
		i = 1
	}
	content = append(content, other.Content[i:]...)
	return &Fragment{Content: content, Size: f.Size + other.Size}
}

// Cut out the sub-fragment between the two given positions.
func (f *Fragment) Cut(from int, to ...int) *Fragment {
	t := f.Size
	if len(to) > 0 {
		t = to[0]
	}
	if from == 0 && t == f.Size {
		return f
	}
	var result []*Node
	size := 0
	if t > from {
		pos := 0
		for i := 0; pos < t && i < len(f.Content); i++ {
			child := f.Content[i]
			end := pos + child.NodeSize()
			if end > from {
				if pos < from || end > t {
					if child.IsText() {
						child = child.Cut(maxInt(0, from-pos), minInt(textLength(*child.Text), t-pos))
					} else {
						child = child.Cut(maxInt(0, from-pos-1), minInt(child.Content.Size, t-pos-1))
					}
				}
				result = append(result, child)
				size += child.NodeSize()
			}
			pos = end
		}
	}
	return &Fragment{Content: result, Size: size}
}

// CutByIndex cuts out the sub-fragment between the two given child indexes.
func (f *Fragment) CutByIndex(from, to int) *Fragment {
	if from == to {
		return EmptyFragment
	}
	if from == 0 && to == len(f.Content) {
		return f
	}
	return NewFragment(f.Content[from:to:to])
}

// ReplaceChild creates a new fragment in which the node at the given index is
// replaced by the given node.
func (f *Fragment) ReplaceChild(index int, node *Node) *Fragment {
	current := f.Content[index]
	if current == node {
		return f
	}
	content := make([]*Node, len(f.Content))
	copy(content, f.Content)
	size := f.Size + node.NodeSize() - current.NodeSize()
	content[index] = node
	return &Fragment{Content: content, Size: size}
}

// AddToStart creates a new fragment by prepending the given node to this
// fragment.
func (f *Fragment) AddToStart(node *Node) *Fragment {
	content := append([]*Node{node}, f.Content...)
	return &Fragment{Content: content, Size: f.Size + node.NodeSize()}
}

// AddToEnd creates a new fragment by appending the given node to this
// fragment.
func (f *Fragment) AddToEnd(node *Node) *Fragment {
	content := make([]*Node, len(f.Content), len(f.Content)+1)
	copy(content, f.Content)
	content = append(content, node)
	return &Fragment{Content: content, Size: f.Size + node.NodeSize()}
}

// Eq compares this fragment to another one.
func (f *Fragment) Eq(other *Fragment) bool {
	if len(f.Content) != len(other.Content) {
		return false
	}
	for i := range f.Content {
		if !f.Content[i].Eq(other.Content[i]) {
			return false
		}
	}
	return true
}

// FirstChild returns the first child of the fragment, or nil if it is empty.
func (f *Fragment) FirstChild() *Node {
	if len(f.Content) == 0 {
		return nil
	}
	return f.Content[0]
}

// LastChild returns the last child of the fragment, or nil if it is empty.
func (f *Fragment) LastChild() *Node {
	if len(f.Content) == 0 {
		return nil
	}
	return f.Content[len(f.Content)-1]
}

// ChildCount returns the number of child nodes in this fragment.
func (f *Fragment) ChildCount() int {
	return len(f.Content)
}

// Child gets the child node at the given index. Returns an error when the
// index is out of range.
func (f *Fragment) Child(index int) (*Node, error) {
	if index < 0 || index >= len(f.Content) {
		return nil, fmt.Errorf("index %d out of range for %s", index, f)
	}
	return f.Content[index], nil
}

// MaybeChild gets the child node at the given index, if it exists.
func (f *Fragment) MaybeChild(index int) *Node {
	if index < 0 || index >= len(f.Content) {
		return nil
	}
	return f.Content[index]
}

// ForEach calls fn for every child node, passing the node, its offset into
// this parent node, and its index.
func (f *Fragment) ForEach(fn func(node *Node, offset, index int)) {
	p := 0
	for i, child := range f.Content {
		fn(child, p, i)
		p += child.NodeSize()
	}
}

// FindDiffStart finds the first position at which this fragment and another
// fragment differ, or nil if they are the same.
func (f *Fragment) FindDiffStart(other *Fragment, pos ...int) *int {
	p := 0
	if len(pos) > 0 {
		p = pos[0]
	}
	return findDiffStart(f, other, p)
}

// FindDiffEnd finds the first position, searching from the end, at which this
// fragment and the given fragment differ, or nil if they are the same. Since
// this position will not be the same in both nodes, an object with two
// separate positions is returned.
func (f *Fragment) FindDiffEnd(other *Fragment, pos ...int) *DiffEnd {
	posA, posB := f.Size, other.Size
	if len(pos) > 0 {
		posA = pos[0]
	}
	if len(pos) > 1 {
		posB = pos[1]
	}
	return findDiffEnd(f, other, posA, posB)
}

// findIndex finds the index and inner offset corresponding to a given
// relative position in this fragment.
func (f *Fragment) findIndex(pos int, round ...int) (int, int, error) {
	r := -1
	if len(round) > 0 {
		r = round[0]
	}
	if pos == 0 {
		return 0, pos, nil
	}
	if pos == f.Size {
		return len(f.Content), pos, nil
	}
	if pos > f.Size || pos < 0 {
		return 0, 0, fmt.Errorf("position %d outside of fragment (%s)", pos, f)
	}
	curPos := 0
	for i, cur := range f.Content {
		end := curPos + cur.NodeSize()
		if end >= pos {
			if end == pos || r > 0 {
				return i + 1, end, nil
			}
			return i, curPos, nil
		}
		curPos = end
	}
	return 0, 0, fmt.Errorf("position %d outside of fragment (%s)", pos, f)
}

// String returns a debugging string that describes this fragment.
func (f *Fragment) String() string {
	return "<" + f.toStringInner() + ">"
}

func (f *Fragment) toStringInner() string {
	parts := make([]string, len(f.Content))
	for i, child := range f.Content {
		parts[i] = child.String()
	}
	return strings.Join(parts, ", ")
}

// ToJSON creates a JSON-serializeable representation of this fragment.
func (f *Fragment) ToJSON() []interface{} {
	if len(f.Content) == 0 {
		return nil
	}
	result := make([]interface{}, len(f.Content))
	for i, child := range f.Content {
		result[i] = child.ToJSON()
	}
	return result
}

// FragmentFromJSON deserializes a fragment from its JSON representation.
func FragmentFromJSON(schema *Schema, value interface{}) (*Fragment, error) {
	if value == nil {
		return EmptyFragment, nil
	}
	list, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid input for Fragment.fromJSON: %T", value)
	}
	nodes := make([]*Node, len(list))
	for i, raw := range list {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid input for Fragment.fromJSON: %T", raw)
		}
		n, err := schema.NodeFromJSON(obj)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return FragmentFromArray(nodes), nil
}

// FragmentFromArray builds a fragment from an array of nodes. Ensures that
// adjacent text nodes with the same marks are joined together.
func FragmentFromArray(array []*Node) *Fragment {
	if len(array) == 0 {
		return EmptyFragment
	}
	var joined []*Node
	size := 0
	for i, node := range array {
		size += node.NodeSize()
		if i > 0 && node.IsText() && array[i-1].SameMarkup(node) {
			if joined == nil {
				joined = make([]*Node, i)
				copy(joined, array[:i])
			}
			last := joined[len(joined)-1]
			joined[len(joined)-1] = last.WithText(*last.Text + *node.Text)
		} else if joined != nil {
			joined = append(joined, node)
		}
	}
	if joined == nil {
		joined = array
	}
	return &Fragment{Content: joined, Size: size}
}

// FragmentFrom creates a fragment from something that can be interpreted as
// a set of nodes. For nil, it returns the empty fragment. For a fragment, the
// fragment itself. For a node or array of nodes, a fragment containing those
// nodes.
func FragmentFrom(nodes interface{}) (*Fragment, error) {
	switch n := nodes.(type) {
	case nil:
		return EmptyFragment, nil
	case *Fragment:
		if n == nil {
			return EmptyFragment, nil
		}
		return n, nil
	case *Node:
		if n == nil {
			return EmptyFragment, nil
		}
		return &Fragment{Content: []*Node{n}, Size: n.NodeSize()}, nil
	case []*Node:
		return FragmentFromArray(n), nil
	}
	return nil, fmt.Errorf("can not convert %v to a Fragment", nodes)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
