package state

import (
	"fmt"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/transform"
)

// SelectionRange represents a selected range in a document.
type SelectionRange struct {
	From *model.ResolvedPos
	To   *model.ResolvedPos
}

// Selection is the interface implemented by every kind of selection. A
// selection has a head (the active end, which moves when extending it) and an
// anchor, and covers one or more ranges of the document.
type Selection interface {
	// Ranges returns the ranges covered by the selection.
	Ranges() []SelectionRange
	// ResolvedAnchor is the resolved anchor of the selection (the side that
	// stays in place when the selection is modified).
	ResolvedAnchor() *model.ResolvedPos
	// ResolvedHead is the resolved head of the selection.
	ResolvedHead() *model.ResolvedPos
	Anchor() int
	Head() int
	// From is the lower bound of the selection's main range.
	From() int
	// To is the upper bound of the selection's main range.
	To() int
	// RFrom is the resolved lower bound of the selection's main range.
	RFrom() *model.ResolvedPos
	// RTo is the resolved upper bound of the selection's main range.
	RTo() *model.ResolvedPos
	// Empty indicates whether the selection contains any content.
	Empty() bool
	// Eq tests whether the selection is the same as another selection.
	Eq(other Selection) bool
	// Map maps this selection through a mappable thing. doc should be the
	// new document to which we are mapping.
	Map(doc *model.Node, mapping transform.Mappable) Selection
	// Content gets the content of this selection as a slice.
	Content() *model.Slice
	// Replace the selection with a slice or, if no slice is given, delete
	// the selection. Will append to the given transaction.
	Replace(tr *Transaction, content *model.Slice) error
	// ReplaceWith replaces the selection with the given node, appending the
	// changes to the given transaction.
	ReplaceWith(tr *Transaction, node *model.Node) error
	// ToJSON converts the selection to a JSON representation.
	ToJSON() map[string]interface{}
}

// SelectionBase holds the state shared by selection implementations. It is
// meant to be embedded.
type SelectionBase struct {
	anchor *model.ResolvedPos
	head   *model.ResolvedPos
	ranges []SelectionRange
}

// NewSelectionBase initializes a selection with the head and anchor and
// ranges. If no ranges are given, constructs a single range across anchor
// and head.
func NewSelectionBase(anchor, head *model.ResolvedPos, ranges ...SelectionRange) SelectionBase {
	if len(ranges) == 0 {
		ranges = []SelectionRange{{From: anchor.Min(head), To: anchor.Max(head)}}
	}
	return SelectionBase{anchor: anchor, head: head, ranges: ranges}
}

// Ranges is part of the Selection interface.
func (s *SelectionBase) Ranges() []SelectionRange { return s.ranges }

// ResolvedAnchor is part of the Selection interface.
func (s *SelectionBase) ResolvedAnchor() *model.ResolvedPos { return s.anchor }

// ResolvedHead is part of the Selection interface.
func (s *SelectionBase) ResolvedHead() *model.ResolvedPos { return s.head }

// Anchor is part of the Selection interface.
func (s *SelectionBase) Anchor() int { return s.anchor.Pos }

// Head is part of the Selection interface.
func (s *SelectionBase) Head() int { return s.head.Pos }

// From is part of the Selection interface.
func (s *SelectionBase) From() int { return s.ranges[0].From.Pos }

// To is part of the Selection interface.
func (s *SelectionBase) To() int { return s.ranges[0].To.Pos }

// RFrom is part of the Selection interface.
func (s *SelectionBase) RFrom() *model.ResolvedPos { return s.ranges[0].From }

// RTo is part of the Selection interface.
func (s *SelectionBase) RTo() *model.ResolvedPos { return s.ranges[0].To }

// Empty is part of the Selection interface.
func (s *SelectionBase) Empty() bool {
	for _, r := range s.ranges {
		if r.From.Pos != r.To.Pos {
			return false
		}
	}
	return true
}

// Content is part of the Selection interface.
func (s *SelectionBase) Content() *model.Slice {
	slice, err := s.RFrom().Doc().Slice(s.From(), s.To(), true)
	if err != nil {
		return model.EmptySlice
	}
	return slice
}

// replaceRanges replaces the ranges of a selection with content.
func replaceRanges(tr *Transaction, ranges []SelectionRange, content *model.Slice) error {
	if content == nil {
		content = model.EmptySlice
	}
	lastNode := content.Content.LastChild()
	var lastParent *model.Node
	for i := 0; i < content.OpenEnd && lastNode != nil; i++ {
		lastParent = lastNode
		lastNode = lastNode.LastChild()
	}
	mapFrom := len(tr.Steps)
	for i, r := range ranges {
		mapping := tr.Mapping.Slice(mapFrom, len(tr.Mapping.Maps))
		slice := content
		if i > 0 {
			slice = model.EmptySlice
		}
		if err := tr.ReplaceRange(mapping.Map(r.From.Pos), mapping.Map(r.To.Pos), slice); err != nil {
			return err
		}
		if i == 0 {
			bias := 1
			if (lastNode != nil && lastNode.IsInline()) || (lastNode == nil && lastParent != nil && lastParent.IsTextblock()) {
				bias = -1
			}
			selectionToInsertionEnd(tr, mapFrom, bias)
		}
	}
	return nil
}

func replaceRangesWith(tr *Transaction, ranges []SelectionRange, node *model.Node) error {
	mapFrom := len(tr.Steps)
	for i, r := range ranges {
		mapping := tr.Mapping.Slice(mapFrom, len(tr.Mapping.Maps))
		from, to := mapping.Map(r.From.Pos), mapping.Map(r.To.Pos)
		if i > 0 {
			if err := tr.DeleteRange(from, to); err != nil {
				return err
			}
			continue
		}
		if err := tr.ReplaceRangeWith(from, to, node); err != nil {
			return err
		}
		bias := 1
		if node.IsInline() {
			bias = -1
		}
		selectionToInsertionEnd(tr, mapFrom, bias)
	}
	return nil
}

func selectionToInsertionEnd(tr *Transaction, startLen, bias int) {
	last := len(tr.Steps) - 1
	if last < startLen {
		return
	}
	switch tr.Steps[last].(type) {
	case *transform.ReplaceStep, *transform.ReplaceAroundStep:
	default:
		return
	}
	end := -1
	tr.Mapping.Maps[last].ForEach(func(_, _, _, newTo int) {
		if end < 0 {
			end = newTo
		}
	})
	if end < 0 {
		return
	}
	if rpos, err := tr.Doc.Resolve(end); err == nil {
		tr.SetSelection(Near(rpos, bias))
	}
}

// FindSelectionFrom finds a valid cursor or leaf node selection starting at
// the given position and searching back if dir is negative, and forward if
// positive. When textOnly is true, only consider cursor selections. Returns
// nil when no valid selection position is found.
func FindSelectionFrom(rpos *model.ResolvedPos, dir int, textOnly bool) Selection {
	if rpos.Parent().InlineContent() {
		return NewTextSelection(rpos, nil)
	}
	if inner := findSelectionIn(rpos.Doc(), rpos.Parent(), rpos.Pos, rpos.Index(), dir, textOnly); inner != nil {
		return inner
	}
	for depth := rpos.Depth - 1; depth >= 0; depth-- {
		var found Selection
		if dir < 0 {
			pos, _ := rpos.Before(depth + 1)
			found = findSelectionIn(rpos.Doc(), rpos.Node(depth), pos, rpos.Index(depth), dir, textOnly)
		} else {
			pos, _ := rpos.After(depth + 1)
			found = findSelectionIn(rpos.Doc(), rpos.Node(depth), pos, rpos.Index(depth)+1, dir, textOnly)
		}
		if found != nil {
			return found
		}
	}
	return nil
}

// Near finds a valid cursor or leaf node selection near the given position.
// Searches forward first by default, but if bias is negative, it will
// search backwards first.
func Near(rpos *model.ResolvedPos, bias ...int) Selection {
	b := 1
	if len(bias) > 0 && bias[0] != 0 {
		b = bias[0]
	}
	if found := FindSelectionFrom(rpos, b, false); found != nil {
		return found
	}
	if found := FindSelectionFrom(rpos, -b, false); found != nil {
		return found
	}
	return NewAllSelection(rpos.Doc())
}

// AtStart finds the cursor or leaf node selection closest to the start of
// the given document. Will return an AllSelection if no valid position
// exists.
func AtStart(doc *model.Node) Selection {
	if found := findSelectionIn(doc, doc, 0, 0, 1, false); found != nil {
		return found
	}
	return NewAllSelection(doc)
}

// AtEnd finds the cursor or leaf node selection closest to the end of the
// given document.
func AtEnd(doc *model.Node) Selection {
	if found := findSelectionIn(doc, doc, doc.Content.Size, doc.ChildCount(), -1, false); found != nil {
		return found
	}
	return NewAllSelection(doc)
}

func findSelectionIn(doc, node *model.Node, pos, index, dir int, text bool) Selection {
	if node.InlineContent() {
		sel, err := CreateTextSelection(doc, pos)
		if err != nil {
			return nil
		}
		return sel
	}
	start := index
	if dir < 0 {
		start = index - 1
	}
	for i := start; (dir > 0 && i < node.ChildCount()) || (dir < 0 && i >= 0); i += dir {
		child := node.Content.Content[i]
		if !child.IsAtom() {
			childIndex := 0
			if dir < 0 {
				childIndex = child.ChildCount()
			}
			if inner := findSelectionIn(doc, child, pos+dir, childIndex, dir, text); inner != nil {
				return inner
			}
		} else if !text && IsSelectable(child) {
			at := pos
			if dir < 0 {
				at = pos - child.NodeSize()
			}
			sel, err := CreateNodeSelection(doc, at)
			if err == nil {
				return sel
			}
		}
		pos += child.NodeSize() * dir
	}
	return nil
}

// TextSelection represents a text cursor or a range of text.
type TextSelection struct {
	SelectionBase
}

// NewTextSelection constructs a text selection between the given points.
// When head is nil, it is a cursor at anchor.
func NewTextSelection(anchor, head *model.ResolvedPos) *TextSelection {
	if head == nil {
		head = anchor
	}
	return &TextSelection{NewSelectionBase(anchor, head)}
}

// CreateTextSelection creates a text selection from non-resolved positions.
func CreateTextSelection(doc *model.Node, anchor int, head ...int) (*TextSelection, error) {
	ranchor, err := doc.Resolve(anchor)
	if err != nil {
		return nil, err
	}
	rhead := ranchor
	if len(head) > 0 {
		if rhead, err = doc.Resolve(head[0]); err != nil {
			return nil, err
		}
	}
	return NewTextSelection(ranchor, rhead), nil
}

// TextSelectionBetween returns a text selection that spans the given
// positions or, if they aren't text positions, finds a text selection near
// them. bias determines whether the method searches forward (default) or
// backwards (negative number) first. Will fall back to calling Near when the
// document doesn't contain a valid text position.
func TextSelectionBetween(anchor, head *model.ResolvedPos, bias int) Selection {
	dPos := anchor.Pos - head.Pos
	if bias == 0 || dPos != 0 {
		if dPos >= 0 {
			bias = 1
		} else {
			bias = -1
		}
	}
	if !head.Parent().InlineContent() {
		found := FindSelectionFrom(head, bias, true)
		if found == nil {
			found = FindSelectionFrom(head, -bias, true)
		}
		if found == nil {
			return Near(head, bias)
		}
		head = found.ResolvedHead()
	}
	if !anchor.Parent().InlineContent() {
		if dPos == 0 {
			anchor = head
		} else {
			found := FindSelectionFrom(anchor, -bias, true)
			if found == nil {
				found = FindSelectionFrom(anchor, bias, true)
			}
			if found == nil {
				anchor = head
			} else {
				anchor = found.ResolvedAnchor()
				if (anchor.Pos < head.Pos) != (dPos < 0) {
					anchor = head
				}
			}
		}
	}
	return NewTextSelection(anchor, head)
}

// Cursor returns the resolved cursor position when the selection is an
// empty text selection, nil otherwise.
func (s *TextSelection) Cursor() *model.ResolvedPos {
	if s.anchor.Pos == s.head.Pos {
		return s.head
	}
	return nil
}

// Map is part of the Selection interface.
func (s *TextSelection) Map(doc *model.Node, mapping transform.Mappable) Selection {
	rhead, err := doc.Resolve(mapping.Map(s.Head()))
	if err != nil {
		return AtStart(doc)
	}
	if !rhead.Parent().InlineContent() {
		return Near(rhead)
	}
	ranchor, err := doc.Resolve(mapping.Map(s.Anchor()))
	if err != nil || !ranchor.Parent().InlineContent() {
		ranchor = rhead
	}
	return NewTextSelection(ranchor, rhead)
}

// Replace is part of the Selection interface.
func (s *TextSelection) Replace(tr *Transaction, content *model.Slice) error {
	if err := replaceRanges(tr, s.ranges, content); err != nil {
		return err
	}
	if content == nil || content == model.EmptySlice {
		if marks := s.RFrom().MarksAcross(s.RTo()); marks != nil {
			tr.EnsureMarks(marks)
		}
	}
	return nil
}

// ReplaceWith is part of the Selection interface.
func (s *TextSelection) ReplaceWith(tr *Transaction, node *model.Node) error {
	return replaceRangesWith(tr, s.ranges, node)
}

// Eq is part of the Selection interface.
func (s *TextSelection) Eq(other Selection) bool {
	o, ok := other.(*TextSelection)
	return ok && o.Anchor() == s.Anchor() && o.Head() == s.Head()
}

// ToJSON is part of the Selection interface.
func (s *TextSelection) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "text", "anchor": s.Anchor(), "head": s.Head()}
}

// String returns a debug representation of the selection.
func (s *TextSelection) String() string {
	return fmt.Sprintf("TextSelection(%d, %d)", s.Anchor(), s.Head())
}

// NodeSelection is a selection that points at a single node. All nodes
// marked selectable can be the target of a node selection.
type NodeSelection struct {
	SelectionBase
	// The selected node.
	Node *model.Node
}

// NewNodeSelection creates a node selection. Does not verify the validity
// of its argument: rpos must point before a node.
func NewNodeSelection(rpos *model.ResolvedPos) (*NodeSelection, error) {
	node := rpos.NodeAfter()
	if node == nil {
		return nil, fmt.Errorf("no node after position %d", rpos.Pos)
	}
	end, err := rpos.Doc().Resolve(rpos.Pos + node.NodeSize())
	if err != nil {
		return nil, err
	}
	return &NodeSelection{SelectionBase: NewSelectionBase(rpos, end), Node: node}, nil
}

// CreateNodeSelection creates a node selection from non-resolved positions.
func CreateNodeSelection(doc *model.Node, from int) (*NodeSelection, error) {
	rpos, err := doc.Resolve(from)
	if err != nil {
		return nil, err
	}
	return NewNodeSelection(rpos)
}

// IsSelectable determines whether the given node may be selected as a node
// selection.
func IsSelectable(node *model.Node) bool {
	return !node.IsText()
}

// Map is part of the Selection interface.
func (s *NodeSelection) Map(doc *model.Node, mapping transform.Mappable) Selection {
	result := mapping.MapResult(s.Anchor())
	rpos, err := doc.Resolve(result.Pos)
	if err != nil {
		return AtStart(doc)
	}
	if result.Deleted {
		return Near(rpos)
	}
	sel, err := NewNodeSelection(rpos)
	if err != nil {
		return Near(rpos)
	}
	return sel
}

// Content is part of the Selection interface.
func (s *NodeSelection) Content() *model.Slice {
	return model.NewSlice(model.NewFragment([]*model.Node{s.Node}), 0, 0)
}

// Replace is part of the Selection interface.
func (s *NodeSelection) Replace(tr *Transaction, content *model.Slice) error {
	return replaceRanges(tr, s.ranges, content)
}

// ReplaceWith is part of the Selection interface.
func (s *NodeSelection) ReplaceWith(tr *Transaction, node *model.Node) error {
	return replaceRangesWith(tr, s.ranges, node)
}

// Eq is part of the Selection interface.
func (s *NodeSelection) Eq(other Selection) bool {
	o, ok := other.(*NodeSelection)
	return ok && o.Anchor() == s.Anchor()
}

// ToJSON is part of the Selection interface.
func (s *NodeSelection) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "node", "anchor": s.Anchor()}
}

// AllSelection represents selecting the whole document.
type AllSelection struct {
	SelectionBase
}

// NewAllSelection creates an all-selection over the given document.
func NewAllSelection(doc *model.Node) *AllSelection {
	start, _ := doc.Resolve(0)
	end, _ := doc.Resolve(doc.Content.Size)
	return &AllSelection{NewSelectionBase(start, end)}
}

// Map is part of the Selection interface.
func (s *AllSelection) Map(doc *model.Node, _ transform.Mappable) Selection {
	return NewAllSelection(doc)
}

// Replace is part of the Selection interface.
func (s *AllSelection) Replace(tr *Transaction, content *model.Slice) error {
	if content != nil && content != model.EmptySlice {
		return replaceRanges(tr, s.ranges, content)
	}
	if err := tr.Delete(0, tr.Doc.Content.Size); err != nil {
		return err
	}
	if sel := AtStart(tr.Doc); !sel.Eq(tr.Selection()) {
		tr.SetSelection(sel)
	}
	return nil
}

// ReplaceWith is part of the Selection interface.
func (s *AllSelection) ReplaceWith(tr *Transaction, node *model.Node) error {
	return replaceRangesWith(tr, s.ranges, node)
}

// Eq is part of the Selection interface.
func (s *AllSelection) Eq(other Selection) bool {
	_, ok := other.(*AllSelection)
	return ok
}

// ToJSON is part of the Selection interface.
func (s *AllSelection) ToJSON() map[string]interface{} {
	return map[string]interface{}{"type": "all"}
}

// SelectionDeserializer builds a selection from its JSON representation.
type SelectionDeserializer func(doc *model.Node, obj map[string]interface{}) (Selection, error)

var selectionsByID = map[string]SelectionDeserializer{
	"text": func(doc *model.Node, obj map[string]interface{}) (Selection, error) {
		anchor, _ := model.AttrInt(obj["anchor"])
		head, _ := model.AttrInt(obj["head"])
		return CreateTextSelection(doc, anchor, head)
	},
	"node": func(doc *model.Node, obj map[string]interface{}) (Selection, error) {
		anchor, _ := model.AttrInt(obj["anchor"])
		return CreateNodeSelection(doc, anchor)
	},
	"all": func(doc *model.Node, _ map[string]interface{}) (Selection, error) {
		return NewAllSelection(doc), nil
	},
}

// RegisterSelectionJSON registers the deserializer for a selection type, so
// that SelectionFromJSON can build it. Should be called from an init
// function.
func RegisterSelectionJSON(id string, fn SelectionDeserializer) {
	if _, ok := selectionsByID[id]; ok {
		panic("duplicate use of selection JSON ID " + id)
	}
	selectionsByID[id] = fn
}

// SelectionFromJSON deserializes the JSON representation of a selection.
func SelectionFromJSON(doc *model.Node, obj map[string]interface{}) (Selection, error) {
	id, _ := obj["type"].(string)
	fn, ok := selectionsByID[id]
	if !ok {
		return nil, fmt.Errorf("no selection type %q defined", id)
	}
	return fn(doc, obj)
}

var (
	_ Selection = &TextSelection{}
	_ Selection = &NodeSelection{}
	_ Selection = &AllSelection{}
)
