// Package decoration provides the overlay that plugins put on top of a
// document: attributes on inline ranges and on nodes, and widgets at
// positions. Decorations never change the document.
package decoration

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/transform"
)

// Type tells what kind of decoration a Decoration is.
type Type int

// Decoration types.
const (
	// Inline decorations add attributes to the inline content in a range.
	Inline Type = iota
	// Node decorations add attributes to a single node, spanning from the
	// position before it to the position after it.
	Node
	// Widget decorations mark a position, where the view shows a widget.
	Widget
)

func (t Type) String() string {
	switch t {
	case Inline:
		return "inline"
	case Node:
		return "node"
	case Widget:
		return "widget"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Decoration is a range or position of the document with presentational
// attributes.
type Decoration struct {
	From int
	To   int
	Type Type
	// Attrs are the DOM attributes added by the decoration. "class" values
	// are space-separated.
	Attrs map[string]string
	// Spec holds extra information that can be used to find the decoration
	// again.
	Spec map[string]interface{}
	// Name identifies the widget to render, for widget decorations.
	Name string
	// Side controls on which side of the content at its position a widget
	// is placed, and how it maps. Negative values stay before inserted
	// content.
	Side int
	// InclusiveStart and InclusiveEnd tell whether content inserted at the
	// bounds of an inline decoration is included in it.
	InclusiveStart bool
	InclusiveEnd   bool
}

// NewInline creates an inline decoration, which adds the given attributes
// to each inline node between from and to.
func NewInline(from, to int, attrs map[string]string, spec ...map[string]interface{}) *Decoration {
	return &Decoration{From: from, To: to, Type: Inline, Attrs: attrs, Spec: firstSpec(spec)}
}

// NewNode creates a node decoration. from and to should point precisely
// before and after a node in the document.
func NewNode(from, to int, attrs map[string]string, spec ...map[string]interface{}) *Decoration {
	return &Decoration{From: from, To: to, Type: Node, Attrs: attrs, Spec: firstSpec(spec)}
}

// NewWidget creates a widget decoration at the given position.
func NewWidget(pos int, name string, spec ...map[string]interface{}) *Decoration {
	return &Decoration{From: pos, To: pos, Type: Widget, Name: name, Spec: firstSpec(spec)}
}

func firstSpec(spec []map[string]interface{}) map[string]interface{} {
	if len(spec) > 0 && spec[0] != nil {
		return spec[0]
	}
	return map[string]interface{}{}
}

// Class returns the class attribute of the decoration.
func (d *Decoration) Class() string {
	return d.Attrs["class"]
}

// Eq tells whether two decorations are equivalent.
func (d *Decoration) Eq(other *Decoration) bool {
	return d == other || (other != nil && d.From == other.From && d.To == other.To &&
		d.Type == other.Type && d.Name == other.Name && d.Side == other.Side &&
		reflect.DeepEqual(d.Attrs, other.Attrs) && reflect.DeepEqual(d.Spec, other.Spec))
}

func (d *Decoration) String() string {
	return fmt.Sprintf("%s(%d, %d)", d.Type, d.From, d.To)
}

func (d *Decoration) copyTo(from, to int) *Decoration {
	c := *d
	c.From, c.To = from, to
	return &c
}

// mapDeco maps the decoration through a change. Returns nil when the
// decoration doesn't survive the change.
func (d *Decoration) mapDeco(mapping transform.Mappable) *Decoration {
	switch d.Type {
	case Widget:
		assoc := 1
		if d.Side < 0 {
			assoc = -1
		}
		result := mapping.MapResult(d.From, assoc)
		if result.Deleted {
			return nil
		}
		return d.copyTo(result.Pos, result.Pos)
	case Node:
		from := mapping.MapResult(d.From, 1)
		if from.Deleted {
			return nil
		}
		to := mapping.MapResult(d.To, -1)
		if to.Deleted || to.Pos <= from.Pos {
			return nil
		}
		return d.copyTo(from.Pos, to.Pos)
	default:
		startAssoc, endAssoc := 1, -1
		if d.InclusiveStart {
			startAssoc = -1
		}
		if d.InclusiveEnd {
			endAssoc = 1
		}
		from, to := mapping.Map(d.From, startAssoc), mapping.Map(d.To, endAssoc)
		if from >= to {
			return nil
		}
		return d.copyTo(from, to)
	}
}

// DecorationSet is a collection of decorations, sorted by position.
type DecorationSet struct {
	decos []*Decoration
}

// Empty is the empty set of decorations.
var Empty = &DecorationSet{}

// Create a set of decorations, using the structure of the given document.
// Decorations outside of the document are dropped.
func Create(doc *model.Node, decos []*Decoration) *DecorationSet {
	if len(decos) == 0 {
		return Empty
	}
	size := doc.Content.Size
	kept := make([]*Decoration, 0, len(decos))
	for _, d := range decos {
		if d == nil || d.From < 0 || d.To > size || d.From > d.To {
			continue
		}
		if d.Type != Widget && d.From == d.To {
			continue
		}
		kept = append(kept, d)
	}
	return newSet(kept)
}

func newSet(decos []*Decoration) *DecorationSet {
	if len(decos) == 0 {
		return Empty
	}
	sort.SliceStable(decos, func(i, j int) bool {
		if decos[i].From != decos[j].From {
			return decos[i].From < decos[j].From
		}
		return decos[i].To < decos[j].To
	})
	return &DecorationSet{decos: decos}
}

// Len returns the number of decorations in the set.
func (s *DecorationSet) Len() int {
	return len(s.decos)
}

// All returns all the decorations in the set, sorted by position.
func (s *DecorationSet) All() []*Decoration {
	return s.decos
}

// Find all decorations in this set which touch the given range (including
// decorations that start or end directly at the boundaries) and match the
// given predicate on their spec. A negative end means the end of the set.
func (s *DecorationSet) Find(start, end int, predicate ...func(spec map[string]interface{}) bool) []*Decoration {
	var found []*Decoration
	for _, d := range s.decos {
		if end >= 0 && d.From > end {
			break
		}
		if d.To < start {
			continue
		}
		if len(predicate) > 0 && predicate[0] != nil && !predicate[0](d.Spec) {
			continue
		}
		found = append(found, d)
	}
	return found
}

// Map the set of decorations in response to a change in the document.
func (s *DecorationSet) Map(mapping transform.Mappable, doc *model.Node) *DecorationSet {
	if s == Empty || s.Len() == 0 {
		return Empty
	}
	mapped := make([]*Decoration, 0, len(s.decos))
	size := doc.Content.Size
	for _, d := range s.decos {
		if m := d.mapDeco(mapping); m != nil && m.To <= size {
			mapped = append(mapped, m)
		}
	}
	return newSet(mapped)
}

// Add the given array of decorations to the ones in the set, producing a
// new set.
func (s *DecorationSet) Add(doc *model.Node, decos []*Decoration) *DecorationSet {
	if len(decos) == 0 {
		return s
	}
	added := Create(doc, decos)
	all := make([]*Decoration, 0, len(s.decos)+added.Len())
	all = append(all, s.decos...)
	all = append(all, added.decos...)
	return newSet(all)
}

// Remove creates a new set that contains the decorations in this set,
// minus the ones in the given array.
func (s *DecorationSet) Remove(decos []*Decoration) *DecorationSet {
	if len(decos) == 0 || s.Len() == 0 {
		return s
	}
	kept := make([]*Decoration, 0, len(s.decos))
outer:
	for _, d := range s.decos {
		for _, r := range decos {
			if d.Eq(r) {
				continue outer
			}
		}
		kept = append(kept, d)
	}
	return newSet(kept)
}

// Eq tells whether two sets hold equivalent decorations.
func (s *DecorationSet) Eq(other *DecorationSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for i, d := range s.decos {
		if !d.Eq(other.decos[i]) {
			return false
		}
	}
	return true
}
