package model

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Mark is a piece of information attached to inline content: emphasis, a
// link with its target, a text color. Its type decides where it may appear
// and which other marks it excludes.
type Mark struct {
	Type  *MarkType
	Attrs map[string]interface{}
}

// NoMarks is the empty set of marks.
var NoMarks = []*Mark{}

// AddToSet returns a set that also holds this mark, placed by rank. Marks of
// the set that this one excludes are dropped, and the set is returned
// unchanged when it already holds the mark or something excluding it.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	kept := make([]*Mark, 0, len(set)+1)
	for _, other := range set {
		switch {
		case m.Eq(other):
			return set
		case m.Type.Excludes(other.Type):
		case other.Type.Excludes(m.Type):
			return set
		default:
			kept = append(kept, other)
		}
	}
	at := slices.IndexFunc(kept, func(other *Mark) bool { return other.Type.Rank > m.Type.Rank })
	if at < 0 {
		at = len(kept)
	}
	return slices.Insert(kept, at, m)
}

// RemoveFromSet returns the set without this mark.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	i := slices.IndexFunc(set, m.Eq)
	if i < 0 {
		return set
	}
	return slices.Delete(slices.Clone(set), i, i+1)
}

// IsInSet tells whether the set holds this mark.
func (m *Mark) IsInSet(set []*Mark) bool {
	return slices.ContainsFunc(set, m.Eq)
}

// Eq tells whether both marks have the same type and attributes.
func (m *Mark) Eq(other *Mark) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	return m.Type == other.Type && attrsEqual(m.Attrs, other.Attrs)
}

// ToJSON returns the JSON representation of the mark. Attributes are left
// out when there are none.
func (m *Mark) ToJSON() map[string]interface{} {
	obj := map[string]interface{}{"type": m.Type.Name}
	if len(m.Attrs) > 0 {
		obj["attrs"] = maps.Clone(m.Attrs)
	}
	return obj
}

func (m *Mark) String() string {
	if len(m.Attrs) == 0 {
		return m.Type.Name
	}
	return fmt.Sprintf("%s%v", m.Type.Name, m.Attrs)
}

// MarkFromJSON decodes a mark, checking its attributes against the schema.
func MarkFromJSON(schema *Schema, obj map[string]interface{}) (*Mark, error) {
	name, _ := obj["type"].(string)
	typ, ok := schema.Marks[name]
	if !ok {
		return nil, fmt.Errorf("there is no mark type %s in this schema", name)
	}
	attrs, _ := obj["attrs"].(map[string]interface{})
	return typ.CreateChecked(attrs)
}

// SameMarkSet tells whether two sets hold the same marks in the same order.
func SameMarkSet(a, b []*Mark) bool {
	return slices.EqualFunc(a, b, (*Mark).Eq)
}

// MarkSetFrom sorts marks by rank into a set.
func MarkSetFrom(marks []*Mark) []*Mark {
	switch len(marks) {
	case 0:
		return NoMarks
	case 1:
		return marks
	}
	set := slices.Clone(marks)
	slices.SortStableFunc(set, func(a, b *Mark) int { return cmp.Compare(a.Type.Rank, b.Type.Rank) })
	return set
}
