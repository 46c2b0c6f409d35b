package transform

import (
	"fmt"
	"iter"
	"strings"
)

// Mappable is an interface. There are several things that positions can be
// mapped through. Such objects conform to this interface.
type Mappable interface {
	// Map a position through this object. When given, assoc (should be -1
	// or 1, defaults to 1) determines with which side the position is
	// associated, which determines in which direction to move when a chunk
	// of content is inserted at the mapped position.
	Map(pos int, assoc ...int) int

	// MapResult maps a position, and returns an object containing
	// additional information about the mapping. The result's Deleted field
	// tells you whether the position was deleted (completely enclosed in a
	// replaced range) during the mapping. When content on only one side is
	// deleted, the position itself is only considered deleted when assoc
	// points in the direction of the deleted content.
	MapResult(pos int, assoc ...int) *MapResult
}

// MapResult is an object representing a mapped position with extra
// information.
type MapResult struct {
	// The mapped version of the position.
	Pos int
	// Tells you whether the position was deleted, that is, whether the step
	// removed its surroundings from the document.
	Deleted bool
}

// NewMapResult is the constructor for MapResult
func NewMapResult(pos int, deleted ...bool) *MapResult {
	return &MapResult{Pos: pos, Deleted: len(deleted) > 0 && deleted[0]}
}

// StepMap is a map describing the deletions and insertions made by a step,
// which can be used to find the correspondence between positions in the
// pre-step version of a document and the same position in the post-step
// version.
type StepMap struct {
	Ranges   []int
	Inverted bool
}

// NewStepMap creates a position map. The modifications to the document are
// represented as an array of numbers, in which each group of three
// represents a modified chunk as [start, oldSize, newSize].
func NewStepMap(ranges []int, inverted ...bool) *StepMap {
	return &StepMap{Ranges: ranges, Inverted: len(inverted) > 0 && inverted[0]}
}

// chunk is one changed range of a step map, in the coordinates of the
// documents before and after the step.
type chunk struct {
	oldStart, oldSize int
	newStart, newSize int
}

func (sm *StepMap) chunks() iter.Seq[chunk] {
	return func(yield func(chunk) bool) {
		diff := 0
		for i := 0; i+2 < len(sm.Ranges); i += 3 {
			c := chunk{oldStart: sm.Ranges[i], newStart: sm.Ranges[i], oldSize: sm.Ranges[i+1], newSize: sm.Ranges[i+2]}
			if sm.Inverted {
				c.oldSize, c.newSize = c.newSize, c.oldSize
				c.oldStart -= diff
			} else {
				c.newStart += diff
			}
			if !yield(c) {
				return
			}
			diff += c.newSize - c.oldSize
		}
	}
}

func assocOf(assoc []int) int {
	if len(assoc) > 0 {
		return assoc[0]
	}
	return 1
}

// MapResult is part of the Mappable interface.
func (sm *StepMap) MapResult(pos int, assoc ...int) *MapResult {
	return sm.mapPos(pos, assocOf(assoc))
}

// Map is part of the Mappable interface.
func (sm *StepMap) Map(pos int, assoc ...int) int {
	return sm.MapResult(pos, assoc...).Pos
}

func (sm *StepMap) mapPos(pos, assoc int) *MapResult {
	diff := 0
	for c := range sm.chunks() {
		if c.oldStart > pos {
			break
		}
		end := c.oldStart + c.oldSize
		if pos > end {
			diff += c.newSize - c.oldSize
			continue
		}
		side := assoc
		switch {
		case c.oldSize == 0:
		case pos == c.oldStart:
			side = -1
		case pos == end:
			side = 1
		}
		result := c.newStart
		if side >= 0 {
			result += c.newSize
		}
		if assoc < 0 {
			return NewMapResult(result, pos != c.oldStart)
		}
		return NewMapResult(result, pos != end)
	}
	return NewMapResult(pos + diff)
}

// Touches tells whether the position is touched by one of the changed
// ranges.
func (sm *StepMap) Touches(pos int) bool {
	for c := range sm.chunks() {
		if c.oldStart > pos {
			break
		}
		if pos <= c.oldStart+c.oldSize {
			return true
		}
	}
	return false
}

// ForEach calls the given function on each of the changed ranges included
// in this map.
func (sm *StepMap) ForEach(fn func(oldStart, oldEnd, newStart, newEnd int)) {
	for c := range sm.chunks() {
		fn(c.oldStart, c.oldStart+c.oldSize, c.newStart, c.newStart+c.newSize)
	}
}

// Invert creates an inverted version of this map. The result can be used to
// map positions in the post-step document to the pre-step document.
func (sm *StepMap) Invert() *StepMap {
	return NewStepMap(sm.Ranges, !sm.Inverted)
}

// String returns a string representation of this StepMap.
func (sm *StepMap) String() string {
	prefix := ""
	if sm.Inverted {
		prefix = "-"
	}
	parts := make([]string, len(sm.Ranges))
	for i, r := range sm.Ranges {
		parts[i] = fmt.Sprint(r)
	}
	return prefix + "[" + strings.Join(parts, ",") + "]"
}

// EmptyStepMap is an empty StepMap.
var EmptyStepMap = NewStepMap(nil)

// Mapping is a mapping that represents a pipeline of zero or more step maps.
// It has special provisions for losslessly handling mapping positions
// through a series of steps in which some steps are inverted versions of
// earlier steps.
type Mapping struct {
	// The step maps in this mapping.
	Maps []*StepMap
	// The starting position in the maps array, used when Map or MapResult
	// is called.
	From int
	// The end position in the maps array.
	To     int
	mirror []int
}

// NewMapping creates a new mapping with the given position maps.
func NewMapping(maps ...*StepMap) *Mapping {
	return &Mapping{Maps: maps, To: len(maps)}
}

// Slice creates a mapping that maps only through a part of this one.
func (m *Mapping) Slice(from, to int) *Mapping {
	return &Mapping{Maps: m.Maps, mirror: m.mirror, From: from, To: to}
}

// AppendMap adds a step map to the end of this mapping. If mirrors is
// given, it should be the index of the step map that is the mirror image of
// this one.
func (m *Mapping) AppendMap(sm *StepMap, mirrors ...int) {
	m.Maps = append(m.Maps, sm)
	m.To = len(m.Maps)
	if len(mirrors) > 0 {
		m.SetMirror(len(m.Maps)-1, mirrors[0])
	}
}

// AppendMapping adds all the step maps in a given mapping to this one
// (preserving mirroring information).
func (m *Mapping) AppendMapping(mapping *Mapping) {
	startSize := len(m.Maps)
	for i := 0; i < len(mapping.Maps); i++ {
		if mirr, ok := mapping.GetMirror(i); ok && mirr < i {
			m.AppendMap(mapping.Maps[i], startSize+mirr)
		} else {
			m.AppendMap(mapping.Maps[i])
		}
	}
}

// GetMirror finds the offset of the step map that mirrors the map at the
// given offset, in this mapping (as per the second argument to AppendMap).
func (m *Mapping) GetMirror(n int) (int, bool) {
	for i := 0; i < len(m.mirror); i += 2 {
		if m.mirror[i] == n {
			return m.mirror[i+1], true
		}
		if m.mirror[i+1] == n {
			return m.mirror[i], true
		}
	}
	return 0, false
}

// SetMirror records that the maps at offsets n and m mirror each other.
func (m *Mapping) SetMirror(n, mirror int) {
	m.mirror = append(m.mirror, n, mirror)
}

// Map a position through this mapping.
func (m *Mapping) Map(pos int, assoc ...int) int {
	a := assocOf(assoc)
	for i := m.From; i < m.To; i++ {
		pos = m.Maps[i].Map(pos, a)
	}
	return pos
}

// MapResult maps a position through this mapping, returning a mapping
// result.
func (m *Mapping) MapResult(pos int, assoc ...int) *MapResult {
	a, deleted := assocOf(assoc), false
	for i := m.From; i < m.To; i++ {
		result := m.Maps[i].MapResult(pos, a)
		if result.Deleted {
			if corr, ok := m.GetMirror(i); ok && corr > i && corr < m.To {
				i = corr
				pos = m.Maps[corr].Map(result.Pos, a)
				continue
			}
			deleted = true
		}
		pos = result.Pos
	}
	return NewMapResult(pos, deleted)
}

var (
	_ Mappable = &StepMap{}
	_ Mappable = &Mapping{}
)
