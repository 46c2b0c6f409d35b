package transform

import (
	"github.com/shodgson/eddytor/model"
)

// ReplaceStep replaces the content between From and To with a slice.
//
// The slice must fit the gap: its open depths line up with the positions,
// and its open sides can join the surrounding nodes. A structure step fails
// when the range holds anything but closing and opening tokens, so that a
// rebased step cannot overwrite content it never saw.
type ReplaceStep struct {
	From      int
	To        int
	Slice     *model.Slice
	Structure bool
}

// NewReplaceStep is the constructor of ReplaceStep.
func NewReplaceStep(from, to int, slice *model.Slice, structure ...bool) *ReplaceStep {
	return &ReplaceStep{From: from, To: to, Slice: slice, Structure: len(structure) > 0 && structure[0]}
}

// Apply is a method of the Step interface.
func (s *ReplaceStep) Apply(doc *model.Node) StepResult {
	if s.Structure && overwritesContent(doc, s.From, s.To) {
		return Fail("Structure replace would overwrite content")
	}
	return FromReplace(doc, s.From, s.To, s.Slice)
}

// GetMap is a method of the Step interface.
func (s *ReplaceStep) GetMap() *StepMap {
	return NewStepMap([]int{s.From, s.To - s.From, s.Slice.Size()})
}

// Invert is a method of the Step interface.
func (s *ReplaceStep) Invert(doc *model.Node) Step {
	old, err := doc.Slice(s.From, s.To)
	if err != nil {
		old = model.EmptySlice
	}
	return NewReplaceStep(s.From, s.From+s.Slice.Size(), old)
}

// Map is a method of the Step interface.
func (s *ReplaceStep) Map(mapping Mappable) Step {
	from, to := mapping.MapResult(s.From, 1), mapping.MapResult(s.To, -1)
	if from.Deleted && to.Deleted {
		return nil
	}
	return NewReplaceStep(from.Pos, max(from.Pos, to.Pos), s.Slice)
}

// Merge is a method of the Step interface. Two replacements merge when the
// second one starts where the first one's content ends, or ends where the
// first one starts, as happens with typing and backspacing.
func (s *ReplaceStep) Merge(other Step) (Step, bool) {
	next, ok := other.(*ReplaceStep)
	if !ok || next.Structure || s.Structure {
		return nil, false
	}
	switch {
	case s.From+s.Slice.Size() == next.From && s.Slice.OpenEnd == 0 && next.Slice.OpenStart == 0:
		return NewReplaceStep(s.From, s.To+(next.To-next.From), joinSlices(s.Slice, next.Slice)), true
	case next.To == s.From && s.Slice.OpenStart == 0 && next.Slice.OpenEnd == 0:
		return NewReplaceStep(next.From, s.To, joinSlices(next.Slice, s.Slice)), true
	}
	return nil, false
}

func joinSlices(first, second *model.Slice) *model.Slice {
	if first.Size()+second.Size() == 0 {
		return model.EmptySlice
	}
	return model.NewSlice(first.Content.Append(second.Content), first.OpenStart, second.OpenEnd)
}

// ToJSON is a method of the Step interface.
func (s *ReplaceStep) ToJSON() map[string]interface{} {
	return withSlice(map[string]interface{}{
		"stepType": "replace",
		"from":     s.From,
		"to":       s.To,
	}, s.Slice, s.Structure)
}

// ReplaceStepFromJSON builds a ReplaceStep from its JSON representation.
func ReplaceStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	pos, err := jsonInts(obj, "from", "to")
	if err != nil {
		return nil, err
	}
	slice, structure, err := sliceFromJSON(schema, obj)
	if err != nil {
		return nil, err
	}
	return NewReplaceStep(pos[0], pos[1], slice, structure), nil
}

// ReplaceAroundStep replaces the range between From and To with a slice,
// but keeps the content between GapFrom and GapTo, moving it into the slice
// at Insert. Wrapping and lifting blocks are done with it.
type ReplaceAroundStep struct {
	From      int
	To        int
	GapFrom   int
	GapTo     int
	Slice     *model.Slice
	Insert    int
	Structure bool
}

// NewReplaceAroundStep is the constructor of ReplaceAroundStep.
func NewReplaceAroundStep(from, to, gapFrom, gapTo int, slice *model.Slice, insert int, structure bool) *ReplaceAroundStep {
	return &ReplaceAroundStep{
		From: from, To: to,
		GapFrom: gapFrom, GapTo: gapTo,
		Slice: slice, Insert: insert,
		Structure: structure,
	}
}

// Apply is a method of the Step interface.
func (s *ReplaceAroundStep) Apply(doc *model.Node) StepResult {
	if s.Structure && (overwritesContent(doc, s.From, s.GapFrom) || overwritesContent(doc, s.GapTo, s.To)) {
		return Fail("Structure gap-replace would overwrite content")
	}
	gap, err := doc.Slice(s.GapFrom, s.GapTo)
	if err != nil {
		return Fail(err.Error())
	}
	if gap.OpenStart != 0 || gap.OpenEnd != 0 {
		return Fail("Gap is not a flat range")
	}
	inserted := s.Slice.InsertAt(s.Insert, gap.Content)
	if inserted == nil {
		return Fail("Content does not fit in gap")
	}
	return FromReplace(doc, s.From, s.To, inserted)
}

// GetMap is a method of the Step interface.
func (s *ReplaceAroundStep) GetMap() *StepMap {
	return NewStepMap([]int{
		s.From, s.GapFrom - s.From, s.Insert,
		s.GapTo, s.To - s.GapTo, s.Slice.Size() - s.Insert,
	})
}

// Invert is a method of the Step interface.
func (s *ReplaceAroundStep) Invert(doc *model.Node) Step {
	old, err := doc.Slice(s.From, s.To)
	if err != nil {
		return nil
	}
	outer, err := old.RemoveBetween(s.GapFrom-s.From, s.GapTo-s.From)
	if err != nil {
		return nil
	}
	gap := s.GapTo - s.GapFrom
	start := s.From + s.Insert
	return NewReplaceAroundStep(s.From, s.From+s.Slice.Size()+gap, start, start+gap,
		outer, s.GapFrom-s.From, s.Structure)
}

// Map is a method of the Step interface.
func (s *ReplaceAroundStep) Map(mapping Mappable) Step {
	from, to := mapping.MapResult(s.From, 1), mapping.MapResult(s.To, -1)
	gapFrom, gapTo := from.Pos, to.Pos
	if s.From != s.GapFrom {
		gapFrom = mapping.Map(s.GapFrom, -1)
	}
	if s.To != s.GapTo {
		gapTo = mapping.Map(s.GapTo, 1)
	}
	if from.Deleted && to.Deleted || gapFrom < from.Pos || gapTo > to.Pos {
		return nil
	}
	return NewReplaceAroundStep(from.Pos, to.Pos, gapFrom, gapTo, s.Slice, s.Insert, s.Structure)
}

// Merge is a method of the Step interface. Replace-around steps never merge.
func (s *ReplaceAroundStep) Merge(Step) (Step, bool) { return nil, false }

// ToJSON is a method of the Step interface.
func (s *ReplaceAroundStep) ToJSON() map[string]interface{} {
	return withSlice(map[string]interface{}{
		"stepType": "replaceAround",
		"from":     s.From,
		"to":       s.To,
		"gapFrom":  s.GapFrom,
		"gapTo":    s.GapTo,
		"insert":   s.Insert,
	}, s.Slice, s.Structure)
}

// ReplaceAroundStepFromJSON builds a ReplaceAroundStep from its JSON
// representation.
func ReplaceAroundStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	pos, err := jsonInts(obj, "from", "to", "gapFrom", "gapTo", "insert")
	if err != nil {
		return nil, err
	}
	slice, structure, err := sliceFromJSON(schema, obj)
	if err != nil {
		return nil, err
	}
	return NewReplaceAroundStep(pos[0], pos[1], pos[2], pos[3], slice, pos[4], structure), nil
}

var (
	_ Step = &ReplaceStep{}
	_ Step = &ReplaceAroundStep{}
)

func withSlice(obj map[string]interface{}, slice *model.Slice, structure bool) map[string]interface{} {
	if slice.Size() > 0 {
		obj["slice"] = slice.ToJSON()
	}
	if structure {
		obj["structure"] = true
	}
	return obj
}

func sliceFromJSON(schema *model.Schema, obj map[string]interface{}) (*model.Slice, bool, error) {
	raw, _ := obj["slice"].(map[string]interface{})
	slice, err := model.SliceFromJSON(schema, raw)
	if err != nil {
		return nil, false, err
	}
	structure, _ := obj["structure"].(bool)
	return slice, structure, nil
}

func jsonInts(obj map[string]interface{}, keys ...string) ([]int, error) {
	values := make([]int, len(keys))
	for i, key := range keys {
		v, err := jsonInt(obj, key)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// overwritesContent tells whether the range between from and to holds more
// than the closing tokens of the nodes around from followed by the opening
// tokens of the nodes after them.
func overwritesContent(doc *model.Node, from, to int) bool {
	rp, err := doc.Resolve(from)
	if err != nil {
		return true
	}
	left, depth := to-from, rp.Depth
	for ; left > 0 && depth > 0 && rp.IndexAfter(depth) == rp.Node(depth).ChildCount(); depth-- {
		left--
	}
	for next := rp.Node(depth).MaybeChild(rp.IndexAfter(depth)); left > 0; left-- {
		if next == nil || next.IsLeaf() {
			return true
		}
		next = next.FirstChild()
	}
	return false
}
