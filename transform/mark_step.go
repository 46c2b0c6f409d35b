package transform

import (
	"errors"

	"github.com/shodgson/eddytor/model"
)

// MarkRange is the part shared by the steps adding or removing a mark: the
// mark and the range of inline content it applies to.
type MarkRange struct {
	From int
	To   int
	Mark *model.Mark
}

// restyle rebuilds the slice between From and To, passing every inline node
// with its parent through fn. The result is a replacement of the same size.
func (r MarkRange) restyle(doc *model.Node, parent *model.Node, fn func(node, parent *model.Node) *model.Node) StepResult {
	old, err := doc.Slice(r.From, r.To)
	if err != nil {
		return Fail(err.Error())
	}
	content := restyleFragment(old.Content, parent, fn)
	return FromReplace(doc, r.From, r.To, model.NewSlice(content, old.OpenStart, old.OpenEnd))
}

func restyleFragment(fragment *model.Fragment, parent *model.Node, fn func(node, parent *model.Node) *model.Node) *model.Fragment {
	nodes := make([]*model.Node, fragment.ChildCount())
	for i, child := range fragment.Content {
		if child.Content.Size > 0 {
			child = child.Copy(restyleFragment(child.Content, child, fn))
		}
		if child.IsInline() {
			child = fn(child, parent)
		}
		nodes[i] = child
	}
	return model.FragmentFromArray(nodes)
}

// mapped maps the range, reporting false when nothing of it is left.
func (r MarkRange) mapped(mapping Mappable) (MarkRange, bool) {
	from, to := mapping.MapResult(r.From, 1), mapping.MapResult(r.To, -1)
	if from.Deleted && to.Deleted || from.Pos >= to.Pos {
		return MarkRange{}, false
	}
	return MarkRange{From: from.Pos, To: to.Pos, Mark: r.Mark}, true
}

// union joins two overlapping or touching ranges of the same mark.
func (r MarkRange) union(other MarkRange) (MarkRange, bool) {
	if !r.Mark.Eq(other.Mark) || r.From > other.To || r.To < other.From {
		return MarkRange{}, false
	}
	return MarkRange{From: min(r.From, other.From), To: max(r.To, other.To), Mark: r.Mark}, true
}

func (r MarkRange) toJSON(stepType string) map[string]interface{} {
	return map[string]interface{}{"stepType": stepType, "mark": r.Mark.ToJSON(), "from": r.From, "to": r.To}
}

func markRangeFromJSON(schema *model.Schema, obj map[string]interface{}) (MarkRange, error) {
	from, err := jsonInt(obj, "from")
	if err != nil {
		return MarkRange{}, err
	}
	to, err := jsonInt(obj, "to")
	if err != nil {
		return MarkRange{}, err
	}
	raw, ok := obj["mark"].(map[string]interface{})
	if !ok {
		return MarkRange{}, errors.New("invalid input for mark step")
	}
	mark, err := schema.MarkFromJSON(raw)
	if err != nil {
		return MarkRange{}, err
	}
	return MarkRange{From: from, To: to, Mark: mark}, nil
}

// AddMarkStep adds a mark to the inline content between two positions,
// where the parent node allows it.
type AddMarkStep struct {
	MarkRange
}

// NewAddMarkStep is the constructor for AddMarkStep.
func NewAddMarkStep(from, to int, mark *model.Mark) *AddMarkStep {
	return &AddMarkStep{MarkRange{From: from, To: to, Mark: mark}}
}

// Apply is a method of the Step interface.
func (s *AddMarkStep) Apply(doc *model.Node) StepResult {
	rp, err := doc.Resolve(s.From)
	if err != nil {
		return Fail(err.Error())
	}
	return s.restyle(doc, rp.Node(rp.SharedDepth(s.To)), func(node, parent *model.Node) *model.Node {
		if !node.IsAtom() || !parent.Type.AllowsMarkType(s.Mark.Type) {
			return node
		}
		return node.Mark(s.Mark.AddToSet(node.Marks))
	})
}

// GetMap is a method of the Step interface.
func (s *AddMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert is a method of the Step interface.
func (s *AddMarkStep) Invert(*model.Node) Step { return &RemoveMarkStep{s.MarkRange} }

// Map is a method of the Step interface.
func (s *AddMarkStep) Map(mapping Mappable) Step {
	if r, ok := s.mapped(mapping); ok {
		return &AddMarkStep{r}
	}
	return nil
}

// Merge is a method of the Step interface.
func (s *AddMarkStep) Merge(other Step) (Step, bool) {
	if o, ok := other.(*AddMarkStep); ok {
		if r, ok := s.union(o.MarkRange); ok {
			return &AddMarkStep{r}, true
		}
	}
	return nil, false
}

// ToJSON is a method of the Step interface.
func (s *AddMarkStep) ToJSON() map[string]interface{} { return s.toJSON("addMark") }

// AddMarkStepFromJSON builds an AddMarkStep from its JSON representation.
func AddMarkStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	r, err := markRangeFromJSON(schema, obj)
	if err != nil {
		return nil, err
	}
	return &AddMarkStep{r}, nil
}

// RemoveMarkStep removes a mark from the inline content between two
// positions.
type RemoveMarkStep struct {
	MarkRange
}

// NewRemoveMarkStep is the constructor for RemoveMarkStep.
func NewRemoveMarkStep(from, to int, mark *model.Mark) *RemoveMarkStep {
	return &RemoveMarkStep{MarkRange{From: from, To: to, Mark: mark}}
}

// Apply is a method of the Step interface.
func (s *RemoveMarkStep) Apply(doc *model.Node) StepResult {
	return s.restyle(doc, doc, func(node, _ *model.Node) *model.Node {
		return node.Mark(s.Mark.RemoveFromSet(node.Marks))
	})
}

// GetMap is a method of the Step interface.
func (s *RemoveMarkStep) GetMap() *StepMap { return EmptyStepMap }

// Invert is a method of the Step interface.
func (s *RemoveMarkStep) Invert(*model.Node) Step { return &AddMarkStep{s.MarkRange} }

// Map is a method of the Step interface.
func (s *RemoveMarkStep) Map(mapping Mappable) Step {
	if r, ok := s.mapped(mapping); ok {
		return &RemoveMarkStep{r}
	}
	return nil
}

// Merge is a method of the Step interface.
func (s *RemoveMarkStep) Merge(other Step) (Step, bool) {
	if o, ok := other.(*RemoveMarkStep); ok {
		if r, ok := s.union(o.MarkRange); ok {
			return &RemoveMarkStep{r}, true
		}
	}
	return nil, false
}

// ToJSON is a method of the Step interface.
func (s *RemoveMarkStep) ToJSON() map[string]interface{} { return s.toJSON("removeMark") }

// RemoveMarkStepFromJSON builds a RemoveMarkStep from its JSON
// representation.
func RemoveMarkStepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	r, err := markRangeFromJSON(schema, obj)
	if err != nil {
		return nil, err
	}
	return &RemoveMarkStep{r}, nil
}

var (
	_ Step = &AddMarkStep{}
	_ Step = &RemoveMarkStep{}
)
