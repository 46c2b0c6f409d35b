package transform

import (
	"errors"
	"fmt"

	"github.com/shodgson/eddytor/model"
)

// AttrStep updates a single attribute of the node at Pos. Toggling a
// checklist item or tagging a code block with its language goes through it.
type AttrStep struct {
	Pos   int
	Attr  string
	Value interface{}
}

// NewAttrStep is the constructor for AttrStep.
func NewAttrStep(pos int, attr string, value interface{}) *AttrStep {
	return &AttrStep{Pos: pos, Attr: attr, Value: value}
}

// Apply is a method of the Step interface.
func (s *AttrStep) Apply(doc *model.Node) StepResult {
	node := doc.NodeAt(s.Pos)
	if node == nil {
		return Fail("No node at attribute step's position")
	}
	if _, ok := node.Type.Attrs[s.Attr]; !ok {
		return Fail(fmt.Sprintf("Node type %s has no attribute %s", node.Type.Name, s.Attr))
	}
	attrs := make(map[string]interface{}, len(node.Attrs))
	for name, value := range node.Attrs {
		attrs[name] = value
	}
	attrs[s.Attr] = s.Value
	updated, err := node.Type.Create(attrs, nil, node.Marks)
	if err != nil {
		return Fail(err.Error())
	}
	// The new node is empty and open at its end, so the old content is kept.
	openEnd := 1
	if node.IsLeaf() {
		openEnd = 0
	}
	return FromReplace(doc, s.Pos, s.Pos+1, model.NewSlice(model.NewFragment([]*model.Node{updated}), 0, openEnd))
}

// GetMap is a method of the Step interface.
func (s *AttrStep) GetMap() *StepMap { return EmptyStepMap }

// Invert is a method of the Step interface.
func (s *AttrStep) Invert(doc *model.Node) Step {
	var old interface{}
	if node := doc.NodeAt(s.Pos); node != nil {
		old = node.Attrs[s.Attr]
	}
	return NewAttrStep(s.Pos, s.Attr, old)
}

// Map is a method of the Step interface.
func (s *AttrStep) Map(mapping Mappable) Step {
	if mapped := mapping.MapResult(s.Pos, 1); !mapped.Deleted {
		return NewAttrStep(mapped.Pos, s.Attr, s.Value)
	}
	return nil
}

// Merge is a method of the Step interface. Attribute steps never merge.
func (s *AttrStep) Merge(Step) (Step, bool) { return nil, false }

// ToJSON is a method of the Step interface.
func (s *AttrStep) ToJSON() map[string]interface{} {
	return map[string]interface{}{"stepType": "attr", "pos": s.Pos, "attr": s.Attr, "value": s.Value}
}

// AttrStepFromJSON builds an AttrStep from its JSON representation.
func AttrStepFromJSON(_ *model.Schema, obj map[string]interface{}) (Step, error) {
	attr, ok := obj["attr"].(string)
	if !ok || attr == "" {
		return nil, errors.New("invalid input for AttrStep.fromJSON")
	}
	pos, err := jsonInt(obj, "pos")
	if err != nil {
		return nil, err
	}
	return NewAttrStep(pos, attr, obj["value"]), nil
}

var _ Step = &AttrStep{}
