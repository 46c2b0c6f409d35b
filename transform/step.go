// Package transform implements document transforms, which are used by the
// editor to treat changes as first-class values, which can be saved, shared,
// and reasoned about.
package transform

import (
	"fmt"

	"github.com/shodgson/eddytor/model"
)

// Step objects represent an atomic change. It generally applies only to the
// document it was created for, since the positions stored in it will only
// make sense for that document.
type Step interface {
	// Applies this step to the given document, returning a result object
	// that either indicates failure, if the step can not be applied to this
	// document, or indicates success by containing a transformed document.
	Apply(doc *model.Node) StepResult

	// GetMap gets the step map that represents the changes made by this
	// step, and which can be used to transform between positions in the old
	// and the new document.
	GetMap() *StepMap

	// Invert creates an inverted version of this step. Needs the document
	// as it was before the step as argument.
	Invert(doc *model.Node) Step

	// Map this step through a mappable thing, returning either a version of
	// that step with its positions adjusted, or nil if the step was entirely
	// deleted by the mapping.
	Map(mapping Mappable) Step

	// Merge tries to merge this step with another one, to be applied
	// directly after it. Returns the merged step when possible.
	Merge(other Step) (Step, bool)

	// ToJSON creates a JSON-serializeable representation of this step.
	ToJSON() map[string]interface{}
}

// StepResult is the result of applying a step. Contains either a new
// document or a failure value.
type StepResult struct {
	// The transformed document.
	Doc *model.Node
	// Text providing information about a failed step.
	Failed string
}

// OK creates a successful step result.
func OK(doc *model.Node) StepResult {
	return StepResult{Doc: doc}
}

// Fail creates a failed step result.
func Fail(message string) StepResult {
	return StepResult{Failed: message}
}

// FromReplace calls Node.Replace with the given arguments. Creates a
// successful result if it succeeds, and a failed one if it returns a
// ReplaceError.
func FromReplace(doc *model.Node, from, to int, slice *model.Slice) StepResult {
	replaced, err := doc.Replace(from, to, slice)
	if err != nil {
		return Fail(err.Error())
	}
	return OK(replaced)
}

// StepDeserializer builds a step from its JSON representation.
type StepDeserializer func(schema *model.Schema, obj map[string]interface{}) (Step, error)

var stepsByID = map[string]StepDeserializer{
	"replace":       ReplaceStepFromJSON,
	"replaceAround": ReplaceAroundStepFromJSON,
	"addMark":       AddMarkStepFromJSON,
	"removeMark":    RemoveMarkStepFromJSON,
	"attr":          AttrStepFromJSON,
}

// StepFromJSON deserializes a step from its JSON representation. Will call
// through to the step type's own implementation.
func StepFromJSON(schema *model.Schema, obj map[string]interface{}) (Step, error) {
	id, _ := obj["stepType"].(string)
	fn, ok := stepsByID[id]
	if !ok {
		return nil, fmt.Errorf("no step type %q defined", id)
	}
	return fn(schema, obj)
}

func jsonInt(obj map[string]interface{}, key string) (int, error) {
	switch v := obj[key].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("invalid input for %s: %v", key, obj[key])
}
