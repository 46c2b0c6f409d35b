// Package state implements the editor state: a persistent document with its
// selection and plugin fields, updated by applying transactions.
package state

import (
	"errors"
	"fmt"

	"github.com/shodgson/eddytor/model"
)

// ErrMismatchedTransaction is returned when a transaction built for another
// state is applied.
var ErrMismatchedTransaction = errors.New("applying a mismatched transaction")

// Config is the type of object passed to Create.
type Config struct {
	// The schema to use (only relevant if no Doc is specified).
	Schema *model.Schema
	// The starting document. Either this or Schema must be given.
	Doc *model.Node
	// A valid selection in the document.
	Selection Selection
	// The initial set of stored marks.
	StoredMarks []*model.Mark
	// The plugins that should be active in this state.
	Plugins []*Plugin
}

// EditorState is the state of an editor. It is immutable:
// applying a transaction creates a new state.
type EditorState struct {
	// The current document.
	Doc *model.Node
	// The selection.
	Selection Selection
	// A set of marks to apply to the next input. Will be nil when no
	// explicit marks have been set.
	StoredMarks []*model.Mark
	// The schema of the state's document.
	Schema *model.Schema

	plugins      []*Plugin
	pluginsByKey map[string]*Plugin
	fields       map[string]interface{}
}

// Create a new state.
func Create(config Config) (*EditorState, error) {
	schema := config.Schema
	if config.Doc != nil {
		schema = config.Doc.Type.Schema
	}
	if schema == nil {
		return nil, errors.New("state: need either a doc or a schema")
	}
	s := &EditorState{
		Schema:       schema,
		plugins:      config.Plugins,
		pluginsByKey: map[string]*Plugin{},
		fields:       map[string]interface{}{},
	}
	for _, p := range config.Plugins {
		if _, ok := s.pluginsByKey[p.key]; ok {
			return nil, fmt.Errorf("adding different instances of a keyed plugin (%s)", p.key)
		}
		s.pluginsByKey[p.key] = p
	}
	s.Doc = config.Doc
	if s.Doc == nil {
		doc, err := schema.TopNodeType.CreateAndFill(nil, nil, nil)
		if err != nil {
			return nil, err
		}
		s.Doc = doc
	}
	s.Selection = config.Selection
	if s.Selection == nil {
		s.Selection = AtStart(s.Doc)
	}
	s.StoredMarks = config.StoredMarks
	for _, p := range config.Plugins {
		if p.Spec.State != nil && p.Spec.State.Init != nil {
			s.fields[p.key] = p.Spec.State.Init(config, s)
		}
	}
	return s, nil
}

// Tr starts a transaction from this state.
func (s *EditorState) Tr() *Transaction {
	return newTransaction(s)
}

// Plugins returns the plugins that are active in this state.
func (s *EditorState) Plugins() []*Plugin {
	return s.plugins
}

// Apply applies the given transaction to produce a new state.
func (s *EditorState) Apply(tr *Transaction) (*EditorState, error) {
	next, _, err := s.ApplyTransaction(tr)
	return next, err
}

func (s *EditorState) filterTransaction(tr *Transaction, ignore int) bool {
	for i, p := range s.plugins {
		if i == ignore {
			continue
		}
		if p.Spec.FilterTransaction != nil && !p.Spec.FilterTransaction(tr, s) {
			return false
		}
	}
	return true
}

// ApplyTransaction is the verbose variant of Apply. It returns the precise
// transactions that were applied (which might be influenced by the
// transaction hooks of plugins) along with the new state.
func (s *EditorState) ApplyTransaction(rootTr *Transaction) (*EditorState, []*Transaction, error) {
	if !s.filterTransaction(rootTr, -1) {
		return s, nil, nil
	}
	trs := []*Transaction{rootTr}
	newState, err := s.applyInner(rootTr)
	if err != nil {
		return nil, nil, err
	}
	type seenState struct {
		state *EditorState
		n     int
	}
	var seen []*seenState
	for {
		haveNew := false
		for i, p := range s.plugins {
			if p.Spec.AppendTransaction == nil {
				continue
			}
			n, oldState := 0, s
			if seen != nil && seen[i] != nil {
				n, oldState = seen[i].n, seen[i].state
			}
			if n >= len(trs) {
				continue
			}
			tr := p.Spec.AppendTransaction(trs[n:], oldState, newState)
			if tr != nil && newState.filterTransaction(tr, i) {
				tr.SetMeta("appendedTransaction", rootTr)
				if seen == nil {
					seen = make([]*seenState, len(s.plugins))
					for j := range s.plugins {
						if j < i {
							seen[j] = &seenState{state: newState, n: len(trs)}
						} else {
							seen[j] = &seenState{state: s, n: 0}
						}
					}
				}
				trs = append(trs, tr)
				if newState, err = newState.applyInner(tr); err != nil {
					return nil, nil, err
				}
				haveNew = true
			}
			if seen != nil {
				seen[i] = &seenState{state: newState, n: len(trs)}
			}
		}
		if !haveNew {
			return newState, trs, nil
		}
	}
}

func (s *EditorState) applyInner(tr *Transaction) (*EditorState, error) {
	if !tr.Before().Eq(s.Doc) {
		return nil, ErrMismatchedTransaction
	}
	next := &EditorState{
		Doc:          tr.Doc,
		Selection:    tr.Selection(),
		StoredMarks:  tr.StoredMarks(),
		Schema:       s.Schema,
		plugins:      s.plugins,
		pluginsByKey: s.pluginsByKey,
		fields:       make(map[string]interface{}, len(s.fields)),
	}
	for _, p := range s.plugins {
		if p.Spec.State != nil && p.Spec.State.Apply != nil {
			next.fields[p.key] = p.Spec.State.Apply(tr, s.fields[p.key], s, next)
		} else if v, ok := s.fields[p.key]; ok {
			next.fields[p.key] = v
		}
	}
	return next, nil
}

// Reconfigure creates a new state based on this one, but with an adjusted
// set of active plugins. State fields that exist in both sets of plugins
// are kept unchanged.
func (s *EditorState) Reconfigure(plugins []*Plugin) (*EditorState, error) {
	config := Config{Doc: s.Doc, Selection: s.Selection, StoredMarks: s.StoredMarks, Plugins: plugins}
	next := &EditorState{
		Doc:          s.Doc,
		Selection:    s.Selection,
		StoredMarks:  s.StoredMarks,
		Schema:       s.Schema,
		plugins:      plugins,
		pluginsByKey: map[string]*Plugin{},
		fields:       map[string]interface{}{},
	}
	for _, p := range plugins {
		if _, ok := next.pluginsByKey[p.key]; ok {
			return nil, fmt.Errorf("adding different instances of a keyed plugin (%s)", p.key)
		}
		next.pluginsByKey[p.key] = p
		if v, ok := s.fields[p.key]; ok {
			next.fields[p.key] = v
		} else if p.Spec.State != nil && p.Spec.State.Init != nil {
			next.fields[p.key] = p.Spec.State.Init(config, next)
		}
	}
	return next, nil
}

// ToJSON serializes the document and the selection of this state.
func (s *EditorState) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"doc":       s.Doc.ToJSON(),
		"selection": s.Selection.ToJSON(),
	}
}

// FromJSON deserializes a JSON representation of a state. config should
// have at least a Schema field, and should contain the plugins to use.
func FromJSON(config Config, obj map[string]interface{}) (*EditorState, error) {
	if config.Schema == nil {
		return nil, errors.New("state: required config field 'schema' missing")
	}
	rawDoc, ok := obj["doc"].(map[string]interface{})
	if !ok {
		return nil, errors.New("state: invalid input for FromJSON")
	}
	doc, err := model.NodeFromJSON(config.Schema, rawDoc)
	if err != nil {
		return nil, err
	}
	config.Doc = doc
	if rawSel, ok := obj["selection"].(map[string]interface{}); ok {
		if config.Selection, err = SelectionFromJSON(doc, rawSel); err != nil {
			return nil, err
		}
	}
	return Create(config)
}
