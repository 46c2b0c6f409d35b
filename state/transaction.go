package state

import (
	"time"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/transform"
)

const (
	updatedSel   = 1
	updatedMarks = 2
	updatedTime  = 4
)

// Transaction is an editor state transaction, which can be applied to a
// state to create an updated state. Use EditorState.Tr to create an
// instance.
//
// Transactions track changes to the document (they are a subclass of
// Transform), but also other state changes, like selection updates and
// adjustments of the set of stored marks. In addition, you can store
// metadata properties in a transaction, which are extra pieces of
// information that client code or plugins can use to describe what a
// transaction represents.
type Transaction struct {
	*transform.Transform

	// The timestamp associated with this transaction.
	Time time.Time

	storedMarks     []*model.Mark
	marksFor        int
	curSelection    Selection
	curSelectionFor int
	updated         int
	meta            map[string]interface{}
}

func newTransaction(s *EditorState) *Transaction {
	return &Transaction{
		Transform:    transform.NewTransform(s.Doc),
		Time:         time.Now(),
		storedMarks:  s.StoredMarks,
		curSelection: s.Selection,
		meta:         map[string]interface{}{},
	}
}

// Selection is the transaction's current selection. This defaults to the
// editor selection mapped through the steps in the transaction, but can be
// overwritten with SetSelection.
func (tr *Transaction) Selection() Selection {
	if tr.curSelectionFor < len(tr.Steps) {
		tr.curSelection = tr.curSelection.Map(tr.Doc, tr.Mapping.Slice(tr.curSelectionFor, len(tr.Mapping.Maps)))
		tr.curSelectionFor = len(tr.Steps)
	}
	return tr.curSelection
}

// SetSelection updates the transaction's current selection. Will determine
// the selection that the editor gets when the transaction is applied.
func (tr *Transaction) SetSelection(selection Selection) *Transaction {
	tr.curSelection = selection
	tr.curSelectionFor = len(tr.Steps)
	tr.updated = (tr.updated | updatedSel) &^ updatedMarks
	tr.storedMarks = nil
	return tr
}

// SelectionSet tells whether the selection was explicitly updated by this
// transaction.
func (tr *Transaction) SelectionSet() bool {
	return tr.updated&updatedSel > 0
}

// StoredMarks returns the stored marks of this transaction. Any step added
// after the marks were set drops them.
func (tr *Transaction) StoredMarks() []*model.Mark {
	if tr.marksFor < len(tr.Steps) {
		tr.storedMarks = nil
		tr.updated &^= updatedMarks
		tr.marksFor = len(tr.Steps)
	}
	return tr.storedMarks
}

// SetStoredMarks sets the current stored marks.
func (tr *Transaction) SetStoredMarks(marks []*model.Mark) *Transaction {
	tr.storedMarks = marks
	tr.marksFor = len(tr.Steps)
	tr.updated |= updatedMarks
	return tr
}

// EnsureMarks makes sure the current stored marks or, if that is nil, the
// marks at the selection, match the given set of marks. Does nothing if
// this is already the case.
func (tr *Transaction) EnsureMarks(marks []*model.Mark) *Transaction {
	current := tr.StoredMarks()
	if current == nil {
		current = tr.Selection().ResolvedHead().Marks()
	}
	if !model.SameMarkSet(current, marks) {
		tr.SetStoredMarks(marks)
	}
	return tr
}

// AddStoredMark adds a mark to the set of stored marks.
func (tr *Transaction) AddStoredMark(mark *model.Mark) *Transaction {
	return tr.EnsureMarks(mark.AddToSet(tr.currentMarks()))
}

// RemoveStoredMark removes a mark or mark type from the set of stored
// marks.
func (tr *Transaction) RemoveStoredMark(mark interface{}) *Transaction {
	switch m := mark.(type) {
	case *model.Mark:
		return tr.EnsureMarks(m.RemoveFromSet(tr.currentMarks()))
	case *model.MarkType:
		return tr.EnsureMarks(m.RemoveFromSet(tr.currentMarks()))
	}
	return tr
}

func (tr *Transaction) currentMarks() []*model.Mark {
	if marks := tr.StoredMarks(); marks != nil {
		return marks
	}
	return tr.Selection().ResolvedHead().Marks()
}

// StoredMarksSet tells whether the stored marks were explicitly set for
// this transaction.
func (tr *Transaction) StoredMarksSet() bool {
	tr.StoredMarks()
	return tr.updated&updatedMarks > 0
}

// SetTime updates the timestamp for the transaction.
func (tr *Transaction) SetTime(t time.Time) *Transaction {
	tr.Time = t
	tr.updated |= updatedTime
	return tr
}

// ReplaceSelection replaces the current selection with the given slice.
func (tr *Transaction) ReplaceSelection(slice *model.Slice) error {
	return tr.Selection().Replace(tr, slice)
}

// ReplaceSelectionWith replaces the selection with the given node. When
// inheritMarks is true and the content is inline, it inherits the marks
// from the place where it is inserted.
func (tr *Transaction) ReplaceSelectionWith(node *model.Node, inheritMarks bool) error {
	selection := tr.Selection()
	if inheritMarks {
		marks := tr.StoredMarks()
		if marks == nil {
			if selection.Empty() {
				marks = selection.RFrom().Marks()
			} else {
				marks = selection.RFrom().MarksAcross(selection.RTo())
			}
			if marks == nil {
				marks = model.NoMarks
			}
		}
		node = node.Mark(marks)
	}
	return selection.ReplaceWith(tr, node)
}

// DeleteSelection deletes the selection.
func (tr *Transaction) DeleteSelection() error {
	return tr.Selection().Replace(tr, nil)
}

// InsertText replaces the given range, or the selection if no range is
// given, with a text node containing the given string.
func (tr *Transaction) InsertText(text string, rng ...int) error {
	schema := tr.Doc.Type.Schema
	if len(rng) == 0 {
		if text == "" {
			return tr.DeleteSelection()
		}
		return tr.ReplaceSelectionWith(schema.Text(text), true)
	}
	from := rng[0]
	to := from
	if len(rng) > 1 {
		to = rng[1]
	}
	if text == "" {
		return tr.DeleteRange(from, to)
	}
	marks := tr.StoredMarks()
	if marks == nil {
		rfrom, err := tr.Doc.Resolve(from)
		if err != nil {
			return err
		}
		if to == from {
			marks = rfrom.Marks()
		} else {
			rto, err := tr.Doc.Resolve(to)
			if err != nil {
				return err
			}
			marks = rfrom.MarksAcross(rto)
		}
	}
	if err := tr.ReplaceRangeWith(from, to, schema.Text(text, marks...)); err != nil {
		return err
	}
	if !tr.Selection().Empty() {
		if rpos, err := tr.Doc.Resolve(tr.Mapping.Map(to)); err == nil {
			tr.SetSelection(Near(rpos))
		}
	}
	return nil
}

// SetMeta stores a metadata property in this transaction, keyed either by
// name or by plugin (or plugin key).
func (tr *Transaction) SetMeta(key interface{}, value interface{}) *Transaction {
	tr.meta[metaKey(key)] = value
	return tr
}

// GetMeta retrieves a metadata property for a given name or plugin.
func (tr *Transaction) GetMeta(key interface{}) interface{} {
	return tr.meta[metaKey(key)]
}

// IsGeneric returns true if this transaction doesn't contain any metadata,
// and can thus safely be extended.
func (tr *Transaction) IsGeneric() bool {
	return len(tr.meta) == 0
}

// ScrollIntoView marks the transaction as one that should scroll the
// selection into view when applied.
func (tr *Transaction) ScrollIntoView() *Transaction {
	return tr.SetMeta("scrollIntoView", true)
}

func metaKey(key interface{}) string {
	switch k := key.(type) {
	case string:
		return k
	case *PluginKey:
		return k.key
	case *Plugin:
		return k.key
	}
	panic("invalid transaction meta key")
}
