package editor

import (
	"errors"
	"strings"

	"github.com/shodgson/eddytor/state"
)

// ErrEmptyURL is returned when a link is submitted without URL.
var ErrEmptyURL = errors.New("link URL is empty")

// ErrDialogClosed is returned when a closed link dialog is submitted.
var ErrDialogClosed = errors.New("link dialog is closed")

// LinkOpener opens the link dialog, prefilled with the selected text and
// the link already present at the selection.
type LinkOpener interface {
	OpenLinkDialog(text, href string)
}

// editorTarget is where a dialog applies its changes: the state at submit
// time, and a dispatch function.
type editorTarget interface {
	State() *state.EditorState
	Dispatch(tr *state.Transaction)
}

// LinkDialog is an open link dialog. The document is changed only when it
// is submitted, against the state of the editor at that time.
type LinkDialog struct {
	// Initial values shown in the dialog.
	Text string
	URL  string

	target editorTarget
	closed bool
	// onClose is called once, when the dialog is submitted or cancelled.
	onClose func()
}

// Submit applies the link. With a selection, the selected text is linked;
// otherwise the text (or the URL when text is empty) is inserted at the
// cursor as a link.
func (d *LinkDialog) Submit(url, text string) error {
	if d.closed {
		return ErrDialogClosed
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrEmptyURL
	}
	s := d.target.State()
	if !SetLink(url, text)(s, d.target.Dispatch, nil) {
		return ErrPreconditionFailed
	}
	d.close()
	return nil
}

// Cancel closes the dialog without changing the document.
func (d *LinkDialog) Cancel() {
	d.close()
}

// Closed reports whether the dialog was submitted or cancelled.
func (d *LinkDialog) Closed() bool {
	return d.closed
}

func (d *LinkDialog) close() {
	if d.closed {
		return
	}
	d.closed = true
	if d.onClose != nil {
		d.onClose()
	}
}

// SetLink links the selected text to url, replacing any previous link. When
// the selection is empty, it inserts text, or url if text is empty, with
// the link.
func SetLink(url, text string) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		typ := s.Schema.Marks["link"]
		if typ == nil || url == "" {
			return false
		}
		if dispatch == nil {
			return true
		}
		mark := typ.Create(map[string]interface{}{"href": url})
		sel := s.Selection
		tr := s.Tr()
		if !sel.Empty() {
			if err := tr.RemoveMark(sel.From(), sel.To(), typ); err != nil {
				return false
			}
			if err := tr.AddMark(sel.From(), sel.To(), mark); err != nil {
				return false
			}
		} else {
			display := text
			if display == "" {
				display = url
			}
			marks := mark.AddToSet(typ.RemoveFromSet(sel.RFrom().Marks()))
			if err := tr.ReplaceSelectionWith(s.Schema.Text(display, marks...), false); err != nil {
				return false
			}
			tr.RemoveStoredMark(typ)
		}
		dispatch(tr.ScrollIntoView())
		return true
	}
}
