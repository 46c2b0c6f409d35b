package editor

import (
	"strings"

	"github.com/shodgson/eddytor/commands"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/state"
)

// cursorInCode returns the cursor when the selection is empty and inside a
// code block.
func cursorInCode(s *state.EditorState) *model.ResolvedPos {
	if !s.Selection.Empty() {
		return nil
	}
	rpos := s.Selection.RFrom()
	if eddytor.KindOf(rpos.Parent()) != eddytor.KindCodeBlock {
		return nil
	}
	return rpos
}

// blankCode reports whether the text of a code block is empty once
// whitespace and zero-width spaces are removed.
func blankCode(node *model.Node) bool {
	text := strings.ReplaceAll(node.TextBetween(0, node.Content.Size, "\n"), "\u200b", "")
	return strings.TrimSpace(text) == ""
}

// CodeBackspace handles Backspace at the start of a code block. A code
// block with text is never merged into the block before it: the key is
// consumed without any change. A blank code block is deleted.
func CodeBackspace(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	rpos := cursorInCode(s)
	if rpos == nil || rpos.ParentOffset != 0 {
		return false
	}
	block := rpos.Parent()
	if !blankCode(block) {
		return true
	}
	if dispatch == nil {
		return true
	}
	pos, err := rpos.Before()
	if err != nil {
		return false
	}
	end := pos + block.NodeSize()
	tr := s.Tr()
	if rpos.Node(-1).ChildCount() == 1 {
		// The block can't be removed from its parent, replace it with an
		// empty paragraph.
		paragraph, err := eddytor.KindParagraph.NodeType(s.Schema).CreateAndFill(nil, nil, nil)
		if err != nil || paragraph == nil {
			return false
		}
		if err := tr.ReplaceWith(pos, end, paragraph); err != nil {
			return false
		}
		if inside, err := tr.Doc.Resolve(pos + 1); err == nil {
			tr.SetSelection(state.NewTextSelection(inside, inside))
		}
	} else {
		if err := tr.Delete(pos, end); err != nil {
			return false
		}
		if near, err := tr.Doc.Resolve(min(pos, tr.Doc.Content.Size)); err == nil {
			tr.SetSelection(state.Near(near, -1))
		}
	}
	dispatch(tr.ScrollIntoView())
	return true
}

// CodeEnter leaves a code block when Enter is pressed after two blank
// lines: the two trailing newlines are removed and the cursor moves into a
// new paragraph after the block. Otherwise it lets Enter insert a newline.
func CodeEnter(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	rpos := cursorInCode(s)
	if rpos == nil {
		return false
	}
	block := rpos.Parent()
	before := block.TextBetween(0, rpos.ParentOffset, "\n")
	if !strings.HasSuffix(before, "\n\n") {
		return false
	}
	if dispatch == nil {
		return true
	}
	after, err := rpos.After()
	if err != nil {
		return false
	}
	paragraph, err := eddytor.KindParagraph.NodeType(s.Schema).CreateAndFill(nil, nil, nil)
	if err != nil || paragraph == nil {
		return false
	}
	tr := s.Tr()
	if err := tr.Delete(rpos.Pos-2, rpos.Pos); err != nil {
		return false
	}
	after = tr.Mapping.Map(after)
	if err := tr.Insert(after, paragraph); err != nil {
		return false
	}
	if inside, err := tr.Doc.Resolve(after + 1); err == nil {
		tr.SetSelection(state.NewTextSelection(inside, inside))
	}
	dispatch(tr.ScrollIntoView())
	return true
}

// SelectAllInCode selects the content of the code block around the
// selection, or the whole document outside of code blocks.
func SelectAllInCode(s *state.EditorState, dispatch func(*state.Transaction), view state.View) bool {
	rfrom, rto := s.Selection.RFrom(), s.Selection.RTo()
	if !rfrom.Parent().Type.Spec.Code || !rfrom.SameParent(rto) {
		return commands.SelectAll(s, dispatch, view)
	}
	if dispatch != nil {
		start, err := s.Doc.Resolve(rfrom.Start())
		if err != nil {
			return false
		}
		end, err := s.Doc.Resolve(rfrom.End())
		if err != nil {
			return false
		}
		dispatch(s.Tr().SetSelection(state.NewTextSelection(start, end)))
	}
	return true
}
