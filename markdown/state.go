package markdown

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shodgson/eddytor/model"
)

// State tracks the output of a serialization. It is handed to the node and
// mark serializers, which write through its methods.
type State struct {
	nodes map[string]NodeFunc
	marks map[string]MarkSpec
	out   strings.Builder
	// delim prefixes every new line, like "> " inside a quote.
	delim string
	// closed is the last block closed, whose separator is not written yet.
	closed       *model.Node
	inAutoLink   bool
	atBlockStart bool
	inTightList  bool
	tightLists   bool
}

func newState(nodes map[string]NodeFunc, marks map[string]MarkSpec, tightLists bool) *State {
	return &State{nodes: nodes, marks: marks, tightLists: tightLists}
}

// String returns the output so far.
func (s *State) String() string {
	return s.out.String()
}

func (s *State) atBlank() bool {
	out := s.out.String()
	return out == "" || out[len(out)-1] == '\n'
}

// flushClose writes the separator after the last closed block: size-1
// blank lines.
func (s *State) flushClose(size int) {
	if s.closed == nil {
		return
	}
	s.EnsureNewLine()
	prefix := strings.TrimRightFunc(s.delim, unicode.IsSpace)
	for i := 1; i < size; i++ {
		s.out.WriteString(prefix + "\n")
	}
	s.closed = nil
}

// EnsureNewLine ends the current line, if it is not empty.
func (s *State) EnsureNewLine() {
	if !s.atBlank() {
		s.out.WriteByte('\n')
	}
}

// Write flushes the closed block and the line prefix, then writes content
// as is.
func (s *State) Write(content string) {
	s.flushClose(2)
	if s.delim != "" && s.atBlank() {
		s.out.WriteString(s.delim)
	}
	s.out.WriteString(content)
}

// CloseBlock marks the node as closed: the blank line after it is written
// before the next output.
func (s *State) CloseBlock(node *model.Node) {
	s.closed = node
}

// WrapBlock renders a block with every line prefixed by delim, except the
// first one that gets firstDelim when it is not empty.
func (s *State) WrapBlock(delim, firstDelim string, node *model.Node, render func()) {
	old := s.delim
	if firstDelim == "" {
		firstDelim = delim
	}
	s.Write(firstDelim)
	s.delim += delim
	render()
	s.delim = old
	s.CloseBlock(node)
}

var bangBeforeLink = regexp.MustCompile(`(^|[^\\])!$`)

// Text writes text, line by line. With escape, the Markdown syntax
// characters are escaped.
func (s *State) Text(text string, escape bool) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		s.Write("")
		if !escape && strings.HasPrefix(line, "[") && bangBeforeLink.MatchString(s.out.String()) {
			// "![" would start an image.
			out := s.out.String()
			s.out.Reset()
			s.out.WriteString(out[:len(out)-1] + `\!`)
		}
		if escape {
			s.out.WriteString(s.Esc(line, s.atBlockStart))
		} else {
			s.out.WriteString(line)
		}
		if i != len(lines)-1 {
			s.out.WriteByte('\n')
		}
	}
}

// Render renders a block node. Nodes without serializer are skipped.
func (s *State) Render(node, parent *model.Node, index int) {
	if fn, ok := s.nodes[node.Type.Name]; ok {
		fn(s, node, parent, index)
	}
}

// RenderContent renders the children of parent as blocks.
func (s *State) RenderContent(parent *model.Node) {
	parent.ForEach(func(node *model.Node, _, index int) {
		s.Render(node, parent, index)
	})
}

// RenderInline renders the inline content of parent, opening and closing
// the marks around the text nodes.
func (s *State) RenderInline(parent *model.Node) {
	s.atBlockStart = true
	r := &inlineRenderer{s: s, parent: parent}
	parent.ForEach(func(node *model.Node, _, index int) {
		r.progress(node, index)
	})
	r.progress(nil, parent.ChildCount())
	s.atBlockStart = false
}

// RenderList renders the items of a list. delim is the indentation of the
// lines of an item but the first, and firstDelim gives the marker of each
// item.
func (s *State) RenderList(node *model.Node, delim string, firstDelim func(index int) string) {
	if s.closed != nil && s.closed.Type == node.Type {
		// Two lists of the same type need a separator.
		s.flushClose(3)
	} else if s.inTightList {
		s.flushClose(1)
	}
	tight := s.tightLists
	if t, ok := node.Attrs["tight"].(bool); ok {
		tight = t
	}
	prevTight := s.inTightList
	s.inTightList = tight
	node.ForEach(func(child *model.Node, _, index int) {
		if index > 0 && tight {
			s.flushClose(1)
		}
		s.WrapBlock(delim, firstDelim(index), node, func() {
			s.Render(child, node, index)
		})
	})
	s.inTightList = prevTight
}

var (
	escapeChars     = regexp.MustCompile("([`*\\\\~\\[\\]])")
	escapeUnderline = regexp.MustCompile(`(\b_)|(_\b)`)
	escapeLineStart = regexp.MustCompile(`^([#\-*+>])`)
	escapeOrdered   = regexp.MustCompile(`(\s*\d+)\.`)
)

// Esc escapes the Markdown syntax in str. With startOfLine, the characters
// that only matter at the start of a line are escaped too.
func (s *State) Esc(str string, startOfLine bool) string {
	str = escapeChars.ReplaceAllString(str, `\$1`)
	str = escapeUnderline.ReplaceAllString(str, `\_`)
	if startOfLine {
		str = escapeLineStart.ReplaceAllString(str, `\$1`)
		str = escapeOrdered.ReplaceAllString(str, `$1\.`)
	}
	return str
}

// markString returns the opening or closing syntax of a mark.
func (s *State) markString(mark *model.Mark, open bool, parent *model.Node, index int) string {
	spec := s.marks[mark.Type.Name]
	fn := spec.Close
	if open {
		fn = spec.Open
	}
	if fn == nil {
		return ""
	}
	return fn(s, mark, parent, index)
}

// knownMarks drops the marks that have no Markdown syntax, like the text
// color.
func (s *State) knownMarks(marks []*model.Mark) []*model.Mark {
	known := make([]*model.Mark, 0, len(marks))
	for _, m := range marks {
		if _, ok := s.marks[m.Type.Name]; ok {
			known = append(known, m)
		}
	}
	return known
}

// inlineRenderer walks the inline children of a node. It keeps the marks
// currently open, and the whitespace expelled out of the marks of the
// previous node.
type inlineRenderer struct {
	s        *State
	parent   *model.Node
	active   []*model.Mark
	trailing string
}

var enclosingSpace = regexp.MustCompile(`^(\s*)(.*?)(\s*)$`)

func (r *inlineRenderer) progress(node *model.Node, index int) {
	s := r.s
	var marks []*model.Mark
	if node != nil {
		marks = s.knownMarks(node.Marks)
		if node.Type.Name == "hard_break" {
			marks = r.breakMarks(marks, index)
		}
	}

	leading := r.trailing
	r.trailing = ""
	if node != nil && node.IsText() && r.expels(marks, index) {
		if parts := enclosingSpace.FindStringSubmatch(*node.Text); len(parts) == 4 {
			leading += parts[1]
			r.trailing = parts[3]
			if parts[1] != "" || parts[3] != "" {
				if parts[2] == "" {
					node = nil
					marks = r.active
				} else {
					node = node.WithText(parts[2])
				}
			}
		}
	}

	var inner *model.Mark
	if len(marks) > 0 {
		inner = marks[len(marks)-1]
	}
	noEscape := inner != nil && s.marks[inner.Type.Name].NoEscape
	length := len(marks)
	if noEscape {
		length--
	}
	marks = r.reorder(marks, length)

	keep := 0
	for keep < min(len(marks), len(r.active)) && marks[keep].Eq(r.active[keep]) {
		keep++
	}
	for keep < len(r.active) {
		last := r.active[len(r.active)-1]
		s.Text(s.markString(last, false, r.parent, index), false)
		r.active = r.active[:len(r.active)-1]
	}
	if leading != "" {
		s.Text(leading, true)
	}
	if node == nil {
		return
	}
	for len(r.active) < length {
		add := marks[len(r.active)]
		r.active = append(r.active, add)
		s.Text(s.markString(add, true, r.parent, index), false)
	}
	if noEscape && node.IsText() {
		s.Text(s.markString(inner, true, r.parent, index)+*node.Text+
			s.markString(inner, false, r.parent, index+1), false)
	} else {
		s.Render(node, r.parent, index)
	}
}

// breakMarks keeps the marks of a hard break only when the text after it
// has them too, so that no mark closes right after a line break.
func (r *inlineRenderer) breakMarks(marks []*model.Mark, index int) []*model.Mark {
	next := r.parent.MaybeChild(index + 1)
	if next == nil {
		return nil
	}
	var kept []*model.Mark
	for _, m := range marks {
		if m.IsInSet(next.Marks) && (!next.IsText() || strings.TrimSpace(*next.Text) != "") {
			kept = append(kept, m)
		}
	}
	return kept
}

// expels reports whether the whitespace around a text node must be moved
// out of its marks. CommonMark doesn't allow emphasis to start or end with
// whitespace.
func (r *inlineRenderer) expels(marks []*model.Mark, index int) bool {
	for _, mark := range marks {
		if !r.s.marks[mark.Type.Name].ExpelEnclosingWhitespace || mark.IsInSet(r.active) {
			continue
		}
		next := r.parent.MaybeChild(index + 1)
		if next == nil || !mark.IsInSet(next.Marks) {
			return true
		}
	}
	return false
}

// reorder moves the mixable marks that are already open to the position
// they have in the open marks, so that they don't need to be closed and
// opened again.
func (r *inlineRenderer) reorder(marks []*model.Mark, length int) []*model.Mark {
	for i := 0; i < length; i++ {
		mark := marks[i]
		if !r.s.marks[mark.Type.Name].Mixable {
			break
		}
		for j, other := range r.active {
			if !r.s.marks[other.Type.Name].Mixable {
				break
			}
			if mark.Eq(other) {
				if i != j {
					marks = moveMark(marks, i, j)
				}
				break
			}
		}
	}
	return marks
}

// moveMark returns marks with the mark at index from moved to index to.
func moveMark(marks []*model.Mark, from, to int) []*model.Mark {
	mark := marks[from]
	result := make([]*model.Mark, 0, len(marks))
	result = append(result, marks[:from]...)
	result = append(result, marks[from+1:]...)
	if to > from {
		to--
	}
	to = min(to, len(result))
	result = append(result[:to], append([]*model.Mark{mark}, result[to:]...)...)
	return result
}
