// Package markdown exports Eddytor documents as GitHub flavored Markdown:
// CommonMark blocks and marks, plus task lists for checklists, tables, and
// alert quotes for callouts.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shodgson/eddytor/model"
)

// NodeFunc serializes a node. parent and index locate the node in its
// parent.
type NodeFunc func(s *State, node, parent *model.Node, index int)

// MarkFunc returns the syntax that opens or closes a mark. parent and index
// locate the marked node.
type MarkFunc func(s *State, mark *model.Mark, parent *model.Node, index int) string

// Literal is a MarkFunc returning a fixed string.
func Literal(syntax string) MarkFunc {
	return func(*State, *model.Mark, *model.Node, int) string { return syntax }
}

// MarkSpec tells how a mark is written.
type MarkSpec struct {
	Open  MarkFunc
	Close MarkFunc
	// Mixable marks can be closed in another order than they were opened,
	// like emphasis and strong emphasis.
	Mixable bool
	// ExpelEnclosingWhitespace moves the whitespace at the edges of the
	// marked text out of the mark.
	ExpelEnclosingWhitespace bool
	// NoEscape marks have their content written as is. Such a mark must be
	// the innermost one.
	NoEscape bool
}

// Serializer writes documents as Markdown, with a function per node type
// and a syntax per mark type. Nodes and marks without entry are skipped,
// their content is kept for marks.
type Serializer struct {
	Nodes map[string]NodeFunc
	Marks map[string]MarkSpec
}

// NewSerializer creates a serializer.
func NewSerializer(nodes map[string]NodeFunc, marks map[string]MarkSpec) *Serializer {
	return &Serializer{Nodes: nodes, Marks: marks}
}

type options struct {
	tightLists bool
}

// Option configures a serialization.
type Option func(*options)

// WithTightLists renders lists without blank lines between their items,
// unless a list has a "tight" attribute saying otherwise.
func WithTightLists(tight bool) Option {
	return func(o *options) { o.tightLists = tight }
}

// Serialize writes the content of doc as Markdown.
func (sz *Serializer) Serialize(doc *model.Node, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	s := newState(sz.Nodes, sz.Marks, o.tightLists)
	s.RenderContent(doc)
	return s.String()
}

var fenceRun = regexp.MustCompile("`{3,}")

func renderCodeBlock(s *State, node, _ *model.Node, _ int) {
	content := node.TextContent()
	fence := "```"
	for _, run := range fenceRun.FindAllString(content, -1) {
		if len(run) >= len(fence) {
			fence = run + "`"
		}
	}
	language, _ := node.Attrs["language"].(string)
	s.Write(fence + language + "\n")
	s.Text(content, false)
	s.EnsureNewLine()
	s.Write(fence)
	s.CloseBlock(node)
}

func renderHeading(s *State, node, _ *model.Node, _ int) {
	level, ok := model.AttrInt(node.Attrs["level"])
	if !ok {
		level = 1
	}
	s.Write(strings.Repeat("#", level) + " ")
	s.RenderInline(node)
	s.CloseBlock(node)
}

func renderOrderedList(s *State, node, _ *model.Node, _ int) {
	start, ok := model.AttrInt(node.Attrs["order"])
	if !ok {
		start = 1
	}
	width := len(strconv.Itoa(start + node.ChildCount() - 1))
	s.RenderList(node, strings.Repeat(" ", width+2), func(i int) string {
		n := strconv.Itoa(start + i)
		return strings.Repeat(" ", width-len(n)) + n + ". "
	})
}

func renderChecklist(s *State, node, _ *model.Node, _ int) {
	s.RenderList(node, "  ", func(i int) string {
		if checked, _ := node.MaybeChild(i).Attrs["checked"].(bool); checked {
			return "- [x] "
		}
		return "- [ ] "
	})
}

// renderCallout writes a callout as an alert quote: "> [!WARNING]".
func renderCallout(s *State, node, _ *model.Node, _ int) {
	variant, _ := node.Attrs["variant"].(string)
	if variant == "" {
		variant = "info"
	}
	s.WrapBlock("> ", "", node, func() {
		s.Write("[!" + strings.ToUpper(variant) + "]")
		s.EnsureNewLine()
		s.RenderContent(node)
	})
}

// renderTable writes a GFM table. The first row is the header row, as GFM
// tables always have one. Cells spanning several columns are followed by
// empty cells.
func renderTable(s *State, node, _ *model.Node, _ int) {
	var rows [][]string
	cols := 0
	node.ForEach(func(row *model.Node, _, _ int) {
		var cells []string
		row.ForEach(func(cell *model.Node, _, _ int) {
			cells = append(cells, cellText(s, cell))
			colspan, ok := model.AttrInt(cell.Attrs["colspan"])
			for i := 1; ok && i < colspan; i++ {
				cells = append(cells, "")
			}
		})
		cols = max(cols, len(cells))
		rows = append(rows, cells)
	})
	if cols == 0 {
		return
	}
	line := func(cells []string) string {
		for len(cells) < cols {
			cells = append(cells, "")
		}
		return "| " + strings.Join(cells, " | ") + " |"
	}
	for i, cells := range rows {
		if i > 0 {
			s.EnsureNewLine()
		}
		s.Write(line(cells))
		if i == 0 {
			sep := make([]string, cols)
			for j := range sep {
				sep[j] = "---"
			}
			s.EnsureNewLine()
			s.Write(line(sep))
		}
	}
	s.CloseBlock(node)
}

// cellText renders the blocks of a cell on a single line, separated by
// <br>.
func cellText(s *State, cell *model.Node) string {
	sub := newState(s.nodes, s.marks, true)
	sub.RenderContent(cell)
	var lines []string
	for _, line := range strings.Split(sub.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.ReplaceAll(strings.Join(lines, "<br>"), "|", `\|`)
}

func renderImage(s *State, node, _ *model.Node, _ int) {
	alt, _ := node.Attrs["alt"].(string)
	src, _ := node.Attrs["src"].(string)
	title := ""
	if t, ok := node.Attrs["title"].(string); ok && t != "" {
		title = " " + quoteTitle(t)
	}
	s.Write(fmt.Sprintf("![%s](%s%s)", s.Esc(alt, false), escapeParens(src), title))
}

// renderHardBreak writes a backslash line break, unless only breaks
// follow in the block.
func renderHardBreak(s *State, node, parent *model.Node, index int) {
	for i := index + 1; i < parent.ChildCount(); i++ {
		if parent.MaybeChild(i).Type != node.Type {
			s.Write("\\\n")
			return
		}
	}
}

func escapeParens(url string) string {
	return strings.NewReplacer("(", `\(`, ")", `\)`).Replace(url)
}

func quoteTitle(title string) string {
	return `"` + strings.ReplaceAll(title, `"`, `\"`) + `"`
}

var urlScheme = regexp.MustCompile(`^\w+:`)

// isPlainURL tells whether a link can be written as an autolink: its text
// is its URL.
func isPlainURL(link *model.Mark, parent *model.Node, index int) bool {
	if title, _ := link.Attrs["title"].(string); title != "" {
		return false
	}
	href, _ := link.Attrs["href"].(string)
	if !urlScheme.MatchString(href) {
		return false
	}
	content := parent.MaybeChild(index)
	if content == nil || !content.IsText() || *content.Text != href {
		return false
	}
	if len(content.Marks) == 0 || !content.Marks[len(content.Marks)-1].Eq(link) {
		return false
	}
	next := parent.MaybeChild(index + 1)
	return next == nil || !link.IsInSet(next.Marks)
}

func openLink(s *State, mark *model.Mark, parent *model.Node, index int) string {
	s.inAutoLink = isPlainURL(mark, parent, index)
	if s.inAutoLink {
		return "<"
	}
	return "["
}

func closeLink(s *State, mark *model.Mark, _ *model.Node, _ int) string {
	if s.inAutoLink {
		s.inAutoLink = false
		return ">"
	}
	href, _ := mark.Attrs["href"].(string)
	href = strings.ReplaceAll(escapeParens(href), `"`, `\"`)
	title := ""
	if t, _ := mark.Attrs["title"].(string); t != "" {
		title = " " + quoteTitle(t)
	}
	return fmt.Sprintf("](%s%s)", href, title)
}

// backticks returns a code span delimiter longer than the runs of
// backticks in the node text. side is -1 for the opening one.
func backticks(node *model.Node, side int) string {
	longest := 0
	if node != nil && node.IsText() {
		for _, run := range strings.FieldsFunc(*node.Text, func(r rune) bool { return r != '`' }) {
			longest = max(longest, len(run))
		}
	}
	delim := strings.Repeat("`", longest+1)
	if longest == 0 {
		return delim
	}
	if side < 0 {
		return delim + " "
	}
	return " " + delim
}

// DefaultSerializer writes the nodes and marks of the Eddytor schema. The
// style marks, text color and font size, have no Markdown syntax and are
// dropped.
var DefaultSerializer = NewSerializer(map[string]NodeFunc{
	"paragraph": func(s *State, node, _ *model.Node, _ int) {
		s.RenderInline(node)
		s.CloseBlock(node)
	},
	"blockquote": func(s *State, node, _ *model.Node, _ int) {
		s.WrapBlock("> ", "", node, func() { s.RenderContent(node) })
	},
	"heading":         renderHeading,
	"code_block":      renderCodeBlock,
	"horizontal_rule": func(s *State, node, _ *model.Node, _ int) { s.Write("---"); s.CloseBlock(node) },
	"bullet_list": func(s *State, node, _ *model.Node, _ int) {
		s.RenderList(node, "  ", func(int) string { return "- " })
	},
	"ordered_list":   renderOrderedList,
	"list_item":      func(s *State, node, _ *model.Node, _ int) { s.RenderContent(node) },
	"checklist":      renderChecklist,
	"checklist_item": func(s *State, node, _ *model.Node, _ int) { s.RenderContent(node) },
	"callout":        renderCallout,
	"table":          renderTable,
	"image":          renderImage,
	"hard_break":     renderHardBreak,
	"text": func(s *State, node, _ *model.Node, _ int) {
		s.Text(*node.Text, !s.inAutoLink)
	},
}, map[string]MarkSpec{
	"em":     {Open: Literal("*"), Close: Literal("*"), Mixable: true, ExpelEnclosingWhitespace: true},
	"strong": {Open: Literal("**"), Close: Literal("**"), Mixable: true, ExpelEnclosingWhitespace: true},
	"link":   {Open: openLink, Close: closeLink, Mixable: true},
	"code": {
		Open: func(_ *State, _ *model.Mark, parent *model.Node, index int) string {
			return backticks(parent.MaybeChild(index), -1)
		},
		Close: func(_ *State, _ *model.Mark, parent *model.Node, index int) string {
			return backticks(parent.MaybeChild(index-1), 1)
		},
		NoEscape: true,
	},
})
