package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shodgson/eddytor/commands"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/schema/list"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/tables"
	"go.uber.org/zap"
)

// Default values of the style commands.
const (
	DefaultTextColor = "#000000"
	DefaultFontSize  = "16px"
)

var calloutInfo = map[string]struct {
	name, icon string
	keywords   []string
}{
	eddytor.VariantInfo:     {"Info Callout", "info", []string{"information", "blue", "note"}},
	eddytor.VariantTip:      {"Tip Callout", "check-circle", []string{"success", "green", "hint", "help"}},
	eddytor.VariantWarning:  {"Warning Callout", "alert-triangle", []string{"caution", "yellow", "attention"}},
	eddytor.VariantCritical: {"Critical Callout", "alert-circle", []string{"error", "danger", "red", "important"}},
}

type builtinOptions struct {
	codeLanguage string
}

// BuiltinOption configures the built-in commands.
type BuiltinOption func(*builtinOptions)

// WithCodeLanguage sets the language of the code blocks inserted by the
// code-block command. By default they have none and their language is
// detected.
func WithCodeLanguage(language string) BuiltinOption {
	return func(o *builtinOptions) { o.codeLanguage = language }
}

// Builtins returns the built-in commands of the editor for the schema, in
// menu order.
func Builtins(schema *model.Schema, opts ...BuiltinOption) []Command {
	var o builtinOptions
	for _, opt := range opts {
		opt(&o)
	}
	var cmds []Command
	heading := eddytor.KindHeading.NodeType(schema)
	for level := 1; level <= 3; level++ {
		cmds = append(cmds, NewStateCommand(
			NewInfo(fmt.Sprintf("heading%d", level), fmt.Sprintf("Heading %d", level),
				fmt.Sprintf("Apply heading level %d", level), fmt.Sprintf("heading-%d", level),
				fmt.Sprintf("h%d", level), fmt.Sprintf("heading-%d", level), fmt.Sprintf("heading %d", level)),
			commands.SetBlockType(heading, map[string]interface{}{"level": level}),
			"Cannot turn this block into a heading",
		))
	}
	cmds = append(cmds,
		NewStateCommand(
			NewInfo("bulletList", "Bullet List", "Create a bullet list", "list", "ul", "bullet", "list"),
			list.WrapInList(eddytor.KindBulletList.NodeType(schema), nil),
			"Cannot create a bullet list here",
		),
		NewStateCommand(
			NewInfo("orderedList", "Numbered List", "Create a numbered list", "list-ordered", "ol", "number", "ordered"),
			list.WrapInList(eddytor.KindOrderedList.NodeType(schema), nil),
			"Cannot create a numbered list here",
		),
		NewStateCommand(
			NewInfo("checklist", "Checklist", "Create a list of tasks", "check-square", "todo", "task", "checkbox", "checklist"),
			list.WrapInList(eddytor.KindChecklist.NodeType(schema), nil),
			"Cannot create a checklist here",
		),
		NewStateCommand(
			NewInfo("quote", "Quote", "Create a block quote", "quote", "quote", "blockquote", "citation"),
			commands.WrapIn(eddytor.KindBlockquote.NodeType(schema), nil),
			"Cannot create a quote here",
		),
		NewStateCommand(
			NewInfo("code-block", "Code Block", "Insert a code block", "code", "code", "snippet", "programming", "block"),
			InsertCodeBlockIn(o.codeLanguage),
			"Cannot insert a code block here",
		),
		NewStateCommand(
			NewInfo("line-separator", "Horizontal Rule", "Insert a horizontal line", "minus",
				"divider", "line", "separator", "horizontal", "rule", "hr"),
			InsertHorizontalRule,
			"Cannot insert a horizontal rule here",
		),
		&hyperlinkCommand{NewInfo("hyperlink", "Hyperlink", "Insert or edit a link", "link",
			"link", "url", "hyperlink", "external", "anchor")},
		NewStateCommand(
			NewInfo("clear-formatting", "Clear Formatting", "Remove the text formatting", "eraser",
				"clear", "remove", "formatting", "plain", "text", "reset"),
			ClearFormatting,
			"Nothing to clear",
		),
		NewStateCommand(
			NewInfo("bold", "Bold", "Toggle bold text", "bold", "bold", "strong"),
			commands.ToggleMark(schema.Marks["strong"], nil),
			"Cannot make this text bold",
		),
		NewStateCommand(
			NewInfo("italic", "Italic", "Toggle italic text", "italic", "italic", "em"),
			commands.ToggleMark(schema.Marks["em"], nil),
			"Cannot make this text italic",
		),
		NewStateCommand(
			NewInfo("code", "Code", "Toggle inline code", "code", "code", "monospace"),
			commands.ToggleMark(schema.Marks["code"], nil),
			"Cannot make this text code",
		),
		&styleCommand{
			Info: NewInfo("textColor", "Text Color", "Change the color of the text", "palette", "color"),
			mark: "text_color", attr: "color", arg: "color", def: DefaultTextColor,
		},
		&styleCommand{
			Info: NewInfo("fontSize", "Font Size", "Change the size of the text", "text-height", "size"),
			mark: "font_size", attr: "size", arg: "size", def: DefaultFontSize, normalize: normalizeSize,
		},
	)
	for _, variant := range eddytor.Variants {
		info := calloutInfo[variant]
		keywords := append([]string{"callout", "box", "notification", variant}, info.keywords...)
		cmds = append(cmds, NewStateCommand(
			NewInfo(variant+"-callout", info.name, fmt.Sprintf("Insert a %s callout", variant), info.icon, keywords...),
			InsertCallout(variant),
			"Cannot insert a callout here",
		))
	}
	for _, size := range []int{2, 3, 5} {
		cmds = append(cmds, NewStateCommand(
			NewInfo(fmt.Sprintf("table-%dx%d", size, size), fmt.Sprintf("Table %dx%d with header", size, size),
				fmt.Sprintf("Insert a %dx%d table with header row", size, size), "table",
				"table", "grid", "cells", "rows", "columns"),
			InsertTable(size, size),
			"Cannot insert a table here",
		))
	}
	for _, item := range tables.MenuItems {
		cmds = append(cmds, NewStateCommand(
			NewInfo(item.ID, item.Label, item.Label, item.Icon, "table"),
			item.Command,
			item.Label+" is not possible here",
		))
	}
	return cmds
}

// NewRegistryWithBuiltins creates a registry holding the built-in commands.
func NewRegistryWithBuiltins(schema *model.Schema, logger *zap.Logger, opts ...BuiltinOption) *Registry {
	r := NewRegistry(logger)
	r.RegisterAll(Builtins(schema, opts...)...)
	return r
}

// insertBlock replaces the selection with a block node and returns the
// position where the node ends up.
func insertBlock(tr *state.Transaction, node *model.Node) (int, error) {
	steps := len(tr.Steps)
	if err := tr.ReplaceSelectionWith(node, false); err != nil {
		return 0, err
	}
	if len(tr.Steps) == steps {
		return 0, fmt.Errorf("cannot insert %s", node.Type.Name)
	}
	start, end := -1, 0
	for _, sm := range tr.Mapping.Maps[steps:] {
		sm.ForEach(func(_, _, newStart, newEnd int) {
			if start < 0 || newStart < start {
				start = newStart
			}
			end = max(end, newEnd)
		})
	}
	found := -1
	tr.Doc.NodesBetween(max(start, 0), end, func(n *model.Node, pos int, _ *model.Node, _ int) bool {
		if found >= 0 {
			return false
		}
		if n.Type == node.Type && pos >= start {
			found = pos
			return false
		}
		return true
	})
	if found < 0 {
		return 0, fmt.Errorf("inserted %s not found", node.Type.Name)
	}
	return found, nil
}

// cursorInto puts the cursor at the first text position inside the node at
// pos.
func cursorInto(tr *state.Transaction, pos int) {
	if rpos, err := tr.Doc.Resolve(pos + 1); err == nil {
		tr.SetSelection(state.Near(rpos, 1))
	}
}

func insertable(s *state.EditorState, typ *model.NodeType) bool {
	rfrom := s.Selection.RFrom()
	for d := rfrom.Depth; d >= 0; d-- {
		node := rfrom.Node(d)
		if node.Type.Spec.Code {
			return false
		}
		index := rfrom.Index(d)
		if node.CanReplaceWith(index, index, typ) {
			return true
		}
	}
	return false
}

// InsertCodeBlock replaces the selection with a code block holding the
// selected text.
func InsertCodeBlock(s *state.EditorState, dispatch func(*state.Transaction), view state.View) bool {
	return InsertCodeBlockIn("")(s, dispatch, view)
}

// InsertCodeBlockIn is InsertCodeBlock for a code block in the given
// language. An empty language leaves the attribute unset.
func InsertCodeBlockIn(language string) state.Command {
	var attr interface{}
	if language != "" {
		attr = language
	}
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		typ := eddytor.KindCodeBlock.NodeType(s.Schema)
		if !insertable(s, typ) {
			return false
		}
		if dispatch != nil {
			var content []*model.Node
			if text := s.Doc.TextBetween(s.Selection.From(), s.Selection.To(), "\n"); text != "" {
				content = append(content, s.Schema.Text(text))
			}
			node, err := typ.Create(map[string]interface{}{"language": attr}, content, nil)
			if err != nil {
				return false
			}
			tr := s.Tr()
			pos, err := insertBlock(tr, node)
			if err != nil {
				return false
			}
			if rpos, err := tr.Doc.Resolve(pos + 1 + node.Content.Size); err == nil {
				tr.SetSelection(state.NewTextSelection(rpos, rpos))
			}
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// InsertHorizontalRule replaces the selection with a horizontal rule.
func InsertHorizontalRule(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	typ := eddytor.KindHorizontalRule.NodeType(s.Schema)
	if !insertable(s, typ) {
		return false
	}
	if dispatch != nil {
		node, err := typ.Create(nil, nil, nil)
		if err != nil {
			return false
		}
		tr := s.Tr()
		pos, err := insertBlock(tr, node)
		if err != nil {
			return false
		}
		if rpos, err := tr.Doc.Resolve(pos + node.NodeSize()); err == nil {
			tr.SetSelection(state.Near(rpos))
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// InsertCallout inserts a callout of the given variant, holding an empty
// paragraph, and puts the cursor inside.
func InsertCallout(variant string) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		typ := eddytor.KindCallout.NodeType(s.Schema)
		if !insertable(s, typ) {
			return false
		}
		if dispatch != nil {
			node, err := typ.CreateAndFill(map[string]interface{}{"variant": variant}, nil, nil)
			if err != nil || node == nil {
				return false
			}
			tr := s.Tr()
			pos, err := insertBlock(tr, node)
			if err != nil {
				return false
			}
			cursorInto(tr, pos)
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// InsertTable inserts a table with a header row and puts the cursor in its
// first cell.
func InsertTable(rows, cols int) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		if !insertable(s, eddytor.KindTable.NodeType(s.Schema)) {
			return false
		}
		if dispatch != nil {
			table, err := eddytor.CreateTable(s.Schema, rows, cols, true)
			if err != nil {
				return false
			}
			tr := s.Tr()
			pos, err := insertBlock(tr, table)
			if err != nil {
				return false
			}
			cursorInto(tr, pos)
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// ClearFormatting removes every mark from the selection. With an empty
// selection, it clears the stored marks, and fails when there are none.
func ClearFormatting(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	sel := s.Selection
	if sel.Empty() {
		if len(s.StoredMarks) == 0 {
			return false
		}
		if dispatch != nil {
			dispatch(s.Tr().SetStoredMarks(nil))
		}
		return true
	}
	if dispatch != nil {
		tr := s.Tr()
		for _, r := range sel.Ranges() {
			if err := tr.RemoveMark(r.From.Pos, r.To.Pos, nil); err != nil {
				return false
			}
		}
		dispatch(tr.ScrollIntoView())
	}
	return true
}

// styleCommand applies a mark with a single style attribute, like the text
// color. Applying the value already present removes the mark.
type styleCommand struct {
	Info
	mark, attr, arg, def string
	normalize            func(string) string
}

func (c *styleCommand) CanExecute(ctx *Context) bool {
	return !ctx.State.Selection.Empty() && ctx.State.Schema.Marks[c.mark] != nil
}

func (c *styleCommand) Execute(ctx *Context) Result {
	value := ctx.Arg(c.arg, c.def)
	if c.normalize != nil {
		value = c.normalize(value)
	}
	if !ctx.run(ApplyStyle(c.mark, c.attr, value)) {
		return Fail("Cannot apply the style to the selection")
	}
	return Ok()
}

// ApplyStyle sets a style mark on the selection. When some of the selected
// text already has the mark with the same value, the mark is removed
// instead.
func ApplyStyle(markName, attr, value string) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		typ := s.Schema.Marks[markName]
		sel := s.Selection
		if typ == nil || sel.Empty() {
			return false
		}
		if dispatch != nil {
			from, to := sel.From(), sel.To()
			same := false
			s.Doc.NodesBetween(from, to, func(node *model.Node, _ int, _ *model.Node, _ int) bool {
				if m := typ.IsInSet(node.Marks); m != nil && m.Attrs[attr] == value {
					same = true
				}
				return !same
			})
			tr := s.Tr()
			if err := tr.RemoveMark(from, to, typ); err != nil {
				return false
			}
			if !same {
				if err := tr.AddMark(from, to, typ.Create(map[string]interface{}{attr: value})); err != nil {
					return false
				}
			}
			dispatch(tr.ScrollIntoView())
		}
		return true
	}
}

// normalizeSize adds the px unit to bare numbers.
func normalizeSize(size string) string {
	size = strings.TrimSpace(size)
	if _, err := strconv.ParseFloat(size, 64); err == nil {
		return size + "px"
	}
	return size
}

// hyperlinkCommand opens the link dialog with the selected text and the
// link already present there.
type hyperlinkCommand struct {
	Info
}

func (c *hyperlinkCommand) CanExecute(ctx *Context) bool {
	return ctx.Links != nil && ctx.State.Schema.Marks["link"] != nil
}

func (c *hyperlinkCommand) Execute(ctx *Context) Result {
	s := ctx.State
	text := s.Doc.TextBetween(s.Selection.From(), s.Selection.To(), " ")
	ctx.Links.OpenLinkDialog(text, currentHref(s))
	return Result{Success: true, Pending: true}
}

// currentHref returns the href of the link at the selection, if any.
func currentHref(s *state.EditorState) string {
	typ := s.Schema.Marks["link"]
	sel := s.Selection
	var marks []*model.Mark
	if sel.Empty() {
		marks = sel.RFrom().Marks()
	} else {
		s.Doc.NodesBetween(sel.From(), sel.To(), func(node *model.Node, _ int, _ *model.Node, _ int) bool {
			if marks == nil && node.IsInline() {
				marks = node.Marks
			}
			return marks == nil
		})
	}
	if m := typ.IsInSet(marks); m != nil {
		if href, ok := m.Attrs["href"].(string); ok {
			return href
		}
	}
	return ""
}

var (
	_ Command = &styleCommand{}
	_ Command = &hyperlinkCommand{}
)
