// Package builder provides helpers to write documents in tests. Strings may
// contain tags like <a> that record the position where they appear, so that
// doc(p("foo<a>bar")).Tag["a"] is 4.
package builder

import (
	"fmt"
	"regexp"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/basic"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/schema/list"
	"github.com/shodgson/eddytor/state"
)

// Spec describes a builder: the node or mark type it builds, and the
// attributes it sets.
type Spec map[string]interface{}

// NodeWithTag is a node built by a NodeBuilder, with the positions of the
// tags found in its content.
type NodeWithTag struct {
	*model.Node
	Tag map[string]int
}

// Flat is the result of a mark builder: marked nodes to insert in a parent.
type Flat struct {
	Nodes []*model.Node
	Tag   map[string]int
}

// NodeBuilder builds a node from its children and optional attributes.
type NodeBuilder func(args ...interface{}) NodeWithTag

// MarkBuilder marks its children.
type MarkBuilder func(args ...interface{}) Flat

var tagRe = regexp.MustCompile(`<(\w+)>`)

func flatten(schema *model.Schema, children []interface{}, f func(*model.Node) *model.Node) ([]*model.Node, map[string]int) {
	var result []*model.Node
	pos := 0
	tag := map[string]int{}
	addNode := func(n *model.Node) {
		n = f(n)
		pos += n.NodeSize()
		result = append(result, n)
	}
	for _, child := range children {
		switch c := child.(type) {
		case string:
			at := 0
			out := ""
			for _, m := range tagRe.FindAllStringSubmatchIndex(c, -1) {
				out += c[at:m[0]]
				pos += model.TextLength(c[at:m[0]])
				at = m[1]
				tag[c[m[2]:m[3]]] = pos
			}
			out += c[at:]
			if out != "" {
				n := f(schema.Text(out))
				result = append(result, n)
			}
			pos += model.TextLength(c[at:])
		case NodeWithTag:
			for id, p := range c.Tag {
				offset := 1
				if c.IsText() {
					offset = 0
				}
				tag[id] = p + offset + pos
			}
			addNode(c.Node)
		case *model.Node:
			addNode(c)
		case NodeBuilder:
			addNode(c().Node)
		case Flat:
			for id, p := range c.Tag {
				tag[id] = p + pos
			}
			for _, n := range c.Nodes {
				addNode(n)
			}
		default:
			panic(fmt.Errorf("unexpected builder argument %T", child))
		}
	}
	return result, tag
}

func takeAttrs(attrs map[string]interface{}, args []interface{}) (map[string]interface{}, []interface{}) {
	if len(args) == 0 {
		return attrs, args
	}
	a0, ok := args[0].(map[string]interface{})
	if !ok {
		return attrs, args
	}
	args = args[1:]
	if attrs == nil {
		return a0, args
	}
	result := make(map[string]interface{}, len(attrs)+len(a0))
	for k, v := range attrs {
		result[k] = v
	}
	for k, v := range a0 {
		result[k] = v
	}
	return result, args
}

func block(typ *model.NodeType, attrs map[string]interface{}) NodeBuilder {
	return func(args ...interface{}) NodeWithTag {
		myAttrs, rest := takeAttrs(attrs, args)
		nodes, tag := flatten(typ.Schema, rest, func(n *model.Node) *model.Node { return n })
		node, err := typ.Create(myAttrs, nodes, nil)
		if err != nil {
			panic(err)
		}
		return NodeWithTag{Node: node, Tag: tag}
	}
}

func mark(typ *model.MarkType, attrs map[string]interface{}) MarkBuilder {
	return func(args ...interface{}) Flat {
		myAttrs, rest := takeAttrs(attrs, args)
		m := typ.Create(myAttrs)
		nodes, tag := flatten(typ.Schema, rest, func(n *model.Node) *model.Node {
			if typ.IsInSet(n.Marks) != nil {
				return n
			}
			return n.Mark(m.AddToSet(n.Marks))
		})
		return Flat{Nodes: nodes, Tag: tag}
	}
}

// Set holds the builders for a schema.
type Set map[string]interface{}

// Builders creates builders for every node and mark of the schema, under
// their type names, plus the extra builders described by names.
func Builders(schema *model.Schema, names map[string]Spec) Set {
	result := Set{"schema": schema}
	for name, typ := range schema.Nodes {
		result[name] = block(typ, nil)
	}
	for name, typ := range schema.Marks {
		result[name] = mark(typ, nil)
	}
	for name, spec := range names {
		attrs := map[string]interface{}{}
		for k, v := range spec {
			if k != "nodeType" && k != "markType" {
				attrs[k] = v
			}
		}
		if typ, ok := spec["nodeType"].(string); ok {
			result[name] = block(schema.Nodes[typ], attrs)
		} else if typ, ok := spec["markType"].(string); ok {
			result[name] = mark(schema.Marks[typ], attrs)
		}
	}
	return result
}

// Schema returns the schema of the builders.
func (s Set) Schema() *model.Schema {
	return s["schema"].(*model.Schema)
}

// Node returns the node builder with the given name.
func (s Set) Node(name string) NodeBuilder {
	return s[name].(NodeBuilder)
}

// Mark returns the mark builder with the given name.
func (s Set) Mark(name string) MarkBuilder {
	return s[name].(MarkBuilder)
}

var testSchema = mustSchema(&model.SchemaSpec{
	Nodes: list.AddListNodes(basic.Schema.Spec.Nodes, "paragraph block*", "block"),
	Marks: basic.Schema.Spec.Marks,
})

func mustSchema(spec *model.SchemaSpec) *model.Schema {
	schema, err := model.NewSchema(spec)
	if err != nil {
		panic(err)
	}
	return schema
}

var out = Builders(testSchema, map[string]Spec{
	"p":   {"nodeType": "paragraph"},
	"pre": {"nodeType": "code_block"},
	"h1":  {"nodeType": "heading", "level": 1},
	"h2":  {"nodeType": "heading", "level": 2},
	"h3":  {"nodeType": "heading", "level": 3},
	"li":  {"nodeType": "list_item"},
	"ul":  {"nodeType": "bullet_list"},
	"ol":  {"nodeType": "ordered_list"},
	"br":  {"nodeType": "hard_break"},
	"img": {"nodeType": "image", "src": "img.png"},
	"hr":  {"nodeType": "horizontal_rule"},
	"a":   {"markType": "link", "href": "foo"},
})

// Builders for the basic schema with lists.
var (
	Schema     = out.Schema()
	Doc        = out.Node("doc")
	P          = out.Node("p")
	Blockquote = out.Node("blockquote")
	Pre        = out.Node("pre")
	H1         = out.Node("h1")
	H2         = out.Node("h2")
	H3         = out.Node("h3")
	Li         = out.Node("li")
	Ul         = out.Node("ul")
	Ol         = out.Node("ol")
	Br         = out.Node("br")
	Img        = out.Node("img")
	Hr         = out.Node("hr")
	A          = out.Mark("a")
	Em         = out.Mark("em")
	Strong     = out.Mark("strong")
	Code       = out.Mark("code")
)

// Eddytor holds builders for the Eddytor schema. Besides the type names, it
// has p, pre, h1-h3, ul, ol, li, check (checklist), ci (unchecked item),
// done (checked item), callout, table, tr, td, th, hr, br, img and a.
var Eddytor = Builders(eddytor.Schema, map[string]Spec{
	"p":       {"nodeType": "paragraph"},
	"pre":     {"nodeType": "code_block"},
	"h1":      {"nodeType": "heading", "level": 1},
	"h2":      {"nodeType": "heading", "level": 2},
	"h3":      {"nodeType": "heading", "level": 3},
	"li":      {"nodeType": "list_item"},
	"ul":      {"nodeType": "bullet_list"},
	"ol":      {"nodeType": "ordered_list"},
	"check":   {"nodeType": "checklist"},
	"ci":      {"nodeType": "checklist_item", "checked": false},
	"done":    {"nodeType": "checklist_item", "checked": true},
	"callout": {"nodeType": "callout", "variant": "info"},
	"table":   {"nodeType": "table"},
	"tr":      {"nodeType": "table_row"},
	"td":      {"nodeType": "table_cell"},
	"th":      {"nodeType": "table_header"},
	"br":      {"nodeType": "hard_break"},
	"img":     {"nodeType": "image", "src": "img.png"},
	"hr":      {"nodeType": "horizontal_rule"},
	"a":       {"markType": "link", "href": "foo"},
})

// Selection returns the selection described by the tags of the document: a
// node selection at <node>, a text selection from <a> to <b>, or a cursor
// at <a>. It returns nil when there are no such tags.
func Selection(doc NodeWithTag) state.Selection {
	if pos, ok := doc.Tag["node"]; ok {
		sel, err := state.CreateNodeSelection(doc.Node, pos)
		if err != nil {
			panic(err)
		}
		return sel
	}
	anchor, ok := doc.Tag["a"]
	if !ok {
		return nil
	}
	head := anchor
	if b, ok := doc.Tag["b"]; ok {
		head = b
	}
	sel, err := state.CreateTextSelection(doc.Node, anchor, head)
	if err != nil {
		panic(err)
	}
	return sel
}

// State creates an editor state with the document, its tagged selection
// and the given plugins.
func State(doc NodeWithTag, plugins ...*state.Plugin) *state.EditorState {
	s, err := state.Create(state.Config{Doc: doc.Node, Selection: Selection(doc), Plugins: plugins})
	if err != nil {
		panic(err)
	}
	return s
}
