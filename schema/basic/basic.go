// Package basic defines a basic document schema, whose elements can be
// reused in other schemas.
package basic

import (
	"fmt"
	"strconv"

	"github.com/shodgson/eddytor/model"
	"golang.org/x/net/html"
)

var (
	empty = ""
	falsy = false

	headingAttrs = map[string]*model.AttributeSpec{
		"level": {Default: 1, Validate: validateLevel},
	}
	codeBlockAttrs = map[string]*model.AttributeSpec{
		"language": {Default: nil},
	}
	imageAttrs = map[string]*model.AttributeSpec{
		"src":   {Required: true},
		"alt":   {Default: nil},
		"title": {Default: nil},
	}
	linkAttrs = map[string]*model.AttributeSpec{
		"href":  {Required: true},
		"title": {Default: nil},
	}
)

func validateLevel(value interface{}) error {
	level, ok := model.AttrInt(value)
	if !ok || level < 1 || level > 6 {
		return fmt.Errorf("heading level must be between 1 and 6, got %v", value)
	}
	return nil
}

func headingToDOM(n model.NodeOrMark) *html.Node {
	level, ok := model.AttrInt(n.Attr("level"))
	if !ok {
		level = 1
	}
	return model.Element("h"+strconv.Itoa(level), nil)
}

func headingRule(level int) *model.ParseRule {
	return &model.ParseRule{
		Tag:   "h" + strconv.Itoa(level),
		Attrs: map[string]interface{}{"level": level},
	}
}

func codeBlockToDOM(n model.NodeOrMark) *html.Node {
	var attrs map[string]string
	if lang, ok := n.Attr("language").(string); ok && lang != "" {
		attrs = map[string]string{"data-language": lang}
	}
	return model.Element("pre", attrs, model.Element("code", nil))
}

func codeBlockAttrsFromDOM(dom *html.Node) (map[string]interface{}, bool) {
	var language interface{}
	if lang, ok := model.GetAttr(dom, "data-language"); ok && lang != "" {
		language = lang
	}
	return map[string]interface{}{"language": language}, true
}

func imageToDOM(n model.NodeOrMark) *html.Node {
	el := model.Element("img", nil)
	el.Attr = n.GetAttrs([]string{"src", "alt", "title"})
	return el
}

func imageAttrsFromDOM(dom *html.Node) (map[string]interface{}, bool) {
	src, ok := model.GetAttr(dom, "src")
	if !ok {
		return nil, false
	}
	attrs := map[string]interface{}{"src": src, "alt": nil, "title": nil}
	if alt, ok := model.GetAttr(dom, "alt"); ok {
		attrs["alt"] = alt
	}
	if title, ok := model.GetAttr(dom, "title"); ok {
		attrs["title"] = title
	}
	return attrs, true
}

func linkAttrsFromDOM(dom *html.Node) (map[string]interface{}, bool) {
	href, ok := model.GetAttr(dom, "href")
	if !ok {
		return nil, false
	}
	attrs := map[string]interface{}{"href": href, "title": nil}
	if title, ok := model.GetAttr(dom, "title"); ok {
		attrs["title"] = title
	}
	return attrs, true
}

// Nodes are the specs for the nodes defined in this schema.
var Nodes = []*model.NodeSpec{
	// The top level document node.
	{Key: "doc", Content: "block+"},

	// A plain paragraph textblock. Represented in the DOM as a <p> element.
	{
		Key: "paragraph", Content: "inline*", Group: "block",
		ToDOM:    model.SimpleToDOM("p"),
		ParseDOM: []*model.ParseRule{{Tag: "p"}},
	},

	// A blockquote (<blockquote>) wrapping one or more blocks.
	{
		Key: "blockquote", Content: "block+", Group: "block", Defining: true,
		ToDOM:    model.SimpleToDOM("blockquote"),
		ParseDOM: []*model.ParseRule{{Tag: "blockquote"}},
	},

	// A horizontal rule (<hr>).
	{
		Key: "horizontal_rule", Group: "block",
		ToDOM:    model.SimpleToDOM("hr"),
		ParseDOM: []*model.ParseRule{{Tag: "hr"}},
	},

	// A heading textblock, with a level attribute that should hold the
	// number 1 to 6. Parsed and serialized as <h1> to <h6> elements.
	{
		Key: "heading", Content: "inline*", Group: "block", Attrs: headingAttrs, Defining: true,
		ToDOM: headingToDOM,
		ParseDOM: []*model.ParseRule{
			headingRule(1), headingRule(2), headingRule(3),
			headingRule(4), headingRule(5), headingRule(6),
		},
	},

	// A code listing. Disallows marks or non-text inline nodes by default.
	// Represented as a <pre> element with a <code> element inside of it.
	{
		Key: "code_block", Content: "text*", Marks: &empty, Group: "block",
		Attrs: codeBlockAttrs, Code: true, Defining: true,
		ToDOM:    codeBlockToDOM,
		ParseDOM: []*model.ParseRule{{Tag: "pre", GetAttrs: codeBlockAttrsFromDOM}},
	},

	// The text node.
	{Key: "text", Group: "inline"},

	// An inline image (<img>) node. Supports src, alt, and title attributes.
	{
		Key: "image", Inline: true, Group: "inline", Attrs: imageAttrs, Draggable: true,
		ToDOM:    imageToDOM,
		ParseDOM: []*model.ParseRule{{Tag: "img[src]", GetAttrs: imageAttrsFromDOM}},
	},

	// A hard line break, represented in the DOM as <br>.
	{
		Key: "hard_break", Inline: true, Group: "inline",
		ToDOM:    model.SimpleToDOM("br"),
		ParseDOM: []*model.ParseRule{{Tag: "br"}},
		LeafText: func(*model.Node) string { return "\n" },
	},
}

// Marks are the specs for the marks in the schema.
var Marks = []*model.MarkSpec{
	// A link. Has href and title attributes. Rendered and parsed as an <a>
	// element.
	{
		Key: "link", Attrs: linkAttrs, Inclusive: &falsy,
		ToDOM:    model.SimpleToDOM("a", "href", "title"),
		ParseDOM: []*model.ParseRule{{Tag: "a[href]", GetAttrs: linkAttrsFromDOM}},
	},

	// An emphasis mark. Rendered as an <em> element, parse rules also match
	// <i>.
	{
		Key:      "em",
		ToDOM:    model.SimpleToDOM("em"),
		ParseDOM: []*model.ParseRule{{Tag: "i"}, {Tag: "em"}},
	},

	// A strong mark. Rendered as <strong>, parse rules also match <b>.
	{
		Key:      "strong",
		ToDOM:    model.SimpleToDOM("strong"),
		ParseDOM: []*model.ParseRule{{Tag: "strong"}, {Tag: "b"}},
	},

	// Code font mark. Represented as a <code> element.
	{
		Key:      "code",
		ToDOM:    model.SimpleToDOM("code"),
		ParseDOM: []*model.ParseRule{{Tag: "code"}},
	},
}

// Schema roughly corresponds to the document schema used by CommonMark,
// minus the list elements, which are defined in the list package.
//
// To reuse elements from this schema, extend or read from its Spec.Nodes and
// Spec.Marks properties.
var Schema = mustSchema(&model.SchemaSpec{
	Nodes: Nodes,
	Marks: Marks,
})

func mustSchema(spec *model.SchemaSpec) *model.Schema {
	schema, err := model.NewSchema(spec)
	if err != nil {
		panic(err)
	}
	return schema
}
