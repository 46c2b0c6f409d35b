// Package eddytor defines the Eddytor document schema: the basic schema and
// the list nodes, extended with checklists, callouts, tables and the text
// style marks. The extension is additive: the basic and list specs are
// reused as they are.
package eddytor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/google/uuid"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/basic"
	"github.com/shodgson/eddytor/schema/list"
	"golang.org/x/net/html"
)

// Callout variants.
const (
	VariantInfo     = "info"
	VariantTip      = "tip"
	VariantWarning  = "warning"
	VariantCritical = "critical"
)

// Variants lists the callout variants, in menu order.
var Variants = []string{VariantInfo, VariantTip, VariantWarning, VariantCritical}

// NewItemID returns the stable id of a new checklist item. Tests may replace
// it to get predictable ids.
var NewItemID = uuid.NewString

var itemContent = cascadia.MustCompile("div.checklist-item-content")

func validateVariant(value interface{}) error {
	v, _ := value.(string)
	for _, variant := range Variants {
		if v == variant {
			return nil
		}
	}
	return fmt.Errorf("unknown callout variant %v", value)
}

func boolAttr(value interface{}) bool {
	b, _ := value.(bool)
	return b
}

func checklistItemToDOM(n model.NodeOrMark) *html.Node {
	checked := boolAttr(n.Attr("checked"))
	attrs := map[string]string{
		"data-type":    "checklist-item",
		"data-checked": strconv.FormatBool(checked),
	}
	if id, ok := n.Attr("id").(string); ok && id != "" {
		attrs["data-id"] = id
	}
	input := map[string]string{"type": "checkbox"}
	if checked {
		input["checked"] = ""
	}
	return model.Element("li", attrs,
		model.Element("label", map[string]string{"contenteditable": "false"}, model.Element("input", input)),
		model.Hole("div", map[string]string{"class": "checklist-item-content"}),
	)
}

func checklistItemAttrsFromDOM(dom *html.Node) (map[string]interface{}, bool) {
	checked, _ := model.GetAttr(dom, "data-checked")
	attrs := map[string]interface{}{"checked": checked == "true", "id": nil}
	if id, ok := model.GetAttr(dom, "data-id"); ok && id != "" {
		attrs["id"] = id
	}
	return attrs, true
}

func calloutToDOM(n model.NodeOrMark) *html.Node {
	variant := model.AttrString(n.Attr("variant"))
	return model.Element("div", map[string]string{
		"class":        "callout callout-" + variant,
		"data-callout": variant,
	})
}

func calloutAttrsFromDOM(dom *html.Node) (map[string]interface{}, bool) {
	variant, _ := model.GetAttr(dom, "data-callout")
	if validateVariant(variant) != nil {
		variant = VariantInfo
	}
	return map[string]interface{}{"variant": variant}, true
}

// parseStyle splits an inline style attribute into its declarations.
func parseStyle(style string) map[string]string {
	result := map[string]string{}
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		result[strings.TrimSpace(strings.ToLower(name))] = strings.TrimSpace(value)
	}
	return result
}

func styleOf(dom *html.Node) map[string]string {
	style, _ := model.GetAttr(dom, "style")
	return parseStyle(style)
}

func cellToDOM(tag string) model.ToDOM {
	return func(n model.NodeOrMark) *html.Node {
		attrs := map[string]string{}
		if colspan, ok := model.AttrInt(n.Attr("colspan")); ok && colspan != 1 {
			attrs["colspan"] = strconv.Itoa(colspan)
		}
		if rowspan, ok := model.AttrInt(n.Attr("rowspan")); ok && rowspan != 1 {
			attrs["rowspan"] = strconv.Itoa(rowspan)
		}
		if widths := ColWidths(n.Attr("colwidth")); widths != nil {
			parts := make([]string, len(widths))
			for i, w := range widths {
				parts[i] = strconv.Itoa(w)
			}
			attrs["data-colwidth"] = strings.Join(parts, ",")
		}
		var style []string
		if bg, ok := n.Attr("background").(string); ok && bg != "" {
			style = append(style, "background-color: "+bg)
		}
		if align, ok := n.Attr("alignment").(string); ok && align != "" {
			style = append(style, "text-align: "+align)
		}
		if len(style) > 0 {
			attrs["style"] = strings.Join(style, "; ")
		}
		return model.Element(tag, attrs)
	}
}

func cellAttrsFromDOM(dom *html.Node) (map[string]interface{}, bool) {
	attrs := map[string]interface{}{
		"colspan": 1, "rowspan": 1, "colwidth": nil, "background": nil, "alignment": nil,
	}
	if v, ok := model.GetAttr(dom, "colspan"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			attrs["colspan"] = n
		}
	}
	if v, ok := model.GetAttr(dom, "rowspan"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			attrs["rowspan"] = n
		}
	}
	if v, ok := model.GetAttr(dom, "data-colwidth"); ok && v != "" {
		var widths []int
		for _, part := range strings.Split(v, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				widths = nil
				break
			}
			widths = append(widths, n)
		}
		if widths != nil {
			attrs["colwidth"] = widths
		}
	}
	style := styleOf(dom)
	if bg := style["background-color"]; bg != "" {
		attrs["background"] = bg
	}
	if align := style["text-align"]; align != "" {
		attrs["alignment"] = align
	}
	return attrs, true
}

// ColWidths converts a colwidth attribute value to a slice of widths. It
// accepts the []int built by this package and the []interface{} produced by
// JSON decoding, and returns nil for anything else.
func ColWidths(value interface{}) []int {
	switch v := value.(type) {
	case []int:
		return v
	case []interface{}:
		result := make([]int, len(v))
		for i, w := range v {
			n, ok := model.AttrInt(w)
			if !ok {
				return nil
			}
			result[i] = n
		}
		return result
	}
	return nil
}

func cellAttrs() map[string]*model.AttributeSpec {
	return map[string]*model.AttributeSpec{
		"colspan":    {Default: 1},
		"rowspan":    {Default: 1},
		"colwidth":   {Default: nil},
		"background": {Default: nil},
		"alignment":  {Default: nil},
	}
}

func styleMarkToDOM(property, attr string) model.ToDOM {
	return func(n model.NodeOrMark) *html.Node {
		return model.Element("span", map[string]string{
			"style": property + ": " + model.AttrString(n.Attr(attr)),
		})
	}
}

func styleMarkRule(property, attr string) *model.ParseRule {
	return &model.ParseRule{
		Tag: "span[style]",
		GetAttrs: func(dom *html.Node) (map[string]interface{}, bool) {
			value := styleOf(dom)[property]
			if value == "" {
				return nil, false
			}
			return map[string]interface{}{attr: value}, true
		},
	}
}

// Nodes are the node specs added by this schema.
var Nodes = []*model.NodeSpec{
	// A list of checklist items, rendered as <ul data-type="checklist">.
	{
		Key: "checklist", Content: "checklist_item+", Group: "block",
		ToDOM: func(model.NodeOrMark) *html.Node {
			return model.Element("ul", map[string]string{"data-type": "checklist", "class": "checklist"})
		},
		ParseDOM: []*model.ParseRule{{Tag: `ul[data-type="checklist"]`, Priority: 60}},
	},

	// A checklist item. Its id is a stable identifier, used to find the item
	// back when its checkbox is clicked.
	{
		Key: "checklist_item", Content: "paragraph block*", Defining: true,
		Attrs: map[string]*model.AttributeSpec{
			"checked": {Default: false},
			"id":      {Default: nil},
		},
		ToDOM: checklistItemToDOM,
		ParseDOM: []*model.ParseRule{{
			Tag: `li[data-type="checklist-item"]`, Priority: 60,
			GetAttrs: checklistItemAttrsFromDOM,
			ContentElement: func(dom *html.Node) *html.Node {
				return itemContent.MatchFirst(dom)
			},
		}},
	},

	// A callout box, with a variant among info, tip, warning and critical.
	{
		Key: "callout", Content: "block+", Group: "block", Defining: true,
		Attrs: map[string]*model.AttributeSpec{
			"variant": {Default: VariantInfo, Validate: validateVariant},
		},
		ToDOM:    calloutToDOM,
		ParseDOM: []*model.ParseRule{{Tag: "div[data-callout]", GetAttrs: calloutAttrsFromDOM}},
	},

	{
		Key: "table", Content: "table_row+", Group: "block", TableRole: "table", Isolating: true,
		ToDOM: func(model.NodeOrMark) *html.Node {
			return model.Element("table", nil, model.Hole("tbody", nil))
		},
		ParseDOM: []*model.ParseRule{{Tag: "table"}},
	},
	{
		Key: "table_row", Content: "(table_cell | table_header)*", TableRole: "row",
		ToDOM:    model.SimpleToDOM("tr"),
		ParseDOM: []*model.ParseRule{{Tag: "tr"}},
	},
	{
		Key: "table_cell", Content: "block+", Attrs: cellAttrs(), TableRole: "cell", Isolating: true,
		ToDOM:    cellToDOM("td"),
		ParseDOM: []*model.ParseRule{{Tag: "td", GetAttrs: cellAttrsFromDOM}},
	},
	{
		Key: "table_header", Content: "block+", Attrs: cellAttrs(), TableRole: "header_cell", Isolating: true,
		ToDOM:    cellToDOM("th"),
		ParseDOM: []*model.ParseRule{{Tag: "th", GetAttrs: cellAttrsFromDOM}},
	},
}

// Marks are the mark specs added by this schema.
var Marks = []*model.MarkSpec{
	{
		Key:      "text_color",
		Attrs:    map[string]*model.AttributeSpec{"color": {Default: "#000000"}},
		ToDOM:    styleMarkToDOM("color", "color"),
		ParseDOM: []*model.ParseRule{styleMarkRule("color", "color")},
	},
	{
		Key:      "font_size",
		Attrs:    map[string]*model.AttributeSpec{"size": {Default: "16px"}},
		ToDOM:    styleMarkToDOM("font-size", "size"),
		ParseDOM: []*model.ParseRule{styleMarkRule("font-size", "size")},
	},
}

// Schema is the Eddytor document schema.
var Schema = mustSchema(&model.SchemaSpec{
	Nodes: append(list.AddListNodes(basic.Nodes, "paragraph block*", "block"), Nodes...),
	Marks: append(append([]*model.MarkSpec{}, basic.Marks...), Marks...),
})

func mustSchema(spec *model.SchemaSpec) *model.Schema {
	schema, err := model.NewSchema(spec)
	if err != nil {
		panic(err)
	}
	return schema
}

var (
	parser     = mustParser(Schema)
	serializer = model.DOMSerializerFromSchema(Schema)
)

func mustParser(schema *model.Schema) *model.DOMParser {
	p, err := model.DOMParserFromSchema(schema)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse parses HTML markup into an Eddytor document.
func Parse(markup string) (*model.Node, error) {
	return parser.ParseHTML(markup)
}

// Serialize renders the content of a document as HTML markup.
func Serialize(doc *model.Node) (string, error) {
	return serializer.RenderHTML(doc.Content)
}

// CreateTable builds a table of rows by cols cells, each holding an empty
// paragraph. When withHeader is true, the first row is made of header cells.
func CreateTable(schema *model.Schema, rows, cols int, withHeader bool) (*model.Node, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("table needs at least one row and one column, got %dx%d", rows, cols)
	}
	cellType, headerType := schema.Nodes["table_cell"], schema.Nodes["table_header"]
	rowNodes := make([]*model.Node, 0, rows)
	for r := 0; r < rows; r++ {
		typ := cellType
		if r == 0 && withHeader {
			typ = headerType
		}
		cells := make([]*model.Node, 0, cols)
		for c := 0; c < cols; c++ {
			cell, err := typ.CreateAndFill(nil, nil, nil)
			if err != nil {
				return nil, err
			}
			cells = append(cells, cell)
		}
		row, err := schema.Nodes["table_row"].CreateChecked(nil, cells, nil)
		if err != nil {
			return nil, err
		}
		rowNodes = append(rowNodes, row)
	}
	return schema.Nodes["table"].CreateChecked(nil, rowNodes, nil)
}

// CreateChecklistItem builds an unchecked checklist item with a fresh id,
// holding the given content or an empty paragraph.
func CreateChecklistItem(schema *model.Schema, content ...*model.Node) (*model.Node, error) {
	attrs := map[string]interface{}{"checked": false, "id": NewItemID()}
	if len(content) == 0 {
		return schema.Nodes["checklist_item"].CreateAndFill(attrs, nil, nil)
	}
	return schema.Nodes["checklist_item"].CreateChecked(attrs, content, nil)
}
