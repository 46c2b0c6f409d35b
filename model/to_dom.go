package model

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HoleAttr marks the element of a rendered DOM structure where the content
// of a node or mark must be placed. It is removed during serialization. When
// no element carries it, content goes into the innermost first element.
const HoleAttr = "data-pm-hole"

// ToDOM renders a node or a mark to a DOM structure.
type ToDOM func(NodeOrMark) *html.Node

// NodeOrMark is what a ToDOM function receives.
type NodeOrMark interface {
	GetAttrs(keys []string) []html.Attribute
	Attr(name string) interface{}
}

// Attr returns the value of an attribute of the node, or nil.
func (n *Node) Attr(name string) interface{} {
	return n.Attrs[name]
}

// GetAttrs returns the given attributes of the node, as HTML attributes. A
// nil list selects all of them. Attributes with a nil value are skipped.
func (n *Node) GetAttrs(keys []string) []html.Attribute {
	return htmlAttrs(n.Attrs, keys)
}

// Attr returns the value of an attribute of the mark, or nil.
func (m *Mark) Attr(name string) interface{} {
	return m.Attrs[name]
}

// GetAttrs returns the given attributes of the mark, as HTML attributes.
func (m *Mark) GetAttrs(keys []string) []html.Attribute {
	return htmlAttrs(m.Attrs, keys)
}

func htmlAttrs(attrs map[string]interface{}, keys []string) []html.Attribute {
	if keys == nil {
		for key := range attrs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}
	result := []html.Attribute{}
	for _, key := range keys {
		value, ok := attrs[key]
		if !ok || value == nil {
			continue
		}
		result = append(result, html.Attribute{Key: key, Val: AttrString(value)})
	}
	return result
}

// AttrString formats an attribute value for the DOM.
func AttrString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(value)
}

// Element creates an HTML element, with attributes in a stable order.
func Element(tag string, attrs map[string]string, children ...*html.Node) *html.Node {
	el := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
	}
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		el.Attr = append(el.Attr, html.Attribute{Key: key, Val: attrs[key]})
	}
	for _, child := range children {
		el.AppendChild(child)
	}
	return el
}

// Hole creates an element that will receive the content of the node.
func Hole(tag string, attrs map[string]string) *html.Node {
	el := Element(tag, attrs)
	el.Attr = append(el.Attr, html.Attribute{Key: HoleAttr})
	return el
}

// TextElement creates an element containing only the given text.
func TextElement(tag string, attrs map[string]string, text string) *html.Node {
	return Element(tag, attrs, &html.Node{Type: html.TextNode, Data: text})
}

// SimpleToDOM returns a ToDOM function rendering a single element with the
// given attributes of the node or mark.
func SimpleToDOM(tag string, keys ...string) ToDOM {
	return func(n NodeOrMark) *html.Node {
		el := Element(tag, nil)
		if len(keys) > 0 {
			el.Attr = n.GetAttrs(keys)
		}
		return el
	}
}

// contentHole finds and clears the content hole of a rendered structure.
func contentHole(dom *html.Node) *html.Node {
	if hole := findHole(dom); hole != nil {
		return hole
	}
	hole := dom
	for c := hole.FirstChild; c != nil && c.Type == html.ElementNode; c = hole.FirstChild {
		hole = c
	}
	return hole
}

func findHole(dom *html.Node) *html.Node {
	for i, a := range dom.Attr {
		if a.Key == HoleAttr {
			dom.Attr = append(dom.Attr[:i:i], dom.Attr[i+1:]...)
			return dom
		}
	}
	for c := dom.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if hole := findHole(c); hole != nil {
			return hole
		}
	}
	return nil
}

// A DOMSerializer knows how to convert nodes and marks of various types to
// DOM nodes.
type DOMSerializer struct {
	// The node serialization functions.
	Nodes map[string]ToDOM
	// The mark serialization functions. A mark without serializer is not
	// rendered.
	Marks map[string]ToDOM
}

// DOMSerializerFromSchema builds a serializer using the properties in a
// schema's node and mark specs.
func DOMSerializerFromSchema(schema *Schema) *DOMSerializer {
	return &DOMSerializer{
		Nodes: nodesFromSchema(schema),
		Marks: marksFromSchema(schema),
	}
}

type activeMark struct {
	mark *Mark
	top  *html.Node
}

// SerializeFragment serializes the content of this fragment to a DOM
// fragment. When target is given, the nodes are appended to it.
func (d *DOMSerializer) SerializeFragment(fragment *Fragment, target *html.Node) (*html.Node, error) {
	if target == nil {
		target = &html.Node{Type: html.DocumentNode}
	}
	var active []activeMark
	top := target
	var err error
	fragment.ForEach(func(node *Node, _, _ int) {
		if err != nil {
			return
		}
		if len(active) > 0 || len(node.Marks) > 0 {
			keep, rendered := 0, 0
			for keep < len(active) && rendered < len(node.Marks) {
				next := node.Marks[rendered]
				if d.Marks[next.Type.Name] == nil {
					rendered++
					continue
				}
				if !next.Eq(active[keep].mark) || (next.Type.Spec.Spanning != nil && !*next.Type.Spec.Spanning) {
					break
				}
				keep++
				rendered++
			}
			for keep < len(active) {
				n := len(active)
				top, active = active[n-1].top, active[:n-1]
			}
			for rendered < len(node.Marks) {
				add := node.Marks[rendered]
				rendered++
				if markDOM := d.serializeMark(add); markDOM != nil {
					active = append(active, activeMark{mark: add, top: top})
					top.AppendChild(markDOM)
					top = contentHole(markDOM)
				}
			}
		}
		var child *html.Node
		if child, err = d.SerializeNode(node); err == nil {
			top.AppendChild(child)
		}
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

func (d *DOMSerializer) serializeMark(mark *Mark) *html.Node {
	toDOM := d.Marks[mark.Type.Name]
	if toDOM == nil {
		return nil
	}
	return toDOM(mark)
}

// SerializeNode serializes this node to a DOM node. This can be useful when
// you need to serialize a part of a document, as opposed to the whole
// document.
func (d *DOMSerializer) SerializeNode(node *Node) (*html.Node, error) {
	toDOM := d.Nodes[node.Type.Name]
	if toDOM == nil {
		return nil, fmt.Errorf("no DOM serializer for node type %s", node.Type.Name)
	}
	dom := toDOM(node)
	if node.IsLeaf() {
		findHole(dom)
		return dom, nil
	}
	if _, err := d.SerializeFragment(node.Content, contentHole(dom)); err != nil {
		return nil, err
	}
	return dom, nil
}

// RenderHTML serializes a fragment to an HTML string.
func (d *DOMSerializer) RenderHTML(fragment *Fragment) (string, error) {
	dom, err := d.SerializeFragment(fragment, nil)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for c := dom.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func nodesFromSchema(schema *Schema) map[string]ToDOM {
	result := make(map[string]ToDOM)
	for _, n := range schema.nodeList {
		if n.Spec.ToDOM != nil {
			result[n.Name] = n.Spec.ToDOM
		}
	}
	if result["text"] == nil {
		result["text"] = func(n NodeOrMark) *html.Node {
			node, _ := n.(*Node)
			return &html.Node{Type: html.TextNode, Data: *node.Text}
		}
	}
	return result
}

func marksFromSchema(schema *Schema) map[string]ToDOM {
	result := make(map[string]ToDOM)
	for _, m := range schema.markList {
		if m.Spec.ToDOM != nil {
			result[m.Name] = m.Spec.ToDOM
		}
	}
	return result
}
