package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseRule describes how to parse a DOM element into a node or a mark.
type ParseRule struct {
	// A CSS selector describing the kind of DOM elements to match.
	Tag string
	// Rules with a higher priority are tried first. Defaults to 50.
	Priority int
	// Attributes for the node or mark created by this rule. When GetAttrs
	// is provided, it takes precedence.
	Attrs map[string]interface{}
	// Computes the attributes for the node or mark created by this rule.
	// Returning false means the rule doesn't match.
	GetAttrs func(dom *html.Node) (map[string]interface{}, bool)
	// Returns the element whose children hold the content of the node.
	// Defaults to the matched element itself.
	ContentElement func(dom *html.Node) *html.Node
	// When true, ignore content that matches this rule.
	Ignore bool
	// When true, ignore the node that matches this rule, but do parse its
	// content.
	Skip bool
}

type parseEntry struct {
	rule     *ParseRule
	match    cascadia.Selector
	nodeType *NodeType
	markType *MarkType
}

// A DOMParser parses DOM content into a document conforming to a given
// schema. Its behavior is defined by an array of rules.
type DOMParser struct {
	// The schema into which the parser parses.
	Schema *Schema
	rules  []*parseEntry
}

// DOMParserFromSchema constructs a DOM parser using the parsing rules listed
// in a schema's node specs, reordered by priority.
func DOMParserFromSchema(schema *Schema) (*DOMParser, error) {
	parser := &DOMParser{Schema: schema}
	add := func(rule *ParseRule, nt *NodeType, mt *MarkType) error {
		sel, err := cascadia.Compile(rule.Tag)
		if err != nil {
			return fmt.Errorf("invalid parse rule %q: %w", rule.Tag, err)
		}
		parser.rules = append(parser.rules, &parseEntry{rule: rule, match: sel, nodeType: nt, markType: mt})
		return nil
	}
	for _, mt := range schema.markList {
		for _, rule := range mt.Spec.ParseDOM {
			if err := add(rule, nil, mt); err != nil {
				return nil, err
			}
		}
	}
	for _, nt := range schema.nodeList {
		for _, rule := range nt.Spec.ParseDOM {
			if err := add(rule, nt, nil); err != nil {
				return nil, err
			}
		}
	}
	sort.SliceStable(parser.rules, func(i, j int) bool {
		return priority(parser.rules[i].rule) > priority(parser.rules[j].rule)
	})
	return parser, nil
}

func priority(rule *ParseRule) int {
	if rule.Priority == 0 {
		return 50
	}
	return rule.Priority
}

// GetAttr returns the value of an attribute of an HTML element.
func GetAttr(dom *html.Node, key string) (string, bool) {
	for _, a := range dom.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// ParseHTML parses an HTML fragment into a document.
func (p *DOMParser) ParseHTML(src string) (*Node, error) {
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return p.Parse(body)
}

// Parse parses the children of a DOM node into a document.
func (p *DOMParser) Parse(dom *html.Node) (*Node, error) {
	ctx := &parseContext{parser: p}
	top := p.Schema.TopNodeType
	ctx.stack = []*nodeContext{{typ: top, match: top.ContentMatch}}
	ctx.addAll(dom)
	if ctx.err != nil {
		return nil, ctx.err
	}
	ctx.closeTo(0)
	return ctx.stack[0].finish(false)
}

// matchTag finds the first rule matching the given element.
func (p *DOMParser) matchTag(dom *html.Node) (*parseEntry, map[string]interface{}) {
	for _, entry := range p.rules {
		if !entry.match(dom) {
			continue
		}
		attrs := entry.rule.Attrs
		if entry.rule.GetAttrs != nil {
			var ok bool
			if attrs, ok = entry.rule.GetAttrs(dom); !ok {
				continue
			}
		}
		return entry, attrs
	}
	return nil, nil
}

type nodeContext struct {
	typ     *NodeType
	attrs   map[string]interface{}
	content []*Node
	match   *ContentMatch
	marks   []*Mark
}

func (nc *nodeContext) pre() bool {
	return nc.typ.Whitespace() == "pre"
}

func (nc *nodeContext) finish(openEnd bool) (*Node, error) {
	if !nc.pre() {
		nc.stripTrailingSpace()
	}
	content := FragmentFromArray(nc.content)
	if !openEnd && nc.match != nil {
		if fill := nc.match.FillBefore(EmptyFragment, true, 0); fill != nil {
			content = content.Append(fill)
		}
	}
	return nc.typ.Create(nc.attrs, content, nc.marks)
}

var trailingSpace = regexp.MustCompile(`[ \t\r\n\f]+$`)

func (nc *nodeContext) stripTrailingSpace() {
	if len(nc.content) == 0 {
		return
	}
	last := nc.content[len(nc.content)-1]
	if !last.IsText() {
		return
	}
	text := trailingSpace.ReplaceAllString(*last.Text, "")
	if text == *last.Text {
		return
	}
	if text == "" {
		nc.content = nc.content[:len(nc.content)-1]
	} else {
		nc.content[len(nc.content)-1] = last.WithText(text)
	}
}

type parseContext struct {
	parser *DOMParser
	stack  []*nodeContext
	marks  []*Mark
	err    error
}

func (pc *parseContext) top() *nodeContext {
	return pc.stack[len(pc.stack)-1]
}

func (pc *parseContext) addAll(parent *html.Node) {
	for c := parent.FirstChild; c != nil && pc.err == nil; c = c.NextSibling {
		pc.addDOM(c)
	}
}

func (pc *parseContext) addDOM(dom *html.Node) {
	switch dom.Type {
	case html.TextNode:
		pc.addText(dom)
	case html.ElementNode:
		pc.addElement(dom)
	}
}

var (
	spaceRun     = regexp.MustCompile(`[ \t\r\n\f]+`)
	leadingSpace = regexp.MustCompile(`^[ \t\r\n\f]`)
	onlySpace    = regexp.MustCompile(`^[ \t\r\n\f]*$`)
)

func (pc *parseContext) addText(dom *html.Node) {
	value := dom.Data
	top := pc.top()
	if top.pre() {
		value = strings.ReplaceAll(value, "\r\n", "\n")
	} else {
		if onlySpace.MatchString(value) && !top.typ.InlineContent {
			return
		}
		value = spaceRun.ReplaceAllString(value, " ")
		if leadingSpace.MatchString(value) {
			var before *Node
			if len(top.content) > 0 {
				before = top.content[len(top.content)-1]
			}
			prevBR := dom.PrevSibling != nil && dom.PrevSibling.DataAtom == atom.Br
			if !top.typ.InlineContent || before == nil || prevBR || (before.IsText() && strings.HasSuffix(*before.Text, " ")) {
				value = value[1:]
			}
		}
	}
	if value == "" {
		return
	}
	pc.insertNode(pc.parser.Schema.Text(value))
}

var ignoredTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Template: true, atom.Title: true,
}

func (pc *parseContext) addElement(dom *html.Node) {
	entry, attrs := pc.parser.matchTag(dom)
	if entry == nil {
		if !ignoredTags[dom.DataAtom] {
			pc.addAll(dom)
		}
		return
	}
	rule := entry.rule
	switch {
	case rule.Ignore:
		return
	case rule.Skip:
		pc.addAll(dom)
	case entry.markType != nil:
		saved := pc.marks
		pc.marks = entry.markType.Create(attrs).AddToSet(pc.marks)
		pc.addAll(dom)
		pc.marks = saved
	case entry.nodeType.IsLeaf():
		node, err := entry.nodeType.Create(attrs, nil, nil)
		if err != nil {
			pc.err = err
			return
		}
		pc.insertNode(node)
	default:
		content := dom
		if rule.ContentElement != nil {
			if el := rule.ContentElement(dom); el != nil {
				content = el
			}
		}
		pc.addElementByType(entry.nodeType, attrs, content)
	}
}

func (pc *parseContext) addElementByType(typ *NodeType, attrs map[string]interface{}, content *html.Node) {
	if !pc.findPlace(typ) {
		pc.addAll(content)
		return
	}
	computed, err := typ.ComputeAttrs(attrs)
	if err != nil {
		pc.err = err
		return
	}
	pc.enter(typ, computed)
	depth := len(pc.stack) - 1
	pc.addAll(content)
	if pc.err != nil {
		return
	}
	pc.closeTo(depth)
	pc.closeTop()
}

func (pc *parseContext) enter(typ *NodeType, attrs map[string]interface{}) {
	top := pc.top()
	top.match = top.match.MatchType(typ)
	pc.stack = append(pc.stack, &nodeContext{typ: typ, attrs: attrs, match: typ.ContentMatch})
}

// closeTop finishes the innermost context and adds it to its parent.
func (pc *parseContext) closeTop() {
	n := len(pc.stack)
	node, err := pc.stack[n-1].finish(false)
	if err != nil {
		pc.err = err
		return
	}
	pc.stack = pc.stack[:n-1]
	parent := pc.top()
	parent.content = append(parent.content, node)
}

// closeTo closes all contexts deeper than depth.
func (pc *parseContext) closeTo(depth int) {
	for len(pc.stack)-1 > depth && pc.err == nil {
		pc.closeTop()
	}
}

// findPlace opens or closes contexts so that a node of the given type can
// be placed in the innermost one.
func (pc *parseContext) findPlace(typ *NodeType) bool {
	for depth := len(pc.stack) - 1; depth >= 0; depth-- {
		cx := pc.stack[depth]
		if cx.match == nil {
			continue
		}
		route, ok := cx.match.FindWrapping(typ)
		if !ok {
			continue
		}
		pc.closeTo(depth)
		for _, wrap := range route {
			pc.enter(wrap, wrap.DefaultAttrs)
		}
		return true
	}
	return false
}

func (pc *parseContext) insertNode(node *Node) {
	if node.IsInline() && len(pc.marks) > 0 {
		marks := node.Marks
		for _, m := range pc.marks {
			marks = m.AddToSet(marks)
		}
		node = node.Mark(marks)
	}
	if !pc.findPlace(node.Type) {
		return
	}
	top := pc.top()
	if node.IsInline() {
		node = node.Mark(top.typ.AllowedMarks(node.Marks))
	}
	top.match = top.match.MatchType(node.Type)
	top.content = append(top.content, node)
}
