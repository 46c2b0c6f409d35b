package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// AttributeSpec is used to define attributes on nodes or marks.
type AttributeSpec struct {
	// The default value for this attribute, to use when no explicit value is
	// provided. A nil default is a valid default unless Required is set.
	Default interface{} `json:"default,omitempty"`
	// Attributes that are required have no default and must be given when
	// creating a node or mark.
	Required bool `json:"-"`
	// Validate, when set, is called with every value given for this
	// attribute by CreateChecked.
	Validate func(value interface{}) error `json:"-"`
}

// UnmarshalJSON follows the JSON schema format, where an attribute without a
// "default" key is required.
func (a *AttributeSpec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	def, ok := raw["default"]
	if !ok {
		a.Required = true
		return nil
	}
	return json.Unmarshal(def, &a.Default)
}

// NodeSpec describes a node type.
type NodeSpec struct {
	// The name of the node type.
	Key string `json:"-"`
	// The content expression for this node, as described in the schema guide.
	// When not given, the node does not allow any content.
	Content string `json:"content,omitempty"`
	// The marks that are allowed inside of this node. May be a
	// space-separated string referring to mark names or groups, "_" to
	// explicitly allow all marks, or "" to disallow marks. When not given,
	// nodes with inline content default to allowing all marks, other nodes
	// default to not allowing marks.
	Marks *string `json:"marks,omitempty"`
	// The group or space-separated groups to which this node belongs.
	Group string `json:"group,omitempty"`
	// Should be set to true for inline nodes.
	Inline bool `json:"inline,omitempty"`
	// Can be set to true to indicate that, though this isn't a leaf node, it
	// doesn't have directly editable content and should be treated as a
	// single unit in the view.
	Atom bool `json:"atom,omitempty"`
	// The attributes that nodes of this type get.
	Attrs map[string]*AttributeSpec `json:"attrs,omitempty"`
	// Determines whether nodes of this type can be dragged.
	Draggable bool `json:"draggable,omitempty"`
	// Can be used to indicate that this node contains code, which causes
	// some commands to behave differently.
	Code bool `json:"code,omitempty"`
	// Controls the way whitespace in this node is parsed: "normal" or "pre".
	Whitespace string `json:"whitespace,omitempty"`
	// Determines whether this node is considered an important parent node
	// during replace operations.
	Defining bool `json:"defining,omitempty"`
	// When enabled, enables both definingAsContext and definingForContent.
	Isolating bool `json:"isolating,omitempty"`
	// Role of the node in a table: "table", "row", "cell" or "header_cell".
	TableRole string `json:"tableRole,omitempty"`
	// Defines the default way a node of this type should be serialized to
	// DOM/HTML.
	ToDOM ToDOM `json:"-"`
	// Associates DOM parser information with this node.
	ParseDOM []*ParseRule `json:"-"`
	// Defines the default way a node of this type should be serialized to a
	// string representation for debugging.
	ToDebugString func(*Node) string `json:"-"`
	// Defines the default way a leaf node of this type should be serialized
	// to a string.
	LeafText func(*Node) string `json:"-"`
}

type nodeSpecJSON NodeSpec

// MarshalJSON encodes a node spec as a [name, spec] pair.
func (ns *NodeSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{ns.Key, (*nodeSpecJSON)(ns)})
}

// UnmarshalJSON decodes a node spec from a [name, spec] pair.
func (ns *NodeSpec) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("invalid node spec: %s", data)
	}
	if err := json.Unmarshal(pair[0], &ns.Key); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], (*nodeSpecJSON)(ns))
}

// MarkSpec describes a mark type.
type MarkSpec struct {
	// The name of the mark type.
	Key string `json:"-"`
	// The attributes that marks of this type get.
	Attrs map[string]*AttributeSpec `json:"attrs,omitempty"`
	// Whether this mark should be active when the cursor is positioned at
	// its end (or at its start when that is also the start of the parent
	// node). Defaults to true.
	Inclusive *bool `json:"inclusive,omitempty"`
	// Determines which other marks this mark can coexist with. Should be a
	// space-separated strings naming other marks or groups of marks. When a
	// mark is added to a set, all marks that it excludes are removed in the
	// process. Defaults to only being exclusive with marks of the same type.
	Excludes *string `json:"excludes,omitempty"`
	// The group or space-separated groups to which this mark belongs.
	Group string `json:"group,omitempty"`
	// Determines whether marks of this type can span multiple adjacent
	// nodes when serialized to DOM/HTML. Defaults to true.
	Spanning *bool `json:"spanning,omitempty"`
	// Defines the default way marks of this type should be serialized to
	// DOM/HTML.
	ToDOM ToDOM `json:"-"`
	// Associates DOM parser information with this mark.
	ParseDOM []*ParseRule `json:"-"`
}

type markSpecJSON MarkSpec

// MarshalJSON encodes a mark spec as a [name, spec] pair.
func (ms *MarkSpec) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{ms.Key, (*markSpecJSON)(ms)})
}

// UnmarshalJSON decodes a mark spec from a [name, spec] pair.
func (ms *MarkSpec) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("invalid mark spec: %s", data)
	}
	if err := json.Unmarshal(pair[0], &ms.Key); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], (*markSpecJSON)(ms))
}

// SchemaSpec is an object describing a schema, as passed to the Schema
// constructor.
type SchemaSpec struct {
	// The node types in this schema. The order in which they are listed is
	// significant: the first node type of a group is its default type.
	Nodes []*NodeSpec `json:"nodes"`
	// The mark types that exist in this schema. The order in which they are
	// provided determines the order in which mark sets are sorted and in
	// which parse rules are tried.
	Marks []*MarkSpec `json:"marks"`
	// The name of the default top-level node for the schema. Defaults to
	// "doc".
	TopNode string `json:"topNode,omitempty"`
}

// NodeType are objects allocated once per Schema and used to tag Node
// instances. They contain information about the node type, such as its name
// and what kind of node it represents.
type NodeType struct {
	// The name the node type has in this schema.
	Name string
	// A link back to the Schema the node type belongs to.
	Schema *Schema
	// The spec that this type is based on.
	Spec *NodeSpec
	// The position of the type in the schema spec.
	Rank   int
	Groups []string
	Attrs  map[string]*AttributeSpec
	// The default attributes, or nil when the type has required attributes.
	DefaultAttrs map[string]interface{}
	// The starting match of the node type's content expression.
	ContentMatch *ContentMatch
	// True if this node type has inline content.
	InlineContent bool
	// The set of marks allowed in this node. nil means that all marks are
	// allowed.
	MarkSet []*MarkType
}

// IsBlock is true if this is a block type.
func (nt *NodeType) IsBlock() bool {
	return !(nt.Spec.Inline || nt.Name == "text")
}

// IsInline is true if this is an inline type.
func (nt *NodeType) IsInline() bool {
	return !nt.IsBlock()
}

// IsText is true if this is the text node type.
func (nt *NodeType) IsText() bool {
	return nt.Name == "text"
}

// IsTextblock is true if this is a textblock type, a block that contains
// inline content.
func (nt *NodeType) IsTextblock() bool {
	return nt.IsBlock() && nt.InlineContent
}

// IsLeaf is true for node types that allow no content.
func (nt *NodeType) IsLeaf() bool {
	return nt.ContentMatch == EmptyContentMatch
}

// IsAtom is true when this node is an atom, i.e. when it does not have
// directly editable content.
func (nt *NodeType) IsAtom() bool {
	return nt.IsLeaf() || nt.Spec.Atom
}

// Whitespace tells how whitespace in this node is handled: "pre" or
// "normal".
func (nt *NodeType) Whitespace() string {
	if nt.Spec.Whitespace != "" {
		return nt.Spec.Whitespace
	}
	if nt.Spec.Code {
		return "pre"
	}
	return "normal"
}

// IsInGroup tells whether the node type belongs to the given group.
func (nt *NodeType) IsInGroup(group string) bool {
	for _, g := range nt.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// HasRequiredAttrs tells you whether this node type has any required
// attributes.
func (nt *NodeType) HasRequiredAttrs() bool {
	for _, attr := range nt.Attrs {
		if attr.Required {
			return true
		}
	}
	return false
}

// ComputeAttrs fills in the default values of attributes that are not given.
func (nt *NodeType) ComputeAttrs(attrs map[string]interface{}) (map[string]interface{}, error) {
	if attrs == nil && nt.DefaultAttrs != nil {
		return nt.DefaultAttrs, nil
	}
	return computeAttrs(nt.Name, nt.Attrs, attrs)
}

func computeAttrs(typeName string, specs map[string]*AttributeSpec, value map[string]interface{}) (map[string]interface{}, error) {
	built := make(map[string]interface{}, len(specs))
	for name, attr := range specs {
		given, ok := value[name]
		if !ok {
			if attr.Required {
				return nil, NewSchemaViolation(typeName, "no value supplied for attribute %s", name)
			}
			given = attr.Default
		}
		built[name] = given
	}
	return built, nil
}

func checkAttrs(typeName string, specs map[string]*AttributeSpec, values map[string]interface{}) error {
	for name := range values {
		if _, ok := specs[name]; !ok {
			return NewSchemaViolation(typeName, "unsupported attribute %s for %s", name, typeName)
		}
	}
	for name, attr := range specs {
		value, ok := values[name]
		if attr.Validate == nil || !ok {
			continue
		}
		if err := attr.Validate(value); err != nil {
			return NewSchemaViolation(typeName, "invalid value for attribute %s of %s: %s", name, typeName, err)
		}
	}
	return nil
}

func defaultAttrs(specs map[string]*AttributeSpec) map[string]interface{} {
	defaults := make(map[string]interface{}, len(specs))
	for name, attr := range specs {
		if attr.Required {
			return nil
		}
		defaults[name] = attr.Default
	}
	return defaults
}

// Create a Node of this type. The given attributes are checked and
// defaulted (you can pass nil to use the type's defaults entirely, if no
// required attributes exist). content may be a Fragment, a node, an array of
// nodes, or nil. Similarly marks may be nil to default to the empty set of
// marks.
func (nt *NodeType) Create(attrs map[string]interface{}, content interface{}, marks []*Mark) (*Node, error) {
	if nt.IsText() {
		return nil, fmt.Errorf("NodeType.create can't construct text nodes")
	}
	computed, err := nt.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	fragment, err := FragmentFrom(content)
	if err != nil {
		return nil, err
	}
	return NewNode(nt, computed, fragment, MarkSetFrom(marks)), nil
}

// CreateChecked is like create, but check the given content against the node
// type's content restrictions, and returns a SchemaViolation if it doesn't
// match.
func (nt *NodeType) CreateChecked(attrs map[string]interface{}, content interface{}, marks []*Mark) (*Node, error) {
	fragment, err := FragmentFrom(content)
	if err != nil {
		return nil, err
	}
	if err := nt.CheckContent(fragment); err != nil {
		return nil, err
	}
	if err := checkAttrs(nt.Name, nt.Attrs, attrs); err != nil {
		return nil, err
	}
	return nt.Create(attrs, fragment, marks)
}

// CreateAndFill is like create, but see if it is necessary to add nodes to
// the start or end of the given fragment to make it fit the node. If no
// fitting wrapping can be found, it returns a nil node. Note that, due to the
// fact that required nodes can always be created, this will always succeed if
// you pass nil or EmptyFragment as content.
func (nt *NodeType) CreateAndFill(attrs map[string]interface{}, content interface{}, marks []*Mark) (*Node, error) {
	computed, err := nt.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	fragment, err := FragmentFrom(content)
	if err != nil {
		return nil, err
	}
	if fragment.Size > 0 {
		before := nt.ContentMatch.FillBefore(fragment, false, 0)
		if before == nil {
			return nil, nil
		}
		fragment = before.Append(fragment)
	}
	matched := nt.ContentMatch.MatchFragment(fragment)
	if matched == nil {
		return nil, nil
	}
	after := matched.FillBefore(EmptyFragment, true, 0)
	if after == nil {
		return nil, nil
	}
	return NewNode(nt, computed, fragment.Append(after), MarkSetFrom(marks)), nil
}

// ValidContent returns true if the given fragment is valid content for this
// node type with the given attributes.
func (nt *NodeType) ValidContent(content *Fragment) bool {
	result := nt.ContentMatch.MatchFragment(content)
	if result == nil || !result.ValidEnd {
		return false
	}
	for _, child := range content.Content {
		if !nt.AllowsMarks(child.Marks) {
			return false
		}
	}
	return true
}

// CheckContent returns a SchemaViolation if the given fragment is not valid
// content for this node type.
func (nt *NodeType) CheckContent(content *Fragment) error {
	if !nt.ValidContent(content) {
		return NewSchemaViolation(nt.Name, "invalid content for node %s: %s", nt.Name, truncate(content.String(), 50))
	}
	return nil
}

// AllowsMarkType checks whether the given mark type is allowed in this node.
func (nt *NodeType) AllowsMarkType(markType *MarkType) bool {
	if nt.MarkSet == nil {
		return true
	}
	for _, mt := range nt.MarkSet {
		if mt == markType {
			return true
		}
	}
	return false
}

// AllowsMarks tests whether the given set of marks are allowed in this node.
func (nt *NodeType) AllowsMarks(marks []*Mark) bool {
	if nt.MarkSet == nil {
		return true
	}
	for _, mark := range marks {
		if !nt.AllowsMarkType(mark.Type) {
			return false
		}
	}
	return true
}

// AllowedMarks removes the marks that are not allowed in this node from the
// given set.
func (nt *NodeType) AllowedMarks(marks []*Mark) []*Mark {
	if nt.MarkSet == nil {
		return marks
	}
	var cpy []*Mark
	for i, mark := range marks {
		if !nt.AllowsMarkType(mark.Type) {
			if cpy == nil {
				cpy = make([]*Mark, i)
				copy(cpy, marks[:i])
			}
		} else if cpy != nil {
			cpy = append(cpy, mark)
		}
	}
	if cpy == nil {
		return marks
	}
	if len(cpy) == 0 {
		return NoMarks
	}
	return cpy
}

// CompatibleContent tells whether nodes of the two types can share content.
func (nt *NodeType) CompatibleContent(other *NodeType) bool {
	return nt == other || nt.ContentMatch.compatible(other.ContentMatch)
}

// MarkType are objects allocated once per Schema and used to tag Mark
// instances.
type MarkType struct {
	// The name of the mark type.
	Name string
	// The position of the type in the schema spec; marks are sorted by rank.
	Rank int
	// The schema that this mark type instance is part of.
	Schema *Schema
	// The spec on which the type is based.
	Spec     *MarkSpec
	Attrs    map[string]*AttributeSpec
	excluded []*MarkType
	instance *Mark
}

// Create a mark of this type. attrs may be nil or an object containing only
// some of the mark's attributes. The others, if they have defaults, will be
// added.
func (mt *MarkType) Create(attrs map[string]interface{}) *Mark {
	if attrs == nil && mt.instance != nil {
		return mt.instance
	}
	computed, err := computeAttrs(mt.Name, mt.Attrs, attrs)
	if err != nil {
		computed = attrs
	}
	return &Mark{Type: mt, Attrs: computed}
}

// CreateChecked creates a mark of this type, returning a SchemaViolation
// when required attributes are missing or attributes are invalid.
func (mt *MarkType) CreateChecked(attrs map[string]interface{}) (*Mark, error) {
	if err := checkAttrs(mt.Name, mt.Attrs, attrs); err != nil {
		return nil, err
	}
	computed, err := computeAttrs(mt.Name, mt.Attrs, attrs)
	if err != nil {
		return nil, err
	}
	return &Mark{Type: mt, Attrs: computed}, nil
}

func (mt *MarkType) checkAttrs(attrs map[string]interface{}) error {
	return checkAttrs(mt.Name, mt.Attrs, attrs)
}

// RemoveFromSet returns a new set of marks without the marks of this type.
func (mt *MarkType) RemoveFromSet(set []*Mark) []*Mark {
	var result []*Mark
	for _, m := range set {
		if m.Type != mt {
			result = append(result, m)
		}
	}
	if len(result) == len(set) {
		return set
	}
	if result == nil {
		return NoMarks
	}
	return result
}

// IsInSet tests whether there is a mark of this type in the given set.
func (mt *MarkType) IsInSet(set []*Mark) *Mark {
	for _, m := range set {
		if m.Type == mt {
			return m
		}
	}
	return nil
}

// Excludes queries whether a given mark type is excluded by this one.
func (mt *MarkType) Excludes(other *MarkType) bool {
	for _, ex := range mt.excluded {
		if ex == other {
			return true
		}
	}
	return false
}

// Inclusive tells whether the mark extends to text typed at its end.
func (mt *MarkType) Inclusive() bool {
	return mt.Spec.Inclusive == nil || *mt.Spec.Inclusive
}

// A document schema. Holds node and mark type objects for the nodes and marks
// that may occur in conforming documents, and provides functionality for
// creating and deserializing such documents.
type Schema struct {
	// The spec on which the schema is based.
	Spec *SchemaSpec
	// An object mapping the schema's node names to node type objects.
	Nodes map[string]*NodeType
	// A map from mark names to mark type objects.
	Marks map[string]*MarkType
	// The type of the default top node for this schema.
	TopNodeType *NodeType

	nodeList []*NodeType
	markList []*MarkType
}

// NewSchema constructs a schema from node and mark specs.
func NewSchema(spec *SchemaSpec) (*Schema, error) {
	schema := &Schema{
		Spec:  spec,
		Nodes: make(map[string]*NodeType, len(spec.Nodes)),
		Marks: make(map[string]*MarkType, len(spec.Marks)),
	}
	for i, ns := range spec.Nodes {
		if _, ok := schema.Nodes[ns.Key]; ok {
			return nil, fmt.Errorf("duplicate node type %s", ns.Key)
		}
		typ := &NodeType{
			Name:         ns.Key,
			Schema:       schema,
			Spec:         ns,
			Rank:         i,
			Groups:       strings.Fields(ns.Group),
			Attrs:        ns.Attrs,
			DefaultAttrs: defaultAttrs(ns.Attrs),
		}
		schema.Nodes[ns.Key] = typ
		schema.nodeList = append(schema.nodeList, typ)
	}
	topNode := spec.TopNode
	if topNode == "" {
		topNode = "doc"
	}
	top, ok := schema.Nodes[topNode]
	if !ok {
		return nil, fmt.Errorf("schema is missing its top node type ('%s')", topNode)
	}
	schema.TopNodeType = top
	text, ok := schema.Nodes["text"]
	if !ok {
		return nil, fmt.Errorf("every schema needs a 'text' type")
	}
	if len(text.Attrs) > 0 {
		return nil, fmt.Errorf("the text node type should not have attributes")
	}

	for i, ms := range spec.Marks {
		if _, ok := schema.Nodes[ms.Key]; ok {
			return nil, fmt.Errorf("%s can not be both a node and a mark", ms.Key)
		}
		typ := &MarkType{
			Name:   ms.Key,
			Rank:   i,
			Schema: schema,
			Spec:   ms,
			Attrs:  ms.Attrs,
		}
		if defaults := defaultAttrs(ms.Attrs); defaults != nil {
			typ.instance = &Mark{Type: typ, Attrs: defaults}
		}
		schema.Marks[ms.Key] = typ
		schema.markList = append(schema.markList, typ)
	}

	contentExprCache := map[string]*ContentMatch{}
	for _, typ := range schema.nodeList {
		contentExpr := typ.Spec.Content
		match, ok := contentExprCache[contentExpr]
		if !ok {
			var err error
			match, err = ParseContentMatch(contentExpr, schema.Nodes)
			if err != nil {
				return nil, err
			}
			contentExprCache[contentExpr] = match
		}
		typ.ContentMatch = match
		typ.InlineContent = match.inlineContent()
		markExpr := typ.Spec.Marks
		switch {
		case markExpr != nil && *markExpr == "_":
			typ.MarkSet = nil
		case markExpr != nil && *markExpr != "":
			set, err := gatherMarks(schema, strings.Fields(*markExpr))
			if err != nil {
				return nil, err
			}
			typ.MarkSet = set
		case markExpr != nil || !typ.InlineContent:
			typ.MarkSet = []*MarkType{}
		default:
			typ.MarkSet = nil
		}
	}
	for _, typ := range schema.markList {
		excl := typ.Spec.Excludes
		switch {
		case excl == nil:
			typ.excluded = []*MarkType{typ}
		case *excl == "":
			typ.excluded = nil
		default:
			set, err := gatherMarks(schema, strings.Fields(*excl))
			if err != nil {
				return nil, err
			}
			typ.excluded = set
		}
	}
	return schema, nil
}

func gatherMarks(schema *Schema, marks []string) ([]*MarkType, error) {
	found := []*MarkType{}
	for _, name := range marks {
		if mark, ok := schema.Marks[name]; ok {
			found = append(found, mark)
			continue
		}
		ok := false
		for _, mark := range schema.markList {
			if name == "_" || containsWord(mark.Spec.Group, name) {
				found = append(found, mark)
				ok = true
			}
		}
		if !ok {
			return nil, fmt.Errorf("unknown mark type: '%s'", name)
		}
	}
	return found, nil
}

func containsWord(list, word string) bool {
	for _, w := range strings.Fields(list) {
		if w == word {
			return true
		}
	}
	return false
}

// NodeTypes returns the node types in the order of the schema spec.
func (s *Schema) NodeTypes() []*NodeType {
	return s.nodeList
}

// MarkTypes returns the mark types in the order of the schema spec.
func (s *Schema) MarkTypes() []*MarkType {
	return s.markList
}

// NodeType returns the node type with the given name.
func (s *Schema) NodeType(name string) (*NodeType, error) {
	typ, ok := s.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", name)
	}
	return typ, nil
}

// MarkType returns the mark type with the given name.
func (s *Schema) MarkType(name string) (*MarkType, error) {
	typ, ok := s.Marks[name]
	if !ok {
		return nil, fmt.Errorf("unknown mark type: %s", name)
	}
	return typ, nil
}

// Node creates a node in this schema. The content is checked against the
// type's content expression.
func (s *Schema) Node(name string, attrs map[string]interface{}, content interface{}, marks ...[]*Mark) (*Node, error) {
	typ, err := s.NodeType(name)
	if err != nil {
		return nil, err
	}
	var m []*Mark
	if len(marks) > 0 {
		m = marks[0]
	}
	return typ.CreateChecked(attrs, content, m)
}

// Text creates a text node in the schema. Empty text nodes are not allowed.
func (s *Schema) Text(text string, marks ...*Mark) *Node {
	var set []*Mark
	for _, m := range marks {
		if m != nil {
			set = m.AddToSet(set)
		}
	}
	return NewTextNode(s.Nodes["text"], nil, text, MarkSetFrom(set))
}

// Mark creates a mark with the given type and attributes. It panics when the
// mark type doesn't exist, since mark names are usually constants.
func (s *Schema) Mark(name string, attrs ...map[string]interface{}) *Mark {
	typ, ok := s.Marks[name]
	if !ok {
		panic(fmt.Errorf("unknown mark type: %s", name))
	}
	var a map[string]interface{}
	if len(attrs) > 0 {
		a = attrs[0]
	}
	return typ.Create(a)
}

// NodeFromJSON deserializes a node from its JSON representation.
func (s *Schema) NodeFromJSON(obj map[string]interface{}) (*Node, error) {
	return NodeFromJSON(s, obj)
}

// MarkFromJSON deserializes a mark from its JSON representation.
func (s *Schema) MarkFromJSON(obj map[string]interface{}) (*Mark, error) {
	return MarkFromJSON(s, obj)
}

func sortNodeTypes(types []*NodeType) {
	sort.SliceStable(types, func(i, j int) bool { return types[i].Rank < types[j].Rank })
}
