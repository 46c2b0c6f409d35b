package eddytor

import "github.com/shodgson/eddytor/model"

// Kind is the closed set of node kinds of the Eddytor schema. Code that
// dispatches on node types switches over Kind rather than comparing type
// names.
type Kind int

// The node kinds.
const (
	KindUnknown Kind = iota
	KindDoc
	KindParagraph
	KindHeading
	KindBlockquote
	KindHorizontalRule
	KindCodeBlock
	KindText
	KindImage
	KindHardBreak
	KindBulletList
	KindOrderedList
	KindListItem
	KindChecklist
	KindChecklistItem
	KindCallout
	KindTable
	KindTableRow
	KindTableCell
	KindTableHeader
)

var kindNames = [...]string{
	KindUnknown:        "",
	KindDoc:            "doc",
	KindParagraph:      "paragraph",
	KindHeading:        "heading",
	KindBlockquote:     "blockquote",
	KindHorizontalRule: "horizontal_rule",
	KindCodeBlock:      "code_block",
	KindText:           "text",
	KindImage:          "image",
	KindHardBreak:      "hard_break",
	KindBulletList:     "bullet_list",
	KindOrderedList:    "ordered_list",
	KindListItem:       "list_item",
	KindChecklist:      "checklist",
	KindChecklistItem:  "checklist_item",
	KindCallout:        "callout",
	KindTable:          "table",
	KindTableRow:       "table_row",
	KindTableCell:      "table_cell",
	KindTableHeader:    "table_header",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if name != "" {
			m[name] = Kind(k)
		}
	}
	return m
}()

// String returns the node type name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return ""
	}
	return kindNames[k]
}

// KindOfType returns the kind of a node type, or KindUnknown for types that
// don't belong to the Eddytor schema.
func KindOfType(typ *model.NodeType) Kind {
	if typ == nil {
		return KindUnknown
	}
	return kindsByName[typ.Name]
}

// KindOf returns the kind of a node.
func KindOf(node *model.Node) Kind {
	if node == nil {
		return KindUnknown
	}
	return KindOfType(node.Type)
}

// NodeType returns the node type of the kind in the given schema.
func (k Kind) NodeType(schema *model.Schema) *model.NodeType {
	return schema.Nodes[k.String()]
}

// IsList reports whether the kind is a list container.
func (k Kind) IsList() bool {
	switch k {
	case KindBulletList, KindOrderedList, KindChecklist:
		return true
	}
	return false
}

// IsListItem reports whether the kind is an item of a list container.
func (k Kind) IsListItem() bool {
	switch k {
	case KindListItem, KindChecklistItem:
		return true
	}
	return false
}

// IsCell reports whether the kind is a table cell, header or not.
func (k Kind) IsCell() bool {
	switch k {
	case KindTableCell, KindTableHeader:
		return true
	}
	return false
}

// ItemKind returns the kind of the items held by a list kind, and
// KindUnknown for anything else.
func (k Kind) ItemKind() Kind {
	switch k {
	case KindBulletList, KindOrderedList:
		return KindListItem
	case KindChecklist:
		return KindChecklistItem
	case KindUnknown, KindDoc, KindParagraph, KindHeading, KindBlockquote,
		KindHorizontalRule, KindCodeBlock, KindText, KindImage, KindHardBreak,
		KindListItem, KindChecklistItem, KindCallout, KindTable, KindTableRow,
		KindTableCell, KindTableHeader:
		return KindUnknown
	}
	return KindUnknown
}
