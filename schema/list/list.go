// Package list exports list-related schema elements and commands. The
// commands assume lists to be nestable, with the restriction that the first
// child of a list item is a plain paragraph.
package list

import (
	"strconv"

	"github.com/shodgson/eddytor/model"
	"golang.org/x/net/html"
)

var (
	// An ordered list node spec. Has a single attribute, order, which
	// determines the number at which the list starts counting, and defaults
	// to 1. Represented as an <ol> element.
	orderedList = model.NodeSpec{
		Key: "ordered_list",
		Attrs: map[string]*model.AttributeSpec{
			"order": {Default: 1},
		},
		ToDOM: func(n model.NodeOrMark) *html.Node {
			order, ok := model.AttrInt(n.Attr("order"))
			if !ok || order == 1 {
				return model.Element("ol", nil)
			}
			return model.Element("ol", map[string]string{"start": strconv.Itoa(order)})
		},
		ParseDOM: []*model.ParseRule{{
			Tag: "ol",
			GetAttrs: func(dom *html.Node) (map[string]interface{}, bool) {
				order := 1
				if start, ok := model.GetAttr(dom, "start"); ok {
					if n, err := strconv.Atoi(start); err == nil {
						order = n
					}
				}
				return map[string]interface{}{"order": order}, true
			},
		}},
	}

	// A bullet list node spec, represented in the DOM as <ul>.
	bulletList = model.NodeSpec{
		Key:      "bullet_list",
		ToDOM:    model.SimpleToDOM("ul"),
		ParseDOM: []*model.ParseRule{{Tag: "ul"}},
	}

	// A list item (<li>) spec.
	listItem = model.NodeSpec{
		Key:      "list_item",
		Defining: true,
		ToDOM:    model.SimpleToDOM("li"),
		ParseDOM: []*model.ParseRule{{Tag: "li"}},
	}
)

func add(obj, props model.NodeSpec) *model.NodeSpec {
	if props.Content != "" {
		obj.Content = props.Content
	}
	if props.Group != "" {
		obj.Group = props.Group
	}
	return &obj
}

// OrderedList returns a copy of the ordered list spec.
func OrderedList(content, group string) *model.NodeSpec {
	return add(orderedList, model.NodeSpec{Content: content, Group: group})
}

// BulletList returns a copy of the bullet list spec.
func BulletList(content, group string) *model.NodeSpec {
	return add(bulletList, model.NodeSpec{Content: content, Group: group})
}

// ListItem returns a copy of the list item spec.
func ListItem(content string) *model.NodeSpec {
	return add(listItem, model.NodeSpec{Content: content})
}

// AddListNodes is a convenience function for adding list-related node types
// to a list of node specs. Adds orderedList as "ordered_list", bulletList as
// "bullet_list", and listItem as "list_item". The given list is not
// modified.
//
// itemContent determines the content expression for the list items. If you
// want the commands defined in this package to apply to your list
// structure, it should have a shape like "paragraph block*" or "paragraph
// (ordered_list | bullet_list)*". listGroup can be given to assign a group
// name to the list node types, for example "block".
func AddListNodes(nodes []*model.NodeSpec, itemContent, listGroup string) []*model.NodeSpec {
	result := make([]*model.NodeSpec, 0, len(nodes)+3)
	result = append(result, nodes...)
	return append(result,
		OrderedList("list_item+", listGroup),
		BulletList("list_item+", listGroup),
		ListItem(itemContent),
	)
}
