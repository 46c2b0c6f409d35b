package editor

import (
	"strings"

	"github.com/shodgson/eddytor/decoration"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
)

// PlaceholderKey is the key of the placeholder plugin.
var PlaceholderKey = state.NewPluginKey("placeholder")

// PlaceholderClass is the class of the placeholder decorations.
const PlaceholderClass = "placeholder"

// DefaultPlaceholders are the placeholder texts by node type name. The
// "default" entry is used for the other textblocks.
var DefaultPlaceholders = map[string]string{
	"paragraph": "Type '/' for commands or start writing...",
	"heading":   "Heading",
	"default":   "Start typing...",
}

// PlaceholderPlugin shows a placeholder text on the first textblock of the
// document while it is empty. Only that block gets a placeholder, unless
// allBlocks is true: then every empty textblock has one.
func PlaceholderPlugin(texts map[string]string, allBlocks bool) *state.Plugin {
	if texts == nil {
		texts = DefaultPlaceholders
	}
	return state.NewPlugin(&state.PluginSpec{
		Key: PlaceholderKey,
		Props: state.Props{
			Decorations: func(s *state.EditorState) *decoration.DecorationSet {
				return placeholders(s.Doc, texts, allBlocks)
			},
		},
	})
}

func placeholders(doc *model.Node, texts map[string]string, allBlocks bool) *decoration.DecorationSet {
	var decos []*decoration.Decoration
	first := true
	doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if !allBlocks && !first {
			return false
		}
		if !node.IsTextblock() {
			return true
		}
		first = false
		if strings.TrimSpace(node.TextContent()) != "" || node.Type.Spec.Code {
			return false
		}
		text, ok := texts[node.Type.Name]
		if !ok {
			text = texts["default"]
		}
		if text != "" {
			decos = append(decos, decoration.NewNode(pos, pos+node.NodeSize(), map[string]string{
				"class":            PlaceholderClass,
				"data-placeholder": text,
			}))
		}
		return false
	})
	if len(decos) == 0 {
		return decoration.Empty
	}
	return decoration.Create(doc, decos)
}
