package editor

import (
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/state"
	"go.uber.org/zap"
)

// ItemResolver finds the current position of a checklist item from its
// stable id. Positions shift under edits, ids don't. The index is rebuilt
// by a scan of the document each time the document changes.
type ItemResolver struct {
	doc       *model.Node
	positions map[string]int
}

// Resolve returns the position of the checklist item with the given id in
// doc.
func (r *ItemResolver) Resolve(doc *model.Node, id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	if r.doc != doc {
		r.positions = itemPositions(doc)
		r.doc = doc
	}
	pos, ok := r.positions[id]
	return pos, ok
}

func itemPositions(doc *model.Node) map[string]int {
	positions := map[string]int{}
	doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if eddytor.KindOf(node) == eddytor.KindChecklistItem {
			if id, ok := node.Attrs["id"].(string); ok && id != "" {
				if _, dup := positions[id]; !dup {
					positions[id] = pos
				}
			}
		}
		return !node.IsTextblock()
	})
	return positions
}

// ItemIDsKey is the key of the plugin that keeps checklist item ids.
var ItemIDsKey = state.NewPluginKey("checklistItemIds")

// ItemIDsPlugin returns a plugin that gives a fresh id to checklist items
// that have none, or that share their id with an item before them (after a
// paste or a split that copied the attributes).
func ItemIDsPlugin(logger *zap.Logger) *state.Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return state.NewPlugin(&state.PluginSpec{
		Key: ItemIDsKey,
		AppendTransaction: func(trs []*state.Transaction, _, newState *state.EditorState) *state.Transaction {
			changed := false
			for _, tr := range trs {
				if tr.DocChanged() {
					changed = true
					break
				}
			}
			if !changed {
				return nil
			}
			return fixItemIDs(newState, logger)
		},
	})
}

func fixItemIDs(s *state.EditorState, logger *zap.Logger) *state.Transaction {
	var missing []int
	seen := map[string]bool{}
	s.Doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if eddytor.KindOf(node) == eddytor.KindChecklistItem {
			id, _ := node.Attrs["id"].(string)
			if id == "" || seen[id] {
				missing = append(missing, pos)
			} else {
				seen[id] = true
			}
		}
		return !node.IsTextblock()
	})
	if len(missing) == 0 {
		return nil
	}
	tr := s.Tr()
	for _, pos := range missing {
		if err := tr.SetNodeAttribute(pos, "id", eddytor.NewItemID()); err != nil {
			logger.Warn("cannot set checklist item id", zap.Int("pos", pos), zap.Error(err))
			return nil
		}
	}
	logger.Debug("assigned checklist item ids", zap.Int("count", len(missing)))
	return tr
}
