package highlight

import (
	"github.com/shodgson/eddytor/decoration"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/transform"
	"go.uber.org/zap"
)

// Key is the key of the highlight plugin.
var Key = state.NewPluginKey("codeBlock")

// SelectorWidget is the name of the widget decoration placed at the start
// of each code block, where the view shows the language selector.
const SelectorWidget = "language-selector"

// Plugin returns the plugin that keeps the highlight decorations of the
// code blocks. Only the blocks touched by a transaction are tokenized
// again; the decorations of the other blocks are mapped.
func Plugin(h *Highlighter, logger *zap.Logger) *state.Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &plugin{h: h, logger: logger}
	return state.NewPlugin(&state.PluginSpec{
		Key: Key,
		State: &state.StateField{
			Init: func(_ state.Config, s *state.EditorState) interface{} {
				return p.all(s.Doc)
			},
			Apply: func(tr *state.Transaction, value interface{}, _, newState *state.EditorState) interface{} {
				return p.apply(tr, value.(*decoration.DecorationSet), newState.Doc)
			},
		},
		Props: state.Props{
			Decorations: Decorations,
		},
	})
}

// Decorations returns the highlight decorations of a state.
func Decorations(s *state.EditorState) *decoration.DecorationSet {
	if set, ok := Key.GetState(s).(*decoration.DecorationSet); ok {
		return set
	}
	return decoration.Empty
}

// SetLanguage changes the language of the code block at pos.
func SetLanguage(pos int, language string) state.Command {
	return func(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
		node := s.Doc.NodeAt(pos)
		if node == nil || eddytor.KindOf(node) != eddytor.KindCodeBlock {
			return false
		}
		if dispatch != nil {
			attrs := make(map[string]interface{}, len(node.Attrs))
			for k, v := range node.Attrs {
				attrs[k] = v
			}
			var value interface{}
			if language != "" {
				value = language
			}
			attrs["language"] = value
			tr := s.Tr()
			if err := tr.SetNodeMarkup(pos, nil, attrs, nil); err != nil {
				return false
			}
			dispatch(tr)
		}
		return true
	}
}

type plugin struct {
	h      *Highlighter
	logger *zap.Logger
}

func (p *plugin) all(doc *model.Node) *decoration.DecorationSet {
	var decos []*decoration.Decoration
	doc.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if eddytor.KindOf(node) == eddytor.KindCodeBlock {
			decos = append(decos, p.block(node, pos)...)
			return false
		}
		return true
	})
	return decoration.Create(doc, decos)
}

func (p *plugin) apply(tr *state.Transaction, set *decoration.DecorationSet, doc *model.Node) *decoration.DecorationSet {
	if !tr.DocChanged() {
		return set
	}
	set = set.Map(tr.Mapping, doc)
	size := doc.Content.Size
	done := map[int]bool{}
	for _, r := range touchedRanges(tr) {
		from, to := max(r[0], 0), min(r[1], size)
		doc.NodesBetween(from, to, func(node *model.Node, pos int, _ *model.Node, _ int) bool {
			if eddytor.KindOf(node) != eddytor.KindCodeBlock {
				return true
			}
			if !done[pos] {
				done[pos] = true
				stale := set.Find(pos, pos+node.NodeSize())
				set = set.Remove(stale).Add(doc, p.block(node, pos))
			}
			return false
		})
	}
	return set
}

// block computes the decorations of the code block at pos.
func (p *plugin) block(node *model.Node, pos int) []*decoration.Decoration {
	text := node.TextContent()
	language := ResolveLanguage(node.Attrs["language"], text)
	p.logger.Debug("highlighting code block", zap.Int("pos", pos), zap.String("language", language))
	selector := decoration.NewWidget(pos+1, SelectorWidget, map[string]interface{}{"language": language})
	selector.Side = -1
	decos := []*decoration.Decoration{selector}
	start := pos + 1
	for _, span := range p.h.Tokens(language, text) {
		decos = append(decos, decoration.NewInline(start+span.From, start+span.To, map[string]string{"class": span.Class}))
	}
	return decos
}

// touchedRanges returns the ranges of the final document that the steps of
// the transaction changed.
func touchedRanges(tr *state.Transaction) [][2]int {
	maps := tr.Mapping.Maps
	var ranges [][2]int
	for i, sm := range maps {
		rest := tr.Mapping.Slice(i+1, len(maps))
		sm.ForEach(func(_, _, newStart, newEnd int) {
			ranges = append(ranges, [2]int{rest.Map(newStart, -1), rest.Map(newEnd, 1)})
		})
		if i < len(tr.Steps) {
			if step, ok := tr.Steps[i].(*transform.AttrStep); ok {
				ranges = append(ranges, [2]int{rest.Map(step.Pos, 1), rest.Map(step.Pos+1, -1)})
			}
		}
	}
	for i, r := range ranges {
		if r[0] > r[1] {
			ranges[i] = [2]int{r[1], r[0]}
		}
	}
	return ranges
}
