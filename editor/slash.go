package editor

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
	"go.uber.org/zap"
)

// SlashKey is the key of the slash menu plugin.
var SlashKey = state.NewPluginKey("slashMenu")

const (
	// SlashTrigger is the character that opens the slash menu.
	SlashTrigger = "/"
	// slashLookback is how far before the cursor the trigger is looked for.
	slashLookback = 30
	// leafChar stands for inline leaf nodes in the text before the cursor.
	leafChar = "\ufffc"
	// slashClose is the meta value of the transactions closing the menu.
	slashClose = "close"
)

// SlashState is the state of the slash menu. When Active, Pos is the
// position of the trigger character and Query the text typed after it.
type SlashState struct {
	Active bool
	Query  string
	Pos    int
}

// SlashEvent is published to the menu UI when the slash state changes, or
// when a navigation key is pressed while the menu is open (Key is then
// set).
type SlashEvent struct {
	State SlashState
	Key   string
}

// navigationKeys are handed to the menu UI while the menu is open.
var navigationKeys = map[string]bool{
	"ArrowUp":   true,
	"ArrowDown": true,
	"Enter":     true,
	"Escape":    true,
}

// SlashMenu tracks the slash command trigger. Its state is recomputed from
// the text before the cursor on each transaction.
type SlashMenu struct {
	plugin   *state.Plugin
	onChange func(SlashEvent)
	logger   *zap.Logger
}

// NewSlashMenu creates the slash menu controller.
func NewSlashMenu(logger *zap.Logger) *SlashMenu {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &SlashMenu{logger: logger}
	m.plugin = state.NewPlugin(&state.PluginSpec{
		Key: SlashKey,
		State: &state.StateField{
			Init: func(_ state.Config, s *state.EditorState) interface{} {
				return detectSlash(s)
			},
			Apply: func(tr *state.Transaction, value interface{}, _, newState *state.EditorState) interface{} {
				if meta, ok := tr.GetMeta(SlashKey).(string); ok && meta == slashClose {
					return SlashState{}
				}
				if !tr.DocChanged() && !tr.SelectionSet() {
					return value
				}
				return detectSlash(newState)
			},
		},
		Props: state.Props{
			HandleKeyDown: m.handleKeyDown,
			HandleDOMEvents: map[string]func(state.View, *state.DOMEvent) bool{
				"blur": m.handleBlur,
				"mousedown": func(view state.View, event *state.DOMEvent) bool {
					if event.Inside {
						return false
					}
					return m.handleBlur(view, event)
				},
			},
		},
	})
	return m
}

// Plugin returns the plugin of the controller.
func (m *SlashMenu) Plugin() *state.Plugin {
	return m.plugin
}

// OnChange sets the subscriber of the slash events. There is at most one
// subscriber: setting a new one replaces the previous.
func (m *SlashMenu) OnChange(fn func(SlashEvent)) {
	m.onChange = fn
}

// Update publishes a change of the slash state between two states.
func (m *SlashMenu) Update(prev, next *state.EditorState) {
	before, after := GetSlashState(prev), GetSlashState(next)
	if before == after {
		return
	}
	m.logger.Debug("slash menu changed",
		zap.Bool("active", after.Active), zap.String("query", after.Query), zap.Int("pos", after.Pos))
	m.publish(SlashEvent{State: after})
}

func (m *SlashMenu) publish(event SlashEvent) {
	if m.onChange != nil {
		m.onChange(event)
	}
}

func (m *SlashMenu) handleKeyDown(view state.View, event *state.KeyEvent) bool {
	s := view.State()
	slash := GetSlashState(s)
	if !slash.Active {
		return false
	}
	if navigationKeys[event.Key] {
		m.publish(SlashEvent{State: slash, Key: event.Key})
		return true
	}
	if event.Key == "Backspace" && s.Selection.From() <= slash.Pos+1 {
		return CloseSlash(s, view.Dispatch, view)
	}
	return false
}

func (m *SlashMenu) handleBlur(view state.View, _ *state.DOMEvent) bool {
	CloseSlash(view.State(), view.Dispatch, view)
	return false
}

// GetSlashState returns the slash menu state of an editor state.
func GetSlashState(s *state.EditorState) SlashState {
	if slash, ok := SlashKey.GetState(s).(SlashState); ok {
		return slash
	}
	return SlashState{}
}

// CloseSlash closes the open slash menu and removes its trigger character
// from the document.
func CloseSlash(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	slash := GetSlashState(s)
	if !slash.Active {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		if err := tr.Delete(slash.Pos, slash.Pos+1); err != nil {
			return false
		}
		dispatch(tr.SetMeta(SlashKey, slashClose))
	}
	return true
}

// clearSlash removes the trigger and the query, and closes the menu.
func clearSlash(s *state.EditorState, dispatch func(*state.Transaction), _ state.View) bool {
	slash := GetSlashState(s)
	if !slash.Active {
		return false
	}
	if dispatch != nil {
		tr := s.Tr()
		end := slash.Pos + 1 + model.TextLength(slash.Query)
		if err := tr.Delete(slash.Pos, min(end, s.Doc.Content.Size)); err != nil {
			return false
		}
		dispatch(tr.SetMeta(SlashKey, slashClose))
	}
	return true
}

// detectSlash computes the slash state from the text before the cursor.
// The menu is open when a trigger character is found at the start of the
// block or right after whitespace, and the query after it doesn't start
// with whitespace.
func detectSlash(s *state.EditorState) SlashState {
	sel := s.Selection
	if !sel.Empty() {
		return SlashState{}
	}
	rpos := sel.RFrom()
	parent := rpos.Parent()
	if !parent.IsTextblock() || parent.Type.Spec.Code {
		return SlashState{}
	}
	offset := rpos.ParentOffset
	start := max(0, offset-slashLookback)
	text := parent.TextBetween(start, offset, "", leafChar)
	idx := strings.LastIndex(text, SlashTrigger)
	if idx < 0 {
		return SlashState{}
	}
	query := text[idx+len(SlashTrigger):]
	if strings.Contains(query, leafChar) || strings.ContainsRune(query, '\n') {
		return SlashState{}
	}
	if first, _ := utf8.DecodeRuneInString(query); query != "" && unicode.IsSpace(first) {
		return SlashState{}
	}
	before := text[:idx]
	if before == "" && start > 0 {
		before = parent.TextBetween(start-1, start, "", leafChar)
	}
	if before != "" {
		last, _ := utf8.DecodeLastRuneInString(before)
		if !unicode.IsSpace(last) {
			return SlashState{}
		}
	}
	return SlashState{
		Active: true,
		Query:  query,
		Pos:    rpos.Start() + start + model.TextLength(text[:idx]),
	}
}
