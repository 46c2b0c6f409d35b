package state

import (
	"fmt"
	"sync"

	"github.com/shodgson/eddytor/decoration"
)

// StateField describes a plugin's state field.
type StateField struct {
	// Init initializes the value of the field.
	Init func(config Config, instance *EditorState) interface{}
	// Apply applies the given transaction to this state field, producing a
	// new field value. Note that the newState argument is a partially
	// constructed state: fields that come after this one are not yet set.
	Apply func(tr *Transaction, value interface{}, oldState, newState *EditorState) interface{}
}

// KeyEvent is a keyboard event, as received by keymaps and key handlers.
type KeyEvent struct {
	// The key name, as in the DOM KeyboardEvent.key property ("Enter",
	// "Tab", "a", " ", ...).
	Key   string
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
}

// DOMEvent is a non-keyboard input event (blur, mousedown, click...).
type DOMEvent struct {
	Type string
	// Extra information about the event target, like data attributes.
	Attrs map[string]string
	// Set when the event happened inside the editable area.
	Inside bool
}

// Props are the properties that plugins can provide to the view.
type Props struct {
	// HandleKeyDown is called when the editor receives a key event.
	// Returning true stops the propagation to other handlers.
	HandleKeyDown func(view View, event *KeyEvent) bool
	// HandleTextInput is called whenever the user directly inputs text.
	HandleTextInput func(view View, from, to int, text string) bool
	// HandleDOMEvents handles the other events, by type.
	HandleDOMEvents map[string]func(view View, event *DOMEvent) bool
	// Decorations returns the decorations to show in the view.
	Decorations func(state *EditorState) *decoration.DecorationSet
}

// PluginSpec is the object used to create a plugin.
type PluginSpec struct {
	// Props are the view props contributed by the plugin.
	Props Props
	// State allows a plugin to define a state field.
	State *StateField
	// Key can be used to make this a keyed plugin. You can have only one
	// plugin with a given key in a given state, but it is possible to
	// access the plugin's configuration and state through the key.
	Key *PluginKey
	// FilterTransaction, when present, will be called before a transaction
	// is applied by the state, allowing the plugin to cancel it (by
	// returning false).
	FilterTransaction func(tr *Transaction, state *EditorState) bool
	// AppendTransaction allows the plugin to append another transaction to
	// be applied after the given array of transactions.
	AppendTransaction func(trs []*Transaction, oldState, newState *EditorState) *Transaction
}

// Plugin can be added to an editor. They are part of the editor state and
// may influence that state and the view that contains it.
type Plugin struct {
	Spec *PluginSpec
	key  string
}

// NewPlugin creates a plugin.
func NewPlugin(spec *PluginSpec) *Plugin {
	key := ""
	if spec.Key != nil {
		key = spec.Key.key
	} else {
		key = createKey("plugin")
	}
	return &Plugin{Spec: spec, key: key}
}

// Props returns the view props of the plugin.
func (p *Plugin) Props() *Props {
	return &p.Spec.Props
}

// GetState extracts the plugin's state field from an editor state.
func (p *Plugin) GetState(s *EditorState) interface{} {
	return s.fields[p.key]
}

var (
	keysMu sync.Mutex
	keys   = map[string]int{}
)

func createKey(name string) string {
	keysMu.Lock()
	defer keysMu.Unlock()
	n := keys[name]
	keys[name] = n + 1
	if n == 0 {
		return name + "$"
	}
	return fmt.Sprintf("%s$%d", name, n)
}

// PluginKey is used to tag plugins in a way that makes it possible to find
// them, given an editor state. Assigning a key does mean only one plugin of
// that type can be active in a state.
type PluginKey struct {
	key string
}

// NewPluginKey creates a plugin key.
func NewPluginKey(name string) *PluginKey {
	return &PluginKey{key: createKey(name)}
}

// Get the active plugin with this key, if any, from an editor state.
func (k *PluginKey) Get(s *EditorState) *Plugin {
	return s.pluginsByKey[k.key]
}

// GetState gets the plugin's state from an editor state.
func (k *PluginKey) GetState(s *EditorState) interface{} {
	return s.fields[k.key]
}

// String returns the unique name of the key.
func (k *PluginKey) String() string {
	return k.key
}
