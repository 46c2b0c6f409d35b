package keymap_test

import (
	"testing"

	"github.com/shodgson/eddytor/keymap"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
)

func recorder(name string, calls *[]string) state.Command {
	return func(*state.EditorState, func(*state.Transaction), state.View) bool {
		*calls = append(*calls, name)
		return true
	}
}

func TestKeyName(t *testing.T) {
	assert.Equal(t, "Shift-Tab", keymap.KeyName(&state.KeyEvent{Key: "Tab", Shift: true}))
	assert.Equal(t, "Ctrl-b", keymap.KeyName(&state.KeyEvent{Key: "b", Ctrl: true}))
	assert.Equal(t, "Shift-Alt-Meta-Enter", keymap.KeyName(&state.KeyEvent{Key: "Enter", Alt: true, Meta: true, Shift: true}))
}

func TestKeydownHandler(t *testing.T) {
	mac := keymap.Mac
	keymap.Mac = false
	defer func() { keymap.Mac = mac }()

	var calls []string
	handler := keymap.KeydownHandler(map[string]state.Command{
		"Mod-b":       recorder("bold", &calls),
		"Shift-Tab":   recorder("lift", &calls),
		"Tab":         recorder("sink", &calls),
		"Space":       recorder("space", &calls),
		"Mod-Shift-t": recorder("addRow", &calls),
		"Mod-a":       recorder("selectAll", &calls),
	})
	view := state.NewSimpleView(builder.State(builder.Doc(builder.P("<a>"))))

	assert.True(t, handler(view, &state.KeyEvent{Key: "b", Ctrl: true}))
	assert.True(t, handler(view, &state.KeyEvent{Key: "Tab", Shift: true}))
	assert.True(t, handler(view, &state.KeyEvent{Key: "Tab"}))
	assert.True(t, handler(view, &state.KeyEvent{Key: " "}))
	assert.True(t, handler(view, &state.KeyEvent{Key: "T", Ctrl: true, Shift: true}))
	assert.True(t, handler(view, &state.KeyEvent{Key: "a", Ctrl: true}))
	assert.False(t, handler(view, &state.KeyEvent{Key: "b", Meta: true}))
	assert.False(t, handler(view, &state.KeyEvent{Key: "Enter"}))
	assert.Equal(t, []string{"bold", "lift", "sink", "space", "addRow", "selectAll"}, calls)
}

func TestUnknownModifierPanics(t *testing.T) {
	assert.Panics(t, func() {
		keymap.Normalize(map[string]state.Command{"Hyper-x": nil})
	})
}

func TestPluginHandlesKeys(t *testing.T) {
	var calls []string
	plugin := keymap.New(map[string]state.Command{"Enter": recorder("enter", &calls)})
	view := state.NewSimpleView(builder.State(builder.Doc(builder.P("<a>"))))
	assert.True(t, plugin.Props().HandleKeyDown(view, &state.KeyEvent{Key: "Enter"}))
	assert.Equal(t, []string{"enter"}, calls)
}
