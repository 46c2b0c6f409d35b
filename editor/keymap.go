package editor

import (
	"github.com/shodgson/eddytor/commands"
	"github.com/shodgson/eddytor/keymap"
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/state"
)

// Bindings are the key bindings of the editor. They take precedence over
// the base keymap: a binding that doesn't apply leaves the key to it.
func Bindings(schema *model.Schema) map[string]state.Command {
	bindings := map[string]state.Command{
		"Enter":     commands.Chain(CodeEnter, EnterInList),
		"Backspace": CodeBackspace,
		"Tab":       Tab,
		"Shift-Tab": ShiftTab,
		"Space":     SpaceInChecklist,
		"Mod-a":     SelectAllInCode,
	}
	if typ := schema.Marks["strong"]; typ != nil {
		bindings["Mod-b"] = commands.ToggleMark(typ, nil)
	}
	if typ := schema.Marks["em"]; typ != nil {
		bindings["Mod-i"] = commands.ToggleMark(typ, nil)
	}
	if typ := schema.Marks["code"]; typ != nil {
		bindings["Mod-`"] = commands.ToggleMark(typ, nil)
	}
	return bindings
}

// Keymap returns the keymap plugin of the editor bindings.
func Keymap(schema *model.Schema) *state.Plugin {
	return keymap.New(Bindings(schema))
}
