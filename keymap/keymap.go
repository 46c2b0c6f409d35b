// Package keymap binds key names like "Mod-b" or "Shift-Enter" to commands.
package keymap

import (
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/shodgson/eddytor/state"
)

// Mac tells whether "Mod" means Meta (Cmd) instead of Ctrl.
var Mac = runtime.GOOS == "darwin"

func normalizeKeyName(name string) string {
	parts := strings.Split(name, "-")
	result := parts[len(parts)-1]
	if result == "Space" {
		result = " "
	}
	var alt, ctrl, shift, meta bool
	for _, mod := range parts[:len(parts)-1] {
		switch {
		case mod == "cmd" || mod == "m" || mod == "Cmd" || mod == "Meta":
			meta = true
		case mod == "a" || mod == "Alt" || mod == "alt":
			alt = true
		case mod == "c" || mod == "Ctrl" || mod == "ctrl" || mod == "Control":
			ctrl = true
		case mod == "s" || mod == "Shift" || mod == "shift":
			shift = true
		case mod == "Mod" || mod == "mod":
			if Mac {
				meta = true
			} else {
				ctrl = true
			}
		default:
			panic("unrecognized modifier name: " + mod)
		}
	}
	if alt {
		result = "Alt-" + result
	}
	if ctrl {
		result = "Ctrl-" + result
	}
	if meta {
		result = "Meta-" + result
	}
	if shift {
		result = "Shift-" + result
	}
	return result
}

// Normalize returns the bindings with their key names in canonical form.
func Normalize(bindings map[string]state.Command) map[string]state.Command {
	copied := make(map[string]state.Command, len(bindings))
	for name, cmd := range bindings {
		copied[normalizeKeyName(name)] = cmd
	}
	return copied
}

func modifiers(name string, event *state.KeyEvent, shift bool) string {
	if event.Alt {
		name = "Alt-" + name
	}
	if event.Ctrl {
		name = "Ctrl-" + name
	}
	if event.Meta {
		name = "Meta-" + name
	}
	if shift && event.Shift {
		name = "Shift-" + name
	}
	return name
}

// KeyName returns the canonical name of a key event, as used in bindings.
func KeyName(event *state.KeyEvent) string {
	return modifiers(event.Key, event, true)
}

func isSingleChar(key string) bool {
	return utf8.RuneCountInString(key) == 1
}

// KeydownHandler returns a key handler for the given bindings, suitable as
// the HandleKeyDown prop of a plugin.
func KeydownHandler(bindings map[string]state.Command) func(view state.View, event *state.KeyEvent) bool {
	m := Normalize(bindings)
	return func(view state.View, event *state.KeyEvent) bool {
		run := func(name string) bool {
			cmd := m[name]
			return cmd != nil && cmd(view.State(), view.Dispatch, view)
		}
		name := event.Key
		if run(modifiers(name, event, true)) {
			return true
		}
		if !isSingleChar(name) || name == " " {
			return false
		}
		// Shifted characters are also tried without the Shift modifier.
		if event.Shift && run(modifiers(name, event, false)) {
			return true
		}
		if event.Alt || event.Meta || event.Ctrl {
			if base := strings.ToLower(name); base != name && run(modifiers(base, event, true)) {
				return true
			}
		}
		return false
	}
}

// New creates a keymap plugin for the given bindings. Bindings should map
// key names to commands. Key names may be strings like "Shift-Ctrl-Enter":
// a key identifier prefixed with zero or more modifiers. "Mod-" is Cmd on
// Mac and Ctrl elsewhere. When several keymap plugins are active, the ones
// given earlier take precedence.
func New(bindings map[string]state.Command) *state.Plugin {
	return state.NewPlugin(&state.PluginSpec{
		Props: state.Props{HandleKeyDown: KeydownHandler(bindings)},
	})
}
