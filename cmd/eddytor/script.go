package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shodgson/eddytor/editor"
	"github.com/shodgson/eddytor/keymap"
	"github.com/shodgson/eddytor/state"
)

// step is a line of an action script: an operation and its argument, the
// rest of the line.
type step struct {
	line int
	op   string
	arg  string
}

var errUnknownOp = errors.New("unknown operation")

// parseScript reads an action script. Blank lines and lines starting with
// '#' are skipped. The operations are:
//
//	key Mod-b          press a key, with modifiers
//	type some text     type text, one character at a time ("quoted" for escapes)
//	command id {args}  execute a command, with optional JSON arguments
//	slash id           pick a command in the open slash menu
//	select 3 [5]       set the text selection
//	link url [text]    submit the open link dialog
//	cancel-link        close the open link dialog
//	check id           click the checkbox of a checklist item
//	blur               the editor loses the focus
//	outside-click      click outside of the editor
func parseScript(r io.Reader) ([]step, error) {
	var steps []step
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if trimmed := strings.TrimSpace(text); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		op, arg, _ := strings.Cut(strings.TrimLeft(text, " \t"), " ")
		switch op {
		case "key", "type", "command", "slash", "select", "link", "check":
			if strings.TrimSpace(arg) == "" {
				return nil, fmt.Errorf("line %d: %s needs an argument", line, op)
			}
		case "cancel-link", "blur", "outside-click":
		default:
			return nil, fmt.Errorf("line %d: %w %q", line, errUnknownOp, op)
		}
		steps = append(steps, step{line: line, op: op, arg: arg})
	}
	return steps, scanner.Err()
}

// parseKey turns a key description like "Shift-Tab" or "Mod-b" into a key
// event. "Space" is the space bar.
func parseKey(desc string) (*state.KeyEvent, error) {
	parts := strings.Split(desc, "-")
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		// "Ctrl--" is the minus key.
		parts = append(parts[:len(parts)-2], "-")
	}
	event := &state.KeyEvent{Key: parts[len(parts)-1]}
	if event.Key == "Space" {
		event.Key = " "
	}
	for _, mod := range parts[:len(parts)-1] {
		switch mod {
		case "Shift", "s":
			event.Shift = true
		case "Ctrl", "Control", "c":
			event.Ctrl = true
		case "Alt", "a":
			event.Alt = true
		case "Meta", "Cmd", "m":
			event.Meta = true
		case "Mod":
			if keymap.Mac {
				event.Meta = true
			} else {
				event.Ctrl = true
			}
		default:
			return nil, fmt.Errorf("unknown modifier %q in %q", mod, desc)
		}
	}
	return event, nil
}

// runner replays the steps of a script in a session. The input events go
// through the event source the session is attached to.
type runner struct {
	session *editor.Session
	events  *editor.Events
	notices *notices
}

func (r *runner) run(steps []step) error {
	for _, st := range steps {
		if err := r.apply(st); err != nil {
			return fmt.Errorf("line %d: %s: %w", st.line, st.op, err)
		}
		if err := r.session.Err(); err != nil {
			return fmt.Errorf("line %d: %s: %w", st.line, st.op, err)
		}
	}
	return nil
}

func (r *runner) apply(st step) error {
	switch st.op {
	case "key":
		event, err := parseKey(strings.TrimSpace(st.arg))
		if err != nil {
			return err
		}
		r.events.Emit(editor.Event{Key: event})
	case "type":
		text := st.arg
		if strings.HasPrefix(text, `"`) {
			unquoted, err := strconv.Unquote(strings.TrimSpace(text))
			if err != nil {
				return fmt.Errorf("bad quoted text: %w", err)
			}
			text = unquoted
		}
		for _, ch := range text {
			r.events.Emit(editor.Event{Text: string(ch)})
		}
	case "command":
		id, rawArgs, _ := strings.Cut(strings.TrimSpace(st.arg), " ")
		var args map[string]interface{}
		if rawArgs = strings.TrimSpace(rawArgs); rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return fmt.Errorf("bad arguments: %w", err)
			}
		}
		r.notices.result(id, r.session.Execute(id, args))
	case "slash":
		id := strings.TrimSpace(st.arg)
		r.notices.result(id, r.session.SelectSlashCommand(id))
	case "select":
		return r.selectRange(strings.Fields(st.arg))
	case "link":
		dialog := r.session.LinkDialog()
		if dialog == nil {
			return errors.New("no link dialog is open")
		}
		url, text, _ := strings.Cut(strings.TrimSpace(st.arg), " ")
		return dialog.Submit(url, text)
	case "cancel-link":
		if dialog := r.session.LinkDialog(); dialog != nil {
			dialog.Cancel()
		}
	case "check":
		r.events.Emit(editor.Event{Checkbox: strings.TrimSpace(st.arg)})
	case "blur":
		r.events.Emit(editor.Event{DOM: &state.DOMEvent{Type: "blur"}})
	case "outside-click":
		r.events.Emit(editor.Event{DOM: &state.DOMEvent{Type: "mousedown"}})
	}
	return nil
}

func (r *runner) selectRange(fields []string) error {
	if len(fields) > 2 {
		return errors.New("select takes an anchor and an optional head")
	}
	positions := make([]int, len(fields))
	for i, field := range fields {
		pos, err := strconv.Atoi(field)
		if err != nil {
			return fmt.Errorf("bad position %q", field)
		}
		positions[i] = pos
	}
	if len(positions) == 1 {
		positions = append(positions, positions[0])
	}
	s := r.session.State()
	anchor, err := s.Doc.Resolve(positions[0])
	if err != nil {
		return err
	}
	head, err := s.Doc.Resolve(positions[1])
	if err != nil {
		return err
	}
	r.session.Dispatch(s.Tr().SetSelection(state.NewTextSelection(anchor, head)))
	return nil
}
