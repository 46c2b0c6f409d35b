// Package editor is the interaction layer of the Eddytor editor: the
// command catalog and its registry, the key handling state machines for
// lists, checklists, code blocks and tables, the slash menu, the link
// dialog and the Session that ties them to an editor state.
package editor

import (
	"errors"

	"github.com/shodgson/eddytor/state"
)

var (
	// ErrCommandNotFound is reported when a command id is not registered.
	ErrCommandNotFound = errors.New("command not found")
	// ErrPreconditionFailed is reported when a command cannot run in the
	// current context.
	ErrPreconditionFailed = errors.New("command cannot be executed in the current context")
)

// Context is what a command runs against: the current state and a way to
// dispatch transactions.
type Context struct {
	State    *state.EditorState
	Dispatch func(tr *state.Transaction)
	// Args are optional arguments, like "color" for the text color
	// command.
	Args map[string]interface{}
	// Links opens the link dialog. Commands that need it fail without it.
	Links LinkOpener
}

// Arg returns the string argument with the given name, or def.
func (c *Context) Arg(name, def string) string {
	if v, ok := c.Args[name].(string); ok && v != "" {
		return v
	}
	return def
}

// run is a shortcut to run a state command against the context.
func (c *Context) run(cmd state.Command) bool {
	return cmd(c.State, c.Dispatch, nil)
}

// Result is the outcome of a command. Failures are data: Success is false
// and Message says why; Err keeps the underlying error when there is one.
type Result struct {
	Success bool
	Message string
	// Pending is set by commands that hand off to a dialog: the document
	// is changed later, when the dialog is submitted.
	Pending bool
	Err     error
}

// Ok is a successful result.
func Ok() Result {
	return Result{Success: true}
}

// Fail is a failed result with a message.
func Fail(message string) Result {
	return Result{Message: message}
}

// Command is an editor operation that can be found in menus and run by id.
type Command interface {
	ID() string
	Name() string
	Description() string
	Icon() string
	Keywords() []string
	// CanExecute tells whether the command applies in the context. It has
	// no side effects.
	CanExecute(ctx *Context) bool
	// Execute runs the command. It should only be called when CanExecute
	// is true.
	Execute(ctx *Context) Result
}

// Info holds the descriptive part of a command. Embed it to implement the
// metadata methods of Command.
type Info struct {
	id          string
	name        string
	description string
	icon        string
	keywords    []string
}

// NewInfo creates the metadata of a command.
func NewInfo(id, name, description, icon string, keywords ...string) Info {
	return Info{id: id, name: name, description: description, icon: icon, keywords: keywords}
}

func (i Info) ID() string          { return i.id }
func (i Info) Name() string        { return i.name }
func (i Info) Description() string { return i.description }
func (i Info) Icon() string        { return i.icon }
func (i Info) Keywords() []string  { return i.keywords }

// StateCommand adapts a state.Command: it can execute when the state
// command applies, and executing it dispatches the state command.
type StateCommand struct {
	Info
	Cmd state.Command
	// Failure is the message of the result when the command does not
	// apply.
	Failure string
}

// NewStateCommand wraps a state command in a Command.
func NewStateCommand(info Info, cmd state.Command, failure string) *StateCommand {
	return &StateCommand{Info: info, Cmd: cmd, Failure: failure}
}

// CanExecute implements Command.
func (c *StateCommand) CanExecute(ctx *Context) bool {
	return c.Cmd(ctx.State, nil, nil)
}

// Execute implements Command.
func (c *StateCommand) Execute(ctx *Context) Result {
	if !ctx.run(c.Cmd) {
		return Fail(c.Failure)
	}
	return Ok()
}

var _ Command = &StateCommand{}
