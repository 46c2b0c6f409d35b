package editor_test

import (
	"errors"
	"testing"

	"github.com/shodgson/eddytor/editor"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/shodgson/eddytor/state"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	out     = builder.Eddytor
	doc     = out.Node("doc")
	p       = out.Node("p")
	pre     = out.Node("pre")
	h1      = out.Node("h1")
	ul      = out.Node("ul")
	li      = out.Node("li")
	check   = out.Node("check")
	ci      = out.Node("ci")
	callout = out.Node("callout")
	table   = out.Node("table")
	tr      = out.Node("tr")
	td      = out.Node("td")
	th      = out.Node("th")
	hr      = out.Node("hr")
	strong  = out.Mark("strong")
	link    = out.Mark("link")
)

type testCommand struct {
	editor.Info
	can bool
	run func(ctx *editor.Context) editor.Result
}

func (c *testCommand) CanExecute(*editor.Context) bool { return c.can }

func (c *testCommand) Execute(ctx *editor.Context) editor.Result {
	return c.run(ctx)
}

func newCommand(id, name string, can bool, run func(*editor.Context) editor.Result) *testCommand {
	if run == nil {
		run = func(*editor.Context) editor.Result { return editor.Ok() }
	}
	return &testCommand{Info: editor.NewInfo(id, name, "", ""), can: can, run: run}
}

// contextFor returns a command context over a state, where dispatched
// transactions update the state.
func contextFor(t *testing.T, s *state.EditorState) (*editor.Context, *state.SimpleView) {
	t.Helper()
	view := state.NewSimpleView(s)
	ctx := &editor.Context{State: s, Dispatch: view.Dispatch}
	return ctx, view
}

func TestRegistry_DuplicateID(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := editor.NewRegistry(zap.New(core))

	r.Register(newCommand("bold", "First", true, nil))
	r.Register(newCommand("bold", "Second", true, nil))

	cmd, err := r.Get("bold")
	require.NoError(t, err)
	assert.Equal(t, "First", cmd.Name())
	assert.Len(t, r.List(), 1)
	assert.Equal(t, 1, logs.FilterMessage("command is already registered").Len())
}

func TestRegistry_Search(t *testing.T) {
	r := editor.NewRegistryWithBuiltins(eddytor.Schema, nil)

	ids := func(cmds []editor.Command) []string {
		var result []string
		for _, cmd := range cmds {
			result = append(result, cmd.ID())
		}
		return result
	}
	assert.Equal(t, []string{"heading1", "heading2", "heading3"}, ids(r.Search("heading")))
	assert.Equal(t, []string{"heading1", "heading2", "heading3"}, ids(r.Search("  HEADING ")))
	assert.Equal(t,
		[]string{"info-callout", "tip-callout", "warning-callout", "critical-callout"},
		ids(r.Search("callout")))
	assert.Equal(t, []string{"critical-callout"}, ids(r.Search("danger")))
	assert.Len(t, r.Search(""), len(r.List()))
	assert.Empty(t, r.Search("no such thing"))
}

func TestRegistry_ExecuteUnknownCommand(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := editor.NewRegistryWithBuiltins(eddytor.Schema, zap.New(core))
	ctx, _ := contextFor(t, builder.State(doc(p("<a>foo"))))

	result := r.Execute("heading4", ctx)
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, editor.ErrCommandNotFound))
	assert.Contains(t, result.Message, "did you mean heading1, heading2, heading3?")
	assert.Equal(t, 1, logs.FilterMessage("cannot execute command").Len())

	_, err := r.Get("zzzzzzzzzzzz")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestRegistry_ExecutePreconditionFailed(t *testing.T) {
	r := editor.NewRegistry(nil)
	ran := false
	r.Register(newCommand("never", "Never", false, func(*editor.Context) editor.Result {
		ran = true
		return editor.Ok()
	}))
	ctx, _ := contextFor(t, builder.State(doc(p("<a>foo"))))

	result := r.Execute("never", ctx)
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Err, editor.ErrPreconditionFailed))
	assert.False(t, ran)
}

func TestRegistry_ExecuteRecoversPanics(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := editor.NewRegistry(zap.New(core))
	r.Register(newCommand("boom", "Boom", true, func(*editor.Context) editor.Result {
		panic("boom")
	}))
	ctx, _ := contextFor(t, builder.State(doc(p("<a>foo"))))

	var result editor.Result
	require.NotPanics(t, func() { result = r.Execute("boom", ctx) })
	assert.False(t, result.Success)
	assert.Equal(t, "Error executing command: boom", result.Message)
	assert.Equal(t, 1, logs.FilterMessage("command panicked").Len())
}

type panickyCheck struct{ editor.Info }

func (panickyCheck) CanExecute(*editor.Context) bool { panic("no selection") }

func (panickyCheck) Execute(*editor.Context) editor.Result { return editor.Ok() }

func TestRegistry_ExecuteRecoversPanicsInCanExecute(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := editor.NewRegistry(zap.New(core))
	r.Register(panickyCheck{editor.NewInfo("check", "Check", "", "")})
	ctx, _ := contextFor(t, builder.State(doc(p("<a>foo"))))

	var result editor.Result
	require.NotPanics(t, func() { result = r.Execute("check", ctx) })
	assert.False(t, result.Success)
	assert.Equal(t, "Error executing command: no selection", result.Message)
	assert.Equal(t, 1, logs.FilterMessage("command panicked").Len())
}

func TestRegistry_ExecuteWithoutState(t *testing.T) {
	r := editor.NewRegistryWithBuiltins(eddytor.Schema, nil)

	for _, ctx := range []*editor.Context{nil, {}} {
		var result editor.Result
		require.NotPanics(t, func() { result = r.Execute("bold", ctx) })
		assert.False(t, result.Success)
		assert.True(t, errors.Is(result.Err, editor.ErrPreconditionFailed), result.Message)
	}
}

func TestRegistry_Clear(t *testing.T) {
	r := editor.NewRegistryWithBuiltins(eddytor.Schema, nil)
	require.NotEmpty(t, r.List())

	r.Clear()
	assert.Empty(t, r.List())
	_, err := r.Get("bold")
	assert.True(t, errors.Is(err, editor.ErrCommandNotFound))

	r.Register(newCommand("bold", "Bold", true, nil))
	assert.Len(t, r.List(), 1)
}
