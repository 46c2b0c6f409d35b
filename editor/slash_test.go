package editor_test

import (
	"testing"

	"github.com/shodgson/eddytor/editor"
	"github.com/shodgson/eddytor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slashOf(s *editor.Session) editor.SlashState {
	return editor.GetSlashState(s.State())
}

func TestSlashMenuOpens(t *testing.T) {
	s := newSession(t, doc(p("<a>")))
	var events []editor.SlashEvent
	s.OnSlash(func(event editor.SlashEvent) { events = append(events, event) })

	typeText(s, "/")
	assert.Equal(t, editor.SlashState{Active: true, Query: "", Pos: 1}, slashOf(s))
	require.Len(t, events, 1)
	assert.True(t, events[0].State.Active)

	typeText(s, "foo")
	assert.Equal(t, editor.SlashState{Active: true, Query: "foo", Pos: 1}, slashOf(s))
	assert.Len(t, events, 4)
	assert.Equal(t, "foo", events[3].State.Query)
}

func TestSlashMenuBackspace(t *testing.T) {
	s := newSession(t, doc(p("<a>")))
	typeText(s, "/foo")

	for i := 0; i < 3; i++ {
		require.True(t, press(s, "Backspace"))
	}
	assert.Equal(t, editor.SlashState{Active: true, Query: "", Pos: 1}, slashOf(s))
	assertSessionDoc(t, s, doc(p("/")))

	require.True(t, press(s, "Backspace"))
	assert.False(t, slashOf(s).Active)
	assertSessionDoc(t, s, doc(p()))
}

func TestSlashMenuNeedsWhitespaceBefore(t *testing.T) {
	s := newSession(t, doc(p("<a>")))
	typeText(s, "a/")
	assert.False(t, slashOf(s).Active)

	s = newSession(t, doc(p("<a>")))
	typeText(s, "a /b")
	assert.Equal(t, editor.SlashState{Active: true, Query: "b", Pos: 3}, slashOf(s))

	typeText(s, " c")
	assert.Equal(t, editor.SlashState{Active: true, Query: "b c", Pos: 3}, slashOf(s))
}

func TestSlashMenuQueryCannotStartWithSpace(t *testing.T) {
	s := newSession(t, doc(p("<a>")))
	typeText(s, "/ x")
	assert.False(t, slashOf(s).Active)
}

func TestSlashMenuNotInCode(t *testing.T) {
	s := newSession(t, doc(pre("<a>")))
	typeText(s, "/")
	assert.False(t, slashOf(s).Active)
	assertSessionDoc(t, s, doc(pre("/")))
}

func TestSlashMenuClosesOnOutsideClick(t *testing.T) {
	s := newSession(t, doc(p("<a>")))
	typeText(s, "/foo")

	assert.False(t, s.HandleDOMEvent(&state.DOMEvent{Type: "mousedown", Inside: true}))
	assert.True(t, slashOf(s).Active)

	s.HandleOutsideClick()
	assert.False(t, slashOf(s).Active)
	assertSessionDoc(t, s, doc(p("foo")))
}

func TestSlashMenuClosesOnBlur(t *testing.T) {
	s := newSession(t, doc(p("x <a>")))
	typeText(s, "/ta")

	s.HandleBlur()
	assert.False(t, slashOf(s).Active)
	assertSessionDoc(t, s, doc(p("x ta")))
}

func TestSlashMenuClosesWhenCursorLeaves(t *testing.T) {
	s := newSession(t, doc(p("foo"), p("<a>")))
	typeText(s, "/x")
	require.True(t, slashOf(s).Active)

	sel, err := state.CreateTextSelection(s.State().Doc, 2)
	require.NoError(t, err)
	s.Dispatch(s.State().Tr().SetSelection(sel))
	assert.False(t, slashOf(s).Active)
	assertSessionDoc(t, s, doc(p("foo"), p("/x")))
}

func TestSlashMenuCapturesNavigationKeys(t *testing.T) {
	s := newSession(t, doc(p("<a>")))
	typeText(s, "/he")
	var keys []string
	s.OnSlash(func(event editor.SlashEvent) {
		if event.Key != "" {
			keys = append(keys, event.Key)
		}
	})
	before := s.State()

	for _, key := range []string{"ArrowDown", "ArrowUp", "Enter", "Escape"} {
		assert.True(t, press(s, key), key)
	}
	assert.Equal(t, []string{"ArrowDown", "ArrowUp", "Enter", "Escape"}, keys)
	assert.Same(t, before, s.State())
	assert.True(t, slashOf(s).Active)
}

func TestSelectSlashCommand(t *testing.T) {
	s := newSession(t, doc(p("<a>")))
	typeText(s, "/h1")

	result := s.SelectSlashCommand("heading1")
	require.True(t, result.Success, result.Message)
	assertSessionDoc(t, s, doc(h1()))
	assert.False(t, slashOf(s).Active)

	result = s.SelectSlashCommand("heading1")
	assert.False(t, result.Success)
	assert.Equal(t, "The slash menu is not open", result.Message)
}

func TestSelectSlashCommandKeepsTextBefore(t *testing.T) {
	s := newSession(t, doc(p("foo <a>")))
	typeText(s, "/quo")

	require.True(t, s.SelectSlashCommand("info-callout").Success)
	assertSessionDoc(t, s, doc(p("foo "), callout(p())))
}
