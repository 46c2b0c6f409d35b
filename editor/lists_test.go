package editor_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/shodgson/eddytor/editor"
	"github.com/shodgson/eddytor/schema/eddytor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(value string) map[string]interface{} {
	return map[string]interface{}{"id": value}
}

// stubItemIDs makes the new checklist item ids predictable.
func stubItemIDs(t *testing.T, ids ...string) {
	t.Helper()
	previous := eddytor.NewItemID
	n := 0
	eddytor.NewItemID = func() string {
		if n < len(ids) {
			n++
			return ids[n-1]
		}
		n++
		return fmt.Sprintf("item-%d", n)
	}
	t.Cleanup(func() { eddytor.NewItemID = previous })
}

func TestEnterSplitsListItem(t *testing.T) {
	s := newSession(t, doc(ul(li(p("foo<a>bar")))))
	require.True(t, press(s, "Enter"))
	assertSessionDoc(t, s, doc(ul(li(p("foo")), li(p("bar")))))
}

func TestEnterSplitsChecklistItem(t *testing.T) {
	stubItemIDs(t, "new")
	done := out.Node("done")
	s := newSession(t, doc(check(done(id("one"), p("foo<a>bar")))))

	require.True(t, press(s, "Enter"))
	assertSessionDoc(t, s, doc(check(done(id("one"), p("foo")), ci(id("new"), p("bar")))))
}

func TestEnterWalksEmptyItemOut(t *testing.T) {
	s := newSession(t, doc(ul(li(p("foo"), ul(li(p("<a>")))))))

	require.True(t, press(s, "Enter"))
	assertSessionDoc(t, s, doc(ul(li(p("foo")), li(p()))))

	require.True(t, press(s, "Enter"))
	assertSessionDoc(t, s, doc(ul(li(p("foo"))), p()))

	require.True(t, press(s, "Enter"))
	assertSessionDoc(t, s, doc(ul(li(p("foo"))), p(), p()))
}

func TestTabIndentsListItem(t *testing.T) {
	start := doc(ul(li(p("foo")), li(p("<a>bar"))))
	s := newSession(t, start)

	require.True(t, press(s, "Tab"))
	assertSessionDoc(t, s, doc(ul(li(p("foo"), ul(li(p("bar")))))))

	require.True(t, pressShift(s, "Tab"))
	assertSessionDoc(t, s, start)
}

func TestTabIsConsumedOutsideLists(t *testing.T) {
	start := doc(p("fo<a>o"))
	s := newSession(t, start)
	before := s.State()

	assert.True(t, press(s, "Tab"))
	assert.True(t, pressShift(s, "Tab"))
	assert.Same(t, before, s.State())
}

func TestTabMovesBetweenCells(t *testing.T) {
	s := newSession(t, doc(table(tr(td(p("<a>a")), td(p("b"))))))

	require.True(t, press(s, "Tab"))
	// The whole content of the next cell is selected.
	sel := s.State().Selection
	assert.Equal(t, 9, sel.From())
	assert.Equal(t, 10, sel.To())

	require.True(t, pressShift(s, "Tab"))
	sel = s.State().Selection
	assert.Equal(t, 4, sel.From())
	assert.Equal(t, 5, sel.To())
}

func TestSpaceTogglesChecklistItem(t *testing.T) {
	start := doc(check(ci(id("one"), p("<a>foo"))))
	s := newSession(t, start)

	require.True(t, press(s, " "))
	done := out.Node("done")
	assertSessionDoc(t, s, doc(check(done(id("one"), p("foo")))))

	require.True(t, press(s, " "))
	assertSessionDoc(t, s, start)

	s = newSession(t, doc(check(ci(id("one"), p("f<a>oo")))))
	assert.False(t, press(s, " "))
}

func TestCheckboxClick(t *testing.T) {
	s := newSessionWith(t, doc(check(ci(id("one"), p("foo")), ci(id("two"), p("<a>bar")))),
		editor.SessionConfig{CheckingDelay: 20 * time.Millisecond})

	require.True(t, s.HandleCheckboxClick("two"))
	done := out.Node("done")
	assertSessionDoc(t, s, doc(check(ci(id("one"), p("foo")), done(id("two"), p("bar")))))
	assert.True(t, s.IsChecking("two"))
	assert.False(t, s.IsChecking("one"))

	checking := decorationsWithClass(s.Decorations(), editor.CheckingClass)
	require.Len(t, checking, 1)
	assert.Equal(t, 8, checking[0].From)
	assert.Equal(t, 15, checking[0].To)

	assert.Eventually(t, func() bool { return !s.IsChecking("two") }, time.Second, 5*time.Millisecond)
	assert.Empty(t, decorationsWithClass(s.Decorations(), editor.CheckingClass))

	assert.False(t, s.HandleCheckboxClick("three"))
}

func TestCheckboxClickOutlivesEarlierTimer(t *testing.T) {
	s := newSession(t, doc(check(ci(id("one"), p("<a>foo")))))
	var fired []func()
	editor.SetAfterFunc(s, func(d time.Duration, f func()) *time.Timer {
		fired = append(fired, f)
		return time.AfterFunc(time.Hour, f)
	})

	require.True(t, s.HandleCheckboxClick("one"))
	require.True(t, s.HandleCheckboxClick("one"))
	require.Len(t, fired, 2)

	// The first timer runs late, after the second click replaced it.
	fired[0]()
	assert.True(t, s.IsChecking("one"))

	fired[1]()
	assert.False(t, s.IsChecking("one"))
}

func TestCheckboxClickAfterEdit(t *testing.T) {
	s := newSession(t, doc(check(ci(id("one"), p("foo"))), p("<a>")))

	// Positions shift, ids don't.
	tr := s.State().Tr()
	require.NoError(t, tr.Insert(0, p("zz").Node))
	s.Dispatch(tr)

	require.True(t, s.HandleCheckboxClick("one"))
	done := out.Node("done")
	assertSessionDoc(t, s, doc(p("zz"), check(done(id("one"), p("foo"))), p()))
}

func TestChecklistItemsGetIDs(t *testing.T) {
	stubItemIDs(t, "first", "second")
	s := newSession(t, doc(check(ci(p("<a>foo")), ci(id("x"), p("bar")), ci(id("x"), p("baz")))))

	assertSessionDoc(t, s, doc(check(ci(id("first"), p("foo")), ci(id("x"), p("bar")), ci(id("second"), p("baz")))))
	require.True(t, s.HandleCheckboxClick("second"))
}
