package editor_test

import (
	"testing"

	"github.com/shodgson/eddytor/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func href(url string) map[string]interface{} {
	return map[string]interface{}{"href": url}
}

func openDialog(t *testing.T, s *editor.Session) *editor.LinkDialog {
	t.Helper()
	result := s.Execute("hyperlink", nil)
	require.True(t, result.Success)
	require.True(t, result.Pending)
	dialog := s.LinkDialog()
	require.NotNil(t, dialog)
	return dialog
}

func TestLinkDialogLinksSelection(t *testing.T) {
	s := newSession(t, doc(p("<a>foo<b>")))
	dialog := openDialog(t, s)
	assert.Equal(t, "foo", dialog.Text)
	assert.Equal(t, "", dialog.URL)

	// The document changes while the dialog is open.
	tr := s.State().Tr()
	require.NoError(t, tr.Insert(0, p("zz").Node))
	s.Dispatch(tr)

	require.NoError(t, dialog.Submit("https://x", ""))
	assertSessionDoc(t, s, doc(p("zz"), p(link(href("https://x"), "foo"))))
	assert.True(t, dialog.Closed())
	assert.Nil(t, s.LinkDialog())
}

func TestLinkDialogReplacesLink(t *testing.T) {
	s := newSession(t, doc(p(link(href("https://old"), "<a>foo<b>"))))
	dialog := openDialog(t, s)
	assert.Equal(t, "https://old", dialog.URL)

	require.NoError(t, dialog.Submit(" https://new ", ""))
	assertSessionDoc(t, s, doc(p(link(href("https://new"), "foo"))))
}

func TestLinkDialogInsertsText(t *testing.T) {
	s := newSession(t, doc(p("foo <a>")))
	require.NoError(t, openDialog(t, s).Submit("https://x", "site"))
	assertSessionDoc(t, s, doc(p("foo ", link(href("https://x"), "site"))))

	s = newSession(t, doc(p("<a>")))
	require.NoError(t, openDialog(t, s).Submit("https://x", ""))
	assertSessionDoc(t, s, doc(p(link(href("https://x"), "https://x"))))
}

func TestLinkDialogCancel(t *testing.T) {
	s := newSession(t, doc(p("<a>foo<b>")))
	before := s.State()
	dialog := openDialog(t, s)

	dialog.Cancel()
	assert.True(t, dialog.Closed())
	assert.Nil(t, s.LinkDialog())
	assert.ErrorIs(t, dialog.Submit("https://x", ""), editor.ErrDialogClosed)
	assert.Same(t, before, s.State())
}

func TestLinkDialogEmptyURL(t *testing.T) {
	s := newSession(t, doc(p("<a>foo<b>")))
	dialog := openDialog(t, s)

	assert.ErrorIs(t, dialog.Submit("  ", ""), editor.ErrEmptyURL)
	assert.False(t, dialog.Closed())
	assert.Same(t, dialog, s.LinkDialog())
}

func TestLinkDialogReopen(t *testing.T) {
	s := newSession(t, doc(p("<a>foo<b>")))
	first := openDialog(t, s)
	second := openDialog(t, s)

	assert.True(t, first.Closed())
	assert.NotSame(t, first, second)
	assert.ErrorIs(t, first.Submit("https://x", ""), editor.ErrDialogClosed)
	require.NoError(t, second.Submit("https://x", ""))
}
