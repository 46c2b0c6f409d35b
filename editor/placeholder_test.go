package editor_test

import (
	"testing"

	"github.com/shodgson/eddytor/decoration"
	"github.com/shodgson/eddytor/editor"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeholdersOf(start builder.NodeWithTag, allBlocks bool) []*decoration.Decoration {
	plugin := editor.PlaceholderPlugin(nil, allBlocks)
	s := builder.State(start, plugin)
	return plugin.Props().Decorations(s).All()
}

func TestPlaceholderOnEmptyDocument(t *testing.T) {
	decos := placeholdersOf(doc(p()), false)
	require.Len(t, decos, 1)
	assert.Equal(t, 0, decos[0].From)
	assert.Equal(t, 2, decos[0].To)
	assert.Equal(t, editor.PlaceholderClass, decos[0].Class())
	assert.Equal(t, editor.DefaultPlaceholders["paragraph"], decos[0].Attrs["data-placeholder"])
}

func TestPlaceholderOnFirstBlockOnly(t *testing.T) {
	decos := placeholdersOf(doc(h1(), p()), false)
	require.Len(t, decos, 1)
	assert.Equal(t, "Heading", decos[0].Attrs["data-placeholder"])

	assert.Empty(t, placeholdersOf(doc(p("x"), p()), false))
	assert.Empty(t, placeholdersOf(doc(pre(), p()), false))

	decos = placeholdersOf(doc(p("x"), p()), true)
	require.Len(t, decos, 1)
	assert.Equal(t, 3, decos[0].From)
	assert.Equal(t, 5, decos[0].To)
}

func TestPlaceholderInsideLists(t *testing.T) {
	decos := placeholdersOf(doc(ul(li(p()))), false)
	require.Len(t, decos, 1)
	assert.Equal(t, 2, decos[0].From)
	assert.Equal(t, 4, decos[0].To)
}

func TestPlaceholderTexts(t *testing.T) {
	plugin := editor.PlaceholderPlugin(map[string]string{"default": "Write here"}, false)
	s := builder.State(doc(p()), plugin)
	decos := plugin.Props().Decorations(s).All()
	require.Len(t, decos, 1)
	assert.Equal(t, "Write here", decos[0].Attrs["data-placeholder"])
}
