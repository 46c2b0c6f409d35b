package model_test

import (
	"testing"

	"github.com/shodgson/eddytor/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doc(p("ab"), check(ci(p("cd"))))
//
//	0 <p> 1 a 2 b 3 </p> 4 <checklist> 5 <item> 6 <p> 7 c 8 d 9 </p> 10 </item> 11 </checklist> 12
var resolveDoc = doc(p("ab"), check(ci(p("cd"))))

func resolve(t *testing.T, pos int) *model.ResolvedPos {
	t.Helper()
	rp, err := resolveDoc.Resolve(pos)
	require.NoError(t, err)
	return rp
}

func TestResolveDepthAndOffset(t *testing.T) {
	expected := []struct {
		depth, parentOffset int
		parent              string
	}{
		{0, 0, "doc"},
		{1, 0, "paragraph"},
		{1, 1, "paragraph"},
		{1, 2, "paragraph"},
		{0, 4, "doc"},
		{1, 0, "checklist"},
		{2, 0, "checklist_item"},
		{3, 0, "paragraph"},
		{3, 1, "paragraph"},
		{3, 2, "paragraph"},
		{2, 4, "checklist_item"},
		{1, 6, "checklist"},
		{0, 12, "doc"},
	}
	require.Equal(t, len(expected)-1, resolveDoc.Content.Size)
	for pos, e := range expected {
		rp := resolve(t, pos)
		assert.Equal(t, e.depth, rp.Depth, "depth at %d", pos)
		assert.Equal(t, e.parentOffset, rp.ParentOffset, "offset at %d", pos)
		assert.Equal(t, e.parent, rp.Parent().Type.Name, "parent at %d", pos)
		assert.Same(t, resolveDoc.Node, rp.Doc())
	}
}

func TestResolveAncestors(t *testing.T) {
	rp := resolve(t, 8)
	assert.Equal(t, "checklist", rp.Node(1).Type.Name)
	assert.Equal(t, "checklist_item", rp.Node(-1).Type.Name)
	assert.Same(t, rp.Parent(), rp.Node())

	assert.Equal(t, 5, rp.Start(1))
	assert.Equal(t, 7, rp.Start())
	assert.Equal(t, 9, rp.End())
	assert.Equal(t, 10, rp.End(2))
	assert.Equal(t, 12, rp.End(0))

	before, err := rp.Before(1)
	require.NoError(t, err)
	assert.Equal(t, 4, before)
	after, err := rp.After(1)
	require.NoError(t, err)
	assert.Equal(t, 12, after)
	before, err = rp.Before()
	require.NoError(t, err)
	assert.Equal(t, 6, before)
	after, err = rp.After()
	require.NoError(t, err)
	assert.Equal(t, 10, after)

	_, err = rp.Before(0)
	assert.Error(t, err)
	_, err = rp.After(0)
	assert.Error(t, err)

	assert.Equal(t, 1, rp.Index(0))
	assert.Equal(t, 0, rp.Index())
	assert.Equal(t, 1, rp.IndexAfter())
	assert.Equal(t, 1, rp.TextOffset())
	assert.Equal(t, "checklist_1/checklist_item_0/paragraph_0:1", rp.String())
}

func TestResolveNodeBeforeAfter(t *testing.T) {
	rp := resolve(t, 8)
	assert.Equal(t, "c", *rp.NodeBefore().Text)
	assert.Equal(t, "d", *rp.NodeAfter().Text)

	rp = resolve(t, 4)
	assert.Equal(t, "paragraph", rp.NodeBefore().Type.Name)
	assert.Equal(t, "checklist", rp.NodeAfter().Type.Name)

	rp = resolve(t, 0)
	assert.Nil(t, rp.NodeBefore())
	rp = resolve(t, 12)
	assert.Nil(t, rp.NodeAfter())
}

func TestResolveOutOfRange(t *testing.T) {
	_, err := resolveDoc.Resolve(13)
	assert.Error(t, err)
	_, err = resolveDoc.Resolve(-1)
	assert.Error(t, err)
}

func TestResolveSharedDepthAndRange(t *testing.T) {
	rp := resolve(t, 8)
	assert.Equal(t, 3, rp.SharedDepth(7))
	assert.Equal(t, 1, rp.SharedDepth(11))
	assert.Equal(t, 0, rp.SharedDepth(2))

	other := resolve(t, 2)
	assert.False(t, rp.SameParent(other))
	assert.Same(t, rp, rp.Max(other))
	assert.Same(t, other, rp.Min(other))

	r := other.BlockRange(rp)
	require.NotNil(t, r)
	assert.Equal(t, 0, r.Depth)
	assert.Equal(t, 0, r.StartIndex())
	assert.Equal(t, 2, r.EndIndex())

	r = rp.BlockRange(resolve(t, 9))
	require.NotNil(t, r)
	assert.Equal(t, "checklist_item", r.Parent().Type.Name)
	assert.Equal(t, 6, r.Start())
	assert.Equal(t, 10, r.End())
}

func TestResolveMarks(t *testing.T) {
	d := doc(p("a", em("bc"), schema.Text("d", link("http://x"))))
	marksAt := func(pos int) []*model.Mark {
		rp, err := d.Resolve(pos)
		require.NoError(t, err)
		return rp.Marks()
	}
	assert.Empty(t, marksAt(1))
	assert.True(t, model.SameMarkSet(marks(schema.Mark("em")), marksAt(3)))
	// The em mark is inclusive, so it carries on at its end.
	assert.True(t, model.SameMarkSet(marks(schema.Mark("em")), marksAt(4)))
	// Links are not inclusive.
	assert.Empty(t, marksAt(5))
}
