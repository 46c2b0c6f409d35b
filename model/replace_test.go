package model_test

import (
	"testing"

	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sliceOf(t *testing.T, d builder.NodeWithTag) *model.Slice {
	t.Helper()
	if d.Node == nil {
		return model.EmptySlice
	}
	var slice *model.Slice
	var err error
	if b, ok := d.Tag["b"]; ok {
		slice, err = d.Slice(d.Tag["a"], b)
	} else {
		slice, err = d.Slice(d.Tag["a"])
	}
	require.NoError(t, err)
	return slice
}

func TestNodeSlice(t *testing.T) {
	cases := map[string]struct {
		doc, expected       builder.NodeWithTag
		openStart, openEnd int
	}{
		"half a paragraph":   {doc(p("hello<b> world")), doc(p("hello")), 0, 1},
		"extra content":      {doc(p("hello<b> world"), p("rest")), doc(p("hello")), 0, 1},
		"styles":             {doc(p("hello ", em("WOR<b>LD"))), doc(p("hello ", em("WOR"))), 0, 1},
		"top-level position": {doc(p("a"), "<b>", p("b")), doc(p("a")), 0, 0},
		"deep position": {
			doc(check(ci(p("a")), ci(p("b<b>")))),
			doc(check(ci(p("a")), ci(p("b")))), 0, 3,
		},
		"after a position": {doc(p("hello<a> world")), doc(p(" world")), 1, 0},
		"link after cut": {
			doc(p("a sentence with an ", em("emphasized ", a("li<a>nk")), " in it")),
			doc(p(em(a("nk")), " in it")), 1, 0,
		},
		"from a deep position": {
			doc(callout(ul(li(p("a")), li(p("<a>b"))))),
			doc(callout(ul(li(p("b"))))), 4, 0,
		},
		"part of a text node": {doc(p("hell<a>o wo<b>rld")), p("o wo"), 0, 0},
		"across paragraphs":   {doc(p("on<a>e"), p("t<b>wo")), doc(p("e"), p("t")), 1, 1},
		"across cells": {
			doc(table(tr(td(p("a<a>b")), td(p("c<b>d"))))),
			tr(td(p("b")), td(p("c"))), 2, 2,
		},
	}
	for name, c := range cases {
		slice := sliceOf(t, c.doc)
		assert.True(t, slice.Content.Eq(c.expected.Content), "%s: %s", name, slice)
		assert.Equal(t, c.openStart, slice.OpenStart, name)
		assert.Equal(t, c.openEnd, slice.OpenEnd, name)
	}

	empty, err := doc(p("x")).Slice(2, 2)
	require.NoError(t, err)
	assert.Same(t, model.EmptySlice, empty)
}

func TestNodeReplace(t *testing.T) {
	cases := map[string][3]builder.NodeWithTag{
		"joins on delete": {doc(p("on<a>e"), p("t<b>wo")), {}, doc(p("onwo"))},
		"merges matching blocks": {
			doc(p("on<a>e"), p("t<b>wo")), doc(p("xx<a>xx"), p("yy<b>yy")), doc(p("onxx"), p("yywo")),
		},
		"inserts text": {
			doc(p("before"), p("on<a><b>e"), p("after")), doc(p("<a>H<b>")), doc(p("before"), p("onHe"), p("after")),
		},
		"keeps the left block type": {doc(p("on<a>e"), p("t<b>wo")), doc(h1("<a>H<b>")), doc(p("onHwo"))},
		"joins checklist items": {
			doc(check(ci(p("on<a>e")), ci(p("t<b>wo")))), {}, doc(check(ci(p("onwo")))),
		},
		"inserts into a cell": {
			doc(table(tr(td(p("a<a><b>b")), td(p("c"))))), doc(p("<a>X<b>")), doc(table(tr(td(p("aXb")), td(p("c"))))),
		},
		"splits a callout": {
			doc(callout(p("foo<a>x<b>bar"))),
			doc(callout(p("<a>x")), callout(p("y<b>"))),
			doc(callout(p("foox")), callout(p("ybar"))),
		},
		"lopsided slice": {
			doc(callout(check(ci(p("on<a>e")), ci(p("two")), "<b>", ci(p("three"))))),
			doc(check(ci(p("aa<a>aa")), ci(p("bb")), "<b>", ci(p("dd")))),
			doc(callout(check(ci(p("onaa")), ci(p("bb")), ci(p("three"))))),
		},
		"merges multiple levels": {
			doc(callout(callout(p("hell<a>o"))), callout(callout(p("<b>a")))), {}, doc(callout(callout(p("hella")))),
		},
		"keeps a heading": {doc(h1("foo<a>bar"), "<b>"), doc(p("foo<a>baz"), "<b>"), doc(h1("foobaz"))},
	}
	for name, c := range cases {
		d, insert, expected := c[0], c[1], c[2]
		got, err := d.Replace(d.Tag["a"], d.Tag["b"], sliceOf(t, insert))
		if assert.NoError(t, err, name) {
			assert.True(t, got.Eq(expected.Node), "%s: %s != %s", name, got, expected.Node)
		}
	}
}

func TestNodeReplaceErrors(t *testing.T) {
	cases := map[string]struct {
		doc, insert builder.NodeWithTag
		message     string
	}{
		"left side too deep": {doc(p("<a><b>")), doc(callout(p("<a>")), "<b>"), "deeper"},
		"depth mismatch":     {doc(p("<a><b>")), doc("<a>", p("<b>")), "Inconsistent"},
		"bad fit":            {doc("<a><b>"), doc(p("<a>foo<b>")), "Invalid content"},
		"unjoinable content": {doc(check(ci(p("a")), "<a>"), "<b>"), doc(p("foo", "<a>"), "<b>"), "Cannot join"},
		"unjoinable delete":  {doc(callout(p("a"), "<a>"), check("<b>", ci(p("b")))), builder.NodeWithTag{}, "Cannot join"},
		"empty callout":      {doc(callout("<a>", p("hi")), "<b>"), doc(callout("hi", "<a>"), "<b>"), "Invalid content"},
	}
	for name, c := range cases {
		_, err := c.doc.Replace(c.doc.Tag["a"], c.doc.Tag["b"], sliceOf(t, c.insert))
		var replaceErr *model.ReplaceError
		if assert.ErrorAs(t, err, &replaceErr, name) {
			assert.Contains(t, err.Error(), c.message, name)
		}
	}
}

func TestSliceOps(t *testing.T) {
	slice := sliceOf(t, doc(p("ab<a>cd"), p("ef<b>gh")))
	assert.Equal(t, 6, slice.Size())

	inserted := slice.InsertAt(1, model.NewFragment([]*model.Node{schema.Text("X")}))
	require.NotNil(t, inserted)
	assert.True(t, inserted.Content.Eq(doc(p("cXd"), p("ef")).Content), inserted.String())

	removed, err := slice.RemoveBetween(0, 1)
	require.NoError(t, err)
	assert.True(t, removed.Content.Eq(doc(p("d"), p("ef")).Content), removed.String())

	opened := model.MaxOpen(doc(check(ci(p("x")))).Content, false)
	assert.Equal(t, 3, opened.OpenStart)
	assert.Equal(t, 3, opened.OpenEnd)
	closed := model.MaxOpen(doc(hr()).Content, false)
	assert.Equal(t, 0, closed.OpenStart)
}
