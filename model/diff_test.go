package model_test

import (
	"testing"

	"github.com/shodgson/eddytor/test/builder"
	"github.com/stretchr/testify/assert"
)

// The <a> tag of the first document marks where the difference is
// expected. Without tag, the documents are expected to be equal.

func TestFragmentFindDiffStart(t *testing.T) {
	cases := map[string][2]builder.NodeWithTag{
		"identical": {
			doc(p("a", em("b")), p("hello"), blockquote(h1("bye"))),
			doc(p("a", em("b")), p("hello"), blockquote(h1("bye"))),
		},
		"longer": {
			doc(p("a", em("b")), p("hello"), "<a>"),
			doc(p("a", em("b")), p("hello"), p("oops")),
		},
		"shorter": {
			doc(p("a", em("b")), "<a>", p("oops")),
			doc(p("a", em("b"))),
		},
		"marks":          {doc(p("a<a>", em("b"))), doc(p("a", strong("b")))},
		"longer text":    {doc(p("foo<a>bar", em("b"))), doc(p("foo", em("b")))},
		"character":      {doc(p("foo<a>bar")), doc(p("foocar"))},
		"node type":      {doc(p("a"), "<a>", p("b")), doc(p("a"), h1("b"))},
		"at the start":   {doc("<a>", p("b")), doc(h1("b"))},
		"attribute":      {doc(p("a"), "<a>", h1("foo")), doc(p("a"), h2("foo"))},
		"checked item":   {doc(check("<a>", ci(p("x")))), doc(check(out.Node("done")(p("x"))))},
		"nested in cell": {doc(table(tr(td(p("ab<a>c"))))), doc(table(tr(td(p("abd")))))},
	}
	for name, c := range cases {
		a, b := c[0], c[1]
		found := a.Content.FindDiffStart(b.Content)
		if expected, ok := a.Tag["a"]; ok {
			if assert.NotNil(t, found, name) {
				assert.Equal(t, expected, *found, name)
			}
		} else {
			assert.Nil(t, found, name)
		}
	}
}

func TestFragmentFindDiffEnd(t *testing.T) {
	cases := map[string][2]builder.NodeWithTag{
		"identical": {
			doc(p("a", em("b")), p("hello"), blockquote(h1("bye"))),
			doc(p("a", em("b")), p("hello"), blockquote(h1("bye"))),
		},
		"longer":       {doc("<a>", p("a", em("b")), p("hello")), doc(p("oops"), p("a", em("b")), p("hello"))},
		"shorter":      {doc(p("oops"), "<a>", p("a", em("b"))), doc(p("a", em("b")))},
		"styles":       {doc(p("a", em("b"), "<a>c")), doc(p("a", strong("b"), "c"))},
		"longer text":  {doc(p("bar<a>foo", em("b"))), doc(p("foo", em("b")))},
		"character":    {doc(p("foob<a>ar")), doc(p("foocar"))},
		"node type":    {doc(p("a"), "<a>", p("b")), doc(h1("a"), p("b"))},
		"at the end":   {doc(p("b"), "<a>"), doc(h1("b"))},
		"similar head": {doc("<a>", p("hello")), doc(p("hey"), p("hello"))},
	}
	for name, c := range cases {
		a, b := c[0], c[1]
		found := a.Content.FindDiffEnd(b.Content)
		if expected, ok := a.Tag["a"]; ok {
			if assert.NotNil(t, found, name) {
				assert.Equal(t, expected, found.A, name)
			}
		} else {
			assert.Nil(t, found, name)
		}
	}
}
