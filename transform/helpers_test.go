package transform_test

import (
	"github.com/shodgson/eddytor/test/builder"
)

var (
	out        = builder.Eddytor
	schema     = out.Schema()
	doc        = out.Node("doc")
	p          = out.Node("p")
	blockquote = out.Node("blockquote")
	pre        = out.Node("pre")
	h1         = out.Node("h1")
	h2         = out.Node("h2")
	ul         = out.Node("ul")
	li         = out.Node("li")
	hr         = out.Node("hr")
	check      = out.Node("check")
	ci         = out.Node("ci")
	done       = out.Node("done")
	em         = out.Mark("em")
	strong     = out.Mark("strong")
)
