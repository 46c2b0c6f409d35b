package model_test

import (
	"github.com/shodgson/eddytor/model"
	"github.com/shodgson/eddytor/test/builder"
)

var (
	out        = builder.Eddytor
	schema     = out.Schema()
	doc        = out.Node("doc")
	p          = out.Node("p")
	blockquote = out.Node("blockquote")
	h1         = out.Node("h1")
	h2         = out.Node("h2")
	pre        = out.Node("pre")
	ul         = out.Node("ul")
	li         = out.Node("li")
	check      = out.Node("check")
	callout    = out.Node("callout")
	ci         = out.Node("ci")
	table      = out.Node("table")
	tr         = out.Node("tr")
	td         = out.Node("td")
	hr         = out.Node("hr")
	img        = out.Node("img")
	br         = out.Node("br")
	a          = out.Mark("a")
	em         = out.Mark("em")
	strong     = out.Mark("strong")
	code       = out.Mark("code")
)

func link(href string, title ...string) *model.Mark {
	attrs := map[string]interface{}{"href": href}
	if len(title) > 0 {
		attrs["title"] = title[0]
	}
	return schema.Mark("link", attrs)
}

func textColor(color string) *model.Mark {
	return schema.Mark("text_color", map[string]interface{}{"color": color})
}
