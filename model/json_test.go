package model_test

import (
	"encoding/json"
	"testing"

	"github.com/shodgson/eddytor/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONRoundTrip(t *testing.T) {
	docs := map[string]*model.Node{
		"text":      doc(p("foo")).Node,
		"marks":     doc(p("foo", em("bar", strong("baz")), " ", a("x"), schema.Text("red", textColor("#ff0000")))).Node,
		"inline":    doc(p("foo", img(), br(), "bar")).Node,
		"heading":   doc(h1("a"), h2("b"), hr()).Node,
		"checklist": doc(check(ci(p("a")), out.Node("done")(p("b")))).Node,
		"nested":    doc(callout(ul(li(p("x"))), pre("code"))).Node,
		"table":     doc(table(tr(td(p("1")), out.Node("th")(p("2"))))).Node,
	}
	for name, d := range docs {
		data, err := json.Marshal(d)
		require.NoError(t, err, name)
		back, err := model.ParseJSON(schema, data)
		require.NoError(t, err, name)
		assert.True(t, back.Eq(d), "%s: %s != %s", name, back, d)
	}
}

func TestJSONShape(t *testing.T) {
	data, err := json.Marshal(doc(p(em("hi"))).Node)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hi","marks":[{"type":"em"}]}]}]}`,
		string(data))
}

func TestNodeFromJSONErrors(t *testing.T) {
	cases := map[string]string{
		"unknown type":    `{"type":"doc","content":[{"type":"marquee"}]}`,
		"empty text":      `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":""}]}]}`,
		"invalid content": `{"type":"doc","content":[{"type":"checklist","content":[{"type":"paragraph"}]}]}`,
		"unknown attr":    `{"type":"doc","content":[{"type":"paragraph","attrs":{"align":"left"}}]}`,
		"bad variant":     `{"type":"doc","content":[{"type":"callout","attrs":{"variant":"shouting"},"content":[{"type":"paragraph"}]}]}`,
		"bad marks":       `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":"em"}]}]}`,
		"not an object":   `[1, 2]`,
	}
	for name, data := range cases {
		_, err := model.ParseJSON(schema, []byte(data))
		assert.Error(t, err, name)
	}
}
