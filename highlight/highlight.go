// Package highlight computes the syntax highlighting of code blocks. The
// tokens come from chroma lexers and are turned into inline decorations
// with prism-like "token <kind>" classes. Nothing here changes the
// document: the decorations are derived from the text and the language of
// each code block.
package highlight

import (
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
	"github.com/shodgson/eddytor/model"
	"go.uber.org/zap"
)

// DefaultTTL is how long the tokens of a block stay memoized when no other
// duration is given.
const DefaultTTL = 10 * time.Minute

// Span is a highlighted range of a code block text. From and To are
// offsets in document positions from the start of the block content.
type Span struct {
	From  int
	To    int
	Class string
}

// Language is a code block language offered in menus.
type Language struct {
	Value string
	Label string
	Icon  string
}

// Languages are the languages a code block can be set to. The empty value
// is plain text.
var Languages = []Language{
	{Value: "", Label: "Plain Text", Icon: "📄"},
	{Value: "javascript", Label: "JavaScript", Icon: "JS"},
	{Value: "typescript", Label: "TypeScript", Icon: "TS"},
	{Value: "python", Label: "Python", Icon: "🐍"},
	{Value: "java", Label: "Java", Icon: "♨️"},
	{Value: "css", Label: "CSS", Icon: "🎨"},
	{Value: "html", Label: "HTML", Icon: "🌐"},
	{Value: "markdown", Label: "Markdown", Icon: "MD"},
	{Value: "json", Label: "JSON", Icon: "{ }"},
	{Value: "bash", Label: "Bash", Icon: ">"},
	{Value: "sql", Label: "SQL", Icon: "🗄️"},
}

// lexerNames maps the language names used in documents to chroma lexers.
var lexerNames = map[string]string{
	"javascript": "javascript",
	"js":         "javascript",
	"jsx":        "javascript",
	"typescript": "typescript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"python":     "python",
	"py":         "python",
	"java":       "java",
	"css":        "css",
	"html":       "html",
	"markup":     "html",
	"markdown":   "markdown",
	"md":         "markdown",
	"json":       "json",
	"bash":       "bash",
	"sh":         "bash",
	"shell":      "bash",
	"sql":        "sql",
}

// Highlighter tokenizes code and memoizes the result by language and text.
// It is safe for concurrent use.
type Highlighter struct {
	memo   *cache.Cache
	logger *zap.Logger
}

// New creates a highlighter. Memoized tokens expire after ttl; a zero ttl
// means DefaultTTL.
func New(ttl time.Duration, logger *zap.Logger) *Highlighter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Highlighter{
		memo:   cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// Len returns the number of memoized texts.
func (h *Highlighter) Len() int {
	return h.memo.ItemCount()
}

func memoKey(language, text string) string {
	return strconv.FormatUint(xxhash.Sum64String(language+"\x00"+text), 16)
}

// ResolveLanguage returns the language to highlight a block with, given
// the value of its language attribute. A missing language (nil, "" or
// "null") is detected from the text.
func ResolveLanguage(attr interface{}, text string) string {
	if lang, ok := attr.(string); ok {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang != "" && lang != "null" {
			return lang
		}
	}
	return Detect(text)
}

// Tokens returns the highlighted spans of text in the given language. Plain
// text and unknown languages have no spans.
func (h *Highlighter) Tokens(language, text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	key := memoKey(language, text)
	if cached, found := h.memo.Get(key); found {
		return cached.([]Span)
	}
	spans := h.tokenize(language, text)
	h.memo.Set(key, spans, cache.DefaultExpiration)
	return spans
}

func (h *Highlighter) tokenize(language, text string) []Span {
	name, ok := lexerNames[language]
	if !ok {
		if language != "plain" && language != "text" && language != "" {
			h.logger.Debug("no lexer for code block language", zap.String("language", language))
		}
		return nil
	}
	lexer := lexers.Get(name)
	if lexer == nil {
		h.logger.Warn("chroma lexer not found", zap.String("lexer", name))
		return nil
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		h.logger.Warn("tokenizing code block failed", zap.String("language", language), zap.Error(err))
		return nil
	}
	size := model.TextLength(text)
	var spans []Span
	offset := 0
	for _, tok := range it.Tokens() {
		from := offset
		offset += model.TextLength(tok.Value)
		if from >= size {
			break
		}
		to := min(offset, size)
		if class := classOf(tok.Type); class != "" && from < to {
			spans = append(spans, Span{From: from, To: to, Class: "token " + class})
		}
	}
	return spans
}

// classOf maps a chroma token type to the kind of a prism token class. It
// returns "" for tokens that are not highlighted.
func classOf(t chroma.TokenType) string {
	switch t {
	case chroma.KeywordConstant:
		return "boolean"
	case chroma.NameFunction, chroma.NameFunctionMagic:
		return "function"
	case chroma.NameClass, chroma.KeywordType:
		return "class-name"
	case chroma.NameBuiltin, chroma.NameBuiltinPseudo:
		return "builtin"
	case chroma.NameTag:
		return "tag"
	case chroma.NameAttribute:
		return "attr-name"
	case chroma.NameVariable, chroma.NameVariableClass, chroma.NameVariableGlobal, chroma.NameVariableInstance:
		return "variable"
	case chroma.NameConstant:
		return "constant"
	case chroma.NameDecorator:
		return "decorator"
	case chroma.LiteralStringRegex:
		return "regex"
	case chroma.OperatorWord:
		return "keyword"
	case chroma.GenericHeading, chroma.GenericSubheading:
		return "title"
	case chroma.GenericEmph:
		return "italic"
	case chroma.GenericStrong:
		return "bold"
	}
	switch {
	case t.InCategory(chroma.Keyword):
		return "keyword"
	case t.InSubCategory(chroma.LiteralString):
		return "string"
	case t.InSubCategory(chroma.LiteralNumber):
		return "number"
	case t.InCategory(chroma.Comment):
		return "comment"
	case t.InCategory(chroma.Operator):
		return "operator"
	case t.InCategory(chroma.Punctuation):
		return "punctuation"
	}
	return ""
}
