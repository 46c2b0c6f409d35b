package highlight

import (
	"regexp"
	"strings"
)

type detector struct {
	language string
	patterns []*regexp.Regexp
}

// detectors are tried in order. A language is picked when at least two of
// its patterns match.
var detectors = []detector{
	{"javascript", compile(
		`\b(function|const|let|var|if|else|for|while|return)\b`,
		`\b(import|export|from|as|class|extends|new|this|try|catch)\b`,
		`=>`,
		`console\.`,
	)},
	{"typescript", compile(
		`\b(interface|type|namespace|enum|implements)\b`,
		`:\s*(string|number|boolean|any|void|never)`,
		`<[\w<>]+>\s*\(`,
		`\w+:\s*\w+`,
	)},
	{"jsx", compile(
		`<[A-Z]\w*(\s[^>]*)?>`,
		`\breturn\s*\(`,
		`\bReact\.`,
		`\buseState\b|\buseEffect\b`,
	)},
	{"tsx", compile(
		`\b(interface|type)\b`,
		`<[A-Z]\w*(\s[^>]*)?>`,
		`:\s*(React\.)`,
	)},
	{"markup", compile(
		`</?[\w-]+>`,
		`<[\w-]+\s+[\w-]+=".*?">`,
		`(?i)<!DOCTYPE html>`,
		`<html[\s>]`,
	)},
	{"css", compile(
		`[.#][\w-]+\s*\{`,
		`[\w-]+:\s*[\w-]+;`,
		`@media\s+`,
		`!important`,
	)},
	{"python", compile(
		`\b(def|class|if|elif|else|for|while|import|from|as)\b`,
		`\b(return|yield|try|except|finally|raise|with)\b`,
		`#.*`,
		`"""[\s\S]*?"""`,
	)},
	{"json", compile(
		`^\s*[\{\[]`,
		`"\w+":`,
		`:\s*[\{\[]`,
	)},
	{"bash", compile(
		`^\s*#!`,
		`\$\w+`,
		`\b(echo|ls|cd|mkdir|rm|grep|awk|sed)\b`,
	)},
}

func compile(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(p)
	}
	return res
}

// Detect guesses the language of a piece of code. It returns "" for blank
// code and falls back to javascript when nothing matches well enough.
func Detect(code string) string {
	if strings.TrimSpace(code) == "" {
		return ""
	}
	for _, d := range detectors {
		matches := 0
		for _, re := range d.patterns {
			if re.MatchString(code) {
				matches++
			}
		}
		if matches >= 2 {
			return d.language
		}
	}
	return "javascript"
}
