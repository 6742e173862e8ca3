// Package translator implements a small deterministic English to Russian
// rule-based translator. Adjectives agree in gender and number with the noun
// that follows them; unknown words are passed through in brackets.
package translator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Translate renders text as a single capitalized, period-terminated sentence.
// Empty or wordless input yields "".
func Translate(text string) string {
	words := wordRe.FindAllString(cases.Lower(language.English).String(text), -1)

	tokens := make([]token, 0, len(words))
	for _, w := range words {
		tok := analyse(w)
		if tok.pos == posArticle {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return ""
	}

	out := make([]string, len(tokens))
	for i, tok := range tokens {
		var next *token
		if i+1 < len(tokens) {
			next = &tokens[i+1]
		}
		out[i] = tok.render(next)
	}
	return capitalize(strings.Join(out, " ")) + "."
}

type token struct {
	entry
	word string
}

func analyse(word string) token {
	if e, ok := lexicon[word]; ok {
		return token{entry: e, word: word}
	}
	return token{entry: entry{pos: posUnknown}, word: word}
}

func (t token) render(next *token) string {
	switch t.pos {
	case posUnknown:
		return "[" + t.word + "]"
	case posAdj:
		if next != nil && next.pos == posNoun {
			if next.plural {
				return t.pluralForm
			}
			return t.forms[next.gender]
		}
		// no noun to agree with: masculine singular is the dictionary form
		return t.forms[masculine]
	default:
		return t.tr
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	// Casers carry state, so each call gets its own
	return cases.Upper(language.Russian).String(string(r)) + s[size:]
}
