// Package tokenizer provides the light text splitting used by the indexer:
// whitespace word counting and lower-cased keyword tokens with English and
// French stop-words removed. No stemming is applied.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {}, "how": {},
	"le": {}, "la": {}, "les": {}, "de": {}, "des": {}, "du": {},
	"et": {}, "un": {}, "une": {}, "pour": {}, "dans": {}, "sur": {},
	"avec": {}, "est": {}, "par": {}, "au": {}, "aux": {}, "en": {},
}

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lowercased Tokens split on non-alphanumeric
// boundaries, with stop-words and single characters removed.
func Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if len([]rune(word)) < 2 {
			continue
		}
		if IsStopWord(word) {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// Terms returns the distinct token terms of text in first-seen order.
func Terms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, tok := range Tokenize(text) {
		if _, ok := seen[tok.Term]; ok {
			continue
		}
		seen[tok.Term] = struct{}{}
		terms = append(terms, tok.Term)
	}
	return terms
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
