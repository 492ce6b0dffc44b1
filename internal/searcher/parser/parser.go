// Package parser preprocesses free-text search queries: it lower-cases and
// splits the query, drops short words and stop-words, and expands the
// remaining terms through the bilingual synonym table and the technical
// variants table.
package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

const minTermLength = 3

// Query is a preprocessed search query.
type Query struct {
	Raw string
	// Phrase is the lower-cased, whitespace-collapsed query used for the
	// exact phrase bonus.
	Phrase string
	// Original holds the query's own terms, Terms adds their expansions.
	Original []string
	Terms    []string
}

// Empty reports whether the query produced no usable terms.
func (q *Query) Empty() bool {
	return len(q.Terms) == 0
}

// Preprocess builds a Query from raw user input. Expansion is additive: the
// query's own terms are always kept and come first.
func Preprocess(query string) *Query {
	q := &Query{
		Raw:      query,
		Phrase:   strings.Join(strings.Fields(strings.ToLower(query)), " "),
		Original: make([]string, 0),
		Terms:    make([]string, 0),
	}
	seen := make(map[string]struct{})
	add := func(term string) {
		if utf8.RuneCountInString(term) < minTermLength {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		q.Terms = append(q.Terms, term)
	}

	for _, word := range strings.Fields(q.Phrase) {
		term := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if utf8.RuneCountInString(term) < minTermLength || tokenizer.IsStopWord(term) {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		q.Original = append(q.Original, term)
		add(term)
	}
	for _, term := range q.Original {
		for _, exp := range Expand(term) {
			add(exp)
		}
	}
	for _, group := range multiWordSynonyms {
		if !strings.Contains(q.Phrase, group.phrase) {
			continue
		}
		add(group.phrase)
		for _, exp := range group.expansions {
			add(exp)
		}
	}
	return q
}

// Expand returns the synonyms and technical variants of a single term.
func Expand(term string) []string {
	var out []string
	out = append(out, synonyms[term]...)
	out = append(out, technicalVariants[term]...)
	return out
}
