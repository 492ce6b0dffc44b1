package ranker

import (
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/docparser"
)

const (
	minExcerptSentence = 20
	maxExcerptLength   = 300
	fallbackExcerpt    = 200
	ellipsis           = "..."
)

// Excerpt picks the sentence of content with the largest total length of
// matched terms. Without any matching sentence it falls back to the start
// of the content.
func Excerpt(content string, terms []string) string {
	best := ""
	bestScore := 0
	for _, sentence := range docparser.SplitSentences(content) {
		if utf8.RuneCountInString(sentence) <= minExcerptSentence {
			continue
		}
		lower := strings.ToLower(sentence)
		score := 0
		for _, term := range terms {
			if strings.Contains(lower, term) {
				score += utf8.RuneCountInString(term)
			}
		}
		if score > bestScore {
			best, bestScore = sentence, score
		}
	}
	if bestScore > 0 {
		return truncate(best, maxExcerptLength) + ellipsis
	}
	if utf8.RuneCountInString(content) > fallbackExcerpt {
		return truncate(content, fallbackExcerpt) + ellipsis
	}
	return content
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}
