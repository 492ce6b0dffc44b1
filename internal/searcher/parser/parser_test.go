package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreprocess_FrenchSynonymExpandsToEnglish(t *testing.T) {
	q := Preprocess("Congé")

	assert.Equal(t, "congé", q.Phrase)
	assert.Equal(t, []string{"congé"}, q.Original)
	assert.Equal(t, "congé", q.Terms[0], "original terms come first")
	assert.Contains(t, q.Terms, "leave")
	assert.Contains(t, q.Terms, "time off")
	assert.Contains(t, q.Terms, "vacation")
	assert.False(t, q.Empty())
}

func TestPreprocess_DropsShortAndStopWords(t *testing.T) {
	q := Preprocess("comment configurer les congés ?")

	assert.Equal(t, []string{"comment", "configurer", "congés"}, q.Original)
	assert.NotContains(t, q.Terms, "les")
	assert.Contains(t, q.Terms, "settings")
	assert.Contains(t, q.Terms, "leave")
}

func TestPreprocess_DeduplicatesAndTrimsPunctuation(t *testing.T) {
	q := Preprocess("leave, Leave LEAVE!")

	assert.Equal(t, []string{"leave"}, q.Original)
	count := 0
	for _, term := range q.Terms {
		if term == "leave" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestPreprocess_MultiWordSynonym(t *testing.T) {
	q := Preprocess("time off request")

	assert.Equal(t, []string{"time", "off", "request"}, q.Original)
	assert.Contains(t, q.Terms, "time off")
	assert.Contains(t, q.Terms, "congé")
	assert.Contains(t, q.Terms, "leave")
}

func TestPreprocess_TechnicalVariants(t *testing.T) {
	q := Preprocess("external API")
	assert.Contains(t, q.Terms, "xmlrpc")
	assert.Contains(t, q.Terms, "jsonrpc")
}

func TestPreprocess_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", "a an", "le la de", "?!"} {
		q := Preprocess(raw)
		assert.True(t, q.Empty(), raw)
		assert.NotNil(t, q.Terms)
	}
}

func TestPreprocess_Deterministic(t *testing.T) {
	first := Preprocess("congé employé facture time off")
	for i := 0; i < 20; i++ {
		assert.Equal(t, first.Terms, Preprocess("congé employé facture time off").Terms)
	}
}

func TestExpand(t *testing.T) {
	assert.Contains(t, Expand("facture"), "invoice")
	assert.Contains(t, Expand("invoice"), "facture")
	assert.Contains(t, Expand("odoo"), "erp")
	assert.Empty(t, Expand("zzzz"))
	assert.NotContains(t, Expand("leave"), "leave")
}
