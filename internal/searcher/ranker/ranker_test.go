package ranker

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/classifier"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newScorer() *Scorer {
	return NewScorer(config.DefaultScoringWeights(), nil)
}

func input(query string, tags ...classifier.Tag) Input {
	return Input{Query: parser.Preprocess(query), Tags: tags, Now: now}
}

func doc(title, content string) *index.Document {
	return &index.Document{
		ID:        strings.ToLower(strings.ReplaceAll(title, " ", "_")),
		Title:     title,
		Content:   content,
		Section:   "applications",
		WordCount: 300,
	}
}

func TestScore_NoMatchIsNotRelevant(t *testing.T) {
	score, ok := newScorer().Score(doc("Sales Pipeline", "Track opportunities."), input("payroll"))
	assert.False(t, ok)
	assert.Zero(t, score)
}

func TestScore_QualityAloneIsNotRelevant(t *testing.T) {
	d := doc("Getting Started Introduction", strings.Repeat("word ", 50))
	d.Section = "getting_started"
	d.WordCount = 2000
	d.LastUpdated = now.Add(-time.Hour)

	_, ok := newScorer().Score(d, input("payroll", classifier.TagBeginner))
	assert.False(t, ok)
}

func TestScore_TitleExactBeatsTitleContains(t *testing.T) {
	s := newScorer()
	exact, ok := s.Score(doc("Payroll", "payroll"), input("payroll"))
	require.True(t, ok)
	contains, ok := s.Score(doc("Payroll Rules", "payroll"), input("payroll"))
	require.True(t, ok)
	assert.Greater(t, exact, contains)
}

func TestScore_FieldOrdering(t *testing.T) {
	s := newScorer()
	// Every document mentions the term once in its content, so the phrase
	// bonus applies to all of them and only the field match differs.
	inTitle, _ := s.Score(doc("Payroll Rules", "payroll"), input("payroll"))

	desc := doc("Rules", "payroll")
	desc.Description = "payroll rules"
	inDescription, _ := s.Score(desc, input("payroll"))

	inContent, _ := s.Score(doc("Rules", "payroll"), input("payroll"))
	repeated, _ := s.Score(doc("Rules", strings.Repeat("payroll ", 5000)), input("payroll"))

	assert.Greater(t, inTitle, inDescription)
	assert.Greater(t, inDescription, inContent)
	assert.Greater(t, inDescription, repeated, "repetition must not outrank a description match")
	assert.Greater(t, repeated, inContent)
}

func TestScore_ContentFrequencyIsCapped(t *testing.T) {
	s := newScorer()
	many, _ := s.Score(doc("Rules", strings.Repeat("payroll ", 1000)), input("payroll"))
	more, _ := s.Score(doc("Rules", strings.Repeat("payroll ", 5000)), input("payroll"))
	assert.Equal(t, many, more)

	w := config.DefaultScoringWeights()
	w.ContentFrequencyCap = 0
	uncapped, _ := NewScorer(w, nil).Score(doc("Rules", strings.Repeat("payroll ", 5000)), input("payroll"))
	assert.Greater(t, uncapped, more)
}

func TestScore_ContentFrequencyIsMonotonic(t *testing.T) {
	s := newScorer()
	prev := -1.0
	for n := 1; n <= 8; n++ {
		score, ok := s.Score(doc("Rules", strings.Repeat("payroll ", n)), input("payroll"))
		require.True(t, ok)
		assert.Greater(t, score, prev, "n=%d", n)
		prev = score
	}
}

func TestScore_ExactPhraseBonus(t *testing.T) {
	s := newScorer()
	phrase, _ := s.Score(doc("Rules", "how to approve leave requests quickly"), input("approve leave"))
	split, _ := s.Score(doc("Rules", "leave requests wait until managers approve them"), input("approve leave"))
	assert.Greater(t, phrase, split)
}

func TestScore_CategoryMatch(t *testing.T) {
	s := newScorer()
	hrDoc := doc("Rules", "leave")
	hrDoc.Section = "hr"
	salesDoc := doc("Rules", "leave")
	salesDoc.Section = "sales"

	hr, _ := s.Score(hrDoc, input("leave", classifier.TagHR))
	sales, _ := s.Score(salesDoc, input("leave", classifier.TagHR))
	assert.InDelta(t, config.DefaultScoringWeights().CategoryMatch, hr-sales, 0.01)
}

func TestScore_BeginnerPrefersIntroductions(t *testing.T) {
	s := newScorer()
	intro := doc("Introduction to Invoicing", "invoice basics")
	advanced := doc("Invoicing Internals", "invoice basics, override and customize the flow")

	a, _ := s.Score(intro, input("invoice", classifier.TagBeginner))
	b, _ := s.Score(advanced, input("invoice", classifier.TagBeginner))
	assert.Greater(t, a, b)
}

func TestScore_CodePenaltyUnlessTechnical(t *testing.T) {
	s := newScorer()
	code := doc("Payroll Hooks", "payroll def compute(self): return self.amount")
	prose := doc("Payroll Hooks", "payroll computed from the contract amount")

	codeScore, _ := s.Score(code, input("payroll"))
	proseScore, _ := s.Score(prose, input("payroll"))
	assert.Less(t, codeScore, proseScore)

	codeTech, _ := s.Score(code, input("payroll", classifier.TagTechnical))
	assert.Greater(t, codeTech, codeScore)
}

func TestScore_Quality(t *testing.T) {
	s := NewScorer(config.DefaultScoringWeights(), []string{"Applications"})
	base := doc("Payroll", "payroll")
	base.Section = "other"
	baseScore, _ := s.Score(base, input("payroll"))

	important := doc("Payroll", "payroll")
	importantScore, _ := s.Score(important, input("payroll"))
	assert.Greater(t, importantScore, baseScore)

	recent := doc("Payroll", "payroll")
	recent.Section = "other"
	recent.LastUpdated = now.Add(-30 * 24 * time.Hour)
	recentScore, _ := s.Score(recent, input("payroll"))

	old := doc("Payroll", "payroll")
	old.Section = "other"
	old.LastUpdated = now.Add(-300 * 24 * time.Hour)
	oldScore, _ := s.Score(old, input("payroll"))

	assert.Greater(t, recentScore, oldScore)
	assert.Greater(t, oldScore, baseScore)

	short := doc("Payroll", "payroll")
	short.Section = "other"
	short.WordCount = 20
	shortScore, _ := s.Score(short, input("payroll"))
	assert.Less(t, shortScore, baseScore)
}

func TestScore_ContextualTerms(t *testing.T) {
	in := input("zzzz")
	in.ContextualTerms = []string{" Payroll ", ""}
	score, ok := newScorer().Score(doc("Rules", "payroll rules"), in)
	assert.True(t, ok)
	assert.Positive(t, score)
}

func TestScore_ClampedAndRounded(t *testing.T) {
	w := config.DefaultScoringWeights()
	w.MaxScore = 30
	score, ok := NewScorer(w, nil).Score(doc("Payroll", strings.Repeat("payroll ", 50)), input("payroll"))
	require.True(t, ok)
	assert.Equal(t, 30.0, score)

	score, _ = newScorer().Score(doc("Rules", "payroll payroll payroll"), input("payroll"))
	assert.InDelta(t, math.Round(score*100), score*100, 1e-6)

	penalised := doc("Rules", "payroll")
	penalised.WordCount = 10
	score, ok = newScorer().Score(penalised, input("payroll"))
	assert.True(t, ok)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestNewScorer_ZeroWeightsUseDefaults(t *testing.T) {
	a, _ := NewScorer(config.ScoringWeights{}, nil).Score(doc("Payroll", "payroll"), input("payroll"))
	b, _ := newScorer().Score(doc("Payroll", "payroll"), input("payroll"))
	assert.Equal(t, b, a)
}
