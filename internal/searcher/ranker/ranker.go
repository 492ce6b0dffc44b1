// Package ranker scores documents against a preprocessed query. The score
// combines per-term field matches, an exact phrase bonus, bonuses for the
// query's classifier tags, caller supplied contextual terms and document
// quality heuristics, clamped to [0, MaxScore].
package ranker

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/classifier"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

const (
	longDocumentWords     = 500
	veryLongDocumentWords = 1000
	shortDocumentWords    = 100
	minTitleLength        = 10
	maxTitleLength        = 100

	sixMonths = 182 * 24 * time.Hour
	oneYear   = 365 * 24 * time.Hour
)

// Input is everything about the query the scorer needs.
type Input struct {
	Query           *parser.Query
	Tags            []classifier.Tag
	ContextualTerms []string
	Now             time.Time
}

type Scorer struct {
	w         config.ScoringWeights
	important map[string]struct{}
}

// NewScorer creates a Scorer. A zero MaxScore selects the default weights.
func NewScorer(w config.ScoringWeights, importantSections []string) *Scorer {
	if w.MaxScore <= 0 {
		w = config.DefaultScoringWeights()
	}
	important := make(map[string]struct{}, len(importantSections))
	for _, s := range importantSections {
		important[strings.ToLower(s)] = struct{}{}
	}
	return &Scorer{w: w, important: important}
}

// Score returns the document's score and whether it matched the query at
// all. Quality adjustments alone never make a document relevant.
func (s *Scorer) Score(doc *index.Document, in Input) (float64, bool) {
	title := strings.ToLower(doc.Title)
	description := strings.ToLower(doc.Description)
	content := strings.ToLower(doc.Content)
	section := strings.ToLower(doc.Section)
	subsection := strings.ToLower(doc.Subsection)

	var score float64
	relevant := false

	for _, term := range in.Query.Terms {
		switch {
		case title == term:
			score += s.w.TitleExact
			relevant = true
		case strings.Contains(title, term):
			score += s.w.TitleContains
			relevant = true
		}
		if description != "" && strings.Contains(description, term) {
			score += s.w.Description
			relevant = true
		}
		if n := strings.Count(content, term); n > 0 {
			bonus := s.w.ContentFrequency * math.Log1p(float64(n))
			if s.w.ContentFrequencyCap > 0 {
				bonus = math.Min(bonus, s.w.ContentFrequencyCap)
			}
			score += bonus
			relevant = true
		}
		if strings.Contains(section, term) {
			score += s.w.Section
			relevant = true
		}
		if subsection != "" && strings.Contains(subsection, term) {
			score += s.w.Subsection
			relevant = true
		}
	}

	if phrase := in.Query.Phrase; phrase != "" {
		if title == phrase {
			score += s.w.TitleExact
			relevant = true
		}
		if strings.Contains(content, phrase) {
			score += s.w.ExactPhrase
			relevant = true
		}
	}

	for _, ct := range in.ContextualTerms {
		ct = strings.ToLower(strings.TrimSpace(ct))
		if ct == "" {
			continue
		}
		if strings.Contains(title, ct) || strings.Contains(content, ct) {
			score += s.w.ContextualTerm
			relevant = true
		}
	}

	if !relevant {
		return 0, false
	}

	score += s.typeBonus(in.Tags, title, content, section, subsection)
	score += s.quality(doc, in, title, content, section)

	return clamp(score, 0, s.w.MaxScore), true
}

func (s *Scorer) typeBonus(tags []classifier.Tag, title, content, section, subsection string) float64 {
	var bonus float64
	for _, tag := range tags {
		switch tag {
		case classifier.TagBeginner:
			if section == "getting_started" || containsAny(title, introTitles) {
				bonus += s.w.BeginnerBonus
			}
			if containsAny(content, advancedLanguage) {
				bonus -= s.w.AdvancedPenalty
			}
		case classifier.TagTechnical:
			if containsAny(content, technicalLanguage) {
				bonus += s.w.TechnicalBonus
			}
		default:
			sig, ok := tagSignals[tag]
			if !ok {
				continue
			}
			if containsAny(section, sig.sections) || containsAny(subsection, sig.sections) ||
				containsAny(title, sig.titles) || containsAny(content, sig.content) {
				bonus += s.w.CategoryMatch
			}
		}
	}
	return bonus
}

func (s *Scorer) quality(doc *index.Document, in Input, title, content, section string) float64 {
	var adj float64
	if doc.WordCount > longDocumentWords {
		adj += s.w.LongDocument
	}
	if doc.WordCount > veryLongDocumentWords {
		adj += s.w.VeryLongDocument
	}
	if doc.WordCount < shortDocumentWords {
		adj -= s.w.ShortPenalty
	}

	if !doc.LastUpdated.IsZero() && !in.Now.IsZero() {
		switch age := in.Now.Sub(doc.LastUpdated); {
		case age < sixMonths:
			adj += s.w.RecentSixMonths
		case age < oneYear:
			adj += s.w.RecentYear
		}
	}

	if !classifier.Has(in.Tags, classifier.TagTechnical) &&
		!classifier.Has(in.Tags, classifier.TagDevelopment) &&
		containsAny(content, codeMarkers) {
		adj -= s.w.CodePenalty
	}

	if _, ok := s.important[section]; ok {
		adj += s.w.ImportantSection
	}

	if n := utf8.RuneCountInString(title); n >= minTitleLength && n <= maxTitleLength {
		adj += s.w.WellFormedTitle
	}
	return adj
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	v = math.Max(lo, math.Min(hi, v))
	return math.Round(v*100) / 100
}
