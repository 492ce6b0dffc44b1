// Package docparser turns raw documentation files into index documents. It
// understands reStructuredText and Markdown, extracts title, description and
// section metadata, and produces cleaned plain-text content for scoring.
package docparser

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

const (
	DefaultMinContentLength = 100
	DefaultMaxContentLength = 50000

	wordsPerMinute    = 200
	maxDescription    = 200
	minSentenceLength = 20
	maxKeywords       = 12
	defaultSection    = "general"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Source is one corpus file handed to the parser.
type Source struct {
	RelPath  string
	FullPath string
	Content  []byte
	Size     int64
	ModTime  time.Time
}

// dialect extracts a title and description and cleans the raw text. The
// returned content may still contain whitespace runs.
type dialect interface {
	name() string
	parse(raw string) (title, description, content string)
}

type Parser struct {
	minContent int
	maxContent int
	dialects   map[string]dialect
}

// New creates a Parser. Non-positive limits select the defaults.
func New(minContent, maxContent int) *Parser {
	if minContent <= 0 {
		minContent = DefaultMinContentLength
	}
	if maxContent <= 0 {
		maxContent = DefaultMaxContentLength
	}
	return &Parser{
		minContent: minContent,
		maxContent: maxContent,
		dialects: map[string]dialect{
			".rst": rstDialect{},
			".md":  markdownDialect{},
		},
	}
}

// Parse builds a Document from src. It returns (nil, nil) when the cleaned
// content is shorter than the minimum length; any other failure is wrapped
// in ErrParseFailed.
func (p *Parser) Parse(src Source) (doc *index.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("%w: %s: %v", apperrors.ErrParseFailed, src.RelPath, r)
		}
	}()

	ext := strings.ToLower(filepath.Ext(src.RelPath))
	d, ok := p.dialects[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s: unsupported extension %q", apperrors.ErrParseFailed, src.RelPath, ext)
	}
	if !utf8.Valid(src.Content) {
		return nil, fmt.Errorf("%w: %s: content is not valid UTF-8", apperrors.ErrParseFailed, src.RelPath)
	}

	title, description, content := d.parse(string(src.Content))
	content = truncateRunes(collapseWhitespace(content), p.maxContent)
	if utf8.RuneCountInString(content) < p.minContent {
		return nil, nil
	}

	title = collapseWhitespace(title)
	if title == "" {
		title = HumanizeFilename(src.RelPath)
	}
	description = collapseWhitespace(description)
	if description == "" {
		description = firstSentenceAfter(content, title)
	}
	description = truncateRunes(description, maxDescription)

	section, subsection := Sections(src.RelPath)
	words := tokenizer.WordCount(content)
	modTime := src.ModTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	return &index.Document{
		ID:          DocumentID(src.RelPath),
		FilePath:    filepath.ToSlash(src.RelPath),
		FullPath:    src.FullPath,
		Title:       title,
		Description: description,
		Content:     content,
		Section:     section,
		Subsection:  subsection,
		Keywords:    Keywords(title, section, subsection),
		WordCount:   words,
		ReadingTime: ReadingTime(words),
		FileSize:    src.Size,
		FileType:    strings.TrimPrefix(ext, "."),
		LastUpdated: modTime.UTC(),
		Metadata: index.Metadata{
			Parser: d.name(),
			Source: index.SourceCorpus,
		},
	}, nil
}

// DocumentID derives the stable id of a corpus file from its path relative
// to the corpus root.
func DocumentID(relPath string) string {
	p := filepath.ToSlash(relPath)
	p = strings.TrimSuffix(p, filepath.Ext(p))
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	p = strings.ReplaceAll(p, "/", "_")
	p = strings.ReplaceAll(p, `\`, "_")
	return strings.ToLower(p)
}

// Sections returns the first two directory components of relPath.
func Sections(relPath string) (section, subsection string) {
	parts := strings.Split(filepath.ToSlash(filepath.Dir(relPath)), "/")
	dirs := parts[:0]
	for _, part := range parts {
		if part != "" && part != "." {
			dirs = append(dirs, part)
		}
	}
	section = defaultSection
	if len(dirs) > 0 {
		section = dirs[0]
	}
	if len(dirs) > 1 {
		subsection = dirs[1]
	}
	return section, subsection
}

// HumanizeFilename turns "leave_types-overview.rst" into "Leave Types Overview".
func HumanizeFilename(relPath string) string {
	base := filepath.Base(filepath.ToSlash(relPath))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	if len(words) == 0 {
		return "Untitled"
	}
	return strings.Join(words, " ")
}

// Keywords derives a small lower-cased keyword set from title and sections.
func Keywords(title, section, subsection string) []string {
	seen := make(map[string]struct{})
	keywords := make([]string, 0, maxKeywords)
	add := func(k string) {
		k = strings.ToLower(strings.TrimSpace(k))
		if utf8.RuneCountInString(k) <= 2 || len(keywords) >= maxKeywords {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keywords = append(keywords, k)
	}
	for _, term := range tokenizer.Terms(title) {
		add(term)
	}
	add(section)
	add(subsection)
	return keywords
}

// ReadingTime estimates minutes of reading for a word count.
func ReadingTime(words int) int {
	return int(math.Ceil(float64(words) / wordsPerMinute))
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:limit]))
}

// firstSentenceAfter returns the first sentence longer than 20 characters
// found in content after the title.
func firstSentenceAfter(content, title string) string {
	rest := content
	if title != "" {
		if i := strings.Index(content, title); i >= 0 {
			rest = content[i+len(title):]
		}
	}
	for _, sentence := range SplitSentences(rest) {
		if utf8.RuneCountInString(sentence) > minSentenceLength {
			return sentence
		}
	}
	return ""
}

// SplitSentences splits text on sentence terminators and line breaks and
// returns the trimmed, non-empty pieces.
func SplitSentences(text string) []string {
	pieces := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	})
	sentences := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}
