package docparser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const rstAdornments = "=-~^\"'`#*+:._"

var (
	rstDirective   = regexp.MustCompile(`^\s*\.\.\s+(\|[^|]+\|\s+)?[\w:-]+::`)
	rstComment     = regexp.MustCompile(`^\s*\.\.(\s.*)?$`)
	rstOption      = regexp.MustCompile(`^\s+:[\w][\w -]*:(\s.*)?$`)
	rstRoleTarget  = regexp.MustCompile(":[\\w:-]+:`([^`<]+?)\\s*<[^>]*>`")
	rstRole        = regexp.MustCompile(":[\\w:-]+:`([^`]+)`")
	rstLinkTarget  = regexp.MustCompile("`([^`<]+?)\\s*<[^>]*>`__?")
	rstNamedLink   = regexp.MustCompile("`([^`]+)`__?")
	rstLiteral     = regexp.MustCompile("``([^`]+)``")
	rstStrong      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	rstEmphasis    = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	rstSubstitute  = regexp.MustCompile(`\|([^|\s][^|]*)\|`)
	rstFieldMarker = regexp.MustCompile(`^:[\w][\w -]*:\s*`)
)

// rstDialect handles reStructuredText sources: section titles are the line
// above the first underline, directives and comments are dropped, roles and
// links become their display text.
type rstDialect struct{}

func (rstDialect) name() string { return "rst" }

func (rstDialect) parse(raw string) (title, description, content string) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	title = rstTitle(lines)

	var b strings.Builder
	inDirective := false
	for _, line := range lines {
		switch {
		case isUnderline(line):
			continue
		case rstDirective.MatchString(line):
			inDirective = true
			continue
		case rstComment.MatchString(line):
			continue
		case inDirective && rstOption.MatchString(line):
			continue
		}
		if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			inDirective = false
		}
		line = rstFieldMarker.ReplaceAllString(line, "")
		b.WriteString(rstInline(line))
		b.WriteByte('\n')
	}
	return rstInline(title), "", b.String()
}

// rstTitle returns the text line directly above the first underline.
func rstTitle(lines []string) string {
	for i := 1; i < len(lines); i++ {
		if !isUnderline(lines[i]) {
			continue
		}
		prev := strings.TrimSpace(lines[i-1])
		if prev == "" || isUnderline(lines[i-1]) {
			continue
		}
		return prev
	}
	return ""
}

func rstInline(s string) string {
	s = rstRoleTarget.ReplaceAllString(s, "$1")
	s = rstRole.ReplaceAllString(s, "$1")
	s = rstLiteral.ReplaceAllString(s, "$1")
	s = rstLinkTarget.ReplaceAllString(s, "$1")
	s = rstNamedLink.ReplaceAllString(s, "$1")
	s = rstStrong.ReplaceAllString(s, "$1")
	s = rstEmphasis.ReplaceAllString(s, "$1")
	s = rstSubstitute.ReplaceAllString(s, "$1")
	return strings.ReplaceAll(s, "`", "")
}

// isUnderline reports whether line is a section adornment: at least three
// repetitions of a single punctuation character.
func isUnderline(line string) bool {
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) < 3 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(line)
	if !strings.ContainsRune(rstAdornments, first) {
		return false
	}
	for _, r := range line {
		if r != first {
			return false
		}
	}
	return true
}
