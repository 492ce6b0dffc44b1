package docparser

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterDelimiter = "---"

var (
	mdHTMLTag     = regexp.MustCompile(`<[^>\n]+>`)
	mdImage       = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLink        = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdRefLink     = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	mdInlineCode  = regexp.MustCompile("`([^`]*)`")
	mdFence       = regexp.MustCompile("^\\s*(```|~~~)")
	mdHeading     = regexp.MustCompile(`^\s{0,3}#{1,6}\s+`)
	mdListMarker  = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)
	mdBlockquote  = regexp.MustCompile(`^\s*(>\s?)+`)
	mdEmphasis    = regexp.MustCompile(`(\*\*|__)([^*_]+)(\*\*|__)`)
	mdRule        = regexp.MustCompile(`^\s*([-*_]\s*){3,}$`)
	mdLinkDefLine = regexp.MustCompile(`^\s*\[[^\]]+\]:\s+\S+`)
)

// markdownDialect handles Markdown sources with optional YAML front matter.
type markdownDialect struct{}

func (markdownDialect) name() string { return "markdown" }

func (markdownDialect) parse(raw string) (title, description, content string) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	meta, body := splitFrontMatter(raw)
	title = meta["title"]
	description = meta["description"]

	var b strings.Builder
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		if mdFence.MatchString(line) {
			inFence = !inFence
			continue
		}
		if mdRule.MatchString(line) || mdLinkDefLine.MatchString(line) {
			continue
		}
		// Shell comments in code blocks look like headings.
		if title == "" && !inFence && strings.HasPrefix(strings.TrimSpace(line), "# ") {
			title = markdownInline(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "#")))
		}
		line = mdHeading.ReplaceAllString(line, "")
		line = mdBlockquote.ReplaceAllString(line, "")
		line = mdListMarker.ReplaceAllString(line, "")
		b.WriteString(markdownInline(line))
		b.WriteByte('\n')
	}
	return title, description, b.String()
}

// splitFrontMatter separates a leading "---" delimited key/value block from
// the body. Values that are not plain strings are formatted with %v.
func splitFrontMatter(raw string) (map[string]string, string) {
	meta := map[string]string{}
	trimmed := strings.TrimLeft(raw, "\ufeff")
	if !strings.HasPrefix(trimmed, frontMatterDelimiter+"\n") {
		return meta, raw
	}
	rest := trimmed[len(frontMatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelimiter)
	var block, body string
	switch {
	case strings.HasPrefix(rest, frontMatterDelimiter):
		block, body = "", rest[len(frontMatterDelimiter):]
	case end >= 0:
		block = rest[:end]
		body = rest[end+1+len(frontMatterDelimiter):]
	default:
		return meta, raw
	}

	var values map[string]any
	if err := yaml.Unmarshal([]byte(block), &values); err != nil {
		values = parseKeyValues(block)
	}
	for k, v := range values {
		if v == nil {
			continue
		}
		meta[strings.ToLower(k)] = strings.Trim(fmt.Sprintf("%v", v), `"' `)
	}
	return meta, body
}

// parseKeyValues is the lenient fallback for front matter that is not valid
// YAML, e.g. unquoted values containing ": ".
func parseKeyValues(block string) map[string]any {
	values := map[string]any{}
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values
}

func markdownInline(s string) string {
	s = mdImage.ReplaceAllString(s, "")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdRefLink.ReplaceAllString(s, "$1")
	s = mdInlineCode.ReplaceAllString(s, "$1")
	s = mdHTMLTag.ReplaceAllString(s, "")
	s = mdEmphasis.ReplaceAllString(s, "$2")
	return s
}
