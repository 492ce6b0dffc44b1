package ranker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt_PicksBestSentence(t *testing.T) {
	content := "Short one. This sentence talks about leave allocation rules in depth. " +
		"Another sentence mentions leave only once here."
	got := Excerpt(content, []string{"leave", "allocation"})
	assert.Equal(t, "This sentence talks about leave allocation rules in depth...", got)
}

func TestExcerpt_IgnoresShortMatchingFragments(t *testing.T) {
	content := "Leave rules. A much longer sentence without the word."
	assert.Equal(t, content, Excerpt(content, []string{"leave"}))
}

func TestExcerpt_TruncatesLongSentence(t *testing.T) {
	content := "leave " + strings.Repeat("x", 500)
	got := Excerpt(content, []string{"leave"})
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, 303, utf8.RuneCountInString(got))
}

func TestExcerpt_Fallback(t *testing.T) {
	long := strings.Repeat("é", 250)
	got := Excerpt(long, []string{"absent"})
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)

	assert.Equal(t, "tiny", Excerpt("tiny", []string{"absent"}))
}
