package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []Tag
	}{
		{"french leave", "congé", []Tag{TagHR}},
		{"french how-to", "comment configurer les congés", []Tag{TagHR, TagConfiguration, TagUsage, TagBeginner}},
		{"developer", "external api python", []Tag{TagDevelopment, TagTechnical}},
		{"nothing matches", "xyzzy", []Tag{TagGeneral}},
		{"empty", "", []Tag{TagGeneral}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestClassify_KeywordShapes(t *testing.T) {
	// Multi-word keywords match as substrings.
	assert.Contains(t, Classify("time off request"), TagHR)
	// Long keywords match as word prefixes.
	assert.Contains(t, Classify("invoices overdue"), TagAccounting)
	// Short keywords must be whole words.
	assert.Contains(t, Classify("hr policies"), TagHR)
	assert.NotContains(t, Classify("three shrubs"), TagHR)
	// Dotted and hyphenated words stay whole.
	tags := Classify("deploy on odoo.sh")
	assert.Contains(t, tags, TagInstallation)
	assert.Contains(t, tags, TagTechnical)
}

func TestClassify_CaseAndWhitespaceInsensitive(t *testing.T) {
	assert.Equal(t, Classify("how to  create an INVOICE"), Classify("How To create an invoice"))
}

func TestHas(t *testing.T) {
	tags := []Tag{TagHR, TagBeginner}
	assert.True(t, Has(tags, TagBeginner))
	assert.False(t, Has(tags, TagTechnical))
	assert.False(t, Has(nil, TagGeneral))
}
