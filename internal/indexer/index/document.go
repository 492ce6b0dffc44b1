package index

import "time"

// Source tags carried in Metadata.Source.
const (
	SourceCorpus    = "corpus"
	SourceSynthetic = "synthetic"
)

// Metadata records how a Document was produced.
type Metadata struct {
	Parser string `json:"parser"`
	Source string `json:"source"`
}

// Document is one parsed unit of documentation. Documents are immutable once
// built; re-indexing replaces them wholesale.
type Document struct {
	ID          string    `json:"id"`
	FilePath    string    `json:"filePath,omitempty"`
	FullPath    string    `json:"fullPath,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content"`
	Section     string    `json:"section"`
	Subsection  string    `json:"subsection,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	WordCount   int       `json:"wordCount"`
	ReadingTime int       `json:"readingTime"`
	FileSize    int64     `json:"fileSize"`
	FileType    string    `json:"fileType"`
	LastUpdated time.Time `json:"lastUpdated"`
	Metadata    Metadata  `json:"metadata"`
}

// Synthetic reports whether the document was injected by enrichment rather
// than parsed from the corpus.
func (d *Document) Synthetic() bool {
	return d.Metadata.Source == SourceSynthetic
}
