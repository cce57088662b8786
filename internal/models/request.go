package models

import (
	"fmt"
	"strings"
)

// Format is a short output-encoding tag such as "pdf" or "md".
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatLaTeX    Format = "latex"
)

// ParseFormat normalizes a user supplied tag. Aliases are accepted for the
// built-in encodings; anything else is passed through lower-cased so custom
// renderers can register their own tags.
func ParseFormat(s string) Format {
	tag := strings.ToLower(strings.TrimSpace(s))
	switch tag {
	case "markdown":
		return FormatMarkdown
	case "tex":
		return FormatLaTeX
	case "htm":
		return FormatHTML
	case "word":
		return FormatDOCX
	}
	return Format(tag)
}

// Section is one named block of body text. Order is significant.
type Section struct {
	Name string `json:"name" firestore:"name"`
	Text string `json:"text" firestore:"text"`
}

// Sections preserves the order in which the caller supplied them.
type Sections []Section

// WordCount counts whitespace separated words across all section bodies.
func (s Sections) WordCount() int {
	n := 0
	for _, sec := range s {
		n += len(strings.Fields(sec.Text))
	}
	return n
}

// Features are the optional content extras a renderer may emit.
type Features struct {
	Tables bool `json:"tables"`
	Charts bool `json:"charts"`
}

// Outline carries the inputs for text generation when a request arrives
// without section bodies.
type Outline struct {
	Title        string   `json:"title"`
	Sections     []string `json:"sections,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	Style        string   `json:"style,omitempty"`
	WordBudget   int      `json:"wordBudget,omitempty"`
	Context      string   `json:"context,omitempty"`
	DocumentType string   `json:"documentType,omitempty"`
}

// GenerationRequest is treated as immutable once handed to the coordinator.
type GenerationRequest struct {
	Title     string
	Sections  Sections
	Citations []string
	Formats   []Format
	Features  Features

	// Outline is consulted only when Sections is empty.
	Outline Outline
}

// Validate checks the request shape and returns the de-duplicated format
// list in first-seen order.
func (r *GenerationRequest) Validate() ([]Format, error) {
	if strings.TrimSpace(r.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidRequest)
	}
	seen := make(map[Format]struct{}, len(r.Formats))
	formats := make([]Format, 0, len(r.Formats))
	for _, f := range r.Formats {
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("%w: at least one format is required", ErrInvalidRequest)
	}
	return formats, nil
}
