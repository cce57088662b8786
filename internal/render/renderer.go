// Package render turns generated section content into concrete output
// encodings. Each Renderer handles one format tag.
package render

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
)

// Input is everything a renderer needs. Renderers must treat it as read-only.
type Input struct {
	Title     string
	Sections  models.Sections
	Citations []string
	Features  models.Features
	Date      time.Time
}

// Renderer produces one output encoding. Implementations must be safe for
// concurrent use and should return promptly once ctx is done.
type Renderer interface {
	Format() models.Format
	Extension() string
	ContentType() string
	Render(ctx context.Context, in Input) ([]byte, error)
}

// Set maps format tags to renderers.
type Set struct {
	byFormat map[models.Format]Renderer
}

// NewSet registers rs; a later renderer for the same format replaces an
// earlier one.
func NewSet(rs ...Renderer) *Set {
	s := &Set{byFormat: make(map[models.Format]Renderer, len(rs))}
	for _, r := range rs {
		s.byFormat[r.Format()] = r
	}
	return s
}

// Builtins returns the renderers shipped with the service.
func Builtins() []Renderer {
	return []Renderer{
		MarkdownRenderer{},
		HTMLRenderer{},
		LaTeXRenderer{},
		DOCXRenderer{},
		NewPDFRenderer(),
	}
}

// Lookup finds the renderer for f.
func (s *Set) Lookup(f models.Format) (Renderer, bool) {
	r, ok := s.byFormat[f]
	return r, ok
}

// Formats lists the supported tags in sorted order.
func (s *Set) Formats() []models.Format {
	out := make([]models.Format, 0, len(s.byFormat))
	for f := range s.byFormat {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Describe returns the file extension and content type for f, with a
// generic fallback for unknown tags.
func (s *Set) Describe(f models.Format) (ext, contentType string) {
	if r, ok := s.byFormat[f]; ok {
		return r.Extension(), r.ContentType()
	}
	return string(f), "application/octet-stream"
}

// sectionStat is one row of the optional overview table and chart.
type sectionStat struct {
	Name  string
	Words int
}

func sectionStats(secs models.Sections) []sectionStat {
	out := make([]sectionStat, 0, len(secs))
	for _, s := range secs {
		out = append(out, sectionStat{Name: s.Name, Words: len(strings.Fields(s.Text))})
	}
	return out
}

func maxWords(stats []sectionStat) int {
	m := 0
	for _, s := range stats {
		if s.Words > m {
			m = s.Words
		}
	}
	return m
}

func displayDate(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("January 2, 2006")
}

// paragraphs splits body text on blank lines.
func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func checkCtx(ctx context.Context, f models.Format) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s render aborted: %w", f, err)
	}
	return nil
}
