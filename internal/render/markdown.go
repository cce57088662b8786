package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/mithun789/campus-Me/internal/models"
)

// MarkdownRenderer emits CommonMark with a table of contents.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Format() models.Format { return models.FormatMarkdown }
func (MarkdownRenderer) Extension() string     { return "md" }
func (MarkdownRenderer) ContentType() string   { return "text/markdown; charset=utf-8" }

func (m MarkdownRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	if err := checkCtx(ctx, m.Format()); err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", in.Title)
	fmt.Fprintf(&b, "*Date: %s*\n\n", displayDate(in.Date))

	if len(in.Sections) > 0 {
		b.WriteString("## Table of Contents\n\n")
		for i, s := range in.Sections {
			fmt.Fprintf(&b, "%d. [%s](#%s)\n", i+1, s.Name, anchor(s.Name))
		}
		b.WriteString("\n")
	}

	stats := sectionStats(in.Sections)
	if in.Features.Tables && len(stats) > 0 {
		b.WriteString("## Document Overview\n\n| Section | Words |\n|---|---:|\n")
		for _, s := range stats {
			fmt.Fprintf(&b, "| %s | %d |\n", strings.ReplaceAll(s.Name, "|", `\|`), s.Words)
		}
		b.WriteString("\n")
	}
	if in.Features.Charts && len(stats) > 0 {
		b.WriteString("```text\n")
		peak := maxWords(stats)
		for _, s := range stats {
			bar := 0
			if peak > 0 {
				bar = s.Words * 40 / peak
			}
			fmt.Fprintf(&b, "%-24.24s %s %d\n", s.Name, strings.Repeat("#", bar), s.Words)
		}
		b.WriteString("```\n\n")
	}

	for _, s := range in.Sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.Name, strings.TrimSpace(s.Text))
	}

	if len(in.Citations) > 0 {
		b.WriteString("## References\n\n")
		for i, c := range in.Citations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, c)
		}
	}
	return []byte(b.String()), nil
}

// anchor approximates the heading slug most markdown viewers generate.
func anchor(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
