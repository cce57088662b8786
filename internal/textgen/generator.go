// Package textgen produces section bodies for requests that arrive with an
// outline instead of finished text.
package textgen

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mithun789/campus-Me/internal/models"
)

// DefaultSections is used when an outline names no sections.
var DefaultSections = []string{
	"Introduction",
	"Literature Review",
	"Methodology",
	"Results",
	"Discussion",
	"Conclusion",
}

const (
	DefaultWordBudget  = 2000
	MinWordsPerSection = 150
	MaxWordsPerSection = 500
)

// Generator fills in section bodies for an outline.
type Generator interface {
	GenerateSections(ctx context.Context, outline models.Outline) (models.Sections, error)
}

// Normalize fills outline defaults and drops blank section names.
func Normalize(o models.Outline) models.Outline {
	var names []string
	for _, s := range o.Sections {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}
	if len(names) == 0 {
		names = append(names, DefaultSections...)
	}
	o.Sections = names
	if o.WordBudget <= 0 {
		o.WordBudget = DefaultWordBudget
	}
	if strings.TrimSpace(o.Style) == "" {
		o.Style = "academic"
	}
	return o
}

// WordsPerSection splits the budget evenly, clamped to sensible bounds.
func WordsPerSection(o models.Outline) int {
	if len(o.Sections) == 0 {
		return MinWordsPerSection
	}
	n := o.WordBudget / len(o.Sections)
	return min(max(n, MinWordsPerSection), MaxWordsPerSection)
}

// topicFor returns the topic paired with section i, falling back to the
// title.
func topicFor(o models.Outline, i int) string {
	if i < len(o.Topics) && strings.TrimSpace(o.Topics[i]) != "" {
		return strings.TrimSpace(o.Topics[i])
	}
	if o.Title != "" {
		return o.Title
	}
	return "the subject"
}

// Fallback tries Primary and falls back to Secondary on error. Sections the
// primary leaves empty are filled from the secondary.
type Fallback struct {
	Primary   Generator
	Secondary Generator
	Logger    *slog.Logger
}

func (f Fallback) GenerateSections(ctx context.Context, outline models.Outline) (models.Sections, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	outline = Normalize(outline)
	if f.Primary == nil {
		return f.Secondary.GenerateSections(ctx, outline)
	}
	secs, err := f.Primary.GenerateSections(ctx, outline)
	if err != nil {
		logger.Warn("Primary text generation failed, using fallback.", "error", err)
		return f.Secondary.GenerateSections(ctx, outline)
	}
	var missing bool
	for _, s := range secs {
		if strings.TrimSpace(s.Text) == "" {
			missing = true
			break
		}
	}
	if !missing {
		return secs, nil
	}
	backup, err := f.Secondary.GenerateSections(ctx, outline)
	if err != nil {
		return secs, nil
	}
	for i := range secs {
		if strings.TrimSpace(secs[i].Text) == "" && i < len(backup) {
			secs[i].Text = backup[i].Text
		}
	}
	return secs, nil
}
