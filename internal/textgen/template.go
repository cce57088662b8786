package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/mithun789/campus-Me/internal/models"
)

var sectionOpeners = map[string]string{
	"introduction":      "This section introduces the key concepts and provides context.",
	"literature review": "This section reviews relevant existing research and scholarship.",
	"methodology":       "This section describes the methods and approaches used.",
	"results":           "This section presents the key findings and outcomes.",
	"discussion":        "This section analyzes the implications and significance.",
	"conclusion":        "This section summarizes the main points and conclusions.",
}

// Template writes deterministic placeholder prose. It never fails and needs
// no network access.
type Template struct{}

func (Template) GenerateSections(ctx context.Context, outline models.Outline) (models.Sections, error) {
	outline = Normalize(outline)
	target := WordsPerSection(outline)
	out := make(models.Sections, 0, len(outline.Sections))
	for i, name := range outline.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, models.Section{Name: name, Text: templateBody(name, topicFor(outline, i), outline.Style, target)})
	}
	return out, nil
}

func templateBody(name, topic, style string, target int) string {
	opener, ok := sectionOpeners[strings.ToLower(name)]
	if !ok {
		opener = fmt.Sprintf("This section discusses %s.", topic)
	}
	paragraph := fmt.Sprintf("%s The significance of %s is considered here from a %s perspective, "+
		"with particular attention to %s. Through careful analysis and consideration, multiple contributing "+
		"factors can be identified. The evidence suggests that continued research and investigation in this "+
		"area will yield valuable insights. This aspect merits further attention from researchers and "+
		"practitioners alike.", opener, topic, style, strings.ToLower(name))

	var words []string
	var paras []string
	for len(words) < target {
		w := strings.Fields(paragraph)
		if remaining := target - len(words); len(w) > remaining {
			w = w[:remaining]
		}
		words = append(words, w...)
		paras = append(paras, strings.Join(w, " "))
	}
	return strings.Join(paras, "\n\n")
}
