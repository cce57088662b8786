package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/mithun789/campus-Me/internal/gcp"
	"github.com/mithun789/campus-Me/internal/models"
)

// contentModel is the slice of *genai.GenerativeModel used here.
type contentModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// parsedSection defines the structure of the JSON objects we expect from the Gemini response.
type parsedSection struct {
	Section string `json:"section"`
	Content string `json:"content"`
}

// Vertex drafts sections with a Gemini model.
type Vertex struct {
	model  contentModel
	logger *slog.Logger
}

// NewVertex wraps the section writer model of client.
func NewVertex(client *gcp.VertexClient) *Vertex {
	return &Vertex{model: client.SectionWriterModel, logger: slog.Default()}
}

func (v *Vertex) GenerateSections(ctx context.Context, outline models.Outline) (models.Sections, error) {
	outline = Normalize(outline)
	logCtx := v.logger.With("title", outline.Title, "sectionCount", len(outline.Sections))

	resp, err := v.model.GenerateContent(ctx, genai.Text(gcp.SectionWriterUserPrompt), genai.Text(describeOutline(outline)))
	if err != nil {
		logCtx.Error("Call to Vertex AI for section writing failed", "error", err)
		return nil, fmt.Errorf("failed to generate sections from gemini: %w", err)
	}

	jsonString := extractJSONContent(resp)
	if jsonString == "" {
		return nil, fmt.Errorf("gemini returned an empty response instead of JSON")
	}
	var parsed []parsedSection
	if err := json.Unmarshal([]byte(jsonString), &parsed); err != nil {
		logCtx.Error("Failed to unmarshal JSON response from Gemini", "error", err, "responseBody", jsonString)
		return nil, fmt.Errorf("failed to parse JSON from model: %w", err)
	}

	byName := make(map[string]string, len(parsed))
	for _, p := range parsed {
		byName[strings.ToLower(strings.TrimSpace(p.Section))] = strings.TrimSpace(p.Content)
	}
	// Keep the requested order; sections the model skipped come back empty.
	out := make(models.Sections, 0, len(outline.Sections))
	for _, name := range outline.Sections {
		out = append(out, models.Section{Name: name, Text: byName[strings.ToLower(name)]})
	}
	logCtx.Info("Sections drafted.", "returned", len(parsed))
	return out, nil
}

func describeOutline(o models.Outline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", o.Title)
	if o.DocumentType != "" {
		fmt.Fprintf(&b, "Document type: %s\n", o.DocumentType)
	}
	fmt.Fprintf(&b, "Style: %s\nTotal word budget: %d (about %d per section)\n", o.Style, o.WordBudget, WordsPerSection(o))
	if o.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", o.Context)
	}
	b.WriteString("Sections:\n")
	for i, name := range o.Sections {
		fmt.Fprintf(&b, "%d. %s (topic: %s)\n", i+1, name, topicFor(o, i))
	}
	return b.String()
}

// extractJSONContent gets the raw text content from the model response.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		// Clean potential markdown fences just in case
		cleanJSON := strings.TrimSpace(string(txt))
		cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
		cleanJSON = strings.TrimSuffix(cleanJSON, "```")
		return strings.TrimSpace(cleanJSON)
	}
	return ""
}
