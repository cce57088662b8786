package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Section Writer Model Prompts ---
const SectionWriterSystemPrompt = "You are an academic writing assistant. You draft the body text of a structured document, one section at a time, in a clear and well organised register. You must output your response as a valid JSON array."
const SectionWriterUserPrompt = `Write the body text for the document described below.

Follow these rules precisely:
1.  Produce exactly one JSON object per requested section, in the order given.
2.  Each JSON object must have exactly two keys:
    - "section": the section name exactly as requested.
    - "content": the full prose for that section, in plain text or light markdown.
3.  Stay close to the overall word budget, spread across sections in proportion to their importance.
4.  Do not invent citations. If references are needed, refer to them generically.
5.  The final output MUST be a single, valid JSON array of these objects. Do not include any text before or after the JSON array.

Example output format:
[
  {
    "section": "Introduction",
    "content": "This document examines..."
  },
  {
    "section": "Methodology",
    "content": "The approach taken..."
  }
]`

// VertexClient holds the pre-configured generative models for the app.
type VertexClient struct {
	SectionWriterModel *genai.GenerativeModel
	baseClient         *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	sectionWriterModel := baseClient.GenerativeModel(modelName)
	sectionWriterModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SectionWriterSystemPrompt)},
	}
	sectionWriterModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.4),
	}
	sectionWriterModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	}

	return &VertexClient{
		SectionWriterModel: sectionWriterModel,
		baseClient:         baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
