package models

// These structs define the JSON payloads for the HTTP entry points.

// SectionPayload is one section in a generate request.
type SectionPayload struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// GenerateRequest is the input for the document generator function.
type GenerateRequest struct {
	Title     string           `json:"title"`
	Sections  []SectionPayload `json:"sections,omitempty"`
	Citations []string         `json:"citations,omitempty"`
	Formats   []string         `json:"formats"`
	Tables    bool             `json:"includeTables,omitempty"`
	Charts    bool             `json:"includeCharts,omitempty"`

	// Used only when Sections is empty.
	Outline      []string `json:"outline,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	Style        string   `json:"style,omitempty"`
	WordBudget   int      `json:"wordBudget,omitempty"`
	Context      string   `json:"context,omitempty"`
	DocumentType string   `json:"documentType,omitempty"`
}

// ToGenerationRequest converts the wire payload into the domain request.
func (p GenerateRequest) ToGenerationRequest() GenerationRequest {
	req := GenerationRequest{
		Title:     p.Title,
		Citations: append([]string(nil), p.Citations...),
		Features:  Features{Tables: p.Tables, Charts: p.Charts},
		Outline: Outline{
			Title:        p.Title,
			Sections:     append([]string(nil), p.Outline...),
			Topics:       append([]string(nil), p.Topics...),
			Style:        p.Style,
			WordBudget:   p.WordBudget,
			Context:      p.Context,
			DocumentType: p.DocumentType,
		},
	}
	for _, s := range p.Sections {
		req.Sections = append(req.Sections, Section{Name: s.Name, Text: s.Text})
	}
	for _, f := range p.Formats {
		req.Formats = append(req.Formats, ParseFormat(f))
	}
	return req
}

// GenerateResponse is the output of the document generator function.
type GenerateResponse struct {
	Status string `json:"status"`
	GenerationResult
}

// ArtifactInfoResponse is the output of the artifact info function.
type ArtifactInfoResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	CreatedAt   string         `json:"createdAt"`
	Formats     []Format       `json:"formats"`
	Metadata    map[string]any `json:"metadata"`
	AccessCount int64          `json:"accessCount"`
}

// ArtifactReleaseResponse is the output of the artifact release function.
type ArtifactReleaseResponse struct {
	Status string `json:"status"`
	Files  int    `json:"files"`
}

// SystemStatusResponse is the output of the system status function.
type SystemStatusResponse struct {
	Health          HealthSnapshot `json:"health"`
	Process         *ProcessStats  `json:"process,omitempty"`
	Recommendations []string       `json:"recommendations"`
	Storage         StorageUsage   `json:"storage"`
	Artifacts       int            `json:"artifacts"`
	Files           []TrackedFile  `json:"files,omitempty"`
}

// ErrorResponse is written for non-2xx answers.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}
