package models

import "time"

// RenderOutcome is produced once per (request, format) pair.
type RenderOutcome struct {
	Format   Format
	Bytes    []byte
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the renderer produced bytes without error.
func (o RenderOutcome) Succeeded() bool {
	return o.Err == nil && o.Bytes != nil
}

// Summary drops the payload so the outcome can be reported or serialized.
func (o RenderOutcome) Summary() OutcomeSummary {
	s := OutcomeSummary{
		Format:         o.Format,
		Succeeded:      o.Succeeded(),
		SizeBytes:      int64(len(o.Bytes)),
		DurationMillis: o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		s.Error = o.Err.Error()
	}
	return s
}

// OutcomeSummary is the caller-facing view of one format's result.
type OutcomeSummary struct {
	Format         Format `json:"format" firestore:"format"`
	Succeeded      bool   `json:"succeeded" firestore:"succeeded"`
	Error          string `json:"error,omitempty" firestore:"error,omitempty"`
	SizeBytes      int64  `json:"sizeBytes" firestore:"sizeBytes"`
	DurationMillis int64  `json:"durationMillis" firestore:"durationMillis"`
}

// GenerationResult is what the coordinator hands back for an admitted request.
type GenerationResult struct {
	RequestID  string           `json:"requestId"`
	ArtifactID string           `json:"artifactId"`
	Outcomes   []OutcomeSummary `json:"outcomes"`
	Degraded   bool             `json:"degraded"`
	Tier       HealthTier       `json:"healthTier"`
}

// Succeeded returns the formats that made it into the artifact.
func (r GenerationResult) Succeeded() []Format {
	var out []Format
	for _, o := range r.Outcomes {
		if o.Succeeded {
			out = append(out, o.Format)
		}
	}
	return out
}

// Failed returns the formats that did not.
func (r GenerationResult) Failed() []Format {
	var out []Format
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			out = append(out, o.Format)
		}
	}
	return out
}
