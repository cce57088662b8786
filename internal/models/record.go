package models

import "time"

// Generation ledger statuses.
const (
	StatusRendering = "RENDERING"
	StatusRejected  = "REJECTED"
	StatusCompleted = "COMPLETED"
	StatusPartial   = "PARTIAL"
	StatusFailed    = "FAILED"
)

// GenerationRecord is the ledger entry for one generation request. It is
// written once on admission and overwritten with the final status.
type GenerationRecord struct {
	RequestID   string           `firestore:"requestId" json:"requestId"`
	Title       string           `firestore:"title,omitempty" json:"title,omitempty"`
	Status      string           `firestore:"status,omitempty" json:"status,omitempty"`
	ArtifactID  string           `firestore:"artifactId,omitempty" json:"artifactId,omitempty"`
	Formats     []Format         `firestore:"formats,omitempty" json:"formats,omitempty"`
	Outcomes    []OutcomeSummary `firestore:"outcomes,omitempty" json:"outcomes,omitempty"`
	Degraded    bool             `firestore:"degraded" json:"degraded"`
	HealthTier  HealthTier       `firestore:"healthTier,omitempty" json:"healthTier,omitempty"`
	UsedPercent float64          `firestore:"usedPercent" json:"usedPercent"`
	// ErrorDetails is set for rejected requests.
	ErrorDetails string    `firestore:"errorDetails,omitempty" json:"errorDetails,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty" json:"updatedAt"`
}

// FinalStatus derives the terminal status from per-format outcomes.
func FinalStatus(outcomes []OutcomeSummary) string {
	ok := 0
	for _, o := range outcomes {
		if o.Succeeded {
			ok++
		}
	}
	switch {
	case ok == 0:
		return StatusFailed
	case ok < len(outcomes):
		return StatusPartial
	default:
		return StatusCompleted
	}
}

// ArtifactEvent is published after an artifact is registered.
type ArtifactEvent struct {
	RequestID  string     `json:"requestId"`
	ArtifactID string     `json:"artifactId"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Formats    []Format   `json:"formats"`
	Failed     []Format   `json:"failed,omitempty"`
	Degraded   bool       `json:"degraded"`
	HealthTier HealthTier `json:"healthTier"`
	CreatedAt  time.Time  `json:"createdAt"`
}
