package models

import "time"

// HealthTier classifies memory pressure.
type HealthTier string

const (
	TierHealthy  HealthTier = "HEALTHY"
	TierWarning  HealthTier = "WARNING"
	TierCritical HealthTier = "CRITICAL"
)

// HealthSnapshot is recomputed on every query.
type HealthSnapshot struct {
	UsedPercent    float64    `json:"usedPercent"`
	AvailableBytes uint64     `json:"availableBytes"`
	TotalBytes     uint64     `json:"totalBytes"`
	Tier           HealthTier `json:"tier"`
	Warnings       []string   `json:"warnings,omitempty"`
	SampledAt      time.Time  `json:"sampledAt"`
}

// ProcessStats describes the service process itself. MemoryPercent is
// resident memory against total system memory; CPUPercent is summed over
// cores and may exceed 100.
type ProcessStats struct {
	ResidentBytes uint64    `json:"residentBytes"`
	MemoryPercent float64   `json:"memoryPercent"`
	CPUPercent    float64   `json:"cpuPercent"`
	CPUCount      int       `json:"cpuCount"`
	SampledAt     time.Time `json:"sampledAt"`
}
