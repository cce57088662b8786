package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mithun789/campus-Me/internal/blob"
	"github.com/mithun789/campus-Me/internal/gcp"
	"github.com/mithun789/campus-Me/internal/health"
)

// Config is the document generator's runtime configuration.
type Config struct {
	ProjectID string

	Blob           blob.Config
	BlobPutRetries int

	Thresholds health.Thresholds

	RenderWorkers  int
	RenderTimeout  time.Duration
	RenderSlotWait time.Duration

	ArtifactTTL   time.Duration
	MaxFileAge    time.Duration
	SweepInterval time.Duration
	MaxArtifactMB int

	PreviewChars int

	VertexRegion string
	VertexModel  string

	FirestoreCollection string
	LedgerSQLitePath    string

	EventSinkURL     string
	WorkflowID       string
	WorkflowLocation string
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		ProjectID: gcp.GetEnv("PROJECT_ID", ""),
		Blob: blob.Config{
			Driver:     blob.Driver(gcp.GetEnv("BLOB_DRIVER", string(blob.DriverFilesystem))),
			ScratchDir: gcp.GetEnv("SCRATCH_DIR", filepath.Join(os.TempDir(), "campus_me_artifacts")),
			GCSBucket:  gcp.GetEnv("ARTIFACTS_BUCKET", ""),
			S3: blob.S3Config{
				Bucket:    gcp.GetEnv("BLOB_S3_BUCKET", ""),
				Region:    gcp.GetEnv("BLOB_S3_REGION", ""),
				Endpoint:  gcp.GetEnv("BLOB_S3_ENDPOINT", ""),
				PathStyle: gcp.GetEnvBool("BLOB_S3_PATH_STYLE", false),
			},
		},
		BlobPutRetries: gcp.GetEnvInt("BLOB_PUT_RETRIES", 4),
		Thresholds: health.Thresholds{
			WarningPercent:  gcp.GetEnvFloat("MEMORY_WARNING_PERCENT", 80),
			CriticalPercent: gcp.GetEnvFloat("MEMORY_CRITICAL_PERCENT", 90),
		},
		RenderWorkers:       gcp.GetEnvInt("RENDER_WORKERS", DefaultWorkers),
		RenderTimeout:       gcp.GetEnvDuration("RENDER_TIMEOUT_SECONDS", time.Second, 60),
		RenderSlotWait:      gcp.GetEnvDuration("RENDER_SLOT_WAIT_SECONDS", time.Second, 60),
		ArtifactTTL:         gcp.GetEnvDuration("ARTIFACT_TTL_MINUTES", time.Minute, 60),
		MaxFileAge:          gcp.GetEnvDuration("MAX_FILE_AGE_MINUTES", time.Minute, 60),
		SweepInterval:       gcp.GetEnvDuration("SWEEP_INTERVAL_SECONDS", time.Second, 300),
		MaxArtifactMB:       gcp.GetEnvInt("MAX_ARTIFACT_MB", 50),
		PreviewChars:        gcp.GetEnvInt("PREVIEW_CHARS", DefaultPreviewChars),
		VertexRegion:        gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexModel:         gcp.GetEnv("VERTEX_MODEL", "gemini-1.5-pro"),
		FirestoreCollection: gcp.GetEnv("FIRESTORE_COLLECTION", ""),
		LedgerSQLitePath:    gcp.GetEnv("LEDGER_SQLITE_PATH", ""),
		EventSinkURL:        gcp.GetEnv("EVENT_SINK_URL", ""),
		WorkflowID:          gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:    gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	t := c.Thresholds
	if t.WarningPercent <= 0 || t.CriticalPercent > 100 || t.WarningPercent > t.CriticalPercent {
		return fmt.Errorf("invalid memory thresholds: warning %.1f%%, critical %.1f%%", t.WarningPercent, t.CriticalPercent)
	}
	if c.RenderWorkers <= 0 {
		return fmt.Errorf("RENDER_WORKERS must be positive, got %d", c.RenderWorkers)
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT_SECONDS must be positive")
	}
	if c.RenderSlotWait < 0 {
		return fmt.Errorf("RENDER_SLOT_WAIT_SECONDS must not be negative")
	}
	if c.FirestoreCollection != "" && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID must be set when FIRESTORE_COLLECTION is set")
	}
	if c.WorkflowID != "" && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID must be set when WORKFLOW_ID is set")
	}
	return nil
}
