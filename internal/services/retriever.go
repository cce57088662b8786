package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/mithun789/campus-Me/internal/metrics"
	"github.com/mithun789/campus-Me/internal/models"
	"github.com/mithun789/campus-Me/internal/registry"
)

// DefaultPreviewChars is the preview length when the caller asks for none.
const DefaultPreviewChars = 1000

// ArtifactSource is the read side of the artifact registry.
type ArtifactSource interface {
	Get(id string) (models.Artifact, bool)
	Peek(id string) (models.Artifact, bool)
	RecordAccess(id string) bool
	List() []models.Artifact
	Open(ctx context.Context, id string, format models.Format) (io.ReadCloser, models.Location, error)
}

// FileReleaser marks stored files as consumed.
type FileReleaser interface {
	MarkProcessed(id string, deleteAfter time.Duration) bool
}

// Download is one format's bytes ready to be served.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Retriever answers artifact lookups.
type Retriever struct {
	source   ArtifactSource
	releaser FileReleaser
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRetriever builds a retriever. releaser and m may be nil.
func NewRetriever(source ArtifactSource, releaser FileReleaser, m *metrics.Metrics, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{source: source, releaser: releaser, metrics: m, logger: logger}
}

// GetArtifactInfo returns the artifact and counts the access.
func (r *Retriever) GetArtifactInfo(id string) (models.Artifact, error) {
	a, ok := r.source.Get(id)
	if !ok {
		return models.Artifact{}, fmt.Errorf("artifact %s: %w", id, models.ErrNotFound)
	}
	r.metrics.Access()
	return a, nil
}

// GetArtifactPreview returns at most maxChars characters of the artifact's
// plain-text body. A truncated preview ends with a note of how much was cut.
func (r *Retriever) GetArtifactPreview(id string, maxChars int) (string, error) {
	a, ok := r.source.Peek(id)
	if !ok {
		return "", fmt.Errorf("artifact %s: %w", id, models.ErrNotFound)
	}
	if maxChars <= 0 {
		maxChars = DefaultPreviewChars
	}
	return Truncate(a.Preview, maxChars), nil
}

// Truncate cuts s to maxChars runes.
func Truncate(s string, maxChars int) string {
	total := utf8.RuneCountInString(s)
	if total <= maxChars {
		return s
	}
	cut := 0
	for i := range s {
		if cut == maxChars {
			return fmt.Sprintf("%s\n... [%d more characters]", s[:i], total-maxChars)
		}
		cut++
	}
	return s
}

// GetArtifactBytes reads one format of an artifact.
func (r *Retriever) GetArtifactBytes(ctx context.Context, id string, format models.Format) (Download, error) {
	a, ok := r.source.Peek(id)
	if !ok {
		return Download{}, fmt.Errorf("artifact %s: %w", id, models.ErrNotFound)
	}
	rc, loc, err := r.source.Open(ctx, id, format)
	if err != nil {
		return Download{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Download{}, fmt.Errorf("%w: failed to read %s: %w", models.ErrStorage, loc.Key, err)
	}
	// Only a completed read counts, and the artifact may have expired since.
	r.source.RecordAccess(id)
	r.metrics.Access()
	return Download{
		Filename:    registry.FileBaseName(a.Title) + "." + loc.Extension,
		ContentType: loc.ContentType,
		Data:        data,
	}, nil
}

// ListArtifacts returns every registered artifact, oldest first.
func (r *Retriever) ListArtifacts() []models.Artifact {
	return r.source.List()
}

// ReleaseArtifact marks every stored format of the artifact as processed so
// its files are reclaimed after the given delay. It returns the number of
// files marked.
func (r *Retriever) ReleaseArtifact(id string, after time.Duration) (int, error) {
	a, ok := r.source.Peek(id)
	if !ok {
		return 0, fmt.Errorf("artifact %s: %w", id, models.ErrNotFound)
	}
	if r.releaser == nil {
		return 0, nil
	}
	n := 0
	for _, loc := range a.Formats {
		if r.releaser.MarkProcessed(loc.Key, after) {
			n++
		}
	}
	r.logger.Info("Artifact released.", "artifactId", id, "files", n, "deleteAfter", after.String())
	return n, nil
}
