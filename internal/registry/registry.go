// Package registry holds generated artifacts and the locations of their
// stored formats.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mithun789/campus-Me/internal/blob"
	"github.com/mithun789/campus-Me/internal/models"
)

// Tracker receives every stored file so it can be reclaimed later.
type Tracker interface {
	Track(id, path string, size int64, ttl time.Duration) models.TrackedFile
}

// FormatInfo describes how a format's bytes are stored.
type FormatInfo struct {
	Extension   string
	ContentType string
}

// Config holds the registry's tunables.
type Config struct {
	// TTL applied to each stored format file.
	TTL time.Duration
	// MaxBytes rejects larger renders as storage failures. Zero disables the cap.
	MaxBytes int64
	// Describe maps a format to its extension and content type.
	Describe func(models.Format) FormatInfo
	Logger   *slog.Logger
	// OnChange is called with the artifact count after every mutation.
	OnChange func(artifacts int)
}

// RegisterResult reports the new id and any formats that could not be stored.
type RegisterResult struct {
	ID     string
	Stored []models.Format
	Failed map[models.Format]error
}

type fileRef struct {
	artifactID string
	format     models.Format
}

// Registry maps opaque ids to artifacts. A single RWMutex guards the map:
// lookups share it, registration and bookkeeping take it exclusively. Blob
// writes happen before the lock is taken so an artifact becomes visible
// only once all of its bytes are stored.
type Registry struct {
	store   blob.Store
	tracker Tracker
	cfg     Config
	logger  *slog.Logger
	newID   func() string
	now     func() time.Time

	mu        sync.RWMutex
	artifacts map[string]*models.Artifact
	files     map[string]fileRef
}

// New builds a registry that writes bytes to store and hands every stored
// key to tracker. tracker may be nil.
func New(store blob.Store, tracker Tracker, cfg Config) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Describe == nil {
		cfg.Describe = func(f models.Format) FormatInfo {
			return FormatInfo{Extension: string(f), ContentType: "application/octet-stream"}
		}
	}
	return &Registry{
		store:     store,
		tracker:   tracker,
		cfg:       cfg,
		logger:    logger.With("component", "registry"),
		newID:     uuid.NewString,
		now:       time.Now,
		artifacts: make(map[string]*models.Artifact),
		files:     make(map[string]fileRef),
	}
}

// Register stores each successful render and publishes the artifact. Only
// formats whose bytes were stored appear in the artifact; the rest are
// returned in Failed wrapped with models.ErrStorage.
func (r *Registry) Register(ctx context.Context, title string, results []models.RenderOutcome, preview string, metadata map[string]any) (RegisterResult, error) {
	if r.store == nil {
		return RegisterResult{}, fmt.Errorf("%w: registry has no blob store", models.ErrStorage)
	}
	id := r.newID()
	logCtx := r.logger.With("artifactId", id)
	res := RegisterResult{ID: id, Failed: map[models.Format]error{}}
	formats := make(map[models.Format]models.Location, len(results))
	base := FileBaseName(title)

	for _, out := range results {
		if !out.Succeeded() {
			continue
		}
		desc := r.cfg.Describe(out.Format)
		if r.cfg.MaxBytes > 0 && int64(len(out.Bytes)) > r.cfg.MaxBytes {
			res.Failed[out.Format] = fmt.Errorf("%w: %s render is %d bytes, limit %d", models.ErrStorage, out.Format, len(out.Bytes), r.cfg.MaxBytes)
			logCtx.Warn("Render exceeds size cap, not storing.", "format", out.Format, "sizeBytes", len(out.Bytes))
			continue
		}
		key := fmt.Sprintf("%s/%s.%s", id, base, desc.Extension)
		info, err := r.store.Put(ctx, key, bytes.NewReader(out.Bytes), blob.PutOptions{
			ContentType: desc.ContentType,
			Metadata:    map[string]string{"artifactId": id, "format": string(out.Format)},
		})
		if err != nil {
			res.Failed[out.Format] = fmt.Errorf("%w: failed to store %s: %w", models.ErrStorage, out.Format, err)
			logCtx.Error("Failed to store rendered format.", "format", out.Format, "key", key, "error", err)
			continue
		}
		formats[out.Format] = models.Location{Key: key, SizeBytes: info.Size, ContentType: desc.ContentType, Extension: desc.Extension}
		res.Stored = append(res.Stored, out.Format)
	}

	a := &models.Artifact{
		ID:        id,
		Title:     title,
		CreatedAt: r.now(),
		Formats:   formats,
		Preview:   preview,
		Metadata:  models.CloneMetadata(metadata),
	}
	a.Metadata["format_count"] = len(formats)

	r.mu.Lock()
	r.artifacts[id] = a
	for f, loc := range formats {
		r.files[loc.Key] = fileRef{artifactID: id, format: f}
	}
	count := len(r.artifacts)
	r.mu.Unlock()

	// Tracking after publication keeps a zero TTL from detaching formats of
	// an artifact that is not yet visible.
	if r.tracker != nil {
		for _, loc := range formats {
			r.tracker.Track(loc.Key, loc.Key, loc.SizeBytes, r.cfg.TTL)
		}
	}
	r.changed(count)
	logCtx.Info("Artifact registered.", "stored", len(res.Stored), "failed", len(res.Failed))
	return res, nil
}

// Get returns a copy of the artifact and records an access.
func (r *Registry) Get(id string) (models.Artifact, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.artifacts[id]
	if !ok {
		return models.Artifact{}, false
	}
	a.AccessCount++
	return a.Clone(), true
}

// Peek returns a copy without recording an access.
func (r *Registry) Peek(id string) (models.Artifact, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[id]
	if !ok {
		return models.Artifact{}, false
	}
	return a.Clone(), true
}

// RecordAccess increments the access counter and reports whether id exists.
func (r *Registry) RecordAccess(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.artifacts[id]
	if ok {
		a.AccessCount++
	}
	return ok
}

// List returns copies of all artifacts, oldest first.
func (r *Registry) List() []models.Artifact {
	r.mu.RLock()
	out := make([]models.Artifact, 0, len(r.artifacts))
	for _, a := range r.artifacts {
		out = append(out, a.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of registered artifacts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.artifacts)
}

// Detach drops the format stored at fileKey. An artifact that loses its
// last format is purged. It reports whether anything changed.
func (r *Registry) Detach(fileKey string) bool {
	r.mu.Lock()
	ref, ok := r.files[fileKey]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.files, fileKey)
	purged := false
	if a, ok := r.artifacts[ref.artifactID]; ok {
		delete(a.Formats, ref.format)
		if len(a.Formats) == 0 {
			delete(r.artifacts, ref.artifactID)
			purged = true
		}
	}
	count := len(r.artifacts)
	r.mu.Unlock()

	r.logger.Info("Detached expired format.", "artifactId", ref.artifactID, "format", ref.format, "purged", purged)
	r.changed(count)
	return true
}

// PruneEmpty purges artifacts that hold no formats and are older than
// maxAge. Such artifacts only exist when every render failed; they are kept
// for a while so callers can still inspect the failure.
func (r *Registry) PruneEmpty(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)
	r.mu.Lock()
	n := 0
	for id, a := range r.artifacts {
		if len(a.Formats) == 0 && a.CreatedAt.Before(cutoff) {
			delete(r.artifacts, id)
			n++
		}
	}
	count := len(r.artifacts)
	r.mu.Unlock()
	if n > 0 {
		r.changed(count)
	}
	return n
}

// Open streams the stored bytes of one format.
func (r *Registry) Open(ctx context.Context, id string, format models.Format) (io.ReadCloser, models.Location, error) {
	r.mu.RLock()
	a, ok := r.artifacts[id]
	var loc models.Location
	var has bool
	if ok {
		loc, has = a.Formats[format]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, models.Location{}, fmt.Errorf("artifact %s: %w", id, models.ErrNotFound)
	}
	if !has {
		return nil, models.Location{}, fmt.Errorf("artifact %s format %s: %w", id, format, models.ErrFormatUnavailable)
	}
	_, rc, err := r.store.Get(ctx, loc.Key)
	if errors.Is(err, blob.ErrNotFound) {
		// Expired between the lookup and the read.
		return nil, models.Location{}, fmt.Errorf("artifact %s format %s: %w", id, format, models.ErrFormatUnavailable)
	}
	if err != nil {
		return nil, models.Location{}, fmt.Errorf("%w: failed to read %s: %w", models.ErrStorage, loc.Key, err)
	}
	return rc, loc, nil
}

func (r *Registry) changed(count int) {
	if r.cfg.OnChange != nil {
		r.cfg.OnChange(count)
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_\-.]+`)

// FileBaseName turns a title into a download-safe base name: spaces become
// underscores and anything outside [A-Za-z0-9_.-] is dropped.
func FileBaseName(title string) string {
	name := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	name = unsafeFileChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._-")
	const maxLength = 100
	if len(name) > maxLength {
		name = strings.Trim(name[:maxLength], "._-")
	}
	if name == "" {
		name = "document"
	}
	return name
}
