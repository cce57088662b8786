package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mithun789/campus-Me/internal/ledger"
	"github.com/mithun789/campus-Me/internal/metrics"
	"github.com/mithun789/campus-Me/internal/models"
	"github.com/mithun789/campus-Me/internal/notify"
	"github.com/mithun789/campus-Me/internal/registry"
	"github.com/mithun789/campus-Me/internal/render"
	"github.com/mithun789/campus-Me/internal/textgen"
	"golang.org/x/sync/errgroup"
)

// DefaultRenderTimeout is the per-renderer ceiling.
const DefaultRenderTimeout = 60 * time.Second

const wordsPerMinute = 200

// HealthChecker reports current memory pressure.
type HealthChecker interface {
	Snapshot() models.HealthSnapshot
}

// ArtifactRegistry stores successful renders under a new artifact id.
type ArtifactRegistry interface {
	Register(ctx context.Context, title string, results []models.RenderOutcome, preview string, metadata map[string]any) (registry.RegisterResult, error)
}

// PageCounter is implemented by renderers whose output has pages.
type PageCounter interface {
	PageCount(data []byte) (int, error)
}

// CoordinatorConfig holds the coordinator's tunables.
type CoordinatorConfig struct {
	RenderTimeout time.Duration
	// SlotWait caps how long one format waits for a free render slot.
	// Defaults to RenderTimeout.
	SlotWait            time.Duration
	DefaultDocumentType string
}

// CoordinatorDeps are the collaborators a Coordinator is built from. Health,
// Renderers, Pool and Registry are required.
type CoordinatorDeps struct {
	Health    HealthChecker
	Renderers *render.Set
	Pool      *WorkerPool
	Registry  ArtifactRegistry
	TextGen   textgen.Generator
	Ledger    ledger.Ledger
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Coordinator admits generation requests, fans them out to renderers through
// the shared worker pool and registers whatever succeeded.
type Coordinator struct {
	deps   CoordinatorDeps
	cfg    CoordinatorConfig
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewCoordinator wires a coordinator. Optional dependencies default to
// no-ops.
func NewCoordinator(deps CoordinatorDeps, cfg CoordinatorConfig) (*Coordinator, error) {
	if deps.Health == nil || deps.Renderers == nil || deps.Pool == nil || deps.Registry == nil {
		return nil, fmt.Errorf("coordinator requires health, renderers, pool and registry")
	}
	if deps.TextGen == nil {
		deps.TextGen = textgen.Template{}
	}
	if deps.Ledger == nil {
		deps.Ledger = ledger.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = DefaultRenderTimeout
	}
	if cfg.SlotWait <= 0 {
		cfg.SlotWait = cfg.RenderTimeout
	}
	if cfg.DefaultDocumentType == "" {
		cfg.DefaultDocumentType = "document"
	}
	return &Coordinator{
		deps:   deps,
		cfg:    cfg,
		logger: deps.Logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Generate runs one request end to end. Only an invalid request or critical
// memory pressure produce an error; individual format failures are reported
// in the result's outcomes, in the order the formats were requested.
func (c *Coordinator) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error) {
	formats, err := req.Validate()
	if err != nil {
		c.deps.Metrics.Request("INVALID")
		return models.GenerationResult{}, err
	}

	requestID := c.newID()
	logCtx := c.logger.With("requestId", requestID, "title", req.Title)
	snap := c.deps.Health.Snapshot()
	now := c.now()
	rec := models.GenerationRecord{
		RequestID:   requestID,
		Title:       req.Title,
		Formats:     formats,
		HealthTier:  snap.Tier,
		UsedPercent: snap.UsedPercent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	result := models.GenerationResult{RequestID: requestID, Tier: snap.Tier}

	if snap.Tier == models.TierCritical {
		err := fmt.Errorf("%w: memory usage at %.1f%%", models.ErrResourceExhausted, snap.UsedPercent)
		rec.Status = models.StatusRejected
		rec.ErrorDetails = err.Error()
		c.record(ctx, logCtx, rec)
		c.deps.Metrics.Request(models.StatusRejected)
		logCtx.Warn("Generation request rejected, memory critical.", "usedPercent", snap.UsedPercent)
		return result, err
	}

	features := req.Features
	if snap.Tier == models.TierWarning {
		result.Degraded = true
		features = models.Features{}
		logCtx.Warn("Memory pressure high, optional features disabled.", "usedPercent", snap.UsedPercent)
	}
	rec.Degraded = result.Degraded
	rec.Status = models.StatusRendering
	logCtx.Info("Generation request admitted.", "formats", formats, "degraded", result.Degraded)

	// Once admitted the request runs to completion even if the caller goes away.
	workCtx := context.WithoutCancel(ctx)
	c.record(workCtx, logCtx, rec)

	input := render.Input{
		Title:     req.Title,
		Citations: append([]string(nil), req.Citations...),
		Features:  features,
		Date:      now,
	}
	var outcomes []models.RenderOutcome
	sections, err := c.sections(workCtx, req)
	if err != nil {
		logCtx.Error("Text generation failed, no content to render.", "error", err)
		outcomes = make([]models.RenderOutcome, len(formats))
		for i, f := range formats {
			outcomes[i] = models.RenderOutcome{Format: f, Err: fmt.Errorf("%w: no content: %w", models.ErrRenderFailure, err)}
		}
	} else {
		input.Sections = sections
		outcomes = c.fanOut(workCtx, logCtx, formats, input)
	}

	successful := make([]models.RenderOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Succeeded() {
			successful = append(successful, o)
		}
	}
	metadata := c.metadata(req, input, formats, outcomes, result.Degraded, snap.Tier)

	reg, err := c.deps.Registry.Register(workCtx, req.Title, successful, preview(input), metadata)
	if err != nil {
		logCtx.Error("Failed to register artifact.", "error", err)
		for i := range outcomes {
			if outcomes[i].Succeeded() {
				outcomes[i] = models.RenderOutcome{Format: outcomes[i].Format, Err: err, Duration: outcomes[i].Duration}
			}
		}
	} else {
		result.ArtifactID = reg.ID
		for i := range outcomes {
			if ferr, failed := reg.Failed[outcomes[i].Format]; failed {
				outcomes[i] = models.RenderOutcome{Format: outcomes[i].Format, Err: ferr, Duration: outcomes[i].Duration}
			}
		}
	}

	result.Outcomes = make([]models.OutcomeSummary, len(outcomes))
	for i, o := range outcomes {
		result.Outcomes[i] = o.Summary()
		c.deps.Metrics.Render(o.Format, o.Succeeded(), o.Duration)
	}

	rec.Status = models.FinalStatus(result.Outcomes)
	rec.ArtifactID = result.ArtifactID
	rec.Outcomes = result.Outcomes
	rec.UpdatedAt = c.now()
	c.record(workCtx, logCtx, rec)
	c.deps.Metrics.Request(rec.Status)
	c.notify(workCtx, logCtx, rec, result)

	logCtx.Info("Generation complete.", "artifactId", result.ArtifactID, "status", rec.Status,
		"succeeded", len(result.Succeeded()), "failed", len(result.Failed()))
	return result, nil
}

// sections returns the request's sections, generating them from the outline
// when none were supplied. The request itself is never modified.
func (c *Coordinator) sections(ctx context.Context, req models.GenerationRequest) (models.Sections, error) {
	if len(req.Sections) > 0 {
		return append(models.Sections(nil), req.Sections...), nil
	}
	outline := req.Outline
	if outline.Title == "" {
		outline.Title = req.Title
	}
	return c.deps.TextGen.GenerateSections(ctx, outline)
}

// fanOut renders every format concurrently and returns outcomes indexed by
// the requested order.
func (c *Coordinator) fanOut(ctx context.Context, logCtx *slog.Logger, formats []models.Format, input render.Input) []models.RenderOutcome {
	outcomes := make([]models.RenderOutcome, len(formats))
	var g errgroup.Group
	for i, f := range formats {
		g.Go(func() error {
			outcomes[i] = c.renderOne(ctx, logCtx, f, input)
			return nil
		})
	}
	// Tasks never return errors; Wait is only the join.
	_ = g.Wait()
	return outcomes
}

type renderResult struct {
	data []byte
	err  error
}

// renderOne runs a single renderer under the pool and its own timeout. Every
// failure mode, including a panic, becomes a failed outcome.
func (c *Coordinator) renderOne(ctx context.Context, logCtx *slog.Logger, f models.Format, input render.Input) models.RenderOutcome {
	r, ok := c.deps.Renderers.Lookup(f)
	if !ok {
		return models.RenderOutcome{Format: f, Err: fmt.Errorf("%w: no renderer registered for format %q", models.ErrRenderFailure, f)}
	}
	// Renderers that ignore cancellation keep their slot until they return,
	// so the wait for a slot is bounded on its own.
	waitCtx, cancelWait := context.WithTimeout(ctx, c.cfg.SlotWait)
	err := c.deps.Pool.Acquire(waitCtx)
	cancelWait()
	if err != nil {
		logCtx.Warn("No render slot became free.", "format", f, "wait", c.cfg.SlotWait.String(), "inUse", c.deps.Pool.InUse())
		return models.RenderOutcome{Format: f, Err: fmt.Errorf("%w: %w: no render slot free within %s: %w", models.ErrRenderFailure, models.ErrResourceExhausted, c.cfg.SlotWait, err)}
	}

	start := c.now()
	rctx, cancel := context.WithTimeout(ctx, c.cfg.RenderTimeout)
	defer cancel()

	done := make(chan renderResult, 1)
	go func() {
		var res renderResult
		func() {
			defer func() {
				if p := recover(); p != nil {
					res = renderResult{err: fmt.Errorf("renderer panicked: %v", p)}
				}
			}()
			res.data, res.err = r.Render(rctx, input)
		}()
		// The slot is held until the renderer actually returns, even past
		// its timeout.
		c.deps.Pool.Release()
		done <- res
	}()

	var res renderResult
	select {
	case res = <-done:
	case <-rctx.Done():
		res = renderResult{err: fmt.Errorf("timed out after %s: %w", c.cfg.RenderTimeout, rctx.Err())}
	}
	elapsed := c.now().Sub(start)

	switch {
	case res.err != nil:
		logCtx.Warn("Renderer failed.", "format", f, "error", res.err, "duration", elapsed.String())
		return models.RenderOutcome{Format: f, Err: fmt.Errorf("%w: %s: %w", models.ErrRenderFailure, f, res.err), Duration: elapsed}
	case res.data == nil:
		logCtx.Warn("Renderer returned no output.", "format", f)
		return models.RenderOutcome{Format: f, Err: fmt.Errorf("%w: %s produced no output", models.ErrRenderFailure, f), Duration: elapsed}
	}
	logCtx.Info("Renderer finished.", "format", f, "sizeBytes", len(res.data), "duration", elapsed.String())
	return models.RenderOutcome{Format: f, Bytes: res.data, Duration: elapsed}
}

func (c *Coordinator) metadata(req models.GenerationRequest, input render.Input, formats []models.Format, outcomes []models.RenderOutcome, degraded bool, tier models.HealthTier) map[string]any {
	words := input.Sections.WordCount()
	docType := req.Outline.DocumentType
	if docType == "" {
		docType = c.cfg.DefaultDocumentType
	}
	requested := make([]string, len(formats))
	for i, f := range formats {
		requested[i] = string(f)
	}
	var failed []string
	md := map[string]any{
		"word_count":           words,
		"reading_time_minutes": max(1, words/wordsPerMinute),
		"document_type":        docType,
		"section_count":        len(input.Sections),
		"citation_count":       len(input.Citations),
		"requested_formats":    requested,
		"degraded":             degraded,
		"health_tier":          string(tier),
	}
	for _, o := range outcomes {
		if !o.Succeeded() {
			failed = append(failed, string(o.Format))
			continue
		}
		r, ok := c.deps.Renderers.Lookup(o.Format)
		if !ok {
			continue
		}
		if pc, ok := r.(PageCounter); ok {
			if n, err := pc.PageCount(o.Bytes); err == nil {
				md["page_count"] = n
			}
		}
	}
	if len(failed) > 0 {
		md["failed_formats"] = failed
	}
	return md
}

func (c *Coordinator) record(ctx context.Context, logCtx *slog.Logger, rec models.GenerationRecord) {
	if err := c.deps.Ledger.Record(ctx, rec); err != nil {
		logCtx.Error("Failed to write generation record.", "status", rec.Status, "error", err)
	}
}

func (c *Coordinator) notify(ctx context.Context, logCtx *slog.Logger, rec models.GenerationRecord, result models.GenerationResult) {
	if c.deps.Notifier == nil || result.ArtifactID == "" {
		return
	}
	ev := models.ArtifactEvent{
		RequestID:  result.RequestID,
		ArtifactID: result.ArtifactID,
		Title:      rec.Title,
		Status:     rec.Status,
		Formats:    result.Succeeded(),
		Failed:     result.Failed(),
		Degraded:   result.Degraded,
		HealthTier: result.Tier,
		CreatedAt:  rec.UpdatedAt,
	}
	if err := c.deps.Notifier.Notify(ctx, ev); err != nil {
		logCtx.Error("Failed to publish artifact event.", "artifactId", result.ArtifactID, "error", err)
	}
}

// preview is the plain-text body kept alongside the artifact.
func preview(in render.Input) string {
	var b strings.Builder
	b.WriteString(in.Title)
	for _, s := range in.Sections {
		b.WriteString("\n\n")
		b.WriteString(s.Name)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(s.Text))
	}
	return b.String()
}

// IsRejected reports whether err means the request was refused before any
// rendering.
func IsRejected(err error) bool {
	return errors.Is(err, models.ErrResourceExhausted) || errors.Is(err, models.ErrInvalidRequest)
}
