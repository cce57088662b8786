package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/mithun789/campus-Me/internal/blob"
	"github.com/mithun789/campus-Me/internal/gcp"
	"github.com/mithun789/campus-Me/internal/health"
	"github.com/mithun789/campus-Me/internal/ledger"
	"github.com/mithun789/campus-Me/internal/lifecycle"
	"github.com/mithun789/campus-Me/internal/metrics"
	"github.com/mithun789/campus-Me/internal/models"
	"github.com/mithun789/campus-Me/internal/notify"
	"github.com/mithun789/campus-Me/internal/registry"
	"github.com/mithun789/campus-Me/internal/render"
	"github.com/mithun789/campus-Me/internal/textgen"
)

// GeneratorFunction holds every long-lived component of the document
// generator service.
type GeneratorFunction struct {
	Config    Config
	Metrics   *metrics.Metrics
	Health    *health.Monitor
	Sampler   *health.ProcessSampler
	Lifecycle *lifecycle.Manager
	Registry  *registry.Registry
	Pool      *WorkerPool
	Retriever *Retriever

	coordinator *Coordinator
	closers     []io.Closer

	// mu guards closing and closers; inflight counts admitted generations.
	mu       sync.RWMutex
	closing  bool
	inflight sync.WaitGroup
}

// GeneratorOption overrides a component chosen from configuration.
type GeneratorOption func(*generatorOptions)

type generatorOptions struct {
	memory    health.MemoryReader
	process   health.ProcessReader
	renderers []render.Renderer
	textGen   textgen.Generator
	store     blob.Store
}

// WithMemoryReader replaces the /proc memory reader.
func WithMemoryReader(r health.MemoryReader) GeneratorOption {
	return func(o *generatorOptions) { o.memory = r }
}

// WithProcessReader replaces the /proc/self reader.
func WithProcessReader(r health.ProcessReader) GeneratorOption {
	return func(o *generatorOptions) { o.process = r }
}

// WithRenderers replaces the built-in renderers.
func WithRenderers(rs ...render.Renderer) GeneratorOption {
	return func(o *generatorOptions) { o.renderers = rs }
}

// WithTextGenerator replaces the configured section generator.
func WithTextGenerator(g textgen.Generator) GeneratorOption {
	return func(o *generatorOptions) { o.textGen = g }
}

// WithBlobStore replaces the configured blob store.
func WithBlobStore(s blob.Store) GeneratorOption {
	return func(o *generatorOptions) { o.store = s }
}

// NewGenerator initializes the service from the environment.
func NewGenerator(ctx context.Context) (*GeneratorFunction, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewGeneratorWithConfig(ctx, cfg)
}

// NewGeneratorWithConfig wires every component from cfg and starts the
// background sweeper.
func NewGeneratorWithConfig(ctx context.Context, cfg Config, opts ...GeneratorOption) (*GeneratorFunction, error) {
	var o generatorOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := slog.Default()
	f := &GeneratorFunction{Config: cfg, Metrics: metrics.New()}

	store := o.store
	if store == nil {
		s, err := blob.Open(ctx, cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("failed to open blob store: %w", err)
		}
		if c, ok := s.(io.Closer); ok {
			f.closers = append(f.closers, c)
		}
		if d := s.Driver(); d == blob.DriverGCS || d == blob.DriverS3 {
			s = blob.WithRetry(s, cfg.BlobPutRetries)
		}
		store = s
	}

	// The lifecycle manager and the registry point at each other: the
	// registry tracks every stored file, expiry detaches it again.
	var reg *registry.Registry
	f.Lifecycle = lifecycle.NewManager(store, lifecycle.Config{
		MaxAge: cfg.MaxFileAge,
		OnExpire: func(tf models.TrackedFile) {
			reg.Detach(tf.ID)
		},
		OnReclaim: func(reclaimed, remaining int) {
			f.Metrics.Reclaimed(reclaimed, remaining)
			reg.PruneEmpty(cfg.MaxFileAge)
		},
		Logger: logger,
	})

	renderers := o.renderers
	if renderers == nil {
		renderers = render.Builtins()
	}
	set := render.NewSet(renderers...)

	reg = registry.New(store, f.Lifecycle, registry.Config{
		TTL:      cfg.ArtifactTTL,
		MaxBytes: int64(cfg.MaxArtifactMB) << 20,
		Describe: func(format models.Format) registry.FormatInfo {
			ext, contentType := set.Describe(format)
			return registry.FormatInfo{Extension: ext, ContentType: contentType}
		},
		Logger: logger,
		OnChange: func(artifacts int) {
			f.Metrics.Artifacts(artifacts)
			f.Metrics.Tracked(f.Lifecycle.Len())
		},
	})
	f.Registry = reg

	reader, procReader := o.memory, o.process
	if reader == nil || procReader == nil {
		pr, err := health.NewProcReader()
		if err != nil {
			logger.Warn("Memory sampling unavailable, health checks will report healthy.", "error", err)
		} else {
			if reader == nil {
				reader = pr
			}
			if procReader == nil {
				procReader = pr
			}
		}
	}
	f.Health = health.NewMonitor(reader, cfg.Thresholds,
		health.WithLogger(logger),
		health.WithObserver(f.Metrics.Health),
	)
	if procReader != nil {
		f.Sampler = health.NewProcessSampler(procReader, reader)
	}

	f.Pool = NewWorkerPool(cfg.RenderWorkers, f.Metrics.PoolInUse)

	gen := o.textGen
	if gen == nil {
		g, err := f.newTextGenerator(ctx, cfg, logger)
		if err != nil {
			f.closeAll()
			return nil, err
		}
		gen = g
	}

	led, err := f.newLedger(ctx, cfg)
	if err != nil {
		f.closeAll()
		return nil, err
	}
	notifier, err := f.newNotifier(ctx, cfg)
	if err != nil {
		f.closeAll()
		return nil, err
	}

	f.coordinator, err = NewCoordinator(CoordinatorDeps{
		Health:    f.Health,
		Renderers: set,
		Pool:      f.Pool,
		Registry:  reg,
		TextGen:   gen,
		Ledger:    led,
		Notifier:  notifier,
		Metrics:   f.Metrics,
		Logger:    logger,
	}, CoordinatorConfig{RenderTimeout: cfg.RenderTimeout, SlotWait: cfg.RenderSlotWait})
	if err != nil {
		f.closeAll()
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}
	f.Retriever = NewRetriever(reg, f.Lifecycle, f.Metrics, logger)

	if cfg.SweepInterval > 0 {
		f.Lifecycle.Start(cfg.SweepInterval)
	}
	logger.Info("Document generator initialized.",
		"blobDriver", store.Driver(),
		"renderWorkers", f.Pool.Size(),
		"formats", set.Formats(),
	)
	return f, nil
}

func (f *GeneratorFunction) newTextGenerator(ctx context.Context, cfg Config, logger *slog.Logger) (textgen.Generator, error) {
	if cfg.ProjectID == "" {
		return textgen.Template{}, nil
	}
	vc, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexRegion, cfg.VertexModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	f.closers = append(f.closers, vc)
	return textgen.Fallback{Primary: textgen.NewVertex(vc), Secondary: textgen.Template{}, Logger: logger}, nil
}

func (f *GeneratorFunction) newLedger(ctx context.Context, cfg Config) (ledger.Ledger, error) {
	switch {
	case cfg.FirestoreCollection != "":
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
		l := ledger.NewFirestore(client, cfg.FirestoreCollection)
		f.closers = append(f.closers, l)
		return l, nil
	case cfg.LedgerSQLitePath != "":
		l, err := ledger.OpenSQLite(cfg.LedgerSQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite ledger: %w", err)
		}
		f.closers = append(f.closers, l)
		return l, nil
	}
	return ledger.Nop{}, nil
}

func (f *GeneratorFunction) newNotifier(ctx context.Context, cfg Config) (notify.Notifier, error) {
	var multi notify.Multi
	if cfg.EventSinkURL != "" {
		ce, err := notify.NewCloudEvents(cfg.EventSinkURL, "")
		if err != nil {
			return nil, err
		}
		multi = append(multi, ce)
	}
	if cfg.WorkflowID != "" {
		wf, err := notify.NewWorkflow(ctx, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, wf)
		multi = append(multi, wf)
	}
	if len(multi) == 0 {
		return nil, nil
	}
	return multi, nil
}

// Process handles one generate request from the HTTP entry point.
func (f *GeneratorFunction) Process(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	res, err := f.Generate(ctx, req.ToGenerationRequest())
	if err != nil {
		return nil, err
	}
	return &models.GenerateResponse{
		Status:           strings.ToLower(models.FinalStatus(res.Outcomes)),
		GenerationResult: res,
	}, nil
}

// Generate runs a request through the coordinator. It fails with
// models.ErrShuttingDown once Shutdown has been called.
func (f *GeneratorFunction) Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationResult, error) {
	done, err := f.admit()
	if err != nil {
		return models.GenerationResult{}, err
	}
	defer done()
	return f.coordinator.Generate(ctx, req)
}

func (f *GeneratorFunction) admit() (func(), error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closing {
		return nil, models.ErrShuttingDown
	}
	f.inflight.Add(1)
	return f.inflight.Done, nil
}

// Status reports health, process usage, recommendations, storage usage and
// the artifact count. withFiles adds every tracked file to the report.
func (f *GeneratorFunction) Status(withFiles bool) models.SystemStatusResponse {
	resp := models.SystemStatusResponse{
		Health:    f.Health.Snapshot(),
		Storage:   f.Lifecycle.Usage(),
		Artifacts: f.Registry.Len(),
	}
	if f.Sampler != nil {
		stats, err := f.Sampler.Sample()
		if err != nil {
			slog.Warn("Process sampling failed.", "error", err)
		} else {
			resp.Process = &stats
			f.Metrics.Process(stats)
		}
	}
	resp.Recommendations = health.Recommend(resp.Health, resp.Process)
	if withFiles {
		resp.Files = f.Lifecycle.List()
	}
	return resp
}

// Shutdown stops admitting generations and waits for the admitted ones to
// finish, or for ctx to end, before it stops the sweeper, reclaims every
// tracked file and releases clients. It is safe to call more than once.
func (f *GeneratorFunction) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.closing = true
	f.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		f.inflight.Wait()
		close(drained)
	}()
	var drainErr error
	select {
	case <-drained:
	case <-ctx.Done():
		drainErr = fmt.Errorf("failed to drain in-flight generations: %w", ctx.Err())
		slog.WarnContext(ctx, "Shutdown deadline reached with generations still running.")
	}

	f.Lifecycle.Stop()
	n := f.Lifecycle.CleanupAll()
	slog.InfoContext(ctx, "Document generator shut down.", "reclaimed", n)
	return errors.Join(drainErr, f.closeAll())
}

func (f *GeneratorFunction) closeAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.closers = nil
	return errors.Join(errs...)
}

