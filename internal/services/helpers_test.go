package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mithun789/campus-Me/internal/blob"
	"github.com/mithun789/campus-Me/internal/lifecycle"
	"github.com/mithun789/campus-Me/internal/models"
	"github.com/mithun789/campus-Me/internal/registry"
	"github.com/mithun789/campus-Me/internal/render"
	"github.com/mithun789/campus-Me/internal/textgen"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedHealth struct {
	tier models.HealthTier
}

func (h fixedHealth) Snapshot() models.HealthSnapshot {
	used := 50.0
	switch h.tier {
	case models.TierWarning:
		used = 85
	case models.TierCritical:
		used = 95
	}
	return models.HealthSnapshot{Tier: h.tier, UsedPercent: used, SampledAt: time.Now()}
}

type fakeRenderer struct {
	format models.Format
	fn     func(ctx context.Context, in render.Input) ([]byte, error)

	mu    sync.Mutex
	calls int
	seen  []render.Input
}

func (r *fakeRenderer) Format() models.Format { return r.format }
func (r *fakeRenderer) Extension() string     { return string(r.format) }
func (r *fakeRenderer) ContentType() string   { return "text/plain" }

func (r *fakeRenderer) Render(ctx context.Context, in render.Input) ([]byte, error) {
	r.mu.Lock()
	r.calls++
	r.seen = append(r.seen, in)
	r.mu.Unlock()
	if r.fn != nil {
		return r.fn(ctx, in)
	}
	return []byte(string(r.format) + ":" + in.Title), nil
}

func (r *fakeRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func okRenderer(f models.Format) *fakeRenderer {
	return &fakeRenderer{format: f}
}

func failingRenderer(f models.Format) *fakeRenderer {
	return &fakeRenderer{format: f, fn: func(context.Context, render.Input) ([]byte, error) {
		return nil, errors.New("boom")
	}}
}

type recordingLedger struct {
	mu      sync.Mutex
	records []models.GenerationRecord
}

func (l *recordingLedger) Record(_ context.Context, rec models.GenerationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func (l *recordingLedger) Close() error { return nil }

func (l *recordingLedger) Statuses() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.records))
	for i, r := range l.records {
		out[i] = r.Status
	}
	return out
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.ArtifactEvent
}

func (n *recordingNotifier) Notify(_ context.Context, ev models.ArtifactEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

// failingPutStore rejects writes for one extension.
type failingPutStore struct {
	blob.Store
	ext string
}

func (s failingPutStore) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	if strings.HasSuffix(key, s.ext) {
		return blob.Info{}, errors.New("disk full")
	}
	return s.Store.Put(ctx, key, r, opts)
}

type harness struct {
	coord     *Coordinator
	registry  *registry.Registry
	lifecycle *lifecycle.Manager
	pool      *WorkerPool
	ledger    *recordingLedger
	notifier  *recordingNotifier
	retriever *Retriever
}

type harnessOpts struct {
	tier      models.HealthTier
	renderers []render.Renderer
	workers   int
	timeout   time.Duration
	slotWait  time.Duration
	store     blob.Store
	textGen   textgen.Generator
}

func newHarness(t *testing.T, o harnessOpts) *harness {
	t.Helper()
	if o.tier == "" {
		o.tier = models.TierHealthy
	}
	if o.store == nil {
		o.store = blob.NewMemoryStore()
	}
	if o.timeout == 0 {
		o.timeout = 2 * time.Second
	}
	set := render.NewSet(o.renderers...)
	var reg *registry.Registry
	mgr := lifecycle.NewManager(o.store, lifecycle.Config{
		OnExpire: func(tf models.TrackedFile) { reg.Detach(tf.ID) },
		Logger:   discardLogger(),
	})
	reg = registry.New(o.store, mgr, registry.Config{
		TTL: time.Hour,
		Describe: func(f models.Format) registry.FormatInfo {
			ext, ct := set.Describe(f)
			return registry.FormatInfo{Extension: ext, ContentType: ct}
		},
		Logger: discardLogger(),
	})
	h := &harness{
		registry:  reg,
		lifecycle: mgr,
		pool:      NewWorkerPool(o.workers, nil),
		ledger:    &recordingLedger{},
		notifier:  &recordingNotifier{},
	}
	coord, err := NewCoordinator(CoordinatorDeps{
		Health:    fixedHealth{tier: o.tier},
		Renderers: set,
		Pool:      h.pool,
		Registry:  reg,
		TextGen:   o.textGen,
		Ledger:    h.ledger,
		Notifier:  h.notifier,
		Logger:    discardLogger(),
	}, CoordinatorConfig{RenderTimeout: o.timeout, SlotWait: o.slotWait})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	h.coord = coord
	h.retriever = NewRetriever(reg, mgr, nil, discardLogger())
	return h
}

func sampleRequest(formats ...models.Format) models.GenerationRequest {
	return models.GenerationRequest{
		Title: "Climate Report",
		Sections: models.Sections{
			{Name: "Introduction", Text: "Warming trends are accelerating across every region."},
			{Name: "Findings", Text: "Sea levels rose measurably over the last decade."},
		},
		Citations: []string{"IPCC 2023"},
		Formats:   formats,
		Features:  models.Features{Tables: true, Charts: true},
	}
}

func newMemory() blob.Store { return blob.NewMemoryStore() }
