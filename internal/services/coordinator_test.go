package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
	"github.com/mithun789/campus-Me/internal/render"
	"github.com/mithun789/campus-Me/internal/textgen"
)

func TestGeneratePartialFailureKeepsOrderAndIsolation(t *testing.T) {
	a, b, c := okRenderer("a"), failingRenderer("b"), okRenderer("c")
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{a, b, c}})

	res, err := h.coord.Generate(context.Background(), sampleRequest("a", "b", "c"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(res.Outcomes))
	}
	for i, want := range []models.Format{"a", "b", "c"} {
		if res.Outcomes[i].Format != want {
			t.Fatalf("outcome %d is %s, want %s", i, res.Outcomes[i].Format, want)
		}
	}
	if !res.Outcomes[0].Succeeded || res.Outcomes[1].Succeeded || !res.Outcomes[2].Succeeded {
		t.Fatalf("unexpected outcomes: %+v", res.Outcomes)
	}
	if !strings.Contains(res.Outcomes[1].Error, "boom") {
		t.Fatalf("failure detail missing: %q", res.Outcomes[1].Error)
	}

	art, ok := h.registry.Peek(res.ArtifactID)
	if !ok {
		t.Fatalf("artifact %s not registered", res.ArtifactID)
	}
	if len(art.Formats) != 2 || !art.HasFormat("a") || !art.HasFormat("c") || art.HasFormat("b") {
		t.Fatalf("artifact formats = %v, want a and c", art.Formats)
	}
	if got := art.Metadata["format_count"]; got != 2 {
		t.Fatalf("format_count = %v", got)
	}
	if failed, _ := art.Metadata["failed_formats"].([]string); len(failed) != 1 || failed[0] != "b" {
		t.Fatalf("failed_formats = %v", art.Metadata["failed_formats"])
	}

	statuses := h.ledger.Statuses()
	if len(statuses) != 2 || statuses[0] != models.StatusRendering || statuses[1] != models.StatusPartial {
		t.Fatalf("ledger statuses = %v", statuses)
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0].ArtifactID != res.ArtifactID {
		t.Fatalf("notifier events = %+v", h.notifier.events)
	}
}

func TestGenerateCriticalRejectsWithoutRendering(t *testing.T) {
	r := okRenderer("md")
	h := newHarness(t, harnessOpts{tier: models.TierCritical, renderers: []render.Renderer{r}})

	_, err := h.coord.Generate(context.Background(), sampleRequest("md"))
	if !errors.Is(err, models.ErrResourceExhausted) {
		t.Fatalf("err = %v, want ErrResourceExhausted", err)
	}
	if !IsRejected(err) {
		t.Fatalf("IsRejected(%v) = false", err)
	}
	if r.Calls() != 0 {
		t.Fatalf("renderer called %d times", r.Calls())
	}
	if h.registry.Len() != 0 {
		t.Fatalf("registry has %d artifacts", h.registry.Len())
	}
	if statuses := h.ledger.Statuses(); len(statuses) != 1 || statuses[0] != models.StatusRejected {
		t.Fatalf("ledger statuses = %v", statuses)
	}
}

func TestGenerateWarningDegradesFeatures(t *testing.T) {
	r := okRenderer("md")
	h := newHarness(t, harnessOpts{tier: models.TierWarning, renderers: []render.Renderer{r}})

	req := sampleRequest("md")
	res, err := h.coord.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Degraded || res.Tier != models.TierWarning {
		t.Fatalf("degraded=%v tier=%s", res.Degraded, res.Tier)
	}
	if got := r.seen[0].Features; got.Tables || got.Charts {
		t.Fatalf("renderer saw features %+v, want all off", got)
	}
	if !req.Features.Tables || !req.Features.Charts {
		t.Fatal("caller's request was modified")
	}
	art, _ := h.registry.Peek(res.ArtifactID)
	if art.Metadata["degraded"] != true {
		t.Fatalf("metadata degraded = %v", art.Metadata["degraded"])
	}
}

func TestGenerateHealthyKeepsFeatures(t *testing.T) {
	r := okRenderer("md")
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{r}})

	res, err := h.coord.Generate(context.Background(), sampleRequest("md"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Degraded {
		t.Fatal("healthy request marked degraded")
	}
	if got := r.seen[0].Features; !got.Tables || !got.Charts {
		t.Fatalf("renderer saw features %+v", got)
	}
}

func TestGenerateRendererTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := &fakeRenderer{format: "slow", fn: func(context.Context, render.Input) ([]byte, error) {
		<-release
		return []byte("late"), nil
	}}
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{slow, okRenderer("md")}, timeout: 50 * time.Millisecond})

	res, err := h.coord.Generate(context.Background(), sampleRequest("slow", "md"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Outcomes[0].Succeeded || !strings.Contains(res.Outcomes[0].Error, "timed out") {
		t.Fatalf("slow outcome = %+v", res.Outcomes[0])
	}
	if !res.Outcomes[1].Succeeded {
		t.Fatalf("md outcome = %+v", res.Outcomes[1])
	}
	// The slot stays held until the renderer really returns.
	if h.pool.InUse() != 1 {
		t.Fatalf("pool in use = %d, want 1 while the slow renderer runs", h.pool.InUse())
	}
	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for h.pool.InUse() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("slot never released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGenerateSlotWaitIsBoundedBehindHungRenderer(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	hung := &fakeRenderer{format: "hung", fn: func(context.Context, render.Input) ([]byte, error) {
		<-release
		return []byte("late"), nil
	}}
	md := okRenderer("md")
	h := newHarness(t, harnessOpts{
		workers:   1,
		renderers: []render.Renderer{hung, md},
		timeout:   50 * time.Millisecond,
	})

	first, err := h.coord.Generate(context.Background(), sampleRequest("hung"))
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if first.Outcomes[0].Succeeded {
		t.Fatalf("hung outcome = %+v", first.Outcomes[0])
	}
	if h.pool.InUse() != 1 {
		t.Fatalf("pool in use = %d, want the hung renderer to hold the only slot", h.pool.InUse())
	}

	done := make(chan models.GenerationResult, 1)
	go func() {
		res, err := h.coord.Generate(context.Background(), sampleRequest("md"))
		if err != nil {
			t.Errorf("second Generate: %v", err)
		}
		done <- res
	}()
	var second models.GenerationResult
	select {
	case second = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second request is still waiting for a render slot")
	}
	if second.Outcomes[0].Succeeded || !strings.Contains(second.Outcomes[0].Error, "no render slot") {
		t.Fatalf("md outcome = %+v", second.Outcomes[0])
	}
	if md.Calls() != 0 {
		t.Fatalf("md renderer ran %d times without a slot", md.Calls())
	}
	if got := h.ledger.Statuses(); got[len(got)-1] != models.StatusFailed {
		t.Fatalf("ledger statuses = %v", got)
	}
}

func TestGenerateRendererPanicIsIsolated(t *testing.T) {
	bad := &fakeRenderer{format: "bad", fn: func(context.Context, render.Input) ([]byte, error) {
		panic("nil map write")
	}}
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{bad, okRenderer("md")}})

	res, err := h.coord.Generate(context.Background(), sampleRequest("bad", "md"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Outcomes[0].Succeeded || !strings.Contains(res.Outcomes[0].Error, "panicked") {
		t.Fatalf("bad outcome = %+v", res.Outcomes[0])
	}
	if !res.Outcomes[1].Succeeded {
		t.Fatalf("md outcome = %+v", res.Outcomes[1])
	}
	if h.pool.InUse() != 0 {
		t.Fatalf("pool in use = %d after panic", h.pool.InUse())
	}
}

func TestGenerateNilOutputIsFailure(t *testing.T) {
	empty := &fakeRenderer{format: "nil", fn: func(context.Context, render.Input) ([]byte, error) {
		return nil, nil
	}}
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{empty}})

	res, err := h.coord.Generate(context.Background(), sampleRequest("nil"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Outcomes[0].Succeeded {
		t.Fatal("nil output reported as success")
	}
	art, ok := h.registry.Peek(res.ArtifactID)
	if !ok || len(art.Formats) != 0 {
		t.Fatalf("artifact = %+v, ok=%v", art, ok)
	}
	if statuses := h.ledger.Statuses(); statuses[len(statuses)-1] != models.StatusFailed {
		t.Fatalf("final status = %v", statuses)
	}
}

func TestGenerateUnknownFormat(t *testing.T) {
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{okRenderer("md")}})

	res, err := h.coord.Generate(context.Background(), sampleRequest("md", "odt"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Outcomes[0].Succeeded || res.Outcomes[1].Succeeded {
		t.Fatalf("outcomes = %+v", res.Outcomes)
	}
	if !strings.Contains(res.Outcomes[1].Error, "no renderer") {
		t.Fatalf("odt error = %q", res.Outcomes[1].Error)
	}
}

func TestGenerateInvalidRequest(t *testing.T) {
	r := okRenderer("md")
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{r}})

	for name, req := range map[string]models.GenerationRequest{
		"no title":   {Formats: []models.Format{"md"}},
		"no formats": {Title: "x"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := h.coord.Generate(context.Background(), req); !errors.Is(err, models.ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
	if r.Calls() != 0 {
		t.Fatalf("renderer called %d times", r.Calls())
	}
}

func TestGenerateStorageFailureExcludesFormat(t *testing.T) {
	h := newHarness(t, harnessOpts{
		renderers: []render.Renderer{okRenderer("md"), okRenderer("html")},
		store:     failingPutStore{Store: newMemory(), ext: ".html"},
	})

	res, err := h.coord.Generate(context.Background(), sampleRequest("md", "html"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !res.Outcomes[0].Succeeded || res.Outcomes[1].Succeeded {
		t.Fatalf("outcomes = %+v", res.Outcomes)
	}
	if !strings.Contains(res.Outcomes[1].Error, models.ErrStorage.Error()) {
		t.Fatalf("html error = %q", res.Outcomes[1].Error)
	}
	art, _ := h.registry.Peek(res.ArtifactID)
	if art.HasFormat("html") {
		t.Fatal("format that failed to store was registered")
	}
}

func TestGeneratePoolBoundsConcurrentRequests(t *testing.T) {
	var active, peak atomic.Int64
	track := func(context.Context, render.Input) ([]byte, error) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return []byte("ok"), nil
	}
	h := newHarness(t, harnessOpts{
		workers: 2,
		renderers: []render.Renderer{
			&fakeRenderer{format: "a", fn: track},
			&fakeRenderer{format: "b", fn: track},
			&fakeRenderer{format: "c", fn: track},
		},
	})

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.coord.Generate(context.Background(), sampleRequest("a", "b", "c"))
			if err != nil || len(res.Succeeded()) != 3 {
				t.Errorf("Generate: res=%+v err=%v", res, err)
			}
		}()
	}
	wg.Wait()
	if got := peak.Load(); got > 2 {
		t.Fatalf("peak concurrent renders = %d, pool size 2", got)
	}
	if h.registry.Len() != 4 {
		t.Fatalf("registry has %d artifacts, want 4", h.registry.Len())
	}
}

func TestGenerateFillsSectionsFromOutline(t *testing.T) {
	r := okRenderer("md")
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{r}, textGen: textgen.Template{}})

	req := models.GenerationRequest{
		Title:   "Urban Mobility",
		Formats: []models.Format{"md"},
		Outline: models.Outline{Sections: []string{"Background", "Proposal"}, WordBudget: 400, DocumentType: "proposal"},
	}
	res, err := h.coord.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	secs := r.seen[0].Sections
	if len(secs) != 2 || secs[0].Name != "Background" || secs[1].Name != "Proposal" {
		t.Fatalf("sections = %+v", secs)
	}
	art, _ := h.registry.Peek(res.ArtifactID)
	if wc, _ := art.Metadata["word_count"].(int); wc == 0 {
		t.Fatalf("word_count = %v", art.Metadata["word_count"])
	}
	if art.Metadata["document_type"] != "proposal" {
		t.Fatalf("document_type = %v", art.Metadata["document_type"])
	}
	if req.Sections != nil {
		t.Fatal("caller's request was modified")
	}
}

type failingGenerator struct{}

func (failingGenerator) GenerateSections(context.Context, models.Outline) (models.Sections, error) {
	return nil, errors.New("model unavailable")
}

func TestGenerateTextGenerationFailureFailsEveryFormat(t *testing.T) {
	r := okRenderer("md")
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{r}, textGen: failingGenerator{}})

	res, err := h.coord.Generate(context.Background(), models.GenerationRequest{Title: "x", Formats: []models.Format{"md"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Outcomes[0].Succeeded || r.Calls() != 0 {
		t.Fatalf("outcome = %+v, renderer calls = %d", res.Outcomes[0], r.Calls())
	}
}

func TestGenerateContinuesAfterCallerCancels(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	r := &fakeRenderer{format: "md", fn: func(ctx context.Context, _ render.Input) ([]byte, error) {
		close(started)
		<-release
		return []byte("done"), ctx.Err()
	}}
	h := newHarness(t, harnessOpts{renderers: []render.Renderer{r}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan models.GenerationResult, 1)
	go func() {
		res, _ := h.coord.Generate(ctx, sampleRequest("md"))
		done <- res
	}()
	<-started
	cancel()
	close(release)
	res := <-done
	if !res.Outcomes[0].Succeeded {
		t.Fatalf("outcome = %+v, want success despite caller cancel", res.Outcomes[0])
	}
}
