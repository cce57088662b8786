package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mithun789/campus-Me/internal/blob"
	"github.com/mithun789/campus-Me/internal/models"
)

func newScratch(t *testing.T) (*blob.FSStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := blob.NewFSStore(root)
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	return s, root
}

func putFile(t *testing.T, s blob.Store, key string) {
	t.Helper()
	if _, err := s.Put(context.Background(), key, bytes.NewBufferString("payload"), blob.PutOptions{}); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

func TestSweepHonorsTTL(t *testing.T) {
	store, root := newScratch(t)
	putFile(t, store, "a/short.md")
	putFile(t, store, "b/long.md")

	m := NewManager(store, Config{})
	m.Track("short", "a/short.md", 7, 0)
	m.Track("long", "b/long.md", 7, time.Hour)

	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", n)
	}
	if _, ok := m.Get("short"); ok {
		t.Fatalf("ttl=0 file should be gone after sweep")
	}
	if _, ok := m.Get("long"); !ok {
		t.Fatalf("ttl=1h file should survive the sweep")
	}
	if _, _, err := store.Get(context.Background(), "a/short.md"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected bytes of expired file to be deleted, got %v", err)
	}
	// long.md plus its sidecar.
	if got := countFiles(t, root); got != 2 {
		t.Fatalf("expected only the surviving blob on disk, found %d files", got)
	}
}

func TestSweepHonorsMaxAge(t *testing.T) {
	store, _ := newScratch(t)
	putFile(t, store, "old/x.pdf")
	m := NewManager(store, Config{MaxAge: time.Minute})
	m.Track("old", "old/x.pdf", 7, NoTTL)
	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected max age to reclaim the file, got %d", n)
	}
}

func TestCleanupAllIsIdempotent(t *testing.T) {
	store, root := newScratch(t)
	m := NewManager(store, Config{})
	for _, key := range []string{"id1/a.pdf", "id1/a.md", "id2/b.html"} {
		putFile(t, store, key)
		m.Track(key, key, 7, time.Hour)
	}

	if n := m.CleanupAll(); n != 3 {
		t.Fatalf("expected 3 reclaimed, got %d", n)
	}
	if n := m.CleanupAll(); n != 0 {
		t.Fatalf("expected second cleanup to be a no-op, got %d", n)
	}
	if m.Len() != 0 {
		t.Fatalf("expected zero tracked files, got %d", m.Len())
	}
	if got := countFiles(t, root); got != 0 {
		t.Fatalf("expected zero physical files under scratch dir, found %d", got)
	}
}

func TestMarkProcessed(t *testing.T) {
	store, _ := newScratch(t)
	putFile(t, store, "now/x.md")
	putFile(t, store, "later/y.md")
	m := NewManager(store, Config{})
	m.Track("now", "now/x.md", 7, time.Hour)
	m.Track("later", "later/y.md", 7, time.Hour)

	if !m.MarkProcessed("now", 0) {
		t.Fatalf("expected tracked file to be marked")
	}
	if _, ok := m.Get("now"); ok {
		t.Fatalf("deleteAfter=0 should reclaim immediately")
	}
	if !m.MarkProcessed("later", time.Minute) {
		t.Fatalf("expected tracked file to be marked")
	}
	tf, ok := m.Get("later")
	if !ok || tf.Status != models.FileProcessed || tf.DeleteAt == nil {
		t.Fatalf("expected processed file with delete deadline, got %+v", tf)
	}
	if n := m.Sweep(); n != 0 {
		t.Fatalf("deadline not reached yet, got %d reclaimed", n)
	}
	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected deadline to reclaim file, got %d", n)
	}
	if m.MarkProcessed("missing", 0) {
		t.Fatalf("unknown id must report false")
	}
}

func TestOnExpireRunsBeforeDelete(t *testing.T) {
	store, _ := newScratch(t)
	putFile(t, store, "x/a.md")
	var sawBytes bool
	var expired []models.TrackedFile
	m := NewManager(store, Config{OnExpire: func(tf models.TrackedFile) {
		expired = append(expired, tf)
		_, rc, err := store.Get(context.Background(), tf.Path)
		if err == nil {
			sawBytes = true
			_ = rc.Close()
		}
	}})
	m.Track("a", "x/a.md", 7, 0)
	m.Sweep()
	if len(expired) != 1 || expired[0].Status != models.FileExpired {
		t.Fatalf("expected one expired callback, got %+v", expired)
	}
	if !sawBytes {
		t.Fatalf("owners must be detached before bytes are deleted")
	}
}

type failingRemover struct{}

func (failingRemover) Delete(context.Context, string) (bool, error) {
	return false, errors.New("disk on fire")
}

func TestDeleteFailureStillReclaims(t *testing.T) {
	m := NewManager(failingRemover{}, Config{})
	m.Track("a", "a.md", 1, 0)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected failure to count as reclaimed, got %d", n)
	}
	if m.Len() != 0 {
		t.Fatalf("expected table to be empty")
	}
}

func TestBackgroundSweeper(t *testing.T) {
	store, _ := newScratch(t)
	putFile(t, store, "bg/a.md")

	var mu sync.Mutex
	reclaimed := 0
	done := make(chan struct{}, 1)
	m := NewManager(store, Config{OnReclaim: func(n, _ int) {
		mu.Lock()
		reclaimed += n
		mu.Unlock()
		if n > 0 {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	}})
	m.Track("a", "bg/a.md", 7, 0)

	if !m.Start(10 * time.Millisecond) {
		t.Fatalf("expected sweeper to start")
	}
	if m.Start(10 * time.Millisecond) {
		t.Fatalf("second start must be refused")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper never reclaimed the file")
	}
	m.Stop()
	m.Stop()
	if m.Running() {
		t.Fatalf("expected sweeper to be stopped")
	}
	mu.Lock()
	defer mu.Unlock()
	if reclaimed != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", reclaimed)
	}
	if m.Start(0) {
		t.Fatalf("non-positive interval must be refused")
	}
}

func TestUsage(t *testing.T) {
	m := NewManager(blob.NewMemoryStore(), Config{})
	m.Track("1", "a/x.pdf", 100, time.Hour)
	m.Track("2", "a/x.md", 10, time.Hour)
	m.Track("3", "b/y.pdf", 50, time.Hour)
	m.MarkProcessed("3", time.Hour)

	u := m.Usage()
	if u.TotalFiles != 3 || u.TotalBytes != 160 {
		t.Fatalf("unexpected totals %+v", u)
	}
	if u.ByExtension["pdf"] != 2 || u.ByExtension["md"] != 1 {
		t.Fatalf("unexpected extensions %+v", u.ByExtension)
	}
	if u.ByStatus[models.FileUploaded] != 2 || u.ByStatus[models.FileProcessed] != 1 {
		t.Fatalf("unexpected statuses %+v", u.ByStatus)
	}
}

func TestListReturnsCopiesOldestFirst(t *testing.T) {
	m := NewManager(blob.NewMemoryStore(), Config{})
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	m.now = func() time.Time { return base.Add(time.Duration(step) * time.Minute) }
	for _, id := range []string{"c", "a", "b"} {
		m.Track(id, id+"/report.pdf", 10, time.Hour)
		step++
	}
	m.MarkProcessed("a", time.Hour)

	files := m.List()
	if len(files) != 3 || files[0].ID != "c" || files[1].ID != "a" || files[2].ID != "b" {
		t.Fatalf("unexpected order %+v", files)
	}
	if files[1].Status != models.FileProcessed || files[1].DeleteAt == nil {
		t.Fatalf("processed state missing from listing %+v", files[1])
	}

	files[0].Status = models.FileExpired
	if tf, _ := m.Get("c"); tf.Status != models.FileUploaded {
		t.Fatalf("manager state was mutated through a listed copy: %s", tf.Status)
	}
	m.CleanupAll()
	if got := m.List(); len(got) != 0 {
		t.Fatalf("expected empty listing after cleanup, got %d", len(got))
	}
}
