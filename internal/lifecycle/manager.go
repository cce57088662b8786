// Package lifecycle tracks stored artifact files and reclaims them once they
// expire, either on demand or from a background sweeper.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
)

// DefaultMaxAge bounds how long any tracked file may live.
const DefaultMaxAge = 60 * time.Minute

// NoTTL passed to Track leaves only the max-age bound in force.
const NoTTL time.Duration = -1

const deleteTimeout = 30 * time.Second

// Remover deletes the bytes behind a tracked path. Deleting a missing path
// must not be an error.
type Remover interface {
	Delete(ctx context.Context, key string) (bool, error)
}

// Config holds the manager's tunables.
type Config struct {
	MaxAge time.Duration
	// OnExpire runs before a file's bytes are deleted so owners can stop
	// pointing at them.
	OnExpire func(models.TrackedFile)
	// OnReclaim runs after each sweep or cleanup with the reclaimed count.
	OnReclaim func(reclaimed int, remaining int)
	Logger    *slog.Logger
}

// Manager owns the tracked-file table. All methods are safe for concurrent use.
type Manager struct {
	remover Remover
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	files map[string]*models.TrackedFile

	// sweepMu keeps sweeps, cleanups and immediate deletions from overlapping.
	sweepMu sync.Mutex

	loopMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager returns a manager that deletes through remover.
func NewManager(remover Remover, cfg Config) *Manager {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		remover: remover,
		cfg:     cfg,
		logger:  logger.With("component", "lifecycle"),
		now:     time.Now,
		files:   make(map[string]*models.TrackedFile),
	}
}

// Track starts tracking a stored file. A non-negative ttl sets an explicit
// expiry; ttl of zero expires on the next sweep. Re-tracking an id replaces
// the previous entry.
func (m *Manager) Track(id, filePath string, size int64, ttl time.Duration) models.TrackedFile {
	now := m.now()
	tf := &models.TrackedFile{
		ID:        id,
		Path:      filePath,
		SizeBytes: size,
		CreatedAt: now,
		Status:    models.FileUploaded,
	}
	if ttl >= 0 {
		exp := now.Add(ttl)
		tf.ExpiresAt = &exp
	}
	m.mu.Lock()
	m.files[id] = tf
	m.mu.Unlock()
	return *tf
}

// Get returns a copy of the tracked entry.
func (m *Manager) Get(id string) (models.TrackedFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tf, ok := m.files[id]
	if !ok {
		return models.TrackedFile{}, false
	}
	return *tf, true
}

// MarkProcessed flags a file as consumed. deleteAfter <= 0 reclaims it
// immediately; otherwise it is reclaimed by the first sweep past the deadline.
func (m *Manager) MarkProcessed(id string, deleteAfter time.Duration) bool {
	now := m.now()
	m.mu.Lock()
	tf, ok := m.files[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	tf.Status = models.FileProcessed
	tf.ProcessedAt = &now
	if deleteAfter > 0 {
		at := now.Add(deleteAfter)
		tf.DeleteAt = &at
		m.mu.Unlock()
		return true
	}
	m.mu.Unlock()

	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()
	m.reclaim(m.take(func(f *models.TrackedFile) bool { return f.ID == id }))
	return true
}

// Sweep reclaims every file past its TTL, delete deadline or max age and
// returns how many were reclaimed.
func (m *Manager) Sweep() int {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()
	now := m.now()
	n := m.reclaim(m.take(func(f *models.TrackedFile) bool { return f.Due(now, m.cfg.MaxAge) }))
	if n > 0 {
		m.logger.Info("Sweep reclaimed expired files.", "reclaimed", n)
	}
	return n
}

// CleanupAll reclaims every tracked file regardless of TTL. Calling it again
// is a no-op.
func (m *Manager) CleanupAll() int {
	m.sweepMu.Lock()
	defer m.sweepMu.Unlock()
	n := m.reclaim(m.take(func(*models.TrackedFile) bool { return true }))
	m.logger.Info("Cleaned up all tracked files.", "reclaimed", n)
	return n
}

// take marks matching entries expired and removes them from the table.
func (m *Manager) take(match func(*models.TrackedFile) bool) []models.TrackedFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TrackedFile
	for id, tf := range m.files {
		if !match(tf) {
			continue
		}
		tf.Status = models.FileExpired
		out = append(out, *tf)
		delete(m.files, id)
	}
	return out
}

// reclaim detaches owners and deletes bytes. Delete failures are logged and
// counted as reclaimed; the entry is already gone from the table.
func (m *Manager) reclaim(files []models.TrackedFile) int {
	for _, tf := range files {
		if m.cfg.OnExpire != nil {
			m.cfg.OnExpire(tf)
		}
		if m.remover == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		_, err := m.remover.Delete(ctx, tf.Path)
		cancel()
		if err != nil {
			m.logger.Warn("Failed to delete expired file.", "fileId", tf.ID, "path", tf.Path, "error", errors.Join(models.ErrStorage, err))
		}
	}
	if m.cfg.OnReclaim != nil {
		m.cfg.OnReclaim(len(files), m.Len())
	}
	return len(files)
}

// Len returns the number of tracked files.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// List returns copies of every tracked file, oldest first.
func (m *Manager) List() []models.TrackedFile {
	m.mu.Lock()
	out := make([]models.TrackedFile, 0, len(m.files))
	for _, tf := range m.files {
		out = append(out, *tf)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Usage summarizes tracked files by status and extension.
func (m *Manager) Usage() models.StorageUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := models.StorageUsage{
		ByStatus:    make(map[models.FileStatus]int),
		ByExtension: make(map[string]int),
	}
	for _, tf := range m.files {
		u.TotalFiles++
		u.TotalBytes += tf.SizeBytes
		u.ByStatus[tf.Status]++
		ext := strings.TrimPrefix(path.Ext(tf.Path), ".")
		if ext == "" {
			ext = "unknown"
		}
		u.ByExtension[ext]++
	}
	return u
}

// Start launches the background sweeper. It returns false if a sweeper is
// already running or the interval is not positive.
func (m *Manager) Start(interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.running {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.loop(ctx, interval)
	m.logger.Info("Sweeper started.", "interval", interval.String())
	return true
}

func (m *Manager) loop(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Stop halts the sweeper and waits for an in-flight sweep to finish. Safe to
// call more than once.
func (m *Manager) Stop() {
	m.loopMu.Lock()
	if !m.running {
		m.loopMu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.loopMu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("Sweeper stopped.")
}

// Running reports whether the background sweeper is active.
func (m *Manager) Running() bool {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	return m.running
}
