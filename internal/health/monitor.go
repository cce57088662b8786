// Package health samples system memory and classifies it into pressure tiers.
package health

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
	"github.com/prometheus/procfs"
)

// Default tier boundaries, in percent of total memory in use.
const (
	DefaultWarningPercent  = 80.0
	DefaultCriticalPercent = 90.0
)

// MemoryReader returns total and available system memory in bytes.
type MemoryReader interface {
	ReadMemory() (total, available uint64, err error)
}

// ProcReader reads /proc/meminfo through procfs.
type ProcReader struct {
	fs procfs.FS
}

// NewProcReader opens the default proc mount point.
func NewProcReader() (*ProcReader, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("failed to open procfs: %w", err)
	}
	return &ProcReader{fs: fs}, nil
}

// ReadMemory performs one read of /proc/meminfo.
func (r *ProcReader) ReadMemory() (uint64, uint64, error) {
	mi, err := r.fs.Meminfo()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read meminfo: %w", err)
	}
	if mi.MemTotalBytes != nil && mi.MemAvailableBytes != nil {
		return *mi.MemTotalBytes, *mi.MemAvailableBytes, nil
	}
	// Older procfs builds only expose the kB fields.
	if mi.MemTotal == nil || mi.MemAvailable == nil {
		return 0, 0, fmt.Errorf("meminfo is missing MemTotal or MemAvailable")
	}
	return *mi.MemTotal * 1024, *mi.MemAvailable * 1024, nil
}

// Thresholds are inclusive lower bounds of WARNING and exclusive lower
// bounds of CRITICAL.
type Thresholds struct {
	WarningPercent  float64
	CriticalPercent float64
}

// DefaultThresholds returns the 80/90 split.
func DefaultThresholds() Thresholds {
	return Thresholds{WarningPercent: DefaultWarningPercent, CriticalPercent: DefaultCriticalPercent}
}

// Classify maps a usage percentage onto a tier.
func (t Thresholds) Classify(usedPercent float64) models.HealthTier {
	switch {
	case usedPercent > t.CriticalPercent:
		return models.TierCritical
	case usedPercent >= t.WarningPercent:
		return models.TierWarning
	default:
		return models.TierHealthy
	}
}

// Monitor answers health queries on demand. It never caches and runs no
// background loop; each Snapshot costs one read from its MemoryReader.
type Monitor struct {
	reader     MemoryReader
	thresholds Thresholds
	logger     *slog.Logger
	now        func() time.Time
	observe    func(models.HealthSnapshot)
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger overrides the logger used for read anomalies.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithObserver registers a callback invoked with every snapshot, typically
// a metrics gauge update.
func WithObserver(fn func(models.HealthSnapshot)) Option {
	return func(m *Monitor) { m.observe = fn }
}

// NewMonitor builds a monitor. Invalid thresholds fall back to the defaults.
func NewMonitor(reader MemoryReader, thresholds Thresholds, opts ...Option) *Monitor {
	if thresholds.WarningPercent <= 0 || thresholds.CriticalPercent <= 0 || thresholds.WarningPercent > thresholds.CriticalPercent {
		thresholds = DefaultThresholds()
	}
	m := &Monitor{
		reader:     reader,
		thresholds: thresholds,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Thresholds returns the configured tier boundaries.
func (m *Monitor) Thresholds() Thresholds { return m.thresholds }

// Snapshot samples memory and classifies it. A failed read fails open: the
// snapshot reports HEALTHY and carries the failure as a warning.
func (m *Monitor) Snapshot() models.HealthSnapshot {
	snap := models.HealthSnapshot{SampledAt: m.now(), Tier: models.TierHealthy}

	if m.reader == nil {
		snap.Warnings = append(snap.Warnings, "no memory reader configured")
		m.emit(snap)
		return snap
	}

	total, available, err := m.reader.ReadMemory()
	if err != nil || total == 0 {
		if err == nil {
			err = fmt.Errorf("reported total memory is zero")
		}
		m.logger.Warn("Memory sampling failed, assuming healthy.", "error", err)
		snap.Warnings = append(snap.Warnings, "memory sampling failed: "+err.Error())
		m.emit(snap)
		return snap
	}
	if available > total {
		available = total
	}

	snap.TotalBytes = total
	snap.AvailableBytes = available
	snap.UsedPercent = float64(total-available) / float64(total) * 100
	snap.Tier = m.thresholds.Classify(snap.UsedPercent)

	switch snap.Tier {
	case models.TierCritical:
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("memory usage critical: %.1f%%", snap.UsedPercent))
	case models.TierWarning:
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("memory usage high: %.1f%%", snap.UsedPercent))
	}
	m.emit(snap)
	return snap
}

func (m *Monitor) emit(snap models.HealthSnapshot) {
	if m.observe != nil {
		m.observe(snap)
	}
}
