package health

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
)

// Recommendation thresholds. They sit below the tier boundaries so the
// advice shows up before requests start degrading.
const (
	RecommendMemoryPercent = 75.0
	RecommendResidentBytes = 5 << 30
	RecommendCPUPercent    = 80.0
)

// ProcessSample is one raw reading of the current process's counters.
type ProcessSample struct {
	ResidentBytes uint64
	CPUSeconds    float64
	StartedAt     time.Time
}

// ProcessReader samples the current process.
type ProcessReader interface {
	ReadProcess() (ProcessSample, error)
}

// ReadProcess reads /proc/self/stat.
func (r *ProcReader) ReadProcess() (ProcessSample, error) {
	p, err := r.fs.Self()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("failed to open own proc entry: %w", err)
	}
	st, err := p.Stat()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("failed to read process stat: %w", err)
	}
	started, err := st.StartTime()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("failed to read process start time: %w", err)
	}
	sec, frac := math.Modf(started)
	return ProcessSample{
		ResidentBytes: uint64(st.ResidentMemory()),
		CPUSeconds:    st.CPUTime(),
		StartedAt:     time.Unix(int64(sec), int64(frac*1e9)),
	}, nil
}

// ProcessSampler turns raw process counters into usage figures. CPU usage
// covers the time since the previous Sample; the first call averages over
// the whole process lifetime.
type ProcessSampler struct {
	reader ProcessReader
	memory MemoryReader
	numCPU int
	now    func() time.Time

	mu      sync.Mutex
	lastCPU float64
	lastAt  time.Time
}

// NewProcessSampler builds a sampler. memory may be nil, in which case
// MemoryPercent stays zero.
func NewProcessSampler(reader ProcessReader, memory MemoryReader) *ProcessSampler {
	return &ProcessSampler{
		reader: reader,
		memory: memory,
		numCPU: runtime.NumCPU(),
		now:    time.Now,
	}
}

// Sample reads the process once.
func (s *ProcessSampler) Sample() (models.ProcessStats, error) {
	raw, err := s.reader.ReadProcess()
	if err != nil {
		return models.ProcessStats{}, err
	}
	now := s.now()
	stats := models.ProcessStats{
		ResidentBytes: raw.ResidentBytes,
		CPUCount:      s.numCPU,
		SampledAt:     now,
	}
	if s.memory != nil {
		if total, _, err := s.memory.ReadMemory(); err == nil && total > 0 {
			stats.MemoryPercent = float64(raw.ResidentBytes) / float64(total) * 100
		}
	}

	s.mu.Lock()
	prevCPU, prevAt := s.lastCPU, s.lastAt
	if prevAt.IsZero() {
		prevCPU, prevAt = 0, raw.StartedAt
	}
	s.lastCPU, s.lastAt = raw.CPUSeconds, now
	s.mu.Unlock()

	if wall := now.Sub(prevAt).Seconds(); wall > 0 && raw.CPUSeconds >= prevCPU {
		stats.CPUPercent = (raw.CPUSeconds - prevCPU) / wall * 100
	}
	return stats, nil
}

// Recommend returns operator advice for the current memory snapshot and,
// when available, process stats. An empty result means nothing stands out.
func Recommend(snap models.HealthSnapshot, proc *models.ProcessStats) []string {
	out := []string{}
	if snap.UsedPercent > RecommendMemoryPercent {
		out = append(out, "High memory usage detected. Leave tables and charts off or request fewer formats at once.")
	}
	if proc == nil {
		return out
	}
	if proc.ResidentBytes > RecommendResidentBytes {
		out = append(out, "Process resident memory is above 5 GiB. Restart the service to release it.")
	}
	if proc.CPUPercent > RecommendCPUPercent {
		out = append(out, "High CPU usage. Lower RENDER_WORKERS or request fewer formats at once.")
	}
	return out
}
