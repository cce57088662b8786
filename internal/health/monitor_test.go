package health

import (
	"errors"
	"testing"

	"github.com/mithun789/campus-Me/internal/models"
)

type fakeReader struct {
	total, available uint64
	err              error
	calls            int
}

func (f *fakeReader) ReadMemory() (uint64, uint64, error) {
	f.calls++
	return f.total, f.available, f.err
}

func usage(percent uint64) *fakeReader {
	return &fakeReader{total: 1000, available: 1000 - percent*10}
}

func TestSnapshotTiers(t *testing.T) {
	cases := []struct {
		name string
		used uint64
		want models.HealthTier
	}{
		{"idle", 10, models.TierHealthy},
		{"just below warning", 79, models.TierHealthy},
		{"warning boundary", 80, models.TierWarning},
		{"upper warning", 90, models.TierWarning},
		{"critical", 91, models.TierCritical},
		{"full", 100, models.TierCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMonitor(usage(tc.used), DefaultThresholds())
			snap := m.Snapshot()
			if snap.Tier != tc.want {
				t.Fatalf("used %d%%: expected %s got %s (%.1f%%)", tc.used, tc.want, snap.Tier, snap.UsedPercent)
			}
		})
	}
}

func TestSnapshotFailsOpen(t *testing.T) {
	r := &fakeReader{err: errors.New("proc unavailable")}
	snap := NewMonitor(r, DefaultThresholds()).Snapshot()
	if snap.Tier != models.TierHealthy {
		t.Fatalf("expected HEALTHY on read failure, got %s", snap.Tier)
	}
	if len(snap.Warnings) == 0 {
		t.Fatalf("expected a warning describing the failure")
	}
}

func TestSnapshotIsNotCached(t *testing.T) {
	r := usage(50)
	m := NewMonitor(r, DefaultThresholds())
	m.Snapshot()
	r.available = 50
	snap := m.Snapshot()
	if r.calls != 2 {
		t.Fatalf("expected one read per snapshot, got %d reads", r.calls)
	}
	if snap.Tier != models.TierCritical {
		t.Fatalf("expected the second snapshot to see new pressure, got %s", snap.Tier)
	}
}

func TestObserverAndInvalidThresholds(t *testing.T) {
	var seen []models.HealthTier
	m := NewMonitor(usage(85), Thresholds{WarningPercent: 95, CriticalPercent: 60}, WithObserver(func(s models.HealthSnapshot) {
		seen = append(seen, s.Tier)
	}))
	if got := m.Thresholds(); got != DefaultThresholds() {
		t.Fatalf("expected inverted thresholds to reset to defaults, got %+v", got)
	}
	m.Snapshot()
	if len(seen) != 1 || seen[0] != models.TierWarning {
		t.Fatalf("observer saw %v", seen)
	}
}
