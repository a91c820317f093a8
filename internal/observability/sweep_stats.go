package observability

import (
	"sync/atomic"
	"time"
)

// SweepStats keeps in-process counters for the session sweeper so the worker
// health endpoint can report them without scraping prometheus.
type SweepStats struct {
	runs    atomic.Uint64
	failed  atomic.Uint64
	deleted atomic.Uint64

	durationTotal atomic.Int64
	durationMax   atomic.Int64
	lastRunUnix   atomic.Int64
}

func NewSweepStats() *SweepStats {
	return &SweepStats{}
}

func (m *SweepStats) Record(deleted int64, d time.Duration, err error, at time.Time) {
	m.runs.Add(1)
	if err != nil {
		m.failed.Add(1)
	}
	if deleted > 0 {
		m.deleted.Add(uint64(deleted))
	}
	m.lastRunUnix.Store(at.Unix())

	ns := d.Nanoseconds()
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()
		if ns <= curr {
			return
		}
		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type SweepSnapshot struct {
	Runs            uint64        `json:"runs"`
	Failed          uint64        `json:"failed"`
	Deleted         uint64        `json:"deleted"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
	LastRun         time.Time     `json:"lastRun"`
}

func (m *SweepStats) Snapshot() SweepSnapshot {
	runs := m.runs.Load()
	total := m.durationTotal.Load()

	var avg time.Duration
	if runs > 0 {
		avg = time.Duration(total / int64(runs))
	}

	var last time.Time
	if u := m.lastRunUnix.Load(); u > 0 {
		last = time.Unix(u, 0).UTC()
	}

	return SweepSnapshot{
		Runs:            runs,
		Failed:          m.failed.Load(),
		Deleted:         m.deleted.Load(),
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
		LastRun:         last,
	}
}
