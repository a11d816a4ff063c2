package observability

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/victoralfred/gotrap/trap"
)

// Metrics accumulates in-process guarded-call statistics. It implements
// trap.MetricsRecorder.
type Metrics struct {
	codeStats     map[trap.Code]*CodeStats
	totalCalls    int64
	completed     int64
	faulted       int64
	totalDuration int64
	durationCount int64
	minDuration   int64
	maxDuration   int64
	mu            sync.RWMutex
}

// CodeStats contains per-classification fault statistics.
type CodeStats struct {
	LastFaultAt time.Time
	Code        trap.Code
	LastCall    string
	Faults      int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		codeStats:   make(map[trap.Code]*CodeStats),
		minDuration: -1,
	}
}

// RecordCall records the outcome of one guarded call.
func (m *Metrics) RecordCall(call *trap.Call, result *trap.Result) {
	atomic.AddInt64(&m.totalCalls, 1)

	switch result.Status {
	case trap.StatusFaulted:
		atomic.AddInt64(&m.faulted, 1)
	default:
		atomic.AddInt64(&m.completed, 1)
	}

	// Record duration
	duration := result.Duration.Nanoseconds()
	atomic.AddInt64(&m.totalDuration, duration)
	atomic.AddInt64(&m.durationCount, 1)

	// Update min/max
	for {
		old := atomic.LoadInt64(&m.minDuration)
		if old >= 0 && duration >= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.minDuration, old, duration) {
			break
		}
	}

	for {
		old := atomic.LoadInt64(&m.maxDuration)
		if duration <= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.maxDuration, old, duration) {
			break
		}
	}

	if result.Exception != nil {
		m.updateCodeStats(call, result.Exception.Code())
	}
}

func (m *Metrics) updateCodeStats(call *trap.Call, code trap.Code) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.codeStats[code]
	if !ok {
		stats = &CodeStats{Code: code}
		m.codeStats[code] = stats
	}

	stats.Faults++
	stats.LastFaultAt = time.Now()
	if call != nil {
		stats.LastCall = call.Name
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TotalCalls:  atomic.LoadInt64(&m.totalCalls),
		Completed:   atomic.LoadInt64(&m.completed),
		Faulted:     atomic.LoadInt64(&m.faulted),
		AvgDuration: m.avgDuration(),
		MinDuration: time.Duration(atomic.LoadInt64(&m.minDuration)),
		MaxDuration: time.Duration(atomic.LoadInt64(&m.maxDuration)),
		CodeStats:   m.getCodeStats(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	CodeStats   map[trap.Code]*CodeStats
	TotalCalls  int64
	Completed   int64
	Faulted     int64
	AvgDuration time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
}

// FaultRate returns the fraction of calls that faulted, as a percentage.
func (s MetricsSnapshot) FaultRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.Faulted) / float64(s.TotalCalls) * 100
}

func (m *Metrics) avgDuration() time.Duration {
	count := atomic.LoadInt64(&m.durationCount)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.totalDuration) / count)
}

func (m *Metrics) getCodeStats() map[trap.Code]*CodeStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[trap.Code]*CodeStats, len(m.codeStats))
	for k, v := range m.codeStats {
		copied := *v
		result[k] = &copied
	}
	return result
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.totalCalls, 0)
	atomic.StoreInt64(&m.completed, 0)
	atomic.StoreInt64(&m.faulted, 0)
	atomic.StoreInt64(&m.totalDuration, 0)
	atomic.StoreInt64(&m.durationCount, 0)
	atomic.StoreInt64(&m.minDuration, -1)
	atomic.StoreInt64(&m.maxDuration, 0)

	m.mu.Lock()
	m.codeStats = make(map[trap.Code]*CodeStats)
	m.mu.Unlock()
}
