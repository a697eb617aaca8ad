package coordinator

import "sync/atomic"

// Metrics accumulates coordinator-wide counters with atomic.Int64, the
// same shape as the teacher's hub Metrics — a handful of lock-free
// counters read out through Snapshot rather than guarded by a mutex.
type Metrics struct {
	workflowsStarted   atomic.Int64
	workflowsCompleted atomic.Int64
	itemsDispatched    atomic.Int64
	barrierErrors      atomic.Int64
}

// MetricsSnapshot is a point-in-time read of Metrics.
type MetricsSnapshot struct {
	WorkflowsStarted   int64
	WorkflowsCompleted int64
	ItemsDispatched    int64
	BarrierErrors      int64
}

// Snapshot reads every counter. Individual counters may be updated
// concurrently with the read, so the snapshot is a consistent-enough view
// for monitoring, not a transactional one.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		WorkflowsStarted:   m.workflowsStarted.Load(),
		WorkflowsCompleted: m.workflowsCompleted.Load(),
		ItemsDispatched:    m.itemsDispatched.Load(),
		BarrierErrors:      m.barrierErrors.Load(),
	}
}

func (m *Metrics) recordBarrierResult(err error) {
	if err != nil {
		m.barrierErrors.Add(1)
	}
}
