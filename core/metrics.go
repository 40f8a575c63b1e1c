package core

import "sync/atomic"

// Metrics holds lock-free counters updated during block commit, read by the
// telemetry hook (SPEC_FULL.md §5 "telemetry snapshot") without contending
// with commit-path locks.
type Metrics struct {
	blockHeight      atomic.Uint64
	committedTxCount atomic.Uint64
	rejectedTxCount  atomic.Uint64
	triggersExecuted atomic.Uint64
}

// NewMetrics constructs a zeroed counter set.
func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) observeBlockCommitted(height uint64) { m.blockHeight.Store(height) }
func (m *Metrics) observeTxCommitted()                  { m.committedTxCount.Add(1) }
func (m *Metrics) observeTxRejected()                   { m.rejectedTxCount.Add(1) }
func (m *Metrics) observeTriggerExecuted()              { m.triggersExecuted.Add(1) }

// TelemetrySnapshot is a point-in-time, immutable read of Metrics plus a
// handful of live World counts, suitable for exposing over a status
// endpoint (SPEC_FULL.md §5).
type TelemetrySnapshot struct {
	BlockHeight      uint64
	CommittedTxCount uint64
	RejectedTxCount  uint64
	TriggersExecuted uint64
	DomainCount      int
	RoleCount        int
	TrustedPeerCount int
	EventsDropped    uint64
}

// Snapshot reads every counter plus live World cardinalities.
func (wsv *WSV) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		BlockHeight:      wsv.Metrics.blockHeight.Load(),
		CommittedTxCount: wsv.Metrics.committedTxCount.Load(),
		RejectedTxCount:  wsv.Metrics.rejectedTxCount.Load(),
		TriggersExecuted: wsv.Metrics.triggersExecuted.Load(),
		DomainCount:      wsv.World.Domains.Len(),
		RoleCount:        wsv.World.Roles.Len(),
		TrustedPeerCount: wsv.World.TrustedPeers.Len(),
		EventsDropped:    wsv.Events.Dropped(),
	}
}
