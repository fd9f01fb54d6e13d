package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AcquireWaitCount         uint64
	AcquireWaitTotalNs       int64
	PoolExhausted            uint64
	StatementsSucceeded      uint64
	StatementsFailed         uint64
	StatementDurationCount   uint64
	StatementDurationTotalNs int64
	TransactionsCommitted    uint64
	TransactionsRolledBack   uint64
	TransactionsNotBegun     uint64
	UsersCreated             uint64
	UsersUpdated             uint64
	UsersDeleted             uint64
	OrdersCreated            uint64
	ChangesPublished         uint64
	ChangesDropped           uint64
}

// InMemoryRecorder stores metrics in memory for tests and the /metrics endpoint.
type InMemoryRecorder struct {
	acquireWaitCount         uint64
	acquireWaitTotalNs       int64
	poolExhausted            uint64
	statementsSucceeded      uint64
	statementsFailed         uint64
	statementDurationCount   uint64
	statementDurationTotalNs int64
	transactionsCommitted    uint64
	transactionsRolledBack   uint64
	transactionsNotBegun     uint64
	usersCreated             uint64
	usersUpdated             uint64
	usersDeleted             uint64
	ordersCreated            uint64
	changesPublished         uint64
	changesDropped           uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		AcquireWaitCount:         atomic.LoadUint64(&m.acquireWaitCount),
		AcquireWaitTotalNs:       atomic.LoadInt64(&m.acquireWaitTotalNs),
		PoolExhausted:            atomic.LoadUint64(&m.poolExhausted),
		StatementsSucceeded:      atomic.LoadUint64(&m.statementsSucceeded),
		StatementsFailed:         atomic.LoadUint64(&m.statementsFailed),
		StatementDurationCount:   atomic.LoadUint64(&m.statementDurationCount),
		StatementDurationTotalNs: atomic.LoadInt64(&m.statementDurationTotalNs),
		TransactionsCommitted:    atomic.LoadUint64(&m.transactionsCommitted),
		TransactionsRolledBack:   atomic.LoadUint64(&m.transactionsRolledBack),
		TransactionsNotBegun:     atomic.LoadUint64(&m.transactionsNotBegun),
		UsersCreated:             atomic.LoadUint64(&m.usersCreated),
		UsersUpdated:             atomic.LoadUint64(&m.usersUpdated),
		UsersDeleted:             atomic.LoadUint64(&m.usersDeleted),
		OrdersCreated:            atomic.LoadUint64(&m.ordersCreated),
		ChangesPublished:         atomic.LoadUint64(&m.changesPublished),
		ChangesDropped:           atomic.LoadUint64(&m.changesDropped),
	}
}

// ObserveAcquireWait records time spent waiting for a connection.
func (m *InMemoryRecorder) ObserveAcquireWait(duration time.Duration) {
	atomic.AddUint64(&m.acquireWaitCount, 1)
	atomic.AddInt64(&m.acquireWaitTotalNs, duration.Nanoseconds())
}

// IncPoolExhausted increments the pool exhausted counter.
func (m *InMemoryRecorder) IncPoolExhausted() {
	atomic.AddUint64(&m.poolExhausted, 1)
}

// IncStatement increments the statement counter for status.
func (m *InMemoryRecorder) IncStatement(status string) {
	if status == "success" {
		atomic.AddUint64(&m.statementsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.statementsFailed, 1)
}

// ObserveStatementDuration records statement duration.
func (m *InMemoryRecorder) ObserveStatementDuration(duration time.Duration) {
	atomic.AddUint64(&m.statementDurationCount, 1)
	atomic.AddInt64(&m.statementDurationTotalNs, duration.Nanoseconds())
}

// IncTransaction increments the transaction counter for outcome.
func (m *InMemoryRecorder) IncTransaction(outcome string) {
	switch outcome {
	case "committed":
		atomic.AddUint64(&m.transactionsCommitted, 1)
	case "rolled_back":
		atomic.AddUint64(&m.transactionsRolledBack, 1)
	default:
		atomic.AddUint64(&m.transactionsNotBegun, 1)
	}
}

// IncUserCreated increments user created counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncUserUpdated increments user updated counter.
func (m *InMemoryRecorder) IncUserUpdated() {
	atomic.AddUint64(&m.usersUpdated, 1)
}

// IncUserDeleted increments user deleted counter.
func (m *InMemoryRecorder) IncUserDeleted() {
	atomic.AddUint64(&m.usersDeleted, 1)
}

// IncOrderCreated increments order created counter.
func (m *InMemoryRecorder) IncOrderCreated() {
	atomic.AddUint64(&m.ordersCreated, 1)
}

// IncChangePublished increments the change forwarding counter for status.
func (m *InMemoryRecorder) IncChangePublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.changesPublished, 1)
		return
	}
	atomic.AddUint64(&m.changesDropped, 1)
}
