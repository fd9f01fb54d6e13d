// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Pool metrics
	ObserveAcquireWait(duration time.Duration)
	IncPoolExhausted()

	// Statement metrics
	IncStatement(status string) // status: "success" or "failed"
	ObserveStatementDuration(duration time.Duration)

	// Transaction metrics
	IncTransaction(outcome string) // outcome: "committed", "rolled_back" or "idle"

	// Entity write metrics
	IncUserCreated()
	IncUserUpdated()
	IncUserDeleted()
	IncOrderCreated()

	// Change forwarding metrics
	IncChangePublished(status string) // status: "success" or "dropped"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
