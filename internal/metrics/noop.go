package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveAcquireWait is a no-op.
func (n *NoopRecorder) ObserveAcquireWait(duration time.Duration) {}

// IncPoolExhausted is a no-op.
func (n *NoopRecorder) IncPoolExhausted() {}

// IncStatement is a no-op.
func (n *NoopRecorder) IncStatement(status string) {}

// ObserveStatementDuration is a no-op.
func (n *NoopRecorder) ObserveStatementDuration(duration time.Duration) {}

// IncTransaction is a no-op.
func (n *NoopRecorder) IncTransaction(outcome string) {}

// IncUserCreated is a no-op.
func (n *NoopRecorder) IncUserCreated() {}

// IncUserUpdated is a no-op.
func (n *NoopRecorder) IncUserUpdated() {}

// IncUserDeleted is a no-op.
func (n *NoopRecorder) IncUserDeleted() {}

// IncOrderCreated is a no-op.
func (n *NoopRecorder) IncOrderCreated() {}

// IncChangePublished is a no-op.
func (n *NoopRecorder) IncChangePublished(status string) {}
