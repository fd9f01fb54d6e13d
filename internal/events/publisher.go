package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/metrics"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

const (
	// DefaultStreamKey is the Redis stream for change events.
	DefaultStreamKey = "stream:usuarios_changes"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for a forwarded publish.
	PublishTimeout = 250 * time.Millisecond
)

// Publisher delivers a change event to an external sink.
type Publisher interface {
	Publish(ctx context.Context, change model.Change) error
}

// Noop discards every change.
type Noop struct{}

// Publish is a no-op.
func (Noop) Publish(ctx context.Context, change model.Change) error { return nil }

// StreamPublisher appends change events to a Redis stream.
type StreamPublisher struct {
	redis  *redis.Client
	stream string
}

// NewStreamPublisher creates a publisher writing to stream.
func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	if stream == "" {
		stream = DefaultStreamKey
	}
	return &StreamPublisher{redis: client, stream: stream}
}

// Publish adds a change to the stream synchronously.
func (p *StreamPublisher) Publish(ctx context.Context, change model.Change) error {
	values, err := encodeChange(change)
	if err != nil {
		return err
	}

	err = p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}

	return nil
}

// Forwarder publishes changes without blocking the write path.
// Failures are logged and counted, never returned.
type Forwarder struct {
	publisher Publisher
	logger    *slog.Logger
	metrics   metrics.Recorder
	timeout   time.Duration
	wg        sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewForwarder wraps publisher. A nil publisher discards changes.
func NewForwarder(publisher Publisher, logger *slog.Logger, recorder metrics.Recorder) *Forwarder {
	if publisher == nil {
		publisher = Noop{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		publisher: publisher,
		logger:    logger.With("component", "events.forwarder"),
		metrics:   recorder,
		timeout:   PublishTimeout,
	}
}

// Forward publishes change in the background. Once Shutdown has begun,
// changes are dropped and counted.
func (f *Forwarder) Forward(change model.Change) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		f.logger.Warn("forwarder closed, dropping change",
			"table", change.Table,
			"op", change.Op,
			"record_id", change.RecordID,
		)
		f.metrics.IncChangePublished("dropped")
		return
	}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		if err := f.publisher.Publish(ctx, change); err != nil {
			f.logger.Warn("failed to forward change",
				"table", change.Table,
				"op", change.Op,
				"record_id", change.RecordID,
				"error", err,
			)
			f.metrics.IncChangePublished("dropped")
			return
		}

		f.logger.Debug("change forwarded",
			"change_id", change.ID,
			"table", change.Table,
			"op", change.Op,
		)
		f.metrics.IncChangePublished("success")
	}()
}

// Shutdown waits for in-flight publishes or the context to end.
// It implements server.ShutdownFunc.
func (f *Forwarder) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
