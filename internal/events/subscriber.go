package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

const (
	// DefaultConsumerGroup is the Redis consumer group name.
	DefaultConsumerGroup = "change_subscribers"

	// DefaultBatchSize is the max changes read per round trip.
	DefaultBatchSize = 100

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second
)

// HandlerFunc receives one decoded change. A returned error leaves the
// message pending so it is delivered again.
type HandlerFunc func(ctx context.Context, change model.Change) error

// Subscriber reads change events from a Redis stream through a consumer group.
type Subscriber struct {
	redis        *redis.Client
	handle       HandlerFunc
	logger       *slog.Logger
	stream       string
	group        string
	consumerID   string
	batchSize    int
	blockTimeout time.Duration
	retryDelay   time.Duration

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewSubscriber creates a subscriber on stream that passes changes to handle.
func NewSubscriber(client *redis.Client, stream, consumerID string, handle HandlerFunc, logger *slog.Logger) *Subscriber {
	if stream == "" {
		stream = DefaultStreamKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		redis:        client,
		handle:       handle,
		logger:       logger.With("component", "events.subscriber", "consumer_id", consumerID),
		stream:       stream,
		group:        DefaultConsumerGroup,
		consumerID:   consumerID,
		batchSize:    DefaultBatchSize,
		blockTimeout: DefaultBlockTimeout,
		retryDelay:   time.Second,
	}
}

// SetGroup overrides the consumer group name.
func (s *Subscriber) SetGroup(group string) {
	if group != "" {
		s.group = group
	}
}

// SetBlockTimeout overrides how long a read blocks.
func (s *Subscriber) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.blockTimeout = timeout
	}
}

// Run starts the read loop. Blocks until the context is cancelled or
// Shutdown is called.
func (s *Subscriber) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("subscriber already started")
	}
	s.started = true
	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer close(s.done)

	if err := s.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	s.logger.Info("change subscriber started", "stream", s.stream, "group", s.group)

	for {
		s.mu.Lock()
		draining := s.draining
		s.mu.Unlock()

		if draining {
			s.logger.Info("change subscriber draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			s.logger.Info("change subscriber stopping")
			return ctx.Err()
		default:
			if err := s.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				s.logger.Error("process error", "error", err)
				if !s.pause(ctx) {
					return nil
				}
			}
		}
	}
}

// Shutdown stops the read loop and waits for the in-flight batch.
// It implements server.ShutdownFunc.
func (s *Subscriber) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.draining = true
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		s.logger.Info("change subscriber shutdown complete")
		return nil
	case <-ctx.Done():
		s.logger.Warn("change subscriber shutdown timed out")
		return ctx.Err()
	}
}

// pause waits out the retry delay. It reports false when ctx ended first.
func (s *Subscriber) pause(ctx context.Context) bool {
	t := time.NewTimer(s.retryDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Subscriber) ensureConsumerGroup(ctx context.Context) error {
	err := s.redis.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

func (s *Subscriber) processOnce(ctx context.Context) error {
	streams, err := s.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumerID,
		Streams:  []string{s.stream, ">"},
		Count:    int64(s.batchSize),
		Block:    s.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && len(streams) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("xreadgroup: %w", err)
	}

	ack := make([]string, 0, len(streams[0].Messages))
	for _, msg := range streams[0].Messages {
		if s.dispatch(ctx, msg) {
			ack = append(ack, msg.ID)
		}
	}

	return s.ackMessages(ctx, ack)
}

// dispatch hands one message to the handler and reports whether it can be
// acknowledged. Malformed messages are acknowledged so they do not block.
func (s *Subscriber) dispatch(ctx context.Context, msg redis.XMessage) bool {
	change, err := decodeChange(msg.Values)
	if err != nil {
		s.logger.Warn("skipping malformed change", "message_id", msg.ID, "error", err)
		return true
	}

	if err := s.handle(ctx, change); err != nil {
		s.logger.Error("change handler failed",
			"message_id", msg.ID,
			"change_id", change.ID,
			"error", err,
		)
		return false
	}
	return true
}

func (s *Subscriber) ackMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.redis.XAck(ctx, s.stream, s.group, ids...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// isConsumerGroupExistsError checks if the error is "BUSYGROUP" (group exists).
func isConsumerGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
