package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/metrics"
	"github.com/GDG-Cartagena/hackathon-mentorship-gdg/internal/model"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []model.Change
	err     error
	block   chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, change model.Change) error {
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, change)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForwarder_Success(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	rec := metrics.NewInMemory()
	f := NewForwarder(pub, discardLogger(), rec)

	f.Forward(NewChange("usuarios", model.ChangeInsert, 1))
	f.Forward(NewChange("usuarios", model.ChangeUpdate, 1))

	require.NoError(t, f.Shutdown(context.Background()))
	assert.Len(t, pub.changes, 2)
	assert.Equal(t, uint64(2), rec.Snapshot().ChangesPublished)
	assert.Equal(t, uint64(0), rec.Snapshot().ChangesDropped)
}

func TestForwarder_FailureIsDropped(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{err: errors.New("redis down")}
	rec := metrics.NewInMemory()
	f := NewForwarder(pub, discardLogger(), rec)

	f.Forward(NewChange("pedidos", model.ChangeInsert, 3))

	require.NoError(t, f.Shutdown(context.Background()))
	assert.Empty(t, pub.changes)
	assert.Equal(t, uint64(1), rec.Snapshot().ChangesDropped)
}

func TestForwarder_ShutdownTimesOut(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{block: make(chan struct{})}
	f := NewForwarder(pub, discardLogger(), nil)
	f.timeout = time.Minute

	f.Forward(NewChange("usuarios", model.ChangeDelete, 9))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Shutdown(ctx), context.DeadlineExceeded)

	close(pub.block)
	require.NoError(t, f.Shutdown(context.Background()))
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), NewChange("usuarios", model.ChangeInsert, 1)))

	f := NewForwarder(nil, nil, nil)
	f.Forward(NewChange("usuarios", model.ChangeInsert, 1))
	assert.NoError(t, f.Shutdown(context.Background()))
}

func TestForwarder_DropsAfterShutdown(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	rec := metrics.NewInMemory()
	f := NewForwarder(pub, discardLogger(), rec)

	require.NoError(t, f.Shutdown(context.Background()))
	f.Forward(NewChange("usuarios", model.ChangeInsert, 5))

	assert.Empty(t, pub.changes)
	assert.Equal(t, uint64(1), rec.Snapshot().ChangesDropped)
	assert.Equal(t, uint64(0), rec.Snapshot().ChangesPublished)
}

func TestForwarder_ForwardDuringShutdown(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	rec := metrics.NewInMemory()
	f := NewForwarder(pub, discardLogger(), rec)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			f.Forward(NewChange("pedidos", model.ChangeInsert, id))
		}(int64(i))
	}

	require.NoError(t, f.Shutdown(context.Background()))
	wg.Wait()

	s := rec.Snapshot()
	assert.Equal(t, uint64(20), s.ChangesPublished+s.ChangesDropped)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.changes, int(s.ChangesPublished))
}
