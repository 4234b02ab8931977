package publisher

import (
	"AgentDeck/backend/go/internal/models"
	"AgentDeck/backend/go/pkg/circuitbreaker"
	"AgentDeck/backend/go/pkg/logger"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu      sync.Mutex
	entries []*models.TaskLogEntry
	err     error
	block   chan struct{}
}

func (f *fakeWriter) LogTaskEvent(_ context.Context, entry *models.TaskLogEntry) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return f.err
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func entry(id string) *models.TaskLogEntry {
	return &models.TaskLogEntry{TaskID: id, Event: models.EventTaskUpdate, Timestamp: time.Now()}
}

func TestEventPublisher_DeliversInOrder(t *testing.T) {
	w := &fakeWriter{}
	p := NewEventPublisher(w, 8, time.Second, logger.New("publisher-test", "", ""))
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.Publish(context.Background(), entry(id)))
	}
	require.NoError(t, p.Close())

	require.Equal(t, 3, w.count())
	assert.Equal(t, "a", w.entries[0].TaskID)
	assert.Equal(t, "c", w.entries[2].TaskID)
	assert.ErrorIs(t, p.Publish(context.Background(), entry("d")), ErrClosed)
}

func TestEventPublisher_QueueFullDoesNotBlock(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	p := NewEventPublisher(w, 1, time.Second, logger.New("publisher-test", "", ""))

	var full bool
	for i := 0; i < 5; i++ {
		if errors.Is(p.Publish(context.Background(), entry("x")), ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)
	close(w.block)
	require.NoError(t, p.Close())
}

func TestEventPublisher_BreakerOpensAfterFailures(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	var drops atomic.Int32
	breaker := circuitbreaker.New(2, 1, time.Minute)
	p := NewEventPublisher(w, 8, time.Second, logger.New("publisher-test", "", ""),
		WithBreaker(breaker),
		WithDropHook(func() { drops.Add(1) }),
	)
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Publish(context.Background(), entry("t")))
	}
	require.NoError(t, p.Close())

	assert.Equal(t, int32(4), drops.Load())
	assert.Equal(t, 2, w.count(), "writes stop once the breaker opens")
	assert.Equal(t, circuitbreaker.Open, breaker.State())
}
