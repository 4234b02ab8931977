package publisher

import (
	"AgentDeck/backend/go/internal/models"
	"AgentDeck/backend/go/pkg/circuitbreaker"
	"AgentDeck/backend/go/pkg/logger"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned by Publish when the mirror cannot keep up.
var ErrQueueFull = errors.New("event mirror queue is full")

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event mirror is closed")

// EntryWriter writes one task event to the broker. kafka.LogPublisher implements it.
type EntryWriter interface {
	LogTaskEvent(ctx context.Context, entry *models.TaskLogEntry) error
}

// EventPublisher mirrors task events to Kafka without blocking the task:
// Publish only enqueues, and a single worker writes through a circuit breaker.
type EventPublisher struct {
	writer     EntryWriter
	breaker    *circuitbreaker.Breaker
	writeLimit time.Duration
	logger     *logger.Logger
	onDrop     func()

	queue     chan *models.TaskLogEntry
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures an EventPublisher.
type Option func(*EventPublisher)

// WithBreaker guards broker writes with b.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(p *EventPublisher) { p.breaker = b }
}

// WithDropHook registers fn to be called for every entry the worker fails to write.
func WithDropHook(fn func()) Option {
	return func(p *EventPublisher) { p.onDrop = fn }
}

// NewEventPublisher creates an EventPublisher and starts its worker.
func NewEventPublisher(writer EntryWriter, queueSize int, writeLimit time.Duration, log *logger.Logger, opts ...Option) *EventPublisher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if writeLimit <= 0 {
		writeLimit = 2 * time.Second
	}
	p := &EventPublisher{
		writer:     writer,
		writeLimit: writeLimit,
		logger:     log,
		queue:      make(chan *models.TaskLogEntry, queueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.worker()
	return p
}

// Publish enqueues entry. It never blocks.
func (p *EventPublisher) Publish(_ context.Context, entry *models.TaskLogEntry) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- entry:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *EventPublisher) worker() {
	defer close(p.done)
	for entry := range p.queue {
		if err := p.write(entry); err != nil {
			if p.onDrop != nil {
				p.onDrop()
			}
			p.logger.WithTrace(entry.TaskID).WithError(models.NewErrorInfo(err, "kafka_error")).
				WithPayload(map[string]interface{}{"event": entry.Event}).
				Warn("Failed to mirror task event to Kafka")
		}
	}
}

func (p *EventPublisher) write(entry *models.TaskLogEntry) error {
	call := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeLimit)
		defer cancel()
		return p.writer.LogTaskEvent(ctx, entry)
	}
	if p.breaker == nil {
		return call()
	}
	return p.breaker.Execute(call)
}

// Close stops accepting entries, drains the queue and waits for the worker.
func (p *EventPublisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	<-p.done
	return nil
}
