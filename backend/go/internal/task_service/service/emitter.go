package service

import (
	"AgentDeck/backend/go/internal/models"
	"context"
)

// Emitter delivers one server event to the client owning a session.
// Implementations must be safe for concurrent use: agent runs emit in parallel.
type Emitter interface {
	Emit(event string, payload interface{}) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload interface{}) error

// Emit calls f(event, payload).
func (f EmitterFunc) Emit(event string, payload interface{}) error {
	return f(event, payload)
}

// EventSink receives a copy of every task event, e.g. the Kafka mirror.
// Publish must not block the task for long; a returned error only counts a drop.
type EventSink interface {
	Publish(ctx context.Context, entry *models.TaskLogEntry) error
}
