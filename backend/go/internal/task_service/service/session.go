package service

import (
	"AgentDeck/backend/go/internal/models"
	"AgentDeck/backend/go/pkg/logger"
	"AgentDeck/backend/go/pkg/ratelimiter"
	"context"
	"strings"
	"sync"
)

// Session is the state of one client connection. It owns the connection's
// current task; submitting a new task drops the previous terminal one.
type Session struct {
	id      string
	svc     *TaskService
	emitter Emitter
	limiter ratelimiter.RateLimiter
	logger  *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	current *models.TaskRecord
	closed  bool
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Submit validates request and, if accepted, starts its lifecycle in the
// background. taskCreated is emitted before Submit returns. Rejections are
// emitted as taskRejected and returned as errors.
func (s *Session) Submit(request string) (*models.TaskRecord, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	var rejectErr error
	activeID := ""
	switch {
	case strings.TrimSpace(request) == "":
		rejectErr = ErrEmptyRequest
	case s.current != nil && !s.current.Status.IsTerminal():
		rejectErr = ErrTaskInFlight
		activeID = s.current.ID
	case s.limiter != nil && !s.limiter.Allow():
		rejectErr = ErrRateLimited
	}
	if rejectErr != nil {
		s.mu.Unlock()
		s.logger.WithError(models.NewErrorInfo(rejectErr, "rejected")).Warn("Task submission rejected")
		s.emit("", models.EventTaskRejected, models.TaskRejectedEvent{
			Request:      request,
			Error:        rejectErr.Error(),
			ActiveTaskID: activeID,
		})
		return nil, rejectErr
	}

	task := models.NewTaskRecord(s.svc.newID(), request, s.svc.now())
	s.current = task
	snapshot := task.Snapshot()
	s.wg.Add(1)
	s.mu.Unlock()

	s.emit(task.ID, models.EventTaskCreated, models.TaskCreatedEvent{TaskID: task.ID, Task: snapshot})
	go s.run(task)
	return &snapshot, nil
}

// Task returns a snapshot of the session's current task, if any.
func (s *Session) Task() (models.TaskRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.TaskRecord{}, false
	}
	return s.current.Snapshot(), true
}

// Wait blocks until every task started by the session has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels the session's running task and waits for it to stop.
// Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.svc.metrics.SessionClosed()
	s.logger.Info("Session closed: " + s.id)
}

// emit sends an event to the client and mirrors it. Delivery failures are
// logged only: a gone client cancels the session through the read loop.
func (s *Session) emit(taskID, event string, payload interface{}) {
	if err := s.emitter.Emit(event, payload); err != nil {
		s.logger.WithTrace(taskID).WithError(models.NewErrorInfo(err, "emit_error")).Debug("Failed to deliver event " + event)
	}
	s.svc.mirror(s.id, taskID, event, payload)
}

// update applies fn to task under the session lock.
func (s *Session) update(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
