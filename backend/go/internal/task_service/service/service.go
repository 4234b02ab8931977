package service

import (
	"AgentDeck/backend/go/internal/agent"
	"AgentDeck/backend/go/internal/metrics"
	"AgentDeck/backend/go/internal/models"
	"AgentDeck/backend/go/pkg/logger"
	"AgentDeck/backend/go/pkg/ratelimiter"
	"context"
	"time"

	"github.com/google/uuid"
)

// Timings are the fixed delays of the planning and aggregation phases.
type Timings struct {
	Planning    time.Duration
	Aggregation time.Duration
}

// AgentRunner executes one agent for a task. *agent.Simulator implements it.
type AgentRunner interface {
	Run(ctx context.Context, taskID string, t models.AgentType, subtask string, report agent.Reporter) (string, error)
	Registry() *agent.LocalRegistry
}

// TaskService creates connection sessions and holds what they share:
// the agent runner, phase timings, the optional event mirror and metrics.
// It keeps no task state of its own.
type TaskService struct {
	runner      AgentRunner
	timings     Timings
	sink        EventSink
	metrics     *metrics.Metrics
	connManager *ConnectionManager
	logger      *logger.Logger

	submitRate  float64
	submitBurst int

	now   func() time.Time
	newID func() string
}

// Option configures a TaskService.
type Option func(*TaskService)

// WithEventSink mirrors every task event to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *TaskService) { s.sink = sink }
}

// WithMetrics records task, agent and session metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *TaskService) { s.metrics = m }
}

// WithSubmitLimit limits each session to rate submissions per second with the given burst.
// A non-positive rate disables the limit.
func WithSubmitLimit(rate float64, burst int) Option {
	return func(s *TaskService) {
		s.submitRate = rate
		s.submitBurst = burst
	}
}

// WithClock overrides the time source used for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how task ids are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *TaskService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewTaskService creates a new TaskService.
func NewTaskService(runner AgentRunner, timings Timings, log *logger.Logger, opts ...Option) *TaskService {
	s := &TaskService{
		runner:      runner,
		timings:     timings,
		connManager: NewConnectionManager(),
		logger:      log,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the agent registry behind the runner.
func (s *TaskService) Registry() *agent.LocalRegistry {
	return s.runner.Registry()
}

// OpenSession starts a session for one connection. Events for the session's
// tasks go to emitter. The session lives until Close or until ctx ends.
func (s *TaskService) OpenSession(ctx context.Context, emitter Emitter) *Session {
	sessCtx, cancel := context.WithCancel(ctx)
	sess := &Session{
		id:      uuid.New().String(),
		svc:     s,
		emitter: emitter,
		ctx:     sessCtx,
		cancel:  cancel,
	}
	if s.submitRate > 0 {
		burst := s.submitBurst
		if burst <= 0 {
			burst = 1
		}
		sess.limiter = ratelimiter.NewTokenBucket(s.submitRate, burst, s.now)
	}
	sess.logger = s.logger.WithPayload(map[string]interface{}{"session_id": sess.id})

	s.connManager.Add(sess)
	s.metrics.SessionOpened()
	s.logger.Info("Session opened: " + sess.id)
	return sess
}

// CloseSession closes sess and forgets it.
func (s *TaskService) CloseSession(sess *Session) {
	s.connManager.Remove(sess.ID())
	sess.Close()
}

// SessionCount returns the number of open sessions.
func (s *TaskService) SessionCount() int {
	return s.connManager.Count()
}

// Shutdown closes every open session, cancelling their tasks.
func (s *TaskService) Shutdown() {
	s.connManager.CloseAll()
}

func (s *TaskService) mirror(sessionID, taskID, event string, payload interface{}) {
	if s.sink == nil || taskID == "" {
		return
	}
	entry := &models.TaskLogEntry{
		TaskID:    taskID,
		SessionID: sessionID,
		Timestamp: s.now(),
		Event:     event,
		Content:   payload,
	}
	if err := s.sink.Publish(context.Background(), entry); err != nil {
		s.metrics.IncMirrorDropped()
		s.logger.WithTrace(taskID).WithError(models.NewErrorInfo(err, "mirror_error")).Debug("Failed to mirror task event")
	}
}
