package service

import (
	"AgentDeck/backend/go/internal/agent"
	"AgentDeck/backend/go/internal/metrics"
	"AgentDeck/backend/go/internal/models"
	"AgentDeck/backend/go/pkg/logger"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	event   string
	payload interface{}
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []recorded
	err    error
}

func (r *recordingEmitter) Emit(event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recorded{event: event, payload: payload})
	return r.err
}

func (r *recordingEmitter) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.events...)
}

func (r *recordingEmitter) named(event string) []recorded {
	var out []recorded
	for _, e := range r.all() {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type recordingSink struct {
	mu      sync.Mutex
	entries []*models.TaskLogEntry
	err     error
}

func (s *recordingSink) Publish(_ context.Context, entry *models.TaskLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return s.err
}

func newTestSimulator(t *testing.T, agentDuration time.Duration) *agent.Simulator {
	t.Helper()
	registry := agent.NewDefaultRegistry()
	durations := make(map[models.AgentType]time.Duration)
	for _, typ := range registry.Types() {
		durations[typ] = agentDuration
	}
	registry.SetDurations(durations)
	return agent.NewSimulator(registry,
		agent.WithProgressInterval(5*time.Millisecond),
		agent.WithRand(agent.NewLockedRand(7)),
	)
}

func newTestServiceWithRunner(runner AgentRunner, opts ...Option) *TaskService {
	opts = append([]Option{WithMetrics(metrics.MustNew(prometheus.NewRegistry()))}, opts...)
	return NewTaskService(runner, Timings{Planning: 5 * time.Millisecond, Aggregation: 5 * time.Millisecond},
		logger.New("task-service-test", "", ""), opts...)
}

func newTestService(t *testing.T, agentDuration time.Duration, opts ...Option) *TaskService {
	t.Helper()
	return newTestServiceWithRunner(newTestSimulator(t, agentDuration), opts...)
}

// brokenAgentRunner fails one agent kind shortly after it starts and records
// how every other run ended.
type brokenAgentRunner struct {
	*agent.Simulator
	broken models.AgentType

	mu    sync.Mutex
	ended map[models.AgentType]error
}

func (r *brokenAgentRunner) Run(ctx context.Context, taskID string, t models.AgentType, subtask string, report agent.Reporter) (string, error) {
	if t == r.broken {
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "", errors.New("model unavailable")
	}
	out, err := r.Simulator.Run(ctx, taskID, t, subtask, report)
	r.mu.Lock()
	r.ended[t] = err
	r.mu.Unlock()
	return out, err
}

func TestSession_CompletesTaskWithOrderedEvents(t *testing.T) {
	svc := newTestService(t, 30*time.Millisecond)
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	created, err := sess.Submit("ANALYZE: customer_feedback")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPlanning, created.Status)
	sess.Wait()

	events := em.all()
	require.NotEmpty(t, events)
	assert.Equal(t, models.EventTaskCreated, events[0].event)
	assert.Equal(t, models.EventTaskCompleted, events[len(events)-1].event)

	updates := em.named(models.EventTaskUpdate)
	require.Len(t, updates, 3)
	assert.Equal(t, models.TaskStatusPlanning, updates[0].payload.(models.TaskUpdateEvent).Status)
	executing := updates[1].payload.(models.TaskUpdateEvent)
	assert.Equal(t, models.TaskStatusExecuting, executing.Status)
	assert.Equal(t, "Planning complete. 4 agents will execute the task.", executing.Message)
	require.Len(t, executing.Agents, 4)
	require.Len(t, executing.AgentReasons, 4)
	for _, st := range executing.Agents {
		assert.Equal(t, models.AgentRunPending, st.Status)
		assert.Equal(t, 0, st.Progress)
		assert.NotEmpty(t, st.Name)
	}
	assert.Equal(t, models.TaskStatusAggregating, updates[2].payload.(models.TaskUpdateEvent).Status)

	wantAgents := []models.AgentType{models.AgentPlanner, models.AgentResearcher, models.AgentAnalyst, models.AgentWriter}
	finalMsg := make(map[models.AgentType]string)
	for _, e := range em.named(models.EventAgentUpdate) {
		u := e.payload.(models.AgentUpdateEvent)
		assert.Contains(t, wantAgents, u.AgentType)
		if u.Status == models.AgentRunCompleted {
			assert.Equal(t, 100, u.Progress)
			finalMsg[u.AgentType] = u.Message
		} else {
			assert.True(t, u.Progress == 0 || (u.Progress >= 20 && u.Progress < 95), "progress %d", u.Progress)
		}
	}

	result := em.named(models.EventTaskCompleted)[0].payload.(models.TaskCompletedEvent).Result
	require.NotNil(t, result)
	require.Len(t, result.Results, len(wantAgents))
	for i, typ := range wantAgents {
		assert.Equal(t, finalMsg[typ], result.Results[i], "result %d belongs to %s", i, typ)
	}
	assert.Equal(t, `Task completed: "ANALYZE: customer_feedback"`, result.Summary)
	assert.Equal(t, []string{"All agents completed successfully", "Results are ready for review"}, result.Insights)
	assert.Equal(t, []string{"Review the findings", "Share with your team"}, result.Recommendations)

	task, ok := sess.Task()
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	assert.Equal(t, wantAgents, task.Agents)
	require.NotNil(t, task.EndTime)
}

func TestSession_EveryAgentCompletesBeforeResult(t *testing.T) {
	svc := newTestService(t, 20*time.Millisecond)
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	_, err := sess.Submit("make a chart")
	require.NoError(t, err)
	sess.Wait()

	completedAt := -1
	resultAt := -1
	for i, e := range em.all() {
		if u, ok := e.payload.(models.AgentUpdateEvent); ok && u.Status == models.AgentRunCompleted {
			assert.Equal(t, models.AgentVisualizer, u.AgentType)
			completedAt = i
		}
		if e.event == models.EventTaskCompleted {
			resultAt = i
		}
	}
	require.GreaterOrEqual(t, completedAt, 0)
	assert.Less(t, completedAt, resultAt)
}

func TestSession_RejectsBlankRequest(t *testing.T) {
	svc := newTestService(t, 10*time.Millisecond)
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	_, err := sess.Submit("   ")
	require.ErrorIs(t, err, ErrEmptyRequest)

	rejected := em.named(models.EventTaskRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, ErrEmptyRequest.Error(), rejected[0].payload.(models.TaskRejectedEvent).Error)
	_, ok := sess.Task()
	assert.False(t, ok)
}

func TestSession_RejectsSubmitWhileTaskInFlight(t *testing.T) {
	svc := newTestService(t, 200*time.Millisecond)
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	first, err := sess.Submit("hello world")
	require.NoError(t, err)

	_, err = sess.Submit("another one")
	require.ErrorIs(t, err, ErrTaskInFlight)
	rejected := em.named(models.EventTaskRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, first.ID, rejected[0].payload.(models.TaskRejectedEvent).ActiveTaskID)

	sess.Wait()
	second, err := sess.Submit("another one")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSession_SubmitRateLimit(t *testing.T) {
	svc := newTestService(t, 5*time.Millisecond, WithSubmitLimit(0.001, 1))
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	_, err := sess.Submit("hello")
	require.NoError(t, err)
	sess.Wait()

	_, err = sess.Submit("hello again")
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestSession_CloseCancelsRunningTask(t *testing.T) {
	svc := newTestService(t, 10*time.Second)
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)

	_, err := sess.Submit("summarize the quarter")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(em.named(models.EventAgentUpdate)) > 0
	}, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.CloseSession(sess)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close")
	}

	task, ok := sess.Task()
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusFailed, task.Status)
	assert.Contains(t, task.Error, context.Canceled.Error())
	require.Len(t, em.named(models.EventTaskFailed), 1)

	_, err = sess.Submit("again")
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.Equal(t, 0, svc.SessionCount())
}

func TestSession_EmitErrorsDoNotFailTask(t *testing.T) {
	svc := newTestService(t, 10*time.Millisecond)
	em := &recordingEmitter{err: errors.New("broken pipe")}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	_, err := sess.Submit("hello")
	require.NoError(t, err)
	sess.Wait()

	task, _ := sess.Task()
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
}

func TestService_MirrorsEventsToSink(t *testing.T) {
	sink := &recordingSink{err: errors.New("queue full")}
	svc := newTestService(t, 10*time.Millisecond, WithEventSink(sink), WithIDGenerator(func() string { return "task-fixed" }))
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	_, err := sess.Submit("hello")
	require.NoError(t, err)
	sess.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.entries, len(em.all()))
	for _, e := range sink.entries {
		assert.Equal(t, "task-fixed", e.TaskID)
		assert.Equal(t, sess.ID(), e.SessionID)
	}
	assert.Equal(t, models.EventTaskCreated, sink.entries[0].Event)
	assert.Equal(t, models.EventTaskCompleted, sink.entries[len(sink.entries)-1].Event)
}

func TestService_ShutdownClosesAllSessions(t *testing.T) {
	svc := newTestService(t, 10*time.Second)
	a := svc.OpenSession(context.Background(), &recordingEmitter{})
	b := svc.OpenSession(context.Background(), &recordingEmitter{})
	_, err := a.Submit("hello")
	require.NoError(t, err)
	assert.Equal(t, 2, svc.SessionCount())

	svc.Shutdown()
	assert.Equal(t, 0, svc.SessionCount())
	_, err = b.Submit("hello")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSleep_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleep(context.Background(), time.Millisecond))
}

func TestSession_AgentFailureFailsBatchAndStopsSiblings(t *testing.T) {
	runner := &brokenAgentRunner{
		Simulator: newTestSimulator(t, 10*time.Second),
		broken:    models.AgentAnalyst,
		ended:     make(map[models.AgentType]error),
	}
	svc := newTestServiceWithRunner(runner)
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	_, err := sess.Submit("summarize the numbers")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		sess.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sibling agents kept running after one failed")
	}

	runner.mu.Lock()
	assert.Len(t, runner.ended, 3)
	for typ, runErr := range runner.ended {
		assert.ErrorIsf(t, runErr, context.Canceled, "%s should be cancelled", typ)
	}
	runner.mu.Unlock()

	failed := em.named(models.EventTaskFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "agent ANALYST: model unavailable", failed[0].payload.(models.TaskFailedEvent).Error)
	assert.Empty(t, em.named(models.EventTaskCompleted))

	task, ok := sess.Task()
	require.True(t, ok)
	assert.Equal(t, models.TaskStatusFailed, task.Status)
	assert.Equal(t, "agent ANALYST: model unavailable", task.Error)
	require.NotNil(t, task.EndTime)
}

func TestSession_KeepsRequestTextAsSent(t *testing.T) {
	svc := newTestService(t, 5*time.Millisecond)
	em := &recordingEmitter{}
	sess := svc.OpenSession(context.Background(), em)
	defer svc.CloseSession(sess)

	created, err := sess.Submit("  make a chart ")
	require.NoError(t, err)
	assert.Equal(t, "  make a chart ", created.Request)
	sess.Wait()

	result := em.named(models.EventTaskCompleted)[0].payload.(models.TaskCompletedEvent).Result
	assert.Equal(t, "  make a chart ", result.OriginalRequest)
	assert.Equal(t, `Task completed: "  make a chart "`, result.Summary)
}
