package service

import (
	"AgentDeck/backend/go/internal/agent"
	"AgentDeck/backend/go/internal/models"
	"AgentDeck/backend/go/pkg/logger"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	msgPlanning    = "Analyzing request and planning execution..."
	msgExecuting   = "Planning complete. %d agents will execute the task."
	msgAggregating = "Combining results from all agents..."
)

var (
	resultInsights        = []string{"All agents completed successfully", "Results are ready for review"}
	resultRecommendations = []string{"Review the findings", "Share with your team"}
)

// run drives task to a terminal status and emits taskCompleted or taskFailed.
func (s *Session) run(task *models.TaskRecord) {
	defer s.wg.Done()
	log := s.logger.WithTrace(task.ID)
	log.WithPayload(map[string]interface{}{"request": task.Request}).Info("Task started")

	result, err := s.process(s.ctx, task, log)
	if err != nil {
		s.fail(task, err, log)
		return
	}
	s.complete(task, result, log)
}

func (s *Session) process(ctx context.Context, task *models.TaskRecord, log *logger.Logger) (result *models.TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	// planning
	s.emit(task.ID, models.EventTaskUpdate, models.TaskUpdateEvent{
		TaskID:  task.ID,
		Status:  models.TaskStatusPlanning,
		Message: msgPlanning,
	})
	if err := sleep(ctx, s.svc.timings.Planning); err != nil {
		return nil, err
	}
	sel := agent.Select(task.Request)
	states, err := s.svc.Registry().PendingStates(sel.Agents)
	if err != nil {
		return nil, fmt.Errorf("planning: %w", err)
	}

	// executing
	if err := s.update(func() error {
		if err := task.Transition(models.TaskStatusExecuting, s.svc.now()); err != nil {
			return err
		}
		task.Agents = sel.Agents
		task.AgentReasons = sel.Reasons
		return nil
	}); err != nil {
		return nil, err
	}
	log.WithPayload(map[string]interface{}{"agents": sel.Agents}).Debug("Agents selected")
	s.emit(task.ID, models.EventTaskUpdate, models.TaskUpdateEvent{
		TaskID:       task.ID,
		Status:       models.TaskStatusExecuting,
		Message:      fmt.Sprintf(msgExecuting, len(sel.Agents)),
		AgentReasons: sel.Reasons,
		Agents:       states,
	})
	results, err := s.execute(ctx, task.ID, sel.Agents, agent.Subtask(task.Request))
	if err != nil {
		return nil, err
	}

	// aggregating
	if err := s.update(func() error {
		return task.Transition(models.TaskStatusAggregating, s.svc.now())
	}); err != nil {
		return nil, err
	}
	s.emit(task.ID, models.EventTaskUpdate, models.TaskUpdateEvent{
		TaskID:  task.ID,
		Status:  models.TaskStatusAggregating,
		Message: msgAggregating,
	})
	if err := sleep(ctx, s.svc.timings.Aggregation); err != nil {
		return nil, err
	}

	return &models.TaskResult{
		OriginalRequest: task.Request,
		Summary:         `Task completed: "` + task.Request + `"`,
		Results:         results,
		Insights:        append([]string(nil), resultInsights...),
		Recommendations: append([]string(nil), resultRecommendations...),
		Timestamp:       s.svc.now(),
	}, nil
}

// execute runs every agent concurrently and returns their results in agent
// order. The first failure cancels the others and fails the batch.
func (s *Session) execute(ctx context.Context, taskID string, agents []models.AgentType, subtask string) ([]string, error) {
	results := make([]string, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	report := func(u models.AgentUpdateEvent) {
		s.emit(taskID, models.EventAgentUpdate, u)
	}
	for i, t := range agents {
		g.Go(func() error {
			out, err := s.svc.runner.Run(gctx, taskID, t, subtask, report)
			if err != nil {
				s.svc.metrics.IncAgentRun(string(t), "failed")
				return fmt.Errorf("agent %s: %w", t, err)
			}
			s.svc.metrics.IncAgentRun(string(t), "completed")
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Session) complete(task *models.TaskRecord, result *models.TaskResult, log *logger.Logger) {
	now := s.svc.now()
	if err := s.update(func() error { return task.Complete(result, now) }); err != nil {
		s.fail(task, err, log)
		return
	}
	s.emit(task.ID, models.EventTaskCompleted, models.TaskCompletedEvent{TaskID: task.ID, Result: result})
	s.svc.metrics.ObserveTask(string(models.TaskStatusCompleted), now.Sub(task.StartTime))
	log.Info("Task completed")
}

func (s *Session) fail(task *models.TaskRecord, cause error, log *logger.Logger) {
	now := s.svc.now()
	if err := s.update(func() error { return task.Fail(cause.Error(), now) }); err != nil {
		log.WithError(models.NewErrorInfo(err, "lifecycle_error")).Error("Could not mark task failed")
		return
	}
	s.emit(task.ID, models.EventTaskFailed, models.TaskFailedEvent{TaskID: task.ID, Error: cause.Error()})
	s.svc.metrics.ObserveTask(string(models.TaskStatusFailed), now.Sub(task.StartTime))
	log.WithError(models.NewErrorInfo(cause, "task_error")).Error("Task failed")
}

// sleep waits for d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
