package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskStatusPlanning, TaskStatusExecuting, true},
		{TaskStatusPlanning, TaskStatusFailed, true},
		{TaskStatusPlanning, TaskStatusAggregating, false},
		{TaskStatusPlanning, TaskStatusCompleted, false},
		{TaskStatusExecuting, TaskStatusAggregating, true},
		{TaskStatusExecuting, TaskStatusFailed, true},
		{TaskStatusExecuting, TaskStatusPlanning, false},
		{TaskStatusAggregating, TaskStatusCompleted, true},
		{TaskStatusAggregating, TaskStatusFailed, true},
		{TaskStatusCompleted, TaskStatusFailed, false},
		{TaskStatusFailed, TaskStatusPlanning, false},
		{TaskStatusFailed, TaskStatusFailed, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, c.from.CanTransitionTo(c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTaskRecord_HappyPath(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	task := NewTaskRecord("t-1", "hello", now)
	require.Equal(t, TaskStatusPlanning, task.Status)
	require.Nil(t, task.EndTime)

	require.NoError(t, task.Transition(TaskStatusExecuting, now))
	require.NoError(t, task.Transition(TaskStatusAggregating, now))
	require.Nil(t, task.EndTime)

	end := now.Add(time.Second)
	result := &TaskResult{Summary: "done"}
	require.NoError(t, task.Complete(result, end))
	assert.Equal(t, TaskStatusCompleted, task.Status)
	assert.Same(t, result, task.Result)
	require.NotNil(t, task.EndTime)
	assert.Equal(t, end, *task.EndTime)
}

func TestTaskRecord_RejectsInvalidTransition(t *testing.T) {
	now := time.Now()
	task := NewTaskRecord("t-2", "hello", now)

	err := task.Transition(TaskStatusCompleted, now)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, TaskStatusPlanning, task.Status)

	require.NoError(t, task.Fail("boom", now))
	assert.Equal(t, "boom", task.Error)

	err = task.Fail("again", now)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "boom", task.Error)
}

func TestTaskRecord_SnapshotIsDetached(t *testing.T) {
	task := NewTaskRecord("t-3", "hello", time.Now())
	task.Agents = []AgentType{AgentPlanner}
	snap := task.Snapshot()
	task.Agents[0] = AgentWriter
	assert.Equal(t, AgentPlanner, snap.Agents[0])
}

func TestTaskRecord_SnapshotEncodesEmptyAgents(t *testing.T) {
	task := NewTaskRecord("t-4", "hello", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	raw, err := json.Marshal(TaskCreatedEvent{TaskID: task.ID, Task: task.Snapshot()})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"agents":[]`)
	assert.NotContains(t, string(raw), `"agentReasons"`)
}
