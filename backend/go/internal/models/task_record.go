package models

import (
	"errors"
	"fmt"
	"time"
)

// TaskStatus 定义了任务生命周期中的阶段。
type TaskStatus string

const (
	TaskStatusPlanning    TaskStatus = "planning"
	TaskStatusExecuting   TaskStatus = "executing"
	TaskStatusAggregating TaskStatus = "aggregating"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusFailed      TaskStatus = "failed"
)

// ErrInvalidTransition 表示试图进行一次状态表之外的状态迁移。
var ErrInvalidTransition = errors.New("invalid task status transition")

// IsTerminal 判断状态是否为终态（completed 或 failed）。
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// CanTransitionTo 返回当前状态是否允许迁移到目标状态。
//
//	planning → executing | failed
//	executing → aggregating | failed
//	aggregating → completed | failed
//	completed, failed → (终态)
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	switch s {
	case TaskStatusPlanning:
		return target == TaskStatusExecuting || target == TaskStatusFailed
	case TaskStatusExecuting:
		return target == TaskStatusAggregating || target == TaskStatusFailed
	case TaskStatusAggregating:
		return target == TaskStatusCompleted || target == TaskStatusFailed
	default:
		return false
	}
}

// TaskRecord 代表一个连接内的任务记录，只存在于内存中，由创建它的会话独占。
type TaskRecord struct {
	ID           string      `json:"id"`                     // 任务唯一ID (UUID)
	Request      string      `json:"request"`                // 用户提交的原始请求
	Status       TaskStatus  `json:"status"`                 // 任务当前状态
	Agents       []AgentType `json:"agents"`                 // 按选择顺序排列的 Agent
	AgentReasons []string    `json:"agentReasons,omitempty"` // 与 Agents 一一对应的选择原因
	Result       *TaskResult `json:"result,omitempty"`       // 任务完成后的汇总结果
	Error        string      `json:"error,omitempty"`        // 任务失败时的错误信息
	StartTime    time.Time   `json:"startTime"`              // 任务创建时间
	EndTime      *time.Time  `json:"endTime,omitempty"`      // 任务进入终态的时间
}

// NewTaskRecord 创建一个处于 planning 状态的任务。
func NewTaskRecord(id, request string, now time.Time) *TaskRecord {
	return &TaskRecord{
		ID:        id,
		Request:   request,
		Status:    TaskStatusPlanning,
		Agents:    []AgentType{},
		StartTime: now,
	}
}

// Transition 按状态表迁移任务状态，非法迁移返回 ErrInvalidTransition 且不修改任务。
// 进入终态时会记录 EndTime。
func (t *TaskRecord) Transition(target TaskStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, target)
	}
	t.Status = target
	if target.IsTerminal() {
		end := now
		t.EndTime = &end
	}
	return nil
}

// Complete 附加结果并将任务置为 completed。
func (t *TaskRecord) Complete(result *TaskResult, now time.Time) error {
	if err := t.Transition(TaskStatusCompleted, now); err != nil {
		return err
	}
	t.Result = result
	return nil
}

// Fail 记录错误并将任务置为 failed。已处于终态的任务保持不变。
func (t *TaskRecord) Fail(message string, now time.Time) error {
	if err := t.Transition(TaskStatusFailed, now); err != nil {
		return err
	}
	t.Error = message
	return nil
}

// Snapshot 返回任务的拷贝，供序列化发送使用。Agents 始终非 nil，序列化为 []。
func (t *TaskRecord) Snapshot() TaskRecord {
	cp := *t
	cp.Agents = make([]AgentType, len(t.Agents))
	copy(cp.Agents, t.Agents)
	if t.AgentReasons != nil {
		cp.AgentReasons = make([]string, len(t.AgentReasons))
		copy(cp.AgentReasons, t.AgentReasons)
	}
	return cp
}

// TaskResult 是任务完成后返回给客户端的汇总结果。
type TaskResult struct {
	OriginalRequest string    `json:"originalRequest"`
	Summary         string    `json:"summary"`
	Results         []string  `json:"results"` // 与任务的 Agents 顺序一致
	Insights        []string  `json:"insights"`
	Recommendations []string  `json:"recommendations"`
	Timestamp       time.Time `json:"timestamp"`
}
