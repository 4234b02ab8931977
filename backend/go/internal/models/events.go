package models

import "encoding/json"

// 客户端与服务端之间的事件名。
const (
	EventSubmitTask    = "submitTask"
	EventTaskCreated   = "taskCreated"
	EventTaskUpdate    = "taskUpdate"
	EventAgentUpdate   = "agentUpdate"
	EventTaskCompleted = "taskCompleted"
	EventTaskFailed    = "taskFailed"
	EventTaskRejected  = "taskRejected"
	EventError         = "error"
)

// Envelope 是 WebSocket 上每一帧的外层结构。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SubmitTaskRequest 是客户端提交任务的载荷。
type SubmitTaskRequest struct {
	Request string `json:"request"`
}

// TaskCreatedEvent 在任务创建后立即下发。
type TaskCreatedEvent struct {
	TaskID string     `json:"taskId"`
	Task   TaskRecord `json:"task"`
}

// TaskUpdateEvent 在每次生命周期状态变化时下发。
type TaskUpdateEvent struct {
	TaskID       string          `json:"taskId"`
	Status       TaskStatus      `json:"status"`
	Message      string          `json:"message"`
	AgentReasons []string        `json:"agentReasons,omitempty"`
	Agents       []AgentRunState `json:"agents,omitempty"`
}

// AgentUpdateEvent 描述某个 Agent 的进度。
type AgentUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	AgentType AgentType      `json:"agentType"`
	Status    AgentRunStatus `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
}

// TaskCompletedEvent 携带最终结果。
type TaskCompletedEvent struct {
	TaskID string      `json:"taskId"`
	Result *TaskResult `json:"result"`
}

// TaskFailedEvent 携带失败原因。
type TaskFailedEvent struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}

// TaskRejectedEvent 表示提交被拒绝，任务没有被创建。
type TaskRejectedEvent struct {
	Request      string `json:"request"`
	Error        string `json:"error"`
	ActiveTaskID string `json:"activeTaskId,omitempty"`
}

// ErrorEvent 用于协议层面的错误（无法解析的帧、未知事件）。
type ErrorEvent struct {
	Error string `json:"error"`
}
