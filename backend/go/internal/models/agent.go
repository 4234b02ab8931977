package models

// AgentType 是 Agent 种类的固定枚举，同时作为线上协议里的标识。
type AgentType string

const (
	AgentPlanner    AgentType = "PLANNER"
	AgentResearcher AgentType = "RESEARCHER"
	AgentAnalyst    AgentType = "ANALYST"
	AgentWriter     AgentType = "WRITER"
	AgentVisualizer AgentType = "VISUALIZER"
)

// AgentDescriptor 是 Agent 的静态展示信息，只读。
type AgentDescriptor struct {
	Name        string `json:"name"`        // 展示名称
	Description string `json:"description"` // 能力描述
	Icon        string `json:"icon"`        // 图标字符
	Color       string `json:"color"`       // 主题色
}

// AgentRunStatus 定义了单个 Agent 运行时的展示状态。
type AgentRunStatus string

const (
	AgentRunPending   AgentRunStatus = "pending"
	AgentRunRunning   AgentRunStatus = "running"
	AgentRunCompleted AgentRunStatus = "completed"
	AgentRunFailed    AgentRunStatus = "failed"
)

// AgentRunState 是某个已分配 Agent 的运行状态，附带其描述信息。
// 服务端在 executing 阶段开始时以 pending 下发，之后由 agentUpdate 事件驱动更新。
type AgentRunState struct {
	Type AgentType `json:"type"`
	AgentDescriptor
	Status   AgentRunStatus `json:"status"`
	Progress int            `json:"progress"`
	Message  string         `json:"message,omitempty"`
}
