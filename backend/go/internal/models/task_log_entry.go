package models

import "time"

// TaskLogEntry 定义了镜像到 Kafka 的任务事件的统一结构。
type TaskLogEntry struct {
	TaskID    string      `json:"task_id"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Event     string      `json:"event"`
	Content   interface{} `json:"content,omitempty"`
}
