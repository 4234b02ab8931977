package kafka

import (
	"AgentDeck/backend/go/internal/models"
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MessageWriter 是 *kafka.Writer 的最小子集，测试中可替换。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LogPublisher 封装了向 Kafka 发送任务事件的逻辑。
type LogPublisher struct {
	writer MessageWriter
}

// NewLogPublisher 创建一个新的 LogPublisher 实例。
func NewLogPublisher(writer MessageWriter) *LogPublisher {
	return &LogPublisher{writer: writer}
}

// LogTaskEvent 将 TaskLogEntry 序列化为 JSON 并以任务 ID 为 key 发送到 Kafka。
func (p *LogPublisher) LogTaskEvent(ctx context.Context, entry *models.TaskLogEntry) error {
	jsonData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.TaskID),
		Value: jsonData,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(entry.Event)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close 关闭底层的 writer 连接。
func (p *LogPublisher) Close() error {
	return p.writer.Close()
}
