package kafka

import (
	"AgentDeck/backend/go/internal/config"
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Client 持有 Kafka 管理连接和任务事件的 writer。
type Client struct {
	Writer *kafka.Writer
	Conn   *kafka.Conn // 用于管理的连接
	Config *config.KafkaConfig
}

// NewClient 连接到 Kafka，确保配置的主题存在，并创建事件 writer。
func NewClient(cfg *config.KafkaConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("未配置 Kafka brokers")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("未配置 Kafka topic")
	}

	// 1. 建立管理连接
	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("kafka 初始化连接失败: %w", err)
	}

	// 2. 创建不存在的主题
	if _, err := EnsureTopics(conn, cfg.Topic); err != nil {
		conn.Close()
		return nil, err
	}

	// 3. 创建用于生产的 Writer
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // 同一任务的事件落在同一分区，保持顺序
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}
	return &Client{Writer: writer, Conn: conn, Config: cfg}, nil
}

// TopicAdmin 是 EnsureTopics 所需的管理操作，*kafka.Conn 实现了它。
type TopicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}

// EnsureTopics 创建 topics 中尚不存在的主题，返回新创建的主题名。
func EnsureTopics(admin TopicAdmin, topics ...string) ([]string, error) {
	partitions, err := admin.ReadPartitions()
	if err != nil {
		return nil, fmt.Errorf("无法读取 Kafka 分区信息: %w", err)
	}
	existing := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		existing[p.Topic] = struct{}{}
	}

	var toCreate []kafka.TopicConfig
	var created []string
	for _, name := range topics {
		if _, ok := existing[name]; ok {
			continue
		}
		existing[name] = struct{}{}
		toCreate = append(toCreate, kafka.TopicConfig{
			Topic:             name,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		created = append(created, name)
	}
	if len(toCreate) == 0 {
		return nil, nil
	}
	if err := admin.CreateTopics(toCreate...); err != nil {
		return nil, fmt.Errorf("自动创建 Kafka 主题失败: %w", err)
	}
	return created, nil
}

// Close 关闭 writer 和管理连接。
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Writer != nil {
		if err := c.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭 Kafka writer 失败: %w", err))
		}
	}
	if c.Conn != nil {
		if err := c.Conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭 Kafka 管理连接失败: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("关闭 Kafka 客户端时发生错误: %v", errs)
	}
	return nil
}

// HealthCheck 检查 Kafka 连接的健康状况。
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.Conn == nil {
		return fmt.Errorf("kafka 客户端未初始化，无法进行健康检查")
	}
	// 管理连接的超时跟随请求的 context。
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.Conn.SetDeadline(deadline); err != nil {
			return err
		}
		defer c.Conn.SetDeadline(time.Time{})
	}
	_, err := c.Conn.Controller()
	return err
}
