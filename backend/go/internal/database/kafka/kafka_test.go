package kafka

import (
	"AgentDeck/backend/go/internal/models"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	partitions []kafka.Partition
	created    []kafka.TopicConfig
	createErr  error
}

func (f *fakeAdmin) ReadPartitions(...string) ([]kafka.Partition, error) {
	return f.partitions, nil
}

func (f *fakeAdmin) CreateTopics(topics ...kafka.TopicConfig) error {
	f.created = append(f.created, topics...)
	return f.createErr
}

func TestEnsureTopics_CreatesOnlyMissing(t *testing.T) {
	admin := &fakeAdmin{partitions: []kafka.Partition{{Topic: "existing"}, {Topic: "existing", ID: 1}}}
	created, err := EnsureTopics(admin, "existing", "agentdeck_task_events", "agentdeck_task_events")
	require.NoError(t, err)
	assert.Equal(t, []string{"agentdeck_task_events"}, created)
	require.Len(t, admin.created, 1)
	assert.Equal(t, 1, admin.created[0].NumPartitions)

	admin = &fakeAdmin{partitions: []kafka.Partition{{Topic: "a"}}}
	created, err = EnsureTopics(admin, "a")
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, admin.created)
}

func TestEnsureTopics_CreateFailure(t *testing.T) {
	admin := &fakeAdmin{createErr: errors.New("not controller")}
	_, err := EnsureTopics(admin, "t")
	require.Error(t, err)
	assert.ErrorContains(t, err, "not controller")
}

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func (c *captureWriter) Close() error { return nil }

func TestLogPublisher_KeysByTaskID(t *testing.T) {
	w := &captureWriter{}
	p := NewLogPublisher(w)
	entry := &models.TaskLogEntry{
		TaskID:    "task-1",
		SessionID: "sess-1",
		Timestamp: time.Unix(0, 0).UTC(),
		Event:     models.EventTaskUpdate,
		Content:   models.TaskUpdateEvent{TaskID: "task-1", Status: models.TaskStatusPlanning},
	}
	require.NoError(t, p.LogTaskEvent(context.Background(), entry))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "task-1", string(w.msgs[0].Key))
	assert.Equal(t, models.EventTaskUpdate, string(w.msgs[0].Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "sess-1", decoded["session_id"])
	assert.Equal(t, "planning", decoded["content"].(map[string]interface{})["status"])

	w.err = errors.New("leader not available")
	assert.ErrorContains(t, p.LogTaskEvent(context.Background(), entry), "leader not available")
}

func TestHealthCheck_UninitializedClient(t *testing.T) {
	var c *Client
	assert.Error(t, c.HealthCheck(context.Background()))
	assert.Error(t, (&Client{}).HealthCheck(context.Background()))
	assert.NoError(t, c.Close())
}
