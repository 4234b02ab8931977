package logger

import (
	"AgentDeck/backend/go/internal/models"
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesStructuredJSON(t *testing.T) {
	Init(logrus.DebugLevel)
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	base := New("svc", "", "")
	base.WithTrace("task-1").
		WithError(models.ErrorInfo{Message: "boom", Type: "test"}).
		WithPayload(map[string]interface{}{"agents": 3}).
		Error("task failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "task failed", line["message"])
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "svc", line["service_name"])
	assert.Equal(t, "task-1", line["trace_id"])
	assert.Contains(t, line, "timestamp")
	assert.Equal(t, "boom", line["error"].(map[string]interface{})["message"])
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	Init(logrus.InfoLevel)
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	base := New("svc", "root", "")
	_ = base.WithTrace("child")
	base.Info("parent")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "root", line["trace_id"])
	assert.NotContains(t, line, "payload")
}
