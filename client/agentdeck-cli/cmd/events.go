package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/cobra"
)

var (
	kafkaBrokers []string
	kafkaTopic   string
	kafkaGroup   string
	taskFilter   string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail the task events the server mirrors to Kafka",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  kafkaBrokers,
			GroupID:  kafkaGroup,
			Topic:    kafkaTopic,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		})
		defer reader.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read from kafka: %w", err)
			}
			if taskFilter != "" && string(msg.Key) != taskFilter {
				continue
			}
			if err := printMirroredEvent(out, msg.Value); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipping message at offset %d: %v\n", msg.Offset, err)
			}
		}
	},
}

func init() {
	eventsCmd.Flags().StringSliceVar(&kafkaBrokers, "brokers", []string{"localhost:9092"}, "Kafka brokers")
	eventsCmd.Flags().StringVar(&kafkaTopic, "topic", "agentdeck_task_events", "topic the server mirrors events to")
	eventsCmd.Flags().StringVar(&kafkaGroup, "group", "agentdeck-cli", "consumer group id")
	eventsCmd.Flags().StringVar(&taskFilter, "task", "", "only show events of this task id")
	rootCmd.AddCommand(eventsCmd)
}

type mirroredEvent struct {
	TaskID    string          `json:"task_id"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	Event     string          `json:"event"`
	Content   json.RawMessage `json:"content"`
}

func printMirroredEvent(w io.Writer, value []byte) error {
	var e mirroredEvent
	if err := json.Unmarshal(value, &e); err != nil {
		return err
	}
	if e.Event == "" {
		return errors.New("missing event name")
	}
	var content struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		Progress *int   `json:"progress"`
		Error    string `json:"error"`
	}
	_ = json.Unmarshal(e.Content, &content)
	detail := content.Message
	if content.Error != "" {
		detail = content.Error
	}
	detail, _, _ = strings.Cut(detail, "\n")
	if content.Progress != nil {
		detail = fmt.Sprintf("%d%% %s", *content.Progress, detail)
	}
	_, err := fmt.Fprintf(w, "%s %s %-14s %s\n", e.Timestamp.Format(time.RFC3339), e.TaskID, e.Event, strings.TrimSpace(detail))
	return err
}
