// Package kafka publishes a run-completion announcement after the
// export stage finishes, so downstream consumers (a CDN purge job, the
// mobile backend's poller) can learn about a new bundle without
// polling the export directory themselves.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// RunNotification is the message body published once export writes a
// fresh latest_run.json: the project and run ID that finished, plus
// the bundle paths a consumer would need to fetch it.
type RunNotification struct {
	Project           string `json:"project"`
	RunID             string `json:"run_id"`
	GeneratedAt       string `json:"generated_at"`
	IndexPath         string `json:"index_path"`
	PayloadPath       string `json:"payload_path"`
	ImagePayloadPath  string `json:"image_payload_path,omitempty"`
}

// RunNotifier publishes RunNotification messages to a single Kafka topic.
type RunNotifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewRunNotifier creates a notifier for the configured brokers and
// topic. Callers should only construct one when KafkaBrokers is
// non-empty; the pipeline never blocks waiting on Kafka otherwise.
func NewRunNotifier(brokers []string, topic string, logger *slog.Logger) *RunNotifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &RunNotifier{writer: w, logger: logger}
}

// Notify publishes one run-completion message, keyed by project so a
// consumer that only cares about one project can filter at partition
// assignment time rather than decoding every message.
func (n *RunNotifier) Notify(ctx context.Context, msg RunNotification) error {
	kmsg, err := serializeNotification(msg)
	if err != nil {
		return fmt.Errorf("serialize run notification: %w", err)
	}
	if err := n.writer.WriteMessages(ctx, kmsg); err != nil {
		return fmt.Errorf("publish run notification: %w", err)
	}
	if n.logger != nil {
		n.logger.Info("published run notification", "project", msg.Project, "run_id", msg.RunID)
	}
	return nil
}

func (n *RunNotifier) Close() error {
	return n.writer.Close()
}

// serializeNotification marshals a RunNotification into a Kafka message,
// keyed by project so a consumer watching a single project can filter
// at partition assignment time rather than decoding every message.
func serializeNotification(msg RunNotification) (kafkago.Message, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(msg.Project),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(msg.RunID)},
		},
	}, nil
}
