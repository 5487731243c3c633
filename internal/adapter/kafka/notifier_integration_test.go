//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/boogieLing/tsugie/internal/adapter/kafka"
)

const notifyTopic = "tsugie-run-notifications"

func TestRunNotifier_PublishesAndIsConsumable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.6.0", tckafka.WithClusterID("tsugie-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err)
	require.NoError(t, conn.CreateTopics(kafkago.TopicConfig{Topic: notifyTopic, NumPartitions: 1, ReplicationFactor: 1}))
	require.NoError(t, conn.Close())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := kafka.NewRunNotifier(brokers, notifyTopic, logger)
	t.Cleanup(func() { _ = notifier.Close() })

	msg := kafka.RunNotification{
		Project:     "hanabi",
		RunID:       "run-2026-07-29",
		GeneratedAt: "2026-07-29T12:00:00Z",
		IndexPath:   "export/hanabi/index.json",
		PayloadPath: "export/hanabi/payload.bin",
	}
	require.NoError(t, notifier.Notify(ctx, msg))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       notifyTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	received, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err)

	var got kafka.RunNotification
	require.NoError(t, json.Unmarshal(received.Value, &got))
	require.Equal(t, msg, got)
	require.Equal(t, "hanabi", string(received.Key))
}
