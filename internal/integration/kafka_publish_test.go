//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/sounding-skewt/internal/adapter/filesource"
	"github.com/couchcryptid/sounding-skewt/internal/adapter/kafka"
	"github.com/couchcryptid/sounding-skewt/internal/config"
	"github.com/couchcryptid/sounding-skewt/internal/diagram"
	"github.com/couchcryptid/sounding-skewt/internal/observability"
	"github.com/couchcryptid/sounding-skewt/internal/pipeline"
)

const testSinkTopic = "test-sounding-analyses"

const testFeed = `# ZONDE upper-air observation
202608260000 47102 1000.0   111.0  25.0  20.0 180  5.0 1
202608260000 47102  850.0  1457.0  15.0  12.0 200  8.0 1
202608260000 47102  700.0  3012.0   5.0   2.0 220 12.0 1
202608260000 47102  500.0  5574.0 -18.0 -22.0 240 20.0 1
202608260000 47102  300.0  9164.0 -45.0 -50.0 250 30.0 1
`

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker address")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic pre-creates a topic so the first produce does not race
// auto-creation.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "find controller")

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}), "create topic")
}

// TestPipelinePublishesToKafka runs the full cycle against real Kafka: a
// file-backed feed is parsed, analyzed, and the diagram payload lands on
// the sink topic with the expected key and headers.
func TestPipelinePublishesToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	feedPath := filepath.Join(t.TempDir(), "sounding.txt")
	require.NoError(t, os.WriteFile(feedPath, []byte(testFeed), 0o644))

	fetcher := filesource.New(feedPath, "47102")
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(fetcher, writer, discardLogger(), metrics,
		clockwork.NewRealClock(), time.Hour, "Seoul/Osan")

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)

	assert.Equal(t, "47102|2026-08-26T00:00:00Z", string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "47102", headers["station"])
	_, err = time.Parse(time.RFC3339, headers["observed_at"])
	assert.NoError(t, err, "observed_at should be valid RFC3339")

	var payload diagram.Data
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, "47102", payload.Station)
	assert.Equal(t, "Seoul/Osan", payload.StationName)
	assert.Len(t, payload.Pressure, len(payload.Temperature))
	assert.GreaterOrEqual(t, len(payload.Pressure), 5)
	require.NotNil(t, payload.CAPE, "unstable profile should carry CAPE")
	assert.Positive(t, *payload.CAPE)
	require.NotNil(t, payload.CIN)
	assert.LessOrEqual(t, *payload.CIN, 0.0)

	// Readiness flips once the first analysis lands.
	assert.NoError(t, p.CheckReadiness(ctx))
}
