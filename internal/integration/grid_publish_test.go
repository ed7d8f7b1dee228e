//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/storm-forecast-grids/internal/adapter/kafka"
	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/forecast"
	"github.com/couchcryptid/storm-forecast-grids/internal/geometry"
	"github.com/couchcryptid/storm-forecast-grids/internal/observability"
	"github.com/couchcryptid/storm-forecast-grids/internal/pipeline"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
)

const testGridTopic = "test-forecast-grids"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func testStorm(validTime time.Time) *domain.StormObject {
	polygon, err := geometry.PolygonFromVertices(
		[]float64{264.95, 265.05, 265.05, 264.95},
		[]float64{34.95, 34.95, 35.05, 35.05},
	)
	if err != nil {
		panic(err)
	}
	key := domain.NewBufferKey(math.NaN(), 0)
	return &domain.StormObject{
		FullID:    "storm-1",
		ValidTime: validTime,
		Buffers: map[domain.BufferKey]*domain.DistanceBuffer{
			key: {
				MinDistanceMetres:   math.NaN(),
				MaxDistanceMetres:   0,
				LatLngPolygon:       polygon,
				ForecastProbability: 0.5,
			},
		},
	}
}

// TestGridPublishEndToEnd builds a forecast set with the real engine and
// round-trips it through Kafka: one message per initialization time, keyed
// by init time, with NaN cells intact.
func TestGridPublishEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testGridTopic)

	proj, err := projection.New(projection.Params{
		Family:           projection.AzimuthalEquidistant,
		CentralLatitude:  35,
		CentralLongitude: 265,
	})
	require.NoError(t, err)

	engine, err := pipeline.New(proj, pipeline.Options{
		MaxLeadTime:        10 * time.Minute,
		LeadTimeResolution: 5 * time.Minute,
		XSpacingMetres:     1000,
		YSpacingMetres:     1000,
		ProbRadiusMetres:   10000,
		Smoothing:          forecast.SmoothingNone,
	}, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)

	initTimes := []time.Time{
		time.Date(2024, 5, 20, 21, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 20, 21, 5, 0, 0, time.UTC),
	}
	storms := []*domain.StormObject{testStorm(initTimes[0]), testStorm(initTimes[1])}

	set, err := engine.Run(ctx, storms)
	require.NoError(t, err)
	require.Len(t, set.Grids, 2)

	publisher := kafkaadapter.NewPublisher([]string{broker}, testGridTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishSet(ctx, set))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testGridTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	type gridPayload struct {
		Grid struct {
			InitTime      time.Time     `json:"init_time"`
			Probabilities domain.Matrix `json:"probabilities"`
		} `json:"grid"`
		GridXCoords []float64 `json:"grid_x_coords_metres"`
		GridYCoords []float64 `json:"grid_y_coords_metres"`
	}

	seen := make(map[string]gridPayload)
	for len(seen) < 2 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from grid topic")

		var payload gridPayload
		require.NoError(t, json.Unmarshal(msg.Value, &payload))
		seen[string(msg.Key)] = payload
	}

	for i, initTime := range initTimes {
		key := initTime.Format(time.RFC3339)
		payload, ok := seen[key]
		require.True(t, ok, "missing message for init time %s", key)

		assert.Equal(t, initTime, payload.Grid.InitTime, "grid %d", i)
		assert.Equal(t, set.GridXCoords, payload.GridXCoords)
		assert.Equal(t, set.GridYCoords, payload.GridYCoords)

		covered := 0
		for _, row := range payload.Grid.Probabilities {
			for _, v := range row {
				if !math.IsNaN(v) {
					covered++
					assert.GreaterOrEqual(t, v, 0.0)
					assert.LessOrEqual(t, v, 1.0)
				}
			}
		}
		assert.Positive(t, covered, "grid %d has covered cells", i)
	}
}
