// Package kafka publishes finalized forecast grids to a Kafka topic,
// one message per initialization time.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
	"github.com/couchcryptid/storm-forecast-grids/internal/projection"
)

// Publisher produces forecast-grid messages to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the grid topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// gridMessage is the per-init-time payload: one grid plus the shared
// coordinate and projection context consumers need to place it.
type gridMessage struct {
	Grid *domain.ForecastGrid `json:"grid"`

	MinLeadTimeSeconds int       `json:"min_lead_time_seconds"`
	MaxLeadTimeSeconds int       `json:"max_lead_time_seconds"`
	GridXCoords        []float64 `json:"grid_x_coords_metres"`
	GridYCoords        []float64 `json:"grid_y_coords_metres"`

	Projection  projection.Params `json:"projection"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// PublishSet serializes every grid in the set and publishes them in a single
// WriteMessages call.
func (p *Publisher) PublishSet(ctx context.Context, set *domain.GriddedForecastSet) error {
	if len(set.Grids) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(set.Grids))
	for i, grid := range set.Grids {
		msg, err := serializeGrid(set, grid)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish forecast grids: %w", err)
	}
	p.logger.Info("forecast grids published", "topic", p.writer.Topic, "grids", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeGrid marshals one grid into a Kafka message keyed by its
// initialization time.
func serializeGrid(set *domain.GriddedForecastSet, grid *domain.ForecastGrid) (kafkago.Message, error) {
	payload := gridMessage{
		Grid:               grid,
		MinLeadTimeSeconds: set.MinLeadTimeSeconds,
		MaxLeadTimeSeconds: set.MaxLeadTimeSeconds,
		GridXCoords:        set.GridXCoords,
		GridYCoords:        set.GridYCoords,
		Projection:         set.Projection,
		GeneratedAt:        set.GeneratedAt,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast grid: %w", err)
	}

	return kafkago.Message{
		Key:   []byte(grid.InitTime.UTC().Format(time.RFC3339)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "init_time", Value: []byte(grid.InitTime.UTC().Format(time.RFC3339))},
			{Key: "generated_at", Value: []byte(set.GeneratedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
