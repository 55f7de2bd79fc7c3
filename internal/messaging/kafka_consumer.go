package messaging

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StationEventHandler consumes station-completion, fault and delivery
// signals emitted by the hardware collaborator. Signals are fire-and-forget;
// handler errors are logged and the stream continues.
type StationEventHandler interface {
	HandleStationEvent(ctx context.Context, event *models.StationEvent) error
}

type StationConsumer interface {
	ConsumeStationEvents(ctx context.Context, handler StationEventHandler) error
	Close() error
}

type kafkaConsumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewStationConsumer(brokers []string, topic, groupID string, logger *zap.Logger) StationConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})

	return &kafkaConsumer{
		reader: reader,
		logger: logger,
	}
}

func (c *kafkaConsumer) ConsumeStationEvents(ctx context.Context, handler StationEventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("station consumer stopping", zap.Error(err))
				return nil
			}
			return err
		}

		var event models.StationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("failed to unmarshal station event",
				zap.Error(err),
				zap.ByteString("raw_value", msg.Value),
			)
			continue
		}

		c.logger.Info("received station event",
			zap.String("type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.String("station_group", event.StationGroup),
		)

		if err := handler.HandleStationEvent(ctx, &event); err != nil {
			c.logger.Error("failed to handle station event",
				zap.Error(err),
				zap.String("type", event.Type),
				zap.String("order_id", event.OrderID),
			)
		}
	}
}

func (c *kafkaConsumer) Close() error {
	return c.reader.Close()
}
