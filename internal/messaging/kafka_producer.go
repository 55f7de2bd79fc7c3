package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/segmentio/kafka-go"
)

// EventProducer publishes the service's outbound events: stock changes for
// the dashboard feed, order lifecycle updates, and auto-order requests for
// the procurement collaborator.
type EventProducer interface {
	PublishStockEvent(ctx context.Context, event *models.StockEvent) error
	PublishOrderEvent(ctx context.Context, event *models.OrderStatusEvent) error
	PublishAutoOrderEvent(ctx context.Context, event *models.AutoOrderEvent) error
	Close() error
}

type kafkaProducer struct {
	stockWriter *kafka.Writer
	orderWriter *kafka.Writer
}

func NewKafkaProducer(brokers []string, stockTopic, orderTopic string) EventProducer {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			Compression:  kafka.Snappy,
		}
	}

	return &kafkaProducer{
		stockWriter: newWriter(stockTopic),
		orderWriter: newWriter(orderTopic),
	}
}

func (p *kafkaProducer) publish(ctx context.Context, writer *kafka.Writer, key, eventType string, payload interface{}, ts time.Time) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  ts,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write %s event to kafka: %w", eventType, err)
	}

	return nil
}

func (p *kafkaProducer) PublishStockEvent(ctx context.Context, event *models.StockEvent) error {
	return p.publish(ctx, p.stockWriter, event.IngredientID, event.Type, event, event.Timestamp)
}

func (p *kafkaProducer) PublishOrderEvent(ctx context.Context, event *models.OrderStatusEvent) error {
	return p.publish(ctx, p.orderWriter, event.OrderID, event.Type, event, event.Timestamp)
}

func (p *kafkaProducer) PublishAutoOrderEvent(ctx context.Context, event *models.AutoOrderEvent) error {
	return p.publish(ctx, p.stockWriter, event.IngredientID, event.Type, event, event.Timestamp)
}

func (p *kafkaProducer) Close() error {
	if err := p.stockWriter.Close(); err != nil {
		return err
	}
	return p.orderWriter.Close()
}
