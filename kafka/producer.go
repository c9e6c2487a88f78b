package kafka

import (
	"context"
	"encoding/json"

	"github.com/omaree-johnson/myumrahesim-sub002/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// SendConversionEvent publishes a cart.converted event keyed by session token.
func (p *Producer) SendConversionEvent(ctx context.Context, event models.ConversionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Token),
		Value: data,
	}

	err = p.writer.WriteMessages(ctx, msg)
	if err != nil {
		p.logger.Error("failed to send Kafka message",
			zap.String("topic", p.topic),
			zap.String("token", event.Token),
			zap.Error(err),
		)
	}
	return err
}

func (p *Producer) Close() {
	_ = p.writer.Close()
}
