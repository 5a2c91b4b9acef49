package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/networkpro/user-service/internal/application/service"
	"github.com/networkpro/user-service/internal/config"
	"github.com/networkpro/user-service/pkg/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducerClient struct {
	ProfileEventsWriter messageWriter
	logger              logger.Logger
}

func NewKafkaProducerClient(cfg config.Config, log logger.Logger) (*KafkaProducerClient, error) {
	brokers := cfg.Kafka.Brokers
	if len(brokers) == 0 {
		return nil, fmt.Errorf("config Kafka brokers not found")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Kafka.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	log.Info("Initialize Kafka Producer successfully.", zap.String("topic", cfg.Kafka.Topic))
	return &KafkaProducerClient{ProfileEventsWriter: writer, logger: log}, nil
}

// PublishProfileEvent keys messages by profile id so one profile's events stay
// ordered within a partition.
func (c *KafkaProducerClient) PublishProfileEvent(ctx context.Context, evt service.ProfileEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal profile event: %w", err)
	}

	err = c.ProfileEventsWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.ProfileID, 10)),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to write profile event: %w", err)
	}
	return nil
}

func (c *KafkaProducerClient) Close() {
	if c.ProfileEventsWriter != nil {
		if err := c.ProfileEventsWriter.Close(); err != nil {
			c.logger.Error("Failed to close Kafka producer", err)
			return
		}
	}
	c.logger.Info("Closed Kafka Producer")
}

// DecodeProfileEvent parses a message value written by PublishProfileEvent.
func DecodeProfileEvent(value []byte) (service.ProfileEvent, error) {
	var evt service.ProfileEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return service.ProfileEvent{}, fmt.Errorf("failed to unmarshal profile event: %w", err)
	}
	if evt.EventType == "" {
		return service.ProfileEvent{}, fmt.Errorf("profile event has no event_type")
	}
	return evt, nil
}
