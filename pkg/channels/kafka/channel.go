// Package kafka wires watermill publishers and subscribers to a Kafka
// cluster.
package kafka

import (
	"errors"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

var (
	ErrNoBrokers       = errors.New("no kafka brokers configured")
	ErrNoConsumerGroup = errors.New("no kafka consumer group configured")
)

// Config carries the connection settings for one service. Each service joins
// its own consumer group, so every service sees the full lead event stream.
type Config struct {
	Brokers       []string
	ConsumerGroup string
}

func (c Config) validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}

	if c.ConsumerGroup == "" {
		return ErrNoConsumerGroup
	}

	return nil
}

// CreateChannel builds the publisher and subscriber pair for one service.
func CreateChannel(logger watermill.LoggerAdapter, config Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if err := config.validate(); err != nil {
		return nil, nil, err
	}

	publisher, err := newPublisher(config, logger)
	if err != nil {
		return nil, nil, err
	}

	subscriber, err := newSubscriber(config, logger)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

func newPublisher(config Config, logger watermill.LoggerAdapter) (*kafka.Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true

	return kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               config.Brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
			OTELEnabled:           true,
		},
		logger,
	)
}

func newSubscriber(config Config, logger watermill.LoggerAdapter) (*kafka.Subscriber, error) {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	// Timer and webhook events published during a consumer group rebalance
	// must not be skipped when the group first joins.
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               config.Brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
			ConsumerGroup:         config.ConsumerGroup,
			OTELEnabled:           true,
		},
		logger,
	)
}
