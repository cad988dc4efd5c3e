package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/esly-abro/JKhomes-sub000/pkg/channels/gochannel"
	"github.com/esly-abro/JKhomes-sub000/pkg/channels/kafka"
	"github.com/esly-abro/JKhomes-sub000/pkg/eventbus"
)

// NewEventBus creates the event bus for the given provider. The in-memory
// provider is for local development only; deployed services use kafka with
// the brokers passed from the service's --kafka-brokers flag.
func NewEventBus(provider, serviceName, kafkaBrokers string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, kafka.Config{
			Brokers:       splitBrokers(kafkaBrokers),
			ConsumerGroup: serviceName + ".consumers",
		})
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		panic("Unsupported event bus provider: " + provider)
	}
}

func splitBrokers(raw string) []string {
	var brokers []string

	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}
