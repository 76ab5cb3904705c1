package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/atelierhq/flowbuilder/pkg/channels/gochannel"
	"github.com/atelierhq/flowbuilder/pkg/channels/kafka"
	"github.com/atelierhq/flowbuilder/pkg/eventbus"
)

// NewEventBus creates an event bus on the named provider. "kafka" needs
// KAFKA_BROKERS set; "gochannel" keeps everything in-process, which is
// only useful when the API and worker share a binary.
func NewEventBus(provider, serviceName string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName)
		if err != nil {
			return nil, fmt.Errorf("creating kafka channel: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			return nil, fmt.Errorf("creating gochannel: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider %q", provider)
	}
}
