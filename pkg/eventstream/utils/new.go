// Package eventstreamutils provides helpers for constructing eventstream
// publishers from configuration.
package eventstreamutils

import (
	"fmt"

	"github.com/mediguideco/mediguide/pkg/eventstream"
	"github.com/mediguideco/mediguide/pkg/eventstream/kafka"
	"github.com/mediguideco/mediguide/pkg/eventstream/nop"
)

// NewPublisherOpts are the options for constructing a publisher.
type NewPublisherOpts struct {
	// ProviderType selects the backend: "nop" or "kafka".
	ProviderType string

	// Brokers is a comma-separated broker list for the kafka provider.
	Brokers string

	// Topic is the topic for the kafka provider.
	Topic string
}

// NewPublisher constructs a publisher for the given provider.
func NewPublisher(o NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{
			Brokers: o.Brokers,
			Topic:   o.Topic,
		})
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}
