package relay

import "github.com/erdlab/collab/event"

// Metrics defines the interface for recording relay activity.
// All methods must be safe for concurrent use.
type Metrics interface {
	// IncrPublished increments counters for events accepted by Publish.
	IncrPublished(t event.Type, class event.Class)

	// IncrDelivered increments counters for events fanned out locally.
	IncrDelivered(t event.Type)

	// IncrBusError increments the count of failed bus publishes.
	IncrBusError()
}

// NoOpMetrics is a Metrics implementation that records nothing.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrPublished(event.Type, event.Class) {}
func (NoOpMetrics) IncrDelivered(event.Type)              {}
func (NoOpMetrics) IncrBusError()                         {}
