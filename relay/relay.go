package relay

import (
	"context"
	"fmt"

	"github.com/erdlab/collab/bus"
	"github.com/erdlab/collab/event"
	"github.com/erdlab/collab/logger"
)

// Option applies a configuration setting to a relay during initialization.
type Option func(*Config)

// Config holds the relay's collaborators.
type Config struct {
	// Bus carries replicated events between instances. Nil means
	// single-instance mode: replicated events are delivered locally only.
	Bus bus.Bus

	Logger  logger.Logger
	Metrics Metrics
}

// WithBus sets the durable bus used for replicated events.
func WithBus(b bus.Bus) Option {
	return func(cfg *Config) { cfg.Bus = b }
}

// WithLogger sets the logger used by the relay.
func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) {
		if l != nil {
			cfg.Logger = l
		}
	}
}

// WithMetrics sets the metrics sink used by the relay.
func WithMetrics(m Metrics) Option {
	return func(cfg *Config) {
		if m != nil {
			cfg.Metrics = m
		}
	}
}

type relay struct {
	broadcaster Broadcaster
	config      Config
	logger      logger.Logger
	metrics     Metrics
}

// New creates a Relay fanning out through b.
func New(b Broadcaster, opts ...Option) Relay {
	config := Config{}
	for _, opt := range opts {
		opt(&config)
	}

	if config.Logger == nil {
		config.Logger = &logger.NoOpLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = NoOpMetrics{}
	}

	return &relay{
		broadcaster: b,
		config:      config,
		logger:      config.Logger.WithComponent("relay"),
		metrics:     config.Metrics,
	}
}

func (r *relay) Publish(ctx context.Context, e event.Event) error {
	class := event.ClassOf(e.Type())
	if class == event.ClassUnknown {
		r.logger.Errorw("refusing to route unknown event type", "type", e.Type())
		return fmt.Errorf("%w: %q", ErrUnroutableEvent, e.Type())
	}

	payload, err := event.Marshal(e)
	if err != nil {
		return err
	}

	r.metrics.IncrPublished(e.Type(), class)

	switch class {
	case event.ClassReplicated:
		if r.config.Bus == nil {
			r.deliver(e, payload)
			return nil
		}
		// Local delivery happens when this instance's own subscription
		// consumes the message, so every instance, including the origin,
		// delivers through the same path exactly once.
		if err := r.config.Bus.Publish(ctx, string(e.Diagram()), payload); err != nil {
			// The mutation is already durable; notification must not fail
			// it. Fall back to local-only delivery so same-instance
			// viewers still converge.
			r.metrics.IncrBusError()
			r.logger.Errorw("bus publish failed, delivering locally only",
				"type", e.Type(), "diagram", e.Diagram(), "error", err)
			r.deliver(e, payload)
		}
		return nil

	case event.ClassLocal, event.ClassTracked, event.ClassVolatile:
		r.deliver(e, payload)
		return nil

	default:
		r.logger.Errorw("refusing to route unknown delivery class", "type", e.Type(), "class", class)
		return fmt.Errorf("%w: %q", ErrUnroutableEvent, e.Type())
	}
}

// deliver is the local fan-out primitive shared by every delivery class.
func (r *relay) deliver(e event.Event, payload []byte) {
	r.broadcaster.Broadcast(e.Diagram(), payload)
	r.metrics.IncrDelivered(e.Type())
	r.logger.Debugw("delivered event", "type", e.Type(), "diagram", e.Diagram())
}

func (r *relay) Run(ctx context.Context) error {
	if r.config.Bus == nil {
		return nil
	}

	return r.config.Bus.Subscribe(ctx, func(ctx context.Context, key string, payload []byte) {
		e, err := event.Unmarshal(payload)
		if err != nil {
			// A malformed bus message is dropped; the durable state it
			// announced is still served on the next initial load.
			r.logger.Warnw("dropping undecodable bus message", "key", key, "error", err)
			return
		}
		r.deliver(e, payload)
	})
}
