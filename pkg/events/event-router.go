package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/sevasetu/pkg/helpers"
)

// TopicAgent is the default topic loop events are published on.
const TopicAgent = "agent"

// EventRouter owns an in-process pub/sub and a watermill router dispatching events to handlers.
type EventRouter struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
}

type EventRouterOption func(*EventRouter)

func WithLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

// WithVerbose routes watermill's own logging through zerolog.
func WithVerbose(verbose bool) EventRouterOption {
	return func(r *EventRouter) {
		if verbose {
			r.logger = helpers.NewWatermill(log.Logger)
		}
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
	}
	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router
	return ret, nil
}

// Sink returns an EventSink publishing onto the given topic of this router.
func (e *EventRouter) Sink(topic string) EventSink {
	return NewWatermillSink(e.Publisher, topic)
}

// AddHandler registers a handler receiving decoded events from a topic.
func (e *EventRouter) AddHandler(name string, topic string, f func(Event) error) {
	e.router.AddNoPublisherHandler(name, topic, e.Subscriber, func(msg *message.Message) error {
		ev, err := NewEventFromJson(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable event")
			return nil
		}
		return f(ev)
	})
}

// Run blocks until the context is cancelled or the router is closed.
func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

// Running is closed once the router handlers are subscribed.
func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) Close() error {
	if err := e.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close pubsub")
	}
	if err := e.router.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close router")
		return err
	}
	return nil
}

// NewLoggingHandler logs every event at debug level, errors at warn.
func NewLoggingHandler(logger zerolog.Logger) func(Event) error {
	return func(ev Event) error {
		lvl := zerolog.DebugLevel
		if ev.Type == EventTypeError {
			lvl = zerolog.WarnLevel
		}
		e := logger.WithLevel(lvl).
			Str("event_type", string(ev.Type)).
			Str("conversation_id", ev.ConversationID).
			Int("iteration", ev.Iteration)
		if ev.Tool != "" {
			e = e.Str("tool", ev.Tool).Str("call_id", ev.CallID)
		}
		if ev.Error != "" {
			e = e.Str("error", ev.Error)
		}
		e.Msg("agent event")
		return nil
	}
}
