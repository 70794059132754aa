// Package ingress bridges external domain-event publishers into
// EventManager.CreateEvent over an in-process message bus. It is grounded
// on the teacher's AMQP router (internal/handler/amqp/router.go): the same
// watermill.Router + slog logger + NoPublisherHandler shape, but backed by
// watermill's in-memory gochannel pub/sub instead of an AMQP broker, since
// cluster-wide fan-out across nodes is explicitly out of scope here — every
// instance of this engine owns its own connections and its own queue.
package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/notifyhub/sse-engine/internal/domain/event"
	"github.com/notifyhub/sse-engine/internal/eventmanager"
)

// Topic is the single internal topic ingress publishes domain-event
// envelopes to and subscribes from.
const Topic = "sse.events"

// Envelope is the wire shape an external publisher (another service in the
// same process, a CLI, a test) sends to create an event through the bus
// rather than calling CreateEvent directly.
type Envelope struct {
	EventType          string          `json:"event_type"`
	TargetUserID       int64           `json:"target_userid"`
	Priority           string          `json:"priority"`
	ExpireAfterMinutes *int            `json:"expire_after_minutes,omitempty"`
	Payload            json.RawMessage `json:"payload"`
}

// Bus owns the in-process pub/sub backend, the router, and the handler
// that decodes envelopes and hands them to the EventManager.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger *slog.Logger
}

// NewBus constructs the in-process bus and its router. Call Run to start
// consuming and Publish (or PublishEnvelope) to feed it.
func NewBus(logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wmLogger := watermill.NewSlogLogger(logger)

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(256),
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("ingress: new router: %w", err)
	}

	return &Bus{pubsub: pubsub, router: router, logger: logger}, nil
}

// BindManager wires the bus's single consumer handler to mgr/reg and adds
// it to the router. Call before Run.
func (b *Bus) BindManager(mgr *eventmanager.Manager, reg *event.Registry) error {
	b.router.AddNoPublisherHandler(
		"sse_ingress_executor",
		Topic,
		b.pubsub,
		b.handler(mgr, reg),
	)
	return nil
}

// Run starts the router; it blocks until ctx is cancelled or Close is
// called, mirroring the teacher's "go router.Run(...)" lifecycle hook
// pattern, except the caller here owns the goroutine.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Close shuts down the router and the underlying pub/sub.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}

// Publish encodes env and publishes it onto the internal topic.
func (b *Bus) Publish(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("ingress: marshal envelope: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	return b.pubsub.Publish(Topic, msg)
}

// handler decodes one message into an Envelope and calls CreateEvent,
// recovering from panics the same way the teacher's Bind[T] does so one bad
// message can never take the consumer down.
func (b *Bus) handler(mgr *eventmanager.Manager, reg *event.Registry) message.NoPublishHandlerFunc {
	return func(msg *message.Message) (err error) {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("ingress: panic recovered", "err", r, "stack", string(debug.Stack()), "msg_id", msg.UUID)
				err = nil
			}
		}()

		var env Envelope
		if decodeErr := json.Unmarshal(msg.Payload, &env); decodeErr != nil {
			b.logger.Error("ingress: envelope decode failed", "msg_id", msg.UUID, "error", decodeErr)
			return nil // ack: a poison message is never retried
		}

		desc, ok := reg.Lookup(env.EventType)
		if !ok {
			b.logger.Warn("ingress: unknown event type, dropping", "event_type", env.EventType, "msg_id", msg.UUID)
			return nil
		}

		payload := desc.NewPayload()
		if len(env.Payload) > 0 {
			if decodeErr := json.Unmarshal(env.Payload, payload); decodeErr != nil {
				b.logger.Error("ingress: payload decode failed", "event_type", env.EventType, "msg_id", msg.UUID, "error", decodeErr)
				return nil
			}
		}

		var expireAfter *time.Duration
		if env.ExpireAfterMinutes != nil {
			d := time.Duration(*env.ExpireAfterMinutes) * time.Minute
			expireAfter = &d
		}

		_, createErr := mgr.CreateEvent(msg.Context(), env.EventType, env.TargetUserID,
			event.ParsePriority(env.Priority), expireAfter, payload)
		if createErr != nil {
			b.logger.Error("ingress: create_event failed", "event_type", env.EventType, "msg_id", msg.UUID, "error", createErr)
		}
		return nil
	}
}
