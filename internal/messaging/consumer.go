package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler processes a single event.
type Handler[T any] func(ctx context.Context, event *T) error

// ConsumerOption configures a Consumer.
type ConsumerOption func(*consumerConfig)

type consumerConfig struct {
	handlerTimeout time.Duration
	maxAttempts    int
}

// WithHandlerTimeout bounds each handler call. Zero means no bound.
func WithHandlerTimeout(d time.Duration) ConsumerOption {
	return func(c *consumerConfig) { c.handlerTimeout = d }
}

// WithMaxAttempts acks a message once its handler failed n times. Zero
// redelivers forever.
func WithMaxAttempts(n int) ConsumerOption {
	return func(c *consumerConfig) { c.maxAttempts = n }
}

// Consumer decodes JSON messages of one topic into T. Undecodable payloads
// are acked and dropped, handler failures are nacked for redelivery until
// the attempt budget runs out.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger
	cfg        consumerConfig

	// failures counts handler errors per message UUID. Only the consume
	// goroutine touches it.
	failures map[string]int

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
	opts ...ConsumerOption,
) *Consumer[T] {
	c := &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
		failures:   make(map[string]int),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(&c.cfg)
	}

	return c
}

func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and consumes in the background until ctx ends or
// Shutdown is called.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		c.cancel()
		close(c.done)

		return err
	}

	go c.consume(ctx, msgs)

	return nil
}

func (c *Consumer[T]) consume(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer[T]) handle(ctx context.Context, msg *message.Message) {
	log := c.logger.With(zap.String("uuid", msg.UUID))

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		log.Error("dropping malformed event", zap.Error(err))
		msg.Ack()

		return
	}

	if err := c.call(ctx, &event); err != nil {
		c.failures[msg.UUID]++
		attempts := c.failures[msg.UUID]

		if c.cfg.maxAttempts > 0 && attempts >= c.cfg.maxAttempts {
			log.Error("giving up on event", zap.Int("attempts", attempts), zap.Error(err))
			delete(c.failures, msg.UUID)
			msg.Ack()

			return
		}

		log.Warn("failed to handle event", zap.Int("attempts", attempts), zap.Error(err))
		msg.Nack()

		return
	}

	delete(c.failures, msg.UUID)
	msg.Ack()

	log.Debug("processed event")
}

func (c *Consumer[T]) call(ctx context.Context, event *T) error {
	if c.cfg.handlerTimeout <= 0 {
		return c.handler(ctx, event)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.handlerTimeout)
	defer cancel()

	return c.handler(ctx, event)
}

// Shutdown stops consuming and waits for the in-flight message. It is safe
// to call more than once.
func (c *Consumer[T]) Shutdown() error {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
			<-c.done
		}
	})

	return nil
}
