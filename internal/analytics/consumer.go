package analytics

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortener-go/internal/messaging"
	"go.uber.org/zap"
)

const (
	handlerTimeout = 5 * time.Second
	maxAttempts    = 5
)

// NewConsumerGroup subscribes store to both analytics topics.
func NewConsumerGroup(subscriber message.Subscriber, store Store, logger *zap.Logger) *messaging.ConsumerGroup {
	group := messaging.NewConsumerGroup(subscriber, logger)
	opts := []messaging.ConsumerOption{
		messaging.WithHandlerTimeout(handlerTimeout),
		messaging.WithMaxAttempts(maxAttempts),
	}

	group.Add(messaging.NewConsumer(subscriber, TopicURLShortened, store.SaveURLShortened, logger, opts...))
	group.Add(messaging.NewConsumer(subscriber, TopicURLResolved, store.SaveURLResolved, logger, opts...))

	return group
}
