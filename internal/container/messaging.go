package container

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/shortener-go/internal/analytics"
	logstore "github.com/serroba/shortener-go/internal/analytics/store"
	"github.com/serroba/shortener-go/internal/messaging"
	"go.uber.org/zap"
)

const analyticsConsumerGroup = "analytics"

// PublisherGroupPackage provides the redis stream publisher.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: do.MustInvoke[*Redis](i).Client,
		}, messaging.NewZapLogger(logger.Named("watermill")))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the analytics consumers reading the redis streams.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        do.MustInvoke[*Redis](i).Client,
			ConsumerGroup: analyticsConsumerGroup,
		}, messaging.NewZapLogger(logger.Named("watermill")))
		if err != nil {
			return nil, err
		}

		return analytics.NewConsumerGroup(subscriber, logstore.NewLog(logger), logger), nil
	})
}
