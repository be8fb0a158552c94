package store

import (
	"context"

	"github.com/serroba/shortener-go/internal/analytics"
	"go.uber.org/zap"
)

// Log is an analytics.Store that only writes events to the logger.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a new logging analytics store.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) SaveURLShortened(_ context.Context, event *analytics.URLShortenedEvent) error {
	l.logger.Info("url shortened",
		zap.String("account", event.Account),
		zap.String("code", event.Code),
		zap.String("longUrl", event.LongURL),
		zap.String("userToken", event.UserToken),
		zap.Bool("created", event.Created),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}

func (l *Log) SaveURLResolved(_ context.Context, event *analytics.URLResolvedEvent) error {
	l.logger.Info("url resolved",
		zap.String("account", event.Account),
		zap.String("code", event.Code),
		zap.Time("occurredAt", event.OccurredAt),
		zap.String("referrer", event.Referrer),
	)

	return nil
}

// Compile-time check.
var _ analytics.Store = (*Log)(nil)
