package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SaveURLShortened(ctx context.Context, event *URLShortenedEvent) error
	SaveURLResolved(ctx context.Context, event *URLResolvedEvent) error
}
