package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/shortener-go/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeRunnable appends its lifecycle calls to a shared journal.
type fakeRunnable struct {
	name        string
	journal     *[]string
	startErr    error
	shutdownErr error
}

func (f *fakeRunnable) Start(context.Context) error {
	*f.journal = append(*f.journal, "start "+f.name)

	return f.startErr
}

func (f *fakeRunnable) Shutdown() error {
	*f.journal = append(*f.journal, "stop "+f.name)

	return f.shutdownErr
}

func (f *fakeRunnable) Topic() string {
	return f.name
}

func TestConsumerGroup(t *testing.T) {
	t.Run("starts in order and stops in reverse", func(t *testing.T) {
		var journal []string

		sub := newFakeSubscriber()
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		group.Add(&fakeRunnable{name: "url.shortened", journal: &journal})
		group.Add(&fakeRunnable{name: "url.resolved", journal: &journal})

		require.NoError(t, group.Start(context.Background()))
		require.NoError(t, group.Shutdown())

		assert.Equal(t, 2, group.Len())
		assert.Equal(t, []string{
			"start url.shortened", "start url.resolved",
			"stop url.resolved", "stop url.shortened",
		}, journal)
		assert.True(t, sub.closed)
	})

	t.Run("rolls back started consumers on failure", func(t *testing.T) {
		var journal []string

		group := messaging.NewConsumerGroup(newFakeSubscriber(), zap.NewNop())
		group.Add(&fakeRunnable{name: "url.shortened", journal: &journal})
		group.Add(&fakeRunnable{name: "url.resolved", journal: &journal, startErr: errors.New("busy group")})

		err := group.Start(context.Background())

		require.ErrorContains(t, err, "busy group")
		assert.Equal(t, []string{"start url.shortened", "start url.resolved", "stop url.shortened"}, journal)
	})

	t.Run("stops every consumer and joins errors", func(t *testing.T) {
		var journal []string

		group := messaging.NewConsumerGroup(newFakeSubscriber(), zap.NewNop())
		group.Add(&fakeRunnable{name: "a", journal: &journal, shutdownErr: errors.New("shutdown error 1")})
		group.Add(&fakeRunnable{name: "b", journal: &journal, shutdownErr: errors.New("shutdown error 2")})

		err := group.Shutdown()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "shutdown error 1")
		assert.Contains(t, err.Error(), "shutdown error 2")
		assert.Equal(t, []string{"stop b", "stop a"}, journal)
	})

	t.Run("logs the consumed topics", func(t *testing.T) {
		var journal []string

		core, logs := observer.New(zapcore.InfoLevel)
		group := messaging.NewConsumerGroup(newFakeSubscriber(), zap.New(core))
		group.Add(&fakeRunnable{name: "url.resolved", journal: &journal})

		require.NoError(t, group.Start(context.Background()))

		started := logs.FilterMessage("consumer group started").All()
		require.Len(t, started, 1)
		assert.Equal(t, []any{"url.resolved"}, started[0].ContextMap()["topics"])
	})
}
