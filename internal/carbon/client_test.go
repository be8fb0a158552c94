package carbon_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/serroba/shortener-go/internal/carbon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errRefused = errors.New("connection refused")

// collector is the server side of an accepted connection with a line reader
// already attached, so client writes never block on the test.
type collector struct {
	conn  net.Conn
	lines <-chan string
}

// pipeDialer hands out in-memory connections and can refuse the first attempts.
type pipeDialer struct {
	mu      sync.Mutex
	fails   int
	calls   int
	stalled bool
	conns   chan collector
}

func newPipeDialer(fails int) *pipeDialer {
	return &pipeDialer{
		fails: fails,
		conns: make(chan collector, 10),
	}
}

func (d *pipeDialer) DialContext(_ context.Context, _, _ string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if d.fails > 0 {
		d.fails--

		return nil, errRefused
	}

	client, server := net.Pipe()
	if d.stalled {
		// Nothing reads, so every client write blocks.
		d.conns <- collector{conn: server}
	} else {
		d.conns <- collector{conn: server, lines: readLines(server)}
	}

	return client, nil
}

func (d *pipeDialer) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls
}

func (d *pipeDialer) accept(t *testing.T) (net.Conn, <-chan string) {
	t.Helper()

	select {
	case accepted := <-d.conns:
		return accepted.conn, accepted.lines
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for connection")

		return nil, nil
	}
}

func readLines(conn net.Conn) <-chan string {
	lines := make(chan string, 100)

	go func() {
		defer close(lines)

		r := bufio.NewReader(conn)

		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}

			lines <- line
		}
	}()

	return lines
}

func nextLine(t *testing.T, lines <-chan string) string {
	t.Helper()

	select {
	case line, ok := <-lines:
		require.True(t, ok, "connection closed")

		return line
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for line")

		return ""
	}
}

func assertNoLine(t *testing.T, lines <-chan string) {
	t.Helper()

	select {
	case line, ok := <-lines:
		if ok {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(50 * time.Millisecond):
	}
}

func newClient(d *pipeDialer, opts ...carbon.Option) *carbon.Client {
	opts = append([]carbon.Option{
		carbon.WithDialer(d),
		carbon.WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(5 * time.Millisecond) }),
	}, opts...)

	return carbon.NewClient("carbon:2003", zap.NewNop(), opts...)
}

func waitForState(t *testing.T, c *carbon.Client, want carbon.State) {
	t.Helper()

	require.Eventually(t, func() bool { return c.State() == want }, time.Second, 5*time.Millisecond)
}

func waitForPending(t *testing.T, c *carbon.Client, want int) {
	t.Helper()

	require.Eventually(t, func() bool { return c.Pending() == want }, time.Second, 5*time.Millisecond)
}

func TestNewBackOff(t *testing.T) {
	b := carbon.NewBackOff(100*time.Millisecond, time.Second)

	assert.Equal(t, 100*time.Millisecond, b.InitialInterval)
	assert.Equal(t, time.Second, b.MaxInterval)
	assert.InDelta(t, 0.5, b.RandomizationFactor, 0)
	assert.Zero(t, b.MaxElapsedTime)

	for range 20 {
		next := b.NextBackOff()
		assert.Positive(t, next)
		assert.LessOrEqual(t, next, 1500*time.Millisecond)
	}
}

func TestSample_Line(t *testing.T) {
	assert.Equal(t, "foo 3 1394726782\n", carbon.Sample{Name: "foo", Value: 3, Timestamp: 1394726782}.Line())
	assert.Equal(t, "foo 1.5 10\n", carbon.Sample{Name: "foo", Value: 1.5, Timestamp: 10}.Line())
	assert.Equal(t, "foo -2 10\n", carbon.Sample{Name: "foo", Value: -2, Timestamp: 10}.Line())
}

func TestClient_Publish(t *testing.T) {
	t.Run("starts disconnected", func(t *testing.T) {
		c := newClient(newPipeDialer(0))

		assert.Equal(t, carbon.Disconnected, c.State())
		assert.Equal(t, "disconnected", c.State().String())
	})

	t.Run("writes immediately when connected", func(t *testing.T) {
		d := newPipeDialer(0)
		c := newClient(d)

		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		_, lines := d.accept(t)
		waitForState(t, c, carbon.Connected)

		c.Publish("foo", 3, 1394726782)

		assert.Equal(t, "foo 3 1394726782\n", nextLine(t, lines))
		waitForPending(t, c, 0)
	})

	t.Run("queues while disconnected and flushes in order on connect", func(t *testing.T) {
		d := newPipeDialer(0)
		c := newClient(d)

		c.Publish("a", 1, 100)
		c.Publish("b", 2, 101)
		c.Publish("c", 3, 102)

		assert.Equal(t, 3, c.Pending())

		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		_, lines := d.accept(t)

		assert.Equal(t, "a 1 100\n", nextLine(t, lines))
		assert.Equal(t, "b 2 101\n", nextLine(t, lines))
		assert.Equal(t, "c 3 102\n", nextLine(t, lines))

		waitForState(t, c, carbon.Connected)
		waitForPending(t, c, 0)

		c.Publish("d", 4, 103)
		assert.Equal(t, "d 4 103\n", nextLine(t, lines))
		assertNoLine(t, lines)
	})

	t.Run("keeps retrying until the collector accepts", func(t *testing.T) {
		d := newPipeDialer(3)
		c := newClient(d)

		c.Publish("early", 1, 100)

		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		_, lines := d.accept(t)

		assert.Equal(t, "early 1 100\n", nextLine(t, lines))
		assert.Equal(t, 4, d.Calls())
	})

	t.Run("reconnects after the collector goes away", func(t *testing.T) {
		d := newPipeDialer(0)
		c := newClient(d)

		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		first, lines := d.accept(t)
		waitForState(t, c, carbon.Connected)

		c.Publish("before", 1, 100)
		assert.Equal(t, "before 1 100\n", nextLine(t, lines))

		require.NoError(t, first.Close())

		// Published around the drop: either queued or its write fails, both keep it.
		c.Publish("during", 2, 101)

		_, lines = d.accept(t)

		assert.Equal(t, "during 2 101\n", nextLine(t, lines))

		waitForState(t, c, carbon.Connected)
		c.Publish("after", 3, 102)

		assert.Equal(t, "after 3 102\n", nextLine(t, lines))
		assertNoLine(t, lines)
	})

	t.Run("fills in missing timestamps", func(t *testing.T) {
		d := newPipeDialer(0)
		fixed := time.Unix(1394726782, 0)
		c := newClient(d, carbon.WithClock(func() time.Time { return fixed }))

		c.Publish("foo", 1, 0)

		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		_, lines := d.accept(t)

		assert.Equal(t, "foo 1 1394726782\n", nextLine(t, lines))
	})
}

func TestClient_StalledCollector(t *testing.T) {
	d := newPipeDialer(0)
	d.stalled = true
	c := newClient(d, carbon.WithWriteTimeout(2*time.Second))

	require.NoError(t, c.Start(context.Background()))

	d.accept(t)
	waitForState(t, c, carbon.Connected)

	start := time.Now()

	for i := range 100 {
		c.Publish("a", float64(i), 1)
	}

	assert.Less(t, time.Since(start), 100*time.Millisecond, "Publish waited on the network")
	assert.Equal(t, carbon.Connected, c.State())
	assert.Equal(t, 100, c.Pending())

	start = time.Now()
	require.NoError(t, c.Shutdown())

	assert.Less(t, time.Since(start), time.Second, "Shutdown waited for the write timeout")
	assert.Equal(t, 100, c.Pending())
}

func TestClient_Start(t *testing.T) {
	t.Run("refuses a second start", func(t *testing.T) {
		d := newPipeDialer(0)
		c := newClient(d)

		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		require.ErrorIs(t, c.Start(context.Background()), carbon.ErrStarted)

		d.accept(t)
		waitForState(t, c, carbon.Connected)
		assert.Equal(t, 1, d.Calls())
	})

	t.Run("is disconnected while waiting to retry", func(t *testing.T) {
		d := newPipeDialer(1000)
		c := carbon.NewClient("carbon:2003", zap.NewNop(),
			carbon.WithDialer(d),
			carbon.WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Second) }),
		)

		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		require.Eventually(t, func() bool { return d.Calls() == 1 }, time.Second, 5*time.Millisecond)
		waitForState(t, c, carbon.Disconnected)
		assert.Equal(t, 1, d.Calls())
	})

	t.Run("logs the connection once established", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		d := newPipeDialer(0)
		c := carbon.NewClient("carbon:2003", zap.New(core), carbon.WithDialer(d))

		require.NoError(t, c.Start(context.Background()))
		defer c.Shutdown()

		d.accept(t)

		require.Eventually(t, func() bool {
			return logs.FilterMessage("connected to carbon").Len() == 1
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, carbon.Connected, c.State())
	})
}

func TestClient_Shutdown(t *testing.T) {
	t.Run("closes the connection", func(t *testing.T) {
		d := newPipeDialer(0)
		c := newClient(d)

		require.NoError(t, c.Start(context.Background()))

		_, lines := d.accept(t)
		waitForState(t, c, carbon.Connected)

		require.NoError(t, c.Shutdown())

		assert.Equal(t, carbon.Disconnected, c.State())

		_, ok := <-lines
		assert.False(t, ok)
	})

	t.Run("stops retrying and keeps queued samples", func(t *testing.T) {
		d := newPipeDialer(1000)
		c := newClient(d)

		require.NoError(t, c.Start(context.Background()))

		c.Publish("foo", 1, 100)

		require.Eventually(t, func() bool { return d.Calls() > 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, c.Shutdown())

		assert.Equal(t, carbon.Disconnected, c.State())
		assert.Equal(t, 1, c.Pending())
	})

	t.Run("is a no-op before start", func(t *testing.T) {
		c := newClient(newPipeDialer(0))

		assert.NoError(t, c.Shutdown())
	})
}
