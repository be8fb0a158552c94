// Package carbon publishes metric samples to a Graphite/Carbon collector over
// a long-lived TCP connection using the plaintext line protocol.
//
// Samples are queued in memory and written in order whenever a connection is
// available. A lost connection is re-established in the background with an
// exponential backoff that never gives up; nothing queued is dropped because
// the collector was unreachable.
package carbon

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// State is the connection state of a Client.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Sample is a single metric value.
type Sample struct {
	Name      string
	Value     float64
	Timestamp int64
}

// Line renders the sample in the plaintext protocol.
func (s Sample) Line() string {
	return s.Name + " " + strconv.FormatFloat(s.Value, 'f', -1, 64) + " " + strconv.FormatInt(s.Timestamp, 10) + "\n"
}

// Dialer opens the transport. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the default TCP dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithBackOff sets the factory for the reconnect policy. A fresh policy is
// created for every reconnect cycle.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = factory }
}

// WithWriteTimeout bounds each write to the collector.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Client) { c.writeTimeout = d }
}

// WithClock overrides the time source used for samples without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// ErrStarted is returned by Start when the client is already running.
var ErrStarted = errors.New("carbon client already started")

// DefaultBackOff retries from 500ms up to 30s between attempts, forever.
func DefaultBackOff() backoff.BackOff {
	return NewBackOff(500*time.Millisecond, 30*time.Second)
}

// NewBackOff is DefaultBackOff with the first and longest delay replaced.
func NewBackOff(initial, longest time.Duration) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = longest
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

// Client is a reconnecting Carbon publisher. It is safe for concurrent use.
// Publish only touches the in-memory queue; a single writer goroutine owns
// the connection.
type Client struct {
	addr         string
	dialer       Dialer
	newBackOff   func() backoff.BackOff
	writeTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger

	mu     sync.Mutex
	state  State
	conn   net.Conn
	queue  []Sample
	cancel context.CancelFunc
	done   chan struct{}

	// wake is signalled, never blocking, when samples are queued.
	wake chan struct{}
}

// NewClient creates a Client for the collector at addr. Call Start to connect.
func NewClient(addr string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		addr:         addr,
		dialer:       &net.Dialer{Timeout: 5 * time.Second},
		newBackOff:   DefaultBackOff,
		writeTimeout: 5 * time.Second,
		now:          time.Now,
		logger:       logger,
		state:        Disconnected,
		wake:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start launches the connection loop and returns immediately. A client can
// be started once.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return ErrStarted
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go c.run(ctx, c.done)

	return nil
}

// Shutdown stops reconnecting and closes the connection, interrupting a
// write in progress. Queued samples that were not written are kept and
// reported by Pending.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	// Cancel before reading conn: connect refuses to publish a connection
	// once ctx is done, so no connection can appear after this read.
	cancel()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.release(conn)
	}

	<-done

	return nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Pending returns the number of samples waiting to be written.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue)
}

// Publish queues a sample for the writer and returns without touching the
// network. A zero timestamp is replaced by the current unix time.
func (c *Client) Publish(name string, value float64, timestamp int64) {
	if timestamp == 0 {
		timestamp = c.now().Unix()
	}

	c.mu.Lock()
	c.queue = append(c.queue, Sample{Name: name, Value: value, Timestamp: timestamp})
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			// Only cancellation ends the retry loop.
			return
		}

		c.serve(ctx, conn)
		c.release(conn)

		if ctx.Err() != nil {
			return
		}

		c.logger.Warn("carbon connection lost, reconnecting", zap.String("addr", c.addr))
	}
}

// connect dials until it succeeds or ctx ends. The state is Connecting only
// while a dial is in flight.
func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	var conn net.Conn

	operation := func() error {
		c.setState(Connecting)

		var err error

		conn, err = c.dialer.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			c.setState(Disconnected)
		}

		return err
	}

	notify := func(err error, next time.Duration) {
		c.logger.Warn("carbon connect failed",
			zap.String("addr", c.addr),
			zap.Duration("retry_in", next),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(c.newBackOff(), ctx), notify); err != nil {
		c.setState(Disconnected)

		return nil, err
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()

		return nil, ctx.Err()
	}

	c.conn = conn
	c.state = Connected
	c.mu.Unlock()

	c.logger.Info("connected to carbon", zap.String("addr", c.addr))

	return conn, nil
}

// serve writes queued samples to conn until a write fails, the collector
// goes away or ctx ends.
func (c *Client) serve(ctx context.Context, conn net.Conn) {
	lost := make(chan struct{})
	go watch(conn, lost)

	for {
		if err := c.drain(conn); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("carbon write failed", zap.Int("pending", c.Pending()), zap.Error(err))
			}

			return
		}

		select {
		case <-ctx.Done():
			return
		case <-lost:
			return
		case <-c.wake:
		}
	}
}

// drain writes the queue oldest first. The head is removed only after its
// write succeeded, and mu is never held across a write. Only the writer
// goroutine removes samples, so the head cannot change underneath it.
func (c *Client) drain(conn net.Conn) error {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()

			return nil
		}

		head := c.queue[0]
		c.mu.Unlock()

		if c.writeTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		}

		if _, err := io.WriteString(conn, head.Line()); err != nil {
			return err
		}

		c.mu.Lock()
		c.queue[0] = Sample{}
		c.queue = c.queue[1:]
		c.mu.Unlock()
	}
}

// watch blocks on reads to notice the collector closing the connection.
// Anything the collector sends is discarded.
func watch(conn net.Conn, lost chan<- struct{}) {
	defer close(lost)

	buf := make([]byte, 64)

	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

// release closes conn if it is still the current connection.
func (c *Client) release(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		return
	}

	_ = c.conn.Close()
	c.conn = nil
	c.state = Disconnected
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
