package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/liveosc/internal/logging"
	"github.com/rbright/liveosc/internal/osc"
)

var (
	ErrNoResponse = errors.New("no response before deadline")
	ErrClosed     = errors.New("ipc connection closed")
)

// Options tunes a Conn. Zero values fall back to the package defaults.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Conn is a client connection: a socket pair, the background correlator,
// and one gate per request address.
type Conn struct {
	pair    *Pair
	table   *correlator
	logger  *slog.Logger
	timeout time.Duration

	gatesMu sync.Mutex
	gates   map[string]chan struct{}

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial opens the socket pair and starts the response correlator.
func Dial(ctx context.Context, ep Endpoint, opts Options) (*Conn, error) {
	opts.Logger = logging.OrDiscard(opts.Logger)
	pair, err := OpenPair(ctx, ep, opts.Logger)
	if err != nil {
		return nil, err
	}
	return newConn(pair, opts), nil
}

func newConn(pair *Pair, opts Options) *Conn {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	opts.Logger = logging.OrDiscard(opts.Logger)

	loopCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		pair:    pair,
		table:   newCorrelator(),
		logger:  opts.Logger,
		timeout: opts.Timeout,
		gates:   make(map[string]chan struct{}),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(c.done)
		c.table.run(loopCtx, pair, opts.PollInterval, c.logger)
	}()

	c.logger.Info("osc client ready",
		"command_addr", pair.CommandAddr().String(),
		"response_addr", pair.ResponseAddr().String(),
	)
	return c
}

// gate returns the lazily created one-slot semaphore for address.
func (c *Conn) gate(address string) chan struct{} {
	c.gatesMu.Lock()
	defer c.gatesMu.Unlock()
	g, ok := c.gates[address]
	if !ok {
		g = make(chan struct{}, 1)
		c.gates[address] = g
	}
	return g
}

// Send fires one message without waiting for a reply.
func (c *Conn) Send(msg osc.Message) error {
	if c.isClosed() {
		return ErrClosed
	}
	datagram, err := osc.Encode(msg)
	if err != nil {
		return err
	}
	if err := c.pair.Send(datagram); err != nil {
		return fmt.Errorf("send %s: %w", msg.Address, err)
	}
	return nil
}

// SendAndWait sends req and waits for the next message published on
// responseAddress (default req.Address+"/response") for up to timeout
// (default Options.Timeout). Calls for the same request address are
// serialized; calls for different addresses proceed in parallel.
// A missing reply yields ErrNoResponse.
func (c *Conn) SendAndWait(ctx context.Context, req osc.Message, responseAddress string, timeout time.Duration) (osc.Message, error) {
	if c.isClosed() {
		return osc.Message{}, ErrClosed
	}
	if responseAddress == "" {
		responseAddress = ResponseAddress(req.Address)
	}
	if timeout <= 0 {
		timeout = c.timeout
	}

	datagram, err := osc.Encode(req)
	if err != nil {
		return osc.Message{}, err
	}

	g := c.gate(req.Address)
	select {
	case g <- struct{}{}:
	case <-ctx.Done():
		return osc.Message{}, ctx.Err()
	case <-c.done:
		return osc.Message{}, ErrClosed
	}
	defer func() { <-g }()

	// select picks at random when ctx is already done and the gate is free.
	if err := ctx.Err(); err != nil {
		return osc.Message{}, err
	}

	waiter := c.table.register(responseAddress)
	defer c.table.unregister(responseAddress, waiter)

	exchange := uuid.NewString()
	started := time.Now()
	logger := c.logger.With("exchange", exchange, "address", req.Address)

	if err := c.pair.Send(datagram); err != nil {
		logger.Warn("send failed", "error", err.Error())
		return osc.Message{}, fmt.Errorf("send %s: %w", req.Address, err)
	}
	logger.Debug("request sent", "response_address", responseAddress, "timeout_ms", timeout.Milliseconds())

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-waiter:
		logger.Debug("response matched", "latency_ms", time.Since(started).Milliseconds())
		return msg, nil
	case <-timer.C:
		logger.Info("timed out waiting for response", "response_address", responseAddress)
		return osc.Message{}, fmt.Errorf("%s: %w", req.Address, ErrNoResponse)
	case <-ctx.Done():
		return osc.Message{}, ctx.Err()
	case <-c.done:
		return osc.Message{}, ErrClosed
	}
}

// Latest returns the most recent message published on address, if any.
func (c *Conn) Latest(address string) (osc.Message, bool) {
	return c.table.latest(address)
}

// ResponseAddr is the bound response socket address (useful after fallback).
func (c *Conn) ResponseAddr() *net.UDPAddr {
	return c.pair.ResponseAddr()
}

// Close stops the correlator and releases both sockets. Safe to call twice.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.closeErr = c.pair.Close()
		<-c.done
	})
	return c.closeErr
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
