package ipc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rbright/liveosc/internal/osc"
)

const maxDatagramSize = 64 * 1024

// correlator is the latest-response table plus the registered waiters,
// keyed by response address.
type correlator struct {
	mu        sync.Mutex
	responses map[string]osc.Message
	waiters   map[string]chan osc.Message
}

func newCorrelator() *correlator {
	return &correlator{
		responses: make(map[string]osc.Message),
		waiters:   make(map[string]chan osc.Message),
	}
}

// register clears any stale response for address and installs a waiter.
// The per-address gate guarantees at most one waiter per address.
func (c *correlator) register(address string) chan osc.Message {
	ch := make(chan osc.Message, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.responses, address)
	c.waiters[address] = ch
	return ch
}

func (c *correlator) unregister(address string, ch chan osc.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiters[address] == ch {
		delete(c.waiters, address)
	}
}

// publish stores msg as the latest response for its address and hands it to
// the waiter, if any. Never blocks.
func (c *correlator) publish(msg osc.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responses[msg.Address] = msg
	ch, ok := c.waiters[msg.Address]
	if !ok {
		return false
	}
	select {
	case ch <- msg:
	default:
	}
	return true
}

func (c *correlator) latest(address string) (osc.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.responses[address]
	return msg, ok
}

// receiver is the part of Pair the receive loop needs.
type receiver interface {
	Receive(buf []byte, poll time.Duration) (int, error)
}

// run drains the response socket until ctx is done or the socket closes.
// Decode failures are logged and dropped.
func (c *correlator) run(ctx context.Context, rx receiver, poll time.Duration, logger *slog.Logger) {
	buf := make([]byte, maxDatagramSize)
	for {
		if ctx.Err() != nil {
			return
		}

		n, err := rx.Receive(buf, poll)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			logger.Warn("response receive failed", "error", err.Error())
			if !sleepContext(ctx, poll) {
				return
			}
			continue
		}

		msg, err := osc.Decode(buf[:n])
		if err != nil {
			logger.Warn("dropping malformed response", "bytes", n, "error", err.Error())
			continue
		}

		waiting := c.publish(msg)
		logger.Debug("response received", "address", msg.Address, "args", len(msg.Arguments), "waiter", waiting)
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
