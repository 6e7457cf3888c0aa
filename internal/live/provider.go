package live

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/liveosc/internal/ipc"
)

type conn interface {
	Exchanger
	Close() error
}

// Provider owns the one client for a process. The first Client call dials;
// later calls reuse it until Close.
type Provider struct {
	dial    func(context.Context) (conn, error)
	timeout time.Duration

	current atomic.Pointer[Client]

	mu     sync.Mutex
	conn   conn
	closed bool
}

// NewProvider prepares a provider that dials ep with opts on first use.
func NewProvider(ep ipc.Endpoint, opts ipc.Options) *Provider {
	return newProvider(func(ctx context.Context) (conn, error) {
		return ipc.Dial(ctx, ep, opts)
	}, opts.Timeout)
}

func newProvider(dial func(context.Context) (conn, error), timeout time.Duration) *Provider {
	return &Provider{dial: dial, timeout: timeout}
}

// Client returns the shared client, dialing it on first use. Concurrent
// first calls build exactly one connection.
func (p *Provider) Client(ctx context.Context) (*Client, error) {
	if c := p.current.Load(); c != nil {
		return c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c := p.current.Load(); c != nil {
		return c, nil
	}
	if p.closed {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ipc.ErrClosed)
	}

	cn, err := p.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c := NewClient(cn, p.timeout)
	p.conn = cn
	p.current.Store(c)
	return c, nil
}

// Close releases the connection. Client fails after Close.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.current.Store(nil)
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
