package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/liveosc/internal/logging"
	"golang.org/x/sys/unix"
)

// Endpoint names the command destination and the local response binding.
type Endpoint struct {
	Host                 string
	CommandPort          int
	ResponseHost         string
	ResponsePort         int
	FallbackResponsePort int
}

// DefaultEndpoint returns the fixed loopback ports the host expects.
func DefaultEndpoint() Endpoint {
	return Endpoint{
		Host:                 DefaultHost,
		CommandPort:          DefaultCommandPort,
		ResponseHost:         DefaultHost,
		ResponsePort:         DefaultResponsePort,
		FallbackResponsePort: DefaultFallbackResponsePort,
	}
}

// CommandAddr is the host:port commands are sent to.
func (e Endpoint) CommandAddr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.CommandPort))
}

// Pair is the outbound command socket plus the inbound response socket.
type Pair struct {
	out  *net.UDPConn
	in   *net.UDPConn
	dest *net.UDPAddr
}

// OpenPair binds the response socket and opens the command socket. When the
// response port is already taken it retries once on the fallback port.
func OpenPair(ctx context.Context, ep Endpoint, logger *slog.Logger) (*Pair, error) {
	logger = logging.OrDiscard(logger)

	dest, err := net.ResolveUDPAddr("udp", ep.CommandAddr())
	if err != nil {
		return nil, fmt.Errorf("resolve command address %s: %w", ep.CommandAddr(), err)
	}

	responseHost := ep.ResponseHost
	if strings.TrimSpace(responseHost) == "" {
		responseHost = DefaultHost
	}

	in, err := ListenReusable(ctx, responseHost, ep.ResponsePort)
	if err != nil && isAddrInUse(err) && ep.FallbackResponsePort != ep.ResponsePort {
		logger.Warn("response port in use; trying fallback",
			"port", ep.ResponsePort,
			"fallback_port", ep.FallbackResponsePort,
		)
		in, err = ListenReusable(ctx, responseHost, ep.FallbackResponsePort)
	}
	if err != nil {
		return nil, fmt.Errorf("bind response socket: %w", err)
	}

	out, err := net.ListenUDP("udp", nil)
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("open command socket: %w", err)
	}

	return &Pair{out: out, in: in, dest: dest}, nil
}

// ListenReusable binds a UDP socket with SO_REUSEADDR set.
func ListenReusable(ctx context.Context, host string, port int) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, raw syscall.RawConn) error {
			var sockErr error
			if err := raw.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	pc, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		_ = pc.Close()
		return nil, fmt.Errorf("listen udp %s: unexpected conn type %T", addr, pc)
	}
	return conn, nil
}

// Send writes one datagram to the command address. Safe for concurrent use.
func (p *Pair) Send(datagram []byte) error {
	_, err := p.out.WriteToUDP(datagram, p.dest)
	return err
}

// Receive reads one datagram, waiting at most poll.
func (p *Pair) Receive(buf []byte, poll time.Duration) (int, error) {
	if err := p.in.SetReadDeadline(time.Now().Add(poll)); err != nil {
		return 0, err
	}
	n, _, err := p.in.ReadFromUDP(buf)
	return n, err
}

// ResponseAddr is the local address responses must be sent to.
func (p *Pair) ResponseAddr() *net.UDPAddr {
	return p.in.LocalAddr().(*net.UDPAddr)
}

// CommandAddr is the resolved host command address.
func (p *Pair) CommandAddr() *net.UDPAddr {
	return p.dest
}

func (p *Pair) Close() error {
	return errors.Join(p.in.Close(), p.out.Close())
}

func isAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, unix.EADDRINUSE) || strings.Contains(err.Error(), "address already in use")
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
