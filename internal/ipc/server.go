package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rbright/liveosc/internal/logging"
	"github.com/rbright/liveosc/internal/osc"
)

// Handler processes one inbound command. Returning false sends no reply.
type Handler interface {
	Handle(context.Context, osc.Message) (osc.Message, bool)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, osc.Message) (osc.Message, bool)

func (f HandlerFunc) Handle(ctx context.Context, msg osc.Message) (osc.Message, bool) {
	return f(ctx, msg)
}

// ServeConfig controls the host-side datagram loop.
type ServeConfig struct {
	// ReplyTo is the fixed address every reply is sent to.
	ReplyTo      net.Addr
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Serve reads command datagrams from conn until ctx is cancelled or conn is
// closed. Malformed datagrams, handler panics and reply failures are logged
// and never stop the loop.
func Serve(ctx context.Context, conn net.PacketConn, handler Handler, cfg ServeConfig) error {
	if cfg.ReplyTo == nil {
		return errors.New("serve: reply address is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	logger := logging.OrDiscard(cfg.Logger)

	buf := make([]byte, maxDatagramSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := conn.SetReadDeadline(time.Now().Add(cfg.PollInterval)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.Warn("command receive failed", "error", err.Error())
			if !sleepContext(ctx, cfg.PollInterval) {
				return nil
			}
			continue
		}

		msg, err := osc.Decode(buf[:n])
		if err != nil {
			logger.Warn("dropping malformed command", "from", from.String(), "bytes", n, "error", err.Error())
			continue
		}

		reply, ok := safeHandle(ctx, handler, msg, logger)
		if !ok {
			continue
		}

		datagram, err := osc.Encode(reply)
		if err != nil {
			logger.Error("encode reply failed", "address", reply.Address, "error", err.Error())
			continue
		}
		if _, err := conn.WriteTo(datagram, cfg.ReplyTo); err != nil {
			logger.Warn("send reply failed", "address", reply.Address, "to", cfg.ReplyTo.String(), "error", err.Error())
		}
	}
}

func safeHandle(ctx context.Context, handler Handler, msg osc.Message, logger *slog.Logger) (reply osc.Message, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("command handler panicked", "address", msg.Address, "panic", fmt.Sprint(r))
			reply, ok = osc.Message{}, false
		}
	}()
	return handler.Handle(ctx, msg)
}
