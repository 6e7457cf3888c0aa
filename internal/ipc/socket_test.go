package ipc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func occupyPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn.LocalAddr().(*net.UDPAddr).Port
}

func TestOpenPairBindsResponsePort(t *testing.T) {
	pair, err := OpenPair(context.Background(), Endpoint{
		Host:         "127.0.0.1",
		CommandPort:  DefaultCommandPort,
		ResponseHost: "127.0.0.1",
	}, nil)
	require.NoError(t, err)
	defer pair.Close()

	require.NotZero(t, pair.ResponseAddr().Port)
	require.Equal(t, DefaultCommandPort, pair.CommandAddr().Port)
}

func TestOpenPairFallsBackWhenResponsePortTaken(t *testing.T) {
	taken := occupyPort(t)

	pair, err := OpenPair(context.Background(), Endpoint{
		Host:                 "127.0.0.1",
		CommandPort:          DefaultCommandPort,
		ResponseHost:         "127.0.0.1",
		ResponsePort:         taken,
		FallbackResponsePort: 0,
	}, nil)
	require.NoError(t, err)
	defer pair.Close()

	require.NotEqual(t, taken, pair.ResponseAddr().Port)
}

func TestOpenPairFailsWhenFallbackAlsoTaken(t *testing.T) {
	taken := occupyPort(t)
	fallback := occupyPort(t)

	_, err := OpenPair(context.Background(), Endpoint{
		Host:                 "127.0.0.1",
		CommandPort:          DefaultCommandPort,
		ResponseHost:         "127.0.0.1",
		ResponsePort:         taken,
		FallbackResponsePort: fallback,
	}, nil)
	require.Error(t, err)
	require.True(t, isAddrInUse(err))
}

func TestOpenPairRejectsInvalidCommandPort(t *testing.T) {
	_, err := OpenPair(context.Background(), Endpoint{Host: "127.0.0.1", CommandPort: -1}, nil)
	require.ErrorContains(t, err, "resolve command address")
}

func TestPairSendReachesCommandPort(t *testing.T) {
	host, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer host.Close()

	pair, err := OpenPair(context.Background(), Endpoint{
		Host:         "127.0.0.1",
		CommandPort:  host.LocalAddr().(*net.UDPAddr).Port,
		ResponseHost: "127.0.0.1",
	}, nil)
	require.NoError(t, err)
	defer pair.Close()

	require.NoError(t, pair.Send([]byte("ping")))

	buf := make([]byte, 16)
	require.NoError(t, host.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := host.ReadFromUDP(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
}

func TestPairSendWithoutListenerDoesNotFail(t *testing.T) {
	closed, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := closed.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, closed.Close())

	pair, err := OpenPair(context.Background(), Endpoint{Host: "127.0.0.1", CommandPort: port, ResponseHost: "127.0.0.1"}, nil)
	require.NoError(t, err)
	defer pair.Close()

	require.NoError(t, pair.Send([]byte("first")))
	require.NoError(t, pair.Send([]byte("second")))
}

func TestPairReceiveTimesOut(t *testing.T) {
	pair, err := OpenPair(context.Background(), Endpoint{Host: "127.0.0.1", CommandPort: 1, ResponseHost: "127.0.0.1"}, nil)
	require.NoError(t, err)
	defer pair.Close()

	_, err = pair.Receive(make([]byte, 8), 20*time.Millisecond)
	require.True(t, isTimeout(err))
}

func TestPairCloseStopsReceive(t *testing.T) {
	pair, err := OpenPair(context.Background(), Endpoint{Host: "127.0.0.1", CommandPort: 1, ResponseHost: "127.0.0.1"}, nil)
	require.NoError(t, err)
	require.NoError(t, pair.Close())

	_, err = pair.Receive(make([]byte, 8), 20*time.Millisecond)
	require.ErrorIs(t, err, net.ErrClosed)
}

func TestDefaultEndpoint(t *testing.T) {
	ep := DefaultEndpoint()
	require.Equal(t, "127.0.0.1:11000", ep.CommandAddr())
	require.Equal(t, 11001, ep.ResponsePort)
	require.Equal(t, 11002, ep.FallbackResponsePort)
}
