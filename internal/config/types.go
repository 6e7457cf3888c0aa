// Package config resolves, parses, validates, and defaults liveosc configuration.
package config

import (
	"time"

	"github.com/rbright/liveosc/internal/ipc"
)

// Config is the fully materialized runtime configuration used by liveosc.
type Config struct {
	Network NetworkConfig
	Client  ClientConfig
	Host    HostConfig
	Log     LogConfig
}

// NetworkConfig names the host command address and the controller response
// socket. ResponseHost is where the controller binds; the host's reply
// target is HostConfig.ReplyHost.
type NetworkConfig struct {
	Host                 string
	CommandPort          int
	ResponseHost         string
	ResponsePort         int
	FallbackResponsePort int
}

// ClientConfig controls request waits on the controller side.
type ClientConfig struct {
	TimeoutMS      int
	PollIntervalMS int
}

// HostConfig controls the in-process host started by `liveosc host`.
type HostConfig struct {
	Listen     string
	ReplyHost  string
	HealthAddr string
	SetFile    string
}

// LogConfig controls the JSONL runtime log.
type LogConfig struct {
	Level string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// Endpoint maps the network section onto the socket pair layout.
func (c Config) Endpoint() ipc.Endpoint {
	return ipc.Endpoint{
		Host:                 c.Network.Host,
		CommandPort:          c.Network.CommandPort,
		ResponseHost:         c.Network.ResponseHost,
		ResponsePort:         c.Network.ResponsePort,
		FallbackResponsePort: c.Network.FallbackResponsePort,
	}
}

func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c ClientConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
