package config

import "github.com/rbright/liveosc/internal/ipc"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			Host:                 ipc.DefaultHost,
			CommandPort:          ipc.DefaultCommandPort,
			ResponseHost:         ipc.DefaultHost,
			ResponsePort:         ipc.DefaultResponsePort,
			FallbackResponsePort: ipc.DefaultFallbackResponsePort,
		},
		Client: ClientConfig{
			TimeoutMS:      int(ipc.DefaultTimeout.Milliseconds()),
			PollIntervalMS: int(ipc.DefaultPollInterval.Milliseconds()),
		},
		Host: HostConfig{
			Listen:    ipc.DefaultHost,
			ReplyHost: ipc.DefaultHost,
		},
		Log: LogConfig{Level: "info"},
	}
}
