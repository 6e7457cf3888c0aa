package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Network.Host) == "" {
		return nil, fmt.Errorf("network.host must not be empty")
	}
	if err := validatePort("network.command_port", cfg.Network.CommandPort, false); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Network.ResponseHost) == "" {
		return nil, fmt.Errorf("network.response_host must not be empty")
	}
	if err := validatePort("network.response_port", cfg.Network.ResponsePort, false); err != nil {
		return nil, err
	}
	if err := validatePort("network.fallback_response_port", cfg.Network.FallbackResponsePort, true); err != nil {
		return nil, err
	}
	if cfg.Network.CommandPort == cfg.Network.ResponsePort {
		return nil, fmt.Errorf("network.command_port and network.response_port must differ")
	}
	if cfg.Network.FallbackResponsePort == cfg.Network.ResponsePort {
		warnings = append(warnings, Warning{Message: "network.fallback_response_port equals response_port; fallback is disabled"})
	}

	if cfg.Client.TimeoutMS <= 0 {
		return nil, fmt.Errorf("client.timeout_ms must be > 0")
	}
	if cfg.Client.PollIntervalMS <= 0 {
		return nil, fmt.Errorf("client.poll_interval_ms must be > 0")
	}
	if cfg.Client.PollIntervalMS > cfg.Client.TimeoutMS {
		warnings = append(warnings, Warning{Message: "client.poll_interval_ms exceeds client.timeout_ms; shutdown may lag"})
	}

	if strings.TrimSpace(cfg.Host.Listen) == "" {
		return nil, fmt.Errorf("host.listen must not be empty")
	}
	if strings.TrimSpace(cfg.Host.ReplyHost) == "" {
		return nil, fmt.Errorf("host.reply_host must not be empty")
	}
	if addr := strings.TrimSpace(cfg.Host.HealthAddr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return nil, fmt.Errorf("host.health_addr must be host:port: %w", err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if !isLoopback(cfg.Network.Host) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("network.host %q is not loopback; commands are unauthenticated", cfg.Network.Host)})
	}

	return warnings, nil
}

func validatePort(name string, port int, allowZero bool) error {
	if port == 0 && allowZero {
		return nil
	}
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be within 1-65535", name)
	}
	return nil
}

func isLoopback(host string) bool {
	host = strings.TrimSpace(host)
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
