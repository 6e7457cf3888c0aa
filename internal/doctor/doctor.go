// Package doctor runs readiness diagnostics for config, endpoints, host health, and the OSC round trip.
package doctor

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/rbright/liveosc/internal/config"
	"github.com/rbright/liveosc/internal/health"
	"github.com/rbright/liveosc/internal/ipc"
	"github.com/rbright/liveosc/internal/live"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config, endpoint, health and round-trip checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded, logger *slog.Logger) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	checks = append(checks, checkEndpoint(cfg.Config.Endpoint()))
	checks = append(checks, checkHealth(ctx, cfg.Config))
	checks = append(checks, checkRoundTrip(ctx, cfg.Config, logger))

	return Report{Checks: checks}
}

// checkEndpoint validates that the command address resolves.
func checkEndpoint(ep ipc.Endpoint) Check {
	addr, err := net.ResolveUDPAddr("udp", ep.CommandAddr())
	if err != nil {
		return Check{Name: "osc.endpoint", Pass: false, Message: err.Error()}
	}
	return Check{
		Name:    "osc.endpoint",
		Pass:    true,
		Message: fmt.Sprintf("commands to %s, responses on port %d (fallback %d)", addr, ep.ResponsePort, ep.FallbackResponsePort),
	}
}

// checkHealth probes the host gRPC health service when one is configured.
func checkHealth(ctx context.Context, cfg config.Config) Check {
	addr := strings.TrimSpace(cfg.Host.HealthAddr)
	if addr == "" {
		return Check{Name: "host.health", Pass: true, Message: "host.health_addr not set; skipped"}
	}
	if err := health.Check(ctx, addr, cfg.Client.Timeout()); err != nil {
		return Check{Name: "host.health", Pass: false, Message: err.Error()}
	}
	return Check{Name: "host.health", Pass: true, Message: fmt.Sprintf("serving at %s", addr)}
}

// checkRoundTrip sends /live/get and expects a parseable reply.
func checkRoundTrip(ctx context.Context, cfg config.Config, logger *slog.Logger) Check {
	provider := live.NewProvider(cfg.Endpoint(), ipc.Options{
		Timeout:      cfg.Client.Timeout(),
		PollInterval: cfg.Client.PollInterval(),
		Logger:       logger,
	})
	defer provider.Close()

	client, err := provider.Client(ctx)
	if err != nil {
		return Check{Name: "osc.roundtrip", Pass: false, Message: err.Error()}
	}
	info, err := client.GetLiveSetInfo(ctx)
	if err != nil {
		return Check{Name: "osc.roundtrip", Pass: false, Message: err.Error()}
	}

	transport := "stopped"
	if info.IsPlaying {
		transport = "playing"
	}
	return Check{
		Name:    "osc.roundtrip",
		Pass:    true,
		Message: fmt.Sprintf("%.1f bpm, %s, %d tracks, %d scenes", info.Tempo, transport, info.TrackCount, info.SceneCount),
	}
}
