package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/rbright/liveosc/internal/cli"
	"github.com/rbright/liveosc/internal/config"
	"github.com/rbright/liveosc/internal/doctor"
	"github.com/rbright/liveosc/internal/health"
	"github.com/rbright/liveosc/internal/host"
	"github.com/rbright/liveosc/internal/ipc"
	"github.com/rbright/liveosc/internal/live"
	"github.com/rbright/liveosc/internal/liveset"
	"github.com/rbright/liveosc/internal/logging"
	"github.com/rbright/liveosc/internal/version"
	"golang.org/x/sync/errgroup"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("liveosc"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("liveosc"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if err := applyOverrides(&cfgLoaded.Config, parsed.Overrides); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, logger)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandHost:
		return r.commandHost(ctx, cfgLoaded.Config, logger)
	default:
		return r.commandClient(ctx, parsed, cfgLoaded.Config, logger)
	}
}

// applyOverrides layers CLI flags over the loaded config and revalidates.
func applyOverrides(cfg *config.Config, o cli.Overrides) error {
	if strings.TrimSpace(o.Host) != "" {
		cfg.Network.Host = strings.TrimSpace(o.Host)
	}
	if o.CommandPort > 0 {
		cfg.Network.CommandPort = o.CommandPort
	}
	if o.ResponsePort > 0 {
		cfg.Network.ResponsePort = o.ResponsePort
	}
	if o.Timeout > 0 {
		cfg.Client.TimeoutMS = max(1, int(o.Timeout.Milliseconds()))
	}
	if strings.TrimSpace(o.SetFile) != "" {
		cfg.Host.SetFile = strings.TrimSpace(o.SetFile)
	}
	if _, err := config.Validate(*cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func (r Runner) commandClient(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	provider := live.NewProvider(cfg.Endpoint(), ipc.Options{
		Timeout:      cfg.Client.Timeout(),
		PollInterval: cfg.Client.PollInterval(),
		Logger:       logger,
	})
	defer func() { _ = provider.Close() }()

	client, err := provider.Client(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("open osc client failed", "error", err.Error())
		return 1
	}

	out, err := runClientCommand(ctx, client, parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Warn("command failed", "command", parsed.Command, "error", err.Error())
		return 1
	}
	fmt.Fprintln(r.Stdout, out)
	return 0
}

func runClientCommand(ctx context.Context, client *live.Client, parsed cli.Parsed) (string, error) {
	switch parsed.Command {
	case cli.CommandPlay:
		return "playing", client.Play(ctx)
	case cli.CommandStop:
		return "stopped", client.Stop(ctx)
	case cli.CommandTempo:
		applied, err := client.SetTempo(ctx, parsed.Value)
		return formatFloat(applied), err
	case cli.CommandVolume:
		applied, err := client.SetTrackVolume(ctx, parsed.Track, parsed.Value)
		return formatFloat(applied), err
	case cli.CommandMute:
		state, err := client.MuteTrack(ctx, parsed.Track, parsed.On)
		return formatToggle(parsed.Track, "mute", state), err
	case cli.CommandSolo:
		state, err := client.SoloTrack(ctx, parsed.Track, parsed.On)
		return formatToggle(parsed.Track, "solo", state), err
	case cli.CommandArm:
		state, err := client.ArmTrack(ctx, parsed.Track, parsed.On)
		return formatToggle(parsed.Track, "arm", state), err
	case cli.CommandClip:
		err := client.LaunchClip(ctx, parsed.Track, parsed.Slot)
		return fmt.Sprintf("launched clip %d on track %d", parsed.Slot, parsed.Track), err
	case cli.CommandScene:
		err := client.LaunchScene(ctx, parsed.Scene)
		return fmt.Sprintf("launched scene %d", parsed.Scene), err
	case cli.CommandInfo:
		info, err := client.GetLiveSetInfo(ctx)
		if err != nil {
			return "", err
		}
		return marshalIndent(info)
	case cli.CommandTracks:
		tracks, err := client.GetTrackNames(ctx)
		if err != nil {
			return "", err
		}
		return marshalIndent(tracks)
	default:
		return "", fmt.Errorf("unsupported command %q", parsed.Command)
	}
}

// commandHost serves the dispatcher over an in-memory live set, plus the
// health service when host.health_addr is set, until ctx is cancelled.
func (r Runner) commandHost(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	set := liveset.Demo()
	if cfg.Host.SetFile != "" {
		loaded, err := liveset.Load(cfg.Host.SetFile)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		set = loaded
	}

	replyTo, err := net.ResolveUDPAddr("udp", net.JoinHostPort(cfg.Host.ReplyHost, strconv.Itoa(cfg.Network.ResponsePort)))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: resolve reply address: %v\n", err)
		return 1
	}

	conn, err := ipc.ListenReusable(ctx, cfg.Host.Listen, cfg.Network.CommandPort)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = conn.Close() }()

	var healthLis net.Listener
	if cfg.Host.HealthAddr != "" {
		healthLis, err = net.Listen("tcp", cfg.Host.HealthAddr)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: health listener: %v\n", err)
			return 1
		}
	}

	logger.Info("host serving",
		"command_addr", conn.LocalAddr().String(),
		"reply_addr", replyTo.String(),
		"tracks", set.TrackCount(),
		"scenes", set.SceneCount(),
	)
	fmt.Fprintf(r.Stdout, "host listening on %s, replying to %s\n", conn.LocalAddr(), replyTo)

	dispatcher := host.NewDispatcher(set, logger)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return ipc.Serve(groupCtx, conn, dispatcher, ipc.ServeConfig{
			ReplyTo:      replyTo,
			PollInterval: cfg.Client.PollInterval(),
			Logger:       logger,
		})
	})
	if healthLis != nil {
		group.Go(func() error {
			return health.Serve(groupCtx, healthLis, logger)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(r.Stderr, "error: host failed: %v\n", err)
		logger.Error("host failed", "error", err.Error())
		return 1
	}
	logger.Info("host stopped")
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatToggle(track int, name string, on bool) string {
	state := "off"
	if on {
		state = "on"
	}
	return fmt.Sprintf("track %d %s %s", track, name, state)
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
