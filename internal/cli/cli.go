package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type Command string

const (
	CommandPlay    Command = "play"
	CommandStop    Command = "stop"
	CommandTempo   Command = "tempo"
	CommandVolume  Command = "volume"
	CommandMute    Command = "mute"
	CommandSolo    Command = "solo"
	CommandArm     Command = "arm"
	CommandClip    Command = "clip"
	CommandScene   Command = "scene"
	CommandInfo    Command = "info"
	CommandTracks  Command = "tracks"
	CommandHost    Command = "host"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// arity is the number of positional arguments each command takes.
var arity = map[Command]int{
	CommandPlay:    0,
	CommandStop:    0,
	CommandTempo:   1,
	CommandVolume:  2,
	CommandMute:    2,
	CommandSolo:    2,
	CommandArm:     2,
	CommandClip:    2,
	CommandScene:   1,
	CommandInfo:    0,
	CommandTracks:  0,
	CommandHost:    0,
	CommandDoctor:  0,
	CommandVersion: 0,
	CommandHelp:    0,
}

// Overrides are flag values that replace config and environment settings.
// Zero values mean "not set".
type Overrides struct {
	Host         string
	CommandPort  int
	ResponsePort int
	Timeout      time.Duration
	SetFile      string
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Overrides  Overrides

	// Typed positional arguments; which are meaningful depends on Command.
	Track int
	Slot  int
	Scene int
	Value float64
	On    bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	flagSet := pflag.NewFlagSet("liveosc", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&parsed.ConfigPath, "config", "", "config file path")
	flagSet.StringVar(&parsed.Overrides.Host, "host", "", "host address commands are sent to")
	flagSet.IntVar(&parsed.Overrides.CommandPort, "command-port", 0, "host command port")
	flagSet.IntVar(&parsed.Overrides.ResponsePort, "response-port", 0, "local response port")
	flagSet.DurationVar(&parsed.Overrides.Timeout, "timeout", 0, "response wait per request")
	flagSet.StringVar(&parsed.Overrides.SetFile, "set", "", "live set fixture for the host command")
	help := flagSet.BoolP("help", "h", false, "show help")
	showVersion := flagSet.Bool("version", false, "show version")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return parsed, nil
		}
		return Parsed{}, err
	}
	if *help {
		return parsed, nil
	}
	if err := validateOverrides(flagSet, parsed.Overrides); err != nil {
		return Parsed{}, err
	}

	rest := flagSet.Args()
	if *showVersion {
		if len(rest) > 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments after --version")
		}
		parsed.Command = CommandVersion
		parsed.ShowHelp = false
		return parsed, nil
	}
	if len(rest) == 0 {
		return parsed, nil
	}

	cmd := Command(rest[0])
	want, ok := arity[cmd]
	if !ok {
		return Parsed{}, fmt.Errorf("unknown command: %s", rest[0])
	}
	positional := rest[1:]
	if len(positional) > want {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", cmd)
	}
	if len(positional) < want {
		return Parsed{}, fmt.Errorf("command %q needs %d argument(s), got %d", cmd, want, len(positional))
	}

	parsed.Command = cmd
	parsed.ShowHelp = cmd == CommandHelp
	if err := parsed.bindPositional(positional); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

func validateOverrides(flagSet *pflag.FlagSet, o Overrides) error {
	if flagSet.Changed("command-port") && (o.CommandPort <= 0 || o.CommandPort > 65535) {
		return fmt.Errorf("--command-port must be within 1-65535")
	}
	if flagSet.Changed("response-port") && (o.ResponsePort <= 0 || o.ResponsePort > 65535) {
		return fmt.Errorf("--response-port must be within 1-65535")
	}
	if flagSet.Changed("timeout") && o.Timeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	return nil
}

func (p *Parsed) bindPositional(args []string) error {
	var err error
	switch p.Command {
	case CommandTempo:
		p.Value, err = parseFloat("BPM", args[0])
	case CommandVolume:
		if p.Track, err = parseIndex("TRACK", args[0]); err == nil {
			p.Value, err = parseFloat("LEVEL", args[1])
		}
	case CommandMute, CommandSolo, CommandArm:
		if p.Track, err = parseIndex("TRACK", args[0]); err == nil {
			p.On, err = parseSwitch(args[1])
		}
	case CommandClip:
		if p.Track, err = parseIndex("TRACK", args[0]); err == nil {
			p.Slot, err = parseIndex("SLOT", args[1])
		}
	case CommandScene:
		p.Scene, err = parseIndex("SCENE", args[0])
	}
	return err
}

func parseFloat(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	return v, nil
}

func parseIndex(name, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, raw)
	}
	return v, nil
}

func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", raw)
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [flags] <command> [args]

Commands:
  play                   Start transport playback
  stop                   Stop transport playback
  tempo BPM              Set tempo (host clamps to 20-999)
  volume TRACK LEVEL     Set track volume (host clamps to 0-1)
  mute TRACK on|off      Mute or unmute a track
  solo TRACK on|off      Solo or unsolo a track
  arm TRACK on|off       Arm or disarm a track
  clip TRACK SLOT        Launch a clip slot
  scene SCENE            Launch a scene
  info                   Print tempo, transport and set size
  tracks                 Print every track as JSON
  host                   Serve the OSC host over an in-memory live set
  doctor                 Run configuration and connectivity checks
  version                Print version information
  help                   Show this help

Flags:
  --config PATH          Config file path (default: $XDG_CONFIG_HOME/liveosc/config.jsonc)
  --host ADDR            Host address commands are sent to
  --command-port PORT    Host command port (default 11000)
  --response-port PORT   Local response port (default 11001)
  --timeout DURATION     Response wait per request (default 5s)
  --set FILE             Live set fixture (.toml, .yaml) for the host command
  -h, --help             Show help
  --version              Show version
`, binaryName)
}
