package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/liveosc.jsonc", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/liveosc.jsonc", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseOverrides(t *testing.T) {
	parsed, err := Parse([]string{
		"--host", "127.0.0.2",
		"--command-port", "12000",
		"--response-port=12001",
		"--timeout", "750ms",
		"--set", "demo.toml",
		"host",
	})
	require.NoError(t, err)
	require.Equal(t, CommandHost, parsed.Command)
	require.Equal(t, Overrides{
		Host:         "127.0.0.2",
		CommandPort:  12000,
		ResponsePort: 12001,
		Timeout:      750 * time.Millisecond,
		SetFile:      "demo.toml",
	}, parsed.Overrides)
}

func TestParseTypedArguments(t *testing.T) {
	parsed, err := Parse([]string{"tempo", "128.5"})
	require.NoError(t, err)
	require.Equal(t, CommandTempo, parsed.Command)
	require.Equal(t, 128.5, parsed.Value)

	parsed, err = Parse([]string{"volume", "3", "0.5"})
	require.NoError(t, err)
	require.Equal(t, 3, parsed.Track)
	require.Equal(t, 0.5, parsed.Value)

	parsed, err = Parse([]string{"arm", "2", "on"})
	require.NoError(t, err)
	require.Equal(t, CommandArm, parsed.Command)
	require.Equal(t, 2, parsed.Track)
	require.True(t, parsed.On)

	parsed, err = Parse([]string{"mute", "1", "off"})
	require.NoError(t, err)
	require.False(t, parsed.On)

	parsed, err = Parse([]string{"clip", "4", "7"})
	require.NoError(t, err)
	require.Equal(t, 4, parsed.Track)
	require.Equal(t, 7, parsed.Slot)

	parsed, err = Parse([]string{"scene", "9"})
	require.NoError(t, err)
	require.Equal(t, 9, parsed.Scene)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
		wantPath string
	}{
		{
			name:     "help short flag",
			args:     []string{"-h"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "help long flag",
			args:     []string{"--help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
		{
			name:     "version flag",
			args:     []string{"--version"},
			wantCmd:  CommandVersion,
			wantHelp: false,
		},
		{
			name:    "flag after command is an argument",
			args:    []string{"info", "--config", "/tmp/cfg"},
			wantErr: "unexpected arguments after command",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "needs an argument",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"bogus"},
			wantErr: "unknown command",
		},
		{
			name:    "missing tempo",
			args:    []string{"tempo"},
			wantErr: "needs 1 argument",
		},
		{
			name:    "tempo not a number",
			args:    []string{"tempo", "fast"},
			wantErr: "BPM must be a number",
		},
		{
			name:    "negative track",
			args:    []string{"volume", "-1", "0.5"},
			wantErr: "TRACK must be a non-negative integer",
		},
		{
			name:    "bad switch",
			args:    []string{"solo", "1", "maybe"},
			wantErr: "expected on or off",
		},
		{
			name:    "bad command port",
			args:    []string{"--command-port", "70000", "play"},
			wantErr: "--command-port",
		},
		{
			name:    "zero timeout",
			args:    []string{"--timeout", "0s", "play"},
			wantErr: "--timeout",
		},
		{
			name:    "version with command",
			args:    []string{"--version", "play"},
			wantErr: "unexpected arguments after --version",
		},
		{
			name:     "config then play",
			args:     []string{"--config", "/tmp/cfg", "play"},
			wantCmd:  CommandPlay,
			wantPath: "/tmp/cfg",
		},
		{
			name:     "help command",
			args:     []string{"help"},
			wantCmd:  CommandHelp,
			wantHelp: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.wantPath, parsed.ConfigPath)
		})
	}
}

func TestHelpTextListsEveryCommand(t *testing.T) {
	text := HelpText("liveosc")
	for cmd := range arity {
		require.Contains(t, text, "  "+string(cmd))
	}
	require.Contains(t, text, "--response-port")
}
