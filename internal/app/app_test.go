package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rbright/liveosc/internal/ipc"
	"github.com/stretchr/testify/require"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "liveosc")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestExecuteRejectsBadTypedArgument(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"tempo", "fast"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "BPM must be a number")
}

func TestRunnerRejectsInvalidConfig(t *testing.T) {
	env := setupRunnerEnv(t)
	require.NoError(t, os.WriteFile(env.configPath, []byte(`{"client": {"timeout_ms": 0}}`), 0o600))

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", env.configPath, "info"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "invalid config")
}

func TestRunnerRejectsFlagsThatCollide(t *testing.T) {
	env := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	port := strconv.Itoa(env.commandPort)
	exitCode := runner.Execute(context.Background(), []string{
		"--config", env.configPath,
		"--response-port", port,
		"info",
	})
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "invalid flags")
}

func TestRunnerInfoFailsWithoutHost(t *testing.T) {
	env := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", env.configPath, "info"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "live set unavailable")
	require.Empty(t, stdout.String())
}

func TestRunnerDoctorFailsWithoutHost(t *testing.T) {
	env := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", env.configPath, "doctor"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stdout.String(), "[OK] config:")
	require.Contains(t, stdout.String(), "[FAIL] osc.roundtrip")
}

func TestRunnerHostRejectsMissingSetFile(t *testing.T) {
	env := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	missing := filepath.Join(t.TempDir(), "missing.toml")
	exitCode := runner.Execute(context.Background(), []string{"--config", env.configPath, "--set", missing, "host"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "missing.toml")
}

func TestRunnerControlsRunningHost(t *testing.T) {
	env := setupRunnerEnv(t)
	hostOut := startHostForRunnerTest(t, env)
	require.Contains(t, hostOut.String(), "host listening on")

	out, code := runCommand(t, env, "tempo", "150")
	require.Equal(t, 0, code)
	require.Equal(t, "150\n", out)

	out, code = runCommand(t, env, "tempo", "5000")
	require.Equal(t, 0, code)
	require.Equal(t, "999\n", out)

	out, code = runCommand(t, env, "play")
	require.Equal(t, 0, code)
	require.Equal(t, "playing\n", out)

	out, code = runCommand(t, env, "mute", "1", "on")
	require.Equal(t, 0, code)
	require.Equal(t, "track 1 mute on\n", out)

	out, code = runCommand(t, env, "volume", "0", "1.5")
	require.Equal(t, 0, code)
	require.Equal(t, "1\n", out)

	out, code = runCommand(t, env, "scene", "2")
	require.Equal(t, 0, code)
	require.Equal(t, "launched scene 2\n", out)

	out, code = runCommand(t, env, "info")
	require.Equal(t, 0, code)
	var info ipc.LiveSetInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Equal(t, 999.0, info.Tempo)
	require.True(t, info.IsPlaying)
	require.Equal(t, 8, info.TrackCount)
	require.Equal(t, 10, info.SceneCount)

	out, code = runCommand(t, env, "tracks")
	require.Equal(t, 0, code)
	var tracks []ipc.TrackSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &tracks))
	require.Len(t, tracks, 8)
	require.Equal(t, "Drums", tracks[0].Name)
}

func TestRunnerArmOnReturnTrackFails(t *testing.T) {
	env := setupRunnerEnv(t)
	startHostForRunnerTest(t, env)

	out, code := runCommand(t, env, "arm", "7", "on")
	require.Equal(t, 1, code)
	require.Empty(t, out)
}

type runnerEnv struct {
	configPath   string
	commandPort  int
	responsePort int
}

func setupRunnerEnv(t *testing.T) runnerEnv {
	t.Helper()

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{"LIVEOSC_CONFIG", "LIVEOSC_HOST", "LIVEOSC_COMMAND_PORT", "LIVEOSC_RESPONSE_PORT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	env := runnerEnv{commandPort: freeUDPPort(t), responsePort: freeUDPPort(t)}
	env.configPath = filepath.Join(t.TempDir(), "config.jsonc")
	content := fmt.Sprintf(`{
  // loopback test ports
  "network": {
    "command_port": %d,
    "response_port": %d,
    "fallback_response_port": 0,
  },
  "client": {"timeout_ms": 300, "poll_interval_ms": 20},
}`, env.commandPort, env.responsePort)
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o600))
	return env
}

// startHostForRunnerTest runs `host` until the test ends and waits until it
// answers an info request.
func startHostForRunnerTest(t *testing.T, env runnerEnv) *lockedBuffer {
	t.Helper()

	stdout := &lockedBuffer{}
	stderr := &lockedBuffer{}
	runner := Runner{Stdout: stdout, Stderr: stderr}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- runner.Execute(ctx, []string{"--config", env.configPath, "host"})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case code := <-done:
			require.Equal(t, 0, code, stderr.String())
		case <-time.After(5 * time.Second):
			t.Fatal("host did not stop")
		}
	})

	require.Eventually(t, func() bool {
		_, code := runCommand(t, env, "info")
		return code == 0
	}, 5*time.Second, 50*time.Millisecond, stderr.String())
	return stdout
}

func runCommand(t *testing.T, env runnerEnv, args ...string) (string, int) {
	t.Helper()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}
	code := runner.Execute(context.Background(), append([]string{"--config", env.configPath}, args...))
	return stdout.String(), code
}

func freeUDPPort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())
	return port
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
