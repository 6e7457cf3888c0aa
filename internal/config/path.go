package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfig names a config file when --config is absent.
const EnvConfig = "LIVEOSC_CONFIG"

const (
	appDir     = "liveosc"
	configFile = "config.jsonc"
)

// ResolvePath picks the config location: the explicit flag, then
// LIVEOSC_CONFIG, then $XDG_CONFIG_HOME/liveosc, then ~/.config/liveosc.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(EnvConfig)} {
		if p := strings.TrimSpace(candidate); p != "" {
			return p, nil
		}
	}

	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.New("unable to resolve user home for config fallback")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDir, configFile), nil
}
