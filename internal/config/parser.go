package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/jsonc"
)

type jsoncConfig struct {
	Network *jsoncNetwork `json:"network"`
	Client  *jsoncClient  `json:"client"`
	Host    *jsoncHost    `json:"host"`
	Log     *jsoncLog     `json:"log"`
}

type jsoncNetwork struct {
	Host                 *string `json:"host"`
	CommandPort          *int    `json:"command_port"`
	ResponseHost         *string `json:"response_host"`
	ResponsePort         *int    `json:"response_port"`
	FallbackResponsePort *int    `json:"fallback_response_port"`
}

type jsoncClient struct {
	TimeoutMS      *int `json:"timeout_ms"`
	PollIntervalMS *int `json:"poll_interval_ms"`
}

type jsoncHost struct {
	Listen     *string `json:"listen"`
	ReplyHost  *string `json:"reply_host"`
	HealthAddr *string `json:"health_addr"`
	SetFile    *string `json:"set_file"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

// Parse overlays JSONC content onto base. Comments and trailing commas are
// allowed; unknown keys are not. An empty document returns base unchanged.
func Parse(content string, base Config) (Config, []Warning, error) {
	if strings.TrimSpace(content) == "" {
		return base, nil, nil
	}

	// ToJSON keeps byte offsets, so decode errors still point at the source.
	normalized := jsonc.ToJSON([]byte(content))

	decoder := json.NewDecoder(bytes.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings := payload.applyTo(&cfg)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) []Warning {
	warnings := make([]Warning, 0)

	if payload.Network != nil {
		if payload.Network.Host != nil {
			cfg.Network.Host = strings.TrimSpace(*payload.Network.Host)
		}
		if payload.Network.CommandPort != nil {
			cfg.Network.CommandPort = *payload.Network.CommandPort
		}
		if payload.Network.ResponseHost != nil {
			cfg.Network.ResponseHost = strings.TrimSpace(*payload.Network.ResponseHost)
		}
		if payload.Network.ResponsePort != nil {
			cfg.Network.ResponsePort = *payload.Network.ResponsePort
		}
		if payload.Network.FallbackResponsePort != nil {
			cfg.Network.FallbackResponsePort = *payload.Network.FallbackResponsePort
		}
	}

	if payload.Client != nil {
		if payload.Client.TimeoutMS != nil {
			cfg.Client.TimeoutMS = *payload.Client.TimeoutMS
		}
		if payload.Client.PollIntervalMS != nil {
			cfg.Client.PollIntervalMS = *payload.Client.PollIntervalMS
		}
	}

	if payload.Host != nil {
		if payload.Host.Listen != nil {
			cfg.Host.Listen = strings.TrimSpace(*payload.Host.Listen)
		}
		if payload.Host.ReplyHost != nil {
			cfg.Host.ReplyHost = strings.TrimSpace(*payload.Host.ReplyHost)
		}
		if payload.Host.HealthAddr != nil {
			cfg.Host.HealthAddr = strings.TrimSpace(*payload.Host.HealthAddr)
		}
		if payload.Host.SetFile != nil {
			cfg.Host.SetFile = strings.TrimSpace(*payload.Host.SetFile)
		}
	}

	if payload.Log != nil && payload.Log.Level != nil {
		level := strings.ToLower(strings.TrimSpace(*payload.Log.Level))
		if level == "warning" {
			warnings = append(warnings, Warning{Message: `log.level "warning" is an alias; use "warn"`})
			level = "warn"
		}
		cfg.Log.Level = level
	}

	return warnings
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content []byte, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content []byte, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := min(int(offset), len(content))

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
