// Package config loads the daemon's YAML configuration file and applies
// defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can use Go duration strings
// like "500ms" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds the daemon configuration.
type Config struct {
	// Socket is the path of the Unix socket the daemon listens on.
	Socket string `yaml:"socket"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// OutputBufferSize caps how many bytes of unread child output are kept
	// per session before the oldest bytes are dropped.
	OutputBufferSize int `yaml:"output_buffer_size"`
	// ExitGrace is how long a session waits for a child to act on SIGHUP
	// before it is killed.
	ExitGrace Duration `yaml:"exit_grace"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Socket:           "~/.ptyexpect/pty.sock",
		LogLevel:         "info",
		OutputBufferSize: 64 * 1024,
		ExitGrace:        Duration(2 * time.Second),
	}
}

// Load reads the configuration at path, applying defaults field-wise. A
// missing file is not an error: the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if file.Socket != "" {
		cfg.Socket = file.Socket
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if file.OutputBufferSize > 0 {
		cfg.OutputBufferSize = file.OutputBufferSize
	}
	if file.ExitGrace > 0 {
		cfg.ExitGrace = file.ExitGrace
	}

	return cfg, nil
}
