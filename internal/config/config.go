package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the chat-completions URL used when none is configured.
const DefaultEndpoint = "https://api.openai.com/v1/chat/completions"

type Config struct {
	Chat      ChatConfig      `mapstructure:"chat" yaml:"chat"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

// ChatConfig is read by the transports on every call. It is passed by value,
// so edits take effect on the next request.
type ChatConfig struct {
	APIKey       string  `mapstructure:"api_key" yaml:"api_key"`
	Endpoint     string  `mapstructure:"endpoint" yaml:"endpoint"`
	Model        string  `mapstructure:"model" yaml:"model"`
	Temperature  float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	SystemPrompt string  `mapstructure:"system_prompt" yaml:"system_prompt"`
	Enabled      bool    `mapstructure:"enabled" yaml:"enabled"`
	UseMock      bool    `mapstructure:"use_mock" yaml:"use_mock"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
	File   string `mapstructure:"file" yaml:"file"`
}

type SessionConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type TelemetryConfig struct {
	Exporter     string `mapstructure:"exporter" yaml:"exporter"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	MetricsAddr  string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	// Pprof mounts /debug/pprof/ on the metrics server.
	Pprof bool `mapstructure:"pprof" yaml:"pprof"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Chat: ChatConfig{
			Endpoint:    DefaultEndpoint,
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1000,
			Enabled:     true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Session: SessionConfig{
			Enabled: true,
		},
		Telemetry: TelemetryConfig{
			Exporter: "none",
		},
	}
}

// Load reads the config from the default location.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom reads the config file at path. A missing file is not an error;
// defaults and environment variables are used instead.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	def := Default()
	v.SetDefault("chat.endpoint", def.Chat.Endpoint)
	v.SetDefault("chat.model", def.Chat.Model)
	v.SetDefault("chat.temperature", def.Chat.Temperature)
	v.SetDefault("chat.max_tokens", def.Chat.MaxTokens)
	v.SetDefault("chat.enabled", def.Chat.Enabled)
	v.SetDefault("chat.use_mock", def.Chat.UseMock)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.output", def.Log.Output)
	v.SetDefault("session.enabled", def.Session.Enabled)
	v.SetDefault("telemetry.exporter", def.Telemetry.Exporter)

	if err := v.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Chat.APIKey = expandEnv(cfg.Chat.APIKey)
	if cfg.Chat.APIKey == "" {
		cfg.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if strings.TrimSpace(cfg.Chat.Endpoint) == "" {
		cfg.Chat.Endpoint = DefaultEndpoint
	}

	return &cfg, nil
}

// isNotFound reports whether err means the config file does not exist.
// viper returns ConfigFileNotFoundError only when searching config paths;
// with an explicit file it surfaces the underlying fs error.
func isNotFound(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// ApplyOverrides applies CLI flag overrides. Empty values are ignored.
func (c *Config) ApplyOverrides(model string, mock bool) {
	if strings.TrimSpace(model) != "" {
		c.Chat.Model = model
	}
	if mock {
		c.Chat.UseMock = true
	}
}

// expandEnv expands ${VAR} or $VAR in a string
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}
	if strings.HasPrefix(s, "$") {
		return os.Getenv(s[1:])
	}
	return s
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "chatstream", "config.yaml"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Save writes the config to path, creating its directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// MaskKey hides all but the last four characters of an API key.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
