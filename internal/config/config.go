// Package config loads application configuration for the Pheoni assistant.
// It is read from ~/.pheoni/config.yaml and can be overridden by PHEONI_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// DataDir is where the sqlite databases live.
	DataDir string        `mapstructure:"data_dir" yaml:"data_dir"`
	Corpus  CorpusConfig  `mapstructure:"corpus" yaml:"corpus"`
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
	Sweep   SweepConfig   `mapstructure:"sweep" yaml:"sweep"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// CorpusConfig locates the static corpus datasets.
type CorpusConfig struct {
	// JSONPath is the keyed-pair dataset file.
	JSONPath string `mapstructure:"json_path" yaml:"json_path"`
	// CSVPath is the tabular dialog dataset file.
	CSVPath string `mapstructure:"csv_path" yaml:"csv_path"`
	// Watch reloads the corpus when either file changes on disk.
	Watch bool `mapstructure:"watch" yaml:"watch"`
}

// GatewayConfig describes the external generation process.
type GatewayConfig struct {
	// Command is the generator executable.
	Command string `mapstructure:"command" yaml:"command"`
	// Model is passed to the generator ("<command> run <model>"). Ignored
	// when Args is set explicitly.
	Model string `mapstructure:"model" yaml:"model"`
	// Args overrides the generator argument list entirely.
	Args []string `mapstructure:"args" yaml:"args,omitempty"`
	// BudgetSeconds bounds a single generation call.
	BudgetSeconds int `mapstructure:"budget_seconds" yaml:"budget_seconds"`
}

// Budget returns the per-call latency budget.
func (c GatewayConfig) Budget() time.Duration {
	return time.Duration(c.BudgetSeconds) * time.Second
}

// CommandArgs returns the argument list for the generator process.
func (c GatewayConfig) CommandArgs() []string {
	if len(c.Args) > 0 {
		return c.Args
	}
	return []string{"run", c.Model}
}

// SweepConfig controls the background expiry sweep.
type SweepConfig struct {
	// IntervalMinutes is how often the sweep runs.
	IntervalMinutes int `mapstructure:"interval_minutes" yaml:"interval_minutes"`
}

// Interval returns the sweep interval.
func (c SweepConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ServerConfig configures the HTTP shim.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`
	// File is an optional log file path; empty logs to stderr only.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".pheoni")
	return &Config{
		DataDir: base,
		Corpus: CorpusConfig{
			JSONPath: filepath.Join(base, "data.json"),
			CSVPath:  filepath.Join(base, "dialogs.csv"),
			Watch:    true,
		},
		Gateway: GatewayConfig{
			Command:       "ollama",
			Model:         "qwen:1.8b",
			BudgetSeconds: 10,
		},
		Sweep:  SweepConfig{IntervalMinutes: 60},
		Server: ServerConfig{Addr: "127.0.0.1:5000"},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path (or the default location when empty),
// applying defaults and PHEONI_* environment overrides. A missing config
// file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	def := Default()

	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("corpus.json_path", def.Corpus.JSONPath)
	v.SetDefault("corpus.csv_path", def.Corpus.CSVPath)
	v.SetDefault("corpus.watch", def.Corpus.Watch)
	v.SetDefault("gateway.command", def.Gateway.Command)
	v.SetDefault("gateway.model", def.Gateway.Model)
	v.SetDefault("gateway.budget_seconds", def.Gateway.BudgetSeconds)
	v.SetDefault("sweep.interval_minutes", def.Sweep.IntervalMinutes)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("logging.level", def.Logging.Level)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(def.DataDir)
	}

	v.SetEnvPrefix("PHEONI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file in the default location just means defaults; an
		// explicitly named file must exist.
		var notFound viper.ConfigFileNotFoundError
		missingDefault := path == "" && (errors.As(err, &notFound) || os.IsNotExist(err))
		if !missingDefault {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// EnsureDefault writes the default config file if none exists yet, so users
// have something to edit. Returns the file path.
func EnsureDefault() (string, error) {
	def := Default()
	if err := os.MkdirAll(def.DataDir, 0755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	path := filepath.Join(def.DataDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	data, err := yaml.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write default config: %w", err)
	}
	return path, nil
}
