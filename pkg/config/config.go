// Package config loads the sentinel.yaml configuration file and provides
// compiled-in defaults for every tunable.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "10s",
// "5m", "1h" instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
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

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full daemon configuration
type Config struct {
	DataDir string `yaml:"dataDir"`
	APIAddr string `yaml:"apiAddr"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Poll struct {
		StateInterval  Duration `yaml:"stateInterval"`
		MetricInterval Duration `yaml:"metricInterval"`
		SourceURL      string   `yaml:"sourceUrl"`
		Timeout        Duration `yaml:"timeout"`
	} `yaml:"poll"`

	Guardrails struct {
		MaxAttempts     int      `yaml:"maxAttempts"`
		AttemptWindow   Duration `yaml:"attemptWindow"`
		BlastStaleAfter Duration `yaml:"blastStaleAfter"`
	} `yaml:"guardrails"`

	Engine struct {
		QueueSize       int      `yaml:"queueSize"`
		NotifyCooldown  Duration `yaml:"notifyCooldown"`
		DispatchTimeout Duration `yaml:"dispatchTimeout"`
	} `yaml:"engine"`

	Audit struct {
		Retention     Duration `yaml:"retention"`
		SweepInterval Duration `yaml:"sweepInterval"`
	} `yaml:"audit"`

	Executor struct {
		URL     string   `yaml:"url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"executor"`

	Notify struct {
		WebhookURL string `yaml:"webhookUrl"`
	} `yaml:"notify"`

	// Optional override files; compiled-in defaults apply when empty
	RulesFile    string `yaml:"rulesFile"`
	RunbooksFile string `yaml:"runbooksFile"`
}

// Default returns a Config with every field set to its compiled-in default
func Default() *Config {
	cfg := &Config{
		DataDir: "./sentinel-data",
		APIAddr: "127.0.0.1:8530",
	}
	cfg.Log.Level = "info"
	cfg.Poll.StateInterval = Duration(10 * time.Second)
	cfg.Poll.MetricInterval = Duration(30 * time.Second)
	cfg.Poll.Timeout = Duration(5 * time.Second)
	cfg.Guardrails.MaxAttempts = 3
	cfg.Guardrails.AttemptWindow = Duration(time.Hour)
	cfg.Guardrails.BlastStaleAfter = Duration(10 * time.Minute)
	cfg.Engine.QueueSize = 16
	cfg.Engine.NotifyCooldown = Duration(5 * time.Minute)
	cfg.Engine.DispatchTimeout = Duration(30 * time.Second)
	cfg.Audit.Retention = Duration(30 * 24 * time.Hour)
	cfg.Audit.SweepInterval = Duration(time.Hour)
	cfg.Executor.Timeout = Duration(30 * time.Second)
	return cfg
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Guardrails.MaxAttempts <= 0 {
		return fmt.Errorf("guardrails.maxAttempts must be positive, got %d", c.Guardrails.MaxAttempts)
	}
	if c.Guardrails.AttemptWindow <= 0 {
		return fmt.Errorf("guardrails.attemptWindow must be positive")
	}
	if c.Engine.QueueSize <= 0 {
		return fmt.Errorf("engine.queueSize must be positive, got %d", c.Engine.QueueSize)
	}
	if c.Poll.StateInterval <= 0 || c.Poll.MetricInterval <= 0 {
		return fmt.Errorf("poll intervals must be positive")
	}
	return nil
}
