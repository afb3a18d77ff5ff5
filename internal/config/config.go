// Package config loads server and oracle settings from YAML with defaults and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides oracle.apiKey when set
const APIKeyEnv = "CHESS_ORACLE_API_KEY"

// Oracle providers
const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderCohere = "cohere"
	ProviderUCI    = "uci"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Oracle  Oracle  `yaml:"oracle"`
	Log     Log     `yaml:"log"`
}

type Server struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	DevMode   bool   `yaml:"devMode"`
	RateLimit int    `yaml:"rateLimit"` // requests per second per client
	Workers   int    `yaml:"workers"`   // oracle queue workers
	QueueSize int    `yaml:"queueSize"`
}

type Storage struct {
	Path string `yaml:"path"` // empty disables persistence
}

type Oracle struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Endpoint    string        `yaml:"endpoint"`
	APIKey      string        `yaml:"apiKey"`
	EnginePath  string        `yaml:"enginePath"`
	MoveTime    time.Duration `yaml:"moveTime"`
	Timeout     time.Duration `yaml:"timeout"`
	Delay       time.Duration `yaml:"delay"` // pacing before each oracle move
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
}

type Log struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns a config usable without a file
func Default() Config {
	return Config{
		Server: Server{
			Host:      "localhost",
			Port:      8080,
			RateLimit: 10,
			Workers:   2,
			QueueSize: 100,
		},
		Oracle: Oracle{
			Provider:    ProviderNone,
			EnginePath:  "stockfish",
			MoveTime:    time.Second,
			Timeout:     30 * time.Second,
			Delay:       time.Second,
			Temperature: 0.7,
			MaxTokens:   200,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads path over the defaults; an empty path yields the defaults.
// The API key environment variable wins over the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config '%s': %w", path, err)
		}
	}

	if key, ok := os.LookupEnv(APIKeyEnv); ok && key != "" {
		cfg.Oracle.APIKey = key
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("server.rateLimit must be positive"))
	}
	if c.Server.Workers < 1 {
		errs = append(errs, fmt.Errorf("server.workers must be positive"))
	}
	if c.Server.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("server.queueSize must be positive"))
	}
	if err := c.Oracle.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (o Oracle) Validate() error {
	var errs []error

	switch o.Provider {
	case ProviderNone, ProviderUCI:
	case ProviderOpenAI, ProviderGemini, ProviderCohere:
		if o.APIKey == "" {
			errs = append(errs, fmt.Errorf("oracle.apiKey required for provider %s (or set %s)", o.Provider, APIKeyEnv))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown oracle.provider %q", o.Provider))
	}
	if o.Provider == ProviderUCI && o.EnginePath == "" {
		errs = append(errs, fmt.Errorf("oracle.enginePath required for provider uci"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("oracle.timeout must be positive"))
	}
	if o.MoveTime <= 0 {
		errs = append(errs, fmt.Errorf("oracle.moveTime must be positive"))
	}
	if o.Delay < 0 {
		errs = append(errs, fmt.Errorf("oracle.delay must not be negative"))
	}
	if o.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("oracle.maxTokens must be positive"))
	}

	return errors.Join(errs...)
}

// Enabled reports whether an oracle is configured
func (o Oracle) Enabled() bool {
	return o.Provider != "" && o.Provider != ProviderNone
}
