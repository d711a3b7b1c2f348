// Package config loads tickertape settings.
//
// Sources are layered: built-in defaults, then an optional YAML file, then
// environment variables. A .env file in the working directory is loaded into
// the environment by the command before Load runs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`

	OpenAI   OpenAI   `yaml:"openai"`
	Tavily   Tavily   `yaml:"tavily"`
	Pipeline Pipeline `yaml:"pipeline"`
	Hub      Hub      `yaml:"hub"`
	Server   Server   `yaml:"server"`
	NATS     NATS     `yaml:"nats"`
	Temporal Temporal `yaml:"temporal"`
}

type OpenAI struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

type Tavily struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type Pipeline struct {
	StageTimeout time.Duration `yaml:"stage_timeout"`
	SearchDepth  string        `yaml:"search_depth"`
	MaxResults   int           `yaml:"max_results"`
}

type Hub struct {
	Capacity       int `yaml:"capacity"`
	ObserverBuffer int `yaml:"observer_buffer"`
}

type Server struct {
	// RateLimit is the sustained number of analyses per second accepted
	// across all clients. Zero disables limiting.
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	KeepAlive       time.Duration `yaml:"keep_alive"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NATS enables distributed mode when URL is set.
type NATS struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Temporal enables durable mode when Enabled is set.
type Temporal struct {
	Enabled   bool   `yaml:"enabled"`
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
	// EmbeddedWorker runs a worker inside the serve process.
	EmbeddedWorker bool `yaml:"embedded_worker"`
}

func Default() Config {
	return Config{
		ListenAddr: ":3000",
		LogLevel:   "info",
		OpenAI: OpenAI{
			Model:       "gpt-4o",
			Temperature: 0.7,
		},
		Pipeline: Pipeline{
			StageTimeout: 60 * time.Second,
			SearchDepth:  "advanced",
			MaxResults:   5,
		},
		Hub: Hub{
			Capacity:       100,
			ObserverBuffer: 64,
		},
		Server: Server{
			RateLimit:       2,
			RateBurst:       5,
			KeepAlive:       15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		NATS: NATS{
			Subject: "tickertape.logs",
		},
		Temporal: Temporal{
			Address:   "localhost:7233",
			Namespace: "default",
			TaskQueue: "tickertape-analysis",
		},
	}
}

// Load reads the configuration from path, or from TICKERTAPE_CONFIG when path is
// empty, and applies the process environment on top.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with a custom environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = getenv("TICKERTAPE_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("TICKERTAPE_LISTEN_ADDR", &cfg.ListenAddr)
	str("TICKERTAPE_LOG_LEVEL", &cfg.LogLevel)

	str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	str("TICKERTAPE_MODEL", &cfg.OpenAI.Model)

	str("TAVILY_API_KEY", &cfg.Tavily.APIKey)

	dur("TICKERTAPE_STAGE_TIMEOUT", &cfg.Pipeline.StageTimeout)
	num("TICKERTAPE_MAX_RESULTS", &cfg.Pipeline.MaxResults)
	num("TICKERTAPE_HUB_CAPACITY", &cfg.Hub.Capacity)

	str("NATS_URL", &cfg.NATS.URL)
	str("TICKERTAPE_NATS_SUBJECT", &cfg.NATS.Subject)

	flag("TICKERTAPE_TEMPORAL", &cfg.Temporal.Enabled)
	str("TEMPORAL_ADDRESS", &cfg.Temporal.Address)
	str("TEMPORAL_NAMESPACE", &cfg.Temporal.Namespace)
	str("TICKERTAPE_TASK_QUEUE", &cfg.Temporal.TaskQueue)

	return errors.Join(errs...)
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		errs = append(errs, errors.New("openai api key is required (OPENAI_API_KEY)"))
	}
	if strings.TrimSpace(c.OpenAI.Model) == "" {
		errs = append(errs, errors.New("openai model is required"))
	}
	if strings.TrimSpace(c.Tavily.APIKey) == "" {
		errs = append(errs, errors.New("tavily api key is required (TAVILY_API_KEY)"))
	}
	switch c.Pipeline.SearchDepth {
	case "basic", "advanced":
	default:
		errs = append(errs, fmt.Errorf("search depth must be basic or advanced, got %q", c.Pipeline.SearchDepth))
	}
	if c.Pipeline.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("max results must be positive, got %d", c.Pipeline.MaxResults))
	}
	if c.Pipeline.StageTimeout < 0 {
		errs = append(errs, fmt.Errorf("stage timeout can't be negative, got %s", c.Pipeline.StageTimeout))
	}
	if c.Hub.Capacity < 1 {
		errs = append(errs, fmt.Errorf("hub capacity must be positive, got %d", c.Hub.Capacity))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit can't be negative, got %v", c.Server.RateLimit))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}
