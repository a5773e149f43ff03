package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"econquant/internal/domain/models"
	"econquant/internal/usecase"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	Log         struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Host    string `yaml:"host" default:"0.0.0.0"`
		Port    int    `yaml:"port" default:"9090" validate:"gte=1,lte=65535"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Pipeline usecase.Settings    `yaml:"pipeline"`
	Params   models.ParameterSet `yaml:"params"`
}

// Default returns the configuration used when no file is given: development
// environment, json logs, metrics off, documented pipeline defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(err)
	}
	c.Pipeline = usecase.DefaultSettings()
	return &c
}

// Load reads and parses a YAML configuration file. Unset fields fall back
// to defaults before validation, so a partial file is fine.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables. Only operational knobs are overridable; strategy parameters
// stay in the file.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ECONQUANT_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("ECONQUANT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ECONQUANT_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("ECONQUANT_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ECONQUANT_METRICS_ENABLED: %w", err)
		}
		c.Metrics.Enabled = enabled
	}
	if v := os.Getenv("ECONQUANT_METRICS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ECONQUANT_METRICS_PORT: %w", err)
		}
		c.Metrics.Port = port
	}
	if v := os.Getenv("ECONQUANT_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("ECONQUANT_WORKERS: %w", err)
		}
		c.Pipeline.Optimization.MaxWorkers = workers
	}
	if v := os.Getenv("ECONQUANT_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ECONQUANT_TIMEOUT: %w", err)
		}
		c.Pipeline.Optimization.Timeout = timeout
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics.path is required when metrics are enabled")
	}
	return nil
}
