package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "config/config.yaml"

type Config struct {
	Env       string          `yaml:"env" env:"APP_ENV" env-default:"prod"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Polling   PollingConfig   `yaml:"polling"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

type TelemetryConfig struct {
	BaseURL    string        `yaml:"base_url" env:"THINGSPEAK_BASE_URL" env-default:"https://api.thingspeak.com"`
	ChannelID  string        `yaml:"channel_id" env:"THINGSPEAK_CHANNEL_ID" env-default:"2555475"`
	ReadAPIKey string        `yaml:"read_api_key" env:"THINGSPEAK_READ_API_KEY"`
	Timeout    time.Duration `yaml:"timeout" env-default:"10s"`
}

type PollingConfig struct {
	Interval  time.Duration `yaml:"interval" env:"POLL_INTERVAL" env-default:"5s"`
	Timeout   time.Duration `yaml:"timeout" env-default:"4s"`
	Immediate bool          `yaml:"immediate" env-default:"false"`
}

type HTTPConfig struct {
	Address string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	Refresh time.Duration `yaml:"refresh" env-default:"5s"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// MustLoad reads the config file, falling back to defaults and environment
// variables when no path was given and the default file does not exist.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func Load(configPath string) (*Config, error) {
	explicit := true
	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		configPath = defaultConfigPath
		explicit = false
	}

	var cfg Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Polling.Interval <= 0 {
		return errors.New("polling.interval must be positive")
	}
	if c.Polling.Timeout <= 0 {
		return errors.New("polling.timeout must be positive")
	}
	if c.HTTP.Refresh < 0 {
		return errors.New("http.refresh must not be negative")
	}
	if c.Telemetry.ChannelID == "" {
		return errors.New("telemetry.channel_id is required")
	}

	u, err := url.Parse(c.Telemetry.BaseURL)
	if err != nil {
		return fmt.Errorf("telemetry.base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("telemetry.base_url must be an absolute http(s) URL: %q", c.Telemetry.BaseURL)
	}

	return nil
}
