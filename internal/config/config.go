package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override the config file
const EnvPrefix = "GREENBUTTON"

// Config holds the application configuration
type Config struct {
	StorageDir        string        `yaml:"storage_dir,omitempty" split_words:"true"`                                // Root of the partition tree (fallback: data)
	GraphsDir         string        `yaml:"graphs_dir,omitempty" split_words:"true"`                                 // Root of the chart tree (fallback: graphs)
	GoodYearThreshold float64       `yaml:"good_year_threshold,omitempty" split_words:"true" validate:"gte=0,lte=1"` // Minimum R² for a good linear year (fallback: 0.2)
	ForestThreshold   float64       `yaml:"forest_threshold,omitempty" split_words:"true" validate:"gte=0,lte=1"`    // R² a forest year must exceed (fallback: 0.4)
	Weather           WeatherConfig `yaml:"weather,omitempty"`
	MQTT              MQTTConfig    `yaml:"mqtt,omitempty"`
	HomeAssistant     HAConfig      `yaml:"home_assistant,omitempty" envconfig:"HOME_ASSISTANT"`
}

// WeatherConfig holds the forecast service settings
type WeatherConfig struct {
	APIKey    string        `yaml:"api_key,omitempty" split_words:"true"`
	BaseURL   string        `yaml:"base_url,omitempty" split_words:"true" validate:"omitempty,url"`
	Latitude  float64       `yaml:"latitude,omitempty" validate:"gte=-90,lte=90"`
	Longitude float64       `yaml:"longitude,omitempty" validate:"gte=-180,lte=180"`
	Timeout   time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
}

// MQTTConfig holds MQTT broker settings for publishing forecasts
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker" validate:"required_if=Enabled true"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty" split_words:"true"`
}

// HAConfig holds Home Assistant HTTP API configuration
type HAConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url" validate:"omitempty,url"`              // e.g., "http://homeassistant.local:8123"
	Token    string `yaml:"token" validate:"required_if=Enabled true"` // Long-lived access token
	EntityID string `yaml:"entity_id,omitempty" split_words:"true"`    // Prefix for forecast sensors, e.g. "sensor.greenbutton"
}

// Load reads the config file, applies environment overrides and validates the result
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	// Only variables that are set override the file
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// GetStorageDir returns the partition root with a default of "data"
func (c *Config) GetStorageDir() string {
	if c.StorageDir == "" {
		return "data"
	}
	return c.StorageDir
}

// GetGraphsDir returns the chart root with a default of "graphs"
func (c *Config) GetGraphsDir() string {
	if c.GraphsDir == "" {
		return "graphs"
	}
	return c.GraphsDir
}

// GetThreshold returns the good-year R² threshold with a default of 0.2
func (c *Config) GetThreshold() float64 {
	if c.GoodYearThreshold <= 0 {
		return 0.2
	}
	return c.GoodYearThreshold
}

// GetForestThreshold returns the R² a forest year must exceed with a default of 0.4
func (c *Config) GetForestThreshold() float64 {
	if c.ForestThreshold <= 0 {
		return 0.4
	}
	return c.ForestThreshold
}

// GetWeatherBaseURL returns the forecast service URL
func (c *Config) GetWeatherBaseURL() string {
	if c.Weather.BaseURL == "" {
		return "https://forecast.weathersourceapis.com"
	}
	return c.Weather.BaseURL
}

// GetLocation returns the forecast coordinates, defaulting to Mississauga, ON
func (c *Config) GetLocation() (lat, lon float64) {
	if c.Weather.Latitude == 0 && c.Weather.Longitude == 0 {
		return 43.677128, -79.633453
	}
	return c.Weather.Latitude, c.Weather.Longitude
}

// GetWeatherTimeout returns the forecast request timeout with a default of 10s
func (c *Config) GetWeatherTimeout() time.Duration {
	if c.Weather.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Weather.Timeout
}

// GetTopicPrefix returns the MQTT topic prefix with a default of "greenbutton"
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return "greenbutton"
	}
	return c.MQTT.TopicPrefix
}
