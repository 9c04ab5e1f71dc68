package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.GetStorageDir())
	assert.Equal(t, "graphs", cfg.GetGraphsDir())
	assert.Equal(t, 0.2, cfg.GetThreshold())
	assert.Equal(t, 0.4, cfg.GetForestThreshold())
	assert.Equal(t, 10*time.Second, cfg.GetWeatherTimeout())
	assert.Equal(t, "greenbutton", cfg.GetTopicPrefix())
	assert.Equal(t, "https://forecast.weathersourceapis.com", cfg.GetWeatherBaseURL())

	lat, lon := cfg.GetLocation()
	assert.Equal(t, 43.677128, lat)
	assert.Equal(t, -79.633453, lon)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
storage_dir: /srv/meters
good_year_threshold: 0.5
forest_threshold: 0.6
weather:
  api_key: secret
  latitude: 40.7
  longitude: -74
  timeout: 3s
mqtt:
  enabled: true
  broker: localhost:1883
  topic_prefix: house
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/meters", cfg.GetStorageDir())
	assert.Equal(t, 0.5, cfg.GetThreshold())
	assert.Equal(t, 0.6, cfg.GetForestThreshold())
	assert.Equal(t, "secret", cfg.Weather.APIKey)
	assert.Equal(t, 3*time.Second, cfg.GetWeatherTimeout())
	assert.Equal(t, "house", cfg.GetTopicPrefix())
	assert.True(t, cfg.MQTT.Enabled)

	lat, lon := cfg.GetLocation()
	assert.Equal(t, 40.7, lat)
	assert.Equal(t, -74.0, lon)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "storage_dir: from-file\ngraphs_dir: charts\n")
	t.Setenv("GREENBUTTON_STORAGE_DIR", "from-env")
	t.Setenv("GREENBUTTON_WEATHER_API_KEY", "env-key")
	t.Setenv("GREENBUTTON_MQTT_TOPIC_PREFIX", "env-prefix")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.GetStorageDir())
	assert.Equal(t, "charts", cfg.GetGraphsDir())
	assert.Equal(t, "env-key", cfg.Weather.APIKey)
	assert.Equal(t, "env-prefix", cfg.GetTopicPrefix())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "threshold above one", content: "good_year_threshold: 1.5\n"},
		{name: "negative forest threshold", content: "forest_threshold: -0.1\n"},
		{name: "latitude out of range", content: "weather:\n  latitude: 120\n"},
		{name: "bad base url", content: "weather:\n  base_url: not a url\n"},
		{name: "mqtt without broker", content: "mqtt:\n  enabled: true\n"},
		{name: "home assistant without token", content: "home_assistant:\n  enabled: true\n  url: http://ha.local:8123\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "storage_dir: [unterminated\n"))
	assert.Error(t, err)
}
