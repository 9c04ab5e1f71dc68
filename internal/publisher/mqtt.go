package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/greenbutton/internal/config"
)

// ForecastMessage is the payload published for a prediction
type ForecastMessage struct {
	Utility         string             `json:"utility"`
	Model           string             `json:"model,omitempty"`
	Target          string             `json:"target"`
	Unit            string             `json:"unit"`
	Date            string             `json:"date"`
	Value           float64            `json:"value"`
	TemperatureC    float64            `json:"temperature_c"`
	PrecipitationMM float64            `json:"precipitation_mm"`
	Years           []int              `json:"years"`
	PerYear         map[string]float64 `json:"per_year"`
	GeneratedAt     string             `json:"generated_at"`
}

// Publisher handles publishing forecasts to MQTT and Home Assistant
type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	haConfig    config.HAConfig
	httpClient  *http.Client
}

// New creates a new publisher (supports both MQTT and HA HTTP API)
func New(cfg *config.Config) (*Publisher, error) {
	mqttCfg, haCfg := cfg.MQTT, cfg.HomeAssistant

	// Validate HA config if enabled
	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
	}

	var client mqtt.Client

	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		// Configure MQTT client options
		opts := mqtt.NewClientOptions()
		opts.AddBroker(brokerURL(mqttCfg.Broker))
		opts.SetClientID("greenbutton")
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(false)
		opts.SetConnectTimeout(10 * time.Second)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		// Create and connect client
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", token.Error())
		}
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.GetTopicPrefix(),
		haConfig:    haCfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Enabled reports whether any destination is configured
func (p *Publisher) Enabled() bool {
	return p.client != nil || p.haConfig.Enabled
}

// Topic returns the MQTT topic for a utility and target
func (p *Publisher) Topic(utility, target string) string {
	return fmt.Sprintf("%s/%s/%s/forecast", p.topicPrefix, utility, target)
}

// PublishForecast sends a forecast to every enabled destination
func (p *Publisher) PublishForecast(msg ForecastMessage) error {
	if !p.Enabled() {
		return fmt.Errorf("no publishing destination is enabled in config")
	}

	if p.client != nil {
		if err := p.publishMQTT(msg); err != nil {
			return err
		}
	}
	if p.haConfig.Enabled {
		if err := p.publishHA(msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishMQTT(msg ForecastMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	// Retained so subscribers see the latest forecast on connect
	token := p.client.Publish(p.Topic(msg.Utility, msg.Target), 1, true, body)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publishing to MQTT: timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to MQTT: %w", err)
	}
	return nil
}

// HAState matches the Home Assistant state API body
type HAState struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

// EntityID returns the Home Assistant sensor for a utility and target
func (p *Publisher) EntityID(utility, target string) string {
	prefix := p.haConfig.EntityID
	if prefix == "" {
		prefix = "sensor.greenbutton"
	}
	return fmt.Sprintf("%s_%s_%s_forecast", prefix, utility, target)
}

func (p *Publisher) publishHA(msg ForecastMessage) error {
	entityID := p.EntityID(msg.Utility, msg.Target)
	apiURL := fmt.Sprintf("%s/api/states/%s", strings.TrimRight(p.haConfig.URL, "/"), entityID)

	payload := HAState{
		State: fmt.Sprintf("%.2f", msg.Value),
		Attributes: map[string]any{
			"unit_of_measurement": msg.Unit,
			"model":               msg.Model,
			"forecast_date":       msg.Date,
			"temperature_c":       msg.TemperatureC,
			"precipitation_mm":    msg.PrecipitationMM,
			"years":               msg.Years,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// Read error response body for debugging
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}
