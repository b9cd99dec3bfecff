// Package config handles configuration loading, validation, and persistence
// for the craftlure decoy server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultConfigDir         = "config"
	DefaultConfigFile        = "config.json"
	DefaultListenAddress     = "0.0.0.0:25565"
	DefaultAPIAddress        = "127.0.0.1:5000"
	DefaultTemplatePath      = "status_resp.json"
	DefaultWebhookTimeoutSec = 10
)

// Config is the root configuration structure.
type Config struct {
	mu   sync.RWMutex
	path string

	Listener ListenerConfig `json:"listener"`
	Status   StatusConfig   `json:"status"`
	Webhook  WebhookConfig  `json:"webhook"`
	MQTT     MQTTConfig     `json:"mqtt"`
	API      APIConfig      `json:"api"`
	Health   HealthConfig   `json:"health"`
	Logging  LoggingConfig  `json:"logging"`
}

// ListenerConfig holds the decoy listener settings.
type ListenerConfig struct {
	Address string `json:"address"`

	// Zero disables the idle read timeout.
	ReadTimeoutSec int `json:"read_timeout_sec"`

	// Zero accepts any declared packet length.
	MaxPacketLength int `json:"max_packet_length"`
}

// ReadTimeout returns the read timeout as a duration.
func (l ListenerConfig) ReadTimeout() time.Duration {
	return time.Duration(l.ReadTimeoutSec) * time.Second
}

// StatusConfig locates the status template and the server icon. An empty
// IconPath serves the status document without a favicon.
type StatusConfig struct {
	TemplatePath string `json:"template_path"`
	IconPath     string `json:"icon_path"`
}

// WebhookConfig holds outbound webhook settings. An empty URL disables it.
type WebhookConfig struct {
	URL        string `json:"url"`
	TimeoutSec int    `json:"timeout_sec"`
}

// Timeout returns the delivery timeout as a duration.
func (w WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSec) * time.Second
}

// MQTTConfig holds MQTT telemetry settings.
type MQTTConfig struct {
	Enabled     bool   `json:"enabled"`
	BrokerURL   string `json:"broker_url"`
	Port        int    `json:"port"`
	UseTLS      bool   `json:"use_tls"`
	CertFile    string `json:"cert_file"`
	KeyFile     string `json:"key_file"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

// APIConfig holds the admin API settings.
type APIConfig struct {
	Enabled        bool     `json:"enabled"`
	Address        string   `json:"address"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// HealthConfig holds the periodic check intervals. Zero disables a check.
type HealthConfig struct {
	HeartbeatIntervalSec int `json:"heartbeat_interval_sec"`
	SummaryIntervalSec   int `json:"summary_interval_sec"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `json:"level"`
	Directory  string `json:"directory"`
	MaxBackups int    `json:"max_backups"`
	Console    bool   `json:"console"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listener: ListenerConfig{
			Address: DefaultListenAddress,
		},
		Status: StatusConfig{
			TemplatePath: DefaultTemplatePath,
		},
		Webhook: WebhookConfig{
			TimeoutSec: DefaultWebhookTimeoutSec,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Port:        1883,
			TopicPrefix: "craftlure",
		},
		API: APIConfig{
			Enabled: false,
			Address: DefaultAPIAddress,
		},
		Health: HealthConfig{
			HeartbeatIntervalSec: 60,
			SummaryIntervalSec:   300,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Directory:  "logs",
			MaxBackups: 5,
			Console:    true,
		},
	}
}

// Load reads configuration from a JSON file in configDir. A missing file
// is created from the defaults.
func Load(configDir string) (*Config, error) {
	configPath := filepath.Join(configDir, DefaultConfigFile)

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", configPath).Msg("config file not found, creating default")
			cfg := DefaultConfig()
			cfg.path = configPath
			if saveErr := cfg.Save(); saveErr != nil {
				return nil, fmt.Errorf("failed to save default config: %w", saveErr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")

	// Re-save so the file always lists every option known to this build.
	if saveErr := cfg.Save(); saveErr != nil {
		log.Warn().Err(saveErr).Msg("failed to re-save config with updated defaults")
	}

	return cfg, nil
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// Snapshot returns a copy of the configuration sections for read-only use.
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Config{
		path:     c.path,
		Listener: c.Listener,
		Status:   c.Status,
		Webhook:  c.Webhook,
		MQTT:     c.MQTT,
		API:      c.API,
		Health:   c.Health,
		Logging:  c.Logging,
	}
}

// Overrides carries command-line values that take precedence over the file.
// Empty fields leave the file value in place.
type Overrides struct {
	ListenAddress string
	WebhookURL    string
	IconPath      string
	TemplatePath  string
	LogLevel      string
}

// Apply overlays non-empty overrides onto the configuration.
func (c *Config) Apply(o Overrides) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.ListenAddress != "" {
		c.Listener.Address = o.ListenAddress
	}
	if o.WebhookURL != "" {
		c.Webhook.URL = o.WebhookURL
	}
	if o.IconPath != "" {
		c.Status.IconPath = o.IconPath
	}
	if o.TemplatePath != "" {
		c.Status.TemplatePath = o.TemplatePath
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}
