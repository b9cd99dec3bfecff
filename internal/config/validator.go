package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate checks every section of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	snap := cfg.Snapshot()
	validateListener(&snap.Listener, result)
	validateStatus(&snap.Status, result)
	validateWebhook(&snap.Webhook, result)
	validateMQTT(&snap.MQTT, result)
	validateAPI(&snap.API, snap.Listener.Address, result)

	if snap.Health.HeartbeatIntervalSec < 0 || snap.Health.SummaryIntervalSec < 0 {
		result.AddError("health", "intervals must not be negative")
	} else if snap.Health.HeartbeatIntervalSec > 0 && snap.Health.HeartbeatIntervalSec < 10 {
		result.AddWarning("health.heartbeat_interval_sec",
			"heartbeat interval less than 10s may cause excessive traffic")
	}

	if _, err := zerolog.ParseLevel(snap.Logging.Level); err != nil {
		result.AddWarning("logging.level",
			fmt.Sprintf("unknown log level %q, falling back to info", snap.Logging.Level))
	}

	return result
}

func validateListener(l *ListenerConfig, result *ValidationResult) {
	validateAddress(l.Address, "listener.address", result)

	if l.ReadTimeoutSec < 0 {
		result.AddError("listener.read_timeout_sec", "must not be negative")
	}
	if l.MaxPacketLength < 0 {
		result.AddError("listener.max_packet_length", "must not be negative")
	}
}

func validateStatus(s *StatusConfig, result *ValidationResult) {
	// A missing template falls back to the built-in one; a configured icon
	// must exist.
	if s.TemplatePath != "" {
		if _, err := os.Stat(s.TemplatePath); os.IsNotExist(err) {
			result.AddWarning("status.template_path",
				fmt.Sprintf("file does not exist, using built-in template: %s", s.TemplatePath))
		}
	}
	if s.IconPath != "" {
		if _, err := os.Stat(s.IconPath); os.IsNotExist(err) {
			result.AddError("status.icon_path",
				fmt.Sprintf("couldn't find image at %s", s.IconPath))
		}
	}
}

func validateWebhook(w *WebhookConfig, result *ValidationResult) {
	if w.URL == "" {
		return
	}
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.AddError("webhook.url", fmt.Sprintf("invalid webhook URL: %s", w.URL))
	}
	if w.TimeoutSec < 0 {
		result.AddError("webhook.timeout_sec", "must not be negative")
	}
}

func validateMQTT(m *MQTTConfig, result *ValidationResult) {
	if !m.Enabled {
		return
	}
	if strings.TrimSpace(m.BrokerURL) == "" {
		result.AddError("mqtt.broker_url", "MQTT broker URL is required when enabled")
	}
	if m.Port < 1 || m.Port > 65535 {
		result.AddError("mqtt.port", "invalid MQTT port")
	}
	if (m.CertFile == "") != (m.KeyFile == "") {
		result.AddError("mqtt.cert_file", "cert_file and key_file must be set together")
	}
}

func validateAPI(a *APIConfig, listenAddr string, result *ValidationResult) {
	if !a.Enabled {
		return
	}
	validateAddress(a.Address, "api.address", result)
	if a.Address == listenAddr {
		result.AddError("api.address", "port conflict detected: API and listener share an address")
	}
}

func validateAddress(addr, field string, result *ValidationResult) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		result.AddError(field, fmt.Sprintf("invalid address %q: %v", addr, err))
		return
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		result.AddError(field, fmt.Sprintf("invalid port %q", portStr))
		return
	}
	validatePort(port, field, result)
}

func validatePort(port int, field string, result *ValidationResult) {
	// Port 0 asks the kernel for a free port.
	if port < 0 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 0-65535)", port))
		return
	}
	if port > 0 && port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}
