// ABOUTME: Configuration for telemetry setup with environment overrides and validation
// ABOUTME: Selects the exporters a Pipeline is built with (stdout, otlp, prometheus)

package telemetry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds telemetry configuration.
type Config struct {
	// ServiceName is used as the instrumentation scope name
	ServiceName string `json:"service_name"`

	// ServiceVersion is used as the instrumentation scope version
	ServiceVersion string `json:"service_version"`

	// Enabled controls whether telemetry is active
	Enabled bool `json:"enabled"`

	// Exporters specifies which exporters a Pipeline uses (stdout, otlp, prometheus)
	Exporters []string `json:"exporters"`

	// OTLPEndpoint specifies the OTLP collector endpoint for traces
	OTLPEndpoint string `json:"otlp_endpoint"`

	// MetricInterval is how often metrics are pushed to the exporters
	MetricInterval time.Duration `json:"metric_interval"`
}

// DefaultConfig returns a disabled configuration with the rowcursor scope name.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "rowcursor",
		ServiceVersion: "development",
		Enabled:        false,
		Exporters:      []string{"stdout"},
		OTLPEndpoint:   "localhost:4317",
		MetricInterval: 30 * time.Second,
	}
}

// LoadFromEnv overrides fields from ROWCURSOR_TELEMETRY_* environment variables.
func (c *Config) LoadFromEnv() {
	if val := os.Getenv("ROWCURSOR_TELEMETRY_SERVICE_NAME"); val != "" {
		c.ServiceName = val
	}

	if val := os.Getenv("ROWCURSOR_TELEMETRY_SERVICE_VERSION"); val != "" {
		c.ServiceVersion = val
	}

	if val := os.Getenv("ROWCURSOR_TELEMETRY_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Enabled = enabled
		}
	}

	if val := os.Getenv("ROWCURSOR_TELEMETRY_EXPORTERS"); val != "" {
		c.Exporters = strings.Split(val, ",")
		for i := range c.Exporters {
			c.Exporters[i] = strings.TrimSpace(c.Exporters[i])
		}
	}

	if val := os.Getenv("ROWCURSOR_TELEMETRY_OTLP_ENDPOINT"); val != "" {
		c.OTLPEndpoint = val
	}

	if val := os.Getenv("ROWCURSOR_TELEMETRY_METRIC_INTERVAL"); val != "" {
		if interval, err := time.ParseDuration(val); err == nil {
			c.MetricInterval = interval
		}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name cannot be empty")
	}

	if c.ServiceVersion == "" {
		return fmt.Errorf("service_version cannot be empty")
	}

	if c.MetricInterval <= 0 {
		return fmt.Errorf("metric_interval must be positive, got %s", c.MetricInterval)
	}

	for _, exporter := range c.Exporters {
		switch exporter {
		case "stdout", "prometheus":
		case "otlp":
			if c.OTLPEndpoint == "" {
				return fmt.Errorf("otlp exporter requires otlp_endpoint")
			}
		default:
			return fmt.Errorf("unknown exporter %q", exporter)
		}
	}

	return nil
}
