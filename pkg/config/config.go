package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/gateways/ttn"
)

const (
	defaultDeviceConfigPath = "devices.yaml"
	defaultInterval         = 60 * time.Second
	defaultRequestTimeout   = 10 * time.Second
	defaultMaxRetries       = 2
	defaultListenAddr       = ":8080"
	defaultLogLevel         = "info"

	defaultFilterCapacity         = 1000000
	defaultDuplicationProbability = 0.01
	defaultFilterResetUsage       = 75
)

// Config holds runtime configuration for the emulator daemon.
type Config struct {
	TTN              entities.IntegrationTTNConfig
	BaseURL          string
	DeviceConfigPath string
	DefaultInterval  time.Duration
	MaxLogs          int
	RequestTimeout   time.Duration
	MaxRetries       uint64
	ListenAddr       string
	BearerToken      string
	AMQPURL          string
	LogLevel         string

	DuplicationFilter      bool
	FilterCapacity         uint
	DuplicationProbability float64
	FilterResetUsage       float32
}

// Load reads configuration from environment variables (optionally .env)
// and validates the network-application settings.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		TTN: entities.IntegrationTTNConfig{
			AppID:      strings.TrimSpace(os.Getenv("TTN_APP_ID")),
			APIKey:     strings.TrimSpace(os.Getenv("TTN_API_KEY")),
			WebhookURL: strings.TrimSpace(os.Getenv("TTN_WEBHOOK_URL")),
			Region:     strings.TrimSpace(os.Getenv("TTN_REGION")),
		},
		BaseURL:          strings.TrimSpace(os.Getenv("TTN_BASE_URL")),
		DeviceConfigPath: envOrDefault("DEVICE_CONFIG_FILEPATH", defaultDeviceConfigPath),
		DefaultInterval:  defaultInterval,
		MaxLogs:          ttn.DefaultMaxLogs,
		RequestTimeout:   defaultRequestTimeout,
		MaxRetries:       defaultMaxRetries,
		ListenAddr:       envOrDefault("LISTEN_ADDR", defaultListenAddr),
		BearerToken:      strings.TrimSpace(os.Getenv("API_BEARER_TOKEN")),
		AMQPURL:          strings.TrimSpace(os.Getenv("AMQP_URL")),
		LogLevel:         envOrDefault("LOG_LEVEL", defaultLogLevel),

		FilterCapacity:         defaultFilterCapacity,
		DuplicationProbability: defaultDuplicationProbability,
		FilterResetUsage:       defaultFilterResetUsage,
	}

	if result := ttn.ValidateConfig(cfg.TTN); !result.Valid {
		return cfg, fmt.Errorf("invalid TTN configuration: %s", strings.Join(result.Errors, "; "))
	}

	if v := strings.TrimSpace(os.Getenv("EMULATOR_DEFAULT_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid EMULATOR_DEFAULT_INTERVAL: %w", err)
		}
		cfg.DefaultInterval = d
	}

	if v := strings.TrimSpace(os.Getenv("EMULATOR_MAX_LOGS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid EMULATOR_MAX_LOGS: %q", v)
		}
		cfg.MaxLogs = n
	}

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("MAX_RETRIES")); v != "" {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			return cfg, fmt.Errorf("invalid MAX_RETRIES: %q", v)
		}
		cfg.MaxRetries = n
	}

	duplicationFilter := strings.TrimSpace(os.Getenv("DUPLICATION_FILTER"))
	cfg.DuplicationFilter = duplicationFilter == "1" || strings.EqualFold(duplicationFilter, "true")

	if v := strings.TrimSpace(os.Getenv("FILTER_CAPACITY")); v != "" {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			return cfg, fmt.Errorf("invalid FILTER_CAPACITY: %q", v)
		}
		cfg.FilterCapacity = uint(n)
	}

	if v := strings.TrimSpace(os.Getenv("DUPLICATION_PROBABILITY")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid DUPLICATION_PROBABILITY: %q", v)
		}
		cfg.DuplicationProbability = f
	}

	if v := strings.TrimSpace(os.Getenv("RESET_FILTER_USAGE_PERCENTAGE")); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return cfg, fmt.Errorf("invalid RESET_FILTER_USAGE_PERCENTAGE: %q", v)
		}
		cfg.FilterResetUsage = float32(f)
	}

	return cfg, nil
}

func envOrDefault(variableName, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(variableName))
	if value != "" {
		return value
	}
	return defaultValue
}
