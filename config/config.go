package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server configuration; the listen address comes from pocketbase's --http flag
	Environment string `yaml:"environment"`

	// Redis configuration
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// PubNub configuration
	PubNubPublishKey   string `yaml:"pubnub_publish_key"`
	PubNubSubscribeKey string `yaml:"pubnub_subscribe_key"`
	PubNubSecretKey    string `yaml:"pubnub_secret_key"`

	// Ticket store backend: "pocketbase" or "redis"
	TicketStore string `yaml:"ticket_store"`

	// Scanner authentication: "record", "device" or "disabled"
	AuthProvider string `yaml:"auth_provider"`
	ScannerRole  string `yaml:"scanner_role"`
	// ScannerKeys maps scanner id to the bcrypt hash of its device key.
	ScannerKeys map[string]string `yaml:"scanner_keys"`

	Credential CredentialConfig `yaml:"credential"`

	// Scan attempt limiting, 0 disables it
	ScanAttemptLimit  int           `yaml:"scan_attempt_limit"`
	ScanAttemptWindow time.Duration `yaml:"scan_attempt_window"`
	// Scan requests per client address per minute, 0 disables it
	ScanRequestLimit int `yaml:"scan_request_limit"`

	// Monitoring
	EnableMetrics bool `yaml:"enable_metrics"`
}

// CredentialConfig controls the one-time code and the payload age bound.
type CredentialConfig struct {
	Period time.Duration `yaml:"period"`
	Digits int           `yaml:"digits"`
	// Skew is the number of intervals accepted on each side of the current one.
	Skew   uint          `yaml:"skew"`
	MaxAge time.Duration `yaml:"max_age"`
	QRSize int           `yaml:"qr_size"`
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		TicketStore: getEnv("TICKET_STORE", "pocketbase"),

		// Auth
		AuthProvider: getEnv("AUTH_PROVIDER", "record"),
		ScannerRole:  getEnv("SCANNER_ROLE", "scanner"),
		ScannerKeys:  getEnvAsMap("SCANNER_KEYS"),

		// Credentials
		Credential: CredentialConfig{
			Period: getEnvAsDuration("CREDENTIAL_PERIOD", "30s"),
			Digits: getEnvAsInt("CREDENTIAL_DIGITS", 6),
			Skew:   uint(getEnvAsInt("CREDENTIAL_SKEW", 1)),
			MaxAge: getEnvAsDuration("CREDENTIAL_MAX_AGE", "5m"),
			QRSize: getEnvAsInt("QR_SIZE", 256),
		},

		// Attempts
		ScanAttemptLimit:  getEnvAsInt("SCAN_ATTEMPT_LIMIT", 0),
		ScanAttemptWindow: getEnvAsDuration("SCAN_ATTEMPT_WINDOW", "1m"),
		ScanRequestLimit:  getEnvAsInt("SCAN_REQUEST_LIMIT", 0),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

// Load reads the environment and then overlays the YAML file named by
// CONFIG_FILE, if any. Keys absent from the file keep their env value.
func Load() (*Config, error) {
	cfg := LoadConfig()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Credential.Period < time.Second {
		return fmt.Errorf("config: credential period must be at least 1s, got %s", c.Credential.Period)
	}
	if c.Credential.Period%time.Second != 0 {
		return fmt.Errorf("config: credential period must be whole seconds, got %s", c.Credential.Period)
	}
	if c.Credential.Digits != 6 && c.Credential.Digits != 8 {
		return fmt.Errorf("config: credential digits must be 6 or 8, got %d", c.Credential.Digits)
	}
	if c.Credential.MaxAge <= 0 {
		return fmt.Errorf("config: credential max age must be positive")
	}
	if c.ScanAttemptLimit > 0 && c.ScanAttemptWindow <= 0 {
		return fmt.Errorf("config: scan attempt window must be positive when the limit is on, got %s", c.ScanAttemptWindow)
	}
	switch c.TicketStore {
	case "pocketbase", "redis":
	default:
		return fmt.Errorf("config: unknown ticket store %q", c.TicketStore)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsMap parses comma separated "id:value" pairs.
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(getEnv(key, ""), ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, ":")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
