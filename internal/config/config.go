package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// DBDriverEnv is the environment variable for the database/sql driver name ("pgx" or "postgres").
	DBDriverEnv = "DB_DRIVER"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// DBSSLModeEnv is the environment variable for the database sslmode.
	DBSSLModeEnv = "DB_SSLMODE"

	// MigrationsPathEnv is the environment variable for the migrations source URL.
	MigrationsPathEnv = "MIGRATIONS_PATH"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// APIPrefixEnv is the environment variable for the path prefix of the product API.
	APIPrefixEnv = "API_PREFIX"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// OutboxPollIntervalEnv is the environment variable for the outbox polling interval.
	OutboxPollIntervalEnv = "OUTBOX_POLL_INTERVAL"

	// OutboxBatchSizeEnv is the environment variable for the number of events published per poll.
	OutboxBatchSizeEnv = "OUTBOX_BATCH_SIZE"
)

const (
	defaultDBDriver           = "pgx"
	defaultSSLMode            = "disable"
	defaultMigrationsPath     = "file://migrations"
	defaultAPIPrefix          = "/api"
	defaultOutboxPollInterval = 2 * time.Second
	defaultOutboxBatchSize    = 100
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")

	// ErrUnsupportedDriver is returned when DB_DRIVER names a driver the service does not register.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	AWS           AWSConfig
	Outbox        Outbox
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region      string
	Endpoint    string
	SQSQueueURL string
}

// DB represents database configuration settings.
type DB struct {
	Driver         string
	Host           string
	User           string
	Password       string
	Name           string
	Port           string
	SSLMode        string
	MigrationsPath string
}

// Server represents server configuration settings.
type Server struct {
	Port      string
	APIPrefix string
}

// Outbox represents the outbox worker settings.
type Outbox struct {
	PollInterval time.Duration
	BatchSize    int
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	// Validate database configuration
	if err := allNonEmpty(map[string]string{
		DBHostEnv: c.Database.Host,
		DBUserEnv: c.Database.User,
		DBNameEnv: c.Database.Name,
	}); err != nil {
		return fmt.Errorf("database configuration incomplete: %w", err)
	}

	switch c.Database.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Database.Driver)
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	// Validate port numbers
	if err := allNumbers(map[string]string{
		DBPortEnv:            c.Database.Port,
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if err := c.AWS.validate(); err != nil {
		return err
	}

	if c.Outbox.PollInterval <= 0 || c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox settings must be positive: interval=%s batch=%d", c.Outbox.PollInterval, c.Outbox.BatchSize)
	}

	return nil
}

func (a *AWSConfig) validate() error {
	if err := allNonEmpty(map[string]string{
		SQSQueueURLEnv: a.SQSQueueURL,
	}); err != nil {
		return fmt.Errorf("AWS configuration incomplete: %w", err)
	}
	return nil
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number for key %s: %w", name, err)
	}
	return val, nil
}

func getEnvAsDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for key %s: %w", name, err)
	}
	return val, nil
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func applyDefaultEnvFile() {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	if err := ApplyEnvFile(envPath); err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}
}

func loadAWS() AWSConfig {
	return AWSConfig{
		Region:      os.Getenv(AWSRegionEnv),
		Endpoint:    os.Getenv(AWSEndpointEnv),
		SQSQueueURL: os.Getenv(SQSQueueURLEnv),
	}
}

// LoadFromEnv loads the product service configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	applyDefaultEnvFile()

	pollInterval, err := getEnvAsDuration(OutboxPollIntervalEnv, defaultOutboxPollInterval)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	batchSize, err := getEnvAsInt(OutboxBatchSizeEnv, defaultOutboxBatchSize)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		Database: DB{
			Driver:         getEnv(DBDriverEnv, defaultDBDriver),
			Host:           os.Getenv(DBHostEnv),
			User:           os.Getenv(DBUserEnv),
			Password:       os.Getenv(DBPassEnv),
			Name:           os.Getenv(DBNameEnv),
			Port:           os.Getenv(DBPortEnv),
			SSLMode:        getEnv(DBSSLModeEnv, defaultSSLMode),
			MigrationsPath: getEnv(MigrationsPathEnv, defaultMigrationsPath),
		},
		HTTPServer: Server{
			Port:      os.Getenv(HTTPServerPortEnv),
			APIPrefix: getEnv(APIPrefixEnv, defaultAPIPrefix),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: loadAWS(),
		Outbox: Outbox{
			PollInterval: pollInterval,
			BatchSize:    batchSize,
		},
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

// LoadNotifierFromEnv loads only the settings the notification consumer needs.
func LoadNotifierFromEnv() (*Config, error) {
	applyDefaultEnvFile()

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		AWS:       loadAWS(),
	}
	if err := conf.AWS.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}
