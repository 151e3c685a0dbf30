package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Valbows/NewDomo-sub006/internal/validator"
)

// Config holds all configuration for the service
type Config struct {
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`
	LogLevel    string `mapstructure:"logLevel" validate:"oneof=debug info warn error"`
	Server      struct {
		Port int `mapstructure:"port" validate:"gte=1,lte=65535"`
	} `mapstructure:"server"`
	Webhook struct {
		Secret          string `mapstructure:"secret"`          // HMAC secret for signature verification
		Token           string `mapstructure:"token"`           // Shared token fallback (query parameter)
		AllowUnverified bool   `mapstructure:"allowUnverified"` // Accept deliveries without any credential
	} `mapstructure:"webhook"`
	Database struct {
		PostgresDSN         string `mapstructure:"postgresDSN"`
		PostgresAutoMigrate bool   `mapstructure:"postgresAutoMigrate"`
	} `mapstructure:"database"`
	NATS struct {
		URL           string `mapstructure:"url"`           // Empty disables the live feed publisher
		Stream        string `mapstructure:"stream"`        // JetStream stream for event notifications
		SubjectPrefix string `mapstructure:"subjectPrefix"` // Base subject, demo id is appended
	} `mapstructure:"nats"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Sanitizer struct {
		MaxArrayLen   int      `mapstructure:"maxArrayLen"`   // Arrays longer than this are truncated
		MaxObjectKeys int      `mapstructure:"maxObjectKeys"` // Objects with more keys than this are truncated
		SensitiveKeys []string `mapstructure:"sensitiveKeys"` // Extra key substrings to redact
	} `mapstructure:"sanitizer"`
	WorkerPools struct {
		Analytics AnalyticsWorkerPoolConfig `mapstructure:"analytics"`
	} `mapstructure:"workerPools"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// RetentionConfig holds configuration for the processed-event ledger sweeper
type RetentionConfig struct {
	LedgerMaxAge  time.Duration `mapstructure:"ledgerMaxAge"`  // Zero disables the sweeper
	SweepInterval time.Duration `mapstructure:"sweepInterval"` // How often the sweeper runs
}

// AnalyticsWorkerPoolConfig holds configuration for the demo counter worker pool
type AnalyticsWorkerPoolConfig struct {
	PoolSize   int           `mapstructure:"poolSize"`   // Number of workers
	QueueSize  int           `mapstructure:"queueSize"`  // Task queue buffer size
	MaxBlock   time.Duration `mapstructure:"maxBlock"`   // Max time to block when submitting if queue full
	ExpiryTime time.Duration `mapstructure:"expiryTime"` // Idle worker expiry time
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	// Create new viper instance
	v := viper.New()

	// Set defaults
	v.SetDefault("environment", "development")
	v.SetDefault("logLevel", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("database.postgresAutoMigrate", true)

	// Sanitizer defaults
	v.SetDefault("sanitizer.maxArrayLen", 50)
	v.SetDefault("sanitizer.maxObjectKeys", 100)

	// NATS live feed defaults (disabled unless a URL is provided)
	v.SetDefault("nats.stream", "demo_events")
	v.SetDefault("nats.subjectPrefix", "v1.demo")

	// WorkerPools defaults
	v.SetDefault("workerPools.analytics.poolSize", 10)
	v.SetDefault("workerPools.analytics.queueSize", 10000)
	v.SetDefault("workerPools.analytics.maxBlock", time.Second)
	v.SetDefault("workerPools.analytics.expiryTime", time.Minute)

	// Retention defaults (sweeper off until a max age is configured)
	v.SetDefault("retention.ledgerMaxAge", time.Duration(0))
	v.SetDefault("retention.sweepInterval", time.Hour)

	// Config file settings
	v.SetConfigName("default") // name of config file (without extension)
	v.SetConfigType("yaml")    // REQUIRED if the config file does not have the extension in the name

	// Add lookup paths
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("/etc/demo-events-ingestor")

	// Try to read from config file
	if err := v.ReadInConfig(); err != nil {
		// It's ok if config file is not found, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map environment variables to config fields
	bindEnvs(v, Config{})

	// Read directly from ENV for critical values
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		v.Set("database.postgresDSN", dsn)
	}
	if lgLevel := os.Getenv("LOG_LEVEL"); lgLevel != "" {
		v.Set("logLevel", lgLevel)
	}
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		v.Set("webhook.secret", secret)
	}
	if token := os.Getenv("WEBHOOK_TOKEN"); token != "" {
		v.Set("webhook.token", token)
	}
	if url := os.Getenv("NATS_URL"); url != "" {
		v.Set("nats.url", url)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks field constraints and rejects configurations that would
// silently accept unauthenticated traffic in production. Development
// environments may run without credentials.
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return err
	}
	if c.Environment != "production" {
		return nil
	}
	if c.Webhook.Secret == "" && c.Webhook.Token == "" && !c.Webhook.AllowUnverified {
		return fmt.Errorf("production requires webhook.secret or webhook.token, or explicit webhook.allowUnverified")
	}
	return nil
}

// bindEnvs recursively binds environment variables to config struct fields
func bindEnvs(v *viper.Viper, cfg interface{}, parts ...string) {
	ifv := reflect.ValueOf(cfg)
	ift := reflect.TypeOf(cfg)
	for i := 0; i < ift.NumField(); i++ {
		fieldVal := ifv.Field(i)
		fieldType := ift.Field(i)

		// Get the field tag value (mapstructure)
		tag := fieldType.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		// Build the env var path
		path := append(parts, tag)
		key := strings.Join(path, ".")

		// If it's a struct, recursively bind its fields
		if fieldType.Type.Kind() == reflect.Struct {
			bindEnvs(v, fieldVal.Interface(), path...)
			continue
		}

		// Bind the env var
		_ = v.BindEnv(key)
	}
}
