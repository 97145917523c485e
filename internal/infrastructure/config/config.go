package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Queue     QueueConfig
	Scheduler SchedulerConfig
	Sync      SyncConfig
	Crypto    CryptoConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// DSN builds the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig holds Redis connection settings. Redis is optional; when
// disabled the queue uses its in-memory dedup store.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns the host:port address.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// JWTConfig holds settings for the management API bearer tokens
type JWTConfig struct {
	Secret          string
	Issuer          string
	TokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// QueueConfig holds job queue configuration
type QueueConfig struct {
	Workers       int
	Capacity      int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	DedupTTL      time.Duration
}

// SchedulerConfig holds sync scheduler configuration
type SchedulerConfig struct {
	Enabled          bool
	CheckInterval    time.Duration
	MaxDuePerCycle   int
	CleanupInterval  time.Duration
	CleanupAfterDays int // completed jobs; failed jobs are kept twice as long
	HealthInterval   time.Duration
}

// SyncConfig holds sync processing defaults
type SyncConfig struct {
	ProductBatchSize    int
	StockBatchSize      int
	ImageFanout         int
	ImageBatchDelay     time.Duration
	DefaultTaxRate      float64
	MediaFolderName     string
	DefaultCurrency     string
	RequestRetries      int
	RequestRetryDelay   time.Duration
	RateLimitRetryAfter time.Duration
}

// CryptoConfig holds the credential sealing key
type CryptoConfig struct {
	// CredentialKey is the hex-encoded 32-byte key sealing tenant credentials.
	CredentialKey string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CATALOGSYNC_ prefix (e.g., CATALOGSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("CATALOGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			Issuer:          v.GetString("jwt.issuer"),
			TokenExpiration: v.GetDuration("jwt.token_expiration"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Queue: QueueConfig{
			Workers:       v.GetInt("queue.workers"),
			Capacity:      v.GetInt("queue.capacity"),
			MaxRetries:    v.GetInt("queue.max_retries"),
			RetryDelay:    v.GetDuration("queue.retry_delay"),
			MaxRetryDelay: v.GetDuration("queue.max_retry_delay"),
			DedupTTL:      v.GetDuration("queue.dedup_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          v.GetBool("scheduler.enabled"),
			CheckInterval:    v.GetDuration("scheduler.check_interval"),
			MaxDuePerCycle:   v.GetInt("scheduler.max_due_per_cycle"),
			CleanupInterval:  v.GetDuration("scheduler.cleanup_interval"),
			CleanupAfterDays: v.GetInt("scheduler.cleanup_after_days"),
			HealthInterval:   v.GetDuration("scheduler.health_interval"),
		},
		Sync: SyncConfig{
			ProductBatchSize:    v.GetInt("sync.product_batch_size"),
			StockBatchSize:      v.GetInt("sync.stock_batch_size"),
			ImageFanout:         v.GetInt("sync.image_fanout"),
			ImageBatchDelay:     v.GetDuration("sync.image_batch_delay"),
			DefaultTaxRate:      v.GetFloat64("sync.default_tax_rate"),
			MediaFolderName:     v.GetString("sync.media_folder_name"),
			DefaultCurrency:     v.GetString("sync.default_currency"),
			RequestRetries:      v.GetInt("sync.request_retries"),
			RequestRetryDelay:   v.GetDuration("sync.request_retry_delay"),
			RateLimitRetryAfter: v.GetDuration("sync.rate_limit_retry_after"),
		},
		Crypto: CryptoConfig{
			CredentialKey: v.GetString("crypto.credential_key"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers built-in defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "catalogsync")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "catalogsync")
	v.SetDefault("database.dbname", "catalogsync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.conn_max_idle_time", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("jwt.issuer", "catalogsync")
	v.SetDefault("jwt.token_expiration", 12*time.Hour)

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", time.Minute)
	v.SetDefault("http.max_header_bytes", 1<<20)

	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.capacity", 256)
	v.SetDefault("queue.max_retries", 3)
	v.SetDefault("queue.retry_delay", time.Minute)
	v.SetDefault("queue.max_retry_delay", 30*time.Minute)
	v.SetDefault("queue.dedup_ttl", 6*time.Hour)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.check_interval", time.Minute)
	v.SetDefault("scheduler.max_due_per_cycle", 50)
	v.SetDefault("scheduler.cleanup_interval", time.Hour)
	v.SetDefault("scheduler.cleanup_after_days", 7)
	v.SetDefault("scheduler.health_interval", 5*time.Minute)

	v.SetDefault("sync.product_batch_size", 50)
	v.SetDefault("sync.stock_batch_size", 100)
	v.SetDefault("sync.image_fanout", 5)
	v.SetDefault("sync.image_batch_delay", 500*time.Millisecond)
	v.SetDefault("sync.default_tax_rate", 19.0)
	v.SetDefault("sync.media_folder_name", "Catalog Sync")
	v.SetDefault("sync.default_currency", "EUR")
	v.SetDefault("sync.request_retries", 3)
	v.SetDefault("sync.request_retry_delay", 2*time.Second)
	v.SetDefault("sync.rate_limit_retry_after", 10*time.Second)
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("config: queue.workers must be positive")
	}
	if c.Queue.Capacity <= 0 {
		return fmt.Errorf("config: queue.capacity must be positive")
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("config: queue.max_retries must not be negative")
	}
	if c.Scheduler.CheckInterval <= 0 {
		return fmt.Errorf("config: scheduler.check_interval must be positive")
	}
	if c.Scheduler.MaxDuePerCycle <= 0 {
		return fmt.Errorf("config: scheduler.max_due_per_cycle must be positive")
	}
	if c.Scheduler.CleanupAfterDays <= 0 {
		return fmt.Errorf("config: scheduler.cleanup_after_days must be positive")
	}
	if c.Sync.ProductBatchSize <= 0 || c.Sync.StockBatchSize <= 0 {
		return fmt.Errorf("config: sync batch sizes must be positive")
	}
	if c.Sync.ImageFanout <= 0 {
		return fmt.Errorf("config: sync.image_fanout must be positive")
	}
	if c.Sync.DefaultTaxRate < 0 {
		return fmt.Errorf("config: sync.default_tax_rate must not be negative")
	}
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("config: jwt.secret is required in production")
		}
		if c.Crypto.CredentialKey == "" {
			return fmt.Errorf("config: crypto.credential_key is required in production")
		}
	}
	return nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
