package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "MEDAPP"

type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	JWT         JWTConfig        `mapstructure:"jwt"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Push        PushConfig       `mapstructure:"push"`
	Scheduling  SchedulingConfig `mapstructure:"scheduling"`
	Sweeps      SweepsConfig     `mapstructure:"sweeps"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type PushConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	ProjectID       string        `mapstructure:"project_id"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

type SchedulingConfig struct {
	// Timezone in which appointment date and time are interpreted.
	Timezone         string `mapstructure:"timezone"`
	PersistReminders bool   `mapstructure:"persist_reminders"`
}

// Location resolves Timezone.
func (s SchedulingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

type SweepsConfig struct {
	// Embedded runs the scheduler inside the API process.
	Embedded                   bool   `mapstructure:"embedded"`
	BatchSize                  int    `mapstructure:"batch_size"`
	MaxBatches                 int    `mapstructure:"max_batches"`
	ReminderSpec               string `mapstructure:"reminder_spec"`
	NotificationRetentionSpec  string `mapstructure:"notification_retention_spec"`
	AppointmentRetentionSpec   string `mapstructure:"appointment_retention_spec"`
	NotificationRetentionDays  int    `mapstructure:"notification_retention_days"`
	AppointmentRetentionMonths int    `mapstructure:"appointment_retention_months"`
	HealthPort                 int    `mapstructure:"health_port"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	ClientTTL         time.Duration `mapstructure:"client_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// secrets are only ever read from the environment.
type secrets struct {
	JWTSecret          string `envconfig:"JWT_SECRET"`
	DBPassword         string `envconfig:"DB_PASSWORD"`
	RedisURL           string `envconfig:"REDIS_URL"`
	FCMCredentialsFile string `envconfig:"FCM_CREDENTIALS_FILE"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "appointments")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("jwt.issuer", "appointment-api")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "notifications")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("push.enabled", false)
	v.SetDefault("push.send_timeout", 10*time.Second)
	v.SetDefault("push.breaker_failures", 5)
	v.SetDefault("push.breaker_cooldown", 30*time.Second)

	v.SetDefault("scheduling.timezone", "UTC")
	v.SetDefault("scheduling.persist_reminders", true)

	v.SetDefault("sweeps.embedded", false)
	v.SetDefault("sweeps.batch_size", 500)
	v.SetDefault("sweeps.max_batches", 20)
	v.SetDefault("sweeps.reminder_spec", "@every 1m")
	v.SetDefault("sweeps.notification_retention_spec", "0 0 * * *")
	v.SetDefault("sweeps.appointment_retention_spec", "0 0 * * *")
	v.SetDefault("sweeps.notification_retention_days", 7)
	v.SetDefault("sweeps.appointment_retention_months", 1)
	v.SetDefault("sweeps.health_port", 8081)

	v.SetDefault("rate_limit.requests_per_second", 20)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.client_ttl", 10*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// LoadConfig reads an optional .env file, then the config file (config.yml
// from the usual locations when file is empty), then the MEDAPP_* environment.
func LoadConfig(file string) (*Config, error) {
	_ = godotenv.Load()
	return Load(file)
}

// Load reads configuration from file (or the default search path when file
// is empty) and applies environment overrides.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	config.applySecrets(s)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applySecrets(s secrets) {
	if s.JWTSecret != "" {
		c.JWT.Secret = s.JWTSecret
	}
	if s.DBPassword != "" {
		c.Database.Password = s.DBPassword
	}
	if s.RedisURL != "" {
		c.Redis.URL = s.RedisURL
	}
	if s.FCMCredentialsFile != "" {
		c.Push.CredentialsFile = s.FCMCredentialsFile
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required (set " + EnvPrefix + "_JWT_SECRET)")
	}
	if _, err := c.Scheduling.Location(); err != nil {
		return err
	}
	if c.Sweeps.BatchSize <= 0 {
		return fmt.Errorf("sweeps.batch_size must be positive, got %d", c.Sweeps.BatchSize)
	}
	if c.Sweeps.MaxBatches <= 0 {
		return fmt.Errorf("sweeps.max_batches must be positive, got %d", c.Sweeps.MaxBatches)
	}
	if c.Sweeps.NotificationRetentionDays <= 0 || c.Sweeps.AppointmentRetentionMonths <= 0 {
		return errors.New("retention windows must be positive")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return errors.New("redis.url is required when redis is enabled")
	}
	return nil
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
