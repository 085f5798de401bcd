package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the waitlist service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	SES      SESConfig      `yaml:"ses"`
	Notify   NotifyConfig   `yaml:"notify"`
	Worker   WorkerConfig   `yaml:"worker"`
	Admin    AdminConfig    `yaml:"admin"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// Lifetime returns the connection max lifetime as a duration.
func (c DatabaseConfig) Lifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Minute
}

// RedisConfig holds Redis settings for the signup rate limiter.
// Rate limiting is skipped entirely when URL is empty.
type RedisConfig struct {
	URL           string `yaml:"url"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	Enabled       bool   `yaml:"enabled"`
}

// SESConfig holds AWS SES API configuration.
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NotifyConfig holds lead-magnet notification settings. When Enabled is
// false the service is a plain waitlist: signups are recorded and nothing
// is sent.
type NotifyConfig struct {
	Enabled      bool   `yaml:"enabled"`
	FromName     string `yaml:"from_name"`
	FromEmail    string `yaml:"from_email"`
	ReplyTo      string `yaml:"reply_to"`
	Subject      string `yaml:"subject"`
	TemplatePath string `yaml:"template_path"`
	DocumentURL  string `yaml:"document_url"`
}

// WorkerConfig holds notification retry sweep settings.
type WorkerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
	MinAgeSeconds   int  `yaml:"min_age_seconds"`
	BatchSize       int  `yaml:"batch_size"`
}

// Interval returns the sweep interval as a duration.
func (c WorkerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// MinAge returns how long a signup must sit unnotified before the sweep
// picks it up, as a duration.
func (c WorkerConfig) MinAge() time.Duration {
	return time.Duration(c.MinAgeSeconds) * time.Second
}

// AdminConfig guards the read-only signup listing endpoints.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// CORSConfig holds the allowed browser origins for the public form.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Redis.RatePerMinute == 0 {
		cfg.Redis.RatePerMinute = 10
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "Your automations guide is here"
	}
	if cfg.Notify.TemplatePath == "" {
		cfg.Notify.TemplatePath = "templates/lead_magnet.html.liquid"
	}
	if cfg.Worker.IntervalSeconds == 0 {
		cfg.Worker.IntervalSeconds = 300
	}
	if cfg.Worker.MinAgeSeconds == 0 {
		cfg.Worker.MinAgeSeconds = 120
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 50
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
		cfg.Redis.Enabled = true
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if from := os.Getenv("NOTIFY_FROM_EMAIL"); from != "" {
		cfg.Notify.FromEmail = from
	}
	if v := os.Getenv("NOTIFY_ENABLED"); v == "true" {
		cfg.Notify.Enabled = true
	} else if v == "false" {
		cfg.Notify.Enabled = false
	}
	if token := os.Getenv("ADMIN_TOKEN"); token != "" {
		cfg.Admin.Token = token
	}

	return cfg, nil
}
