// Package config provides configuration management using viper.
// Values come from defaults, an optional config.yaml, a .env file and the
// environment, in increasing order of precedence.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	// Port "0" picks a free port, which tests rely on.
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the storage backend and how to reach it.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig configures the global token bucket. RPS 0 disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// KafkaConfig enables entry events when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. SERVER_PORT, DATABASE_DRIVER, KAFKA_BROKERS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration Load produces with no file or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: defaults do not unmarshal: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.user", "points")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "points_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "points.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "ledger.entries")

	v.SetDefault("metrics.enabled", true)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres, mysql or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for sqlite")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must not be negative")
	}
	return nil
}

// dbPort returns the configured port or the driver's well-known one.
func (d *DatabaseConfig) dbPort() int {
	if d.Port != 0 {
		return d.Port
	}
	if d.Driver == "mysql" {
		return 3306
	}
	return 5432
}

// GetDBConnectionString returns the DSN for the configured driver.
func (c *Config) GetDBConnectionString() string {
	d := c.Database
	switch d.Driver {
	case "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.dbPort())),
			Path:     "/" + d.Name,
			RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
		}
		if d.Password == "" {
			u.User = url.User(d.User)
		}
		return u.String()
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.dbPort()))
		mc.DBName = d.Name
		mc.ParseTime = true
		return mc.FormatDSN()
	default:
		if d.Path == ":memory:" {
			return ":memory:"
		}
		return "file:" + d.Path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
}
