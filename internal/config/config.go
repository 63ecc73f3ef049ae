package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
	Auth      AuthConfig
	Delivery  DeliveryConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	BaseURL        string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// AuthConfig also carries the bootstrap admin credentials; when both are set
// the API creates the account on startup if it does not exist yet.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	ExpiryHours   int    `mapstructure:"expiry_hours"`
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// DeliveryConfig tunes the delivery worker. MaxRetries and the backoff curve
// are policy, not constants; deployments size them to their mail provider.
type DeliveryConfig struct {
	Workers      int           `mapstructure:"workers"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
	BaseDelay    time.Duration `mapstructure:"base_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("auth.expiry_hours", 24)
	viper.SetDefault("delivery.workers", 2)
	viper.SetDefault("delivery.poll_interval", 1*time.Second)
	viper.SetDefault("delivery.max_retries", 5)
	viper.SetDefault("delivery.base_delay", 10*time.Second)
	viper.SetDefault("delivery.max_delay", 10*time.Minute)
	viper.SetDefault("ratelimit.requests_per_second", 10)
	viper.SetDefault("ratelimit.burst", 20)
}
