package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Simulator   SimulatorConfig   `mapstructure:"simulator"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	ReadTimeout     string   `mapstructure:"read_timeout"`
	WriteTimeout    string   `mapstructure:"write_timeout"`
	IdleTimeout     string   `mapstructure:"idle_timeout"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout"`
	AdminAPIKey     string   `mapstructure:"admin_api_key"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SimulatorConfig struct {
	Window            int     `mapstructure:"window"`
	TickInterval      string  `mapstructure:"tick_interval"`
	DefaultVolatility float64 `mapstructure:"default_volatility"`
	DefaultStart      float64 `mapstructure:"default_start"`
}

type LeaderboardConfig struct {
	DeploySchedule    string  `mapstructure:"deploy_schedule"`
	DeployProbability float64 `mapstructure:"deploy_probability"`
	MaxTraders        int     `mapstructure:"max_traders"`
	SeedTraders       bool    `mapstructure:"seed_traders"`
}

type MonitorConfig struct {
	SampleInterval  string  `mapstructure:"sample_interval"`
	CPUThreshold    float64 `mapstructure:"cpu_threshold"`
	MemoryThreshold float64 `mapstructure:"memory_threshold"`
}

// GetSampleInterval returns how often host load is sampled.
func (m MonitorConfig) GetSampleInterval() time.Duration {
	return parseDurationOr(m.SampleInterval, 30*time.Second)
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Exporter       string `mapstructure:"exporter"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	LogLevel       string `mapstructure:"log_level"`
}

// IsDevelopment reports whether error details may be shown to visitors.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// GetTickInterval returns the parsed live tick period.
func (s SimulatorConfig) GetTickInterval() time.Duration {
	return parseDurationOr(s.TickInterval, time.Second)
}

func (s ServerConfig) GetReadTimeout() time.Duration {
	return parseDurationOr(s.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout is zero by default so long-lived SSE responses are not cut.
func (s ServerConfig) GetWriteTimeout() time.Duration {
	return parseDurationOr(s.WriteTimeout, 0)
}

func (s ServerConfig) GetIdleTimeout() time.Duration {
	return parseDurationOr(s.IdleTimeout, 60*time.Second)
}

func (s ServerConfig) GetShutdownTimeout() time.Duration {
	return parseDurationOr(s.ShutdownTimeout, 30*time.Second)
}

// Addr returns the redis host:port pair.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	viper.Reset()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(strings.TrimSpace(config.Environment))
	config.Telemetry.Exporter = strings.ToLower(strings.TrimSpace(config.Telemetry.Exporter))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	durations := map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"simulator.tick_interval": c.Simulator.TickInterval,
		"monitor.sample_interval": c.Monitor.SampleInterval,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s duration: %w", key, err)
		}
	}
	if c.Simulator.TickInterval != "" && c.Simulator.GetTickInterval() <= 0 {
		return fmt.Errorf("simulator tick interval must be positive, got %s", c.Simulator.TickInterval)
	}

	if c.Simulator.Window < 2 {
		return fmt.Errorf("simulator window must be at least 2, got %d", c.Simulator.Window)
	}
	if c.Simulator.DefaultStart <= 0 {
		return fmt.Errorf("simulator default start must be positive, got %v", c.Simulator.DefaultStart)
	}
	if c.Simulator.DefaultVolatility < 0 {
		return fmt.Errorf("simulator default volatility must not be negative, got %v", c.Simulator.DefaultVolatility)
	}

	if c.Leaderboard.DeployProbability < 0 || c.Leaderboard.DeployProbability > 1 {
		return fmt.Errorf("leaderboard deploy probability must be between 0 and 1, got %v", c.Leaderboard.DeployProbability)
	}
	if c.Leaderboard.MaxTraders < 1 {
		return fmt.Errorf("leaderboard max traders must be positive, got %d", c.Leaderboard.MaxTraders)
	}

	if c.Monitor.CPUThreshold < 0 || c.Monitor.CPUThreshold > 100 {
		return fmt.Errorf("monitor cpu threshold must be between 0 and 100, got %v", c.Monitor.CPUThreshold)
	}
	if c.Monitor.MemoryThreshold < 0 || c.Monitor.MemoryThreshold > 100 {
		return fmt.Errorf("monitor memory threshold must be between 0 and 100, got %v", c.Monitor.MemoryThreshold)
	}

	switch c.Telemetry.Exporter {
	case "stdout", "otlp", "none", "":
	default:
		return fmt.Errorf("telemetry exporter must be one of stdout, otlp, none; got %q", c.Telemetry.Exporter)
	}

	return nil
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "0s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.admin_api_key", "")

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Simulator
	viper.SetDefault("simulator.window", 50)
	viper.SetDefault("simulator.tick_interval", "1s")
	viper.SetDefault("simulator.default_volatility", 2.0)
	viper.SetDefault("simulator.default_start", 100.0)

	// Leaderboard
	viper.SetDefault("leaderboard.deploy_schedule", "@every 5s")
	viper.SetDefault("leaderboard.deploy_probability", 0.3)
	viper.SetDefault("leaderboard.max_traders", 12)
	viper.SetDefault("leaderboard.seed_traders", true)

	// Monitor
	viper.SetDefault("monitor.sample_interval", "30s")
	viper.SetDefault("monitor.cpu_threshold", 90.0)
	viper.SetDefault("monitor.memory_threshold", 90.0)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "stdout")
	viper.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	viper.SetDefault("telemetry.service_name", "claw-quants")
	viper.SetDefault("telemetry.service_version", "1.0.0")
	viper.SetDefault("telemetry.log_level", "info")
}
