package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Secret Box controller.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Engine    EngineConfig    `yaml:"engine"`
	Show      ShowConfig      `yaml:"show"`
	GPIO      GPIOConfig      `yaml:"gpio"`
	Sound     SoundConfig     `yaml:"sound"`
	Commands  CommandsConfig  `yaml:"commands"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig identifies the installation (one escape room, one box).
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// EngineConfig contains chain engine settings.
type EngineConfig struct {
	// TimerPoolSize is the number of hardware timer slots. Each armed chain
	// holds one.
	TimerPoolSize int `yaml:"timer_pool_size"`

	// DefaultStepDelayMS is applied to show steps that omit delay_ms.
	DefaultStepDelayMS int `yaml:"default_step_delay_ms"`

	// InputPollMS is how often input pins are sampled. 0 disables polling.
	InputPollMS int `yaml:"input_poll_ms"`
}

// ShowConfig points at the show file describing pins, patterns and chains.
type ShowConfig struct {
	Path string `yaml:"path"`
}

// GPIOConfig selects the pin driver.
type GPIOConfig struct {
	// Driver is "memory" (bench/tests) or "rpio" (Raspberry Pi).
	Driver  string `yaml:"driver"`
	Outputs []int  `yaml:"outputs"`
	Inputs  []int  `yaml:"inputs"`
}

// SoundConfig selects where PlaySound requests go.
type SoundConfig struct {
	// Sink is "mqtt" or "log".
	Sink  string `yaml:"sink"`
	Topic string `yaml:"topic"`
}

// CommandsConfig controls the I2C command bridge.
type CommandsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Policy is "append" or "oneshot".
	Policy string `yaml:"policy"`
	// Target is the chain the append policy extends.
	Target string `yaml:"target"`
}

// DatabaseConfig contains SQLite database settings for run history.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// AccessTokenTTL is in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SECRETBOX_SECTION_KEY
// For example: SECRETBOX_SHOW_PATH, SECRETBOX_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults for a bench setup:
// in-memory GPIO, sounds logged, network services off.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "box-001",
			Name: "Secret Box",
		},
		Engine: EngineConfig{
			TimerPoolSize:      4,
			DefaultStepDelayMS: 0,
			InputPollMS:        50,
		},
		Show: ShowConfig{
			Path: "./configs/show.yaml",
		},
		GPIO: GPIOConfig{
			Driver: "memory",
		},
		Sound: SoundConfig{
			Sink:  "log",
			Topic: "secretbox/sound/play",
		},
		Commands: CommandsConfig{
			Policy: "oneshot",
		},
		Database: DatabaseConfig{
			Path:        "./data/secretbox.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "secretbox-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SECRETBOX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Show
	if v := os.Getenv("SECRETBOX_SHOW_PATH"); v != "" {
		cfg.Show.Path = v
	}

	// GPIO
	if v := os.Getenv("SECRETBOX_GPIO_DRIVER"); v != "" {
		cfg.GPIO.Driver = v
	}

	// Engine
	if v := os.Getenv("SECRETBOX_ENGINE_TIMER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.TimerPoolSize = n
		}
	}

	// Database
	if v := os.Getenv("SECRETBOX_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("SECRETBOX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SECRETBOX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SECRETBOX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SECRETBOX_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("SECRETBOX_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security: always override the JWT secret in production
	if v := os.Getenv("SECRETBOX_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Engine
	if c.Engine.TimerPoolSize < 1 {
		errs = append(errs, "engine.timer_pool_size must be at least 1")
	}
	if c.Engine.DefaultStepDelayMS < 0 {
		errs = append(errs, "engine.default_step_delay_ms must not be negative")
	}
	if c.Engine.InputPollMS < 0 {
		errs = append(errs, "engine.input_poll_ms must not be negative")
	}

	if c.Show.Path == "" {
		errs = append(errs, "show.path is required")
	}

	switch c.GPIO.Driver {
	case "memory", "rpio":
	default:
		errs = append(errs, "gpio.driver must be memory or rpio")
	}

	switch c.Sound.Sink {
	case "log":
	case "mqtt":
		if !c.MQTT.Enabled {
			errs = append(errs, "sound.sink mqtt requires mqtt.enabled")
		}
		if c.Sound.Topic == "" {
			errs = append(errs, "sound.topic is required for the mqtt sink")
		}
	default:
		errs = append(errs, "sound.sink must be mqtt or log")
	}

	if c.Commands.Enabled {
		if !c.MQTT.Enabled {
			errs = append(errs, "commands.enabled requires mqtt.enabled")
		}
		switch c.Commands.Policy {
		case "", "oneshot":
		case "append":
			if c.Commands.Target == "" {
				errs = append(errs, "commands.target is required for the append policy")
			}
		default:
			errs = append(errs, "commands.policy must be append or oneshot")
		}
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}

		// Tokens gate arming and pin control on a live prop, so the secret
		// must not be guessable.
		const minJWTSecretLength = 32
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set SECRETBOX_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDefaultStepDelay returns the show builder's default step delay.
func (c *Config) GetDefaultStepDelay() time.Duration {
	return time.Duration(c.Engine.DefaultStepDelayMS) * time.Millisecond
}

// GetInputPollInterval returns the input sampling interval, zero when disabled.
func (c *Config) GetInputPollInterval() time.Duration {
	return time.Duration(c.Engine.InputPollMS) * time.Millisecond
}

// GetAccessTokenTTL returns the JWT lifetime.
func (c *Config) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}
