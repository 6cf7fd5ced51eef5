package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the mixroute engine.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Engine    EngineConfig    `yaml:"engine"`
	Sidechain SidechainConfig `yaml:"sidechain"`
	Layout    LayoutConfig    `yaml:"layout"`
	Relay     RelayConfig     `yaml:"relay"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metering  MeteringConfig  `yaml:"metering"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InstanceConfig identifies this engine instance on the network.
type InstanceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// EngineConfig contains audio engine settings shared by every component.
type EngineConfig struct {
	SampleRate int `yaml:"sample_rate"`
	BufferSize int `yaml:"buffer_size"` // Frames per audio callback
}

// BufferDuration returns the length of one audio buffer.
func (e EngineConfig) BufferDuration() time.Duration {
	if e.SampleRate <= 0 {
		return 0
	}
	return time.Duration(e.BufferSize) * time.Second / time.Duration(e.SampleRate)
}

// SidechainConfig contains sidechain detector defaults.
type SidechainConfig struct {
	Channels    int     `yaml:"channels"`
	AttackMS    float64 `yaml:"attack_ms"`
	ReleaseMS   float64 `yaml:"release_ms"`
	RMSWindowMS float64 `yaml:"rms_window_ms"`
	PeakDecay   float64 `yaml:"peak_decay"`
	HighPassHz  float64 `yaml:"high_pass_hz"`
}

// LayoutConfig is the session seeded at startup. It is read once; changes
// made at runtime are not written back.
type LayoutConfig struct {
	Points          []PointSpec          `yaml:"points"`
	Routes          []RouteSpec          `yaml:"routes"`
	Groups          []GroupSpec          `yaml:"groups"`
	Faders          []FaderSpec          `yaml:"faders"`
	SidechainBuses  []BusSpec            `yaml:"sidechain_buses"`
	SidechainRoutes []SidechainRouteSpec `yaml:"sidechain_routes"`
}

// PointSpec describes a routing point.
type PointSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Channels int    `yaml:"channels"`
	TrackID  string `yaml:"track_id,omitempty"`
	EffectID string `yaml:"effect_id,omitempty"`
}

// RouteSpec describes a route between two points, referenced by name.
type RouteSpec struct {
	Source         string  `yaml:"source"`
	Destination    string  `yaml:"destination"`
	GainDB         float64 `yaml:"gain_db"`
	Disabled       bool    `yaml:"disabled,omitempty"`
	LatencySamples int     `yaml:"latency_samples,omitempty"`
	PreFader       bool    `yaml:"pre_fader,omitempty"`
	PreInsert      bool    `yaml:"pre_insert,omitempty"`
}

// GroupSpec describes a VCA group. Parent names another group.
type GroupSpec struct {
	Name   string   `yaml:"name"`
	Volume *float64 `yaml:"volume,omitempty"`
	Muted  bool     `yaml:"muted,omitempty"`
	Parent string   `yaml:"parent,omitempty"`
}

// FaderSpec describes a channel fader and the group it follows.
type FaderSpec struct {
	Name   string   `yaml:"name"`
	Volume *float64 `yaml:"volume,omitempty"`
	Group  string   `yaml:"group,omitempty"`
}

// BusSpec describes a sidechain bus.
type BusSpec struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	InputGain  float64 `yaml:"input_gain,omitempty"`
	HighPassHz float64 `yaml:"high_pass_hz,omitempty"`
}

// SidechainRouteSpec describes a sidechain route. Bus optionally names the
// sidechain bus used as the live source; Effect binds the target by ID.
type SidechainRouteSpec struct {
	Source string  `yaml:"source"`
	Target string  `yaml:"target"`
	Effect string  `yaml:"effect,omitempty"`
	Bus    string  `yaml:"bus,omitempty"`
	Gain   float64 `yaml:"gain,omitempty"`
}

// RelayConfig contains event relay settings.
type RelayConfig struct {
	BufferSize int `yaml:"buffer_size"`
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
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// MeteringConfig controls periodic telemetry export.
type MeteringConfig struct {
	Enabled  bool `yaml:"enabled"`
	Interval int  `yaml:"interval"` // Seconds between reports
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MIXROUTE_SECTION_KEY
// For example: MIXROUTE_API_PORT, MIXROUTE_ENGINE_SAMPLE_RATE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults and an empty layout.
func Default() *Config {
	return &Config{
		Instance: InstanceConfig{
			ID:   "mixroute-01",
			Name: "mixroute",
		},
		Engine: EngineConfig{
			SampleRate: 48000,
			BufferSize: 256,
		},
		Sidechain: SidechainConfig{
			Channels:    2,
			AttackMS:    1,
			ReleaseMS:   50,
			RMSWindowMS: 100,
			PeakDecay:   0.9995,
		},
		Relay: RelayConfig{
			BufferSize: 256,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "mixroute-core",
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
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Metering: MeteringConfig{
			Interval: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MIXROUTE_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	setInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %q is not an integer", key, v))
			return
		}
		*dst = n
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}

	// Engine
	setInt("MIXROUTE_ENGINE_SAMPLE_RATE", &cfg.Engine.SampleRate)
	setInt("MIXROUTE_ENGINE_BUFFER_SIZE", &cfg.Engine.BufferSize)

	// MQTT
	setBool("MIXROUTE_MQTT_ENABLED", &cfg.MQTT.Enabled)
	setString("MIXROUTE_MQTT_HOST", &cfg.MQTT.Broker.Host)
	setInt("MIXROUTE_MQTT_PORT", &cfg.MQTT.Broker.Port)
	setString("MIXROUTE_MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	setString("MIXROUTE_MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	// API
	setString("MIXROUTE_API_HOST", &cfg.API.Host)
	setInt("MIXROUTE_API_PORT", &cfg.API.Port)

	// InfluxDB
	setBool("MIXROUTE_INFLUXDB_ENABLED", &cfg.InfluxDB.Enabled)
	setString("MIXROUTE_INFLUXDB_URL", &cfg.InfluxDB.URL)
	setString("MIXROUTE_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	// Logging
	setString("MIXROUTE_LOG_LEVEL", &cfg.Logging.Level)

	if len(errs) > 0 {
		return fmt.Errorf("environment overrides: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Instance.ID == "" {
		errs = append(errs, "instance.id is required")
	}

	// Engine
	if c.Engine.SampleRate < 8000 || c.Engine.SampleRate > 384000 {
		errs = append(errs, "engine.sample_rate must be between 8000 and 384000")
	}
	if c.Engine.BufferSize < 16 || c.Engine.BufferSize > 8192 {
		errs = append(errs, "engine.buffer_size must be between 16 and 8192")
	}

	// Sidechain
	if c.Sidechain.Channels < 1 {
		errs = append(errs, "sidechain.channels must be at least 1")
	}
	if c.Sidechain.AttackMS <= 0 || c.Sidechain.ReleaseMS <= 0 {
		errs = append(errs, "sidechain.attack_ms and sidechain.release_ms must be positive")
	}
	if c.Sidechain.RMSWindowMS <= 0 {
		errs = append(errs, "sidechain.rms_window_ms must be positive")
	}
	if c.Sidechain.PeakDecay <= 0 || c.Sidechain.PeakDecay > 1 {
		errs = append(errs, "sidechain.peak_decay must be in (0, 1]")
	}

	// Layout: names must be present; references are resolved at startup.
	for i, p := range c.Layout.Points {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Sprintf("layout.points[%d].name is required", i))
		}
	}
	for i, r := range c.Layout.Routes {
		if r.Source == "" || r.Destination == "" {
			errs = append(errs, fmt.Sprintf("layout.routes[%d] needs source and destination", i))
		}
	}

	if c.Relay.BufferSize < 1 {
		errs = append(errs, "relay.buffer_size must be at least 1")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	// Metering
	if c.Metering.Enabled && c.Metering.Interval < 1 {
		errs = append(errs, "metering.interval must be at least 1 second")
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

// GetMeteringInterval returns the metering report interval.
func (c *Config) GetMeteringInterval() time.Duration {
	return time.Duration(c.Metering.Interval) * time.Second
}
