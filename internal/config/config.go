// Package config loads timeclock settings from a TOML file and applies
// TIMECLOCK_* environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TIMECLOCK_"

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Duration decodes "30s"-style strings from TOML and the environment.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type StorageConfig struct {
	Driver string `toml:"driver" env:"DRIVER"`
	Path   string `toml:"path" env:"PATH"`
}

type ServerConfig struct {
	Addr             string `toml:"addr" env:"ADDR"`
	ActorHeader      string `toml:"actor_header" env:"ACTOR_HEADER"`
	TrustActorHeader bool   `toml:"trust_actor_header" env:"TRUST_ACTOR_HEADER"`
}

type ActorConfig struct {
	Privileged bool `toml:"privileged"`
}

type AuthConfig struct {
	JWTSecret string                 `toml:"jwt_secret" env:"JWT_SECRET"`
	JWTIssuer string                 `toml:"jwt_issuer" env:"JWT_ISSUER"`
	Actors    map[string]ActorConfig `toml:"actors"`
}

// Privileged flattens Actors into the form auth.NewDirectory takes.
func (a AuthConfig) Privileged() map[string]bool {
	out := make(map[string]bool, len(a.Actors))
	for id, actor := range a.Actors {
		out[id] = actor.Privileged
	}
	return out
}

type PolicyConfig struct {
	StrictApproval      bool `toml:"strict_approval" env:"STRICT_APPROVAL"`
	AllowPrivilegedEdit bool `toml:"allow_privileged_edit" env:"ALLOW_PRIVILEGED_EDIT"`
	MaxTrackingPoints   int  `toml:"max_tracking_points" env:"MAX_TRACKING_POINTS"`
}

type AssignmentsConfig struct {
	StatusURL string   `toml:"status_url" env:"STATUS_URL"`
	Timeout   Duration `toml:"timeout" env:"TIMEOUT"`
	RetryMax  int      `toml:"retry_max" env:"RETRY_MAX"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Pretty bool   `toml:"pretty" env:"PRETTY"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string `toml:"service_name" env:"SERVICE_NAME"`
}

type CLIConfig struct {
	Actor string `toml:"actor" env:"ACTOR"`
}

type Config struct {
	Storage     StorageConfig     `toml:"storage" envPrefix:"STORAGE_"`
	Server      ServerConfig      `toml:"server" envPrefix:"SERVER_"`
	Auth        AuthConfig        `toml:"auth" envPrefix:"AUTH_"`
	Policy      PolicyConfig      `toml:"policy" envPrefix:"POLICY_"`
	Assignments AssignmentsConfig `toml:"assignments" envPrefix:"ASSIGNMENTS_"`
	Log         LogConfig         `toml:"log" envPrefix:"LOG_"`
	Telemetry   TelemetryConfig   `toml:"telemetry" envPrefix:"TELEMETRY_"`
	CLI         CLIConfig         `toml:"cli" envPrefix:"CLI_"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: DriverSQLite},
		Server:  ServerConfig{Addr: ":8080", ActorHeader: "X-Actor-ID"},
		Auth:    AuthConfig{JWTIssuer: "timeclock"},
		Policy: PolicyConfig{
			StrictApproval:    true,
			MaxTrackingPoints: 5000,
		},
		Assignments: AssignmentsConfig{Timeout: Duration(10 * time.Second), RetryMax: 3},
		Log:         LogConfig{Level: "info"},
		Telemetry:   TelemetryConfig{ServiceName: "timeclock"},
	}
}

// SetDefault fills values a config file left blank.
func (c *Config) SetDefault() {
	def := Default()
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath(c.Storage.Driver)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.ActorHeader == "" {
		c.Server.ActorHeader = def.Server.ActorHeader
	}
	if c.Policy.MaxTrackingPoints <= 0 {
		c.Policy.MaxTrackingPoints = def.Policy.MaxTrackingPoints
	}
	if c.Assignments.Timeout <= 0 {
		c.Assignments.Timeout = def.Assignments.Timeout
	}
	if c.Assignments.RetryMax < 0 {
		c.Assignments.RetryMax = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("unknown storage driver %q (want %s or %s)", c.Storage.Driver, DriverSQLite, DriverBolt)
	}
	if c.Policy.MaxTrackingPoints <= 0 {
		return errors.New("policy.max_tracking_points must be positive")
	}
	return nil
}

// Load reads path (when it exists), applies environment overrides and
// fills defaults. An empty path means DefaultPath().
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return finish(cfg)
}

// LoadBytes is Load for an in-memory TOML document.
func LoadBytes(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.SetDefault()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Dir is ~/.timeclock, falling back to the working directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".timeclock"
	}
	return filepath.Join(home, ".timeclock")
}

func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultStoragePath picks the data file for driver.
func DefaultStoragePath(driver string) string {
	if driver == DriverBolt {
		return filepath.Join(Dir(), "timeclock.bolt")
	}
	return filepath.Join(Dir(), "timeclock.db")
}
