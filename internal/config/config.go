// Package config loads the intake service configuration from an optional
// YAML file overlaid with INTAKE_* environment variables.
//
// An environment variable names a section and a key separated by the first
// underscore: INTAKE_SESSION_IDLE_TIMEOUT sets session.idle_timeout.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INTAKE_"

// Session backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the full service configuration.
type Config struct {
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Session      SessionConfig      `mapstructure:"session" yaml:"session"`
	Router       RouterConfig       `mapstructure:"router" yaml:"router"`
	Redis        RedisConfig        `mapstructure:"redis" yaml:"redis"`
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Kafka        KafkaConfig        `mapstructure:"kafka" yaml:"kafka"`
	Postal       PostalConfig       `mapstructure:"postal" yaml:"postal"`
	Verification VerificationConfig `mapstructure:"verification" yaml:"verification"`
	Assistant    AssistantConfig    `mapstructure:"assistant" yaml:"assistant"`
	Transcriber  TranscriberConfig  `mapstructure:"transcriber" yaml:"transcriber"`
	SMTP         SMTPConfig         `mapstructure:"smtp" yaml:"smtp"`
	Evidence     EvidenceConfig     `mapstructure:"evidence" yaml:"evidence"`
	Timeouts     TimeoutsConfig     `mapstructure:"timeouts" yaml:"timeouts"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	VerifyToken     string        `mapstructure:"verify_token" yaml:"verify_token"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	CallbackURL     string        `mapstructure:"callback_url" yaml:"callback_url"`
	CallbackToken   string        `mapstructure:"callback_token" yaml:"callback_token"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type SessionConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"`
	Dir           string        `mapstructure:"dir" yaml:"dir"`
	HistoryCap    int           `mapstructure:"history_cap" yaml:"history_cap"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	LockTTL       time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	// EncryptionKey is base64 of 32 bytes; empty stores sessions in the clear.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
}

// Key decodes EncryptionKey. It returns nil when no key is set.
func (s SessionConfig) Key() ([]byte, error) {
	if s.EncryptionKey == "" {
		return nil, nil
	}
	k, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("session.encryption_key: %w", err)
	}
	if len(k) != 32 {
		return nil, fmt.Errorf("session.encryption_key: got %d bytes, want 32", len(k))
	}
	return k, nil
}

type RouterConfig struct {
	MaxInputSize int           `mapstructure:"max_input_size" yaml:"max_input_size"`
	RetryCap     int           `mapstructure:"retry_cap" yaml:"retry_cap"`
	DedupTTL     time.Duration `mapstructure:"dedup_ttl" yaml:"dedup_ttl"`
	// IdleReminder re-sends the pending prompt after this much silence. Zero,
	// or a value not shorter than session.idle_timeout, disables it.
	IdleReminder time.Duration `mapstructure:"idle_reminder" yaml:"idle_reminder"`
}

type RedisConfig struct {
	URL    string `mapstructure:"url" yaml:"url"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite"; empty keeps cases in memory.
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers" yaml:"brokers"`
	Topic    string   `mapstructure:"topic" yaml:"topic"`
	ClientID string   `mapstructure:"client_id" yaml:"client_id"`
}

// Enabled reports whether events go to a broker.
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type PostalConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type VerificationConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	WorkflowID string `mapstructure:"workflow_id" yaml:"workflow_id"`
}

// Enabled reports whether identity verification is offered.
func (v VerificationConfig) Enabled() bool { return v.BaseURL != "" && v.APIKey != "" }

type AssistantConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Region  string `mapstructure:"region" yaml:"region"`
}

type TranscriberConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Model   string `mapstructure:"model" yaml:"model"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	From     string `mapstructure:"from" yaml:"from"`
}

// Enabled reports whether OTP mail goes to a relay.
func (s SMTPConfig) Enabled() bool { return s.Host != "" }

type EvidenceConfig struct {
	// Dir stores evidence on disk; empty keeps it in memory.
	Dir     string `mapstructure:"dir" yaml:"dir"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

type TimeoutsConfig struct {
	Lookup       time.Duration `mapstructure:"lookup" yaml:"lookup"`
	Upload       time.Duration `mapstructure:"upload" yaml:"upload"`
	Verification time.Duration `mapstructure:"verification" yaml:"verification"`
	Transcribe   time.Duration `mapstructure:"transcribe" yaml:"transcribe"`
	Assistant    time.Duration `mapstructure:"assistant" yaml:"assistant"`
	Store        time.Duration `mapstructure:"store" yaml:"store"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Server: ServerConfig{Addr: ":8080", MaxBodyBytes: 16 << 20, ShutdownTimeout: 15 * time.Second},
		Session: SessionConfig{
			Backend:       BackendMemory,
			Dir:           ".intake/sessions",
			HistoryCap:    20,
			IdleTimeout:   30 * time.Minute,
			SweepInterval: time.Minute,
			TTL:           24 * time.Hour,
			LockTTL:       10 * time.Second,
		},
		Router: RouterConfig{MaxInputSize: 4096, RetryCap: 3, DedupTTL: 24 * time.Hour, IdleReminder: 10 * time.Minute},
		Redis:  RedisConfig{URL: "redis://localhost:6379/0", Prefix: "intake:"},
		Kafka:  KafkaConfig{Topic: "intake.events", ClientID: "intake"},
	}
}

// Load reads path (when non-empty) over Default and applies environ, which
// is normally os.Environ().
func Load(path string, environ []string) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	overlayEnv(raw, environ)

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// overlayEnv writes INTAKE_SECTION_KEY=value into raw[section][key].
func overlayEnv(raw map[string]any, environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_")
		if !ok || section == "" || key == "" {
			continue
		}
		m, ok := raw[section].(map[string]any)
		if !ok {
			m = map[string]any{}
			raw[section] = m
		}
		m[key] = value
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Session.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("session.backend: unknown backend %q", c.Session.Backend))
	}
	if c.Session.Backend == BackendFile && c.Session.Dir == "" {
		errs = append(errs, errors.New("session.dir: required for the file backend"))
	}
	if c.Session.HistoryCap < 1 {
		errs = append(errs, errors.New("session.history_cap: must be at least 1"))
	}
	if c.Session.IdleTimeout <= 0 {
		errs = append(errs, errors.New("session.idle_timeout: must be positive"))
	}
	if c.Router.IdleReminder < 0 {
		errs = append(errs, errors.New("router.idle_reminder: must not be negative"))
	}
	if _, err := c.Session.Key(); err != nil {
		errs = append(errs, err)
	}
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver))
	}
	if c.Database.Driver != "" && c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn: required when a driver is set"))
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic: required when brokers are set"))
	}
	if c.SMTP.Enabled() && c.SMTP.From == "" {
		errs = append(errs, errors.New("smtp.from: required when a host is set"))
	}
	return errors.Join(errs...)
}
