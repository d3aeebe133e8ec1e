package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration. It merges defaults, an
// optional YAML file, and MOBILID_* environment overrides, in that order.
type Config struct {
	Server     Server      `yaml:"server"`
	Log        Log         `yaml:"log"`
	Database   Database    `yaml:"database"`
	Redis      RedisConfig `yaml:"redis"`
	Upstream   Upstream    `yaml:"upstream"`
	Signing    Signing     `yaml:"signing"`
	Push       Push        `yaml:"push"`
	Storage    Storage     `yaml:"storage"`
	Kafka      Kafka       `yaml:"kafka"`
	Dispatch   Dispatch    `yaml:"dispatch"`
	Sweep      Sweep       `yaml:"sweep"`
	Pass       Pass        `yaml:"pass"`
	Enrollment Enrollment  `yaml:"enrollment"`
	RateLimit  RateLimit   `yaml:"rate_limit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr                string        `yaml:"addr"`
	ReadHeaderTimeout   time.Duration `yaml:"read_header_timeout"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
	ClientTriggerSecret string        `yaml:"client_trigger_secret"`
	Debug               bool          `yaml:"debug"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Database is optional; without a URL the service runs on in-memory stores.
type Database struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

// RedisConfig is optional; without a URL locks are process-local and the
// archive cache is disabled.
type RedisConfig struct {
	URL             string        `yaml:"url"`
	PoolSize        int           `yaml:"pool_size"`
	MinIdleConns    int           `yaml:"min_idle_conns"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
	ArchiveCacheTTL time.Duration `yaml:"archive_cache_ttl"`
}

// Upstream describes the identity source and its token handshake.
type Upstream struct {
	BaseURL          string        `yaml:"base_url"`
	SharedSecret     string        `yaml:"shared_secret"`
	TokenScheme      string        `yaml:"token_scheme"`
	HexToken         bool          `yaml:"hex_token"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// Signing points at the issuer identity used for archive signatures. Either
// a PKCS#12 bundle or a PEM certificate and key pair is required.
type Signing struct {
	P12Path         string `yaml:"p12_path"`
	P12Password     string `yaml:"p12_password"`
	CertificatePath string `yaml:"certificate_path"`
	KeyPath         string `yaml:"key_path"`
	WWDRPath        string `yaml:"wwdr_path"`
}

type Push struct {
	Enabled     bool          `yaml:"enabled"`
	P12Path     string        `yaml:"p12_path"`
	P12Password string        `yaml:"p12_password"`
	Production  bool          `yaml:"production"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Storage selects where built archives are persisted.
type Storage struct {
	Driver    string `yaml:"driver"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
}

// Kafka is optional; without brokers pass change events are dropped.
type Kafka struct {
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	ClientID   string   `yaml:"client_id"`
	Partitions int32    `yaml:"partitions"`
}

type Dispatch struct {
	Workers           int `yaml:"workers"`
	QueueSize         int `yaml:"queue_size"`
	FanoutConcurrency int `yaml:"fanout_concurrency"`
}

type Sweep struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`
	StartDelay  time.Duration `yaml:"start_delay"`
	Concurrency int           `yaml:"concurrency"`
}

// Pass holds the fixed template's issuer-level values.
type Pass struct {
	TypeIdentifier             string        `yaml:"type_identifier"`
	TeamIdentifier             string        `yaml:"team_identifier"`
	OrganizationName           string        `yaml:"organization_name"`
	Description                string        `yaml:"description"`
	WebServiceURL              string        `yaml:"web_service_url"`
	AssetsDir                  string        `yaml:"assets_dir"`
	Expiration                 time.Duration `yaml:"expiration"`
	ShowHashField              bool          `yaml:"show_hash_field"`
	PhotoTimeout               time.Duration `yaml:"photo_timeout"`
	ForegroundColor            string        `yaml:"foreground_color"`
	BackgroundColor            string        `yaml:"background_color"`
	LabelColor                 string        `yaml:"label_color"`
	Tribute                    string        `yaml:"tribute"`
	AssociatedStoreIdentifiers []int         `yaml:"associated_store_identifiers"`
	Locations                  []Location    `yaml:"locations"`
	Beacons                    []Beacon      `yaml:"beacons"`
}

type Location struct {
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RelevantText string  `yaml:"relevant_text"`
	MaxDistance  float64 `yaml:"max_distance"`
}

type Beacon struct {
	ProximityUUID string `yaml:"proximity_uuid"`
	Major         int    `yaml:"major"`
	Minor         int    `yaml:"minor"`
	RelevantText  string `yaml:"relevant_text"`
}

// Enrollment controls first-time pass issuance.
type Enrollment struct {
	IDLength  int      `yaml:"id_length"`
	PINLength int      `yaml:"pin_length"`
	Allowlist []string `yaml:"allowlist"`
}

// RateLimit bounds anonymous traffic on the enrollment and pass-hash routes
// and locks an identity out of enrollment after repeated PIN failures.
type RateLimit struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window"`
	Window            time.Duration `yaml:"window"`
	EnrollAttempts    int           `yaml:"enroll_attempts"`
	EnrollLockout     time.Duration `yaml:"enroll_lockout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			RequestTimeout:    30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: Log{Level: "info", Format: "json"},
		Database: Database{
			Driver:          "postgres",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			MigrateOnStart:  true,
		},
		Redis: RedisConfig{
			PoolSize:        10,
			MinIdleConns:    2,
			DialTimeout:     5 * time.Second,
			ReadTimeout:     3 * time.Second,
			WriteTimeout:    3 * time.Second,
			LockTTL:         2 * time.Minute,
			ArchiveCacheTTL: 10 * time.Minute,
		},
		Upstream: Upstream{
			TokenScheme:      "salted",
			Timeout:          3 * time.Second,
			FailureThreshold: 5,
			Cooldown:         30 * time.Second,
		},
		Push: Push{
			Production: true,
			Timeout:    10 * time.Second,
		},
		Storage: Storage{
			Driver: "memory",
			Bucket: "passes",
		},
		Kafka: Kafka{
			Topic:      "pass-events",
			ClientID:   "mobilid",
			Partitions: 3,
		},
		Dispatch: Dispatch{
			Workers:           4,
			QueueSize:         256,
			FanoutConcurrency: 16,
		},
		Sweep: Sweep{
			Enabled:     true,
			Interval:    24 * time.Hour,
			Concurrency: 8,
		},
		Pass: Pass{
			OrganizationName: "Oklahoma Christian University",
			Description:      "OC ID",
			AssetsDir:        "base.pass",
			PhotoTimeout:     3 * time.Second,
			ForegroundColor:  "rgb(255, 255, 255)",
			BackgroundColor:  "rgb(128, 20, 41)",
			LabelColor:       "rgb(255, 255, 255)",
		},
		Enrollment: Enrollment{
			IDLength:  7,
			PINLength: 4,
		},
		RateLimit: RateLimit{
			Enabled:           true,
			RequestsPerWindow: 60,
			Window:            time.Minute,
			EnrollAttempts:    5,
			EnrollLockout:     15 * time.Minute,
		},
	}
}

// Load resolves configuration in priority order: defaults -> file -> env.
// A missing file is not an error so local runs work with env alone.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = envOrDefault("MOBILID_ADDR", cfg.Server.Addr)
	cfg.Server.ClientTriggerSecret = envOrDefault("MOBILID_CLIENT_TRIGGER_SECRET", cfg.Server.ClientTriggerSecret)
	cfg.Server.Debug = envBool("MOBILID_DEBUG", cfg.Server.Debug)
	cfg.Log.Level = envOrDefault("MOBILID_LOG_LEVEL", cfg.Log.Level)

	cfg.Database.Driver = envOrDefault("MOBILID_DATABASE_DRIVER", cfg.Database.Driver)
	cfg.Database.URL = envOrDefault("MOBILID_DATABASE_URL", cfg.Database.URL)
	cfg.Redis.URL = envOrDefault("MOBILID_REDIS_URL", cfg.Redis.URL)

	cfg.Upstream.BaseURL = envOrDefault("MOBILID_UPSTREAM_URL", cfg.Upstream.BaseURL)
	cfg.Upstream.SharedSecret = envOrDefault("MOBILID_UPSTREAM_SECRET", cfg.Upstream.SharedSecret)

	cfg.Signing.P12Password = envOrDefault("MOBILID_SIGNING_P12_PASSWORD", cfg.Signing.P12Password)
	cfg.Push.P12Password = envOrDefault("MOBILID_PUSH_P12_PASSWORD", cfg.Push.P12Password)
	cfg.Push.Enabled = envBool("MOBILID_PUSH_ENABLED", cfg.Push.Enabled)

	cfg.Storage.Driver = envOrDefault("MOBILID_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Endpoint = envOrDefault("MOBILID_STORAGE_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.AccessKey = envOrDefault("MOBILID_STORAGE_ACCESS_KEY", cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = envOrDefault("MOBILID_STORAGE_SECRET_KEY", cfg.Storage.SecretKey)

	cfg.Kafka.Brokers = envCSV("MOBILID_KAFKA_BROKERS", cfg.Kafka.Brokers)

	cfg.Dispatch.Workers = envInt("MOBILID_DISPATCH_WORKERS", cfg.Dispatch.Workers)
	cfg.Sweep.Enabled = envBool("MOBILID_SWEEP_ENABLED", cfg.Sweep.Enabled)
	cfg.Sweep.Interval = envDuration("MOBILID_SWEEP_INTERVAL", cfg.Sweep.Interval)

	cfg.Pass.TypeIdentifier = envOrDefault("MOBILID_PASS_TYPE_IDENTIFIER", cfg.Pass.TypeIdentifier)
	cfg.Pass.TeamIdentifier = envOrDefault("MOBILID_TEAM_IDENTIFIER", cfg.Pass.TeamIdentifier)
	cfg.Pass.WebServiceURL = envOrDefault("MOBILID_WEB_SERVICE_URL", cfg.Pass.WebServiceURL)
	cfg.Pass.Expiration = envDuration("MOBILID_PASS_EXPIRATION", cfg.Pass.Expiration)

	cfg.RateLimit.Enabled = envBool("MOBILID_RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Pass.TypeIdentifier == "" {
		errs = append(errs, errors.New("pass.type_identifier is required"))
	}
	if c.Pass.TeamIdentifier == "" {
		errs = append(errs, errors.New("pass.team_identifier is required"))
	}
	if c.Pass.Expiration < 0 {
		errs = append(errs, errors.New("pass.expiration must not be negative"))
	}
	switch c.Upstream.TokenScheme {
	case "salted", "digest":
	default:
		errs = append(errs, fmt.Errorf("upstream.token_scheme %q is not supported", c.Upstream.TokenScheme))
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	switch c.Storage.Driver {
	case "memory":
	case "minio":
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage.endpoint and storage.bucket are required for minio"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		errs = append(errs, errors.New("sweep.interval must be positive"))
	}
	if c.Dispatch.Workers <= 0 || c.Dispatch.QueueSize <= 0 {
		errs = append(errs, errors.New("dispatch.workers and dispatch.queue_size must be positive"))
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, errors.New("rate_limit.requests_per_window and rate_limit.window must be positive"))
		}
		if c.RateLimit.EnrollAttempts <= 0 || c.RateLimit.EnrollLockout <= 0 {
			errs = append(errs, errors.New("rate_limit.enroll_attempts and rate_limit.enroll_lockout must be positive"))
		}
	}
	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := envOrDefault(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := envOrDefault(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := envOrDefault(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envCSV(key string, fallback []string) []string {
	v := envOrDefault(key, "")
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
