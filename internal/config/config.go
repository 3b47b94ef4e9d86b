package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	EngineDuckDB   = "duckdb"
	EnginePostgres = "postgres"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	Files         FilesConfig
	ObjectStore   ObjectStoreConfig
	Engine        EngineConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

// FilesConfig configures the file backend. Listing may be left empty to use
// the format's default listing mode.
type FilesConfig struct {
	Root    string
	Format  string
	Listing string
}

type ObjectStoreConfig struct {
	Enabled          bool
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type EngineConfig struct {
	Type            string
	DSN             string
	MaxOpenConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	TimeZone        string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}
	return load(serviceName, lookup)
}

// load applies each layer over the profile defaults. Later layers win.
func load(serviceName string, layers ...LookupFunc) (Config, error) {
	profile := ProfileDev
	for _, lookup := range layers {
		if raw, ok := lookup("DUCKFRAME_PROFILE"); ok {
			profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
		}
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DUCKFRAME_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}
	for _, lookup := range layers {
		if err := apply(lookup, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func apply(lookup LookupFunc, cfg *Config) error {
	if err := applyString(lookup, "DUCKFRAME_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_FILES_ROOT", &cfg.Files.Root); err != nil {
		return err
	}
	if err := applyLower(lookup, "DUCKFRAME_FILES_FORMAT", &cfg.Files.Format); err != nil {
		return err
	}
	if err := applyLower(lookup, "DUCKFRAME_FILES_LISTING", &cfg.Files.Listing); err != nil {
		return err
	}
	if err := applyBool(lookup, "DUCKFRAME_OBJECTSTORE_ENABLED", &cfg.ObjectStore.Enabled); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return err
	}
	if err := applyBool(lookup, "DUCKFRAME_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return err
	}
	if err := applyBool(lookup, "DUCKFRAME_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return err
	}
	if err := applyLower(lookup, "DUCKFRAME_ENGINE_TYPE", &cfg.Engine.Type); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_ENGINE_DSN", &cfg.Engine.DSN); err != nil {
		return err
	}
	if err := applyInt(lookup, "DUCKFRAME_ENGINE_MAX_OPEN_CONNS", &cfg.Engine.MaxOpenConns); err != nil {
		return err
	}
	if err := applyDuration(lookup, "DUCKFRAME_ENGINE_CONN_MAX_IDLE_TIME", &cfg.Engine.ConnMaxIdleTime); err != nil {
		return err
	}
	if err := applyDuration(lookup, "DUCKFRAME_ENGINE_CONN_MAX_LIFETIME", &cfg.Engine.ConnMaxLifetime); err != nil {
		return err
	}
	if err := applyString(lookup, "DUCKFRAME_ENGINE_TIME_ZONE", &cfg.Engine.TimeZone); err != nil {
		return err
	}
	if err := applyLogLevel(lookup, "DUCKFRAME_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return err
	}
	if err := applyBool(lookup, "DUCKFRAME_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return err
	}
	return nil
}

func (c Config) validate() error {
	if c.Service.Name == "" {
		return fmt.Errorf("service name is required")
	}
	switch c.Files.Format {
	case "csv", "parquet":
	default:
		return fmt.Errorf("invalid DUCKFRAME_FILES_FORMAT: %q", c.Files.Format)
	}
	switch c.Files.Listing {
	case "", "dirs", "dirs_or_files", "files":
	default:
		return fmt.Errorf("invalid DUCKFRAME_FILES_LISTING: %q", c.Files.Listing)
	}
	switch c.Engine.Type {
	case EngineDuckDB:
	case EnginePostgres:
		if c.Engine.DSN == "" {
			return fmt.Errorf("DUCKFRAME_ENGINE_DSN is required for engine %q", c.Engine.Type)
		}
	default:
		return fmt.Errorf("invalid DUCKFRAME_ENGINE_TYPE: %q", c.Engine.Type)
	}
	if c.Engine.MaxOpenConns < 1 {
		return fmt.Errorf("invalid DUCKFRAME_ENGINE_MAX_OPEN_CONNS: %d", c.Engine.MaxOpenConns)
	}
	if c.Engine.TimeZone != "" {
		if _, err := time.LoadLocation(c.Engine.TimeZone); err != nil {
			return fmt.Errorf("invalid DUCKFRAME_ENGINE_TIME_ZONE: %w", err)
		}
	}
	if c.ObjectStore.Enabled && (c.ObjectStore.Endpoint == "" || c.ObjectStore.Bucket == "") {
		return fmt.Errorf("object store endpoint and bucket are required when enabled")
	}
	return nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "duckframe"},
		Files: FilesConfig{
			Root:   ".",
			Format: "parquet",
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "duckframe",
			AccessKeyID:      "minioadmin",
			SecretAccessKey:  "minioadmin",
			UseSSL:           false,
			AutoCreateBucket: true,
		},
		Engine: EngineConfig{
			Type:            EngineDuckDB,
			MaxOpenConns:    4,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			TimeZone:        "UTC",
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  false,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Engine.MaxOpenConns = 1
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Observability.LogJSON = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyLower(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.ToLower(strings.TrimSpace(raw))
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
