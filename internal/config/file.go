package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// fileKeys maps environment keys onto their YAML paths.
var fileKeys = map[string]string{
	"DUCKFRAME_PROFILE":                        "profile",
	"DUCKFRAME_SERVICE_NAME":                   "service.name",
	"DUCKFRAME_FILES_ROOT":                     "files.root",
	"DUCKFRAME_FILES_FORMAT":                   "files.format",
	"DUCKFRAME_FILES_LISTING":                  "files.listing",
	"DUCKFRAME_OBJECTSTORE_ENABLED":            "object_store.enabled",
	"DUCKFRAME_OBJECTSTORE_ENDPOINT":           "object_store.endpoint",
	"DUCKFRAME_OBJECTSTORE_REGION":             "object_store.region",
	"DUCKFRAME_OBJECTSTORE_BUCKET":             "object_store.bucket",
	"DUCKFRAME_OBJECTSTORE_ACCESS_KEY":         "object_store.access_key",
	"DUCKFRAME_OBJECTSTORE_SECRET_KEY":         "object_store.secret_key",
	"DUCKFRAME_OBJECTSTORE_USE_SSL":            "object_store.use_ssl",
	"DUCKFRAME_OBJECTSTORE_PREFIX":             "object_store.prefix",
	"DUCKFRAME_OBJECTSTORE_AUTO_CREATE_BUCKET": "object_store.auto_create_bucket",
	"DUCKFRAME_ENGINE_TYPE":                    "engine.type",
	"DUCKFRAME_ENGINE_DSN":                     "engine.dsn",
	"DUCKFRAME_ENGINE_MAX_OPEN_CONNS":          "engine.max_open_conns",
	"DUCKFRAME_ENGINE_CONN_MAX_IDLE_TIME":      "engine.conn_max_idle_time",
	"DUCKFRAME_ENGINE_CONN_MAX_LIFETIME":       "engine.conn_max_lifetime",
	"DUCKFRAME_ENGINE_TIME_ZONE":               "engine.time_zone",
	"DUCKFRAME_LOG_LEVEL":                      "log.level",
	"DUCKFRAME_LOG_JSON":                       "log.json",
}

// LoadFile reads a YAML config file and applies lookup on top of it.
// An empty path behaves like Load.
func LoadFile(path, serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}
	if path == "" {
		return load(serviceName, lookup)
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load config file %s: %w", path, err)
	}
	for _, key := range k.Keys() {
		if !knownFileKey(key) {
			return Config{}, fmt.Errorf("unknown config key %q in %s", key, path)
		}
	}
	return load(serviceName, koanfLookup(k), lookup)
}

// LoadFileFromEnv is LoadFile with the process environment.
func LoadFileFromEnv(path, serviceName string) (Config, error) {
	return LoadFile(path, serviceName, os.LookupEnv)
}

func koanfLookup(k *koanf.Koanf) LookupFunc {
	return func(key string) (string, bool) {
		path, ok := fileKeys[key]
		if !ok || !k.Exists(path) {
			return "", false
		}
		return k.String(path), true
	}
}

func knownFileKey(path string) bool {
	for _, known := range fileKeys {
		if known == path {
			return true
		}
	}
	return false
}
