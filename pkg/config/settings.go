package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	configName = "agent"
	envPrefix  = "OUTBOX"

	DefaultCapacity   = 1000
	DefaultStorageKey = "event_queue_v1"
	DefaultTimeout    = 30 * time.Second
)

type Settings struct {
	Store         StoreSettings       `mapstructure:"store"`
	Ingest        IngestSettings      `mapstructure:"ingest"`
	Queue         QueueSettings       `mapstructure:"queue"`
	Device        DeviceSettings      `mapstructure:"device"`
	Diagnostics   DiagnosticsSettings `mapstructure:"diagnostics"`
	Logging       LoggingSettings     `mapstructure:"logging"`
	Observability Observability       `mapstructure:"observability"`
}

// QueueSettings bounds the outbox queue.
type QueueSettings struct {
	Capacity int    `mapstructure:"capacity" validate:"gt=0"`
	Key      string `mapstructure:"key" validate:"required"`
}

type DeviceSettings struct {
	ID string `mapstructure:"id"`
}

type DiagnosticsSettings struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"omitempty,hostname_port"`
}

type LoggingSettings struct {
	Level       string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

func (c *Settings) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// LoadFromFile reads agent.yaml and agent.<ENVIRONMENT>.yaml from filePath,
// then overlays OUTBOX_* environment variables and validates the result.
// Missing files are not an error.
func LoadFromFile(filePath string) (*Settings, error) {
	env := getEnvWithDefaultLookup("ENVIRONMENT", "development")

	setDefaults()

	viper.SetConfigType("yaml")
	viper.SetConfigName(configName)
	viper.AddConfigPath(filePath)
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := mergeConfig(filePath, configName+"."+env); err != nil {
		return nil, fmt.Errorf("failed to merge %s config: %w", env, err)
	}

	cfg := &Settings{}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Settings) LoadFromEnv() error {
	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // OUTBOX_INGEST_ENDPOINT

	for _, key := range []string{
		"store.type",
		"store.path",
		"store.dsn",
		"store.uri",
		"store.database",
		"store.collection",
		"ingest.transport",
		"ingest.endpoint",
		"ingest.token",
		"ingest.timeout",
		"ingest.broker.url",
		"ingest.broker.project_id",
		"ingest.broker.pool_size",
		"queue.capacity",
		"queue.key",
		"device.id",
		"diagnostics.listen_addr",
		"logging.level",
		"logging.development",
		"observability.service_name",
		"observability.tracing_url",
		"observability.metrics_url",
	} {
		if err := viper.BindEnv(key); err != nil {
			return err
		}
	}

	return viper.Unmarshal(c)
}

func setDefaults() {
	viper.SetDefault("store.type", "file")
	viper.SetDefault("store.path", ".outbox")
	viper.SetDefault("store.collection", "outbox_kv")
	viper.SetDefault("ingest.transport", TransportHTTP)
	viper.SetDefault("ingest.timeout", DefaultTimeout)
	viper.SetDefault("ingest.broker.pool_size", 2)
	viper.SetDefault("queue.capacity", DefaultCapacity)
	viper.SetDefault("queue.key", DefaultStorageKey)
	viper.SetDefault("diagnostics.listen_addr", "127.0.0.1:8787")
	viper.SetDefault("logging.level", "info")
}

// mergeConfig overlays an environment specific file. viper caches the path of
// the first file it found, so the overlay has to be addressed explicitly.
func mergeConfig(path string, name string) error {
	file := filepath.Join(path, name+".yaml")
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	viper.SetConfigFile(file)
	return viper.MergeInConfig()
}

func getEnvWithDefaultLookup(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}
