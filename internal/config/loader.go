package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. The config file at path (optional)
// 3. RELAY_* environment variables
func Load(path string) (*Config, error) {
	// Register defaults in viper first; env overrides only apply to keys
	// viper knows about.
	v := viper.New()
	setDefaults(v)

	cfg := &Config{
		Logger: LoggerConfig{
			Level: DefaultLogLevel,
			JSON:  DefaultLogJSON,
		},
		ChatDB: ChatDBConfig{
			Path:         DefaultChatDBPath,
			QueryTimeout: DefaultQueryTimeout,
		},
		Journal: JournalConfig{
			Path: DefaultJournalPath,
		},
		Decode: DecodeConfig{
			BridgeCommand: DefaultBridgeCommand,
			BridgeTimeout: DefaultBridgeTimeout,
			BatchTimeout:  DefaultBatchTimeout,
		},
		Status: StatusConfig{
			FailTimeout: DefaultFailTimeout,
		},
		Verify: VerifyConfig{
			Retries:       DefaultVerifyRetries,
			RetryDelay:    DefaultVerifyRetryDelay,
			SendTimeout:   DefaultVerifySendTimeout,
			CountryPrefix: DefaultCountryPrefix,
		},
		Watcher: WatcherConfig{
			Enabled:   DefaultWatcherEnabled,
			Interval:  DefaultWatcherInterval,
			BatchSize: DefaultWatcherBatchSize,
		},
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
			}
		}
		// Missing config file is fine; defaults plus env apply.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	cfg.ChatDB.Path = expandHome(cfg.ChatDB.Path)
	cfg.Journal.Path = expandHome(cfg.Journal.Path)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// setDefaults registers every configuration key with its default value.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("chatdb.path", DefaultChatDBPath)
	v.SetDefault("chatdb.query_timeout", DefaultQueryTimeout)

	v.SetDefault("journal.path", DefaultJournalPath)

	v.SetDefault("decode.bridge_command", DefaultBridgeCommand)
	v.SetDefault("decode.bridge_timeout", DefaultBridgeTimeout)
	v.SetDefault("decode.batch_timeout", DefaultBatchTimeout)
	v.SetDefault("decode.temp_dir", "")

	v.SetDefault("status.fail_timeout", DefaultFailTimeout)

	v.SetDefault("verify.retries", DefaultVerifyRetries)
	v.SetDefault("verify.retry_delay", DefaultVerifyRetryDelay)
	v.SetDefault("verify.send_timeout", DefaultVerifySendTimeout)
	v.SetDefault("verify.country_prefix", DefaultCountryPrefix)

	v.SetDefault("watcher.enabled", DefaultWatcherEnabled)
	v.SetDefault("watcher.interval", DefaultWatcherInterval)
	v.SetDefault("watcher.batch_size", DefaultWatcherBatchSize)
}

// expandHome replaces a leading "~" with the current user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
