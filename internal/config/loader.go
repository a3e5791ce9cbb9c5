package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/rentscope/rentscope/pkg/errors"
)

const envPrefix = "RENTSCOPE"

// Load reads configuration from the given file (optional) layered under
// RENTSCOPE_* environment variables.  Environment keys use underscores for
// nesting: RENTSCOPE_DATABASE_HOST overrides database.host.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidation, "config file unreadable").WithDetail(path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidation, "config decode failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch re-reads the config file on change and delivers the new, validated
// configuration.  Invalid edits are reported and the previous configuration
// stays in force.  Only safe-to-reload consumers should subscribe; the
// connection pools ignore reloads.
func Watch(path string, onChange func(*Config), onError func(error)) error {
	if path == "" {
		return errors.Validation("config watch requires a file path")
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, errors.CodeValidation, "config file unreadable").WithDetail(path)
	}

	v.OnConfigChange(func(fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			onError(errors.Wrap(err, errors.CodeValidation, "config reload decode failed"))
			return
		}
		if err := cfg.Validate(); err != nil {
			onError(err)
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
