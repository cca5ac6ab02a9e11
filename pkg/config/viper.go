package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from a yaml file and environment variables.
// configPath is the directory containing config files.
// configName is the name of the config file (without extension).
// A missing config file is not an error: defaults and env vars still apply.
func Load(configPath, configName string) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return v, nil
}

// BindEnvs binds each viper key to an explicit environment variable name.
func BindEnvs(v *viper.Viper, bindings map[string]string) error {
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}
	return nil
}

// Duration parses a duration-valued key, falling back to defaultVal when the
// value is missing or malformed.
func Duration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
