// Package config loads predsql settings from flags, PREDSQL_* environment
// variables and an optional predsql.yaml file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. PREDSQL_DIALECT.
const EnvPrefix = "PREDSQL"

// FileName is the config file looked up in the working directory when no
// explicit path is given.
const FileName = "predsql"

// Config holds the settings shared by the CLI commands.
type Config struct {
	// Dialect is the target SQL dialect name.
	Dialect string `mapstructure:"dialect"`

	// Format is the output format: text or json.
	Format string `mapstructure:"format"`

	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`

	// Fields is the path to a CUE or YAML entity schema.
	Fields string `mapstructure:"fields"`

	// Entity selects the schema entity.
	Entity string `mapstructure:"entity"`

	// DB is the SQLite database path used by the query command.
	DB string `mapstructure:"db"`

	// Limit caps the rows returned by the query command. Zero means no limit.
	Limit uint64 `mapstructure:"limit"`
}

// New returns a viper instance with predsql defaults and environment
// binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("dialect", "plain")
	v.SetDefault("format", "text")
	v.SetDefault("verbose", false)
	v.SetDefault("fields", "")
	v.SetDefault("entity", "")
	v.SetDefault("db", "")
	v.SetDefault("limit", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load binds flags to v, reads the config file and decodes the result.
//
// With an explicit configFile a missing or malformed file is an error.
// Otherwise predsql.yaml in the working directory is read if present.
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string) (Config, error) {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q (want text or json)", c.Format)
	}
	return nil
}

// File returns the config file viper read, or "" if none was found.
func File(v *viper.Viper) string {
	return v.ConfigFileUsed()
}
