package config

import (
	"errors"
	"runtime"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "ORBITSIM"

// Settings are runtime options, distinct from a scenario. Precedence is
// flag, then ORBITSIM_* environment variable, then settings file, then default.
type Settings struct {
	DataDir     string
	LogLevel    string
	LogFormat   string
	MetricsAddr string
	MaxBytes    int64
	Workers     int
}

// NewViper returns a viper instance with defaults and environment binding.
// Keys use dashes; the matching variables use underscores, e.g. ORBITSIM_LOG_LEVEL.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("data", ".orbitsim")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "logfmt")
	v.SetDefault("metrics-addr", "")
	v.SetDefault("max-bytes", int64(2<<30))
	v.SetDefault("workers", runtime.GOMAXPROCS(0))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags lets the runtime flags in the set override their keys.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var errs []error
	flags.VisitAll(func(f *pflag.Flag) {
		if isSettingKey(f.Name) {
			errs = append(errs, v.BindPFlag(f.Name, f))
		}
	})
	return errors.Join(errs...)
}

func isSettingKey(name string) bool {
	switch name {
	case "data", "log-level", "log-format", "metrics-addr", "max-bytes", "workers":
		return true
	}
	return false
}

// ReadSettingsFile merges an optional yaml/toml/json settings file.
func ReadSettingsFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	return v.ReadInConfig()
}

func LoadSettings(v *viper.Viper) Settings {
	return Settings{
		DataDir:     v.GetString("data"),
		LogLevel:    v.GetString("log-level"),
		LogFormat:   v.GetString("log-format"),
		MetricsAddr: v.GetString("metrics-addr"),
		MaxBytes:    v.GetInt64("max-bytes"),
		Workers:     v.GetInt("workers"),
	}
}
