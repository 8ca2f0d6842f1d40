package config

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// Option customizes how a Viper config is assembled.
type Option func(*viper.Viper)

// WithDefaults registers fallback values used when a key is absent from both
// the file and the environment.
func WithDefaults(defaults map[string]any) Option {
	return func(v *viper.Viper) {
		for k, val := range defaults {
			v.SetDefault(k, val)
		}
	}
}

// WithEnvPrefix lets environment variables override file values.
// The key "a.b_c" maps to "<PREFIX>_A_B_C".
func WithEnvPrefix(prefix string) Option {
	return func(v *viper.Viper) {
		v.SetEnvPrefix(prefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
}

// NewViper loads configuration from the given file path and returns a Viper-backed Config.
//
// The config file type is inferred by Viper from the filename extension. A
// ".env" file next to the working directory is loaded into the process
// environment first when present.
func NewViper(pathFile string, opts ...Option) (*Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	for _, opt := range opts {
		opt(v)
	}

	filename := path.Base(pathFile)
	filePath := path.Dir(pathFile)

	configName := path.Base(filename[:len(filename)-len(path.Ext(filename))])

	v.AddConfigPath(filePath)
	v.SetConfigName(configName)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "path", pathFile, "err", err)
			return
		}
		slog.Info("config success reloaded", "path", pathFile)
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory and returns a Viper-backed Config.
// configType should be a format supported by Viper (e.g. "yaml", "json", "toml").
func NewViperFromBytes(configType string, data []byte, opts ...Option) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := viper.New()
	for _, opt := range opts {
		opt(v)
	}
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

// GetInt returns the value for key as int.
func (vc *Viper) GetInt(key string) int {
	return vc.v.GetInt(key)
}

// GetBool returns the value for key as bool.
func (vc *Viper) GetBool(key string) bool {
	return vc.v.GetBool(key)
}

// GetFloat64 returns the value for key as float64.
func (vc *Viper) GetFloat64(key string) float64 {
	return vc.v.GetFloat64(key)
}

// GetMillisecond returns the value for key as milliseconds.
func (vc *Viper) GetMillisecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Millisecond
}

// GetSecond returns the value for key as seconds.
func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

// GetString returns the value for key as string.
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// GetArray returns the value for key as a list, either a YAML sequence or a
// comma-separated string. Blank elements are dropped.
func (vc *Viper) GetArray(key string) []string {
	var items []string
	switch vc.v.Get(key).(type) {
	case []any, []string:
		items = vc.v.GetStringSlice(key)
	default:
		items = strings.Split(vc.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(items, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// Close is a no-op. viper offers no way to stop its file watcher.
func (vc *Viper) Close() error {
	return nil
}
