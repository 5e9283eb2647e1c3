// Package config holds the typed daemon configuration read from viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"clipboard-history/internal/codec"
	"clipboard-history/internal/storage"
)

const (
	AppName             = "clipboard-history"
	EnvPrefix           = "CLIPHIST"
	DefaultAddr         = "127.0.0.1:8753"
	DefaultPollInterval = 500 * time.Millisecond
)

// Keys shared by flags, env vars and the config file.
const (
	KeyDataDir       = "data-dir"
	KeyMaxItems      = "max-items"
	KeyPollInterval  = "poll-interval"
	KeyAddr          = "addr"
	KeyDisplayLimit  = "display-limit"
	KeyImageQuality  = "image-quality"
	KeyRawImageLimit = "raw-image-limit"
	KeyLaunchAtLogin = "launch-at-login"
)

type Config struct {
	DataDir       string
	MaxItems      int
	PollInterval  time.Duration
	Addr          string
	DisplayLimit  int
	ImageQuality  int
	RawImageLimit int
	// LaunchAtLogin is a stored preference only; nothing registers a login item.
	LaunchAtLogin bool
}

// DBPath is the history database inside the data directory.
func (c Config) DBPath() string { return filepath.Join(c.DataDir, storage.DBFileName) }

// PIDPath is the single-instance lock file inside the data directory.
func (c Config) PIDPath() string { return filepath.Join(c.DataDir, AppName+".pid") }

// DefaultDataDir returns the application-private directory under the user config dir.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	return filepath.Join(os.TempDir(), AppName)
}

// SetDefaults registers defaults for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyMaxItems, storage.DefaultMaxItems)
	v.SetDefault(KeyPollInterval, DefaultPollInterval)
	v.SetDefault(KeyAddr, DefaultAddr)
	v.SetDefault(KeyDisplayLimit, 0)
	v.SetDefault(KeyImageQuality, codec.DefaultQuality)
	v.SetDefault(KeyRawImageLimit, codec.DefaultRawImageLimit)
	v.SetDefault(KeyLaunchAtLogin, false)
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		DataDir:       v.GetString(KeyDataDir),
		MaxItems:      v.GetInt(KeyMaxItems),
		PollInterval:  v.GetDuration(KeyPollInterval),
		Addr:          v.GetString(KeyAddr),
		DisplayLimit:  v.GetInt(KeyDisplayLimit),
		ImageQuality:  v.GetInt(KeyImageQuality),
		RawImageLimit: v.GetInt(KeyRawImageLimit),
		LaunchAtLogin: v.GetBool(KeyLaunchAtLogin),
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.MaxItems < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyMaxItems, c.MaxItems))
	}
	if c.PollInterval < 10*time.Millisecond {
		errs = append(errs, fmt.Errorf("%s must be at least 10ms, got %s", KeyPollInterval, c.PollInterval))
	}
	if c.DisplayLimit < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyDisplayLimit))
	}
	if c.ImageQuality < 1 || c.ImageQuality > 100 {
		errs = append(errs, fmt.Errorf("%s must be within 1-100, got %d", KeyImageQuality, c.ImageQuality))
	}
	if c.RawImageLimit < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyRawImageLimit))
	}
	if c.Addr == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyAddr))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// EnvKeyReplacer maps dashed keys to underscore env names (max-items → CLIPHIST_MAX_ITEMS).
func EnvKeyReplacer() *strings.Replacer { return strings.NewReplacer("-", "_") }
