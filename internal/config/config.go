// Package config loads nfsd3's static configuration: listen address,
// export name, protocol ceilings, transaction-tracker tuning, and
// logging, from an optional file, environment variables that override
// the keys that file sets, and defaults for everything else, validated
// before the server starts.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/go-nfsd/nfsd3/internal/bytesize"
)

// Config is nfsd3's complete static configuration.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (NFSD3_*), for keys the configuration file sets
//  2. Configuration file (YAML or TOML)
//  3. Default values
//
// Environment variables are read only for keys present in the
// configuration file; when no file is found, they are ignored and the
// defaults are used.
type Config struct {
	// Listen controls the combined NFS/MOUNT/PORTMAP listener.
	Listen ListenConfig `mapstructure:"listen"`

	// Export names the single filesystem tree this server serves.
	Export ExportConfig `mapstructure:"export"`

	// Limits bounds READ/WRITE sizes and name/path lengths advertised
	// via FSINFO/PATHCONF and enforced server-side.
	Limits LimitsConfig `mapstructure:"limits"`

	// Tracker tunes the RPC duplicate-request cache.
	Tracker TrackerConfig `mapstructure:"tracker"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics controls the Prometheus metrics endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ListenConfig configures the combined RPC listener.
type ListenConfig struct {
	// Address is the bind address, e.g. "0.0.0.0" or "127.0.0.1".
	Address string `mapstructure:"address" validate:"required"`

	// Port is the TCP port NFS and MOUNT both answer on (spec.md §6:
	// single port, program-number routing).
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`

	// PortmapPort is the PORTMAP v2 listen port (111 by convention; a
	// test harness may rebind it to an ephemeral port).
	PortmapPort int `mapstructure:"portmap_port" validate:"required,min=1,max=65535"`
}

// ExportConfig names the single export this server publishes through
// MOUNT.
type ExportConfig struct {
	// Name is the path clients pass to mount(8), e.g. "/export".
	Name string `mapstructure:"name" validate:"required"`

	// ID is the one-byte export identifier embedded in every minted
	// file handle (internal/nfs3.FileHandleConverter).
	ID uint8 `mapstructure:"id"`
}

// LimitsConfig mirrors internal/nfs3.Limits, sourced from
// configuration rather than hardcoded. The size fields accept
// human-readable values ("1MiB", "64Ki") as well as plain byte counts,
// via bytesize.ByteSize's decode hook.
type LimitsConfig struct {
	RtMax       bytesize.ByteSize `mapstructure:"rtmax" validate:"required,gt=0"`
	RtPref      bytesize.ByteSize `mapstructure:"rtpref" validate:"required,gt=0"`
	WtMax       bytesize.ByteSize `mapstructure:"wtmax" validate:"required,gt=0"`
	WtPref      bytesize.ByteSize `mapstructure:"wtpref" validate:"required,gt=0"`
	DtPref      bytesize.ByteSize `mapstructure:"dtpref" validate:"required,gt=0"`
	MaxFileSize bytesize.ByteSize `mapstructure:"max_file_size" validate:"required,gt=0"`
	NameMax     uint32            `mapstructure:"name_max" validate:"required,gt=0"`
	PathMax     uint32            `mapstructure:"path_max" validate:"required,gt=0"`
}

// TrackerConfig tunes internal/rpc.TransactionTracker.
type TrackerConfig struct {
	TTL          time.Duration `mapstructure:"ttl" validate:"required,gt=0"`
	MaxClients   int           `mapstructure:"max_clients" validate:"required,gt=0"`
	MaxPerClient int           `mapstructure:"max_per_client" validate:"required,gt=0"`
}

// LoggingConfig controls internal/logger.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format is the log output encoding.
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output is where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
}

// Load reads configuration from configPath (if non-empty and the file
// exists), lets environment variables prefixed NFSD3_ override the keys
// that file sets, applies defaults for anything left unset, and
// validates the result. Without a config file, environment variables
// are not consulted.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if found {
		hook := mapstructure.ComposeDecodeHookFunc(
			byteSizeDecodeHook(),
			mapstructure.StringToTimeDurationHookFunc(),
		)
		if err := v.Unmarshal(cfg, viper.DecodeHook(hook)); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("NFSD3")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("nfsd3")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

var validate = validator.New()

// Validate checks cfg's struct tags with go-playground/validator.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

// byteSizeDecodeHook converts a config value bound for a
// bytesize.ByteSize field from a human-readable string ("1MiB",
// "64Ki") or a plain number, so limits.* can be authored either way.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// DefaultConfig returns the configuration spec.md's scenarios exercise:
// a single "/export" tree, 1 MiB I/O ceilings, and a modest transaction
// tracker.
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			Address:     "0.0.0.0",
			Port:        2049,
			PortmapPort: 111,
		},
		Export: ExportConfig{
			Name: "/export",
			ID:   1,
		},
		Limits: LimitsConfig{
			RtMax:       bytesize.MiB,
			RtPref:      bytesize.MiB,
			WtMax:       bytesize.MiB,
			WtPref:      bytesize.MiB,
			DtPref:      32 * bytesize.KiB,
			MaxFileSize: bytesize.GiB,
			NameMax:     255,
			PathMax:     4096,
		},
		Tracker: TrackerConfig{
			TTL:          60 * time.Second,
			MaxClients:   256,
			MaxPerClient: 1024,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}
