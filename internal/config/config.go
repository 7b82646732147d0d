// SPDX-License-Identifier: Apache-2.0

// Package config loads the negotiate-server configuration from defaults, an optional YAML
// file, NEGOTIATE_* environment variables and command line flags, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. NEGOTIATE_LOGGING_LEVEL=debug.
const EnvPrefix = "NEGOTIATE"

// Config is the server configuration.
type Config struct {
	// Listen is the address the HTTP server binds to
	Listen string `mapstructure:"listen"`

	// Mechanism names the acceptor mechanism: "krb5" or "gssapi-c"
	Mechanism string `mapstructure:"mechanism"`

	Kerberos KerberosConfig `mapstructure:"kerberos"`

	// Attribute is the name attribute fetched as authorization data
	Attribute string `mapstructure:"attribute"`

	// AttributePaging fetches every value of Attribute instead of only the first
	AttributePaging bool `mapstructure:"attribute_paging"`

	// PendingTimeout bounds multi-round negotiations waiting on a connection
	PendingTimeout time.Duration `mapstructure:"pending_timeout"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Logging LoggingConfig `mapstructure:"logging"`
}

// KerberosConfig configures the acceptor credential.
type KerberosConfig struct {
	Keytab       string        `mapstructure:"keytab"`
	Principal    string        `mapstructure:"principal"` // keytab principal to accept for; any when empty
	MaxClockSkew time.Duration `mapstructure:"max_clock_skew"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  slog.Level `mapstructure:"level"`
	Format string     `mapstructure:"format"` // text or json
	Output string     `mapstructure:"output"` // stdout, stderr or a file path
}

var defaults = map[string]any{
	"listen":                  ":8080",
	"mechanism":               "krb5",
	"kerberos.keytab":         "/etc/krb5.keytab",
	"kerberos.principal":      "",
	"kerberos.max_clock_skew": 5 * time.Minute,
	"attribute":               "urn:mspac:logon-info",
	"attribute_paging":        false,
	"pending_timeout":         30 * time.Second,
	"shutdown_timeout":        10 * time.Second,
	"logging.level":           "info",
	"logging.format":          "text",
	"logging.output":          "stderr",
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"listen":    "listen",
	"mechanism": "mechanism",
	"keytab":    "kerberos.keytab",
	"principal": "kerberos.principal",
	"log-level": "logging.level",
}

// RegisterFlags adds the flags understood by Load to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("listen", "", "address to listen on (default "+defaults["listen"].(string)+")")
	fs.String("mechanism", "", "acceptor mechanism: krb5 or gssapi-c")
	fs.String("keytab", "", "keytab holding the service keys")
	fs.String("principal", "", "service principal to accept for (default: any in the keytab)")
	fs.String("log-level", "", "log level: debug, info, warn or error")
}

// Load reads the configuration.  A configPath that does not exist is an error; an empty
// configPath means defaults and environment only.  Flags in fs, if any, override
// everything else when set.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("configuration file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if cfg.Mechanism == "" {
		errs = append(errs, errors.New("mechanism is required"))
	}
	if cfg.Attribute == "" {
		errs = append(errs, errors.New("attribute is required"))
	}
	if cfg.PendingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pending_timeout must be positive, got %s", cfg.PendingTimeout))
	}
	if cfg.Kerberos.MaxClockSkew < 0 {
		errs = append(errs, fmt.Errorf("kerberos.max_clock_skew must not be negative, got %s", cfg.Kerberos.MaxClockSkew))
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", cfg.Logging.Format))
	}
	if cfg.Logging.Output == "" {
		errs = append(errs, errors.New("logging.output is required"))
	}

	return errors.Join(errs...)
}
