package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. SHREDDER_WIPE_PASSES.
const EnvPrefix = "SHREDDER"

type WipeConfig struct {
	Passes       int     `yaml:"passes" mapstructure:"passes" validate:"min=1,max=35"`
	ChunkSize    int     `yaml:"chunk_size" mapstructure:"chunk_size" validate:"min=4096,max=67108864"`
	MaxSpeedMBps float64 `yaml:"max_speed_mbps" mapstructure:"max_speed_mbps" validate:"gte=0,lte=10000"`
}

type EncryptConfig struct {
	Cipher string `yaml:"cipher" mapstructure:"cipher" validate:"oneof=aes-256-cbc xchacha20"`
	// StagingDir holds scratch ciphertext; empty means the system temp dir.
	StagingDir string `yaml:"staging_dir" mapstructure:"staging_dir"`
}

type WalkConfig struct {
	OnEnumerationError string `yaml:"on_enumeration_error" mapstructure:"on_enumeration_error" validate:"oneof=discard partial"`
}

type SecurityConfig struct {
	RequireConfirmation bool     `yaml:"require_confirmation" mapstructure:"require_confirmation"`
	ProtectedPaths      []string `yaml:"protected_paths" mapstructure:"protected_paths" validate:"dive,required"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=console json"`
	File   string `yaml:"file" mapstructure:"file"`
}

type ReportingConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	LocalPath string `yaml:"local_path" mapstructure:"local_path" validate:"required_if=Enabled true"`
	Format    string `yaml:"format" mapstructure:"format" validate:"oneof=txt json both"`
	// ListTargets adds one line per erased file to certificates. Off by
	// default so certificates do not preserve the names of destroyed files.
	ListTargets bool `yaml:"list_targets" mapstructure:"list_targets"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	File        string `yaml:"file" mapstructure:"file" validate:"required_if=Enabled true"`
	ServiceName string `yaml:"service_name" mapstructure:"service_name" validate:"required"`
}

// Config is the full shredder configuration.
type Config struct {
	Wipe      WipeConfig      `yaml:"wipe" mapstructure:"wipe"`
	Encrypt   EncryptConfig   `yaml:"encrypt" mapstructure:"encrypt"`
	Walk      WalkConfig      `yaml:"walk" mapstructure:"walk"`
	Security  SecurityConfig  `yaml:"security" mapstructure:"security"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Reporting ReportingConfig `yaml:"reporting" mapstructure:"reporting"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Wipe: WipeConfig{
			Passes:       3,
			ChunkSize:    64 * 1024,
			MaxSpeedMBps: 0, // unlimited
		},
		Encrypt: EncryptConfig{
			Cipher: "aes-256-cbc",
		},
		Walk: WalkConfig{
			OnEnumerationError: "discard",
		},
		Security: SecurityConfig{
			RequireConfirmation: true,
			ProtectedPaths:      defaultProtectedPaths(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Reporting: ReportingConfig{
			Enabled:   true,
			LocalPath: "./certificates",
			Format:    "txt",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "secureshred",
		},
	}
}

// Load reads the YAML file at path on top of the defaults and applies
// SHREDDER_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(Default())
	if err != nil {
		return nil, errors.Wrap(err, "encode defaults")
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, errors.Wrap(err, "load defaults")
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to parse config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and the few rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	for _, p := range cfg.Security.ProtectedPaths {
		if filepath.Clean(p) == "." {
			return errors.Newf("invalid configuration: protected path %q is relative to nothing", p)
		}
	}
	if cfg.Wipe.ChunkSize%16 != 0 {
		return errors.Newf("invalid configuration: chunk size %d is not a multiple of 16", cfg.Wipe.ChunkSize)
	}
	return nil
}

// Save validates cfg and writes it as YAML.
func Save(cfg *Config, path string) error {
	if err := Validate(cfg); err != nil {
		return errors.Wrap(err, "cannot save invalid config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

func defaultProtectedPaths() []string {
	switch runtime.GOOS {
	case "windows":
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		return []string{
			drive + `\`,
			filepath.Join(drive+`\`, "Windows"),
			filepath.Join(drive+`\`, "Program Files"),
			filepath.Join(drive+`\`, "Program Files (x86)"),
			filepath.Join(drive+`\`, "Users"),
		}
	case "darwin":
		return []string{"/", "/System", "/Library", "/Applications", "/Users", "/bin", "/sbin", "/usr", "/etc", "/var", "/private"}
	default:
		return []string{"/", "/bin", "/boot", "/dev", "/etc", "/home", "/lib", "/proc", "/root", "/sbin", "/sys", "/usr", "/var"}
	}
}
