// Package config loads xref settings from .xref/config.{json,yaml,toml} and
// XREF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the only schema version Validate accepts.
const CurrentVersion = 1

// Config is the complete xref configuration.
type Config struct {
	Version   int      `json:"version" yaml:"version" mapstructure:"version"`
	Languages []string `json:"languages" yaml:"languages" mapstructure:"languages"`
	Parallel  bool     `json:"parallel" yaml:"parallel" mapstructure:"parallel"`
	Workers   int      `json:"workers" yaml:"workers" mapstructure:"workers"`

	Output  OutputConfig  `json:"output" yaml:"output" mapstructure:"output"`
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`
	Index   IndexConfig   `json:"index" yaml:"index" mapstructure:"index"`
}

// OutputConfig says where indexed units go.
type OutputConfig struct {
	DB       string `json:"db" yaml:"db" mapstructure:"db"`
	SCIP     string `json:"scip" yaml:"scip" mapstructure:"scip"`
	Compress bool   `json:"compress" yaml:"compress" mapstructure:"compress"`
}

// LoggingConfig selects the log level and format (human, timestamped or json).
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// IndexConfig tunes how drivers feed the index.
type IndexConfig struct {
	// DedupUses drops repeated uses at the same location.
	DedupUses bool `json:"dedupUses" yaml:"dedupUses" mapstructure:"dedupUses"`
	// Scripts is a directory of Risor extraction scripts, one per extension.
	Scripts string `json:"scripts" yaml:"scripts" mapstructure:"scripts"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Version:   CurrentVersion,
		Languages: []string{"c", "cpp", "go"},
		Parallel:  true,
		Workers:   0,
		Output: OutputConfig{
			DB: ".xref/index.db",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "human",
		},
		Index: IndexConfig{
			DedupUses: true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("languages", d.Languages)
	v.SetDefault("parallel", d.Parallel)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("output.db", d.Output.DB)
	v.SetDefault("output.scip", d.Output.SCIP)
	v.SetDefault("output.compress", d.Output.Compress)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("index.dedupUses", d.Index.DedupUses)
	v.SetDefault("index.scripts", d.Index.Scripts)
}

// Load reads the configuration. An explicit file path wins; otherwise
// <root>/.xref/config.* is used when present. XREF_* environment variables
// (XREF_OUTPUT_DB, XREF_LOGGING_LEVEL, ...) override file values.
func Load(root, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("XREF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(filepath.Join(root, ".xref"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// knownLanguages are the built-in drivers plus the bundled scripts. A custom
// scripts directory may add others.
var knownLanguages = []string{"c", "cpp", "go"}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Message: "must not be negative"}
	}
	for _, lang := range c.Languages {
		if c.Index.Scripts == "" && !slices.Contains(knownLanguages, lang) {
			return &ConfigError{Field: "languages", Message: fmt.Sprintf("unknown language %q", lang)}
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "human", "timestamped", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	if c.Output.Compress && c.Output.SCIP == "" {
		return &ConfigError{Field: "output.compress", Message: "requires output.scip"}
	}
	return nil
}

// ConfigError reports an invalid field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
