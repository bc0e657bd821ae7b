// Package config loads tool configuration from an optional YAML file,
// GEECONVERT_* environment variables, and defaults, in that order of
// precedence from lowest to highest file < env.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete tool configuration.
type Config struct {
	Convert  ConvertConfig  `mapstructure:"convert"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Notebook NotebookConfig `mapstructure:"notebook"`
	Run      RunConfig      `mapstructure:"run"`
	Log      LogConfig      `mapstructure:"log"`
}

// ConvertConfig holds per-file conversion settings.
type ConvertConfig struct {
	IndentWidth int  `mapstructure:"indent_width"`
	Header      bool `mapstructure:"header"`
}

// BatchConfig holds tree-conversion settings.
type BatchConfig struct {
	Extensions []string `mapstructure:"extensions"`
	Jobs       int      `mapstructure:"jobs"`
	Manifest   string   `mapstructure:"manifest"`
	CopyOther  bool     `mapstructure:"copy_other"`
}

// NotebookConfig holds notebook rendering settings.
type NotebookConfig struct {
	PromoteMarkdown bool   `mapstructure:"promote_markdown"`
	KernelName      string `mapstructure:"kernel_name"`
	Template        string `mapstructure:"template"`
}

// RunConfig holds headless execution settings.
type RunConfig struct {
	Python          string        `mapstructure:"python"`
	CellTimeout     time.Duration `mapstructure:"cell_timeout"`
	NotebookTimeout time.Duration `mapstructure:"notebook_timeout"`
	StopOnError     bool          `mapstructure:"stop_on_error"`
	Jobs            int           `mapstructure:"jobs"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load builds the configuration. When cfgFile is empty, geeconvert.yaml is
// looked up in the working directory; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("geeconvert")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GEECONVERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks numeric ranges and required values.
func (c *Config) Validate() error {
	if c.Convert.IndentWidth < 1 || c.Convert.IndentWidth > 16 {
		return errors.New("convert.indent_width must be between 1 and 16")
	}
	if c.Batch.Jobs < 1 {
		return errors.New("batch.jobs must be at least 1")
	}
	if len(c.Batch.Extensions) == 0 {
		return errors.New("batch.extensions must not be empty")
	}
	for _, ext := range c.Batch.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("batch extension %q must start with a dot", ext)
		}
	}
	if c.Run.Python == "" {
		return errors.New("run.python is required")
	}
	if c.Run.CellTimeout < time.Second {
		return errors.New("run.cell_timeout must be at least 1s")
	}
	if c.Run.NotebookTimeout < 0 {
		return errors.New("run.notebook_timeout must not be negative")
	}
	if c.Run.Jobs < 1 {
		return errors.New("run.jobs must be at least 1")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("convert.indent_width", 4)
	v.SetDefault("convert.header", true)

	v.SetDefault("batch.extensions", []string{".js"})
	v.SetDefault("batch.jobs", 4)
	v.SetDefault("batch.manifest", "geeconvert-report.yaml")
	v.SetDefault("batch.copy_other", false)

	v.SetDefault("notebook.promote_markdown", true)
	v.SetDefault("notebook.kernel_name", "python3")

	v.SetDefault("run.python", "python3")
	v.SetDefault("run.cell_timeout", "2m")
	v.SetDefault("run.notebook_timeout", "20m")
	v.SetDefault("run.stop_on_error", false)
	v.SetDefault("run.jobs", 1)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
