// Package config provides configuration loading from an optional YAML profile
// and environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/maauso/wavsegment/internal/segment"
)

// ErrInvalidConfig is returned when a setting is out of range.
var ErrInvalidConfig = errors.New("config: invalid value")

// Config holds all configuration for the application.
//
// Values from a YAML profile win over environment variables, which win over
// the defaults. A false boolean in the profile cannot override a true one
// from the environment.
type Config struct {
	// Output settings
	OutputDir    string `env:"OUTPUT_DIR" yaml:"output_dir" json:"output_dir,omitempty"`
	OutputPrefix string `env:"OUTPUT_PREFIX, default=joined" yaml:"output_prefix" json:"output_prefix" validate:"excludesall=/"`
	DryRun       bool   `env:"DRY_RUN, default=false" yaml:"dry_run" json:"dry_run"`
	WorkDir      string `env:"WORK_DIR" yaml:"work_dir" json:"work_dir,omitempty"`

	// Silence splitting
	MinSilenceLength float64 `env:"MIN_SILENCE_LENGTH, default=3.0" yaml:"min_silence_length" json:"min_silence_length" validate:"gt=0"`
	SilenceThreshold float64 `env:"SILENCE_THRESHOLD, default=1e-6" yaml:"silence_threshold" json:"silence_threshold" validate:"gte=0,lte=1"`
	StepDuration     float64 `env:"STEP_DURATION, default=0" yaml:"step_duration" json:"step_duration" validate:"gte=0"`

	// Time splitting
	ChunkDuration  float64 `env:"CHUNK_DURATION, default=30.0" yaml:"chunk_duration" json:"chunk_duration" validate:"gt=0"`
	Overlap        float64 `env:"OVERLAP, default=0" yaml:"overlap" json:"overlap" validate:"gte=0,ltfield=ChunkDuration"`
	TailMergeRatio float64 `env:"TAIL_MERGE_RATIO, default=1.0" yaml:"tail_merge_ratio" json:"tail_merge_ratio" validate:"gt=0,lte=1"`

	// Joining
	MaxDuration float64 `env:"MAX_DURATION, default=600.0" yaml:"max_duration" json:"max_duration" validate:"gt=0"`

	// Processing settings
	MaxConcurrentFiles int `env:"MAX_CONCURRENT_FILES, default=2" yaml:"max_concurrent_files" json:"max_concurrent_files" validate:"gte=1"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" yaml:"s3_bucket" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" yaml:"s3_region" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" yaml:"s3_endpoint" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3Prefix           string `env:"S3_PREFIX" yaml:"s3_prefix" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" yaml:"-" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" yaml:"-" json:"-"` // Masked in JSON
	RemoveAfterPublish bool   `env:"REMOVE_AFTER_PUBLISH, default=false" yaml:"remove_after_publish" json:"remove_after_publish"`

	// Metrics textfile, written after every run when set
	MetricsFile string `env:"METRICS_FILE" yaml:"metrics_file" json:"metrics_file,omitempty"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" yaml:"log_format" json:"log_format" validate:"oneof=text json"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" yaml:"log_level" json:"log_level"`                                 // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load builds the configuration. If profilePath is not empty the YAML profile
// is read first; environment variables and defaults then fill the fields the
// profile left unset.
func Load(ctx context.Context, profilePath string) (*Config, error) {
	cfg := &Config{}

	if profilePath != "" {
		data, err := os.ReadFile(profilePath) // #nosec G304 -- path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("config: read profile %s: %w", profilePath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse profile %s: %w", profilePath, err)
		}
	}

	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the ranges of all settings.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %s=%s (got %v)", ErrInvalidConfig, fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
}

// SilenceOptions returns the silence splitting options in effect.
func (c *Config) SilenceOptions() segment.SilenceOptions {
	return segment.SilenceOptions{
		MinSilenceLength: c.MinSilenceLength,
		SilenceThreshold: c.SilenceThreshold,
		StepDuration:     c.StepDuration,
		OutputDir:        c.OutputDir,
		DryRun:           c.DryRun,
	}
}

// TimeOptions returns the time splitting options in effect.
func (c *Config) TimeOptions() segment.TimeOptions {
	return segment.TimeOptions{
		ChunkDuration:  c.ChunkDuration,
		Overlap:        c.Overlap,
		TailMergeRatio: c.TailMergeRatio,
		OutputDir:      c.OutputDir,
		DryRun:         c.DryRun,
	}
}

// JoinOptions returns the join options in effect. Inputs are chosen per call.
func (c *Config) JoinOptions() segment.JoinOptions {
	return segment.JoinOptions{
		MaxDuration:  c.MaxDuration,
		OutputPrefix: c.OutputPrefix,
		OutputDir:    c.OutputDir,
		DryRun:       c.DryRun,
	}
}

// NewLogger creates a structured logger writing to w.
// When LogFormat is "json", it outputs JSON logs suitable for log shipping.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{OutputDir: %s, DryRun: %t, MinSilenceLength: %g, SilenceThreshold: %g, ChunkDuration: %g, Overlap: %g, MaxDuration: %g, MaxConcurrentFiles: %d, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, LogFormat: %s, LogLevel: %s}",
		c.OutputDir,
		c.DryRun,
		c.MinSilenceLength,
		c.SilenceThreshold,
		c.ChunkDuration,
		c.Overlap,
		c.MaxDuration,
		c.MaxConcurrentFiles,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
