package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/wavsegment/internal/segment"
)

var configEnv = []string{
	"OUTPUT_DIR", "OUTPUT_PREFIX", "DRY_RUN", "WORK_DIR",
	"MIN_SILENCE_LENGTH", "SILENCE_THRESHOLD", "STEP_DURATION",
	"CHUNK_DURATION", "OVERLAP", "TAIL_MERGE_RATIO", "MAX_DURATION",
	"MAX_CONCURRENT_FILES",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_PREFIX",
	"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "REMOVE_AFTER_PUBLISH",
	"METRICS_FILE", "LOG_FORMAT", "LOG_LEVEL",
}

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		if old, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, old) })
		}
		_ = os.Unsetenv(key)
	}
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.OutputDir)
	assert.Equal(t, "joined", cfg.OutputPrefix)
	assert.False(t, cfg.DryRun)
	assert.Equal(t, 3.0, cfg.MinSilenceLength)
	assert.Equal(t, 1e-6, cfg.SilenceThreshold)
	assert.Equal(t, 0.0, cfg.StepDuration)
	assert.Equal(t, 30.0, cfg.ChunkDuration)
	assert.Equal(t, 0.0, cfg.Overlap)
	assert.Equal(t, 1.0, cfg.TailMergeRatio)
	assert.Equal(t, 600.0, cfg.MaxDuration)
	assert.Equal(t, 2, cfg.MaxConcurrentFiles)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.S3Enabled())
}

func TestLoad_DefaultsMatchEngine(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, segment.DefaultSilenceOptions(), cfg.SilenceOptions())
	assert.Equal(t, segment.DefaultTimeOptions(), cfg.TimeOptions())
	assert.Equal(t, segment.DefaultJoinOptions(), cfg.JoinOptions())
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("MIN_SILENCE_LENGTH", "1.5")
	t.Setenv("SILENCE_THRESHOLD", "0.001")
	t.Setenv("CHUNK_DURATION", "60")
	t.Setenv("OVERLAP", "2.5")
	t.Setenv("MAX_DURATION", "300")
	t.Setenv("MAX_CONCURRENT_FILES", "4")
	t.Setenv("S3_BUCKET", "my-bucket")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "access-key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret-key")
	t.Setenv("REMOVE_AFTER_PUBLISH", "true")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "/data/out", cfg.OutputDir)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 1.5, cfg.MinSilenceLength)
	assert.Equal(t, 0.001, cfg.SilenceThreshold)
	assert.Equal(t, 60.0, cfg.ChunkDuration)
	assert.Equal(t, 2.5, cfg.Overlap)
	assert.Equal(t, 300.0, cfg.MaxDuration)
	assert.Equal(t, 4, cfg.MaxConcurrentFiles)
	assert.Equal(t, "access-key", cfg.AWSAccessKeyID)
	assert.Equal(t, "secret-key", cfg.AWSSecretAccessKey)
	assert.True(t, cfg.RemoveAfterPublish)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.S3Enabled())

	silence := cfg.SilenceOptions()
	assert.Equal(t, "/data/out", silence.OutputDir)
	assert.True(t, silence.DryRun)
	assert.Equal(t, 2.5, cfg.TimeOptions().Overlap)
	assert.Equal(t, 300.0, cfg.JoinOptions().MaxDuration)
}

func TestLoad_Profile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_DURATION", "45")
	t.Setenv("MAX_DURATION", "120")

	path := writeProfile(t, `
chunk_duration: 10
overlap: 1
output_prefix: lecture
aws_access_key_id: ignored
`)

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	// Profile wins over the environment.
	assert.Equal(t, 10.0, cfg.ChunkDuration)
	assert.Equal(t, 1.0, cfg.Overlap)
	assert.Equal(t, "lecture", cfg.OutputPrefix)
	// Environment fills what the profile left unset.
	assert.Equal(t, 120.0, cfg.MaxDuration)
	assert.Equal(t, 3.0, cfg.MinSilenceLength)
	// Credentials are never read from a profile.
	assert.Empty(t, cfg.AWSAccessKeyID)
}

func TestLoad_ProfileErrors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeProfile(t, "chunk_duration: [1, 2\n")
		_, err := Load(context.Background(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse profile")
	})
}

func TestLoad_InvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_CONCURRENT_FILES", "not-a-number")

	_, err := Load(context.Background(), "")
	require.Error(t, err)
}

func TestLoad_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero min silence", "MIN_SILENCE_LENGTH", "0"},
		{"threshold above one", "SILENCE_THRESHOLD", "1.5"},
		{"negative chunk", "CHUNK_DURATION", "-1"},
		{"overlap not below chunk", "OVERLAP", "30"},
		{"tail ratio above one", "TAIL_MERGE_RATIO", "2"},
		{"zero max duration", "MAX_DURATION", "0"},
		{"zero workers", "MAX_CONCURRENT_FILES", "0"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"prefix with slash", "OUTPUT_PREFIX", "a/b"},
		{"bad endpoint", "S3_ENDPOINT", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load(context.Background(), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfig_S3Enabled(t *testing.T) {
	tests := []struct {
		name     string
		bucket   string
		region   string
		expected bool
	}{
		{"both set", "bucket", "region", true},
		{"only bucket", "bucket", "", false},
		{"only region", "", "region", false},
		{"neither set", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				S3Bucket: tt.bucket,
				S3Region: tt.region,
			}
			assert.Equal(t, tt.expected, cfg.S3Enabled())
		})
	}
}

func TestConfig_String(t *testing.T) {
	cfg := &Config{
		OutputDir:          "/data/out",
		ChunkDuration:      30,
		S3Bucket:           "bucket",
		S3Region:           "region",
		AWSAccessKeyID:     "access-key",
		AWSSecretAccessKey: "secret-key",
		LogFormat:          "json",
		LogLevel:           "info",
	}

	str := cfg.String()

	// Should contain non-sensitive values
	assert.Contains(t, str, "/data/out")
	assert.Contains(t, str, "bucket")

	// Should NOT contain sensitive values
	assert.NotContains(t, str, "access-key")
	assert.NotContains(t, str, "secret-key")
}

func TestConfig_NewLogger_JSON(t *testing.T) {
	cfg := &Config{
		LogFormat: "json",
		LogLevel:  "info",
	}

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	require.NotNil(t, logger)

	logger.Info("test message")
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), `"msg":"test message"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestConfig_NewLogger_Text(t *testing.T) {
	cfg := &Config{
		LogFormat: "text",
		LogLevel:  "debug",
	}

	var buf bytes.Buffer
	logger := cfg.NewLogger(&buf)
	require.NotNil(t, logger)

	logger.Debug("visible")

	assert.Contains(t, buf.String(), "msg=visible")
	assert.Contains(t, buf.String(), "level=DEBUG")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
