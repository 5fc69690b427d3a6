// Package config loads the test matrix file and the run settings using koanf.
// Run settings are layered with priority: command line flags > environment
// variables (MATRIX_RUNNER_*) > defaults. The matrix file may be TOML, YAML or
// JSON, selected by file extension.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "MATRIX_RUNNER_"

// Settings are the run-wide knobs that are not part of the matrix file.
type Settings struct {
	// Jobs is the number of cases run concurrently. Zero means one per CPU.
	Jobs int `koanf:"jobs" validate:"gte=0"`

	// TotalRunners and RunnerIndex select the shard of the matrix this
	// process executes. Case i is kept when i % TotalRunners == RunnerIndex.
	TotalRunners int `koanf:"total_runners" validate:"gte=1"`
	RunnerIndex  int `koanf:"runner_index" validate:"gte=0"`

	FailFast bool `koanf:"fail_fast"`
	// Timeout bounds each run attempt. Zero disables it.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
	Retries int           `koanf:"retries" validate:"gte=0"`

	ArtifactDir string `koanf:"artifact_dir"`
	// Cargo is the cargo executable. Empty falls back to $CARGO, then "cargo".
	Cargo string `koanf:"cargo"`

	LogLevel  string `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`
}

// Shards returns the shard selection of s.
func (s *Settings) Shards() matrix.Shards {
	return matrix.Shards{Total: s.TotalRunners, Index: s.RunnerIndex}
}

// Concurrency returns Jobs, or cpus when Jobs is unset.
func (s *Settings) Concurrency(cpus int) int {
	if s.Jobs > 0 {
		return s.Jobs
	}
	return max(1, cpus)
}

// SettingsOptions configures how settings are loaded
type SettingsOptions struct {
	// Overrides holds values from explicitly set command line flags, keyed
	// like the koanf tags of Settings.
	Overrides map[string]any
	// SkipEnv ignores MATRIX_RUNNER_* variables.
	SkipEnv bool
}

// LoadSettings builds the run settings from defaults, the environment and
// opts.Overrides, in increasing priority.
func LoadSettings(opts SettingsOptions) (*Settings, error) {
	k := koanf.New(".")

	loadDefaults(k)

	if !opts.SkipEnv {
		if err := loadEnvironmentConfig(k); err != nil {
			return nil, err
		}
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("applying flag %s: %w", key, err)
		}
	}

	return finalizeSettings(k)
}

// loadDefaults applies default setting values
func loadDefaults(k *koanf.Koanf) {
	for key, value := range GetDefaults() {
		k.Set(key, value)
	}
}

// loadEnvironmentConfig loads environment variable overrides
func loadEnvironmentConfig(k *koanf.Koanf) error {
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return fmt.Errorf("failed to load environment config: %w", err)
	}
	return nil
}

// finalizeSettings unmarshals, validates, and applies final transformations
func finalizeSettings(k *koanf.Koanf) (*Settings, error) {
	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	s.LogLevel = strings.ToLower(s.LogLevel)
	s.LogFormat = strings.ToLower(s.LogFormat)

	if err := ValidateSettings(&s); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}

	s.ArtifactDir = expandHomePath(s.ArtifactDir)
	s.Cargo = expandHomePath(s.Cargo)
	return &s, nil
}

func envTransform(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

// expandHomePath expands ~ to the user's home directory
func expandHomePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}
