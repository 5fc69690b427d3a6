package cli

import (
	goerrors "errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ariel-frischer/matrix-runner/internal/config"
	"github.com/ariel-frischer/matrix-runner/internal/errors"
	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/logging"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/ariel-frischer/matrix-runner/internal/project"
	"github.com/spf13/cobra"
)

// settingsFlags maps command line flags to settings keys. Only flags the user
// set explicitly override the environment.
var settingsFlags = map[string]string{
	"jobs":          "jobs",
	"total-runners": "total_runners",
	"runner-index":  "runner_index",
	"fail-fast":     "fail_fast",
	"timeout":       "timeout",
	"retries":       "retries",
	"artifact-dir":  "artifact_dir",
	"cargo":         "cargo",
	"log-level":     "log_level",
	"log-format":    "log_format",
}

// matrixFlags are the flags shared by commands that read the matrix.
type matrixFlags struct {
	configPath string
	projectDir string
}

func (f *matrixFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", config.DefaultMatrixFile, "Matrix file (.toml, .yaml or .json); relative to the project unless given")
	cmd.Flags().StringVarP(&f.projectDir, "project", "p", ".", "Cargo project directory")
}

func registerShardFlags(cmd *cobra.Command) {
	cmd.Flags().Int("total-runners", 1, "Number of runners the matrix is split across")
	cmd.Flags().Int("runner-index", 0, "Index of this runner, 0 <= index < total-runners")
}

// session is everything a command needs once flags are resolved.
type session struct {
	settings *config.Settings
	logger   *slog.Logger
	project  *project.Project
	matrix   *config.Matrix
	catalog  *i18n.Catalog
	host     matrix.Host
}

func settingsOverrides(cmd *cobra.Command) map[string]any {
	overrides := make(map[string]any)
	for name, key := range settingsFlags {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	return overrides
}

// loadSettings layers defaults, MATRIX_RUNNER_* and explicit flags.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	total := cmd.Flags().Lookup("total-runners")
	index := cmd.Flags().Lookup("runner-index")
	if total != nil && index != nil && total.Changed != index.Changed {
		return nil, errors.ShardFlagsIncomplete()
	}

	settings, err := config.LoadSettings(config.SettingsOptions{Overrides: settingsOverrides(cmd)})
	if err != nil {
		if goerrors.Is(err, matrix.ErrInvalidShard) {
			return nil, errors.InvalidShard(err)
		}
		return nil, errors.InvalidSettings(err)
	}
	return settings, nil
}

func newLogger(cmd *cobra.Command, settings *config.Settings) *slog.Logger {
	// settings are validated, so the level parses
	level, _ := logging.ParseLevel(settings.LogLevel)
	return logging.NewLoggerWithWriter(level, logging.Format(settings.LogFormat), cmd.ErrOrStderr())
}

func detectProject(dir string, logger *slog.Logger) (*project.Project, error) {
	p, err := project.Detect(dir, logger)
	if err != nil {
		if project.IsNotFound(err) {
			return nil, errors.ProjectNotFound(dir, err)
		}
		return nil, errors.Wrap(err, errors.Prerequisite)
	}
	return p, nil
}

// matrixPath resolves the matrix file: the default name lives in the project
// root, an explicit path is taken relative to the working directory.
func matrixPath(cmd *cobra.Command, f *matrixFlags, root string) string {
	if !cmd.Flags().Changed("config") && !filepath.IsAbs(f.configPath) {
		return filepath.Join(root, f.configPath)
	}
	if abs, err := filepath.Abs(f.configPath); err == nil {
		return abs
	}
	return f.configPath
}

func loadMatrix(path string) (*config.Matrix, error) {
	m, err := config.LoadMatrix(path)
	if err != nil {
		if goerrors.Is(err, config.ErrMatrixNotFound) {
			return nil, errors.MissingMatrixFile(path, err)
		}
		return nil, errors.InvalidMatrixFile(path, err)
	}
	return m, nil
}

// catalogFor picks --lang when given, then the matrix file language, then the
// system locale.
func catalogFor(opts *rootOptions, fileLanguage string) *i18n.Catalog {
	lang := opts.lang
	if lang == "" {
		lang = fileLanguage
	}
	if lang == "" {
		lang = i18n.DetectSystem(os.Getenv)
	}
	return i18n.MustNew(lang)
}

func newSession(cmd *cobra.Command, opts *rootOptions, f *matrixFlags) (*session, error) {
	settings, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, settings)

	proj, err := detectProject(f.projectDir, logger)
	if err != nil {
		return nil, err
	}

	m, err := loadMatrix(matrixPath(cmd, f, proj.Root))
	if err != nil {
		return nil, err
	}
	logger.Debug("matrix loaded", "path", m.Path, "cases", len(m.Cases), "language", m.Language)

	return &session{
		settings: settings,
		logger:   logger,
		project:  proj,
		matrix:   m,
		catalog:  catalogFor(opts, m.Language),
		host:     matrix.CurrentHost(),
	}, nil
}

// resolveFromRoot makes a relative path relative to the project root.
func resolveFromRoot(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
