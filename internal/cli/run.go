package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/artifact"
	"github.com/ariel-frischer/matrix-runner/internal/cargo"
	"github.com/ariel-frischer/matrix-runner/internal/errors"
	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/logging"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/ariel-frischer/matrix-runner/internal/metrics"
	"github.com/ariel-frischer/matrix-runner/internal/output"
	"github.com/ariel-frischer/matrix-runner/internal/process"
	"github.com/ariel-frischer/matrix-runner/internal/progress"
	"github.com/ariel-frischer/matrix-runner/internal/report"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type runOptions struct {
	matrixFlags
	htmlPath    string
	metricsFile string
	pkg         string
	keepTarget  bool
	verbose     bool
	noFetch     bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build and test every matrix case assigned to this runner",
		Long: `Build and test every matrix case assigned to this runner.

Each case is built with 'cargo test --no-run' into its own target directory and
its test binaries are run, or its custom command is run instead. Up to --jobs
cases run at once. With fail-fast (the default) the first unallowed failure
stops cases that have not started yet; running cases finish.

Press Ctrl-C once to stop scheduling new cases, twice to kill running ones.

Settings can also be given as MATRIX_RUNNER_* environment variables, for
example MATRIX_RUNNER_JOBS=4. Flags win over the environment.

Exit status: 0 all passed, 1 unallowed failures, 2 interrupted,
3 invalid arguments or configuration, 4 other errors.`,
		Example: `  # Run the whole matrix
  matrix-runner run

  # Keep going after failures, retry flaky cases twice
  matrix-runner run --fail-fast=false --retries 2

  # CI shard 0 of 4 with an HTML report and Prometheus metrics
  matrix-runner run --total-runners 4 --runner-index 0 \
    --html report.html --metrics-file matrix.prom`,
		GroupID: GroupTesting,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatrix(cmd, root, opts)
		},
	}

	opts.register(cmd)
	registerShardFlags(cmd)
	cmd.Flags().IntP("jobs", "j", 0, "Cases run in parallel (0 = number of CPUs)")
	cmd.Flags().Bool("fail-fast", true, "Stop scheduling new cases after the first unallowed failure")
	cmd.Flags().Duration("timeout", 0, "Per-attempt test timeout, e.g. 10m (0 = none)")
	cmd.Flags().Int("retries", 0, "Extra attempts for failing test runs")
	cmd.Flags().String("artifact-dir", artifact.DefaultDir, "Where failed cases' logs and build output are kept")
	cmd.Flags().String("cargo", "", "Cargo executable (default $CARGO or cargo)")
	cmd.Flags().StringVar(&opts.htmlPath, "html", "", "Write an HTML report to this path")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	cmd.Flags().StringVar(&opts.pkg, "package", "", "Workspace member to test (cargo -p)")
	cmd.Flags().BoolVar(&opts.keepTarget, "keep-target", false, "Keep per-case target directories after the run")
	cmd.Flags().BoolVar(&opts.noFetch, "no-fetch", false, "Skip 'cargo fetch' before the builds")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Stream build and test output, prefixed by case name")

	return cmd
}

func runMatrix(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	s, err := newSession(cmd, root, &opts.matrixFlags)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	cat := s.catalog
	logger := s.logger

	plan, err := matrix.Partition(s.matrix.Cases, s.host, s.settings.Shards())
	if err != nil {
		return errors.InvalidShard(err)
	}

	jobs := s.settings.Concurrency(s.host.CPUs)
	fmt.Fprintln(out, cat.T("common.loading_matrix", "path", s.matrix.Path))
	fmt.Fprintln(out, cat.T("common.project_root", "path", s.project.Root))
	fmt.Fprintln(out, cat.T("common.testing_crate", "name", s.project.Crate()))
	fmt.Fprintln(out, cat.T("common.host", "host", s.host, "jobs", jobs))
	printShard(out, s, plan)

	runner := process.NewRunner(process.WithLogger(logging.Component(logger, "process")))
	program := cargo.ResolveProgram(s.settings.Cargo)

	rc := setupSignalHandler(cmd.Context(), out, cat.T("common.shutdown_signal"), cat.T("common.abort_signal"))
	defer rc.stop()

	if !opts.noFetch && needsFetch(plan.Assigned) {
		if err := fetchDependencies(rc.interrupt, runner, program, s.project.Root, out, cat.T("common.fetching")); err != nil {
			return err
		}
	}

	executorOpts := []matrix.ExecutorOption{
		matrix.WithArtifactPreserver(artifact.NewPreserver(resolveFromRoot(s.project.Root, s.settings.ArtifactDir))),
		matrix.WithExecutorLogger(logging.Component(logger, "executor")),
	}
	if opts.verbose {
		lock := &process.LineLock{}
		executorOpts = append(executorOpts, matrix.WithStream(func(c matrix.Case) io.Writer {
			return process.NewPrefixedWriter(out, c.Name, lock)
		}))
	}
	executor := matrix.NewExecutor(matrix.ExecutorConfig{
		Host:         s.host,
		ProjectDir:   s.project.Root,
		Cargo:        program,
		Package:      opts.pkg,
		Retries:      s.settings.Retries,
		Timeout:      s.settings.Timeout,
		KeepWorkDirs: opts.keepTarget,
	}, runner, executorOpts...)

	recorder := metrics.NewRecorder()
	display := progress.NewDisplay(out, cat, len(plan.Assigned), terminalCaps(out), !opts.verbose)

	scheduler := matrix.NewScheduler(executor,
		matrix.WithConcurrency(jobs),
		matrix.WithFailFast(s.settings.FailFast),
		matrix.WithObserver(matrix.Observers{display, recorder}),
		matrix.WithAbortContext(rc.abort),
		matrix.WithSchedulerLogger(logging.Component(logger, "scheduler")),
	)

	runID := uuid.NewString()
	fmt.Fprintln(out, cat.T("common.run_id", "id", runID))
	logger.Info("run started", "run_id", runID, "cases", len(plan.Assigned), "jobs", jobs)

	started := time.Now()
	display.Start()
	results := scheduler.Execute(rc.interrupt, plan.Assigned)
	display.Stop()
	if opts.verbose {
		output.PrintStreamEnd(out, "matrix-runner")
	}

	rep := matrix.NewReport(plan, results)
	rep.RunID = runID
	rep.Host = s.host
	rep.Shards = s.settings.Shards()
	rep.Language = cat.Language()
	rep.Revision = s.project.Revision
	rep.StartedAt = started
	rep.FinishedAt = time.Now()
	rep.ApplyLatch(scheduler.Latch())

	console := report.NewConsole(out, cat)
	console.PrintSummary(rep)
	console.PrintFailureDetails(rep)

	if opts.htmlPath != "" {
		path := resolveFromRoot(s.project.Root, opts.htmlPath)
		if err := writeHTML(cat, s.project.Crate(), path, rep); err != nil {
			logger.Error("failed to write HTML report", "path", path, "error", err)
		} else {
			fmt.Fprintln(out, cat.T("run.html_written", "path", path))
		}
	}

	recorder.RecordReport(rep)
	if opts.metricsFile != "" {
		path := resolveFromRoot(s.project.Root, opts.metricsFile)
		if err := recorder.WriteTextfile(path); err != nil {
			logger.Error("failed to write metrics", "path", path, "error", err)
		} else {
			fmt.Fprintln(out, cat.T("run.metrics_written", "path", path))
		}
	}

	logger.Info("run finished", "run_id", runID, "exit_code", rep.ExitCode(), "duration", rep.Duration())
	if code := rep.ExitCode(); code != ExitSuccess {
		return &errors.ExitError{Code: code}
	}
	return nil
}

func printShard(out io.Writer, s *session, plan matrix.Plan) {
	shards := s.settings.Shards()
	if shards == matrix.SingleShard {
		fmt.Fprintln(out, s.catalog.T("common.single_runner", "count", len(plan.Assigned)))
	} else {
		fmt.Fprintln(out, s.catalog.T("common.shard",
			"index", shards.Index, "total", shards.Total,
			"count", len(plan.Assigned), "applicable", len(plan.Applicable)))
	}
	if len(plan.Assigned) == 0 {
		fmt.Fprintln(out, s.catalog.T("common.no_cases"))
	}
}

// needsFetch reports whether any case uses the default cargo build.
func needsFetch(cases []matrix.Case) bool {
	for _, c := range cases {
		if !c.HasOverride() {
			return true
		}
	}
	return false
}

// fetchDependencies downloads dependencies once so parallel builds do not
// race on the registry.
func fetchDependencies(ctx context.Context, runner *process.Runner, program, dir string, out io.Writer, msg string) error {
	inv := process.Invocation{
		Program: program,
		Args:    cargo.FetchArgs(),
		Dir:     dir,
	}
	output.PrintExecutingCommand(out, msg, inv.String())
	att := runner.Run(ctx, inv)
	if att.Success {
		return nil
	}
	cause := att.Err
	if cause == nil {
		cause = fmt.Errorf("exit code %d", att.ExitCode)
	}
	return errors.CargoFetchFailed(string(att.Stderr), cause)
}

func writeHTML(cat *i18n.Catalog, crate, path string, rep *matrix.Report) error {
	formatter, err := report.NewHTMLFormatter(cat, crate)
	if err != nil {
		return err
	}
	return formatter.WriteHTML(path, rep)
}

func terminalCaps(out io.Writer) progress.TerminalCapabilities {
	f, ok := out.(*os.File)
	if !ok {
		return progress.TerminalCapabilities{}
	}
	return progress.DetectTerminalCapabilities(f, os.Getenv)
}
