package matrix

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/cargo"
	"github.com/ariel-frischer/matrix-runner/internal/process"
)

// ProcessRunner runs one child process per call.
type ProcessRunner interface {
	Run(ctx context.Context, inv process.Invocation) *process.Attempt
}

// ArtifactPreserver copies what a failed case left behind to a durable
// location and returns that location.
type ArtifactPreserver interface {
	Preserve(c Case, workDir string, logs map[string][]byte) (string, error)
}

// Environment variables exported to override commands and test binaries.
const (
	EnvCaseName  = "MATRIX_RUNNER_CASE"
	EnvTargetDir = "CARGO_TARGET_DIR"
)

// ExecutorConfig holds the run-wide settings of the case executor.
type ExecutorConfig struct {
	Host       Host
	ProjectDir string
	// Cargo is the cargo program. Empty resolves via $CARGO.
	Cargo string
	// Package is passed as -p when non-empty.
	Package string
	// Retries is the default number of extra run attempts.
	Retries int
	// Timeout is the default per-attempt run timeout. Zero means none.
	Timeout time.Duration
	// WorkRoot is the parent of per-case work dirs. Empty means os.TempDir.
	WorkRoot string
	// KeepWorkDirs leaves per-case work dirs in place after the run.
	KeepWorkDirs bool
}

// Executor drives one case through build, run and retries.
type Executor struct {
	cfg       ExecutorConfig
	runner    ProcessRunner
	artifacts ArtifactPreserver
	stream    func(Case) io.Writer
	logger    *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithArtifactPreserver enables failure artifact preservation.
func WithArtifactPreserver(p ArtifactPreserver) ExecutorOption {
	return func(e *Executor) {
		e.artifacts = p
	}
}

// WithStream sets a factory for live output writers, one per case.
func WithStream(f func(Case) io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.stream = f
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an Executor running children through runner.
func NewExecutor(cfg ExecutorConfig, runner ProcessRunner, opts ...ExecutorOption) *Executor {
	e := &Executor{
		cfg:    cfg,
		runner: runner,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// stepResult is the outcome of one build or run attempt.
type stepResult struct {
	success  bool
	timedOut bool
	aborted  bool
	log      string
	raw      []byte
}

// caseRun is the mutable state of one Execute call.
type caseRun struct {
	c       Case
	state   Status
	step    Step
	retries int
	log     string
	files   map[string][]byte
	logger  *slog.Logger
}

func (r *caseRun) advance(ev Event, p Policy) {
	next, err := Transition(r.state, ev, p)
	if err != nil {
		panic(fmt.Sprintf("matrix: case %q: %v", r.c.Name, err))
	}
	if next != r.state {
		r.logger.Debug("case state changed", "from", r.state, "to", next, "event", ev)
	}
	r.state = next
}

// Execute runs c to a terminal state and returns its outcome. The latch is
// consulted before the build, between build and run, and before each retry.
func (e *Executor) Execute(ctx context.Context, c Case, latch *Latch) Outcome {
	start := time.Now()
	r := &caseRun{
		c:      c,
		state:  StatusPending,
		files:  make(map[string][]byte),
		logger: e.logger.With("case", c.Name),
	}

	if latch.Tripped() {
		r.advance(EventCancel, Policy{Cancelled: true})
		return e.finish(r, start, "")
	}

	workDir, err := os.MkdirTemp(e.cfg.WorkRoot, "matrix-runner-"+c.DirName()+"-")
	if err != nil {
		r.advance(EventRun, Policy{})
		r.advance(EventRunFailed, Policy{})
		r.step = StepCommand
		r.log = fmt.Sprintf("creating work directory: %v\n", err)
		return e.finish(r, start, "")
	}
	if !e.cfg.KeepWorkDirs {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				r.logger.Warn("failed to remove work directory", "dir", workDir, "error", err)
			}
		}()
	}

	stream := e.openStream(c)
	defer flushStream(stream)

	if c.HasOverride() {
		e.runOverride(ctx, r, latch, workDir, stream)
	} else {
		e.buildAndRun(ctx, r, latch, workDir, stream)
	}
	return e.finish(r, start, workDir)
}

func (e *Executor) buildAndRun(ctx context.Context, r *caseRun, latch *Latch, workDir string, stream io.Writer) {
	r.advance(EventBuild, Policy{})
	r.step = StepBuild

	inv := process.Invocation{
		Program: cargo.ResolveProgram(e.cfg.Cargo),
		Args: cargo.BuildArgs(cargo.BuildOptions{
			Package:           e.cfg.Package,
			Features:          r.c.Features,
			NoDefaultFeatures: r.c.NoDefaultFeatures,
			TargetDir:         workDir,
		}),
		Dir:    e.cfg.ProjectDir,
		Env:    []string{EnvCaseName + "=" + r.c.Name},
		Stream: stream,
	}
	r.logger.Info("building case", "command", inv.String())
	att := e.runner.Run(ctx, inv)
	r.files["build.log"] = att.Combined

	if ctx.Err() != nil && att.Err != nil {
		r.advance(EventCancel, Policy{Cancelled: true})
		return
	}
	if !att.Success {
		r.advance(EventBuildFailed, Policy{})
		r.log = buildFailureLog(att)
		return
	}

	exes := cargo.TestExecutables(att.Stdout)
	r.logger.Debug("build produced test executables", "count", len(exes))

	r.advance(EventBuildSucceeded, Policy{Cancelled: latch.Tripped()})
	if r.state != StatusRunning {
		return
	}

	r.step = StepRun
	e.runWithRetries(r, latch, "run.log", func() stepResult {
		return e.runTests(ctx, r.c, exes, workDir, stream)
	})
}

func (e *Executor) runOverride(ctx context.Context, r *caseRun, latch *Latch, workDir string, stream io.Writer) {
	r.advance(EventRun, Policy{})
	r.step = StepCommand

	argv, err := ExpandCommand(r.c.Command, os.LookupEnv)
	if err != nil {
		r.advance(EventRunFailed, Policy{})
		r.log = fmt.Sprintf("invalid command for case %q: %v\n", r.c.Name, err)
		return
	}

	inv := process.Invocation{
		Program: argv[0],
		Args:    argv[1:],
		Dir:     e.cfg.ProjectDir,
		Env: []string{
			EnvCaseName + "=" + r.c.Name,
			EnvTargetDir + "=" + workDir,
		},
		Timeout: e.timeoutFor(r.c),
		Stream:  stream,
	}
	e.runWithRetries(r, latch, "output.log", func() stepResult {
		r.logger.Info("running command", "command", inv.String())
		return attemptResult(ctx, e.runner.Run(ctx, inv))
	})
}

// runWithRetries repeats attempt until it succeeds, the retry budget is spent
// or the latch suppresses further attempts. The last attempt's log wins.
func (e *Executor) runWithRetries(r *caseRun, latch *Latch, logName string, attempt func() stepResult) {
	retries := e.retriesFor(r.c)
	for n := 0; ; n++ {
		res := attempt()
		r.log = res.log
		r.files[logName] = res.raw
		r.retries = n

		switch {
		case res.aborted:
			r.advance(EventCancel, Policy{Cancelled: true})
			return
		case res.success:
			r.advance(EventRunSucceeded, Policy{})
			return
		}

		ev := EventRunFailed
		if res.timedOut {
			ev = EventRunTimedOut
		}
		r.advance(ev, Policy{RetriesLeft: retries - n, Cancelled: latch.Tripped()})
		if r.state != StatusRunning {
			return
		}
		r.logger.Warn("attempt failed, retrying",
			"attempt", n+1, "max_attempts", retries+1, "timed_out", res.timedOut)
	}
}

// runTests executes every test executable in order within one attempt. The
// executables share the attempt deadline; the first failure ends the attempt.
func (e *Executor) runTests(ctx context.Context, c Case, exes []string, workDir string, stream io.Writer) stepResult {
	if len(exes) == 0 {
		return stepResult{success: true, log: "no test executables were produced\n"}
	}

	timeout := e.timeoutFor(c)
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	var log strings.Builder
	var raw []byte
	for _, exe := range exes {
		remaining := time.Duration(0)
		if !deadline.IsZero() {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				fmt.Fprintf(&log, "timed out after %s before %s started\n", timeout, exe)
				return stepResult{timedOut: true, log: log.String(), raw: raw}
			}
		}

		att := e.runner.Run(ctx, process.Invocation{
			Program: exe,
			Dir:     e.cfg.ProjectDir,
			Env: []string{
				EnvCaseName + "=" + c.Name,
				EnvTargetDir + "=" + workDir,
			},
			Timeout: remaining,
			Stream:  stream,
		})
		res := attemptResult(ctx, att)
		log.WriteString(res.log)
		raw = append(raw, att.Combined...)
		if !res.success {
			res.log = log.String()
			res.raw = raw
			return res
		}
	}
	return stepResult{success: true, log: log.String(), raw: raw}
}

func attemptResult(ctx context.Context, att *process.Attempt) stepResult {
	return stepResult{
		success:  att.Success,
		timedOut: att.TimedOut,
		aborted:  ctx.Err() != nil && att.Err != nil,
		log:      attemptLog(att),
		raw:      att.Combined,
	}
}

func attemptLog(att *process.Attempt) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "$ %s\n", att.Command)
	sb.Write(att.Combined)
	if len(att.Combined) > 0 && att.Combined[len(att.Combined)-1] != '\n' {
		sb.WriteByte('\n')
	}
	switch {
	case att.TimedOut:
		fmt.Fprintf(&sb, "[timed out after %s]\n", att.Duration.Round(time.Millisecond))
	case att.Err != nil:
		fmt.Fprintf(&sb, "[error: %v]\n", att.Err)
	case !att.Success:
		fmt.Fprintf(&sb, "[exit code %d]\n", att.ExitCode)
	}
	return sb.String()
}

func buildFailureLog(att *process.Attempt) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "$ %s\n", att.Command)
	if att.Err != nil {
		fmt.Fprintf(&sb, "[error: %v]\n", att.Err)
		return sb.String()
	}
	sb.WriteString(cargo.FormatBuildErrors(att.Stdout, att.Stderr))
	fmt.Fprintf(&sb, "[exit code %d]\n", att.ExitCode)
	return sb.String()
}

// finish applies the allow-failure policy, preserves artifacts of failed
// cases and builds the immutable outcome.
func (e *Executor) finish(r *caseRun, start time.Time, workDir string) Outcome {
	allowed := e.cfg.Host.MatchesAny(r.c.AllowFailure)
	status, cause := Finalize(r.state, allowed)

	out := Outcome{
		Case:     r.c,
		Status:   status,
		Cause:    cause,
		Step:     r.step,
		Duration: time.Since(start),
		Retries:  r.retries,
	}
	if status == StatusCancelled {
		out.SkipReason = SkipCancelled
	}
	if cause.IsFailure() {
		out.Log = r.log
		if e.artifacts != nil && workDir != "" {
			r.files["failure.log"] = []byte(r.log)
			dir, err := e.artifacts.Preserve(r.c, workDir, r.files)
			if err != nil {
				r.logger.Warn("failed to preserve artifacts", "error", err)
			} else {
				out.ArtifactDir = dir
			}
		}
	}

	r.logger.Info("case finished",
		"status", status, "cause", cause, "duration", out.Duration.Round(time.Millisecond), "retries", out.Retries)
	return out
}

func (e *Executor) retriesFor(c Case) int {
	if c.Retries != nil {
		return max(*c.Retries, 0)
	}
	return max(e.cfg.Retries, 0)
}

func (e *Executor) timeoutFor(c Case) time.Duration {
	if c.Timeout != nil {
		return *c.Timeout
	}
	return e.cfg.Timeout
}

func (e *Executor) openStream(c Case) io.Writer {
	if e.stream == nil {
		return nil
	}
	return e.stream(c)
}

func flushStream(w io.Writer) {
	if f, ok := w.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
}
