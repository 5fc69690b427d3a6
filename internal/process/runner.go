// Package process runs a single child process per call, capturing stdout and
// stderr independently while enforcing an optional per-attempt timeout.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// DefaultGracePeriod bounds how long Run waits for output pipes to close after
// the child has exited or been killed.
const DefaultGracePeriod = 5 * time.Second

// Invocation describes one child process.
type Invocation struct {
	// Program is the executable name or path.
	Program string
	// Args are passed to Program verbatim.
	Args []string
	// Dir is the working directory (empty means the current directory).
	Dir string
	// Env entries are appended to the parent environment.
	Env []string
	// Timeout kills the child when exceeded. Zero disables the deadline.
	Timeout time.Duration
	// Stream receives a live copy of the combined output (optional).
	Stream io.Writer
}

// String returns a display form of the command line.
func (inv Invocation) String() string {
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, quoteArg(inv.Program))
	for _, a := range inv.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"$\\") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// Attempt is the result of a single Run call.
type Attempt struct {
	Command  string
	Success  bool
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	// Combined holds stdout and stderr interleaved in arrival order.
	Combined []byte
	Duration time.Duration
	TimedOut bool
	// Err is set when the child could not be started or the run was aborted
	// through the context. A non-zero exit alone does not set Err.
	Err error
}

// Runner spawns child processes.
type Runner struct {
	grace  time.Duration
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithGracePeriod sets the pipe drain grace period used after exit or kill.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithLogger sets the logger used for kill diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner with the given options.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		grace:  DefaultGracePeriod,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes inv and waits for it to finish, time out, or be aborted via ctx.
// It never returns a nil Attempt and never panics on spawn failure.
func (r *Runner) Run(ctx context.Context, inv Invocation) *Attempt {
	attempt := &Attempt{Command: inv.String(), ExitCode: -1}
	start := time.Now()
	defer func() { attempt.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		attempt.Err = err
		return attempt
	}

	var stdout, stderr bytes.Buffer
	combined := &syncBuffer{}

	cmd := exec.Command(inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.Stdout = sinks(&stdout, combined, inv.Stream)
	cmd.Stderr = sinks(&stderr, combined, inv.Stream)
	cmd.WaitDelay = r.grace
	configureProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		attempt.Err = fmt.Errorf("starting %s: %w", inv.Program, err)
		return attempt
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var deadline <-chan time.Time
	if inv.Timeout > 0 {
		timer := time.NewTimer(inv.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var waitErr error
	select {
	case waitErr = <-done:
	case <-deadline:
		attempt.TimedOut = true
		r.kill(cmd, "timeout")
		waitErr = <-done
	case <-ctx.Done():
		attempt.Err = ctx.Err()
		r.kill(cmd, "aborted")
		waitErr = <-done
	}

	attempt.Stdout = stdout.Bytes()
	attempt.Stderr = stderr.Bytes()
	attempt.Combined = combined.Bytes()
	if cmd.ProcessState != nil {
		attempt.ExitCode = cmd.ProcessState.ExitCode()
	}

	if waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay) {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) && attempt.Err == nil && !attempt.TimedOut {
			attempt.Err = fmt.Errorf("waiting for %s: %w", inv.Program, waitErr)
		}
	}

	attempt.Success = attempt.Err == nil && !attempt.TimedOut &&
		cmd.ProcessState != nil && cmd.ProcessState.Success()
	return attempt
}

func (r *Runner) kill(cmd *exec.Cmd, reason string) {
	if err := killProcessGroup(cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Warn("failed to kill child process",
			"pid", cmd.Process.Pid, "reason", reason, "error", err)
		return
	}
	r.logger.Debug("killed child process", "pid", cmd.Process.Pid, "reason", reason)
}

// sinks fans one output stream into its own buffer, the combined buffer and
// the optional live stream. Stream write errors never stop the capture.
func sinks(own *bytes.Buffer, combined *syncBuffer, stream io.Writer) io.Writer {
	if stream == nil {
		return io.MultiWriter(own, combined)
	}
	return io.MultiWriter(own, combined, lenientWriter{stream})
}

type lenientWriter struct {
	w io.Writer
}

func (lw lenientWriter) Write(p []byte) (int, error) {
	_, _ = lw.w.Write(p)
	return len(p), nil
}

// syncBuffer is a bytes.Buffer safe for the two copy goroutines exec starts.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}
