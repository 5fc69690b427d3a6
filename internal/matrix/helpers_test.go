package matrix

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/process"
)

var linuxHost = Host{OS: "linux", Arch: "amd64", CPUs: 4}

// spyRunner records invocations and answers them through respond.
type spyRunner struct {
	mu      sync.Mutex
	calls   []process.Invocation
	respond func(n int, inv process.Invocation) *process.Attempt
}

func (s *spyRunner) Run(_ context.Context, inv process.Invocation) *process.Attempt {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, inv)
	s.mu.Unlock()

	att := s.respond(n, inv)
	if att.Command == "" {
		att.Command = inv.String()
	}
	return att
}

func (s *spyRunner) Calls() []process.Invocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]process.Invocation(nil), s.calls...)
}

func isBuild(inv process.Invocation) bool {
	return len(inv.Args) > 0 && inv.Args[0] == "test"
}

func passed(out string) *process.Attempt {
	return &process.Attempt{Success: true, ExitCode: 0, Stdout: []byte(out), Combined: []byte(out)}
}

func failed(code int, out string) *process.Attempt {
	return &process.Attempt{ExitCode: code, Stderr: []byte(out), Combined: []byte(out)}
}

func timedOut(out string) *process.Attempt {
	return &process.Attempt{ExitCode: -1, TimedOut: true, Combined: []byte(out), Duration: time.Second}
}

func buildOK(exes ...string) *process.Attempt {
	var out string
	for _, exe := range exes {
		out += fmt.Sprintf(`{"reason":"compiler-artifact","target":{"name":"t","kind":["lib"],"test":true},"profile":{"test":true},"executable":%q}`+"\n", exe)
	}
	return passed(out)
}

// spyPreserver records preserved cases.
type spyPreserver struct {
	mu    sync.Mutex
	cases []string
	logs  []map[string][]byte
	err   error
}

func (p *spyPreserver) Preserve(c Case, workDir string, logs map[string][]byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cases = append(p.cases, c.Name)
	p.logs = append(p.logs, logs)
	if p.err != nil {
		return "", p.err
	}
	return "/artifacts/" + c.DirName(), nil
}

func intPtr(n int) *int { return &n }

func durationPtr(d time.Duration) *time.Duration { return &d }
