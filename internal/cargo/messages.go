// Package cargo knows how to drive `cargo test` for one matrix case and how to
// read the JSON message stream it produces.
package cargo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

// MaxRawErrorLines caps the raw output shown when no structured error
// diagnostics could be extracted from a failed build.
const MaxRawErrorLines = 50

// Message is one line of `cargo --message-format=json` output.
// Only the fields the runner reads are decoded.
type Message struct {
	Reason     string      `json:"reason"`
	PackageID  string      `json:"package_id"`
	Target     *Target     `json:"target,omitempty"`
	Profile    *Profile    `json:"profile,omitempty"`
	Executable string      `json:"executable,omitempty"`
	Diagnostic *Diagnostic `json:"message,omitempty"`
}

// Target identifies the compiled crate target.
type Target struct {
	Name string   `json:"name"`
	Kind []string `json:"kind"`
	Test bool     `json:"test"`
}

// Profile describes how an artifact was compiled.
type Profile struct {
	Test bool `json:"test"`
}

// Diagnostic is a compiler message attached to a compiler-message line.
type Diagnostic struct {
	Level    string `json:"level"`
	Message  string `json:"message"`
	Rendered string `json:"rendered"`
}

const (
	reasonArtifact = "compiler-artifact"
	reasonMessage  = "compiler-message"
)

// ParseMessages decodes every JSON line of out, skipping lines that are not
// cargo messages (cargo interleaves plain text from build scripts).
func ParseMessages(out []byte) []Message {
	var msgs []Message
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil || msg.Reason == "" {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// TestExecutables returns the test harness executables announced in a
// `cargo test --no-run` message stream, in announcement order and without
// duplicates.
func TestExecutables(out []byte) []string {
	var exes []string
	seen := make(map[string]bool)
	for _, msg := range ParseMessages(out) {
		if msg.Reason != reasonArtifact || msg.Executable == "" {
			continue
		}
		if msg.Profile == nil || !msg.Profile.Test {
			continue
		}
		if seen[msg.Executable] {
			continue
		}
		seen[msg.Executable] = true
		exes = append(exes, msg.Executable)
	}
	return exes
}

// FormatBuildErrors turns the output of a failed build into a readable log:
// the rendered error diagnostics when cargo emitted any, otherwise the first
// MaxRawErrorLines lines of the raw stdout followed by stderr.
func FormatBuildErrors(stdout, stderr []byte) string {
	var diags []string
	for _, msg := range ParseMessages(stdout) {
		if msg.Reason != reasonMessage || msg.Diagnostic == nil {
			continue
		}
		if msg.Diagnostic.Level != "error" {
			continue
		}
		text := msg.Diagnostic.Rendered
		if text == "" {
			text = msg.Diagnostic.Message
		}
		diags = append(diags, strings.TrimRight(text, "\n"))
	}
	if len(diags) > 0 {
		return strings.Join(diags, "\n\n") + "\n"
	}

	raw := string(stdout)
	if len(stderr) > 0 {
		if raw != "" && !strings.HasSuffix(raw, "\n") {
			raw += "\n"
		}
		raw += string(stderr)
	}
	lines := strings.Split(strings.TrimRight(raw, "\n"), "\n")
	truncated := len(lines) > MaxRawErrorLines
	if truncated {
		lines = lines[:MaxRawErrorLines]
	}
	out := strings.Join(lines, "\n") + "\n"
	if truncated {
		out += "... (output truncated)\n"
	}
	return out
}
