package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/artifact"
)

// DefaultMatrixFile is the matrix file looked up in the project directory.
const DefaultMatrixFile = "TestMatrix.toml"

// DefaultLanguage is used when the matrix file does not set one.
const DefaultLanguage = "en"

// GetDefaults returns the default settings as a map for koanf.
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"jobs":          0,
		"total_runners": 1,
		"runner_index":  0,
		"fail_fast":     true,
		"timeout":       time.Duration(0),
		"retries":       0,
		"artifact_dir":  artifact.DefaultDir,
		"cargo":         "",
		"log_level":     "warn",
		"log_format":    "text",
	}
}

// DefaultMatrixTemplate returns a commented TestMatrix.toml. When crate is
// known it is named in the header and used by the custom command example.
func DefaultMatrixTemplate(crate string) string {
	var b strings.Builder
	b.WriteString("# Test matrix for matrix-runner\n")
	if crate != "" {
		fmt.Fprintf(&b, "# Crate: %s\n", crate)
	}
	b.WriteString(`# Run 'matrix-runner plan' to preview, 'matrix-runner run' to execute.

language = "en"                       # Output language: en | zh-CN

# Each [[cases]] entry is built and tested in its own target directory.
#   name                 unique case name (required)
#   features             comma separated cargo features, or a list
#   no_default_features  pass --no-default-features
#   command              replaces 'cargo test' entirely ($VAR and ~ are expanded)
#   allow_failure        OS or arch names where a failure is tolerated
#   arch                 only run on these architectures (empty = all)
#   retries              extra attempts after a failed test run
#   timeout_secs         limit for each test run attempt

[[cases]]
name = "default"
features = ""
no_default_features = false
timeout_secs = 600

[[cases]]
name = "no-default-features"
features = ""
no_default_features = true
timeout_secs = 600

`)
	b.WriteString("[[cases]]\n")
	b.WriteString("name = \"doc-tests\"\n")
	if crate != "" {
		fmt.Fprintf(&b, "command = \"cargo test --doc -p %s\"\n", crate)
	} else {
		b.WriteString("command = \"cargo test --doc\"\n")
	}
	b.WriteString(`allow_failure = ["windows"]
retries = 1
`)
	return b.String()
}
