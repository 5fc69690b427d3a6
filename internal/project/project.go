// Package project locates the Cargo project under test and collects the
// facts shown in run reports.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ariel-frischer/matrix-runner/internal/cargo"
	"github.com/ariel-frischer/matrix-runner/internal/git"
)

// Project is a detected Cargo project.
type Project struct {
	// Root is the absolute directory holding Cargo.toml.
	Root     string
	Manifest *cargo.Manifest
	// Revision is "branch@hash" of the enclosing git checkout, or "".
	Revision string
}

// Crate returns the package name, or the directory name for a virtual
// workspace.
func (p *Project) Crate() string {
	if name := p.Manifest.CrateName(); name != "" {
		return name
	}
	return filepath.Base(p.Root)
}

// FindRoot walks up from dir to the nearest directory containing Cargo.toml.
func FindRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("checking project dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}

	for cur := abs; ; {
		if _, err := os.Stat(filepath.Join(cur, cargo.ManifestFile)); err == nil {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("%w in %s or any parent directory", cargo.ErrNoManifest, abs)
		}
		cur = parent
	}
}

// Detect finds the project containing dir and reads its manifest and git
// revision. A missing repository is not an error.
func Detect(dir string, logger *slog.Logger) (*Project, error) {
	root, err := FindRoot(dir)
	if err != nil {
		return nil, err
	}
	manifest, err := cargo.ReadManifest(root)
	if err != nil {
		return nil, err
	}

	p := &Project{
		Root:     root,
		Manifest: manifest,
		Revision: git.Describe(root, logger),
	}
	logger.Debug("project detected", "root", p.Root, "crate", p.Crate(), "revision", p.Revision)
	return p, nil
}

// IsNotFound reports whether err means no Cargo.toml was found.
func IsNotFound(err error) bool {
	return errors.Is(err, cargo.ErrNoManifest)
}
