package cargo

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

// ManifestFile is the name of the Cargo manifest.
const ManifestFile = "Cargo.toml"

// ErrNoManifest is returned when no Cargo.toml exists in the project dir.
var ErrNoManifest = errors.New("no Cargo.toml found")

// Manifest holds the parts of Cargo.toml the runner cares about.
type Manifest struct {
	Package *struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
	Features map[string][]string `toml:"features"`
}

// CrateName returns the package name, or "" for a virtual workspace manifest.
func (m *Manifest) CrateName() string {
	if m == nil || m.Package == nil {
		return ""
	}
	return m.Package.Name
}

// FeatureNames returns the declared feature names, sorted.
func (m *Manifest) FeatureNames() []string {
	if m == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(m.Features))
}

// ReadManifest decodes <dir>/Cargo.toml.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
		}
		return nil, fmt.Errorf("checking manifest: %w", err)
	}

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &m, nil
}
