// Package artifact preserves the build output and logs of failed cases
// before their temporary work directories are removed.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/acarl005/stripansi"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
)

// DefaultDir is the artifact root relative to the project directory.
const DefaultDir = "target/matrix-runner/failures"

// skippedDirs are cargo caches that are large and useless for diagnosis.
var skippedDirs = map[string]bool{
	"incremental":  true,
	".fingerprint": true,
}

// Preserver copies failure artifacts under Root.
type Preserver struct {
	Root string
}

// NewPreserver creates a Preserver rooted at root.
func NewPreserver(root string) *Preserver {
	return &Preserver{Root: root}
}

// Preserve copies workDir into <Root>/<case dir name>/target and writes each
// log next to it with terminal escapes removed. An existing directory for the
// same case is replaced. It returns the case directory.
func (p *Preserver) Preserve(c matrix.Case, workDir string, logs map[string][]byte) (string, error) {
	dest := filepath.Join(p.Root, c.DirName())
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("clearing %s: %w", dest, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}

	var errs []error
	for name, data := range logs {
		if len(data) == 0 {
			continue
		}
		path := filepath.Join(dest, filepath.Base(name))
		if err := os.WriteFile(path, []byte(stripansi.Strip(string(data))), 0o644); err != nil {
			errs = append(errs, fmt.Errorf("writing %s: %w", name, err))
		}
	}

	if workDir != "" {
		if err := copyTree(workDir, filepath.Join(dest, "target")); err != nil {
			errs = append(errs, err)
		}
	}
	return dest, errors.Join(errs...)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if skippedDirs[d.Name()] && path != src {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0o755)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(path, target)
		default:
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
