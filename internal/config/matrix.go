package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	// ErrMatrixNotFound is returned when the matrix file does not exist.
	ErrMatrixNotFound = errors.New("matrix file not found")
	// ErrUnsupportedFormat is returned for an unknown matrix file extension.
	ErrUnsupportedFormat = errors.New("unsupported matrix file format")
)

// Matrix is a loaded and validated matrix file.
type Matrix struct {
	Path     string
	Language string
	// Cases are in declaration order with Index set.
	Cases []matrix.Case
}

type matrixFile struct {
	Language string     `koanf:"language"`
	Cases    []caseFile `koanf:"cases"`
}

// caseFile is one [[cases]] entry as written. Features may be a comma
// separated string or a list; weak decoding turns a string into a one
// element list that is split later.
type caseFile struct {
	Name              string   `koanf:"name"`
	Features          []string `koanf:"features"`
	NoDefaultFeatures bool     `koanf:"no_default_features"`
	Command           string   `koanf:"command"`
	AllowFailure      []string `koanf:"allow_failure"`
	Arch              []string `koanf:"arch"`
	Retries           *int     `koanf:"retries" validate:"omitempty,gte=0"`
	TimeoutSecs       *float64 `koanf:"timeout_secs" validate:"omitempty,gte=0"`
}

// parserFor picks the koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser(), nil
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %q (use .toml, .yaml or .json)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadMatrix reads and validates the matrix file at path.
func LoadMatrix(path string) (*Matrix, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMatrixNotFound, path)
		}
		return nil, fmt.Errorf("reading matrix file: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, &ValidationError{FilePath: path, Message: err.Error(), Err: err}
	}

	var mf matrixFile
	if err := k.Unmarshal("", &mf); err != nil {
		return nil, &ValidationError{FilePath: path, Message: err.Error(), Err: err}
	}

	if err := validateCases(path, mf.Cases); err != nil {
		return nil, err
	}

	m := &Matrix{
		Path:     path,
		Language: strings.TrimSpace(mf.Language),
		Cases:    make([]matrix.Case, len(mf.Cases)),
	}
	if m.Language == "" {
		m.Language = DefaultLanguage
	}
	for i, c := range mf.Cases {
		m.Cases[i] = c.toCase(i)
	}
	return m, nil
}

func (c caseFile) toCase(index int) matrix.Case {
	out := matrix.Case{
		Name:              strings.TrimSpace(c.Name),
		Features:          splitTokens(c.Features),
		NoDefaultFeatures: c.NoDefaultFeatures,
		Command:           strings.TrimSpace(c.Command),
		AllowFailure:      splitTokens(c.AllowFailure),
		Arch:              splitTokens(c.Arch),
		Retries:           c.Retries,
		Index:             index,
	}
	if c.TimeoutSecs != nil {
		d := time.Duration(math.Round(*c.TimeoutSecs * float64(time.Second)))
		out.Timeout = &d
	}
	return out
}

// splitTokens splits every element on commas, trims the pieces and drops
// empty ones, keeping order. A nil result means no tokens.
func splitTokens(values []string) []string {
	var out []string
	for _, v := range values {
		for _, tok := range strings.Split(v, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				out = append(out, tok)
			}
		}
	}
	return out
}
