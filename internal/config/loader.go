package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigEnv overrides the default config path when set.
const ConfigEnv = "EDGEBAR_CONFIG"

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceBuiltin SourceKind = "builtin"
	SourceFile    SourceKind = "file"
)

// Source says where an effective value came from.
type Source struct {
	Kind   SourceKind
	Name   string // for builtin/default
	File   string
	Line   int
	Column int
}

func (s Source) position() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

type LoadResult struct {
	Config   *Config
	Sources  map[string]Source // YAML path -> last file that set it
	BarBases map[string]string // bar name -> builtin bar it inherits from
	Files    []string          // loaded files, includes before their includer
}

// DefaultConfigPath returns $EDGEBAR_CONFIG, else the XDG config location.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p, nil
	}
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "edgebar", "config.yaml"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "edgebar", "config.yaml"), nil
}

// Load reads the configuration from the default location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources is Load plus per-path source information for explain.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file yields defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	l := &fileLoader{
		seen:    make(map[string]bool),
		sources: make(map[string]Source),
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err := l.load(path); err != nil {
			return nil, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	cfg, bases, err := BuildEffectiveConfig(l.raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, l.locate(err)
	}
	return &LoadResult{
		Config:   cfg,
		Sources:  l.sources,
		BarBases: bases,
		Files:    l.files,
	}, nil
}

// fileLoader accumulates one load: includes are merged depth first, then the
// including file on top.
type fileLoader struct {
	raw     RawConfig
	sources map[string]Source
	files   []string
	seen    map[string]bool
	stack   []string
}

func (l *fileLoader) load(path string) error {
	canon := canonicalPath(path)
	if slices.Contains(l.stack, canon) {
		chain := append(slices.Clone(l.stack), canon)
		return fmt.Errorf("include cycle detected: %s", strings.Join(chain, " -> "))
	}
	// Diamond includes load once.
	if l.seen[canon] {
		return nil
	}
	l.seen[canon] = true

	data, err := os.ReadFile(canon)
	if err != nil {
		return fmt.Errorf("%s: failed to read: %w", canon, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%s: failed to parse yaml: %w", canon, err)
	}
	var raw RawConfig
	if err := decodeStrict(data, &raw); err != nil {
		return fmt.Errorf("%s: %w", canon, err)
	}
	sources := nodeSources(&doc, canon)

	l.stack = append(l.stack, canon)
	for i, inc := range raw.Include {
		if err := l.loadInclude(canon, inc, includeSource(sources, len(raw.Include), i)); err != nil {
			return err
		}
	}
	l.stack = l.stack[:len(l.stack)-1]

	l.raw = l.raw.merge(raw)
	for p, src := range sources {
		l.sources[p] = src
	}
	l.files = append(l.files, canon)
	return nil
}

func (l *fileLoader) loadInclude(from, include string, at Source) error {
	paths, err := expandInclude(from, include)
	if err != nil {
		return fmt.Errorf("%s: include %q: %w", at.position(), include, err)
	}
	for _, p := range paths {
		if err := l.load(p); err != nil {
			return err
		}
	}
	return nil
}

// locate fills in the file position of a validation error.
func (l *fileLoader) locate(err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := l.sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}

// includeSource finds the position of the i-th include entry. A scalar
// include is recorded under "include", a list under "include.N".
func includeSource(sources map[string]Source, n, i int) Source {
	if src, ok := sources[fmt.Sprintf("include.%d", i)]; ok {
		return src
	}
	if n == 1 {
		return sources["include"]
	}
	return Source{Kind: SourceFile}
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// canonicalPath resolves symlinks where possible so cycles are detected
// regardless of how a file is named.
func canonicalPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// expandInclude resolves include against the including file. A directory
// expands to its *.yaml and *.yml files in name order.
func expandInclude(from, include string) ([]string, error) {
	path, err := resolveInclude(from, include)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".yaml", ".yml":
			if !ent.IsDir() {
				files = append(files, filepath.Join(path, ent.Name()))
			}
		}
	}
	slices.Sort(files)
	return files, nil
}

func resolveInclude(from, include string) (string, error) {
	switch {
	case include == "":
		return "", fmt.Errorf("path is empty")
	case include == "~" || strings.HasPrefix(include, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(include[1:], "/")), nil
	case filepath.IsAbs(include):
		return include, nil
	}
	return filepath.Join(filepath.Dir(from), include), nil
}
