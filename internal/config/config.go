// Package config discovers and decodes kestrel.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"kestrel/internal/loader"
	"kestrel/internal/namespace"
	"kestrel/internal/trace"
)

// FileName is the configuration file looked up from the working directory
// upwards.
const FileName = "kestrel.toml"

// Config is the decoded kestrel.toml.
type Config struct {
	Modules Modules `toml:"modules"`
	Trace   Trace   `toml:"trace"`
}

// Modules configures the extension loader.
type Modules struct {
	Path             []string  `toml:"path"`
	DefaultNamespace string    `toml:"default_namespace"`
	Preload          []Preload `toml:"preload"`
}

// Preload names a module imported when the runtime starts.
type Preload struct {
	Name      string `toml:"name"`
	Namespace string `toml:"namespace"`
}

// Trace mirrors the --trace* flags.
type Trace struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Mode   string `toml:"mode"`
}

// File is a configuration together with where it came from.
type File struct {
	Path   string
	Root   string
	Config Config

	meta toml.MetaData
}

// Find walks up from startDir looking for kestrel.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover finds and loads the nearest kestrel.toml. ok is false when there
// is none.
func Discover(startDir string) (*File, bool, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	f, err := Load(path)
	if err != nil {
		return nil, true, err
	}
	return f, true, nil
}

// Load decodes and validates the file at path.
func Load(path string) (*File, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	f := &File{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
		meta:   meta,
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks the decoded values.
func (f *File) Validate() error {
	c := &f.Config
	if f.meta.IsDefined("modules", "default_namespace") && strings.TrimSpace(c.Modules.DefaultNamespace) == "" {
		return errors.New("[modules].default_namespace must not be empty")
	}
	for i, p := range c.Modules.Preload {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("[[modules.preload]] entry %d: missing name", i+1)
		}
	}
	if c.Trace.Level != "" {
		if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
			return fmt.Errorf("[trace].level: %w", err)
		}
	}
	if c.Trace.Mode != "" {
		if _, err := trace.ParseMode(c.Trace.Mode); err != nil {
			return fmt.Errorf("[trace].mode: %w", err)
		}
	}
	return nil
}

// IsDefined reports whether key was present in the file.
func (f *File) IsDefined(key ...string) bool {
	if f == nil {
		return false
	}
	return f.meta.IsDefined(key...)
}

// SearchPath joins [modules].path with the OS list separator. Relative
// entries are taken relative to the file's directory. ok is false when the
// file does not set a path.
func (f *File) SearchPath() (string, bool) {
	if f == nil || !f.meta.IsDefined("modules", "path") {
		return "", false
	}
	dirs := make([]string, 0, len(f.Config.Modules.Path))
	for _, d := range f.Config.Modules.Path {
		if d = strings.TrimSpace(d); d == "" {
			continue
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(f.Root, filepath.FromSlash(d))
		}
		dirs = append(dirs, d)
	}
	return strings.Join(dirs, string(os.PathListSeparator)), true
}

// DefaultNamespace returns the namespace used for preloads and imports that
// name none.
func (f *File) DefaultNamespace() string {
	if f == nil || strings.TrimSpace(f.Config.Modules.DefaultNamespace) == "" {
		return namespace.GlobalName
	}
	return f.Config.Modules.DefaultNamespace
}

// Preloads returns the preload list with namespaces defaulted.
func (f *File) Preloads() []Preload {
	if f == nil {
		return nil
	}
	out := make([]Preload, len(f.Config.Modules.Preload))
	for i, p := range f.Config.Modules.Preload {
		if p.Namespace == "" {
			p.Namespace = f.DefaultNamespace()
		}
		out[i] = p
	}
	return out
}

// ResolveSearchPath applies flag > file > environment > install dir. The
// returned source names where the value came from; configured is false when
// the loader should fall back to its own defaults.
func ResolveSearchPath(flag string, f *File) (path, source string, configured bool) {
	if flag != "" {
		return flag, "flag", true
	}
	if p, ok := f.SearchPath(); ok {
		return p, f.Path, true
	}
	if env := os.Getenv(loader.EnvModulePath); env != "" {
		return env, loader.EnvModulePath, false
	}
	return loader.InstallDir, "built-in", false
}
