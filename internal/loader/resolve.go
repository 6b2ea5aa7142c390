package loader

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvModulePath names the environment variable consulted when no search
// path has been configured.
const EnvModulePath = "KESTREL_MODULE_PATH"

// InstallDir is the compiled-in module directory, used when neither the
// configured nor the environment search path resolves a module.
// Override at link time with -X kestrel/internal/loader.InstallDir=...
var InstallDir = "/usr/local/lib/kestrel/modules"

const (
	librarySuffix = ".so"
	moduleSuffix  = "-module"
)

// hasSeparator reports whether name carries a directory component.
func hasSeparator(name string) bool {
	return strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator)
}

// LibraryFile maps a module name to the library file to search for.
// Names ending in ".so" or carrying a directory are used as given.
func LibraryFile(module string) string {
	if strings.HasSuffix(module, librarySuffix) || hasSeparator(module) {
		return module
	}
	return module + moduleSuffix + librarySuffix
}

// CanonicalName derives the deduplication key of a module:
// "counter", "counter-module.so" and "/opt/m/counter-module.so" all yield
// "counter".
func CanonicalName(module string) string {
	base := filepath.Base(module)
	base = strings.TrimSuffix(base, librarySuffix)
	base = strings.TrimSuffix(base, moduleSuffix)
	return base
}

// splitPath splits a search path on the OS list separator, dropping blanks.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	parts := filepath.SplitList(path)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolution is the outcome of searching for a library file.
type resolution struct {
	path     string
	searched []string
	found    bool
}

// resolve looks for file along the configured path, then the environment
// path, then InstallDir. When nothing matches the bare file name is returned
// for the platform's own search.
func (l *Loader) resolve(file string) resolution {
	if hasSeparator(file) {
		return resolution{path: file, found: readable(file)}
	}
	var lists []string
	if l.configured {
		lists = append(lists, l.searchPath)
	}
	lists = append(lists, getenv(EnvModulePath), InstallDir)

	var searched []string
	for _, list := range lists {
		for _, dir := range splitPath(list) {
			searched = append(searched, dir)
			candidate := filepath.Join(dir, file)
			if readable(candidate) {
				return resolution{path: candidate, searched: searched, found: true}
			}
		}
	}
	return resolution{path: file, searched: searched}
}

var getenv = os.Getenv
