//go:build (linux || darwin || freebsd) && cgo

package loader

import (
	"fmt"
	"plugin"
)

// DefaultPlatform loads modules built with -buildmode=plugin.
func DefaultPlatform() Platform { return pluginPlatform{} }

type pluginPlatform struct{}

func (pluginPlatform) Open(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &pluginLibrary{path: path, p: p}, nil
}

// pluginLibrary wraps a Go plugin. The Go runtime never unloads plugins, so
// Close only invalidates the handle.
type pluginLibrary struct {
	path   string
	p      *plugin.Plugin
	closed bool
}

func (l *pluginLibrary) Lookup(symbol string) (any, error) {
	if l.closed {
		return nil, fmt.Errorf("%s: library is closed", l.path)
	}
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

func (l *pluginLibrary) Close() error {
	if l.closed {
		return fmt.Errorf("%s: library already closed", l.path)
	}
	l.closed = true
	return nil
}
