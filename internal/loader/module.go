package loader

import (
	"errors"
	"time"
)

// Module is a successfully loaded extension. It owns its library.
type Module struct {
	name      string
	file      string
	namespace string
	entry     string
	lib       Library
	deinit    Deinit
	loadedAt  time.Time
}

// Name returns the canonical module name.
func (m *Module) Name() string { return m.name }

// File returns the library path that was opened.
func (m *Module) File() string { return m.file }

// Namespace returns the namespace the module was loaded into.
func (m *Module) Namespace() string { return m.namespace }

// Entry returns the initializer symbol that was called.
func (m *Module) Entry() string { return m.entry }

// LoadedAt returns when the initializer completed.
func (m *Module) LoadedAt() time.Time { return m.loadedAt }

// HasDeinit reports whether the module exported a finalizer.
func (m *Module) HasDeinit() bool { return m.deinit != nil }

// release runs the finalizer, then closes the library. A panicking
// finalizer is reported and the library is still closed.
func (m *Module) release() (err error) {
	if m.deinit != nil {
		err = callDeinit(m.deinit)
	}
	if cerr := m.lib.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		return &LoadError{Code: CodeUnloadFailed, Module: m.name, File: m.file, Detail: err.Error(), Err: err}
	}
	return nil
}

func callDeinit(fn Deinit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	fn()
	return nil
}
