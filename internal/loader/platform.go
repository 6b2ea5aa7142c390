package loader

// Platform opens native extension libraries.
type Platform interface {
	// Open loads the library at path. A path without a directory component
	// is subject to the platform's own search rules.
	Open(path string) (Library, error)
}

// Library is one opened native library.
type Library interface {
	// Lookup resolves an exported symbol. Functions resolve to their value,
	// variables to a pointer.
	Lookup(symbol string) (any, error)
	Close() error
}

// PlatformFunc adapts a function to Platform.
type PlatformFunc func(path string) (Library, error)

// Open calls f.
func (f PlatformFunc) Open(path string) (Library, error) { return f(path) }
