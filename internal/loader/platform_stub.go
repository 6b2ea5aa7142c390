//go:build !((linux || darwin || freebsd) && cgo)

package loader

import "errors"

var errUnsupported = errors.New("dynamic library loading is not supported on this platform")

// DefaultPlatform returns a platform whose Open always fails.
func DefaultPlatform() Platform {
	return PlatformFunc(func(string) (Library, error) { return nil, errUnsupported })
}
