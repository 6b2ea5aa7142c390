package loader

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// APIVersion is the extension API version, encoded as
// major*10000 + minor*100 + patch. Modules built against another major
// version are rejected.
const APIVersion = 10000

// exportName turns a canonical module name into the word used in entry
// point names: "my-counter" -> "MyCounter".
func exportName(canonical string) string {
	words := strings.FieldsFunc(canonical, func(r rune) bool {
		return r == '-' || r == '_' || r == '.'
	})
	caser := cases.Title(language.Und)
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(caser.String(w))
	}
	return sb.String()
}

// EntryPoints holds the exported symbol names a module may provide.
type EntryPoints struct {
	InitNS     string // func(Host, string) error
	Init       string // func(Host) error
	Deinit     string // func()
	APIVersion string // *int
}

// EntryPointsFor returns the symbol names looked up for module.
func EntryPointsFor(module string) EntryPoints {
	n := exportName(CanonicalName(module))
	return EntryPoints{
		InitNS:     "Init" + n + "ModuleNS",
		Init:       "Init" + n + "Module",
		Deinit:     "Deinit" + n + "Module",
		APIVersion: n + "ModuleAPIVersion",
	}
}

// NamespaceInit is the namespace-aware initializer signature.
type NamespaceInit = func(h Host, namespace string) error

// LegacyInit is the namespace-unaware initializer signature.
type LegacyInit = func(h Host) error

// Deinit is the optional finalizer signature.
type Deinit = func()

// initializer is the chosen entry point, bound to its target namespace.
type initializer struct {
	symbol string
	call   func(Host) error
}

// lookupFunc resolves symbol in lib as type F. A missing symbol returns
// ok=false with no error; a symbol of the wrong type is an error.
func lookupFunc[F any](lib Library, symbol string) (fn F, ok bool, err error) {
	sym, lerr := lib.Lookup(symbol)
	if lerr != nil || sym == nil {
		return fn, false, nil
	}
	switch v := sym.(type) {
	case F:
		return v, true, nil
	case *F:
		if v != nil {
			return *v, true, nil
		}
	}
	return fn, false, fmt.Errorf("symbol %s has type %T", symbol, sym)
}

// checkAPIVersion compares the module's optional version variable against
// APIVersion.
func checkAPIVersion(lib Library, symbol string) error {
	sym, err := lib.Lookup(symbol)
	if err != nil || sym == nil {
		return nil
	}
	var got int
	switch v := sym.(type) {
	case *int:
		got = *v
	case int:
		got = v
	default:
		return fmt.Errorf("symbol %s has type %T", symbol, sym)
	}
	if got/10000 != APIVersion/10000 {
		return fmt.Errorf("module API %d, runtime API %d", got, APIVersion)
	}
	return nil
}
