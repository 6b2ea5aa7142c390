package interp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kestrel/internal/namespace"
	"kestrel/internal/trace"
	"kestrel/internal/value"
)

// QualifySeparator joins a namespace and a symbol name: "Ext->f".
const QualifySeparator = namespace.QualifySeparator

var (
	// ErrUnknownSymbol reports a name that resolves to nothing.
	ErrUnknownSymbol = errors.New("undefined name")
	// ErrNotCallable reports a call through a symbol that is not a function.
	ErrNotCallable = errors.New("not a function")
	// ErrArgs reports a wrong number or type of intrinsic arguments.
	ErrArgs = errors.New("invalid arguments")
)

// SplitQualified splits "Ns->name". An unqualified name yields ns "".
func SplitQualified(qualified string) (ns, name string) {
	if i := strings.Index(qualified, QualifySeparator); i >= 0 {
		return qualified[:i], qualified[i+len(QualifySeparator):]
	}
	return "", qualified
}

// Resolve looks up a possibly qualified name. Unqualified names and the
// "Global" qualifier resolve in Global.
func (rt *Runtime) Resolve(qualified string) (*namespace.Symbol, error) {
	nsName, name := SplitQualified(qualified)
	ns := rt.spaces.Global()
	if nsName != "" {
		found, ok := rt.spaces.Find(nsName)
		if !ok {
			return nil, fmt.Errorf("%w: namespace %s", namespace.ErrUnknownNamespace, nsName)
		}
		ns = found
	}
	sym, ok := ns.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, qualified)
	}
	return sym, nil
}

// Call invokes the function bound to a possibly qualified name.
func (rt *Runtime) Call(ctx context.Context, qualified string, args ...value.Value) (value.Value, error) {
	sym, err := rt.Resolve(qualified)
	if err != nil {
		return value.Null, err
	}
	fn, ok := sym.Value.(namespace.Function)
	if !ok {
		return value.Null, fmt.Errorf("%w: %s is a %s", ErrNotCallable, qualified, sym.Kind)
	}
	trace.Point(rt.tracer, trace.ScopeSymbol, "call:"+qualified, "")

	prev := rt.ctx
	rt.ctx = ctx
	defer func() { rt.ctx = prev }()
	return fn(args)
}

// argString extracts a string argument.
func argString(fn string, args []value.Value, i int) (string, error) {
	s, ok := args[i].AsString()
	if !ok {
		return "", fmt.Errorf("%w: %s argument %d must be a string, got %s", ErrArgs, fn, i+1, args[i].Kind())
	}
	return s, nil
}

func checkArity(fn string, args []value.Value, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrArgs, fn, lo, len(args))
		}
		return fmt.Errorf("%w: %s takes %d to %d arguments, got %d", ErrArgs, fn, lo, hi, len(args))
	}
	return nil
}
