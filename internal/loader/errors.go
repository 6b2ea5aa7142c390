package loader

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a loader failure.
type Code int

// Stable codes - do not change values.
const (
	CodeNotFound         Code = 3001 // LD3001: module file not found anywhere
	CodeLink             Code = 3002 // LD3002: library failed to open
	CodeMissingSymbol    Code = 3003 // LD3003: initializer missing, or an entry point mistyped
	CodeNamespaceUnaware Code = 3004 // LD3004: legacy module into a non-global namespace
	CodeInitFailed       Code = 3005 // LD3005: initializer reported failure
	CodeAPIVersion       Code = 3006 // LD3006: module built against another API major
	CodeUnloadFailed     Code = 3007 // LD3007: deinit or close failed at shutdown
)

// unknownDiagnosticText stands in when the platform reports no message.
const unknownDiagnosticText = "UNKNOWN"

// String returns the code as "LD3001".
func (c Code) String() string {
	return fmt.Sprintf("LD%d", int(c))
}

var (
	ErrNotFound         = errors.New("module not found")
	ErrLink             = errors.New("unable to open module")
	ErrMissingSymbol    = errors.New("module entry point missing or mistyped")
	ErrNamespaceUnaware = errors.New("module does not support namespaces")
	ErrInitFailed       = errors.New("module initialization failed")
	ErrAPIVersion       = errors.New("module API version mismatch")
	ErrUnload           = errors.New("module unload failed")
)

var codeSentinels = map[Code]error{
	CodeNotFound:         ErrNotFound,
	CodeLink:             ErrLink,
	CodeMissingSymbol:    ErrMissingSymbol,
	CodeNamespaceUnaware: ErrNamespaceUnaware,
	CodeInitFailed:       ErrInitFailed,
	CodeAPIVersion:       ErrAPIVersion,
	CodeUnloadFailed:     ErrUnload,
}

// LoadError reports a failed load or unload of one module.
type LoadError struct {
	Code      Code
	Module    string   // requested module name
	File      string   // library file that was opened or searched for
	Namespace string   // target namespace, when relevant
	Searched  []string // directories tried during resolution
	Detail    string   // platform or initializer diagnostic
	Err       error
}

func (e *LoadError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.String())
	sb.WriteByte(' ')
	switch e.Code {
	case CodeNotFound:
		fmt.Fprintf(&sb, "module %s not found", e.Module)
		if len(e.Searched) > 0 {
			fmt.Fprintf(&sb, " (searched %s)", strings.Join(e.Searched, ", "))
		}
	case CodeLink:
		fmt.Fprintf(&sb, "unable to open %s", e.File)
	case CodeMissingSymbol:
		fmt.Fprintf(&sb, "%s has no usable entry points for module %s", e.File, e.Module)
	case CodeNamespaceUnaware:
		fmt.Fprintf(&sb, "module %s does not support namespaces and cannot be loaded into %s", e.Module, e.Namespace)
	case CodeInitFailed:
		fmt.Fprintf(&sb, "module %s failed to initialize", e.Module)
	case CodeAPIVersion:
		fmt.Fprintf(&sb, "module %s was built for another API version", e.Module)
	case CodeUnloadFailed:
		fmt.Fprintf(&sb, "unable to unload module %s", e.Module)
	default:
		fmt.Fprintf(&sb, "module %s: load failed", e.Module)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

// Is matches the sentinel of the error's code.
func (e *LoadError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

func (e *LoadError) Unwrap() error { return e.Err }

// diagnostic returns the platform's message for err, or UNKNOWN.
func diagnostic(err error) string {
	if err == nil {
		return unknownDiagnosticText
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return unknownDiagnosticText
}
