package namespace

import (
	"errors"
	"fmt"
)

// Code identifies a namespace error class.
type Code int

// Stable codes - do not change values.
const (
	CodeNamespaceExists    Code = 1001 // NS1001: public name owned by another namespace
	CodeNamespaceRedefined Code = 1002 // NS1002: namespace already has a different public name
	CodeInvalidPattern     Code = 1003 // NS1003: apropos pattern failed to compile
	CodeSymbolConflict     Code = 1004 // NS1004: name already bound to another kind
	CodeInvalidName        Code = 1005 // NS1005: empty or malformed name
	CodeUnknownNamespace   Code = 1006 // NS1006: no namespace with that public name
)

// String returns the code as "NS1001".
func (c Code) String() string {
	return fmt.Sprintf("NS%d", int(c))
}

var (
	ErrNamespaceExists    = errors.New("namespace already exists")
	ErrNamespaceRedefined = errors.New("namespace redefinition")
	ErrInvalidPattern     = errors.New("invalid pattern")
	ErrSymbolConflict     = errors.New("symbol already defined with a different kind")
	ErrInvalidName        = errors.New("invalid name")
	ErrUnknownNamespace   = errors.New("namespace does not exist")
)

var codeSentinels = map[Code]error{
	CodeNamespaceExists:    ErrNamespaceExists,
	CodeNamespaceRedefined: ErrNamespaceRedefined,
	CodeInvalidPattern:     ErrInvalidPattern,
	CodeSymbolConflict:     ErrSymbolConflict,
	CodeInvalidName:        ErrInvalidName,
	CodeUnknownNamespace:   ErrUnknownNamespace,
}

// Error is returned by registry and table operations.
type Error struct {
	Code      Code
	Namespace string // namespace the operation targeted, if any
	Name      string // public name, symbol name or pattern involved
	Err       error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := codeSentinels[e.Code].Error()
	switch {
	case e.Namespace != "" && e.Name != "":
		msg = fmt.Sprintf("%s: %s (namespace %s)", msg, e.Name, e.Namespace)
	case e.Name != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Name)
	case e.Namespace != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Namespace)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %s", e.Code, msg)
}

// Is matches the sentinel of the error's code.
func (e *Error) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, ns, name string, cause error) *Error {
	return &Error{Code: code, Namespace: ns, Name: name, Err: cause}
}
