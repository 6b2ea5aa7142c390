package intrinsic

import (
	"errors"
	"fmt"
)

// Code identifies a struct access failure.
type Code int

// Stable codes - do not change values.
const (
	CodeUninitialized     Code = 2001 // ST2001: instance reference is nil
	CodeUnknownField      Code = 2002 // ST2002: no such field in the table
	CodeReadOnly          Code = 2003 // ST2003: field is read-only
	CodeTypeMismatch      Code = 2004 // ST2004: value/field type mismatch
	CodeDuplicateInstance Code = 2005 // ST2005: instance name already registered
)

// String returns the code as "ST2001".
func (c Code) String() string {
	return fmt.Sprintf("ST%d", int(c))
}

var (
	ErrUninitialized     = errors.New("intrinsic structure is not initialized")
	ErrUnknownField      = errors.New("unknown field")
	ErrReadOnly          = errors.New("field is read-only")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrDuplicateInstance = errors.New("intrinsic structure already registered")
)

var codeSentinels = map[Code]error{
	CodeUninitialized:     ErrUninitialized,
	CodeUnknownField:      ErrUnknownField,
	CodeReadOnly:          ErrReadOnly,
	CodeTypeMismatch:      ErrTypeMismatch,
	CodeDuplicateInstance: ErrDuplicateInstance,
}

// AccessError reports a failed struct operation.
type AccessError struct {
	Code     Code
	Instance string
	Field    string
	Err      error
}

func (e *AccessError) Error() string {
	var msg string
	switch e.Code {
	case CodeUninitialized:
		msg = fmt.Sprintf("%s is not initialized", e.Instance)
	case CodeUnknownField:
		msg = fmt.Sprintf("%s has no field named %s", e.Instance, e.Field)
	case CodeReadOnly:
		msg = fmt.Sprintf("%s.%s is read-only", e.Instance, e.Field)
	case CodeTypeMismatch:
		msg = fmt.Sprintf("%s.%s: type mismatch", e.Instance, e.Field)
	case CodeDuplicateInstance:
		msg = fmt.Sprintf("%s is already registered", e.Instance)
	default:
		msg = "struct access failed"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %s", e.Code, msg)
}

// Is matches the sentinel of the error's code.
func (e *AccessError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

func (e *AccessError) Unwrap() error { return e.Err }
