// Package class dispatches value transfers between native memory and script
// values by type tag.
//
// A Class knows how to push a value of its type out of a typed Go pointer and
// how to pop (store) a script value back through such a pointer. Callers pick
// the Class by small integer Tag; the lookup is a fixed array index.
package class

import (
	"errors"
	"fmt"

	"kestrel/internal/value"
)

// Tag identifies a native type class.
type Tag uint8

const (
	TagInvalid Tag = iota
	TagInt
	TagInt32
	TagInt64
	TagUint32
	TagFloat64
	TagFloat32
	TagBool
	TagString

	// FirstUserTag is the first tag available to host-defined classes.
	FirstUserTag
	maxTag = 64
)

func (t Tag) String() string {
	switch t {
	case TagInt:
		return "Int_Type"
	case TagInt32:
		return "Int32_Type"
	case TagInt64:
		return "Int64_Type"
	case TagUint32:
		return "UInt32_Type"
	case TagFloat64:
		return "Double_Type"
	case TagFloat32:
		return "Float_Type"
	case TagBool:
		return "Char_Type"
	case TagString:
		return "String_Type"
	case TagInvalid:
		return "Undefined_Type"
	default:
		return fmt.Sprintf("Type#%d", uint8(t))
	}
}

var (
	// ErrTypeMismatch reports a value or address of the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrUnknownTag reports a tag with no registered class.
	ErrUnknownTag = errors.New("unknown type class")
)

// Class transfers values of one native type.
type Class interface {
	Tag() Tag
	Name() string
	// Push reads the value stored at addr.
	Push(addr any) (value.Value, error)
	// Pop stores v at addr.
	Pop(addr any, v value.Value) error
}

// Table maps tags to classes.
type Table struct {
	byTag [maxTag]Class
}

// NewTable returns a table holding the built-in scalar classes.
func NewTable() *Table {
	t := &Table{}
	for _, c := range builtinClasses() {
		if err := t.Register(c); err != nil {
			panic(err)
		}
	}
	return t
}

// Register installs c under its tag. A tag may only be registered once.
func (t *Table) Register(c Class) error {
	tag := c.Tag()
	if tag == TagInvalid || int(tag) >= maxTag {
		return fmt.Errorf("class %s: tag %d out of range", c.Name(), tag)
	}
	if prev := t.byTag[tag]; prev != nil {
		return fmt.Errorf("class %s: tag %d already used by %s", c.Name(), tag, prev.Name())
	}
	t.byTag[tag] = c
	return nil
}

// Lookup returns the class for tag.
func (t *Table) Lookup(tag Tag) (Class, bool) {
	if int(tag) >= maxTag {
		return nil, false
	}
	c := t.byTag[tag]
	return c, c != nil
}

// Push dispatches to the class registered for tag.
func (t *Table) Push(tag Tag, addr any) (value.Value, error) {
	c, ok := t.Lookup(tag)
	if !ok {
		return value.Null, fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return c.Push(addr)
}

// Pop dispatches to the class registered for tag.
func (t *Table) Pop(tag Tag, addr any, v value.Value) error {
	c, ok := t.Lookup(tag)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTag, tag)
	}
	return c.Pop(addr, v)
}
