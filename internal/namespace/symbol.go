package namespace

import (
	"fmt"
	"strings"

	"kestrel/internal/class"
	"kestrel/internal/names"
	"kestrel/internal/value"
)

// Kind classifies a symbol record. Kinds are single bits so that a Mask can
// select any combination of them.
type Kind uint16

const (
	KindIntrinsicFunction Kind = 1 << iota // native function registered by the host or a module
	KindFunction                           // function defined by script code
	KindIntrinsicVariable                  // native variable, writable from script code
	KindReadOnlyVariable                   // native variable, read-only to script code
	KindVariable                           // global variable defined by script code
	KindConstant                           // scalar constant
	KindStructConstant                     // structured constant (named fields)
	KindIntrinsicStruct                    // native structure exposed through the struct bridge
)

var kindNames = []struct {
	kind Kind
	name string
}{
	{KindIntrinsicFunction, "intrinsic"},
	{KindFunction, "function"},
	{KindIntrinsicVariable, "ivariable"},
	{KindReadOnlyVariable, "rvariable"},
	{KindVariable, "variable"},
	{KindConstant, "constant"},
	{KindStructConstant, "struct-constant"},
	{KindIntrinsicStruct, "struct"},
}

func (k Kind) String() string {
	for _, kn := range kindNames {
		if kn.kind == k {
			return kn.name
		}
	}
	return "invalid"
}

func (k Kind) valid() bool {
	return k != 0 && k&(k-1) == 0 && Mask(k)&MaskAll != 0
}

// Mask selects a set of kinds.
type Mask uint16

const (
	// MaskFunctions selects native and script functions.
	MaskFunctions = Mask(KindIntrinsicFunction | KindFunction)
	// MaskVariables selects every variable flavour, intrinsic structs included.
	MaskVariables = Mask(KindIntrinsicVariable | KindReadOnlyVariable | KindVariable | KindIntrinsicStruct)
	// MaskConstants selects scalar and structured constants.
	MaskConstants = Mask(KindConstant | KindStructConstant)
	// MaskAll selects every kind.
	MaskAll = MaskFunctions | MaskVariables | MaskConstants
)

// MaskOf builds a mask from kinds.
func MaskOf(kinds ...Kind) Mask {
	var m Mask
	for _, k := range kinds {
		m |= Mask(k)
	}
	return m
}

// Has reports whether k is selected.
func (m Mask) Has(k Kind) bool { return m&Mask(k) != 0 }

// ParseMask reads a comma separated list of kind names. The group names
// "functions", "variables", "constants" and "all" are accepted too.
func ParseMask(s string) (Mask, error) {
	var m Mask
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		switch part {
		case "":
			continue
		case "all":
			m |= MaskAll
			continue
		case "functions":
			m |= MaskFunctions
			continue
		case "variables":
			m |= MaskVariables
			continue
		case "constants":
			m |= MaskConstants
			continue
		}
		found := false
		for _, kn := range kindNames {
			if kn.name == part {
				m |= Mask(kn.kind)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown symbol kind %q", part)
		}
	}
	if m == 0 {
		return MaskAll, nil
	}
	return m, nil
}

// Function is the calling convention of native functions.
type Function func(args []value.Value) (value.Value, error)

// Variable describes a native variable: a typed address and the class tag
// used to move values through it.
type Variable struct {
	Type     class.Tag
	Addr     any
	ReadOnly bool
}

// ConstantDef names a constant value. Used for table-driven registration and
// for the fields of structured constants.
type ConstantDef struct {
	Name  string
	Value value.Value
}

// FunctionDef names a native function for table-driven registration.
type FunctionDef struct {
	Name string
	Fn   Function
}

// Symbol is one record of a namespace table.
type Symbol struct {
	Name  names.ID
	Kind  Kind
	Value any

	ns *Namespace
}

// Namespace returns the table that owns the record.
func (s *Symbol) Namespace() *Namespace { return s.ns }

// Text returns the symbol name.
func (s *Symbol) Text() string {
	return s.ns.names.MustLookup(s.Name)
}
