package namespace

import (
	"github.com/zeebo/xxh3"

	"kestrel/internal/names"
	"kestrel/internal/value"
)

// Namespace is a named symbol scope with a fixed-size hash table.
type Namespace struct {
	id       ID
	internal string
	public   string
	buckets  [][]*Symbol
	count    int
	names    *names.Interner
}

// ID returns the internal identity.
func (ns *Namespace) ID() ID { return ns.id }

// InternalName returns the name the namespace was created under.
func (ns *Namespace) InternalName() string { return ns.internal }

// PublicName returns the public name, or "" for an anonymous namespace.
func (ns *Namespace) PublicName() string { return ns.public }

// DisplayName prefers the public name.
func (ns *Namespace) DisplayName() string {
	if ns.public != "" {
		return ns.public
	}
	return ns.internal
}

// Qualify returns name as script code writes it from outside ns: bare in
// Global, "Ns->name" elsewhere.
func (ns *Namespace) Qualify(name string) string {
	if ns.internal == GlobalName {
		return name
	}
	return ns.DisplayName() + QualifySeparator + name
}

// Buckets reports the fixed table size.
func (ns *Namespace) Buckets() int { return len(ns.buckets) }

// Len counts symbol records.
func (ns *Namespace) Len() int { return ns.count }

func (ns *Namespace) bucket(text string) int {
	return int(xxh3.HashString(text) % uint64(len(ns.buckets)))
}

// Lookup finds a symbol by name.
func (ns *Namespace) Lookup(name string) (*Symbol, bool) {
	id, ok := ns.names.Find(name)
	if !ok {
		return nil, false
	}
	return ns.lookupID(id)
}

// LookupID finds a symbol by interned name.
func (ns *Namespace) LookupID(id names.ID) (*Symbol, bool) {
	if !ns.names.Has(id) || !id.IsValid() {
		return nil, false
	}
	return ns.lookupID(id)
}

func (ns *Namespace) lookupID(id names.ID) (*Symbol, bool) {
	for _, sym := range ns.buckets[ns.bucket(ns.names.MustLookup(id))] {
		if sym.Name == id {
			return sym, true
		}
	}
	return nil, false
}

// Define binds name to a record of the given kind. Redefining a name with the
// same kind replaces the payload of the existing record; redefining it with
// another kind fails with ErrSymbolConflict.
func (ns *Namespace) Define(name string, kind Kind, payload any) (*Symbol, error) {
	if name == "" || !kind.valid() {
		return nil, newError(CodeInvalidName, ns.DisplayName(), name, nil)
	}
	id := ns.names.Intern(name)
	b := ns.bucket(ns.names.MustLookup(id))
	for _, sym := range ns.buckets[b] {
		if sym.Name != id {
			continue
		}
		if sym.Kind != kind {
			return nil, newError(CodeSymbolConflict, ns.DisplayName(), name, nil)
		}
		sym.Value = payload
		return sym, nil
	}
	sym := &Symbol{Name: id, Kind: kind, Value: payload, ns: ns}
	ns.buckets[b] = append(ns.buckets[b], sym)
	ns.count++
	return sym, nil
}

// AddFunction registers a native function.
func (ns *Namespace) AddFunction(name string, fn Function) (*Symbol, error) {
	return ns.Define(name, KindIntrinsicFunction, fn)
}

// AddFunctions registers a table of native functions, stopping at the first
// failure.
func (ns *Namespace) AddFunctions(defs []FunctionDef) error {
	for _, d := range defs {
		if _, err := ns.AddFunction(d.Name, d.Fn); err != nil {
			return err
		}
	}
	return nil
}

// AddVariable registers a native variable. Read-only variables get
// KindReadOnlyVariable.
func (ns *Namespace) AddVariable(name string, v Variable) (*Symbol, error) {
	kind := KindIntrinsicVariable
	if v.ReadOnly {
		kind = KindReadOnlyVariable
	}
	return ns.Define(name, kind, v)
}

// AddConstant registers a scalar constant.
func (ns *Namespace) AddConstant(name string, v value.Value) (*Symbol, error) {
	return ns.Define(name, KindConstant, v)
}

// AddConstants registers a table of constants.
func (ns *Namespace) AddConstants(defs []ConstantDef) error {
	for _, d := range defs {
		if _, err := ns.AddConstant(d.Name, d.Value); err != nil {
			return err
		}
	}
	return nil
}

// AddStructConstant registers a structured constant with named fields.
func (ns *Namespace) AddStructConstant(name string, fields []ConstantDef) (*Symbol, error) {
	return ns.Define(name, KindStructConstant, fields)
}

// AddIntrinsicStruct registers a native structure instance. The payload is
// opaque to the namespace.
func (ns *Namespace) AddIntrinsicStruct(name string, instance any) (*Symbol, error) {
	return ns.Define(name, KindIntrinsicStruct, instance)
}

// Each calls fn for every record in table order until fn returns false.
func (ns *Namespace) Each(fn func(*Symbol) bool) {
	for _, bucket := range ns.buckets {
		for _, sym := range bucket {
			if !fn(sym) {
				return
			}
		}
	}
}
