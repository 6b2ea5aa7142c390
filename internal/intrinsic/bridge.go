package intrinsic

import (
	"errors"
	"fmt"
	"reflect"

	"kestrel/internal/class"
	"kestrel/internal/names"
	"kestrel/internal/namespace"
	"kestrel/internal/value"
)

// Instance is a named handle on a native structure reached through an
// indirect reference.
type Instance struct {
	name  string
	label string // name qualified by its namespace, used in errors
	ns    *namespace.Namespace
	table *Table
	deref func() any // nil while the underlying *S is nil
}

// Name returns the script-visible name.
func (in *Instance) Name() string { return in.name }

// Namespace returns the namespace the instance is bound in.
func (in *Instance) Namespace() *namespace.Namespace { return in.ns }

// Table returns the shared field table.
func (in *Instance) Table() *Table { return in.table }

type instanceKey struct {
	ns   namespace.ID
	name names.ID
}

// Bridge resolves field access on registered instances. Instance names are
// scoped by namespace: "pos" in A and "pos" in B are distinct.
type Bridge struct {
	names     *names.Interner
	classes   *class.Table
	instances map[instanceKey]*Instance
	order     []*Instance
}

// NewBridge creates a bridge interning through in and dispatching value
// transfers through classes.
func NewBridge(in *names.Interner, classes *class.Table) *Bridge {
	if in == nil {
		in = names.NewInterner()
	}
	if classes == nil {
		classes = class.NewTable()
	}
	return &Bridge{
		names:     in,
		classes:   classes,
		instances: make(map[instanceKey]*Instance),
	}
}

// Intern converts script text to a field or instance handle.
func (b *Bridge) Intern(s string) names.ID { return b.names.Intern(s) }

// RegisterTable interns every field name of t. Descriptors that already hold
// the canonical handle are left untouched, so shared tables may be
// registered any number of times.
func (b *Bridge) RegisterTable(t *Table) {
	for i := range t.Fields {
		f := &t.Fields[i]
		if f.id.IsValid() {
			if s, ok := b.names.Lookup(f.id); ok && s == f.Name {
				continue
			}
		}
		f.id = b.names.Intern(f.Name)
	}
}

// Register binds name in ns to the structure *ref points at and defines the
// matching intrinsic struct symbol in ns. *ref may be nil now and set later;
// every access re-reads it. A name already bound to an instance in ns fails
// with ErrDuplicateInstance; nothing is recorded on failure.
func Register[S any](b *Bridge, ns *namespace.Namespace, name string, ref **S, t *Table) (*Instance, error) {
	if ns == nil || ref == nil {
		return nil, fmt.Errorf("intrinsic %s: nil namespace or reference", name)
	}
	label := ns.Qualify(name)
	if t.goType != nil && t.goType != reflect.TypeFor[S]() {
		return nil, &AccessError{
			Code:     CodeTypeMismatch,
			Instance: label,
			Err:      fmt.Errorf("table %s describes %s, not %s", t.Type, t.goType, reflect.TypeFor[S]()),
		}
	}
	key := instanceKey{ns: ns.ID(), name: b.names.Intern(name)}
	if _, dup := b.instances[key]; dup {
		return nil, &AccessError{Code: CodeDuplicateInstance, Instance: label}
	}
	inst := &Instance{
		name:  name,
		label: label,
		ns:    ns,
		table: t,
		deref: func() any {
			if *ref == nil {
				return nil
			}
			return *ref
		},
	}
	if _, err := ns.AddIntrinsicStruct(name, inst); err != nil {
		return nil, err
	}
	b.RegisterTable(t)
	b.instances[key] = inst
	b.order = append(b.order, inst)
	return inst, nil
}

// Lookup returns the instance registered under name in ns.
func (b *Bridge) Lookup(ns *namespace.Namespace, name string) (*Instance, bool) {
	id, ok := b.names.Find(name)
	if ns == nil || !ok {
		return nil, false
	}
	inst, ok := b.instances[instanceKey{ns: ns.ID(), name: id}]
	return inst, ok
}

// Instances lists registered instances in registration order.
func (b *Bridge) Instances() []*Instance {
	out := make([]*Instance, len(b.order))
	copy(out, b.order)
	return out
}

func (b *Bridge) locate(inst *Instance, field names.ID) (any, *FieldDesc, error) {
	base := inst.deref()
	if base == nil {
		return nil, nil, &AccessError{Code: CodeUninitialized, Instance: inst.label}
	}
	f, ok := inst.table.Field(field)
	if !ok {
		name, _ := b.names.Lookup(field)
		return nil, nil, &AccessError{Code: CodeUnknownField, Instance: inst.label, Field: name}
	}
	return base, f, nil
}

// Get reads a field. field must be an interned handle.
func (b *Bridge) Get(inst *Instance, field names.ID) (value.Value, error) {
	base, f, err := b.locate(inst, field)
	if err != nil {
		return value.Null, err
	}
	v, err := b.classes.Push(f.Type, f.addr(base))
	if err != nil {
		return value.Null, b.transferError(inst, f, err)
	}
	return v, nil
}

// Set writes a field. Read-only fields fail with ErrReadOnly.
func (b *Bridge) Set(inst *Instance, field names.ID, v value.Value) error {
	base, f, err := b.locate(inst, field)
	if err != nil {
		return err
	}
	if f.ReadOnly {
		return &AccessError{Code: CodeReadOnly, Instance: inst.label, Field: f.Name}
	}
	if err := b.classes.Pop(f.Type, f.addr(base), v); err != nil {
		return b.transferError(inst, f, err)
	}
	return nil
}

func (b *Bridge) transferError(inst *Instance, f *FieldDesc, err error) error {
	if errors.Is(err, class.ErrTypeMismatch) {
		return &AccessError{Code: CodeTypeMismatch, Instance: inst.label, Field: f.Name, Err: err}
	}
	return fmt.Errorf("%s.%s: %w", inst.label, f.Name, err)
}

// GetByName is Get with the field given as text.
func (b *Bridge) GetByName(inst *Instance, field string) (value.Value, error) {
	id, ok := b.names.Find(field)
	if !ok {
		return value.Null, &AccessError{Code: CodeUnknownField, Instance: inst.label, Field: field}
	}
	return b.Get(inst, id)
}

// SetByName is Set with the field given as text.
func (b *Bridge) SetByName(inst *Instance, field string, v value.Value) error {
	id, ok := b.names.Find(field)
	if !ok {
		return &AccessError{Code: CodeUnknownField, Instance: inst.label, Field: field}
	}
	return b.Set(inst, id, v)
}

// Observe yields the whole instance as a value. An instance whose reference
// is still nil observes as null rather than failing.
func (b *Bridge) Observe(inst *Instance) value.Value {
	return value.StructRef(inst.deref())
}
