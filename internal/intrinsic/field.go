package intrinsic

import (
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"kestrel/internal/class"
	"kestrel/internal/names"
)

// FieldDesc describes one script-visible field of a native structure.
type FieldDesc struct {
	Name     string
	Offset   uintptr
	Type     class.Tag
	ReadOnly bool

	// addr returns a typed pointer (*T) to the field inside base (*S).
	addr func(base any) any
	id   names.ID
}

// ID returns the interned field name, or names.NoID before registration.
func (f *FieldDesc) ID() names.ID { return f.id }

// Field describes a writable field selected by sel.
func Field[S, T any](name string, tag class.Tag, sel func(*S) *T) FieldDesc {
	return newField(name, tag, false, sel)
}

// ReadOnlyField describes a field that script code may read but not write.
func ReadOnlyField[S, T any](name string, tag class.Tag, sel func(*S) *T) FieldDesc {
	return newField(name, tag, true, sel)
}

func newField[S, T any](name string, tag class.Tag, readOnly bool, sel func(*S) *T) FieldDesc {
	var zero S
	base := uintptr(unsafe.Pointer(&zero))
	off := uintptr(unsafe.Pointer(sel(&zero))) - base
	return FieldDesc{
		Name:     name,
		Offset:   off,
		Type:     tag,
		ReadOnly: readOnly,
		addr: func(b any) any {
			return sel(b.(*S))
		},
	}
}

// Table is the ordered field list of one native structure type. It may be
// shared by any number of instances.
type Table struct {
	Type   string
	Fields []FieldDesc

	goType reflect.Type
}

// NewTable builds a table for S from explicit descriptors.
func NewTable[S any](typeName string, fields ...FieldDesc) *Table {
	return &Table{
		Type:   typeName,
		Fields: fields,
		goType: reflect.TypeFor[S](),
	}
}

// Field returns the descriptor with the given interned name.
func (t *Table) Field(id names.ID) (*FieldDesc, bool) {
	for i := range t.Fields {
		if t.Fields[i].id == id {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// TableOf derives a table from the exported, non-embedded fields of S. A field may
// carry a `kestrel:"name[,ro]"` tag; `kestrel:"-"` hides it. Fields whose
// type has no built-in class are rejected.
func TableOf[S any](typeName string) (*Table, error) {
	rt := reflect.TypeFor[S]()
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("TableOf: %s is not a struct", rt)
	}
	t := &Table{Type: typeName, goType: rt}
	for i := range rt.NumField() {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name, readOnly, skip := parseFieldTag(sf)
		if skip {
			continue
		}
		tag, ok := tagForKind(sf.Type.Kind())
		if !ok {
			return nil, fmt.Errorf("TableOf %s: field %s has unsupported type %s", typeName, sf.Name, sf.Type)
		}
		t.Fields = append(t.Fields, FieldDesc{
			Name:     name,
			Offset:   sf.Offset,
			Type:     tag,
			ReadOnly: readOnly,
			addr: func(b any) any {
				return reflect.ValueOf(b).Elem().Field(i).Addr().Interface()
			},
		})
	}
	return t, nil
}

func parseFieldTag(sf reflect.StructField) (name string, readOnly, skip bool) {
	name = sf.Name
	raw, ok := sf.Tag.Lookup("kestrel")
	if !ok {
		return name, false, false
	}
	if raw == "-" {
		return "", false, true
	}
	parts := strings.Split(raw, ",")
	if parts[0] != "" {
		name = parts[0]
	}
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "ro" {
			readOnly = true
		}
	}
	return name, readOnly, false
}

func tagForKind(k reflect.Kind) (class.Tag, bool) {
	switch k {
	case reflect.Int:
		return class.TagInt, true
	case reflect.Int32:
		return class.TagInt32, true
	case reflect.Int64:
		return class.TagInt64, true
	case reflect.Uint32:
		return class.TagUint32, true
	case reflect.Float64:
		return class.TagFloat64, true
	case reflect.Float32:
		return class.TagFloat32, true
	case reflect.Bool:
		return class.TagBool, true
	case reflect.String:
		return class.TagString, true
	default:
		return class.TagInvalid, false
	}
}
