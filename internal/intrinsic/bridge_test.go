package intrinsic

import (
	"errors"
	"testing"

	"kestrel/internal/class"
	"kestrel/internal/names"
	"kestrel/internal/namespace"
	"kestrel/internal/value"
)

type point struct {
	X int
	Y int
}

func pointTable() *Table {
	return NewTable[point]("Point",
		Field("x", class.TagInt, func(p *point) *int { return &p.X }),
		ReadOnlyField("y", class.TagInt, func(p *point) *int { return &p.Y }),
	)
}

func newBridge() (*Bridge, *namespace.Namespace) {
	in := names.NewInterner()
	return NewBridge(in, nil), namespace.NewRegistry(in).Global()
}

func TestSharedTableInternsOnce(t *testing.T) {
	in := names.NewInterner()
	b := NewBridge(in, nil)
	global := namespace.NewRegistry(in).Global()
	tab := pointTable()

	a := &point{X: 1, Y: 2}
	c := &point{X: 3, Y: 4}
	if _, err := Register(b, global, "A", &a, tab); err != nil {
		t.Fatalf("register A: %v", err)
	}
	before := in.Len()
	if _, err := Register(b, global, "C", &c, tab); err != nil {
		t.Fatalf("register C: %v", err)
	}
	// Only the instance name "C" is new.
	if got := in.Len() - before; got != 1 {
		t.Fatalf("second registration interned %d names, want 1", got)
	}
	xID, _ := in.Find("x")
	if tab.Fields[0].ID() != xID {
		t.Fatalf("field x holds %d, canonical handle is %d", tab.Fields[0].ID(), xID)
	}
}

func TestGetSet(t *testing.T) {
	b, global := newBridge()
	p := &point{X: 1, Y: 2}
	inst, err := Register(b, global, "P", &p, pointTable())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	v, err := b.GetByName(inst, "y")
	if err != nil {
		t.Fatalf("get y: %v", err)
	}
	if n, _ := v.AsInt(); n != 2 {
		t.Fatalf("y = %v, want 2", v)
	}
	if err := b.SetByName(inst, "x", value.Int(10)); err != nil {
		t.Fatalf("set x: %v", err)
	}
	if p.X != 10 {
		t.Fatalf("native x = %d, want 10", p.X)
	}
}

func TestSetReadOnly(t *testing.T) {
	b, global := newBridge()
	p := &point{}
	inst, _ := Register(b, global, "P", &p, pointTable())

	err := b.SetByName(inst, "y", value.Int(5))
	if !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	var ae *AccessError
	if !errors.As(err, &ae) || ae.Code != CodeReadOnly || ae.Field != "y" {
		t.Fatalf("unexpected error detail: %#v", err)
	}
	if p.Y != 0 {
		t.Fatalf("read-only field changed to %d", p.Y)
	}
}

func TestUnknownField(t *testing.T) {
	in := names.NewInterner()
	b := NewBridge(in, nil)
	global := namespace.NewRegistry(in).Global()
	p := &point{}
	inst, _ := Register(b, global, "P", &p, pointTable())

	if _, err := b.GetByName(inst, "z"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if _, ok := in.Find("z"); ok {
		t.Fatalf("lookup of an unknown field must not intern it")
	}
	// A name interned elsewhere is still not a field of Point.
	if _, err := b.Get(inst, in.Intern("z")); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField for interned name, got %v", err)
	}
}

func TestUninitializedInstance(t *testing.T) {
	b, global := newBridge()
	var p *point
	inst, err := Register(b, global, "Late", &p, pointTable())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := b.GetByName(inst, "x"); !errors.Is(err, ErrUninitialized) {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}
	if v := b.Observe(inst); !v.IsNull() {
		t.Fatalf("observing nil instance = %v, want null", v)
	}

	p = &point{X: 7}
	v, err := b.GetByName(inst, "x")
	if err != nil {
		t.Fatalf("get after init: %v", err)
	}
	if n, _ := v.AsInt(); n != 7 {
		t.Fatalf("x = %v, want 7", v)
	}
	if obs := b.Observe(inst); obs.Kind() != value.KStruct || obs.Ref() != p {
		t.Fatalf("observe = %v, want struct ref", obs)
	}
}

func TestSetTypeMismatch(t *testing.T) {
	b, global := newBridge()
	p := &point{}
	inst, _ := Register(b, global, "P", &p, pointTable())

	err := b.SetByName(inst, "x", value.String("nope"))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if !errors.Is(err, class.ErrTypeMismatch) {
		t.Fatalf("class cause lost: %v", err)
	}
}

func TestRegisterRejectsDuplicatesAndWrongTable(t *testing.T) {
	b, global := newBridge()
	p := &point{}
	if _, err := Register(b, global, "P", &p, pointTable()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := Register(b, global, "P", &p, pointTable()); !errors.Is(err, ErrDuplicateInstance) {
		t.Fatalf("expected ErrDuplicateInstance, got %v", err)
	}

	type other struct{ X int }
	o := &other{}
	if _, err := Register(b, global, "O", &o, pointTable()); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch for foreign table, got %v", err)
	}
	if _, ok := b.Lookup(global, "O"); ok {
		t.Fatalf("rejected instance must not be visible")
	}
	if _, ok := global.Lookup("O"); ok {
		t.Fatalf("rejected instance left a symbol behind")
	}
	if got := len(b.Instances()); got != 1 {
		t.Fatalf("instances = %d, want 1", got)
	}
}

func TestInstancesAreScopedByNamespace(t *testing.T) {
	in := names.NewInterner()
	reg := namespace.NewRegistry(in)
	b := NewBridge(in, nil)
	nsA, _ := reg.Create("A")
	nsB, _ := reg.Create("B")

	pa := &point{X: 1}
	pb := &point{X: 2}
	instA, err := Register(b, nsA, "pos", &pa, pointTable())
	if err != nil {
		t.Fatalf("register A->pos: %v", err)
	}
	instB, err := Register(b, nsB, "pos", &pb, pointTable())
	if err != nil {
		t.Fatalf("register B->pos: %v", err)
	}

	for _, tt := range []struct {
		ns   *namespace.Namespace
		inst *Instance
		x    int64
	}{{nsA, instA, 1}, {nsB, instB, 2}} {
		got, ok := b.Lookup(tt.ns, "pos")
		if !ok || got != tt.inst {
			t.Fatalf("Lookup(%s, pos) = %v, %v", tt.ns.PublicName(), got, ok)
		}
		sym, ok := tt.ns.Lookup("pos")
		if !ok || sym.Kind != namespace.KindIntrinsicStruct || sym.Value != tt.inst {
			t.Fatalf("%s has no struct symbol for its instance", tt.ns.PublicName())
		}
		v, _ := b.GetByName(tt.inst, "x")
		if n, _ := v.AsInt(); n != tt.x {
			t.Fatalf("%s->pos.x = %v, want %d", tt.ns.PublicName(), v, tt.x)
		}
	}
	if _, ok := b.Lookup(reg.Global(), "pos"); ok {
		t.Fatalf("pos must not leak into Global")
	}

	_, err = Register(b, nsA, "pos", &pb, pointTable())
	var ae *AccessError
	if !errors.As(err, &ae) || ae.Code != CodeDuplicateInstance || ae.Instance != "A->pos" {
		t.Fatalf("duplicate in A = %v, want ST2005 naming A->pos", err)
	}
	if sym, _ := nsA.Lookup("pos"); sym.Value != instA {
		t.Fatalf("rejected duplicate replaced the A->pos symbol")
	}
	if _, err := nsB.AddConstant("taken", value.Int(1)); err != nil {
		t.Fatal(err)
	}
	if _, err := Register(b, nsB, "taken", &pb, pointTable()); !errors.Is(err, namespace.ErrSymbolConflict) {
		t.Fatalf("expected ErrSymbolConflict, got %v", err)
	}
	if got := len(b.Instances()); got != 2 {
		t.Fatalf("instances = %d, want 2", got)
	}
}

type settings struct {
	Width   int     `kestrel:"width"`
	Scale   float64 `kestrel:"scale,ro"`
	Label   string
	Enabled bool
	Hidden  int `kestrel:"-"`
	private int
}

func TestTableOf(t *testing.T) {
	tab, err := TableOf[settings]("Settings")
	if err != nil {
		t.Fatalf("TableOf: %v", err)
	}
	want := []struct {
		name string
		tag  class.Tag
		ro   bool
	}{
		{"width", class.TagInt, false},
		{"scale", class.TagFloat64, true},
		{"Label", class.TagString, false},
		{"Enabled", class.TagBool, false},
	}
	if len(tab.Fields) != len(want) {
		t.Fatalf("fields = %d, want %d", len(tab.Fields), len(want))
	}
	for i, w := range want {
		f := tab.Fields[i]
		if f.Name != w.name || f.Type != w.tag || f.ReadOnly != w.ro {
			t.Errorf("field %d = {%s %s %v}, want {%s %s %v}", i, f.Name, f.Type, f.ReadOnly, w.name, w.tag, w.ro)
		}
	}

	b, global := newBridge()
	s := &settings{Width: 80, Scale: 1.5, private: 1}
	inst, err := Register(b, global, "cfg", &s, tab)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := b.SetByName(inst, "width", value.Int(120)); err != nil || s.Width != 120 {
		t.Fatalf("set width: %v (width=%d)", err, s.Width)
	}
	if err := b.SetByName(inst, "scale", value.Float(2)); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly for scale, got %v", err)
	}
	if _, err := b.GetByName(inst, "Hidden"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("hidden field must not be visible, got %v", err)
	}
}

func TestTableOfRejectsUnsupportedField(t *testing.T) {
	type bad struct{ Items []int }
	if _, err := TableOf[bad]("Bad"); err == nil {
		t.Fatalf("slice field must be rejected")
	}
	if _, err := TableOf[int]("Int"); err == nil {
		t.Fatalf("non-struct type must be rejected")
	}
}
