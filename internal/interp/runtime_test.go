package interp

import (
	"context"
	"errors"
	"slices"
	"testing"

	"kestrel/internal/class"
	"kestrel/internal/intrinsic"
	"kestrel/internal/loader"
	"kestrel/internal/namespace"
	"kestrel/internal/observ"
	"kestrel/internal/value"
)

type stubLib map[string]any

func (l stubLib) Lookup(symbol string) (any, error) {
	if sym, ok := l[symbol]; ok {
		return sym, nil
	}
	return nil, errors.New("no symbol " + symbol)
}

func (stubLib) Close() error { return nil }

// stubPlatform serves libraries by canonical module name.
func stubPlatform(libs map[string]stubLib) loader.Platform {
	return loader.PlatformFunc(func(path string) (loader.Library, error) {
		if lib, ok := libs[loader.CanonicalName(path)]; ok {
			return lib, nil
		}
		return nil, errors.New(path + ": not found")
	})
}

func extModule(calls *int) stubLib {
	return stubLib{
		"InitExtModuleNS": loader.NamespaceInit(func(h loader.Host, ns string) error {
			*calls++
			space, err := h.Namespaces().Create(ns)
			if err != nil {
				return err
			}
			_, err = space.AddFunction("f", func(args []value.Value) (value.Value, error) {
				return value.Int(int64(len(args))), nil
			})
			return err
		}),
	}
}

func newRuntime(t *testing.T, libs map[string]stubLib, opts ...Option) *Runtime {
	t.Helper()
	opts = append([]Option{WithPlatform(stubPlatform(libs)), WithSearchPath(t.TempDir())}, opts...)
	rt, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rt
}

func TestImportIntoNamespaceEndToEnd(t *testing.T) {
	calls := 0
	timer := observ.NewTimer()
	rt := newRuntime(t, map[string]stubLib{"ext": extModule(&calls)}, WithTimer(timer))
	ctx := context.Background()

	if _, err := rt.Call(ctx, "import", value.String("ext"), value.String("Ext")); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := rt.Call(ctx, "import", value.String("ext"), value.String("Ext")); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if calls != 1 {
		t.Fatalf("initializer ran %d times", calls)
	}

	ns, ok := rt.Namespaces().Find("Ext")
	if !ok || ns.PublicName() != "Ext" {
		t.Fatalf("Find(Ext) = %v, %v", ns, ok)
	}

	got, err := rt.Call(ctx, "_apropos", value.String("Ext"), value.String("f"), value.Int(int64(namespace.KindIntrinsicFunction)))
	if err != nil {
		t.Fatalf("_apropos: %v", err)
	}
	elems, _ := got.AsArray()
	if len(elems) != 1 {
		t.Fatalf("_apropos = %v, want [\"f\"]", got)
	}
	if s, _ := elems[0].AsString(); s != "f" {
		t.Fatalf("_apropos = %v, want [\"f\"]", got)
	}

	v, err := rt.Call(ctx, "Ext->f", value.Int(1), value.Int(2))
	if err != nil {
		t.Fatalf("Ext->f: %v", err)
	}
	if n, _ := v.AsInt(); n != 2 {
		t.Fatalf("Ext->f = %v, want 2", v)
	}

	if err := rt.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := rt.Resolve("Ext->f"); err != nil {
		t.Fatalf("symbols must survive module unload: %v", err)
	}
	if timer.Len() != 3 {
		t.Fatalf("timer phases = %d, want 3", timer.Len())
	}
}

func TestGetNamespaces(t *testing.T) {
	calls := 0
	rt := newRuntime(t, map[string]stubLib{"ext": extModule(&calls)})
	ctx := context.Background()
	if err := rt.Import(ctx, "ext", "Ext"); err != nil {
		t.Fatalf("import: %v", err)
	}
	v, err := rt.Call(ctx, "_get_namespaces")
	if err != nil {
		t.Fatalf("_get_namespaces: %v", err)
	}
	elems, _ := v.AsArray()
	var got []string
	for _, e := range elems {
		s, _ := e.AsString()
		got = append(got, s)
	}
	if !slices.Equal(got, []string{"Global", "Ext"}) {
		t.Fatalf("namespaces = %v", got)
	}
}

func TestModulePathIntrinsics(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()
	if _, err := rt.Call(ctx, "set_import_module_path", value.String("/a:/b")); err != nil {
		t.Fatalf("set path: %v", err)
	}
	v, err := rt.Call(ctx, "get_import_module_path")
	if err != nil {
		t.Fatalf("get path: %v", err)
	}
	if s, _ := v.AsString(); s != "/a:/b" {
		t.Fatalf("path = %v", v)
	}
	if _, err := rt.Call(ctx, "set_import_module_path"); !errors.Is(err, ErrArgs) {
		t.Fatalf("expected ErrArgs, got %v", err)
	}
	if _, err := rt.Call(ctx, "set_import_module_path", value.Int(1)); !errors.Is(err, ErrArgs) {
		t.Fatalf("expected ErrArgs for non-string, got %v", err)
	}
}

func TestImportErrorsSurface(t *testing.T) {
	rt := newRuntime(t, map[string]stubLib{
		"legacy": {"InitLegacyModule": loader.LegacyInit(func(loader.Host) error { return nil })},
	})
	ctx := context.Background()
	if _, err := rt.Call(ctx, "import", value.String("missing")); !errors.Is(err, loader.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := rt.Call(ctx, "import", value.String("legacy"), value.String("Ext")); !errors.Is(err, loader.ErrNamespaceUnaware) {
		t.Fatalf("expected ErrNamespaceUnaware, got %v", err)
	}
	if _, err := rt.Call(ctx, "import", value.String("legacy")); err != nil {
		t.Fatalf("legacy into Global: %v", err)
	}
}

type window struct {
	Width  int
	Height int
}

func TestStructIntrinsics(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()
	tab := intrinsic.NewTable[window]("Window",
		intrinsic.Field("width", class.TagInt, func(w *window) *int { return &w.Width }),
		intrinsic.ReadOnlyField("height", class.TagInt, func(w *window) *int { return &w.Height }),
	)
	var win *window
	if _, err := RegisterStruct(rt, "Win", &win, tab); err != nil {
		t.Fatalf("register: %v", err)
	}
	sym, err := rt.Resolve("Win")
	if err != nil || sym.Kind != namespace.KindIntrinsicStruct {
		t.Fatalf("Resolve(Win) = %v, %v", sym, err)
	}

	v, err := rt.Call(ctx, "__get_struct_field", value.String("Win"), value.String(""))
	if err != nil || !v.IsNull() {
		t.Fatalf("observing an unset struct = %v, %v; want null", v, err)
	}
	if _, err := rt.Call(ctx, "__get_struct_field", value.String("Win"), value.String("width")); !errors.Is(err, intrinsic.ErrUninitialized) {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}

	win = &window{Width: 80, Height: 24}
	if _, err := rt.Call(ctx, "__set_struct_field", value.String("Win"), value.String("width"), value.Int(100)); err != nil {
		t.Fatalf("set width: %v", err)
	}
	if win.Width != 100 {
		t.Fatalf("width = %d", win.Width)
	}
	if _, err := rt.Call(ctx, "__set_struct_field", value.String("Win"), value.String("height"), value.Int(1)); !errors.Is(err, intrinsic.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if _, err := rt.Call(ctx, "__get_struct_field", value.String("Nope"), value.String("x")); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
}

func TestStructsWithOneNameInTwoNamespaces(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()
	tab := intrinsic.NewTable[window]("Window",
		intrinsic.Field("width", class.TagInt, func(w *window) *int { return &w.Width }),
	)
	wins := map[string]*window{"A": {Width: 1}, "B": {Width: 2}}
	for _, name := range []string{"A", "B"} {
		ns, err := rt.Namespaces().Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		win := wins[name]
		if _, err := intrinsic.Register(rt.Structs(), ns, "pos", &win, tab); err != nil {
			t.Fatalf("register %s->pos: %v", name, err)
		}
	}

	if _, err := rt.Call(ctx, "__set_struct_field", value.String("B->pos"), value.String("width"), value.Int(20)); err != nil {
		t.Fatalf("set B->pos.width: %v", err)
	}
	for name, want := range map[string]int64{"A->pos": 1, "B->pos": 20} {
		v, err := rt.Call(ctx, "__get_struct_field", value.String(name), value.String("width"))
		if err != nil {
			t.Fatalf("get %s.width: %v", name, err)
		}
		if n, _ := v.AsInt(); n != want {
			t.Fatalf("%s.width = %v, want %d", name, v, want)
		}
	}
	if _, err := rt.Call(ctx, "__get_struct_field", value.String("pos"), value.String("width")); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("unqualified pos must not resolve in Global, got %v", err)
	}
	if _, err := rt.Call(ctx, "__get_struct_field", value.String("import"), value.String("x")); !errors.Is(err, ErrArgs) {
		t.Fatalf("a function is not a struct, got %v", err)
	}
}

func TestAproposRejectsUnknownMaskBits(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()
	for _, mask := range []int64{1 << 16, int64(namespace.MaskAll) + 1, 1 << 40} {
		if _, err := rt.Call(ctx, "_apropos", value.String("Global"), value.String("*"), value.Int(mask)); !errors.Is(err, ErrArgs) {
			t.Errorf("mask %#x: expected ErrArgs, got %v", mask, err)
		}
	}
	got, err := rt.Call(ctx, "_apropos", value.String("Global"), value.String("import"), value.Int(int64(namespace.MaskFunctions)))
	if err != nil {
		t.Fatalf("_apropos with a valid mask: %v", err)
	}
	if elems, _ := got.AsArray(); len(elems) != 1 {
		t.Fatalf("_apropos = %v, want [\"import\"]", got)
	}
}

func TestResolveAndCallErrors(t *testing.T) {
	rt := newRuntime(t, nil)
	ctx := context.Background()
	if _, err := rt.Resolve("Nowhere->f"); !errors.Is(err, namespace.ErrUnknownNamespace) {
		t.Fatalf("expected ErrUnknownNamespace, got %v", err)
	}
	if _, err := rt.Call(ctx, "no_such_function"); !errors.Is(err, ErrUnknownSymbol) {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
	if _, err := rt.Namespaces().Global().AddConstant("PI_ISH", value.Float(3.14)); err != nil {
		t.Fatalf("add constant: %v", err)
	}
	if _, err := rt.Call(ctx, "Global->PI_ISH"); !errors.Is(err, ErrNotCallable) {
		t.Fatalf("expected ErrNotCallable, got %v", err)
	}
	if _, err := rt.Call(ctx, "_apropos", value.String("Global"), value.String("[x"), value.String("all")); !errors.Is(err, namespace.ErrInvalidPattern) {
		t.Fatalf("expected ErrInvalidPattern, got %v", err)
	}
}

func TestSplitQualified(t *testing.T) {
	tests := []struct{ in, ns, name string }{
		{"f", "", "f"},
		{"Ext->f", "Ext", "f"},
		{"->f", "", "f"},
	}
	for _, tt := range tests {
		ns, name := SplitQualified(tt.in)
		if ns != tt.ns || name != tt.name {
			t.Errorf("SplitQualified(%q) = %q, %q", tt.in, ns, name)
		}
	}
}
