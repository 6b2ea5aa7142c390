package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"kestrel/internal/class"
	"kestrel/internal/intrinsic"
	"kestrel/internal/names"
	"kestrel/internal/namespace"
	"kestrel/internal/value"
)

type testHost struct {
	reg     *namespace.Registry
	bridge  *intrinsic.Bridge
	classes *class.Table
}

func newTestHost() *testHost {
	in := names.NewInterner()
	classes := class.NewTable()
	return &testHost{
		reg:     namespace.NewRegistry(in),
		bridge:  intrinsic.NewBridge(in, classes),
		classes: classes,
	}
}

func (h *testHost) Namespaces() *namespace.Registry { return h.reg }
func (h *testHost) Structs() *intrinsic.Bridge      { return h.bridge }
func (h *testHost) Classes() *class.Table           { return h.classes }

type fakeLib struct {
	symbols map[string]any
	closed  int
}

func (l *fakeLib) Lookup(symbol string) (any, error) {
	if sym, ok := l.symbols[symbol]; ok {
		return sym, nil
	}
	return nil, errors.New("symbol " + symbol + " not found")
}

func (l *fakeLib) Close() error {
	l.closed++
	return nil
}

// fakePlatform serves libraries by exact path and records every open.
type fakePlatform struct {
	libs   map[string]*fakeLib
	errs   map[string]error
	opened []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{libs: map[string]*fakeLib{}, errs: map[string]error{}}
}

func (p *fakePlatform) add(path string, symbols map[string]any) *fakeLib {
	lib := &fakeLib{symbols: symbols}
	p.libs[path] = lib
	return lib
}

func (p *fakePlatform) Open(path string) (Library, error) {
	p.opened = append(p.opened, path)
	if lib, ok := p.libs[path]; ok {
		return lib, nil
	}
	if err, ok := p.errs[path]; ok {
		return nil, err
	}
	return nil, errors.New(path + ": cannot open shared object file")
}

func newTestLoader(t *testing.T, p Platform, h Host) *Loader {
	t.Helper()
	t.Setenv(EnvModulePath, "")
	return New(h, WithPlatform(p), WithSearchPath(t.TempDir()))
}

func TestLoadTwiceInitializesOnce(t *testing.T) {
	p := newFakePlatform()
	calls := 0
	p.add("./counter-module.so", map[string]any{
		"InitCounterModuleNS": NamespaceInit(func(Host, string) error { calls++; return nil }),
	})
	l := newTestLoader(t, p, newTestHost())

	ctx := context.Background()
	if err := l.Load(ctx, "counter", ""); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := l.Load(ctx, "counter-module.so", ""); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if calls != 1 {
		t.Fatalf("initializer called %d times, want 1", calls)
	}
	if got := l.Modules(); !slices.Equal(got, []string{"counter"}) {
		t.Fatalf("modules = %v", got)
	}
}

func TestShutdownReverseOrder(t *testing.T) {
	p := newFakePlatform()
	var order []string
	for _, name := range []string{"a", "b"} {
		p.add("./"+name+"-module.so", map[string]any{
			"Init" + strings.ToUpper(name) + "Module": LegacyInit(func(Host) error { return nil }),
			"Deinit" + strings.ToUpper(name) + "Module": Deinit(func() {
				order = append(order, name)
			}),
		})
	}
	l := newTestLoader(t, p, newTestHost())

	ctx := context.Background()
	for _, name := range []string{"a", "b"} {
		if err := l.Load(ctx, name, ""); err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
	}
	if got := l.Modules(); !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("modules = %v, want newest first", got)
	}
	if err := l.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !slices.Equal(order, []string{"b", "a"}) {
		t.Fatalf("deinit order = %v, want [b a]", order)
	}
	if len(l.Modules()) != 0 {
		t.Fatalf("modules left after shutdown: %v", l.Modules())
	}
	for _, name := range []string{"a", "b"} {
		if c := p.libs["./"+name+"-module.so"].closed; c != 1 {
			t.Fatalf("%s closed %d times", name, c)
		}
	}
}

func TestOpenRetriesWithDotSlash(t *testing.T) {
	p := newFakePlatform()
	p.errs["m-module.so"] = errors.New("first failure")
	p.add("./m-module.so", map[string]any{
		"InitMModule": LegacyInit(func(Host) error { return nil }),
	})
	l := newTestLoader(t, p, newTestHost())

	if err := l.Load(context.Background(), "m", ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !slices.Equal(p.opened, []string{"m-module.so", "./m-module.so"}) {
		t.Fatalf("opened = %v", p.opened)
	}
}

func TestOpenFailureKeepsFirstDiagnostic(t *testing.T) {
	p := newFakePlatform()
	p.errs["m-module.so"] = errors.New("first failure")
	p.errs["./m-module.so"] = errors.New("second failure")
	l := newTestLoader(t, p, newTestHost())

	err := l.Load(context.Background(), "m", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "first failure") || strings.Contains(err.Error(), "second failure") {
		t.Fatalf("error must carry the first diagnostic: %v", err)
	}
}

func TestOpenFailureWithoutDiagnostic(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "quiet-module.so")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	p := newFakePlatform()
	p.errs[file] = errors.New("")
	l := newTestLoader(t, p, newTestHost())
	l.SetSearchPath(dir)

	err := l.Load(context.Background(), "quiet", "")
	if !errors.Is(err, ErrLink) {
		t.Fatalf("expected ErrLink for a resolved file, got %v", err)
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Detail != "UNKNOWN" || le.File != file {
		t.Fatalf("unexpected error detail: %#v", err)
	}
	if len(p.opened) != 1 {
		t.Fatalf("path with a directory must not be retried: %v", p.opened)
	}
}

func TestResolutionOrder(t *testing.T) {
	configured, env, install := t.TempDir(), t.TempDir(), t.TempDir()
	for _, dir := range []string{env, install} {
		if err := os.WriteFile(filepath.Join(dir, "r-module.so"), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	saved := InstallDir
	InstallDir = install
	t.Cleanup(func() { InstallDir = saved })

	p := newFakePlatform()
	l := New(newTestHost(), WithPlatform(p))
	l.SetSearchPath(configured)
	t.Setenv(EnvModulePath, env)

	res := l.resolve(LibraryFile("r"))
	if !res.found || res.path != filepath.Join(env, "r-module.so") {
		t.Fatalf("resolved %+v, want env dir", res)
	}
	if !slices.Equal(res.searched, []string{configured, env}) {
		t.Fatalf("searched = %v", res.searched)
	}

	t.Setenv(EnvModulePath, "")
	res = l.resolve(LibraryFile("r"))
	if res.path != filepath.Join(install, "r-module.so") {
		t.Fatalf("resolved %s, want install dir", res.path)
	}

	res = l.resolve(LibraryFile("absent"))
	if res.found || res.path != "absent-module.so" {
		t.Fatalf("unresolved module must fall back to the bare name: %+v", res)
	}
}

func TestSearchPathDefaults(t *testing.T) {
	saved := InstallDir
	InstallDir = "/opt/kestrel"
	t.Cleanup(func() { InstallDir = saved })

	l := New(newTestHost(), WithPlatform(newFakePlatform()))
	t.Setenv(EnvModulePath, "")
	if got := l.SearchPath(); got != "/opt/kestrel" {
		t.Fatalf("SearchPath = %q, want install dir", got)
	}
	t.Setenv(EnvModulePath, "/env/mods")
	if got := l.SearchPath(); got != "/env/mods" {
		t.Fatalf("SearchPath = %q, want env", got)
	}
	l.SetSearchPath("/cfg")
	if got := l.SearchPath(); got != "/cfg" {
		t.Fatalf("SearchPath = %q, want configured", got)
	}
}

func TestMissingInitializerClosesLibrary(t *testing.T) {
	p := newFakePlatform()
	lib := p.add("./empty-module.so", map[string]any{})
	l := newTestLoader(t, p, newTestHost())

	err := l.Load(context.Background(), "empty", "")
	if !errors.Is(err, ErrMissingSymbol) {
		t.Fatalf("expected ErrMissingSymbol, got %v", err)
	}
	if lib.closed != 1 {
		t.Fatalf("library closed %d times, want 1", lib.closed)
	}
	if l.IsLoaded("empty") {
		t.Fatalf("failed module must not be recorded")
	}
}

func TestMistypedEntryPointsFailBeforeInit(t *testing.T) {
	tests := []struct {
		name    string
		symbols func(initFn NamespaceInit) map[string]any
		symbol  string
	}{
		{
			name: "deinit",
			symbols: func(initFn NamespaceInit) map[string]any {
				return map[string]any{"InitBadModuleNS": initFn, "DeinitBadModule": 7}
			},
			symbol: "DeinitBadModule",
		},
		{
			name: "initializer",
			symbols: func(NamespaceInit) map[string]any {
				return map[string]any{"InitBadModuleNS": func() {}}
			},
			symbol: "InitBadModuleNS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlatform()
			calls := 0
			initFn := NamespaceInit(func(h Host, ns string) error {
				calls++
				space, err := h.Namespaces().Create(ns)
				if err != nil {
					return err
				}
				_, err = space.AddConstant("K", value.Int(1))
				return err
			})
			lib := p.add("./bad-module.so", tt.symbols(initFn))
			h := newTestHost()
			l := newTestLoader(t, p, h)

			for range 2 {
				err := l.Load(context.Background(), "bad", "Ext")
				if !errors.Is(err, ErrMissingSymbol) {
					t.Fatalf("expected ErrMissingSymbol, got %v", err)
				}
				if !strings.Contains(err.Error(), tt.symbol) {
					t.Fatalf("error %q does not name %s", err, tt.symbol)
				}
			}
			if calls != 0 {
				t.Fatalf("initializer ran %d times", calls)
			}
			if lib.closed != 2 || l.IsLoaded("bad") {
				t.Fatalf("closed=%d loaded=%v", lib.closed, l.IsLoaded("bad"))
			}
			if _, ok := h.reg.Find("Ext"); ok {
				t.Fatalf("failed load left namespace Ext behind")
			}
		})
	}
}

func TestMissingDeinitIsAccepted(t *testing.T) {
	p := newFakePlatform()
	lib := p.add("./plain-module.so", map[string]any{
		"InitPlainModuleNS": NamespaceInit(func(Host, string) error { return nil }),
	})
	l := newTestLoader(t, p, newTestHost())

	if err := l.Load(context.Background(), "plain", ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	m, _ := l.Module("plain")
	if m.HasDeinit() {
		t.Fatalf("module without a finalizer reports one")
	}
	if err := l.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if lib.closed != 1 {
		t.Fatalf("library closed %d times, want 1", lib.closed)
	}
}

func TestLegacyModuleOnlyInGlobal(t *testing.T) {
	p := newFakePlatform()
	calls := 0
	lib := p.add("./old-module.so", map[string]any{
		"InitOldModule": LegacyInit(func(Host) error { calls++; return nil }),
	})
	l := newTestLoader(t, p, newTestHost())

	err := l.Load(context.Background(), "old", "Ext")
	if !errors.Is(err, ErrNamespaceUnaware) {
		t.Fatalf("expected ErrNamespaceUnaware, got %v", err)
	}
	if calls != 0 || lib.closed != 1 {
		t.Fatalf("calls=%d closed=%d, want 0 and 1", calls, lib.closed)
	}

	if err := l.Load(context.Background(), "old", "Global"); err != nil {
		t.Fatalf("load into Global: %v", err)
	}
	if calls != 1 {
		t.Fatalf("legacy initializer calls = %d, want 1", calls)
	}
}

func TestInitFailureLeavesNoHandle(t *testing.T) {
	p := newFakePlatform()
	boom := errors.New("boom")
	lib := p.add("./bad-module.so", map[string]any{
		"InitBadModuleNS": NamespaceInit(func(Host, string) error { return boom }),
		"DeinitBadModule": Deinit(func() { t.Fatalf("deinit of a failed module must not run") }),
	})
	l := newTestLoader(t, p, newTestHost())

	err := l.Load(context.Background(), "bad", "")
	if !errors.Is(err, ErrInitFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrInitFailed wrapping boom, got %v", err)
	}
	if lib.closed != 1 || l.IsLoaded("bad") {
		t.Fatalf("closed=%d loaded=%v", lib.closed, l.IsLoaded("bad"))
	}
	if err := l.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitPanicIsReported(t *testing.T) {
	p := newFakePlatform()
	p.add("./wild-module.so", map[string]any{
		"InitWildModuleNS": NamespaceInit(func(Host, string) error { panic("wild") }),
	})
	l := newTestLoader(t, p, newTestHost())

	err := l.Load(context.Background(), "wild", "")
	if !errors.Is(err, ErrInitFailed) || !strings.Contains(err.Error(), "wild") {
		t.Fatalf("expected ErrInitFailed mentioning the panic, got %v", err)
	}
}

func TestAPIVersionMismatch(t *testing.T) {
	p := newFakePlatform()
	version := 20000
	lib := p.add("./future-module.so", map[string]any{
		"InitFutureModuleNS":     NamespaceInit(func(Host, string) error { return nil }),
		"FutureModuleAPIVersion": &version,
	})
	l := newTestLoader(t, p, newTestHost())

	if err := l.Load(context.Background(), "future", ""); !errors.Is(err, ErrAPIVersion) {
		t.Fatalf("expected ErrAPIVersion, got %v", err)
	}
	if lib.closed != 1 {
		t.Fatalf("library closed %d times, want 1", lib.closed)
	}

	version = APIVersion + 3
	if err := l.Load(context.Background(), "future", ""); err != nil {
		t.Fatalf("same major must load: %v", err)
	}
}

func TestNamespacedInitRegistersSymbols(t *testing.T) {
	p := newFakePlatform()
	p.add("./ext-module.so", map[string]any{
		"InitExtModuleNS": NamespaceInit(func(h Host, ns string) error {
			space, err := h.Namespaces().Create(ns)
			if err != nil {
				return err
			}
			_, err = space.AddFunction("f", func([]value.Value) (value.Value, error) {
				return value.Int(1), nil
			})
			return err
		}),
	})
	h := newTestHost()
	l := newTestLoader(t, p, h)

	if err := l.Load(context.Background(), "ext", "Ext"); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := h.reg.Apropos("Ext", "f", namespace.MaskOf(namespace.KindIntrinsicFunction))
	if err != nil {
		t.Fatalf("apropos: %v", err)
	}
	if !slices.Equal(got, []string{"f"}) {
		t.Fatalf("apropos = %v, want [f]", got)
	}
	m, _ := l.Module("ext")
	if m.Namespace() != "Ext" || m.Entry() != "InitExtModuleNS" {
		t.Fatalf("module = %+v", m)
	}

	if err := l.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, ok := h.reg.Find("Ext"); !ok {
		t.Fatalf("namespaces must outlive their module")
	}
}

func TestProgressEvents(t *testing.T) {
	p := newFakePlatform()
	p.add("./m-module.so", map[string]any{
		"InitMModule": LegacyInit(func(Host) error { return nil }),
	})
	ch := make(chan Event, 16)
	l := New(newTestHost(), WithPlatform(p), WithProgress(ChannelSink{Ch: ch}), WithSearchPath(t.TempDir()))

	if err := l.Load(context.Background(), "m", ""); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := l.Load(context.Background(), "m", ""); err != nil {
		t.Fatalf("reload: %v", err)
	}
	close(ch)
	var stages []string
	for ev := range ch {
		stages = append(stages, string(ev.Stage)+"/"+string(ev.Status))
	}
	want := []string{"resolve/working", "open/working", "init/working", "done/done", "done/cached"}
	if !slices.Equal(stages, want) {
		t.Fatalf("events = %v, want %v", stages, want)
	}
}

func TestNamesAndEntryPoints(t *testing.T) {
	tests := []struct {
		in, file, canonical, initNS string
	}{
		{"counter", "counter-module.so", "counter", "InitCounterModuleNS"},
		{"my-stats", "my-stats-module.so", "my-stats", "InitMyStatsModuleNS"},
		{"rand.so", "rand.so", "rand", "InitRandModuleNS"},
		{"/opt/m/pcre-module.so", "/opt/m/pcre-module.so", "pcre", "InitPcreModuleNS"},
	}
	for _, tt := range tests {
		if got := LibraryFile(tt.in); got != tt.file {
			t.Errorf("LibraryFile(%q) = %q, want %q", tt.in, got, tt.file)
		}
		if got := CanonicalName(tt.in); got != tt.canonical {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.canonical)
		}
		if got := EntryPointsFor(tt.in).InitNS; got != tt.initNS {
			t.Errorf("EntryPointsFor(%q).InitNS = %q, want %q", tt.in, got, tt.initNS)
		}
	}
}

func TestStubPlatformError(t *testing.T) {
	p := PlatformFunc(func(string) (Library, error) { return nil, errors.New("nope") })
	l := newTestLoader(t, p, newTestHost())
	err := l.Load(context.Background(), "x", "")
	var le *LoadError
	if !errors.As(err, &le) || le.Detail != "nope" {
		t.Fatalf("unexpected error: %v", err)
	}
}
