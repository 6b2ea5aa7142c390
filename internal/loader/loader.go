package loader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"kestrel/internal/class"
	"kestrel/internal/intrinsic"
	"kestrel/internal/namespace"
	"kestrel/internal/trace"
)

// Host is what a module initializer receives: the runtime's registries.
type Host interface {
	Namespaces() *namespace.Registry
	Structs() *intrinsic.Bridge
	Classes() *class.Table
}

// Loader loads extension modules and unloads them in reverse order.
// It is not safe for concurrent use.
type Loader struct {
	host       Host
	platform   Platform
	tracer     trace.Tracer
	progress   ProgressSink
	searchPath string
	configured bool
	modules    []*Module // newest first
}

// Option configures a Loader.
type Option func(*Loader)

// WithPlatform replaces the platform library loader.
func WithPlatform(p Platform) Option {
	return func(l *Loader) { l.platform = p }
}

// WithTracer sets the tracer used when the context carries none.
func WithTracer(t trace.Tracer) Option {
	return func(l *Loader) { l.tracer = t }
}

// WithProgress reports load stages to sink.
func WithProgress(sink ProgressSink) Option {
	return func(l *Loader) { l.progress = sink }
}

// WithSearchPath configures the search path up front.
func WithSearchPath(path string) Option {
	return func(l *Loader) { l.SetSearchPath(path) }
}

// New creates a loader whose initializers receive host.
func New(host Host, opts ...Option) *Loader {
	l := &Loader{
		host:     host,
		platform: DefaultPlatform(),
		tracer:   trace.Nop,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetSearchPath configures the module search path. Entries are separated by
// the OS list separator.
func (l *Loader) SetSearchPath(path string) {
	l.searchPath = path
	l.configured = true
}

// SearchPath returns the configured path, else the environment path, else
// InstallDir.
func (l *Loader) SearchPath() string {
	if l.configured {
		return l.searchPath
	}
	if env := getenv(EnvModulePath); env != "" {
		return env
	}
	return InstallDir
}

// Modules lists loaded module names, most recently loaded first.
func (l *Loader) Modules() []string {
	out := make([]string, len(l.modules))
	for i, m := range l.modules {
		out[i] = m.name
	}
	return out
}

// Module returns the loaded module with the given name.
func (l *Loader) Module(name string) (*Module, bool) {
	id := CanonicalName(name)
	for _, m := range l.modules {
		if m.name == id {
			return m, true
		}
	}
	return nil, false
}

// IsLoaded reports whether a module with name's canonical form is loaded.
func (l *Loader) IsLoaded(name string) bool {
	_, ok := l.Module(name)
	return ok
}

func (l *Loader) tracerFor(ctx context.Context) trace.Tracer {
	if t := trace.FromContext(ctx); t != trace.Nop {
		return t
	}
	return l.tracer
}

func (l *Loader) report(module string, stage Stage, status Status, err error, started time.Time) {
	if l.progress == nil {
		return
	}
	l.progress.OnEvent(Event{
		Module:  module,
		Stage:   stage,
		Status:  status,
		Err:     err,
		Elapsed: time.Since(started),
	})
}

// Load loads module into the namespace ns ("" means Global). Loading a module
// that is already loaded succeeds without running its initializer again.
func (l *Loader) Load(ctx context.Context, module, ns string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ns == "" {
		ns = namespace.GlobalName
	}
	id := CanonicalName(module)
	started := time.Now()
	tr := l.tracerFor(ctx)
	span := trace.Begin(tr, trace.ScopeLoader, "load:"+id, trace.SpanFrom(ctx)).
		Attr("namespace", ns)
	defer func() {
		if err != nil {
			span.End(err.Error())
			l.report(id, StageDone, StatusError, err, started)
			return
		}
		span.End("")
	}()

	if l.IsLoaded(id) {
		span.Point(trace.ScopeModule, "cached:"+id, "")
		l.report(id, StageDone, StatusCached, nil, started)
		return nil
	}

	file := LibraryFile(module)
	stage := span.Child(trace.ScopeModule, "resolve:"+id)
	l.report(id, StageResolve, StatusWorking, nil, started)
	res := l.resolve(file)
	for _, dir := range res.searched {
		stage.Point(trace.ScopeModule, "search", dir)
	}
	stage.End(res.path)

	stage = span.Child(trace.ScopeModule, "open:"+id)
	l.report(id, StageOpen, StatusWorking, nil, started)
	lib, err := l.open(stage, module, res)
	stage.End(res.path)
	if err != nil {
		return err
	}

	stage = span.Child(trace.ScopeModule, "init:"+id)
	l.report(id, StageInit, StatusWorking, nil, started)
	m, err := l.initialize(lib, module, id, res.path, ns)
	stage.End("")
	if err != nil {
		return err
	}

	l.modules = slices.Insert(l.modules, 0, m)
	l.report(id, StageDone, StatusDone, nil, started)
	return nil
}

// open asks the platform for the library, retrying once with "./" when the
// file name has no directory. The first failure is the one reported.
func (l *Loader) open(span *trace.Span, module string, res resolution) (Library, error) {
	lib, err := l.platform.Open(res.path)
	if err == nil {
		return lib, nil
	}
	if !hasSeparator(res.path) {
		span.Point(trace.ScopeModule, "retry", "./"+res.path)
		if retry, rerr := l.platform.Open("./" + res.path); rerr == nil {
			return retry, nil
		}
	}
	code := CodeLink
	if !res.found {
		code = CodeNotFound
	}
	return nil, &LoadError{
		Code:     code,
		Module:   module,
		File:     res.path,
		Searched: res.searched,
		Detail:   diagnostic(err),
		Err:      err,
	}
}

// initialize checks the entry points, then runs the chosen initializer. On
// any failure lib is closed and no Module is returned.
func (l *Loader) initialize(lib Library, module, id, file, ns string) (*Module, error) {
	fail := func(code Code, detail string, cause error) (*Module, error) {
		if cerr := lib.Close(); cerr != nil {
			cause = errors.Join(cause, cerr)
		}
		return nil, &LoadError{Code: code, Module: module, File: file, Namespace: ns, Detail: detail, Err: cause}
	}

	names := EntryPointsFor(id)
	if err := checkAPIVersion(lib, names.APIVersion); err != nil {
		return fail(CodeAPIVersion, err.Error(), err)
	}

	entry, err := l.pickInitializer(lib, names, ns)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return fail(le.Code, le.Detail, nil)
		}
		return fail(CodeMissingSymbol, err.Error(), err)
	}

	deinit, _, err := lookupFunc[Deinit](lib, names.Deinit)
	if err != nil {
		return fail(CodeMissingSymbol, err.Error(), err)
	}

	// Every symbol check happens above: past this point the module has
	// touched the host and only an initializer failure can abort.
	if err := callInit(entry.call, l.host); err != nil {
		return fail(CodeInitFailed, err.Error(), err)
	}
	return &Module{
		name:      id,
		file:      file,
		namespace: ns,
		entry:     entry.symbol,
		lib:       lib,
		deinit:    deinit,
		loadedAt:  time.Now(),
	}, nil
}

// pickInitializer prefers the namespace-aware entry point. The legacy one
// is only acceptable for the Global namespace.
func (l *Loader) pickInitializer(lib Library, names EntryPoints, ns string) (initializer, error) {
	nsInit, ok, err := lookupFunc[NamespaceInit](lib, names.InitNS)
	if err != nil {
		return initializer{}, err
	}
	if ok {
		return initializer{
			symbol: names.InitNS,
			call:   func(h Host) error { return nsInit(h, ns) },
		}, nil
	}
	legacy, ok, err := lookupFunc[LegacyInit](lib, names.Init)
	if err != nil {
		return initializer{}, err
	}
	if ns != namespace.GlobalName {
		return initializer{}, &LoadError{Code: CodeNamespaceUnaware, Detail: names.InitNS + " not found"}
	}
	if !ok {
		return initializer{}, &LoadError{
			Code:   CodeMissingSymbol,
			Detail: fmt.Sprintf("neither %s nor %s found", names.InitNS, names.Init),
		}
	}
	return initializer{symbol: names.Init, call: legacy}, nil
}

func callInit(fn func(Host) error, h Host) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn(h)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

// Shutdown deinitializes and closes every module, most recently loaded
// first, and empties the module list. Namespaces and symbols registered by
// the modules are left in place.
func (l *Loader) Shutdown(ctx context.Context) error {
	span := trace.Begin(l.tracerFor(ctx), trace.ScopeLoader, "shutdown", trace.SpanFrom(ctx))
	var errs []error
	for len(l.modules) > 0 {
		m := l.modules[0]
		stage := span.Child(trace.ScopeModule, "unload:"+m.name)
		if err := m.release(); err != nil {
			errs = append(errs, err)
			stage.End(err.Error())
		} else {
			stage.End("")
		}
		l.modules = l.modules[1:]
	}
	l.modules = nil
	err := errors.Join(errs...)
	if err != nil {
		span.End(err.Error())
	} else {
		span.End("")
	}
	return err
}
