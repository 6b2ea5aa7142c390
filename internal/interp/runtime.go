// Package interp assembles the namespace registry, the struct bridge and the
// extension loader into one runtime and exposes them to script code through
// intrinsic functions in the Global namespace.
package interp

import (
	"context"
	"fmt"

	"kestrel/internal/class"
	"kestrel/internal/intrinsic"
	"kestrel/internal/loader"
	"kestrel/internal/names"
	"kestrel/internal/namespace"
	"kestrel/internal/observ"
	"kestrel/internal/trace"
)

// Runtime owns all process-wide registries of one interpreter. It is meant
// to be driven from a single goroutine.
type Runtime struct {
	names   *names.Interner
	classes *class.Table
	spaces  *namespace.Registry
	structs *intrinsic.Bridge
	loader  *loader.Loader
	tracer  trace.Tracer
	timer   *observ.Timer

	// ctx is the context of the Call in progress, used by intrinsics that
	// reach the loader.
	ctx context.Context
}

type options struct {
	platform   loader.Platform
	tracer     trace.Tracer
	progress   loader.ProgressSink
	searchPath string
	hasPath    bool
	timer      *observ.Timer
}

// Option configures a Runtime.
type Option func(*options)

// WithPlatform replaces the dynamic library loader.
func WithPlatform(p loader.Platform) Option {
	return func(o *options) { o.platform = p }
}

// WithTracer sets the tracer for loader and registration events.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithSearchPath configures the module search path.
func WithSearchPath(path string) Option {
	return func(o *options) {
		o.searchPath = path
		o.hasPath = true
	}
}

// WithProgress reports module load stages to sink.
func WithProgress(sink loader.ProgressSink) Option {
	return func(o *options) { o.progress = sink }
}

// WithTimer records one phase per import and shutdown.
func WithTimer(t *observ.Timer) Option {
	return func(o *options) { o.timer = t }
}

// New creates a runtime with the script intrinsics registered in Global.
func New(opts ...Option) (*Runtime, error) {
	o := options{tracer: trace.Nop}
	for _, opt := range opts {
		opt(&o)
	}

	in := names.NewInterner()
	classes := class.NewTable()
	rt := &Runtime{
		names:   in,
		classes: classes,
		spaces:  namespace.NewRegistry(in),
		structs: intrinsic.NewBridge(in, classes),
		tracer:  o.tracer,
		timer:   o.timer,
		ctx:     context.Background(),
	}

	lopts := []loader.Option{loader.WithTracer(o.tracer)}
	if o.platform != nil {
		lopts = append(lopts, loader.WithPlatform(o.platform))
	}
	if o.progress != nil {
		lopts = append(lopts, loader.WithProgress(o.progress))
	}
	if o.hasPath {
		lopts = append(lopts, loader.WithSearchPath(o.searchPath))
	}
	rt.loader = loader.New(rt, lopts...)

	if err := rt.registerIntrinsics(); err != nil {
		return nil, fmt.Errorf("register intrinsics: %w", err)
	}
	return rt, nil
}

// Namespaces returns the namespace registry.
func (rt *Runtime) Namespaces() *namespace.Registry { return rt.spaces }

// Structs returns the intrinsic struct bridge.
func (rt *Runtime) Structs() *intrinsic.Bridge { return rt.structs }

// Classes returns the type class table.
func (rt *Runtime) Classes() *class.Table { return rt.classes }

// Names returns the shared interner.
func (rt *Runtime) Names() *names.Interner { return rt.names }

// Loader returns the extension loader.
func (rt *Runtime) Loader() *loader.Loader { return rt.loader }

// Timer returns the phase timer, or nil when timing is off.
func (rt *Runtime) Timer() *observ.Timer { return rt.timer }

// Import loads module into namespace ns ("" for Global).
func (rt *Runtime) Import(ctx context.Context, module, ns string) error {
	done := rt.timer.Track("import:" + loader.CanonicalName(module))
	err := rt.loader.Load(ctx, module, ns)
	note := ns
	if err != nil {
		note = "failed"
	}
	done(note)
	return err
}

// RegisterStruct exposes *ref as an intrinsic struct named name in Global.
func RegisterStruct[S any](rt *Runtime, name string, ref **S, t *intrinsic.Table) (*intrinsic.Instance, error) {
	inst, err := intrinsic.Register(rt.structs, rt.spaces.Global(), name, ref, t)
	if err != nil {
		return nil, err
	}
	trace.Point(rt.tracer, trace.ScopeSymbol, "struct:"+name, t.Type)
	return inst, nil
}

// Close unloads every module, most recently loaded first. Namespaces and
// symbols stay registered.
func (rt *Runtime) Close(ctx context.Context) error {
	done := rt.timer.Track("shutdown")
	err := rt.loader.Shutdown(ctx)
	done("")
	return err
}
