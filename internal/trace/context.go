package trace

import "context"

type ctxKey struct{}

type binding struct {
	tracer Tracer
	span   *Span
}

func bindingOf(ctx context.Context) binding {
	if ctx != nil {
		if b, ok := ctx.Value(ctxKey{}).(binding); ok {
			return b
		}
	}
	return binding{tracer: Nop}
}

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return bindingOf(ctx).tracer
}

// WithTracer returns a context carrying t. The current span is dropped.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, binding{tracer: t})
}

// SpanFrom returns the innermost span carried by ctx, or nil.
func SpanFrom(ctx context.Context) *Span {
	return bindingOf(ctx).span
}

// WithSpan returns a context whose current span is s.
func WithSpan(ctx context.Context, s *Span) context.Context {
	b := bindingOf(ctx)
	b.span = s
	return context.WithValue(ctx, ctxKey{}, b)
}

// Start opens a child of the context's current span on the context's tracer
// and returns a context in which the new span is current.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	b := bindingOf(ctx)
	s := Begin(b.tracer, scope, name, b.span)
	b.span = s
	return context.WithValue(ctx, ctxKey{}, b), s
}
