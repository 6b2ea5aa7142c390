package trace

import (
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

func nextSeq() uint64 { return seqCounter.Add(1) }

// Span is an open interval of work such as one module load. A span that is
// filtered out by the tracer level still hands its tracer to children, so a
// detail-level stage can sit under a phase-level request.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	track   uint64
	scope   Scope
	name    string
	started time.Time
	attrs   map[string]string
}

// Begin opens a span on t. parent may be nil for a root span; children share
// their root's track, which becomes one lane in Chrome output.
func Begin(t Tracer, scope Scope, name string, parent *Span) *Span {
	if t == nil {
		t = Nop
	}
	s := &Span{tracer: t, scope: scope, name: name}
	if parent != nil {
		s.parent = parent.id
		s.track = parent.track
	}
	if !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return s
	}
	s.id = spanCounter.Add(1)
	if s.track == 0 {
		s.track = s.id
	}
	s.started = time.Now()
	t.Emit(s.event(KindSpanBegin, s.name, "", s.started))
	return s
}

func (s *Span) recording() bool {
	return s != nil && s.id != 0
}

func (s *Span) event(kind Kind, name, detail string, at time.Time) *Event {
	return &Event{
		Time:     at,
		Seq:      nextSeq(),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Track:    s.track,
		Name:     name,
		Detail:   detail,
	}
}

// Child opens a span nested in s on the same tracer.
func (s *Span) Child(scope Scope, name string) *Span {
	if s == nil {
		return Begin(Nop, scope, name, nil)
	}
	return Begin(s.tracer, scope, name, s)
}

// Attr attaches a key/value pair reported with the end event.
func (s *Span) Attr(key, value string) *Span {
	if !s.recording() {
		return s
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string, 2)
	}
	s.attrs[key] = value
	return s
}

// Point emits an instant event inside s at scope.
func (s *Span) Point(scope Scope, name, detail string) {
	if s == nil || !s.tracer.Enabled() || !s.tracer.Level().ShouldEmit(scope) {
		return
	}
	ev := s.event(KindPoint, name, detail, time.Now())
	ev.Scope = scope
	ev.SpanID = 0
	ev.ParentID = s.id
	s.tracer.Emit(ev)
}

// End closes the span and returns its duration. Ending twice emits once.
func (s *Span) End(detail string) time.Duration {
	if !s.recording() || s.started.IsZero() {
		return 0
	}
	now := time.Now()
	ev := s.event(KindSpanEnd, s.name, detail, now)
	ev.Extra = s.attrs
	s.tracer.Emit(ev)
	dur := now.Sub(s.started)
	s.started = time.Time{}
	return dur
}

// ID returns the span ID, 0 when the span is not recorded.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}
