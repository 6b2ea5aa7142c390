package namespace

import (
	"fmt"

	"fortio.org/safecast"

	"kestrel/internal/names"
)

const (
	// GlobalName is the internal and public name of the default namespace.
	GlobalName = "Global"

	// QualifySeparator joins a namespace and a symbol name: "Ext->f".
	QualifySeparator = "->"

	// DefaultBuckets is the table size of ordinary namespaces.
	DefaultBuckets = 73
	// GlobalBuckets is the table size of the Global namespace.
	GlobalBuckets = 2909
)

// Registry owns all namespaces of an interpreter.
type Registry struct {
	names    *names.Interner
	spaces   []*Namespace  // arena; index 0 reserved for NoID
	internal map[string]ID // internal name -> namespace
	global   *Namespace
}

// NewRegistry creates a registry holding only the Global namespace. If in is
// nil a private interner is allocated.
func NewRegistry(in *names.Interner) *Registry {
	if in == nil {
		in = names.NewInterner()
	}
	r := &Registry{
		names:    in,
		spaces:   make([]*Namespace, 1, 16),
		internal: make(map[string]ID),
	}
	r.global = r.create(GlobalName, GlobalBuckets)
	r.global.public = GlobalName
	return r
}

// Names exposes the interner shared by every namespace table.
func (r *Registry) Names() *names.Interner { return r.names }

// Global returns the default namespace.
func (r *Registry) Global() *Namespace { return r.global }

// Len counts namespaces, Global included.
func (r *Registry) Len() int { return len(r.spaces) - 1 }

// Get returns the namespace created under the internal name, creating it on
// first use. Repeated calls return the same *Namespace.
func (r *Registry) Get(internal string) *Namespace {
	if id, ok := r.internal[internal]; ok {
		return r.spaces[id]
	}
	return r.create(internal, DefaultBuckets)
}

func (r *Registry) create(internal string, buckets int) *Namespace {
	n, err := safecast.Conv[uint32](len(r.spaces))
	if err != nil {
		panic(fmt.Errorf("namespace arena overflow: %w", err))
	}
	ns := &Namespace{
		id:       ID(n),
		internal: internal,
		buckets:  make([][]*Symbol, buckets),
		names:    r.names,
	}
	r.spaces = append(r.spaces, ns)
	r.internal[internal] = ns.id
	return ns
}

// ByID returns the namespace with the given identity.
func (r *Registry) ByID(id ID) (*Namespace, bool) {
	if !id.IsValid() || int(id) >= len(r.spaces) {
		return nil, false
	}
	return r.spaces[id], true
}

// SetPublicName gives ns its permanent public name.
//
// It fails with ErrNamespaceExists when another namespace owns name and with
// ErrNamespaceRedefined when ns already has a different public name.
// Assigning the name ns already has is a no-op.
func (r *Registry) SetPublicName(ns *Namespace, name string) error {
	if name == "" {
		return newError(CodeInvalidName, ns.internal, name, nil)
	}
	if owner, ok := r.Find(name); ok && owner != ns {
		return newError(CodeNamespaceExists, "", name, nil)
	}
	if ns.public == name {
		return nil
	}
	if ns.public != "" {
		return newError(CodeNamespaceRedefined, ns.public, name, nil)
	}
	ns.public = name
	return nil
}

// Find returns the namespace whose public name is name.
func (r *Registry) Find(name string) (*Namespace, bool) {
	for _, ns := range r.spaces[1:] {
		if ns.public == name && name != "" {
			return ns, true
		}
	}
	return nil, false
}

// Create returns the namespace publicly named name, creating and naming it if
// needed. This is what a namespace-aware module initializer calls.
func (r *Registry) Create(name string) (*Namespace, error) {
	if name == "" {
		return nil, newError(CodeInvalidName, "", name, nil)
	}
	if ns, ok := r.Find(name); ok {
		return ns, nil
	}
	ns := r.Get(name)
	if err := r.SetPublicName(ns, name); err != nil {
		return nil, err
	}
	return ns, nil
}

// PublicNames lists public namespace names in creation order.
func (r *Registry) PublicNames() []string {
	out := make([]string, 0, len(r.spaces)-1)
	for _, ns := range r.spaces[1:] {
		if ns.public != "" {
			out = append(out, ns.public)
		}
	}
	return out
}

// Each visits namespaces in creation order.
func (r *Registry) Each(fn func(*Namespace) bool) {
	for _, ns := range r.spaces[1:] {
		if !fn(ns) {
			return
		}
	}
}

// Apropos runs Namespace.Apropos on the namespace publicly named ns.
func (r *Registry) Apropos(ns, pattern string, mask Mask) ([]string, error) {
	target, ok := r.Find(ns)
	if !ok {
		return nil, newError(CodeUnknownNamespace, ns, "", nil)
	}
	return target.Apropos(pattern, mask)
}
