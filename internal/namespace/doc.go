// Package namespace implements the interpreter's namespace registry.
//
// # Data model
//
// A Registry owns every Namespace of the process. A namespace has:
//
//   - an internal identity (ID, plus the internal name it was created under);
//   - an optional public name, assigned at most once and unique across the
//     registry, used for qualified lookup ("Ext->f") from script code;
//   - a symbol table with a fixed number of buckets chosen at creation.
//
// Namespaces are never destroyed. Extension modules may be unloaded while
// the symbols they registered remain reachable.
//
// # Concurrency
//
// Nothing here locks. The registry, the namespace tables and the shared
// interner are mutated only by the interpreter thread, and the two-pass
// Apropos scan relies on that.
package namespace
