// Package intrinsic exposes native Go structures to script code as objects
// with named, typed fields.
//
// A field table describes one Go struct type: for each field, its script
// name, its byte offset (informational), its class tag and whether script
// code may write it. Access goes through typed accessors (a selector closure
// or a reflect field index), never through pointer arithmetic.
//
// An Instance binds a script-visible name to an indirect reference: the
// address of a variable holding *S. The variable may still be nil when the
// instance is registered; field access then fails with ErrUninitialized while
// observing the whole instance yields null.
//
// Field names are interned through the runtime's names.Interner when a table
// is registered, so lookups compare handles.
package intrinsic
