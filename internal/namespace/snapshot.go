package namespace

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotSchemaVersion is bumped whenever Snapshot changes shape.
const snapshotSchemaVersion uint16 = 1

// Snapshot is a serialisable view of a registry for tooling.
type Snapshot struct {
	Schema     uint16              `msgpack:"schema" json:"schema"`
	Namespaces []NamespaceSnapshot `msgpack:"namespaces" json:"namespaces"`
}

// NamespaceSnapshot describes one namespace.
type NamespaceSnapshot struct {
	ID       uint32           `msgpack:"id" json:"id"`
	Internal string           `msgpack:"internal" json:"internal"`
	Public   string           `msgpack:"public,omitempty" json:"public,omitempty"`
	Buckets  int              `msgpack:"buckets" json:"buckets"`
	Symbols  []SymbolSnapshot `msgpack:"symbols" json:"symbols"`
}

// SymbolSnapshot describes one symbol record.
type SymbolSnapshot struct {
	Name string `msgpack:"name" json:"name"`
	Kind string `msgpack:"kind" json:"kind"`
}

// Snapshot captures every namespace; symbols are sorted by name.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{
		Schema:     snapshotSchemaVersion,
		Namespaces: make([]NamespaceSnapshot, 0, r.Len()),
	}
	r.Each(func(ns *Namespace) bool {
		syms := make([]SymbolSnapshot, 0, ns.Len())
		ns.Each(func(sym *Symbol) bool {
			syms = append(syms, SymbolSnapshot{Name: sym.Text(), Kind: sym.Kind.String()})
			return true
		})
		slices.SortFunc(syms, func(a, b SymbolSnapshot) int {
			return cmp.Compare(a.Name, b.Name)
		})
		snap.Namespaces = append(snap.Namespaces, NamespaceSnapshot{
			ID:       uint32(ns.id),
			Internal: ns.internal,
			Public:   ns.public,
			Buckets:  ns.Buckets(),
			Symbols:  syms,
		})
		return true
	})
	return snap
}

// EncodeMsgpack writes the snapshot in msgpack form.
func (s Snapshot) EncodeMsgpack(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(&s)
}

// EncodeJSON writes the snapshot as indented JSON.
func (s Snapshot) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&s)
}

// DecodeSnapshot reads a msgpack snapshot and checks its schema.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, err
	}
	if s.Schema != snapshotSchemaVersion {
		return Snapshot{}, fmt.Errorf("snapshot schema %d, want %d", s.Schema, snapshotSchemaVersion)
	}
	return s, nil
}
