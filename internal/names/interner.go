// Package names interns identifier text into stable handles.
//
// Every namespace symbol and every intrinsic struct field name goes through one
// Interner owned by the runtime. Two names are the same name exactly when
// their IDs are equal, so lookups in hot paths compare integers, not bytes.
//
// The Interner is not safe for concurrent mutation. The interpreter drives
// it from a single thread.
package names

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// ID is an interned name handle.
type ID uint32

// NoID marks the absence of a name. It maps to the empty string.
const NoID ID = 0

// IsValid reports whether the handle refers to an interned, non-empty name.
func (id ID) IsValid() bool { return id != NoID }

// Interner maps name text to IDs and back.
type Interner struct {
	byID  []string      // index -> text (byID[0] = "" for NoID)
	index map[string]ID // text -> index
}

// NewInterner returns an interner holding only the empty name.
func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]ID{"": NoID},
	}
}

// Intern returns the canonical handle for s, allocating it on first use.
// Text is NFC-normalized first so that canonically equivalent spellings of
// a UTF-8 identifier share one handle.
func (i *Interner) Intern(s string) ID {
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	if id, ok := i.index[s]; ok {
		return id
	}

	// Own the bytes so the caller's buffer can be reused.
	cpy := string([]byte(s))
	n, err := safecast.Conv[uint32](len(i.byID))
	if err != nil {
		panic(fmt.Errorf("name interner overflow: %w", err))
	}
	id := ID(n)
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// Find returns the handle for s without interning it.
func (i *Interner) Find(s string) (ID, bool) {
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	id, ok := i.index[s]
	return id, ok
}

// Lookup returns the text for id.
func (i *Interner) Lookup(id ID) (string, bool) {
	if !i.Has(id) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup is Lookup that panics on an unknown handle.
func (i *Interner) MustLookup(id ID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("names: invalid ID %d", id))
	}
	return s
}

// Has reports whether id was produced by this interner.
func (i *Interner) Has(id ID) bool {
	return int(id) < len(i.byID)
}

// Len counts interned names, NoID included, so it is never below 1.
func (i *Interner) Len() int {
	return len(i.byID)
}

// Snapshot returns a copy of all interned names in ID order.
func (i *Interner) Snapshot() []string {
	return slices.Clone(i.byID)
}
