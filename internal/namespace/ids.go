package namespace

// ID identifies a namespace inside its registry.
type ID uint32

// NoID marks the absence of a namespace.
const NoID ID = 0

// IsValid reports whether the ID refers to an allocated namespace.
func (id ID) IsValid() bool { return id != NoID }
