package kawa

// StoreKind discriminates the ownership of the bytes behind a Store.
type StoreKind uint8

const (
	// StoreEmpty is the zero-length sentinel.
	StoreEmpty StoreKind = iota
	// StoreSlice references a range of the Buffer's current address space.
	StoreSlice
	// StoreDetached is a Slice captured before a relocation and not yet
	// rebased; reading it fails until PushLeft turns it back into a Slice.
	StoreDetached
	// StoreStatic points at process-lifetime read-only bytes (wire-format
	// literals such as " ", ": ", "\r\n").
	StoreStatic
	// StoreOwned holds a caller-supplied dynamic value, uniquely owned by
	// its enclosing block.
	StoreOwned
	// StoreShared aliases a byte sequence that other stores may alias too;
	// Clone is O(1).
	StoreShared
)

// Store is a tagged handle over a byte range. Slice stores are
// buffer-relative offsets, never raw pointers: the Buffer may relocate
// (Shift), and offsets survive relocation through PushLeft where pointers
// would dangle.
//
// The zero value is the Empty store.
type Store struct {
	kind   StoreKind
	start  uint32 // Slice/Detached: offset into the buffer
	length uint32 // Slice/Detached: length of the range
	bytes  []byte // Static/Owned/Shared: the backing bytes
}

// NewSlice references [start, start+n) of the buffer.
func NewSlice(start, n int) Store {
	return Store{kind: StoreSlice, start: uint32(start), length: uint32(n)}
}

// Static wraps process-lifetime read-only bytes. The bytes are not copied and
// must never be mutated.
func Static(b []byte) Store {
	return Store{kind: StoreStatic, bytes: b}
}

// StaticString wraps the bytes of a string as a Static store. The conversion
// copies the string once; the resulting bytes must never be mutated.
func StaticString(s string) Store {
	return Store{kind: StoreStatic, bytes: []byte(s)}
}

// Owned copies b into a store that uniquely owns its bytes.
func Owned(b []byte) Store {
	d := make([]byte, len(b))
	copy(d, b)
	return Store{kind: StoreOwned, bytes: d}
}

// Shared aliases b without copying. Cloning a shared store is O(1); the
// garbage collector keeps the backing alive as long as any alias remains.
func Shared(b []byte) Store {
	return Store{kind: StoreShared, bytes: b}
}

// Kind returns the ownership tag.
func (s Store) Kind() StoreKind { return s.kind }

// IsEmpty reports whether this is the Empty sentinel. Elided headers use an
// Empty key (see Pair.IsElided).
func (s Store) IsEmpty() bool { return s.kind == StoreEmpty }

// Len returns the number of remaining bytes behind the store.
func (s Store) Len() int {
	switch s.kind {
	case StoreSlice, StoreDetached:
		return int(s.length)
	default:
		return len(s.bytes)
	}
}

// Data returns the borrowed contents. buf must be the backing slice of the
// Buffer this store was parsed from (Buffer.Bytes). Reading a Detached store
// returns ErrDetachedRead; reading a Slice that escaped the buffer bounds
// returns ErrDetachedRead as well, as it indicates a missed PushLeft.
func (s Store) Data(buf []byte) ([]byte, error) {
	switch s.kind {
	case StoreEmpty:
		return nil, nil
	case StoreSlice:
		start, end := int(s.start), int(s.start+s.length)
		if start > len(buf) || end > len(buf) {
			return nil, ErrDetachedRead
		}
		return buf[start:end], nil
	case StoreDetached:
		return nil, ErrDetachedRead
	default:
		return s.bytes, nil
	}
}

// PushLeft rebases a buffer-relative store after a Buffer.Shift of delta
// bytes. A Detached store becomes a readable Slice again. The caller
// guarantees delta is no larger than the start of every surviving slice.
func (s *Store) PushLeft(delta uint32) {
	switch s.kind {
	case StoreSlice:
		s.start -= delta
	case StoreDetached:
		s.start -= delta
		s.kind = StoreSlice
	}
}

// Detach marks a Slice as relocation-stale. Reads fail until PushLeft.
func (s *Store) Detach() {
	if s.kind == StoreSlice {
		s.kind = StoreDetached
	}
}

// Modify overwrites the store's value. If the store is a Slice and the new
// value is no longer than the current one, the bytes are written in place
// over the slice range and the slice shrinks, preserving zero-copy;
// equal-length edits stay a Slice. Any other case replaces the store with an
// Owned copy of newValue.
func (s *Store) Modify(buf, newValue []byte) {
	if s.kind == StoreSlice && len(newValue) <= int(s.length) {
		start := int(s.start)
		copy(buf[start:start+len(newValue)], newValue)
		s.length = uint32(len(newValue))
		return
	}
	*s = Owned(newValue)
}

// Capture detaches the store from the buffer by copying its current contents
// into an Owned store. Static, Owned and Shared stores are returned as is.
func (s Store) Capture(buf []byte) Store {
	switch s.kind {
	case StoreSlice:
		data, err := s.Data(buf)
		if err != nil {
			return Store{}
		}
		return Owned(data)
	case StoreDetached:
		return Store{}
	default:
		return s
	}
}

// Clone duplicates the store. Shared and Static stores alias, Owned stores
// copy, buffer-relative stores keep their offsets.
func (s Store) Clone() Store {
	if s.kind == StoreOwned {
		return Owned(s.bytes)
	}
	return s
}

// consume trims n leading bytes off the store for gather-list accounting.
// It returns the bytes left to consume from subsequent stores and the
// surviving remainder, if any.
func (s Store) consume(n int) (remaining int, rest Store, live bool) {
	length := s.Len()
	if n >= length {
		return n - length, Store{}, false
	}
	switch s.kind {
	case StoreSlice, StoreDetached:
		s.start += uint32(n)
		s.length -= uint32(n)
	default:
		s.bytes = s.bytes[n:]
	}
	return 0, s, true
}
