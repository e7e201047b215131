// SPDX-License-Identifier: Apache-2.0

// Package memalloc implements spec.md §6.3's externally-provided
// memory-allocator handle: a pair { alloc(size) → ptr|null, free(ptr) }
// with no reallocation primitive (growing vectors allocate+copy+free).
// In Go this is naturally an interface Go's own GC satisfies trivially;
// the package exists because spec.md §5 requires every allocating
// operation to take the handle explicitly and every owner to release
// its members by explicit free calls in reverse construction order —
// an ownership discipline worth making visible in the type system even
// though the garbage collector would reclaim memory regardless.
package memalloc

import kerrors "kefir/internal/errors"

// Handle is spec.md §6.3's allocator pair, modeled as a byte-slice
// arena rather than raw pointers: Alloc returns a zeroed slice of the
// requested size, Free releases it back to the pool for reuse.
type Handle interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

// Arena is the default Handle: a simple free-list-backed pool. It never
// fails allocation (Go's allocator does not return null) and never
// returns a MemAllocFailure error; its only error is InvalidParameter
// for a negative size.
type Arena struct {
	pool map[int][][]byte
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{pool: make(map[int][][]byte)}
}

// Alloc returns a zeroed buffer of size bytes, reusing a freed buffer
// of the same size if one is available.
func (a *Arena) Alloc(size int) ([]byte, error) {
	if size < 0 {
		return nil, kerrors.New(kerrors.InvalidParameter, "memalloc: negative allocation size")
	}
	if bufs := a.pool[size]; len(bufs) > 0 {
		buf := bufs[len(bufs)-1]
		a.pool[size] = bufs[:len(bufs)-1]
		for i := range buf {
			buf[i] = 0
		}
		return buf, nil
	}
	return make([]byte, size), nil
}

// Free returns buf to the arena's free list for its size class.
func (a *Arena) Free(buf []byte) {
	if buf == nil {
		return
	}
	size := len(buf)
	a.pool[size] = append(a.pool[size], buf)
}

// Grow implements the "no reallocation primitive" discipline of
// spec.md §6.3: allocate a new buffer of newSize, copy over old's
// contents, and free old.
func Grow(h Handle, old []byte, newSize int) ([]byte, error) {
	buf, err := h.Alloc(newSize)
	if err != nil {
		return nil, err
	}
	copy(buf, old)
	h.Free(old)
	return buf, nil
}
