// SPDX-License-Identifier: Apache-2.0

// Package debuginfo implements the opaque debug-info side table spec.md
// §3.2 attaches to every SSA function: "a side table keyed by an opaque
// id, not interpreted by the optimizer or register allocator." Keys are
// ksuid.KSUID values, grounded on the teacher's use of
// github.com/segmentio/ksuid for globally-unique, sortable node
// identity elsewhere in the codebase.
package debuginfo

import "github.com/segmentio/ksuid"

// Entry is one opaque debug-info record: a source location plus an
// instruction-specific blob the optimizer and register allocator never
// interpret (spec.md §3.2).
type Entry struct {
	ID   ksuid.KSUID
	Data any
}

// Table is the side table itself: new-key insertion, read-back, and
// nothing else — callers outside of the debuginfo package never
// branch on its contents (spec.md §3.2).
type Table struct {
	entries map[ksuid.KSUID]Entry
}

// NewTable returns an empty debug-info table.
func NewTable() *Table {
	return &Table{entries: make(map[ksuid.KSUID]Entry)}
}

// New allocates a fresh opaque key, records data under it, and returns
// the key.
func (t *Table) New(data any) ksuid.KSUID {
	id := ksuid.New()
	t.entries[id] = Entry{ID: id, Data: data}
	return id
}

// Get returns the data recorded under id, or false if no entry exists.
func (t *Table) Get(id ksuid.KSUID) (any, bool) {
	e, ok := t.entries[id]
	return e.Data, ok
}

// Set overwrites (or inserts) the data recorded under id.
func (t *Table) Set(id ksuid.KSUID, data any) {
	t.entries[id] = Entry{ID: id, Data: data}
}

// Len reports the number of entries in the table.
func (t *Table) Len() int { return len(t.entries) }
