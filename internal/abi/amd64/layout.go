// SPDX-License-Identifier: Apache-2.0

// Package amd64 implements spec.md §4.5: IR type layout and the System V
// amd64 argument classifier, plus the parameter allocator that consumes
// the classifier's output. Grounded on original_source/source/target/abi
// for the layout/classification rules themselves, and on the teacher's
// struct-tag-driven data modeling style for the type-entry descriptor.
package amd64

import kerrors "kefir/internal/errors"

// Kind tags one entry of a flat IR type descriptor (spec.md §4.5
// "a flat sequence of scalar/struct/union/array/bit-field/builtin
// entries with nested structures addressed by index").
type Kind int

const (
	KindBool Kind = iota
	KindChar
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindLongDouble
	KindComplexFloat32
	KindComplexFloat64
	KindComplexLongDouble
	KindStruct
	KindUnion
	KindArray
	KindBitfield
	KindVararg
	KindAtomic
)

// Field is one member of a Struct/Union entry, or the element of an
// Array entry (Count > 1).
type Field struct {
	TypeIndex int // index into the owning Descriptor's Entries
	Count     int // array element count; 1 for non-array fields
	BitWidth  int // KindBitfield's width in bits; 0 otherwise
}

// Entry is one flat type-descriptor node.
type Entry struct {
	Kind    Kind
	Fields  []Field     // Struct/Union/Array members
	Elem    int         // Array: element type index; Atomic: wrapped type index
	Align   int         // explicit alignment override, 0 if none
	AtSize  int         // Atomic: explicit scalar size in bytes, 0 to infer from Elem
}

// Descriptor is a translation unit's flat type table; Entry.Fields
// reference other entries by index into this table.
type Descriptor struct {
	Entries []Entry
}

// Layout is the per-entry layout record spec.md §4.5 computes.
type Layout struct {
	Size    int
	Align   int
	Aligned bool // true if Align was raised by an explicit override or atomic padding
	RelOffset int // offset relative to the containing aggregate, 0 for top-level entries
}

var scalarSizes = map[Kind]int{
	KindBool: 1, KindChar: 1, KindInt8: 1,
	KindInt16: 2,
	KindInt32: 4,
	KindInt64: 8,
	KindFloat32: 4,
	KindFloat64: 8,
	KindLongDouble: 16,
	KindComplexFloat32: 8,
	KindComplexFloat64: 16,
	KindComplexLongDouble: 32,
}

var scalarAligns = map[Kind]int{
	KindBool: 1, KindChar: 1, KindInt8: 1,
	KindInt16: 2,
	KindInt32: 4,
	KindInt64: 8,
	KindFloat32: 4,
	KindFloat64: 8,
	KindLongDouble: 16,
	KindComplexFloat32: 4,
	KindComplexFloat64: 8,
	KindComplexLongDouble: 16,
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

func nextPow2(n int) int {
	for _, p := range []int{1, 2, 4, 8, 16} {
		if n <= p {
			return p
		}
	}
	return 16
}

// ClassifyLayout computes the {size, alignment, aligned, relative
// offset} layout vector for every entry of d, in entry order (spec.md
// §4.5 "Layout"). This is plain type layout, as used for e.g.
// struct-member offsets; it never applies the argument-context array
// alignment bump ClassifyArgumentLayout does.
func ClassifyLayout(d *Descriptor) ([]Layout, error) {
	return classifyLayout(d, false)
}

// ClassifyArgumentLayout computes the same layout vector as
// ClassifyLayout, but in argument-classification context: arrays ≥ 16
// bytes acquire 16-byte alignment (spec.md §4.5 "array takes child
// size × count, inherits alignment (at argument context, arrays ≥ 16
// bytes acquire 16-byte alignment)"). Pass its result, not
// ClassifyLayout's, to ClassifyArgument.
func ClassifyArgumentLayout(d *Descriptor) ([]Layout, error) {
	return classifyLayout(d, true)
}

func classifyLayout(d *Descriptor, argumentContext bool) ([]Layout, error) {
	out := make([]Layout, len(d.Entries))
	for i := range d.Entries {
		l, err := layoutOf(d, i, argumentContext)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

func layoutOf(d *Descriptor, idx int, argumentContext bool) (Layout, error) {
	if idx < 0 || idx >= len(d.Entries) {
		return Layout{}, kerrors.New(kerrors.InvalidParameter, "amd64: type-entry index out of range")
	}
	e := &d.Entries[idx]

	var l Layout
	switch e.Kind {
	case KindBitfield:
		l.Size = ceilDiv(e.Fields[0].BitWidth, 8)
		l.Align = 1
	case KindVararg:
		l.Size = 3 * 8
		l.Align = 8
	case KindAtomic:
		inner, err := layoutOf(d, e.Elem, argumentContext)
		if err != nil {
			return Layout{}, err
		}
		size := inner.Size
		if e.AtSize > 0 {
			size = e.AtSize
		}
		padded := nextPow2(size)
		l.Size = padded
		l.Align = padded
		l.Aligned = padded > inner.Align
	case KindStruct:
		offset := 0
		maxAlign := 1
		for _, f := range e.Fields {
			fl, err := layoutOf(d, f.TypeIndex, argumentContext)
			if err != nil {
				return Layout{}, err
			}
			align := fl.Align
			if align > maxAlign {
				maxAlign = align
			}
			if d.Entries[f.TypeIndex].Kind != KindBitfield {
				offset = ceilDiv(offset, align) * align
			}
			offset += fl.Size
		}
		l.Size = ceilDiv(offset, maxAlign) * maxAlign
		l.Align = maxAlign
	case KindUnion:
		maxSize, maxAlign := 0, 1
		for _, f := range e.Fields {
			fl, err := layoutOf(d, f.TypeIndex, argumentContext)
			if err != nil {
				return Layout{}, err
			}
			if fl.Size > maxSize {
				maxSize = fl.Size
			}
			if fl.Align > maxAlign {
				maxAlign = fl.Align
			}
		}
		l.Size = maxSize
		l.Align = maxAlign
	case KindArray:
		elemLayout, err := layoutOf(d, e.Elem, argumentContext)
		if err != nil {
			return Layout{}, err
		}
		count := 1
		if len(e.Fields) > 0 {
			count = e.Fields[0].Count
		}
		l.Size = elemLayout.Size * count
		l.Align = elemLayout.Align
		if argumentContext && l.Size >= 16 {
			l.Align = 16
		}
	default:
		size, ok := scalarSizes[e.Kind]
		if !ok {
			return Layout{}, kerrors.Newf(kerrors.InvalidParameter, "amd64: unknown type-entry kind %d", e.Kind)
		}
		l.Size = size
		l.Align = scalarAligns[e.Kind]
	}

	if e.Align > 0 && e.Align >= l.Align {
		l.Align = e.Align
		l.Aligned = true
	}
	return l, nil
}
