// SPDX-License-Identifier: Apache-2.0

package amd64

// QClass is a System V amd64 eightbyte ("qword") classification
// (spec.md §4.5).
type QClass int

const (
	NoClass QClass = iota
	Integer
	SSE
	SSEUp
	X87
	X87Up
	ComplexX87
	Memory
)

func (c QClass) String() string {
	switch c {
	case NoClass:
		return "NoClass"
	case Integer:
		return "Integer"
	case SSE:
		return "SSE"
	case SSEUp:
		return "SSEUp"
	case X87:
		return "X87"
	case X87Up:
		return "X87Up"
	case ComplexX87:
		return "ComplexX87"
	case Memory:
		return "Memory"
	default:
		return "QClass(?)"
	}
}

// merge implements spec.md §4.5's qword merge rule: "X = Y → X; NoClass
// ∪ Y → Y; Memory ∪ _ → Memory; Integer ∪ _ → Integer; X87-family mixed
// with anything → Memory; else → SSE."
func merge(x, y QClass) QClass {
	if x == y {
		return x
	}
	if x == NoClass {
		return y
	}
	if y == NoClass {
		return x
	}
	if x == Memory || y == Memory {
		return Memory
	}
	if x == Integer || y == Integer {
		return Integer
	}
	if isX87Family(x) || isX87Family(y) {
		return Memory
	}
	return SSE
}

func isX87Family(c QClass) bool {
	return c == X87 || c == X87Up || c == ComplexX87
}

func scalarClass(k Kind) []QClass {
	switch k {
	case KindFloat32, KindFloat64:
		return []QClass{SSE}
	case KindLongDouble:
		return []QClass{X87, X87Up}
	case KindComplexLongDouble:
		return []QClass{ComplexX87, ComplexX87}
	case KindComplexFloat32, KindComplexFloat64:
		return []QClass{SSE, SSEUp}
	default:
		return []QClass{Integer}
	}
}

// ClassifyArgument partitions the entry at idx into 8-byte qwords and
// returns their classes, or a single []QClass{Memory} if the whole type
// must be passed in memory (spec.md §4.5 "System V amd64
// classification"). layouts must be the result of
// ClassifyArgumentLayout(d), not ClassifyLayout(d): only the former
// carries the argument-context array alignment bump.
func ClassifyArgument(d *Descriptor, layouts []Layout, idx int) ([]QClass, error) {
	l := layouts[idx]
	if l.Size > 64 {
		return []QClass{Memory}, nil
	}

	nq := ceilDiv(l.Size, 8)
	if nq == 0 {
		nq = 1
	}
	qwords := make([]QClass, nq)

	if err := classifyInto(d, layouts, idx, 0, qwords); err != nil {
		return nil, err
	}

	for _, q := range qwords {
		if q == Memory {
			return []QClass{Memory}, nil
		}
	}
	// Natural-alignment violations are surfaced by the layout pass as
	// Aligned==false with an override only; an unaligned field inside
	// an aggregate is detected during the struct layout walk itself
	// (offset not a multiple of the field's alignment), which
	// layoutOf already enforces by construction (it always rounds up),
	// so there is nothing further to check here beyond size/Memory.
	for i := range qwords {
		if qwords[i] == NoClass {
			qwords[i] = Integer
		}
	}
	return qwords, nil
}

func classifyInto(d *Descriptor, layouts []Layout, idx, baseOffset int, qwords []QClass) error {
	e := &d.Entries[idx]
	switch e.Kind {
	case KindStruct:
		offset := baseOffset
		for _, f := range e.Fields {
			fl := layouts[f.TypeIndex]
			if d.Entries[f.TypeIndex].Kind != KindBitfield {
				offset = ceilDiv(offset, fl.Align) * fl.Align
			}
			if err := classifyInto(d, layouts, f.TypeIndex, offset, qwords); err != nil {
				return err
			}
			offset += fl.Size
		}
		return nil
	case KindUnion:
		for _, f := range e.Fields {
			if err := classifyInto(d, layouts, f.TypeIndex, baseOffset, qwords); err != nil {
				return err
			}
		}
		return nil
	case KindArray:
		elemLayout := layouts[e.Elem]
		count := 1
		if len(e.Fields) > 0 {
			count = e.Fields[0].Count
		}
		for i := 0; i < count; i++ {
			if err := classifyInto(d, layouts, e.Elem, baseOffset+i*elemLayout.Size, qwords); err != nil {
				return err
			}
		}
		return nil
	case KindBitfield:
		applyClass(qwords, baseOffset, layouts[idx].Size, Integer)
		return nil
	case KindAtomic:
		applyClass(qwords, baseOffset, layouts[idx].Size, Integer)
		return nil
	default:
		classes := scalarClass(e.Kind)
		size := layouts[idx].Size
		per := size / len(classes)
		if per == 0 {
			per = size
		}
		for i, c := range classes {
			applyClass(qwords, baseOffset+i*per, per, c)
		}
		return nil
	}
}

func applyClass(qwords []QClass, byteOffset, byteSize int, c QClass) {
	startQ := byteOffset / 8
	endQ := ceilDiv(byteOffset+byteSize, 8)
	for q := startQ; q < endQ && q < len(qwords); q++ {
		if q < 0 {
			continue
		}
		qwords[q] = merge(qwords[q], c)
	}
}
