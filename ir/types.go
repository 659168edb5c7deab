// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package ir implements a small typed SSA program
// representation for straight-line arithmetic code.
//
// A Prog is a hash-consed DAG of Values; each Value
// is produced by exactly one Op and consumed by zero
// or more later Values. Programs are built through the
// typed constructor methods on Prog, printed and parsed
// in a stable textual form, and evaluated by a reference
// interpreter (see Eval) that pins down the semantics
// the rewrite passes must preserve.
package ir

import (
	"fmt"
	"strconv"
)

// Kind is the scalar kind of a Type.
type Kind uint8

const (
	// KindInvalid is the zero Kind; it is not
	// a valid kind for any Value.
	KindInvalid Kind = iota
	// KindInt is a two's-complement machine integer.
	KindInt
	// KindFloat is an IEEE-754 binary float.
	KindFloat
)

// Type describes the type of a Value: a machine integer
// of 1 to 64 bits, a 32- or 64-bit float, or a fixed-shape
// vector of one of those. The zero Type is invalid.
type Type struct {
	Kind Kind
	// Bits is the width of the scalar (element) type.
	Bits uint8
	// Lanes is the vector lane count, or 0 for scalars.
	Lanes uint16
}

// Common scalar types.
var (
	I1  = Int(1)
	I8  = Int(8)
	I16 = Int(16)
	I32 = Int(32)
	I64 = Int(64)
	F32 = Type{Kind: KindFloat, Bits: 32}
	F64 = Type{Kind: KindFloat, Bits: 64}
)

// Int returns the integer type with the given bit width.
// Int panics if bits is outside [1, 64].
func Int(bits int) Type {
	if bits < 1 || bits > 64 {
		panic("ir: bad integer width " + strconv.Itoa(bits))
	}
	return Type{Kind: KindInt, Bits: uint8(bits)}
}

// Float returns the float type with the given bit width
// (32 or 64).
func Float(bits int) Type {
	if bits != 32 && bits != 64 {
		panic("ir: bad float width " + strconv.Itoa(bits))
	}
	return Type{Kind: KindFloat, Bits: uint8(bits)}
}

// Vec returns the vector type with the given lane count
// and element type. The element type must be scalar.
func Vec(lanes int, elem Type) Type {
	if lanes < 1 || lanes > 1<<16-1 {
		panic("ir: bad lane count " + strconv.Itoa(lanes))
	}
	if elem.IsVector() {
		panic("ir: vector element type " + elem.String())
	}
	elem.Lanes = uint16(lanes)
	return elem
}

// IsVector reports whether t is a vector type.
func (t Type) IsVector() bool { return t.Lanes > 0 }

// IsInt reports whether t is a scalar or vector integer type.
func (t Type) IsInt() bool { return t.Kind == KindInt }

// IsFloat reports whether t is a scalar or vector float type.
func (t Type) IsFloat() bool { return t.Kind == KindFloat }

// Valid reports whether t is a well-formed type.
func (t Type) Valid() bool {
	switch t.Kind {
	case KindInt:
		return t.Bits >= 1 && t.Bits <= 64
	case KindFloat:
		return t.Bits == 32 || t.Bits == 64
	}
	return false
}

// Elem returns the element type of a vector, or t itself
// if t is scalar.
func (t Type) Elem() Type {
	t.Lanes = 0
	return t
}

// lanes returns the number of scalar elements represented
// by t: the lane count for vectors, 1 for scalars.
func (t Type) lanes() int {
	if t.Lanes == 0 {
		return 1
	}
	return int(t.Lanes)
}

// cmpType returns the comparison result type for operands
// of type t: i1 for scalars, vec<N x i1> for vectors.
func (t Type) cmpType() Type {
	if t.IsVector() {
		return Vec(int(t.Lanes), I1)
	}
	return I1
}

// String implements fmt.Stringer. Scalars format as
// "i32", "f64", etc.; vectors as "vec<4 x f32>".
func (t Type) String() string {
	var elem string
	switch t.Kind {
	case KindInt:
		elem = "i" + strconv.Itoa(int(t.Bits))
	case KindFloat:
		elem = "f" + strconv.Itoa(int(t.Bits))
	default:
		return "<invalid>"
	}
	if t.Lanes == 0 {
		return elem
	}
	return fmt.Sprintf("vec<%d x %s>", t.Lanes, elem)
}

// bits packs t into a uint64 for hash-consing.
func (t Type) bits() uint64 {
	return uint64(t.Kind)<<24 | uint64(t.Bits)<<16 | uint64(t.Lanes)
}
