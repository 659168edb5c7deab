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

// Package expand legalizes composite arithmetic ops.
//
// The composite ops (ceildiv.u, ceildiv.s, floordiv.s,
// max.f, min.f, max.s, max.u, min.s, min.u) do not map to
// single instructions on typical backends. The patterns in
// this package expand each of them into an equivalent graph
// of primitive ops: constants, add/sub, truncating division,
// bitwise and/or, compares, selects and (for vector floats)
// a broadcast. The expansions are exactly value-preserving,
// including at the edges of the operand range and for NaN;
// none of them emits a multiplication, so they never widen
// the overflow surface of the program.
package expand

import (
	"github.com/karst-ir/karst/ir"
	"github.com/karst-ir/karst/rewrite"
)

// Expandable returns the op kinds this package expands; a
// conversion target should declare them illegal.
func Expandable() []ir.Op {
	return []ir.Op{
		ir.OpCeilDivU,
		ir.OpCeilDivS,
		ir.OpFloorDivS,
		ir.OpMaxF,
		ir.OpMinF,
		ir.OpMaxS,
		ir.OpMaxU,
		ir.OpMinS,
		ir.OpMinU,
	}
}

// primitives is the op set the expansions emit, plus the
// remaining arithmetic ops a frontend may have produced;
// the conversion target declares all of them legal.
var primitives = []ir.Op{
	ir.OpArg,
	ir.OpConstInt,
	ir.OpConstFloat,
	ir.OpAdd,
	ir.OpSub,
	ir.OpMul,
	ir.OpDivS,
	ir.OpDivU,
	ir.OpRemS,
	ir.OpRemU,
	ir.OpAnd,
	ir.OpOr,
	ir.OpXor,
	ir.OpCmpI,
	ir.OpCmpF,
	ir.OpSelect,
	ir.OpBroadcast,
}

// RegisterPatterns appends the expansion patterns to set.
func RegisterPatterns(set *rewrite.PatternSet) {
	set.Add(
		ceilDivU{},
		ceilDivS{},
		floorDivS{},
		minMaxF{op: ir.OpMaxF, pred: ir.CmpOGT},
		minMaxF{op: ir.OpMinF, pred: ir.CmpOLT},
		minMaxI{op: ir.OpMaxS, pred: ir.CmpSGT},
		minMaxI{op: ir.OpMaxU, pred: ir.CmpUGT},
		minMaxI{op: ir.OpMinS, pred: ir.CmpSLT},
		minMaxI{op: ir.OpMinU, pred: ir.CmpULT},
	)
}

// NewPass returns the expansion pass: it registers the
// patterns, marks the primitive ops legal and the composite
// ops illegal, and drives the partial conversion to a fixed
// point.
func NewPass() rewrite.Pass {
	return rewrite.NewPass("expand-arith", func(p *ir.Prog) error {
		var set rewrite.PatternSet
		RegisterPatterns(&set)
		t := rewrite.NewTarget()
		t.Legal(primitives...)
		t.Illegal(Expandable()...)
		return rewrite.ApplyPartialConversion(p, t, &set)
	})
}
