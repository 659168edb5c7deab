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

package expand

import (
	"github.com/karst-ir/karst/ir"
	"github.com/karst-ir/karst/rewrite"
)

// ceilDivU expands ceildiv.u(a, b) into
//
//	a == 0 ? 0 : ((a-1) / b) + 1
//
// The usual (a + b - 1) / b form overflows for a near the top
// of the unsigned range; subtracting first cannot overflow
// except at a == 0, which the select guards (0-1 wraps to the
// unsigned maximum).
type ceilDivU struct{}

func (ceilDivU) Match(v *ir.Value) bool { return v.Op() == ir.OpCeilDivU }

func (ceilDivU) Rewrite(v *ir.Value, b *rewrite.Builder) error {
	a, m := v.Arg(0), v.Arg(1)
	t := v.Type()
	zero := b.ConstInt(t, 0)
	one := b.ConstInt(t, 1)
	isZero := b.CmpI(ir.CmpEq, a, zero)
	quot := b.DivU(b.Sub(a, one), m)
	b.Replace(b.Select(isZero, zero, b.Add(quot, one)))
	return nil
}

// ceilDivS expands ceildiv.s(a, b) into
//
//	x = (b > 0) ? -1 : 1
//	(a<0 && b<0) || (a>0 && b>0) ? ((x+a) / b) + 1 : a / b
//
// Truncating division rounds toward zero, so when the exact
// quotient is positive with a remainder it is one below the
// ceiling; nudging the dividend by x before dividing and
// adding 1 afterwards recovers the ceiling without leaving
// the operand range. When the signs differ (or a == 0) the
// quotient is non-positive and truncation toward zero is
// already the ceiling. The -((-a)/b) form of that branch
// equals a/b wherever both are defined but wraps for a at
// the bottom of the signed range, where a/b stays exact.
// The same-sign test is spelled as compares and bitwise ops
// rather than a*b > 0 to avoid the overflow of the product.
type ceilDivS struct{}

func (ceilDivS) Match(v *ir.Value) bool { return v.Op() == ir.OpCeilDivS }

func (ceilDivS) Rewrite(v *ir.Value, b *rewrite.Builder) error {
	a, m := v.Arg(0), v.Arg(1)
	t := v.Type()
	zero := b.ConstInt(t, 0)
	plusOne := b.ConstInt(t, 1)
	minusOne := b.ConstInt(t, -1)

	// x = (b > 0) ? -1 : 1
	x := b.Select(b.CmpI(ir.CmpSGT, m, zero), minusOne, plusOne)

	// same sign: 1 + ((x+a) / b)
	posRes := b.Add(plusOne, b.DivS(b.Add(x, a), m))
	// opposite sign (or a == 0): a / b
	negRes := b.DivS(a, m)

	aNeg := b.CmpI(ir.CmpSLT, a, zero)
	aPos := b.CmpI(ir.CmpSGT, a, zero)
	bNeg := b.CmpI(ir.CmpSLT, m, zero)
	bPos := b.CmpI(ir.CmpSGT, m, zero)
	sameSign := b.Or(b.And(aNeg, bNeg), b.And(aPos, bPos))
	b.Replace(b.Select(sameSign, posRes, negRes))
	return nil
}

// floorDivS expands floordiv.s(a, b) into
//
//	x = (b < 0) ? 1 : -1
//	(a<0 && b>0) || (a>0 && b<0) ? -1 - ((x-a) / b) : a / b
//
// When the signs agree (or a == 0) truncation already floors.
// When they differ, the truncated quotient is one above the
// floor whenever the division is inexact; the nudged form
// folds the inexactness test into the division itself. As
// above, the sign test avoids the product a*b.
type floorDivS struct{}

func (floorDivS) Match(v *ir.Value) bool { return v.Op() == ir.OpFloorDivS }

func (floorDivS) Rewrite(v *ir.Value, b *rewrite.Builder) error {
	a, m := v.Arg(0), v.Arg(1)
	t := v.Type()
	zero := b.ConstInt(t, 0)
	plusOne := b.ConstInt(t, 1)
	minusOne := b.ConstInt(t, -1)

	// x = (b < 0) ? 1 : -1
	x := b.Select(b.CmpI(ir.CmpSLT, m, zero), plusOne, minusOne)

	// opposite sign: -1 - ((x-a) / b)
	negRes := b.Sub(minusOne, b.DivS(b.Sub(x, a), m))
	// same sign (or a == 0): a / b
	posRes := b.DivS(a, m)

	aNeg := b.CmpI(ir.CmpSLT, a, zero)
	aPos := b.CmpI(ir.CmpSGT, a, zero)
	bNeg := b.CmpI(ir.CmpSLT, m, zero)
	bPos := b.CmpI(ir.CmpSGT, m, zero)
	oppSign := b.Or(b.And(aNeg, bPos), b.And(aPos, bNeg))
	b.Replace(b.Select(oppSign, negRes, posRes))
	return nil
}
