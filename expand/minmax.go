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
	"math"

	"github.com/karst-ir/karst/ir"
	"github.com/karst-ir/karst/rewrite"
)

// minMaxF expands max.f/min.f into an ordered compare-and-
// select with explicit NaN propagation:
//
//	picked = cmp(lhs, rhs) ? lhs : rhs
//	isNaN(lhs) || isNaN(rhs) ? qNaN : picked
//
// The ordered compare is false whenever either operand is
// NaN, which alone would silently pick rhs; the unordered
// compare forces a quiet NaN instead. Between +0 and -0 the
// result is whichever operand the ordered compare selects.
type minMaxF struct {
	op   ir.Op
	pred ir.CmpFPred
}

func (m minMaxF) Match(v *ir.Value) bool { return v.Op() == m.op }

func (m minMaxF) Rewrite(v *ir.Value, b *rewrite.Builder) error {
	lhs, rhs := v.Arg(0), v.Arg(1)
	t := v.Type()
	picked := b.Select(b.CmpF(m.pred, lhs, rhs), lhs, rhs)
	isNaN := b.CmpF(ir.CmpUNO, lhs, rhs)
	qnan := b.ConstFloat(t.Elem(), math.NaN())
	if t.IsVector() {
		qnan = b.Broadcast(qnan, t)
	}
	b.Replace(b.Select(isNaN, qnan, picked))
	return nil
}

// minMaxI expands the four integer min/max ops into a single
// compare-and-select under the corresponding signed or
// unsigned predicate.
type minMaxI struct {
	op   ir.Op
	pred ir.CmpIPred
}

func (m minMaxI) Match(v *ir.Value) bool { return v.Op() == m.op }

func (m minMaxI) Rewrite(v *ir.Value, b *rewrite.Builder) error {
	lhs, rhs := v.Arg(0), v.Arg(1)
	b.Replace(b.Select(b.CmpI(m.pred, lhs, rhs), lhs, rhs))
	return nil
}
