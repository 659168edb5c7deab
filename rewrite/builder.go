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

package rewrite

import (
	"github.com/karst-ir/karst/ir"
)

// Builder is the construction surface handed to a Pattern's
// Rewrite call. Values built through it are staged: if the
// rewrite fails they are rolled back, and on success the
// driver substitutes the value named by Replace for the
// matched op.
//
// Builder deliberately exposes only the primitives the
// conversion target accepts, so a rule cannot emit an op
// kind the target will reject.
type Builder struct {
	prog *ir.Prog
	mark int
	repl *ir.Value
}

func newBuilder(p *ir.Prog) *Builder {
	return &Builder{prog: p, mark: p.Checkpoint()}
}

// discard undoes everything built since the builder was made.
func (b *Builder) discard() {
	b.prog.Rollback(b.mark)
	b.repl = nil
}

// ConstInt returns the integer constant c of type t
// (a lane splat for vector t).
func (b *Builder) ConstInt(t ir.Type, c int64) *ir.Value {
	return b.prog.ConstInt(t, c)
}

// ConstFloat returns the scalar float constant c of type t.
func (b *Builder) ConstFloat(t ir.Type, c float64) *ir.Value {
	return b.prog.ConstFloat(t, c)
}

// Add returns x+y with wrap-around on overflow.
func (b *Builder) Add(x, y *ir.Value) *ir.Value { return b.prog.Add(x, y) }

// Sub returns x-y with wrap-around on overflow.
func (b *Builder) Sub(x, y *ir.Value) *ir.Value { return b.prog.Sub(x, y) }

// DivS returns the signed quotient x/y, rounded toward zero.
func (b *Builder) DivS(x, y *ir.Value) *ir.Value { return b.prog.DivS(x, y) }

// DivU returns the unsigned quotient x/y.
func (b *Builder) DivU(x, y *ir.Value) *ir.Value { return b.prog.DivU(x, y) }

// And returns the bitwise AND of x and y.
func (b *Builder) And(x, y *ir.Value) *ir.Value { return b.prog.And(x, y) }

// Or returns the bitwise OR of x and y.
func (b *Builder) Or(x, y *ir.Value) *ir.Value { return b.prog.Or(x, y) }

// CmpI returns the integer comparison of x and y under pred.
func (b *Builder) CmpI(pred ir.CmpIPred, x, y *ir.Value) *ir.Value {
	return b.prog.CmpI(pred, x, y)
}

// CmpF returns the float comparison of x and y under pred.
func (b *Builder) CmpF(pred ir.CmpFPred, x, y *ir.Value) *ir.Value {
	return b.prog.CmpF(pred, x, y)
}

// Select returns x if cond holds and y otherwise.
func (b *Builder) Select(cond, x, y *ir.Value) *ir.Value {
	return b.prog.Select(cond, x, y)
}

// Broadcast returns the vector of type t with every lane
// equal to the scalar x.
func (b *Builder) Broadcast(x *ir.Value, t ir.Type) *ir.Value {
	return b.prog.Broadcast(x, t)
}

// Replace names the root of the replacement graph. The driver
// substitutes it for the matched op once Rewrite returns nil.
func (b *Builder) Replace(v *ir.Value) { b.repl = v }
