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

package ir

import (
	"fmt"
	"math"
)

// Value is one SSA value in a Prog. Values are created
// through the constructor methods on Prog and are immutable
// from the caller's point of view; structurally identical
// values within one Prog are pointer-identical.
type Value struct {
	id   int
	op   Op
	args []*Value
	imm  any
	typ  Type
	hc   hashcode
}

// Op returns the operation that produces v.
func (v *Value) Op() Op { return v.op }

// Type returns the type of v.
func (v *Value) Type() Type { return v.typ }

// Imm returns the immediate operand of v, or nil.
func (v *Value) Imm() any { return v.imm }

// NumArgs returns the number of value arguments of v.
func (v *Value) NumArgs() int { return len(v.args) }

// Arg returns the i'th value argument of v.
func (v *Value) Arg(i int) *Value { return v.args[i] }

// ID returns the position of v in its program.
// IDs are dense and follow definition order, but are
// renumbered by Prog.Compact.
func (v *Value) ID() int { return v.id }

type hashcode [5]uint64

// Prog is a straight-line SSA program: a DAG of values
// with a single return value. Values are hash-consed, so
// building the same expression twice yields the same *Value.
type Prog struct {
	values []*Value // all values, in definition order
	ret    *Value   // value yielded by the program
	args   []Type   // argument types, by index

	// used to find common expressions
	exprs map[hashcode]*Value
}

// NewProg returns an empty program.
func NewProg() *Prog {
	return &Prog{exprs: make(map[hashcode]*Value)}
}

// Values returns the program's values in definition order.
// Arguments of a value always precede it in the slice.
// The slice is owned by p and must not be modified.
func (p *Prog) Values() []*Value { return p.values }

// NumValues returns the number of values in p.
func (p *Prog) NumValues() int { return len(p.values) }

// Ret returns the program's return value, or nil if
// SetReturn has not been called.
func (p *Prog) Ret() *Value { return p.ret }

// SetReturn sets the value yielded by the program.
func (p *Prog) SetReturn(v *Value) { p.ret = v }

// ArgTypes returns the types of the program's arguments
// in index order.
func (p *Prog) ArgTypes() []Type { return p.args }

func (p *Prog) val() *Value {
	v := new(Value)
	p.values = append(p.values, v)
	v.id = len(p.values) - 1
	return v
}

func (p *Prog) tobits(imm any) uint64 {
	switch v := imm.(type) {
	case nil:
		return 0
	case int64:
		return uint64(v)
	case float64:
		return math.Float64bits(v)
	case CmpIPred:
		return uint64(v)
	case CmpFPred:
		return uint64(v)
	default:
		panic(fmt.Sprintf("ir: bad immediate %v (%T)", imm, imm))
	}
}

func (p *Prog) hash(op Op, typ Type, imm any, args []*Value) hashcode {
	var hc hashcode
	hc[0] = uint64(op)<<32 | typ.bits()
	hc[1] = p.tobits(imm)
	for i, arg := range args {
		hc[2+i] = uint64(arg.id) + 1
	}
	return hc
}

// cons returns the canonical value for (op, typ, imm, args),
// creating it if the program does not already contain it.
func (p *Prog) cons(op Op, typ Type, imm any, args ...*Value) *Value {
	hc := p.hash(op, typ, imm, args)
	if v := p.exprs[hc]; v != nil {
		return v
	}
	v := p.val()
	v.op = op
	v.typ = typ
	v.imm = imm
	v.args = args
	v.hc = hc
	p.exprs[hc] = v
	return v
}

// Arg returns the value of the i'th program argument.
// All references to one argument index must agree on its type.
func (p *Prog) Arg(i int, t Type) *Value {
	if i < 0 {
		panic("ir: negative argument index")
	}
	if !t.Valid() {
		panic("ir: invalid argument type " + t.String())
	}
	for i >= len(p.args) {
		p.args = append(p.args, Type{})
	}
	if p.args[i].Valid() && p.args[i] != t {
		panic(fmt.Sprintf("ir: argument %d redeclared as %s (was %s)", i, t, p.args[i]))
	}
	p.args[i] = t
	return p.cons(OpArg, t, int64(i))
}

// ConstInt returns the integer constant c of type t.
// For vector t the constant is a lane splat. The immediate
// is truncated to the element width.
func (p *Prog) ConstInt(t Type, c int64) *Value {
	if !t.IsInt() {
		panic("ir: const.i of non-integer type " + t.String())
	}
	c = sextbits(truncbits(uint64(c), t.Bits), t.Bits)
	return p.cons(OpConstInt, t, c)
}

// ConstFloat returns the scalar float constant c of type t.
// Vector float constants are formed with Broadcast.
func (p *Prog) ConstFloat(t Type, c float64) *Value {
	if !t.IsFloat() || t.IsVector() {
		panic("ir: const.f of type " + t.String())
	}
	if t.Bits == 32 {
		c = float64(float32(c))
	}
	return p.cons(OpConstFloat, t, c)
}

func (p *Prog) binop(op Op, a, b *Value) *Value {
	if a.typ != b.typ {
		panic(fmt.Sprintf("ir: %s operand types %s and %s differ", op, a.typ, b.typ))
	}
	if ops[op].inval && !a.typ.IsInt() {
		panic(fmt.Sprintf("ir: %s of non-integer type %s", op, a.typ))
	}
	return p.cons(op, a.typ, nil, a, b)
}

// Add returns a+b with wrap-around on overflow.
func (p *Prog) Add(a, b *Value) *Value { return p.binop(OpAdd, a, b) }

// Sub returns a-b with wrap-around on overflow.
func (p *Prog) Sub(a, b *Value) *Value { return p.binop(OpSub, a, b) }

// Mul returns a*b with wrap-around on overflow.
func (p *Prog) Mul(a, b *Value) *Value { return p.binop(OpMul, a, b) }

// DivS returns the signed quotient a/b, rounded toward zero.
func (p *Prog) DivS(a, b *Value) *Value { return p.binop(OpDivS, a, b) }

// DivU returns the unsigned quotient a/b.
func (p *Prog) DivU(a, b *Value) *Value { return p.binop(OpDivU, a, b) }

// RemS returns the signed remainder a%b.
func (p *Prog) RemS(a, b *Value) *Value { return p.binop(OpRemS, a, b) }

// RemU returns the unsigned remainder a%b.
func (p *Prog) RemU(a, b *Value) *Value { return p.binop(OpRemU, a, b) }

// And returns the bitwise AND of a and b.
func (p *Prog) And(a, b *Value) *Value { return p.binop(OpAnd, a, b) }

// Or returns the bitwise OR of a and b.
func (p *Prog) Or(a, b *Value) *Value { return p.binop(OpOr, a, b) }

// Xor returns the bitwise XOR of a and b.
func (p *Prog) Xor(a, b *Value) *Value { return p.binop(OpXor, a, b) }

// CeilDivU returns the unsigned ceiling quotient of a and b.
func (p *Prog) CeilDivU(a, b *Value) *Value { return p.binop(OpCeilDivU, a, b) }

// CeilDivS returns the signed ceiling quotient of a and b.
func (p *Prog) CeilDivS(a, b *Value) *Value { return p.binop(OpCeilDivS, a, b) }

// FloorDivS returns the signed flooring quotient of a and b.
func (p *Prog) FloorDivS(a, b *Value) *Value { return p.binop(OpFloorDivS, a, b) }

// MaxF returns the NaN-propagating maximum of a and b.
func (p *Prog) MaxF(a, b *Value) *Value { return p.fminmax(OpMaxF, a, b) }

// MinF returns the NaN-propagating minimum of a and b.
func (p *Prog) MinF(a, b *Value) *Value { return p.fminmax(OpMinF, a, b) }

// MaxS returns the signed maximum of a and b.
func (p *Prog) MaxS(a, b *Value) *Value { return p.binop(OpMaxS, a, b) }

// MaxU returns the unsigned maximum of a and b.
func (p *Prog) MaxU(a, b *Value) *Value { return p.binop(OpMaxU, a, b) }

// MinS returns the signed minimum of a and b.
func (p *Prog) MinS(a, b *Value) *Value { return p.binop(OpMinS, a, b) }

// MinU returns the unsigned minimum of a and b.
func (p *Prog) MinU(a, b *Value) *Value { return p.binop(OpMinU, a, b) }

func (p *Prog) fminmax(op Op, a, b *Value) *Value {
	if !a.typ.IsFloat() {
		panic(fmt.Sprintf("ir: %s of non-float type %s", op, a.typ))
	}
	return p.binop(op, a, b)
}

// CmpI returns the integer comparison of a and b under pred.
// The result type is i1, or vec<N x i1> for vector operands.
func (p *Prog) CmpI(pred CmpIPred, a, b *Value) *Value {
	if a.typ != b.typ {
		panic(fmt.Sprintf("ir: cmp.i operand types %s and %s differ", a.typ, b.typ))
	}
	if !a.typ.IsInt() {
		panic("ir: cmp.i of non-integer type " + a.typ.String())
	}
	return p.cons(OpCmpI, a.typ.cmpType(), pred, a, b)
}

// CmpF returns the float comparison of a and b under pred.
// The result type is i1, or vec<N x i1> for vector operands.
func (p *Prog) CmpF(pred CmpFPred, a, b *Value) *Value {
	if a.typ != b.typ {
		panic(fmt.Sprintf("ir: cmp.f operand types %s and %s differ", a.typ, b.typ))
	}
	if !a.typ.IsFloat() {
		panic("ir: cmp.f of non-float type " + a.typ.String())
	}
	return p.cons(OpCmpF, a.typ.cmpType(), pred, a, b)
}

// Select returns a if cond holds and b otherwise; for vector
// operands the selection is lane-wise and cond must be a
// vector of i1 with the same lane count.
func (p *Prog) Select(cond, a, b *Value) *Value {
	if a.typ != b.typ {
		panic(fmt.Sprintf("ir: select operand types %s and %s differ", a.typ, b.typ))
	}
	if cond.typ != a.typ.cmpType() {
		panic(fmt.Sprintf("ir: select condition type %s for operand type %s", cond.typ, a.typ))
	}
	return p.cons(OpSelect, a.typ, nil, cond, a, b)
}

// Broadcast returns the vector of type t with every lane
// equal to the scalar v.
func (p *Prog) Broadcast(v *Value, t Type) *Value {
	if !t.IsVector() || t.Elem() != v.typ {
		panic(fmt.Sprintf("ir: broadcast of %s to %s", v.typ, t))
	}
	return p.cons(OpBroadcast, t, nil, v)
}

// Checkpoint returns a mark that Rollback can restore the
// program to. Only appends after the mark are undone; values
// created before it are unaffected.
func (p *Prog) Checkpoint() int { return len(p.values) }

// Rollback removes every value created since the given
// Checkpoint mark.
func (p *Prog) Rollback(mark int) {
	if mark > len(p.values) {
		panic("ir: rollback past end of program")
	}
	for _, v := range p.values[mark:] {
		delete(p.exprs, v.hc)
	}
	p.values = p.values[:mark]
	if p.ret != nil && p.ret.id >= mark {
		p.ret = nil
	}
}

// ReplaceAll rewrites every use of the keys of subst (argument
// references and the return value) to the corresponding new
// value. Chains in subst are followed.
func (p *Prog) ReplaceAll(subst map[*Value]*Value) {
	if len(subst) == 0 {
		return
	}
	resolve := func(v *Value) *Value {
		for {
			n, ok := subst[v]
			if !ok || n == v {
				return v
			}
			v = n
		}
	}
	for _, v := range p.values {
		if _, dead := subst[v]; dead {
			continue
		}
		for i, arg := range v.args {
			v.args[i] = resolve(arg)
		}
	}
	if p.ret != nil {
		p.ret = resolve(p.ret)
	}
}

// Compact removes every value not reachable from the return
// value, renumbers the survivors, and rebuilds the expression
// index. Definition order is kept except where ReplaceAll has
// wired an argument to a later value; such values move down
// so that definitions always precede uses.
func (p *Prog) Compact() {
	if p.ret == nil {
		return
	}
	live := make([]bool, len(p.values))
	var mark func(v *Value)
	mark = func(v *Value) {
		if live[v.id] {
			return
		}
		live[v.id] = true
		for _, arg := range v.args {
			mark(arg)
		}
	}
	mark(p.ret)
	var order []*Value
	done := make([]bool, len(p.values))
	for {
		progress := false
		for _, v := range p.values {
			if !live[v.id] || done[v.id] {
				continue
			}
			ready := true
			for _, arg := range v.args {
				if !done[arg.id] {
					ready = false
					break
				}
			}
			if ready {
				done[v.id] = true
				order = append(order, v)
				progress = true
			}
		}
		if !progress {
			break
		}
	}
	for i, v := range order {
		v.id = i
	}
	// argument ids changed; rehash so that the expression
	// index stays consistent with cons
	exprs := make(map[hashcode]*Value, len(order))
	for _, v := range order {
		v.hc = p.hash(v.op, v.typ, v.imm, v.args)
		exprs[v.hc] = v
	}
	p.values = order
	p.exprs = exprs
}

// truncbits masks x to the low bits of the given width.
func truncbits(x uint64, bits uint8) uint64 {
	if bits >= 64 {
		return x
	}
	return x & (1<<bits - 1)
}

// sextbits sign-extends the low bits of x to an int64.
func sextbits(x uint64, bits uint8) int64 {
	shift := 64 - uint(bits)
	return int64(x<<shift) >> shift
}
