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

// Datum is a concrete runtime value: a scalar or a vector of
// scalars, stored as bit patterns of the element width.
type Datum struct {
	typ   Type
	lanes []uint64
}

// Type returns the type of d.
func (d Datum) Type() Type { return d.typ }

// IntDatum returns a Datum of integer type t holding the
// given lane values (one for scalars); the values are
// truncated to the element width.
func IntDatum(t Type, vs ...int64) Datum {
	if !t.IsInt() {
		panic("ir: IntDatum of type " + t.String())
	}
	if len(vs) != t.lanes() {
		panic(fmt.Sprintf("ir: %d lane values for type %s", len(vs), t))
	}
	lanes := make([]uint64, len(vs))
	for i, v := range vs {
		lanes[i] = truncbits(uint64(v), t.Bits)
	}
	return Datum{typ: t, lanes: lanes}
}

// UintDatum is IntDatum for callers holding unsigned patterns.
func UintDatum(t Type, vs ...uint64) Datum {
	if !t.IsInt() {
		panic("ir: UintDatum of type " + t.String())
	}
	if len(vs) != t.lanes() {
		panic(fmt.Sprintf("ir: %d lane values for type %s", len(vs), t))
	}
	lanes := make([]uint64, len(vs))
	for i, v := range vs {
		lanes[i] = truncbits(v, t.Bits)
	}
	return Datum{typ: t, lanes: lanes}
}

// FloatDatum returns a Datum of float type t holding the
// given lane values (one for scalars).
func FloatDatum(t Type, vs ...float64) Datum {
	if !t.IsFloat() {
		panic("ir: FloatDatum of type " + t.String())
	}
	if len(vs) != t.lanes() {
		panic(fmt.Sprintf("ir: %d lane values for type %s", len(vs), t))
	}
	lanes := make([]uint64, len(vs))
	for i, v := range vs {
		lanes[i] = storef(v, t.Bits)
	}
	return Datum{typ: t, lanes: lanes}
}

// Int returns lane i of d, sign-extended.
func (d Datum) Int(i int) int64 { return sextbits(d.lanes[i], d.typ.Bits) }

// Uint returns lane i of d, zero-extended.
func (d Datum) Uint(i int) uint64 { return d.lanes[i] }

// Float returns lane i of d as a float64.
func (d Datum) Float(i int) float64 { return loadf(d.lanes[i], d.typ.Bits) }

// IsNaN reports whether lane i of d is a floating-point NaN.
func (d Datum) IsNaN(i int) bool {
	return d.typ.IsFloat() && math.IsNaN(d.Float(i))
}

// Equal reports whether d and o have identical type and bit
// pattern. Note that NaNs compare equal lane-wise here, and
// +0 and -0 do not.
func (d Datum) Equal(o Datum) bool {
	if d.typ != o.typ || len(d.lanes) != len(o.lanes) {
		return false
	}
	for i := range d.lanes {
		if d.lanes[i] != o.lanes[i] {
			return false
		}
	}
	return true
}

// String formats d for test failures: "i32(7)" or
// "vec<2 x f32>(1, NaN)".
func (d Datum) String() string {
	out := d.typ.String() + "("
	for i := range d.lanes {
		if i > 0 {
			out += ", "
		}
		if d.typ.IsFloat() {
			out += fmt.Sprint(d.Float(i))
		} else {
			out += fmt.Sprint(d.Int(i))
		}
	}
	return out + ")"
}

// Eval runs the program over the given argument values and
// returns the value of Ret.
//
// Eval implements the reference semantics the rewrite passes
// must preserve: integer arithmetic wraps at the operand
// width (including the signed quotient of MIN and -1, which
// wraps to MIN), ordered float comparisons are false and
// unordered comparisons true in the presence of NaN, and the
// composite ops (ceildiv, floordiv, min, max) follow their
// mathematical definitions. Division by zero is reported as
// an error.
func (p *Prog) Eval(args []Datum) (Datum, error) {
	if p.ret == nil {
		return Datum{}, fmt.Errorf("ir: program has no return value")
	}
	memo := make([]Datum, len(p.values))
	for _, v := range p.values {
		d, err := p.evalValue(v, memo, args)
		if err != nil {
			return Datum{}, err
		}
		memo[v.id] = d
	}
	return memo[p.ret.id], nil
}

func (p *Prog) evalValue(v *Value, memo []Datum, args []Datum) (Datum, error) {
	n := v.typ.lanes()
	bits := v.typ.Bits
	out := Datum{typ: v.typ, lanes: make([]uint64, n)}

	switch v.op {
	case OpArg:
		i := int(v.imm.(int64))
		if i >= len(args) {
			return Datum{}, fmt.Errorf("ir: eval: missing argument %d", i)
		}
		if args[i].typ != v.typ {
			return Datum{}, fmt.Errorf("ir: eval: argument %d is %s, want %s", i, args[i].typ, v.typ)
		}
		return args[i], nil
	case OpConstInt:
		c := truncbits(uint64(v.imm.(int64)), bits)
		for i := range out.lanes {
			out.lanes[i] = c
		}
		return out, nil
	case OpConstFloat:
		out.lanes[0] = storef(v.imm.(float64), bits)
		return out, nil
	case OpBroadcast:
		c := memo[v.args[0].id].lanes[0]
		for i := range out.lanes {
			out.lanes[i] = c
		}
		return out, nil
	case OpSelect:
		cond := memo[v.args[0].id]
		a := memo[v.args[1].id]
		b := memo[v.args[2].id]
		for i := range out.lanes {
			if cond.lanes[i] != 0 {
				out.lanes[i] = a.lanes[i]
			} else {
				out.lanes[i] = b.lanes[i]
			}
		}
		return out, nil
	case OpCmpI:
		pred := v.imm.(CmpIPred)
		a := memo[v.args[0].id]
		b := memo[v.args[1].id]
		ebits := v.args[0].typ.Bits
		for i := range out.lanes {
			if evalCmpI(pred, a.lanes[i], b.lanes[i], ebits) {
				out.lanes[i] = 1
			}
		}
		return out, nil
	case OpCmpF:
		pred := v.imm.(CmpFPred)
		a := memo[v.args[0].id]
		b := memo[v.args[1].id]
		ebits := v.args[0].typ.Bits
		for i := range out.lanes {
			if evalCmpF(pred, loadf(a.lanes[i], ebits), loadf(b.lanes[i], ebits)) {
				out.lanes[i] = 1
			}
		}
		return out, nil
	}

	// the remaining ops are element-wise binary ops
	a := memo[v.args[0].id]
	b := memo[v.args[1].id]
	for i := range out.lanes {
		r, err := evalBinop(v.op, a.lanes[i], b.lanes[i], bits)
		if err != nil {
			return Datum{}, err
		}
		out.lanes[i] = r
	}
	return out, nil
}

func evalBinop(op Op, a, b uint64, bits uint8) (uint64, error) {
	as, bs := sextbits(a, bits), sextbits(b, bits)
	switch op {
	case OpAdd:
		return truncbits(a+b, bits), nil
	case OpSub:
		return truncbits(a-b, bits), nil
	case OpMul:
		return truncbits(a*b, bits), nil
	case OpAnd:
		return a & b, nil
	case OpOr:
		return a | b, nil
	case OpXor:
		return a ^ b, nil
	case OpDivS:
		if bs == 0 {
			return 0, fmt.Errorf("ir: eval: signed division by zero")
		}
		return truncbits(uint64(as/bs), bits), nil
	case OpRemS:
		if bs == 0 {
			return 0, fmt.Errorf("ir: eval: signed division by zero")
		}
		return truncbits(uint64(as%bs), bits), nil
	case OpDivU:
		if b == 0 {
			return 0, fmt.Errorf("ir: eval: unsigned division by zero")
		}
		return a / b, nil
	case OpRemU:
		if b == 0 {
			return 0, fmt.Errorf("ir: eval: unsigned division by zero")
		}
		return a % b, nil
	case OpCeilDivU:
		if b == 0 {
			return 0, fmt.Errorf("ir: eval: unsigned division by zero")
		}
		q := a / b
		if a%b != 0 {
			q++
		}
		return truncbits(q, bits), nil
	case OpCeilDivS:
		if bs == 0 {
			return 0, fmt.Errorf("ir: eval: signed division by zero")
		}
		q, r := as/bs, as%bs
		if r != 0 && (as < 0) == (bs < 0) {
			q++
		}
		return truncbits(uint64(q), bits), nil
	case OpFloorDivS:
		if bs == 0 {
			return 0, fmt.Errorf("ir: eval: signed division by zero")
		}
		q, r := as/bs, as%bs
		if r != 0 && (as < 0) != (bs < 0) {
			q--
		}
		return truncbits(uint64(q), bits), nil
	case OpMaxS:
		if as > bs {
			return a, nil
		}
		return b, nil
	case OpMinS:
		if as < bs {
			return a, nil
		}
		return b, nil
	case OpMaxU:
		if a > b {
			return a, nil
		}
		return b, nil
	case OpMinU:
		if a < b {
			return a, nil
		}
		return b, nil
	case OpMaxF, OpMinF:
		af, bf := loadf(a, bits), loadf(b, bits)
		if math.IsNaN(af) || math.IsNaN(bf) {
			return storef(math.NaN(), bits), nil
		}
		if (op == OpMaxF && af > bf) || (op == OpMinF && af < bf) {
			return a, nil
		}
		return b, nil
	}
	return 0, fmt.Errorf("ir: eval: op %s not evaluable", op)
}

func evalCmpI(pred CmpIPred, a, b uint64, bits uint8) bool {
	as, bs := sextbits(a, bits), sextbits(b, bits)
	switch pred {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpSLT:
		return as < bs
	case CmpSLE:
		return as <= bs
	case CmpSGT:
		return as > bs
	case CmpSGE:
		return as >= bs
	case CmpULT:
		return a < b
	case CmpULE:
		return a <= b
	case CmpUGT:
		return a > b
	case CmpUGE:
		return a >= b
	}
	panic("ir: bad cmp.i predicate")
}

func evalCmpF(pred CmpFPred, a, b float64) bool {
	switch pred {
	case CmpOEQ:
		return a == b
	case CmpONE:
		return !math.IsNaN(a) && !math.IsNaN(b) && a != b
	case CmpOLT:
		return a < b
	case CmpOLE:
		return a <= b
	case CmpOGT:
		return a > b
	case CmpOGE:
		return a >= b
	case CmpORD:
		return !math.IsNaN(a) && !math.IsNaN(b)
	case CmpUNO:
		return math.IsNaN(a) || math.IsNaN(b)
	}
	panic("ir: bad cmp.f predicate")
}

// loadf widens the bit pattern of an element-width float to
// a float64.
func loadf(bits uint64, width uint8) float64 {
	if width == 32 {
		return float64(math.Float32frombits(uint32(bits)))
	}
	return math.Float64frombits(bits)
}

// storef narrows a float64 to the bit pattern of an
// element-width float.
func storef(f float64, width uint8) uint64 {
	if width == 32 {
		return uint64(math.Float32bits(float32(f)))
	}
	return math.Float64bits(f)
}
