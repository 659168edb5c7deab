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
	"math"
	"strings"
	"testing"
)

// evalBin builds and evaluates a single binary op over i-typed args.
func evalBin(t *testing.T, op func(p *Prog, a, b *Value) *Value, typ Type, a, b Datum) (Datum, error) {
	t.Helper()
	p := NewProg()
	p.SetReturn(op(p, p.Arg(0, typ), p.Arg(1, typ)))
	return p.Eval([]Datum{a, b})
}

func mustEvalBin(t *testing.T, op func(p *Prog, a, b *Value) *Value, typ Type, a, b Datum) Datum {
	t.Helper()
	d, err := evalBin(t, op, typ, a, b)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestEvalIntArith(t *testing.T) {
	tests := []struct {
		name string
		op   func(p *Prog, a, b *Value) *Value
		typ  Type
		a, b int64
		want int64
	}{
		{"add", (*Prog).Add, I32, 1, 2, 3},
		{"add wraps", (*Prog).Add, I32, math.MaxInt32, 1, math.MinInt32},
		{"add wraps narrow", (*Prog).Add, Int(4), 7, 1, -8},
		{"sub wraps", (*Prog).Sub, I32, math.MinInt32, 1, math.MaxInt32},
		{"mul", (*Prog).Mul, I8, 16, 16, 0},
		{"divs trunc", (*Prog).DivS, I32, -7, 2, -3},
		{"divs min wraps", (*Prog).DivS, I32, math.MinInt32, -1, math.MinInt32},
		{"divu", (*Prog).DivU, I32, -1, 2, math.MaxInt32}, // -1 is UMAX
		{"rems", (*Prog).RemS, I32, -7, 2, -1},
		{"remu", (*Prog).RemU, I8, -1, 10, 5}, // 255 % 10
		{"and", (*Prog).And, I8, 0b1100, 0b1010, 0b1000},
		{"or", (*Prog).Or, I8, 0b1100, 0b1010, 0b1110},
		{"xor", (*Prog).Xor, I8, 0b1100, 0b1010, 0b0110},
		{"ceildivu", (*Prog).CeilDivU, I32, 7, 2, 4},
		{"ceildivs", (*Prog).CeilDivS, I32, -7, 2, -3},
		{"floordivs", (*Prog).FloorDivS, I32, -7, 2, -4},
		{"maxs", (*Prog).MaxS, I32, -1, 1, 1},
		{"maxu", (*Prog).MaxU, I32, -1, 1, -1}, // -1 is UMAX
		{"mins", (*Prog).MinS, I32, -1, 1, -1},
		{"minu", (*Prog).MinU, I32, -1, 1, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := mustEvalBin(t, tc.op, tc.typ, IntDatum(tc.typ, tc.a), IntDatum(tc.typ, tc.b))
			if got.Int(0) != sextbits(truncbits(uint64(tc.want), tc.typ.Bits), tc.typ.Bits) {
				t.Errorf("got %s, want %d", got, tc.want)
			}
		})
	}
}

func TestEvalDivByZero(t *testing.T) {
	for _, op := range []func(p *Prog, a, b *Value) *Value{
		(*Prog).DivS, (*Prog).DivU, (*Prog).RemS, (*Prog).RemU,
		(*Prog).CeilDivU, (*Prog).CeilDivS, (*Prog).FloorDivS,
	} {
		_, err := evalBin(t, op, I32, IntDatum(I32, 1), IntDatum(I32, 0))
		if err == nil || !strings.Contains(err.Error(), "division by zero") {
			t.Errorf("expected division-by-zero error, got %v", err)
		}
	}
}

func TestEvalCmpI(t *testing.T) {
	tests := []struct {
		pred CmpIPred
		a, b int64
		want bool
	}{
		{CmpEq, 3, 3, true},
		{CmpEq, 3, 4, false},
		{CmpNe, 3, 4, true},
		{CmpSLT, -1, 0, true},
		{CmpULT, -1, 0, false}, // -1 is UMAX
		{CmpSGT, 0, -1, true},
		{CmpUGT, 0, -1, false},
		{CmpSLE, -1, -1, true},
		{CmpUGE, -1, 0, true},
		{CmpULE, 1, -1, true},
		{CmpSGE, -2, -1, false},
	}
	for _, tc := range tests {
		p := NewProg()
		p.SetReturn(p.CmpI(tc.pred, p.Arg(0, I16), p.Arg(1, I16)))
		got, err := p.Eval([]Datum{IntDatum(I16, tc.a), IntDatum(I16, tc.b)})
		if err != nil {
			t.Fatal(err)
		}
		if (got.Uint(0) == 1) != tc.want {
			t.Errorf("cmp.i $%s (%d, %d) = %s, want %v", tc.pred, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestEvalCmpF(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		pred CmpFPred
		a, b float64
		want bool
	}{
		{CmpOGT, 2, 1, true},
		{CmpOGT, 1, 2, false},
		{CmpOGT, nan, 1, false},
		{CmpOGT, 1, nan, false},
		{CmpOLT, 1, 2, true},
		{CmpOLT, nan, nan, false},
		{CmpOEQ, 1, 1, true},
		{CmpOEQ, nan, nan, false},
		{CmpONE, nan, 1, false},
		{CmpONE, 1, 2, true},
		{CmpORD, 1, 2, true},
		{CmpORD, nan, 2, false},
		{CmpUNO, nan, 2, true},
		{CmpUNO, 2, nan, true},
		{CmpUNO, 1, 2, false},
		{CmpOLE, 1, 1, true},
		{CmpOGE, 1, 2, false},
	}
	for _, tc := range tests {
		for _, typ := range []Type{F32, F64} {
			p := NewProg()
			p.SetReturn(p.CmpF(tc.pred, p.Arg(0, typ), p.Arg(1, typ)))
			got, err := p.Eval([]Datum{FloatDatum(typ, tc.a), FloatDatum(typ, tc.b)})
			if err != nil {
				t.Fatal(err)
			}
			if (got.Uint(0) == 1) != tc.want {
				t.Errorf("cmp.f $%s (%v, %v) %s = %s, want %v", tc.pred, tc.a, tc.b, typ, got, tc.want)
			}
		}
	}
}

func TestEvalMinMaxFloat(t *testing.T) {
	nan := math.NaN()
	p := NewProg()
	p.SetReturn(p.MaxF(p.Arg(0, F64), p.Arg(1, F64)))
	got, err := p.Eval([]Datum{FloatDatum(F64, nan), FloatDatum(F64, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsNaN(0) {
		t.Errorf("max.f(NaN, 3) = %s, want NaN", got)
	}
	got, err = p.Eval([]Datum{FloatDatum(F64, 1), FloatDatum(F64, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Float(0) != 3 {
		t.Errorf("max.f(1, 3) = %s, want 3", got)
	}
}

func TestEvalVector(t *testing.T) {
	vt := Vec(4, I32)
	p := NewProg()
	a := p.Arg(0, vt)
	b := p.Arg(1, vt)
	p.SetReturn(p.Select(p.CmpI(CmpSGT, a, b), a, b))
	got, err := p.Eval([]Datum{
		IntDatum(vt, 1, 5, -3, 0),
		IntDatum(vt, 2, 4, -4, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := IntDatum(vt, 2, 5, -3, 0)
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestEvalBroadcast(t *testing.T) {
	vt := Vec(3, F32)
	p := NewProg()
	p.SetReturn(p.Broadcast(p.ConstFloat(F32, 2.5), vt))
	got, err := p.Eval(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(FloatDatum(vt, 2.5, 2.5, 2.5)) {
		t.Errorf("got %s", got)
	}
}

func TestEvalErrors(t *testing.T) {
	p := NewProg()
	p.Arg(0, I32)
	if _, err := p.Eval([]Datum{IntDatum(I32, 1)}); err == nil {
		t.Error("expected error for program without return")
	}
	p.SetReturn(p.Arg(0, I32))
	if _, err := p.Eval(nil); err == nil {
		t.Error("expected error for missing argument")
	}
	if _, err := p.Eval([]Datum{IntDatum(I64, 1)}); err == nil {
		t.Error("expected error for argument type mismatch")
	}
}
