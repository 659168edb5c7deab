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

// buildSample builds a program exercising every printable
// construct: both scalar kinds, vectors, immediates, and
// every op with irregular formatting.
func buildSample() *Prog {
	p := NewProg()
	a := p.Arg(0, I32)
	b := p.Arg(1, I32)
	q := p.CeilDivS(a, b)
	lt := p.CmpI(CmpSLT, q, p.ConstInt(I32, -3))
	r := p.Select(lt, q, p.ConstInt(I32, 100))

	v := p.Arg(2, Vec(4, F32))
	nan := p.ConstFloat(F32, math.NaN())
	cmp := p.CmpF(CmpUNO, v, p.Broadcast(nan, Vec(4, F32)))
	_ = cmp

	p.SetReturn(r)
	return p
}

func TestRoundTrip(t *testing.T) {
	text := buildSample().String()
	p2, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parsing printed program: %s\nprogram:\n%s", err, text)
	}
	if got := p2.String(); got != text {
		t.Errorf("round trip changed the program:\nbefore:\n%s\nafter:\n%s", text, got)
	}
}

func TestParse(t *testing.T) {
	const text = `
// comments are allowed
%0 = arg $0 : i64
%1 = const.i $-7 : i64
%2 = floordiv.s %0 %1 : i64
ret: %2
`
	p, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Eval([]Datum{IntDatum(I64, 22)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Int(0) != -4 {
		t.Errorf("floordiv.s(22, -7) = %d, want -4", got.Int(0))
	}
}

func TestParseSparseNames(t *testing.T) {
	// printed names need not be dense or ordered
	const text = `
%10 = arg $0 : i32
%5 = const.i $1 : i32
%7 = add.i %10 %5 : i32
ret: %7
`
	p, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Eval([]Datum{IntDatum(I32, 41)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Int(0) != 42 {
		t.Errorf("got %d, want 42", got.Int(0))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string // substring of the error
	}{
		{"unknown op", "%0 = frobnicate : i32\nret: %0\n", "unknown op"},
		{"use before def", "%0 = add.i %1 %1 : i32\n", "before definition"},
		{"redefinition", "%0 = arg $0 : i32\n%0 = arg $1 : i32\n", "redefined"},
		{"bad type", "%0 = arg $0 : q32\nret: %0\n", "unknown type"},
		{"bad width", "%0 = arg $0 : i65\nret: %0\n", "unknown type"},
		{"missing imm", "%0 = arg : i32\nret: %0\n", "wants an immediate"},
		{"arity", "%0 = arg $0 : i32\n%1 = add.i %0 : i32\n", "wants 2 args"},
		{"type mismatch", "%0 = arg $0 : i32\n%1 = add.i %0 %0 : i64\n", "has type i32"},
		{"mixed operands", "%0 = arg $0 : i32\n%1 = arg $1 : i64\n%2 = add.i %0 %1 : i32\n", "differ"},
		{"bad predicate", "%0 = arg $0 : i32\n%1 = cmp.i %0 %0 $weird : i1\n", "predicate"},
		{"float op on ints", "%0 = arg $0 : i32\n%1 = max.f %0 %0 : i32\n", "non-float"},
		{"trailing garbage", "%0 = arg $0 : i32\nret: %0\nret: %0\n", "trailing"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.text))
			if err == nil {
				t.Fatal("no error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestPrintImmediates(t *testing.T) {
	p := NewProg()
	a := p.Arg(0, Vec(2, F64))
	n := p.Broadcast(p.ConstFloat(F64, math.NaN()), Vec(2, F64))
	p.SetReturn(p.Select(p.CmpF(CmpOLT, a, n), a, n))
	text := p.String()
	for _, want := range []string{"$NaN", "$olt", "vec<2 x f64>"} {
		if !strings.Contains(text, want) {
			t.Errorf("printed program missing %q:\n%s", want, text)
		}
	}
	if _, err := Parse(strings.NewReader(text)); err != nil {
		t.Errorf("printed program does not parse: %s", err)
	}
}
