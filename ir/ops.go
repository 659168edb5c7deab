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

// Op identifies the operation that produces a Value.
type Op int

const (
	OpInvalid Op = iota

	OpArg        // function argument (imm: index)
	OpConstInt   // integer constant, splat for vectors (imm: int64)
	OpConstFloat // scalar float constant (imm: float64)

	// primitive integer arithmetic; operands and
	// result share one integer type
	OpAdd  // val = arg0 + arg1 (wrapping)
	OpSub  // val = arg0 - arg1 (wrapping)
	OpMul  // val = arg0 * arg1 (wrapping)
	OpDivS // val = arg0 / arg1, signed, round toward zero
	OpDivU // val = arg0 / arg1, unsigned
	OpRemS // val = arg0 % arg1, signed
	OpRemU // val = arg0 % arg1, unsigned
	OpAnd  // val = arg0 & arg1
	OpOr   // val = arg0 | arg1
	OpXor  // val = arg0 ^ arg1

	OpCmpI // i1 = cmp(arg0, arg1) (imm: CmpIPred)
	OpCmpF // i1 = cmp(arg0, arg1) (imm: CmpFPred)

	OpSelect    // val = arg0 ? arg1 : arg2
	OpBroadcast // vec = splat(arg0)

	// composite ops; legalization expands these
	// into the primitives above
	OpCeilDivU  // val = ceil(arg0 / arg1), unsigned
	OpCeilDivS  // val = ceil(arg0 / arg1), signed
	OpFloorDivS // val = floor(arg0 / arg1), signed
	OpMaxF      // val = max(arg0, arg1), NaN-propagating
	OpMinF      // val = min(arg0, arg1), NaN-propagating
	OpMaxS      // val = max(arg0, arg1), signed
	OpMaxU      // val = max(arg0, arg1), unsigned
	OpMinS      // val = min(arg0, arg1), signed
	OpMinU      // val = min(arg0, arg1), unsigned

	opMax
)

// CmpIPred is an integer comparison predicate.
type CmpIPred int

const (
	CmpEq  CmpIPred = iota // equal
	CmpNe                  // not equal
	CmpSLT                 // signed less-than
	CmpSLE                 // signed less-or-equal
	CmpSGT                 // signed greater-than
	CmpSGE                 // signed greater-or-equal
	CmpULT                 // unsigned less-than
	CmpULE                 // unsigned less-or-equal
	CmpUGT                 // unsigned greater-than
	CmpUGE                 // unsigned greater-or-equal
)

var cmpiText = [...]string{
	CmpEq:  "eq",
	CmpNe:  "ne",
	CmpSLT: "slt",
	CmpSLE: "sle",
	CmpSGT: "sgt",
	CmpSGE: "sge",
	CmpULT: "ult",
	CmpULE: "ule",
	CmpUGT: "ugt",
	CmpUGE: "uge",
}

func (p CmpIPred) String() string {
	if p < 0 || int(p) >= len(cmpiText) {
		return "<bad cmpi pred>"
	}
	return cmpiText[p]
}

// CmpFPred is a float comparison predicate. The ordered
// predicates (o*) yield false when either operand is NaN;
// CmpUNO yields true exactly when either operand is NaN.
type CmpFPred int

const (
	CmpOEQ CmpFPred = iota // ordered equal
	CmpONE                 // ordered not-equal
	CmpOLT                 // ordered less-than
	CmpOLE                 // ordered less-or-equal
	CmpOGT                 // ordered greater-than
	CmpOGE                 // ordered greater-or-equal
	CmpORD                 // ordered (neither operand NaN)
	CmpUNO                 // unordered (either operand NaN)
)

var cmpfText = [...]string{
	CmpOEQ: "oeq",
	CmpONE: "one",
	CmpOLT: "olt",
	CmpOLE: "ole",
	CmpOGT: "ogt",
	CmpOGE: "oge",
	CmpORD: "ord",
	CmpUNO: "uno",
}

func (p CmpFPred) String() string {
	if p < 0 || int(p) >= len(cmpfText) {
		return "<bad cmpf pred>"
	}
	return cmpfText[p]
}

// immediate formatting/parsing discipline for an op
type immfmt uint8

const (
	fmtnone  immfmt = iota // no immediate
	fmtint                 // imm is an int64
	fmtfloat               // imm is a float64
	fmtcmpi                // imm is a CmpIPred
	fmtcmpf                // imm is a CmpFPred
)

type opinfo struct {
	text  string
	argc  int // argument count
	imm   immfmt
	inval bool // integer-only operand types
}

var ops = [opMax]opinfo{
	OpInvalid:    {text: "invalid"},
	OpArg:        {text: "arg", imm: fmtint},
	OpConstInt:   {text: "const.i", imm: fmtint},
	OpConstFloat: {text: "const.f", imm: fmtfloat},
	OpAdd:        {text: "add.i", argc: 2, inval: true},
	OpSub:        {text: "sub.i", argc: 2, inval: true},
	OpMul:        {text: "mul.i", argc: 2, inval: true},
	OpDivS:       {text: "div.s", argc: 2, inval: true},
	OpDivU:       {text: "div.u", argc: 2, inval: true},
	OpRemS:       {text: "rem.s", argc: 2, inval: true},
	OpRemU:       {text: "rem.u", argc: 2, inval: true},
	OpAnd:        {text: "and.i", argc: 2, inval: true},
	OpOr:         {text: "or.i", argc: 2, inval: true},
	OpXor:        {text: "xor.i", argc: 2, inval: true},
	OpCmpI:       {text: "cmp.i", argc: 2, imm: fmtcmpi, inval: true},
	OpCmpF:       {text: "cmp.f", argc: 2, imm: fmtcmpf},
	OpSelect:     {text: "select", argc: 3},
	OpBroadcast:  {text: "broadcast", argc: 1},
	OpCeilDivU:   {text: "ceildiv.u", argc: 2, inval: true},
	OpCeilDivS:   {text: "ceildiv.s", argc: 2, inval: true},
	OpFloorDivS:  {text: "floordiv.s", argc: 2, inval: true},
	OpMaxF:       {text: "max.f", argc: 2},
	OpMinF:       {text: "min.f", argc: 2},
	OpMaxS:       {text: "max.s", argc: 2, inval: true},
	OpMaxU:       {text: "max.u", argc: 2, inval: true},
	OpMinS:       {text: "min.s", argc: 2, inval: true},
	OpMinU:       {text: "min.u", argc: 2, inval: true},
}

func (o Op) String() string {
	if o <= OpInvalid || o >= opMax {
		return "<bad op>"
	}
	return ops[o].text
}

// opByName maps the textual op name back to its Op;
// built once for the parser.
var opByName = func() map[string]Op {
	m := make(map[string]Op, opMax)
	for o := OpInvalid + 1; o < opMax; o++ {
		m[ops[o].text] = o
	}
	return m
}()

var cmpiByName = func() map[string]CmpIPred {
	m := make(map[string]CmpIPred, len(cmpiText))
	for p, s := range cmpiText {
		m[s] = CmpIPred(p)
	}
	return m
}()

var cmpfByName = func() map[string]CmpFPred {
	m := make(map[string]CmpFPred, len(cmpfText))
	for p, s := range cmpfText {
		m[s] = CmpFPred(p)
	}
	return m
}()
