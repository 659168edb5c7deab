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
	"io"
	"strconv"
	"strings"
)

// Name returns the textual SSA name of this value.
func (v *Value) Name() string {
	return "%" + strconv.Itoa(v.id)
}

// String formats the right-hand side of a value definition,
// e.g. "add.i %1 %2" or "cmp.i %0 %1 $sgt".
func (v *Value) String() string {
	if v.op <= OpInvalid || v.op >= opMax {
		return "<invalid>"
	}
	var out strings.Builder
	out.WriteString(v.op.String())
	for _, arg := range v.args {
		out.WriteByte(' ')
		out.WriteString(arg.Name())
	}
	if imm := v.immString(); imm != "" {
		out.WriteString(" $")
		out.WriteString(imm)
	}
	return out.String()
}

func (v *Value) immString() string {
	switch ops[v.op].imm {
	case fmtint:
		return strconv.FormatInt(v.imm.(int64), 10)
	case fmtfloat:
		return strconv.FormatFloat(v.imm.(float64), 'g', -1, 64)
	case fmtcmpi:
		return v.imm.(CmpIPred).String()
	case fmtcmpf:
		return v.imm.(CmpFPred).String()
	}
	return ""
}

// WriteTo writes the program in its textual form: one value
// definition per line, followed by a final "ret:" line.
// The output parses back with Parse.
func (p *Prog) WriteTo(w io.Writer) (int64, error) {
	var nn int64
	for _, v := range p.values {
		n, err := fmt.Fprintf(w, "%s = %s : %s\n", v.Name(), v.String(), v.typ)
		nn += int64(n)
		if err != nil {
			return nn, err
		}
	}
	if p.ret == nil {
		return nn, nil
	}
	n, err := fmt.Fprintf(w, "ret: %s\n", p.ret.Name())
	nn += int64(n)
	return nn, err
}

// String implements fmt.Stringer using the WriteTo format.
func (p *Prog) String() string {
	var out strings.Builder
	p.WriteTo(&out)
	return out.String()
}
