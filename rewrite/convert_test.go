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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karst-ir/karst/ir"
)

// maxToSelect is a working pattern: max.s -> compare+select.
type maxToSelect struct{}

func (maxToSelect) Match(v *ir.Value) bool { return v.Op() == ir.OpMaxS }

func (maxToSelect) Rewrite(v *ir.Value, b *Builder) error {
	lhs, rhs := v.Arg(0), v.Arg(1)
	b.Replace(b.Select(b.CmpI(ir.CmpSGT, lhs, rhs), lhs, rhs))
	return nil
}

// failing is a pattern that stages garbage and then errors.
type failing struct{ err error }

func (failing) Match(v *ir.Value) bool { return v.Op() == ir.OpMaxS }

func (f failing) Rewrite(v *ir.Value, b *Builder) error {
	b.Add(b.ConstInt(v.Type(), 1), b.ConstInt(v.Type(), 2))
	return f.err
}

// badType replaces an op with a value of the wrong type.
type badType struct{}

func (badType) Match(v *ir.Value) bool { return v.Op() == ir.OpMaxS }

func (badType) Rewrite(v *ir.Value, b *Builder) error {
	b.Replace(b.CmpI(ir.CmpSGT, v.Arg(0), v.Arg(1)))
	return nil
}

// forgetful matches but never names a replacement.
type forgetful struct{}

func (forgetful) Match(v *ir.Value) bool { return v.Op() == ir.OpMaxS }

func (forgetful) Rewrite(v *ir.Value, b *Builder) error { return nil }

func maxProg() *ir.Prog {
	p := ir.NewProg()
	p.SetReturn(p.MaxS(p.Arg(0, ir.I32), p.Arg(1, ir.I32)))
	return p
}

func maxTarget() *Target {
	t := NewTarget()
	t.Legal(ir.OpArg, ir.OpConstInt, ir.OpAdd, ir.OpCmpI, ir.OpSelect)
	t.Illegal(ir.OpMaxS)
	return t
}

func TestConversion(t *testing.T) {
	p := maxProg()
	var set PatternSet
	set.Add(maxToSelect{})
	require.NoError(t, ApplyPartialConversion(p, maxTarget(), &set))

	for _, v := range p.Values() {
		assert.NotEqual(t, ir.OpMaxS, v.Op(), "illegal op survived conversion")
	}
	d, err := p.Eval([]ir.Datum{ir.IntDatum(ir.I32, -5), ir.IntDatum(ir.I32, 3)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.Int(0))
}

// A legal op that uses a rewritten value must end up after
// the replacement graph, or the printed program would use
// values before defining them.
func TestConversionReordersUses(t *testing.T) {
	p := ir.NewProg()
	a := p.Arg(0, ir.I32)
	b := p.Arg(1, ir.I32)
	p.SetReturn(p.Add(p.MaxS(a, b), a))
	var set PatternSet
	set.Add(maxToSelect{})
	require.NoError(t, ApplyPartialConversion(p, maxTarget(), &set))

	seen := make(map[*ir.Value]bool)
	for _, v := range p.Values() {
		for i := 0; i < v.NumArgs(); i++ {
			assert.True(t, seen[v.Arg(i)], "%s uses %s before its definition", v.Name(), v.Arg(i).Name())
		}
		seen[v] = true
	}
	d, err := p.Eval([]ir.Datum{ir.IntDatum(ir.I32, -5), ir.IntDatum(ir.I32, 3)})
	require.NoError(t, err)
	assert.Equal(t, int64(-2), d.Int(0)) // max(-5,3) + -5

	_, err = ir.Parse(strings.NewReader(p.String()))
	require.NoError(t, err, "printed program must parse back")
}

func TestConversionIncomplete(t *testing.T) {
	p := maxProg()
	var set PatternSet // empty: nothing can fire
	err := ApplyPartialConversion(p, maxTarget(), &set)
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "max.s")
}

func TestConversionLegalOpsUntouched(t *testing.T) {
	p := ir.NewProg()
	p.SetReturn(p.Add(p.Arg(0, ir.I32), p.Arg(1, ir.I32)))
	before := p.String()
	var set PatternSet
	set.Add(maxToSelect{})
	require.NoError(t, ApplyPartialConversion(p, maxTarget(), &set))
	assert.Equal(t, before, p.String())
}

func TestConversionRollsBackFailedRewrite(t *testing.T) {
	p := maxProg()
	n := p.NumValues()
	boom := errors.New("boom")
	var set PatternSet
	set.Add(failing{err: boom})
	err := ApplyPartialConversion(p, maxTarget(), &set)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, n, p.NumValues(), "staged values not rolled back")
}

func TestConversionNoMatchFallsThrough(t *testing.T) {
	p := maxProg()
	var set PatternSet
	set.Add(failing{err: ErrNoMatch}, maxToSelect{})
	require.NoError(t, ApplyPartialConversion(p, maxTarget(), &set))
	d, err := p.Eval([]ir.Datum{ir.IntDatum(ir.I32, 7), ir.IntDatum(ir.I32, 3)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.Int(0))
}

func TestConversionRejectsBadReplacementType(t *testing.T) {
	p := maxProg()
	var set PatternSet
	set.Add(badType{})
	err := ApplyPartialConversion(p, maxTarget(), &set)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replacement has type")
}

func TestConversionRejectsMissingReplacement(t *testing.T) {
	p := maxProg()
	var set PatternSet
	set.Add(forgetful{})
	err := ApplyPartialConversion(p, maxTarget(), &set)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without naming a replacement")
}

func TestTargetDeclarations(t *testing.T) {
	tgt := NewTarget()
	tgt.Legal(ir.OpAdd).Illegal(ir.OpMaxS)
	assert.True(t, tgt.IsLegal(ir.OpAdd))
	assert.True(t, tgt.IsLegal(ir.OpSub), "undeclared ops are legal")
	assert.False(t, tgt.IsLegal(ir.OpMaxS))
	assert.Panics(t, func() { tgt.Legal(ir.OpMaxS) })
	assert.Panics(t, func() { tgt.Illegal(ir.OpAdd) })
}
