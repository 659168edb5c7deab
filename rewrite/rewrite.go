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

// Package rewrite implements pattern-driven rewriting of ir
// programs: a Pattern matches one value and emits replacement
// values through a Builder, and ApplyPartialConversion drives
// a pattern set over a program until no op the Target declares
// illegal remains.
package rewrite

import (
	"errors"

	"github.com/karst-ir/karst/ir"
)

// ErrNoMatch is returned by Pattern.Rewrite when the matched
// value does not satisfy the pattern's preconditions after
// all; the driver moves on to the next pattern. Values built
// before returning ErrNoMatch are discarded.
var ErrNoMatch = errors.New("pattern does not match")

// ErrIncomplete is returned (wrapped) by
// ApplyPartialConversion when illegal ops remain after the
// pattern set has been applied to a fixed point.
var ErrIncomplete = errors.New("conversion incomplete")

// Pattern is one rewrite rule. Match performs the cheap op
// test; Rewrite emits the replacement graph for a matched
// value and names its root via Builder.Replace.
type Pattern interface {
	Match(v *ir.Value) bool
	Rewrite(v *ir.Value, b *Builder) error
}

// PatternSet is an ordered collection of patterns. The zero
// PatternSet is ready to use.
type PatternSet struct {
	patterns []Pattern
}

// Add appends patterns to the set.
func (s *PatternSet) Add(patterns ...Pattern) {
	s.patterns = append(s.patterns, patterns...)
}

// Len returns the number of patterns in the set.
func (s *PatternSet) Len() int { return len(s.patterns) }

// Target declares which op kinds may remain in a program
// after conversion. Ops not declared either way are treated
// as legal; partial conversion only chases illegal ops.
type Target struct {
	legal   map[ir.Op]bool
	illegal map[ir.Op]bool
}

// NewTarget returns a Target with no declarations.
func NewTarget() *Target {
	return &Target{
		legal:   make(map[ir.Op]bool),
		illegal: make(map[ir.Op]bool),
	}
}

// Legal declares ops legal. Declaring an op both ways panics.
func (t *Target) Legal(ops ...ir.Op) *Target {
	for _, op := range ops {
		if t.illegal[op] {
			panic("rewrite: op " + op.String() + " declared both legal and illegal")
		}
		t.legal[op] = true
	}
	return t
}

// Illegal declares ops illegal: conversion must erase them.
func (t *Target) Illegal(ops ...ir.Op) *Target {
	for _, op := range ops {
		if t.legal[op] {
			panic("rewrite: op " + op.String() + " declared both legal and illegal")
		}
		t.illegal[op] = true
	}
	return t
}

// IsLegal reports whether op may remain after conversion.
func (t *Target) IsLegal(op ir.Op) bool { return !t.illegal[op] }

// Pass is a named program transformation.
type Pass interface {
	Name() string
	Run(p *ir.Prog) error
}

type funcPass struct {
	name string
	run  func(*ir.Prog) error
}

func (f *funcPass) Name() string         { return f.name }
func (f *funcPass) Run(p *ir.Prog) error { return f.run(p) }

// NewPass returns a Pass that applies run.
func NewPass(name string, run func(*ir.Prog) error) Pass {
	return &funcPass{name: name, run: run}
}
