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
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/karst-ir/karst/ir"
)

// ApplyPartialConversion rewrites p until no op that t
// declares illegal remains. Patterns are tried in set order
// on every illegal value; replacements emitted by one sweep
// are themselves converted in the next, so rules may emit
// ops that other rules expand further.
//
// On success p contains only ops t considers legal and has
// been compacted. If a sweep makes no progress while illegal
// ops remain, p is left compacted but otherwise untouched and
// the returned error wraps ErrIncomplete. A pattern error
// other than ErrNoMatch aborts the conversion immediately;
// values staged by the failing rewrite are discarded.
func ApplyPartialConversion(p *ir.Prog, t *Target, set *PatternSet) error {
	for {
		changed := false
		subst := make(map[*ir.Value]*ir.Value)
		for _, v := range p.Values() {
			if t.IsLegal(v.Op()) {
				continue
			}
			if _, done := subst[v]; done {
				continue
			}
			repl, err := applyFirst(p, set, v)
			if err != nil {
				return fmt.Errorf("converting %s: %w", v.Op(), err)
			}
			if repl == nil {
				continue // no pattern fired; maybe next sweep
			}
			if repl.Type() != v.Type() {
				return fmt.Errorf("converting %s: replacement has type %s, want %s",
					v.Op(), repl.Type(), v.Type())
			}
			subst[v] = repl
			changed = true
		}
		p.ReplaceAll(subst)
		p.Compact()
		remaining := illegalOps(p, t)
		if len(remaining) == 0 {
			return nil
		}
		if !changed {
			return fmt.Errorf("%w: %s remain(s) illegal", ErrIncomplete, strings.Join(remaining, ", "))
		}
	}
}

// applyFirst runs the first matching pattern on v and returns
// the replacement value, or nil if no pattern fired.
func applyFirst(p *ir.Prog, set *PatternSet, v *ir.Value) (*ir.Value, error) {
	for _, pat := range set.patterns {
		if !pat.Match(v) {
			continue
		}
		b := newBuilder(p)
		err := pat.Rewrite(v, b)
		if errors.Is(err, ErrNoMatch) {
			b.discard()
			continue
		}
		if err != nil {
			b.discard()
			return nil, err
		}
		if b.repl == nil {
			b.discard()
			return nil, fmt.Errorf("pattern %T rewrote %s without naming a replacement", pat, v.Op())
		}
		return b.repl, nil
	}
	return nil, nil
}

// illegalOps returns the sorted, deduplicated names of the
// illegal ops still present in p.
func illegalOps(p *ir.Prog, t *Target) []string {
	var names []string
	for _, v := range p.Values() {
		if !t.IsLegal(v.Op()) {
			names = append(names, v.Op().String())
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}
