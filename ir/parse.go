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
	"math"
	"os"
	"strconv"
	"strings"
	"text/scanner"
)

// Parse reads a program in the textual form produced by
// Prog.WriteTo. Value names in the input need not be dense
// or ordered, but every argument must be defined before use.
func Parse(r io.Reader) (*Prog, error) {
	s := new(scanner.Scanner)
	s = s.Init(r)
	if f, ok := r.(*os.File); ok {
		s.Position.Filename = f.Name()
	}
	var firstErr error
	s.Error = func(s *scanner.Scanner, msg string) {
		if firstErr == nil {
			firstErr = fmt.Errorf("%s:%d:%d: %s", s.Filename, s.Line, s.Column, msg)
		}
	}
	p := &parser{src: s, prog: NewProg(), named: make(map[int]*Value)}
	err := p.run()
	if err == nil {
		err = firstErr
	}
	if err != nil {
		return nil, err
	}
	return p.prog, nil
}

// parser is an LL(1) parser over the printed program form
type parser struct {
	src     *scanner.Scanner
	prog    *Prog
	named   map[int]*Value // printed name -> constructed value
	la      rune           // lookahead character
	lavalid bool           // lookahead is valid
}

func (p *parser) peek() rune {
	if !p.lavalid {
		p.la = p.src.Scan()
		p.lavalid = true
	}
	return p.la
}

func (p *parser) next() rune {
	r := p.peek()
	p.lavalid = false
	return r
}

func (p *parser) errorf(f string, args ...any) error {
	pos := p.src.Pos()
	return fmt.Errorf("%s:%d:%d: %s", pos.Filename, pos.Line, pos.Column, fmt.Sprintf(f, args...))
}

func (p *parser) expect(r rune) error {
	if got := p.next(); got != r {
		return p.errorf("expected %s, found %s %q",
			scanner.TokenString(r), scanner.TokenString(got), p.src.TokenText())
	}
	return nil
}

func (p *parser) run() error {
	for p.peek() != scanner.EOF {
		if p.peek() == scanner.Ident && p.src.TokenText() == "ret" {
			return p.ret()
		}
		if err := p.def(); err != nil {
			return err
		}
	}
	return nil
}

// ret parses the trailing "ret: %N" line
func (p *parser) ret() error {
	p.next() // consume "ret"
	if err := p.expect(':'); err != nil {
		return err
	}
	v, err := p.valref()
	if err != nil {
		return err
	}
	p.prog.SetReturn(v)
	if p.peek() != scanner.EOF {
		return p.errorf("trailing input after ret")
	}
	return nil
}

// def parses one "%N = op args $imm : type" line
func (p *parser) def() error {
	if err := p.expect('%'); err != nil {
		return err
	}
	if err := p.expect(scanner.Int); err != nil {
		return err
	}
	name, _ := strconv.Atoi(p.src.TokenText())
	if _, ok := p.named[name]; ok {
		return p.errorf("%%%d redefined", name)
	}
	if err := p.expect('='); err != nil {
		return err
	}
	op, err := p.opname()
	if err != nil {
		return err
	}
	var args []*Value
	for p.peek() == '%' {
		v, err := p.valref()
		if err != nil {
			return err
		}
		args = append(args, v)
	}
	var imm any
	if p.peek() == '$' {
		p.next()
		imm, err = p.imm(op)
		if err != nil {
			return err
		}
	}
	if err := p.expect(':'); err != nil {
		return err
	}
	typ, err := p.typ()
	if err != nil {
		return err
	}
	v, err := p.construct(op, imm, args, typ)
	if err != nil {
		return err
	}
	p.named[name] = v
	return nil
}

func (p *parser) valref() (*Value, error) {
	if err := p.expect('%'); err != nil {
		return nil, err
	}
	if err := p.expect(scanner.Int); err != nil {
		return nil, err
	}
	name, _ := strconv.Atoi(p.src.TokenText())
	v, ok := p.named[name]
	if !ok {
		return nil, p.errorf("%%%d used before definition", name)
	}
	return v, nil
}

// opname parses ident { '.' ident }
func (p *parser) opname() (Op, error) {
	if err := p.expect(scanner.Ident); err != nil {
		return OpInvalid, err
	}
	text := p.src.TokenText()
	for p.peek() == '.' {
		p.next()
		if err := p.expect(scanner.Ident); err != nil {
			return OpInvalid, err
		}
		text += "." + p.src.TokenText()
	}
	op, ok := opByName[text]
	if !ok {
		return OpInvalid, p.errorf("unknown op %q", text)
	}
	return op, nil
}

func (p *parser) imm(op Op) (any, error) {
	switch ops[op].imm {
	case fmtint:
		return p.intImm()
	case fmtfloat:
		return p.floatImm()
	case fmtcmpi:
		if err := p.expect(scanner.Ident); err != nil {
			return nil, err
		}
		pred, ok := cmpiByName[p.src.TokenText()]
		if !ok {
			return nil, p.errorf("unknown cmp.i predicate %q", p.src.TokenText())
		}
		return pred, nil
	case fmtcmpf:
		if err := p.expect(scanner.Ident); err != nil {
			return nil, err
		}
		pred, ok := cmpfByName[p.src.TokenText()]
		if !ok {
			return nil, p.errorf("unknown cmp.f predicate %q", p.src.TokenText())
		}
		return pred, nil
	}
	return nil, p.errorf("op %s takes no immediate", op)
}

func (p *parser) intImm() (int64, error) {
	neg := false
	if p.peek() == '-' {
		p.next()
		neg = true
	}
	if err := p.expect(scanner.Int); err != nil {
		return 0, err
	}
	// parse as unsigned so that the full 64-bit
	// pattern (e.g. const.i $-1 : i64, printed back
	// as a negative number) round-trips
	u, err := strconv.ParseUint(p.src.TokenText(), 0, 64)
	if err != nil {
		return 0, p.errorf("bad integer %q: %s", p.src.TokenText(), err)
	}
	v := int64(u)
	if neg {
		v = -v
	}
	return v, nil
}

func (p *parser) floatImm() (float64, error) {
	neg := false
	switch p.peek() {
	case '-':
		p.next()
		neg = true
	case '+':
		p.next()
	}
	var v float64
	switch r := p.next(); r {
	case scanner.Float, scanner.Int:
		f, err := strconv.ParseFloat(p.src.TokenText(), 64)
		if err != nil {
			return 0, p.errorf("bad float %q: %s", p.src.TokenText(), err)
		}
		v = f
	case scanner.Ident:
		switch text := p.src.TokenText(); text {
		case "NaN":
			v = math.NaN()
		case "Inf":
			v = math.Inf(1)
		default:
			return 0, p.errorf("bad float %q", text)
		}
	default:
		return 0, p.errorf("expected float, found %s %q",
			scanner.TokenString(r), p.src.TokenText())
	}
	if neg {
		v = -v
	}
	return v, nil
}

// typ parses "i32", "f64", "vec<4 x f32>", etc.
func (p *parser) typ() (Type, error) {
	if err := p.expect(scanner.Ident); err != nil {
		return Type{}, err
	}
	text := p.src.TokenText()
	if text != "vec" {
		return p.scalarTyp(text)
	}
	if err := p.expect('<'); err != nil {
		return Type{}, err
	}
	if err := p.expect(scanner.Int); err != nil {
		return Type{}, err
	}
	lanes, _ := strconv.Atoi(p.src.TokenText())
	if err := p.expect(scanner.Ident); err != nil {
		return Type{}, err
	}
	if p.src.TokenText() != "x" {
		return Type{}, p.errorf("expected \"x\" in vector type, found %q", p.src.TokenText())
	}
	if err := p.expect(scanner.Ident); err != nil {
		return Type{}, err
	}
	elem, err := p.scalarTyp(p.src.TokenText())
	if err != nil {
		return Type{}, err
	}
	if err := p.expect('>'); err != nil {
		return Type{}, err
	}
	if lanes < 1 || lanes > 1<<16-1 {
		return Type{}, p.errorf("bad lane count %d", lanes)
	}
	return Vec(lanes, elem), nil
}

func (p *parser) scalarTyp(text string) (Type, error) {
	if len(text) < 2 || (text[0] != 'i' && text[0] != 'f') {
		return Type{}, p.errorf("unknown type %q", text)
	}
	bits, err := strconv.Atoi(text[1:])
	if err != nil {
		return Type{}, p.errorf("unknown type %q", text)
	}
	t := Type{Kind: KindInt, Bits: uint8(bits)}
	if text[0] == 'f' {
		t.Kind = KindFloat
	}
	if bits < 1 || bits > 64 || !t.Valid() {
		return Type{}, p.errorf("unknown type %q", text)
	}
	return t, nil
}

// construct builds the parsed definition through the typed
// Prog constructors so that parsed programs satisfy the same
// invariants as programmatically built ones. Constructor
// panics (operand type confusion) surface as parse errors.
func (p *parser) construct(op Op, imm any, args []*Value, typ Type) (v *Value, err error) {
	defer func() {
		if e := recover(); e != nil {
			v, err = nil, p.errorf("%s", strings.TrimPrefix(fmt.Sprint(e), "ir: "))
		}
	}()
	if len(args) != ops[op].argc {
		return nil, p.errorf("op %s wants %d args, found %d", op, ops[op].argc, len(args))
	}
	if ops[op].imm != fmtnone && imm == nil {
		return nil, p.errorf("op %s wants an immediate", op)
	}
	prog := p.prog
	switch op {
	case OpArg:
		v = prog.Arg(int(imm.(int64)), typ)
	case OpConstInt:
		v = prog.ConstInt(typ, imm.(int64))
	case OpConstFloat:
		v = prog.ConstFloat(typ, imm.(float64))
	case OpCmpI:
		v = prog.CmpI(imm.(CmpIPred), args[0], args[1])
	case OpCmpF:
		v = prog.CmpF(imm.(CmpFPred), args[0], args[1])
	case OpSelect:
		v = prog.Select(args[0], args[1], args[2])
	case OpBroadcast:
		v = prog.Broadcast(args[0], typ)
	case OpMaxF, OpMinF:
		v = prog.fminmax(op, args[0], args[1])
	default:
		v = prog.binop(op, args[0], args[1])
	}
	if v.typ != typ {
		return nil, p.errorf("op %s has type %s, not %s", op, v.typ, typ)
	}
	return v, nil
}
