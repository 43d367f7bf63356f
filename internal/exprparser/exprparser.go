// Package exprparser implements the string grammar of spec §4.9:
//
//	expr := op_name "(" expr ("," expr)? ")" | "var" uint | signed-decimal
//
// grounded on the original's stringparser.cpp (recursive descent with
// explicit "(", ",", ")" checks) and shaped like the teacher's own
// Parser struct (a cursor over an input with accumulated errors).
package exprparser

import (
	"strconv"
	"strings"

	"symreg/internal/nodekind"
	"symreg/internal/symerr"
	"symreg/internal/tree"
)

type parser struct {
	src        string
	pos        int
	numVars    int
	allowedOps map[string]nodekind.Kind
	root       *tree.Root
}

// Parse parses src into a fresh tree rooted in a new Root with numVars
// variable slots, accepting only the operators in ops. Failures report
// a message, the offending substring, and the position (§7.3) and leave
// no partially constructed tree behind.
func Parse(src string, numVars int, ops []nodekind.Kind) (*tree.Root, error) {
	allowed := make(map[string]nodekind.Kind, len(ops))
	for _, k := range ops {
		allowed[k.String()] = k
	}
	p := &parser{src: src, numVars: numVars, allowedOps: allowed, root: tree.NewEmpty(numVars)}

	rootSlot, err := p.parseExpr(tree.NoSlot)
	if err != nil {
		p.root.Free()
		return nil, err
	}
	p.root.SetRootSlot(rootSlot)

	p.skipSpace()
	if p.pos != len(p.src) {
		p.root.Free()
		return nil, p.errorAt("unexpected trailing input")
	}
	p.root.RecomputeForm()
	return p.root, nil
}

func (p *parser) parseExpr(parent int) (int, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return tree.NoSlot, p.errorAt("unexpected end of expression")
	}
	c := p.src[p.pos]
	switch {
	case isAlpha(c):
		if p.looksLikeVar() {
			return p.parseVariable(parent)
		}
		return p.parseOperator(parent)
	case isDigit(c) || c == '+' || c == '-' || c == '.':
		return p.parseConstant(parent)
	default:
		return tree.NoSlot, p.errorAt("expected an operator, 'varN', or a constant")
	}
}

func (p *parser) looksLikeVar() bool {
	if !strings.HasPrefix(p.src[p.pos:], "var") {
		return false
	}
	after := p.pos + 3
	return after < len(p.src) && isDigit(p.src[after])
}

func (p *parser) parseVariable(parent int) (int, error) {
	p.pos += 3
	start := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	idx, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		return tree.NoSlot, p.errorAt("malformed variable index")
	}
	if idx < 0 || idx >= p.numVars {
		return tree.NoSlot, p.errorAt("variable index out of range")
	}
	return p.root.NewVariableLeaf(parent, idx), nil
}

func (p *parser) parseConstant(parent int) (int, error) {
	start := p.pos
	if p.src[p.pos] == '+' || p.src[p.pos] == '-' {
		p.pos++
	}
	digitsStart := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	if p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
	}
	if p.pos < len(p.src) && (p.src[p.pos] == 'e' || p.src[p.pos] == 'E') {
		mark := p.pos
		p.pos++
		if p.pos < len(p.src) && (p.src[p.pos] == '+' || p.src[p.pos] == '-') {
			p.pos++
		}
		expStart := p.pos
		for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == expStart {
			p.pos = mark // no exponent digits: back off, treat 'e' as trailing garbage
		}
	}
	if p.pos == digitsStart {
		return tree.NoSlot, p.errorAt("expected a decimal constant")
	}
	val, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return tree.NoSlot, p.errorAt("malformed constant")
	}
	return p.root.NewConstantLeaf(parent, val), nil
}

func (p *parser) parseOperator(parent int) (int, error) {
	start := p.pos
	for p.pos < len(p.src) && isAlpha(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	kind, ok := p.allowedOps[name]
	if !ok {
		return tree.NoSlot, p.errorAt("unknown or disabled operator " + strconv.Quote(name))
	}

	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return tree.NoSlot, p.errorAt("expected '(' after operator name")
	}
	p.pos++

	opSlot := p.root.NewOperator(parent, kind)
	arity := nodekind.Arity(kind)
	for i := 0; i < arity; i++ {
		if i > 0 {
			p.skipSpace()
			if p.pos >= len(p.src) || p.src[p.pos] != ',' {
				return tree.NoSlot, p.errorAt("expected ',' between operator arguments")
			}
			p.pos++
		}
		child, err := p.parseExpr(opSlot)
		if err != nil {
			return tree.NoSlot, err
		}
		p.root.ReplaceChild(opSlot, i, child)
	}

	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != ')' {
		return tree.NoSlot, p.errorAt("expected ')' to close operator")
	}
	p.pos++
	return opSlot, nil
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) errorAt(message string) error {
	end := p.pos + 12
	if end > len(p.src) {
		end = len(p.src)
	}
	offending := p.src[p.pos:end]
	return symerr.NewParse(message, offending, p.pos)
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
