/*
Copyright 2025 The rime-sim Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package shape

import (
	"fmt"
	"strconv"
	"unicode"
)

// Parse turns an expression string into an Expr. The grammar is ordinary
// integer arithmetic over dimension names:
//
//	expr   := term   { ("+" | "-") term }
//	term   := factor { "*" factor }
//	factor := integer | name | "(" expr ")"
func Parse(input string) (Expr, error) {
	p := &parser{input: input}
	p.next()
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
	return expr, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokName
	tokPlus
	tokMinus
	tokStar
	tokLParen
	tokRParen
	tokInvalid
)

type token struct {
	kind tokenKind
	text string
}

type parser struct {
	input string
	pos   int
	tok   token
}

func (p *parser) errorf(format string, args ...any) error {
	return &InvalidExpressionError{Input: p.input, Reason: fmt.Sprintf(format, args...)}
}

// next advances to the following token.
func (p *parser) next() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
	if p.pos >= len(p.input) {
		p.tok = token{kind: tokEOF}
		return
	}

	c := p.input[p.pos]
	switch {
	case c == '+':
		p.pos++
		p.tok = token{kind: tokPlus, text: "+"}
	case c == '-':
		p.pos++
		p.tok = token{kind: tokMinus, text: "-"}
	case c == '*':
		p.pos++
		p.tok = token{kind: tokStar, text: "*"}
	case c == '(':
		p.pos++
		p.tok = token{kind: tokLParen, text: "("}
	case c == ')':
		p.pos++
		p.tok = token{kind: tokRParen, text: ")"}
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
			p.pos++
		}
		p.tok = token{kind: tokInt, text: p.input[start:p.pos]}
	case isNameRune(rune(c)):
		start := p.pos
		for p.pos < len(p.input) && isNameRune(rune(p.input[p.pos])) {
			p.pos++
		}
		p.tok = token{kind: tokName, text: p.input[start:p.pos]}
	default:
		p.tok = token{kind: tokInvalid, text: string(c)}
	}
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (p *parser) parseExpr() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokPlus || p.tok.kind == tokMinus {
		op := Add
		if p.tok.kind == tokMinus {
			op = Sub
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: op, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokStar {
		p.next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = &BinOp{Op: Mul, L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseFactor() (Expr, error) {
	switch p.tok.kind {
	case tokInt:
		v, err := strconv.Atoi(p.tok.text)
		if err != nil {
			return nil, p.errorf("bad integer literal %q", p.tok.text)
		}
		p.next()
		return Lit(v), nil
	case tokName:
		name := p.tok.text
		p.next()
		return Dim(name), nil
	case tokLParen:
		p.next()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.next()
		return inner, nil
	case tokEOF:
		return nil, p.errorf("unexpected end of expression")
	default:
		return nil, p.errorf("unexpected %q", p.tok.text)
	}
}
