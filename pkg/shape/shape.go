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

// Package shape resolves symbolic array shapes against a dimension table.
//
// A shape is a sequence of expressions, each either an integer literal, a
// dimension name, or arithmetic over dimension names ("nsrc+1", "3*nbl").
// Expressions are parsed once, at registration time, into a small closed
// AST; evaluation happens repeatedly against the live dimension values.
//
// The budget planner resolves shapes with a dimension excluded: an excluded
// name evaluates to 1 wherever it appears, which strips that dimension's
// contribution from the byte cost of an array.
package shape

import (
	"fmt"
	"strings"

	"github.com/rime-sim/rime-solver-runtime/pkg/dims"
)

// InvalidExpressionError reports a malformed shape expression.
type InvalidExpressionError struct {
	Input  string
	Reason string
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid shape expression %q: %s", e.Input, e.Reason)
}

// Expr is one resolved-to-integer element of a symbolic shape.
type Expr interface {
	// Eval computes the expression's value. Names in exclude evaluate to 1.
	Eval(table *dims.Table, exclude map[string]struct{}) (int, error)

	// References reports whether the expression mentions the named dimension.
	References(name string) bool

	fmt.Stringer
}

// Lit is an integer literal.
type Lit int

func (l Lit) Eval(*dims.Table, map[string]struct{}) (int, error) { return int(l), nil }
func (l Lit) References(string) bool                             { return false }
func (l Lit) String() string                                     { return fmt.Sprintf("%d", int(l)) }

// Dim references a named dimension.
type Dim string

func (d Dim) Eval(table *dims.Table, exclude map[string]struct{}) (int, error) {
	if _, excluded := exclude[string(d)]; excluded {
		return 1, nil
	}
	return table.Value(string(d))
}

func (d Dim) References(name string) bool { return string(d) == name }
func (d Dim) String() string              { return string(d) }

// Op is an arithmetic operator.
type Op byte

const (
	Add Op = '+'
	Sub Op = '-'
	Mul Op = '*'
)

// BinOp combines two sub-expressions with an operator.
type BinOp struct {
	Op   Op
	L, R Expr
}

func (b *BinOp) Eval(table *dims.Table, exclude map[string]struct{}) (int, error) {
	l, err := b.L.Eval(table, exclude)
	if err != nil {
		return 0, err
	}
	r, err := b.R.Eval(table, exclude)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case Add:
		return l + r, nil
	case Sub:
		return l - r, nil
	case Mul:
		return l * r, nil
	default:
		return 0, &InvalidExpressionError{Input: b.String(), Reason: fmt.Sprintf("unknown operator %q", b.Op)}
	}
}

func (b *BinOp) References(name string) bool {
	return b.L.References(name) || b.R.References(name)
}

func (b *BinOp) String() string {
	return fmt.Sprintf("%s%c%s", b.L, b.Op, b.R)
}

// Shape is an ordered sequence of symbolic extents.
type Shape []Expr

// Of builds a Shape from a mix of ints, dimension names and expression
// strings. It is the registration-time entry point: parsing failures are
// reported here, never during evaluation.
func Of(elems ...any) (Shape, error) {
	s := make(Shape, 0, len(elems))
	for _, e := range elems {
		switch v := e.(type) {
		case int:
			if v < 0 {
				return nil, &InvalidExpressionError{Input: fmt.Sprintf("%d", v), Reason: "literal extents cannot be negative"}
			}
			s = append(s, Lit(v))
		case string:
			expr, err := Parse(v)
			if err != nil {
				return nil, err
			}
			s = append(s, expr)
		case Expr:
			s = append(s, v)
		default:
			return nil, &InvalidExpressionError{Input: fmt.Sprintf("%v", e), Reason: fmt.Sprintf("unsupported extent type %T", e)}
		}
	}
	return s, nil
}

// MustOf is Of for statically known shapes; it panics on a parse failure.
func MustOf(elems ...any) Shape {
	s, err := Of(elems...)
	if err != nil {
		panic(err)
	}
	return s
}

// References reports whether any extent mentions the named dimension.
func (s Shape) References(name string) bool {
	for _, e := range s {
		if e.References(name) {
			return true
		}
	}
	return false
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Resolve evaluates every extent against the table. Names listed in exclude
// evaluate to 1; the caller interprets the excluded dimension separately.
func Resolve(s Shape, table *dims.Table, exclude map[string]struct{}) ([]int, error) {
	out := make([]int, len(s))
	for i, e := range s {
		v, err := e.Eval(table, exclude)
		if err != nil {
			return nil, err
		}
		if v < 0 {
			return nil, &InvalidExpressionError{
				Input:  e.String(),
				Reason: fmt.Sprintf("extent evaluated to negative value %d", v),
			}
		}
		out[i] = v
	}
	return out, nil
}

// Product returns the element count of a resolved shape. The empty shape is
// a scalar with one element.
func Product(resolved []int) int {
	n := 1
	for _, v := range resolved {
		n *= v
	}
	return n
}
