// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import (
	"fmt"
	"go/token"
)

// ConstKind tags which field of ConstDecl holds the folded value.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstReal
	ConstChar
	ConstBool
	ConstString
	ConstEnum
)

// ConstDecl is a fully folded compile-time constant: the result of the
// constant evaluator (spec.md §4.2), carried everywhere a case-label, an
// array bound, a subrange endpoint, or a `const` initializer needs one.
type ConstDecl struct {
	pos  token.Position
	Name string // empty for an unnamed constant produced mid-expression
	Kind ConstKind
	Typ  Type

	I    int64
	R    float64
	Ch   byte
	B    bool
	S    string
	Enum *EnumValue
}

func (c *ConstDecl) Position() token.Position { return c.pos }

// String renders the constant's value for diagnostics and IR dumps.
func (c *ConstDecl) String() string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d", c.I)
	case ConstReal:
		return fmt.Sprintf("%g", c.R)
	case ConstChar:
		return fmt.Sprintf("%q", rune(c.Ch))
	case ConstBool:
		return fmt.Sprintf("%t", c.B)
	case ConstString:
		return fmt.Sprintf("%q", c.S)
	case ConstEnum:
		return c.Enum.Name
	default:
		return "<const>"
	}
}

// Ordinal reports the constant's integer ordinal, valid for every kind
// usable as a case-label or subrange endpoint (spec.md §4.1's ordinal
// types: Integer, Char, Bool, Enum, Subrange).
func (c *ConstDecl) Ordinal() (int64, bool) {
	switch c.Kind {
	case ConstInt:
		return c.I, true
	case ConstChar:
		return int64(c.Ch), true
	case ConstBool:
		if c.B {
			return 1, true
		}
		return 0, true
	case ConstEnum:
		return int64(c.Enum.Ordinal), true
	default:
		return 0, false
	}
}

// intConst builds an integer ConstDecl for a registry's Integer type.
func intConst(pos token.Position, typ Type, v int64) *ConstDecl {
	return &ConstDecl{pos: pos, Kind: ConstInt, Typ: typ, I: v}
}

func realConst(pos token.Position, typ Type, v float64) *ConstDecl {
	return &ConstDecl{pos: pos, Kind: ConstReal, Typ: typ, R: v}
}

func charConst(pos token.Position, typ Type, v byte) *ConstDecl {
	return &ConstDecl{pos: pos, Kind: ConstChar, Typ: typ, Ch: v}
}

func boolConst(pos token.Position, typ Type, v bool) *ConstDecl {
	return &ConstDecl{pos: pos, Kind: ConstBool, Typ: typ, B: v}
}

func strConst(pos token.Position, typ Type, v string) *ConstDecl {
	return &ConstDecl{pos: pos, Kind: ConstString, Typ: typ, S: v}
}

// foldUnary applies a prefix `+`, `-`, or `not` to an already-folded
// operand, per spec.md §4.2's requirement that the dialect's full
// operator set (including shl/shr/xor) is available at constant-fold
// time.
func foldUnary(pos token.Position, op char, a *ConstDecl) (*ConstDecl, error) {
	switch op {
	case '+':
		return a, nil
	case '-':
		switch a.Kind {
		case ConstInt:
			return intConst(pos, a.Typ, -a.I), nil
		case ConstReal:
			return realConst(pos, a.Typ, -a.R), nil
		}
	case not:
		if a.Kind == ConstBool {
			return boolConst(pos, a.Typ, !a.B), nil
		}
	}
	return nil, fmt.Errorf("%v: invalid unary operand for %s", pos, op.str())
}

// foldBinary applies a dyadic operator to two already-folded operands.
// Integer and real arithmetic mix per ISO 6.7.2.1 (an int operand
// widens to real when the other is real); shl/shr/xor/and/or/div/mod
// follow the dialect's extensions (spec.md §6).
func foldBinary(pos token.Position, op char, a, b *ConstDecl) (*ConstDecl, error) {
	if a.Kind == ConstReal || b.Kind == ConstReal {
		if isArithOp(op) {
			x, y := asReal(a), asReal(b)
			switch op {
			case '+':
				return realConst(pos, a.Typ, x+y), nil
			case '-':
				return realConst(pos, a.Typ, x-y), nil
			case '*':
				return realConst(pos, a.Typ, x*y), nil
			case '/':
				return realConst(pos, a.Typ, x/y), nil
			}
		}
		return foldCompare(pos, op, asReal(a), asReal(b))
	}
	if a.Kind == ConstInt && b.Kind == ConstInt {
		x, y := a.I, b.I
		switch op {
		case '+':
			return intConst(pos, a.Typ, x+y), nil
		case '-':
			return intConst(pos, a.Typ, x-y), nil
		case '*':
			return intConst(pos, a.Typ, x*y), nil
		case div:
			if y == 0 {
				return nil, fmt.Errorf("%v: division by zero", pos)
			}
			return intConst(pos, a.Typ, x/y), nil
		case mod:
			if y == 0 {
				return nil, fmt.Errorf("%v: division by zero", pos)
			}
			return intConst(pos, a.Typ, x%y), nil
		case shl:
			return intConst(pos, a.Typ, x<<uint(y)), nil
		case shr:
			return intConst(pos, a.Typ, x>>uint(y)), nil
		case and:
			return intConst(pos, a.Typ, x&y), nil
		case or:
			return intConst(pos, a.Typ, x|y), nil
		case xor:
			return intConst(pos, a.Typ, x^y), nil
		}
		return foldCompare(pos, op, float64(x), float64(y))
	}
	if a.Kind == ConstBool && b.Kind == ConstBool {
		switch op {
		case and:
			return boolConst(pos, a.Typ, a.B && b.B), nil
		case or:
			return boolConst(pos, a.Typ, a.B || b.B), nil
		case xor:
			return boolConst(pos, a.Typ, a.B != b.B), nil
		}
	}
	if a.Kind == ConstString && b.Kind == ConstString && op == '+' {
		return strConst(pos, a.Typ, a.S+b.S), nil
	}
	return nil, fmt.Errorf("%v: invalid constant operands for %s", pos, op.str())
}

func isArithOp(op char) bool {
	switch op {
	case '+', '-', '*', '/':
		return true
	}
	return false
}

func asReal(c *ConstDecl) float64 {
	if c.Kind == ConstReal {
		return c.R
	}
	return float64(c.I)
}

func foldCompare(pos token.Position, op char, x, y float64) (*ConstDecl, error) {
	var v bool
	switch op {
	case '=':
		v = x == y
	case ne:
		v = x != y
	case '<':
		v = x < y
	case le:
		v = x <= y
	case '>':
		v = x > y
	case ge:
		v = x >= y
	default:
		return nil, fmt.Errorf("%v: not a comparison: %s", pos, op.str())
	}
	return boolConst(pos, nil, v), nil
}
