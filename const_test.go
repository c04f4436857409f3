// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import (
	"go/token"
	"testing"
)

func TestFoldBinaryIntArith(t *testing.T) {
	pos := token.Position{}
	a := intConst(pos, nil, 7)
	b := intConst(pos, nil, 3)
	for _, tc := range []struct {
		op   char
		want int64
	}{
		{'+', 10},
		{'-', 4},
		{'*', 21},
		{div, 2},
		{mod, 1},
		{shl, 56},
		{shr, 0},
		{and, 3},
		{or, 7},
		{xor, 4},
	} {
		got, err := foldBinary(pos, tc.op, a, b)
		if err != nil {
			t.Fatalf("op %v: %v", tc.op, err)
		}
		if got.Kind != ConstInt || got.I != tc.want {
			t.Errorf("op %v: got %v, want %d", tc.op, got, tc.want)
		}
	}
}

func TestFoldBinaryRealWidening(t *testing.T) {
	pos := token.Position{}
	a := intConst(pos, nil, 1)
	b := realConst(pos, nil, 0.5)
	got, err := foldBinary(pos, '+', a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != ConstReal || got.R != 1.5 {
		t.Errorf("got %v, want 1.5", got)
	}
}

func TestFoldBinaryDivByZero(t *testing.T) {
	pos := token.Position{}
	a := intConst(pos, nil, 1)
	z := intConst(pos, nil, 0)
	if _, err := foldBinary(pos, div, a, z); err == nil {
		t.Fatal("expected division-by-zero error")
	}
	if _, err := foldBinary(pos, mod, a, z); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestFoldBinaryBool(t *testing.T) {
	pos := token.Position{}
	tt := boolConst(pos, nil, true)
	ff := boolConst(pos, nil, false)
	if got, err := foldBinary(pos, and, tt, ff); err != nil || got.B != false {
		t.Errorf("true and false: got %v, err %v", got, err)
	}
	if got, err := foldBinary(pos, or, tt, ff); err != nil || got.B != true {
		t.Errorf("true or false: got %v, err %v", got, err)
	}
	if got, err := foldBinary(pos, xor, tt, tt); err != nil || got.B != false {
		t.Errorf("true xor true: got %v, err %v", got, err)
	}
}

func TestFoldBinaryStringConcat(t *testing.T) {
	pos := token.Position{}
	a := strConst(pos, nil, "foo")
	b := strConst(pos, nil, "bar")
	got, err := foldBinary(pos, '+', a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got.S != "foobar" {
		t.Errorf("got %q, want foobar", got.S)
	}
}

func TestFoldUnary(t *testing.T) {
	pos := token.Position{}
	n := intConst(pos, nil, 5)
	got, err := foldUnary(pos, '-', n)
	if err != nil || got.I != -5 {
		t.Errorf("negate: got %v, err %v", got, err)
	}
	b := boolConst(pos, nil, true)
	got, err = foldUnary(pos, not, b)
	if err != nil || got.B != false {
		t.Errorf("not: got %v, err %v", got, err)
	}
}

func TestConstOrdinal(t *testing.T) {
	pos := token.Position{}
	c := charConst(pos, nil, 'A')
	if ord, ok := c.Ordinal(); !ok || ord != 65 {
		t.Errorf("char ordinal: got %d, %v", ord, ok)
	}
	e := &ConstDecl{Kind: ConstEnum, Enum: &EnumValue{Name: "red", Ordinal: 2}}
	if ord, ok := e.Ordinal(); !ok || ord != 2 {
		t.Errorf("enum ordinal: got %d, %v", ord, ok)
	}
	s := strConst(pos, nil, "x")
	if _, ok := s.Ordinal(); ok {
		t.Errorf("string should not have an ordinal")
	}
}
