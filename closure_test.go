// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import "testing"

// buildNested constructs:
//
//	procedure outer;
//	  var x: integer;
//	  procedure inner;
//	  begin
//	    x := x + 1;  { captures x }
//	  end;
//	begin
//	  inner;
//	end;
func buildNested() (outer, inner *FuncDecl, x *VarDecl) {
	outer = &FuncDecl{Proto: &Prototype{Name: "outer"}}
	inner = &FuncDecl{Proto: &Prototype{Name: "inner"}, Parent: outer}
	outer.Children = []*FuncDecl{inner}

	x = &VarDecl{Name: "x", Owner: outer}
	outer.Locals = []*VarDecl{x}

	xref := &VarRef{Decl: x}
	assign := &AssignStmt{LHS: xref, RHS: &BinaryExpr{Op: '+', L: &VarRef{Decl: x}, R: &IntLit{V: 1}}}
	inner.Body = []Stmt{assign}

	call := &CallExpr{Callee: inner}
	outer.Body = []Stmt{&CallStmt{Call: call}}
	return outer, inner, x
}

func TestConvertClosuresCapturesFreeVar(t *testing.T) {
	outer, inner, x := buildNested()
	ConvertClosures(outer)

	if !x.IsCaptured {
		t.Fatal("x should be marked captured")
	}
	if len(inner.Proto.ExtraParams) != 1 {
		t.Fatalf("inner should gain 1 extra param, got %d", len(inner.Proto.ExtraParams))
	}
	if !inner.Proto.ExtraParams[0].ByRef {
		t.Error("captured extra param must be by-ref")
	}

	call := outer.Body[0].(*CallStmt).Call
	if len(call.Args) != 1 {
		t.Fatalf("call site should gain 1 extra arg, got %d", len(call.Args))
	}
	ref, ok := call.Args[0].(*VarRef)
	if !ok || ref.Decl != x {
		t.Errorf("extra call arg should reference x, got %#v", call.Args[0])
	}
}

func TestConvertClosuresNoCaptureNoExtras(t *testing.T) {
	outer := &FuncDecl{Proto: &Prototype{Name: "outer"}}
	inner := &FuncDecl{Proto: &Prototype{Name: "inner"}, Parent: outer}
	outer.Children = []*FuncDecl{inner}
	inner.Body = []Stmt{&Block{}}
	outer.Body = []Stmt{&CallStmt{Call: &CallExpr{Callee: inner}}}

	ConvertClosures(outer)

	if len(inner.Proto.ExtraParams) != 0 {
		t.Errorf("inner should gain no extra params, got %d", len(inner.Proto.ExtraParams))
	}
}

func TestFreeVarsDeterministicOrder(t *testing.T) {
	outer, inner, x := buildNested()
	y := &VarDecl{Name: "y", Owner: outer, pos: x.pos}
	outer.Locals = append(outer.Locals, y)
	inner.Body = append(inner.Body, &AssignStmt{LHS: &VarRef{Decl: y}, RHS: &VarRef{Decl: y}})

	computeUsedVars(inner)
	free := FreeVars(inner)
	if len(free) != 2 {
		t.Fatalf("expected 2 free vars, got %d", len(free))
	}
	if free[0] != x || free[1] != y {
		t.Errorf("expected [x y] (same position, ordered by name), got [%s %s]", free[0].Name, free[1].Name)
	}
}
