// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import "sort"

// ConvertClosures turns every nested procedure's free-variable references
// into explicit by-reference parameters (spec.md §4.4), grounded on
// original_source/expr.h's FunctionAST::SetUsedVars/subFunctions protocol:
// a function's UsedVars set is computed bottom-up (children before
// parents, since a parent's free-variable set must include whatever its
// children already capture from further out), and the resulting extra
// parameters are appended to each Prototype and threaded through every
// call site that invokes it.
//
// root is the program body's FuncDecl; its Children form the top of the
// call tree. ConvertClosures must run after parsing completes and before
// lowering begins.
func ConvertClosures(root *FuncDecl) {
	order := postorder(root)
	for _, f := range order {
		computeUsedVars(f)
	}
	for _, f := range order {
		injectExtraParams(f)
	}
	rewriteCallSites(root)
}

// postorder returns every FuncDecl reachable from root, children before
// their parent (root last), so computeUsedVars always sees a child's
// finished UsedVars before folding it into the parent's.
func postorder(f *FuncDecl) []*FuncDecl {
	var out []*FuncDecl
	var walk func(*FuncDecl)
	walk = func(f *FuncDecl) {
		for _, c := range f.Children {
			walk(c)
		}
		out = append(out, f)
	}
	walk(f)
	return out
}

// computeUsedVars fills f.UsedVars with every VarDecl that f's own body
// references plus (because the children were already visited) every
// variable any descendant captures from outside itself — a descendant's
// capture of an ancestor-of-f variable must still flow through f's own
// parameter list if f sits between the two.
func computeUsedVars(f *FuncDecl) {
	f.UsedVars = map[*VarDecl]bool{}
	for _, s := range f.Body {
		collectStmtVars(s, f.UsedVars)
	}
	for _, c := range f.Children {
		for v := range c.UsedVars {
			if !ownedBy(f, v) {
				f.UsedVars[v] = true
			}
		}
	}
}

// collectStmtVars walks s and records every VarDecl a VarRef inside it
// names, into used.
func collectStmtVars(s Stmt, used map[*VarDecl]bool) {
	switch s := s.(type) {
	case *Block:
		for _, st := range s.Stmts {
			collectStmtVars(st, used)
		}
	case *AssignStmt:
		collectExprVars(s.LHS, used)
		collectExprVars(s.RHS, used)
	case *CallStmt:
		collectExprVars(s.Call, used)
	case *IfStmt:
		collectExprVars(s.Cond, used)
		collectStmtVars(s.Then, used)
		if s.Else != nil {
			collectStmtVars(s.Else, used)
		}
	case *WhileStmt:
		collectExprVars(s.Cond, used)
		collectStmtVars(s.Body, used)
	case *RepeatStmt:
		for _, st := range s.Body {
			collectStmtVars(st, used)
		}
		collectExprVars(s.Cond, used)
	case *ForStmt:
		used[s.Var] = true
		collectExprVars(s.From, used)
		collectExprVars(s.To, used)
		collectStmtVars(s.Body, used)
	case *CaseStmt:
		collectExprVars(s.Sel, used)
		for _, arm := range s.Arms {
			collectStmtVars(arm.Body, used)
		}
		if s.Other != nil {
			collectStmtVars(s.Other, used)
		}
	case *WithStmt:
		for _, r := range s.Recs {
			collectExprVars(r, used)
		}
		collectStmtVars(s.Body, used)
	case *LabelStmt:
		collectStmtVars(s.Stmt, used)
	case *WriteStmt:
		if s.File != nil {
			collectExprVars(s.File, used)
		}
		for _, a := range s.Args {
			collectExprVars(a.X, used)
			if a.Width != nil {
				collectExprVars(a.Width, used)
			}
			if a.Precision != nil {
				collectExprVars(a.Precision, used)
			}
		}
	case *ReadStmt:
		if s.File != nil {
			collectExprVars(s.File, used)
		}
		for _, a := range s.Args {
			collectExprVars(a, used)
		}
	}
}

// collectExprVars is collectStmtVars' expression-side counterpart.
func collectExprVars(e Expr, used map[*VarDecl]bool) {
	switch e := e.(type) {
	case *VarRef:
		used[e.Decl] = true
	case *ArrayIndex:
		collectExprVars(e.Base, used)
		for _, idx := range e.Indices {
			collectExprVars(idx, used)
		}
	case *Deref:
		collectExprVars(e.Base, used)
	case *FieldAccess:
		collectExprVars(e.Base, used)
	case *SetLit:
		for _, el := range e.Elems {
			collectExprVars(el, used)
		}
		for _, r := range e.Ranges {
			collectExprVars(r.Lo, used)
			collectExprVars(r.Hi, used)
		}
	case *BinaryExpr:
		collectExprVars(e.L, used)
		collectExprVars(e.R, used)
	case *UnaryExpr:
		collectExprVars(e.X, used)
	case *SizeofExpr:
		if e.Arg != nil {
			collectExprVars(e.Arg, used)
		}
	case *CallExpr:
		if e.Recv != nil {
			collectExprVars(e.Recv, used)
		}
		for _, a := range e.Args {
			collectExprVars(a, used)
		}
	case *BuiltinCall:
		for _, a := range e.Args {
			collectExprVars(a, used)
		}
	}
}

// ownedBy reports whether v is a local or parameter of f itself (as
// opposed to some ancestor) — an owned variable stops propagating
// further up since f itself will supply it, either directly or (if f is
// itself nested) via its own extra parameter.
func ownedBy(f *FuncDecl, v *VarDecl) bool { return v.Owner == f }

// FreeVars returns the subset of f.UsedVars that f does not itself own —
// the variables f needs injected as by-ref extra parameters.
func FreeVars(f *FuncDecl) []*VarDecl {
	var out []*VarDecl
	for v := range f.UsedVars {
		if !ownedBy(f, v) {
			out = append(out, v)
		}
	}
	// Stable order: declaration position, then name, so the extra-parameter
	// list (and therefore every call site's extra-argument list) is
	// deterministic across runs regardless of map iteration order.
	sort.Slice(out, func(i, j int) bool {
		pi, pj := out[i].Position(), out[j].Position()
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		if pi.Column != pj.Column {
			return pi.Column < pj.Column
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// injectExtraParams appends one by-ref Param per free variable to f's
// Prototype, in FreeVars order, and marks each captured VarDecl so the
// lowerer knows to allocate it in a way its address can outlive the
// declaring call frame's normal lifetime assumptions... in practice here
// that just means "always spill it to an alloca", which the lowerer does
// unconditionally anyway, so the marks exist purely for diagnostics.
func injectExtraParams(f *FuncDecl) {
	free := FreeVars(f)
	if len(free) == 0 {
		return
	}
	for _, v := range free {
		v.IsCaptured = true
		f.Proto.ExtraParams = append(f.Proto.ExtraParams, &Param{
			Name:  "$up$" + v.Name,
			Typ:   v.Typ,
			ByRef: true,
			Pos:   f.Proto.Position(),
		})
	}
}

// rewriteCallSites walks every FuncDecl's body and, at each CallExpr whose
// Callee has ExtraParams, appends one VarRef argument per extra parameter
// — a VarRef to the captured variable itself if the caller owns (or
// itself already received, via its own ExtraParams) that variable, which
// is always the case once extra-param injection has completed outward to
// outward along the same call-tree path.
func rewriteCallSites(root *FuncDecl) {
	var walk func(f *FuncDecl)
	walk = func(f *FuncDecl) {
		for _, s := range f.Body {
			rewriteStmtCalls(s)
		}
		for _, c := range f.Children {
			walk(c)
		}
	}
	walk(root)
}

func rewriteStmtCalls(s Stmt) {
	switch s := s.(type) {
	case *Block:
		for _, st := range s.Stmts {
			rewriteStmtCalls(st)
		}
	case *CallStmt:
		rewriteCallExpr(s.Call)
	case *AssignStmt:
		rewriteExprCalls(s.RHS)
	case *IfStmt:
		rewriteExprCalls(s.Cond)
		rewriteStmtCalls(s.Then)
		if s.Else != nil {
			rewriteStmtCalls(s.Else)
		}
	case *WhileStmt:
		rewriteExprCalls(s.Cond)
		rewriteStmtCalls(s.Body)
	case *RepeatStmt:
		for _, st := range s.Body {
			rewriteStmtCalls(st)
		}
		rewriteExprCalls(s.Cond)
	case *ForStmt:
		rewriteExprCalls(s.From)
		rewriteExprCalls(s.To)
		rewriteStmtCalls(s.Body)
	case *CaseStmt:
		rewriteExprCalls(s.Sel)
		for _, arm := range s.Arms {
			rewriteStmtCalls(arm.Body)
		}
		if s.Other != nil {
			rewriteStmtCalls(s.Other)
		}
	case *WithStmt:
		rewriteStmtCalls(s.Body)
	case *LabelStmt:
		rewriteStmtCalls(s.Stmt)
	case *WriteStmt:
		for _, a := range s.Args {
			rewriteExprCalls(a.X)
		}
	}
}

func rewriteExprCalls(e Expr) {
	switch e := e.(type) {
	case *CallExpr:
		rewriteCallExpr(e)
	case *BinaryExpr:
		rewriteExprCalls(e.L)
		rewriteExprCalls(e.R)
	case *UnaryExpr:
		rewriteExprCalls(e.X)
	case *BuiltinCall:
		for _, a := range e.Args {
			rewriteExprCalls(a)
		}
	}
}

// rewriteCallExpr appends one extra VarRef argument per entry in
// Callee.Proto.ExtraParams, each referring to the same captured VarDecl
// the callee declared the parameter for. Since the caller lies on the
// same nesting chain as the callee (a nested procedure can only be called
// from within its lexically enclosing procedure or a sibling nested
// inside the same one), and closure conversion already ran bottom-up,
// the captured VarDecl is guaranteed reachable as either a local of the
// caller or one of the caller's own already-injected extra parameters.
func rewriteCallExpr(c *CallExpr) {
	for _, a := range c.Args {
		rewriteExprCalls(a)
	}
	if c.Callee == nil || len(c.Callee.Proto.ExtraParams) == 0 {
		return
	}
	free := FreeVars(c.Callee)
	for _, v := range free {
		c.Args = append(c.Args, &VarRef{
			addrBase: addrBase{exprBase{pos: c.pos, typ: v.Typ}},
			Decl:     v,
		})
	}
}
