// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import (
	"fmt"

	"modernc.org/pascalc/diag"
	"modernc.org/pascalc/ssa"
)

// Lowerer drives a ssa.Builder from a resolved, closure-converted program.
// It holds no state of its own beyond the current function's local
// address slots and block; spec.md §4.5 treats the backend purely as an
// instruction sink, so everything about control flow (loop/if/case block
// wiring) lives here rather than in Builder.
type Lowerer struct {
	b    ssa.Builder
	reg  *Registry
	sink *diag.Sink

	fn      ssa.Func
	addrs   map[*VarDecl]ssa.Value // alloca'd slot, or the by-ref pointer param itself
	labels  map[int]ssa.Block
	pending map[int][]func(ssa.Block) // goto emitted before its label's block exists
}

// NewLowerer returns a Lowerer emitting through b.
func NewLowerer(b ssa.Builder, reg *Registry, sink *diag.Sink) *Lowerer {
	return &Lowerer{b: b, reg: reg, sink: sink}
}

// LowerProgram lowers every function in the call tree rooted at root (the
// program body), grounded on original_source/expr.cpp's FunctionAST
// codegen order: children may be defined before or after their parent,
// since a parent's only reference to a child is a direct call by mangled
// name, resolved by symbol name rather than forward declaration order.
func (lw *Lowerer) LowerProgram(root *FuncDecl) {
	var walk func(*FuncDecl)
	walk = func(f *FuncDecl) {
		lw.lowerFunc(f)
		for _, c := range f.Children {
			walk(c)
		}
	}
	walk(root)
}

func (lw *Lowerer) lowerFunc(f *FuncDecl) {
	defer func() {
		if e := recover(); e != nil {
			lw.sink.Internalf(f.Position(), "lowering %s: %v", f.Proto.Name, e)
		}
	}()
	name := f.Proto.MangledName
	if name == "" {
		name = f.Proto.Name
	}
	irFn := lw.b.DeclareFunc(name, lw.reg.funcIRType(f.Proto))
	entry := lw.b.DefineFunc(irFn)
	lw.fn = irFn
	lw.b.SetBlock(entry)
	lw.addrs = map[*VarDecl]ssa.Value{}
	lw.labels = map[int]ssa.Block{}
	lw.pending = map[int][]func(ssa.Block){}

	argi := 0
	if f.Proto.Recv != nil {
		argi++ // self; the lowerer's receiver access goes through lowerRecv, not addrs
	}
	free := FreeVars(f)
	for i, p := range f.Proto.AllParams() {
		v := findParamVar(f, p)
		if j := i - len(f.Proto.Params); j >= 0 && j < len(free) {
			v = free[j] // closure extra params follow Params in FreeVars order
		}
		arg := lw.b.Param(irFn, argi)
		argi++
		if v == nil {
			continue
		}
		if p.ByRef {
			lw.addrs[v] = arg // already a pointer: the extra/by-ref param IS the slot
			continue
		}
		slot := lw.b.Alloca(lw.reg.irTypeOf(v.Typ))
		lw.b.Store(slot, arg)
		lw.addrs[v] = slot
	}
	for _, v := range f.Locals {
		if _, ok := lw.addrs[v]; ok {
			continue
		}
		lw.addrs[v] = lw.b.Alloca(lw.reg.irTypeOf(v.Typ))
	}

	for _, s := range f.Body {
		lw.lowerStmt(s)
	}
	if f.Proto.Result == nil {
		lw.b.RetVoid()
	} else if rv, ok := lw.addrs[resultVar(f)]; ok {
		lw.b.Ret(lw.b.Load(rv))
	} else {
		lw.b.RetVoid()
	}
}

func findParamVar(f *FuncDecl, p *Param) *VarDecl {
	for _, v := range f.Locals {
		if v.Name == p.Name && v.IsParam {
			return v
		}
	}
	return nil
}

// resultVar finds the function-name-as-result-variable local ISO Pascal
// uses for a function's return value.
func resultVar(f *FuncDecl) *VarDecl {
	for _, v := range f.Locals {
		if v.Name == f.Proto.Name {
			return v
		}
	}
	return nil
}

// -- addressing --

// addr returns the memory address of an Addressable expression.
func (lw *Lowerer) addr(e Addressable) ssa.Value {
	switch e := e.(type) {
	case *VarRef:
		if slot, ok := lw.addrs[e.Decl]; ok {
			return slot
		}
		panic(fmt.Sprintf("%v: unresolved variable slot for %s", e.Position(), e.Decl.Name))
	case *FieldAccess:
		base := lw.addr(e.Base)
		return lw.b.GEP(base, lw.b.ConstInt(0), lw.b.ConstInt(int64(fieldIndex(e.Base.exprType(), e.Field))))
	case *ArrayIndex:
		base := lw.addr(e.Base)
		at := e.Base.exprType().(*ArrayType)
		idx := lw.linearArrayIndex(at, e.Indices)
		return lw.b.GEP(base, lw.b.ConstInt(0), idx)
	case *Deref:
		return lw.lowerExpr(e.Base)
	}
	panic(fmt.Sprintf("%v: not addressable", e.Position()))
}

// fieldIndex finds f's position among t's materialized struct fields —
// vtable pointer slot (if any) counted first for an ObjectType, then
// inherited fields, then t's own, matching the exact order IRType builds
// (registry.go's AllFields / ObjectType.IRType).
func fieldIndex(t Type, f *Field) int {
	switch t := t.(type) {
	case *RecordType:
		for i, fld := range t.Fields {
			if fld == f {
				return i
			}
		}
	case *ObjectType:
		base := 0
		// caller must pass the same *Registry wherever AllFields is
		// needed for the count; fieldIndex only needs position within
		// the already-known field, not size math, so recompute inline.
		var chain []*ObjectType
		for o := t; o != nil; o = o.Base {
			chain = append(chain, o)
		}
		if t.HasVtable() {
			base = 1
		}
		idx := base
		for i := len(chain) - 1; i >= 0; i-- {
			for _, fld := range chain[i].Fields {
				if fld == f {
					return idx
				}
				idx++
			}
		}
	}
	return 0
}

// linearArrayIndex flattens a multi-dimensional index list into one
// offset, subtracting each dimension's low bound then applying its
// stride (spec.md §4.5's multi-dim array lowering), grounded on
// original_source/expr.cpp's ArrayExprAST codegen.
func (lw *Lowerer) linearArrayIndex(at *ArrayType, indices []Expr) ssa.Value {
	var offset ssa.Value
	stride := 1
	for i := len(at.Dims) - 1; i >= 0; i-- {
		dim := at.Dims[i]
		v := lw.lowerExpr(indices[i])
		lo := lw.b.ConstInt(int64(dim.Low))
		rel := lw.b.Sub(v, lo)
		term := rel
		if stride != 1 {
			term = lw.b.Mul(rel, lw.b.ConstInt(int64(stride)))
		}
		if offset == nil {
			offset = term
		} else {
			offset = lw.b.Add(offset, term)
		}
		stride *= dim.Size()
	}
	return offset
}

// -- expressions --

func (lw *Lowerer) lowerExpr(e Expr) ssa.Value {
	switch e := e.(type) {
	case *IntLit:
		return lw.b.ConstInt(e.V)
	case *RealLit:
		return lw.b.ConstReal(e.V)
	case *CharLit:
		return lw.b.ConstChar(e.V)
	case *BoolLit:
		return lw.b.ConstBool(e.V)
	case *StrLit:
		return lw.b.ConstBytes(lw.reg.irTypeOf(e.typ), []byte(e.V))
	case *ConstRef:
		return lw.lowerConst(e.Decl)
	case *VarRef:
		return lw.b.Load(lw.addr(e))
	case *FieldAccess:
		return lw.b.Load(lw.addr(e))
	case *ArrayIndex:
		return lw.b.Load(lw.addr(e))
	case *Deref:
		return lw.b.Load(lw.addr(e))
	case *BinaryExpr:
		return lw.lowerBinary(e)
	case *UnaryExpr:
		x := lw.lowerExpr(e.X)
		switch e.Op {
		case '-':
			return lw.b.Neg(x)
		case '+':
			return x
		case not:
			return lw.b.Not(x)
		}
	case *SizeofExpr:
		t := e.ArgType
		if t == nil {
			t = e.Arg.exprType()
		}
		return lw.b.ConstInt(int64(lw.reg.Size(t)))
	case *CallExpr:
		return lw.lowerCall(e)
	case *BuiltinCall:
		return lw.lowerBuiltin(e)
	case *FuncDesignator:
		fn := lw.b.DeclareFunc(e.Decl.Proto.MangledName, lw.reg.funcIRType(e.Decl.Proto))
		return lw.b.FuncValue(fn)
	case *SetLit:
		return lw.lowerSetLit(e)
	}
	panic(fmt.Sprintf("%v: unhandled expression %T", e.Position(), e))
}

func (lw *Lowerer) lowerConst(c *ConstDecl) ssa.Value {
	switch c.Kind {
	case ConstInt:
		return lw.b.ConstInt(c.I)
	case ConstReal:
		return lw.b.ConstReal(c.R)
	case ConstChar:
		return lw.b.ConstChar(c.Ch)
	case ConstBool:
		return lw.b.ConstBool(c.B)
	case ConstString:
		return lw.b.ConstBytes(lw.reg.irTypeOf(c.Typ), []byte(c.S))
	case ConstEnum:
		return lw.b.ConstInt(int64(c.Enum.Ordinal))
	}
	panic("unreachable const kind")
}

func (lw *Lowerer) lowerBinary(e *BinaryExpr) ssa.Value {
	if e.Op == in {
		return lw.lowerSetMembership(e)
	}
	l := lw.lowerExpr(e.L)
	r := lw.lowerExpr(e.R)
	lt := e.L.exprType()
	switch e.Op {
	case '+':
		if lt.Kind() == KSet {
			return lw.b.CallRuntime("__SetUnion", l, r)
		}
		return lw.b.Add(l, r)
	case '-':
		if lt.Kind() == KSet {
			return lw.b.CallRuntime("__SetDiff", l, r)
		}
		return lw.b.Sub(l, r)
	case '*':
		if lt.Kind() == KSet {
			return lw.b.CallRuntime("__SetIntersect", l, r)
		}
		return lw.b.Mul(l, r)
	case '/':
		return lw.b.Div(l, r)
	case div:
		return lw.b.IDiv(l, r)
	case mod:
		return lw.b.Mod(l, r)
	case and:
		return lw.b.And(l, r)
	case or:
		return lw.b.Or(l, r)
	case xor:
		return lw.b.Xor(l, r)
	case shl:
		return lw.b.Shl(l, r)
	case shr:
		return lw.b.Shr(l, r)
	case '=':
		if lt.Kind() == KSet {
			return lw.b.CallRuntime("__SetEqual", l, r)
		}
		return lw.b.Cmp("=", l, r)
	case ne:
		return lw.b.Cmp("<>", l, r)
	case '<':
		return lw.b.Cmp("<", l, r)
	case le:
		if lt.Kind() == KSet {
			return lw.b.CallRuntime("__SetSubset", l, r)
		}
		return lw.b.Cmp("<=", l, r)
	case '>':
		return lw.b.Cmp(">", l, r)
	case ge:
		return lw.b.Cmp(">=", l, r)
	}
	panic(fmt.Sprintf("%v: unhandled binary operator %s", e.Position(), e.Op.str()))
}

// lowerSetMembership implements `x in s` (spec.md §4.5): word index
// x>>5, bit offset x&31, load the word, shift right, mask to a single
// bit.
func (lw *Lowerer) lowerSetMembership(e *BinaryExpr) ssa.Value {
	st := e.R.exprType().(*SetType)
	ord := lw.lowerExpr(e.L)
	setAddr := lw.setAddr(e.R, st)
	wordAddr, bitOff := lw.setBitSlot(setAddr, st, ord)
	word := lw.b.Load(wordAddr)
	bit := lw.b.And(lw.b.Shr(word, bitOff), lw.b.ConstInt(1))
	return lw.b.Cmp("<>", bit, lw.b.ConstInt(0))
}

// setAddr returns the address of a Set-valued expression's bitmap,
// spilling to a fresh alloca when the expression has no lvalue of its
// own (a set literal, or another computed set expression).
func (lw *Lowerer) setAddr(e Expr, st *SetType) ssa.Value {
	if a, ok := e.(Addressable); ok {
		return lw.addr(a)
	}
	slot := lw.b.Alloca(lw.reg.irTypeOf(st))
	lw.b.Store(slot, lw.lowerExpr(e))
	return slot
}

// setBitSlot returns the address of the 32-bit word holding ord's bit
// within setAddr's bitmap, and the bit's offset inside that word.
func (lw *Lowerer) setBitSlot(setAddr ssa.Value, st *SetType, ord ssa.Value) (wordAddr, bitOff ssa.Value) {
	rel := lw.b.Sub(ord, lw.b.ConstInt(int64(st.Range.Low)))
	wordIdx := lw.b.Shr(rel, lw.b.ConstInt(5))
	bitOff = lw.b.And(rel, lw.b.ConstInt(31))
	wordAddr = lw.b.GEP(setAddr, lw.b.ConstInt(0), wordIdx)
	return wordAddr, bitOff
}

// setBit sets ord's bit in setAddr's bitmap.
func (lw *Lowerer) setBit(setAddr ssa.Value, st *SetType, ord ssa.Value) {
	wordAddr, bitOff := lw.setBitSlot(setAddr, st, ord)
	word := lw.b.Load(wordAddr)
	bit := lw.b.Shl(lw.b.ConstInt(1), bitOff)
	lw.b.Store(wordAddr, lw.b.Or(word, bit))
}

func (lw *Lowerer) lowerSetLit(e *SetLit) ssa.Value {
	st := e.typ.(*SetType)
	irt := lw.reg.irTypeOf(st)
	slot := lw.b.Alloca(irt)
	lw.b.Store(slot, lw.b.Zero(irt))
	for _, el := range e.Elems {
		lw.setBit(slot, st, lw.lowerExpr(el))
	}
	for _, rg := range e.Ranges {
		lw.lowerSetRange(slot, st, rg)
	}
	return lw.b.Load(slot)
}

// lowerSetRange sets every bit in [lo, hi] with a runtime loop, since a
// set constructor's range bounds aren't guaranteed to be compile-time
// constants; mirrors lowerFor's head/body/end block shape.
func (lw *Lowerer) lowerSetRange(slot ssa.Value, st *SetType, rg RangeExpr) {
	lo := lw.lowerExpr(rg.Lo)
	hi := lw.lowerExpr(rg.Hi)
	idx := lw.b.Alloca(lw.reg.irTypeOf(lw.reg.Integer))
	lw.b.Store(idx, lo)
	head := lw.b.NewBlock(lw.fn, "set.range.head")
	body := lw.b.NewBlock(lw.fn, "set.range.body")
	end := lw.b.NewBlock(lw.fn, "set.range.end")
	lw.b.Br(head)
	lw.b.SetBlock(head)
	cur := lw.b.Load(idx)
	lw.b.CondBr(lw.b.Cmp("<=", cur, hi), body, end)
	lw.b.SetBlock(body)
	lw.setBit(slot, st, cur)
	lw.b.Store(idx, lw.b.Add(cur, lw.b.ConstInt(1)))
	lw.b.Br(head)
	lw.b.SetBlock(end)
}

func (lw *Lowerer) lowerCall(c *CallExpr) ssa.Value {
	var fn ssa.Value
	var args []ssa.Value
	if c.Recv != nil {
		recv := lw.addr(c.Recv)
		if c.Callee.Proto.Recv != nil && memberIsVirtual(c.Callee) {
			vt := lw.b.Load(lw.b.GEP(recv, lw.b.ConstInt(0), lw.b.ConstInt(0)))
			slot := lw.b.GEP(vt, lw.b.ConstInt(0), lw.b.ConstInt(int64(memberVtableIdx(c.Callee))))
			fn = lw.b.Load(slot)
		} else {
			irFn := lw.b.DeclareFunc(c.Callee.Proto.MangledName, lw.reg.funcIRType(c.Callee.Proto))
			fn = lw.b.FuncValue(irFn)
		}
		args = append(args, recv)
	} else {
		irFn := lw.b.DeclareFunc(c.Callee.Proto.MangledName, lw.reg.funcIRType(c.Callee.Proto))
		fn = lw.b.FuncValue(irFn)
	}
	params := c.Callee.Proto.AllParams()
	for i, a := range c.Args {
		if i < len(params) && params[i].ByRef {
			args = append(args, lw.addr(a.(Addressable)))
			continue
		}
		args = append(args, lw.lowerExpr(a))
	}
	return lw.b.Call(fn, args...)
}

func memberIsVirtual(callee *FuncDecl) bool {
	// Resolved at parse time: a CallExpr to a method stores the member's
	// virtual-ness indirectly via Callee.Proto.Recv plus the method
	// table lookup the parser already performed, so here we just check
	// whether the callee is a registered virtual/override member.
	m, ok := findVirtual(callee.Proto.Recv, callee.Proto.Name)
	return ok && m.VtableIdx >= 0
}

func memberVtableIdx(callee *FuncDecl) int {
	m, _ := findVirtual(callee.Proto.Recv, callee.Proto.Name)
	return m.VtableIdx
}

func (lw *Lowerer) lowerBuiltin(e *BuiltinCall) ssa.Value {
	switch e.Name {
	case "abs":
		v := lw.lowerExpr(e.Args[0])
		zero := lw.b.ConstInt(0)
		if e.Args[0].exprType().Kind() == KReal {
			zero = lw.b.ConstReal(0)
		}
		// The Builder has no select op: branch on v < 0 and merge through a slot.
		slot := lw.b.Alloca(lw.reg.irTypeOf(e.Args[0].exprType()))
		lw.b.Store(slot, v)
		negB := lw.b.NewBlock(lw.fn, "abs.neg")
		endB := lw.b.NewBlock(lw.fn, "abs.end")
		lw.b.CondBr(lw.b.Cmp("<", v, zero), negB, endB)
		lw.b.SetBlock(negB)
		lw.b.Store(slot, lw.b.Neg(v))
		lw.b.Br(endB)
		lw.b.SetBlock(endB)
		return lw.b.Load(slot)
	case "odd":
		v := lw.lowerExpr(e.Args[0])
		one := lw.b.ConstInt(1)
		return lw.b.Cmp("=", lw.b.And(v, one), one)
	case "ord":
		return lw.lowerExpr(e.Args[0])
	case "chr":
		return lw.lowerExpr(e.Args[0])
	case "succ":
		return lw.b.Add(lw.lowerExpr(e.Args[0]), lw.b.ConstInt(1))
	case "pred":
		return lw.b.Sub(lw.lowerExpr(e.Args[0]), lw.b.ConstInt(1))
	case "round", "trunc":
		return lw.lowerExpr(e.Args[0])
	case "new":
		arg := e.Args[0].(Addressable)
		pt := arg.exprType().(*PointerType)
		size := lw.reg.Size(pt.Pointee)
		v := lw.b.CallRuntime("__new", lw.b.ConstInt(int64(size)))
		lw.b.Store(lw.addr(arg), v)
		return v
	case "dispose":
		arg := e.Args[0].(Addressable)
		lw.b.CallRuntime("__dispose", lw.b.Load(lw.addr(arg)))
		return nil
	case "eof":
		return lw.fileOp1("__file_eof", e.Args)
	case "eoln":
		return lw.fileOp1("__file_eoln", e.Args)
	}
	panic(fmt.Sprintf("%v: unhandled builtin %s", e.Position(), e.Name))
}

func (lw *Lowerer) fileOp1(rt string, args []Expr) ssa.Value {
	if len(args) == 0 {
		return lw.b.CallRuntime(rt, lw.b.ConstInt(0))
	}
	return lw.b.CallRuntime(rt, lw.addr(args[0].(Addressable)))
}

// -- statements --

func (lw *Lowerer) lowerStmt(s Stmt) {
	switch s := s.(type) {
	case *Block:
		for _, st := range s.Stmts {
			lw.lowerStmt(st)
		}
	case *AssignStmt:
		lw.lowerAssign(s)
	case *CallStmt:
		lw.lowerCall(s.Call)
	case *IfStmt:
		lw.lowerIf(s)
	case *WhileStmt:
		lw.lowerWhile(s)
	case *RepeatStmt:
		lw.lowerRepeat(s)
	case *ForStmt:
		lw.lowerFor(s)
	case *CaseStmt:
		lw.lowerCase(s)
	case *WithStmt:
		lw.lowerStmt(s.Body)
	case *GotoStmt:
		lw.lowerGoto(s)
	case *LabelStmt:
		lw.lowerLabel(s)
	case *WriteStmt:
		lw.lowerWrite(s)
	case *ReadStmt:
		lw.lowerRead(s)
	default:
		panic(fmt.Sprintf("%v: unhandled statement %T", s.Position(), s))
	}
}

func (lw *Lowerer) lowerAssign(s *AssignStmt) {
	dst := lw.addr(s.LHS)
	if s.LHS.exprType().Kind() == KString || s.LHS.exprType().Kind() == KArray || s.LHS.exprType().Kind() == KRecord {
		if sl, ok := s.RHS.(*StrLit); ok {
			bytes := lw.b.ConstBytes(lw.reg.irTypeOf(s.LHS.exprType()), []byte(sl.V))
			lw.b.Store(dst, bytes)
			return
		}
		if addr, ok := s.RHS.(Addressable); ok {
			src := lw.addr(addr)
			// Assignable narrows (a shorter string may assign into a
			// longer one, spec.md §4.1), so the source can back a
			// smaller region than the destination; copy only as many
			// bytes as both sides actually have.
			n := Min(lw.reg.Size(s.LHS.exprType()), lw.reg.Size(addr.exprType()))
			lw.b.Memcpy(dst, src, n)
			return
		}
	}
	lw.b.Store(dst, lw.lowerExpr(s.RHS))
}

func (lw *Lowerer) lowerIf(s *IfStmt) {
	cond := lw.lowerExpr(s.Cond)
	thenB := lw.b.NewBlock(lw.fn, "then")
	elseB := lw.b.NewBlock(lw.fn, "else")
	endB := lw.b.NewBlock(lw.fn, "endif")
	lw.b.CondBr(cond, thenB, elseB)
	lw.b.SetBlock(thenB)
	lw.lowerStmt(s.Then)
	lw.b.Br(endB)
	lw.b.SetBlock(elseB)
	if s.Else != nil {
		lw.lowerStmt(s.Else)
	}
	lw.b.Br(endB)
	lw.b.SetBlock(endB)
}

func (lw *Lowerer) lowerWhile(s *WhileStmt) {
	head := lw.b.NewBlock(lw.fn, "while.head")
	body := lw.b.NewBlock(lw.fn, "while.body")
	end := lw.b.NewBlock(lw.fn, "while.end")
	lw.b.Br(head)
	lw.b.SetBlock(head)
	lw.b.CondBr(lw.lowerExpr(s.Cond), body, end)
	lw.b.SetBlock(body)
	lw.lowerStmt(s.Body)
	lw.b.Br(head)
	lw.b.SetBlock(end)
}

func (lw *Lowerer) lowerRepeat(s *RepeatStmt) {
	body := lw.b.NewBlock(lw.fn, "repeat.body")
	end := lw.b.NewBlock(lw.fn, "repeat.end")
	lw.b.Br(body)
	lw.b.SetBlock(body)
	for _, st := range s.Body {
		lw.lowerStmt(st)
	}
	lw.b.CondBr(lw.lowerExpr(s.Cond), end, body)
	lw.b.SetBlock(end)
}

func (lw *Lowerer) lowerFor(s *ForStmt) {
	slot := lw.addrs[s.Var]
	lw.b.Store(slot, lw.lowerExpr(s.From))
	head := lw.b.NewBlock(lw.fn, "for.head")
	body := lw.b.NewBlock(lw.fn, "for.body")
	end := lw.b.NewBlock(lw.fn, "for.end")
	lw.b.Br(head)
	lw.b.SetBlock(head)
	cur := lw.b.Load(slot)
	limit := lw.lowerExpr(s.To)
	op := "<="
	if s.Downto {
		op = ">="
	}
	lw.b.CondBr(lw.b.Cmp(op, cur, limit), body, end)
	lw.b.SetBlock(body)
	lw.lowerStmt(s.Body)
	cur2 := lw.b.Load(slot)
	one := lw.b.ConstInt(1)
	var next ssa.Value
	if s.Downto {
		next = lw.b.Sub(cur2, one)
	} else {
		next = lw.b.Add(cur2, one)
	}
	lw.b.Store(slot, next)
	lw.b.Br(head)
	lw.b.SetBlock(end)
}

func (lw *Lowerer) lowerCase(s *CaseStmt) {
	sel := lw.lowerExpr(s.Sel)
	end := lw.b.NewBlock(lw.fn, "case.end")
	def := end
	if s.Other != nil {
		def = lw.b.NewBlock(lw.fn, "case.otherwise")
	}
	cases := map[int64]ssa.Block{}
	var armBlocks []ssa.Block
	for _, arm := range s.Arms {
		blk := lw.b.NewBlock(lw.fn, "case.arm")
		armBlocks = append(armBlocks, blk)
		for _, lbl := range arm.Labels {
			ord, _ := lbl.Ordinal()
			cases[ord] = blk
		}
		for _, rg := range arm.Ranges {
			lo, _ := rg.Lo.(*ConstRef)
			hi, _ := rg.Hi.(*ConstRef)
			if lo != nil && hi != nil {
				loOrd, _ := lo.Decl.Ordinal()
				hiOrd, _ := hi.Decl.Ordinal()
				for v := loOrd; v <= hiOrd; v++ {
					cases[v] = blk
				}
			}
		}
	}
	lw.b.Switch(sel, cases, def)
	for i, arm := range s.Arms {
		lw.b.SetBlock(armBlocks[i])
		lw.lowerStmt(arm.Body)
		lw.b.Br(end)
	}
	if s.Other != nil {
		lw.b.SetBlock(def)
		lw.lowerStmt(s.Other)
		lw.b.Br(end)
	}
	lw.b.SetBlock(end)
}

func (lw *Lowerer) lowerGoto(s *GotoStmt) {
	if blk, ok := lw.labels[s.Label]; ok {
		lw.b.Br(blk)
		return
	}
	// Forward goto: the label's block doesn't exist yet. Emit a branch
	// once lowerLabel creates it, matching the single-pass, declare-as-
	// you-go style the rest of this front end uses; the branch itself
	// still needs an insertion point now, so branch into a holder block
	// and patch its terminator in lowerLabel.
	holder := lw.b.NewBlock(lw.fn, "goto.fwd")
	lw.b.Br(holder)
	lw.pending[s.Label] = append(lw.pending[s.Label], func(target ssa.Block) {
		cur := holder
		lw.b.SetBlock(cur)
		lw.b.Br(target)
	})
}

func (lw *Lowerer) lowerLabel(s *LabelStmt) {
	blk := lw.b.NewBlock(lw.fn, fmt.Sprintf("label.%d", s.Label))
	lw.b.Br(blk)
	lw.b.SetBlock(blk)
	lw.labels[s.Label] = blk
	for _, patch := range lw.pending[s.Label] {
		patch(blk)
	}
	delete(lw.pending, s.Label)
	lw.b.SetBlock(blk)
	lw.lowerStmt(s.Stmt)
}

func (lw *Lowerer) lowerWrite(s *WriteStmt) {
	file := lw.fileArg(s.File)
	for _, a := range s.Args {
		width := lw.widthOrDefault(a.Width)
		switch a.X.exprType().Kind() {
		case KInteger, KInt64, KSubrange, KEnum:
			lw.b.CallRuntime("__write_int", lw.lowerExpr(a.X), width, file)
		case KReal:
			prec := lw.widthOrDefault(a.Precision)
			lw.b.CallRuntime("__write_real", lw.lowerExpr(a.X), width, prec, file)
		case KChar:
			lw.b.CallRuntime("__write_char", lw.lowerExpr(a.X), width, file)
		case KBool:
			lw.b.CallRuntime("__write_bool", lw.lowerExpr(a.X), width, file)
		case KString:
			lw.b.CallRuntime("__write_str", lw.lowerExpr(a.X), width, file)
		default:
			lw.b.CallRuntime("__write_int", lw.lowerExpr(a.X), width, file)
		}
	}
	if s.Newline {
		lw.b.CallRuntime("__write_nl", file)
	}
}

func (lw *Lowerer) widthOrDefault(e Expr) ssa.Value {
	if e == nil {
		return lw.b.ConstInt(0)
	}
	return lw.lowerExpr(e)
}

func (lw *Lowerer) fileArg(f Addressable) ssa.Value {
	if f == nil {
		return lw.b.ConstInt(0)
	}
	return lw.addr(f)
}

func (lw *Lowerer) lowerRead(s *ReadStmt) {
	file := lw.fileArg(s.File)
	for _, a := range s.Args {
		var v ssa.Value
		switch a.exprType().Kind() {
		case KReal:
			v = lw.b.CallRuntime("__read_real", file)
		case KChar:
			v = lw.b.CallRuntime("__read_char", file)
		default:
			v = lw.b.CallRuntime("__read_int", file)
		}
		lw.b.Store(lw.addr(a), v)
	}
	if s.Newline {
		lw.b.CallRuntime("__read_nl", file)
	}
}
