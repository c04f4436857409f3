// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import "go/token"

// Expr is every typed expression node (original_source/expr.h's ExprAST
// hierarchy, grounded one-to-one: variable/array/pointer/field/function
// addressing, binary/unary/range, set/call/builtin literals). Every node
// carries its resolved Type directly rather than through a later pass:
// the parser resolves and folds as it recognizes a production (spec.md's
// "parser IS the resolver" design).
type Expr interface {
	node
	exprType() Type
}

type exprBase struct {
	pos token.Position
	typ Type
}

func (e *exprBase) Position() token.Position { return e.pos }
func (e *exprBase) exprType() Type           { return e.typ }

// IntLit, RealLit, CharLit, StrLit, BoolLit are literal leaves.
type IntLit struct {
	exprBase
	V int64
}
type RealLit struct {
	exprBase
	V float64
}
type CharLit struct {
	exprBase
	V byte
}
type StrLit struct {
	exprBase
	V string
}
type BoolLit struct {
	exprBase
	V bool
}

// ConstRef names a resolved compile-time constant (spec.md §4.2); it
// stays a distinct node from its folded value so diagnostics can still
// print the name the source used.
type ConstRef struct {
	exprBase
	Decl *ConstDecl
}

// Addressable is any Expr with an lvalue: a memory location the lowerer
// can take the address of (spec.md §4.5 "address vs. value" distinction).
// Mirrors original_source/expr.h's AddressableExprAST split.
type Addressable interface {
	Expr
	isAddressable()
}

type addrBase struct{ exprBase }

func (*addrBase) isAddressable() {}

// VarRef names a resolved local, parameter, global, or captured-free
// variable (spec.md §4.4). Closure conversion leaves a VarRef that crosses
// a procedure boundary as it is; the lowerer binds the captured VarDecl to
// the injected by-ref parameter, so the reference goes through that
// pointer.
type VarRef struct {
	addrBase
	Decl *VarDecl
}

// ArrayIndex is base[index, index, ...] (spec.md's multi-dim arrays);
// Indices has one Expr per declared dimension.
type ArrayIndex struct {
	addrBase
	Base    Addressable
	Indices []Expr
}

// Deref is base^ (pointer dereference).
type Deref struct {
	addrBase
	Base Expr
}

// FieldAccess is base.Name, resolved against the base's Record/Object/
// Variant field set, including `with`-injected implicit bases (spec.md
// §4.3).
type FieldAccess struct {
	addrBase
	Base  Addressable
	Field *Field
}

// FuncDesignator is a bound function/procedure name used as a value (a
// funcptr actual argument, or the call target before argument-list
// resolution distinguishes a call from a bare reference).
type FuncDesignator struct {
	exprBase
	Decl *FuncDecl
}

// SetLit is a set constructor `[a, b, c..d]` (spec.md's Set element
// ranges).
type SetLit struct {
	exprBase
	Elems  []Expr
	Ranges []RangeExpr
}

// RangeExpr is one `lo..hi` member of a set constructor or case label.
type RangeExpr struct {
	Lo, Hi Expr
}

// BinaryExpr is any dyadic operator application; Op is a char token kind
// (arithmetic, relational, and, or, xor, shl, shr, div, mod, in).
type BinaryExpr struct {
	exprBase
	Op   char
	L, R Expr
}

// UnaryExpr is a prefix `+`, `-`, or `not`.
type UnaryExpr struct {
	exprBase
	Op char
	X  Expr
}

// SizeofExpr implements the dialect's `sizeof(type-or-expr)` (spec.md §6).
type SizeofExpr struct {
	exprBase
	Arg     Expr
	ArgType Type // set when the operand was a type name rather than an expr
}

// CallExpr is fn(args...); for an Object method, Recv is the (possibly
// implicit self) receiver, and a callee whose MemberFunc (looked up through
// Proto.Recv) has VtableIdx >= 0 is lowered through a virtual dispatch.
type CallExpr struct {
	exprBase
	Callee *FuncDecl
	Recv   Addressable // nil for a free function/procedure
	Args   []Expr
}

// BuiltinCall is a call to a compiler-known routine with its own argument
// and typing rules (new, dispose, succ, pred, ord, chr, abs, round, trunc,
// odd, eof, eoln, and similar ISO standard procedures/functions).
type BuiltinCall struct {
	exprBase
	Name string
	Args []Expr
}

// Stmt is every statement node.
type Stmt interface {
	node
	isStmt()
}

type stmtBase struct{ pos token.Position }

func (s *stmtBase) Position() token.Position { return s.pos }
func (*stmtBase) isStmt()                    {}

// Block is a begin...end sequence.
type Block struct {
	stmtBase
	Stmts []Stmt
}

// AssignStmt is `lhs := rhs`.
type AssignStmt struct {
	stmtBase
	LHS Addressable
	RHS Expr
}

// CallStmt is a procedure call used as a statement.
type CallStmt struct {
	stmtBase
	Call *CallExpr
}

// IfStmt is if Cond then Then [else Else].
type IfStmt struct {
	stmtBase
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else clause
}

// WhileStmt is while Cond do Body.
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body Stmt
}

// RepeatStmt is repeat Body until Cond (Body is a statement sequence, not
// wrapped in begin/end, per ISO grammar).
type RepeatStmt struct {
	stmtBase
	Body []Stmt
	Cond Expr
}

// ForStmt is for Var := From (to|downto) To do Body.
type ForStmt struct {
	stmtBase
	Var     *VarDecl
	From    Expr
	To      Expr
	Downto  bool
	Body    Stmt
}

// CaseArm is one `label, label: Stmt` arm of a CaseStmt; Ranges holds any
// `lo..hi` labels (an extension original_source supports alongside plain
// labels).
type CaseArm struct {
	Labels []*ConstDecl
	Ranges []RangeExpr
	Body   Stmt
}

// CaseStmt is case Sel of Arms [otherwise Other] end; Other is nil absent
// the dialect's `otherwise` clause (spec.md §6).
type CaseStmt struct {
	stmtBase
	Sel   Expr
	Arms  []*CaseArm
	Other Stmt
}

// WithStmt is with Recs do Body; field resolution during Body's parse is
// handled by the scope stack's WithDef entries (spec.md §4.3), so by the
// time this node exists Body has already been resolved against Recs.
type WithStmt struct {
	stmtBase
	Recs []Addressable
	Body Stmt
}

// GotoStmt and LabelStmt implement the ISO label/goto mechanism, scoped to
// the enclosing block (labels cannot cross procedure boundaries).
type GotoStmt struct {
	stmtBase
	Label int
}
type LabelStmt struct {
	stmtBase
	Label int
	Stmt  Stmt
}

// WriteStmt/ReadStmt are writeln/readln and write/read; File is nil for
// the dialect's default text file (stdout/stdin), per spec.md §6.
type WriteArg struct {
	X         Expr
	Width     Expr // nil if unspecified
	Precision Expr // nil if unspecified; real values only
}
type WriteStmt struct {
	stmtBase
	File    Addressable
	Args    []WriteArg
	Newline bool
}
type ReadStmt struct {
	stmtBase
	File    Addressable
	Args    []Addressable
	Newline bool
}

// Param is one formal parameter of a Prototype.
type Param struct {
	Name   string
	Typ    Type
	ByRef  bool
	Pos    token.Position
}

// Prototype is a callable signature: name, parameters, result type (Void
// for a procedure). ExtraParams is appended by closure conversion
// (spec.md §4.4) — one by-ref Param per free variable the body or any
// nested procedure captures; it is always empty until that pass runs.
type Prototype struct {
	pos         token.Position
	Name        string
	MangledName string
	Params      []*Param
	ExtraParams []*Param
	Result      Type
	Recv        *ObjectType // non-nil for a method
}

func (p *Prototype) Position() token.Position { return p.pos }

// AllParams returns the declared parameters followed by the closure-
// conversion extras, in the exact order the lowerer must emit formal
// arguments and the caller must emit actual arguments.
func (p *Prototype) AllParams() []*Param {
	if len(p.ExtraParams) == 0 {
		return p.Params
	}
	all := make([]*Param, 0, len(p.Params)+len(p.ExtraParams))
	all = append(all, p.Params...)
	all = append(all, p.ExtraParams...)
	return all
}

// VarDecl is one local variable, parameter, or field-as-variable binding.
// IsCaptured is set by closure conversion and marks a variable declared in
// this FuncDecl that some nested procedure reads or writes. IsFree is not
// set by any pass; a nested procedure reaches a captured variable through
// its injected pointer parameter, which the lowerer binds to the VarDecl.
type VarDecl struct {
	pos        token.Position
	Name       string
	Typ        Type
	IsParam    bool
	ByRef      bool
	Owner      *FuncDecl // nil for a global
	IsCaptured bool
	IsFree     bool
}

func (v *VarDecl) Position() token.Position { return v.pos }

// FuncDecl is one procedure or function, at any nesting depth. Parent is
// nil for a top-level routine or the implicit program body; Children
// lists nested procedures in declaration order, which is also the order
// original_source/expr.h's FunctionAST::subFunctions drives bottom-up
// closure finalization in (spec.md §4.4).
type FuncDecl struct {
	pos      token.Position
	Proto    *Prototype
	Parent   *FuncDecl
	Children []*FuncDecl
	Locals   []*VarDecl
	Body     []Stmt

	// UsedVars is every variable this func's own body references, plus
	// every variable a descendant references that this func does not own —
	// the raw input to closure conversion (original_source's SetUsedVars).
	UsedVars map[*VarDecl]bool
}

func (f *FuncDecl) Position() token.Position { return f.pos }

// IsNested reports whether f is declared inside another routine (as
// opposed to top-level or the program body).
func (f *FuncDecl) IsNested() bool { return f.Parent != nil }
