// Package ssa declares the interface the IR lowerer emits through.
//
// The real code generator/optimizer backend is, per the front end's own
// scope statement, an external collaborator: "the SSA backend (treated as
// an opaque builder with basic-block, instruction, type, and constant
// constructors)". Builder is that opaque boundary. TextBuilder, in
// text.go, is a reference implementation (a textual SSA dump) so the
// lowerer can be exercised and tested without a real backend attached.
package ssa

// Type is an opaque backend type handle.
type Type interface {
	String() string
}

// Value is an opaque backend SSA value handle (a register, in the usual
// sense): the result of an instruction, a constant, or a function/global
// reference.
type Value interface {
	Type() Type
}

// Block is an opaque basic block handle.
type Block interface {
	Name() string
}

// Func is an opaque function handle.
type Func interface {
	Name() string
}

// Builder is the minimal surface the lowerer needs from a backend: type
// construction, constant construction, function/block scaffolding, and
// the instruction set named throughout spec.md §4.5.
//
// Every method returning a Value represents one SSA instruction emission
// at the builder's current insertion point (the block passed to
// SetBlock). Builder implementations are not expected to be safe for
// concurrent use; the front end is single-threaded (spec.md §5).
type Builder interface {
	// Types.
	IntType() Type
	Int64Type() Type
	RealType() Type
	CharType() Type
	BoolType() Type
	VoidType() Type
	PointerType(elem Type) Type
	ArrayType(elem Type, n int) Type
	StructType(name string, fields []Type) Type
	OpaqueStructType(name string) Type // reserve a handle; body set later
	SetStructBody(t Type, fields []Type)
	FuncType(params []Type, result Type) Type

	// Data layout oracle: size/alignment in bytes of a materialized type.
	// The type registry's Size/Align queries defer to these rather than
	// computing layout themselves (spec.md §4.1).
	SizeOf(t Type) int
	AlignOf(t Type) int

	// Constants.
	ConstInt(v int64) Value
	ConstReal(v float64) Value
	ConstChar(v byte) Value
	ConstBool(v bool) Value
	ConstBytes(typ Type, b []byte) Value
	Zero(typ Type) Value

	// Globals and functions.
	Global(name string, typ Type, init Value) Value
	DeclareFunc(name string, typ Type) Func
	DefineFunc(fn Func) (entry Block)
	SetBlock(b Block)
	NewBlock(fn Func, name string) Block
	Param(fn Func, i int) Value

	// Memory.
	Alloca(typ Type) Value
	Load(addr Value) Value
	Store(addr, val Value)
	GEP(base Value, indices ...Value) Value // address of a struct field or array element
	Memcpy(dst, src Value, n int)

	// Arithmetic / logic, dispatched by the lowerer on result type.
	Add(a, b Value) Value
	Sub(a, b Value) Value
	Mul(a, b Value) Value
	Div(a, b Value) Value  // real division
	IDiv(a, b Value) Value // integer div
	Mod(a, b Value) Value
	And(a, b Value) Value
	Or(a, b Value) Value
	Xor(a, b Value) Value
	Shl(a, b Value) Value
	Shr(a, b Value) Value
	Neg(a Value) Value
	Not(a Value) Value
	IntToReal(a Value) Value
	Cmp(op string, a, b Value) Value // op one of "=","<>","<","<=",">",">="

	// Control flow.
	Br(target Block)
	CondBr(cond Value, then, els Block)
	Switch(sel Value, cases map[int64]Block, def Block)
	Ret(v Value)
	RetVoid()

	// Calls.
	Call(fn Value, args ...Value) Value
	FuncValue(fn Func) Value

	// Runtime helper calls (spec.md §4.6); name is the external symbol.
	CallRuntime(name string, args ...Value) Value
}
