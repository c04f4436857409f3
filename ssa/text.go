package ssa

import (
	"fmt"
	"strings"

	"modernc.org/strutil"
)

// TextBuilder is a reference Builder that renders a readable textual SSA
// dump instead of driving a real code generator. It exists so the lowerer
// can be unit tested end to end; a production pipeline swaps in a real
// backend satisfying Builder.
type TextBuilder struct {
	buf    strings.Builder
	iw     strutil.Formatter
	tmp    int
	blocks map[string]int
}

// NewTextBuilder returns an empty TextBuilder ready to accept module-level
// declarations.
func NewTextBuilder() *TextBuilder {
	b := &TextBuilder{blocks: map[string]int{}}
	b.iw = strutil.IndentFormatter(&b.buf, "    ")
	return b
}

// String returns the accumulated module text.
func (b *TextBuilder) String() string { return b.buf.String() }

// textType is a minimal data-layout-carrying type: a name plus size/align
// in bytes, standing in for a real backend's materialized type. It is
// always handled through a pointer so OpaqueStructType's handle can be
// backpatched in place by SetStructBody once its pointee is known (spec.md
// §4.1's "opaque IR type" completion protocol).
type textType struct {
	name  string
	size  int
	align int
}

func (t *textType) String() string { return t.name }

func prim(name string, sz int) Type { return &textType{name, sz, sz} }

type textValue struct {
	name string
	typ  Type
}

func (v *textValue) Type() Type { return v.typ }
func (v *textValue) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.name
}

type textBlock string

func (b textBlock) Name() string { return string(b) }

type textFunc struct {
	name string
	typ  Type
}

func (f *textFunc) Name() string { return f.name }

func (b *TextBuilder) next() string {
	b.tmp++
	return fmt.Sprintf("%%t%d", b.tmp)
}

func (b *TextBuilder) emit(format string, args ...interface{}) {
	b.iw.Format(format, args...)
}

func val(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.(*textValue).name
}

// -- types --

func (b *TextBuilder) IntType() Type   { return prim("i32", 4) }
func (b *TextBuilder) Int64Type() Type { return prim("i64", 8) }
func (b *TextBuilder) RealType() Type  { return prim("f64", 8) }
func (b *TextBuilder) CharType() Type  { return prim("i8", 1) }
func (b *TextBuilder) BoolType() Type  { return prim("i1", 1) }
func (b *TextBuilder) VoidType() Type  { return &textType{"void", 0, 1} }

func (b *TextBuilder) PointerType(e Type) Type {
	return &textType{e.String() + "*", 8, 8}
}

func (b *TextBuilder) ArrayType(e Type, n int) Type {
	et := e.(*textType)
	return &textType{fmt.Sprintf("[%d x %s]", n, et.name), et.size * n, et.align}
}

func structLayout(fields []Type) (size, align int) {
	align = 1
	off := 0
	for _, f := range fields {
		ft := f.(*textType)
		if ft.align > align {
			align = ft.align
		}
		if ft.align > 0 && off%ft.align != 0 {
			off += ft.align - off%ft.align
		}
		off += ft.size
	}
	if align > 0 && off%align != 0 {
		off += align - off%align
	}
	return off, align
}

func (b *TextBuilder) StructType(name string, fields []Type) Type {
	size, align := structLayout(fields)
	b.emit("%%%s = type %s\n", name, fieldList(fields))
	return &textType{"%" + name, size, align}
}

// OpaqueStructType reserves a handle for a struct whose body isn't known
// yet (a record/object containing a still-forward pointer). The returned
// Type is later completed in place by SetStructBody.
func (b *TextBuilder) OpaqueStructType(name string) Type {
	b.emit("%%%s = type opaque\n", name)
	return &textType{name: "%" + name, size: 8, align: 8}
}

func (b *TextBuilder) SetStructBody(t Type, fields []Type) {
	tt := t.(*textType)
	tt.size, tt.align = structLayout(fields)
	b.emit("; complete %s -> %s\n", tt.name, fieldList(fields))
}

func fieldList(fields []Type) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (b *TextBuilder) FuncType(params []Type, result Type) Type {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return &textType{fmt.Sprintf("%s (%s)", result.String(), strings.Join(parts, ", ")), 8, 8}
}

func (b *TextBuilder) SizeOf(t Type) int  { return t.(*textType).size }
func (b *TextBuilder) AlignOf(t Type) int { return t.(*textType).align }

// -- constants --

func (b *TextBuilder) ConstInt(v int64) Value {
	return &textValue{fmt.Sprintf("%d", v), b.IntType()}
}
func (b *TextBuilder) ConstReal(v float64) Value {
	return &textValue{fmt.Sprintf("%g", v), b.RealType()}
}
func (b *TextBuilder) ConstChar(v byte) Value {
	return &textValue{fmt.Sprintf("%d", v), b.CharType()}
}
func (b *TextBuilder) ConstBool(v bool) Value {
	return &textValue{fmt.Sprintf("%t", v), b.BoolType()}
}
func (b *TextBuilder) ConstBytes(typ Type, v []byte) Value {
	return &textValue{fmt.Sprintf("c%q", v), typ}
}
func (b *TextBuilder) Zero(typ Type) Value { return &textValue{"zeroinitializer", typ} }

// -- globals/functions --

func (b *TextBuilder) Global(name string, typ Type, init Value) Value {
	iv := "zeroinitializer"
	if init != nil {
		iv = val(init)
	}
	b.emit("@%s = internal global %s %s\n", name, typ.String(), iv)
	return &textValue{"@" + name, b.PointerType(typ)}
}

func (b *TextBuilder) DeclareFunc(name string, typ Type) Func {
	return &textFunc{name: name, typ: typ}
}

func (b *TextBuilder) DefineFunc(fn Func) Block {
	f := fn.(*textFunc)
	b.emit("define %s @%s(...) {\n", f.typ.String(), f.name)
	return b.NewBlock(fn, "entry")
}

func (b *TextBuilder) NewBlock(fn Func, name string) Block {
	n := b.blocks[fn.Name()]
	b.blocks[fn.Name()] = n + 1
	full := fmt.Sprintf("%s.%d", name, n)
	b.emit("%s:\n", full)
	return textBlock(full)
}

func (b *TextBuilder) SetBlock(blk Block) {
	b.emit("; block %s\n", blk.Name())
}

func (b *TextBuilder) Param(fn Func, i int) Value {
	return &textValue{fmt.Sprintf("%%arg%d", i), &textType{"ptr", 8, 8}}
}

// -- memory --

func (b *TextBuilder) Alloca(typ Type) Value {
	n := b.next()
	b.emit("%s = alloca %s\n", n, typ.String())
	return &textValue{n, b.PointerType(typ)}
}

func (b *TextBuilder) Load(addr Value) Value {
	n := b.next()
	b.emit("%s = load %s\n", n, val(addr))
	return &textValue{n, addr.Type()}
}

func (b *TextBuilder) Store(addr, v Value) {
	b.emit("store %s, %s\n", val(v), val(addr))
}

func (b *TextBuilder) GEP(base Value, indices ...Value) Value {
	n := b.next()
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = val(idx)
	}
	b.emit("%s = getelementptr %s, %s\n", n, val(base), strings.Join(parts, ", "))
	return &textValue{n, base.Type()}
}

func (b *TextBuilder) Memcpy(dst, src Value, n int) {
	b.emit("call void @llvm.memcpy.p0i8.p0i8.i32(%s, %s, i32 %d, i1 false)\n", val(dst), val(src), n)
}

// -- arithmetic --

func (b *TextBuilder) binop(op string, a, bv Value) Value {
	n := b.next()
	b.emit("%s = %s %s, %s\n", n, op, val(a), val(bv))
	return &textValue{n, a.Type()}
}

func (b *TextBuilder) Add(a, bv Value) Value  { return b.binop("add", a, bv) }
func (b *TextBuilder) Sub(a, bv Value) Value  { return b.binop("sub", a, bv) }
func (b *TextBuilder) Mul(a, bv Value) Value  { return b.binop("mul", a, bv) }
func (b *TextBuilder) Div(a, bv Value) Value  { return b.binop("fdiv", a, bv) }
func (b *TextBuilder) IDiv(a, bv Value) Value { return b.binop("sdiv", a, bv) }
func (b *TextBuilder) Mod(a, bv Value) Value  { return b.binop("srem", a, bv) }
func (b *TextBuilder) And(a, bv Value) Value  { return b.binop("and", a, bv) }
func (b *TextBuilder) Or(a, bv Value) Value   { return b.binop("or", a, bv) }
func (b *TextBuilder) Xor(a, bv Value) Value  { return b.binop("xor", a, bv) }
func (b *TextBuilder) Shl(a, bv Value) Value  { return b.binop("shl", a, bv) }
func (b *TextBuilder) Shr(a, bv Value) Value  { return b.binop("lshr", a, bv) }

func (b *TextBuilder) Neg(a Value) Value {
	n := b.next()
	b.emit("%s = neg %s\n", n, val(a))
	return &textValue{n, a.Type()}
}

func (b *TextBuilder) Not(a Value) Value {
	n := b.next()
	b.emit("%s = not %s\n", n, val(a))
	return &textValue{n, a.Type()}
}

func (b *TextBuilder) IntToReal(a Value) Value {
	n := b.next()
	b.emit("%s = sitofp %s to f64\n", n, val(a))
	return &textValue{n, b.RealType()}
}

func (b *TextBuilder) Cmp(op string, a, bv Value) Value {
	n := b.next()
	b.emit("%s = icmp %q %s, %s\n", n, op, val(a), val(bv))
	return &textValue{n, b.BoolType()}
}

// -- control flow --

func (b *TextBuilder) Br(target Block) { b.emit("br label %%%s\n", target.Name()) }

func (b *TextBuilder) CondBr(cond Value, then, els Block) {
	b.emit("br %s, label %%%s, label %%%s\n", val(cond), then.Name(), els.Name())
}

func (b *TextBuilder) Switch(sel Value, cases map[int64]Block, def Block) {
	b.emit("switch %s, label %%%s [%i\n", val(sel), def.Name())
	for k, blk := range cases {
		b.emit("i32 %d, label %%%s\n", k, blk.Name())
	}
	b.emit("%u]\n")
}

func (b *TextBuilder) Ret(v Value) { b.emit("ret %s\n", val(v)) }

func (b *TextBuilder) RetVoid() { b.emit("ret void\n") }

// -- calls --

func (b *TextBuilder) FuncValue(fn Func) Value {
	f := fn.(*textFunc)
	return &textValue{"@" + f.name, f.typ}
}

func (b *TextBuilder) Call(fn Value, args ...Value) Value {
	n := b.next()
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = val(a)
	}
	b.emit("%s = call %s(%s)\n", n, val(fn), strings.Join(parts, ", "))
	return &textValue{n, b.IntType()}
}

func (b *TextBuilder) CallRuntime(name string, args ...Value) Value {
	n := b.next()
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = val(a)
	}
	b.emit("%s = call @%s(%s)\n", n, name, strings.Join(parts, ", "))
	return &textValue{n, b.IntType()}
}
