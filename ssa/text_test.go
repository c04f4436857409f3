package ssa

import "testing"

func TestTextBuilderStructLayout(t *testing.T) {
	b := NewTextBuilder()
	st := b.StructType("point", []Type{b.IntType(), b.IntType()})
	if got := b.SizeOf(st); got != 8 {
		t.Fatalf("size = %d, want 8", got)
	}
	if got := b.AlignOf(st); got != 4 {
		t.Fatalf("align = %d, want 4", got)
	}
}

func TestTextBuilderOpaqueCompletion(t *testing.T) {
	b := NewTextBuilder()
	node := b.OpaqueStructType("node")
	if got := b.SizeOf(node); got != 8 {
		t.Fatalf("initial opaque size = %d, want 8 (pointer-sized placeholder)", got)
	}
	ptr := b.PointerType(node)
	b.SetStructBody(node, []Type{b.IntType(), ptr})
	if got := b.SizeOf(node); got != 16 {
		t.Fatalf("completed size = %d, want 16", got)
	}
}

func TestTextBuilderEmitsFunction(t *testing.T) {
	b := NewTextBuilder()
	fn := b.DeclareFunc("f", b.FuncType(nil, b.IntType()))
	entry := b.DefineFunc(fn)
	b.SetBlock(entry)
	b.Ret(b.ConstInt(7))
	out := b.String()
	if out == "" {
		t.Fatal("expected non-empty module text")
	}
}
