// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import (
	"fmt"
	"go/token"
	"math/bits"

	"modernc.org/pascalc/ssa"
)

// Kind is the closed tag of the type lattice (spec.md §3).
type Kind int

const (
	KInteger Kind = iota
	KInt64
	KReal
	KChar
	KBool
	KVoid
	KEnum
	KSubrange
	KPointer
	KArray
	KRecord
	KVariant
	KObject
	KSet
	KFile
	KString
	KFuncPtr
	KFunction
)

func (k Kind) String() string {
	switch k {
	case KInteger:
		return "integer"
	case KInt64:
		return "int64"
	case KReal:
		return "real"
	case KChar:
		return "char"
	case KBool:
		return "boolean"
	case KVoid:
		return "void"
	case KEnum:
		return "enum"
	case KSubrange:
		return "subrange"
	case KPointer:
		return "pointer"
	case KArray:
		return "array"
	case KRecord:
		return "record"
	case KVariant:
		return "variant"
	case KObject:
		return "object"
	case KSet:
		return "set"
	case KFile:
		return "file"
	case KString:
		return "string"
	case KFuncPtr:
		return "funcptr"
	case KFunction:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MaxSetSize bounds set types, per spec.md §3 ("fixed-width bitmap of
// 32-bit words, MaxSetSize elements").
const MaxSetSize = 256

const setWordBits = 32

// Type is the interface every member of the lattice satisfies. Size and
// alignment queries defer to the backend's data-layout oracle applied to
// the materialized IR type (spec.md §4.1); IRType lazily builds and caches
// that materialization.
type Type interface {
	Position() token.Position
	Kind() Kind
	IRType(reg *Registry) ssa.Type
}

// typeBase factors the position + IR-type cache shared by every type.
type typeBase struct {
	pos   token.Position
	irCache ssa.Type
}

func (t *typeBase) Position() token.Position { return t.pos }

// Primitive types are singletons (spec.md §3); Kind fixes which one.
type PrimitiveType struct {
	typeBase
	kind Kind
}

func (t *PrimitiveType) Kind() Kind { return t.kind }

func (t *PrimitiveType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	b := reg.builder
	switch t.kind {
	case KInteger:
		t.irCache = b.IntType()
	case KInt64:
		t.irCache = b.Int64Type()
	case KReal:
		t.irCache = b.RealType()
	case KChar:
		t.irCache = b.CharType()
	case KBool:
		t.irCache = b.BoolType()
	case KVoid:
		t.irCache = b.VoidType()
	default:
		panic(fmt.Sprintf("not primitive: %v", t.kind))
	}
	return t.irCache
}

// EnumValue is one member of an EnumType: a name at a fixed ordinal.
type EnumValue struct {
	Name    string
	Ordinal int
	Owner   *EnumType
}

// EnumType is an ordered list of (name, ordinal) pairs; spec.md §3.
// Constructing one adds its values into the enclosing scope (spec.md §4.1
// via the parser's `type` production), which is the parser's job, not the
// registry's — the registry only owns the type's identity and layout.
type EnumType struct {
	typeBase
	Name   string
	Values []*EnumValue
}

func (t *EnumType) Kind() Kind { return KEnum }

func (t *EnumType) IRType(reg *Registry) ssa.Type {
	if t.irCache == nil {
		t.irCache = reg.builder.IntType()
	}
	return t.irCache
}

func (t *EnumType) Low() int  { return 0 }
func (t *EnumType) High() int { return len(t.Values) - 1 }

// Range is a [Low, High] ordinal interval shared by Subrange and array
// index dimensions, grounded on original_source/types.cpp's Types::Range.
type Range struct {
	Low, High int
}

// Size is the element count of the interval.
func (r Range) Size() int { return r.High - r.Low + 1 }

// SubrangeType restricts an ordinal base kind to an interval (spec.md §3).
type SubrangeType struct {
	typeBase
	BaseKind Kind // KInteger, KChar, or KEnum
	BaseEnum *EnumType
	Range    Range
}

func (t *SubrangeType) Kind() Kind { return KSubrange }

// Bits computes ceil(log2(high-low+1)), per spec.md §3's `bits()`, but
// never less than 1 (a single-value range takes 1 bit).
func (t *SubrangeType) Bits() uint {
	n := t.Range.Size()
	if n <= 1 {
		return 1
	}
	return uint(bitLen(n - 1))
}

func (t *SubrangeType) IRType(reg *Registry) ssa.Type {
	if t.irCache == nil {
		switch t.BaseKind {
		case KChar:
			t.irCache = reg.builder.CharType()
		default:
			t.irCache = reg.builder.IntType()
		}
	}
	return t.irCache
}

// PointerType supports forward declaration: Pointee is nil and Unresolved
// holds the not-yet-declared identifier until the registry's fixup pass
// (spec.md §4.1) rebinds Pointee.
type PointerType struct {
	typeBase
	Pointee    Type
	Unresolved string
}

func (t *PointerType) Kind() Kind { return KPointer }

func (t *PointerType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	if t.Pointee == nil {
		panic(fmt.Sprintf("pointer to unresolved %q materialized before fixup", t.Unresolved))
	}
	t.irCache = reg.builder.PointerType(reg.irTypeOf(t.Pointee))
	return t.irCache
}

// ArrayType is element type + an ordered list of index subranges;
// allocSize = product(dim.Size()) * elem.allocSize (spec.md §3).
type ArrayType struct {
	typeBase
	Elem    Type
	Dims    []Range
	IsPacked bool
}

func (t *ArrayType) Kind() Kind { return KArray }

func (t *ArrayType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	et := reg.irTypeOf(t.Elem)
	n := 1
	for _, d := range t.Dims {
		n *= d.Size()
	}
	t.irCache = reg.builder.ArrayType(et, n)
	return t.irCache
}

// Field is one named member of a Record/Object/anonymous variant arm.
type Field struct {
	Name string
	Typ  Type
	Pos  token.Position
}

// VariantArm is one tagged alternative of a record's variant part: a tag
// constant (or several) plus the fields active under that tag. Arms share
// storage (spec.md's "Variant part"); the registry computes the anchor/
// padding layout from the materialized sizes of each arm's own struct.
type VariantArm struct {
	TagValues []*ConstDecl
	Fields    []*Field
	// Nested is set when an arm itself contains a further (anonymous)
	// variant part; spec.md §4.1 requires transparent descent into it
	// during field lookup.
	Nested *VariantType
}

// VariantType is a record's variant (tagged-union) suffix.
type VariantType struct {
	typeBase
	TagName string // empty if the selector has no named tag field
	TagType Type
	Arms    []*VariantArm
}

func (t *VariantType) Kind() Kind { return KVariant }

func (t *VariantType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	var fields []ssa.Type
	if t.TagType != nil {
		fields = append(fields, reg.irTypeOf(t.TagType))
	}
	// The arms overlay one shared storage region so every arm's fields
	// start at offset 0 inside it (spec.md §6 "Variant part"): the region
	// must be at least as large as the largest arm and at least as
	// aligned as the most-aligned arm, each tracked independently with
	// Max since neither bound is necessarily carried by the same arm.
	overlaySize, overlayAlign := 0, 1
	for _, arm := range t.Arms {
		sz, al := reg.armLayout(arm)
		overlaySize = Max(overlaySize, sz)
		overlayAlign = Max(overlayAlign, al)
	}
	if overlaySize > 0 {
		elem := reg.builder.CharType()
		switch {
		case overlayAlign >= 8:
			elem = reg.builder.Int64Type()
		case overlayAlign >= 4:
			elem = reg.builder.IntType()
		}
		esz := reg.builder.SizeOf(elem)
		fields = append(fields, reg.builder.ArrayType(elem, (overlaySize+esz-1)/esz))
	}
	t.irCache = reg.builder.StructType(reg.freshName("variant"), fields)
	return t.irCache
}

// RecordType is an ordered list of named fields plus an optional variant
// part (spec.md §3); anonymous nested records produced by variant arms
// reuse this same struct with an empty Name.
type RecordType struct {
	typeBase
	Name    string
	Fields  []*Field
	Variant *VariantType
}

func (t *RecordType) Kind() Kind { return KRecord }

func (t *RecordType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	name := t.Name
	if name == "" {
		name = "record"
	}
	t.irCache = reg.materializeFieldCollection(name, t.Fields, t.Variant)
	return t.irCache
}

// MemberFunc is one method of an ObjectType.
type MemberFunc struct {
	Proto     *Prototype
	IsStatic  bool
	IsVirtual bool
	IsOverride bool
	VtableIdx int // -1 if not virtual
}

// ObjectType is a record with single inheritance and virtual dispatch
// (spec.md §3). Base is nil for a root object.
type ObjectType struct {
	typeBase
	Name    string
	Base    *ObjectType
	Fields  []*Field // own fields only; Registry.AllFields prepends inherited
	Members []*MemberFunc
	Variant *VariantType
	vtable  ssa.Type
}

func (t *ObjectType) Kind() Kind { return KObject }

// HasVtable reports whether the object declares or inherits any virtual
// method (spec.md §4.1: the vtable pointer is only prepended then).
func (t *ObjectType) HasVtable() bool {
	for o := t; o != nil; o = o.Base {
		for _, m := range o.Members {
			if m.IsVirtual || m.IsOverride {
				return true
			}
		}
	}
	return false
}

func (t *ObjectType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	fields := reg.AllFields(t)
	var irFields []ssa.Type
	if t.HasVtable() {
		irFields = append(irFields, reg.builder.PointerType(reg.vtableIRType(t)))
	}
	for _, f := range fields {
		irFields = append(irFields, reg.irTypeOf(f.Typ))
	}
	if t.Variant != nil {
		irFields = append(irFields, reg.irTypeOf(t.Variant))
	}
	t.irCache = reg.builder.StructType(reg.freshName("object$"+t.Name), irFields)
	return t.irCache
}

// SetType is a subrange of element ordinals, represented as a fixed-width
// bitmap of 32-bit words (spec.md §3, §6 "Set layout").
type SetType struct {
	typeBase
	Elem Type // KChar, KEnum, or KSubrange base
	Range Range
}

func (t *SetType) Kind() Kind { return KSet }

// WordCount is how many 32-bit words back this set's bitmap.
func (t *SetType) WordCount() int {
	n := t.Range.Size()
	return (n + setWordBits - 1) / setWordBits
}

func (t *SetType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	t.irCache = reg.builder.ArrayType(reg.builder.IntType(), t.WordCount())
	return t.irCache
}

// FileType is a sequential file of element type Elem; IsText distinguishes
// a textual file (char-addressed) from a typed binary file (spec.md §3,
// §6's physical layout {handle, buffer, recordSize, isText}).
type FileType struct {
	typeBase
	Elem   Type
	IsText bool
}

func (t *FileType) Kind() Kind { return KFile }

func (t *FileType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	b := reg.builder
	fields := []ssa.Type{
		b.IntType(),                          // handle
		b.PointerType(reg.irTypeOf(t.Elem)),   // buffer
		b.IntType(),                           // recordSize
		b.BoolType(),                          // isText
	}
	t.irCache = b.StructType(reg.freshName("file"), fields)
	return t.irCache
}

// StringType caps a string's length at N (<=255), laid out as a length
// byte plus N chars (spec.md §3), indexable as an array.
type StringType struct {
	typeBase
	MaxLen int
}

func (t *StringType) Kind() Kind { return KString }

func (t *StringType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	b := reg.builder
	t.irCache = b.StructType(reg.freshName("string"), []ssa.Type{
		b.CharType(),
		b.ArrayType(b.CharType(), t.MaxLen),
	})
	return t.irCache
}

// FuncPtrType is a pointer-to-function value, lowered as a pointer to
// function with compound-by-ref calling convention (spec.md §3).
type FuncPtrType struct {
	typeBase
	Proto *Prototype
}

func (t *FuncPtrType) Kind() Kind { return KFuncPtr }

func (t *FuncPtrType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	t.irCache = reg.builder.PointerType(reg.funcIRType(t.Proto))
	return t.irCache
}

// FunctionType names a non-addressable function value resolving to a
// named symbol (spec.md §3) — used for the type of a bare function
// identifier used as a function-valued actual argument.
type FunctionType struct {
	typeBase
	Proto *Prototype
}

func (t *FunctionType) Kind() Kind { return KFunction }

func (t *FunctionType) IRType(reg *Registry) ssa.Type {
	if t.irCache != nil {
		return t.irCache
	}
	t.irCache = reg.funcIRType(t.Proto)
	return t.irCache
}

// bitLen returns the number of bits needed to represent values 0..n.
func bitLen(n int) int {
	return bits.Len(uint(n))
}
