// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import (
	"fmt"

	"modernc.org/mathutil"
	"modernc.org/pascalc/ssa"
)

// Registry owns every declared type's identity and materialization. It is
// the one place that talks to the backend's Builder for type construction
// and data-layout queries (spec.md §4.1); Type.IRType methods all defer
// back into it so the layout algorithms (variant overlay, object vtable
// prepending, forward-pointer fixup) live in a single file.
type Registry struct {
	builder ssa.Builder

	// Predeclared singletons, built once.
	Integer *PrimitiveType
	Int64   *PrimitiveType
	Real    *PrimitiveType
	Char    *PrimitiveType
	Bool    *PrimitiveType
	Void    *PrimitiveType

	names map[string]int

	// forward holds every PointerType still waiting on its Unresolved
	// pointee name, keyed by that name, so ResolvePointer can patch them
	// all at once when the pointee type is finally declared.
	forward map[string][]*PointerType

	// vtables caches one ssa.Type (an array-of-function-pointers struct)
	// per ObjectType that has a vtable.
	vtables map[*ObjectType]ssa.Type

	// funcTypes caches one ssa.Type per distinct Prototype shape so two
	// funcptr variables of the same declared signature share a type.
	funcTypes map[*Prototype]ssa.Type
}

// NewRegistry builds the predeclared primitive singletons against b and
// returns a ready-to-use Registry.
func NewRegistry(b ssa.Builder) *Registry {
	r := &Registry{
		builder:   b,
		names:     map[string]int{},
		forward:   map[string][]*PointerType{},
		vtables:   map[*ObjectType]ssa.Type{},
		funcTypes: map[*Prototype]ssa.Type{},
	}
	r.Integer = &PrimitiveType{kind: KInteger}
	r.Int64 = &PrimitiveType{kind: KInt64}
	r.Real = &PrimitiveType{kind: KReal}
	r.Char = &PrimitiveType{kind: KChar}
	r.Bool = &PrimitiveType{kind: KBool}
	r.Void = &PrimitiveType{kind: KVoid}
	return r
}

func (r *Registry) freshName(base string) string {
	r.names[base]++
	return fmt.Sprintf("%s.%d", base, r.names[base])
}

func (r *Registry) irTypeOf(t Type) ssa.Type { return t.IRType(r) }

// Size and Align defer entirely to the backend's data-layout oracle
// applied to the materialized IR type, per spec.md §4.1: the registry
// never computes a byte size itself except for the variant/object
// overlay arithmetic that has no other owner.
func (r *Registry) Size(t Type) int  { return r.builder.SizeOf(r.irTypeOf(t)) }
func (r *Registry) Align(t Type) int { return r.builder.AlignOf(r.irTypeOf(t)) }

// NewForwardPointer returns a PointerType to the not-yet-declared type
// named name, for ResolvePointer to rebind later (spec.md §4.1's forward-
// pointer rule: "^T is legal before T's declaration provided T is
// declared later in the same type-definition part"). No opaque
// placeholder stands in for it: materializing its IR type before
// ResolvePointer has run panics.
func (r *Registry) NewForwardPointer(name string) *PointerType {
	p := &PointerType{Unresolved: name}
	r.forward[name] = append(r.forward[name], p)
	return p
}

// ResolvePointer backpatches every PointerType still waiting on name, once
// its target type becomes known. It is a parse-time error (caught by the
// caller, typically at the end of a type-definition-part) if any name in
// r.forward remains unresolved.
func (r *Registry) ResolvePointer(name string, target Type) {
	for _, p := range r.forward[name] {
		p.Pointee = target
	}
	delete(r.forward, name)
}

// UnresolvedForwardNames returns the names still awaiting a ResolvePointer
// call, for the parser to report as "forward type never declared".
func (r *Registry) UnresolvedForwardNames() []string {
	var names []string
	for name := range r.forward {
		names = append(names, name)
	}
	return names
}

// armLayout materializes one VariantArm's own field set as a struct and
// returns its size/align, without caching the struct itself (arms aren't
// independently addressable types, only contributors to the overlay).
func (r *Registry) armLayout(arm *VariantArm) (size, align int) {
	t := r.materializeFieldCollection(r.freshName("variant$arm"), arm.Fields, arm.Nested)
	return r.builder.SizeOf(t), r.builder.AlignOf(t)
}

// materializeFieldCollection builds a backend struct type from an ordered
// field list plus an optional trailing variant part, shared by RecordType,
// ObjectType's own-field portion, and ad hoc variant arms.
func (r *Registry) materializeFieldCollection(name string, fields []*Field, variant *VariantType) ssa.Type {
	irFields := make([]ssa.Type, 0, len(fields)+1)
	for _, f := range fields {
		irFields = append(irFields, r.irTypeOf(f.Typ))
	}
	if variant != nil {
		irFields = append(irFields, r.irTypeOf(variant))
	}
	return r.builder.StructType(r.freshName(name), irFields)
}

// AllFields returns t's inherited fields (base-first) followed by its own
// fields, the order the lowerer uses for GEP indices and the order
// IRType's own-field loop must match (spec.md §4.1: "an object's storage
// is its base's storage followed by its own fields").
func (r *Registry) AllFields(t *ObjectType) []*Field {
	var chain []*ObjectType
	for o := t; o != nil; o = o.Base {
		chain = append(chain, o)
	}
	var out []*Field
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].Fields...)
	}
	return out
}

// FindField resolves name against t (record, object, or variant),
// descending into anonymous nested variant arms transparently and, for an
// ObjectType, recursing into the base when not found locally (spec.md
// §4.1's field-lookup order: own fields, then own variant arms, then base,
// linear scan, first match wins, shadowing the base on a name collision).
func FindField(t Type, name string) (*Field, bool) {
	switch t := t.(type) {
	case *RecordType:
		if f, ok := findInFields(t.Fields, name); ok {
			return f, true
		}
		if t.Variant != nil {
			return findInVariant(t.Variant, name)
		}
	case *ObjectType:
		for o := t; o != nil; o = o.Base {
			if f, ok := findInFields(o.Fields, name); ok {
				return f, true
			}
			if o.Variant != nil {
				if f, ok := findInVariant(o.Variant, name); ok {
					return f, true
				}
			}
		}
	}
	return nil, false
}

func findInFields(fields []*Field, name string) (*Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func findInVariant(v *VariantType, name string) (*Field, bool) {
	for _, arm := range v.Arms {
		if f, ok := findInFields(arm.Fields, name); ok {
			return f, true
		}
		if arm.Nested != nil {
			if f, ok := findInVariant(arm.Nested, name); ok {
				return f, true
			}
		}
	}
	return nil, false
}

// AssignVtableIndices walks t's own Members, assigning a monotonic
// VtableIdx to every virtual method and reusing the base's index on
// override, per spec.md §4.1's "Object vtable" invariant. Must run after
// t.Base's own indices are final, i.e. in declaration order outward
// (root object first).
func AssignVtableIndices(t *ObjectType) {
	next := 0
	if t.Base != nil {
		next = vtableSize(t.Base)
	}
	for _, m := range t.Members {
		if !m.IsVirtual && !m.IsOverride {
			m.VtableIdx = -1
			continue
		}
		if m.IsOverride {
			if base, ok := findVirtual(t.Base, m.Proto.Name); ok {
				m.VtableIdx = base.VtableIdx
				continue
			}
		}
		m.VtableIdx = next
		next++
	}
}

func vtableSize(t *ObjectType) int {
	max := -1
	for o := t; o != nil; o = o.Base {
		for _, m := range o.Members {
			if m.VtableIdx > max {
				max = m.VtableIdx
			}
		}
	}
	return max + 1
}

func findVirtual(t *ObjectType, name string) (*MemberFunc, bool) {
	for o := t; o != nil; o = o.Base {
		for _, m := range o.Members {
			if m.Proto.Name == name && (m.IsVirtual || m.IsOverride) {
				return m, true
			}
		}
	}
	return nil, false
}

// vtableIRType returns (building and caching once) the backend struct type
// of t's vtable: one function-pointer field per virtual slot, in VtableIdx
// order, inherited slots included.
func (r *Registry) vtableIRType(t *ObjectType) ssa.Type {
	if vt, ok := r.vtables[t]; ok {
		return vt
	}
	n := vtableSize(t)
	slots := make([]*MemberFunc, n)
	for o := t; o != nil; o = o.Base {
		for _, m := range o.Members {
			if m.VtableIdx >= 0 && slots[m.VtableIdx] == nil {
				slots[m.VtableIdx] = m
			}
		}
	}
	fields := make([]ssa.Type, n)
	for i, m := range slots {
		if m == nil {
			fields[i] = r.builder.PointerType(r.builder.VoidType())
			continue
		}
		fields[i] = r.builder.PointerType(r.funcIRType(m.Proto))
	}
	vt := r.builder.StructType(r.freshName("vtable$"+t.Name), fields)
	r.vtables[t] = vt
	return vt
}

// funcIRType returns (building and caching once) the backend function
// type for a Prototype, receiver and closure-conversion extra parameters
// included.
func (r *Registry) funcIRType(p *Prototype) ssa.Type {
	if ft, ok := r.funcTypes[p]; ok {
		return ft
	}
	var params []ssa.Type
	if p.Recv != nil {
		params = append(params, r.builder.PointerType(r.irTypeOf(p.Recv)))
	}
	for _, param := range p.AllParams() {
		pt := r.irTypeOf(param.Typ)
		if param.ByRef {
			pt = r.builder.PointerType(pt)
		}
		params = append(params, pt)
	}
	result := r.irTypeOf(r.Void)
	if p.Result != nil {
		result = r.irTypeOf(p.Result)
	}
	ft := r.builder.FuncType(params, result)
	r.funcTypes[p] = ft
	return ft
}

// -- type relations (spec.md §4.1: same_as / compatible / assignable) --

// SameAs is structural-for-anonymous, nominal-for-named identity, grounded
// on original_source/types.cpp's Types::SameAs family.
func SameAs(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case *PrimitiveType:
		return true
	case *SubrangeType:
		bt := b.(*SubrangeType)
		return at.BaseKind == bt.BaseKind && at.Range == bt.Range
	case *PointerType:
		bt := b.(*PointerType)
		return SameAs(at.Pointee, bt.Pointee)
	case *ArrayType:
		bt := b.(*ArrayType)
		if len(at.Dims) != len(bt.Dims) || !SameAs(at.Elem, bt.Elem) {
			return false
		}
		for i, d := range at.Dims {
			if d != bt.Dims[i] {
				return false
			}
		}
		return true
	case *EnumType, *RecordType, *ObjectType:
		return false // nominal: distinct declarations are distinct types
	case *SetType:
		bt := b.(*SetType)
		return SameAs(at.Elem, bt.Elem) && at.Range == bt.Range
	case *StringType:
		bt := b.(*StringType)
		return at.MaxLen == bt.MaxLen
	case *FuncPtrType:
		bt := b.(*FuncPtrType)
		return sameProto(at.Proto, bt.Proto)
	}
	return false
}

func sameProto(a, b *Prototype) bool {
	if len(a.Params) != len(b.Params) {
		return false
	}
	for i, p := range a.Params {
		if !SameAs(p.Typ, b.Params[i].Typ) || p.ByRef != b.Params[i].ByRef {
			return false
		}
	}
	if (a.Result == nil) != (b.Result == nil) {
		return false
	}
	return a.Result == nil || SameAs(a.Result, b.Result)
}

// Compatible reports whether a and b may appear as the two operands of a
// relational or arithmetic operator (ISO 6.7.2.1/6.7.2.2), grounded on
// original_source/types.cpp's CompatibleType family.
//
// Unlike that original (see types.cpp's ArrayDecl::CompatibleType, which
// returns true on a dimension-count match alone even when a later
// dimension's size differs), array compatibility here checks every
// dimension's size and returns false on any mismatch — the dialect bug
// SPEC_FULL.md documents as deliberately not reproduced.
func Compatible(a, b Type) bool {
	if SameAs(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch a.Kind() {
	case KInteger, KInt64, KReal:
		switch b.Kind() {
		case KInteger, KInt64, KReal:
			return true
		}
		return false
	case KSubrange:
		return Compatible(a.(*SubrangeType).baseType(), b)
	case KArray:
		at, ok := a.(*ArrayType)
		bt, ok2 := b.(*ArrayType)
		if !ok || !ok2 || len(at.Dims) != len(bt.Dims) {
			return false
		}
		for i := range at.Dims {
			if at.Dims[i].Size() != bt.Dims[i].Size() {
				return false
			}
		}
		return Compatible(at.Elem, bt.Elem)
	}
	if b.Kind() == KSubrange {
		return Compatible(a, b.(*SubrangeType).baseType())
	}
	return false
}

func (t *SubrangeType) baseType() Type {
	switch t.BaseKind {
	case KChar:
		return &PrimitiveType{kind: KChar}
	case KEnum:
		return t.BaseEnum
	default:
		return &PrimitiveType{kind: KInteger}
	}
}

// Assignable reports whether a value of type src may be assigned (or
// passed by value) to a variable of type dst, per original_source's
// AssignableType family: narrower than Compatible (e.g. real:=integer is
// assignable but integer:=real is not).
func Assignable(dst, src Type) bool {
	if SameAs(dst, src) {
		return true
	}
	if dst == nil || src == nil {
		return false
	}
	switch dst.Kind() {
	case KReal:
		return src.Kind() == KInteger || src.Kind() == KInt64 || src.Kind() == KReal
	case KInt64:
		return src.Kind() == KInteger || src.Kind() == KInt64
	case KSubrange:
		return Assignable(dst.(*SubrangeType).baseType(), src)
	}
	if dst.Kind() == KString {
		if sc, ok := src.(*StringType); ok {
			return sc.MaxLen <= dst.(*StringType).MaxLen
		}
		return src.Kind() == KChar
	}
	if dst.Kind() == KArray && src.Kind() == KArray {
		return Compatible(dst, src)
	}
	if dst.Kind() == KObject && src.Kind() == KObject {
		for o := src.(*ObjectType); o != nil; o = o.Base {
			if o == dst {
				return true
			}
		}
		return false
	}
	if dst.Kind() == KPointer && src.Kind() == KPointer {
		dp, sp := dst.(*PointerType), src.(*PointerType)
		if dp.Pointee == nil || sp.Pointee == nil {
			return SameAs(dp.Pointee, sp.Pointee)
		}
		return Assignable(dp.Pointee, sp.Pointee) && SameAs(dp.Pointee, sp.Pointee)
	}
	return false
}

// Max and Min are the registry's numeric helpers for layout arithmetic
// (variant overlay size and alignment, the copy length of an aggregate
// assignment in lowerAssign), delegating to
// mathutil rather than hand-rolling comparisons.
func Max(a, b int) int { return mathutil.Max(a, b) }
func Min(a, b int) int { return mathutil.Min(a, b) }
