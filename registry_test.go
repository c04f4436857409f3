// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import "testing"

func TestCompatibleArrayDimensionMismatch(t *testing.T) {
	reg := NewRegistry(nil)
	a := &ArrayType{Elem: reg.Integer, Dims: []Range{{Low: 1, High: 10}}}
	b := &ArrayType{Elem: reg.Integer, Dims: []Range{{Low: 1, High: 20}}}
	if Compatible(a, b) {
		t.Error("arrays with differing dimension sizes must not be Compatible (dialect bug deliberately not reproduced)")
	}
}

func TestCompatibleArraySameShape(t *testing.T) {
	reg := NewRegistry(nil)
	a := &ArrayType{Elem: reg.Integer, Dims: []Range{{Low: 1, High: 10}}}
	b := &ArrayType{Elem: reg.Integer, Dims: []Range{{Low: 1, High: 10}}}
	if !Compatible(a, b) {
		t.Error("arrays with identical dimension sizes should be Compatible")
	}
}

func TestCompatibleNumericWidening(t *testing.T) {
	reg := NewRegistry(nil)
	if !Compatible(reg.Integer, reg.Real) {
		t.Error("integer and real should be Compatible")
	}
}

func TestAssignableRealFromInteger(t *testing.T) {
	reg := NewRegistry(nil)
	if !Assignable(reg.Real, reg.Integer) {
		t.Error("real := integer should be assignable")
	}
	if Assignable(reg.Integer, reg.Real) {
		t.Error("integer := real should NOT be assignable")
	}
}

func TestAssignableObjectUpcast(t *testing.T) {
	base := &ObjectType{Name: "Base"}
	derived := &ObjectType{Name: "Derived", Base: base}
	if !Assignable(base, derived) {
		t.Error("derived object should be assignable to a base-typed variable")
	}
	if Assignable(derived, base) {
		t.Error("base object should NOT be assignable to a derived-typed variable")
	}
}

func TestAssignVtableIndicesInheritedOverride(t *testing.T) {
	base := &ObjectType{Name: "Base"}
	baseM := &MemberFunc{Proto: &Prototype{Name: "Speak"}, IsVirtual: true}
	base.Members = []*MemberFunc{baseM}
	AssignVtableIndices(base)
	if baseM.VtableIdx != 0 {
		t.Fatalf("base virtual method should get index 0, got %d", baseM.VtableIdx)
	}

	derived := &ObjectType{Name: "Derived", Base: base}
	derivedM := &MemberFunc{Proto: &Prototype{Name: "Speak"}, IsOverride: true}
	otherM := &MemberFunc{Proto: &Prototype{Name: "Extra"}, IsVirtual: true}
	derived.Members = []*MemberFunc{derivedM, otherM}
	AssignVtableIndices(derived)

	if derivedM.VtableIdx != baseM.VtableIdx {
		t.Errorf("override should reuse base index: got %d, want %d", derivedM.VtableIdx, baseM.VtableIdx)
	}
	if otherM.VtableIdx != 1 {
		t.Errorf("new virtual method should get next index: got %d, want 1", otherM.VtableIdx)
	}
}

func TestFindFieldInheritsFromBase(t *testing.T) {
	base := &ObjectType{Name: "Base", Fields: []*Field{{Name: "X", Typ: nil}}}
	derived := &ObjectType{Name: "Derived", Base: base, Fields: []*Field{{Name: "Y", Typ: nil}}}
	if _, ok := FindField(derived, "X"); !ok {
		t.Error("derived object should find base's field X")
	}
	if _, ok := FindField(derived, "Y"); !ok {
		t.Error("derived object should find its own field Y")
	}
	if _, ok := FindField(derived, "Z"); ok {
		t.Error("derived object should not find a nonexistent field")
	}
}

func TestForwardPointerResolution(t *testing.T) {
	reg := NewRegistry(nil)
	p := reg.NewForwardPointer("Node")
	if len(reg.UnresolvedForwardNames()) != 1 {
		t.Fatalf("expected 1 unresolved forward name, got %d", len(reg.UnresolvedForwardNames()))
	}
	node := &RecordType{Name: "Node"}
	reg.ResolvePointer("Node", node)
	if p.Pointee != node {
		t.Error("forward pointer should be patched to the resolved type")
	}
	if len(reg.UnresolvedForwardNames()) != 0 {
		t.Error("no forward names should remain unresolved")
	}
}
