// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lib

import (
	"strings"
	"testing"

	"modernc.org/pascalc/ssa"
)

const helloSrc = `program Hello;
var
  x: integer;
begin
  x := 1 + 2;
  writeln(x);
end.
`

func TestCompileSourceProducesModule(t *testing.T) {
	b := ssa.NewTextBuilder()
	res, err := CompileSource([]byte(helloSrc), "hello.p", b)
	if err != nil {
		t.Fatalf("CompileSource: %v (diagnostics: %v)", err, res.Diagnostics)
	}
	if res.Module == "" {
		t.Fatal("expected non-empty lowered module text")
	}
	if !strings.Contains(res.Module, "__PascalMain") {
		t.Errorf("expected the program body's mangled name in the module dump, got:\n%s", res.Module)
	}
}

func TestCompileSourceReportsSyntaxError(t *testing.T) {
	b := ssa.NewTextBuilder()
	_, err := CompileSource([]byte("program Broken; begin x := ; end."), "broken.p", b)
	if err == nil {
		t.Fatal("expected a syntax error for a malformed assignment")
	}
}
