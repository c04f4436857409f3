// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lib exposes the front end (lexer, resolver, closure
// conversion, SSA lowering) as an importable API, mirroring the CLI
// driver's own pipeline in cmd/pascalc.
package lib

import (
	"io/ioutil"

	"modernc.org/pascalc"
	"modernc.org/pascalc/diag"
	"modernc.org/pascalc/ssa"
)

// Result is what Compile hands back: the textual SSA module plus every
// diagnostic collected along the way (empty of errors iff Module is
// usable).
type Result struct {
	Module      string
	Diagnostics []diag.Diagnostic
}

// Compile reads the Pascal source at path, parses and resolves it, runs
// closure conversion, and lowers the program into b, returning the
// accumulated diagnostics regardless of success so a caller can report
// warnings even when compilation otherwise succeeds.
func Compile(path string, b ssa.Builder) (Result, error) {
	src, err := ioutil.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return CompileSource(src, path, b)
}

// CompileSource is Compile taking already-read source bytes, for callers
// that don't have (or don't want) a filesystem path — an editor buffer, a
// test fixture, a network payload.
func CompileSource(src []byte, name string, b ssa.Builder) (Result, error) {
	sink := diag.NewSink()
	prog, err := pascalc.Parse(src, name, sink, b)
	res := Result{Diagnostics: sink.Sorted()}
	if err != nil {
		return res, err
	}
	lw := pascalc.NewLowerer(b, prog.Reg, sink)
	lw.LowerProgram(prog.Body)
	res.Diagnostics = sink.Sorted()
	if tb, ok := b.(interface{ String() string }); ok {
		res.Module = tb.String()
	}
	return res, sink.Err()
}
