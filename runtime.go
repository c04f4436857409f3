// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

// RuntimeSig describes one external runtime symbol's calling convention:
// how many values it takes and whether it returns one, so the lowerer can
// validate an argument list before emitting a CallRuntime without needing
// the real backend's own symbol table (spec.md §4.6).
type RuntimeSig struct {
	Name    string
	Args    int
	Result  bool
	Variadic bool
}

// Signatures is the fixed table of runtime entry points this front end's
// lowering can call into — set operations (bitmap words in, bitmap word
// out or a bool), formatted I/O (one call per argument plus a trailing
// newline call), and the file and heap helpers below. Raw memory copies
// are not in this table: the lowerer emits them with the Builder's
// Memcpy (spec.md §4.6's calling-convention list; also
// grounded on original_source/expr.cpp's write/read codegen, which emits
// one runtime call per write/read argument rather than a single variadic
// call).
var Signatures = map[string]RuntimeSig{
	"__SetUnion":     {Name: "__SetUnion", Args: 2, Result: true},
	"__SetDiff":      {Name: "__SetDiff", Args: 2, Result: true},
	"__SetIntersect": {Name: "__SetIntersect", Args: 2, Result: true},
	"__SetEqual":     {Name: "__SetEqual", Args: 2, Result: true},
	"__SetContains":  {Name: "__SetContains", Args: 2, Result: true},
	"__SetSubset":    {Name: "__SetSubset", Args: 2, Result: true},

	"__write_int":  {Name: "__write_int", Args: 3, Result: false},  // value, width, file
	"__write_real": {Name: "__write_real", Args: 4, Result: false}, // value, width, precision, file
	"__write_char": {Name: "__write_char", Args: 3, Result: false},
	"__write_bool": {Name: "__write_bool", Args: 3, Result: false},
	"__write_str":  {Name: "__write_str", Args: 3, Result: false},
	"__write_nl":   {Name: "__write_nl", Args: 1, Result: false}, // file

	"__read_int":  {Name: "__read_int", Args: 1, Result: true}, // file -> value
	"__read_real": {Name: "__read_real", Args: 1, Result: true},
	"__read_char": {Name: "__read_char", Args: 1, Result: true},
	"__read_nl":   {Name: "__read_nl", Args: 1, Result: false},

	"__write_bin": {Name: "__write_bin", Args: 3, Result: false}, // file, elemptr, size
	"__read_bin":  {Name: "__read_bin", Args: 3, Result: false},

	"__file_eof":  {Name: "__file_eof", Args: 1, Result: true},
	"__file_eoln": {Name: "__file_eoln", Args: 1, Result: true},

	"__new":    {Name: "__new", Args: 1, Result: true}, // size -> pointer
	"__dispose": {Name: "__dispose", Args: 1, Result: false},
}

// Lookup returns the signature for name, or (RuntimeSig{}, false) if name
// is not a runtime entry point this front end knows how to call.
func Lookup(name string) (RuntimeSig, bool) {
	sig, ok := Signatures[name]
	return sig, ok
}
