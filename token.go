// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import "fmt"

// char names a token kind. Single-character tokens (';', '+', '(', ...)
// use the rune's own value, exactly as the teacher's scanner does
// (`&tok{rune: rune(c)}`); multi-character and keyword tokens are named
// constants below the valid rune range so the two spaces never collide.
type char int32

const (
	illegal char = -iota - 1
	eof

	// Multi-character punctuation.
	assign // :=
	dd     // ..
	le     // <=
	ge     // >=
	ne     // <>

	// Literal classes.
	identifier
	intLiteral
	realLiteral
	charLiteral
	strLiteral

	sep // whitespace/comment run collapsed by the scanner

	// Keywords. The lexer is out of scope per spec.md §1 (treated as an
	// opaque token source); this table only needs to be complete enough
	// for the parser productions this front end actually drives,
	// including the dialect extensions of spec.md §6.
	and
	array
	begin
	boolean
	caseKw
	char_
	const_
	div
	do_
	downto
	else_
	end
	false_
	file_
	for_
	forward
	function
	goto_
	if_
	in
	integer
	int64_
	label_
	mod
	new_
	not
	object_
	of
	or
	otherwise
	override_
	packed
	pointer_
	procedure
	program
	real_
	record
	repeat
	set_
	shl
	shr
	sizeof_
	static_
	string_
	then
	to
	true_
	type_
	until
	var_
	virtual_
	while_
	with
	xor
)

var keywords = map[string]char{
	"and":       and,
	"array":     array,
	"begin":     begin,
	"boolean":   boolean,
	"case":      caseKw,
	"char":      char_,
	"const":     const_,
	"div":       div,
	"do":        do_,
	"downto":    downto,
	"else":      else_,
	"end":       end,
	"false":     false_,
	"file":      file_,
	"for":       for_,
	"forward":   forward,
	"function":  function,
	"goto":      goto_,
	"if":        if_,
	"in":        in,
	"integer":   integer,
	"int64":     int64_,
	"label":     label_,
	"mod":       mod,
	"new":       new_,
	"not":       not,
	"object":    object_,
	"of":        of,
	"or":        or,
	"otherwise": otherwise,
	"override":  override_,
	"packed":    packed,
	"pointer":   pointer_,
	"procedure": procedure,
	"program":   program,
	"real":      real_,
	"record":    record,
	"repeat":    repeat,
	"set":       set_,
	"shl":       shl,
	"shr":       shr,
	"sizeof":    sizeof_,
	"static":    static_,
	"string":    string_,
	"then":      then,
	"to":        to,
	"true":      true_,
	"type":      type_,
	"until":     until,
	"var":       var_,
	"virtual":   virtual_,
	"while":     while_,
	"with":      with,
	"xor":       xor,
}

var symNames = map[char]string{
	illegal:     "illegal",
	eof:         "EOF",
	assign:      ":=",
	dd:          "..",
	le:          "<=",
	ge:          ">=",
	ne:          "<>",
	identifier:  "identifier",
	intLiteral:  "integer literal",
	realLiteral: "real literal",
	charLiteral: "char literal",
	strLiteral:  "string literal",
	sep:         "separator",
}

func init() {
	for kw, ch := range keywords {
		symNames[ch] = kw
	}
}

// str renders a token kind for diagnostics.
func (c char) str() string {
	if c >= 0 {
		return fmt.Sprintf("%q", rune(c))
	}
	if s, ok := symNames[c]; ok {
		return s
	}
	return fmt.Sprintf("char(%d)", int32(c))
}

func (c char) String() string { return c.str() }
