// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pascalc

import (
	"bytes"
	"fmt"
	"go/token"
	"strings"

	"modernc.org/pascalc/diag"
)

// node is anything with a source position, mirroring the teacher's
// scanner.go node interface (and the original C++'s every-ExprAST-has-a-
// position convention).
type node interface {
	Position() token.Position
}

// tok is one lexeme. The field named char (not "kind"/"type") matches the
// parser's own naming (p.c().char) throughout this front end.
type tok struct {
	file *token.File
	pos  token.Pos
	char char
	src  string
}

func (t *tok) Position() token.Position {
	if t == nil || t.file == nil {
		return token.Position{}
	}
	return t.file.Position(t.pos)
}

func (t *tok) String() string {
	return fmt.Sprintf("%v: %q %s", t.Position(), t.src, t.char.str())
}

// scanner is the token source. Per spec.md §1 the lexer's own rules
// (character classification, numeric/string literal syntax) are an
// out-of-scope external collaborator surfaced only through next()/peek()-
// shaped methods (here: scan()); this is the teacher's scanner.go, kept in
// its idiom and extended with the token kinds the fuller dialect needs.
type scanner struct {
	sink *diag.Sink
	file *token.File
	pos  token.Pos
	s    string
	si   int
}

func newScanner(b []byte, name string, sink *diag.Sink) (*scanner, error) {
	if x := bytes.IndexByte(b, 0); x >= 0 {
		return nil, fmt.Errorf("input file contains a zero byte at offset %#x", x)
	}

	fs := token.NewFileSet()
	file := fs.AddFile(name, -1, len(b)+1)
	b = append(append([]byte(nil), b...), 0) // sentinel
	return &scanner{
		sink: sink,
		s:    string(b),
		file: file,
		pos:  file.Pos(0),
	}, nil
}

func (s *scanner) c() byte { return s.s[s.si] }

func (s *scanner) post() byte {
	r := s.s[s.si]
	if r != 0 {
		s.si++
	}
	return r
}

func (s *scanner) pre() byte {
	if s.s[s.si] != 0 {
		s.si++
	}
	return s.s[s.si]
}

func (s *scanner) position() token.Position { return s.file.Position(s.pos) }

func (s *scanner) err(format string, args ...interface{}) {
	s.sink.Errorf(s.position(), format, args...)
}

func isDigit(c byte) bool   { return c >= '0' && c <= '9' }
func isIdFirst(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' }
func isIdNext(c byte) bool  { return isIdFirst(c) || isDigit(c) }

func (s *scanner) isSep(c byte) bool {
	switch c {
	case '\n':
		s.file.AddLine(s.si + 1)
		fallthrough
	case ' ', '\t', '\r':
		return true
	}
	return false
}

// scan returns the next token, classifying keywords case-insensitively
// (teacher's convention) and collapsing whitespace/comment runs into a
// single sep token the parser's c() loop skips over.
func (s *scanner) scan() (r *tok) {
	si0 := s.si
	defer func() {
		if r == nil {
			return
		}
		r.file = s.file
		r.pos = s.pos
		r.src = s.s[si0:s.si]
		if r.char == identifier {
			if x, ok := keywords[strings.ToLower(r.src)]; ok {
				r.char = x
			}
		}
	}()

more:
	si0 = s.si
	s.pos = s.file.Pos(si0)
	c := s.c()
	switch {
	case s.isSep(c):
		for s.isSep(s.pre()) {
		}
		return &tok{char: sep}
	case isIdFirst(c):
		for isIdNext(s.pre()) {
		}
		return &tok{char: identifier}
	case isDigit(c):
		return s.scanNumber()
	}

	switch c {
	case ';', ',', '=', '(', ')', '+', '-', '*', '/', '[', ']', '^':
		s.post()
		return &tok{char: char(c)}
	case ':':
		if s.pre() == '=' {
			s.post()
			return &tok{char: assign}
		}
		return &tok{char: ':'}
	case '\'':
		return s.scanString()
	case '.':
		if s.pre() == '.' {
			s.post()
			return &tok{char: dd}
		}
		return &tok{char: '.'}
	case '<':
		switch s.pre() {
		case '=':
			s.post()
			return &tok{char: le}
		case '>':
			s.post()
			return &tok{char: ne}
		}
		return &tok{char: '<'}
	case '>':
		if s.pre() == '=' {
			s.post()
			return &tok{char: ge}
		}
		return &tok{char: '>'}
	case '{':
		for {
			switch s.pre() {
			case '}':
				s.post()
				return &tok{char: sep}
			case 0:
				s.err("unterminated comment")
				return &tok{char: illegal}
			}
		}
	case 0:
		s.pos--
		return &tok{char: eof}
	}
	s.err("unexpected byte %q", c)
	s.post()
	goto more
}

// scanNumber lexes an unsigned integer or real literal (optionally with a
// fractional part and/or exponent), per ISO 6.1.5.
func (s *scanner) scanNumber() *tok {
	isReal := false
	for {
		switch c := s.pre(); {
		case isDigit(c):
			// ok
		case c == '.':
			if s.pre() == '.' {
				s.si--
				return &tok{char: intLiteral}
			}
			s.si--
			isReal = true
			s.post() // consume '.'
			for isDigit(s.pre()) {
			}
			s.si-- // the next pre() re-reads the first non-digit
		case c == 'e' || c == 'E':
			isReal = true
			if c := s.pre(); c == '+' || c == '-' {
				s.post()
			}
			for isDigit(s.pre()) {
			}
			return &tok{char: realLiteral}
		default:
			if isReal {
				return &tok{char: realLiteral}
			}
			return &tok{char: intLiteral}
		}
	}
}

// scanString lexes a character-string literal, honoring ISO Pascal's
// doubled-quote escape for an embedded apostrophe ('it''s').
func (s *scanner) scanString() *tok {
	for {
		switch s.pre() {
		case '\'':
			if s.pre() == '\'' {
				continue // escaped quote, stay inside the literal
			}
			s.si--
			s.post()
			return &tok{char: strLiteral}
		case 0:
			s.err("unterminated string literal")
			return &tok{char: illegal}
		}
	}
}
