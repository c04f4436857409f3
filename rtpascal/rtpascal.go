// NOTE: This file is adapted from rtl.go of the web2go project, which
// carries a different license (public domain, CC0) than the rest of this
// repository. See https://creativecommons.org/publicdomain/zero/1.0/

// Package rtpascal is a reference implementation of the runtime entry
// points the lowerer emits CallRuntime references to (runtime.go's
// Signatures table): formatted text I/O against a default file, and the
// bitmap set operations spec.md §3 defines over SetType's word array. A
// real backend is free to substitute its own definitions of these
// symbols; this package exists so the lowered IR has somewhere to link
// against and so the calling convention
// recorded in runtime.go's table is demonstrably implementable.
package rtpascal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// File wraps the reader/writer pair one Pascal `file` variable needs,
// mirroring the teacher's ioFile (rtl.go) but trimmed to the text
// operations of this front end's Signatures table (it has no binary I/O):
// no WEB-specific itemSize/componentMode machinery, since this dialect's
// lowering only ever asks for a value-at-a-time read/write.
type File struct {
	r *bufio.Reader
	w *bufio.Writer
	c io.Closer

	err          error
	panicOnError bool
}

// Stdio is the default `input`/`output` file pair a program gets without
// an explicit reset/rewrite, matching spec.md §4.6's "readln/writeln
// default to the standard file handles" rule.
var (
	Stdin  = &File{r: bufio.NewReader(os.Stdin), panicOnError: true}
	Stdout = &File{w: bufio.NewWriter(os.Stdout), panicOnError: true}
)

// Open resets f for reading from name.
func Open(f *File, name string) error {
	g, err := os.Open(name)
	if err != nil {
		f.err = err
		return err
	}
	f.r = bufio.NewReader(g)
	f.c = g
	return nil
}

// Create rewrites f for writing to name.
func Create(f *File, name string) error {
	g, err := os.Create(name)
	if err != nil {
		f.err = err
		return err
	}
	f.w = bufio.NewWriter(g)
	f.c = g
	return nil
}

// Close flushes a writer and releases the underlying handle, if any.
func Close(f *File) error {
	if f.w != nil {
		if err := f.w.Flush(); err != nil {
			return err
		}
	}
	if f.c != nil {
		return f.c.Close()
	}
	return nil
}

// --- __write_* : one call per WriteStmt argument (lower.go's lowerWrite) ---

func writePad(w *bufio.Writer, s string, width int) {
	if width > len(s) {
		w.WriteString(strings.Repeat(" ", width-len(s)))
	}
	w.WriteString(s)
}

func WriteInt(f *File, v int64, width int32) {
	writePad(f.w, fmt.Sprintf("%d", v), int(width))
}

func WriteReal(f *File, v float64, width, precision int32) {
	s := strconvReal(v, int(precision))
	writePad(f.w, s, int(width))
}

func strconvReal(v float64, precision int) string {
	if precision <= 0 {
		precision = 6
	}
	return fmt.Sprintf("%.*f", precision, v)
}

func WriteChar(f *File, v byte, width int32) {
	writePad(f.w, string(v), int(width))
}

func WriteBool(f *File, v bool, width int32) {
	s := "FALSE"
	if v {
		s = "TRUE"
	}
	writePad(f.w, s, int(width))
}

func WriteStr(f *File, v string, width int32) {
	writePad(f.w, v, int(width))
}

func WriteNL(f *File) {
	f.w.WriteByte('\n')
}

// --- __read_* : one call per ReadStmt target (lower.go's lowerRead) ---

func ReadInt(f *File) int64 {
	tok := f.readToken()
	n, err := parseInt(tok)
	if err != nil {
		f.err = err
	}
	return n
}

func ReadReal(f *File) float64 {
	tok := f.readToken()
	v, err := parseFloat(tok)
	if err != nil {
		f.err = err
	}
	return v
}

func ReadChar(f *File) byte {
	b, err := f.r.ReadByte()
	if err != nil {
		f.err = err
		return 0
	}
	return b
}

func ReadNL(f *File) {
	for {
		b, err := f.r.ReadByte()
		if err != nil || b == '\n' {
			return
		}
	}
}

func (f *File) readToken() string {
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			f.err = err
			return ""
		}
		if b != ' ' && b != '\t' && b != '\n' {
			f.r.UnreadByte()
			break
		}
	}
	var sb strings.Builder
	for {
		b, err := f.r.ReadByte()
		if err != nil {
			break
		}
		if b == ' ' || b == '\t' || b == '\n' {
			f.r.UnreadByte()
			break
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

func parseInt(s string) (int64, error) {
	var n int64
	var neg bool
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	}
	if s == "" {
		return 0, fmt.Errorf("empty integer token")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("malformed integer %q", s)
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscanf(s, "%g", &v)
	return v, err
}

// Eof and Eoln implement the __file_eof/__file_eoln runtime calls.
func Eof(f *File) bool {
	if f.err == io.EOF {
		return true
	}
	_, err := f.r.Peek(1)
	return err == io.EOF
}

func Eoln(f *File) bool {
	b, err := f.r.Peek(1)
	if err == io.EOF {
		return true
	}
	return err == nil && b[0] == '\n'
}

// --- set operations : spec.md §3's fixed-width bitmap-of-32-bit-words ---

// SetUnion, SetDiff and SetIntersect implement `+`, `-` and `*` over set
// values the way lower.go's lowerBinary dispatches them: word-by-word
// bitwise ops over two equal-length word slices.
func SetUnion(a, b []uint32) []uint32     { return setZip(a, b, func(x, y uint32) uint32 { return x | y }) }
func SetDiff(a, b []uint32) []uint32      { return setZip(a, b, func(x, y uint32) uint32 { return x &^ y }) }
func SetIntersect(a, b []uint32) []uint32 { return setZip(a, b, func(x, y uint32) uint32 { return x & y }) }

func setZip(a, b []uint32, op func(x, y uint32) uint32) []uint32 {
	r := make([]uint32, len(a))
	for i := range a {
		r[i] = op(a[i], b[i])
	}
	return r
}

func SetEqual(a, b []uint32) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SetSubset reports whether every bit set in a is also set in b (a <= b).
func SetSubset(a, b []uint32) bool {
	for i := range a {
		if a[i]&^b[i] != 0 {
			return false
		}
	}
	return true
}

// SetContains reports whether ordinal v (already offset against the set
// type's base) is a member.
func SetContains(words []uint32, v int32) bool {
	word, bit := v/32, uint(v%32)
	if word < 0 || int(word) >= len(words) {
		return false
	}
	return words[word]&(1<<bit) != 0
}

// abs/round mirror the teacher's rtl.go helpers for the builtins lower.go
// can't express as a single SSA op.
func AbsReal(v float64) float64 { return math.Abs(v) }
func RoundReal(v float64) int64 { return int64(math.Round(v)) }
