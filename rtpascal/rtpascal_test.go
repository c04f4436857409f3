// NOTE: This file is adapted from rtl.go of the web2go project, which
// carries a different license (public domain, CC0) than the rest of this
// repository. See https://creativecommons.org/publicdomain/zero/1.0/

package rtpascal

import (
	"bufio"
	"bytes"
	"testing"
)

func newWriteFile(buf *bytes.Buffer) *File {
	return &File{w: bufio.NewWriter(buf)}
}

func flush(f *File) { f.w.Flush() }

func TestWriteIntWidth(t *testing.T) {
	var buf bytes.Buffer
	f := newWriteFile(&buf)
	WriteInt(f, 42, 5)
	flush(f)
	if got, want := buf.String(), "   42"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteBool(t *testing.T) {
	var buf bytes.Buffer
	f := newWriteFile(&buf)
	WriteBool(f, true, 0)
	flush(f)
	if got, want := buf.String(), "TRUE"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteRealPrecision(t *testing.T) {
	var buf bytes.Buffer
	f := newWriteFile(&buf)
	WriteReal(f, 3.14159, 0, 2)
	flush(f)
	if got, want := buf.String(), "3.14"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadIntToken(t *testing.T) {
	f := &File{r: bufio.NewReader(bytes.NewReader([]byte("  -17 23\n")))}
	if got := ReadInt(f); got != -17 {
		t.Errorf("got %d, want -17", got)
	}
	if got := ReadInt(f); got != 23 {
		t.Errorf("got %d, want 23", got)
	}
}

func TestReadCharAndEof(t *testing.T) {
	f := &File{r: bufio.NewReader(bytes.NewReader([]byte("AB")))}
	if Eof(f) {
		t.Fatal("should not be EOF yet")
	}
	if c := ReadChar(f); c != 'A' {
		t.Errorf("got %q, want 'A'", c)
	}
	if c := ReadChar(f); c != 'B' {
		t.Errorf("got %q, want 'B'", c)
	}
	if !Eof(f) {
		t.Error("should be EOF after consuming both bytes")
	}
}

func TestEoln(t *testing.T) {
	f := &File{r: bufio.NewReader(bytes.NewReader([]byte("x\ny")))}
	if Eoln(f) {
		t.Fatal("should not be at newline yet")
	}
	ReadChar(f)
	if !Eoln(f) {
		t.Error("should be at newline after consuming 'x'")
	}
}

func TestSetOps(t *testing.T) {
	a := []uint32{0b0110}
	b := []uint32{0b0011}
	if got, want := SetUnion(a, b)[0], uint32(0b0111); got != want {
		t.Errorf("union: got %b, want %b", got, want)
	}
	if got, want := SetIntersect(a, b)[0], uint32(0b0010); got != want {
		t.Errorf("intersect: got %b, want %b", got, want)
	}
	if got, want := SetDiff(a, b)[0], uint32(0b0100); got != want {
		t.Errorf("diff: got %b, want %b", got, want)
	}
	if !SetEqual(a, a) {
		t.Error("a should equal itself")
	}
	if SetEqual(a, b) {
		t.Error("a should not equal b")
	}
}

func TestSetSubsetAndContains(t *testing.T) {
	sub := []uint32{0b0010}
	full := []uint32{0b0110}
	if !SetSubset(sub, full) {
		t.Error("sub should be a subset of full")
	}
	if SetSubset(full, sub) {
		t.Error("full should not be a subset of sub")
	}
	if !SetContains(full, 1) {
		t.Error("full should contain ordinal 1")
	}
	if SetContains(full, 0) {
		t.Error("full should not contain ordinal 0")
	}
}
