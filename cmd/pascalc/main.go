// Copyright 2021 The web2go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pascalc compiles an ISO-style Pascal source file into SSA IR
// text for an external backend.
//
// Invocation
//
//	$ pascalc [options] input-file
//
// Options
//
//	-o output-file
//
// Set the IR output file name. Defaults to stdout.
//
//	-e
//
// Show all diagnostics, not just the first.
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"runtime/debug"
	"strings"

	"flag"

	"github.com/dustin/go-humanize"
	"modernc.org/pascalc/diag"
	"modernc.org/pascalc/lib"
	"modernc.org/pascalc/ssa"
)

func fatalf(stack bool, s string, args ...interface{}) {
	if stack {
		fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
	}
	fmt.Fprintln(os.Stderr, strings.TrimSpace(fmt.Sprintf(s, args...)))
	os.Exit(1)
}

func fatal(stack bool, args ...interface{}) {
	if stack {
		fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
	}
	fmt.Fprintln(os.Stderr, strings.TrimSpace(fmt.Sprint(args...)))
	os.Exit(1)
}

type task struct {
	in    string
	o     string
	e     bool
	stack bool
}

func main() {
	t := &task{}
	flag.BoolVar(&t.e, "e", false, "show all diagnostics")
	flag.BoolVar(&t.stack, "stack", false, "show dying stack traces")
	flag.StringVar(&t.o, "o", "", "IR output file (defaults to stdout)")
	flag.Parse()

	switch flag.NArg() {
	case 0:
		fatal(t.stack, "missing input file argument")
	case 1:
		t.in = flag.Arg(0)
	default:
		fatal(t.stack, "at most one input file expected")
	}

	if err := t.main(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (t *task) main() error {
	src, err := ioutil.ReadFile(t.in)
	if err != nil {
		return err
	}

	if t.stack {
		fmt.Fprintf(os.Stderr, "compiling %s (%s)\n", t.in, humanize.Bytes(uint64(len(src))))
	}

	b := ssa.NewTextBuilder()
	res, err := lib.CompileSource(src, t.in, b)
	t.report(res.Diagnostics)
	if err != nil {
		return err
	}

	out := os.Stdout
	if t.o != "" {
		f, err := os.Create(t.o)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	_, err = fmt.Fprint(out, res.Module)
	return err
}

func (t *task) report(diags []diag.Diagnostic) {
	for i, d := range diags {
		if i > 0 && !t.e {
			fmt.Fprintf(os.Stderr, "(%d more diagnostics omitted, use -e to show all)\n", len(diags)-1)
			break
		}
		fmt.Fprintln(os.Stderr, d)
	}
}
