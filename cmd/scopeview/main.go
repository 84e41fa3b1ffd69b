// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The scopeview command analyzes the scopes of a scopescript file and
// prints the resolved scope tree. With no arguments and a terminal on
// standard input, it starts a read-analyze-print loop: type a chunk of
// code, then a blank line to analyze it.
package main // import "go.jscope.net/cmd/scopeview"

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	jscope "go.jscope.net"
	"go.jscope.net/internal/scopescript"
	"go.jscope.net/names"
)

// flags
var (
	module = flag.Bool("module", false, "analyze inputs as modules")
	strict = flag.Bool("strict", false, "analyze inputs in strict mode")
)

func main() {
	os.Exit(doMain())
}

func doMain() int {
	log.SetPrefix("scopeview: ")
	log.SetFlags(0)
	flag.Parse()

	switch {
	case flag.NArg() >= 1:
		for _, path := range flag.Args() {
			data, err := ioutil.ReadFile(path)
			if err != nil {
				log.Print(err)
				return 1
			}
			if err := analyze(path, string(data), os.Stdout); err != nil {
				printError(err)
				return 1
			}
		}
	case term.IsTerminal(int(os.Stdin.Fd())):
		repl()
	default:
		data, err := ioutil.ReadAll(os.Stdin)
		if err != nil {
			log.Print(err)
			return 1
		}
		if err := analyze("<stdin>", string(data), os.Stdout); err != nil {
			printError(err)
			return 1
		}
	}
	return 0
}

// analyze parses, analyzes, and prints one chunk of source.
func analyze(path, src string, w *os.File) error {
	if *strict {
		src = "\"use strict\"\n" + src
	}
	f := names.NewFactory()
	var script *jscope.DeclarationScope
	var err error
	if *module {
		script, err = scopescript.ParseModule(path, src, f)
	} else {
		script, err = scopescript.Parse(path, src, f)
	}
	if err != nil {
		return err
	}
	script.Analyze(&jscope.Info{ScriptScope: script})
	script.Print(w)
	return nil
}

// repl reads chunks of input, terminated by a blank line, and analyzes
// each.
func repl() {
	rl, err := readline.New(">>> ")
	if err != nil {
		printError(err)
		return
	}
	defer rl.Close()
	for {
		if err := readAnalyzePrint(rl); err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println(err)
				continue
			}
			break
		}
	}
	fmt.Println()
}

// readAnalyzePrint reads lines until a blank one, then analyzes the
// accumulated chunk. It returns an error only if readline failed.
func readAnalyzePrint(rl *readline.Instance) error {
	var lines []string
	rl.SetPrompt(">>> ")
	for {
		line, err := rl.Readline()
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
		rl.SetPrompt("... ")
	}
	if len(lines) == 0 {
		return nil
	}
	if err := analyze("<repl>", strings.Join(lines, "\n"), os.Stdout); err != nil {
		printError(err)
	}
	return nil
}

// printError prints the error to stderr, one line per error if it is a
// list.
func printError(err error) {
	if list, ok := err.(scopescript.ErrorList); ok {
		for _, e := range list {
			fmt.Fprintln(os.Stderr, e)
		}
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
}
