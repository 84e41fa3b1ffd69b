// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package scopescript

import (
	"strings"
	"testing"

	jscope "go.jscope.net"
	"go.jscope.net/names"
)

func parseScript(t *testing.T, src string) *jscope.DeclarationScope {
	t.Helper()
	script, err := Parse("test.js", src, names.NewFactory())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return script
}

func TestScopeShapes(t *testing.T) {
	for _, tc := range []struct {
		src  string
		want []jscope.ScopeType // types of the script scope's children
	}{
		{"var x", nil},
		{"function f() {}", []jscope.ScopeType{jscope.FunctionScope}},
		{"let y = (a) => a", []jscope.ScopeType{jscope.FunctionScope}},
		{"with (x) {}", []jscope.ScopeType{jscope.WithScope}},
		{"try {} catch (e) {}", []jscope.ScopeType{jscope.CatchScope}},
		{"{ let x }", []jscope.ScopeType{jscope.BlockScope}},
		{"{ x }", nil}, // empty block dissolves
		{"function f() {} { let x }", []jscope.ScopeType{jscope.BlockScope, jscope.FunctionScope}},
	} {
		script := parseScript(t, tc.src)
		var got []jscope.ScopeType
		for s := script.Inner(); s != nil; s = s.Sibling() {
			got = append(got, s.Type())
		}
		if len(got) != len(tc.want) {
			t.Errorf("%q: children %v, want %v", tc.src, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%q: child %d is %s, want %s", tc.src, i, got[i], tc.want[i])
			}
		}
	}
}

func TestDirectives(t *testing.T) {
	script := parseScript(t, `"use strict"
function f() {}`)
	if script.LanguageMode() != jscope.Strict {
		t.Errorf("script not strict")
	}
	if script.Inner().LanguageMode() != jscope.Strict {
		t.Errorf("function did not inherit strict mode")
	}

	script = parseScript(t, `function m() { "use asm"
function g() {} }`)
	m := script.Inner().AsDeclarationScope()
	if !m.AsmModule() {
		t.Errorf("asm directive not recorded")
	}
}

func TestEvalRecorded(t *testing.T) {
	script := parseScript(t, `function f() { eval("code") }`)
	if !script.Inner().CallsEval() {
		t.Errorf("direct eval not recorded")
	}

	// A mere mention of eval is not a call.
	script = parseScript(t, `function f() { var e = eval }`)
	if script.Inner().CallsEval() {
		t.Errorf("eval reference recorded as a call")
	}
}

func TestCatchBinding(t *testing.T) {
	f := names.NewFactory()
	script, err := Parse("test.js", `try {} catch (e) { e }`, f)
	if err != nil {
		t.Fatal(err)
	}
	catch := script.Inner()
	if !catch.IsCatchScope() {
		t.Fatalf("catch scope missing")
	}
	if catch.LookupLocal(f.Get("e")) == nil {
		t.Errorf("catch binding not declared")
	}
}

func TestParseErrors(t *testing.T) {
	f := names.NewFactory()
	for _, tc := range []struct {
		src, want string
	}{
		{"let x; let x", "already been declared"},
		{"function f(", "expected"},
		{"import a from \"m\"", "import outside module"},
		{"\"use strict\"\nfunction f(a, a) {}", "duplicate parameter"},
		{"var 1", "expected identifier"},
	} {
		_, err := Parse("test.js", tc.src, f)
		if err == nil {
			t.Errorf("%q: no error", tc.src)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) && !containsAny(err, tc.want) {
			t.Errorf("%q: error %v does not mention %q", tc.src, err, tc.want)
		}
	}
}

func containsAny(err error, want string) bool {
	list, ok := err.(ErrorList)
	if !ok {
		return false
	}
	for _, e := range list {
		if strings.Contains(e.Msg, want) {
			return true
		}
	}
	return false
}

func TestErrorPositions(t *testing.T) {
	_, err := Parse("test.js", "var x\nlet x; let x", names.NewFactory())
	list, ok := err.(ErrorList)
	if !ok || len(list) == 0 {
		t.Fatalf("err = %v", err)
	}
	e := list[0]
	if e.Line != 2 {
		t.Errorf("error on line %d, want 2", e.Line)
	}
	if e.Path != "test.js" {
		t.Errorf("error path %q", e.Path)
	}
}

func TestModuleParsing(t *testing.T) {
	f := names.NewFactory()
	script, err := ParseModule("test.js", `
import a as b from "m"
export let x
`, f)
	if err != nil {
		t.Fatal(err)
	}
	module := script.Inner().AsModuleScope()
	if module.LookupLocal(f.Get("b")) == nil {
		t.Errorf("renamed import not declared")
	}
	desc := module.Module()
	if len(desc.RegularImports()) != 1 || desc.RegularImports()[0].ImportName != f.Get("a") {
		t.Errorf("import entry wrong: %+v", desc.RegularImports())
	}
	if len(desc.RegularExports()) != 1 || desc.RegularExports()[0].ExportName != f.Get("x") {
		t.Errorf("export entry wrong: %+v", desc.RegularExports())
	}
}
