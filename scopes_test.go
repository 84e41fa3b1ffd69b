// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope_test

import (
	"strings"
	"testing"

	jscope "go.jscope.net"
	"go.jscope.net/internal/scopescript"
	"go.jscope.net/names"
)

// analyze parses src as a script and analyzes it.
func analyze(t *testing.T, src string) (*jscope.DeclarationScope, *names.Factory) {
	t.Helper()
	f := names.NewFactory()
	script, err := scopescript.Parse("test.js", src, f)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	script.Analyze(&jscope.Info{ScriptScope: script})
	return script, f
}

func TestSimpleCapture(t *testing.T) {
	script, f := analyze(t, `
function f() {
  var x = 1
  function g() { return x }
}`)

	fscope := script.Inner().AsDeclarationScope()
	x := fscope.LookupLocal(f.Get("x"))
	if x == nil {
		t.Fatalf("x not declared in f")
	}
	if !x.IsContextSlot() {
		t.Fatalf("captured x at %s, want a context slot", x.Location())
	}
	if x.Index() != jscope.MinContextSlots {
		t.Errorf("x at context[%d], want the first usable slot", x.Index())
	}
	if !x.HasForcedContextAllocation() || !x.IsUsed() {
		t.Errorf("x flags: forced=%v used=%v", x.HasForcedContextAllocation(), x.IsUsed())
	}
	if fscope.NumHeapSlots() < jscope.MinContextSlots+1 {
		t.Errorf("f heap slots = %d", fscope.NumHeapSlots())
	}
	if !fscope.NeedsContext() {
		t.Errorf("f does not need a context")
	}

	// g itself needs no context.
	g := fscope.Inner()
	if g.NeedsContext() {
		t.Errorf("g needs a context")
	}

	// f at script scope is a property of the global object.
	fvar := script.LookupLocal(f.Get("f"))
	if !fvar.IsGlobalObjectProperty() || !fvar.IsUnallocated() {
		t.Errorf("script-level f: globalprop=%v location=%s",
			fvar.IsGlobalObjectProperty(), fvar.Location())
	}

	// Chain queries over the finished tree.
	if got := g.ContextChainLength(&script.Scope); got != 1 {
		t.Errorf("ContextChainLength(g, script) = %d", got)
	}
	if got := script.MaxNestedContextChainLength(); got != 1 {
		t.Errorf("MaxNestedContextChainLength = %d", got)
	}
	if g.AsDeclarationScope().AllowsLazyCompilationWithoutContext() {
		t.Errorf("g allows lazy compilation without context under a context-bearing scope")
	}
}

func TestSloppyEvalAllocation(t *testing.T) {
	script, f := analyze(t, `
function f(a) {
  var x
  eval("")
}`)

	fscope := script.Inner().AsDeclarationScope()
	if !fscope.CallsEval() || !fscope.CallsSloppyEval() {
		t.Fatalf("eval call not recorded")
	}
	if !script.InnerScopeCallsEval() {
		t.Errorf("eval usage did not reach the script scope")
	}
	for _, name := range []string{"a", "x"} {
		v := fscope.LookupLocal(f.Get(name))
		if !v.IsContextSlot() {
			t.Errorf("%s at %s, want a context slot", name, v.Location())
		}
		if v.MaybeAssigned() != jscope.MaybeAssigned {
			t.Errorf("%s not maybe-assigned despite eval", name)
		}
	}
	if !fscope.NeedsContext() {
		t.Errorf("eval-calling function without context")
	}
	if got := fscope.ContextChainLengthUntilOutermostSloppyEval(); got != 1 {
		t.Errorf("ContextChainLengthUntilOutermostSloppyEval = %d", got)
	}
}

func TestSloppyEvalShadowing(t *testing.T) {
	script, f := analyze(t, `
function outer() {
  var y
  function f() {
    eval("")
    function g() { y }
  }
}`)

	outer := script.Inner().AsDeclarationScope()
	fscope := outer.Inner().AsDeclarationScope()

	y := outer.LookupLocal(f.Get("y"))
	if !y.IsContextSlot() || !y.IsUsed() {
		t.Errorf("outer y: location=%s used=%v", y.Location(), y.IsUsed())
	}

	// The reference from g sees a dynamic stand-in declared in the
	// eval-calling scope, remembering the binding it shadows.
	dl := fscope.LookupLocal(f.Get("y"))
	if dl == nil {
		t.Fatalf("no dynamic stand-in for y in f")
	}
	if dl.Mode() != jscope.DynamicLocal {
		t.Errorf("stand-in mode = %s, want DYNAMIC_LOCAL", dl.Mode())
	}
	if !dl.IsLookupSlot() {
		t.Errorf("stand-in location = %s", dl.Location())
	}
	if dl.LocalIfNotShadowed() != y {
		t.Errorf("stand-in does not point back at outer y")
	}
}

func TestWithScope(t *testing.T) {
	script, f := analyze(t, `
function h() {
  var a
  var o
  with (o) { a }
}`)

	h := script.Inner().AsDeclarationScope()
	a := h.LookupLocal(f.Get("a"))
	if !a.IsUsed() || !a.IsContextSlot() {
		t.Errorf("outer a: used=%v location=%s", a.IsUsed(), a.Location())
	}

	var with *jscope.Scope
	for s := h.Inner(); s != nil; s = s.Sibling() {
		if s.IsWithScope() {
			with = s
		}
	}
	if with == nil {
		t.Fatalf("with scope missing")
	}
	if !with.NeedsContext() {
		t.Errorf("with scope without context")
	}
	dyn := with.LookupLocal(f.Get("a"))
	if dyn == nil || dyn.Mode() != jscope.Dynamic {
		t.Fatalf("reference inside with resolved to %v, want DYNAMIC", dyn)
	}

	// The with object itself is an ordinary stack local of h.
	o := h.LookupLocal(f.Get("o"))
	if !o.IsStackLocal() {
		t.Errorf("o at %s, want a stack slot", o.Location())
	}
}

func TestLexicalConflicts(t *testing.T) {
	f := names.NewFactory()
	for _, src := range []string{
		"function f() { let x; var x }",
		"function f() { let x; { var x } }",
		"{ let x; var x }",
		"let x; var x",
	} {
		if _, err := scopescript.Parse("test.js", src, f); err == nil {
			t.Errorf("%s: conflict not reported", src)
		} else if !strings.Contains(err.Error(), "already been declared") {
			t.Errorf("%s: unexpected error %v", src, err)
		}
	}

	// The same names in unrelated scopes are fine.
	if _, err := scopescript.Parse("test.js", "let x; function f() { var x }", f); err != nil {
		t.Errorf("false conflict: %v", err)
	}
}

func TestSloppyBlockFunctionHoisting(t *testing.T) {
	script, f := analyze(t, `
function f() {
  {
    function g() {}
    function g() {}
  }
  g
}`)

	fscope := script.Inner().AsDeclarationScope()
	g := fscope.LookupLocal(f.Get("g"))
	if g == nil {
		t.Fatalf("g not hoisted to the function scope")
	}
	if g.Mode() != jscope.Var {
		t.Errorf("hoisted g mode = %s", g.Mode())
	}

	var block *jscope.Scope
	for s := fscope.Inner(); s != nil; s = s.Sibling() {
		if s.IsBlockScope() {
			block = s
		}
	}
	if block == nil {
		t.Fatalf("block scope dissolved despite holding g")
	}
	lexical := block.LookupLocal(f.Get("g"))
	if lexical == nil || !lexical.Mode().IsLexical() {
		t.Errorf("block-level g not lexical: %v", lexical)
	}

	// A lexical binding in between blocks hoisting.
	script2, f2 := analyze(t, `
function f() {
  let g
  { function g() {} }
}`)
	f2scope := script2.Inner().AsDeclarationScope()
	if v := f2scope.LookupLocal(f2.Get("g")); v.Mode() != jscope.Let {
		t.Errorf("hoisting overwrote the lexical g: mode = %s", v.Mode())
	}
}

func TestDuplicateParameters(t *testing.T) {
	script, _ := analyze(t, `function f(a, a) { return a }`)
	fscope := script.Inner().AsDeclarationScope()

	if fscope.NumParameters() != 2 {
		t.Fatalf("NumParameters = %d", fscope.NumParameters())
	}
	if fscope.Parameter(0) != fscope.Parameter(1) {
		t.Fatalf("duplicate parameters are distinct variables")
	}
	a := fscope.Parameter(0)
	if !a.IsParameter() || a.Index() != 1 {
		t.Errorf("a at %s[%d], want parameter[1]: the last duplicate wins", a.Location(), a.Index())
	}
	if fscope.Arguments() != nil {
		t.Errorf("unused arguments object not dropped")
	}
}

func TestSloppyArgumentsAliasing(t *testing.T) {
	script, _ := analyze(t, `function f(a, a) { return arguments }`)
	fscope := script.Inner().AsDeclarationScope()

	if fscope.Arguments() == nil {
		t.Fatalf("used arguments object dropped")
	}
	a := fscope.Parameter(0)
	if !a.IsContextSlot() {
		t.Errorf("aliased parameter at %s, want a context slot", a.Location())
	}

	// In strict mode arguments does not alias, so the parameter can
	// stay in its parameter slot.
	script2, f2 := analyze(t, `"use strict"
function f(a) { return arguments, a }`)
	f2scope := script2.Inner().AsDeclarationScope()
	a2 := f2scope.LookupLocal(f2.Get("a"))
	if !a2.IsParameter() {
		t.Errorf("strict parameter at %s, want a parameter slot", a2.Location())
	}
}

func TestEmptyBlockElision(t *testing.T) {
	script, _ := analyze(t, `function f() { { ; } }`)
	fscope := script.Inner().AsDeclarationScope()
	if fscope.Inner() != nil {
		t.Errorf("empty block survived finalization")
	}
}

func TestFunctionVarLastContextSlot(t *testing.T) {
	script, f := analyze(t, `
var F = function g() {
  var c
  return function () { return g, c }
}`)

	var fscope *jscope.DeclarationScope
	for s := script.Inner(); s != nil; s = s.Sibling() {
		if s.IsFunctionScope() {
			fscope = s.AsDeclarationScope()
		}
	}
	fn := fscope.FunctionVar()
	if fn == nil || fn.Name() != f.Get("g") {
		t.Fatalf("function self-binding missing")
	}
	if !fn.IsContextSlot() {
		t.Fatalf("captured self-binding at %s", fn.Location())
	}
	if fn.Index() != fscope.NumHeapSlots()-1 {
		t.Errorf("self-binding at context[%d], want the last slot (%d)",
			fn.Index(), fscope.NumHeapSlots()-1)
	}

	// Context slots are dense from MinContextSlots.
	c := fscope.LookupLocal(f.Get("c"))
	if !c.IsContextSlot() {
		t.Fatalf("captured c at %s", c.Location())
	}
	seen := map[int]bool{c.Index(): true, fn.Index(): true}
	for i := jscope.MinContextSlots; i < fscope.NumHeapSlots(); i++ {
		if !seen[i] {
			t.Errorf("context slot %d unused", i)
		}
	}
}

func TestStackSlotsDense(t *testing.T) {
	script, f := analyze(t, `
function f() {
  var a
  var b
  { let c; c }
  a, b
}`)
	fscope := script.Inner().AsDeclarationScope()

	// a, b, and the block-scoped c all share f's frame.
	if fscope.NumStackSlots() != 3 {
		t.Fatalf("stack slots = %d, want 3", fscope.NumStackSlots())
	}
	seen := map[int]bool{}
	for _, name := range []string{"a", "b"} {
		v := fscope.LookupLocal(f.Get(name))
		if !v.IsStackLocal() {
			t.Fatalf("%s at %s", name, v.Location())
		}
		seen[v.Index()] = true
	}
	block := fscope.Inner()
	c := block.LookupLocal(f.Get("c"))
	if !c.IsStackLocal() {
		t.Fatalf("c at %s", c.Location())
	}
	seen[c.Index()] = true
	for i := 0; i < 3; i++ {
		if !seen[i] {
			t.Errorf("stack slot %d unused", i)
		}
	}
	if block.NumStackSlots() != 0 {
		t.Errorf("block scope claims %d stack slots of its own", block.NumStackSlots())
	}
}

func TestModuleAllocation(t *testing.T) {
	f := names.NewFactory()
	script, err := scopescript.ParseModule("test.js", `
import a from "m"
export var x = 1
x = a
`, f)
	if err != nil {
		t.Fatal(err)
	}
	script.Analyze(&jscope.Info{ScriptScope: script})

	module := script.Inner().AsModuleScope()
	if !module.IsModuleScope() || module.LanguageMode() != jscope.Strict {
		t.Fatalf("module scope wrong: type=%s mode=%s", module.Type(), module.LanguageMode())
	}
	if !module.NeedsContext() {
		t.Errorf("module scope without context")
	}

	a := module.LookupLocal(f.Get("a"))
	if a.Location() != jscope.ModuleLocation || a.Index() != -1 {
		t.Errorf("import a at %s[%d], want the shared import index", a.Location(), a.Index())
	}
	x := module.LookupLocal(f.Get("x"))
	if x.Location() != jscope.ModuleLocation || x.Index() != 0 {
		t.Errorf("export x at %s[%d], want module[0]", x.Location(), x.Index())
	}
	if x.MaybeAssigned() != jscope.MaybeAssigned {
		t.Errorf("assigned export not maybe-assigned")
	}

	desc := module.Module()
	if len(desc.RegularImports()) != 1 || len(desc.RegularExports()) != 1 {
		t.Errorf("descriptor entries: %d imports, %d exports",
			len(desc.RegularImports()), len(desc.RegularExports()))
	}
}

func TestAnalyzeTwicePanics(t *testing.T) {
	script, _ := analyze(t, `var x`)
	defer func() {
		if recover() == nil {
			t.Errorf("second Analyze did not panic")
		}
	}()
	script.Analyze(&jscope.Info{ScriptScope: script})
}

func TestUnallocatedIffUnusedOrGlobal(t *testing.T) {
	script, _ := analyze(t, `
var global
function f(p) {
  var used = 1
  used
  function g() {}
}`)

	var walk func(s *jscope.Scope)
	walk = func(s *jscope.Scope) {
		for _, v := range allVariables(s) {
			if v.IsDynamic() {
				continue // dynamic bindings are born as lookups
			}
			want := v.IsUsed() && !v.IsGlobalObjectProperty()
			if got := !v.IsUnallocated(); got != want {
				t.Errorf("%s in %s scope: allocated=%v, used=%v, globalprop=%v",
					v, s.Type(), got, v.IsUsed(), v.IsGlobalObjectProperty())
			}
		}
		for c := s.Inner(); c != nil; c = c.Sibling() {
			walk(c)
		}
	}
	walk(&script.Scope)
}

// allVariables lists a scope's named bindings, including the function
// self-binding when present.
func allVariables(s *jscope.Scope) []*jscope.Variable {
	var vars []*jscope.Variable
	seen := map[*jscope.Variable]bool{}
	for _, v := range s.Locals() {
		if !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	if s.IsDeclarationScope() {
		if fn := s.AsDeclarationScope().FunctionVar(); fn != nil && !seen[fn] {
			vars = append(vars, fn)
		}
	}
	return vars
}

func TestCollectNonLocals(t *testing.T) {
	f := names.NewFactory()
	script := jscope.NewScriptScope()
	fn := jscope.NewDeclarationScope(&script.Scope, jscope.FunctionScope, jscope.NormalFunction)
	fn.DeclareThis(f)
	fn.DeclareDefaultFunctionVariables(f)
	fn.DeclareLocal(f.Get("x"), jscope.Var, jscope.CreatedInitialized, jscope.NormalVariable, jscope.NotAssigned)
	fn.NewUnresolved(f.Get("x"), 0)
	fn.NewUnresolved(f.Get("y"), 1)
	block := jscope.NewScope(&fn.Scope, jscope.BlockScope)
	block.NewUnresolved(f.Get("z"), 2)

	got := fn.CollectNonLocals(&jscope.Info{ScriptScope: script})
	set := map[string]bool{}
	for _, n := range got {
		set[n.String()] = true
	}
	if len(got) != 2 || !set["y"] || !set["z"] {
		t.Errorf("CollectNonLocals = %v, want y and z", got)
	}
	if fn.Unresolved() != nil {
		t.Errorf("unresolved list not consumed")
	}
}

func TestAnalyzePartially(t *testing.T) {
	f := names.NewFactory()
	script := jscope.NewScriptScope()

	pre := jscope.NewDeclarationScope(&script.Scope, jscope.FunctionScope, jscope.NormalFunction)
	pre.DeclareThis(f)
	pre.DeclareDefaultFunctionVariables(f)
	pre.SetStartPosition(5)
	pre.SetEndPosition(40)
	pre.DeclareLocal(f.Get("x"), jscope.Var, jscope.CreatedInitialized, jscope.NormalVariable, jscope.NotAssigned)
	pre.NewUnresolved(f.Get("x"), 10)
	free := pre.NewUnresolved(f.Get("free"), 12)
	jscope.NewScope(&pre.Scope, jscope.BlockScope).RecordEvalCall()

	migrate := jscope.NewDeclarationScope(&script.Scope, jscope.FunctionScope, jscope.NormalFunction)
	migrate.DeclareThis(f)
	migrate.DeclareDefaultFunctionVariables(f)

	pre.AnalyzePartially(migrate)

	if migrate.StartPosition() != 5 || migrate.EndPosition() != 40 {
		t.Errorf("positions not migrated")
	}
	if !migrate.InnerScopeCallsEval() {
		t.Errorf("inner eval usage not migrated")
	}
	proxy := migrate.Unresolved()
	if proxy == nil || proxy.Name() != f.Get("free") || proxy.NextUnresolved() != nil {
		t.Errorf("free reference not migrated alone: %v", proxy)
	}
	if proxy == free {
		t.Errorf("migrated proxy not a copy")
	}
	if proxy.IsResolved() {
		t.Errorf("migrated proxy already bound")
	}
	for s := script.Inner(); s != nil; s = s.Sibling() {
		if s == &pre.Scope {
			t.Errorf("pre-parse scope still linked under script")
		}
	}
}

func TestEvalScopeSloppyVar(t *testing.T) {
	f := names.NewFactory()
	script := jscope.NewScriptScope()
	eval := jscope.NewDeclarationScope(&script.Scope, jscope.EvalScope, jscope.NormalFunction)
	eval.SetStartPosition(0)
	eval.SetEndPosition(1)
	eval.RecordEvalCall()

	proxy := jscope.NewVariableProxy(f.Get("x"), 0)
	decl := jscope.NewVariableDeclaration(proxy, &eval.Scope, 0)
	v, _, ok := eval.DeclareVariable(decl, jscope.Var, jscope.CreatedInitialized, false)
	if !ok {
		t.Fatalf("sloppy eval var rejected")
	}
	if !v.IsLookupSlot() {
		t.Errorf("sloppy eval var at %s, want a dynamic lookup", v.Location())
	}
	if eval.LookupLocal(f.Get("x")) != nil {
		t.Errorf("sloppy eval var entered the variable map")
	}

	script.Analyze(&jscope.Info{ScriptScope: script})
	if !eval.NeedsContext() {
		t.Errorf("sloppy-eval-calling eval scope without context")
	}
}

func TestPrint(t *testing.T) {
	script, _ := analyze(t, `
function f(p) {
  var x = 1
  function g() { return x }
}`)
	out := script.String()
	for _, want := range []string{
		"global {",
		"function f (p)",
		"function g ()",
		"VAR x;  // context[4]",
		"forced context allocation",
		"// 5 heap slots",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("printed tree missing %q:\n%s", want, out)
		}
	}
}
