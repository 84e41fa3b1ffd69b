// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	jscope "go.jscope.net"
	"go.jscope.net/names"
	"go.jscope.net/scopeinfo"
)

// capturedScopeInfo analyzes a function with one captured, assigned
// variable and returns its descriptor after a codec round trip.
func capturedScopeInfo(t *testing.T) *scopeinfo.ScopeInfo {
	t.Helper()
	script, _ := analyze(t, `
function outer() {
  var captured = 1
  function inner() { captured = 2 }
}`)
	si := script.Inner().ScopeInfo()
	if si == nil {
		t.Fatalf("analyzed function has no descriptor")
	}
	decoded, err := scopeinfo.Decode(si.Encode(nil))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(si, decoded); diff != "" {
		t.Fatalf("descriptor codec round trip (-want +got):\n%s", diff)
	}
	return decoded
}

func TestDeserializeMaterialized(t *testing.T) {
	si := capturedScopeInfo(t)
	chain := &jscope.Context{
		Kind: jscope.FunctionContext,
		Info: si,
		Previous: &jscope.Context{
			Kind:      jscope.CatchContext,
			CatchName: "e",
			Previous:  &jscope.Context{Kind: jscope.NativeContext},
		},
	}

	f := names.NewFactory()
	script := jscope.NewScriptScope()
	innermost := jscope.DeserializeScopeChain(chain, script, f, jscope.MaterializeLocals)

	if !innermost.IsFunctionScope() {
		t.Fatalf("innermost scope is %s", innermost.Type())
	}
	if innermost.ScopeInfo() != nil {
		t.Errorf("materialized scope kept its descriptor")
	}

	// The reconstructed variable carries the analyzed attributes.
	v := innermost.LookupLocal(f.Get("captured"))
	if v == nil {
		t.Fatalf("captured not materialized")
	}
	if v.Mode() != jscope.Var {
		t.Errorf("mode = %s", v.Mode())
	}
	if v.Kind() != jscope.NormalVariable {
		t.Errorf("kind = %d", v.Kind())
	}
	if v.Initialization() != jscope.CreatedInitialized {
		t.Errorf("init flag = %d", v.Initialization())
	}
	if v.MaybeAssigned() != jscope.MaybeAssigned {
		t.Errorf("maybe-assigned lost in the round trip")
	}
	if !v.IsContextSlot() || v.Index() != jscope.MinContextSlots {
		t.Errorf("captured at %s[%d]", v.Location(), v.Index())
	}

	// The chain continues outward through the catch scope to the
	// script scope.
	catch := innermost.Outer()
	if !catch.IsCatchScope() {
		t.Fatalf("outer scope is %s, want catch", catch.Type())
	}
	if e := catch.LookupLocal(f.Get("e")); e == nil || !e.IsContextSlot() {
		t.Errorf("catch binding not rebuilt: %v", e)
	}
	if catch.Outer() != &script.Scope {
		t.Errorf("chain not hung off the script scope")
	}
}

func TestDeserializeLazyResolution(t *testing.T) {
	si := capturedScopeInfo(t)
	chain := &jscope.Context{
		Kind:     jscope.FunctionContext,
		Info:     si,
		Previous: &jscope.Context{Kind: jscope.NativeContext},
	}

	f := names.NewFactory()
	script := jscope.NewScriptScope()
	innermost := jscope.DeserializeScopeChain(chain, script, f, jscope.KeepDescriptors)
	if innermost.ScopeInfo() == nil {
		t.Fatalf("descriptor dropped in KeepDescriptors mode")
	}

	// Compile a new closure under the rebuilt chain, as the lazy
	// compilation driver does, and let resolution find the captured
	// binding through the descriptor.
	fn := jscope.NewDeclarationScope(innermost, jscope.FunctionScope, jscope.NormalFunction)
	fn.SetStartPosition(0)
	fn.SetEndPosition(1)
	fn.DeclareThis(f)
	fn.DeclareDefaultFunctionVariables(f)
	proxy := fn.NewUnresolved(f.Get("captured"), 0)

	fn.Analyze(&jscope.Info{ScriptScope: script})

	if !proxy.IsResolved() {
		t.Fatalf("reference not resolved")
	}
	v := proxy.Var()
	if v.Scope() != innermost {
		t.Errorf("binding owned by %v, want the deserialized scope", v.Scope())
	}
	if !v.IsContextSlot() || v.Index() != jscope.MinContextSlots {
		t.Errorf("binding at %s[%d]", v.Location(), v.Index())
	}
}

func TestReceiverRoundTrip(t *testing.T) {
	script, _ := analyze(t, `var F = function g() { return () => this }`)
	var fn *jscope.Scope
	for s := script.Inner(); s != nil; s = s.Sibling() {
		if s.IsFunctionScope() {
			fn = s
		}
	}
	si, err := scopeinfo.Decode(fn.ScopeInfo().Encode(nil))
	if err != nil {
		t.Fatal(err)
	}
	if si.ReceiverContextSlotIndex() < 0 {
		t.Fatalf("captured receiver not in the context")
	}

	f := names.NewFactory()
	script2 := jscope.NewScriptScope()
	chain := &jscope.Context{
		Kind:     jscope.FunctionContext,
		Info:     si,
		Previous: &jscope.Context{Kind: jscope.NativeContext},
	}
	inner := jscope.DeserializeScopeChain(chain, script2, f, jscope.MaterializeLocals)
	v := inner.LookupLocal(f.This)
	if v == nil || !v.IsThis() {
		t.Fatalf("receiver not rebuilt as a this binding: %v", v)
	}
	if v.Index() != si.ReceiverContextSlotIndex() {
		t.Errorf("receiver at context[%d], want %d", v.Index(), si.ReceiverContextSlotIndex())
	}
}

func TestDeserializeScriptContextMerges(t *testing.T) {
	scriptInfo := &scopeinfo.ScopeInfo{
		ScopeType:     uint8(jscope.ScriptScope),
		ContextLength: jscope.MinContextSlots,
		ReceiverSlot:  -1,
		FunctionSlot:  -1,
	}
	si := capturedScopeInfo(t)
	chain := &jscope.Context{
		Kind: jscope.FunctionContext,
		Info: si,
		Previous: &jscope.Context{
			Kind:     jscope.ScriptContext,
			Info:     scriptInfo,
			Previous: &jscope.Context{Kind: jscope.NativeContext},
		},
	}

	f := names.NewFactory()
	script := jscope.NewScriptScope()
	innermost := jscope.DeserializeScopeChain(chain, script, f, jscope.KeepDescriptors)

	if script.ScopeInfo() != scriptInfo {
		t.Errorf("script context info not merged onto the script scope")
	}
	if innermost.Outer() != &script.Scope {
		t.Errorf("function scope not nested directly in the script scope")
	}
}

func TestDeserializeEmptyChain(t *testing.T) {
	f := names.NewFactory()
	script := jscope.NewScriptScope()
	got := jscope.DeserializeScopeChain(
		&jscope.Context{Kind: jscope.NativeContext}, script, f, jscope.KeepDescriptors)
	if got != &script.Scope {
		t.Errorf("empty chain should yield the script scope itself")
	}
}

func TestDebugEvaluateResolvesDynamically(t *testing.T) {
	si := capturedScopeInfo(t)
	chain := &jscope.Context{
		Kind: jscope.DebugEvaluateContext,
		Previous: &jscope.Context{
			Kind:     jscope.FunctionContext,
			Info:     si,
			Previous: &jscope.Context{Kind: jscope.NativeContext},
		},
	}

	f := names.NewFactory()
	script := jscope.NewScriptScope()
	innermost := jscope.DeserializeScopeChain(chain, script, f, jscope.KeepDescriptors)
	if !innermost.IsWithScope() || !innermost.IsDebugEvaluateScope() {
		t.Fatalf("debug-evaluate context rebuilt as %s", innermost.Type())
	}

	eval := jscope.NewDeclarationScope(innermost, jscope.EvalScope, jscope.NormalFunction)
	eval.SetStartPosition(0)
	eval.SetEndPosition(1)
	proxy := eval.NewUnresolved(f.Get("captured"), 0)

	eval.AnalyzeForDebugger(&jscope.Info{ScriptScope: script})

	// Even a binding that exists in the outer function resolves
	// dynamically through debug-evaluate.
	if !proxy.IsResolved() {
		t.Fatalf("reference not resolved")
	}
	if proxy.Var().Mode() != jscope.Dynamic {
		t.Errorf("debug-evaluate binding mode = %s, want DYNAMIC", proxy.Var().Mode())
	}
	if eval.ScopeInfo() == nil {
		t.Errorf("debugger analysis did not emit a descriptor")
	}
}
