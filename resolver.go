// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

import (
	"fmt"
	"os"

	"go.jscope.net/names"
)

// PrintScopes makes Analyze print every analyzed scope tree to
// standard error.
var PrintScopes = false

// debug enables expensive invariant checks after analysis.
const debug = false

// An Info carries the per-analysis inputs shared by resolution.
type Info struct {
	// ScriptScope is the root of the scope tree being analyzed.
	ScriptScope *DeclarationScope

	// ScriptIsNative marks scripts that set up the runtime itself;
	// their free references must never fall through to the global
	// object.
	ScriptIsNative bool
}

// Analyze resolves every reference in the scope's tree and allocates
// storage for every variable. The scope must be the script scope, a
// top-level function/eval/module, or nested directly in an already
// resolved scope. Analyzing a scope twice is a programming error.
func (d *DeclarationScope) Analyze(info *Info) {
	d.checkAnalyzable(info)
	d.allocateVariables(info, false)
	if PrintScopes {
		d.Print(os.Stderr)
	}
	if debug {
		d.checkScopePositions()
	}
}

// AnalyzeForDebugger is Analyze for a debug-evaluate compilation: every
// scope receives a descriptor whether or not later stages would
// normally need one.
func (d *DeclarationScope) AnalyzeForDebugger(info *Info) {
	d.checkAnalyzable(info)
	d.allocateVariables(info, true)
}

func (d *DeclarationScope) checkAnalyzable(info *Info) {
	if info.ScriptScope == nil || !info.ScriptScope.IsScriptScope() {
		panic("jscope: analysis without script scope")
	}
	if !(d.IsScriptScope() || d.outer.IsScriptScope() || d.outer.alreadyResolved) {
		panic("jscope: analyzed scope not at a compilation boundary")
	}
}

// allocateVariables runs the analysis pipeline in its fixed order.
func (d *DeclarationScope) allocateVariables(info *Info, forDebugger bool) {
	d.propagateScopeInfo()
	d.resolveVariablesRecursively(info)
	d.allocateVariablesRecursively()
	d.allocateScopeInfosRecursively(forDebugger)
	d.markResolvedRecursively()
}

// markResolvedRecursively freezes the analyzed subtree; further
// declarations or a second analysis are programming errors.
func (s *Scope) markResolvedRecursively() {
	s.alreadyResolved = true
	for scope := s.inner; scope != nil; scope = scope.sibling {
		scope.markResolvedRecursively()
	}
}

// propagateScopeInfo bubbles eval usage out of inner scopes and pushes
// the asm-function mark into each function scope of an asm module.
// Running it twice produces the same flags.
func (s *Scope) propagateScopeInfo() {
	for inner := s.inner; inner != nil; inner = inner.sibling {
		inner.propagateScopeInfo()
		if inner.callsEval || inner.innerCallsEval {
			s.innerCallsEval = true
		}
		if s.IsAsmModule() && inner.IsFunctionScope() {
			inner.AsDeclarationScope().setAsmFunction()
		}
	}
}

// nonLocal declares a dynamic binding in this scope, owned by no
// scope.
func (s *Scope) nonLocal(name *names.Name, mode VariableMode) *Variable {
	if !mode.IsDynamic() {
		panic("jscope: non-local with static mode")
	}
	v, _ := s.variables.Declare(nil, name, mode, NormalVariable, CreatedInitialized, NotAssigned)
	v.AllocateTo(LookupLocation, -1)
	return v
}

// lookupRecursive finds the binding for proxy along the scope chain up
// to (but excluding) outerScopeEnd, applying the dynamic-resolution
// rules for debug-evaluate, with, and sloppy eval on the way back
// down. When declareFree is set, a reference reaching the script scope
// becomes a dynamic global there; otherwise the lookup returns nil.
func (s *Scope) lookupRecursive(proxy *VariableProxy, declareFree bool, outerScopeEnd *Scope) *Variable {
	if s == outerScopeEnd {
		panic("jscope: lookup started at its end scope")
	}

	// Anything reached through a debug-evaluate scope is looked up
	// dynamically: the debugger does not maintain full scope
	// descriptors for the frames it evaluates in, so a static
	// resolution could bind to a stale stack slot.
	if s.debugEvaluate {
		if !declareFree {
			return nil
		}
		return s.nonLocal(proxy.name, Dynamic)
	}

	// A binding found here wins even if this scope also calls eval:
	// an eval-introduced duplicate rebinds to the same variable.
	if v := s.LookupLocal(proxy.name); v != nil {
		return v
	}

	if s.IsFunctionScope() {
		if v := s.AsDeclarationScope().LookupFunctionVar(proxy.name); v != nil {
			if s.CallsSloppyEval() {
				return s.nonLocal(proxy.name, Dynamic)
			}
			return v
		}
	}

	if s.outer == outerScopeEnd {
		if !declareFree {
			return nil
		}
		if !s.IsScriptScope() {
			panic("jscope: unbound reference below script scope")
		}
		return s.AsDeclarationScope().DeclareDynamicGlobal(proxy.name, NormalVariable)
	}

	v := s.outer.lookupRecursive(proxy, declareFree, outerScopeEnd)
	if v == nil {
		return nil
	}

	// Crossing a function boundary captures the binding.
	if s.IsFunctionScope() && !v.IsDynamic() {
		v.ForceContextAllocation()
	}

	// "this" cannot be shadowed by eval- or with-introduced bindings.
	if v.IsThis() {
		return v
	}

	if s.IsWithScope() {
		// The binding cannot be resolved statically through a with
		// scope, but the outer lookup was still necessary: if a binding
		// exists out there, the with body may reach it, so it must be
		// heap-allocated and marked used.
		if !v.IsDynamic() && v.IsUnallocated() {
			v.SetIsUsed()
			v.ForceContextAllocation()
			if proxy.IsAssigned() {
				v.SetMaybeAssigned()
			}
		}
		return s.nonLocal(proxy.name, Dynamic)
	}

	if s.CallsSloppyEval() && s.IsDeclarationScope() {
		// The eval call may introduce a same-named binding, so the one
		// found outside is only a candidate. Block and catch scopes
		// cannot host eval-introduced vars and are skipped.
		if v.IsGlobalObjectProperty() {
			return s.nonLocal(proxy.name, DynamicGlobal)
		}
		if v.IsDynamic() {
			return v
		}
		invalidated := v
		v = s.nonLocal(proxy.name, DynamicLocal)
		v.setLocalIfNotShadowed(invalidated)
	}

	return v
}

// resolveVariable binds one unresolved reference.
func (s *Scope) resolveVariable(info *Info, proxy *VariableProxy) {
	// Functions and consts may have been bound by the parser already.
	if proxy.IsResolved() {
		return
	}
	v := s.lookupRecursive(proxy, true, nil)
	s.resolveTo(info, proxy, v)
}

func (s *Scope) resolveTo(info *Info, proxy *VariableProxy, v *Variable) {
	if v == nil {
		panic(fmt.Sprintf("jscope: unresolved reference %q", proxy.name))
	}
	if info.ScriptIsNative {
		// Native scripts must not touch the global object: every
		// reference binds locally or not at all.
		if s.outer == nil {
			panic("jscope: native reference resolved at script scope")
		}
		if v.IsGlobalObjectProperty() {
			panic(fmt.Sprintf("jscope: unbound variable %q in native script", proxy.name))
		}
		switch v.location {
		case LocalLocation, ContextLocation, ParameterLocation, UnallocatedLocation:
		default:
			panic(fmt.Sprintf("jscope: native reference %q has location %s", proxy.name, v.location))
		}
	}
	if proxy.IsAssigned() {
		v.SetMaybeAssigned()
	}
	proxy.BindTo(v)
}

// resolveVariablesRecursively binds this scope's unresolved references,
// then its children's.
func (s *Scope) resolveVariablesRecursively(info *Info) {
	for proxy := s.unresolved; proxy != nil; proxy = proxy.nextUnresolved {
		s.resolveVariable(info, proxy)
	}
	for scope := s.inner; scope != nil; scope = scope.sibling {
		scope.resolveVariablesRecursively(info)
	}
}

// fetchFreeVariables resolves what it can against the scopes inside
// maxOuterScope and returns the references that remain free, pushed
// onto stack. The scope's own unresolved list is consumed. With a nil
// info, resolvable references are dropped unbound; the pre-parser uses
// this to learn only which names are free.
func (s *Scope) fetchFreeVariables(maxOuterScope *DeclarationScope, info *Info, stack *VariableProxy) *VariableProxy {
	var next *VariableProxy
	for proxy := s.unresolved; proxy != nil; proxy = next {
		next = proxy.nextUnresolved
		if proxy.IsResolved() {
			continue
		}
		v := s.lookupRecursive(proxy, false, maxOuterScope.outer)
		if v == nil {
			proxy.nextUnresolved = stack
			stack = proxy
		} else if info != nil {
			s.resolveTo(info, proxy, v)
		}
	}

	// The list is in an inconsistent state after the walk; clear it.
	s.unresolved = nil

	for scope := s.inner; scope != nil; scope = scope.sibling {
		stack = scope.fetchFreeVariables(maxOuterScope, info, stack)
	}
	return stack
}

// CollectNonLocals returns the distinct names of the scope's free
// variables, in first-occurrence order of the returned stack.
func (d *DeclarationScope) CollectNonLocals(info *Info) []*names.Name {
	var nonLocals []*names.Name
	seen := make(map[*names.Name]bool)
	for proxy := d.fetchFreeVariables(d, info, nil); proxy != nil; proxy = proxy.nextUnresolved {
		if !seen[proxy.name] {
			seen[proxy.name] = true
			nonLocals = append(nonLocals, proxy.name)
		}
	}
	return nonLocals
}

// AnalyzePartially migrates this scope's unresolved references and
// usage flags to migrateTo, a scope describing the same function in a
// new analysis, when a pre-parse is promoted to a full parse. The
// receiver is discarded afterwards.
func (d *DeclarationScope) AnalyzePartially(migrateTo *DeclarationScope) {
	d.propagateScopeInfo()

	// Resolve what this incomplete tree can; everything still free
	// must be re-resolved inside the full parse.
	for proxy := d.fetchFreeVariables(d, nil, nil); proxy != nil; proxy = proxy.nextUnresolved {
		if proxy.IsResolved() {
			panic("jscope: resolved proxy on free list")
		}
		migrateTo.AddUnresolved(proxy.copyUnresolved())
	}

	d.PropagateUsageFlagsToScope(&migrateTo.Scope)
	if d.usesSuperProperty {
		migrateTo.usesSuperProperty = true
	}
	if d.innerCallsEval {
		migrateTo.innerCallsEval = true
	}
	if d.forceEagerCompilation {
		panic("jscope: partial analysis of eagerly compiled scope")
	}
	migrateTo.startPos = d.startPos
	migrateTo.endPos = d.endPos
	migrateTo.languageMode = d.languageMode
	migrateTo.arity = d.arity
	migrateTo.forceContextAllocation = d.forceContextAllocation
	d.outer.RemoveInnerScope(&d.Scope)
	if d.outer != migrateTo.outer {
		panic("jscope: migration target under a different outer scope")
	}
	if (d.arguments != nil) != (migrateTo.arguments != nil) {
		panic("jscope: migration target disagrees about arguments")
	}
	if d.asmFunction != migrateTo.asmFunction {
		panic("jscope: migration target disagrees about asm function")
	}
}
