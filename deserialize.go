// Copyright 2026 The JScope Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jscope

import (
	"go.jscope.net/names"
	"go.jscope.net/scopeinfo"
)

// A ContextKind identifies one frame of a runtime context chain.
type ContextKind uint8

const (
	NativeContext ContextKind = iota
	ScriptContext
	FunctionContext
	BlockContext
	CatchContext
	WithContext
	DebugEvaluateContext
)

// A Context mirrors one heap-resident context of a paused or lazily
// re-entered execution, carrying just enough to rebuild its scope.
type Context struct {
	Kind      ContextKind
	Info      *scopeinfo.ScopeInfo // function, block, and script contexts
	CatchName string               // catch contexts
	Previous  *Context             // nil terminates like a native context
}

// IsNativeContext reports whether the context is the native context
// terminating every chain.
func (c *Context) IsNativeContext() bool {
	return c == nil || c.Kind == NativeContext
}

// DeserializationMode selects how much of the serialized descriptors
// to expand while rebuilding a scope chain.
type DeserializationMode uint8

const (
	// KeepDescriptors leaves each rebuilt scope backed by its
	// descriptor; variables materialize lazily during lookup.
	KeepDescriptors DeserializationMode = iota

	// MaterializeLocals eagerly rebuilds every context-local variable
	// and drops the descriptors.
	MaterializeLocals
)

// DeserializeScopeChain rebuilds the outer scope chain from a runtime
// context chain, for compiling a function lazily or evaluating under
// the debugger. The chain is assembled inside-out and hung off
// scriptScope; the innermost rebuilt scope is returned (scriptScope
// itself if the chain is empty).
func DeserializeScopeChain(context *Context, scriptScope *DeclarationScope, f *names.Factory, mode DeserializationMode) *Scope {
	var currentScope, innermostScope *Scope
chain:
	for !context.IsNativeContext() {
		var outerScope *Scope
		switch context.Kind {
		case WithContext, DebugEvaluateContext:
			// For scope analysis, debug-evaluate behaves like a with
			// scope: everything reached through it resolves
			// dynamically.
			outerScope = newRootScope(WithScope)
			if context.Kind == DebugEvaluateContext {
				outerScope.SetIsDebugEvaluateScope()
			}
		case ScriptContext:
			// The outermost context with scope info; the next one is
			// the native context. Merge onto the existing script scope
			// rather than nesting a second script scope.
			scriptScope.SetScriptScopeInfo(context.Info)
			if !context.Previous.IsNativeContext() {
				panic("jscope: script context below a non-native context")
			}
			break chain
		case FunctionContext:
			typ := FunctionScope
			if ScopeType(context.Info.ScopeType) == EvalScope {
				typ = EvalScope
			}
			outerScope = &NewDeclarationScopeFromInfo(typ, context.Info).Scope
		case BlockContext:
			if context.Info.IsDeclarationScope {
				outerScope = &NewDeclarationScopeFromInfo(BlockScope, context.Info).Scope
			} else {
				outerScope = NewScopeFromInfo(BlockScope, context.Info)
			}
		case CatchContext:
			outerScope = NewCatchScope(f.Get(context.CatchName))
		default:
			panic("jscope: unexpected context kind")
		}
		if currentScope != nil {
			outerScope.AddInnerScope(currentScope)
		}
		currentScope = outerScope
		if mode == MaterializeLocals {
			currentScope.deserializeScopeInfo(f)
		}
		if innermostScope == nil {
			innermostScope = currentScope
		}
		context = context.Previous
	}

	if innermostScope == nil {
		return &scriptScope.Scope
	}
	scriptScope.AddInnerScope(currentScope)
	scriptScope.propagateScopeInfo()
	return innermostScope
}

// deserializeScopeInfo materializes the scope's context locals and
// function self-binding from its descriptor, then drops the
// descriptor.
func (s *Scope) deserializeScopeInfo(f *names.Factory) {
	if s.scopeInfo == nil {
		return
	}

	for i := 0; i < s.scopeInfo.ContextLocalCount(); i++ {
		local := s.scopeInfo.ContextLocals[i]
		name := f.Get(local.Name)
		kind := NormalVariable
		if local.Index == s.scopeInfo.ReceiverContextSlotIndex() {
			kind = ThisVariable
		}
		v, _ := s.variables.Declare(s, name,
			VariableMode(local.Mode), kind,
			InitializationFlag(local.InitFlag),
			MaybeAssignedFlag(local.MaybeAssigned))
		v.AllocateTo(ContextLocation, local.Index)
	}

	if s.scopeInfo.HasFunctionName() {
		name := f.Get(s.scopeInfo.FunctionName)
		index, mode := s.scopeInfo.FunctionContextSlotIndex(name.String())
		if index >= 0 {
			v := s.AsDeclarationScope().DeclareFunctionVar(name)
			if uint8(v.mode) != mode {
				panic("jscope: function var mode mismatch with scope info")
			}
			v.AllocateTo(ContextLocation, index)
		}
	}

	s.scopeInfo = nil
}

// lookupInScopeInfo materializes the binding of name from the scope's
// descriptor, or returns nil if the descriptor has no such context
// local.
func (s *Scope) lookupInScopeInfo(name *names.Name) *Variable {
	// Stack locals of a previous compilation are dead; finding one
	// here would mean the analysis is resolving into a stale frame.
	if s.scopeInfo.StackSlotIndex(name.String()) >= 0 {
		panic("jscope: reference resolved to serialized stack slot")
	}

	index, mode, initFlag, maybeAssigned := s.scopeInfo.ContextSlotIndex(name.String())
	if index < 0 {
		return nil
	}

	kind := NormalVariable
	if index == s.scopeInfo.ReceiverContextSlotIndex() {
		kind = ThisVariable
	}
	v, _ := s.variables.Declare(s, name,
		VariableMode(mode), kind,
		InitializationFlag(initFlag),
		MaybeAssignedFlag(maybeAssigned))
	v.AllocateTo(ContextLocation, index)
	return v
}
